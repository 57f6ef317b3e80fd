package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/joho/godotenv"

	"github.com/premierdental/nova-voice-ai/cmd/mainconfig"
	appconfig "github.com/premierdental/nova-voice-ai/internal/config"
	"github.com/premierdental/nova-voice-ai/internal/llm"
)

// Quick manual smoke test for the model providers. Run with real
// credentials in the environment or a .env file.
func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := appconfig.Load()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	req := llm.Request{
		Model: cfg.BedrockModelID,
		System: []string{
			"You are a friendly dental office assistant. Keep responses brief and helpful.",
		},
		Messages: []llm.ChatMessage{
			{Role: llm.ChatRoleUser, Content: "Hi, I chipped a tooth yesterday. Can you help?"},
			{Role: llm.ChatRoleAssistant, Content: "I'm sorry to hear that! I can help you get an appointment scheduled. Is the tooth causing you any pain right now?"},
			{Role: llm.ChatRoleUser, Content: "A little, maybe a three out of ten."},
		},
		MaxTokens:   200,
		Temperature: 0.7,
	}

	fmt.Println("LLM Provider Test")
	fmt.Println("-----------------")

	fmt.Println("\n[1] Testing Bedrock...")
	awsCfg, err := mainconfig.LoadAWSConfig(ctx, cfg)
	if err != nil {
		fmt.Printf("    failed to load AWS config: %v\n", err)
	} else {
		bedrock := llm.NewBedrockClient(bedrockruntime.NewFromConfig(awsCfg))
		runOnce(ctx, "Bedrock", bedrock, req)
	}

	if cfg.GeminiAPIKey == "" {
		fmt.Println("\n[2] Skipping Gemini test (GEMINI_API_KEY not set)")
		return
	}

	fmt.Println("\n[2] Testing Gemini...")
	gemini, err := llm.NewGeminiClient(ctx, cfg.GeminiAPIKey, cfg.GeminiModelID)
	if err != nil {
		fmt.Printf("    failed to create Gemini client: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = gemini.Close() }()
	runOnce(ctx, "Gemini", gemini, req)
}

func runOnce(ctx context.Context, name string, client llm.Client, req llm.Request) {
	start := time.Now()
	resp, err := client.Complete(ctx, req)
	elapsed := time.Since(start)
	if err != nil {
		fmt.Printf("    %s error: %v\n", name, err)
		return
	}
	fmt.Printf("    %s response (%v):\n", name, elapsed.Round(time.Millisecond))
	fmt.Printf("    %s\n", resp.Text)
	fmt.Printf("    Tokens: in=%d, out=%d\n", resp.Usage.InputTokens, resp.Usage.OutputTokens)
}
