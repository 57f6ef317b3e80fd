package llm

import (
	"context"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	brtypes "github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
)

type fakeConverseAPI struct {
	lastInput *bedrockruntime.ConverseInput
	output    *bedrockruntime.ConverseOutput
	err       error
}

func (f *fakeConverseAPI) Converse(_ context.Context, params *bedrockruntime.ConverseInput, _ ...func(*bedrockruntime.Options)) (*bedrockruntime.ConverseOutput, error) {
	f.lastInput = params
	return f.output, f.err
}

func textOutput(text string) *bedrockruntime.ConverseOutput {
	return &bedrockruntime.ConverseOutput{
		Output: &brtypes.ConverseOutputMemberMessage{
			Value: brtypes.Message{
				Role: brtypes.ConversationRoleAssistant,
				Content: []brtypes.ContentBlock{
					&brtypes.ContentBlockMemberText{Value: text},
				},
			},
		},
		StopReason: brtypes.StopReasonEndTurn,
		Usage: &brtypes.TokenUsage{
			InputTokens:  aws.Int32(10),
			OutputTokens: aws.Int32(5),
			TotalTokens:  aws.Int32(15),
		},
	}
}

func TestBedrockCompleteMapsRolesAndSystem(t *testing.T) {
	api := &fakeConverseAPI{output: textOutput("  answer  ")}
	client := NewBedrockClient(api)

	resp, err := client.Complete(context.Background(), Request{
		Model:  "model-id",
		System: []string{"be helpful"},
		Messages: []ChatMessage{
			{Role: ChatRoleSystem, Content: "extra system"},
			{Role: ChatRoleUser, Content: "hi"},
			{Role: ChatRoleAssistant, Content: "hello"},
			{Role: ChatRoleUser, Content: "  "},
		},
	})
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if resp.Text != "answer" {
		t.Errorf("Text = %q, want trimmed %q", resp.Text, "answer")
	}
	if resp.Usage.TotalTokens != 15 {
		t.Errorf("TotalTokens = %d, want 15", resp.Usage.TotalTokens)
	}

	if got := len(api.lastInput.System); got != 2 {
		t.Fatalf("system blocks = %d, want 2", got)
	}
	// The blank user message is dropped.
	if got := len(api.lastInput.Messages); got != 2 {
		t.Fatalf("messages = %d, want 2", got)
	}
	if api.lastInput.Messages[0].Role != brtypes.ConversationRoleUser {
		t.Errorf("first role = %s, want user", api.lastInput.Messages[0].Role)
	}
	if api.lastInput.Messages[1].Role != brtypes.ConversationRoleAssistant {
		t.Errorf("second role = %s, want assistant", api.lastInput.Messages[1].Role)
	}
}

func TestBedrockCompleteRequiresModel(t *testing.T) {
	client := NewBedrockClient(&fakeConverseAPI{})
	if _, err := client.Complete(context.Background(), Request{}); err == nil {
		t.Fatal("Complete() with empty model should error")
	}
}

func TestBedrockCompleteRejectsUnknownRole(t *testing.T) {
	client := NewBedrockClient(&fakeConverseAPI{output: textOutput("x")})
	_, err := client.Complete(context.Background(), Request{
		Model:    "model-id",
		Messages: []ChatMessage{{Role: "tool", Content: "payload"}},
	})
	if err == nil {
		t.Fatal("Complete() with unknown role should error")
	}
}

func TestBedrockCompleteEmptyOutput(t *testing.T) {
	api := &fakeConverseAPI{output: &bedrockruntime.ConverseOutput{}}
	client := NewBedrockClient(api)
	_, err := client.Complete(context.Background(), Request{
		Model:    "model-id",
		Messages: []ChatMessage{{Role: ChatRoleUser, Content: "hi"}},
	})
	if err == nil {
		t.Fatal("Complete() with no message output should error")
	}
}
