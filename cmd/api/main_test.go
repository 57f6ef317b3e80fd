package main

import (
	"context"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"

	appconfig "github.com/premierdental/nova-voice-ai/internal/config"
	"github.com/premierdental/nova-voice-ai/internal/notify"
	"github.com/premierdental/nova-voice-ai/pkg/logging"
)

func TestBuildRedisClientDisabled(t *testing.T) {
	logger := logging.New("error")

	if client := buildRedisClient(context.Background(), &appconfig.Config{RedisAddr: ""}, logger); client != nil {
		t.Fatalf("expected nil client for empty addr")
	}
	if client := buildRedisClient(context.Background(), &appconfig.Config{RedisAddr: "localhost:6379", UseMemoryStore: true}, logger); client != nil {
		t.Fatalf("expected nil client when memory store is forced")
	}
}

func TestBuildEmailSenderSendGrid(t *testing.T) {
	logger := logging.New("error")
	cfg := &appconfig.Config{
		EmailProvider:     "sendgrid",
		SendGridAPIKey:    "SG.test",
		SendGridFromEmail: "nova@example.com",
	}

	sender := buildEmailSender(cfg, aws.Config{}, logger)
	if _, ok := sender.(*notify.SendGridSender); !ok {
		t.Fatalf("sender = %T, want *notify.SendGridSender", sender)
	}
}

func TestBuildEmailSenderUnconfigured(t *testing.T) {
	logger := logging.New("error")

	if sender := buildEmailSender(&appconfig.Config{EmailProvider: "ses", Env: "production"}, aws.Config{}, logger); sender != nil {
		t.Fatalf("sender = %T, want nil without a from address", sender)
	}

	sender := buildEmailSender(&appconfig.Config{EmailProvider: "ses", Env: "development"}, aws.Config{}, logger)
	if _, ok := sender.(*notify.StubEmailSender); !ok {
		t.Fatalf("sender = %T, want *notify.StubEmailSender in development", sender)
	}
}
