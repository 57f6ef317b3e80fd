package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/premierdental/nova-voice-ai/cmd/mainconfig"
	appconfig "github.com/premierdental/nova-voice-ai/internal/config"
	"github.com/premierdental/nova-voice-ai/internal/dnc"
	"github.com/premierdental/nova-voice-ai/internal/leads"
	"github.com/premierdental/nova-voice-ai/internal/telephony"
	"github.com/premierdental/nova-voice-ai/internal/worker"
	"github.com/premierdental/nova-voice-ai/pkg/logging"
)

// Standalone dial worker. Runs the same queue consumer as the API
// binary for deployments that scale dialing separately.
func main() {
	_ = godotenv.Load()

	cfg := appconfig.Load()
	logger := logging.New(cfg.LogLevel)

	if cfg.DialQueueURL == "" {
		logger.Error("DIAL_QUEUE_URL is required")
		os.Exit(1)
	}
	if cfg.DatabaseURL == "" {
		logger.Error("DATABASE_URL is required")
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	awsCfg, err := mainconfig.LoadAWSConfig(ctx, cfg)
	if err != nil {
		logger.Error("failed to load AWS config", "error", err)
		os.Exit(1)
	}

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Error("redis not available", "error", err)
		os.Exit(1)
	}

	voiceClient := telephony.NewClient(
		cfg.VoiceBaseURL,
		cfg.VoiceAccountSID,
		cfg.VoiceAuthToken,
		cfg.VoiceFromNumber,
		cfg.PublicBaseURL,
		logger,
	)

	queue := worker.NewSQSQueue(sqs.NewFromConfig(awsCfg), cfg.DialQueueURL)
	dialer := worker.NewDialer(
		queue,
		voiceClient,
		dnc.NewRedisRegistry(redisClient),
		leads.NewPostgresRepository(pool),
		logger,
		worker.WithWorkerCount(cfg.WorkerCount),
	)
	dialer.Start(ctx)
	logger.Info("dial worker started", "workers", cfg.WorkerCount)

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Info("shutting down dial worker...")
	cancel()

	doneCtx, doneCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer doneCancel()

	waitCh := make(chan struct{})
	go func() {
		dialer.Wait()
		close(waitCh)
	}()

	select {
	case <-waitCh:
		logger.Info("dial worker stopped")
	case <-doneCtx.Done():
		logger.Error("dial worker shutdown timed out", "error", doneCtx.Err())
	}
}
