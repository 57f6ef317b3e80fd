package main

import (
	"context"
	"crypto/tls"
	"database/sql"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/premierdental/nova-voice-ai/cmd/mainconfig"
	"github.com/premierdental/nova-voice-ai/internal/api/router"
	"github.com/premierdental/nova-voice-ai/internal/calllog"
	appconfig "github.com/premierdental/nova-voice-ai/internal/config"
	"github.com/premierdental/nova-voice-ai/internal/crm"
	"github.com/premierdental/nova-voice-ai/internal/dnc"
	"github.com/premierdental/nova-voice-ai/internal/http/handlers"
	"github.com/premierdental/nova-voice-ai/internal/leads"
	"github.com/premierdental/nova-voice-ai/internal/llm"
	"github.com/premierdental/nova-voice-ai/internal/notify"
	"github.com/premierdental/nova-voice-ai/internal/observability/metrics"
	"github.com/premierdental/nova-voice-ai/internal/qualification"
	"github.com/premierdental/nova-voice-ai/internal/telephony"
	"github.com/premierdental/nova-voice-ai/internal/worker"
	"github.com/premierdental/nova-voice-ai/pkg/logging"
)

func main() {
	_ = godotenv.Load()

	cfg := appconfig.Load()
	logger := logging.New(cfg.LogLevel)
	logger.Info("starting nova-voice-ai API server",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Session state and do-not-call checks live in Redis; development
	// runs fall back to in-memory implementations.
	redisClient := buildRedisClient(ctx, cfg, logger)

	var sessionStore qualification.SessionStore
	var dncRegistry handlers.DNCChecker
	if redisClient != nil {
		sessionStore = qualification.NewRedisSessionStore(redisClient, cfg.SessionTTL)
		dncRegistry = dnc.NewRedisRegistry(redisClient)
	} else {
		logger.Warn("redis unavailable, using in-memory session store and DNC registry")
		sessionStore = qualification.NewMemorySessionStore(cfg.SessionIdleTTL)
		dncRegistry = dnc.NewMemoryRegistry()
	}

	// Lead storage and the call log need PostgreSQL. Without a database
	// URL the service keeps leads in memory and skips call records.
	var leadsRepo leads.Repository = leads.NewInMemoryRepository()
	var callStore *calllog.Store
	var sqlDB *sql.DB
	if cfg.DatabaseURL != "" {
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Error("failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer pool.Close()
		leadsRepo = leads.NewPostgresRepository(pool)

		sqlDB, err = sql.Open("postgres", cfg.DatabaseURL)
		if err != nil {
			logger.Error("failed to open call log database", "error", err)
			os.Exit(1)
		}
		defer func() { _ = sqlDB.Close() }()
		callStore = calllog.NewStore(sqlDB)
	} else {
		logger.Warn("DATABASE_URL not set, using in-memory lead storage")
	}

	awsCfg, err := mainconfig.LoadAWSConfig(ctx, cfg)
	if err != nil {
		logger.Error("failed to load AWS config", "error", err)
		os.Exit(1)
	}

	// Bedrock is the primary model provider, Gemini the fallback.
	var modelClient llm.Client = llm.NewBedrockClient(bedrockruntime.NewFromConfig(awsCfg))
	var geminiClient *llm.GeminiClient
	if cfg.GeminiAPIKey != "" {
		geminiClient, err = llm.NewGeminiClient(ctx, cfg.GeminiAPIKey, cfg.GeminiModelID)
		if err != nil {
			logger.Error("failed to create gemini client", "error", err)
			os.Exit(1)
		}
		defer func() { _ = geminiClient.Close() }()
	}
	var fallback llm.Client
	if geminiClient != nil {
		fallback = geminiClient
	}
	modelClient = llm.NewFallbackClient(modelClient, fallback, cfg.LLMMaxRetries, logger)

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	qualMetrics := metrics.NewQualificationMetrics(registry)
	webhookMetrics := metrics.NewWebhookMetrics(registry)

	engine := qualification.NewEngine(
		sessionStore,
		qualification.NewExtractor(modelClient, cfg.BedrockModelID, logger),
		qualification.NewResponder(modelClient, cfg.BedrockModelID, logger),
		modelClient,
		cfg.BedrockModelID,
		logger,
		qualMetrics,
	)

	crmClient := crm.NewClient(cfg.CRMBaseURL, cfg.CRMAPIKey, cfg.CRMCalendarID, logger)
	voiceClient := telephony.NewClient(
		cfg.VoiceBaseURL,
		cfg.VoiceAccountSID,
		cfg.VoiceAuthToken,
		cfg.VoiceFromNumber,
		cfg.PublicBaseURL,
		logger,
	)
	notifier := notify.NewService(buildEmailSender(cfg, awsCfg, logger), cfg.EscalationRecipients, logger)

	// Outbound dials flow through a queue so webhook handling stays fast
	// and dial attempts survive restarts when SQS backs the queue.
	var dialPublisher *worker.Publisher
	var dialer *worker.Dialer
	dialerOpts := []worker.DialerOption{worker.WithWorkerCount(cfg.WorkerCount)}
	if cfg.UseMemoryQueue || cfg.DialQueueURL == "" {
		logger.Warn("using in-memory dial queue")
		queue := worker.NewMemoryQueue(0)
		dialPublisher = worker.NewPublisher(queue, logger)
		dialer = worker.NewDialer(queue, voiceClient, dncRegistry, leadsRepo, logger, dialerOpts...)
	} else {
		queue := worker.NewSQSQueue(sqs.NewFromConfig(awsCfg), cfg.DialQueueURL)
		dialPublisher = worker.NewPublisher(queue, logger)
		dialer = worker.NewDialer(queue, voiceClient, dncRegistry, leadsRepo, logger, dialerOpts...)
	}
	dialer.Start(ctx)

	leadWebhook := handlers.NewLeadWebhookHandler(
		cfg.CRMWebhookSecret,
		leadsRepo,
		dncRegistry,
		dialPublisher,
		webhookMetrics,
		logger,
	)
	voiceHandler := handlers.NewVoiceHandler(
		engine,
		leadsRepo,
		callStore,
		crmClient,
		notifier,
		cfg.TransferNumber,
		logger,
	)

	r := router.New(&router.Config{
		Logger:           logger,
		LeadWebhook:      leadWebhook,
		VoiceHandler:     voiceHandler,
		LeadsHandler:     leads.NewHandler(leadsRepo, logger),
		MetricsHandler:   promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		WebhookRateLimit: cfg.WebhookRateLimit,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
	}

	// Stop the dial workers and wait for in-flight dials to settle.
	cancel()
	waitCh := make(chan struct{})
	go func() {
		dialer.Wait()
		close(waitCh)
	}()
	select {
	case <-waitCh:
		logger.Info("dial workers stopped")
	case <-shutdownCtx.Done():
		logger.Error("dial worker shutdown timed out", "error", shutdownCtx.Err())
	}

	logger.Info("server stopped")
}

// buildRedisClient returns a verified Redis client or nil when Redis is
// disabled or unreachable.
func buildRedisClient(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) *redis.Client {
	if cfg.UseMemoryStore || strings.TrimSpace(cfg.RedisAddr) == "" {
		return nil
	}

	options := &redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	}
	if cfg.RedisTLS {
		options.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	client := redis.NewClient(options)
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn("redis not available", "error", err)
		return nil
	}
	return client
}

// buildEmailSender picks the configured email provider. A nil sender
// disables notifications.
func buildEmailSender(cfg *appconfig.Config, awsCfg aws.Config, logger *logging.Logger) notify.EmailSender {
	switch cfg.EmailProvider {
	case "sendgrid":
		if sender := notify.NewSendGridSender(notify.SendGridConfig{
			APIKey:    cfg.SendGridAPIKey,
			FromEmail: cfg.SendGridFromEmail,
			FromName:  cfg.SendGridFromName,
		}, logger); sender != nil {
			return sender
		}
	case "ses":
		if cfg.SESFromEmail != "" {
			return notify.NewSESSender(sesv2.NewFromConfig(awsCfg), notify.SESConfig{
				FromEmail: cfg.SESFromEmail,
				FromName:  cfg.SESFromName,
			}, logger)
		}
	}
	if cfg.Env == "development" {
		return notify.NewStubEmailSender(logger)
	}
	return nil
}
