package main

import (
	"context"
	"crypto/tls"
	"database/sql"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/fieldline/voice-agent-platform/cmd/mainconfig"
	"github.com/fieldline/voice-agent-platform/internal/api/handlers"
	"github.com/fieldline/voice-agent-platform/internal/api/router"
	"github.com/fieldline/voice-agent-platform/internal/calls"
	"github.com/fieldline/voice-agent-platform/internal/company"
	appconfig "github.com/fieldline/voice-agent-platform/internal/config"
	"github.com/fieldline/voice-agent-platform/internal/engine"
	"github.com/fieldline/voice-agent-platform/internal/livefeed"
	"github.com/fieldline/voice-agent-platform/internal/llm"
	"github.com/fieldline/voice-agent-platform/internal/notify"
	"github.com/fieldline/voice-agent-platform/internal/observability/metrics"
	"github.com/fieldline/voice-agent-platform/internal/transcript"
	"github.com/fieldline/voice-agent-platform/pkg/logging"
)

func main() {
	cfg := appconfig.Load()
	logger := logging.New(cfg.LogLevel)
	logger.Info("starting voice-agent-platform API server",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	ctx := context.Background()

	awsCfg, err := mainconfig.LoadAWSConfig(ctx, cfg)
	if err != nil {
		logger.Error("failed to load AWS config", "error", err)
		os.Exit(1)
	}

	redisOpts := &redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword}
	if cfg.RedisTLS {
		redisOpts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	redisClient := redis.NewClient(redisOpts)
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Error("failed to connect to redis", "error", err, "addr", cfg.RedisAddr)
		os.Exit(1)
	}

	// Company config: Postgres is the source of truth, Redis the read-through
	// cache. Without a database the store serves the development default.
	var (
		companyDB   *sql.DB
		companyRepo *company.Repository
		source      company.Source
	)
	if cfg.DatabaseURL != "" {
		companyDB, err = sql.Open("postgres", cfg.DatabaseURL)
		if err != nil {
			logger.Error("failed to open database", "error", err)
			os.Exit(1)
		}
		defer func() { _ = companyDB.Close() }()
		companyRepo = company.NewRepository(companyDB)
		source = companyRepo
	}
	companyStore := company.NewStore(redisClient, source)

	// Generator backends. Bedrock is primary when configured; Gemini serves as
	// the fallback, or as the only backend in Gemini-only deployments.
	var (
		generator llm.Client
		modelID   string
	)
	if cfg.BedrockModelID != "" {
		generator = llm.NewBedrockClient(bedrockruntime.NewFromConfig(awsCfg))
		modelID = cfg.BedrockModelID
	}
	if cfg.GeminiAPIKey != "" {
		gemini, gemErr := llm.NewGeminiClient(ctx, cfg.GeminiAPIKey, cfg.GeminiModelID)
		if gemErr != nil {
			logger.Error("failed to init gemini client", "error", gemErr)
			os.Exit(1)
		}
		if generator == nil {
			generator = gemini
			modelID = cfg.GeminiModelID
		} else {
			generator = llm.NewFallbackClient(generator, gemini, logger)
		}
	}
	if generator == nil {
		logger.Error("no generator backend configured; set BEDROCK_MODEL_ID or GEMINI_API_KEY")
		os.Exit(1)
	}

	turnMetrics := metrics.NewTurnMetrics(prometheus.DefaultRegisterer)
	feed := livefeed.NewHub(logger)

	eng := engine.NewEngine(generator, modelID,
		engine.WithLogger(logger),
		engine.WithMetrics(turnMetrics),
		engine.WithTraceSink(feed),
		engine.WithGeneratorTimeout(cfg.GeneratorTimeout),
		engine.WithMaxReplyTokens(int32(cfg.MaxReplyTokens)),
		engine.WithTemperature(float32(cfg.Temperature)),
		engine.WithHistoryWindow(cfg.HistoryWindow),
	)

	states := calls.NewStateStore(redisClient, cfg.CallStateTTL)

	serviceOpts := []calls.ServiceOption{}

	var transcriptStore *transcript.Store
	if cfg.DatabaseURL != "" {
		pool, poolErr := pgxpool.New(ctx, cfg.DatabaseURL)
		if poolErr != nil {
			logger.Error("failed to create transcript pool", "error", poolErr)
			os.Exit(1)
		}
		defer pool.Close()
		transcriptStore = transcript.NewStore(pool, logger)
		archiver := transcript.NewArchiver(s3.NewFromConfig(awsCfg), cfg.TranscriptBucket, logger)
		serviceOpts = append(serviceOpts, calls.WithTranscriptRecorder(
			transcript.NewRecorder(transcriptStore, archiver, logger),
		))
	}

	if sender := buildEmailSender(cfg, awsCfg, logger); sender != nil {
		serviceOpts = append(serviceOpts, calls.WithNotifier(notify.NewService(sender, logger)))
	}

	service := calls.NewService(eng, companyStore, states, logger, serviceOpts...)

	// Turn dispatch: memory queue for development, SQS plus a DynamoDB job
	// ledger in production.
	var queueOpts []calls.DispatcherOption
	if cfg.WorkerCount > 0 {
		queueOpts = append(queueOpts, calls.WithWorkerCount(cfg.WorkerCount))
	}
	var jobs calls.JobRecorder
	if !cfg.UseMemoryQueue && cfg.TurnJobsTable != "" {
		jobStore := calls.NewJobStore(dynamodb.NewFromConfig(awsCfg), cfg.TurnJobsTable, logger)
		jobs = jobStore
		queueOpts = append(queueOpts, calls.WithJobRecorder(jobStore))
	}
	var dispatcher *calls.Dispatcher
	if cfg.UseMemoryQueue || cfg.TurnQueueURL == "" {
		dispatcher = calls.NewDispatcher(service, calls.NewMemoryQueue(64), logger, queueOpts...)
	} else {
		sqsQueue := calls.NewSQSQueue(sqs.NewFromConfig(awsCfg), cfg.TurnQueueURL)
		dispatcher = calls.NewDispatcher(service, sqsQueue, logger, queueOpts...)
	}

	callsHandler := calls.NewHandler(dispatcher, jobs, logger)
	adminHandler := handlers.NewAdminHandler(companyStore, companyRepo, transcriptStore, logger)

	r := router.New(&router.Config{
		Logger:          logger,
		CallsHandler:    callsHandler,
		AdminHandler:    adminHandler,
		LiveFeed:        feed,
		MetricsHandler:  promhttp.Handler(),
		AdminAuthSecret: cfg.AdminJWTSecret,
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

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}
	if err := dispatcher.Shutdown(shutdownCtx); err != nil {
		logger.Error("dispatcher forced to shutdown", "error", err)
	}

	logger.Info("server stopped")
}

func buildEmailSender(cfg *appconfig.Config, awsCfg aws.Config, logger *logging.Logger) notify.EmailSender {
	switch cfg.NotifyProvider {
	case "sendgrid":
		sender := notify.NewSendGridSender(notify.SendGridConfig{
			APIKey:    cfg.SendGridAPIKey,
			FromEmail: cfg.SendGridFromEmail,
			FromName:  cfg.SendGridFromName,
		}, logger)
		if sender == nil {
			return nil
		}
		return sender
	case "stub":
		return notify.NewStubEmailSender(logger)
	default:
		if cfg.SESFromEmail == "" {
			return nil
		}
		sender := notify.NewSESSender(sesv2.NewFromConfig(awsCfg), notify.SESConfig{
			FromEmail: cfg.SESFromEmail,
			FromName:  cfg.SESFromName,
		}, logger)
		if sender == nil {
			return nil
		}
		return sender
	}
}
