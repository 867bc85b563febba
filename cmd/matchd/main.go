package main

import (
	"context"
	"fmt"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/campflow/matching-engine/internal/config"
	"github.com/campflow/matching-engine/internal/database"
	"github.com/campflow/matching-engine/internal/events"
	"github.com/campflow/matching-engine/internal/lock"
	"github.com/campflow/matching-engine/internal/logger"
	"github.com/campflow/matching-engine/internal/repository"
	"github.com/campflow/matching-engine/internal/service"
	"github.com/campflow/matching-engine/internal/telemetry"
	"github.com/campflow/matching-engine/internal/worker"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize logger
	logCfg := &logger.Config{
		Level:       cfg.Log.Level,
		ServiceName: "matchd",
		Development: cfg.IsDevelopment(),
	}
	if _, err := logger.Init(logCfg); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	appLog := logger.Get()
	appLog.Info("Starting matching worker...")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize tracing
	telemetryCfg := &telemetry.Config{
		Enabled:        cfg.OTel.Enabled,
		ServiceName:    cfg.OTel.ServiceName,
		ServiceVersion: cfg.App.Version,
		Environment:    cfg.App.Environment,
		CollectorAddr:  cfg.OTel.CollectorAddr,
		SampleRatio:    cfg.OTel.SampleRatio,
	}
	if _, err := telemetry.Init(ctx, telemetryCfg); err != nil {
		appLog.Fatal(fmt.Sprintf("Failed to initialize telemetry: %v", err))
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = telemetry.Shutdown(shutdownCtx)
	}()

	// Initialize database connection
	dbCfg := &database.PostgresConfig{
		Host:          cfg.Database.Host,
		Port:          cfg.Database.Port,
		User:          cfg.Database.User,
		Password:      cfg.Database.Password,
		Database:      cfg.Database.DBName,
		SSLMode:       cfg.Database.SSLMode,
		MaxConns:      cfg.Database.MaxConns,
		MinConns:      cfg.Database.MinConns,
		MaxRetries:    3,
		RetryInterval: 2 * time.Second,
		EnableTracing: cfg.OTel.Enabled,
	}
	pool, err := database.NewPostgresPool(ctx, dbCfg)
	if err != nil {
		appLog.Fatal(fmt.Sprintf("Failed to connect to database: %v", err))
	}
	defer pool.Close()
	appLog.Info("Database connected")

	// Initialize Redis connection
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr(),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		appLog.Fatal(fmt.Sprintf("Failed to connect to Redis: %v", err))
	}
	defer redisClient.Close()
	appLog.Info("Redis connected")

	// Initialize Kafka publisher
	publisher, err := events.NewKafkaPublisher(ctx, &events.KafkaPublisherConfig{
		Brokers:  cfg.Kafka.Brokers,
		ClientID: cfg.Kafka.ClientID,
		Topic:    cfg.Kafka.Topic,
	})
	if err != nil {
		appLog.Fatal(fmt.Sprintf("Failed to create Kafka publisher: %v", err))
	}
	defer publisher.Close()
	appLog.Info("Kafka publisher connected")

	// Wire the matcher
	repo := repository.NewPostgresBookingRepository(pool)
	locks := lock.NewRedisPeriodLock(redisClient,
		time.Duration(cfg.Matching.LockTTLSeconds)*time.Second)
	matcher := service.NewMatcherService(repo, publisher, locks)

	// Create and start the command worker
	matchWorker, err := worker.NewMatchWorker(ctx, &worker.MatchWorkerConfig{
		Brokers:        cfg.Kafka.Brokers,
		GroupID:        "matchd",
		ClientID:       cfg.Kafka.ClientID,
		ValidityCheck:  cfg.Matching.ValidityCheck,
		StabilityCheck: cfg.Matching.StabilityCheck,
		HardBudget:     cfg.Matching.HardBudget,
	}, matcher)
	if err != nil {
		appLog.Fatal(fmt.Sprintf("Failed to create match worker: %v", err))
	}
	defer matchWorker.Close()

	if err := matchWorker.Start(ctx); err != nil && ctx.Err() == nil {
		appLog.Fatal(fmt.Sprintf("Match worker failed: %v", err))
	}

	appLog.Info("Shutting down")
}
