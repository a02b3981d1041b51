package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/daily-meme-quiz/internal/catalog"
	"github.com/daily-meme-quiz/internal/config"
	"github.com/daily-meme-quiz/internal/domain"
	"github.com/daily-meme-quiz/internal/handler"
	"github.com/daily-meme-quiz/internal/kafka"
	"github.com/daily-meme-quiz/internal/postgres"
	"github.com/daily-meme-quiz/internal/redis"
	"github.com/daily-meme-quiz/internal/service"
	"github.com/daily-meme-quiz/internal/store"
	"github.com/daily-meme-quiz/internal/websocket"
	"github.com/daily-meme-quiz/internal/worker"
)

func main() {
	// Parse command line flags
	configPath := flag.String("config", "config.yaml", "Path to configuration file")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	loadErr := err
	if err != nil {
		cfg = config.DefaultConfig()
	}

	// Setup structured logging
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: parseLevel(cfg.App.LogLevel),
	}))
	slog.SetDefault(logger)

	if loadErr != nil {
		logger.Warn("failed to load config file, using defaults", "error", loadErr)
	}

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Choose the store backend once
	var kv store.Store
	switch cfg.Store.Backend {
	case config.BackendRedis:
		logger.Info("connecting to Redis", "addr", cfg.Redis.Addr)
		redisStore, err := redis.NewStore(&cfg.Redis, logger)
		if err != nil {
			logger.Error("failed to connect to Redis", "error", err)
			os.Exit(1)
		}
		logger.Info("connected to Redis")
		kv = redisStore
	default:
		logger.Info("using in-process store")
		kv = store.NewMemoryStore()
	}
	defer kv.Close()

	// Load the content catalog
	units := catalog.Builtin(cfg.Puzzle.AssetBaseURL)
	if cfg.Puzzle.CatalogPath != "" {
		units, err = catalog.Load(cfg.Puzzle.CatalogPath, cfg.Puzzle.AssetBaseURL)
		if err != nil {
			logger.Error("failed to load catalog", "path", cfg.Puzzle.CatalogPath, "error", err)
			os.Exit(1)
		}
	}
	usable := len(catalog.Usable(units))
	logger.Info("catalog loaded", "units", len(units), "usable", usable)
	if usable < cfg.Puzzle.QuestionsPerRun {
		logger.Error("catalog too small for a daily puzzle",
			"usable", usable,
			"questions_per_run", cfg.Puzzle.QuestionsPerRun,
		)
		os.Exit(1)
	}

	// Initialize WebSocket hub
	wsHub := websocket.NewHub(logger)
	go wsHub.Run()
	logger.Info("WebSocket hub initialized")

	// Initialize services
	dailyService := service.NewDailyService(kv, units, &cfg.Puzzle, logger)
	sessionService := service.NewSessionService(kv, &cfg.Puzzle, logger)
	leaderboardService := service.NewLeaderboardService(kv, &cfg.Leaderboard, cfg.Puzzle.LockTTL, logger)
	roundService := service.NewRoundService(kv, dailyService, sessionService, leaderboardService, &cfg.Puzzle, logger)
	roundService.SetBroadcaster(wsHub)

	httpHandler := handler.NewHandler(dailyService, roundService, leaderboardService, kv, wsHub, cfg.App, logger)

	// Initialize the optional archive
	var postgresRepo *postgres.Repository
	var syncWorker *worker.SyncWorker
	if cfg.Postgres.Enabled {
		logger.Info("connecting to PostgreSQL", "host", cfg.Postgres.Host, "database", cfg.Postgres.Database)
		postgresRepo, err = postgres.NewRepository(&cfg.Postgres, logger)
		if err != nil {
			logger.Error("failed to connect to PostgreSQL", "error", err)
			os.Exit(1)
		}
		defer postgresRepo.Close()
		logger.Info("connected to PostgreSQL")

		if err := postgresRepo.RunMigrations(ctx); err != nil {
			logger.Error("failed to run migrations", "error", err)
			os.Exit(1)
		}

		dailyService.SetArchive(postgresRepo)
		roundService.SetRecorder(postgresRepo)
		httpHandler.SetHistory(postgresRepo)

		syncWorker = worker.NewSyncWorker(leaderboardService, postgresRepo, &cfg.Sync, logger)

		// Restore recent leaderboards into a fresh store
		logger.Info("restoring recent leaderboards from database")
		syncWorker.RestoreRecent(ctx)

		if cfg.Sync.Enabled {
			if err := syncWorker.Start(ctx); err != nil {
				logger.Error("failed to start sync worker", "error", err)
				os.Exit(1)
			}
		}
	}

	// Route completed runs through Kafka when enabled
	var kafkaProducer *kafka.Producer
	var kafkaConsumer *kafka.Consumer
	if cfg.Kafka.Enabled {
		logger.Info("initializing Kafka", "brokers", cfg.Kafka.Brokers, "topic", cfg.Kafka.Topic)
		kafkaProducer, err = kafka.NewProducer(&cfg.Kafka, logger)
		if err != nil {
			logger.Warn("failed to create Kafka producer, continuing without Kafka", "error", err)
		} else {
			roundService.SetRecorder(kafkaProducer)
		}

		if kafkaProducer != nil && postgresRepo != nil {
			kafkaConsumer, err = kafka.NewConsumer(&cfg.Kafka, postgresRepo, logger)
			if err != nil {
				logger.Warn("failed to create Kafka consumer, runs will not be archived", "error", err)
			} else if err := kafkaConsumer.Start(); err != nil {
				logger.Warn("failed to start Kafka consumer, runs will not be archived", "error", err)
				kafkaConsumer = nil
			} else {
				logger.Info("Kafka consumer started successfully")
			}
		}
	}

	// Create HTTP server
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      httpHandler.Router(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start server in goroutine
	go func() {
		logger.Info("starting HTTP server",
			"port", cfg.Server.Port,
			"environment", cfg.App.Environment,
			"store", cfg.Store.Backend,
			"today", domain.DateKey(time.Now()),
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("HTTP server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	// Create shutdown context with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	// Shutdown HTTP server first so no new runs complete
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("failed to shutdown server", "error", err)
	}

	wsHub.Stop()

	if kafkaConsumer != nil {
		if err := kafkaConsumer.Stop(); err != nil {
			logger.Error("failed to stop Kafka consumer", "error", err)
		}
	}
	if kafkaProducer != nil {
		if err := kafkaProducer.Close(); err != nil {
			logger.Error("failed to close Kafka producer", "error", err)
		}
	}

	if syncWorker != nil {
		if err := syncWorker.Stop(); err != nil {
			logger.Error("failed to stop sync worker", "error", err)
		}
		// Final snapshot so a memory-backed restart can restore it
		syncWorker.RunOnce(shutdownCtx)
	}

	logger.Info("server stopped")
}

// parseLevel maps a config log level onto slog, defaulting to info
func parseLevel(level string) slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(level)); err != nil {
		return slog.LevelInfo
	}
	return l
}
