package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"willow-auction-engine/internal/adapters/api"
	"willow-auction-engine/internal/adapters/db"
	"willow-auction-engine/internal/adapters/notifier"
	"willow-auction-engine/internal/adapters/redis"
	"willow-auction-engine/internal/adapters/ws"
	"willow-auction-engine/internal/app"
	"willow-auction-engine/internal/config"
)

func main() {

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	initLogging(cfg)

	log.Info().Msg("Starting Willow Lead Auction Engine...")

	// Create context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize database connection
	dbConn, err := db.NewConnection(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer dbConn.Close()

	log.Info().Msg("Database connection established")

	// Create repositories
	repoFactory := db.NewRepositoryFactory(dbConn)
	leadRepo := repoFactory.GetLeadRepository()
	bidRepo := repoFactory.GetBidRepository()

	log.Info().Msg("Database repositories initialized")

	// Create Redis client
	redisClient := redis.NewClient(cfg)
	if err := redis.PingRedis(redisClient); err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	log.Info().Msg("Redis connection established")

	// Create Redis notifier
	redisNotifier := notifier.NewRedisNotifier(notifier.RedisNotifierParams{
		RedisClient: redisClient,
		Logger:      log.Logger,
	})
	log.Info().Msg("Redis notifier initialized")

	// Create engine services
	policy := cfg.Policy()

	finalizer := app.NewFinalizer(app.FinalizerParams{
		LeadRepo: leadRepo,
		BidRepo:  bidRepo,
		Notifier: redisNotifier,
		Logger:   log.Logger,
	})
	bidService := app.NewBidService(app.BidServiceParams{
		LeadRepo:  leadRepo,
		BidRepo:   bidRepo,
		Finalizer: finalizer,
		Policy:    policy,
		Logger:    log.Logger,
	})
	intakeService := app.NewIntakeService(app.IntakeServiceParams{
		LeadRepo: leadRepo,
		Notifier: redisNotifier,
		Policy:   policy,
		Logger:   log.Logger,
	})
	log.Info().Msg("Engine services initialized")

	apiHandler := api.NewHandler(api.HandlerParams{
		Intake: intakeService,
		Engine: finalizer,
		Bids:   bidService,
		Logger: log.Logger,
	})

	feedServer := ws.NewServer(ws.ServerParams{
		Config:     cfg,
		Subscriber: redisNotifier,
		API:        apiHandler,
		Logger:     log.Logger,
	})

	log.Info().Msg("Agent feed server initialized")

	// Start feed server
	go func() {
		if err := feedServer.Start(); err != nil {
			log.Error().Err(err).Msg("Failed to start agent feed server")
			cancel()
		}
	}()

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		log.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
	case <-ctx.Done():
		log.Info().Msg("Context cancelled")
	}

	// Graceful shutdown
	log.Info().Msg("Starting graceful shutdown...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := feedServer.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error stopping agent feed server")
	}

	if err := redisNotifier.Close(); err != nil {
		log.Error().Err(err).Msg("Error closing Redis notifier")
	}

	log.Info().Msg("Graceful shutdown completed")
}

func initLogging(cfg *config.Config) {
	// Set log level
	level, err := zerolog.ParseLevel(cfg.Logging.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	// Set log format
	if cfg.Logging.Format == "json" {
		log.Logger = zerolog.New(os.Stdout).With().Timestamp().Logger()
	} else {
		output := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
		log.Logger = zerolog.New(output).With().Timestamp().Logger()
	}

	zerolog.DefaultContextLogger = &log.Logger
}
