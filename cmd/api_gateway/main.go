package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/poketrade-exchange/internal/api_gateway"
	"github.com/poketrade-exchange/internal/api_gateway/service"
	"github.com/poketrade-exchange/internal/clock"
	"github.com/poketrade-exchange/internal/config"
	"github.com/poketrade-exchange/internal/data/mongo"
	"github.com/poketrade-exchange/internal/data/postgres"
	"github.com/poketrade-exchange/internal/data/redis"
	"github.com/poketrade-exchange/internal/logger"
	"github.com/poketrade-exchange/internal/platform/catalog"
	"github.com/poketrade-exchange/internal/platform/persistence"
	"github.com/poketrade-exchange/internal/settlement"
)

func main() {
	appCtx, cancelAppCtx := context.WithCancel(context.Background())
	defer cancelAppCtx()

	cfg, err := config.LoadConfig("api_gateway")
	if err != nil {
		// logger is not initialized yet, so we use fmt
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.NewLogger(cfg)

	// The gateway owns the schema; the activity processor only connects
	if cfg.Postgres.MigrationsPath != "" {
		if _, err := persistence.RunMigrations(log, cfg.Postgres.URL, cfg.Postgres.MigrationsPath); err != nil {
			log.Error("Failed to apply database migrations", "error", err)
			os.Exit(1)
		}
	}

	postgresDB, err := persistence.NewPostgresDB(appCtx, log, &cfg.Postgres)
	if err != nil {
		log.Error("Failed to initialize PostgreSQL", "error", err)
		os.Exit(1)
	}

	mongoDB, err := persistence.NewMongoDB(appCtx, log, &cfg.MongoDB)
	if err != nil {
		log.Error("Failed to initialize MongoDB", "error", err)
		os.Exit(1)
	}

	redisDB, err := persistence.NewRedisDB(appCtx, log, &cfg.Redis)
	if err != nil {
		log.Error("Failed to initialize Redis", "error", err)
		os.Exit(1)
	}

	// Repositories
	repos := settlement.Repositories{
		Cards:     postgres.NewCardRepository(log, postgresDB),
		Inventory: postgres.NewInventoryRepository(log, postgresDB),
		Listings:  postgres.NewListingRepository(log, postgresDB),
		Purchases: postgres.NewPurchaseRepository(log, postgresDB),
		Trades:    postgres.NewTradeRepository(log, postgresDB),
		Outbox:    postgres.NewOutboxRepository(log, postgresDB),
	}
	activityRepo := mongo.NewActivityRepository(log, mongoDB.Database())
	keyStore := redis.NewKeyStore(log, redisDB.Client())
	catalogClient := catalog.NewClient(log, &cfg.Catalog)
	clk := clock.NewSystem()

	// Settlement services
	ledger := settlement.NewLedger(postgresDB, repos.Inventory, clk, log)
	guard := settlement.NewIdempotencyGuard(keyStore, cfg.Redis.IdempotencyTTL, log)
	hold := cfg.Market.ReservationHold

	services := api_gateway.Services{
		Listings:   settlement.NewListingService(postgresDB, repos, clk, hold, log),
		Purchases:  settlement.NewPurchaseService(postgresDB, repos, ledger, guard, clk, log),
		Trades:     settlement.NewTradeService(postgresDB, repos, ledger, guard, clk, hold, log),
		Rewards:    settlement.NewRewardService(postgresDB, repos, ledger, catalogClient, keyStore, clk, log),
		Collection: service.NewCollectionService(log, repos.Cards, repos.Inventory, repos.Purchases, activityRepo),
	}

	server := api_gateway.NewServer(log, cfg, services)
	log.Info("REST server initialized", "reservation_hold", hold)

	errChan := make(chan error, 1)

	go func() {
		if err := server.Start(); err != nil {
			errChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	var serverErr error
	select {
	case <-quit:
		log.Info("Shutdown signal received")
	case err := <-errChan:
		log.Error("Server error occurred", "error", err)
		serverErr = err
	}

	cancelAppCtx()

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancelShutdown()

	log.Info("Starting graceful shutdown...")

	// Stop accepting requests before closing the stores they use
	var shutdownErr error
	if err := server.Stop(shutdownCtx); err != nil {
		log.Error("Error during server shutdown", "error", err)
		shutdownErr = err
	}

	postgresDB.Close()

	if err := redisDB.Close(); err != nil {
		log.Error("Error closing Redis connection", "error", err)
		shutdownErr = err
	}

	if err := mongoDB.Close(shutdownCtx); err != nil {
		log.Error("Error closing MongoDB connection", "error", err)
		shutdownErr = err
	}

	if serverErr != nil {
		log.Error("HTTP server shutdown with errors", "error", serverErr)
	}
	if shutdownErr != nil {
		log.Error("Server shutdown completed with errors")
	} else {
		log.Info("Server shutdown completed successfully")
	}
}
