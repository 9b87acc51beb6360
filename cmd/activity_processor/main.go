package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/poketrade-exchange/internal/activity_processor/components"
	"github.com/poketrade-exchange/internal/activity_processor/consumer"
	"github.com/poketrade-exchange/internal/activity_processor/outbox_poller"
	"github.com/poketrade-exchange/internal/activity_processor/service"
	"github.com/poketrade-exchange/internal/clock"
	"github.com/poketrade-exchange/internal/config"
	"github.com/poketrade-exchange/internal/data/mongo"
	"github.com/poketrade-exchange/internal/data/postgres"
	"github.com/poketrade-exchange/internal/logger"
	"github.com/poketrade-exchange/internal/platform/messaging/consumers"
	"github.com/poketrade-exchange/internal/platform/messaging/producers"
	"github.com/poketrade-exchange/internal/platform/persistence"
)

func main() {
	appCtx, cancelAppCtx := context.WithCancel(context.Background())
	defer cancelAppCtx()

	cfg, err := config.LoadConfig("activity_processor")
	if err != nil {
		// logger is not initialized yet, so we use fmt
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.NewLogger(cfg)

	log.Info("Starting Activity Processor",
		"app_name", cfg.Application.Name,
		"env", cfg.Application.Env,
	)

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

	outboxRepo := postgres.NewOutboxRepository(log, postgresDB)
	activityRepo := mongo.NewActivityRepository(log, mongoDB.Database())
	if err := activityRepo.EnsureIndexes(appCtx); err != nil {
		log.Error("Failed to create activity indexes", "error", err)
		os.Exit(1)
	}

	eventProducer, err := producers.NewSettlementEventProducer(appCtx, log, &cfg.Kafka)
	if err != nil {
		log.Error("Failed to initialize settlement event producer", "error", err)
		os.Exit(1)
	}

	dlqProducer, err := producers.NewDLQProducer(appCtx, log, &cfg.Kafka)
	if err != nil {
		log.Error("Failed to initialize DLQ Kafka producer", "error", err)
		os.Exit(1)
	}
	var deadLetters producers.DeadLetterPublisher
	if dlqProducer != nil {
		deadLetters = dlqProducer
	}

	kafkaConsumer := consumers.NewKafkaConsumer(appCtx, log, &cfg.Kafka)

	recordingService := components.CreateRecordingService(activityRepo, clock.NewSystem(), log, cfg)
	eventHandler := consumer.NewSettlementEventHandler(log, recordingService, deadLetters)

	relay := outbox_poller.NewKafkaRelay(outboxRepo, eventProducer, log)
	poller := outbox_poller.NewPoller(&cfg.Outbox, outboxRepo, relay, log)

	errChan := make(chan error, 1)
	var wg sync.WaitGroup

	if err := kafkaConsumer.Subscribe(appCtx, cfg.Kafka.SettlementTopic, cfg.Kafka.ConsumerGroup, eventHandler.HandleMessage); err != nil {
		errChan <- fmt.Errorf("kafka consumer error: %w", err)
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		poller.Start(appCtx)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	var serviceErr error
	select {
	case <-quit:
		log.Info("Shutdown signal received")
	case err := <-errChan:
		log.Error("Service error occurred", "error", err)
		serviceErr = err
	}

	cancelAppCtx()

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancelShutdown()

	log.Info("Starting graceful shutdown...")

	stopped := make(chan struct{})
	go func() {
		wg.Wait()
		<-kafkaConsumer.Done()
		close(stopped)
	}()

	select {
	case <-stopped:
		log.Info("Poller and consumer stopped")
	case <-shutdownCtx.Done():
		log.Warn("Shutdown timeout reached, forcing exit")
	}

	if wpService, ok := recordingService.(*service.WorkerPoolRecordingService); ok {
		wpService.Shutdown()
	}

	var shutdownErr error
	if err := kafkaConsumer.Close(); err != nil {
		log.Error("Error closing Kafka consumer", "error", err)
		shutdownErr = err
	}

	if err := eventProducer.Close(); err != nil {
		log.Error("Error closing settlement event producer", "error", err)
		shutdownErr = err
	}

	if err := dlqProducer.Close(); err != nil {
		log.Error("Error closing DLQ Kafka producer", "error", err)
		shutdownErr = err
	}

	postgresDB.Close()

	if err := mongoDB.Close(shutdownCtx); err != nil {
		log.Error("Error closing MongoDB connection", "error", err)
		shutdownErr = err
	}

	if serviceErr != nil {
		log.Error("Activity Processor shutdown with errors", "error", serviceErr)
	}
	if shutdownErr != nil {
		log.Error("Activity Processor shutdown completed with errors")
	} else {
		log.Info("Activity Processor shutdown completed successfully")
	}
}
