package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/Pesokrava/invoicing/internal/config"
	"github.com/Pesokrava/invoicing/internal/delivery/events"
	"github.com/Pesokrava/invoicing/internal/pkg/database"
	"github.com/Pesokrava/invoicing/internal/pkg/logger"
	"github.com/Pesokrava/invoicing/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	appLogger := logger.NewWithLevel(cfg.Env, cfg.LogLevel).Component("reorder-worker")
	appLogger.Info("Starting reorder worker...")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Alerts live next to the products table, so this worker always needs PostgreSQL
	appLogger.Info("Connecting to PostgreSQL...")
	db, err := database.WaitForDB(ctx, cfg, 10, 2*time.Second)
	if err != nil {
		appLogger.Fatal("Failed to connect to database", err)
	}
	defer db.Close()

	if err := database.RunMigrations(db, cfg.Database.MigrationsDir); err != nil {
		appLogger.Fatal("Failed to run migrations", err)
	}

	monitor := worker.NewReorderMonitor(db, appLogger)
	if alerts, err := monitor.OpenAlerts(ctx); err == nil {
		appLogger.Infof("%d reorder alerts open at startup", len(alerts))
	} else {
		appLogger.Error("Failed to list open reorder alerts", err)
	}

	reorderWorker := worker.NewReorderWorker(monitor, cfg.Worker.DebounceWindow, appLogger)

	appLogger.Info("Connecting to NATS JetStream...")
	nc, err := nats.Connect(cfg.NATS.URL, nats.Name("invoicing-reorder-worker"))
	if err != nil {
		appLogger.Fatal("Failed to connect to NATS", err)
	}
	defer nc.Close()

	js, err := nc.JetStream()
	if err != nil {
		appLogger.Fatal("Failed to create JetStream context", err)
	}

	provisioner := events.NewProvisioner(js, appLogger.Component("events"))
	if err := provisioner.EnsureStream(); err != nil {
		appLogger.Fatal("Failed to ensure stream", err)
	}
	if err := provisioner.EnsureConsumer(); err != nil {
		appLogger.Fatal("Failed to ensure consumer", err)
	}

	sub, err := js.PullSubscribe(events.StreamSubjects, events.ConsumerName, nats.ManualAck())
	if err != nil {
		appLogger.Fatal("Failed to subscribe to JetStream consumer", err)
	}
	defer func() {
		if err := sub.Unsubscribe(); err != nil {
			appLogger.Error("Failed to unsubscribe from JetStream", err)
		}
	}()

	appLogger.WithFields(map[string]any{
		"stream":   events.StreamName,
		"consumer": events.ConsumerName,
	}).Info("Subscribed to JetStream consumer")

	done := make(chan struct{})
	go func() {
		defer close(done)
		worker.Consume(ctx, sub, reorderWorker.HandleEvent, appLogger)
	}()

	<-ctx.Done()
	appLogger.Info("Received shutdown signal")
	<-done

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := reorderWorker.Shutdown(shutdownCtx); err != nil {
		appLogger.Error("Error during shutdown", err)
	}

	appLogger.Info("Reorder worker stopped")
}
