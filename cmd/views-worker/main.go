package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Vignesh-ops/vingesh-biotree-sub000/internal/config"
	"github.com/Vignesh-ops/vingesh-biotree-sub000/internal/events"
	"github.com/Vignesh-ops/vingesh-biotree-sub000/internal/logger"
	"github.com/Vignesh-ops/vingesh-biotree-sub000/internal/storage/mongo"
)

// views-worker drains profile.viewed events into the Mongo view counters.
// It only makes sense with the Mongo driver; the memory store is private to
// the API process.
func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "", "path to config file")
	flag.Parse()

	cfg := config.MustLoad(configPath)

	mode := "development"
	if cfg.IsProd() {
		mode = "production"
	}
	log, err := logger.New(mode, cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()
	log = log.With("component", "ViewsWorker")

	if err := run(cfg, log); err != nil {
		log.Error("worker stopped with error", "error", err)
		log.Sync()
		os.Exit(1)
	}
}

func run(cfg *config.Config, log *logger.Logger) error {
	if cfg.Storage.Driver != config.DriverMongo {
		return fmt.Errorf("views-worker requires storage.driver %q, got %q", config.DriverMongo, cfg.Storage.Driver)
	}
	if cfg.RabbitMQ.URL == "" {
		return fmt.Errorf("views-worker requires rabbitmq.url")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	repo, err := mongo.New(connectCtx, cfg.Mongo.URI, cfg.Mongo.Database)
	cancel()
	if err != nil {
		return fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := repo.Close(closeCtx); err != nil {
			log.Warn("failed to close MongoDB", "error", err)
		}
	}()

	consumer, err := events.NewEventConsumer(
		cfg.RabbitMQ.URL,
		cfg.RabbitMQ.Exchange,
		cfg.RabbitMQ.ViewsQueue,
		viewHandlers(repo, log),
		cfg.Timeouts.ViewCount,
		log,
	)
	if err != nil {
		return err
	}
	if err := consumer.Start(); err != nil {
		consumer.Close()
		return err
	}

	done := make(chan struct{})
	go func() {
		consumer.Wait()
		close(done)
	}()

	select {
	case <-ctx.Done():
		log.Info("shutting down")
	case <-done:
		log.Warn("consumer stopped, exiting")
	}
	return consumer.Close()
}
