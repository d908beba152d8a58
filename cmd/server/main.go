package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Vignesh-ops/vingesh-biotree-sub000/internal/cache"
	"github.com/Vignesh-ops/vingesh-biotree-sub000/internal/config"
	"github.com/Vignesh-ops/vingesh-biotree-sub000/internal/events"
	"github.com/Vignesh-ops/vingesh-biotree-sub000/internal/handlers"
	"github.com/Vignesh-ops/vingesh-biotree-sub000/internal/live"
	"github.com/Vignesh-ops/vingesh-biotree-sub000/internal/logger"
	"github.com/Vignesh-ops/vingesh-biotree-sub000/internal/metrics"
	"github.com/Vignesh-ops/vingesh-biotree-sub000/internal/render"
	"github.com/Vignesh-ops/vingesh-biotree-sub000/internal/services"
	"github.com/Vignesh-ops/vingesh-biotree-sub000/internal/session"
	"github.com/Vignesh-ops/vingesh-biotree-sub000/internal/storage"
	"github.com/Vignesh-ops/vingesh-biotree-sub000/internal/storage/memory"
	"github.com/Vignesh-ops/vingesh-biotree-sub000/internal/storage/mongo"
)

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
	logger.SetDefault(log)

	if err := run(cfg, log); err != nil {
		log.Error("server stopped with error", "error", err)
		log.Sync()
		os.Exit(1)
	}
}

func run(cfg *config.Config, log *logger.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New()

	repo, err := openRepository(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := repo.Close(closeCtx); err != nil {
			log.Warn("failed to close repository", "error", err)
		}
	}()

	profileCache, err := openCache(cfg, log)
	if err != nil {
		return err
	}
	defer profileCache.Close()

	publisher, err := events.NewEventPublisher(cfg.RabbitMQ.URL, cfg.RabbitMQ.Exchange, log.With("component", "EventPublisher"))
	if err != nil {
		return err
	}
	defer publisher.Close()

	verifier, err := openVerifier(ctx, cfg)
	if err != nil {
		return err
	}
	adapter := session.NewAdapter(verifier)

	profiles := services.NewProfileService(repo, services.ProfileServiceOptions{
		Cache:     profileCache,
		Publisher: publisher,
		Metrics:   m,
		BioMax:    cfg.Onboarding.BioMax,
	})

	renderer := render.NewRenderer(repo, render.Options{
		Cache:       profileCache,
		Counter:     render.NewViewCounter(repo, publisher),
		Metrics:     m,
		ViewTimeout: cfg.Timeouts.ViewCount,
	})

	registry := live.NewRegistry(profiles, live.Options{
		UsernameDebounce: cfg.Onboarding.UsernameDebounce,
		LinksAutoSave:    cfg.Onboarding.LinksAutoSave,
	}, m, log)
	unsubscribe := adapter.OnSessionChange(registry.OnSessionChange)
	defer unsubscribe()

	router := handlers.NewRouter(handlers.RouterDeps{
		Logger:         log,
		Metrics:        m,
		Sessions:       adapter,
		Profiles:       profiles,
		Renderer:       renderer,
		Live:           registry,
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		PublicBaseURL:  cfg.HTTP.PublicBaseURL,
		RequestTimeout: cfg.Timeouts.Request,
	})

	srv := &http.Server{
		Addr:              cfg.HTTP.Addr(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("biotree API server starting", "addr", srv.Addr, "storage", cfg.Storage.Driver, "auth", cfg.Auth.Mode)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")

		// live streams never finish on their own
		registry.CloseAll()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Timeouts.Shutdown)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		renderer.Wait()
		return nil
	})

	return g.Wait()
}

func openRepository(ctx context.Context, cfg *config.Config, log *logger.Logger) (storage.Repository, error) {
	switch cfg.Storage.Driver {
	case config.DriverMongo:
		connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		store, err := mongo.New(connectCtx, cfg.Mongo.URI, cfg.Mongo.Database)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
		}
		log.Info("using MongoDB storage", "database", cfg.Mongo.Database)
		return store, nil
	default:
		store, err := memory.New(cfg.Storage.DataDir, memory.WithLogger(log.With("component", "MemoryStore")))
		if err != nil {
			return nil, fmt.Errorf("failed to open memory storage: %w", err)
		}
		if cfg.Storage.DataDir == "" {
			log.Warn("using in-memory storage without snapshots, data is lost on restart")
		} else {
			log.Info("using in-memory storage", "data_dir", cfg.Storage.DataDir)
		}
		return store, nil
	}
}

func openCache(cfg *config.Config, log *logger.Logger) (cache.ProfileCache, error) {
	if cfg.Redis.URL == "" {
		log.Info("Redis URL is empty, public profile cache is disabled")
		return cache.Noop{}, nil
	}
	c, err := cache.NewRedisProfileCache(cfg.Redis.URL, cfg.Redis.Prefix, cfg.Redis.CacheTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return c, nil
}

func openVerifier(ctx context.Context, cfg *config.Config) (session.Verifier, error) {
	if cfg.Auth.Mode == config.AuthJWT {
		v, err := session.NewJWTVerifier(cfg.Auth.JWTSecret)
		if err != nil {
			return nil, err
		}
		return v, nil
	}
	v, err := session.NewFirebaseVerifier(ctx, session.FirebaseConfig{
		ProjectID:       cfg.Auth.FirebaseProjectID,
		CredentialsJSON: cfg.Auth.FirebaseCredentialsJSON,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Firebase Auth: %w", err)
	}
	return v, nil
}
