package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"budget/internal/backend"
	"budget/internal/cache"
	"budget/internal/cli"
	apphttp "budget/internal/http"
	"budget/internal/log"
	"budget/internal/services"
)

const shutdownTimeout = 30 * time.Second

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger()
	cfg := cli.LoadAndValidateConfig(logger)

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", log.FieldError, err)
		os.Exit(1)
	}

	stores, err := backend.NewFactory(logger.Logger).Create(context.Background(), backendCfg)
	if err != nil {
		logger.Error("Failed to initialize storage backends", log.FieldError, err,
			log.FieldBackend, backendCfg.Remote.String())
		os.Exit(1)
	}

	var syncer *services.SyncProcessor
	if stores.Remote != nil {
		syncer = services.NewSyncProcessor(stores.Remote, services.DefaultSyncProcessorConfig())
	}

	svc, err := services.NewBudgetService(context.Background(), services.Options{
		Local:          stores.Local,
		Remote:         stores.Remote,
		Sync:           syncer,
		StatsCacheSize: cfg.StatsCacheSize,
		StatsCacheTTL:  cfg.StatsCacheTTL,
		Logger:         logger.WithComponent(log.ComponentLedger),
	})
	if err != nil {
		logger.Error("Failed to initialize budget service", log.FieldError, err)
		_ = stores.Cleanup()
		os.Exit(1)
	}

	caches := cache.NewManager()
	caches.Register(svc.StatsCache())
	caches.StartCleanup(cfg.StatsCacheTTL)

	srv := apphttp.NewServer(":"+cfg.Port, svc, apphttp.Options{
		AllowedOrigins:     cfg.AllowedOrigins,
		MutationsPerMinute: cfg.MutationsPerMinute,
		Logger:             logger.WithComponent(log.ComponentHTTP),
	})
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 10 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	ctx, done := cli.GracefulShutdown(logger, shutdownTimeout, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err)
		}
		if syncer != nil {
			if err := syncer.Stop(ctx); err != nil {
				logger.Error("Sync processor stop error", log.FieldError, err)
			}
		}
		svc.Close(ctx)
		caches.Stop()
		if err := stores.Cleanup(); err != nil {
			logger.Error("Backend cleanup error", log.FieldError, err)
		}
	})

	if syncer != nil {
		if err := syncer.Start(ctx); err != nil {
			logger.Error("Failed to start sync processor", log.FieldError, err)
			os.Exit(1)
		}
	}

	if cfg.UserID != "" {
		if err := svc.SignIn(ctx, cfg.UserID); err != nil {
			logger.Error("Startup sign-in failed", log.FieldError, err, log.FieldUserID, cfg.UserID)
		}
	}

	g, _ := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Starting budget server",
			log.FieldOperation, log.OpStartup,
			"port", cfg.Port,
			"local", backendCfg.Local.String(),
			"remote", backendCfg.Remote.String())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		logger.Error("Server error", log.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
