package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/bidhaus/bidhaus-backend/api/routes"
	auctionsvc "github.com/bidhaus/bidhaus-backend/internal/auctions"
	biddingsvc "github.com/bidhaus/bidhaus-backend/internal/bidding"
	"github.com/bidhaus/bidhaus-backend/internal/locks"
	"github.com/bidhaus/bidhaus-backend/internal/notifier"
	"github.com/bidhaus/bidhaus-backend/internal/settlement"
	"github.com/bidhaus/bidhaus-backend/pkg/config"
	"github.com/bidhaus/bidhaus-backend/pkg/db"
	"github.com/bidhaus/bidhaus-backend/pkg/logger"
	"github.com/bidhaus/bidhaus-backend/pkg/metrics"
	"github.com/bidhaus/bidhaus-backend/pkg/migrate"
	"github.com/bidhaus/bidhaus-backend/pkg/redis"
)

const shutdownGrace = 15 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	lockManager, err := locks.NewRedisManager(redisClient, cfg.Engine.LockTTL)
	if err != nil {
		logg.Error(context.Background(), "failed to create lock manager", err)
		os.Exit(1)
	}

	var events notifier.Notifier = notifier.Noop{}
	if cfg.GCP.ProjectID != "" {
		pubsubNotifier, err := notifier.NewPubSub(context.Background(), cfg.GCP, cfg.PubSub, logg)
		if err != nil {
			logg.Error(context.Background(), "failed to create pubsub notifier", err)
			os.Exit(1)
		}
		defer func() {
			if err := pubsubNotifier.Close(); err != nil {
				logg.Error(context.Background(), "error closing pubsub", err)
			}
		}()
		events = pubsubNotifier
	} else {
		logg.Warn(context.Background(), "gcp project not configured, auction events disabled")
	}

	engineMetrics := metrics.NewEngineMetrics(prometheus.DefaultRegisterer)

	biddingService, err := biddingsvc.NewService(biddingsvc.ServiceParams{
		Repo:     biddingsvc.NewRepository(dbClient.DB()),
		TX:       dbClient,
		Locks:    lockManager,
		Notifier: events,
		Engine:   cfg.Engine,
		Metrics:  engineMetrics,
		Logger:   logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create bidding service", err)
		os.Exit(1)
	}

	sweeper, err := settlement.NewSweeper(settlement.SweeperParams{
		Repo:      settlement.NewRepository(dbClient.DB()),
		TX:        dbClient,
		Locks:     lockManager,
		Notifier:  events,
		Metrics:   engineMetrics,
		Logger:    logg,
		BatchSize: cfg.Sweeper.BatchSize,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create settlement sweeper", err)
		os.Exit(1)
	}

	auctionService, err := auctionsvc.NewService(auctionsvc.ServiceParams{
		Repo:    auctionsvc.NewRepository(dbClient.DB()),
		Settler: sweeper,
		Engine:  cfg.Engine,
		Logger:  logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create auction service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ctx = logg.WithFields(ctx, map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr:    addr,
		Handler: routes.NewRouter(cfg, logg, dbClient, redisClient, auctionService, biddingService),
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(ctx, "api server shutdown failed", err)
			os.Exit(1)
		}
	}

	logg.Info(ctx, "api server shutting down gracefully")
}
