package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/d60-Lab/power-monitor/config"
	"github.com/d60-Lab/power-monitor/internal/api/handler"
	"github.com/d60-Lab/power-monitor/internal/api/router"
	"github.com/d60-Lab/power-monitor/internal/mailer"
	"github.com/d60-Lab/power-monitor/internal/provider"
	"github.com/d60-Lab/power-monitor/internal/repository"
	"github.com/d60-Lab/power-monitor/internal/service"
	"github.com/d60-Lab/power-monitor/pkg/database"
	"github.com/d60-Lab/power-monitor/pkg/logger"
	"github.com/d60-Lab/power-monitor/pkg/telemetry"
)

func must[T any](v T, err error) T {
	if err != nil {
		panic(err)
	}
	return v
}

func main() {
	cfg := must(config.Load())
	_ = logger.Init(cfg.Log.Level, cfg.Log.Format)
	defer logger.Sync()

	if cfg.Sentry.DSN != "" {
		if err := sentry.Init(sentry.ClientOptions{Dsn: cfg.Sentry.DSN}); err != nil {
			panic(err)
		}
		defer sentry.Flush(2 * time.Second)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing := must(telemetry.Init(ctx, cfg, "power-monitor"))
	defer func() { _ = shutdownTracing(context.Background()) }()

	db := must(database.InitDB(cfg))

	var cache *redis.Client
	if cfg.Redis.Enabled {
		cache = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	}

	m := must(mailer.FromConfig(ctx, cfg))
	outageRepo := repository.NewOutageRepository(db)
	notifRepo := repository.NewNotificationRepository(db)
	snapshots := service.NewSnapshotCache(repository.NewSubscriptionRepository(db), cache, cfg.Poller.Interval)
	dispatcher := service.NewDispatcher(m, notifRepo)
	poller := service.NewPoller(provider.FromConfig(cfg), outageRepo, snapshots, notifRepo, dispatcher, cfg.Poller.CycleBudget)

	h := handler.New(outageRepo, notifRepo, poller)
	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           router.New(cfg, h),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("server listening", zap.String("addr", cfg.Server.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("server shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
}
