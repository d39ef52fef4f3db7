package main

import (
	"context"
	"flag"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/d60-Lab/power-monitor/config"
	"github.com/d60-Lab/power-monitor/internal/mailer"
	"github.com/d60-Lab/power-monitor/internal/provider"
	"github.com/d60-Lab/power-monitor/internal/repository"
	"github.com/d60-Lab/power-monitor/internal/service"
	"github.com/d60-Lab/power-monitor/pkg/database"
	"github.com/d60-Lab/power-monitor/pkg/logger"
)

func must[T any](v T, err error) T {
	if err != nil {
		panic(err)
	}
	return v
}

func main() {
	once := flag.Bool("once", false, "run a single cycle and exit")
	sweep := flag.Bool("sweep", false, "run the retry sweep after each cycle")
	flag.Parse()

	cfg := must(config.Load())
	_ = logger.Init(cfg.Log.Level, cfg.Log.Format)
	defer logger.Sync()

	if cfg.Sentry.DSN != "" {
		if err := sentry.Init(sentry.ClientOptions{Dsn: cfg.Sentry.DSN}); err != nil {
			panic(err)
		}
		defer sentry.Flush(2 * time.Second)
	}

	db := must(database.InitDB(cfg))

	var cache *redis.Client
	if cfg.Redis.Enabled {
		cache = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	m := must(mailer.FromConfig(ctx, cfg))
	outageRepo := repository.NewOutageRepository(db)
	notifRepo := repository.NewNotificationRepository(db)
	snapshots := service.NewSnapshotCache(repository.NewSubscriptionRepository(db), cache, cfg.Poller.Interval)
	dispatcher := service.NewDispatcher(m, notifRepo)
	poller := service.NewPoller(provider.FromConfig(cfg), outageRepo, snapshots, notifRepo, dispatcher, cfg.Poller.CycleBudget)

	runCycle := func() {
		stats, err := poller.RunCycle(ctx)
		if err != nil {
			logger.Error("cycle failed", zap.Error(err))
		}
		logger.Info("cycle finished",
			zap.Duration("duration", stats.Duration),
			zap.Int("fetched", stats.Fetched),
			zap.Int("discarded", stats.Discarded),
			zap.Int("created", stats.Created),
			zap.Int("updated", stats.Updated),
			zap.Int("unchanged", stats.Unchanged),
			zap.Int("regressions", stats.Regressions),
			zap.Int("sent", stats.Sent),
			zap.Int("failed", stats.Failed),
			zap.Int("already_notified", stats.AlreadyNotified),
			zap.Int("provider_errors", len(stats.ProviderErrors)))
		if *sweep {
			if _, err := poller.RunRetrySweep(ctx, 500); err != nil {
				logger.Error("retry sweep failed", zap.Error(err))
			}
		}
	}

	runCycle()
	if *once {
		return
	}

	ticker := time.NewTicker(cfg.Poller.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			logger.Info("poller shutting down")
			return
		case <-ticker.C:
			runCycle()
		}
	}
}
