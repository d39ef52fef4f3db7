package main

import (
	"context"
	"fmt"
	"math"
	"os"
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/d60-Lab/power-monitor/internal/mailer"
	"github.com/d60-Lab/power-monitor/internal/model"
	"github.com/d60-Lab/power-monitor/internal/normalize"
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

func envInt(name string, def int) int {
	if s := os.Getenv(name); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			return n
		}
	}
	return def
}

func percentile(vs []time.Duration, p float64) time.Duration {
	if len(vs) == 0 {
		return 0
	}
	xs := append([]time.Duration(nil), vs...)
	sort.Slice(xs, func(i, j int) bool { return xs[i] < xs[j] })
	k := int(math.Ceil(p*float64(len(xs)))) - 1
	if k < 0 {
		k = 0
	}
	if k >= len(xs) {
		k = len(xs) - 1
	}
	return xs[k]
}

// 本地基准：合成 N 条停电记录 + SUBS 个订阅者，测 upsert/match/gate 链路吞吐
func main() {
	_ = logger.Init("warn", "console")

	db := must(gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	}))
	if err := database.Migrate(db); err != nil {
		panic(err)
	}

	n := envInt("N", 5000)
	subs := envInt("SUBS", 1000)

	outageRepo := repository.NewOutageRepository(db)
	notifRepo := repository.NewNotificationRepository(db)
	subRepo := repository.NewSubscriptionRepository(db)
	dispatcher := service.NewDispatcher(mailer.NewLogMailer(), notifRepo)

	// 每个订阅者订阅一个 outward 区域
	for i := 0; i < subs; i++ {
		cid := uuid.New().String()
		if err := db.Create(&model.Customer{
			ID:        cid,
			FirstName: fmt.Sprintf("bench%04d", i),
			Email:     fmt.Sprintf("bench%04d@example.com", i),
			IsActive:  true,
		}).Error; err != nil {
			panic(err)
		}
		if err := db.Create(&model.Subscription{
			ID:              uuid.New().String(),
			CustomerID:      cid,
			LocationPattern: fmt.Sprintf("E%d", i%99+1),
		}).Error; err != nil {
			panic(err)
		}
	}

	ctx := context.Background()
	matcher := service.NewMatcher(must(subRepo.Snapshot(ctx)))
	now := time.Now()

	updates := make([]normalize.CanonicalUpdate, n)
	for i := 0; i < n; i++ {
		updates[i] = normalize.CanonicalUpdate{
			Provider:   model.ProviderNationalGrid,
			NaturalKey: fmt.Sprintf("bench-%06d", i),
			Status:     model.StatusOngoing,
			ReportedAt: now,
			SeenAt:     now,
			Postcodes:  []string{fmt.Sprintf("E%d %dAN", i%99+1, i%9+1)},
		}
	}

	lat := make([]time.Duration, 0, n)
	notified := 0
	t0 := time.Now()
	for _, upd := range updates {
		st := time.Now()
		res := must(outageRepo.Upsert(ctx, upd))
		if res.Kind == repository.UpsertCreated || res.LocationsChanged {
			for _, cand := range matcher.Match(upd.Postcodes) {
				auth := must(notifRepo.Authorize(ctx, cand.CustomerID, res.OutageID))
				if auth.Approved {
					dispatcher.Dispatch(ctx, auth.RecordID, cand, upd.ReportedAt, upd.Postcodes)
					notified++
				}
			}
		}
		lat = append(lat, time.Since(st))
	}
	firstDur := time.Since(t0)

	// 幂等复跑：同样的记录不应产生任何变化
	unchanged := 0
	t1 := time.Now()
	for _, upd := range updates {
		res := must(outageRepo.Upsert(ctx, upd))
		if res.Kind == repository.UpsertUnchanged {
			unchanged++
		}
	}
	rerunDur := time.Since(t1)

	fmt.Printf("N=%d SUBS=%d\n", n, subs)
	fmt.Printf("first run:  total=%v per_op=%v p50=%v p95=%v p99=%v notified=%d\n",
		firstDur, firstDur/time.Duration(n),
		percentile(lat, 0.50), percentile(lat, 0.95), percentile(lat, 0.99), notified)
	fmt.Printf("idempotent: total=%v per_op=%v unchanged=%d/%d\n",
		rerunDur, rerunDur/time.Duration(n), unchanged, n)
}
