package service

import (
	"context"
	"fmt"
	"time"

	"github.com/getsentry/sentry-go"
	"go.uber.org/zap"

	"github.com/d60-Lab/power-monitor/internal/model"
	"github.com/d60-Lab/power-monitor/internal/normalize"
	"github.com/d60-Lab/power-monitor/internal/provider"
	"github.com/d60-Lab/power-monitor/internal/repository"
	"github.com/d60-Lab/power-monitor/pkg/logger"
)

// SnapshotSource 订阅索引的周期内时点快照
type SnapshotSource interface {
	Snapshot(ctx context.Context) ([]repository.SubscriberEntry, error)
}

// CycleStats 单个轮询周期的统计
type CycleStats struct {
	StartedAt       time.Time         `json:"started_at"`
	Duration        time.Duration     `json:"duration"`
	Fetched         int               `json:"fetched"`
	Discarded       int               `json:"discarded"`
	Created         int               `json:"created"`
	Updated         int               `json:"updated"`
	Unchanged       int               `json:"unchanged"`
	Regressions     int               `json:"regressions"`
	Candidates      int               `json:"candidates"`
	Sent            int               `json:"sent"`
	Failed          int               `json:"failed"`
	AlreadyNotified int               `json:"already_notified"`
	ProviderErrors  map[string]string `json:"provider_errors,omitempty"`
}

// Poller 轮询周期编排。周期本身无状态，正确性全部压给存储层的
// 唯一约束，因此被调度器重复/并发触发也是安全的
type Poller struct {
	adapters   []provider.Adapter
	outages    repository.OutageRepository
	snapshots  SnapshotSource
	gate       repository.NotificationRepository
	dispatcher *Dispatcher
	budget     time.Duration
}

func NewPoller(adapters []provider.Adapter, outages repository.OutageRepository,
	snapshots SnapshotSource, gate repository.NotificationRepository,
	dispatcher *Dispatcher, budget time.Duration) *Poller {
	if budget <= 0 {
		budget = 4 * time.Minute
	}
	return &Poller{
		adapters:   adapters,
		outages:    outages,
		snapshots:  snapshots,
		gate:       gate,
		dispatcher: dispatcher,
		budget:     budget,
	}
}

type fetchResult struct {
	provider model.SourceProvider
	records  []provider.RawRecord
	err      error
}

// RunCycle 执行一个完整周期：并发抓取 -> 规范化 -> upsert -> 增量匹配 ->
// 闸门 -> 投递。单个数据源失败只影响自身；超时后已提交的 upsert 保持有效，
// 下个周期会补齐
func (p *Poller) RunCycle(ctx context.Context) (CycleStats, error) {
	stats := CycleStats{StartedAt: time.Now(), ProviderErrors: map[string]string{}}
	ctx, cancel := context.WithTimeout(ctx, p.budget)
	defer cancel()
	defer func() { stats.Duration = time.Since(stats.StartedAt) }()

	// 快照拿不到就不要 upsert：增量只在本周期匹配一次，
	// 先写库后失配会丢通知
	snapshot, err := p.snapshots.Snapshot(ctx)
	if err != nil {
		return stats, fmt.Errorf("subscription snapshot: %w", err)
	}
	matcher := NewMatcher(snapshot)

	results := make(chan fetchResult, len(p.adapters))
	for _, a := range p.adapters {
		go func(a provider.Adapter) {
			records, err := a.Fetch(ctx)
			results <- fetchResult{provider: a.Provider(), records: records, err: err}
		}(a)
	}

	for range p.adapters {
		res := <-results
		if res.err != nil {
			// SourceUnavailable：隔离在该源，其余源照常处理
			stats.ProviderErrors[string(res.provider)] = res.err.Error()
			logger.Error("provider fetch failed",
				zap.String("provider", string(res.provider)),
				zap.Time("cycle_started_at", stats.StartedAt),
				zap.Error(res.err))
			continue
		}
		stats.Fetched += len(res.records)
		if err := p.processRecords(ctx, res.records, matcher, &stats); err != nil {
			// 共享状态写入失败对周期是致命的；已提交部分保持不动
			sentry.CaptureException(err)
			return stats, fmt.Errorf("provider %s: %w", res.provider, err)
		}
	}
	return stats, nil
}

func (p *Poller) processRecords(ctx context.Context, records []provider.RawRecord, matcher *Matcher, stats *CycleStats) error {
	for _, raw := range records {
		upd, err := normalize.Record(raw)
		if err != nil {
			// MalformedRecord：跳过并留足上下文，绝不静默丢弃
			stats.Discarded++
			logger.Warn("record discarded",
				zap.String("provider", string(raw.Provider)),
				zap.String("native_id", raw.NativeID),
				zap.String("raw_status", raw.Status),
				zap.Strings("raw_postcodes", raw.Postcodes),
				zap.Error(err))
			continue
		}

		res, err := p.outages.Upsert(ctx, upd)
		if err != nil {
			return fmt.Errorf("upsert %s/%s: %w", upd.Provider, upd.NaturalKey, err)
		}

		switch res.Kind {
		case repository.UpsertCreated:
			stats.Created++
		case repository.UpsertUpdated:
			stats.Updated++
		default:
			stats.Unchanged++
		}
		if res.StatusRegressed {
			stats.Regressions++
		}

		// 匹配只跑增量：新建，或位置集合变化的更新
		if res.Kind == repository.UpsertCreated || (res.Kind == repository.UpsertUpdated && res.LocationsChanged) {
			if err := p.notify(ctx, res.OutageID, upd, matcher, stats); err != nil {
				return err
			}
		}
	}
	return nil
}

func (p *Poller) notify(ctx context.Context, outageID string, upd normalize.CanonicalUpdate, matcher *Matcher, stats *CycleStats) error {
	for _, cand := range matcher.Match(upd.Postcodes) {
		stats.Candidates++
		auth, err := p.gate.Authorize(ctx, cand.CustomerID, outageID)
		if err != nil {
			return fmt.Errorf("authorize customer=%s outage=%s: %w", cand.CustomerID, outageID, err)
		}
		if !auth.Approved {
			stats.AlreadyNotified++
			continue
		}
		switch p.dispatcher.Dispatch(ctx, auth.RecordID, cand, upd.ReportedAt, upd.Postcodes) {
		case model.OutcomeSent:
			stats.Sent++
		default:
			stats.Failed++
		}
	}
	return nil
}

// RunRetrySweep 带外补偿：重发 failed_retryable 的台账行。
// 行已存在，不经过 Authorize，不会破坏唯一性不变量
func (p *Poller) RunRetrySweep(ctx context.Context, limit int) (int, error) {
	recs, err := p.gate.ListRetryable(ctx, limit)
	if err != nil {
		return 0, err
	}

	sent := 0
	for _, rec := range recs {
		if rec.Customer == nil || rec.Outage == nil {
			continue
		}
		postcodes := make([]string, 0, len(rec.Outage.Locations))
		for _, loc := range rec.Outage.Locations {
			postcodes = append(postcodes, loc.Postcode)
		}
		cand := Candidate{CustomerID: rec.CustomerID, FirstName: rec.Customer.FirstName, Email: rec.Customer.Email}
		if p.dispatcher.Dispatch(ctx, rec.ID, cand, rec.Outage.ReportedAt, postcodes) == model.OutcomeSent {
			sent++
		}
	}
	logger.Info("retry sweep complete", zap.Int("candidates", len(recs)), zap.Int("sent", sent))
	return sent, nil
}
