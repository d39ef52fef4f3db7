package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/d60-Lab/power-monitor/internal/model"
)

// AuthorizeResult 通知闸门判定
type AuthorizeResult struct {
	// Approved=true 时 RecordID 为新插入的台账行；false 表示该
	// (customer, outage) 已有记录，属正常去重，不是错误
	Approved bool
	RecordID string
}

// NotificationRepository 通知台账。NotificationRecord 的唯一写入方。
// 先插入后发送 + 数据库唯一约束 = 并发/重试下的 at-most-once，
// 无需任何外部分布式锁
type NotificationRepository interface {
	Authorize(ctx context.Context, customerID, outageID string) (AuthorizeResult, error)
	MarkOutcome(ctx context.Context, recordID string, outcome model.NotificationOutcome) error
	ListRetryable(ctx context.Context, limit int) ([]*model.NotificationRecord, error)
	List(ctx context.Context, offset, limit int) ([]*model.NotificationRecord, int64, error)
}

type notificationRepository struct {
	db *gorm.DB
}

func NewNotificationRepository(db *gorm.DB) NotificationRepository {
	return &notificationRepository{db: db}
}

func (r *notificationRepository) Authorize(ctx context.Context, customerID, outageID string) (AuthorizeResult, error) {
	rec := model.NotificationRecord{
		ID:         uuid.New().String(),
		CustomerID: customerID,
		OutageID:   outageID,
		Outcome:    model.OutcomePending,
	}
	res := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&rec)
	if res.Error != nil {
		return AuthorizeResult{}, res.Error
	}
	if res.RowsAffected == 0 {
		// 唯一约束拒绝：已通知过
		return AuthorizeResult{Approved: false}, nil
	}
	return AuthorizeResult{Approved: true, RecordID: rec.ID}, nil
}

func (r *notificationRepository) MarkOutcome(ctx context.Context, recordID string, outcome model.NotificationOutcome) error {
	updates := map[string]any{"outcome": outcome}
	if outcome == model.OutcomeSent {
		now := time.Now()
		updates["sent_at"] = &now
	}
	return r.db.WithContext(ctx).Model(&model.NotificationRecord{}).
		Where("id = ?", recordID).
		Updates(updates).Error
}

// ListRetryable 供带外补偿扫描使用：记录已存在，重试不会破坏唯一性不变量
func (r *notificationRepository) ListRetryable(ctx context.Context, limit int) ([]*model.NotificationRecord, error) {
	var recs []*model.NotificationRecord
	err := r.db.WithContext(ctx).
		Preload("Customer").
		Preload("Outage.Locations").
		Where("outcome = ?", model.OutcomeFailedRetryable).
		Order("created_at").
		Limit(limit).
		Find(&recs).Error
	return recs, err
}

func (r *notificationRepository) List(ctx context.Context, offset, limit int) ([]*model.NotificationRecord, int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).Model(&model.NotificationRecord{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var recs []*model.NotificationRecord
	err := r.db.WithContext(ctx).Order("created_at DESC").Offset(offset).Limit(limit).Find(&recs).Error
	return recs, total, err
}
