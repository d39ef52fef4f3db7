package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/d60-Lab/power-monitor/internal/model"
	"github.com/d60-Lab/power-monitor/internal/normalize"
	"github.com/d60-Lab/power-monitor/pkg/logger"
)

// UpsertKind 自然键 upsert 的结果类别
type UpsertKind string

const (
	UpsertCreated   UpsertKind = "created"
	UpsertUpdated   UpsertKind = "updated"
	UpsertUnchanged UpsertKind = "unchanged"
)

// UpsertResult 供匹配阶段判断增量：只有 created 或位置集合变化的 updated
// 才需要重新匹配
type UpsertResult struct {
	Kind             UpsertKind
	OutageID         string
	LocationsChanged bool
	// StatusRegressed 上游试图把 resolved 回退为非终态，已丢弃
	StatusRegressed bool
}

// OutageRepository 停电事件存储。Outage/AffectedLocation 的唯一写入方
type OutageRepository interface {
	// Upsert 幂等写入：同一输入重复调用不产生重复行、不产生虚假 updated。
	// 位置替换与状态更新在同一事务内落地
	Upsert(ctx context.Context, upd normalize.CanonicalUpdate) (UpsertResult, error)
	GetByID(ctx context.Context, id string) (*model.Outage, error)
	List(ctx context.Context, providerFilter, statusFilter string, offset, limit int) ([]*model.Outage, int64, error)
	Locations(ctx context.Context, outageID string) ([]string, error)
}

type outageRepository struct {
	db *gorm.DB
}

func NewOutageRepository(db *gorm.DB) OutageRepository { return &outageRepository{db: db} }

func (r *outageRepository) Upsert(ctx context.Context, upd normalize.CanonicalUpdate) (UpsertResult, error) {
	var res UpsertResult
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		res, err = upsertTx(tx, upd)
		return err
	})
	return res, err
}

func upsertTx(tx *gorm.DB, upd normalize.CanonicalUpdate) (UpsertResult, error) {
	var existing model.Outage
	err := tx.Where("source_provider = ? AND natural_key = ?", upd.Provider, upd.NaturalKey).
		First(&existing).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		o := model.Outage{
			ID:             uuid.New().String(),
			SourceProvider: upd.Provider,
			NaturalKey:     upd.NaturalKey,
			Status:         upd.Status,
			ReportedAt:     upd.ReportedAt,
			LastSeenAt:     upd.SeenAt,
		}
		create := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&o)
		if create.Error != nil {
			return UpsertResult{}, create.Error
		}
		if create.RowsAffected == 0 {
			// 并发首插竞争：另一个周期刚插入同一自然键，转为更新路径
			if err := tx.Where("source_provider = ? AND natural_key = ?", upd.Provider, upd.NaturalKey).
				First(&existing).Error; err != nil {
				return UpsertResult{}, err
			}
			return applyUpdate(tx, &existing, upd)
		}
		if err := replaceLocations(tx, o.ID, upd.Postcodes); err != nil {
			return UpsertResult{}, err
		}
		return UpsertResult{Kind: UpsertCreated, OutageID: o.ID, LocationsChanged: len(upd.Postcodes) > 0}, nil
	}
	if err != nil {
		return UpsertResult{}, err
	}
	return applyUpdate(tx, &existing, upd)
}

func applyUpdate(tx *gorm.DB, existing *model.Outage, upd normalize.CanonicalUpdate) (UpsertResult, error) {
	res := UpsertResult{OutageID: existing.ID, Kind: UpsertUnchanged}

	newStatus := existing.Status
	switch {
	case upd.Status == existing.Status:
		// no-op
	case existing.Status.CanTransition(upd.Status):
		newStatus = upd.Status
	default:
		// resolved 终态回退：丢弃状态，照常刷新 last_seen_at
		res.StatusRegressed = true
		logger.Warn("status regression discarded",
			zap.String("provider", string(existing.SourceProvider)),
			zap.String("natural_key", existing.NaturalKey),
			zap.String("from", string(existing.Status)),
			zap.String("to", string(upd.Status)))
	}

	var current []string
	if err := tx.Model(&model.AffectedLocation{}).
		Where("outage_id = ?", existing.ID).
		Order("postcode").
		Pluck("postcode", &current).Error; err != nil {
		return UpsertResult{}, err
	}

	locationsChanged := !sameSet(current, upd.Postcodes)
	if locationsChanged {
		if err := replaceLocations(tx, existing.ID, upd.Postcodes); err != nil {
			return UpsertResult{}, err
		}
	}

	updates := map[string]any{"last_seen_at": upd.SeenAt}
	if newStatus != existing.Status {
		updates["status"] = newStatus
	}
	if err := tx.Model(&model.Outage{}).Where("id = ?", existing.ID).Updates(updates).Error; err != nil {
		return UpsertResult{}, err
	}

	if newStatus != existing.Status || locationsChanged {
		res.Kind = UpsertUpdated
	}
	res.LocationsChanged = locationsChanged
	return res, nil
}

// replaceLocations 整组替换：本次轮询的集合即是当前真值
func replaceLocations(tx *gorm.DB, outageID string, postcodes []string) error {
	if err := tx.Where("outage_id = ?", outageID).Delete(&model.AffectedLocation{}).Error; err != nil {
		return err
	}
	if len(postcodes) == 0 {
		return nil
	}
	rows := make([]model.AffectedLocation, 0, len(postcodes))
	for _, pc := range postcodes {
		rows = append(rows, model.AffectedLocation{ID: uuid.New().String(), OutageID: outageID, Postcode: pc})
	}
	return tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&rows).Error
}

func sameSet(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	set := make(map[string]struct{}, len(a))
	for _, s := range a {
		set[s] = struct{}{}
	}
	for _, s := range b {
		if _, ok := set[s]; !ok {
			return false
		}
	}
	return true
}

func (r *outageRepository) GetByID(ctx context.Context, id string) (*model.Outage, error) {
	var o model.Outage
	if err := r.db.WithContext(ctx).Preload("Locations").Where("id = ?", id).First(&o).Error; err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *outageRepository) List(ctx context.Context, providerFilter, statusFilter string, offset, limit int) ([]*model.Outage, int64, error) {
	q := r.db.WithContext(ctx).Model(&model.Outage{})
	if providerFilter != "" {
		q = q.Where("source_provider = ?", providerFilter)
	}
	if statusFilter != "" {
		q = q.Where("status = ?", statusFilter)
	}
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var outages []*model.Outage
	err := q.Order("last_seen_at DESC").Offset(offset).Limit(limit).Find(&outages).Error
	return outages, total, err
}

func (r *outageRepository) Locations(ctx context.Context, outageID string) ([]string, error) {
	var postcodes []string
	err := r.db.WithContext(ctx).Model(&model.AffectedLocation{}).
		Where("outage_id = ?", outageID).
		Order("postcode").
		Pluck("postcode", &postcodes).Error
	return postcodes, err
}
