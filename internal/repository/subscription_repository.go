package repository

import (
	"context"

	"gorm.io/gorm"
)

// SubscriberEntry 订阅索引快照中的一行（join 了联系信息，便于直接投递）
type SubscriberEntry struct {
	CustomerID      string `json:"customer_id"`
	FirstName       string `json:"first_name"`
	Email           string `json:"email"`
	LocationPattern string `json:"location_pattern"`
}

// SubscriptionRepository 订阅索引只读视图；Customer/Subscription 归外部
// 订阅管理系统所有，本引擎不写
type SubscriptionRepository interface {
	// Snapshot 活跃用户的全部订阅，作为单个周期内的时点快照
	Snapshot(ctx context.Context) ([]SubscriberEntry, error)
}

type subscriptionRepository struct {
	db *gorm.DB
}

func NewSubscriptionRepository(db *gorm.DB) SubscriptionRepository {
	return &subscriptionRepository{db: db}
}

func (r *subscriptionRepository) Snapshot(ctx context.Context) ([]SubscriberEntry, error) {
	var entries []SubscriberEntry
	err := r.db.WithContext(ctx).
		Table("subscriptions").
		Select("subscriptions.customer_id, customers.first_name, customers.email, subscriptions.location_pattern").
		Joins("JOIN customers ON customers.id = subscriptions.customer_id").
		Where("customers.is_active = ?", true).
		Scan(&entries).Error
	return entries, err
}
