package model

import "time"

// Customer 订阅用户（由外部订阅管理系统维护，本引擎只读）
type Customer struct {
	ID        string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	FirstName string    `json:"first_name" gorm:"type:varchar(35);not null"`
	Email     string    `json:"email" gorm:"type:varchar(255);uniqueIndex;not null"`
	IsActive  bool      `json:"is_active" gorm:"index;not null;default:true"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Subscriptions []Subscription `json:"subscriptions,omitempty" gorm:"foreignKey:CustomerID;constraint:OnDelete:CASCADE"`
}

func (Customer) TableName() string { return "customers" }

// Subscription 用户与邮编模式的订阅关系；
// LocationPattern 为完整邮编（"E1 6AN"）或区域前缀（"E1"）
type Subscription struct {
	ID         string `json:"id" gorm:"primaryKey;type:varchar(36)"`
	CustomerID string `json:"customer_id" gorm:"type:varchar(36);index:idx_sub_customer;uniqueIndex:ux_sub_pair;not null"`
	// ux_sub_pair = (customer_id, location_pattern)，避免重复订阅
	LocationPattern string    `json:"location_pattern" gorm:"type:varchar(16);index:idx_sub_pattern;uniqueIndex:ux_sub_pair;not null"`
	CreatedAt       time.Time `json:"created_at"`
}

func (Subscription) TableName() string { return "subscriptions" }
