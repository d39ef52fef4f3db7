package model

import "time"

// NotificationOutcome 投递结果
type NotificationOutcome string

const (
	OutcomePending         NotificationOutcome = "pending"
	OutcomeSent            NotificationOutcome = "sent"
	OutcomeFailedRetryable NotificationOutcome = "failed_retryable"
	OutcomeFailedPermanent NotificationOutcome = "failed_permanent"
)

// NotificationRecord 通知台账。(customer_id, outage_id) 复合唯一键即是
// 去重机制本身：先插入后发送，唯一约束拒绝即表示已通知过
type NotificationRecord struct {
	ID         string `json:"id" gorm:"primaryKey;type:varchar(36)"`
	CustomerID string `json:"customer_id" gorm:"type:varchar(36);index:idx_notification_customer;uniqueIndex:ux_notification_pair;not null"`
	OutageID   string `json:"outage_id" gorm:"type:varchar(36);index:idx_notification_outage;uniqueIndex:ux_notification_pair;not null"`
	// ux_notification_pair = (customer_id, outage_id)
	Outcome   NotificationOutcome `json:"outcome" gorm:"type:varchar(20);index;not null;default:pending"`
	SentAt    *time.Time          `json:"sent_at,omitempty"`
	CreatedAt time.Time           `json:"created_at"`
	UpdatedAt time.Time           `json:"updated_at"`

	Customer *Customer `json:"-" gorm:"foreignKey:CustomerID;constraint:OnDelete:CASCADE"`
	Outage   *Outage   `json:"-" gorm:"foreignKey:OutageID;constraint:OnDelete:CASCADE"`
}

func (NotificationRecord) TableName() string { return "notification_records" }
