package model

import (
	"time"

	"gorm.io/datatypes"
)

type Setting struct {
	Key       string    `gorm:"type:varchar(100);primaryKey"`
	Value     string    `gorm:"type:text;not null"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

func (Setting) TableName() string {
	return "settings"
}

// PaymentWebhookEvent journals every webhook delivery. Deliveries carrying a
// provider event id are unique per provider.
type PaymentWebhookEvent struct {
	Id              uint           `gorm:"primaryKey;autoIncrement"`
	Provider        string         `gorm:"type:varchar(20);not null;uniqueIndex:idx_webhook_events_provider_event,priority:1"`
	ProviderEventId *string        `gorm:"type:varchar(255);uniqueIndex:idx_webhook_events_provider_event,priority:2"`
	EventType       string         `gorm:"type:varchar(100);not null"`
	Payload         datatypes.JSON `gorm:"type:jsonb"`
	SignatureValid  bool           `gorm:"not null;default:false"`
	ProcessedAt     *time.Time
	ProcessingError *string   `gorm:"type:text"`
	CreatedAt       time.Time `gorm:"autoCreateTime"`
}

func (PaymentWebhookEvent) TableName() string {
	return "payment_webhook_events"
}
