package entity

import "time"

const (
	SettingTogglePushNotifications     = "toggle_push_notifications"
	SettingPushNotificationAdminEmails = "push_notification_admin_emails"
)

type Setting struct {
	Key       string
	Value     string
	UpdatedAt time.Time
}

// NotificationSettings is the admin notification configuration read by the failed-payment handler.
type NotificationSettings struct {
	TogglePushNotifications     bool
	PushNotificationAdminEmails []string
}

type PaymentWebhookEvent struct {
	Id              uint
	Provider        PaymentProvider
	ProviderEventId *string
	EventType       string
	Payload         []byte
	SignatureValid  bool
	ProcessedAt     *time.Time
	ProcessingError *string
	CreatedAt       time.Time
}

func (e *PaymentWebhookEvent) Processed() bool {
	return e.ProcessedAt != nil
}
