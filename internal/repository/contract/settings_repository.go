package contract

import (
	"context"

	"chatbot-billing-be/internal/entity"
)

type SettingsRepository interface {
	FindAll(ctx context.Context) ([]*entity.Setting, error)
	Upsert(ctx context.Context, setting *entity.Setting) error
}

type WebhookEventRepository interface {
	Create(ctx context.Context, event *entity.PaymentWebhookEvent) error
	Update(ctx context.Context, event *entity.PaymentWebhookEvent) error
	FindByProviderEventID(ctx context.Context, provider entity.PaymentProvider, eventID string) (*entity.PaymentWebhookEvent, error)
}
