package implementation

import (
	"context"

	"chatbot-billing-be/internal/entity"
	"chatbot-billing-be/internal/mapper"
	"chatbot-billing-be/internal/model"
	"chatbot-billing-be/internal/repository/contract"
	"chatbot-billing-be/internal/repository/specification"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type SettingsRepositoryImpl struct {
	db *gorm.DB
}

func NewSettingsRepository(db *gorm.DB) contract.SettingsRepository {
	return &SettingsRepositoryImpl{db: db}
}

func (r *SettingsRepositoryImpl) FindAll(ctx context.Context) ([]*entity.Setting, error) {
	rows, err := findAll[model.Setting](ctx, r.db)
	if err != nil {
		return nil, err
	}
	result := make([]*entity.Setting, 0, len(rows))
	for _, row := range rows {
		result = append(result, &entity.Setting{Key: row.Key, Value: row.Value, UpdatedAt: row.UpdatedAt})
	}
	return result, nil
}

func (r *SettingsRepositoryImpl) Upsert(ctx context.Context, setting *entity.Setting) error {
	m := &model.Setting{Key: setting.Key, Value: setting.Value}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(m).Error
}

type WebhookEventRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.SupportMapper
}

func NewWebhookEventRepository(db *gorm.DB) contract.WebhookEventRepository {
	return &WebhookEventRepositoryImpl{
		db:     db,
		mapper: mapper.NewSupportMapper(),
	}
}

func (r *WebhookEventRepositoryImpl) Create(ctx context.Context, event *entity.PaymentWebhookEvent) error {
	m := r.mapper.WebhookEventToModel(event)
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return err
	}
	event.Id = m.Id
	event.CreatedAt = m.CreatedAt
	return nil
}

func (r *WebhookEventRepositoryImpl) Update(ctx context.Context, event *entity.PaymentWebhookEvent) error {
	return r.db.WithContext(ctx).Save(r.mapper.WebhookEventToModel(event)).Error
}

func (r *WebhookEventRepositoryImpl) FindByProviderEventID(ctx context.Context, provider entity.PaymentProvider, eventID string) (*entity.PaymentWebhookEvent, error) {
	m, err := findOne[model.PaymentWebhookEvent](ctx, r.db, specification.ByProviderEvent{
		Provider: string(provider),
		EventID:  eventID,
	})
	if err != nil || m == nil {
		return nil, err
	}
	return r.mapper.WebhookEventToEntity(m), nil
}
