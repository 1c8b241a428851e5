package implementation

import (
	"context"

	"chatbot-billing-be/internal/entity"
	"chatbot-billing-be/internal/mapper"
	"chatbot-billing-be/internal/model"
	"chatbot-billing-be/internal/repository/contract"
	"chatbot-billing-be/internal/repository/specification"

	"gorm.io/gorm"
)

type TokenUsageRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.UsageMapper
}

func NewTokenUsageRepository(db *gorm.DB) contract.TokenUsageRepository {
	return &TokenUsageRepositoryImpl{
		db:     db,
		mapper: mapper.NewUsageMapper(),
	}
}

func (r *TokenUsageRepositoryImpl) Create(ctx context.Context, usage *entity.TokenUsage) error {
	m := r.mapper.ToModel(usage)
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return err
	}
	*usage = *r.mapper.ToEntity(m)
	return nil
}

func (r *TokenUsageRepositoryImpl) Update(ctx context.Context, usage *entity.TokenUsage) error {
	m := r.mapper.ToModel(usage)
	if err := r.db.WithContext(ctx).Save(m).Error; err != nil {
		return err
	}
	*usage = *r.mapper.ToEntity(m)
	return nil
}

func (r *TokenUsageRepositoryImpl) findOne(ctx context.Context, specs ...specification.Specification) (*entity.TokenUsage, error) {
	m, err := findOne[model.TokenUsage](ctx, r.db, specs...)
	if err != nil || m == nil {
		return nil, err
	}
	return r.mapper.ToEntity(m), nil
}

func (r *TokenUsageRepositoryImpl) FindByBotID(ctx context.Context, botID uint) (*entity.TokenUsage, error) {
	return r.findOne(ctx, specification.ByBot{BotID: botID})
}

func (r *TokenUsageRepositoryImpl) FindByBotAndUser(ctx context.Context, botID, userID uint) (*entity.TokenUsage, error) {
	return r.findOne(ctx, specification.ByBot{BotID: botID}, specification.UserOwnedBy{UserID: userID})
}

func (r *TokenUsageRepositoryImpl) ListByUserID(ctx context.Context, userID uint) ([]*entity.TokenUsage, error) {
	rows, err := findAll[model.TokenUsage](ctx, r.db,
		specification.UserOwnedBy{UserID: userID},
		specification.OrderBy{Field: "id"},
	)
	if err != nil {
		return nil, err
	}
	result := make([]*entity.TokenUsage, 0, len(rows))
	for _, row := range rows {
		result = append(result, r.mapper.ToEntity(row))
	}
	return result, nil
}

func (r *TokenUsageRepositoryImpl) IncrementCombinedConsumption(ctx context.Context, userID uint, delta float64) error {
	return r.db.WithContext(ctx).Model(&model.TokenUsage{}).
		Where("user_id = ?", userID).
		Update("combined_token_consumption", gorm.Expr("combined_token_consumption + ?", delta)).Error
}

func (r *TokenUsageRepositoryImpl) CreateHistory(ctx context.Context, history *entity.TokenUsageHistory) error {
	m := r.mapper.HistoryToModel(history)
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return err
	}
	*history = *r.mapper.HistoryToEntity(m)
	return nil
}

func (r *TokenUsageRepositoryImpl) ListHistoryByBotID(ctx context.Context, botID uint) ([]*entity.TokenUsageHistory, error) {
	rows, err := findAll[model.TokenUsageHistory](ctx, r.db,
		specification.ByBot{BotID: botID},
		specification.OrderBy{Field: "archived_at", Desc: true},
	)
	if err != nil {
		return nil, err
	}
	result := make([]*entity.TokenUsageHistory, 0, len(rows))
	for _, row := range rows {
		result = append(result, r.mapper.HistoryToEntity(row))
	}
	return result, nil
}
