package contract

import (
	"context"

	"chatbot-billing-be/internal/entity"
)

type TokenUsageRepository interface {
	Create(ctx context.Context, usage *entity.TokenUsage) error
	Update(ctx context.Context, usage *entity.TokenUsage) error
	FindByBotID(ctx context.Context, botID uint) (*entity.TokenUsage, error)
	FindByBotAndUser(ctx context.Context, botID, userID uint) (*entity.TokenUsage, error)
	ListByUserID(ctx context.Context, userID uint) ([]*entity.TokenUsage, error)
	// IncrementCombinedConsumption adds delta to every usage row of the user in one statement.
	IncrementCombinedConsumption(ctx context.Context, userID uint, delta float64) error

	CreateHistory(ctx context.Context, history *entity.TokenUsageHistory) error
	ListHistoryByBotID(ctx context.Context, botID uint) ([]*entity.TokenUsageHistory, error)
}
