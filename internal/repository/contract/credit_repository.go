package contract

import (
	"context"

	"chatbot-billing-be/internal/entity"
)

type CreditRepository interface {
	Create(ctx context.Context, credits *entity.UserCredits) error
	Update(ctx context.Context, credits *entity.UserCredits) error
	Delete(ctx context.Context, id uint) error
	FindByID(ctx context.Context, id uint) (*entity.UserCredits, error)
	FindByUserID(ctx context.Context, userID uint) (*entity.UserCredits, error)
	// FindByUserIDForUpdate locks the row until the surrounding transaction ends.
	FindByUserIDForUpdate(ctx context.Context, userID uint) (*entity.UserCredits, error)

	CreateHistory(ctx context.Context, history *entity.HistoryUserCredits) error
	ListHistoryByUserID(ctx context.Context, userID uint) ([]*entity.HistoryUserCredits, error)

	CreateTopup(ctx context.Context, topup *entity.CreditTopup) error
	FindTopupByTransID(ctx context.Context, transID uint) (*entity.CreditTopup, error)
}
