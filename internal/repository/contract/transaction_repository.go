package contract

import (
	"context"

	"chatbot-billing-be/internal/entity"
)

// TransactionRepository finders return nil, nil when no row matches.
type TransactionRepository interface {
	Create(ctx context.Context, tx *entity.Transaction) error
	Update(ctx context.Context, tx *entity.Transaction) error
	FindByID(ctx context.Context, id uint) (*entity.Transaction, error)
	FindByOrderID(ctx context.Context, orderID string) (*entity.Transaction, error)
	FindByProviderPaymentID(ctx context.Context, providerPaymentID string) (*entity.Transaction, error)
	FindByProviderTransactionID(ctx context.Context, provider entity.PaymentProvider, providerTransactionID string) (*entity.Transaction, error)
	ListByUserID(ctx context.Context, userID uint) ([]*entity.Transaction, error)
}
