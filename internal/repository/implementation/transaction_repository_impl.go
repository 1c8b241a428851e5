package implementation

import (
	"context"

	"chatbot-billing-be/internal/entity"
	"chatbot-billing-be/internal/mapper"
	"chatbot-billing-be/internal/model"
	"chatbot-billing-be/internal/repository/contract"
	"chatbot-billing-be/internal/repository/scope"
	"chatbot-billing-be/internal/repository/specification"

	"gorm.io/gorm"
)

type TransactionRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.BillingMapper
}

func NewTransactionRepository(db *gorm.DB) contract.TransactionRepository {
	return &TransactionRepositoryImpl{
		db:     db,
		mapper: mapper.NewBillingMapper(),
	}
}

func (r *TransactionRepositoryImpl) Create(ctx context.Context, tx *entity.Transaction) error {
	m := r.mapper.TransactionToModel(tx)
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return err
	}
	*tx = *r.mapper.TransactionToEntity(m)
	return nil
}

func (r *TransactionRepositoryImpl) Update(ctx context.Context, tx *entity.Transaction) error {
	m := r.mapper.TransactionToModel(tx)
	if err := r.db.WithContext(ctx).Save(m).Error; err != nil {
		return err
	}
	*tx = *r.mapper.TransactionToEntity(m)
	return nil
}

func (r *TransactionRepositoryImpl) findOne(ctx context.Context, specs ...specification.Specification) (*entity.Transaction, error) {
	m, err := findOne[model.Transaction](ctx, r.db, specs...)
	if err != nil || m == nil {
		return nil, err
	}
	return r.mapper.TransactionToEntity(m), nil
}

func (r *TransactionRepositoryImpl) FindByID(ctx context.Context, id uint) (*entity.Transaction, error) {
	return r.findOne(ctx, specification.ByID{ID: id})
}

func (r *TransactionRepositoryImpl) FindByOrderID(ctx context.Context, orderID string) (*entity.Transaction, error) {
	return r.findOne(ctx, specification.ByOrderID{OrderID: orderID})
}

func (r *TransactionRepositoryImpl) FindByProviderPaymentID(ctx context.Context, providerPaymentID string) (*entity.Transaction, error) {
	return r.findOne(ctx, specification.ByProviderPaymentID{ProviderPaymentID: providerPaymentID})
}

func (r *TransactionRepositoryImpl) FindByProviderTransactionID(ctx context.Context, provider entity.PaymentProvider, providerTransactionID string) (*entity.Transaction, error) {
	return r.findOne(ctx, specification.ByProviderTransactionID{
		Provider:              string(provider),
		ProviderTransactionID: providerTransactionID,
	})
}

func (r *TransactionRepositoryImpl) ListByUserID(ctx context.Context, userID uint) ([]*entity.Transaction, error) {
	rows, err := findAll[model.Transaction](ctx, r.db.Scopes(scope.OrderByCreatedDesc), specification.UserOwnedBy{UserID: userID})
	if err != nil {
		return nil, err
	}
	result := make([]*entity.Transaction, 0, len(rows))
	for _, row := range rows {
		result = append(result, r.mapper.TransactionToEntity(row))
	}
	return result, nil
}
