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

type CreditRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.BillingMapper
}

func NewCreditRepository(db *gorm.DB) contract.CreditRepository {
	return &CreditRepositoryImpl{
		db:     db,
		mapper: mapper.NewBillingMapper(),
	}
}

func (r *CreditRepositoryImpl) Create(ctx context.Context, credits *entity.UserCredits) error {
	m := r.mapper.CreditsToModel(credits)
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return err
	}
	*credits = *r.mapper.CreditsToEntity(m)
	return nil
}

func (r *CreditRepositoryImpl) Update(ctx context.Context, credits *entity.UserCredits) error {
	m := r.mapper.CreditsToModel(credits)
	if err := r.db.WithContext(ctx).Save(m).Error; err != nil {
		return err
	}
	*credits = *r.mapper.CreditsToEntity(m)
	return nil
}

func (r *CreditRepositoryImpl) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&model.UserCredits{}).Error
}

func (r *CreditRepositoryImpl) findOne(ctx context.Context, specs ...specification.Specification) (*entity.UserCredits, error) {
	m, err := findOne[model.UserCredits](ctx, r.db, specs...)
	if err != nil || m == nil {
		return nil, err
	}
	return r.mapper.CreditsToEntity(m), nil
}

func (r *CreditRepositoryImpl) FindByID(ctx context.Context, id uint) (*entity.UserCredits, error) {
	return r.findOne(ctx, specification.ByID{ID: id})
}

func (r *CreditRepositoryImpl) FindByUserID(ctx context.Context, userID uint) (*entity.UserCredits, error) {
	return r.findOne(ctx, specification.UserOwnedBy{UserID: userID})
}

func (r *CreditRepositoryImpl) FindByUserIDForUpdate(ctx context.Context, userID uint) (*entity.UserCredits, error) {
	return r.findOne(ctx, specification.UserOwnedBy{UserID: userID}, specification.ForUpdate{})
}

func (r *CreditRepositoryImpl) CreateHistory(ctx context.Context, history *entity.HistoryUserCredits) error {
	m := r.mapper.HistoryToModel(history)
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return err
	}
	*history = *r.mapper.HistoryToEntity(m)
	return nil
}

func (r *CreditRepositoryImpl) ListHistoryByUserID(ctx context.Context, userID uint) ([]*entity.HistoryUserCredits, error) {
	rows, err := findAll[model.HistoryUserCredits](ctx, r.db,
		specification.UserOwnedBy{UserID: userID},
		specification.OrderBy{Field: "archived_at", Desc: true},
	)
	if err != nil {
		return nil, err
	}
	result := make([]*entity.HistoryUserCredits, 0, len(rows))
	for _, row := range rows {
		result = append(result, r.mapper.HistoryToEntity(row))
	}
	return result, nil
}

func (r *CreditRepositoryImpl) CreateTopup(ctx context.Context, topup *entity.CreditTopup) error {
	m := r.mapper.TopupToModel(topup)
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return err
	}
	*topup = *r.mapper.TopupToEntity(m)
	return nil
}

func (r *CreditRepositoryImpl) FindTopupByTransID(ctx context.Context, transID uint) (*entity.CreditTopup, error) {
	m, err := findOne[model.CreditTopup](ctx, r.db, specification.ByTransID{TransID: transID})
	if err != nil || m == nil {
		return nil, err
	}
	return r.mapper.TopupToEntity(m), nil
}
