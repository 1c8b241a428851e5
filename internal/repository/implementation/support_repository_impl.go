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

type SupportRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.SupportMapper
}

func NewSupportRepository(db *gorm.DB) contract.SupportRepository {
	return &SupportRepositoryImpl{
		db:     db,
		mapper: mapper.NewSupportMapper(),
	}
}

func (r *SupportRepositoryImpl) CreateTicket(ctx context.Context, ticket *entity.SupportTicket) error {
	m := r.mapper.TicketToModel(ticket)
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return err
	}
	*ticket = *r.mapper.TicketToEntity(m)
	return nil
}

func (r *SupportRepositoryImpl) FindTicketBySubject(ctx context.Context, subject string, userID uint) (*entity.SupportTicket, error) {
	m, err := findOne[model.SupportTicket](ctx, r.db,
		specification.BySubject{Subject: subject},
		specification.UserOwnedBy{UserID: userID},
	)
	if err != nil || m == nil {
		return nil, err
	}
	return r.mapper.TicketToEntity(m), nil
}

func (r *SupportRepositoryImpl) ListTicketsByUserID(ctx context.Context, userID uint) ([]*entity.SupportTicket, error) {
	rows, err := findAll[model.SupportTicket](ctx, r.db.Scopes(scope.OrderByCreatedDesc), specification.UserOwnedBy{UserID: userID})
	if err != nil {
		return nil, err
	}
	result := make([]*entity.SupportTicket, 0, len(rows))
	for _, row := range rows {
		result = append(result, r.mapper.TicketToEntity(row))
	}
	return result, nil
}

func (r *SupportRepositoryImpl) CreateActivityLog(ctx context.Context, log *entity.ActivityLog) error {
	m, err := r.mapper.ActivityToModel(log)
	if err != nil {
		return err
	}
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return err
	}
	log.Id = m.Id
	log.CreatedAt = m.CreatedAt
	return nil
}
