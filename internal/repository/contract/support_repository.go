package contract

import (
	"context"

	"chatbot-billing-be/internal/entity"
)

type SupportRepository interface {
	CreateTicket(ctx context.Context, ticket *entity.SupportTicket) error
	FindTicketBySubject(ctx context.Context, subject string, userID uint) (*entity.SupportTicket, error)
	ListTicketsByUserID(ctx context.Context, userID uint) ([]*entity.SupportTicket, error)
	CreateActivityLog(ctx context.Context, log *entity.ActivityLog) error
}
