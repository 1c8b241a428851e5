package contract

import (
	"context"

	"chatbot-billing-be/internal/entity"
)

type UserRepository interface {
	Create(ctx context.Context, user *entity.User) error
	FindByID(ctx context.Context, id uint) (*entity.User, error)
}

type PlanRepository interface {
	Create(ctx context.Context, plan *entity.Plan) error
	FindByID(ctx context.Context, id uint) (*entity.Plan, error)
	FindActive(ctx context.Context) ([]*entity.Plan, error)
}

type BotRepository interface {
	Create(ctx context.Context, bot *entity.Bot) error
	FindByID(ctx context.Context, id uint) (*entity.Bot, error)
	ListByUserID(ctx context.Context, userID uint) ([]*entity.Bot, error)
}
