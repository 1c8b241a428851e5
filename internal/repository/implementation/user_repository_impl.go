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

type UserRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.UserMapper
}

func NewUserRepository(db *gorm.DB) contract.UserRepository {
	return &UserRepositoryImpl{
		db:     db,
		mapper: mapper.NewUserMapper(),
	}
}

func (r *UserRepositoryImpl) Create(ctx context.Context, user *entity.User) error {
	modelUser := r.mapper.ToModel(user)
	if err := r.db.WithContext(ctx).Create(modelUser).Error; err != nil {
		return err
	}
	*user = *r.mapper.ToEntity(modelUser)
	return nil
}

func (r *UserRepositoryImpl) FindByID(ctx context.Context, id uint) (*entity.User, error) {
	m, err := findOne[model.User](ctx, r.db, specification.ByID{ID: id})
	if err != nil || m == nil {
		return nil, err
	}
	return r.mapper.ToEntity(m), nil
}

type PlanRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.UserMapper
}

func NewPlanRepository(db *gorm.DB) contract.PlanRepository {
	return &PlanRepositoryImpl{
		db:     db,
		mapper: mapper.NewUserMapper(),
	}
}

func (r *PlanRepositoryImpl) Create(ctx context.Context, plan *entity.Plan) error {
	m := r.mapper.PlanToModel(plan)
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return err
	}
	*plan = *r.mapper.PlanToEntity(m)
	return nil
}

func (r *PlanRepositoryImpl) FindByID(ctx context.Context, id uint) (*entity.Plan, error) {
	m, err := findOne[model.Plan](ctx, r.db, specification.ByID{ID: id})
	if err != nil || m == nil {
		return nil, err
	}
	return r.mapper.PlanToEntity(m), nil
}

func (r *PlanRepositoryImpl) FindActive(ctx context.Context) ([]*entity.Plan, error) {
	rows, err := findAll[model.Plan](ctx, r.db,
		specification.Filter("is_active", true),
		specification.OrderBy{Field: "price"},
	)
	if err != nil {
		return nil, err
	}
	result := make([]*entity.Plan, 0, len(rows))
	for _, row := range rows {
		result = append(result, r.mapper.PlanToEntity(row))
	}
	return result, nil
}

type BotRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.UserMapper
}

func NewBotRepository(db *gorm.DB) contract.BotRepository {
	return &BotRepositoryImpl{
		db:     db,
		mapper: mapper.NewUserMapper(),
	}
}

func (r *BotRepositoryImpl) Create(ctx context.Context, bot *entity.Bot) error {
	m := r.mapper.BotToModel(bot)
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return err
	}
	*bot = *r.mapper.BotToEntity(m)
	return nil
}

func (r *BotRepositoryImpl) FindByID(ctx context.Context, id uint) (*entity.Bot, error) {
	m, err := findOne[model.Bot](ctx, r.db, specification.ByID{ID: id})
	if err != nil || m == nil {
		return nil, err
	}
	return r.mapper.BotToEntity(m), nil
}

// ListByUserID excludes soft-deleted bots.
func (r *BotRepositoryImpl) ListByUserID(ctx context.Context, userID uint) ([]*entity.Bot, error) {
	rows, err := findAll[model.Bot](ctx, r.db,
		specification.UserOwnedBy{UserID: userID},
		specification.OrderBy{Field: "id"},
	)
	if err != nil {
		return nil, err
	}
	result := make([]*entity.Bot, 0, len(rows))
	for _, row := range rows {
		result = append(result, r.mapper.BotToEntity(row))
	}
	return result, nil
}
