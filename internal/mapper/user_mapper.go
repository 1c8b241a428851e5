package mapper

import (
	"chatbot-billing-be/internal/entity"
	"chatbot-billing-be/internal/model"
)

type UserMapper struct{}

func NewUserMapper() *UserMapper {
	return &UserMapper{}
}

func (m *UserMapper) ToEntity(u *model.User) *entity.User {
	if u == nil {
		return nil
	}
	return &entity.User{
		Id:        u.Id,
		Email:     u.Email,
		FullName:  u.FullName,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

func (m *UserMapper) ToModel(u *entity.User) *model.User {
	if u == nil {
		return nil
	}
	return &model.User{
		Id:        u.Id,
		Email:     u.Email,
		FullName:  u.FullName,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

func (m *UserMapper) BotToEntity(b *model.Bot) *entity.Bot {
	if b == nil {
		return nil
	}
	return &entity.Bot{
		Id:        b.Id,
		UserId:    b.UserId,
		Name:      b.Name,
		CreatedAt: b.CreatedAt,
		UpdatedAt: b.UpdatedAt,
	}
}

func (m *UserMapper) BotToModel(b *entity.Bot) *model.Bot {
	if b == nil {
		return nil
	}
	return &model.Bot{
		Id:        b.Id,
		UserId:    b.UserId,
		Name:      b.Name,
		CreatedAt: b.CreatedAt,
		UpdatedAt: b.UpdatedAt,
	}
}

func (m *UserMapper) PlanToEntity(p *model.Plan) *entity.Plan {
	if p == nil {
		return nil
	}
	return &entity.Plan{
		Id:              p.Id,
		Name:            p.Name,
		Price:           p.Price,
		Currency:        p.Currency,
		DurationDays:    p.DurationDays,
		TokenPerUnit:    p.TokenPerUnit,
		ChatbotsAllowed: p.ChatbotsAllowed,
		IsActive:        p.IsActive,
		CreatedAt:       p.CreatedAt,
		UpdatedAt:       p.UpdatedAt,
	}
}

func (m *UserMapper) PlanToModel(p *entity.Plan) *model.Plan {
	if p == nil {
		return nil
	}
	return &model.Plan{
		Id:              p.Id,
		Name:            p.Name,
		Price:           p.Price,
		Currency:        p.Currency,
		DurationDays:    p.DurationDays,
		TokenPerUnit:    p.TokenPerUnit,
		ChatbotsAllowed: p.ChatbotsAllowed,
		IsActive:        p.IsActive,
		CreatedAt:       p.CreatedAt,
		UpdatedAt:       p.UpdatedAt,
	}
}
