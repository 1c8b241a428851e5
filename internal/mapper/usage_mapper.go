package mapper

import (
	"chatbot-billing-be/internal/entity"
	"chatbot-billing-be/internal/model"
)

type UsageMapper struct{}

func NewUsageMapper() *UsageMapper {
	return &UsageMapper{}
}

func countersToEntity(c model.ChannelCounters) entity.ChannelCounters {
	return entity.ChannelCounters{
		OpenAiRequestToken:     c.OpenAiRequestToken,
		OpenAiResponseToken:    c.OpenAiResponseToken,
		UserRequestToken:       c.UserRequestToken,
		UserResponseToken:      c.UserResponseToken,
		WhatsappRequestToken:   c.WhatsappRequestToken,
		WhatsappResponseToken:  c.WhatsappResponseToken,
		SlackRequestToken:      c.SlackRequestToken,
		SlackResponseToken:     c.SlackResponseToken,
		WordpressRequestToken:  c.WordpressRequestToken,
		WordpressResponseToken: c.WordpressResponseToken,
		ZapierRequestToken:     c.ZapierRequestToken,
		ZapierResponseToken:    c.ZapierResponseToken,
	}
}

func countersToModel(c entity.ChannelCounters) model.ChannelCounters {
	return model.ChannelCounters{
		OpenAiRequestToken:     c.OpenAiRequestToken,
		OpenAiResponseToken:    c.OpenAiResponseToken,
		UserRequestToken:       c.UserRequestToken,
		UserResponseToken:      c.UserResponseToken,
		WhatsappRequestToken:   c.WhatsappRequestToken,
		WhatsappResponseToken:  c.WhatsappResponseToken,
		SlackRequestToken:      c.SlackRequestToken,
		SlackResponseToken:     c.SlackResponseToken,
		WordpressRequestToken:  c.WordpressRequestToken,
		WordpressResponseToken: c.WordpressResponseToken,
		ZapierRequestToken:     c.ZapierRequestToken,
		ZapierResponseToken:    c.ZapierResponseToken,
	}
}

func (m *UsageMapper) ToEntity(u *model.TokenUsage) *entity.TokenUsage {
	if u == nil {
		return nil
	}
	return &entity.TokenUsage{
		Id:                       u.Id,
		BotId:                    u.BotId,
		UserId:                   u.UserId,
		UserCreditId:             u.UserCreditId,
		TokenLimit:               u.TokenLimit,
		CombinedTokenConsumption: u.CombinedTokenConsumption,
		ChannelCounters:          countersToEntity(u.ChannelCounters),
		CreatedAt:                u.CreatedAt,
		UpdatedAt:                u.UpdatedAt,
	}
}

func (m *UsageMapper) ToModel(u *entity.TokenUsage) *model.TokenUsage {
	if u == nil {
		return nil
	}
	return &model.TokenUsage{
		Id:                       u.Id,
		BotId:                    u.BotId,
		UserId:                   u.UserId,
		UserCreditId:             u.UserCreditId,
		TokenLimit:               u.TokenLimit,
		CombinedTokenConsumption: u.CombinedTokenConsumption,
		ChannelCounters:          countersToModel(u.ChannelCounters),
		CreatedAt:                u.CreatedAt,
		UpdatedAt:                u.UpdatedAt,
	}
}

func (m *UsageMapper) HistoryToEntity(h *model.TokenUsageHistory) *entity.TokenUsageHistory {
	if h == nil {
		return nil
	}
	return &entity.TokenUsageHistory{
		Id:                       h.Id,
		TokenUsageId:             h.TokenUsageId,
		BotId:                    h.BotId,
		UserId:                   h.UserId,
		UserCreditId:             h.UserCreditId,
		TokenLimit:               h.TokenLimit,
		CombinedTokenConsumption: h.CombinedTokenConsumption,
		ChannelCounters:          countersToEntity(h.ChannelCounters),
		ArchivedAt:               h.ArchivedAt,
	}
}

func (m *UsageMapper) HistoryToModel(h *entity.TokenUsageHistory) *model.TokenUsageHistory {
	if h == nil {
		return nil
	}
	return &model.TokenUsageHistory{
		Id:                       h.Id,
		TokenUsageId:             h.TokenUsageId,
		BotId:                    h.BotId,
		UserId:                   h.UserId,
		UserCreditId:             h.UserCreditId,
		TokenLimit:               h.TokenLimit,
		CombinedTokenConsumption: h.CombinedTokenConsumption,
		ChannelCounters:          countersToModel(h.ChannelCounters),
		ArchivedAt:               h.ArchivedAt,
	}
}
