package service

import (
	"chatbot-billing-be/internal/dto"
	"chatbot-billing-be/internal/entity"
)

func toTransactionResponse(tx *entity.Transaction) dto.TransactionResponse {
	return dto.TransactionResponse{
		ID:                    tx.Id,
		OrderID:               tx.OrderId,
		UserID:                tx.UserId,
		PlanID:                tx.PlanId,
		TransactionType:       string(tx.TransactionType),
		Amount:                tx.Amount,
		Currency:              tx.Currency,
		Provider:              string(tx.Provider),
		ProviderTransactionID: tx.ProviderTransactionId,
		ProviderPaymentID:     tx.ProviderPaymentId,
		Status:                string(tx.Status),
		FailureReason:         tx.FailureReason,
		CreatedAt:             tx.CreatedAt,
		CompletedAt:           tx.CompletedAt,
	}
}

func toCreditsResponse(c *entity.UserCredits) *dto.CreditsResponse {
	if c == nil {
		return nil
	}
	return &dto.CreditsResponse{
		ID:               c.Id,
		PlanID:           c.PlanId,
		TransID:          c.TransId,
		StartDate:        c.StartDate,
		ExpiryDate:       c.ExpiryDate,
		CreditsPurchased: c.CreditsPurchased,
		CreditsConsumed:  c.CreditsConsumed,
		CreditBalance:    c.CreditBalance,
		TokenPerUnit:     c.TokenPerUnit,
		ChatbotsAllowed:  c.ChatbotsAllowed,
		TokenLimit:       c.TokenLimit(),
	}
}

func toCreditHistoryResponse(h *entity.HistoryUserCredits) dto.CreditHistoryResponse {
	return dto.CreditHistoryResponse{
		OriginalCreditID: h.OriginalCreditId,
		PlanID:           h.PlanId,
		TransID:          h.TransId,
		StartDate:        h.StartDate,
		ExpiryDate:       h.ExpiryDate,
		CreditsPurchased: h.CreditsPurchased,
		CreditsConsumed:  h.CreditsConsumed,
		CreditBalance:    h.CreditBalance,
		ExpiryReason:     h.ExpiryReason,
		ArchivedAt:       h.ArchivedAt,
	}
}

func toPlanResponse(p *entity.Plan) dto.PlanResponse {
	return dto.PlanResponse{
		ID:              p.Id,
		Name:            p.Name,
		Price:           p.Price,
		Currency:        p.Currency,
		DurationDays:    p.DurationDays,
		TokenPerUnit:    p.TokenPerUnit,
		ChatbotsAllowed: p.ChatbotsAllowed,
	}
}

func toChannelUsage(c entity.ChannelCounters) map[string]dto.ChannelUsage {
	return map[string]dto.ChannelUsage{
		string(entity.ConsumedTokenUser):      {Request: c.UserRequestToken, Response: c.UserResponseToken},
		string(entity.ConsumedTokenWhatsapp):  {Request: c.WhatsappRequestToken, Response: c.WhatsappResponseToken},
		string(entity.ConsumedTokenSlack):     {Request: c.SlackRequestToken, Response: c.SlackResponseToken},
		string(entity.ConsumedTokenWordpress): {Request: c.WordpressRequestToken, Response: c.WordpressResponseToken},
		string(entity.ConsumedTokenZapier):    {Request: c.ZapierRequestToken, Response: c.ZapierResponseToken},
	}
}

func toTokenUsageResponse(u *entity.TokenUsage) dto.TokenUsageResponse {
	c := u.ChannelCounters
	return dto.TokenUsageResponse{
		BotID:                    u.BotId,
		UserCreditID:             u.UserCreditId,
		TokenLimit:               u.TokenLimit,
		CombinedTokenConsumption: u.CombinedTokenConsumption,
		Remaining:                u.Remaining(),
		OpenAi:                   dto.ChannelUsage{Request: c.OpenAiRequestToken, Response: c.OpenAiResponseToken},
		Channels:                 toChannelUsage(c),
		UpdatedAt:                u.UpdatedAt,
	}
}

func toTokenUsageHistoryResponse(h *entity.TokenUsageHistory) dto.TokenUsageHistoryResponse {
	c := h.ChannelCounters
	return dto.TokenUsageHistoryResponse{
		BotID:                    h.BotId,
		UserCreditID:             h.UserCreditId,
		TokenLimit:               h.TokenLimit,
		CombinedTokenConsumption: h.CombinedTokenConsumption,
		OpenAi:                   dto.ChannelUsage{Request: c.OpenAiRequestToken, Response: c.OpenAiResponseToken},
		Channels:                 toChannelUsage(c),
		ArchivedAt:               h.ArchivedAt,
	}
}
