package mapper

import (
	"chatbot-billing-be/internal/entity"
	"chatbot-billing-be/internal/model"
)

type BillingMapper struct{}

func NewBillingMapper() *BillingMapper {
	return &BillingMapper{}
}

func (m *BillingMapper) TransactionToEntity(t *model.Transaction) *entity.Transaction {
	if t == nil {
		return nil
	}
	return &entity.Transaction{
		Id:                    t.Id,
		UserId:                t.UserId,
		PlanId:                t.PlanId,
		TransactionType:       entity.TransactionType(t.TransactionType),
		Amount:                t.Amount,
		Currency:              t.Currency,
		Provider:              entity.PaymentProvider(t.Provider),
		ProviderTransactionId: t.ProviderTransactionId,
		ProviderPaymentId:     t.ProviderPaymentId,
		Status:                entity.TransactionStatus(t.Status),
		OrderId:               t.OrderId,
		FailureReason:         t.FailureReason,
		CreatedAt:             t.CreatedAt,
		UpdatedAt:             t.UpdatedAt,
		CompletedAt:           t.CompletedAt,
	}
}

func (m *BillingMapper) TransactionToModel(t *entity.Transaction) *model.Transaction {
	if t == nil {
		return nil
	}
	return &model.Transaction{
		Id:                    t.Id,
		UserId:                t.UserId,
		PlanId:                t.PlanId,
		TransactionType:       string(t.TransactionType),
		Amount:                t.Amount,
		Currency:              t.Currency,
		Provider:              string(t.Provider),
		ProviderTransactionId: t.ProviderTransactionId,
		ProviderPaymentId:     t.ProviderPaymentId,
		Status:                string(t.Status),
		OrderId:               t.OrderId,
		FailureReason:         t.FailureReason,
		CreatedAt:             t.CreatedAt,
		UpdatedAt:             t.UpdatedAt,
		CompletedAt:           t.CompletedAt,
	}
}

func (m *BillingMapper) CreditsToEntity(c *model.UserCredits) *entity.UserCredits {
	if c == nil {
		return nil
	}
	return &entity.UserCredits{
		Id:               c.Id,
		UserId:           c.UserId,
		PlanId:           c.PlanId,
		TransId:          c.TransId,
		StartDate:        c.StartDate,
		ExpiryDate:       c.ExpiryDate,
		CreditsPurchased: c.CreditsPurchased,
		CreditsConsumed:  c.CreditsConsumed,
		CreditBalance:    c.CreditBalance,
		TokenPerUnit:     c.TokenPerUnit,
		ChatbotsAllowed:  c.ChatbotsAllowed,
		CreatedAt:        c.CreatedAt,
		UpdatedAt:        c.UpdatedAt,
	}
}

func (m *BillingMapper) CreditsToModel(c *entity.UserCredits) *model.UserCredits {
	if c == nil {
		return nil
	}
	return &model.UserCredits{
		Id:               c.Id,
		UserId:           c.UserId,
		PlanId:           c.PlanId,
		TransId:          c.TransId,
		StartDate:        c.StartDate,
		ExpiryDate:       c.ExpiryDate,
		CreditsPurchased: c.CreditsPurchased,
		CreditsConsumed:  c.CreditsConsumed,
		CreditBalance:    c.CreditBalance,
		TokenPerUnit:     c.TokenPerUnit,
		ChatbotsAllowed:  c.ChatbotsAllowed,
		CreatedAt:        c.CreatedAt,
		UpdatedAt:        c.UpdatedAt,
	}
}

func (m *BillingMapper) HistoryToEntity(h *model.HistoryUserCredits) *entity.HistoryUserCredits {
	if h == nil {
		return nil
	}
	return &entity.HistoryUserCredits{
		Id:               h.Id,
		OriginalCreditId: h.OriginalCreditId,
		UserId:           h.UserId,
		PlanId:           h.PlanId,
		TransId:          h.TransId,
		StartDate:        h.StartDate,
		ExpiryDate:       h.ExpiryDate,
		CreditsPurchased: h.CreditsPurchased,
		CreditsConsumed:  h.CreditsConsumed,
		CreditBalance:    h.CreditBalance,
		TokenPerUnit:     h.TokenPerUnit,
		ChatbotsAllowed:  h.ChatbotsAllowed,
		ExpiryReason:     h.ExpiryReason,
		ArchivedAt:       h.ArchivedAt,
	}
}

func (m *BillingMapper) HistoryToModel(h *entity.HistoryUserCredits) *model.HistoryUserCredits {
	if h == nil {
		return nil
	}
	return &model.HistoryUserCredits{
		Id:               h.Id,
		OriginalCreditId: h.OriginalCreditId,
		UserId:           h.UserId,
		PlanId:           h.PlanId,
		TransId:          h.TransId,
		StartDate:        h.StartDate,
		ExpiryDate:       h.ExpiryDate,
		CreditsPurchased: h.CreditsPurchased,
		CreditsConsumed:  h.CreditsConsumed,
		CreditBalance:    h.CreditBalance,
		TokenPerUnit:     h.TokenPerUnit,
		ChatbotsAllowed:  h.ChatbotsAllowed,
		ExpiryReason:     h.ExpiryReason,
		ArchivedAt:       h.ArchivedAt,
	}
}

func (m *BillingMapper) TopupToEntity(t *model.CreditTopup) *entity.CreditTopup {
	if t == nil {
		return nil
	}
	return &entity.CreditTopup{
		Id:           t.Id,
		UserCreditId: t.UserCreditId,
		TransId:      t.TransId,
		Amount:       t.Amount,
		CreatedAt:    t.CreatedAt,
	}
}

func (m *BillingMapper) TopupToModel(t *entity.CreditTopup) *model.CreditTopup {
	if t == nil {
		return nil
	}
	return &model.CreditTopup{
		Id:           t.Id,
		UserCreditId: t.UserCreditId,
		TransId:      t.TransId,
		Amount:       t.Amount,
		CreatedAt:    t.CreatedAt,
	}
}
