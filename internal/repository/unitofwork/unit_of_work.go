package unitofwork

import (
	"context"

	"chatbot-billing-be/internal/repository/contract"
)

type UnitOfWork interface {
	Begin(ctx context.Context) error
	Commit() error
	Rollback() error
	// InTransaction reports whether Begin has been called without a matching Commit/Rollback.
	InTransaction() bool
	// SavePoint and RollbackTo scope partial rollbacks inside the active transaction.
	SavePoint(name string) error
	RollbackTo(name string) error

	TransactionRepository() contract.TransactionRepository
	CreditRepository() contract.CreditRepository
	TokenUsageRepository() contract.TokenUsageRepository
	SupportRepository() contract.SupportRepository
	UserRepository() contract.UserRepository
	PlanRepository() contract.PlanRepository
	BotRepository() contract.BotRepository
	SettingsRepository() contract.SettingsRepository
	WebhookEventRepository() contract.WebhookEventRepository
}
