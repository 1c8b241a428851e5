// Package ledger records payment attempts and drives their status machine.
// Webhooks never create transactions; they only update them.
package ledger

import (
	"context"
	"strings"
	"time"

	"chatbot-billing-be/internal/entity"
	ierr "chatbot-billing-be/internal/pkg/errors"
	"chatbot-billing-be/internal/pkg/logger"
	"chatbot-billing-be/internal/repository/contract"
	"chatbot-billing-be/internal/repository/unitofwork"
	"chatbot-billing-be/pkg/database"

	"github.com/shopspring/decimal"
)

const logModule = "LEDGER"

type CreateTransactionParams struct {
	UserID                uint
	PlanID                *uint
	Type                  entity.TransactionType
	Amount                decimal.Decimal
	Currency              string
	Provider              entity.PaymentProvider
	OrderID               string
	Status                entity.TransactionStatus // defaults to created
	ProviderTransactionID *string
	ProviderPaymentID     *string
}

// UpdateTransactionParams locates a transaction by OrderID, then ProviderPaymentID,
// then ProviderTransactionID. Nil fields are left untouched.
type UpdateTransactionParams struct {
	OrderID               *string
	ProviderPaymentID     *string
	ProviderTransactionID *string
	// Provider scopes the provider_transaction_id lookup. Empty matches any provider.
	Provider      entity.PaymentProvider
	Status        *entity.TransactionStatus
	Amount        *decimal.Decimal
	Currency      *string
	FailureReason *string
}

type UpdateResult struct {
	Transaction    *entity.Transaction
	PreviousStatus entity.TransactionStatus
	StatusChanged  bool
	// StatusIgnored is set when the incoming status would reopen a settled
	// transaction or move a refunded one.
	StatusIgnored bool
}

type Ledger struct {
	logger logger.ILogger
	now    func() time.Time
}

func New(logger logger.ILogger) *Ledger {
	return &Ledger{logger: logger, now: time.Now}
}

func (l *Ledger) validateCreate(p *CreateTransactionParams) error {
	if p.Status == "" {
		p.Status = entity.TransactionStatusCreated
	}
	switch {
	case strings.TrimSpace(p.OrderID) == "":
		return ierr.NewError("order_id is required").WithHint("Order ID is required").Mark(ierr.ErrValidation)
	case p.UserID == 0:
		return ierr.NewError("user_id is required").WithHint("User ID is required").Mark(ierr.ErrValidation)
	case !p.Type.Valid():
		return ierr.NewError("invalid transaction type").
			WithHintf("Transaction type must be one of plan, topup; got %q", p.Type).
			Mark(ierr.ErrValidation)
	case !p.Provider.Valid():
		return ierr.NewError("invalid provider").
			WithHintf("Unsupported payment provider %q", p.Provider).
			Mark(ierr.ErrValidation)
	case !p.Status.Valid():
		return ierr.NewError("invalid status").
			WithHintf("Unsupported transaction status %q", p.Status).
			Mark(ierr.ErrValidation)
	case strings.TrimSpace(p.Currency) == "":
		return ierr.NewError("currency is required").WithHint("Currency is required").Mark(ierr.ErrValidation)
	case p.Amount.IsNegative():
		return ierr.NewError("negative amount").WithHint("Amount must not be negative").Mark(ierr.ErrValidation)
	case p.Amount.IsZero() && p.Provider != entity.ProviderTrial:
		return ierr.NewError("zero amount").WithHint("Amount must be greater than zero").Mark(ierr.ErrValidation)
	}
	return nil
}

func duplicateOrder(orderID string) error {
	return ierr.NewError("duplicate order_id").
		WithHintf("Transaction with order ID %s already exists", orderID).
		WithReportableDetails(map[string]any{"order_id": orderID}).
		Mark(ierr.ErrAlreadyExists)
}

// CreateTransaction is the only way a transaction comes into existence.
func (l *Ledger) CreateTransaction(ctx context.Context, uow unitofwork.UnitOfWork, p CreateTransactionParams) (*entity.Transaction, error) {
	if err := l.validateCreate(&p); err != nil {
		return nil, err
	}

	repo := uow.TransactionRepository()
	existing, err := repo.FindByOrderID(ctx, p.OrderID)
	if err != nil {
		return nil, ierr.WithError(err).WithHint("Failed to look up transaction").Mark(ierr.ErrDatabase)
	}
	if existing != nil {
		return nil, duplicateOrder(p.OrderID)
	}

	tx := &entity.Transaction{
		UserId:                p.UserID,
		PlanId:                p.PlanID,
		TransactionType:       p.Type,
		Amount:                p.Amount,
		Currency:              strings.ToUpper(p.Currency),
		Provider:              p.Provider,
		ProviderTransactionId: nonEmpty(p.ProviderTransactionID),
		ProviderPaymentId:     nonEmpty(p.ProviderPaymentID),
		Status:                p.Status,
		OrderId:               p.OrderID,
	}
	if tx.Status.IsTerminal() {
		now := l.now()
		tx.CompletedAt = &now
	}

	if err := repo.Create(ctx, tx); err != nil {
		if database.IsUniqueViolation(err) {
			return nil, duplicateOrder(p.OrderID)
		}
		return nil, ierr.WithError(err).WithHint("Failed to create transaction").Mark(ierr.ErrDatabase)
	}

	l.logger.Info(logModule, "Transaction created", map[string]interface{}{
		"transaction_id": tx.Id,
		"order_id":       tx.OrderId,
		"user_id":        tx.UserId,
		"provider":       tx.Provider,
		"status":         tx.Status,
	})
	return tx, nil
}

func (l *Ledger) locate(ctx context.Context, repo contract.TransactionRepository, p UpdateTransactionParams) (*entity.Transaction, error) {
	if id := nonEmpty(p.OrderID); id != nil {
		tx, err := repo.FindByOrderID(ctx, *id)
		if err != nil || tx != nil {
			return tx, err
		}
	}
	if id := nonEmpty(p.ProviderPaymentID); id != nil {
		tx, err := repo.FindByProviderPaymentID(ctx, *id)
		if err != nil || tx != nil {
			return tx, err
		}
	}
	if id := nonEmpty(p.ProviderTransactionID); id != nil {
		return repo.FindByProviderTransactionID(ctx, p.Provider, *id)
	}
	return nil, nil
}

// UpdateTransaction applies a provider update. completed_at is stamped only on a
// genuine transition into a terminal status, and provider ids are backfilled
// only while empty so a retry without ids cannot clobber them.
func (l *Ledger) UpdateTransaction(ctx context.Context, uow unitofwork.UnitOfWork, p UpdateTransactionParams) (*UpdateResult, error) {
	if nonEmpty(p.OrderID) == nil && nonEmpty(p.ProviderPaymentID) == nil && nonEmpty(p.ProviderTransactionID) == nil {
		return nil, ierr.NewError("no transaction identifier").
			WithHint("One of order_id, provider_payment_id or provider_transaction_id is required").
			Mark(ierr.ErrValidation)
	}
	if p.Status != nil && !p.Status.Valid() {
		return nil, ierr.NewError("invalid status").
			WithHintf("Unsupported transaction status %q", *p.Status).
			Mark(ierr.ErrValidation)
	}

	repo := uow.TransactionRepository()
	tx, err := l.locate(ctx, repo, p)
	if err != nil {
		return nil, ierr.WithError(err).WithHint("Failed to look up transaction").Mark(ierr.ErrDatabase)
	}
	if tx == nil {
		return nil, ierr.NewError("transaction not found").
			WithHint("Transaction not found").
			WithReportableDetails(map[string]any{
				"order_id":                deref(p.OrderID),
				"provider_payment_id":     deref(p.ProviderPaymentID),
				"provider_transaction_id": deref(p.ProviderTransactionID),
			}).
			Mark(ierr.ErrNotFound)
	}

	result := &UpdateResult{PreviousStatus: tx.Status}

	switch {
	case p.Status == nil || *p.Status == tx.Status:
	case tx.Status.IsTerminal() && !p.Status.IsTerminal(),
		tx.Status == entity.TransactionStatusRefunded:
		// Providers deliver out of order; a late pending never reopens a settled
		// payment and nothing moves a refund back to success.
		result.StatusIgnored = true
		l.logger.Warn(logModule, "Ignoring status regression", map[string]interface{}{
			"transaction_id": tx.Id,
			"order_id":       tx.OrderId,
			"current":        tx.Status,
			"incoming":       *p.Status,
		})
	default:
		tx.Status = *p.Status
		result.StatusChanged = true
		if tx.Status.IsTerminal() {
			now := l.now()
			tx.CompletedAt = &now
		}
	}
	if id := nonEmpty(p.ProviderPaymentID); id != nil && nonEmpty(tx.ProviderPaymentId) == nil {
		tx.ProviderPaymentId = id
	}
	if id := nonEmpty(p.ProviderTransactionID); id != nil && nonEmpty(tx.ProviderTransactionId) == nil {
		tx.ProviderTransactionId = id
	}
	if p.Amount != nil {
		tx.Amount = *p.Amount
	}
	if p.Currency != nil && *p.Currency != "" {
		tx.Currency = strings.ToUpper(*p.Currency)
	}
	if p.FailureReason != nil {
		tx.FailureReason = p.FailureReason
	}

	if err := repo.Update(ctx, tx); err != nil {
		if database.IsUniqueViolation(err) {
			return nil, ierr.WithError(err).
				WithHint("Provider identifier already belongs to another transaction").
				Mark(ierr.ErrAlreadyExists)
		}
		return nil, ierr.WithError(err).WithHint("Failed to update transaction").Mark(ierr.ErrDatabase)
	}

	if result.StatusChanged {
		l.logger.Info(logModule, "Transaction status changed", map[string]interface{}{
			"transaction_id": tx.Id,
			"order_id":       tx.OrderId,
			"from":           result.PreviousStatus,
			"to":             tx.Status,
		})
	}

	result.Transaction = tx
	return result, nil
}

func (l *Ledger) FindByID(ctx context.Context, uow unitofwork.UnitOfWork, id uint) (*entity.Transaction, error) {
	tx, err := uow.TransactionRepository().FindByID(ctx, id)
	if err != nil {
		return nil, ierr.WithError(err).WithHint("Failed to look up transaction").Mark(ierr.ErrDatabase)
	}
	if tx == nil {
		return nil, ierr.NewError("transaction not found").WithHintf("Transaction %d not found", id).Mark(ierr.ErrNotFound)
	}
	return tx, nil
}

func (l *Ledger) FindByOrderID(ctx context.Context, uow unitofwork.UnitOfWork, orderID string) (*entity.Transaction, error) {
	tx, err := uow.TransactionRepository().FindByOrderID(ctx, orderID)
	if err != nil {
		return nil, ierr.WithError(err).WithHint("Failed to look up transaction").Mark(ierr.ErrDatabase)
	}
	if tx == nil {
		return nil, ierr.NewError("transaction not found").WithHintf("Transaction %s not found", orderID).Mark(ierr.ErrNotFound)
	}
	return tx, nil
}

func nonEmpty(s *string) *string {
	if s == nil || strings.TrimSpace(*s) == "" {
		return nil
	}
	return s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
