// Package credit owns the lifecycle of a user's single live credit grant.
package credit

import (
	"context"
	"time"

	"chatbot-billing-be/internal/entity"
	ierr "chatbot-billing-be/internal/pkg/errors"
	"chatbot-billing-be/internal/pkg/logger"
	"chatbot-billing-be/internal/repository/unitofwork"

	"github.com/shopspring/decimal"
)

const logModule = "CREDITS"

type Manager struct {
	logger logger.ILogger
	now    func() time.Time
}

func NewManager(logger logger.ILogger) *Manager {
	return &Manager{logger: logger, now: time.Now}
}

func dbError(err error, hint string) error {
	return ierr.WithError(err).WithHint(hint).Mark(ierr.ErrDatabase)
}

func notFound(what string, id uint) error {
	return ierr.NewError(what+" not found").
		WithHintf("%s %d not found", what, id).
		Mark(ierr.ErrNotFound)
}

// CreateUserCreditEntry replaces the user's grant with one backed by transID.
// Seeing the same transID again returns the live grant unchanged. A different
// transID archives the live grant to history, deletes it and inserts a fresh one.
func (m *Manager) CreateUserCreditEntry(ctx context.Context, uow unitofwork.UnitOfWork, transID uint) (*entity.UserCredits, error) {
	if transID == 0 {
		return nil, ierr.NewError("trans_id is required").WithHint("Transaction ID must be positive").Mark(ierr.ErrValidation)
	}

	var credits *entity.UserCredits
	err := unitofwork.WithinTransaction(ctx, uow, func() error {
		tx, err := uow.TransactionRepository().FindByID(ctx, transID)
		if err != nil {
			return dbError(err, "Failed to load transaction")
		}
		if tx == nil {
			return notFound("Transaction", transID)
		}

		user, err := uow.UserRepository().FindByID(ctx, tx.UserId)
		if err != nil {
			return dbError(err, "Failed to load user")
		}
		if user == nil {
			return notFound("User", tx.UserId)
		}

		if tx.PlanId == nil {
			return ierr.NewError("transaction has no plan").
				WithHintf("Transaction %d is not linked to a plan", transID).
				Mark(ierr.ErrNotFound)
		}
		plan, err := uow.PlanRepository().FindByID(ctx, *tx.PlanId)
		if err != nil {
			return dbError(err, "Failed to load plan")
		}
		if plan == nil {
			return notFound("Plan", *tx.PlanId)
		}

		repo := uow.CreditRepository()
		existing, err := repo.FindByUserIDForUpdate(ctx, user.Id)
		if err != nil {
			return dbError(err, "Failed to load user credits")
		}

		if existing != nil && existing.TransId == transID {
			m.logger.Info(logModule, "Credit entry already current for transaction", map[string]interface{}{
				"user_id":  user.Id,
				"trans_id": transID,
			})
			credits = existing
			return nil
		}

		now := m.now()
		if existing != nil {
			if err := repo.CreateHistory(ctx, existing.Archive(entity.ExpiryReasonReplaced, now)); err != nil {
				return dbError(err, "Failed to archive user credits")
			}
			if err := repo.Delete(ctx, existing.Id); err != nil {
				return dbError(err, "Failed to remove superseded user credits")
			}
		}

		credits = &entity.UserCredits{
			UserId:           user.Id,
			PlanId:           plan.Id,
			TransId:          tx.Id,
			StartDate:        now,
			ExpiryDate:       plan.ExpiryFrom(now),
			CreditsPurchased: tx.Amount,
			CreditsConsumed:  decimal.Zero,
			CreditBalance:    tx.Amount,
			TokenPerUnit:     plan.TokenPerUnit,
			ChatbotsAllowed:  plan.ChatbotsAllowed,
		}
		if err := repo.Create(ctx, credits); err != nil {
			return dbError(err, "Failed to create user credits")
		}

		details := map[string]interface{}{
			"user_id":           user.Id,
			"user_credit_id":    credits.Id,
			"trans_id":          transID,
			"credits_purchased": credits.CreditsPurchased.String(),
		}
		if existing != nil {
			details["replaced_credit_id"] = existing.Id
		}
		m.logger.Info(logModule, "Credit entry created", details)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return credits, nil
}

// ApplyTopup adds a topup transaction's amount to the live grant. Expiry, plan
// and the backing trans_id are kept. Each topup transaction applies once.
func (m *Manager) ApplyTopup(ctx context.Context, uow unitofwork.UnitOfWork, transID uint) (*entity.UserCredits, error) {
	if transID == 0 {
		return nil, ierr.NewError("trans_id is required").WithHint("Transaction ID must be positive").Mark(ierr.ErrValidation)
	}

	var credits *entity.UserCredits
	err := unitofwork.WithinTransaction(ctx, uow, func() error {
		tx, err := uow.TransactionRepository().FindByID(ctx, transID)
		if err != nil {
			return dbError(err, "Failed to load transaction")
		}
		if tx == nil {
			return notFound("Transaction", transID)
		}
		if tx.TransactionType != entity.TransactionTypeTopup {
			return ierr.NewError("not a topup transaction").
				WithHintf("Transaction %d is a %s transaction", transID, tx.TransactionType).
				Mark(ierr.ErrInvalidOperation)
		}

		repo := uow.CreditRepository()
		credits, err = repo.FindByUserIDForUpdate(ctx, tx.UserId)
		if err != nil {
			return dbError(err, "Failed to load user credits")
		}
		if credits == nil {
			return ierr.NewError("no active credits").
				WithHint("User not found, please activate plan").
				Mark(ierr.ErrNotFound)
		}

		applied, err := repo.FindTopupByTransID(ctx, transID)
		if err != nil {
			return dbError(err, "Failed to load topup")
		}
		if applied != nil {
			m.logger.Info(logModule, "Topup already applied", map[string]interface{}{
				"user_id":  tx.UserId,
				"trans_id": transID,
			})
			return nil
		}

		credits.CreditsPurchased = credits.CreditsPurchased.Add(tx.Amount)
		credits.CreditBalance = credits.CreditBalance.Add(tx.Amount)
		if err := repo.Update(ctx, credits); err != nil {
			return dbError(err, "Failed to update user credits")
		}
		if err := repo.CreateTopup(ctx, &entity.CreditTopup{
			UserCreditId: credits.Id,
			TransId:      transID,
			Amount:       tx.Amount,
		}); err != nil {
			return dbError(err, "Failed to record topup")
		}

		m.logger.Info(logModule, "Topup applied", map[string]interface{}{
			"user_id":           tx.UserId,
			"user_credit_id":    credits.Id,
			"trans_id":          transID,
			"amount":            tx.Amount.String(),
			"credits_purchased": credits.CreditsPurchased.String(),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return credits, nil
}

func (m *Manager) GetActiveCredits(ctx context.Context, uow unitofwork.UnitOfWork, userID uint) (*entity.UserCredits, error) {
	credits, err := uow.CreditRepository().FindByUserID(ctx, userID)
	if err != nil {
		return nil, dbError(err, "Failed to load user credits")
	}
	if credits == nil {
		return nil, ierr.NewError("no active credits").
			WithHint("User not found, please activate plan").
			Mark(ierr.ErrNotFound)
	}
	return credits, nil
}

func (m *Manager) ListHistory(ctx context.Context, uow unitofwork.UnitOfWork, userID uint) ([]*entity.HistoryUserCredits, error) {
	history, err := uow.CreditRepository().ListHistoryByUserID(ctx, userID)
	if err != nil {
		return nil, dbError(err, "Failed to load credit history")
	}
	return history, nil
}
