package service

import (
	"context"
	"strings"

	"chatbot-billing-be/internal/dto"
	"chatbot-billing-be/internal/entity"
	ierr "chatbot-billing-be/internal/pkg/errors"
	"chatbot-billing-be/internal/pkg/logger"
	"chatbot-billing-be/internal/repository/unitofwork"
	"chatbot-billing-be/pkg/billing/credit"
	"chatbot-billing-be/pkg/billing/events"
	"chatbot-billing-be/pkg/billing/ledger"
	"chatbot-billing-be/pkg/billing/usage"

	"github.com/google/uuid"
	"github.com/samber/lo"
)

const paymentModule = "PAYMENT"

type IPaymentService interface {
	CreateOrder(ctx context.Context, userID uint, req *dto.CreateOrderRequest) (*dto.TransactionResponse, error)
	ActivateTrial(ctx context.Context, userID uint, planID uint) (*dto.TrialResponse, error)
	GetTransaction(ctx context.Context, userID uint, orderID string) (*dto.TransactionResponse, error)
	GetCreditStatus(ctx context.Context, userID uint) (*dto.CreditStatusResponse, error)
	ListPlans(ctx context.Context) ([]dto.PlanResponse, error)
}

type paymentService struct {
	uowFactory      unitofwork.RepositoryFactory
	ledger          *ledger.Ledger
	credits         *credit.Manager
	syncer          *usage.Syncer
	publisher       events.Publisher
	defaultCurrency string
	logger          logger.ILogger
	newOrderID      func() string
}

func NewPaymentService(
	uowFactory unitofwork.RepositoryFactory,
	ledger *ledger.Ledger,
	credits *credit.Manager,
	syncer *usage.Syncer,
	publisher events.Publisher,
	defaultCurrency string,
	logger logger.ILogger,
) IPaymentService {
	return &paymentService{
		uowFactory:      uowFactory,
		ledger:          ledger,
		credits:         credits,
		syncer:          syncer,
		publisher:       publisher,
		defaultCurrency: defaultCurrency,
		logger:          logger,
		newOrderID:      func() string { return "order_" + strings.ReplaceAll(uuid.NewString(), "-", "") },
	}
}

func (s *paymentService) activePlan(ctx context.Context, uow unitofwork.UnitOfWork, planID uint) (*entity.Plan, error) {
	plan, err := uow.PlanRepository().FindByID(ctx, planID)
	if err != nil {
		return nil, ierr.WithError(err).WithHint("Failed to load plan").Mark(ierr.ErrDatabase)
	}
	if plan == nil || !plan.IsActive {
		return nil, ierr.NewError("plan not found").WithHintf("Plan %d not found", planID).Mark(ierr.ErrNotFound)
	}
	return plan, nil
}

// CreateOrder registers a payment attempt before the user is sent to the
// provider. Plan orders are priced from the plan; topups need an amount and a
// live grant to add to.
func (s *paymentService) CreateOrder(ctx context.Context, userID uint, req *dto.CreateOrderRequest) (*dto.TransactionResponse, error) {
	txType := entity.TransactionType(req.TransactionType)
	provider := entity.PaymentProvider(req.Provider)
	if provider == entity.ProviderTrial {
		return nil, ierr.NewError("trial orders are not payable").
			WithHint("Use the trial endpoint to activate a trial").
			Mark(ierr.ErrValidation)
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)
	var tx *entity.Transaction
	err := unitofwork.WithinTransaction(ctx, uow, func() error {
		params := ledger.CreateTransactionParams{
			UserID:   userID,
			Type:     txType,
			Provider: provider,
			OrderID:  s.newOrderID(),
			Currency: lo.CoalesceOrEmpty(strings.ToUpper(req.Currency), s.defaultCurrency),
		}

		switch txType {
		case entity.TransactionTypePlan:
			if req.PlanID == nil {
				return ierr.NewError("plan_id is required").WithHint("Plan ID is required for plan orders").Mark(ierr.ErrValidation)
			}
			plan, err := s.activePlan(ctx, uow, *req.PlanID)
			if err != nil {
				return err
			}
			params.PlanID = &plan.Id
			params.Amount = plan.Price
			params.Currency = lo.CoalesceOrEmpty(plan.Currency, params.Currency)
		case entity.TransactionTypeTopup:
			if req.Amount == nil || !req.Amount.IsPositive() {
				return ierr.NewError("amount is required").WithHint("Topup amount must be greater than zero").Mark(ierr.ErrValidation)
			}
			live, err := s.credits.GetActiveCredits(ctx, uow, userID)
			if err != nil {
				return err
			}
			params.PlanID = &live.PlanId
			params.Amount = *req.Amount
		}

		var err error
		tx, err = s.ledger.CreateTransaction(ctx, uow, params)
		return err
	})
	if err != nil {
		return nil, err
	}

	res := toTransactionResponse(tx)
	return &res, nil
}

// ActivateTrial grants a plan without a provider round trip. A user who
// already holds a grant cannot start a trial.
func (s *paymentService) ActivateTrial(ctx context.Context, userID uint, planID uint) (*dto.TrialResponse, error) {
	var (
		tx      *entity.Transaction
		credits *entity.UserCredits
		report  *usage.ResyncReport
	)

	uow := s.uowFactory.NewUnitOfWork(ctx)
	err := unitofwork.WithinTransaction(ctx, uow, func() error {
		existing, err := uow.CreditRepository().FindByUserID(ctx, userID)
		if err != nil {
			return ierr.WithError(err).WithHint("Failed to load user credits").Mark(ierr.ErrDatabase)
		}
		if existing != nil {
			return ierr.NewError("user already has a plan").
				WithHint("A trial can only be activated without an active plan").
				Mark(ierr.ErrInvalidOperation)
		}

		plan, err := s.activePlan(ctx, uow, planID)
		if err != nil {
			return err
		}

		tx, err = s.ledger.CreateTransaction(ctx, uow, ledger.CreateTransactionParams{
			UserID:   userID,
			PlanID:   &plan.Id,
			Type:     entity.TransactionTypePlan,
			Amount:   plan.Price,
			Currency: lo.CoalesceOrEmpty(plan.Currency, s.defaultCurrency),
			Provider: entity.ProviderTrial,
			OrderID:  s.newOrderID(),
			Status:   entity.TransactionStatusSuccess,
		})
		if err != nil {
			return err
		}

		if credits, err = s.credits.CreateUserCreditEntry(ctx, uow, tx.Id); err != nil {
			return err
		}
		report, err = s.syncer.CreateTokenUsage(ctx, uow, credits.Id, tx.Id)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.publisher.PublishCreditsRenewed(ctx, credits, report.Map())
	s.logger.Info(paymentModule, "Trial activated", map[string]interface{}{
		"user_id":        userID,
		"plan_id":        planID,
		"transaction_id": tx.Id,
		"user_credit_id": credits.Id,
	})

	return &dto.TrialResponse{
		Transaction: toTransactionResponse(tx),
		Credits:     *toCreditsResponse(credits),
		Resync:      report.Map(),
	}, nil
}

func (s *paymentService) GetTransaction(ctx context.Context, userID uint, orderID string) (*dto.TransactionResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	tx, err := s.ledger.FindByOrderID(ctx, uow, orderID)
	if err != nil {
		return nil, err
	}
	// Other users' orders look missing.
	if tx.UserId != userID {
		return nil, ierr.NewError("transaction not found").WithHintf("Transaction %s not found", orderID).Mark(ierr.ErrNotFound)
	}
	res := toTransactionResponse(tx)
	return &res, nil
}

func (s *paymentService) GetCreditStatus(ctx context.Context, userID uint) (*dto.CreditStatusResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	live, err := s.credits.GetActiveCredits(ctx, uow, userID)
	if err != nil && !ierr.IsNotFound(err) {
		return nil, err
	}
	history, err := s.credits.ListHistory(ctx, uow, userID)
	if err != nil {
		return nil, err
	}

	return &dto.CreditStatusResponse{
		Active:  toCreditsResponse(live),
		History: lo.Map(history, func(h *entity.HistoryUserCredits, _ int) dto.CreditHistoryResponse { return toCreditHistoryResponse(h) }),
	}, nil
}

func (s *paymentService) ListPlans(ctx context.Context) ([]dto.PlanResponse, error) {
	plans, err := s.uowFactory.NewUnitOfWork(ctx).PlanRepository().FindActive(ctx)
	if err != nil {
		return nil, ierr.WithError(err).WithHint("Failed to load plans").Mark(ierr.ErrDatabase)
	}
	return lo.Map(plans, func(p *entity.Plan, _ int) dto.PlanResponse { return toPlanResponse(p) }), nil
}
