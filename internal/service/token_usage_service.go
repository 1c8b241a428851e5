package service

import (
	"context"
	"fmt"

	"chatbot-billing-be/internal/dto"
	"chatbot-billing-be/internal/entity"
	ierr "chatbot-billing-be/internal/pkg/errors"
	"chatbot-billing-be/internal/pkg/logger"
	"chatbot-billing-be/internal/pkg/result"
	"chatbot-billing-be/internal/repository/unitofwork"
	"chatbot-billing-be/pkg/billing/usage"
	"chatbot-billing-be/pkg/ratelimit"

	"github.com/samber/lo"
)

const usageModule = "USAGE"

const MsgRateLimited = "Too many requests for this bot, please retry shortly"

// ITokenUsageService is the surface the chat core calls around each response.
type ITokenUsageService interface {
	RegisterBot(ctx context.Context, userID, botID uint) (result.Result[*dto.TokenUsageResponse], error)
	CheckAvailability(ctx context.Context, userID, botID uint) (result.Result[*dto.AvailabilityResponse], error)
	CheckRateLimit(ctx context.Context, botID uint) (result.Result[ratelimit.Decision], error)
	RecordConsumption(ctx context.Context, userID, botID uint, req *dto.ConsumeRequest) (*dto.TokenUsageResponse, error)
	GetUsageSummary(ctx context.Context, userID uint) (*dto.UsageSummaryResponse, error)
	GetBotHistory(ctx context.Context, userID, botID uint) ([]dto.TokenUsageHistoryResponse, error)
}

type tokenUsageService struct {
	uowFactory unitofwork.RepositoryFactory
	syncer     *usage.Syncer
	limiter    ratelimit.Limiter
	logger     logger.ILogger
}

func NewTokenUsageService(uowFactory unitofwork.RepositoryFactory, syncer *usage.Syncer, limiter ratelimit.Limiter, logger logger.ILogger) ITokenUsageService {
	return &tokenUsageService{
		uowFactory: uowFactory,
		syncer:     syncer,
		limiter:    limiter,
		logger:     logger,
	}
}

// ensureOwner rejects bots that exist but belong to someone else.
func ensureOwner(ctx context.Context, uow unitofwork.UnitOfWork, userID, botID uint) error {
	bot, err := uow.BotRepository().FindByID(ctx, botID)
	if err != nil {
		return ierr.WithError(err).WithHint("Failed to load bot").Mark(ierr.ErrDatabase)
	}
	if bot != nil && bot.UserId != userID {
		return ierr.NewError("bot belongs to another user").
			WithHintf("Bot %d does not belong to this user", botID).
			Mark(ierr.ErrPermissionDenied)
	}
	return nil
}

func (s *tokenUsageService) RegisterBot(ctx context.Context, userID, botID uint) (result.Result[*dto.TokenUsageResponse], error) {
	var res result.Result[*entity.TokenUsage]

	uow := s.uowFactory.NewUnitOfWork(ctx)
	if err := ensureOwner(ctx, uow, userID, botID); err != nil {
		return result.Result[*dto.TokenUsageResponse]{}, err
	}

	err := unitofwork.WithinTransaction(ctx, uow, func() error {
		var err error
		res, err = s.syncer.GenerateTokenUsage(ctx, uow, botID, userID)
		return err
	})
	if err != nil {
		return result.Result[*dto.TokenUsageResponse]{}, err
	}

	row, ok := res.Value()
	if !ok {
		return result.Failure[*dto.TokenUsageResponse](res.Code(), res.Message()), nil
	}
	resp := toTokenUsageResponse(row)
	return result.Success(&resp, res.Message()), nil
}

func (s *tokenUsageService) CheckRateLimit(ctx context.Context, botID uint) (result.Result[ratelimit.Decision], error) {
	decision, err := s.limiter.Allow(ctx, fmt.Sprintf("bot:%d", botID))
	if err != nil {
		return result.Result[ratelimit.Decision]{}, ierr.WithError(err).WithHint("Failed to check rate limit").Mark(ierr.ErrSystem)
	}
	if !decision.Allowed {
		s.logger.Warn(usageModule, "Bot rate limited", map[string]interface{}{
			"bot_id": botID,
			"count":  decision.Count,
			"limit":  decision.Limit,
		})
		return result.Failure[ratelimit.Decision](result.CodeRateLimited, MsgRateLimited), nil
	}
	return result.Success(decision, "Within rate limit"), nil
}

// CheckAvailability verifies the pooled quota first so that a bot without
// quota does not spend its rate budget.
func (s *tokenUsageService) CheckAvailability(ctx context.Context, userID, botID uint) (result.Result[*dto.AvailabilityResponse], error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	if err := ensureOwner(ctx, uow, userID, botID); err != nil {
		return result.Result[*dto.AvailabilityResponse]{}, err
	}

	avail, err := s.syncer.VerifyTokenLimitAvailable(ctx, uow, botID)
	if err != nil {
		return result.Result[*dto.AvailabilityResponse]{}, err
	}
	quota, ok := avail.Value()
	if !ok {
		return result.Failure[*dto.AvailabilityResponse](avail.Code(), avail.Message()), nil
	}

	rate, err := s.CheckRateLimit(ctx, botID)
	if err != nil {
		return result.Result[*dto.AvailabilityResponse]{}, err
	}
	decision, ok := rate.Value()
	if !ok {
		return result.Failure[*dto.AvailabilityResponse](rate.Code(), rate.Message()), nil
	}

	return result.Success(&dto.AvailabilityResponse{
		BotID:      botID,
		TokenLimit: quota.TokenLimit,
		Consumed:   quota.Consumed,
		Remaining:  quota.Remaining,
		RateLimit:  int64(decision.Limit),
		RateUsed:   decision.Count,
		ResetInSec: int64(decision.ResetIn.Seconds()),
	}, avail.Message()), nil
}

func (s *tokenUsageService) RecordConsumption(ctx context.Context, userID, botID uint, req *dto.ConsumeRequest) (*dto.TokenUsageResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	if err := ensureOwner(ctx, uow, userID, botID); err != nil {
		return nil, err
	}

	token := entity.ConsumedToken{
		RequestToken:        req.RequestToken,
		ResponseToken:       req.ResponseToken,
		OpenAiRequestToken:  req.OpenAiRequestToken,
		OpenAiResponseToken: req.OpenAiResponseToken,
		RequestMessage:      req.RequestMessage,
		ResponseMessage:     req.ResponseMessage,
	}
	if err := s.syncer.UpdateTokenUsageOnConsumption(ctx, uow, botID, token, entity.ConsumedTokenType(req.ConsumedTokenType)); err != nil {
		return nil, err
	}

	row, err := uow.TokenUsageRepository().FindByBotID(ctx, botID)
	if err != nil {
		return nil, ierr.WithError(err).WithHint("Failed to load token usage").Mark(ierr.ErrDatabase)
	}
	if row == nil {
		return nil, ierr.NewError("token usage not found").WithHint(usage.MsgNoTokenUsage).Mark(ierr.ErrNotFound)
	}
	resp := toTokenUsageResponse(row)
	return &resp, nil
}

func (s *tokenUsageService) GetUsageSummary(ctx context.Context, userID uint) (*dto.UsageSummaryResponse, error) {
	summary, err := s.syncer.GetUsageSummary(ctx, s.uowFactory.NewUnitOfWork(ctx), userID)
	if err != nil {
		return nil, err
	}
	return &dto.UsageSummaryResponse{
		UserID:                   summary.UserID,
		TokenLimit:               summary.TokenLimit,
		CombinedTokenConsumption: summary.CombinedTokenConsumption,
		Remaining:                summary.Remaining,
		Credits:                  toCreditsResponse(summary.Credits),
		Bots:                     lo.Map(summary.Bots, func(u *entity.TokenUsage, _ int) dto.TokenUsageResponse { return toTokenUsageResponse(u) }),
	}, nil
}

// GetBotHistory lists the usage periods archived for a bot on each plan renewal.
func (s *tokenUsageService) GetBotHistory(ctx context.Context, userID, botID uint) ([]dto.TokenUsageHistoryResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	if err := ensureOwner(ctx, uow, userID, botID); err != nil {
		return nil, err
	}

	rows, err := s.syncer.ListUsageHistory(ctx, uow, botID)
	if err != nil {
		return nil, err
	}
	return lo.Map(rows, func(h *entity.TokenUsageHistory, _ int) dto.TokenUsageHistoryResponse {
		return toTokenUsageHistoryResponse(h)
	}), nil
}
