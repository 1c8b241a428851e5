// Package usage keeps per-bot token usage rows in step with the user's live
// credit grant. All bots of a user draw from one pooled quota.
package usage

import (
	"context"
	"fmt"
	"time"

	"chatbot-billing-be/internal/entity"
	ierr "chatbot-billing-be/internal/pkg/errors"
	"chatbot-billing-be/internal/pkg/logger"
	"chatbot-billing-be/internal/pkg/result"
	"chatbot-billing-be/internal/repository/unitofwork"

	"github.com/samber/lo"
)

const logModule = "TOKEN_USAGE"

const (
	MsgNoActivePlan    = "User not found, please activate plan"
	MsgNoTokenUsage    = "Token usage not found for this bot, please activate plan"
	MsgLimitExhausted  = "Token limit exhausted, please upgrade your plan or purchase a topup"
	MsgLimitAvailable  = "Token limit available"
	MsgUsageCreated    = "Token usage created"
	MsgUsageAlreadySet = "Token usage already exists for this bot"
)

type TokenAvailability struct {
	BotID      uint    `json:"bot_id"`
	TokenLimit float64 `json:"token_limit"`
	Consumed   float64 `json:"combined_token_consumption"`
	Remaining  float64 `json:"remaining"`
}

type UsageSummary struct {
	UserID                   uint                 `json:"user_id"`
	Credits                  *entity.UserCredits  `json:"-"`
	TokenLimit               float64              `json:"token_limit"`
	CombinedTokenConsumption float64              `json:"combined_token_consumption"`
	Remaining                float64              `json:"remaining"`
	Bots                     []*entity.TokenUsage `json:"-"`
}

type Syncer struct {
	logger logger.ILogger
	now    func() time.Time
}

func NewSyncer(logger logger.ILogger) *Syncer {
	return &Syncer{logger: logger, now: time.Now}
}

func dbError(err error, hint string) error {
	return ierr.WithError(err).WithHint(hint).Mark(ierr.ErrDatabase)
}

// pooledConsumption is the user's shared consumption. Rows normally agree;
// the maximum guards against a row that missed an increment.
func pooledConsumption(rows []*entity.TokenUsage) float64 {
	if len(rows) == 0 {
		return 0
	}
	return lo.MaxBy(rows, func(a, b *entity.TokenUsage) bool {
		return a.CombinedTokenConsumption > b.CombinedTokenConsumption
	}).CombinedTokenConsumption
}

// GenerateTokenUsage creates the usage row of a newly created bot. The bot
// joins the user's pool: it inherits the limit and consumption of its
// siblings, or starts from the live grant when it is the first bot.
func (s *Syncer) GenerateTokenUsage(ctx context.Context, uow unitofwork.UnitOfWork, botID, userID uint) (result.Result[*entity.TokenUsage], error) {
	if botID == 0 || userID == 0 {
		return result.Failure[*entity.TokenUsage](result.CodeInvalidArgument, "bot_id and user_id must be positive"), nil
	}

	credits, err := uow.CreditRepository().FindByUserID(ctx, userID)
	if err != nil {
		return result.Result[*entity.TokenUsage]{}, dbError(err, "Failed to load user credits")
	}
	if credits == nil {
		s.logger.Warn(logModule, "No active plan for new bot", map[string]interface{}{
			"bot_id":  botID,
			"user_id": userID,
		})
		return result.Failure[*entity.TokenUsage](result.CodeNoActivePlan, MsgNoActivePlan), nil
	}

	if bot, err := uow.BotRepository().FindByID(ctx, botID); err != nil {
		return result.Result[*entity.TokenUsage]{}, dbError(err, "Failed to load bot")
	} else if bot != nil && bot.UserId != userID {
		return result.Failure[*entity.TokenUsage](result.CodeInvalidArgument, "Bot does not belong to this user"), nil
	}

	repo := uow.TokenUsageRepository()
	existing, err := repo.FindByBotAndUser(ctx, botID, userID)
	if err != nil {
		return result.Result[*entity.TokenUsage]{}, dbError(err, "Failed to load token usage")
	}
	if existing != nil {
		return result.Success(existing, MsgUsageAlreadySet), nil
	}

	siblings, err := repo.ListByUserID(ctx, userID)
	if err != nil {
		return result.Result[*entity.TokenUsage]{}, dbError(err, "Failed to load token usage")
	}

	usage := &entity.TokenUsage{
		BotId:        botID,
		UserId:       userID,
		UserCreditId: credits.Id,
		TokenLimit:   credits.TokenLimit(),
	}
	if len(siblings) > 0 {
		usage.TokenLimit = siblings[0].TokenLimit
		usage.CombinedTokenConsumption = pooledConsumption(siblings)
	}

	if err := repo.Create(ctx, usage); err != nil {
		return result.Result[*entity.TokenUsage]{}, dbError(err, "Failed to create token usage")
	}

	s.logger.Info(logModule, "Token usage created for bot", map[string]interface{}{
		"bot_id":                     botID,
		"user_id":                    userID,
		"user_credit_id":             credits.Id,
		"token_limit":                usage.TokenLimit,
		"combined_token_consumption": usage.CombinedTokenConsumption,
		"inherited":                  len(siblings) > 0,
	})
	return result.Success(usage, MsgUsageCreated), nil
}

func requireTransaction(uow unitofwork.UnitOfWork, op string) error {
	if uow == nil || !uow.InTransaction() {
		return ierr.NewError(op+" requires an active transaction").
			WithHint("Token usage resync must run inside a database transaction").
			Mark(ierr.ErrInvalidOperation)
	}
	return nil
}

// forEachBot runs fn for every bot of the user under its own savepoint. A
// failing bot is rolled back alone and recorded; the loop continues.
func (s *Syncer) forEachBot(ctx context.Context, uow unitofwork.UnitOfWork, report *ResyncReport, fn func(bot *entity.Bot) error) error {
	bots, err := uow.BotRepository().ListByUserID(ctx, report.UserID)
	if err != nil {
		return dbError(err, "Failed to load bots")
	}

	for _, bot := range bots {
		savepoint := fmt.Sprintf("token_usage_bot_%d", bot.Id)
		if err := uow.SavePoint(savepoint); err != nil {
			return dbError(err, "Failed to create savepoint")
		}

		if err := fn(bot); err != nil {
			if rbErr := uow.RollbackTo(savepoint); rbErr != nil {
				return dbError(rbErr, "Failed to roll back bot savepoint")
			}
			report.FailedBots = append(report.FailedBots, BotFailure{BotID: bot.Id, Error: err.Error()})
			s.logger.Error(logModule, "Token usage sync failed for bot", map[string]interface{}{
				"bot_id":    bot.Id,
				"user_id":   report.UserID,
				"credit_id": report.CreditID,
				"error":     err.Error(),
			})
		}
	}

	report.finish(len(bots))
	return nil
}

func (s *Syncer) logReport(msg string, report *ResyncReport) {
	if report.HasFailures() {
		s.logger.Warn(logModule, msg, report.Map())
		return
	}
	s.logger.Info(logModule, msg, report.Map())
}

// CreateTokenUsage resyncs every bot of the transaction's user to the credit
// grant creditID. Rows already stamped with creditID are left alone; other
// rows are archived to history and reset; missing rows are created. Must run
// inside the caller's transaction.
func (s *Syncer) CreateTokenUsage(ctx context.Context, uow unitofwork.UnitOfWork, creditID, transactionID uint) (*ResyncReport, error) {
	if creditID == 0 || transactionID == 0 {
		return nil, ierr.NewError("invalid resync arguments").
			WithHint("credit_id and transaction_id must be positive integers").
			Mark(ierr.ErrValidation)
	}
	if err := requireTransaction(uow, "create token usage"); err != nil {
		return nil, err
	}

	tx, err := uow.TransactionRepository().FindByID(ctx, transactionID)
	if err != nil {
		return nil, dbError(err, "Failed to load transaction")
	}
	if tx == nil {
		return nil, ierr.NewError("transaction not found").WithHintf("Transaction %d not found", transactionID).Mark(ierr.ErrNotFound)
	}

	credits, err := uow.CreditRepository().FindByID(ctx, creditID)
	if err != nil {
		return nil, dbError(err, "Failed to load user credits")
	}
	if credits == nil {
		return nil, ierr.NewError("user credits not found").WithHintf("User credits %d not found", creditID).Mark(ierr.ErrNotFound)
	}
	if credits.UserId != tx.UserId {
		return nil, ierr.NewError("credit and transaction owners differ").
			WithHintf("Credit %d does not belong to the user of transaction %d", creditID, transactionID).
			Mark(ierr.ErrInvalidOperation)
	}

	report := &ResyncReport{
		UserID:        tx.UserId,
		CreditID:      credits.Id,
		TransactionID: tx.Id,
		TokenLimit:    credits.TokenLimit(),
	}
	repo := uow.TokenUsageRepository()
	now := s.now()

	err = s.forEachBot(ctx, uow, report, func(bot *entity.Bot) error {
		usage, err := repo.FindByBotAndUser(ctx, bot.Id, report.UserID)
		if err != nil {
			return err
		}

		if usage == nil {
			usage = &entity.TokenUsage{BotId: bot.Id, UserId: report.UserID}
			usage.Reset(credits.Id, report.TokenLimit)
			if err := repo.Create(ctx, usage); err != nil {
				return err
			}
			report.Created = append(report.Created, bot.Id)
			return nil
		}

		if usage.UserCreditId == credits.Id {
			report.Skipped = append(report.Skipped, bot.Id)
			return nil
		}

		if err := repo.CreateHistory(ctx, usage.Snapshot(now)); err != nil {
			return err
		}
		usage.Reset(credits.Id, report.TokenLimit)
		if err := repo.Update(ctx, usage); err != nil {
			return err
		}
		report.Reset = append(report.Reset, bot.Id)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logReport("Token usage resync finished", report)
	return report, nil
}

// SyncTokenLimitsAfterTopup raises every bot's limit to the grant's new
// purchased total. Counters and pooled consumption are kept.
func (s *Syncer) SyncTokenLimitsAfterTopup(ctx context.Context, uow unitofwork.UnitOfWork, creditID uint) (*ResyncReport, error) {
	if creditID == 0 {
		return nil, ierr.NewError("invalid resync arguments").
			WithHint("credit_id must be a positive integer").
			Mark(ierr.ErrValidation)
	}
	if err := requireTransaction(uow, "sync token limits"); err != nil {
		return nil, err
	}

	credits, err := uow.CreditRepository().FindByID(ctx, creditID)
	if err != nil {
		return nil, dbError(err, "Failed to load user credits")
	}
	if credits == nil {
		return nil, ierr.NewError("user credits not found").WithHintf("User credits %d not found", creditID).Mark(ierr.ErrNotFound)
	}

	repo := uow.TokenUsageRepository()
	existing, err := repo.ListByUserID(ctx, credits.UserId)
	if err != nil {
		return nil, dbError(err, "Failed to load token usage")
	}
	pooled := pooledConsumption(existing)

	report := &ResyncReport{
		UserID:     credits.UserId,
		CreditID:   credits.Id,
		TokenLimit: credits.TokenLimit(),
	}

	err = s.forEachBot(ctx, uow, report, func(bot *entity.Bot) error {
		usage, err := repo.FindByBotAndUser(ctx, bot.Id, report.UserID)
		if err != nil {
			return err
		}

		if usage == nil {
			usage = &entity.TokenUsage{
				BotId:                    bot.Id,
				UserId:                   report.UserID,
				UserCreditId:             credits.Id,
				TokenLimit:               report.TokenLimit,
				CombinedTokenConsumption: pooled,
			}
			if err := repo.Create(ctx, usage); err != nil {
				return err
			}
			report.Created = append(report.Created, bot.Id)
			return nil
		}

		if usage.UserCreditId == credits.Id && usage.TokenLimit == report.TokenLimit {
			report.Skipped = append(report.Skipped, bot.Id)
			return nil
		}

		usage.UserCreditId = credits.Id
		usage.TokenLimit = report.TokenLimit
		if err := repo.Update(ctx, usage); err != nil {
			return err
		}
		report.Updated = append(report.Updated, bot.Id)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logReport("Token limits synced after topup", report)
	return report, nil
}

// VerifyTokenLimitAvailable reports whether the bot may consume more tokens.
func (s *Syncer) VerifyTokenLimitAvailable(ctx context.Context, uow unitofwork.UnitOfWork, botID uint) (result.Result[*TokenAvailability], error) {
	usage, err := uow.TokenUsageRepository().FindByBotID(ctx, botID)
	if err != nil {
		return result.Result[*TokenAvailability]{}, dbError(err, "Failed to load token usage")
	}
	if usage == nil {
		return result.Failure[*TokenAvailability](result.CodeNoTokenUsage, MsgNoTokenUsage), nil
	}
	if !usage.HasRemaining() {
		return result.Failure[*TokenAvailability](result.CodeLimitExhausted, MsgLimitExhausted), nil
	}
	return result.Success(&TokenAvailability{
		BotID:      botID,
		TokenLimit: usage.TokenLimit,
		Consumed:   usage.CombinedTokenConsumption,
		Remaining:  usage.Remaining(),
	}, MsgLimitAvailable), nil
}

func validateConsumption(t entity.ConsumedToken, channel entity.ConsumedTokenType) error {
	if !channel.Valid() {
		return ierr.NewError("invalid consumed token type").
			WithHintf("Unsupported consumed token type %q", channel).
			Mark(ierr.ErrValidation)
	}
	if t.RequestToken < 0 || t.ResponseToken < 0 || t.OpenAiRequestToken < 0 || t.OpenAiResponseToken < 0 {
		return ierr.NewError("negative token count").
			WithHint("Token counts must not be negative").
			Mark(ierr.ErrValidation)
	}
	return nil
}

// UpdateTokenUsageOnConsumption charges one consumption event. The bot's own
// channel counters grow by the raw counts; every usage row of the user grows
// by the weighted blend; the live grant is recomputed from the pooled total.
func (s *Syncer) UpdateTokenUsageOnConsumption(ctx context.Context, uow unitofwork.UnitOfWork, botID uint, token entity.ConsumedToken, channel entity.ConsumedTokenType) error {
	if err := validateConsumption(token, channel); err != nil {
		return err
	}

	return unitofwork.WithinTransaction(ctx, uow, func() error {
		repo := uow.TokenUsageRepository()
		usage, err := repo.FindByBotID(ctx, botID)
		if err != nil {
			return dbError(err, "Failed to load token usage")
		}
		if usage == nil {
			return ierr.NewError("token usage not found").WithHint(MsgNoTokenUsage).Mark(ierr.ErrNotFound)
		}

		// The grant lock serializes concurrent consumption for the same user,
		// so the row is read again once it is held.
		creditRepo := uow.CreditRepository()
		credits, err := creditRepo.FindByUserIDForUpdate(ctx, usage.UserId)
		if err != nil {
			return dbError(err, "Failed to load user credits")
		}
		if usage, err = repo.FindByBotID(ctx, botID); err != nil || usage == nil {
			return dbError(fmt.Errorf("reload token usage for bot %d: %w", botID, err), "Failed to load token usage")
		}

		usage.ChannelCounters.Add(channel, token)
		if err := repo.Update(ctx, usage); err != nil {
			return dbError(err, "Failed to update token usage")
		}

		delta := WeightedConsumption(token)
		if err := repo.IncrementCombinedConsumption(ctx, usage.UserId, delta); err != nil {
			return dbError(err, "Failed to update pooled consumption")
		}

		details := map[string]interface{}{
			"bot_id":          botID,
			"user_id":         usage.UserId,
			"channel":         channel,
			"weighted_delta":  delta,
			"request_chars":   len(token.RequestMessage),
			"response_chars":  len(token.ResponseMessage),
			"request_tokens":  token.RequestToken,
			"response_tokens": token.ResponseToken,
			"openai_request":  token.OpenAiRequestToken,
			"openai_response": token.OpenAiResponseToken,
		}

		if credits == nil {
			s.logger.Warn(logModule, "Consumption recorded without a live credit grant", details)
			return nil
		}

		refreshed, err := repo.FindByBotID(ctx, botID)
		if err != nil {
			return dbError(err, "Failed to reload token usage")
		}
		credits.ApplyConsumption(refreshed.CombinedTokenConsumption)
		if err := creditRepo.Update(ctx, credits); err != nil {
			return dbError(err, "Failed to update user credits")
		}

		details["combined_token_consumption"] = refreshed.CombinedTokenConsumption
		details["credit_balance"] = credits.CreditBalance.String()
		s.logger.Debug(logModule, "Token consumption recorded", details)
		return nil
	})
}

// ListUsageHistory returns the archived periods of a bot, newest first.
func (s *Syncer) ListUsageHistory(ctx context.Context, uow unitofwork.UnitOfWork, botID uint) ([]*entity.TokenUsageHistory, error) {
	rows, err := uow.TokenUsageRepository().ListHistoryByBotID(ctx, botID)
	if err != nil {
		return nil, dbError(err, "Failed to load token usage history")
	}
	return rows, nil
}

// GetUsageSummary returns every bot's row plus the pooled totals of the user.
func (s *Syncer) GetUsageSummary(ctx context.Context, uow unitofwork.UnitOfWork, userID uint) (*UsageSummary, error) {
	credits, err := uow.CreditRepository().FindByUserID(ctx, userID)
	if err != nil {
		return nil, dbError(err, "Failed to load user credits")
	}
	rows, err := uow.TokenUsageRepository().ListByUserID(ctx, userID)
	if err != nil {
		return nil, dbError(err, "Failed to load token usage")
	}

	summary := &UsageSummary{
		UserID:                   userID,
		Credits:                  credits,
		CombinedTokenConsumption: pooledConsumption(rows),
		Bots:                     rows,
	}
	switch {
	case credits != nil:
		summary.TokenLimit = credits.TokenLimit()
	case len(rows) > 0:
		summary.TokenLimit = rows[0].TokenLimit
	}
	if summary.TokenLimit > summary.CombinedTokenConsumption {
		summary.Remaining = summary.TokenLimit - summary.CombinedTokenConsumption
	}
	return summary, nil
}
