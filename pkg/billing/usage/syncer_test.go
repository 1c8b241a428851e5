package usage

import (
	"context"
	"errors"
	"testing"
	"time"

	"chatbot-billing-be/internal/entity"
	ierr "chatbot-billing-be/internal/pkg/errors"
	"chatbot-billing-be/internal/pkg/logger"
	"chatbot-billing-be/internal/pkg/result"
	"chatbot-billing-be/internal/testutil"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const userID = uint(7)

type fixture struct {
	ctx     context.Context
	store   *testutil.Store
	syncer  *Syncer
	plan    *entity.Plan
	tx      *entity.Transaction
	credits *entity.UserCredits
}

func newFixture(t *testing.T, purchased int64, tokenPerUnit int) *fixture {
	t.Helper()
	store := testutil.NewStore()
	store.AddUser(entity.User{Id: userID, Email: "owner@example.com"})
	plan := store.AddPlan(entity.Plan{Name: "Pro", DurationDays: 30, TokenPerUnit: tokenPerUnit, ChatbotsAllowed: 5})
	tx := store.AddTransaction(entity.Transaction{
		UserId: userID, PlanId: lo.ToPtr(plan.Id), OrderId: "order_1",
		TransactionType: entity.TransactionTypePlan, Amount: decimal.NewFromInt(purchased),
		Currency: "INR", Provider: entity.ProviderCashfree, Status: entity.TransactionStatusSuccess,
	})
	credits := store.AddCredits(entity.UserCredits{
		UserId: userID, PlanId: plan.Id, TransId: tx.Id,
		CreditsPurchased: decimal.NewFromInt(purchased), CreditBalance: decimal.NewFromInt(purchased),
		TokenPerUnit: tokenPerUnit, ChatbotsAllowed: 5,
	})

	s := NewSyncer(logger.NewNopLogger())
	s.now = func() time.Time { return time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC) }

	return &fixture{ctx: context.Background(), store: store, syncer: s, plan: plan, tx: tx, credits: credits}
}

func (f *fixture) resync(t *testing.T, creditID, transactionID uint) *ResyncReport {
	t.Helper()
	uow := f.store.NewUnitOfWork(f.ctx)
	require.NoError(t, uow.Begin(f.ctx))
	report, err := f.syncer.CreateTokenUsage(f.ctx, uow, creditID, transactionID)
	require.NoError(t, err)
	require.NoError(t, uow.Commit())
	return report
}

func usageFor(t *testing.T, store *testutil.Store, botID uint) entity.TokenUsage {
	t.Helper()
	row, ok := lo.Find(store.TokenUsages(), func(u entity.TokenUsage) bool { return u.BotId == botID })
	require.True(t, ok, "no usage row for bot %d", botID)
	return row
}

func TestGenerateTokenUsage_NoActivePlan(t *testing.T) {
	ctx := context.Background()
	store := testutil.NewStore()
	store.AddUser(entity.User{Id: userID})

	res, err := NewSyncer(logger.NewNopLogger()).GenerateTokenUsage(ctx, store.NewUnitOfWork(ctx), 1, userID)
	require.NoError(t, err)
	assert.False(t, res.Ok())
	assert.Equal(t, result.CodeNoActivePlan, res.Code())
	assert.Equal(t, "User not found, please activate plan", res.Message())
	assert.Empty(t, store.TokenUsages())
}

func TestGenerateTokenUsage_FirstBotStartsFromGrant(t *testing.T) {
	f := newFixture(t, 3000, 10)
	bot := f.store.AddBot(entity.Bot{UserId: userID, Name: "support"})

	res, err := f.syncer.GenerateTokenUsage(f.ctx, f.store.NewUnitOfWork(f.ctx), bot.Id, userID)
	require.NoError(t, err)
	require.True(t, res.Ok())

	usage, _ := res.Value()
	assert.Equal(t, float64(30000), usage.TokenLimit)
	assert.Zero(t, usage.CombinedTokenConsumption)
	assert.Equal(t, f.credits.Id, usage.UserCreditId)
}

func TestGenerateTokenUsage_InheritsPool(t *testing.T) {
	f := newFixture(t, 3000, 10)
	botX := f.store.AddBot(entity.Bot{UserId: userID, Name: "x"})
	botY := f.store.AddBot(entity.Bot{UserId: userID, Name: "y"})
	f.store.AddTokenUsage(entity.TokenUsage{
		BotId: botX.Id, UserId: userID, UserCreditId: f.credits.Id,
		TokenLimit: 30000, CombinedTokenConsumption: 500,
	})

	res, err := f.syncer.GenerateTokenUsage(f.ctx, f.store.NewUnitOfWork(f.ctx), botY.Id, userID)
	require.NoError(t, err)
	require.True(t, res.Ok())

	y := usageFor(t, f.store, botY.Id)
	assert.Equal(t, float64(500), y.CombinedTokenConsumption)
	assert.Equal(t, float64(30000), y.TokenLimit)
}

func TestGenerateTokenUsage_ExistingRow(t *testing.T) {
	f := newFixture(t, 3000, 10)
	bot := f.store.AddBot(entity.Bot{UserId: userID})
	existing := f.store.AddTokenUsage(entity.TokenUsage{BotId: bot.Id, UserId: userID, TokenLimit: 1, UserCreditId: f.credits.Id})

	res, err := f.syncer.GenerateTokenUsage(f.ctx, f.store.NewUnitOfWork(f.ctx), bot.Id, userID)
	require.NoError(t, err)
	require.True(t, res.Ok())
	usage, _ := res.Value()
	assert.Equal(t, existing.Id, usage.Id)
	assert.Len(t, f.store.TokenUsages(), 1)
}

func TestGenerateTokenUsage_ForeignBot(t *testing.T) {
	f := newFixture(t, 3000, 10)
	bot := f.store.AddBot(entity.Bot{UserId: 99})

	res, err := f.syncer.GenerateTokenUsage(f.ctx, f.store.NewUnitOfWork(f.ctx), bot.Id, userID)
	require.NoError(t, err)
	assert.Equal(t, result.CodeInvalidArgument, res.Code())
}

func TestCreateTokenUsage_Scenario(t *testing.T) {
	f := newFixture(t, 3000, 10)
	f.store.AddBot(entity.Bot{UserId: userID, Name: "web"})
	f.store.AddBot(entity.Bot{UserId: userID, Name: "slack"})

	report := f.resync(t, f.credits.Id, f.tx.Id)

	assert.Equal(t, ResyncCompleted, report.Status)
	assert.False(t, report.HasFailures())
	assert.Len(t, report.Created, 2)
	assert.Empty(t, report.FailedBots)

	rows := f.store.TokenUsages()
	require.Len(t, rows, 2)
	for _, row := range rows {
		assert.Equal(t, float64(3000*10), row.TokenLimit)
		assert.Zero(t, row.CombinedTokenConsumption)
		assert.Equal(t, f.credits.Id, row.UserCreditId)
	}
}

func TestCreateTokenUsage_NoBots(t *testing.T) {
	f := newFixture(t, 3000, 10)
	report := f.resync(t, f.credits.Id, f.tx.Id)
	assert.Equal(t, ResyncNoBots, report.Status)
}

func TestCreateTokenUsage_Idempotent(t *testing.T) {
	f := newFixture(t, 3000, 10)
	bot := f.store.AddBot(entity.Bot{UserId: userID})
	f.store.AddTokenUsage(entity.TokenUsage{
		BotId: bot.Id, UserId: userID, UserCreditId: 999, TokenLimit: 100, CombinedTokenConsumption: 80,
	})

	first := f.resync(t, f.credits.Id, f.tx.Id)
	assert.Equal(t, []uint{bot.Id}, first.Reset)
	afterFirst := f.store.TokenUsages()
	require.Len(t, f.store.TokenUsageHistory(), 1)

	second := f.resync(t, f.credits.Id, f.tx.Id)
	assert.Equal(t, []uint{bot.Id}, second.Skipped)
	assert.Empty(t, second.Reset)
	assert.Equal(t, afterFirst, f.store.TokenUsages())
	assert.Len(t, f.store.TokenUsageHistory(), 1)
}

func TestCreateTokenUsage_ArchivesAndResets(t *testing.T) {
	f := newFixture(t, 3000, 10)
	bot := f.store.AddBot(entity.Bot{UserId: userID})
	old := entity.TokenUsage{
		BotId: bot.Id, UserId: userID, UserCreditId: 999, TokenLimit: 100, CombinedTokenConsumption: 80,
	}
	old.ChannelCounters.UserRequestToken = 40
	old.ChannelCounters.SlackResponseToken = 12
	old.ChannelCounters.OpenAiResponseToken = 7
	stored := f.store.AddTokenUsage(old)

	f.resync(t, f.credits.Id, f.tx.Id)

	history := f.store.TokenUsageHistory()
	require.Len(t, history, 1)
	assert.Equal(t, stored.Id, history[0].TokenUsageId)
	assert.Equal(t, uint(999), history[0].UserCreditId)
	assert.Equal(t, float64(80), history[0].CombinedTokenConsumption)
	assert.Equal(t, float64(40), history[0].UserRequestToken)
	assert.Equal(t, float64(12), history[0].SlackResponseToken)
	assert.Equal(t, float64(7), history[0].OpenAiResponseToken)

	row := usageFor(t, f.store, bot.Id)
	assert.Equal(t, stored.Id, row.Id)
	assert.Equal(t, f.credits.Id, row.UserCreditId)
	assert.Equal(t, float64(30000), row.TokenLimit)
	assert.Zero(t, row.CombinedTokenConsumption)
	assert.Equal(t, entity.ChannelCounters{}, row.ChannelCounters)
}

func TestCreateTokenUsage_PartialFailureKeepsOtherBots(t *testing.T) {
	f := newFixture(t, 3000, 10)
	good := f.store.AddBot(entity.Bot{UserId: userID, Name: "good"})
	bad := f.store.AddBot(entity.Bot{UserId: userID, Name: "bad"})
	f.store.AddTokenUsage(entity.TokenUsage{BotId: bad.Id, UserId: userID, UserCreditId: 999, CombinedTokenConsumption: 5})
	f.store.FailUsageWritesForBot(bad.Id, errors.New("disk full"))

	report := f.resync(t, f.credits.Id, f.tx.Id)

	assert.Equal(t, ResyncCompletedWithFailures, report.Status)
	assert.True(t, report.HasFailures())
	require.Len(t, report.FailedBots, 1)
	assert.Equal(t, bad.Id, report.FailedBots[0].BotID)
	assert.Contains(t, report.FailedBots[0].Error, "disk full")
	assert.Equal(t, []uint{good.Id}, report.Created)

	assert.Equal(t, f.credits.Id, usageFor(t, f.store, good.Id).UserCreditId)
	badRow := usageFor(t, f.store, bad.Id)
	assert.Equal(t, uint(999), badRow.UserCreditId)
	assert.Equal(t, float64(5), badRow.CombinedTokenConsumption)
	assert.Empty(t, f.store.TokenUsageHistory())
}

func TestCreateTokenUsage_Validation(t *testing.T) {
	f := newFixture(t, 3000, 10)

	t.Run("non-positive ids", func(t *testing.T) {
		uow := f.store.NewUnitOfWork(f.ctx)
		require.NoError(t, uow.Begin(f.ctx))
		defer uow.Rollback()
		_, err := f.syncer.CreateTokenUsage(f.ctx, uow, 0, f.tx.Id)
		assert.True(t, ierr.IsValidation(err))
	})

	t.Run("no active transaction", func(t *testing.T) {
		_, err := f.syncer.CreateTokenUsage(f.ctx, f.store.NewUnitOfWork(f.ctx), f.credits.Id, f.tx.Id)
		assert.True(t, ierr.IsInvalidOperation(err))
	})

	t.Run("unknown credit", func(t *testing.T) {
		uow := f.store.NewUnitOfWork(f.ctx)
		require.NoError(t, uow.Begin(f.ctx))
		defer uow.Rollback()
		_, err := f.syncer.CreateTokenUsage(f.ctx, uow, 404, f.tx.Id)
		assert.True(t, ierr.IsNotFound(err))
	})
}

func TestVerifyTokenLimitAvailable(t *testing.T) {
	f := newFixture(t, 3000, 10)
	open := f.store.AddTokenUsage(entity.TokenUsage{BotId: 1, UserId: userID, TokenLimit: 100, CombinedTokenConsumption: 40})
	spent := f.store.AddTokenUsage(entity.TokenUsage{BotId: 2, UserId: 8, TokenLimit: 100, CombinedTokenConsumption: 100})

	tests := []struct {
		name     string
		botID    uint
		wantOk   bool
		wantCode result.Code
	}{
		{"available", open.BotId, true, result.CodeNone},
		{"exhausted at equality", spent.BotId, false, result.CodeLimitExhausted},
		{"no usage row", 3, false, result.CodeNoTokenUsage},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := f.syncer.VerifyTokenLimitAvailable(f.ctx, f.store.NewUnitOfWork(f.ctx), tt.botID)
			require.NoError(t, err)
			assert.Equal(t, tt.wantOk, res.Ok())
			assert.Equal(t, tt.wantCode, res.Code())
			assert.NotEmpty(t, res.Message())
		})
	}

	res, _ := f.syncer.VerifyTokenLimitAvailable(f.ctx, f.store.NewUnitOfWork(f.ctx), open.BotId)
	avail, ok := res.Value()
	require.True(t, ok)
	assert.Equal(t, float64(60), avail.Remaining)
}

func TestUpdateTokenUsageOnConsumption_WeightedPool(t *testing.T) {
	f := newFixture(t, 1000, 10)
	a := f.store.AddTokenUsage(entity.TokenUsage{BotId: 1, UserId: userID, UserCreditId: f.credits.Id, TokenLimit: 10000})
	b := f.store.AddTokenUsage(entity.TokenUsage{BotId: 2, UserId: userID, UserCreditId: f.credits.Id, TokenLimit: 10000})
	other := f.store.AddTokenUsage(entity.TokenUsage{BotId: 3, UserId: 8, TokenLimit: 10000})

	token := entity.ConsumedToken{
		RequestToken: 200, ResponseToken: 100, OpenAiRequestToken: 250, OpenAiResponseToken: 80,
		RequestMessage: "hi", ResponseMessage: "hello",
	}
	// 100 + 30 + 50 + 40
	const want = 220.0

	err := f.syncer.UpdateTokenUsageOnConsumption(f.ctx, f.store.NewUnitOfWork(f.ctx), a.BotId, token, entity.ConsumedTokenWhatsapp)
	require.NoError(t, err)

	rowA := usageFor(t, f.store, a.BotId)
	rowB := usageFor(t, f.store, b.BotId)
	assert.InDelta(t, want, rowA.CombinedTokenConsumption, 1e-9)
	assert.InDelta(t, want, rowB.CombinedTokenConsumption, 1e-9)
	assert.Zero(t, usageFor(t, f.store, other.BotId).CombinedTokenConsumption)

	assert.Equal(t, float64(200), rowA.WhatsappRequestToken)
	assert.Equal(t, float64(100), rowA.WhatsappResponseToken)
	assert.Equal(t, float64(250), rowA.OpenAiRequestToken)
	assert.Equal(t, float64(80), rowA.OpenAiResponseToken)
	assert.Zero(t, rowA.UserRequestToken)
	assert.Equal(t, entity.ChannelCounters{}, rowB.ChannelCounters)

	credits := f.store.Credits()[0]
	assert.True(t, credits.CreditsConsumed.Equal(decimal.NewFromInt(22)), credits.CreditsConsumed.String())
	assert.True(t, credits.CreditBalance.Equal(decimal.NewFromInt(978)), credits.CreditBalance.String())
}

func TestUpdateTokenUsageOnConsumption_BalanceInvariant(t *testing.T) {
	f := newFixture(t, 1000, 10)
	bot := f.store.AddTokenUsage(entity.TokenUsage{BotId: 1, UserId: userID, UserCreditId: f.credits.Id, TokenLimit: 10000})

	// 0.5 * 400 = 200 pooled tokens
	err := f.syncer.UpdateTokenUsageOnConsumption(f.ctx, f.store.NewUnitOfWork(f.ctx), bot.BotId,
		entity.ConsumedToken{RequestToken: 400}, entity.ConsumedTokenUser)
	require.NoError(t, err)

	assert.Equal(t, float64(200), usageFor(t, f.store, bot.BotId).CombinedTokenConsumption)
	credits := f.store.Credits()[0]
	assert.True(t, credits.CreditsConsumed.Equal(decimal.NewFromInt(20)))
	assert.True(t, credits.CreditBalance.Equal(decimal.NewFromInt(980)))
}

func TestUpdateTokenUsageOnConsumption_Errors(t *testing.T) {
	f := newFixture(t, 1000, 10)
	f.store.AddTokenUsage(entity.TokenUsage{BotId: 1, UserId: userID, UserCreditId: f.credits.Id})

	err := f.syncer.UpdateTokenUsageOnConsumption(f.ctx, f.store.NewUnitOfWork(f.ctx), 1, entity.ConsumedToken{}, "telegram")
	assert.True(t, ierr.IsValidation(err))

	err = f.syncer.UpdateTokenUsageOnConsumption(f.ctx, f.store.NewUnitOfWork(f.ctx), 1, entity.ConsumedToken{RequestToken: -1}, entity.ConsumedTokenUser)
	assert.True(t, ierr.IsValidation(err))

	err = f.syncer.UpdateTokenUsageOnConsumption(f.ctx, f.store.NewUnitOfWork(f.ctx), 42, entity.ConsumedToken{}, entity.ConsumedTokenUser)
	assert.True(t, ierr.IsNotFound(err))
}

func TestSyncTokenLimitsAfterTopup(t *testing.T) {
	f := newFixture(t, 1000, 10)
	existing := f.store.AddBot(entity.Bot{UserId: userID})
	added := f.store.AddBot(entity.Bot{UserId: userID})
	f.store.AddTokenUsage(entity.TokenUsage{
		BotId: existing.Id, UserId: userID, UserCreditId: f.credits.Id, TokenLimit: 10000, CombinedTokenConsumption: 300,
	})

	// topup raised the grant to 1500 credits
	credits := f.credits
	credits.CreditsPurchased = decimal.NewFromInt(1500)
	uow := f.store.NewUnitOfWork(f.ctx)
	require.NoError(t, uow.Begin(f.ctx))
	require.NoError(t, uow.CreditRepository().Update(f.ctx, credits))
	report, err := f.syncer.SyncTokenLimitsAfterTopup(f.ctx, uow, credits.Id)
	require.NoError(t, err)
	require.NoError(t, uow.Commit())

	assert.Equal(t, ResyncCompleted, report.Status)
	assert.Equal(t, []uint{existing.Id}, report.Updated)
	assert.Equal(t, []uint{added.Id}, report.Created)

	kept := usageFor(t, f.store, existing.Id)
	assert.Equal(t, float64(15000), kept.TokenLimit)
	assert.Equal(t, float64(300), kept.CombinedTokenConsumption)

	fresh := usageFor(t, f.store, added.Id)
	assert.Equal(t, float64(15000), fresh.TokenLimit)
	assert.Equal(t, float64(300), fresh.CombinedTokenConsumption)
	assert.Empty(t, f.store.TokenUsageHistory())
}

func TestGetUsageSummary(t *testing.T) {
	f := newFixture(t, 1000, 10)
	f.store.AddTokenUsage(entity.TokenUsage{BotId: 1, UserId: userID, TokenLimit: 10000, CombinedTokenConsumption: 2500})
	f.store.AddTokenUsage(entity.TokenUsage{BotId: 2, UserId: userID, TokenLimit: 10000, CombinedTokenConsumption: 2500})

	summary, err := f.syncer.GetUsageSummary(f.ctx, f.store.NewUnitOfWork(f.ctx), userID)
	require.NoError(t, err)
	assert.Equal(t, float64(10000), summary.TokenLimit)
	assert.Equal(t, float64(2500), summary.CombinedTokenConsumption)
	assert.Equal(t, float64(7500), summary.Remaining)
	assert.Len(t, summary.Bots, 2)
}
