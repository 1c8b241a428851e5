package service

import (
	"context"
	"testing"
	"time"

	"chatbot-billing-be/internal/dto"
	"chatbot-billing-be/internal/entity"
	ierr "chatbot-billing-be/internal/pkg/errors"
	"chatbot-billing-be/internal/pkg/logger"
	"chatbot-billing-be/internal/pkg/result"
	"chatbot-billing-be/internal/testutil"
	"chatbot-billing-be/pkg/billing/usage"
	"chatbot-billing-be/pkg/ratelimit"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTokenUsageService(t *testing.T, rateLimit int) (*testutil.Store, ITokenUsageService) {
	t.Helper()
	log := logger.NewNopLogger()
	store := testutil.NewStore()
	store.AddUser(entity.User{Id: 7, Email: "owner@example.com"})
	store.AddUser(entity.User{Id: 8, Email: "other@example.com"})
	store.AddPlan(entity.Plan{Id: 1, TokenPerUnit: 10, DurationDays: 30, IsActive: true})
	tx := store.AddTransaction(entity.Transaction{
		UserId: 7, OrderId: "order_1", TransactionType: entity.TransactionTypePlan,
		Amount: decimal.NewFromInt(100), Currency: "INR", Provider: entity.ProviderCashfree,
		Status: entity.TransactionStatusSuccess,
	})
	store.AddCredits(entity.UserCredits{
		UserId: 7, PlanId: 1, TransId: tx.Id, TokenPerUnit: 10,
		CreditsPurchased: decimal.NewFromInt(100), CreditBalance: decimal.NewFromInt(100),
		StartDate: time.Now(), ExpiryDate: time.Now().AddDate(0, 0, 30),
	})
	store.AddBot(entity.Bot{Id: 1, UserId: 7})
	store.AddBot(entity.Bot{Id: 2, UserId: 7})
	store.AddBot(entity.Bot{Id: 3, UserId: 8})

	svc := NewTokenUsageService(store.Factory(), usage.NewSyncer(log), ratelimit.NewMemoryLimiter(rateLimit, time.Minute), log)
	return store, svc
}

func TestTokenUsageService_Flow(t *testing.T) {
	_, svc := newTokenUsageService(t, 100)
	ctx := context.Background()

	reg, err := svc.RegisterBot(ctx, 7, 1)
	require.NoError(t, err)
	require.True(t, reg.Ok())
	row, _ := reg.Value()
	assert.Equal(t, 1000.0, row.TokenLimit)

	_, err = svc.RegisterBot(ctx, 7, 2)
	require.NoError(t, err)

	avail, err := svc.CheckAvailability(ctx, 7, 1)
	require.NoError(t, err)
	require.True(t, avail.Ok())
	a, _ := avail.Value()
	assert.Equal(t, 1000.0, a.Remaining)
	assert.Equal(t, int64(1), a.RateUsed)

	// 0.5*1000 + 0.3*1000 + 0.2*500 + 0.5*200 = 1000
	consumed, err := svc.RecordConsumption(ctx, 7, 1, &dto.ConsumeRequest{
		ConsumedTokenType: "slack", RequestToken: 1000, ResponseToken: 1000,
		OpenAiRequestToken: 500, OpenAiResponseToken: 200,
	})
	require.NoError(t, err)
	assert.Equal(t, 1000.0, consumed.CombinedTokenConsumption)
	assert.Equal(t, 1000.0, consumed.Channels["slack"].Request)
	assert.Zero(t, consumed.Remaining)

	for _, bot := range []uint{1, 2} {
		res, err := svc.CheckAvailability(ctx, 7, bot)
		require.NoError(t, err)
		assert.False(t, res.Ok())
		assert.Equal(t, result.CodeLimitExhausted, res.Code())
	}

	summary, err := svc.GetUsageSummary(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, 1000.0, summary.TokenLimit)
	assert.Equal(t, 1000.0, summary.CombinedTokenConsumption)
	assert.Len(t, summary.Bots, 2)
	require.NotNil(t, summary.Credits)
	assert.True(t, summary.Credits.CreditBalance.IsZero())
}

func TestTokenUsageService_SoftFailures(t *testing.T) {
	_, svc := newTokenUsageService(t, 1)
	ctx := context.Background()

	t.Run("no plan", func(t *testing.T) {
		res, err := svc.RegisterBot(ctx, 8, 3)
		require.NoError(t, err)
		assert.Equal(t, result.CodeNoActivePlan, res.Code())
		assert.Equal(t, usage.MsgNoActivePlan, res.Message())
	})

	t.Run("no usage row", func(t *testing.T) {
		res, err := svc.CheckAvailability(ctx, 7, 2)
		require.NoError(t, err)
		assert.Equal(t, result.CodeNoTokenUsage, res.Code())
	})

	t.Run("rate limited", func(t *testing.T) {
		_, err := svc.RegisterBot(ctx, 7, 1)
		require.NoError(t, err)

		first, err := svc.CheckAvailability(ctx, 7, 1)
		require.NoError(t, err)
		assert.True(t, first.Ok())

		second, err := svc.CheckAvailability(ctx, 7, 1)
		require.NoError(t, err)
		assert.Equal(t, result.CodeRateLimited, second.Code())
	})

	t.Run("foreign bot", func(t *testing.T) {
		_, err := svc.CheckAvailability(ctx, 7, 3)
		assert.Equal(t, 403, ierr.HTTPStatusFromErr(err))

		_, err = svc.RecordConsumption(ctx, 7, 3, &dto.ConsumeRequest{ConsumedTokenType: "user"})
		assert.Equal(t, 403, ierr.HTTPStatusFromErr(err))
	})
}

func TestTokenUsageService_GetBotHistory(t *testing.T) {
	store, svc := newTokenUsageService(t, 100)
	ctx := context.Background()
	march := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	store.AddTokenUsageHistory(entity.TokenUsageHistory{
		BotId: 1, UserId: 7, UserCreditId: 11, TokenLimit: 500, CombinedTokenConsumption: 120,
		ChannelCounters: entity.ChannelCounters{SlackRequestToken: 40}, ArchivedAt: march,
	})
	store.AddTokenUsageHistory(entity.TokenUsageHistory{
		BotId: 1, UserId: 7, UserCreditId: 12, TokenLimit: 800, CombinedTokenConsumption: 300,
		ArchivedAt: march.AddDate(0, 1, 0),
	})
	store.AddTokenUsageHistory(entity.TokenUsageHistory{BotId: 2, UserId: 7, UserCreditId: 12, ArchivedAt: march})

	history, err := svc.GetBotHistory(ctx, 7, 1)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, uint(12), history[0].UserCreditID)
	assert.Equal(t, uint(11), history[1].UserCreditID)
	assert.Equal(t, 40.0, history[1].Channels["slack"].Request)
	assert.Equal(t, march, history[1].ArchivedAt)

	empty, err := svc.GetBotHistory(ctx, 8, 3)
	require.NoError(t, err)
	assert.Empty(t, empty)

	_, err = svc.GetBotHistory(ctx, 7, 3)
	assert.Equal(t, 403, ierr.HTTPStatusFromErr(err))
}
