package service

import (
	"context"
	"strings"
	"testing"

	"chatbot-billing-be/internal/dto"
	"chatbot-billing-be/internal/entity"
	ierr "chatbot-billing-be/internal/pkg/errors"
	"chatbot-billing-be/internal/pkg/logger"
	"chatbot-billing-be/internal/testutil"
	"chatbot-billing-be/pkg/billing/credit"
	"chatbot-billing-be/pkg/billing/events"
	"chatbot-billing-be/pkg/billing/ledger"
	"chatbot-billing-be/pkg/billing/usage"
	pkgEvents "chatbot-billing-be/pkg/events"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newPaymentService(t *testing.T) (*testutil.Store, *testutil.Bus, IPaymentService) {
	t.Helper()
	log := logger.NewNopLogger()
	store := testutil.NewStore()
	store.AddUser(entity.User{Id: 7, Email: "owner@example.com"})
	store.AddUser(entity.User{Id: 8, Email: "other@example.com"})
	store.AddPlan(entity.Plan{
		Id: 1, Name: "Starter", Price: decimal.NewFromInt(3000), Currency: "INR",
		DurationDays: 30, TokenPerUnit: 10, ChatbotsAllowed: 3, IsActive: true,
	})
	store.AddPlan(entity.Plan{Id: 2, Name: "Legacy", Price: decimal.NewFromInt(10), IsActive: false})
	store.AddBot(entity.Bot{Id: 1, UserId: 7})

	bus := &testutil.Bus{}
	svc := NewPaymentService(store.Factory(), ledger.New(log), credit.NewManager(log), usage.NewSyncer(log),
		events.NewBusPublisher(bus, log), "USD", log)
	return store, bus, svc
}

func TestCreateOrder_Plan(t *testing.T) {
	store, _, svc := newPaymentService(t)
	ctx := context.Background()

	res, err := svc.CreateOrder(ctx, 7, &dto.CreateOrderRequest{
		TransactionType: "plan", Provider: "cashfree", PlanID: lo.ToPtr(uint(1)),
	})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(res.OrderID, "order_"))
	assert.Equal(t, "created", res.Status)
	assert.Equal(t, "INR", res.Currency)
	assert.True(t, res.Amount.Equal(decimal.NewFromInt(3000)))
	require.Len(t, store.Transactions(), 1)

	second, err := svc.CreateOrder(ctx, 7, &dto.CreateOrderRequest{
		TransactionType: "plan", Provider: "paypal", PlanID: lo.ToPtr(uint(1)),
	})
	require.NoError(t, err)
	assert.NotEqual(t, res.OrderID, second.OrderID)
}

func TestCreateOrder_Rejections(t *testing.T) {
	_, _, svc := newPaymentService(t)
	ctx := context.Background()

	tests := []struct {
		name  string
		req   dto.CreateOrderRequest
		check func(error) bool
	}{
		{"plan without plan id", dto.CreateOrderRequest{TransactionType: "plan", Provider: "cashfree"}, ierr.IsValidation},
		{"inactive plan", dto.CreateOrderRequest{TransactionType: "plan", Provider: "cashfree", PlanID: lo.ToPtr(uint(2))}, ierr.IsNotFound},
		{"unknown plan", dto.CreateOrderRequest{TransactionType: "plan", Provider: "cashfree", PlanID: lo.ToPtr(uint(99))}, ierr.IsNotFound},
		{"trial provider", dto.CreateOrderRequest{TransactionType: "plan", Provider: "trial", PlanID: lo.ToPtr(uint(1))}, ierr.IsValidation},
		{"topup without amount", dto.CreateOrderRequest{TransactionType: "topup", Provider: "razorpay"}, ierr.IsValidation},
		{"topup without plan", dto.CreateOrderRequest{
			TransactionType: "topup", Provider: "razorpay", Amount: lo.ToPtr(decimal.NewFromInt(100)),
		}, ierr.IsNotFound},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CreateOrder(ctx, 7, &tt.req)
			require.Error(t, err)
			assert.True(t, tt.check(err), err.Error())
		})
	}
}

func TestActivateTrial(t *testing.T) {
	store, bus, svc := newPaymentService(t)
	ctx := context.Background()

	res, err := svc.ActivateTrial(ctx, 7, 1)
	require.NoError(t, err)
	assert.Equal(t, "trial", res.Transaction.Provider)
	assert.Equal(t, "success", res.Transaction.Status)
	assert.NotNil(t, res.Transaction.CompletedAt)
	assert.Equal(t, 30000.0, res.Credits.TokenLimit)
	assert.Equal(t, usage.ResyncCompleted, res.Resync["status"])

	usages := store.TokenUsages()
	require.Len(t, usages, 1)
	assert.Equal(t, 30000.0, usages[0].TokenLimit)
	assert.Equal(t, []string{pkgEvents.CreditsRenewed}, bus.Types())

	_, err = svc.ActivateTrial(ctx, 7, 1)
	assert.True(t, ierr.IsInvalidOperation(err))
	assert.Len(t, store.Transactions(), 1)

	t.Run("topup order after trial", func(t *testing.T) {
		order, err := svc.CreateOrder(ctx, 7, &dto.CreateOrderRequest{
			TransactionType: "topup", Provider: "razorpay", Amount: lo.ToPtr(decimal.NewFromInt(250)), Currency: "inr",
		})
		require.NoError(t, err)
		assert.Equal(t, "topup", order.TransactionType)
		assert.Equal(t, "INR", order.Currency)
		assert.Equal(t, uint(1), *order.PlanID)
	})
}

func TestGetTransactionAndCreditStatus(t *testing.T) {
	_, _, svc := newPaymentService(t)
	ctx := context.Background()

	status, err := svc.GetCreditStatus(ctx, 7)
	require.NoError(t, err)
	assert.Nil(t, status.Active)
	assert.Empty(t, status.History)

	trial, err := svc.ActivateTrial(ctx, 7, 1)
	require.NoError(t, err)

	got, err := svc.GetTransaction(ctx, 7, trial.Transaction.OrderID)
	require.NoError(t, err)
	assert.Equal(t, trial.Transaction.ID, got.ID)

	_, err = svc.GetTransaction(ctx, 8, trial.Transaction.OrderID)
	assert.True(t, ierr.IsNotFound(err))

	status, err = svc.GetCreditStatus(ctx, 7)
	require.NoError(t, err)
	require.NotNil(t, status.Active)
	assert.Equal(t, trial.Transaction.ID, status.Active.TransID)
}

func TestListPlans_OnlyActive(t *testing.T) {
	_, _, svc := newPaymentService(t)

	plans, err := svc.ListPlans(context.Background())
	require.NoError(t, err)
	require.Len(t, plans, 1)
	assert.Equal(t, "Starter", plans[0].Name)
	assert.True(t, plans[0].Price.Equal(decimal.NewFromInt(3000)))
	assert.Equal(t, 10, plans[0].TokenPerUnit)
}
