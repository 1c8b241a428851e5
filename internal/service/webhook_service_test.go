package service

import (
	"context"
	"net/http"
	"strconv"
	"testing"

	"chatbot-billing-be/internal/entity"
	ierr "chatbot-billing-be/internal/pkg/errors"
	"chatbot-billing-be/internal/pkg/logger"
	"chatbot-billing-be/internal/testutil"
	"chatbot-billing-be/pkg/billing/credit"
	"chatbot-billing-be/pkg/billing/events"
	"chatbot-billing-be/pkg/billing/failedpayment"
	"chatbot-billing-be/pkg/billing/ledger"
	"chatbot-billing-be/pkg/billing/usage"
	pkgEvents "chatbot-billing-be/pkg/events"
	"chatbot-billing-be/pkg/gateway"
	"chatbot-billing-be/pkg/gateway/cashfree"
	"chatbot-billing-be/pkg/gateway/razorpay"
	"chatbot-billing-be/pkg/settings"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	cashfreeSecret = "cf_secret"
	razorpaySecret = "rzp_secret"
	cfTimestamp    = "1718000000000"
)

type webhookFixture struct {
	ctx      context.Context
	store    *testutil.Store
	bus      *testutil.Bus
	notifier *testutil.Notifier
	svc      IWebhookService
	plan     *entity.Plan
}

func newWebhookFixture(t *testing.T) *webhookFixture {
	t.Helper()
	log := logger.NewNopLogger()
	store := testutil.NewStore()
	store.AddUser(entity.User{Id: 7, Email: "owner@example.com", FullName: "Asha"})
	plan := store.AddPlan(entity.Plan{
		Name: "Starter", Price: decimal.NewFromInt(3000), Currency: "INR",
		DurationDays: 30, TokenPerUnit: 10, ChatbotsAllowed: 3, IsActive: true,
	})
	store.AddBot(entity.Bot{Id: 1, UserId: 7, Name: "support"})
	store.AddBot(entity.Bot{Id: 2, UserId: 7, Name: "sales"})

	bus := &testutil.Bus{}
	notifier := &testutil.Notifier{}
	svc := NewWebhookService(
		store.Factory(),
		[]gateway.Processor{cashfree.New(cashfreeSecret), razorpay.New(razorpaySecret)},
		ledger.New(log),
		credit.NewManager(log),
		usage.NewSyncer(log),
		failedpayment.NewHandler(settings.Static{}, notifier, "https://support.example.com/threads", log),
		events.NewBusPublisher(bus, log),
		log,
	)
	return &webhookFixture{ctx: context.Background(), store: store, bus: bus, notifier: notifier, svc: svc, plan: plan}
}

func (f *webhookFixture) addOrder(orderID string, txType entity.TransactionType, amount int64, provider entity.PaymentProvider) *entity.Transaction {
	return f.store.AddTransaction(entity.Transaction{
		UserId: 7, PlanId: lo.ToPtr(f.plan.Id), TransactionType: txType, OrderId: orderID,
		Amount: decimal.NewFromInt(amount), Currency: "INR", Provider: provider,
		Status: entity.TransactionStatusCreated,
	})
}

func (f *webhookFixture) transaction(t *testing.T, orderID string) entity.Transaction {
	t.Helper()
	tx, ok := lo.Find(f.store.Transactions(), func(tx entity.Transaction) bool { return tx.OrderId == orderID })
	require.True(t, ok)
	return tx
}

func cashfreeBody(orderID string, paymentID int64, status string, amount string) []byte {
	return []byte(`{"type":"PAYMENT_` + status + `_WEBHOOK","data":{` +
		`"order":{"order_id":"` + orderID + `","order_amount":` + amount + `,"order_currency":"INR","order_tags":{"transaction_type":"plan"}},` +
		`"payment":{"cf_payment_id":` + strconv.FormatInt(paymentID, 10) + `,"payment_status":"` + status + `","payment_amount":` + amount + `,` +
		`"payment_currency":"INR","payment_message":"Transaction declined by bank"}}}`)
}

func cashfreeHeaders(body []byte) http.Header {
	h := http.Header{}
	h.Set(cashfree.HeaderTimestamp, cfTimestamp)
	h.Set(cashfree.HeaderSignature, cashfree.Sign(cashfreeSecret, cfTimestamp, body))
	return h
}

func razorpayHeaders(body []byte, eventID string) http.Header {
	h := http.Header{}
	h.Set(razorpay.HeaderSignature, razorpay.Sign(razorpaySecret, body))
	if eventID != "" {
		h.Set(razorpay.HeaderEventID, eventID)
	}
	return h
}

func TestWebhook_PlanSuccessRenewsCredits(t *testing.T) {
	f := newWebhookFixture(t)
	f.addOrder("order_1", entity.TransactionTypePlan, 3000, entity.ProviderCashfree)
	body := cashfreeBody("order_1", 5114910112345, "SUCCESS", "3000")

	out, err := f.svc.Process(f.ctx, entity.ProviderCashfree, cashfreeHeaders(body), body)
	require.NoError(t, err)
	assert.Equal(t, WebhookProcessed, out.Action)
	require.NotNil(t, out.Resync)
	assert.Equal(t, usage.ResyncCompleted, out.Resync.Status)
	assert.ElementsMatch(t, []uint{1, 2}, out.Resync.Created)

	tx := f.transaction(t, "order_1")
	assert.Equal(t, entity.TransactionStatusSuccess, tx.Status)
	assert.NotNil(t, tx.CompletedAt)
	assert.Equal(t, "5114910112345", tx.ProviderTransactionRef())

	credits := f.store.Credits()
	require.Len(t, credits, 1)
	assert.Equal(t, tx.Id, credits[0].TransId)
	assert.True(t, credits[0].CreditsPurchased.Equal(decimal.NewFromInt(3000)))

	usages := f.store.TokenUsages()
	require.Len(t, usages, 2)
	for _, u := range usages {
		assert.Equal(t, 30000.0, u.TokenLimit)
		assert.Equal(t, credits[0].Id, u.UserCreditId)
	}

	assert.Equal(t, []string{pkgEvents.PaymentSucceeded, pkgEvents.CreditsRenewed}, f.bus.Types())

	journal := f.store.WebhookEvents()
	require.Len(t, journal, 1)
	assert.True(t, journal[0].Processed())

	t.Run("redelivery is acknowledged without side effects", func(t *testing.T) {
		again, err := f.svc.Process(f.ctx, entity.ProviderCashfree, cashfreeHeaders(body), body)
		require.NoError(t, err)
		assert.Equal(t, WebhookDuplicate, again.Action)
		assert.Len(t, f.store.Credits(), 1)
		assert.Empty(t, f.store.CreditHistory())
		assert.Len(t, f.bus.Types(), 2)
		assert.Len(t, f.store.WebhookEvents(), 1)
	})

	t.Run("late pending does not reopen the payment", func(t *testing.T) {
		pending := cashfreeBody("order_1", 5114910112345, "PENDING", "3000")
		out, err := f.svc.Process(f.ctx, entity.ProviderCashfree, cashfreeHeaders(pending), pending)
		require.NoError(t, err)
		assert.Equal(t, WebhookRegression, out.Action)
		assert.Equal(t, entity.TransactionStatusSuccess, f.transaction(t, "order_1").Status)
	})
}

func TestWebhook_SecondPlanReplacesCredits(t *testing.T) {
	f := newWebhookFixture(t)
	f.addOrder("order_1", entity.TransactionTypePlan, 3000, entity.ProviderCashfree)
	f.addOrder("order_2", entity.TransactionTypePlan, 1000, entity.ProviderCashfree)

	for i, orderID := range []string{"order_1", "order_2"} {
		body := cashfreeBody(orderID, int64(5114910112345+i), "SUCCESS", "3000")
		_, err := f.svc.Process(f.ctx, entity.ProviderCashfree, cashfreeHeaders(body), body)
		require.NoError(t, err)
	}

	credits := f.store.Credits()
	require.Len(t, credits, 1)
	assert.Equal(t, f.transaction(t, "order_2").Id, credits[0].TransId)

	history := f.store.CreditHistory()
	require.Len(t, history, 1)
	assert.Equal(t, entity.ExpiryReasonReplaced, history[0].ExpiryReason)
	assert.Len(t, f.store.TokenUsageHistory(), 2)
}

func TestWebhook_LateSuccessForOlderPlanKeepsCurrentCredits(t *testing.T) {
	f := newWebhookFixture(t)
	f.addOrder("order_A", entity.TransactionTypePlan, 1000, entity.ProviderCashfree)
	f.addOrder("order_B", entity.TransactionTypePlan, 3000, entity.ProviderCashfree)

	bodyA := cashfreeBody("order_A", 5114910110001, "SUCCESS", "1000")
	bodyB := cashfreeBody("order_B", 5114910110002, "SUCCESS", "3000")
	for _, body := range [][]byte{bodyA, bodyB} {
		_, err := f.svc.Process(f.ctx, entity.ProviderCashfree, cashfreeHeaders(body), body)
		require.NoError(t, err)
	}
	published := len(f.bus.Types())

	// Same payment, new delivery: a different event_time gives a new event id.
	late := []byte(`{"event_time":"2026-06-01T10:00:00+05:30",` + string(bodyA[1:]))
	out, err := f.svc.Process(f.ctx, entity.ProviderCashfree, cashfreeHeaders(late), late)
	require.NoError(t, err)
	assert.Equal(t, WebhookProcessed, out.Action)
	assert.Nil(t, out.Credits)
	assert.Nil(t, out.Resync)

	credits := f.store.Credits()
	require.Len(t, credits, 1)
	assert.Equal(t, f.transaction(t, "order_B").Id, credits[0].TransId)
	assert.True(t, credits[0].CreditsPurchased.Equal(decimal.NewFromInt(3000)))
	assert.Len(t, f.store.CreditHistory(), 1)

	for _, u := range f.store.TokenUsages() {
		assert.Equal(t, 30000.0, u.TokenLimit)
		assert.Equal(t, credits[0].Id, u.UserCreditId)
	}
	assert.Len(t, f.store.TokenUsageHistory(), 2)
	assert.Len(t, f.bus.Types(), published)
	assert.Len(t, f.store.WebhookEvents(), 3)
}

func TestWebhook_TopupRaisesLimits(t *testing.T) {
	f := newWebhookFixture(t)
	f.addOrder("order_1", entity.TransactionTypePlan, 3000, entity.ProviderCashfree)
	body := cashfreeBody("order_1", 5114910112345, "SUCCESS", "3000")
	_, err := f.svc.Process(f.ctx, entity.ProviderCashfree, cashfreeHeaders(body), body)
	require.NoError(t, err)

	topup := f.addOrder("order_topup", entity.TransactionTypeTopup, 500, entity.ProviderRazorpay)
	rzp := []byte(`{"event":"payment.captured","payload":{"payment":{"entity":{"id":"pay_T1","order_id":"order_RZP1",` +
		`"amount":50000,"currency":"INR","status":"captured","notes":{"order_id":"order_topup","transaction_type":"topup"}}}}}`)

	out, err := f.svc.Process(f.ctx, entity.ProviderRazorpay, razorpayHeaders(rzp, "evt_topup"), rzp)
	require.NoError(t, err)
	assert.Equal(t, WebhookProcessed, out.Action)

	credits := f.store.Credits()
	require.Len(t, credits, 1)
	assert.True(t, credits[0].CreditsPurchased.Equal(decimal.NewFromInt(3500)))
	topups := f.store.Topups()
	require.Len(t, topups, 1)
	assert.Equal(t, topup.Id, topups[0].TransId)

	for _, u := range f.store.TokenUsages() {
		assert.Equal(t, 35000.0, u.TokenLimit)
	}
	assert.Contains(t, f.bus.Types(), pkgEvents.CreditsToppedUp)

	// A new event id for the same capture must not add the amount twice.
	_, err = f.svc.Process(f.ctx, entity.ProviderRazorpay, razorpayHeaders(rzp, "evt_topup_retry"), rzp)
	require.NoError(t, err)
	assert.True(t, f.store.Credits()[0].CreditsPurchased.Equal(decimal.NewFromInt(3500)))
	assert.Len(t, f.store.Topups(), 1)
}

func TestWebhook_FailedPaymentOpensTicket(t *testing.T) {
	f := newWebhookFixture(t)
	f.addOrder("order_9", entity.TransactionTypePlan, 3000, entity.ProviderRazorpay)
	body := []byte(`{"event":"payment.failed","payload":{"payment":{"entity":{"id":"pay_F1","order_id":"order_RZP9",` +
		`"amount":300000,"currency":"INR","status":"failed","error_description":"Payment was unsuccessful",` +
		`"notes":{"order_id":"order_9","transaction_type":"plan"}}}}}`)

	out, err := f.svc.Process(f.ctx, entity.ProviderRazorpay, razorpayHeaders(body, "evt_f1"), body)
	require.NoError(t, err)
	require.NotNil(t, out.FailedPayment)
	assert.Equal(t, failedpayment.OutcomeTicketCreated, out.FailedPayment.Outcome)

	tx := f.transaction(t, "order_9")
	assert.Equal(t, entity.TransactionStatusFailed, tx.Status)
	assert.Equal(t, "Payment was unsuccessful", *tx.FailureReason)
	assert.Empty(t, f.store.Credits())

	tickets := f.store.Tickets()
	require.Len(t, tickets, 1)
	assert.Equal(t, "order_9: payment of user failed with transaction id pay_F1", tickets[0].Subject)
	require.Len(t, f.notifier.Emails(), 1)
	assert.Equal(t, []string{"owner@example.com"}, f.notifier.Emails()[0].To)
	assert.Equal(t, []string{pkgEvents.PaymentFailed}, f.bus.Types())

	// A redelivery under a new event id finds the existing ticket.
	out, err = f.svc.Process(f.ctx, entity.ProviderRazorpay, razorpayHeaders(body, "evt_f1_retry"), body)
	require.NoError(t, err)
	assert.Equal(t, failedpayment.OutcomeDuplicate, out.FailedPayment.Outcome)
	assert.Len(t, f.store.Tickets(), 1)
	assert.Len(t, f.notifier.Emails(), 1)
}

func TestWebhook_Rejections(t *testing.T) {
	f := newWebhookFixture(t)
	f.addOrder("order_1", entity.TransactionTypePlan, 3000, entity.ProviderCashfree)
	body := cashfreeBody("order_1", 5114910112345, "SUCCESS", "3000")

	t.Run("bad signature mutates nothing", func(t *testing.T) {
		h := cashfreeHeaders(body)
		h.Set(cashfree.HeaderSignature, cashfree.Sign("wrong", cfTimestamp, body))
		_, err := f.svc.Process(f.ctx, entity.ProviderCashfree, h, body)
		assert.True(t, ierr.IsSignature(err))
		assert.Equal(t, http.StatusBadRequest, ierr.HTTPStatusFromErr(err))
		assert.Equal(t, entity.TransactionStatusCreated, f.transaction(t, "order_1").Status)
		assert.Empty(t, f.store.WebhookEvents())
	})

	t.Run("unsupported provider", func(t *testing.T) {
		_, err := f.svc.Process(f.ctx, entity.ProviderPaypal, http.Header{}, body)
		assert.True(t, ierr.IsValidation(err))
	})

	t.Run("unrecognized event is acknowledged", func(t *testing.T) {
		settlement := []byte(`{"type":"SETTLEMENT_WEBHOOK","data":{}}`)
		out, err := f.svc.Process(f.ctx, entity.ProviderCashfree, cashfreeHeaders(settlement), settlement)
		require.NoError(t, err)
		assert.Equal(t, WebhookIgnored, out.Action)
		assert.Equal(t, entity.TransactionStatusCreated, f.transaction(t, "order_1").Status)
	})

	t.Run("unknown order is retried", func(t *testing.T) {
		unknown := cashfreeBody("order_missing", 5114910119999, "SUCCESS", "10")
		_, err := f.svc.Process(f.ctx, entity.ProviderCashfree, cashfreeHeaders(unknown), unknown)
		assert.True(t, ierr.IsNotFound(err))

		journal, ok := lo.Find(f.store.WebhookEvents(), func(e entity.PaymentWebhookEvent) bool {
			return e.ProcessingError != nil
		})
		require.True(t, ok)
		assert.False(t, journal.Processed())

		// Not acknowledged as a duplicate on redelivery.
		_, err = f.svc.Process(f.ctx, entity.ProviderCashfree, cashfreeHeaders(unknown), unknown)
		assert.True(t, ierr.IsNotFound(err))
	})
}
