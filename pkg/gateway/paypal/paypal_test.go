package paypal

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"chatbot-billing-be/internal/entity"
	ierr "chatbot-billing-be/internal/pkg/errors"
	"chatbot-billing-be/internal/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePayPal struct {
	server      *httptest.Server
	tokenCalls  atomic.Int32
	verifyCalls atomic.Int32
	status      string
	last        VerifyRequest
}

func newFakePayPal(t *testing.T, status string) *fakePayPal {
	t.Helper()
	f := &fakePayPal{status: status}
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/oauth2/token", func(w http.ResponseWriter, r *http.Request) {
		f.tokenCalls.Add(1)
		id, secret, ok := r.BasicAuth()
		if !ok || id != "client" || secret != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"access_token": "A21", "expires_in": 32400})
	})
	mux.HandleFunc("/v1/notifications/verify-webhook-signature", func(w http.ResponseWriter, r *http.Request) {
		f.verifyCalls.Add(1)
		if r.Header.Get("Authorization") != "Bearer A21" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_ = json.NewDecoder(r.Body).Decode(&f.last)
		_ = json.NewEncoder(w).Encode(map[string]any{"verification_status": f.status})
	})
	f.server = httptest.NewServer(mux)
	t.Cleanup(f.server.Close)
	return f
}

func transmissionHeaders() http.Header {
	h := http.Header{}
	h.Set(HeaderAuthAlgo, "SHA256withRSA")
	h.Set(HeaderCertURL, "https://api.paypal.com/v1/notifications/certs/CERT-360caa42")
	h.Set(HeaderTransmissionID, "69cd13f0-d67a-11e5-baa3-778b53f4ae55")
	h.Set(HeaderTransmissionSig, "lmI95Jx3Y9nhR5SJWlHVIWpg4AgFk7n9bCHSRxbrd8A9zrhdu2rMyFrmz+Zjh3s3boXB07VXCXUZy/UFzUlnGJn0wDugt7FlSvdKeIJenLRemUxYCPVoEZzg9VFNqOa48gMkvF+XTpxBeUx/kWy6B5cp7GkT2+pOowfRK7OaynuxUoKW3JcMWw272VKjLTtTAShncla7tGF+55rxyt2KNZIIqxNMJ48RDZheGU5w1npu9dZHnPgTXB9iomeVRoD8O/jhRpnKsGrDschyNdkeh81BJJMH4Ctc6lnCCquoP/GzCzz33MMsNdid7vL/NIWaCsekQpW26FpWPi/tfj8nLA==")
	h.Set(HeaderTransmissionTime, "2026-06-01T10:00:00Z")
	return h
}

const captureCompleted = `{"id":"WH-2WR32451HC0233532-67976317FL4543714","event_type":"PAYMENT.CAPTURE.COMPLETED",` +
	`"resource":{"id":"42311647XV020574X","status":"COMPLETED","custom_id":"{\"order_id\":\"order_7\",\"transaction_type\":\"topup\"}",` +
	`"amount":{"currency_code":"USD","value":"25.50"},"supplementary_data":{"related_ids":{"order_id":"5O190127TN364715T"}}}}`

func TestVerify(t *testing.T) {
	ctx := context.Background()
	body := []byte(captureCompleted)

	t.Run("success caches the token", func(t *testing.T) {
		fake := newFakePayPal(t, "SUCCESS")
		p := New(NewClient(fake.server.URL, "client", "secret", logger.NewNopLogger()), "WH-ID")

		require.NoError(t, p.Verify(ctx, transmissionHeaders(), body))
		require.NoError(t, p.Verify(ctx, transmissionHeaders(), body))
		assert.Equal(t, int32(1), fake.tokenCalls.Load())
		assert.Equal(t, int32(2), fake.verifyCalls.Load())
		assert.Equal(t, "WH-ID", fake.last.WebhookID)
		assert.JSONEq(t, captureCompleted, string(fake.last.WebhookEvent))
	})

	t.Run("failure status", func(t *testing.T) {
		fake := newFakePayPal(t, "FAILURE")
		p := New(NewClient(fake.server.URL, "client", "secret", logger.NewNopLogger()), "WH-ID")
		err := p.Verify(ctx, transmissionHeaders(), body)
		assert.True(t, ierr.IsSignature(err))
	})

	t.Run("missing headers never reach PayPal", func(t *testing.T) {
		fake := newFakePayPal(t, "SUCCESS")
		p := New(NewClient(fake.server.URL, "client", "secret", logger.NewNopLogger()), "WH-ID")
		err := p.Verify(ctx, http.Header{}, body)
		assert.True(t, ierr.IsSignature(err))
		assert.Zero(t, fake.verifyCalls.Load())
	})

	t.Run("bad credentials", func(t *testing.T) {
		fake := newFakePayPal(t, "SUCCESS")
		p := New(NewClient(fake.server.URL, "client", "wrong", logger.NewNopLogger()), "WH-ID")
		err := p.Verify(ctx, transmissionHeaders(), body)
		require.Error(t, err)
		assert.False(t, ierr.IsSignature(err))
		assert.Equal(t, http.StatusInternalServerError, ierr.HTTPStatusFromErr(err))
	})

	t.Run("unconfigured", func(t *testing.T) {
		assert.True(t, ierr.IsSignature(New(nil, "").Verify(ctx, transmissionHeaders(), body)))
	})
}

func TestMapEventType(t *testing.T) {
	tests := map[string]entity.TransactionStatus{
		"PAYMENT.CAPTURE.COMPLETED": entity.TransactionStatusSuccess,
		"PAYMENT.CAPTURE.PENDING":   entity.TransactionStatusPending,
		"PAYMENT.CAPTURE.DENIED":    entity.TransactionStatusFailed,
		"PAYMENT.CAPTURE.DECLINED":  entity.TransactionStatusFailed,
		"PAYMENT.CAPTURE.REFUNDED":  entity.TransactionStatusRefunded,
		"PAYMENT.CAPTURE.REVERSED":  entity.TransactionStatusRefunded,
		"CHECKOUT.ORDER.VOIDED":     entity.TransactionStatusCancelled,
	}
	for in, want := range tests {
		got, ok := MapEventType(in)
		assert.True(t, ok, in)
		assert.Equal(t, want, got, in)
	}

	_, ok := MapEventType("BILLING.SUBSCRIPTION.CREATED")
	assert.False(t, ok)
}

func TestParse(t *testing.T) {
	p := New(nil, "")

	t.Run("capture", func(t *testing.T) {
		evt, err := p.Parse(nil, []byte(captureCompleted))
		require.NoError(t, err)
		assert.True(t, evt.Recognized)
		assert.Equal(t, "WH-2WR32451HC0233532-67976317FL4543714", evt.EventID)
		assert.Equal(t, "order_7", evt.OrderID)
		assert.Equal(t, entity.TransactionTypeTopup, evt.TransactionType)
		assert.Equal(t, "42311647XV020574X", evt.ProviderTransactionID)
		assert.Equal(t, "5O190127TN364715T", evt.ProviderPaymentID)
		assert.Equal(t, entity.TransactionStatusSuccess, evt.Status)
		assert.Equal(t, "USD", evt.Currency)
		assert.Equal(t, "25.5", evt.Amount.String())
	})

	t.Run("denied with bare custom id", func(t *testing.T) {
		body := `{"id":"WH-1","event_type":"PAYMENT.CAPTURE.DENIED","resource":{"id":"CAP-1","status":"DECLINED",` +
			`"custom_id":"order_8","status_details":{"reason":"INSTRUMENT_DECLINED"}}}`
		evt, err := p.Parse(nil, []byte(body))
		require.NoError(t, err)
		assert.Equal(t, "order_8", evt.OrderID)
		assert.Equal(t, entity.TransactionStatusFailed, evt.Status)
		assert.Equal(t, "INSTRUMENT_DECLINED", evt.FailureReason)
		assert.Empty(t, evt.TransactionType)
	})

	t.Run("voided order", func(t *testing.T) {
		body := `{"id":"WH-2","event_type":"CHECKOUT.ORDER.VOIDED","resource":{"id":"5O190127TN364715T",` +
			`"purchase_units":[{"custom_id":"{\"order_id\":\"order_9\",\"transaction_type\":\"plan\"}","amount":{"currency_code":"USD","value":"10.00"}}]}}`
		evt, err := p.Parse(nil, []byte(body))
		require.NoError(t, err)
		assert.Equal(t, "order_9", evt.OrderID)
		assert.Equal(t, "5O190127TN364715T", evt.ProviderPaymentID)
		assert.Empty(t, evt.ProviderTransactionID)
		assert.Equal(t, entity.TransactionStatusCancelled, evt.Status)
	})

	t.Run("unrecognized", func(t *testing.T) {
		evt, err := p.Parse(nil, []byte(`{"id":"WH-3","event_type":"CUSTOMER.DISPUTE.CREATED","resource":{}}`))
		require.NoError(t, err)
		assert.False(t, evt.Recognized)
	})

	t.Run("recognized without order", func(t *testing.T) {
		_, err := p.Parse(nil, []byte(`{"id":"WH-4","event_type":"PAYMENT.CAPTURE.COMPLETED","resource":{"id":"CAP"}}`))
		assert.True(t, ierr.IsValidation(err))
	})
}
