// Package razorpay verifies and maps Razorpay webhooks.
package razorpay

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"chatbot-billing-be/internal/entity"
	"chatbot-billing-be/pkg/gateway"

	"github.com/shopspring/decimal"
)

const (
	HeaderSignature = "X-Razorpay-Signature"
	HeaderEventID   = "X-Razorpay-Event-Id"
)

var eventTable = map[string]entity.TransactionStatus{
	"payment.captured":   entity.TransactionStatusSuccess,
	"order.paid":         entity.TransactionStatusSuccess,
	"payment.failed":     entity.TransactionStatusFailed,
	"payment.authorized": entity.TransactionStatusPending,
	"refund.processed":   entity.TransactionStatusRefunded,
}

func MapEvent(event string) (entity.TransactionStatus, bool) {
	s, ok := eventTable[strings.ToLower(strings.TrimSpace(event))]
	return s, ok
}

// notes is an object in practice but Razorpay sends [] when empty.
type notes map[string]string

func (n *notes) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || b[0] != '{' {
		*n = nil
		return nil
	}
	var raw map[string]any
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	out := make(notes, len(raw))
	for k, v := range raw {
		out[k] = fmt.Sprint(v)
	}
	*n = out
	return nil
}

type payment struct {
	ID               string `json:"id"`
	OrderID          string `json:"order_id"`
	Amount           int64  `json:"amount"`
	Currency         string `json:"currency"`
	Status           string `json:"status"`
	ErrorDescription string `json:"error_description"`
	Notes            notes  `json:"notes"`
}

type payload struct {
	Event   string `json:"event"`
	Payload struct {
		Payment *struct {
			Entity payment `json:"entity"`
		} `json:"payment"`
		Order *struct {
			Entity struct {
				ID       string `json:"id"`
				Amount   int64  `json:"amount"`
				Currency string `json:"currency"`
				Notes    notes  `json:"notes"`
			} `json:"entity"`
		} `json:"order"`
		Refund *struct {
			Entity struct {
				ID        string `json:"id"`
				PaymentID string `json:"payment_id"`
				Amount    int64  `json:"amount"`
				Currency  string `json:"currency"`
				Notes     notes  `json:"notes"`
			} `json:"entity"`
		} `json:"refund"`
	} `json:"payload"`
}

type Processor struct {
	secret string
}

func New(secret string) *Processor {
	return &Processor{secret: secret}
}

func (p *Processor) Provider() entity.PaymentProvider {
	return entity.ProviderRazorpay
}

// Sign computes hex(HMAC-SHA256(secret, body)).
func Sign(secret string, body []byte) string {
	return hex.EncodeToString(gateway.HMACSHA256(secret, body))
}

func (p *Processor) Verify(ctx context.Context, headers http.Header, body []byte) error {
	if p.secret == "" {
		return gateway.SignatureError(entity.ProviderRazorpay, "webhook secret not configured")
	}
	signature := headers.Get(HeaderSignature)
	if signature == "" {
		return gateway.SignatureError(entity.ProviderRazorpay, "missing signature header")
	}
	if !gateway.EqualSignatures(Sign(p.secret, body), signature) {
		return gateway.SignatureError(entity.ProviderRazorpay, "signature mismatch")
	}
	return nil
}

// Amounts arrive in the currency's smallest unit.
func minorToMajor(v int64) *decimal.Decimal {
	d := decimal.New(v, -2)
	return &d
}

func (p *Processor) Parse(headers http.Header, body []byte) (*gateway.Event, error) {
	var in payload
	if err := json.Unmarshal(body, &in); err != nil {
		return nil, gateway.PayloadError(entity.ProviderRazorpay, err)
	}

	evt := &gateway.Event{
		Provider:  entity.ProviderRazorpay,
		EventID:   headers.Get(HeaderEventID),
		EventType: in.Event,
		Raw:       gateway.RawMap(body),
	}
	if evt.EventID == "" {
		evt.EventID = gateway.BodyDigest("rzp", body)
	}

	var n notes
	if pay := in.Payload.Payment; pay != nil {
		e := pay.Entity
		evt.ProviderTransactionID = e.ID
		evt.ProviderPaymentID = e.OrderID
		evt.Amount = minorToMajor(e.Amount)
		evt.Currency = e.Currency
		evt.FailureReason = e.ErrorDescription
		n = e.Notes
	}
	if order := in.Payload.Order; order != nil {
		if evt.ProviderPaymentID == "" {
			evt.ProviderPaymentID = order.Entity.ID
		}
		if n == nil {
			n = order.Entity.Notes
			evt.Amount = minorToMajor(order.Entity.Amount)
			evt.Currency = order.Entity.Currency
		}
	}
	if refund := in.Payload.Refund; refund != nil {
		if evt.ProviderTransactionID == "" {
			evt.ProviderTransactionID = refund.Entity.PaymentID
		}
		if n == nil {
			n = refund.Entity.Notes
		}
	}

	meta := gateway.Metadata{OrderID: n["order_id"], TransactionType: n["transaction_type"]}
	evt.OrderID = meta.OrderID
	evt.TransactionType = meta.Type()

	evt.Status, evt.Recognized = MapEvent(in.Event)
	if evt.Status != entity.TransactionStatusFailed {
		evt.FailureReason = ""
	}
	// Refunds may omit notes; they still resolve through the payment id.
	if evt.Recognized && evt.OrderID == "" && evt.ProviderTransactionID == "" && evt.ProviderPaymentID == "" {
		return nil, gateway.PayloadError(entity.ProviderRazorpay, errors.New("no order reference"))
	}
	return evt, nil
}
