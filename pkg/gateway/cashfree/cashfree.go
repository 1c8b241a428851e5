// Package cashfree verifies and maps Cashfree payment gateway webhooks.
package cashfree

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"chatbot-billing-be/internal/entity"
	"chatbot-billing-be/pkg/gateway"

	"github.com/shopspring/decimal"
)

const (
	HeaderTimestamp = "x-webhook-timestamp"
	HeaderSignature = "x-webhook-signature"
)

var statusTable = map[string]entity.TransactionStatus{
	"SUCCESS":       entity.TransactionStatusSuccess,
	"FAILED":        entity.TransactionStatusFailed,
	"PENDING":       entity.TransactionStatusPending,
	"NOT_ATTEMPTED": entity.TransactionStatusPending,
	"USER_DROPPED":  entity.TransactionStatusCancelled,
	"CANCELLED":     entity.TransactionStatusCancelled,
	"VOID":          entity.TransactionStatusCancelled,
	"REFUND":        entity.TransactionStatusRefunded,
}

// MapStatus translates a Cashfree payment status. ok is false for unknown values.
func MapStatus(status string) (entity.TransactionStatus, bool) {
	s, ok := statusTable[strings.ToUpper(strings.TrimSpace(status))]
	return s, ok
}

type payload struct {
	Type      string `json:"type"`
	EventTime string `json:"event_time"`
	Data      struct {
		Order struct {
			OrderID       string              `json:"order_id"`
			OrderAmount   decimal.NullDecimal `json:"order_amount"`
			OrderCurrency string              `json:"order_currency"`
			OrderTags     map[string]string   `json:"order_tags"`
		} `json:"order"`
		Payment *struct {
			CfPaymentID     json.Number         `json:"cf_payment_id"`
			PaymentStatus   string              `json:"payment_status"`
			PaymentAmount   decimal.NullDecimal `json:"payment_amount"`
			PaymentCurrency string              `json:"payment_currency"`
			PaymentMessage  string              `json:"payment_message"`
			BankReference   string              `json:"bank_reference"`
		} `json:"payment"`
		Refund *struct {
			CfRefundID     json.Number         `json:"cf_refund_id"`
			CfPaymentID    json.Number         `json:"cf_payment_id"`
			OrderID        string              `json:"order_id"`
			RefundAmount   decimal.NullDecimal `json:"refund_amount"`
			RefundCurrency string              `json:"refund_currency"`
			RefundStatus   string              `json:"refund_status"`
			StatusDesc     string              `json:"status_description"`
			RefundTags     map[string]string   `json:"refund_tags"`
		} `json:"refund"`
	} `json:"data"`
}

type Processor struct {
	secret string
}

func New(secret string) *Processor {
	return &Processor{secret: secret}
}

func (p *Processor) Provider() entity.PaymentProvider {
	return entity.ProviderCashfree
}

// Sign computes base64(HMAC-SHA256(secret, timestamp || body)).
func Sign(secret, timestamp string, body []byte) string {
	return base64.StdEncoding.EncodeToString(gateway.HMACSHA256(secret, []byte(timestamp), body))
}

func (p *Processor) Verify(ctx context.Context, headers http.Header, body []byte) error {
	if p.secret == "" {
		return gateway.SignatureError(entity.ProviderCashfree, "webhook secret not configured")
	}
	timestamp := headers.Get(HeaderTimestamp)
	signature := headers.Get(HeaderSignature)
	if timestamp == "" || signature == "" {
		return gateway.SignatureError(entity.ProviderCashfree, "missing signature headers")
	}
	if !gateway.EqualSignatures(Sign(p.secret, timestamp, body), signature) {
		return gateway.SignatureError(entity.ProviderCashfree, "signature mismatch")
	}
	return nil
}

func (p *Processor) Parse(headers http.Header, body []byte) (*gateway.Event, error) {
	var in payload
	if err := json.Unmarshal(body, &in); err != nil {
		return nil, gateway.PayloadError(entity.ProviderCashfree, err)
	}

	evt := &gateway.Event{
		Provider:  entity.ProviderCashfree,
		EventID:   gateway.BodyDigest("cf", body),
		EventType: in.Type,
		OrderID:   in.Data.Order.OrderID,
		Currency:  in.Data.Order.OrderCurrency,
		Raw:       gateway.RawMap(body),
	}
	meta := gateway.Metadata{TransactionType: in.Data.Order.OrderTags["transaction_type"]}
	if in.Data.Order.OrderAmount.Valid {
		evt.Amount = &in.Data.Order.OrderAmount.Decimal
	}

	switch {
	case in.Data.Refund != nil:
		r := in.Data.Refund
		if evt.OrderID == "" {
			evt.OrderID = r.OrderID
		}
		if meta.TransactionType == "" {
			meta.TransactionType = r.RefundTags["transaction_type"]
		}
		evt.ProviderTransactionID = r.CfPaymentID.String()
		if r.RefundAmount.Valid {
			evt.Amount = &r.RefundAmount.Decimal
		}
		if r.RefundCurrency != "" {
			evt.Currency = r.RefundCurrency
		}
		// Only a completed refund changes the payment state.
		if strings.EqualFold(r.RefundStatus, "SUCCESS") {
			evt.Status, evt.Recognized = entity.TransactionStatusRefunded, true
		}

	case in.Data.Payment != nil:
		pay := in.Data.Payment
		evt.ProviderTransactionID = pay.CfPaymentID.String()
		evt.FailureReason = pay.PaymentMessage
		if pay.PaymentAmount.Valid {
			evt.Amount = &pay.PaymentAmount.Decimal
		}
		if pay.PaymentCurrency != "" {
			evt.Currency = pay.PaymentCurrency
		}
		evt.Status, evt.Recognized = MapStatus(pay.PaymentStatus)
	}

	evt.TransactionType = meta.Type()
	if evt.Status != entity.TransactionStatusFailed {
		evt.FailureReason = ""
	}
	if evt.Recognized && evt.OrderID == "" {
		return nil, gateway.PayloadError(entity.ProviderCashfree, errors.New("order_id missing"))
	}
	return evt, nil
}
