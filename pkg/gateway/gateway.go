// Package gateway defines the provider-neutral view of a payment webhook.
// Each provider package verifies its own signature scheme and maps its
// payload onto Event.
package gateway

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"chatbot-billing-be/internal/entity"
	ierr "chatbot-billing-be/internal/pkg/errors"

	"github.com/shopspring/decimal"
)

type Event struct {
	Provider              entity.PaymentProvider
	EventID               string
	EventType             string
	OrderID               string
	ProviderTransactionID string
	ProviderPaymentID     string
	Status                entity.TransactionStatus
	TransactionType       entity.TransactionType
	Amount                *decimal.Decimal
	Currency              string
	FailureReason         string
	// Recognized is false for event types that carry no payment state change.
	Recognized bool
	Raw        map[string]any
}

type Processor interface {
	Provider() entity.PaymentProvider
	// Verify must run before the body is trusted.
	Verify(ctx context.Context, headers http.Header, body []byte) error
	Parse(headers http.Header, body []byte) (*Event, error)
}

// Metadata is what the order-creation flow attaches to the provider order so
// webhooks can be routed back to the ledger.
type Metadata struct {
	OrderID         string `json:"order_id"`
	TransactionType string `json:"transaction_type"`
}

func (m Metadata) Type() entity.TransactionType {
	t := entity.TransactionType(strings.ToLower(strings.TrimSpace(m.TransactionType)))
	if t.Valid() {
		return t
	}
	return ""
}

func SignatureError(provider entity.PaymentProvider, reason string) error {
	return ierr.NewError(fmt.Sprintf("%s webhook signature rejected: %s", provider, reason)).
		WithHint("Invalid webhook signature").
		Mark(ierr.ErrSignature)
}

func PayloadError(provider entity.PaymentProvider, err error) error {
	return ierr.WithError(err).
		WithHintf("Invalid %s webhook payload", provider).
		Mark(ierr.ErrValidation)
}

// EqualSignatures compares in constant time.
func EqualSignatures(expected, received string) bool {
	return received != "" && hmac.Equal([]byte(expected), []byte(received))
}

// HMACSHA256 returns the raw MAC of the concatenated parts.
func HMACSHA256(secret string, parts ...[]byte) []byte {
	mac := hmac.New(sha256.New, []byte(secret))
	for _, p := range parts {
		mac.Write(p)
	}
	return mac.Sum(nil)
}

// BodyDigest derives a stable event id for providers that send none.
func BodyDigest(prefix string, body []byte) string {
	sum := sha256.Sum256(body)
	return fmt.Sprintf("%s_%x", prefix, sum[:16])
}

// RawMap decodes the body for journaling and failure metadata. Non-object
// bodies yield nil.
func RawMap(body []byte) map[string]any {
	var raw map[string]any
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil
	}
	return raw
}
