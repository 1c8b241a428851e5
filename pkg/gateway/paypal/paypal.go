// Package paypal verifies and maps PayPal REST webhooks.
package paypal

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"chatbot-billing-be/internal/entity"
	"chatbot-billing-be/pkg/gateway"

	"github.com/shopspring/decimal"
)

const (
	HeaderAuthAlgo         = "PAYPAL-AUTH-ALGO"
	HeaderCertURL          = "PAYPAL-CERT-URL"
	HeaderTransmissionID   = "PAYPAL-TRANSMISSION-ID"
	HeaderTransmissionSig  = "PAYPAL-TRANSMISSION-SIG"
	HeaderTransmissionTime = "PAYPAL-TRANSMISSION-TIME"
)

var eventTable = map[string]entity.TransactionStatus{
	"PAYMENT.CAPTURE.COMPLETED": entity.TransactionStatusSuccess,
	"PAYMENT.CAPTURE.PENDING":   entity.TransactionStatusPending,
	"PAYMENT.CAPTURE.DENIED":    entity.TransactionStatusFailed,
	"PAYMENT.CAPTURE.DECLINED":  entity.TransactionStatusFailed,
	"PAYMENT.CAPTURE.REFUNDED":  entity.TransactionStatusRefunded,
	"PAYMENT.CAPTURE.REVERSED":  entity.TransactionStatusRefunded,
	"CHECKOUT.ORDER.VOIDED":     entity.TransactionStatusCancelled,
}

func MapEventType(eventType string) (entity.TransactionStatus, bool) {
	s, ok := eventTable[strings.ToUpper(strings.TrimSpace(eventType))]
	return s, ok
}

type amount struct {
	CurrencyCode string              `json:"currency_code"`
	Value        decimal.NullDecimal `json:"value"`
}

type payload struct {
	ID        string `json:"id"`
	EventType string `json:"event_type"`
	Resource  struct {
		ID                string  `json:"id"`
		Status            string  `json:"status"`
		CustomID          string  `json:"custom_id"`
		Amount            *amount `json:"amount"`
		SupplementaryData struct {
			RelatedIDs struct {
				OrderID string `json:"order_id"`
			} `json:"related_ids"`
		} `json:"supplementary_data"`
		StatusDetails struct {
			Reason string `json:"reason"`
		} `json:"status_details"`
		PurchaseUnits []struct {
			CustomID string  `json:"custom_id"`
			Amount   *amount `json:"amount"`
		} `json:"purchase_units"`
	} `json:"resource"`
}

// Verifier checks a webhook transmission with PayPal. *Client satisfies it.
type Verifier interface {
	VerifyWebhookSignature(ctx context.Context, in VerifyRequest) (string, error)
}

type Processor struct {
	verifier  Verifier
	webhookID string
}

func New(verifier Verifier, webhookID string) *Processor {
	return &Processor{verifier: verifier, webhookID: webhookID}
}

func (p *Processor) Provider() entity.PaymentProvider {
	return entity.ProviderPaypal
}

func (p *Processor) Verify(ctx context.Context, headers http.Header, body []byte) error {
	if p.verifier == nil || p.webhookID == "" {
		return gateway.SignatureError(entity.ProviderPaypal, "webhook verification not configured")
	}

	req := VerifyRequest{
		AuthAlgo:         headers.Get(HeaderAuthAlgo),
		CertURL:          headers.Get(HeaderCertURL),
		TransmissionID:   headers.Get(HeaderTransmissionID),
		TransmissionSig:  headers.Get(HeaderTransmissionSig),
		TransmissionTime: headers.Get(HeaderTransmissionTime),
		WebhookID:        p.webhookID,
		WebhookEvent:     json.RawMessage(body),
	}
	if req.AuthAlgo == "" || req.CertURL == "" || req.TransmissionID == "" || req.TransmissionSig == "" || req.TransmissionTime == "" {
		return gateway.SignatureError(entity.ProviderPaypal, "missing transmission headers")
	}
	if !json.Valid(body) {
		return gateway.PayloadError(entity.ProviderPaypal, errors.New("body is not JSON"))
	}

	// Transport failures surface as http client errors so the provider retries.
	status, err := p.verifier.VerifyWebhookSignature(ctx, req)
	if err != nil {
		return err
	}
	if !strings.EqualFold(status, "SUCCESS") {
		return gateway.SignatureError(entity.ProviderPaypal, "verification status "+status)
	}
	return nil
}

// parseCustomID accepts the JSON metadata written at order creation or a bare order id.
func parseCustomID(raw string) gateway.Metadata {
	raw = strings.TrimSpace(raw)
	var meta gateway.Metadata
	if strings.HasPrefix(raw, "{") && json.Unmarshal([]byte(raw), &meta) == nil {
		return meta
	}
	return gateway.Metadata{OrderID: raw}
}

func (p *Processor) Parse(headers http.Header, body []byte) (*gateway.Event, error) {
	var in payload
	if err := json.Unmarshal(body, &in); err != nil {
		return nil, gateway.PayloadError(entity.ProviderPaypal, err)
	}

	res := in.Resource
	evt := &gateway.Event{
		Provider:  entity.ProviderPaypal,
		EventID:   in.ID,
		EventType: in.EventType,
		Raw:       gateway.RawMap(body),
	}
	if evt.EventID == "" {
		evt.EventID = gateway.BodyDigest("pp", body)
	}

	customID, amt := res.CustomID, res.Amount
	if strings.HasPrefix(strings.ToUpper(in.EventType), "CHECKOUT.ORDER.") {
		// Order events carry the PayPal order as the resource.
		evt.ProviderPaymentID = res.ID
		if len(res.PurchaseUnits) > 0 {
			customID, amt = res.PurchaseUnits[0].CustomID, res.PurchaseUnits[0].Amount
		}
	} else {
		evt.ProviderTransactionID = res.ID
		evt.ProviderPaymentID = res.SupplementaryData.RelatedIDs.OrderID
	}

	meta := parseCustomID(customID)
	evt.OrderID = meta.OrderID
	evt.TransactionType = meta.Type()
	if amt != nil {
		evt.Currency = amt.CurrencyCode
		if amt.Value.Valid {
			evt.Amount = &amt.Value.Decimal
		}
	}

	evt.Status, evt.Recognized = MapEventType(in.EventType)
	if evt.Status == entity.TransactionStatusFailed {
		evt.FailureReason = res.StatusDetails.Reason
		if evt.FailureReason == "" {
			evt.FailureReason = res.Status
		}
	}
	if evt.Recognized && evt.OrderID == "" {
		return nil, gateway.PayloadError(entity.ProviderPaypal, errors.New("custom_id missing"))
	}
	return evt, nil
}
