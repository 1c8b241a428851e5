package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

type CreateOrderRequest struct {
	TransactionType string `json:"transaction_type" validate:"required,oneof=plan topup"`
	Provider        string `json:"provider" validate:"required,oneof=cashfree paypal razorpay"`
	PlanID          *uint  `json:"plan_id,omitempty"`
	// Amount is required for topups; plan orders are priced from the plan.
	Amount   *decimal.Decimal `json:"amount,omitempty"`
	Currency string           `json:"currency,omitempty" validate:"omitempty,len=3"`
}

type TrialRequest struct {
	PlanID uint `json:"plan_id" validate:"required,gt=0"`
}

type PlanResponse struct {
	ID              uint            `json:"id"`
	Name            string          `json:"name"`
	Price           decimal.Decimal `json:"price"`
	Currency        string          `json:"currency"`
	DurationDays    int             `json:"duration_days"`
	TokenPerUnit    int             `json:"token_per_unit"`
	ChatbotsAllowed int             `json:"chatbots_allowed"`
}

type TransactionResponse struct {
	ID                    uint            `json:"id"`
	OrderID               string          `json:"order_id"`
	UserID                uint            `json:"user_id"`
	PlanID                *uint           `json:"plan_id,omitempty"`
	TransactionType       string          `json:"transaction_type"`
	Amount                decimal.Decimal `json:"amount"`
	Currency              string          `json:"currency"`
	Provider              string          `json:"provider"`
	ProviderTransactionID *string         `json:"provider_transaction_id,omitempty"`
	ProviderPaymentID     *string         `json:"provider_payment_id,omitempty"`
	Status                string          `json:"status"`
	FailureReason         *string         `json:"failure_reason,omitempty"`
	CreatedAt             time.Time       `json:"created_at"`
	CompletedAt           *time.Time      `json:"completed_at,omitempty"`
}

type CreditsResponse struct {
	ID               uint            `json:"id"`
	PlanID           uint            `json:"plan_id"`
	TransID          uint            `json:"trans_id"`
	StartDate        time.Time       `json:"start_date"`
	ExpiryDate       time.Time       `json:"expiry_date"`
	CreditsPurchased decimal.Decimal `json:"credits_purchased"`
	CreditsConsumed  decimal.Decimal `json:"credits_consumed"`
	CreditBalance    decimal.Decimal `json:"credit_balance"`
	TokenPerUnit     int             `json:"token_per_unit"`
	ChatbotsAllowed  int             `json:"chatbots_allowed"`
	TokenLimit       float64         `json:"token_limit"`
}

type CreditHistoryResponse struct {
	OriginalCreditID uint            `json:"original_credit_id"`
	PlanID           uint            `json:"plan_id"`
	TransID          uint            `json:"trans_id"`
	StartDate        time.Time       `json:"start_date"`
	ExpiryDate       time.Time       `json:"expiry_date"`
	CreditsPurchased decimal.Decimal `json:"credits_purchased"`
	CreditsConsumed  decimal.Decimal `json:"credits_consumed"`
	CreditBalance    decimal.Decimal `json:"credit_balance"`
	ExpiryReason     string          `json:"expiry_reason"`
	ArchivedAt       time.Time       `json:"archived_at"`
}

type CreditStatusResponse struct {
	Active  *CreditsResponse        `json:"active"`
	History []CreditHistoryResponse `json:"history"`
}

type TrialResponse struct {
	Transaction TransactionResponse `json:"transaction"`
	Credits     CreditsResponse     `json:"credits"`
	Resync      map[string]any      `json:"resync"`
}

type WebhookAckResponse struct {
	Provider      string `json:"provider"`
	EventID       string `json:"event_id"`
	Action        string `json:"action"`
	OrderID       string `json:"order_id,omitempty"`
	TransactionID uint   `json:"transaction_id,omitempty"`
	Status        string `json:"status,omitempty"`
}
