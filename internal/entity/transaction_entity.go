package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

type TransactionType string
type PaymentProvider string
type TransactionStatus string

const (
	TransactionTypePlan  TransactionType = "plan"
	TransactionTypeTopup TransactionType = "topup"

	ProviderCashfree PaymentProvider = "cashfree"
	ProviderPaypal   PaymentProvider = "paypal"
	ProviderRazorpay PaymentProvider = "razorpay"
	ProviderTrial    PaymentProvider = "trial"

	TransactionStatusCreated   TransactionStatus = "created"
	TransactionStatusPending   TransactionStatus = "pending"
	TransactionStatusSuccess   TransactionStatus = "success"
	TransactionStatusFailed    TransactionStatus = "failed"
	TransactionStatusRefunded  TransactionStatus = "refunded"
	TransactionStatusCancelled TransactionStatus = "cancelled"
)

func (t TransactionType) Valid() bool {
	return t == TransactionTypePlan || t == TransactionTypeTopup
}

func (p PaymentProvider) Valid() bool {
	switch p {
	case ProviderCashfree, ProviderPaypal, ProviderRazorpay, ProviderTrial:
		return true
	}
	return false
}

func (s TransactionStatus) Valid() bool {
	switch s {
	case TransactionStatusCreated, TransactionStatusPending, TransactionStatusSuccess,
		TransactionStatusFailed, TransactionStatusRefunded, TransactionStatusCancelled:
		return true
	}
	return false
}

// IsTerminal reports whether completed_at must be stamped when entering this status.
func (s TransactionStatus) IsTerminal() bool {
	switch s {
	case TransactionStatusSuccess, TransactionStatusFailed, TransactionStatusRefunded, TransactionStatusCancelled:
		return true
	}
	return false
}

type Transaction struct {
	Id                    uint
	UserId                uint
	PlanId                *uint
	TransactionType       TransactionType
	Amount                decimal.Decimal
	Currency              string
	Provider              PaymentProvider
	ProviderTransactionId *string
	ProviderPaymentId     *string
	Status                TransactionStatus
	OrderId               string
	FailureReason         *string
	CreatedAt             time.Time
	UpdatedAt             time.Time
	CompletedAt           *time.Time
}

// ProviderTransactionRef returns the provider transaction id or an empty string.
func (t *Transaction) ProviderTransactionRef() string {
	if t.ProviderTransactionId == nil {
		return ""
	}
	return *t.ProviderTransactionId
}
