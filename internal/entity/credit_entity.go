package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

const ExpiryReasonReplaced = "Replaced by new subscription"

// UserCredits is the single live credit grant of a user.
type UserCredits struct {
	Id               uint
	UserId           uint
	PlanId           uint
	TransId          uint
	StartDate        time.Time
	ExpiryDate       time.Time
	CreditsPurchased decimal.Decimal
	CreditsConsumed  decimal.Decimal
	CreditBalance    decimal.Decimal
	TokenPerUnit     int
	ChatbotsAllowed  int
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// TokenLimit is the pooled quota this grant allows across all of the user's bots.
func (c *UserCredits) TokenLimit() float64 {
	return c.CreditsPurchased.Mul(decimal.NewFromInt(int64(c.TokenPerUnit))).InexactFloat64()
}

// ApplyConsumption recomputes consumed credits and balance from a pooled token consumption.
func (c *UserCredits) ApplyConsumption(combinedTokenConsumption float64) {
	if c.TokenPerUnit <= 0 {
		return
	}
	c.CreditsConsumed = decimal.NewFromFloat(combinedTokenConsumption).
		Div(decimal.NewFromInt(int64(c.TokenPerUnit)))
	c.CreditBalance = c.CreditsPurchased.Sub(c.CreditsConsumed)
}

// Archive produces the history snapshot written when the grant is superseded.
func (c *UserCredits) Archive(reason string, at time.Time) *HistoryUserCredits {
	return &HistoryUserCredits{
		OriginalCreditId: c.Id,
		UserId:           c.UserId,
		PlanId:           c.PlanId,
		TransId:          c.TransId,
		StartDate:        c.StartDate,
		ExpiryDate:       c.ExpiryDate,
		CreditsPurchased: c.CreditsPurchased,
		CreditsConsumed:  c.CreditsConsumed,
		CreditBalance:    c.CreditBalance,
		TokenPerUnit:     c.TokenPerUnit,
		ChatbotsAllowed:  c.ChatbotsAllowed,
		ExpiryReason:     reason,
		ArchivedAt:       at,
	}
}

type HistoryUserCredits struct {
	Id               uint
	OriginalCreditId uint
	UserId           uint
	PlanId           uint
	TransId          uint
	StartDate        time.Time
	ExpiryDate       time.Time
	CreditsPurchased decimal.Decimal
	CreditsConsumed  decimal.Decimal
	CreditBalance    decimal.Decimal
	TokenPerUnit     int
	ChatbotsAllowed  int
	ExpiryReason     string
	ArchivedAt       time.Time
}

// CreditTopup records a topup transaction applied to a grant. TransId is unique.
type CreditTopup struct {
	Id           uint
	UserCreditId uint
	TransId      uint
	Amount       decimal.Decimal
	CreatedAt    time.Time
}
