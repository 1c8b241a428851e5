package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Plan is a purchasable subscription plan.
type Plan struct {
	Id              uint
	Name            string
	Price           decimal.Decimal
	Currency        string
	DurationDays    int
	TokenPerUnit    int // tokens granted per purchased credit
	ChatbotsAllowed int
	IsActive        bool
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

func (p *Plan) ExpiryFrom(start time.Time) time.Time {
	return start.AddDate(0, 0, p.DurationDays)
}
