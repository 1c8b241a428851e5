package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type UserCredits struct {
	Id               uint            `gorm:"primaryKey;autoIncrement"`
	UserId           uint            `gorm:"uniqueIndex;not null"`
	PlanId           uint            `gorm:"not null;index"`
	TransId          uint            `gorm:"not null;index"`
	StartDate        time.Time       `gorm:"not null"`
	ExpiryDate       time.Time       `gorm:"not null"`
	CreditsPurchased decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	CreditsConsumed  decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	CreditBalance    decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	TokenPerUnit     int             `gorm:"not null"`
	ChatbotsAllowed  int             `gorm:"not null;default:1"`
	CreatedAt        time.Time       `gorm:"autoCreateTime"`
	UpdatedAt        time.Time       `gorm:"autoUpdateTime"`
}

func (UserCredits) TableName() string {
	return "user_credits"
}

type HistoryUserCredits struct {
	Id               uint            `gorm:"primaryKey;autoIncrement"`
	OriginalCreditId uint            `gorm:"not null;index"`
	UserId           uint            `gorm:"not null;index"`
	PlanId           uint            `gorm:"not null"`
	TransId          uint            `gorm:"not null"`
	StartDate        time.Time       `gorm:"not null"`
	ExpiryDate       time.Time       `gorm:"not null"`
	CreditsPurchased decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	CreditsConsumed  decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	CreditBalance    decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	TokenPerUnit     int             `gorm:"not null"`
	ChatbotsAllowed  int             `gorm:"not null"`
	ExpiryReason     string          `gorm:"type:varchar(255);not null"`
	ArchivedAt       time.Time       `gorm:"not null;index"`
}

func (HistoryUserCredits) TableName() string {
	return "history_user_credits"
}

type CreditTopup struct {
	Id           uint            `gorm:"primaryKey;autoIncrement"`
	UserCreditId uint            `gorm:"not null;index"`
	TransId      uint            `gorm:"uniqueIndex;not null"`
	Amount       decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	CreatedAt    time.Time       `gorm:"autoCreateTime"`
}

func (CreditTopup) TableName() string {
	return "credit_topups"
}
