package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type Transaction struct {
	Id                    uint            `gorm:"primaryKey;autoIncrement"`
	UserId                uint            `gorm:"not null;index"`
	PlanId                *uint           `gorm:"index"`
	TransactionType       string          `gorm:"type:varchar(20);not null"`
	Amount                decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	Currency              string          `gorm:"type:varchar(10);not null"`
	Provider              string          `gorm:"type:varchar(20);not null;uniqueIndex:idx_transactions_provider_txn,priority:1"`
	ProviderTransactionId *string         `gorm:"type:varchar(255);uniqueIndex:idx_transactions_provider_txn,priority:2"`
	ProviderPaymentId     *string         `gorm:"type:varchar(255);uniqueIndex"`
	Status                string          `gorm:"type:varchar(20);not null;index"`
	OrderId               string          `gorm:"type:varchar(255);uniqueIndex;not null"`
	FailureReason         *string         `gorm:"type:text"`
	CreatedAt             time.Time       `gorm:"autoCreateTime"`
	UpdatedAt             time.Time       `gorm:"autoUpdateTime"`
	CompletedAt           *time.Time
}

func (Transaction) TableName() string {
	return "transactions"
}
