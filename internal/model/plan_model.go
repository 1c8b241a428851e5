package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type Plan struct {
	Id              uint            `gorm:"primaryKey;autoIncrement"`
	Name            string          `gorm:"type:varchar(255);not null"`
	Price           decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	Currency        string          `gorm:"type:varchar(10);not null;default:'INR'"`
	DurationDays    int             `gorm:"not null;default:30"`
	TokenPerUnit    int             `gorm:"not null"`
	ChatbotsAllowed int             `gorm:"not null;default:1"`
	IsActive        bool            `gorm:"default:true"`
	CreatedAt       time.Time       `gorm:"autoCreateTime"`
	UpdatedAt       time.Time       `gorm:"autoUpdateTime"`
}

func (Plan) TableName() string {
	return "plans"
}
