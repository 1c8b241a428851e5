package model

import "time"

// ChannelCounters is embedded in both usage tables.
type ChannelCounters struct {
	OpenAiRequestToken     float64 `gorm:"type:double precision;not null;default:0"`
	OpenAiResponseToken    float64 `gorm:"type:double precision;not null;default:0"`
	UserRequestToken       float64 `gorm:"type:double precision;not null;default:0"`
	UserResponseToken      float64 `gorm:"type:double precision;not null;default:0"`
	WhatsappRequestToken   float64 `gorm:"type:double precision;not null;default:0"`
	WhatsappResponseToken  float64 `gorm:"type:double precision;not null;default:0"`
	SlackRequestToken      float64 `gorm:"type:double precision;not null;default:0"`
	SlackResponseToken     float64 `gorm:"type:double precision;not null;default:0"`
	WordpressRequestToken  float64 `gorm:"type:double precision;not null;default:0"`
	WordpressResponseToken float64 `gorm:"type:double precision;not null;default:0"`
	ZapierRequestToken     float64 `gorm:"type:double precision;not null;default:0"`
	ZapierResponseToken    float64 `gorm:"type:double precision;not null;default:0"`
}

type TokenUsage struct {
	Id                       uint    `gorm:"primaryKey;autoIncrement"`
	BotId                    uint    `gorm:"not null;uniqueIndex:idx_token_usages_bot_user,priority:1"`
	UserId                   uint    `gorm:"not null;uniqueIndex:idx_token_usages_bot_user,priority:2;index"`
	UserCreditId             uint    `gorm:"not null;index"`
	TokenLimit               float64 `gorm:"type:double precision;not null;default:0"`
	CombinedTokenConsumption float64 `gorm:"type:double precision;not null;default:0"`
	ChannelCounters          `gorm:"embedded"`
	CreatedAt                time.Time `gorm:"autoCreateTime"`
	UpdatedAt                time.Time `gorm:"autoUpdateTime"`
}

func (TokenUsage) TableName() string {
	return "token_usages"
}

type TokenUsageHistory struct {
	Id                       uint    `gorm:"primaryKey;autoIncrement"`
	TokenUsageId             uint    `gorm:"not null;index"`
	BotId                    uint    `gorm:"not null;index"`
	UserId                   uint    `gorm:"not null;index"`
	UserCreditId             uint    `gorm:"not null;index"`
	TokenLimit               float64 `gorm:"type:double precision;not null"`
	CombinedTokenConsumption float64 `gorm:"type:double precision;not null"`
	ChannelCounters          `gorm:"embedded"`
	ArchivedAt               time.Time `gorm:"not null"`
}

func (TokenUsageHistory) TableName() string {
	return "token_usage_histories"
}
