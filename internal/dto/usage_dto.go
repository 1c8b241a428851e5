package dto

import "time"

type ConsumeRequest struct {
	ConsumedTokenType   string  `json:"consumed_token_type" validate:"required,oneof=user whatsapp slack wordpress zapier"`
	RequestToken        float64 `json:"request_token" validate:"gte=0"`
	ResponseToken       float64 `json:"response_token" validate:"gte=0"`
	OpenAiRequestToken  float64 `json:"openai_request_token" validate:"gte=0"`
	OpenAiResponseToken float64 `json:"openai_response_token" validate:"gte=0"`
	RequestMessage      string  `json:"request_message"`
	ResponseMessage     string  `json:"response_message"`
}

type ChannelUsage struct {
	Request  float64 `json:"request"`
	Response float64 `json:"response"`
}

type TokenUsageResponse struct {
	BotID                    uint                    `json:"bot_id"`
	UserCreditID             uint                    `json:"user_credit_id"`
	TokenLimit               float64                 `json:"token_limit"`
	CombinedTokenConsumption float64                 `json:"combined_token_consumption"`
	Remaining                float64                 `json:"remaining"`
	OpenAi                   ChannelUsage            `json:"openai"`
	Channels                 map[string]ChannelUsage `json:"channels"`
	UpdatedAt                time.Time               `json:"updated_at"`
}

type TokenUsageHistoryResponse struct {
	BotID                    uint                    `json:"bot_id"`
	UserCreditID             uint                    `json:"user_credit_id"`
	TokenLimit               float64                 `json:"token_limit"`
	CombinedTokenConsumption float64                 `json:"combined_token_consumption"`
	OpenAi                   ChannelUsage            `json:"openai"`
	Channels                 map[string]ChannelUsage `json:"channels"`
	ArchivedAt               time.Time               `json:"archived_at"`
}

type AvailabilityResponse struct {
	BotID      uint    `json:"bot_id"`
	TokenLimit float64 `json:"token_limit"`
	Consumed   float64 `json:"combined_token_consumption"`
	Remaining  float64 `json:"remaining"`
	RateLimit  int64   `json:"rate_limit"`
	RateUsed   int64   `json:"rate_used"`
	ResetInSec int64   `json:"rate_reset_in_seconds"`
}

type UsageSummaryResponse struct {
	UserID                   uint                 `json:"user_id"`
	TokenLimit               float64              `json:"token_limit"`
	CombinedTokenConsumption float64              `json:"combined_token_consumption"`
	Remaining                float64              `json:"remaining"`
	Credits                  *CreditsResponse     `json:"credits,omitempty"`
	Bots                     []TokenUsageResponse `json:"bots"`
}
