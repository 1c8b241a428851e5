package entity

import "time"

type ConsumedTokenType string

const (
	ConsumedTokenUser      ConsumedTokenType = "user"
	ConsumedTokenWhatsapp  ConsumedTokenType = "whatsapp"
	ConsumedTokenSlack     ConsumedTokenType = "slack"
	ConsumedTokenWordpress ConsumedTokenType = "wordpress"
	ConsumedTokenZapier    ConsumedTokenType = "zapier"
)

func (t ConsumedTokenType) Valid() bool {
	switch t {
	case ConsumedTokenUser, ConsumedTokenWhatsapp, ConsumedTokenSlack, ConsumedTokenWordpress, ConsumedTokenZapier:
		return true
	}
	return false
}

// ConsumedToken is what the chat core reports after generating a response.
// The messages are carried for logging only.
type ConsumedToken struct {
	RequestToken        float64
	ResponseToken       float64
	OpenAiRequestToken  float64
	OpenAiResponseToken float64
	RequestMessage      string
	ResponseMessage     string
}

// ChannelCounters holds the itemized request/response counters of a usage row.
type ChannelCounters struct {
	OpenAiRequestToken     float64
	OpenAiResponseToken    float64
	UserRequestToken       float64
	UserResponseToken      float64
	WhatsappRequestToken   float64
	WhatsappResponseToken  float64
	SlackRequestToken      float64
	SlackResponseToken     float64
	WordpressRequestToken  float64
	WordpressResponseToken float64
	ZapierRequestToken     float64
	ZapierResponseToken    float64
}

// Add increments the counters of one channel plus the shared OpenAI counters.
func (c *ChannelCounters) Add(channel ConsumedTokenType, token ConsumedToken) {
	switch channel {
	case ConsumedTokenUser:
		c.UserRequestToken += token.RequestToken
		c.UserResponseToken += token.ResponseToken
	case ConsumedTokenWhatsapp:
		c.WhatsappRequestToken += token.RequestToken
		c.WhatsappResponseToken += token.ResponseToken
	case ConsumedTokenSlack:
		c.SlackRequestToken += token.RequestToken
		c.SlackResponseToken += token.ResponseToken
	case ConsumedTokenWordpress:
		c.WordpressRequestToken += token.RequestToken
		c.WordpressResponseToken += token.ResponseToken
	case ConsumedTokenZapier:
		c.ZapierRequestToken += token.RequestToken
		c.ZapierResponseToken += token.ResponseToken
	}
	c.OpenAiRequestToken += token.OpenAiRequestToken
	c.OpenAiResponseToken += token.OpenAiResponseToken
}

type TokenUsage struct {
	Id                       uint
	BotId                    uint
	UserId                   uint
	UserCreditId             uint
	TokenLimit               float64
	CombinedTokenConsumption float64
	ChannelCounters
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (u *TokenUsage) HasRemaining() bool {
	return u.TokenLimit > u.CombinedTokenConsumption
}

func (u *TokenUsage) Remaining() float64 {
	if !u.HasRemaining() {
		return 0
	}
	return u.TokenLimit - u.CombinedTokenConsumption
}

// Snapshot copies the full row into a history record for the period it belonged to.
func (u *TokenUsage) Snapshot(at time.Time) *TokenUsageHistory {
	return &TokenUsageHistory{
		TokenUsageId:             u.Id,
		BotId:                    u.BotId,
		UserId:                   u.UserId,
		UserCreditId:             u.UserCreditId,
		TokenLimit:               u.TokenLimit,
		CombinedTokenConsumption: u.CombinedTokenConsumption,
		ChannelCounters:          u.ChannelCounters,
		ArchivedAt:               at,
	}
}

// Reset stamps the row with a new credit grant and zeroes every counter.
func (u *TokenUsage) Reset(userCreditId uint, tokenLimit float64) {
	u.UserCreditId = userCreditId
	u.TokenLimit = tokenLimit
	u.CombinedTokenConsumption = 0
	u.ChannelCounters = ChannelCounters{}
}

type TokenUsageHistory struct {
	Id                       uint
	TokenUsageId             uint
	BotId                    uint
	UserId                   uint
	UserCreditId             uint
	TokenLimit               float64
	CombinedTokenConsumption float64
	ChannelCounters
	ArchivedAt time.Time
}
