package usage

import "chatbot-billing-be/internal/entity"

// Blend weights applied to every consumption event before it is charged to
// the user's pooled quota. Raw user tokens and OpenAI-priced tokens are
// weighted differently to approximate blended cost.
const (
	RequestWeight        = 0.5
	ResponseWeight       = 0.3
	OpenAiRequestWeight  = 0.2
	OpenAiResponseWeight = 0.5
)

// WeightedConsumption is the amount a single consumption event adds to
// combined_token_consumption on every usage row of the user.
func WeightedConsumption(t entity.ConsumedToken) float64 {
	return RequestWeight*t.RequestToken +
		ResponseWeight*t.ResponseToken +
		OpenAiRequestWeight*t.OpenAiRequestToken +
		OpenAiResponseWeight*t.OpenAiResponseToken
}
