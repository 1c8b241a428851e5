package usage

import (
	"testing"

	"chatbot-billing-be/internal/entity"

	"github.com/stretchr/testify/assert"
)

func TestWeightedConsumption(t *testing.T) {
	tests := []struct {
		name  string
		token entity.ConsumedToken
		want  float64
	}{
		{"zero", entity.ConsumedToken{}, 0},
		{"request only", entity.ConsumedToken{RequestToken: 100}, 50},
		{"response only", entity.ConsumedToken{ResponseToken: 100}, 30},
		{"openai request only", entity.ConsumedToken{OpenAiRequestToken: 100}, 20},
		{"openai response only", entity.ConsumedToken{OpenAiResponseToken: 100}, 50},
		{
			name: "blend",
			token: entity.ConsumedToken{
				RequestToken: 10, ResponseToken: 20, OpenAiRequestToken: 30, OpenAiResponseToken: 40,
			},
			// 5 + 6 + 6 + 20
			want: 37,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, WeightedConsumption(tt.token), 1e-9)
		})
	}
}
