package logger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.opentelemetry.io/otel/trace"
)

func TestWithTrace(t *testing.T) {
	details := map[string]interface{}{"order_id": "order_1"}

	t.Run("no span", func(t *testing.T) {
		out := WithTrace(context.Background(), details)
		assert.Equal(t, details, out)
	})

	t.Run("active span", func(t *testing.T) {
		sc := trace.NewSpanContext(trace.SpanContextConfig{
			TraceID: trace.TraceID{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16},
			SpanID:  trace.SpanID{1, 2, 3, 4, 5, 6, 7, 8},
		})
		ctx := trace.ContextWithSpanContext(context.Background(), sc)

		out := WithTrace(ctx, details)
		assert.Equal(t, "0102030405060708090a0b0c0d0e0f10", out["trace_id"])
		assert.Equal(t, "0102030405060708", out["span_id"])
		assert.Equal(t, "order_1", out["order_id"])
		assert.NotContains(t, details, "trace_id")
	})
}

func TestNopLoggerAcceptsNilDetails(t *testing.T) {
	l := NewNopLogger()
	l.Info("TEST", "message", nil)
	l.Error("TEST", "failure", map[string]interface{}{"error": "boom"})
	assert.NoError(t, l.Sync())
}
