package kafka

import (
	"context"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

func TestKafkaHeaderCarrier_GetSetKeys(t *testing.T) {
	msg := kafka.Message{Headers: []kafka.Header{{Key: "existing", Value: []byte("v1")}}}
	carrier := NewHeaderCarrier(&msg)

	assert.Equal(t, "v1", carrier.Get("existing"))
	assert.Empty(t, carrier.Get("missing"))

	carrier.Set("new-key", "new-value")
	carrier.Set("existing", "updated")

	assert.Equal(t, "updated", carrier.Get("existing"))
	assert.Equal(t, "new-value", carrier.Get("new-key"))
	assert.ElementsMatch(t, []string{"existing", "new-key"}, carrier.Keys())
	assert.Len(t, msg.Headers, 2)
}

func TestKafkaHeaderCarrier_ExtractsTraceContext(t *testing.T) {
	msg := kafka.Message{Headers: []kafka.Header{
		{Key: "traceparent", Value: []byte("00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01")},
	}}

	ctx := propagation.TraceContext{}.Extract(context.Background(), NewHeaderCarrier(&msg))
	sc := trace.SpanContextFromContext(ctx)

	assert.True(t, sc.IsRemote())
	assert.Equal(t, "4bf92f3577b34da6a3ce929d0e0e4736", sc.TraceID().String())
}
