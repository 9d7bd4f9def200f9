package tracing

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestInitializeDisabled(t *testing.T) {
	cfg := DefaultConfig("inventory-test")
	cfg.Enabled = false

	tp, err := Initialize(context.Background(), cfg)
	require.NoError(t, err)
	assert.NotNil(t, tp.Tracer())
	assert.NoError(t, tp.Shutdown(context.Background()))
}

func TestTracedRecordsError(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	tracer := provider.Tracer("test")

	boom := errors.New("boom")
	_, err := Traced(context.Background(), tracer, "stock.reserve", func(ctx context.Context) (int, error) {
		assert.NotEmpty(t, GetTraceID(ctx))
		return 0, boom
	}, RecordSpanAttributes("rec-1", "leather", "veg-tan")...)
	assert.ErrorIs(t, err, boom)

	got, err := Traced(context.Background(), tracer, "stock.get", func(context.Context) (string, error) {
		return "ok", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", got)

	spans := recorder.Ended()
	require.Len(t, spans, 2)
	assert.Equal(t, "stock.reserve", spans[0].Name())
	assert.Equal(t, codes.Error, spans[0].Status().Code)
	assert.Len(t, spans[0].Attributes(), 3)
	assert.Equal(t, codes.Ok, spans[1].Status().Code)
}

func TestMapCarrierRoundTrip(t *testing.T) {
	cfg := DefaultConfig("inventory-test")
	cfg.Enabled = false
	_, err := Initialize(context.Background(), cfg)
	require.NoError(t, err)

	provider := sdktrace.NewTracerProvider()
	ctx, span := provider.Tracer("test").Start(context.Background(), "parent")
	defer span.End()

	carrier := MapCarrier{}
	InjectTraceContext(ctx, carrier)
	assert.Contains(t, carrier.Keys(), "traceparent")

	restored := ExtractTraceContext(context.Background(), carrier)
	assert.Equal(t, GetTraceID(ctx), GetTraceID(restored))
}

func TestSampler(t *testing.T) {
	assert.Contains(t, Sampler(1).Description(), "AlwaysOnSampler")
	assert.Contains(t, Sampler(0).Description(), "AlwaysOffSampler")
	assert.Contains(t, Sampler(0.25).Description(), "TraceIDRatioBased")
}
