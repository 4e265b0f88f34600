package tracing

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func installRecorder(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()
	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		otel.SetTracerProvider(prev)
		_ = tp.Shutdown(context.Background())
	})
	return rec
}

func TestInit_DisabledIsNoop(t *testing.T) {
	shutdown, err := Init(context.Background(), Config{Enabled: false})
	require.NoError(t, err)
	assert.NoError(t, shutdown(context.Background()))
}

func TestStartSpan_ChildSharesTraceID(t *testing.T) {
	installRecorder(t)

	ctx, root := StartSpan(context.Background(), "order.Create")
	childCtx, child := StartSpan(ctx, "inventory.Reserve")

	assert.Equal(t, ExtractTraceID(ctx), ExtractTraceID(childCtx))
	assert.NotEqual(t, ExtractSpanID(ctx), ExtractSpanID(childCtx))
	assert.Len(t, ExtractTraceID(ctx), 32)

	child.End()
	root.End()
}

func TestEnd_RecordsError(t *testing.T) {
	rec := installRecorder(t)

	_, span := StartSpan(context.Background(), "wallet.PayOrder", attribute.Int("order_id", 7))
	End(span, errors.New("insufficient balance"))

	ended := rec.Ended()
	require.Len(t, ended, 1)
	assert.Equal(t, "wallet.PayOrder", ended[0].Name())
	assert.Equal(t, codes.Error, ended[0].Status().Code)
	assert.Contains(t, ended[0].Attributes(), attribute.Int("order_id", 7))
	require.Len(t, ended[0].Events(), 1)
	assert.Equal(t, "exception", ended[0].Events()[0].Name)
}

func TestEnd_SuccessLeavesStatusUnset(t *testing.T) {
	rec := installRecorder(t)

	_, span := StartSpan(context.Background(), "sweeper.Sweep")
	End(span, nil)

	require.Len(t, rec.Ended(), 1)
	assert.Equal(t, codes.Unset, rec.Ended()[0].Status().Code)
}

func TestExtractTraceID_NoSpan(t *testing.T) {
	assert.Empty(t, ExtractTraceID(context.Background()))
	assert.Empty(t, ExtractSpanID(context.Background()))
}
