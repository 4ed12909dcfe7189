package tracing

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func installRecorder(t *testing.T) *tracetest.InMemoryExporter {
	t.Helper()
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))

	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.TraceContext{})
	t.Cleanup(func() {
		_ = tp.Shutdown(context.Background())
		otel.SetTracerProvider(prev)
	})
	return exporter
}

func TestInitTracer_Disabled(t *testing.T) {
	shutdown, err := InitTracer(context.Background(), DefaultConfig("storefront"))
	require.NoError(t, err)
	require.NotNil(t, shutdown)
	assert.NoError(t, shutdown(context.Background()))
}

func TestInitTracer_Enabled(t *testing.T) {
	prev := otel.GetTracerProvider()
	t.Cleanup(func() { otel.SetTracerProvider(prev) })

	cfg := DefaultConfig("storefront")
	cfg.Enabled = true
	cfg.SampleRate = 0.25

	shutdown, err := InitTracer(context.Background(), cfg)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_ = shutdown(ctx)
}

func TestSampler(t *testing.T) {
	assert.Equal(t, sdktrace.AlwaysSample().Description(), sampler(1).Description())
	assert.Equal(t, sdktrace.NeverSample().Description(), sampler(0).Description())
	assert.Equal(t, sdktrace.TraceIDRatioBased(0.5).Description(), sampler(0.5).Description())
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig("storefront")
	assert.Equal(t, "storefront", cfg.ServiceName)
	assert.Equal(t, "localhost:4318", cfg.OTLPEndpoint)
	assert.False(t, cfg.Enabled)
	assert.Equal(t, 1.0, cfg.SampleRate)
}

func TestStartSpan_RecordsAttributesAndError(t *testing.T) {
	exporter := installRecorder(t)

	_, span := StartSpan(context.Background(), "discount.apply", attribute.String("discount.code", "SAVE10"))
	RecordError(span, errors.New("exhausted"))
	span.End()

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, "discount.apply", spans[0].Name)
	assert.Equal(t, codes.Error, spans[0].Status.Code)
	assert.Contains(t, spans[0].Attributes, attribute.String("discount.code", "SAVE10"))
}

func TestRecordError_NilIsNoop(t *testing.T) {
	exporter := installRecorder(t)

	_, span := StartSpan(context.Background(), "ok")
	RecordError(span, nil)
	span.End()

	require.Len(t, exporter.GetSpans(), 1)
	assert.Equal(t, codes.Unset, exporter.GetSpans()[0].Status.Code)
}

func TestStartClientSpan_InjectsTraceparent(t *testing.T) {
	exporter := installRecorder(t)

	req, err := http.NewRequest(http.MethodPost, "http://backend/datn/orders/place", http.NoBody)
	require.NoError(t, err)

	_, span := StartClientSpan(context.Background(), req)
	span.End()

	assert.NotEmpty(t, req.Header.Get("traceparent"))
	require.Len(t, exporter.GetSpans(), 1)
	assert.Equal(t, "backend POST /datn/orders/place", exporter.GetSpans()[0].Name)
}
