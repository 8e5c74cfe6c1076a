package observability

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

// setupTracingTest creates a test tracer provider with an in-memory span recorder.
func setupTracingTest(t *testing.T) (*tracetest.InMemoryExporter, func()) {
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSyncer(exporter),
	)

	originalProvider := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)

	// Update the package-level tracer
	tracer = otel.Tracer("flowgraph")

	cleanup := func() {
		otel.SetTracerProvider(originalProvider)
		tracer = otel.Tracer("flowgraph")
		if err := tp.Shutdown(context.Background()); err != nil {
			t.Logf("Error shutting down tracer provider: %v", err)
		}
	}

	return exporter, cleanup
}

func TestSpanManager_RunAndNodeSpans(t *testing.T) {
	exporter, cleanup := setupTracingTest(t)
	defer cleanup()

	m := NewSpanManager()
	ctx, runSpan := m.StartRunSpan(context.Background(), "perfume", "run-123")
	_, nodeSpan := m.StartNodeSpan(ctx, "recommendation_generator")
	m.EndSpanWithError(nodeSpan, errors.New("boom"))
	m.EndSpanWithError(runSpan, nil)

	spans := exporter.GetSpans()
	require.Len(t, spans, 2)

	node := spans[0]
	assert.Equal(t, "flowgraph.node.recommendation_generator", node.Name)
	assert.Equal(t, codes.Error, node.Status.Code)
	assert.Contains(t, node.Attributes, attribute.String("node.id", "recommendation_generator"))

	run := spans[1]
	assert.Equal(t, "flowgraph.run", run.Name)
	assert.Equal(t, codes.Ok, run.Status.Code)
	assert.Contains(t, run.Attributes, attribute.String("graph.name", "perfume"))
	assert.Contains(t, run.Attributes, attribute.String("run.id", "run-123"))
	assert.Equal(t, run.SpanContext.SpanID(), node.Parent.SpanID())
}

func TestSpanManager_EndNilSpan(t *testing.T) {
	assert.NotPanics(t, func() {
		NewSpanManager().EndSpanWithError(nil, errors.New("x"))
	})
}

func TestAddSpanEvent(t *testing.T) {
	exporter, cleanup := setupTracingTest(t)
	defer cleanup()

	ctx, span := NewSpanManager().StartNodeSpan(context.Background(), "image_generator")
	AddSpanEvent(ctx, "image.skipped", attribute.String("reason", "no recommendations"))
	span.End()

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	require.Len(t, spans[0].Events, 1)
	assert.Equal(t, "image.skipped", spans[0].Events[0].Name)
}

func TestAddSpanEvent_NoSpan(t *testing.T) {
	assert.NotPanics(t, func() {
		AddSpanEvent(context.Background(), "ignored")
	})
}

func TestNoopSpanManager(t *testing.T) {
	m := NoopSpanManager{}
	ctx := context.Background()

	got, span := m.StartRunSpan(ctx, "g", "r")
	assert.Equal(t, ctx, got)
	assert.False(t, span.IsRecording())

	got, span = m.StartNodeSpan(ctx, "n")
	assert.Equal(t, ctx, got)
	m.EndSpanWithError(span, errors.New("ignored"))
}
