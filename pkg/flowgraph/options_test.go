package flowgraph

import (
	"context"
	"testing"
	"time"

	"github.com/banghyang/scentflow/pkg/flowgraph/observability"
	"github.com/stretchr/testify/assert"
)

func TestDefaultRunConfig(t *testing.T) {
	cfg := defaultRunConfig()

	assert.Equal(t, DefaultMaxIterations, cfg.maxIterations)
	assert.Equal(t, "flowgraph", cfg.graphName)
	assert.IsType(t, observability.NoopMetrics{}, cfg.metrics)
	assert.IsType(t, observability.NoopSpanManager{}, cfg.spans)
	assert.False(t, cfg.tracingEnabled)
}

func TestWithMaxIterations(t *testing.T) {
	cfg := defaultRunConfig()
	WithMaxIterations(7)(&cfg)
	assert.Equal(t, 7, cfg.maxIterations)

	assert.PanicsWithValue(t, "flowgraph: max iterations must be > 0", func() {
		WithMaxIterations(0)
	})
	assert.PanicsWithValue(t, "flowgraph: max iterations exceeds limit", func() {
		WithMaxIterations(MaxIterationsLimit + 1)
	})
}

func TestRunOptions(t *testing.T) {
	cfg := defaultRunConfig()

	WithRunID("abc")(&cfg)
	WithGraphName("perfume")(&cfg)
	WithGraphName("")(&cfg)
	WithTracing(true)(&cfg)

	assert.Equal(t, "abc", cfg.runID)
	assert.Equal(t, "perfume", cfg.graphName)
	assert.True(t, cfg.tracingEnabled)
	assert.NotEqual(t, observability.NoopSpanManager{}, cfg.spans)

	WithTracing(false)(&cfg)
	assert.False(t, cfg.tracingEnabled)
	assert.IsType(t, observability.NoopSpanManager{}, cfg.spans)

	WithMetrics(false)(&cfg)
	assert.IsType(t, observability.NoopMetrics{}, cfg.metrics)
}

type countingMetrics struct {
	observability.NoopMetrics
	runs int
}

func (c *countingMetrics) RecordGraphRun(context.Context, bool, time.Duration) { c.runs++ }

func TestWithMetricsRecorder(t *testing.T) {
	cfg := defaultRunConfig()
	m := &countingMetrics{}

	WithMetricsRecorder(m)(&cfg)
	assert.Same(t, m, cfg.metrics)

	WithMetricsRecorder(nil)(&cfg)
	assert.IsType(t, observability.NoopMetrics{}, cfg.metrics)
}
