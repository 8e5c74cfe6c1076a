package perfume

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/banghyang/scentflow/pkg/catalog"
	"github.com/banghyang/scentflow/pkg/flowgraph"
	flowerrors "github.com/banghyang/scentflow/pkg/flowgraph/errors"
	"github.com/banghyang/scentflow/pkg/flowgraph/llm"
	"github.com/banghyang/scentflow/pkg/flowgraph/observability"
	"github.com/banghyang/scentflow/pkg/history"
	"github.com/banghyang/scentflow/pkg/imagegen"
)

// DefaultImageDir is where generated images are moved.
const DefaultImageDir = "generated_images"

// defaultLineID is the scent line used when nothing else names one.
const defaultLineID = 1

// Deps are the collaborators an Engine calls. LLM and Catalog are
// required; the rest switch features off when nil.
type Deps struct {
	LLM      llm.Client
	Catalog  catalog.Gateway
	Images   imagegen.Client
	Keywords KeywordExtractor
	History  *history.Conversation
	Recorder Recorder
}

// Status is the outcome of a request.
type Status string

const (
	StatusSuccess Status = "success"
	StatusError   Status = "error"
)

// Request is one user query.
type Request struct {
	Input  string `json:"user_input"`
	UserID string `json:"user_id,omitempty"`
}

// Result is the answer to a Request.
//
// Response is a string for chat, a *Reply for recommendations and a
// *Failure when Status is StatusError.
type Result struct {
	Status          Status           `json:"status"`
	Recommendations []Recommendation `json:"recommendation"`
	Response        any              `json:"response"`
	ImagePath       *string          `json:"image_path"`
}

// Engine runs the perfume workflow. It is safe for concurrent use.
type Engine struct {
	deps  Deps
	graph *flowgraph.CompiledGraph[State]

	logger   *slog.Logger
	metrics  observability.MetricsRecorder
	retry    flowerrors.RetryConfig
	imageDir string
	now      func() time.Time
	runOpts  []flowgraph.RunOption
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the engine logger. Nodes log through a child of it.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithMetricsRecorder records model calls as an "llm" dependency.
func WithMetricsRecorder(m observability.MetricsRecorder) Option {
	return func(e *Engine) {
		if m != nil {
			e.metrics = m
		}
	}
}

// WithRetry sets the retry policy for model calls.
// Default: flowerrors.ModelRetry
func WithRetry(cfg flowerrors.RetryConfig) Option {
	return func(e *Engine) {
		e.retry = cfg
	}
}

// WithImageDir sets where generated images are moved.
// Default: DefaultImageDir
func WithImageDir(dir string) Option {
	return func(e *Engine) {
		if dir != "" {
			e.imageDir = dir
		}
	}
}

// WithClock overrides the time source used for debug timestamps.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// WithRunOptions passes options to every graph run, for example
// flowgraph.WithTracing(true).
func WithRunOptions(opts ...flowgraph.RunOption) Option {
	return func(e *Engine) {
		e.runOpts = append(e.runOpts, opts...)
	}
}

// New validates deps and compiles the workflow.
func New(deps Deps, opts ...Option) (*Engine, error) {
	if deps.LLM == nil {
		return nil, errors.New("perfume: LLM client is required")
	}
	if deps.Catalog == nil {
		return nil, errors.New("perfume: catalog gateway is required")
	}

	e := &Engine{
		deps:     deps,
		logger:   slog.Default(),
		metrics:  observability.NoopMetrics{},
		retry:    flowerrors.ModelRetry,
		imageDir: DefaultImageDir,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}

	graph, err := e.buildGraph()
	if err != nil {
		return nil, fmt.Errorf("perfume: build graph: %w", err)
	}
	e.graph = graph
	return e, nil
}

// Graph exposes the compiled workflow for inspection.
func (e *Engine) Graph() *flowgraph.CompiledGraph[State] {
	return e.graph
}

// Run answers one request. It never returns an error; failures are
// reported through Result.Status.
func (e *Engine) Run(ctx context.Context, req Request) Result {
	final := e.RunState(ctx, req)
	return toResult(final)
}

// RunState runs the workflow and returns its terminal state.
func (e *Engine) RunState(ctx context.Context, req Request) State {
	runID := uuid.NewString()
	fgCtx := flowgraph.NewContext(ctx,
		flowgraph.WithLogger(e.logger),
		flowgraph.WithContextRunID(runID),
	)

	initial := State{
		Input:  req.Input,
		UserID: req.UserID,
		Intent: IntentUnknown,
	}

	opts := append([]flowgraph.RunOption{
		flowgraph.WithGraphName("perfume"),
		flowgraph.WithObservabilityLogger(e.logger),
	}, e.runOpts...)

	final, err := e.graph.Run(fgCtx, initial, opts...)
	if err != nil {
		// Nodes do not return errors, so this is a panic, cancellation or
		// routing fault. The caller gets the generic failure.
		e.logger.Error("workflow aborted",
			slog.String("run_id", runID),
			slog.String("error", err.Error()),
		)
		final.Response = nil
		final.Recommendations = nil
		final.ImagePath = nil
		final.Error = errEngineFailure
		final.Failure = newFailure(errEngineFailure, e.now())
	}
	return final
}

func toResult(s State) Result {
	if s.Error != "" {
		failure := s.Failure
		if failure == nil {
			failure = newFailure(s.Error, time.Now())
		}
		return Result{
			Status:          StatusError,
			Recommendations: []Recommendation{},
			Response:        failure,
		}
	}

	res := Result{
		Status:          StatusSuccess,
		Recommendations: s.Recommendations,
		ImagePath:       s.ImagePath,
	}
	if s.Response != nil && s.Response.Mode == string(IntentChat) {
		res.Response = s.Response.Content
	} else {
		res.Response = s.Response
	}
	return res
}
