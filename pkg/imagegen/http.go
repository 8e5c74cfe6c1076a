package imagegen

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"

	flowerrors "github.com/banghyang/scentflow/pkg/flowgraph/errors"
	"github.com/banghyang/scentflow/pkg/flowgraph/observability"
)

// HTTPClient calls an image service over HTTP.
//
// The service receives {"prompt": "..."} and answers either with JSON
// {"output_path": "..."} naming a file on shared storage, or with the
// image bytes themselves (an image/* content type), which are written to
// scratchDir.
type HTTPClient struct {
	endpoint   string
	http       *resty.Client
	scratchDir string
	logger     *slog.Logger
	metrics    observability.MetricsRecorder
}

// HTTPOption configures an HTTPClient.
type HTTPOption func(*HTTPClient)

// WithAPIKey sends key as a bearer token.
func WithAPIKey(key string) HTTPOption {
	return func(c *HTTPClient) {
		if key != "" {
			c.http.SetAuthToken(key)
		}
	}
}

// WithTimeout bounds each request.
func WithTimeout(d time.Duration) HTTPOption {
	return func(c *HTTPClient) {
		if d > 0 {
			c.http.SetTimeout(d)
		}
	}
}

// WithScratchDir sets where returned image bytes are written.
func WithScratchDir(dir string) HTTPOption {
	return func(c *HTTPClient) {
		c.scratchDir = dir
	}
}

// WithLogger sets the logger for failed calls.
func WithLogger(logger *slog.Logger) HTTPOption {
	return func(c *HTTPClient) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithMetrics records calls as an "image" dependency.
func WithMetrics(m observability.MetricsRecorder) HTTPOption {
	return func(c *HTTPClient) {
		if m != nil {
			c.metrics = m
		}
	}
}

// NewHTTPClient creates a client for endpoint.
func NewHTTPClient(endpoint string, opts ...HTTPOption) *HTTPClient {
	c := &HTTPClient{
		endpoint:   endpoint,
		http:       resty.New().SetTimeout(2 * time.Minute),
		scratchDir: os.TempDir(),
		logger:     slog.Default(),
		metrics:    observability.NoopMetrics{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type generateRequest struct {
	Prompt string `json:"prompt"`
}

// Generate implements Client.
func (c *HTTPClient) Generate(ctx context.Context, prompt string) (result Result, err error) {
	start := time.Now()
	defer func() {
		c.metrics.RecordDependencyCall(ctx, "image", time.Since(start), err)
		if err != nil {
			observability.LogDependencyError(c.logger, "image", "generate", err)
		}
	}()

	var body Result
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(generateRequest{Prompt: prompt}).
		Post(c.endpoint)
	if err != nil {
		return Result{}, &flowerrors.TransportError{Dependency: "image", Op: "generate", Err: err}
	}
	if resp.IsError() {
		return Result{}, &flowerrors.TransportError{
			Dependency: "image",
			Op:         "generate",
			StatusCode: resp.StatusCode(),
			Err:        fmt.Errorf("%s", strings.TrimSpace(string(resp.Body()))),
		}
	}

	contentType := resp.Header().Get("Content-Type")
	if strings.HasPrefix(contentType, "image/") {
		return c.writeImage(resp.Body(), contentType)
	}

	if err := json.Unmarshal(resp.Body(), &body); err != nil {
		return Result{}, &flowerrors.FormatError{Message: "decode image response", Err: err}
	}
	if body.OutputPath == "" {
		return Result{}, ErrNoOutput
	}
	return body, nil
}

func (c *HTTPClient) writeImage(data []byte, contentType string) (Result, error) {
	if len(data) == 0 {
		return Result{}, &flowerrors.EmptyResponseError{Dependency: "image", Op: "generate"}
	}
	if err := os.MkdirAll(c.scratchDir, 0o755); err != nil {
		return Result{}, fmt.Errorf("imagegen: create scratch dir: %w", err)
	}

	ext := ".png"
	if sub := strings.TrimPrefix(contentType, "image/"); sub == "jpeg" || sub == "webp" {
		ext = "." + sub
	}
	path := filepath.Join(c.scratchDir, "perfume_"+uuid.NewString()+ext)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return Result{}, fmt.Errorf("imagegen: write image: %w", err)
	}
	return Result{OutputPath: path}, nil
}

// Compile-time interface check.
var _ Client = (*HTTPClient)(nil)
