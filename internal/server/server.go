// Package server exposes the perfume engine over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/banghyang/scentflow/pkg/perfume"
)

// maxBodyBytes caps the request body of process_input.
const maxBodyBytes = 64 << 10

// Engine answers perfume requests.
type Engine interface {
	Run(ctx context.Context, req perfume.Request) perfume.Result
}

// Server routes HTTP requests to an Engine.
type Server struct {
	engine   Engine
	logger   *slog.Logger
	registry *prometheus.Registry
	imageDir string

	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
	outcomes *prometheus.CounterVec
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the request logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithRegistry registers metrics on reg instead of a private registry.
func WithRegistry(reg *prometheus.Registry) Option {
	return func(s *Server) {
		if reg != nil {
			s.registry = reg
		}
	}
}

// WithImageDir serves generated images under /generated_images/.
func WithImageDir(dir string) Option {
	return func(s *Server) {
		s.imageDir = dir
	}
}

// New creates a Server for engine.
func New(engine Engine, opts ...Option) *Server {
	s := &Server{
		engine:   engine,
		logger:   slog.Default(),
		registry: prometheus.NewRegistry(),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.requests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scentflow_http_requests_total",
			Help: "HTTP requests by route, method and status code.",
		},
		[]string{"route", "method", "code"},
	)
	s.duration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "scentflow_http_request_duration_seconds",
			Help:    "HTTP request latency by route.",
			Buckets: []float64{0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		},
		[]string{"route"},
	)
	s.outcomes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scentflow_requests_total",
			Help: "Engine results by status and reply mode.",
		},
		[]string{"status", "mode"},
	)
	s.registry.MustRegister(s.requests, s.duration, s.outcomes)
	return s
}

// Registry returns the registry holding the server metrics.
func (s *Server) Registry() *prometheus.Registry {
	return s.registry
}

// Handler builds the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.instrument)

	r.Post("/llm/process_input", s.processInput)
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))
	if s.imageDir != "" {
		files := http.StripPrefix("/generated_images/", http.FileServer(http.Dir(s.imageDir)))
		r.Handle("/generated_images/*", files)
	}
	return r
}

type errorBody struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

func (s *Server) processInput(w http.ResponseWriter, r *http.Request) {
	var req perfume.Request
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		if errors.Is(err, io.EOF) {
			err = errors.New("empty body")
		}
		s.logger.Warn("invalid request body",
			slog.String("request_id", middleware.GetReqID(r.Context())),
			slog.String("error", err.Error()),
		)
		writeJSON(w, http.StatusBadRequest, errorBody{
			Status:  string(perfume.StatusError),
			Message: "invalid request body",
		})
		return
	}

	result := s.engine.Run(r.Context(), req)
	s.outcomes.WithLabelValues(string(result.Status), resultMode(result)).Inc()
	writeJSON(w, http.StatusOK, result)
}

// resultMode labels a result by the kind of reply it carries.
func resultMode(result perfume.Result) string {
	switch resp := result.Response.(type) {
	case string:
		return string(perfume.IntentChat)
	case *perfume.Reply:
		return resp.Mode
	default:
		return "error"
	}
}

func (s *Server) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := chi.RouteContext(r.Context()).RoutePattern()
		if route == "" {
			route = "unmatched"
		}
		code := ww.Status()
		if code == 0 {
			code = http.StatusOK
		}
		s.requests.WithLabelValues(route, r.Method, strconv.Itoa(code)).Inc()
		s.duration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}
