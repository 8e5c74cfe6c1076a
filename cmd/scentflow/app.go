package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/banghyang/scentflow/pkg/catalog"
	"github.com/banghyang/scentflow/pkg/flowgraph"
	"github.com/banghyang/scentflow/pkg/flowgraph/config"
	flowerrors "github.com/banghyang/scentflow/pkg/flowgraph/errors"
	"github.com/banghyang/scentflow/pkg/flowgraph/llm"
	"github.com/banghyang/scentflow/pkg/flowgraph/observability"
	"github.com/banghyang/scentflow/pkg/flowgraph/registry"
	"github.com/banghyang/scentflow/pkg/history"
	"github.com/banghyang/scentflow/pkg/imagegen"
	"github.com/banghyang/scentflow/pkg/perfume"
)

// mockIntentReply makes the mock provider route every question to a
// recommendation. The reply is not JSON, so answers come from the catalog.
const mockIntentReply = "1"

type modelFactory func(ctx context.Context, s config.LLMSettings) (llm.Client, error)

type storeFactory func(ctx context.Context, s config.HistorySettings) (history.Store, error)

var modelProviders = registry.New[string, modelFactory]()

var historyBackends = registry.New[string, storeFactory]()

func init() {
	modelProviders.Register("ark", func(ctx context.Context, s config.LLMSettings) (llm.Client, error) {
		return llm.NewArkClient(ctx, llm.ArkConfig{
			BaseURL: s.BaseURL,
			APIKey:  s.APIKey,
			Model:   s.Model,
			Timeout: s.Timeout,
		})
	})
	modelProviders.Register("mock", func(context.Context, config.LLMSettings) (llm.Client, error) {
		return llm.NewMockClient(mockIntentReply), nil
	})

	historyBackends.Register("memory", func(context.Context, config.HistorySettings) (history.Store, error) {
		return history.NewMemoryStore(), nil
	})
	historyBackends.Register("sqlite", func(_ context.Context, s config.HistorySettings) (history.Store, error) {
		path := s.DSN
		if path == "" {
			path = "history.db"
		}
		return history.NewSQLiteStore(path)
	})
	historyBackends.Register("mongo", func(ctx context.Context, s config.HistorySettings) (history.Store, error) {
		if s.DSN == "" {
			return nil, errors.New("history: mongo backend needs dsn")
		}
		return history.DialMongo(ctx, s.DSN, s.Database)
	})
}

// app holds everything a command needs, built from Settings.
type app struct {
	settings  config.Settings
	logger    *slog.Logger
	engine    *perfume.Engine
	catalog   *catalog.SQLGateway
	history   *history.Conversation
	compactor *history.Compactor

	closers []func() error
}

// newApp connects every collaborator named in settings. metrics receives
// model, store and executor measurements.
func newApp(ctx context.Context, settings config.Settings, logger *slog.Logger, metrics observability.MetricsRecorder) (_ *app, err error) {
	a := &app{settings: settings, logger: logger}
	defer func() {
		if err != nil {
			a.Close()
		}
	}()

	newModel, ok := modelProviders.Get(settings.LLM.Provider)
	if !ok {
		return nil, fmt.Errorf("unknown llm provider %q (have %v)", settings.LLM.Provider, modelProviders.Keys())
	}
	model, err := newModel(ctx, settings.LLM)
	if err != nil {
		return nil, err
	}

	gw, err := catalog.Open(ctx, settings.Catalog.Driver, settings.Catalog.DSN,
		catalog.WithLogger(logger),
		catalog.WithMetrics(metrics),
	)
	if err != nil {
		return nil, fmt.Errorf("catalog: %w", err)
	}
	a.catalog = gw
	a.closers = append(a.closers, gw.Close)
	if err := gw.Migrate(ctx); err != nil {
		return nil, err
	}
	if settings.Catalog.Seed {
		if seeded, err := gw.SeedSample(ctx); err != nil {
			return nil, err
		} else if seeded {
			logger.Info("seeded sample catalog", slog.String("driver", settings.Catalog.Driver))
		}
	}

	keywords, err := perfume.LoadLineMatcher(ctx, gw)
	if err != nil {
		return nil, err
	}

	retry := flowerrors.NewRetryConfig(
		flowerrors.WithMaxAttempts(settings.LLM.MaxAttempts),
		flowerrors.WithInitialBackoff(settings.LLM.Backoff),
		flowerrors.WithMaxBackoff(settings.LLM.MaxBackoff),
	)

	if err := a.openHistory(ctx, model, retry); err != nil {
		return nil, err
	}

	deps := perfume.Deps{
		LLM:      model,
		Catalog:  gw,
		Keywords: keywords,
		History:  a.history,
		Recorder: perfume.CatalogRecorder{Log: gw},
	}
	if settings.Image.Enabled {
		deps.Images = imagegen.NewHTTPClient(settings.Image.Endpoint,
			imagegen.WithAPIKey(settings.Image.APIKey),
			imagegen.WithTimeout(settings.Image.Timeout),
			imagegen.WithLogger(logger),
			imagegen.WithMetrics(metrics),
		)
	}

	engine, err := perfume.New(deps,
		perfume.WithLogger(logger),
		perfume.WithMetricsRecorder(metrics),
		perfume.WithRetry(retry),
		perfume.WithImageDir(settings.Image.OutputDir),
		perfume.WithRunOptions(
			flowgraph.WithGraphName("perfume"),
			flowgraph.WithMetricsRecorder(metrics),
			flowgraph.WithTracing(true),
		),
	)
	if err != nil {
		return nil, err
	}
	a.engine = engine
	return a, nil
}

func (a *app) openHistory(ctx context.Context, model llm.Client, retry flowerrors.RetryConfig) error {
	s := a.settings.History

	newStore, ok := historyBackends.Get(s.Backend)
	if !ok {
		return fmt.Errorf("unknown history backend %q (have %v)", s.Backend, historyBackends.Keys())
	}
	store, err := newStore(ctx, s)
	if err != nil {
		return err
	}
	a.closers = append(a.closers, store.Close)

	var locker history.Locker
	switch s.Lock {
	case "redis":
		client := redis.NewClient(&redis.Options{Addr: s.RedisAddr})
		if err := client.Ping(ctx).Err(); err != nil {
			client.Close()
			return fmt.Errorf("history: redis ping: %w", err)
		}
		a.closers = append(a.closers, client.Close)
		locker = history.NewRedisLocker(client, "scentflow:")
	default:
		locker = history.NewLocalLocker()
	}

	ids, err := history.NewIDGenerator(s.NodeID)
	if err != nil {
		return err
	}

	compactor := history.NewCompactor(store, locker, model)
	compactor.Threshold = s.Threshold
	compactor.LockTTL = s.LockTTL
	compactor.Retry = retry
	compactor.Logger = a.logger

	a.compactor = compactor
	a.history = &history.Conversation{
		Store:     store,
		IDs:       ids,
		Compactor: compactor,
		Locker:    locker,
	}
	return nil
}

// Close releases connections in reverse order of opening.
func (a *app) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
