package catalog

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	flowerrors "github.com/banghyang/scentflow/pkg/flowgraph/errors"
)

// recordingMetrics counts dependency calls.
type recordingMetrics struct {
	mu    sync.Mutex
	calls map[string]int
	errs  int
}

func (r *recordingMetrics) RecordNodeExecution(context.Context, string, time.Duration, error) {}
func (r *recordingMetrics) RecordGraphRun(context.Context, bool, time.Duration)                 {}
func (r *recordingMetrics) RecordDependencyCall(_ context.Context, dep string, _ time.Duration, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.calls == nil {
		r.calls = map[string]int{}
	}
	r.calls[dep]++
	if err != nil {
		r.errs++
	}
}

func seededGateway(t *testing.T, opts ...Option) *SQLGateway {
	t.Helper()
	ctx := context.Background()

	g, err := Open(ctx, "sqlite", ":memory:", opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = g.Close() })

	require.NoError(t, g.Migrate(ctx))
	seeded, err := g.SeedSample(ctx)
	require.NoError(t, err)
	require.True(t, seeded)
	return g
}

func TestOpen_UnsupportedDriver(t *testing.T) {
	_, err := Open(context.Background(), "postgres", "x")
	assert.ErrorContains(t, err, "unsupported driver")
}

func TestSeedSample_Idempotent(t *testing.T) {
	g := seededGateway(t)

	seeded, err := g.SeedSample(context.Background())
	require.NoError(t, err)
	assert.False(t, seeded)
}

func TestFetchLines(t *testing.T) {
	g := seededGateway(t)

	lines, err := g.FetchLines(context.Background())
	require.NoError(t, err)
	require.Len(t, lines, len(sampleLines))
	assert.Equal(t, Line{ID: 6, Name: "Musk"}, lines[5])
}

func TestFetchSpices(t *testing.T) {
	g := seededGateway(t)

	spices, err := g.FetchSpices(context.Background(), 6)
	require.NoError(t, err)
	assert.Equal(t, []Spice{
		{ID: 601, Name: "White Musk", NameKR: "화이트 머스크", LineID: 6},
		{ID: 602, Name: "Ambrette", NameKR: "암브레트", LineID: 6},
	}, spices)
}

func TestFetchSpices_UnknownLine(t *testing.T) {
	g := seededGateway(t)

	spices, err := g.FetchSpices(context.Background(), 99)
	require.NoError(t, err)
	assert.NotNil(t, spices)
	assert.Empty(t, spices)
}

func TestFetchPerfumesByNotes_OrderedByOverlap(t *testing.T) {
	g := seededGateway(t)

	perfumes, err := g.FetchPerfumesByNotes(context.Background(), []int64{601, 602, 701}, 3)
	require.NoError(t, err)
	require.Len(t, perfumes, 3)

	// Musc Ravageur and Glossier You share two notes; Jasmin Rouge shares one.
	assert.Equal(t, "Musc Ravageur", perfumes[0].Name)
	assert.Equal(t, []string{"White Musk", "Ambrette"}, perfumes[0].MatchedNote)
	assert.Equal(t, "Glossier You", perfumes[1].Name)
	assert.Equal(t, []string{"White Musk", "Pink Pepper"}, perfumes[1].MatchedNote)
	assert.Equal(t, "Jasmin Rouge", perfumes[2].Name)
	assert.Equal(t, "Tom Ford", perfumes[2].Brand)
}

func TestFetchPerfumesByNotes_DefaultLimitAndDedupe(t *testing.T) {
	g := seededGateway(t)

	perfumes, err := g.FetchPerfumesByNotes(context.Background(), []int64{502, 502, 501, 801, 401}, 0)
	require.NoError(t, err)
	assert.Len(t, perfumes, DefaultPerfumeLimit)
	assert.Equal(t, "Santal 33", perfumes[0].Name)
}

func TestFetchPerfumesByNotes_NoMatch(t *testing.T) {
	g := seededGateway(t)

	perfumes, err := g.FetchPerfumesByNotes(context.Background(), []int64{9999}, 3)
	require.NoError(t, err)
	assert.Empty(t, perfumes)

	perfumes, err = g.FetchPerfumesByNotes(context.Background(), nil, 3)
	require.NoError(t, err)
	assert.Empty(t, perfumes)
}

func TestClosedGateway(t *testing.T) {
	g := seededGateway(t)
	require.NoError(t, g.Close())
	require.NoError(t, g.Close())

	_, err := g.FetchSpices(context.Background(), 1)
	assert.ErrorIs(t, err, ErrClosed)
	_, err = g.FetchPerfumesByNotes(context.Background(), []int64{1}, 1)
	assert.ErrorIs(t, err, ErrClosed)
}

func TestQueryFailureIsTransport(t *testing.T) {
	metrics := &recordingMetrics{}
	g, err := Open(context.Background(), "sqlite", ":memory:", WithMetrics(metrics))
	require.NoError(t, err)
	defer g.Close()

	// No Migrate: the spice table does not exist.
	_, err = g.FetchSpices(context.Background(), 1)

	var transportErr *flowerrors.TransportError
	require.ErrorAs(t, err, &transportErr)
	assert.Equal(t, "catalog", transportErr.Dependency)
	assert.Equal(t, 1, metrics.calls["catalog"])
	assert.Equal(t, 1, metrics.errs)
}

func TestPersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "catalog.db")

	g, err := Open(ctx, "sqlite", path)
	require.NoError(t, err)
	require.NoError(t, g.Migrate(ctx))
	_, err = g.SeedSample(ctx)
	require.NoError(t, err)
	require.NoError(t, g.Close())

	g, err = Open(ctx, "sqlite", path)
	require.NoError(t, err)
	defer g.Close()

	spices, err := g.FetchSpices(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, spices, 2)
}

func TestLogRecommendations(t *testing.T) {
	g := seededGateway(t)
	ctx := context.Background()

	require.NoError(t, g.LogRecommendations(ctx, nil))
	require.NoError(t, g.LogRecommendations(ctx, []LoggedRecommendation{
		{Name: "Musc Ravageur", Brand: "Frederic Malle", Mode: "recommendation"},
		{Name: "Glossier You", Brand: "Glossier", Mode: "recommendation", At: time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)},
	}))

	var count int
	require.NoError(t, g.DB().QueryRowContext(ctx,
		`SELECT COUNT(*) FROM recommendation_log WHERE mode = ?`, "recommendation").Scan(&count))
	assert.Equal(t, 2, count)

	var at string
	require.NoError(t, g.DB().QueryRowContext(ctx,
		`SELECT created_at FROM recommendation_log WHERE name = ?`, "Glossier You").Scan(&at))
	assert.Equal(t, "2024-01-02T00:00:00Z", at)
}
