package perfume

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/banghyang/scentflow/pkg/catalog"
	flowerrors "github.com/banghyang/scentflow/pkg/flowgraph/errors"
	"github.com/banghyang/scentflow/pkg/flowgraph/llm"
	"github.com/banghyang/scentflow/pkg/imagegen"
)

const muskReply = `{"recommendations": [
	{"name": "Musc Ravageur", "brand": "Frederic Malle", "reason": "Warm, sensual musk", "situation": "Evening dates, winter nights"},
	{"name": "Glossier You", "brand": "Glossier", "reason": "Soft skin scent", "situation": "Daily wear, office"}
], "content": "Two musks for different moods.", "line_id": 6}`

// scriptedModel answers each prompt kind with a canned reply or error.
type scriptedModel struct {
	intent    string
	recommend string
	chat      string

	intentErr    error
	recommendErr error
	chatErr      error
}

func (sm scriptedModel) client() *llm.MockClient {
	return llm.NewMockClient("").WithCompleteFunc(func(_ context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
		prompt := req.Messages[0].Content
		text, err := sm.chat, sm.chatErr
		switch {
		case strings.Contains(prompt, "Classify the intent"):
			text, err = sm.intent, sm.intentErr
		case strings.Contains(prompt, "Recommend up to three perfumes"):
			text, err = sm.recommend, sm.recommendErr
		}
		if err != nil {
			return nil, err
		}
		return &llm.CompletionResponse{Content: text}, nil
	})
}

// promptsOfKind returns the prompts the model received containing marker.
func promptsOfKind(m *llm.MockClient, marker string) []string {
	var out []string
	for _, call := range m.Calls {
		if strings.Contains(call.Messages[0].Content, marker) {
			out = append(out, call.Messages[0].Content)
		}
	}
	return out
}

// fakeCatalog is an in-memory catalog.Gateway.
type fakeCatalog struct {
	mu sync.Mutex

	spices   map[int][]catalog.Spice
	perfumes []catalog.Perfume

	spiceErr   error
	perfumeErr error
	panicMsg   string

	spiceCalls []int
	noteCalls  [][]int64
}

func newFakeCatalog() *fakeCatalog {
	return &fakeCatalog{
		spices: map[int][]catalog.Spice{
			1: {{ID: 101, Name: "Bergamot", LineID: 1}},
			6: {{ID: 601, Name: "White Musk", LineID: 6}, {ID: 602, Name: "Ambrette", LineID: 6}},
		},
		perfumes: []catalog.Perfume{
			{ID: 2, Name: "Musc Ravageur", Brand: "Frederic Malle", Description: "Warm musk with vanilla.", MatchedNote: []string{"White Musk", "Ambrette"}},
		},
	}
}

func (f *fakeCatalog) FetchSpices(_ context.Context, lineID int) ([]catalog.Spice, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.spiceCalls = append(f.spiceCalls, lineID)
	if f.panicMsg != "" {
		panic(f.panicMsg)
	}
	if f.spiceErr != nil {
		return nil, f.spiceErr
	}
	return f.spices[lineID], nil
}

func (f *fakeCatalog) FetchPerfumesByNotes(_ context.Context, noteIDs []int64, _ int) ([]catalog.Perfume, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.noteCalls = append(f.noteCalls, noteIDs)
	if f.perfumeErr != nil {
		return nil, f.perfumeErr
	}
	return f.perfumes, nil
}

// fakeImages is an imagegen.Client that writes a real file so the engine
// can relocate it.
type fakeImages struct {
	mu      sync.Mutex
	dir     string
	err     error
	panics  bool
	prompts []string
}

func (f *fakeImages) Generate(_ context.Context, prompt string) (imagegen.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prompts = append(f.prompts, prompt)
	if f.panics {
		panic("image backend exploded")
	}
	if f.err != nil {
		return imagegen.Result{}, f.err
	}
	path := filepath.Join(f.dir, "perfume_ad.png")
	if err := os.WriteFile(path, []byte("png"), 0o644); err != nil {
		return imagegen.Result{}, err
	}
	return imagegen.Result{OutputPath: path}, nil
}

type recordedBatch struct {
	mode Intent
	recs []Recommendation
}

type fakeRecorder struct {
	mu      sync.Mutex
	batches []recordedBatch
	err     error
}

func (f *fakeRecorder) RecordRecommendations(_ context.Context, mode Intent, recs []Recommendation) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.batches = append(f.batches, recordedBatch{mode: mode, recs: recs})
	return f.err
}

var errUpstream = &flowerrors.TransportError{Dependency: "llm", Op: "complete", StatusCode: 503, Err: errors.New("upstream overloaded")}

func newTestEngine(t *testing.T, deps Deps, opts ...Option) *Engine {
	t.Helper()
	base := []Option{
		WithLogger(slog.New(slog.DiscardHandler)),
		WithRetry(flowerrors.NoRetry),
		WithImageDir(filepath.Join(t.TempDir(), DefaultImageDir)),
	}
	e, err := New(deps, append(base, opts...)...)
	require.NoError(t, err)
	return e
}

// assertTerminalInvariant checks that exactly one of Response and Error is set.
func assertTerminalInvariant(t *testing.T, s State) {
	t.Helper()
	if (s.Response != nil) == (s.Error != "") {
		t.Fatalf("terminal state must carry exactly one of Response (%v) and Error (%q)", s.Response, s.Error)
	}
}
