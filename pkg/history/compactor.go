package history

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	flowerrors "github.com/banghyang/scentflow/pkg/flowgraph/errors"
	"github.com/banghyang/scentflow/pkg/flowgraph/llm"
	"github.com/banghyang/scentflow/pkg/flowgraph/template"
)

const summaryPrompt = `Summarize the conversation below between a user and a perfume consultant.
Keep the user's stated preferences, dislikes and any perfumes already discussed.
Answer in at most five sentences of plain text.

Earlier summary:
${summary:-(none)}

Conversation:
${conversation}`

// CompactResult reports what a compaction did.
type CompactResult struct {
	Compacted bool
	Removed   int
	Summary   string
}

// Compactor folds a user's older turns into their summary once the
// number of stored turns exceeds Threshold. The newest Keep turns stay.
type Compactor struct {
	Store     Store
	Locker    Locker
	Client    llm.Client
	Threshold int
	Keep      int
	LockTTL   time.Duration
	Retry     flowerrors.RetryConfig
	Logger    *slog.Logger
}

// NewCompactor returns a compactor with the default threshold (10), keep
// count and lock TTL.
func NewCompactor(store Store, locker Locker, client llm.Client) *Compactor {
	return &Compactor{
		Store:     store,
		Locker:    locker,
		Client:    client,
		Threshold: 10,
		Keep:      DefaultRecentLimit,
		LockTTL:   30 * time.Second,
		Retry:     flowerrors.ModelRetry,
		Logger:    slog.Default(),
	}
}

// lockKey names the per-user critical section shared by writers and the
// compactor.
func lockKey(userID string) string {
	return "history:" + userID
}

// Compact summarizes and deletes the user's older turns. The read,
// summarize and delete steps run under the user's lock.
func (c *Compactor) Compact(ctx context.Context, userID string) (result CompactResult, err error) {
	unlock, err := c.Locker.Lock(ctx, lockKey(userID), c.LockTTL)
	if err != nil {
		return CompactResult{}, fmt.Errorf("history: lock %s: %w", userID, err)
	}
	defer func() {
		if uerr := unlock(context.WithoutCancel(ctx)); uerr != nil && err == nil {
			err = uerr
		}
	}()
	return c.compactLocked(ctx, userID)
}

// compactLocked does the work of Compact. The caller holds the user's lock.
func (c *Compactor) compactLocked(ctx context.Context, userID string) (CompactResult, error) {
	turns, err := c.Store.List(ctx, userID)
	if err != nil {
		return CompactResult{}, err
	}
	if len(turns) <= c.Threshold {
		return CompactResult{}, nil
	}

	keep := max(c.Keep, 0)
	older := turns[:len(turns)-keep]

	previous, err := c.Store.Summary(ctx, userID)
	if err != nil {
		return CompactResult{}, err
	}

	vars := map[string]any{"conversation": Transcript(older)}
	if previous != "" {
		vars["summary"] = previous
	}
	prompt, err := template.NewExpander(template.WithMissingAction(template.MissingError)).
		Expand(summaryPrompt, vars)
	if err != nil {
		return CompactResult{}, err
	}

	res := flowerrors.Retry(ctx, c.Retry, func(ctx context.Context) (string, error) {
		return llm.Generate(ctx, c.Client, prompt)
	})
	if res.Err != nil {
		return CompactResult{}, fmt.Errorf("history: summarize: %w", res.Err)
	}

	if err := c.Store.SaveSummary(ctx, userID, res.Value); err != nil {
		return CompactResult{}, err
	}
	removed, err := c.Store.DeleteThrough(ctx, userID, older[len(older)-1].ID)
	if err != nil {
		return CompactResult{}, err
	}

	c.logger().Info("history compacted",
		slog.String("user_id", userID),
		slog.Int("removed", removed),
	)
	return CompactResult{Compacted: true, Removed: removed, Summary: res.Value}, nil
}

func (c *Compactor) logger() *slog.Logger {
	if c.Logger == nil {
		return slog.Default()
	}
	return c.Logger
}

// Transcript renders turns one per line as "role: content".
func Transcript(turns []Turn) string {
	var b strings.Builder
	for i, t := range turns {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(string(t.Role))
		b.WriteString(": ")
		b.WriteString(t.Content)
	}
	return b.String()
}
