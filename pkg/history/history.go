package history

import (
	"context"
	"errors"
	"time"
)

// DefaultRecentLimit is how many turns the chat prompt includes.
const DefaultRecentLimit = 3

// ErrClosed is returned by operations on a closed store.
var ErrClosed = errors.New("history: store closed")

// Role identifies who produced a turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one message in a user's conversation.
type Turn struct {
	ID        int64
	UserID    string
	Role      Role
	Content   string
	Timestamp time.Time
}

// Store persists conversation turns and summaries.
type Store interface {
	// Append stores a turn. The turn must carry an id.
	Append(ctx context.Context, turn Turn) error

	// Recent returns up to limit turns for userID, newest first.
	Recent(ctx context.Context, userID string, limit int) ([]Turn, error)

	// List returns every stored turn for userID, oldest first.
	List(ctx context.Context, userID string) ([]Turn, error)

	// DeleteThrough removes the user's turns with id <= maxID and reports
	// how many were removed.
	DeleteThrough(ctx context.Context, userID string, maxID int64) (int, error)

	// Summary returns the stored summary, or "" when there is none.
	Summary(ctx context.Context, userID string) (string, error)

	// SaveSummary replaces the user's summary.
	SaveSummary(ctx context.Context, userID, summary string) error

	// Close releases the store's resources.
	Close() error
}
