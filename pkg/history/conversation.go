package history

import (
	"context"
	"fmt"
	"time"
)

// Context is what the chat prompt needs about a user's past.
type Context struct {
	Summary string
	// Recent holds the newest turns, oldest first.
	Recent []Turn
}

// Empty reports whether there is nothing to add to a prompt.
func (c Context) Empty() bool {
	return c.Summary == "" && len(c.Recent) == 0
}

// Conversation ties a store to an id source and an optional compactor.
type Conversation struct {
	Store Store
	IDs   *IDGenerator
	// Compactor, when set, runs after every recorded exchange.
	Compactor *Compactor
	// Locker guards each user's history while turns are appended and
	// compacted. When nil the Compactor's locker is used; with neither,
	// writes are not serialized.
	Locker Locker
	// Limit is how many recent turns Load returns. Zero means
	// DefaultRecentLimit.
	Limit int
}

// Load returns the user's summary and recent turns.
func (c *Conversation) Load(ctx context.Context, userID string) (Context, error) {
	summary, err := c.Store.Summary(ctx, userID)
	if err != nil {
		return Context{}, err
	}

	limit := c.Limit
	if limit <= 0 {
		limit = DefaultRecentLimit
	}
	recent, err := c.Store.Recent(ctx, userID, limit)
	if err != nil {
		return Context{}, err
	}
	for i, j := 0, len(recent)-1; i < j; i, j = i+1, j-1 {
		recent[i], recent[j] = recent[j], recent[i]
	}
	return Context{Summary: summary, Recent: recent}, nil
}

// Record appends a question and its answer, then compacts if configured.
// Ids are taken and turns appended under the user's lock, and compaction
// runs under the same hold, so no turn is deleted before it is summarized.
func (c *Conversation) Record(ctx context.Context, userID, question, answer string) (err error) {
	if locker, ttl := c.locker(); locker != nil {
		unlock, lerr := locker.Lock(ctx, lockKey(userID), ttl)
		if lerr != nil {
			return fmt.Errorf("history: lock %s: %w", userID, lerr)
		}
		defer func() {
			if uerr := unlock(context.WithoutCancel(ctx)); uerr != nil && err == nil {
				err = uerr
			}
		}()
	}

	for _, turn := range []Turn{
		c.IDs.NewTurn(userID, RoleUser, question),
		c.IDs.NewTurn(userID, RoleAssistant, answer),
	} {
		if err := c.Store.Append(ctx, turn); err != nil {
			return err
		}
	}

	if c.Compactor == nil {
		return nil
	}
	if _, err := c.Compactor.compactLocked(ctx, userID); err != nil {
		return fmt.Errorf("compact: %w", err)
	}
	return nil
}

func (c *Conversation) locker() (Locker, time.Duration) {
	ttl := 30 * time.Second
	if c.Compactor != nil && c.Compactor.LockTTL > 0 {
		ttl = c.Compactor.LockTTL
	}
	if c.Locker != nil {
		return c.Locker, ttl
	}
	if c.Compactor != nil {
		return c.Compactor.Locker, ttl
	}
	return nil, ttl
}
