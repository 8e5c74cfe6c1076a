package catalog

import (
	"context"
	"fmt"
	"time"
)

// LoggedRecommendation is one perfume shown to a user.
type LoggedRecommendation struct {
	Name  string
	Brand string
	Mode  string
	At    time.Time
}

// LogRecommendations appends entries to the recommendation log in one
// transaction. Weekly statistics are computed from this table.
func (g *SQLGateway) LogRecommendations(ctx context.Context, entries []LoggedRecommendation) (err error) {
	if err := g.checkOpen(); err != nil {
		return err
	}
	if len(entries) == 0 {
		return nil
	}
	defer g.observe(ctx, "log_recommendations", time.Now(), &err)

	tx, err := g.db.BeginTx(ctx, nil)
	if err != nil {
		return g.queryError("log_recommendations", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	for _, e := range entries {
		at := e.At
		if at.IsZero() {
			at = time.Now()
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO recommendation_log (name, brand, mode, created_at)
			VALUES (?, ?, ?, ?)
		`, e.Name, e.Brand, e.Mode, at.UTC().Format(time.RFC3339)); err != nil {
			return g.queryError("log_recommendations", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return g.queryError("log_recommendations", fmt.Errorf("commit: %w", err))
	}
	return nil
}
