package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	_ "github.com/go-sql-driver/mysql" // MySQL driver
	_ "modernc.org/sqlite"             // Pure Go SQLite driver

	flowerrors "github.com/banghyang/scentflow/pkg/flowgraph/errors"
	"github.com/banghyang/scentflow/pkg/flowgraph/observability"
)

// DefaultPerfumeLimit caps fallback results when the caller passes zero.
const DefaultPerfumeLimit = 3

// schema is portable across MySQL and SQLite.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS line (
		id INTEGER PRIMARY KEY,
		name VARCHAR(64) NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS spice (
		id INTEGER PRIMARY KEY,
		name VARCHAR(128) NOT NULL,
		name_kr VARCHAR(128) NOT NULL DEFAULT '',
		line_id INTEGER NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS product (
		id INTEGER PRIMARY KEY,
		name VARCHAR(255) NOT NULL,
		brand VARCHAR(255) NOT NULL,
		description TEXT
	)`,
	`CREATE TABLE IF NOT EXISTS note (
		product_id INTEGER NOT NULL,
		spice_id INTEGER NOT NULL,
		note_type VARCHAR(16) NOT NULL,
		PRIMARY KEY (product_id, spice_id, note_type)
	)`,
	`CREATE TABLE IF NOT EXISTS recommendation_log (
		name VARCHAR(255) NOT NULL,
		brand VARCHAR(255) NOT NULL,
		mode VARCHAR(32) NOT NULL,
		created_at VARCHAR(40) NOT NULL
	)`,
}

// SQLGateway implements Gateway over database/sql.
type SQLGateway struct {
	db      *sql.DB
	logger  *slog.Logger
	metrics observability.MetricsRecorder

	mu     sync.RWMutex
	closed bool
}

// Option configures an SQLGateway.
type Option func(*SQLGateway)

// WithLogger sets the logger used for query failures.
func WithLogger(logger *slog.Logger) Option {
	return func(g *SQLGateway) {
		if logger != nil {
			g.logger = logger
		}
	}
}

// WithMetrics records every query as a "catalog" dependency call.
func WithMetrics(m observability.MetricsRecorder) Option {
	return func(g *SQLGateway) {
		if m != nil {
			g.metrics = m
		}
	}
}

// Open connects to a catalog database. driver is "sqlite" or "mysql".
func Open(ctx context.Context, driver, dsn string, opts ...Option) (*SQLGateway, error) {
	switch driver {
	case "sqlite", "mysql":
	default:
		return nil, fmt.Errorf("catalog: unsupported driver %q", driver)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if driver == "sqlite" {
		// Every SQLite connection to :memory: is a separate database.
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(20)
		db.SetConnMaxLifetime(5 * time.Minute)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return New(db, opts...), nil
}

// New wraps an open database.
func New(db *sql.DB, opts ...Option) *SQLGateway {
	g := &SQLGateway{
		db:      db,
		logger:  slog.Default(),
		metrics: observability.NoopMetrics{},
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Migrate creates the catalog tables if they do not exist.
func (g *SQLGateway) Migrate(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := g.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate catalog: %w", err)
		}
	}
	return nil
}

// FetchLines returns every line ordered by id.
func (g *SQLGateway) FetchLines(ctx context.Context) (lines []Line, err error) {
	if err := g.checkOpen(); err != nil {
		return nil, err
	}
	defer g.observe(ctx, "fetch_lines", time.Now(), &err)

	rows, err := g.db.QueryContext(ctx, `SELECT id, name FROM line ORDER BY id`)
	if err != nil {
		return nil, g.queryError("fetch_lines", err)
	}
	defer rows.Close()

	for rows.Next() {
		var l Line
		if err := rows.Scan(&l.ID, &l.Name); err != nil {
			return nil, g.queryError("fetch_lines", err)
		}
		lines = append(lines, l)
	}
	if err := rows.Err(); err != nil {
		return nil, g.queryError("fetch_lines", err)
	}
	return lines, nil
}

// FetchSpices implements Gateway.
func (g *SQLGateway) FetchSpices(ctx context.Context, lineID int) (spices []Spice, err error) {
	if err := g.checkOpen(); err != nil {
		return nil, err
	}
	defer g.observe(ctx, "fetch_spices", time.Now(), &err)

	rows, err := g.db.QueryContext(ctx, `
		SELECT id, name, name_kr, line_id
		FROM spice
		WHERE line_id = ?
		ORDER BY id
	`, lineID)
	if err != nil {
		return nil, g.queryError("fetch_spices", err)
	}
	defer rows.Close()

	spices = []Spice{}
	for rows.Next() {
		var s Spice
		if err := rows.Scan(&s.ID, &s.Name, &s.NameKR, &s.LineID); err != nil {
			return nil, g.queryError("fetch_spices", err)
		}
		spices = append(spices, s)
	}
	if err := rows.Err(); err != nil {
		return nil, g.queryError("fetch_spices", err)
	}
	return spices, nil
}

// FetchPerfumesByNotes implements Gateway.
func (g *SQLGateway) FetchPerfumesByNotes(ctx context.Context, noteIDs []int64, limit int) (perfumes []Perfume, err error) {
	if err := g.checkOpen(); err != nil {
		return nil, err
	}
	noteIDs = dedupe(noteIDs)
	if len(noteIDs) == 0 {
		return []Perfume{}, nil
	}
	if limit <= 0 {
		limit = DefaultPerfumeLimit
	}
	defer g.observe(ctx, "fetch_perfumes_by_notes", time.Now(), &err)

	in, args := inClause(noteIDs)
	args = append(args, limit)
	perfumes, err = g.queryPerfumes(ctx, `
		SELECT p.id, p.name, p.brand, COALESCE(p.description, ''), COUNT(*) AS matched
		FROM product p
		JOIN note n ON n.product_id = p.id
		WHERE n.note_type = 'MIDDLE' AND n.spice_id IN (`+in+`)
		GROUP BY p.id, p.name, p.brand, p.description
		ORDER BY matched DESC, p.id ASC
		LIMIT ?
	`, args)
	if err != nil || len(perfumes) == 0 {
		return perfumes, err
	}

	if err := g.attachMatchedNotes(ctx, perfumes, noteIDs); err != nil {
		return nil, err
	}
	return perfumes, nil
}

func (g *SQLGateway) queryPerfumes(ctx context.Context, query string, args []any) ([]Perfume, error) {
	rows, err := g.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, g.queryError("fetch_perfumes_by_notes", err)
	}
	defer rows.Close()

	perfumes := []Perfume{}
	for rows.Next() {
		var p Perfume
		var matched int
		if err := rows.Scan(&p.ID, &p.Name, &p.Brand, &p.Description, &matched); err != nil {
			return nil, g.queryError("fetch_perfumes_by_notes", err)
		}
		perfumes = append(perfumes, p)
	}
	if err := rows.Err(); err != nil {
		return nil, g.queryError("fetch_perfumes_by_notes", err)
	}
	return perfumes, nil
}

// attachMatchedNotes fills MatchedNote with the spice names each perfume
// shares with noteIDs.
func (g *SQLGateway) attachMatchedNotes(ctx context.Context, perfumes []Perfume, noteIDs []int64) error {
	productIDs := make([]int64, len(perfumes))
	index := make(map[int64]int, len(perfumes))
	for i, p := range perfumes {
		productIDs[i] = p.ID
		index[p.ID] = i
	}

	productIn, args := inClause(productIDs)
	noteIn, noteArgs := inClause(noteIDs)
	args = append(args, noteArgs...)

	rows, err := g.db.QueryContext(ctx, `
		SELECT n.product_id, s.name
		FROM note n
		JOIN spice s ON s.id = n.spice_id
		WHERE n.note_type = 'MIDDLE'
		  AND n.product_id IN (`+productIn+`)
		  AND n.spice_id IN (`+noteIn+`)
		ORDER BY n.product_id, s.id
	`, args...)
	if err != nil {
		return g.queryError("fetch_matched_notes", err)
	}
	defer rows.Close()

	for rows.Next() {
		var productID int64
		var name string
		if err := rows.Scan(&productID, &name); err != nil {
			return g.queryError("fetch_matched_notes", err)
		}
		if i, ok := index[productID]; ok {
			perfumes[i].MatchedNote = append(perfumes[i].MatchedNote, name)
		}
	}
	if err := rows.Err(); err != nil {
		return g.queryError("fetch_matched_notes", err)
	}
	return nil
}

// Close releases the database. It is safe to call more than once.
func (g *SQLGateway) Close() error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.closed {
		return nil
	}
	g.closed = true
	return g.db.Close()
}

// DB exposes the underlying handle for seeding and administration.
func (g *SQLGateway) DB() *sql.DB {
	return g.db
}

func (g *SQLGateway) checkOpen() error {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if g.closed {
		return ErrClosed
	}
	return nil
}

func (g *SQLGateway) observe(ctx context.Context, op string, start time.Time, errp *error) {
	g.metrics.RecordDependencyCall(ctx, "catalog", time.Since(start), *errp)
	if *errp != nil && !errors.Is(*errp, context.Canceled) {
		observability.LogDependencyError(g.logger, "catalog", op, *errp)
	}
}

func (g *SQLGateway) queryError(op string, err error) error {
	return &flowerrors.TransportError{Dependency: "catalog", Op: op, Err: err}
}

// inClause returns "?, ?, ?" and the matching args.
func inClause(ids []int64) (string, []any) {
	marks := make([]string, len(ids))
	args := make([]any, len(ids))
	for i, id := range ids {
		marks[i] = "?"
		args[i] = id
	}
	return strings.Join(marks, ", "), args
}

func dedupe(ids []int64) []int64 {
	seen := make(map[int64]bool, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}

// Compile-time interface check.
var _ Gateway = (*SQLGateway)(nil)
