// Package catalog reads perfume, spice and scent-family (line) data from
// the relational store. It is the fallback source for recommendations
// when the language model output is unusable.
package catalog

import (
	"context"
	"errors"
)

// ErrClosed is returned by operations on a closed gateway.
var ErrClosed = errors.New("catalog: gateway closed")

// Line is a scent family such as citrus or woody.
type Line struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// Spice is a perfume ingredient belonging to one line.
type Spice struct {
	ID     int64  `json:"id"`
	Name   string `json:"name"`
	NameKR string `json:"name_kr,omitempty"`
	LineID int    `json:"line_id"`
}

// Perfume is a catalog product matched by middle notes.
type Perfume struct {
	ID          int64    `json:"id"`
	Name        string   `json:"name"`
	Brand       string   `json:"brand"`
	Description string   `json:"description,omitempty"`
	MatchedNote []string `json:"matched_notes,omitempty"`
}

// Gateway is the read contract the recommendation engine needs.
type Gateway interface {
	// FetchSpices returns the spices of a line ordered by id.
	// An unknown line yields an empty slice, not an error.
	FetchSpices(ctx context.Context, lineID int) ([]Spice, error)

	// FetchPerfumesByNotes returns perfumes sharing at least one middle
	// note with noteIDs, most shared notes first, at most limit entries.
	FetchPerfumesByNotes(ctx context.Context, noteIDs []int64, limit int) ([]Perfume, error)
}
