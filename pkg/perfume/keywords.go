package perfume

import (
	"context"
	"sort"
	"strings"

	"github.com/banghyang/scentflow/pkg/catalog"
)

// KeywordExtractor finds the scent line a request refers to.
type KeywordExtractor interface {
	// ExtractLineID returns the line id, or 0 when the input names none.
	ExtractLineID(ctx context.Context, input string) (int, error)
}

// LineSource is the part of the catalog a LineMatcher is built from.
type LineSource interface {
	FetchLines(ctx context.Context) ([]catalog.Line, error)
	FetchSpices(ctx context.Context, lineID int) ([]catalog.Spice, error)
}

type lineTerm struct {
	term   string
	lineID int
}

// LineMatcher is a KeywordExtractor that looks for line and spice names
// in the input, case-insensitively. Longer names win, so "white musk"
// is preferred over "musk".
type LineMatcher struct {
	terms []lineTerm
}

// NewLineMatcher indexes the given lines and spices.
func NewLineMatcher(lines []catalog.Line, spices []catalog.Spice) *LineMatcher {
	m := &LineMatcher{}
	add := func(name string, lineID int) {
		name = strings.ToLower(strings.TrimSpace(name))
		if name != "" {
			m.terms = append(m.terms, lineTerm{term: name, lineID: lineID})
		}
	}
	for _, l := range lines {
		add(l.Name, l.ID)
	}
	for _, s := range spices {
		add(s.Name, s.LineID)
		add(s.NameKR, s.LineID)
	}
	sort.SliceStable(m.terms, func(i, j int) bool {
		return len(m.terms[i].term) > len(m.terms[j].term)
	})
	return m
}

// LoadLineMatcher builds a matcher from every line and spice in src.
func LoadLineMatcher(ctx context.Context, src LineSource) (*LineMatcher, error) {
	lines, err := src.FetchLines(ctx)
	if err != nil {
		return nil, err
	}
	var spices []catalog.Spice
	for _, l := range lines {
		s, err := src.FetchSpices(ctx, l.ID)
		if err != nil {
			return nil, err
		}
		spices = append(spices, s...)
	}
	return NewLineMatcher(lines, spices), nil
}

// ExtractLineID implements KeywordExtractor.
func (m *LineMatcher) ExtractLineID(_ context.Context, input string) (int, error) {
	input = strings.ToLower(input)
	for _, t := range m.terms {
		if strings.Contains(input, t.term) {
			return t.lineID, nil
		}
	}
	return 0, nil
}

var _ KeywordExtractor = (*LineMatcher)(nil)
