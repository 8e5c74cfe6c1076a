package perfume

import (
	"context"
	"time"

	"github.com/banghyang/scentflow/pkg/catalog"
)

// Recorder receives every successful recommendation.
type Recorder interface {
	RecordRecommendations(ctx context.Context, mode Intent, recs []Recommendation) error
}

// RecommendationLog is the catalog side of CatalogRecorder.
type RecommendationLog interface {
	LogRecommendations(ctx context.Context, entries []catalog.LoggedRecommendation) error
}

// CatalogRecorder writes recommendations to the catalog's log table.
type CatalogRecorder struct {
	Log RecommendationLog
	Now func() time.Time
}

// RecordRecommendations implements Recorder.
func (r CatalogRecorder) RecordRecommendations(ctx context.Context, mode Intent, recs []Recommendation) error {
	now := time.Now
	if r.Now != nil {
		now = r.Now
	}
	at := now()

	entries := make([]catalog.LoggedRecommendation, len(recs))
	for i, rec := range recs {
		entries[i] = catalog.LoggedRecommendation{
			Name:  rec.Name,
			Brand: rec.Brand,
			Mode:  string(mode),
			At:    at,
		}
	}
	return r.Log.LogRecommendations(ctx, entries)
}

var _ Recorder = CatalogRecorder{}
