package perfume

import (
	"strings"
	"time"
)

// User-facing failure messages.
const (
	MessageRecommendationFailed = "Sorry, we could not generate a recommendation. Please try again."
	MessageProcessingFailed     = "Sorry, we could not process your request. Please try again."
	MessageTemporaryFailure     = "Sorry, a temporary error occurred. Please try again."
)

// Engine-authored error summaries written to State.Error.
const (
	errEmptyInput       = "input processing failed: empty input"
	errNoRecommendation = "no suitable recommendation found"
	errChatFailed       = "chat processing failed"
	errEngineFailure    = "engine failure"
	errUnknown          = "unknown error"
)

// failureMessage picks the canned message for an error summary.
func failureMessage(errText string) string {
	switch {
	case strings.Contains(errText, "recommendation"):
		return MessageRecommendationFailed
	case strings.Contains(errText, "processing"):
		return MessageProcessingFailed
	default:
		return MessageTemporaryFailure
	}
}

func newFailure(errText string, at time.Time) *Failure {
	return &Failure{
		Status:          string(StatusError),
		Message:         failureMessage(errText),
		Recommendations: []Recommendation{},
		Debug: &Debug{
			OriginalError: errText,
			Timestamp:     at,
		},
	}
}
