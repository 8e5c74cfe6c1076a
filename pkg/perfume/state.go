package perfume

import (
	"time"

	"github.com/banghyang/scentflow/pkg/catalog"
)

// Intent is the workflow a request is routed to.
type Intent string

const (
	IntentUnknown               Intent = "unknown"
	IntentRecommendation        Intent = "recommendation"
	IntentFashionRecommendation Intent = "fashion_recommendation"
	IntentChat                  Intent = "chat"
)

// Recommendation is one suggested perfume.
type Recommendation struct {
	Name      string `json:"name" mapstructure:"name"`
	Brand     string `json:"brand" mapstructure:"brand"`
	Reason    string `json:"reason" mapstructure:"reason"`
	Situation string `json:"situation" mapstructure:"situation"`
}

// Reply is a successful answer.
type Reply struct {
	Mode            string           `json:"mode"`
	Recommendations []Recommendation `json:"recommendation"`
	Content         string           `json:"content"`
	LineID          *int             `json:"line_id"`
	ImagePath       *string          `json:"image_path"`
}

// Debug carries diagnostics attached to a Failure.
type Debug struct {
	OriginalError string    `json:"original_error"`
	Timestamp     time.Time `json:"timestamp"`
}

// Failure is the user-facing form of an error.
type Failure struct {
	Status          string           `json:"status"`
	Message         string           `json:"message"`
	Recommendations []Recommendation `json:"recommendations"`
	Debug           *Debug           `json:"debug_info,omitempty"`
}

// State is threaded through one run of the workflow.
type State struct {
	Input  string
	UserID string

	Intent Intent
	LineID *int
	Spices []catalog.Spice

	Recommendations []Recommendation
	Content         string
	ImagePath       *string

	// Response is set when a branch succeeds. The chat branch stores its
	// answer in Content with Mode "chat".
	Response *Reply
	// Error is an engine-authored summary of what went wrong. Raw upstream
	// errors are logged, never stored here.
	Error   string
	Failure *Failure

	// Next is the node the current node hands control to.
	Next string
}

// Succeeded reports whether the run produced an answer.
func (s State) Succeeded() bool {
	return s.Error == ""
}

func intPtr(v int) *int { return &v }
