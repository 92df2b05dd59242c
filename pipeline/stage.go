package pipeline

import (
	"time"

	"github.com/goccy/go-json"
)

// Stage names reported in StageResult.
const (
	StageIngest   = "ingest"
	StageClean    = "clean"
	StageLoad     = "load"
	StageFeatures = "features"
	StageTrain    = "train"
	StageEvaluate = "evaluate"
	StagePersist  = "persist"
)

// StageResult is the outcome of one stage. Message is safe to show to
// callers; it never carries a stack trace.
type StageResult struct {
	Stage    string
	OK       bool
	Message  string
	Duration time.Duration
}

// MarshalJSON renders the duration in milliseconds.
func (s StageResult) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Stage      string `json:"stage"`
		OK         bool   `json:"ok"`
		Message    string `json:"message,omitempty"`
		DurationMs int64  `json:"duration_ms"`
	}{s.Stage, s.OK, s.Message, s.Duration.Milliseconds()})
}
