package enrich

import (
	"time"

	"github.com/sells-group/geodir/internal/model"
)

// Status is the result of enriching one record.
type Status string

// Outcome statuses.
const (
	StatusSucceeded Status = "succeeded"
	StatusSkipped   Status = "skipped"
	StatusFailed    Status = "failed"
)

// Kind classifies a failed outcome.
type Kind string

// Failure kinds. The first three mirror the geocode failure kinds.
const (
	KindInvalidInput  Kind = "invalid_input"
	KindNotFound      Kind = "not_found"
	KindProviderError Kind = "provider_error"
	KindStorage       Kind = "storage"
	KindStale         Kind = "stale"
	KindCanceled      Kind = "canceled"
)

// Outcome describes what happened to one record.
type Outcome struct {
	LocationID int64         `json:"location_id"`
	Name       string        `json:"name"`
	Address    string        `json:"address"`
	Status     Status        `json:"status"`
	Kind       Kind          `json:"kind,omitempty"`
	Reason     string        `json:"reason,omitempty"`
	Point      *model.Point  `json:"point,omitempty"`
	Duration   time.Duration `json:"duration"`
}

// Failed reports whether the outcome is a failure.
func (o Outcome) Failed() bool {
	return o.Status == StatusFailed
}

// RunStatus is the overall state of a backlog run.
type RunStatus string

// Run statuses.
const (
	RunCompleted             RunStatus = "completed"
	RunCompletedWithFailures RunStatus = "completed_with_failures"
	RunAborted               RunStatus = "aborted"
)

// Summary reports a backlog run. Attempted excludes skipped records.
type Summary struct {
	RunID      string    `json:"run_id"`
	Total      int       `json:"total"`
	Attempted  int       `json:"attempted"`
	Succeeded  int       `json:"succeeded"`
	Skipped    int       `json:"skipped"`
	Failed     int       `json:"failed"`
	Failures   []Outcome `json:"failures"`
	Outcomes   []Outcome `json:"-"`
	Status     RunStatus `json:"status"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}

func (s *Summary) record(o Outcome) {
	s.Outcomes = append(s.Outcomes, o)
	switch o.Status {
	case StatusSkipped:
		s.Skipped++
	case StatusSucceeded:
		s.Attempted++
		s.Succeeded++
	case StatusFailed:
		s.Attempted++
		s.Failed++
		s.Failures = append(s.Failures, o)
	}
}

func (s *Summary) finish(now time.Time, aborted bool) {
	s.FinishedAt = now
	switch {
	case aborted:
		s.Status = RunAborted
	case s.Failed > 0:
		s.Status = RunCompletedWithFailures
	default:
		s.Status = RunCompleted
	}
}

// OK reports whether the run completed without failures.
func (s *Summary) OK() bool {
	return s.Status == RunCompleted
}
