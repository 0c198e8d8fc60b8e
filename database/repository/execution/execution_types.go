package execution

import (
	"encoding/json"
	"errors"
	"time"
)

var (
	// ErrExecutionNotFound is returned when no execution matches an ID
	ErrExecutionNotFound = errors.New("execution not found")

	errIDIsEmpty     = errors.New("execution id is empty")
	errNilExecution  = errors.New("execution is nil")
	errNilEvent      = errors.New("execution event is nil")
	errStatusIsEmpty = errors.New("status is empty")

	errMigrationFailed = errors.New("journal migration failed")
)

// Execution is one journaled TWAP run
type Execution struct {
	ID              string    `json:"id"`
	Instrument      string    `json:"instrument"`
	Percent         float64   `json:"percent"`
	Slices          int64     `json:"slices"`
	IntervalSeconds float64   `json:"interval_seconds"`
	Status          string    `json:"status"`
	StartedAt       time.Time `json:"started_at"`
	FinishedAt      time.Time `json:"finished_at,omitempty"`
}

// Event is one journaled status event belonging to an execution
type Event struct {
	ExecutionID string          `json:"execution_id"`
	Sequence    int64           `json:"sequence"`
	Status      string          `json:"status"`
	Payload     json.RawMessage `json:"payload"`
	CreatedAt   time.Time       `json:"created_at"`
}
