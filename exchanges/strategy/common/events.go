package common

import (
	"context"
	"encoding/json"
	"time"
)

// Status discriminates status events sent to an observer
type Status string

// Status event variants
const (
	StatusStart       Status = "start"
	StatusSliceInfo   Status = "slice_info"
	StatusPartialFill Status = "partial_fill"
	StatusCompleted   Status = "completed"
	StatusCancelled   Status = "cancelled"
	StatusError       Status = "error"
)

// ActionCancel is the only recognised control action
const ActionCancel = "cancel"

// Terminal messages
const (
	CompletedMessage = "TWAP completed successfully!"
	CancelledMessage = "TWAP cancelled by user"
)

// IsTerminal returns true for the statuses that end an execution
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusCancelled || s == StatusError
}

// Event is an outbound status event. Only the fields belonging to the
// variant named by Status are encoded.
type Event struct {
	Status          Status    `json:"status"`
	ID              string    `json:"id,omitempty"`
	Instrument      string    `json:"instrument,omitempty"`
	Percent         float64   `json:"percent,omitempty"`
	Slices          int64     `json:"slices,omitempty"`
	Slice           int64     `json:"slice,omitempty"`
	TotalSlices     int64     `json:"total_slices,omitempty"`
	Size            float64   `json:"size,omitempty"`
	Price           float64   `json:"price,omitempty"`
	FilledSize      float64   `json:"filled_size,omitempty"`
	ExecutedPrice   float64   `json:"executed_price,omitempty"`
	SlippagePercent float64   `json:"slippage_percent,omitempty"`
	OrderID         string    `json:"order_id,omitempty"`
	Message         string    `json:"message,omitempty"`
	Time            time.Time `json:"time"`
}

type startPayload struct {
	Status     Status    `json:"status"`
	ID         string    `json:"id,omitempty"`
	Instrument string    `json:"instrument"`
	Percent    float64   `json:"percent"`
	Slices     int64     `json:"slices"`
	Message    string    `json:"message,omitempty"`
	Time       time.Time `json:"time"`
}

type sliceInfoPayload struct {
	Status      Status    `json:"status"`
	ID          string    `json:"id,omitempty"`
	Slice       int64     `json:"slice"`
	TotalSlices int64     `json:"total_slices"`
	Size        float64   `json:"size"`
	Price       float64   `json:"price"`
	OrderID     string    `json:"order_id,omitempty"`
	Time        time.Time `json:"time"`
}

type partialFillPayload struct {
	Status          Status    `json:"status"`
	ID              string    `json:"id,omitempty"`
	Slice           int64     `json:"slice"`
	TotalSlices     int64     `json:"total_slices"`
	Price           float64   `json:"price"`
	FilledSize      float64   `json:"filled_size"`
	ExecutedPrice   float64   `json:"executed_price"`
	SlippagePercent float64   `json:"slippage_percent"`
	Time            time.Time `json:"time"`
}

type messagePayload struct {
	Status  Status    `json:"status"`
	ID      string    `json:"id,omitempty"`
	Message string    `json:"message"`
	Time    time.Time `json:"time"`
}

// MarshalJSON encodes the event as its tagged variant
func (e Event) MarshalJSON() ([]byte, error) {
	switch e.Status {
	case StatusStart:
		return json.Marshal(startPayload{e.Status, e.ID, e.Instrument, e.Percent, e.Slices, e.Message, e.Time})
	case StatusSliceInfo:
		return json.Marshal(sliceInfoPayload{e.Status, e.ID, e.Slice, e.TotalSlices, e.Size, e.Price, e.OrderID, e.Time})
	case StatusPartialFill:
		return json.Marshal(partialFillPayload{e.Status, e.ID, e.Slice, e.TotalSlices, e.Price, e.FilledSize, e.ExecutedPrice, e.SlippagePercent, e.Time})
	default:
		return json.Marshal(messagePayload{e.Status, e.ID, e.Message, e.Time})
	}
}

// ControlSignal is an inbound message from the observer
type ControlSignal struct {
	Action string `json:"action"`
}

// IsCancel returns true when the signal requests cancellation
func (c ControlSignal) IsCancel() bool {
	return c.Action == ActionCancel
}

// Channel is the duplex transport between an execution and its observer
type Channel interface {
	Send(ctx context.Context, e Event) error
	Receive(ctx context.Context) (ControlSignal, error)
	Close() error
}

// Observer receives every event a Reporter attempts to write, in order.
// Observers are called while the reporter lock is held and must not call back
// into it.
type Observer interface {
	Observe(executionID string, sequence int64, e *Event)
}
