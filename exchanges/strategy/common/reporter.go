package common

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/thrasher-corp/twapper/log"
)

var (
	// ErrReporterIsNil is returned when a nil reporter is used
	ErrReporterIsNil = errors.New("reporter is nil")
	// ErrTerminalEventSent is returned for any send after the terminal event
	ErrTerminalEventSent = errors.New("terminal event already sent")
	// ErrTransportFailed wraps the first channel write failure. Every send
	// after it fails without touching the channel.
	ErrTransportFailed = errors.New("transport failed")

	errChannelIsNil       = errors.New("channel is nil")
	errExecutionIDIsEmpty = errors.New("execution id is empty")
	errNotTerminal        = errors.New("event status is not terminal")
	errTerminalViaSend    = errors.New("terminal events must use Terminate")
)

// Reporter serialises every write of one execution onto its channel and
// guarantees at most one terminal event.
type Reporter struct {
	id        string
	ch        Channel
	observers []Observer

	mu       sync.Mutex
	sequence int64
	terminal *Event
	failure  error
}

// NewReporter returns a Reporter for an execution
func NewReporter(executionID string, ch Channel, observers ...Observer) (*Reporter, error) {
	if executionID == "" {
		return nil, errExecutionIDIsEmpty
	}
	if ch == nil {
		return nil, errChannelIsNil
	}
	return &Reporter{id: executionID, ch: ch, observers: observers}, nil
}

// ID returns the execution ID stamped on every event
func (r *Reporter) ID() string {
	if r == nil {
		return ""
	}
	return r.id
}

// Send writes a non-terminal event
func (r *Reporter) Send(ctx context.Context, e Event) error {
	if r == nil {
		return ErrReporterIsNil
	}
	if e.Status.IsTerminal() {
		return fmt.Errorf("%w: %s", errTerminalViaSend, e.Status)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.terminal != nil {
		return ErrTerminalEventSent
	}
	return r.write(ctx, &e)
}

// Terminate writes a terminal event unless one was already accepted. hook is
// run under the reporter lock before the write, so a state change and its
// terminal event are observed together. The accepted terminal event is
// returned along with whether this call won.
func (r *Reporter) Terminate(ctx context.Context, e Event, hook func()) (Event, bool, error) {
	if r == nil {
		return Event{}, false, ErrReporterIsNil
	}
	if !e.Status.IsTerminal() {
		return Event{}, false, fmt.Errorf("%w: %s", errNotTerminal, e.Status)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.terminal != nil {
		return *r.terminal, false, nil
	}
	if hook != nil {
		hook()
	}
	err := r.write(ctx, &e)
	r.terminal = &e
	return e, true, err
}

// Abandon records a terminal error event without writing it to the channel.
// Used after the transport has failed.
func (r *Reporter) Abandon(cause error) Event {
	if r == nil {
		return Event{Status: StatusError, Message: ErrReporterIsNil.Error(), Time: time.Now()}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.terminal != nil {
		return *r.terminal
	}
	e := Event{Status: StatusError, ID: r.id, Message: cause.Error(), Time: time.Now()}
	r.sequence++
	for x := range r.observers {
		r.observers[x].Observe(r.id, r.sequence, &e)
	}
	r.terminal = &e
	return e
}

// Terminal returns the accepted terminal event if there is one
func (r *Reporter) Terminal() (Event, bool) {
	if r == nil {
		return Event{}, false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.terminal == nil {
		return Event{}, false
	}
	return *r.terminal, true
}

// write must be called with the lock held
func (r *Reporter) write(ctx context.Context, e *Event) error {
	if r.failure != nil {
		return r.failure
	}
	e.ID = r.id
	if e.Time.IsZero() {
		e.Time = time.Now()
	}
	r.sequence++
	for x := range r.observers {
		r.observers[x].Observe(r.id, r.sequence, e)
	}
	if err := r.ch.Send(ctx, *e); err != nil {
		r.failure = fmt.Errorf("%w: %v", ErrTransportFailed, err)
		log.Warnf(log.TWAP, "ID: [%s] failed to send %s event: %v", r.id, e.Status, err)
		return r.failure
	}
	return nil
}
