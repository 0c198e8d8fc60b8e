package strategy

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/thrasher-corp/twapper/exchanges/strategy/common"
)

var (
	// ErrNotFound is returned when no running execution matches an ID
	ErrNotFound = errors.New("strategy not found")

	errManagerIsNil = errors.New("strategy manager is nil")
	errStopIsNil    = errors.New("stop function is nil")
)

// StopFunc requests a running execution to cancel
type StopFunc func(ctx context.Context) error

// Summary is a snapshot of a running execution
type Summary struct {
	ID         string    `json:"id"`
	Instrument string    `json:"instrument"`
	Percent    float64   `json:"percent"`
	Slices     int64     `json:"slices"`
	Slice      int64     `json:"slice"`
	Filled     float64   `json:"filled_size"`
	Started    time.Time `json:"started"`
}

type tracked struct {
	summary Summary
	stop    StopFunc
}

// Manager tracks running executions so they can be listed and stopped
type Manager struct {
	m       sync.Mutex
	running map[string]*tracked
}

// NewManager returns an empty Manager
func NewManager() *Manager {
	return &Manager{running: make(map[string]*tracked)}
}

// Track returns an observer for one execution. The execution is registered
// on its start event and removed on its terminal event.
func (sm *Manager) Track(stop StopFunc) (common.Observer, error) {
	if sm == nil {
		return nil, errManagerIsNil
	}
	if stop == nil {
		return nil, errStopIsNil
	}
	return &observer{manager: sm, stop: stop}, nil
}

// Running returns the running executions, oldest first
func (sm *Manager) Running() []Summary {
	if sm == nil {
		return nil
	}
	sm.m.Lock()
	list := make([]Summary, 0, len(sm.running))
	for _, t := range sm.running {
		list = append(list, t.summary)
	}
	sm.m.Unlock()
	sort.Slice(list, func(i, j int) bool { return list[i].Started.Before(list[j].Started) })
	return list
}

// Stop requests cancellation of a running execution
func (sm *Manager) Stop(ctx context.Context, id string) error {
	if sm == nil {
		return errManagerIsNil
	}
	sm.m.Lock()
	t, ok := sm.running[id]
	sm.m.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return t.stop(ctx)
}

type observer struct {
	manager *Manager
	stop    StopFunc
}

// Observe implements common.Observer
func (o *observer) Observe(executionID string, _ int64, e *common.Event) {
	sm := o.manager
	sm.m.Lock()
	defer sm.m.Unlock()
	if e.Status.IsTerminal() {
		delete(sm.running, executionID)
		return
	}
	t, ok := sm.running[executionID]
	if e.Status == common.StatusStart {
		sm.running[executionID] = &tracked{
			summary: Summary{
				ID:         executionID,
				Instrument: e.Instrument,
				Percent:    e.Percent,
				Slices:     e.Slices,
				Started:    e.Time,
			},
			stop: o.stop,
		}
		return
	}
	if !ok {
		return
	}
	switch e.Status {
	case common.StatusSliceInfo:
		t.summary.Slice = e.Slice
		t.summary.Filled = 0
	case common.StatusPartialFill:
		t.summary.Filled = e.FilledSize
	}
}
