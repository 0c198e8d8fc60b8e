package common

import (
	"context"
	"errors"
	"sync"
)

var (
	// ErrAlreadyRunning is returned when a requirement routine is started twice
	ErrAlreadyRunning = errors.New("already running")
	// ErrNotRunning is returned when stopping a requirement that is not running
	ErrNotRunning = errors.New("not running")

	errRequirementIsNil = errors.New("requirement is nil")
	errRoutineIsNil     = errors.New("routine is nil")
)

// Routine is background work owned by an execution. It must return once ctx
// is done.
type Routine func(ctx context.Context)

// Requirement manages the lifecycle of one background routine of an
// execution so it can be run and released without leaking the goroutine.
type Requirement struct {
	wg      sync.WaitGroup
	cancel  context.CancelFunc
	running bool
	mtx     sync.Mutex
}

// Run starts routine in its own goroutine. The routine context is derived
// from ctx and is cancelled by Stop.
func (r *Requirement) Run(ctx context.Context, routine Routine) error {
	if r == nil {
		return errRequirementIsNil
	}
	if routine == nil {
		return errRoutineIsNil
	}

	r.mtx.Lock()
	defer r.mtx.Unlock()

	if r.running {
		return ErrAlreadyRunning
	}

	var rctx context.Context
	rctx, r.cancel = context.WithCancel(ctx)
	r.running = true
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		routine(rctx)
	}()
	return nil
}

// Stop cancels the routine and blocks until it has returned
func (r *Requirement) Stop() error {
	if r == nil {
		return errRequirementIsNil
	}

	r.mtx.Lock()
	defer r.mtx.Unlock()

	if !r.running {
		return ErrNotRunning
	}

	r.cancel()
	r.running = false
	r.wg.Wait()
	return nil
}

// IsRunning returns whether a routine has been started and not yet stopped
func (r *Requirement) IsRunning() bool {
	if r == nil {
		return false
	}
	r.mtx.Lock()
	defer r.mtx.Unlock()
	return r.running
}
