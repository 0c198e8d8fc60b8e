package twap

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/thrasher-corp/twapper/exchanges/strategy/common"
	"github.com/thrasher-corp/twapper/log"
)

// CancelToken is a one way cancellation flag shared between the listener,
// which sets it, and the engine, which reads it.
type CancelToken struct {
	cancelled atomic.Bool
	done      chan struct{}
	once      sync.Once
}

// NewCancelToken returns an unset token
func NewCancelToken() *CancelToken {
	return &CancelToken{done: make(chan struct{})}
}

// Cancel sets the token. Only the first call returns true.
func (c *CancelToken) Cancel() bool {
	if !c.cancelled.CompareAndSwap(false, true) {
		return false
	}
	c.once.Do(func() { close(c.done) })
	return true
}

// IsCancelled reports whether Cancel has been called
func (c *CancelToken) IsCancelled() bool {
	return c.cancelled.Load()
}

// Done is closed once the token is cancelled
func (c *CancelToken) Done() <-chan struct{} {
	return c.done
}

// listener watches the channel for a cancel signal for one execution
type listener struct {
	ch       common.Channel
	reporter *common.Reporter
	token    *CancelToken
}

// run blocks until a cancel is handled, the channel fails or ctx is done.
// sendCtx is used for the cancelled event so stopping the listener does not
// abort an in flight write.
func (l *listener) run(ctx, sendCtx context.Context) {
	for {
		sig, err := l.ch.Receive(ctx)
		if err != nil {
			if ctx.Err() == nil {
				log.Debugf(log.TWAP, "ID: [%s] listener stopped: %v", l.reporter.ID(), err)
			}
			return
		}
		if !sig.IsCancel() {
			log.Debugf(log.TWAP, "ID: [%s] ignoring control action %q", l.reporter.ID(), sig.Action)
			continue
		}
		_, won, err := l.reporter.Terminate(sendCtx, common.Event{
			Status:  common.StatusCancelled,
			Message: common.CancelledMessage,
		}, func() { l.token.Cancel() })
		if err != nil {
			log.Warnf(log.TWAP, "ID: [%s] cancelled event not delivered: %v", l.reporter.ID(), err)
		}
		if won {
			log.Infof(log.TWAP, "ID: [%s] cancelled by observer", l.reporter.ID())
		}
		return
	}
}
