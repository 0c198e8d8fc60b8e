package signaler

import (
	"os"
	"os/signal"
	"syscall"
)

var shutdownSignals = []os.Signal{os.Interrupt, syscall.SIGTERM}

// WaitForInterrupt returns a channel that receives the first interrupt or
// termination signal sent to the process
func WaitForInterrupt() <-chan os.Signal {
	c := make(chan os.Signal, 1)
	signal.Notify(c, shutdownSignals...)
	return c
}

// OnInterrupt calls fn with the first interrupt or termination signal that
// arrives before done is closed. fn runs at most once. The returned channel is
// closed once the watcher has released its signal subscription.
func OnInterrupt(done <-chan struct{}, fn func(os.Signal)) <-chan struct{} {
	c := make(chan os.Signal, 1)
	signal.Notify(c, shutdownSignals...)
	released := make(chan struct{})
	go func() {
		defer close(released)
		defer signal.Stop(c)
		select {
		case sig := <-c:
			if fn != nil {
				fn(sig)
			}
		case <-done:
		}
	}()
	return released
}
