package signaler

import (
	"os"
	"runtime"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func raise(t *testing.T, sig os.Signal) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("signals cannot be raised on windows")
	}
	proc, err := os.FindProcess(os.Getpid())
	require.NoError(t, err, "FindProcess must not error")
	require.NoErrorf(t, proc.Signal(sig), "Signal %s must not error", sig)
}

// Signal tests share the process, so they run sequentially.

func TestWaitForInterrupt(t *testing.T) {
	for _, sig := range []os.Signal{syscall.SIGTERM, os.Interrupt} {
		interrupt := WaitForInterrupt()
		raise(t, sig)
		select {
		case got := <-interrupt:
			assert.Equal(t, sig, got)
		case <-time.After(2 * time.Second):
			t.Fatalf("%s must be delivered", sig)
		}
	}
}

func TestOnInterrupt(t *testing.T) {
	received := make(chan os.Signal, 2)
	done := make(chan struct{})
	released := OnInterrupt(done, func(sig os.Signal) { received <- sig })
	// keeps the default handler from terminating the test binary
	guard := WaitForInterrupt()

	raise(t, syscall.SIGTERM)
	select {
	case got := <-received:
		assert.Equal(t, syscall.SIGTERM, got)
	case <-time.After(2 * time.Second):
		t.Fatal("callback must receive the signal")
	}
	select {
	case <-released:
	case <-time.After(2 * time.Second):
		t.Fatal("watcher must release after the first signal")
	}
	<-guard

	raise(t, syscall.SIGTERM)
	<-guard
	assert.Empty(t, received, "callback must run at most once")
	close(done)
}

func TestOnInterruptDone(t *testing.T) {
	done := make(chan struct{})
	released := OnInterrupt(done, func(os.Signal) { t.Error("callback must not run once done is closed") })
	close(done)
	select {
	case <-released:
	case <-time.After(2 * time.Second):
		t.Fatal("watcher must release when done is closed")
	}
}
