package common

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingChannel struct {
	mu     sync.Mutex
	events []Event
	err    error
}

func (c *recordingChannel) Send(_ context.Context, e Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return c.err
	}
	c.events = append(c.events, e)
	return nil
}

func (c *recordingChannel) Receive(ctx context.Context) (ControlSignal, error) {
	<-ctx.Done()
	return ControlSignal{}, ctx.Err()
}

func (c *recordingChannel) Close() error { return nil }

type recordingObserver struct {
	sequences []int64
	statuses  []Status
}

func (o *recordingObserver) Observe(_ string, seq int64, e *Event) {
	o.sequences = append(o.sequences, seq)
	o.statuses = append(o.statuses, e.Status)
}

func TestEventMarshalJSON(t *testing.T) {
	t.Parallel()
	ts := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	b, err := json.Marshal(Event{Status: StatusStart, ID: "x", Instrument: "BTC-USDT", Percent: 10, Slices: 4, Message: "go", Time: ts})
	require.NoError(t, err, "Marshal must not error")
	assert.JSONEq(t, `{"status":"start","id":"x","instrument":"BTC-USDT","percent":10,"slices":4,"message":"go","time":"2024-01-01T00:00:00Z"}`, string(b))

	b, err = json.Marshal(Event{Status: StatusSliceInfo, Slice: 1, TotalSlices: 4, Size: 0, Price: 25000, Time: ts})
	require.NoError(t, err, "Marshal must not error")
	assert.JSONEq(t, `{"status":"slice_info","slice":1,"total_slices":4,"size":0,"price":25000,"time":"2024-01-01T00:00:00Z"}`, string(b))

	b, err = json.Marshal(Event{Status: StatusPartialFill, Slice: 1, TotalSlices: 4, Price: 25000, FilledSize: 0.00025, ExecutedPrice: 25000, Time: ts})
	require.NoError(t, err, "Marshal must not error")
	assert.JSONEq(t, `{"status":"partial_fill","slice":1,"total_slices":4,"price":25000,"filled_size":0.00025,"executed_price":25000,"slippage_percent":0,"time":"2024-01-01T00:00:00Z"}`, string(b))

	b, err = json.Marshal(Event{Status: StatusCancelled, Message: CancelledMessage, Slice: 3, Time: ts})
	require.NoError(t, err, "Marshal must not error")
	assert.JSONEq(t, `{"status":"cancelled","message":"TWAP cancelled by user","time":"2024-01-01T00:00:00Z"}`, string(b))

	var decoded Event
	require.NoError(t, json.Unmarshal([]byte(`{"status":"partial_fill","slice":2,"filled_size":0.5}`), &decoded), "Unmarshal must not error")
	assert.Equal(t, StatusPartialFill, decoded.Status)
	assert.Equal(t, int64(2), decoded.Slice)
	assert.Equal(t, 0.5, decoded.FilledSize)
}

func TestStatusAndSignal(t *testing.T) {
	t.Parallel()
	for _, s := range []Status{StatusCompleted, StatusCancelled, StatusError} {
		assert.True(t, s.IsTerminal(), s)
	}
	for _, s := range []Status{StatusStart, StatusSliceInfo, StatusPartialFill} {
		assert.False(t, s.IsTerminal(), s)
	}
	assert.True(t, ControlSignal{Action: "cancel"}.IsCancel())
	assert.False(t, ControlSignal{Action: "pause"}.IsCancel())
}

func TestNewReporter(t *testing.T) {
	t.Parallel()
	_, err := NewReporter("", &recordingChannel{})
	assert.ErrorIs(t, err, errExecutionIDIsEmpty)
	_, err = NewReporter("id", nil)
	assert.ErrorIs(t, err, errChannelIsNil)

	var r *Reporter
	assert.ErrorIs(t, r.Send(context.Background(), Event{}), ErrReporterIsNil)
	_, _, err = r.Terminate(context.Background(), Event{Status: StatusCompleted}, nil)
	assert.ErrorIs(t, err, ErrReporterIsNil)
	_, ok := r.Terminal()
	assert.False(t, ok)
	assert.Empty(t, r.ID())
}

func TestReporterExactlyOnceTerminal(t *testing.T) {
	t.Parallel()
	ch := &recordingChannel{}
	obs := &recordingObserver{}
	r, err := NewReporter("exec", ch, obs)
	require.NoError(t, err, "NewReporter must not error")
	ctx := context.Background()

	require.NoError(t, r.Send(ctx, Event{Status: StatusStart}), "Send must not error")
	assert.ErrorIs(t, r.Send(ctx, Event{Status: StatusCompleted}), errTerminalViaSend)
	_, _, err = r.Terminate(ctx, Event{Status: StatusSliceInfo}, nil)
	assert.ErrorIs(t, err, errNotTerminal)

	hooked := false
	e, won, err := r.Terminate(ctx, Event{Status: StatusCancelled, Message: CancelledMessage}, func() { hooked = true })
	require.NoError(t, err, "Terminate must not error")
	assert.True(t, won)
	assert.True(t, hooked)
	assert.Equal(t, StatusCancelled, e.Status)
	assert.Equal(t, "exec", e.ID)

	hooked = false
	e, won, err = r.Terminate(ctx, Event{Status: StatusCompleted}, func() { hooked = true })
	require.NoError(t, err, "Terminate must not error")
	assert.False(t, won)
	assert.False(t, hooked, "losing terminate must not run its hook")
	assert.Equal(t, StatusCancelled, e.Status)

	assert.ErrorIs(t, r.Send(ctx, Event{Status: StatusPartialFill}), ErrTerminalEventSent)

	require.Len(t, ch.events, 2)
	assert.Equal(t, StatusStart, ch.events[0].Status)
	assert.Equal(t, StatusCancelled, ch.events[1].Status)
	assert.Equal(t, []int64{1, 2}, obs.sequences)
	assert.Equal(t, []Status{StatusStart, StatusCancelled}, obs.statuses)

	terminal, ok := r.Terminal()
	assert.True(t, ok)
	assert.Equal(t, StatusCancelled, terminal.Status)
	assert.Equal(t, StatusCancelled, r.Abandon(errors.New("late")).Status)
}

func TestReporterConcurrentTerminate(t *testing.T) {
	t.Parallel()
	ch := &recordingChannel{}
	r, err := NewReporter("exec", ch)
	require.NoError(t, err, "NewReporter must not error")

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int
	)
	for x := 0; x < 20; x++ {
		wg.Add(1)
		go func(x int) {
			defer wg.Done()
			status := StatusCompleted
			if x%2 == 0 {
				status = StatusCancelled
			}
			_, won, err := r.Terminate(context.Background(), Event{Status: status}, nil)
			assert.NoError(t, err)
			if won {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}(x)
	}
	wg.Wait()
	assert.Equal(t, 1, wins)
	assert.Len(t, ch.events, 1)
}

func TestReporterTransportFailure(t *testing.T) {
	t.Parallel()
	errBroken := errors.New("broken pipe")
	ch := &recordingChannel{err: errBroken}
	obs := &recordingObserver{}
	r, err := NewReporter("exec", ch, obs)
	require.NoError(t, err, "NewReporter must not error")

	err = r.Send(context.Background(), Event{Status: StatusStart})
	assert.ErrorIs(t, err, ErrTransportFailed)
	assert.ErrorIs(t, r.Send(context.Background(), Event{Status: StatusSliceInfo}), ErrTransportFailed)

	e := r.Abandon(err)
	assert.Equal(t, StatusError, e.Status)
	assert.Contains(t, e.Message, "broken pipe")
	assert.Equal(t, []Status{StatusStart, StatusError}, obs.statuses)

	_, won, _ := r.Terminate(context.Background(), Event{Status: StatusCompleted}, nil)
	assert.False(t, won)
}
