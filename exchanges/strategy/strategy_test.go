package strategy

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/thrasher-corp/twapper/exchanges/strategy/common"
)

func TestManager(t *testing.T) {
	t.Parallel()
	sm := NewManager()
	_, err := sm.Track(nil)
	assert.ErrorIs(t, err, errStopIsNil)

	var stopped int
	obs, err := sm.Track(func(context.Context) error { stopped++; return nil })
	require.NoError(t, err, "Track must not error")

	obs.Observe("a", 2, &common.Event{Status: common.StatusSliceInfo, Slice: 1})
	assert.Empty(t, sm.Running(), "events before start must be ignored")

	now := time.Now()
	obs.Observe("a", 1, &common.Event{Status: common.StatusStart, Instrument: "BTC-USDT", Percent: 10, Slices: 4, Time: now})
	obs.Observe("a", 2, &common.Event{Status: common.StatusSliceInfo, Slice: 2})
	obs.Observe("a", 3, &common.Event{Status: common.StatusPartialFill, FilledSize: 0.5})
	running := sm.Running()
	require.Len(t, running, 1)
	assert.Equal(t, Summary{ID: "a", Instrument: "BTC-USDT", Percent: 10, Slices: 4, Slice: 2, Filled: 0.5, Started: now}, running[0])

	require.NoError(t, sm.Stop(context.Background(), "a"), "Stop must not error")
	assert.Equal(t, 1, stopped)
	assert.ErrorIs(t, sm.Stop(context.Background(), "b"), ErrNotFound)

	obs.Observe("a", 4, &common.Event{Status: common.StatusCancelled})
	assert.Empty(t, sm.Running())
	assert.ErrorIs(t, sm.Stop(context.Background(), "a"), ErrNotFound)

	var nilManager *Manager
	_, err = nilManager.Track(func(context.Context) error { return nil })
	assert.ErrorIs(t, err, errManagerIsNil)
	assert.ErrorIs(t, nilManager.Stop(context.Background(), "a"), errManagerIsNil)
	assert.Nil(t, nilManager.Running())
}

func TestManagerOrdersByStart(t *testing.T) {
	t.Parallel()
	sm := NewManager()
	obs, err := sm.Track(func(context.Context) error { return nil })
	require.NoError(t, err, "Track must not error")
	now := time.Now()
	obs.Observe("late", 1, &common.Event{Status: common.StatusStart, Time: now.Add(time.Second)})
	obs.Observe("early", 1, &common.Event{Status: common.StatusStart, Time: now})
	running := sm.Running()
	require.Len(t, running, 2)
	assert.Equal(t, "early", running[0].ID)
	assert.Equal(t, "late", running[1].ID)
}
