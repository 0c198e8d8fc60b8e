package engine

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/thrasher-corp/twapper/config"
	"github.com/thrasher-corp/twapper/database"
	"github.com/thrasher-corp/twapper/exchanges/strategy/common"
)

type wireEvent struct {
	Status          common.Status `json:"status"`
	ID              string        `json:"id"`
	Slice           int64         `json:"slice"`
	TotalSlices     int64         `json:"total_slices"`
	Size            float64       `json:"size"`
	Price           float64       `json:"price"`
	FilledSize      float64       `json:"filled_size"`
	ExecutedPrice   float64       `json:"executed_price"`
	SlippagePercent float64       `json:"slippage_percent"`
	OrderID         string        `json:"order_id"`
	Message         string        `json:"message"`
}

func dialTWAP(t *testing.T, base string) *websocket.Conn {
	t.Helper()
	u := "ws" + strings.TrimPrefix(base, "http") + "/ws-twap"
	conn, resp, err := websocket.DefaultDialer.Dial(u, nil)
	require.NoError(t, err, "Dial must not error")
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

// readUntilTerminal reads events until a terminal one, calling onEvent for
// each event first
func readUntilTerminal(t *testing.T, conn *websocket.Conn, onEvent func(wireEvent)) []wireEvent {
	t.Helper()
	var events []wireEvent
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(30*time.Second)), "SetReadDeadline must not error")
	for {
		var ev wireEvent
		require.NoError(t, conn.ReadJSON(&ev), "ReadJSON must not error")
		events = append(events, ev)
		if onEvent != nil {
			onEvent(ev)
		}
		if ev.Status.IsTerminal() {
			return events
		}
	}
}

func statuses(events []wireEvent) []common.Status {
	s := make([]common.Status, len(events))
	for i := range events {
		s[i] = events[i].Status
	}
	return s
}

func assertClosedNormally(t *testing.T, conn *websocket.Conn) {
	t.Helper()
	_, _, err := conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure), "session must close normally, got %v", err)
}

func TestGetIndex(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(newTestEngine(t, nil).Router())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/")
	require.NoError(t, err, "GET must not error")
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err, "ReadAll must not error")
	assert.JSONEq(t, `{"status":"TWAP server running"}`, string(body))
}

func TestWebsocketCompletes(t *testing.T) {
	t.Parallel()
	e := newTestEngine(t, nil)
	srv := httptest.NewServer(e.Router())
	defer srv.Close()

	conn := dialTWAP(t, srv.URL)
	require.NoError(t, conn.WriteJSON(map[string]interface{}{
		"instId":   "BTC-USDT",
		"percent":  10,
		"slices":   2,
		"interval": 0.004,
	}), "WriteJSON must not error")

	events := readUntilTerminal(t, conn, nil)
	assert.Equal(t, []common.Status{
		common.StatusStart,
		common.StatusSliceInfo,
		common.StatusPartialFill, common.StatusPartialFill, common.StatusPartialFill, common.StatusPartialFill,
		common.StatusSliceInfo,
		common.StatusPartialFill, common.StatusPartialFill, common.StatusPartialFill, common.StatusPartialFill,
		common.StatusCompleted,
	}, statuses(events))
	assertClosedNormally(t, conn)

	first := events[1]
	assert.Equal(t, int64(1), first.Slice)
	assert.Equal(t, int64(2), first.TotalSlices)
	assert.Equal(t, 25000.0, first.Price)
	assert.Equal(t, 0.002, first.Size, "1000 USDT * 10% / 2 slices at 25000")
	assert.NotEmpty(t, first.OrderID)
	assert.Equal(t, first.Size, events[5].FilledSize)
	assert.Equal(t, common.CompletedMessage, events[len(events)-1].Message)
	for i := range events {
		assert.Equal(t, events[0].ID, events[i].ID)
	}
}

func TestWebsocketCancel(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(newTestEngine(t, nil).Router())
	defer srv.Close()

	conn := dialTWAP(t, srv.URL)
	require.NoError(t, conn.WriteJSON(map[string]interface{}{"slice_count": 3, "interval_seconds": 60}), "WriteJSON must not error")

	events := readUntilTerminal(t, conn, func(ev wireEvent) {
		if ev.Status == common.StatusPartialFill {
			assert.NoError(t, conn.WriteJSON(map[string]string{"action": common.ActionCancel}))
		}
	})
	assert.Equal(t, []common.Status{
		common.StatusStart,
		common.StatusSliceInfo,
		common.StatusPartialFill,
		common.StatusCancelled,
	}, statuses(events))
	assert.Equal(t, common.CancelledMessage, events[3].Message)
	assertClosedNormally(t, conn)
}

func TestWebsocketMalformedControlStopsListening(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(newTestEngine(t, nil).Router())
	defer srv.Close()

	conn := dialTWAP(t, srv.URL)
	require.NoError(t, conn.WriteJSON(map[string]interface{}{"slice_count": 2, "interval_seconds": 0.4}), "WriteJSON must not error")

	var sent bool
	events := readUntilTerminal(t, conn, func(ev wireEvent) {
		if ev.Status != common.StatusPartialFill || sent {
			return
		}
		sent = true
		assert.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`not json{`)))
		assert.NoError(t, conn.WriteJSON(map[string]string{"action": common.ActionCancel}))
	})
	require.True(t, sent, "a partial fill must have been observed")
	assert.Len(t, events, 12)
	assert.NotContains(t, statuses(events), common.StatusCancelled)
	assert.Equal(t, common.StatusCompleted, events[len(events)-1].Status)
	assertClosedNormally(t, conn)
}

func TestWebsocketRejectsBadRequest(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(newTestEngine(t, nil).Router())
	defer srv.Close()

	for _, tc := range []struct {
		name    string
		payload string
		message string
	}{
		{"coercion", `{"percent":"lots"}`, errInvalidField.Error()},
		{"not an object", `"go"`, errInvalidStart.Error()},
		{"out of range", `{"percent":150}`, "percent"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			conn := dialTWAP(t, srv.URL)
			require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(tc.payload)), "WriteMessage must not error")
			events := readUntilTerminal(t, conn, nil)
			require.Len(t, events, 1)
			assert.Equal(t, common.StatusError, events[0].Status)
			assert.Contains(t, events[0].Message, tc.message)
			assertClosedNormally(t, conn)
		})
	}
}

func TestGetMetrics(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(newTestEngine(t, nil).Router())
	defer srv.Close()

	conn := dialTWAP(t, srv.URL)
	require.NoError(t, conn.WriteJSON(map[string]interface{}{"slices": 1, "interval": 0.001}), "WriteJSON must not error")
	readUntilTerminal(t, conn, nil)

	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err, "GET must not error")
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err, "ReadAll must not error")
	assert.Contains(t, string(body), `twapper_executions_total{outcome="completed"} 1`)
	assert.Contains(t, string(body), "twapper_partial_fills_total 4")

	noMetrics := httptest.NewServer(newTestEngine(t, func(c *config.Config) { c.Metrics.Enabled = false }).Router())
	defer noMetrics.Close()
	resp, err = http.Get(noMetrics.URL + "/metrics")
	require.NoError(t, err, "GET must not error")
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestExecutionsJournalUnavailable(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(newTestEngine(t, nil).Router())
	defer srv.Close()
	for _, path := range []string{"/executions", "/executions/abc"} {
		resp, err := http.Get(srv.URL + path)
		require.NoError(t, err, "GET must not error")
		resp.Body.Close()
		assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	}
}

func TestExecutionsJournal(t *testing.T) {
	t.Parallel()
	e := newTestEngine(t, func(c *config.Config) {
		c.Database.Enabled = true
		c.Database.Driver = database.DBSQLite3
		c.Database.MigrationDir = filepath.Join("..", "database", "migrations")
	})
	require.NoError(t, e.Start(), "Start must not error")
	t.Cleanup(func() { assert.NoError(t, e.Stop()) })
	base := "http://" + e.Addr()

	conn := dialTWAP(t, base)
	require.NoError(t, conn.WriteJSON(map[string]interface{}{"slices": 2, "interval": 0.001}), "WriteJSON must not error")
	events := readUntilTerminal(t, conn, nil)
	require.Equal(t, common.StatusCompleted, events[len(events)-1].Status)
	id := events[0].ID

	resp, err := http.Get(base + "/executions")
	require.NoError(t, err, "GET must not error")
	var list []struct {
		ID              string  `json:"id"`
		Status          string  `json:"status"`
		Slices          int64   `json:"slices"`
		IntervalSeconds float64 `json:"interval_seconds"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&list), "Decode must not error")
	resp.Body.Close()
	require.Len(t, list, 1)
	assert.Equal(t, id, list[0].ID)
	assert.Equal(t, string(common.StatusCompleted), list[0].Status)
	assert.Equal(t, int64(2), list[0].Slices)
	assert.Equal(t, 0.001, list[0].IntervalSeconds)

	resp, err = http.Get(base + "/executions/" + id)
	require.NoError(t, err, "GET must not error")
	var detail struct {
		Events []struct {
			Sequence int64  `json:"sequence"`
			Status   string `json:"status"`
		} `json:"events"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&detail), "Decode must not error")
	resp.Body.Close()
	require.Len(t, detail.Events, len(events))
	for i := range detail.Events {
		assert.Equal(t, int64(i+1), detail.Events[i].Sequence)
		assert.Equal(t, string(events[i].Status), detail.Events[i].Status)
	}

	resp, err = http.Get(base + "/executions/missing")
	require.NoError(t, err, "GET must not error")
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, err = http.Get(base + "/executions?limit=zero")
	require.NoError(t, err, "GET must not error")
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestCancelOverREST(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(newTestEngine(t, nil).Router())
	defer srv.Close()

	conn := dialTWAP(t, srv.URL)
	require.NoError(t, conn.WriteJSON(map[string]interface{}{"slices": 2, "interval": 60}), "WriteJSON must not error")

	events := readUntilTerminal(t, conn, func(ev wireEvent) {
		if ev.Status != common.StatusSliceInfo {
			return
		}
		resp, err := http.Get(srv.URL + "/executions/running")
		if !assert.NoError(t, err) {
			return
		}
		var running []struct {
			ID    string `json:"id"`
			Slice int64  `json:"slice"`
		}
		assert.NoError(t, json.NewDecoder(resp.Body).Decode(&running))
		resp.Body.Close()
		if assert.Len(t, running, 1) {
			assert.Equal(t, ev.ID, running[0].ID)
			assert.Equal(t, int64(1), running[0].Slice)
		}

		resp, err = http.Post(srv.URL+"/executions/"+ev.ID+"/cancel", "application/json", http.NoBody)
		if assert.NoError(t, err) {
			resp.Body.Close()
			assert.Equal(t, http.StatusAccepted, resp.StatusCode)
		}
	})
	assert.Equal(t, common.StatusCancelled, events[len(events)-1].Status)
	var sliceInfos int
	for _, s := range statuses(events) {
		if s == common.StatusSliceInfo {
			sliceInfos++
		}
	}
	assert.Equal(t, 1, sliceInfos, "no slice may start after the cancel")

	resp, err := http.Post(srv.URL+"/executions/missing/cancel", "application/json", http.NoBody)
	require.NoError(t, err, "POST must not error")
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
