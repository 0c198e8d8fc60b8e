package request

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	sm := http.NewServeMux()
	sm.HandleFunc("/", func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("X-Agent", req.Header.Get(userAgent))
		_, _ = io.WriteString(w, `{"response":true}`)
	})
	sm.HandleFunc("/error", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, `{"error":true}`)
	})
	s := httptest.NewServer(sm)
	t.Cleanup(s.Close)
	return s
}

func TestNew(t *testing.T) {
	t.Parallel()
	_, err := New("", http.DefaultClient)
	assert.ErrorIs(t, err, errServiceNameUnset)
	_, err = New("test", nil)
	assert.ErrorIs(t, err, errHTTPClientIsNil)

	r, err := New("test", http.DefaultClient, WithUserAgent("bot"), WithVerboseLogging(true))
	require.NoError(t, err, "New must not error")
	assert.Equal(t, "bot", r.UserAgent)
	assert.True(t, r.verbose)
}

func TestSendPayload(t *testing.T) {
	t.Parallel()
	s := newTestServer(t)
	ctx := context.Background()

	var nilRequester *Requester
	assert.ErrorIs(t, nilRequester.SendPayload(ctx, nil), errRequestSystemIsNil)

	r, err := New("test", s.Client())
	require.NoError(t, err, "New must not error")

	assert.ErrorIs(t, r.SendPayload(ctx, nil), errRequestFunctionIsNil)

	errGen := errors.New("generate failure")
	assert.ErrorIs(t, r.SendPayload(ctx, func() (*Item, error) { return nil, errGen }), errGen)
	assert.ErrorIs(t, r.SendPayload(ctx, func() (*Item, error) { return nil, nil }), errRequestItemNil)
	assert.ErrorIs(t, r.SendPayload(ctx, func() (*Item, error) { return &Item{Method: http.MethodGet}, nil }), errInvalidPath)

	var nilHeader http.Header
	assert.ErrorIs(t, r.SendPayload(ctx, func() (*Item, error) {
		return &Item{Method: http.MethodGet, Path: s.URL, HeaderResponse: &nilHeader}, nil
	}), errHeaderResponseMapIsNil)

	var resp struct {
		Response bool `json:"response"`
	}
	headers := http.Header{}
	err = r.SendPayload(WithVerbose(ctx), func() (*Item, error) {
		return &Item{
			Method:         http.MethodGet,
			Path:           s.URL,
			Result:         &resp,
			HeaderResponse: &headers,
			HTTPDebugging:  true,
		}, nil
	})
	require.NoError(t, err, "SendPayload must not error")
	assert.True(t, resp.Response)
	assert.Equal(t, DefaultUserAgent, headers.Get("X-Agent"))

	err = r.SendPayload(ctx, func() (*Item, error) {
		return &Item{Method: http.MethodGet, Path: s.URL + "/error"}, nil
	})
	assert.ErrorIs(t, err, ErrUnsuccessfulStatus)
}
