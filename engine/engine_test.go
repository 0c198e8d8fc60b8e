package engine

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/thrasher-corp/twapper/config"
	"github.com/thrasher-corp/twapper/database"
	"github.com/thrasher-corp/twapper/exchanges/okx"
	"github.com/thrasher-corp/twapper/exchanges/paper"
)

func testConfig(t *testing.T, modify func(*config.Config)) *config.Config {
	t.Helper()
	c := &config.Config{
		DataDirectory: t.TempDir(),
		Server:        config.ServerConfig{ListenAddress: "127.0.0.1:0"},
		Exchange: config.ExchangeConfig{
			Name: config.ExchangePaper,
			PaperBook: config.PaperConfig{
				Balance: config.DefaultPaperBalance,
				Bid:     config.DefaultPaperBid,
				Ask:     config.DefaultPaperAsk,
			},
		},
		TWAP: config.TWAPConfig{
			Instrument: config.DefaultInstrument,
			Percent:    config.DefaultPercent,
			Slices:     config.DefaultSlices,
			Interval:   config.DefaultInterval,
		},
		Metrics: config.MetricsConfig{Enabled: true},
	}
	if modify != nil {
		modify(c)
	}
	require.NoError(t, c.CheckConfig(), "CheckConfig must not error")
	return c
}

func newTestEngine(t *testing.T, modify func(*config.Config)) *Engine {
	t.Helper()
	e, err := New(testConfig(t, modify))
	require.NoError(t, err, "New must not error")
	return e
}

func TestNew(t *testing.T) {
	t.Parallel()
	_, err := New(nil)
	assert.ErrorIs(t, err, errNilConfig)

	e := newTestEngine(t, nil)
	assert.NotNil(t, e.TWAP)
	assert.NotNil(t, e.Metrics)
	assert.Nil(t, e.DatabaseManager, "database must stay off unless enabled")
	assert.IsType(t, &paper.Exchange{}, e.Exchange)

	e = newTestEngine(t, func(c *config.Config) {
		c.Metrics.Enabled = false
		c.Database.Enabled = true
		c.Database.Driver = database.DBSQLite3
	})
	assert.Nil(t, e.Metrics)
	assert.NotNil(t, e.DatabaseManager)
}

func TestNewExchange(t *testing.T) {
	t.Parallel()
	_, _, err := NewExchange(nil)
	assert.ErrorIs(t, err, errNilConfig)

	exch, name, err := NewExchange(testConfig(t, nil))
	require.NoError(t, err, "NewExchange must not error")
	assert.Equal(t, paper.Name, name)
	balance, err := exch.GetBalance(context.Background(), "USDT")
	require.NoError(t, err, "GetBalance must not error")
	assert.Equal(t, config.DefaultPaperBalance, balance)

	c := testConfig(t, func(c *config.Config) {
		c.Exchange.Name = config.ExchangeOKX
		c.Exchange.Paper = false
		c.Exchange.RateLimit = config.DefaultRateLimit
		c.Exchange.Credentials = config.Credentials{Key: "k", Secret: "s", Passphrase: "p"}
	})
	exch, name, err = NewExchange(c)
	require.NoError(t, err, "NewExchange must not error")
	assert.Equal(t, okx.Name, name)
	assert.IsType(t, &okx.Okx{}, exch)
}

func TestStartStop(t *testing.T) {
	t.Parallel()
	e := newTestEngine(t, nil)
	assert.ErrorIs(t, e.Stop(), errNotRunning)
	require.NoError(t, e.Start(), "Start must not error")
	assert.ErrorIs(t, e.Start(), errAlreadyRunning)

	resp, err := http.Get("http://" + e.Addr() + "/")
	require.NoError(t, err, "GET must not error")
	defer resp.Body.Close()
	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body), "Decode must not error")
	assert.Equal(t, IndexStatus, body["status"])

	require.NoError(t, e.Stop(), "Stop must not error")
	assert.ErrorIs(t, e.Stop(), errNotRunning)

	var nilEngine *Engine
	assert.ErrorIs(t, nilEngine.Start(), errEngineIsNil)
	assert.ErrorIs(t, nilEngine.Stop(), errEngineIsNil)
}

func TestCheckOrigin(t *testing.T) {
	t.Parallel()
	e := newTestEngine(t, func(c *config.Config) {
		c.Server.AllowedOrigins = []string{"http://localhost:3000"}
	})
	r, err := http.NewRequest(http.MethodGet, "/ws-twap", http.NoBody)
	require.NoError(t, err, "NewRequest must not error")
	assert.True(t, e.checkOrigin(r), "requests without an origin must pass")
	r.Header.Set("Origin", "http://localhost:3000")
	assert.True(t, e.checkOrigin(r))
	r.Header.Set("Origin", "http://evil.example")
	assert.False(t, e.checkOrigin(r))

	e.Config.Server.AllowedOrigins = []string{"*"}
	assert.True(t, e.checkOrigin(r))
}

func TestStartBadAddress(t *testing.T) {
	t.Parallel()
	e := newTestEngine(t, func(c *config.Config) { c.Server.ListenAddress = "256.0.0.1:bad" })
	assert.Error(t, e.Start())
	assert.ErrorIs(t, e.Stop(), errNotRunning)
}
