package engine

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"

	"github.com/gorilla/websocket"
	"github.com/thrasher-corp/twapper/common"
	"github.com/thrasher-corp/twapper/config"
	"github.com/thrasher-corp/twapper/exchanges/okx"
	"github.com/thrasher-corp/twapper/exchanges/paper"
	"github.com/thrasher-corp/twapper/exchanges/request"
	"github.com/thrasher-corp/twapper/exchanges/strategy"
	"github.com/thrasher-corp/twapper/exchanges/strategy/twap"
	"github.com/thrasher-corp/twapper/log"
	"github.com/thrasher-corp/twapper/subsystems/databaseconnection"
)

// New builds an engine from a checked config. Nothing listens until Start.
func New(cfg *config.Config) (*Engine, error) {
	if cfg == nil {
		return nil, errNilConfig
	}
	exch, name, err := NewExchange(cfg)
	if err != nil {
		return nil, err
	}
	t, err := twap.New(exch, &twap.Config{
		Exchange:           name,
		JitterBand:         cfg.TWAP.JitterBand,
		FillStepRatio:      cfg.TWAP.FillStepRatio,
		Seed:               cfg.TWAP.Seed,
		SkipZeroSizeOrders: cfg.TWAP.SkipZeroSizeOrders,
		Verbose:            cfg.TWAP.Verbose,
	})
	if err != nil {
		return nil, err
	}
	e := &Engine{
		Config:     cfg,
		Exchange:   exch,
		TWAP:       t,
		Strategies: strategy.NewManager(),
	}
	e.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     e.checkOrigin,
	}
	if cfg.Metrics.Enabled {
		if e.Metrics, err = NewMetrics(cfg.Metrics.Namespace); err != nil {
			return nil, err
		}
	}
	if cfg.Database.Enabled {
		if e.DatabaseManager, err = databaseconnection.Setup(&cfg.Database, cfg.GetDataPath("database")); err != nil {
			return nil, err
		}
	}
	return e, nil
}

// NewExchange returns the configured venue and its name
func NewExchange(cfg *config.Config) (twap.Exchange, string, error) {
	if cfg == nil {
		return nil, "", errNilConfig
	}
	ec := cfg.Exchange
	if ec.Paper {
		_, quote, err := common.SplitInstrument(cfg.TWAP.Instrument)
		if err != nil {
			return nil, "", err
		}
		exch, err := paper.New(&paper.Config{
			Balances: map[string]float64{quote: ec.PaperBook.Balance},
			Bid:      ec.PaperBook.Bid,
			Ask:      ec.PaperBook.Ask,
			Debit:    ec.PaperBook.Debit,
		})
		if err != nil {
			return nil, "", err
		}
		log.Infof(log.ExchangeSys, "Paper trading %s with %v %s", cfg.TWAP.Instrument, ec.PaperBook.Balance, quote)
		return exch, paper.Name, nil
	}

	exch, err := okx.New(&okx.Config{
		APIURL:      ec.APIURL,
		DemoTrading: ec.DemoTrading,
		Verbose:     ec.Verbose,
		Credentials: okx.Credentials{
			Key:        ec.Credentials.Key,
			Secret:     ec.Credentials.Secret,
			Passphrase: ec.Credentials.Passphrase,
		},
	}, &http.Client{Timeout: ec.HTTPTimeout}, request.NewRateLimitPerSecond(ec.RateLimit, ec.RateBurst))
	if err != nil {
		return nil, "", err
	}
	if ec.DemoTrading {
		log.Warnln(log.ExchangeSys, "OKX demo trading enabled")
	}
	log.Infof(log.ExchangeSys, "Using OKX REST API at %s", ec.APIURL)
	return exch, okx.Name, nil
}

// Start starts the database subsystem and the HTTP listener
func (e *Engine) Start() error {
	if e == nil {
		return errEngineIsNil
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.running {
		return errAlreadyRunning
	}

	e.ctx, e.cancel = context.WithCancel(context.Background())
	if e.DatabaseManager != nil {
		if err := e.DatabaseManager.Start(e.ctx, &e.ServicesWG); err != nil {
			log.Errorf(log.DatabaseMgr, "Database manager unable to start: %v", err)
		}
	}

	l, err := net.Listen("tcp", e.Config.Server.ListenAddress)
	if err != nil {
		e.cancel()
		e.stopDatabase()
		return err
	}
	e.addr = l.Addr().String()
	e.server = &http.Server{
		Handler:           e.Router(),
		ReadHeaderTimeout: wsWriteTimeout,
	}
	e.ServicesWG.Add(1)
	go func() {
		defer e.ServicesWG.Done()
		if err := e.server.Serve(l); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Errorf(log.RESTSys, "HTTP server stopped: %v", err)
		}
	}()
	e.running = true
	log.Infof(log.RESTSys, "TWAP server listening on http://%s:%s, websocket path /ws-twap",
		common.ExtractHost(e.addr), common.ExtractPort(e.addr))
	return nil
}

// Addr returns the bound listen address of a running engine
func (e *Engine) Addr() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.addr
}

// Stop cancels running executions, drains sessions and stops every service
func (e *Engine) Stop() error {
	if e == nil {
		return errEngineIsNil
	}
	e.mu.Lock()
	if !e.running {
		e.mu.Unlock()
		return errNotRunning
	}
	e.running = false
	e.cancel()
	server := e.server
	e.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	err := server.Shutdown(ctx)
	e.sessions.Wait()
	e.stopDatabase()
	e.ServicesWG.Wait()
	log.Infoln(log.Global, "TWAP server stopped")
	return err
}

func (e *Engine) stopDatabase() {
	if e.DatabaseManager == nil || !e.DatabaseManager.IsRunning() {
		return
	}
	if err := e.DatabaseManager.Stop(); err != nil {
		log.Errorf(log.DatabaseMgr, "Database manager unable to stop: %v", err)
	}
}

// baseContext returns the context executions run under. Executions started
// by a router that was never started are bound to the background context.
func (e *Engine) baseContext() context.Context {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.ctx == nil {
		return context.Background()
	}
	return e.ctx
}

func (e *Engine) defaultRequest() twap.Request {
	return twap.Request{
		Instrument: e.Config.TWAP.Instrument,
		Percent:    e.Config.TWAP.Percent,
		Slices:     e.Config.TWAP.Slices,
		Interval:   e.Config.TWAP.Interval,
	}
}

// checkOrigin allows every origin unless the server config lists some
func (e *Engine) checkOrigin(r *http.Request) bool {
	allowed := e.Config.Server.AllowedOrigins
	if len(allowed) == 0 {
		return true
	}
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, a := range allowed {
		if a == "*" || strings.EqualFold(a, origin) {
			return true
		}
	}
	log.Warnf(log.WebsocketMgr, "Rejected websocket origin %q", origin)
	return false
}
