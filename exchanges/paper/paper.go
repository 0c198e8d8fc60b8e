// Package paper provides an in-memory venue with a fixed book and balance
// sheet for simulated trading and tests.
package paper

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/thrasher-corp/twapper/common"
	"github.com/thrasher-corp/twapper/exchanges/order"
	"github.com/thrasher-corp/twapper/log"
)

// Name is the exchange name used in order submissions
const Name = "paper"

var (
	errInvalidBook        = errors.New("bid must be positive and not above ask")
	errInsufficientFunds  = errors.New("insufficient funds")
	errCurrencyIsEmpty    = errors.New("currency is empty")
	errInstrumentNotFound = errors.New("instrument has no book")
)

// Config seeds an Exchange
type Config struct {
	Balances map[string]float64
	Bid, Ask float64
	// Debit deducts price*amount from the quote balance on every order
	Debit bool
}

// Exchange is a concurrency safe in-memory venue. A single book is quoted
// for every instrument unless SetBook overrides one.
type Exchange struct {
	mu       sync.Mutex
	balances map[string]float64
	bid, ask float64
	books    map[string][2]float64
	debit    bool
	orders   []order.SubmitResponse
	nextID   int64
}

// New returns an Exchange from config
func New(cfg *Config) (*Exchange, error) {
	if cfg == nil {
		return nil, fmt.Errorf("%w: paper config", common.ErrNilPointer)
	}
	if cfg.Bid <= 0 || cfg.Ask < cfg.Bid {
		return nil, fmt.Errorf("%w: bid %v ask %v", errInvalidBook, cfg.Bid, cfg.Ask)
	}
	e := &Exchange{
		balances: make(map[string]float64, len(cfg.Balances)),
		bid:      cfg.Bid,
		ask:      cfg.Ask,
		books:    make(map[string][2]float64),
		debit:    cfg.Debit,
	}
	for k, v := range cfg.Balances {
		e.balances[strings.ToUpper(k)] = v
	}
	return e, nil
}

// SetBalance overrides the balance of a currency
func (e *Exchange) SetBalance(currency string, amount float64) {
	e.mu.Lock()
	e.balances[strings.ToUpper(currency)] = amount
	e.mu.Unlock()
}

// SetBook overrides the quoted book of a single instrument
func (e *Exchange) SetBook(instrument string, bid, ask float64) error {
	if bid <= 0 || ask < bid {
		return fmt.Errorf("%w: bid %v ask %v", errInvalidBook, bid, ask)
	}
	e.mu.Lock()
	e.books[instrument] = [2]float64{bid, ask}
	e.mu.Unlock()
	return nil
}

// GetBalance returns the balance of a currency, zero when unknown
func (e *Exchange) GetBalance(_ context.Context, currency string) (float64, error) {
	if currency == "" {
		return 0, errCurrencyIsEmpty
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.balances[strings.ToUpper(currency)], nil
}

// GetBestPrices returns the quoted book for an instrument
func (e *Exchange) GetBestPrices(_ context.Context, instrument string) (bid, ask float64, err error) {
	if instrument == "" {
		return 0, 0, errInstrumentNotFound
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if b, ok := e.books[instrument]; ok {
		return b[0], b[1], nil
	}
	return e.bid, e.ask, nil
}

// PlaceLimitOrder records the order and acknowledges it immediately
func (e *Exchange) PlaceLimitOrder(_ context.Context, s *order.Submit) (*order.SubmitResponse, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	if s.Type != order.Limit {
		return nil, fmt.Errorf("%w %s", order.ErrTypeIsInvalid, s.Type)
	}
	_, quote, err := common.SplitInstrument(s.Instrument)
	if err != nil {
		return nil, err
	}
	quote = strings.ToUpper(quote)

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.debit && s.Side == order.Buy {
		cost := s.Price * s.Amount
		if cost > e.balances[quote] {
			return nil, fmt.Errorf("%w: %s cost %v balance %v", errInsufficientFunds, quote, cost, e.balances[quote])
		}
		e.balances[quote] -= cost
	}
	e.nextID++
	resp, err := s.DeriveSubmitResponse(strconv.FormatInt(e.nextID, 10))
	if err != nil {
		return nil, err
	}
	e.orders = append(e.orders, *resp)
	log.Debugf(log.ExchangeSys, "%s order %s %s %s %v @ %v", Name, resp.OrderID, s.Side, s.Instrument, s.Amount, s.Price)
	return resp, nil
}

// Orders returns a copy of every acknowledged order
func (e *Exchange) Orders() []order.SubmitResponse {
	e.mu.Lock()
	defer e.mu.Unlock()
	resp := make([]order.SubmitResponse, len(e.orders))
	copy(resp, e.orders)
	return resp
}
