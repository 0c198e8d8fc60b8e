package twap

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/gofrs/uuid"
	"github.com/shopspring/decimal"
	"github.com/thrasher-corp/twapper/exchanges/order"
	"github.com/thrasher-corp/twapper/exchanges/request"
	"github.com/thrasher-corp/twapper/exchanges/strategy/common"
	"github.com/thrasher-corp/twapper/log"
)

// Engine runs TWAP buy executions against an exchange
type Engine struct {
	exchange  Exchange
	config    Config
	newSource func() RandomSource
}

// Option configures an Engine
type Option func(*Engine)

// WithRandomSource overrides the per execution slippage source
func WithRandomSource(fn func() RandomSource) Option {
	return func(e *Engine) {
		if fn != nil {
			e.newSource = fn
		}
	}
}

// New returns a TWAP engine bound to an exchange
func New(exch Exchange, c *Config, opts ...Option) (*Engine, error) {
	if exch == nil {
		return nil, errExchangeIsNil
	}
	if err := c.Check(); err != nil {
		return nil, err
	}
	e := &Engine{exchange: exch, config: *c}
	seed := c.Seed
	e.newSource = func() RandomSource {
		if seed != 0 {
			return rand.New(rand.NewSource(seed)) //nolint:gosec // simulated slippage
		}
		return rand.New(rand.NewSource(time.Now().UnixNano())) //nolint:gosec // simulated slippage
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// SliceNotional is the quote amount allocated to slice i of n. The remaining
// target is recomputed from the live balance and spread over the slices
// left, including this one.
func SliceNotional(balance, percent float64, slices, slice int64) float64 {
	remaining := slices - slice + 1
	if remaining < 1 {
		return 0
	}
	return balance * percent / 100 / float64(remaining)
}

// ReferencePrice returns the mid of the best bid and ask
func ReferencePrice(bid, ask float64) float64 {
	return (bid + ask) / 2
}

func round(v float64, places int32) float64 {
	return decimal.NewFromFloat(v).Round(places).InexactFloat64()
}

// execution is the per request run state shared by the slice loop
type execution struct {
	engine    *Engine
	request   Request
	reporter  *common.Reporter
	ch        common.Channel
	simulator Simulator
	state     State
}

// Execute runs req to completion, cancellation or failure and returns the
// terminal event. Every event goes to ch in order and ch is closed before
// Execute returns.
func (e *Engine) Execute(ctx context.Context, req Request, ch common.Channel, observers ...common.Observer) common.Event {
	if e == nil {
		return failedEvent(errEngineIsNil)
	}
	if ch == nil {
		return failedEvent(errChannelIsNil)
	}
	id, err := uuid.NewV4()
	if err != nil {
		closeChannel(ch, "")
		return failedEvent(err)
	}
	reporter, err := common.NewReporter(id.String(), ch, observers...)
	if err != nil {
		closeChannel(ch, id.String())
		return failedEvent(err)
	}
	ctx = request.WithExecutionID(ctx, id.String())
	if e.config.Verbose {
		ctx = request.WithVerbose(ctx)
	}
	x := &execution{
		engine:   e,
		request:  req,
		reporter: reporter,
		ch:       ch,
		simulator: Simulator{
			Jitter:    e.config.JitterBand,
			StepRatio: e.config.FillStepRatio,
			Source:    e.newSource(),
		},
		state: State{token: NewCancelToken()},
	}
	return x.run(ctx)
}

func (x *execution) run(ctx context.Context) common.Event {
	defer closeChannel(x.ch, x.reporter.ID())

	if err := x.request.Check(); err != nil {
		return x.fail(ctx, err)
	}

	err := x.reporter.Send(ctx, common.Event{
		Status:     common.StatusStart,
		Instrument: x.request.Instrument,
		Percent:    x.request.Percent,
		Slices:     x.request.Slices,
		Message: fmt.Sprintf("TWAP started for %s: %v%% of balance in %d slices every %s",
			x.request.Instrument, x.request.Percent, x.request.Slices, x.request.Interval),
	})
	if err != nil {
		return x.abort(ctx, err)
	}
	log.Infof(log.TWAP, "ID: [%s] started %s %v%% over %d slices every %s",
		x.reporter.ID(), x.request.Instrument, x.request.Percent, x.request.Slices, x.request.Interval)

	l := &listener{ch: x.ch, reporter: x.reporter, token: x.state.token}
	var listening common.Requirement
	if err = listening.Run(ctx, func(lctx context.Context) { l.run(lctx, ctx) }); err != nil {
		return x.fail(ctx, err)
	}
	stopListener := func() {
		if err := listening.Stop(); err != nil {
			log.Warnf(log.TWAP, "ID: [%s] stopping listener: %v", x.reporter.ID(), err)
		}
	}

	if err = x.slices(ctx); err != nil {
		if errors.Is(err, common.ErrTerminalEventSent) {
			stopListener()
			return x.terminal(err)
		}
		if errors.Is(err, common.ErrTransportFailed) {
			stopListener()
			return x.reporter.Abandon(err)
		}
		terminal := x.fail(ctx, err)
		stopListener()
		return terminal
	}

	if x.state.token.IsCancelled() {
		stopListener()
		return x.terminal(nil)
	}

	terminal, won, err := x.reporter.Terminate(ctx, common.Event{
		Status:  common.StatusCompleted,
		Message: common.CompletedMessage,
	}, nil)
	stopListener()
	if err != nil {
		log.Warnf(log.TWAP, "ID: [%s] completed event not delivered: %v", x.reporter.ID(), err)
	}
	if won {
		log.Infof(log.TWAP, "ID: [%s] completed %d slices", x.reporter.ID(), x.request.Slices)
	}
	return terminal
}

// slices runs the slice loop. A nil error with the token set means the
// observer cancelled.
func (x *execution) slices(ctx context.Context) error {
	for i := int64(1); i <= x.request.Slices; i++ {
		if x.state.token.IsCancelled() {
			return nil
		}
		x.state.Slice = i
		x.state.Filled = 0

		sc, err := x.prepare(ctx, i)
		if err != nil {
			return err
		}
		if err = x.place(ctx, sc); err != nil {
			return err
		}

		var orderID string
		if sc.Acknowledgement != nil {
			orderID = sc.Acknowledgement.OrderID
		}
		err = x.reporter.Send(ctx, common.Event{
			Status:      common.StatusSliceInfo,
			Slice:       i,
			TotalSlices: x.request.Slices,
			Size:        sc.OrderSize,
			Price:       sc.OrderPrice,
			OrderID:     orderID,
		})
		if err != nil {
			return err
		}

		if sc.Skipped {
			log.Infof(log.TWAP, "ID: [%s] slice %d/%d skipped, zero size", x.reporter.ID(), i, x.request.Slices)
		} else {
			log.Infof(log.TWAP, "ID: [%s] slice %d/%d placed %v @ %v order %s",
				x.reporter.ID(), i, x.request.Slices, sc.OrderSize, sc.OrderPrice, orderID)
		}

		if err = x.fill(ctx, sc); err != nil {
			return err
		}
	}
	return nil
}

// prepare samples balance and book for slice i
func (x *execution) prepare(ctx context.Context, i int64) (*SliceContext, error) {
	quote, err := x.request.QuoteCurrency()
	if err != nil {
		return nil, err
	}
	balance, err := x.engine.exchange.GetBalance(ctx, quote)
	if err != nil {
		return nil, fmt.Errorf("slice %d balance: %w", i, err)
	}
	bid, ask, err := x.engine.exchange.GetBestPrices(ctx, x.request.Instrument)
	if err != nil {
		return nil, fmt.Errorf("slice %d best prices: %w", i, err)
	}
	ref := ReferencePrice(bid, ask)
	if ref <= 0 {
		return nil, fmt.Errorf("slice %d: %w, bid %v ask %v", i, errInvalidReferencePrice, bid, ask)
	}
	sc := &SliceContext{
		Slice:          i,
		Balance:        balance,
		Notional:       SliceNotional(balance, x.request.Percent, x.request.Slices, i),
		ReferencePrice: ref,
	}
	sc.TargetSize = sc.Notional / ref
	sc.OrderPrice = round(ref, pricePrecision)
	sc.OrderSize = round(sc.TargetSize, sizePrecision)
	if x.engine.config.Verbose {
		log.Debugf(log.TWAP, "ID: [%s] slice %d balance %v notional %v bid %v ask %v size %v",
			x.reporter.ID(), i, balance, sc.Notional, bid, ask, sc.TargetSize)
	}
	return sc, nil
}

// place submits the slice limit order. There are no retries.
func (x *execution) place(ctx context.Context, sc *SliceContext) error {
	if sc.OrderSize <= 0 && x.engine.config.SkipZeroSizeOrders {
		sc.Skipped = true
		return nil
	}
	ack, err := x.engine.exchange.PlaceLimitOrder(ctx, &order.Submit{
		Exchange:   x.engine.config.Exchange,
		Instrument: x.request.Instrument,
		Side:       order.Buy,
		Type:       order.Limit,
		Price:      sc.OrderPrice,
		Amount:     sc.OrderSize,
	})
	if err != nil {
		return fmt.Errorf("slice %d place order: %w", sc.Slice, err)
	}
	sc.Acknowledgement = ack
	return nil
}

// fill emits the simulated partial fills of a slice, waiting a quarter of
// the interval after each one
func (x *execution) fill(ctx context.Context, sc *SliceContext) error {
	if sc.Skipped {
		return nil
	}
	wait := x.request.Interval / fillWaitParts
	for _, f := range x.simulator.Fills(sc.OrderSize, sc.OrderPrice) {
		if x.state.token.IsCancelled() {
			return nil
		}
		err := x.reporter.Send(ctx, common.Event{
			Status:          common.StatusPartialFill,
			Slice:           sc.Slice,
			TotalSlices:     x.request.Slices,
			Price:           sc.OrderPrice,
			FilledSize:      f.FilledSize,
			ExecutedPrice:   f.ExecutedPrice,
			SlippagePercent: f.SlippagePercent,
		})
		if err != nil {
			return err
		}
		x.state.Filled = f.FilledSize
		if x.engine.config.Verbose {
			log.Debugf(log.TWAP, "ID: [%s] slice %d filled %v/%v @ %v slippage %v%%",
				x.reporter.ID(), sc.Slice, f.FilledSize, sc.OrderSize, f.ExecutedPrice, f.SlippagePercent)
		}
		if err = x.wait(ctx, wait); err != nil {
			return err
		}
	}
	return nil
}

// wait sleeps for d unless the execution is cancelled or ctx is done
func (x *execution) wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-x.state.token.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// fail emits the error terminal event for a non transport failure
func (x *execution) fail(ctx context.Context, cause error) common.Event {
	log.Errorf(log.TWAP, "ID: [%s] %v", x.reporter.ID(), cause)
	terminal, _, err := x.reporter.Terminate(ctx, common.Event{
		Status:  common.StatusError,
		Message: cause.Error(),
	}, nil)
	if err != nil {
		log.Warnf(log.TWAP, "ID: [%s] error event not delivered: %v", x.reporter.ID(), err)
	}
	return terminal
}

// abort handles a send failure before the listener is running
func (x *execution) abort(ctx context.Context, err error) common.Event {
	if errors.Is(err, common.ErrTransportFailed) {
		return x.reporter.Abandon(err)
	}
	return x.fail(ctx, err)
}

// terminal returns the already accepted terminal event
func (x *execution) terminal(cause error) common.Event {
	if e, ok := x.reporter.Terminal(); ok {
		return e
	}
	if cause == nil {
		cause = errors.New("execution stopped without a terminal event")
	}
	return x.reporter.Abandon(cause)
}

func failedEvent(err error) common.Event {
	log.Errorln(log.TWAP, err)
	return common.Event{Status: common.StatusError, Message: err.Error(), Time: time.Now()}
}

func closeChannel(ch common.Channel, id string) {
	if err := ch.Close(); err != nil {
		log.Warnf(log.TWAP, "ID: [%s] closing channel: %v", id, err)
	}
}
