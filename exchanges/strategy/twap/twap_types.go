package twap

import (
	"context"
	"errors"
	"time"

	"github.com/thrasher-corp/twapper/exchanges/order"
)

const (
	// DefaultJitterBand is the symmetric slippage band of ±0.1%
	DefaultJitterBand = 0.001
	// DefaultFillStepRatio splits a slice into quarter fills
	DefaultFillStepRatio = 0.25

	pricePrecision = 2
	sizePrecision  = 6
	fillWaitParts  = 4
)

var (
	errEngineIsNil           = errors.New("twap engine is nil")
	errExchangeIsNil         = errors.New("exchange is nil")
	errChannelIsNil          = errors.New("channel is nil")
	errConfigurationIsNil    = errors.New("twap configuration is nil")
	errInstrumentIsEmpty     = errors.New("instrument is empty")
	errInvalidPercent        = errors.New("percent must be within (0, 100]")
	errInvalidSliceCount     = errors.New("slice count must be at least 1")
	errInvalidInterval       = errors.New("interval must be greater than zero")
	errInvalidJitterBand     = errors.New("jitter band must be within [0, 1)")
	errInvalidFillStepRatio  = errors.New("fill step ratio must be within (0, 1]")
	errInvalidReferencePrice = errors.New("reference price must be greater than zero")
	errExchangeNameUnset     = errors.New("exchange name unset")
)

// MarketData supplies balances and top of book
type MarketData interface {
	GetBalance(ctx context.Context, currency string) (float64, error)
	GetBestPrices(ctx context.Context, instrument string) (bid, ask float64, err error)
}

// OrderPlacer accepts limit orders
type OrderPlacer interface {
	PlaceLimitOrder(ctx context.Context, s *order.Submit) (*order.SubmitResponse, error)
}

// Exchange is everything the engine needs from a venue
type Exchange interface {
	MarketData
	OrderPlacer
}

// RandomSource yields uniform values in [0, 1)
type RandomSource interface {
	Float64() float64
}

// Request is a validated TWAP buy request. It is not modified once an
// execution starts.
type Request struct {
	Instrument string
	Percent    float64
	Slices     int64
	Interval   time.Duration
}

// Config holds engine options
type Config struct {
	// Exchange is the venue name stamped on order submissions
	Exchange string
	// JitterBand is the half width of the simulated slippage band
	JitterBand float64
	// FillStepRatio is the share of the slice filled per simulated step
	FillStepRatio float64
	// Seed makes simulated slippage reproducible; zero seeds from the clock
	Seed int64
	// SkipZeroSizeOrders turns zero sized slices into no-ops instead of
	// submitting them
	SkipZeroSizeOrders bool
	Verbose            bool
}

// State is the mutable progress of one execution
type State struct {
	Slice  int64
	Filled float64
	token  *CancelToken
}

// SliceContext is built fresh for every slice
type SliceContext struct {
	Slice          int64
	Balance        float64
	Notional       float64
	ReferencePrice float64
	TargetSize     float64
	OrderPrice     float64
	OrderSize      float64
	Skipped        bool

	Acknowledgement *order.SubmitResponse
}

// Fill is one simulated partial fill step
type Fill struct {
	FilledSize      float64
	Delta           float64
	ExecutedPrice   float64
	SlippagePercent float64
}
