package okx

import (
	"errors"

	"github.com/thrasher-corp/twapper/types"
)

// Trade modes
const (
	TradeModeCash     = "cash"
	TradeModeCross    = "cross"
	TradeModeIsolated = "isolated"
)

var (
	errMissingInstrumentID   = errors.New("missing instrument id")
	errInvalidTradeModeValue = errors.New("invalid trade mode value")
	errMissingCredentials    = errors.New("missing api credentials")
	errInvalidResponseParam  = errors.New("invalid response parameter, pointer expected")
	errNoOrderbookData       = errors.New("no orderbook data")
	errCurrencyIsEmpty       = errors.New("currency is empty")

	// ErrAPIResponse is returned when the response envelope carries a non-zero code
	ErrAPIResponse = errors.New("okx api error")
	// ErrOrderRejected is returned when a placed order carries a non-zero sCode
	ErrOrderRejected = errors.New("okx order rejected")
)

// Credentials holds the API key set used to sign private requests
type Credentials struct {
	Key        string
	Secret     string
	Passphrase string
}

// Config holds client settings
type Config struct {
	APIURL        string
	DemoTrading   bool
	Verbose       bool
	HTTPDebugging bool
	Credentials   Credentials
}

// OrderBookResponse holds the order asks and bids at a specific timestamp
type OrderBookResponse struct {
	Asks                [][4]types.Number `json:"asks"`
	Bids                [][4]types.Number `json:"bids"`
	GenerationTimeStamp types.Time        `json:"ts"`
}

// Account holds currency account balance and related information
type Account struct {
	TotalEquity types.Number    `json:"totalEq"`
	Details     []AccountDetail `json:"details"`
	UpdateTime  types.Time      `json:"uTime"`
}

// AccountDetail account detail information.
type AccountDetail struct {
	AvailableBalance types.Number `json:"availBal"`
	CashBalance      types.Number `json:"cashBal"`
	Currency         string       `json:"ccy"`
	FrozenBalance    types.Number `json:"frozenBal"`
	UpdateTime       types.Time   `json:"uTime"`
}

// PlaceOrderRequestParam requesting parameter for placing an order.
type PlaceOrderRequestParam struct {
	InstrumentID  string `json:"instId"`
	TradeMode     string `json:"tdMode"`
	ClientOrderID string `json:"clOrdId,omitempty"`
	Side          string `json:"side"`
	OrderType     string `json:"ordType"`
	Amount        string `json:"sz"`
	Price         string `json:"px,omitempty"`
}

// OrderData response message for place order requests.
type OrderData struct {
	OrderID       string `json:"ordId,omitempty"`
	ClientOrderID string `json:"clOrdId,omitempty"`
	Tag           string `json:"tag,omitempty"`
	SCode         string `json:"sCode,omitempty"`
	SMessage      string `json:"sMsg,omitempty"`
}
