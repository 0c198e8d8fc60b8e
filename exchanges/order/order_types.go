package order

import (
	"errors"
	"time"
)

// Error vars related to orders
var (
	ErrSubmissionIsNil            = errors.New("order submission is nil")
	ErrInstrumentIsEmpty          = errors.New("order instrument is empty")
	ErrSideIsInvalid              = errors.New("order side is invalid")
	ErrTypeIsInvalid              = errors.New("order type is invalid")
	ErrAmountIsInvalid            = errors.New("order amount is invalid")
	ErrPriceMustBeSetIfLimitOrder = errors.New("order price must be set if limit order type is desired")
	ErrOrderIDNotSet              = errors.New("order id not set")
	ErrExchangeNameUnset          = errors.New("exchange name unset")
)

// Side enforces a standard for order sides across the code base
type Side string

// Order side types
const (
	Buy  Side = "BUY"
	Sell Side = "SELL"
)

// Type enforces a standard for order types across the code base
type Type string

// Defined package order types
const (
	Limit  Type = "LIMIT"
	Market Type = "MARKET"
)

// Status defines order status types
type Status string

// All order status types
const (
	New      Status = "NEW"
	Rejected Status = "REJECTED"
)

// Submit contains all properties of an order that may be required
// for an order to be created on an exchange
type Submit struct {
	Exchange      string
	Instrument    string
	Side          Side
	Type          Type
	Price         float64
	Amount        float64
	ClientOrderID string
}

// SubmitResponse is what is returned after submitting an order to an
// exchange
type SubmitResponse struct {
	Exchange      string
	Instrument    string
	Side          Side
	Type          Type
	Price         float64
	Amount        float64
	ClientOrderID string
	OrderID       string
	Status        Status
	Date          time.Time
}
