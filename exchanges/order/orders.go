package order

import (
	"strings"
	"time"
)

// Validate checks the supplied data and returns whether or not it's valid.
// A zero amount is allowed through so the venue can decide on it.
func (s *Submit) Validate() error {
	if s == nil {
		return ErrSubmissionIsNil
	}
	if s.Exchange == "" {
		return ErrExchangeNameUnset
	}
	if s.Instrument == "" {
		return ErrInstrumentIsEmpty
	}
	if s.Side != Buy && s.Side != Sell {
		return ErrSideIsInvalid
	}
	if s.Type != Market && s.Type != Limit {
		return ErrTypeIsInvalid
	}
	if s.Amount < 0 {
		return ErrAmountIsInvalid
	}
	if s.Type == Limit && s.Price <= 0 {
		return ErrPriceMustBeSetIfLimitOrder
	}
	return nil
}

// DeriveSubmitResponse will construct a SubmitResponse from the submission
// and the exchange assigned order ID
func (s *Submit) DeriveSubmitResponse(orderID string) (*SubmitResponse, error) {
	if s == nil {
		return nil, ErrSubmissionIsNil
	}
	if orderID == "" {
		return nil, ErrOrderIDNotSet
	}
	return &SubmitResponse{
		Exchange:      s.Exchange,
		Instrument:    s.Instrument,
		Side:          s.Side,
		Type:          s.Type,
		Price:         s.Price,
		Amount:        s.Amount,
		ClientOrderID: s.ClientOrderID,
		OrderID:       orderID,
		Status:        New,
		Date:          time.Now(),
	}, nil
}

// String implements the stringer interface
func (t Type) String() string {
	return string(t)
}

// Lower returns the type lower case string
func (t Type) Lower() string {
	return strings.ToLower(string(t))
}

// String implements the stringer interface
func (s Side) String() string {
	return string(s)
}

// Lower returns the side lower case string
func (s Side) Lower() string {
	return strings.ToLower(string(s))
}
