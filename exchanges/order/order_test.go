package order

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate(t *testing.T) {
	t.Parallel()
	var nilSubmit *Submit
	assert.ErrorIs(t, nilSubmit.Validate(), ErrSubmissionIsNil)

	for _, tc := range []struct {
		name   string
		submit Submit
		err    error
	}{
		{"no exchange", Submit{}, ErrExchangeNameUnset},
		{"no instrument", Submit{Exchange: "okx"}, ErrInstrumentIsEmpty},
		{"bad side", Submit{Exchange: "okx", Instrument: "BTC-USDT"}, ErrSideIsInvalid},
		{"bad type", Submit{Exchange: "okx", Instrument: "BTC-USDT", Side: Buy}, ErrTypeIsInvalid},
		{"negative amount", Submit{Exchange: "okx", Instrument: "BTC-USDT", Side: Buy, Type: Limit, Amount: -1, Price: 1}, ErrAmountIsInvalid},
		{"limit without price", Submit{Exchange: "okx", Instrument: "BTC-USDT", Side: Buy, Type: Limit, Amount: 1}, ErrPriceMustBeSetIfLimitOrder},
		{"zero amount", Submit{Exchange: "okx", Instrument: "BTC-USDT", Side: Buy, Type: Limit, Price: 25000}, nil},
		{"valid", Submit{Exchange: "okx", Instrument: "BTC-USDT", Side: Buy, Type: Limit, Amount: 0.001, Price: 25000}, nil},
	} {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			assert.ErrorIs(t, tc.submit.Validate(), tc.err)
		})
	}
}

func TestDeriveSubmitResponse(t *testing.T) {
	t.Parallel()
	var nilSubmit *Submit
	_, err := nilSubmit.DeriveSubmitResponse("1")
	assert.ErrorIs(t, err, ErrSubmissionIsNil)

	s := &Submit{Exchange: "okx", Instrument: "BTC-USDT", Side: Buy, Type: Limit, Amount: 0.001, Price: 25000}
	_, err = s.DeriveSubmitResponse("")
	assert.ErrorIs(t, err, ErrOrderIDNotSet)

	resp, err := s.DeriveSubmitResponse("1337")
	require.NoError(t, err, "DeriveSubmitResponse must not error")
	assert.Equal(t, "1337", resp.OrderID)
	assert.Equal(t, New, resp.Status)
	assert.Equal(t, 0.001, resp.Amount)
	assert.False(t, resp.Date.IsZero())
}

func TestLower(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "buy", Buy.Lower())
	assert.Equal(t, "limit", Limit.Lower())
	assert.Equal(t, "SELL", Sell.String())
}
