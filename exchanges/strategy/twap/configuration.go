package twap

import (
	"fmt"

	"github.com/thrasher-corp/twapper/common"
)

// Check validates all request fields before an execution starts
func (r *Request) Check() error {
	if r == nil {
		return fmt.Errorf("%w: request", common.ErrNilPointer)
	}
	if r.Instrument == "" {
		return errInstrumentIsEmpty
	}
	if _, _, err := common.SplitInstrument(r.Instrument); err != nil {
		return err
	}
	if r.Percent <= 0 || r.Percent > 100 {
		return fmt.Errorf("%w: %v", errInvalidPercent, r.Percent)
	}
	if r.Slices < 1 {
		return fmt.Errorf("%w: %d", errInvalidSliceCount, r.Slices)
	}
	if r.Interval <= 0 {
		return fmt.Errorf("%w: %v", errInvalidInterval, r.Interval)
	}
	return nil
}

// QuoteCurrency returns the currency spent by the buy, e.g. USDT for BTC-USDT
func (r *Request) QuoteCurrency() (string, error) {
	_, quote, err := common.SplitInstrument(r.Instrument)
	return quote, err
}

// Check validates engine options and fills defaults
func (c *Config) Check() error {
	if c == nil {
		return errConfigurationIsNil
	}
	if c.Exchange == "" {
		return errExchangeNameUnset
	}
	if c.JitterBand < 0 || c.JitterBand >= 1 {
		return fmt.Errorf("%w: %v", errInvalidJitterBand, c.JitterBand)
	}
	if c.FillStepRatio == 0 {
		c.FillStepRatio = DefaultFillStepRatio
	}
	if c.FillStepRatio < 0 || c.FillStepRatio > 1 {
		return fmt.Errorf("%w: %v", errInvalidFillStepRatio, c.FillStepRatio)
	}
	return nil
}
