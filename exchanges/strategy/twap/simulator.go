package twap

import "math"

// Simulator produces partial fills with randomised slippage for a slice
type Simulator struct {
	Jitter    float64
	StepRatio float64
	Source    RandomSource
}

// Fills splits targetSize into fixed steps. The cumulative size is clamped
// and the last step always lands exactly on targetSize. A non-positive
// target yields no fills.
func (s *Simulator) Fills(targetSize, price float64) []Fill {
	if targetSize <= 0 {
		return nil
	}
	ratio := s.StepRatio
	if ratio <= 0 || ratio > 1 {
		ratio = DefaultFillStepRatio
	}
	steps := int(math.Ceil(1/ratio - 1e-9))
	step := targetSize * ratio

	fills := make([]Fill, 0, steps)
	var prev float64
	for k := 1; k <= steps; k++ {
		filled := float64(k) * step
		if k == steps || filled >= targetSize {
			filled = targetSize
		}
		executed, slippage := s.execute(price)
		fills = append(fills, Fill{
			FilledSize:      filled,
			Delta:           filled - prev,
			ExecutedPrice:   executed,
			SlippagePercent: slippage,
		})
		if filled == targetSize {
			break
		}
		prev = filled
	}
	return fills
}

// execute draws a jittered price around the reference
func (s *Simulator) execute(price float64) (executed, slippagePercent float64) {
	var j float64
	if s.Jitter > 0 && s.Source != nil {
		j = (2*s.Source.Float64() - 1) * s.Jitter
	}
	executed = price * (1 + j)
	return executed, SlippagePercent(price, executed)
}

// SlippagePercent returns the deviation of executed from reference in percent
func SlippagePercent(reference, executed float64) float64 {
	if reference == 0 {
		return 0
	}
	return (executed - reference) / reference * 100
}
