package request

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/time/rate"
)

// ErrDelayNotAllowed is returned when a request would need to wait on the
// rate limiter and the context forbids it
var ErrDelayNotAllowed = errors.New("delay not allowed")

// NewRateLimit creates a new RateLimit based of time interval and how many
// actions allowed and breaks it down to an actions-per-second basis. Burst
// rate is kept as one as this is not supported for out-bound requests.
func NewRateLimit(interval time.Duration, actions int) *rate.Limiter {
	if actions <= 0 || interval <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	rps := float64(actions) / interval.Seconds()
	return rate.NewLimiter(rate.Limit(rps), 1)
}

// NewRateLimitPerSecond returns a limiter allowing rps requests per second
func NewRateLimitPerSecond(rps float64, burst int) *rate.Limiter {
	if rps <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	if burst < 1 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(rps), burst)
}

// InitiateRateLimit sleeps for designated end point rate limits
func (r *Requester) InitiateRateLimit(ctx context.Context) error {
	if r == nil {
		return errRequestSystemIsNil
	}
	if r.limiter == nil {
		return nil
	}

	if hasDelayNotAllowed(ctx) {
		res := r.limiter.Reserve()
		if d := res.Delay(); d > 0 {
			res.Cancel()
			return fmt.Errorf("%s %w: %s", r.Name, ErrDelayNotAllowed, d)
		}
		return nil
	}
	return r.limiter.Wait(ctx)
}
