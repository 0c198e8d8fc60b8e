package request

import "context"

type contextKey int

const (
	verboseKey contextKey = iota
	delayNotAllowedKey
	executionIDKey
)

// WithVerbose marks every request sent with ctx as verbose, whatever the
// requester setting
func WithVerbose(ctx context.Context) context.Context {
	return context.WithValue(ctx, verboseKey, true)
}

// IsVerbose reports whether a request is verbose, either through the
// requester setting or through ctx
func IsVerbose(ctx context.Context, verbose bool) bool {
	if !verbose {
		verbose, _ = ctx.Value(verboseKey).(bool)
	}
	return verbose
}

// WithDelayNotAllowed makes the rate limiter fail instead of wait
func WithDelayNotAllowed(ctx context.Context) context.Context {
	return context.WithValue(ctx, delayNotAllowedKey, struct{}{})
}

func hasDelayNotAllowed(ctx context.Context) bool {
	_, ok := ctx.Value(delayNotAllowedKey).(struct{})
	return ok
}

// WithExecutionID tags requests with the TWAP execution that issued them so
// request logs can be correlated with its events
func WithExecutionID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, executionIDKey, id)
}

// ExecutionID returns the execution tag carried by ctx, if any
func ExecutionID(ctx context.Context) string {
	id, _ := ctx.Value(executionIDKey).(string)
	return id
}
