package request

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httputil"

	"github.com/thrasher-corp/twapper/log"
	"golang.org/x/time/rate"
)

var (
	errRequestSystemIsNil     = errors.New("request system is nil")
	errRequestFunctionIsNil   = errors.New("request function is nil")
	errServiceNameUnset       = errors.New("service name unset")
	errRequestItemNil         = errors.New("request item is nil")
	errInvalidPath            = errors.New("invalid path")
	errHeaderResponseMapIsNil = errors.New("header response map is nil")
	errHTTPClientIsNil        = errors.New("http client is nil")

	// ErrUnsuccessfulStatus is returned for non 2xx HTTP responses
	ErrUnsuccessfulStatus = errors.New("unsuccessful HTTP status code")
)

// WithLimiter sets the rate limiter applied before every request
func WithLimiter(l *rate.Limiter) RequesterOption {
	return func(r *Requester) { r.limiter = l }
}

// WithUserAgent overrides the default user agent
func WithUserAgent(ua string) RequesterOption {
	return func(r *Requester) { r.UserAgent = ua }
}

// WithVerboseLogging logs every request and response at debug level
func WithVerboseLogging(v bool) RequesterOption {
	return func(r *Requester) { r.verbose = v }
}

// New returns a new Requester
func New(name string, httpRequester *http.Client, opts ...RequesterOption) (*Requester, error) {
	if name == "" {
		return nil, errServiceNameUnset
	}
	if httpRequester == nil {
		return nil, errHTTPClientIsNil
	}
	r := &Requester{
		HTTPClient: httpRequester,
		Name:       name,
		UserAgent:  DefaultUserAgent,
	}
	for _, o := range opts {
		o(r)
	}
	return r, nil
}

// SendPayload handles sending HTTP/HTTPS requests. Requests are attempted
// once and never retried.
func (r *Requester) SendPayload(ctx context.Context, newRequest Generate) error {
	if r == nil {
		return errRequestSystemIsNil
	}
	if newRequest == nil {
		return errRequestFunctionIsNil
	}

	if err := r.InitiateRateLimit(ctx); err != nil {
		return err
	}

	p, err := newRequest()
	if err != nil {
		return err
	}

	req, err := p.validateRequest(ctx, r)
	if err != nil {
		return err
	}

	verbose := IsVerbose(ctx, p.Verbose || r.verbose)
	if verbose {
		if id := ExecutionID(ctx); id != "" {
			log.Debugf(log.RequestSys, "%s request for execution %s", r.Name, id)
		}
		log.Debugf(log.RequestSys, "%s request path: %s", r.Name, p.Path)
		log.Debugf(log.RequestSys, "%s request type: %s", r.Name, p.Method)
	}

	resp, err := r.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	contents, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	if p.HeaderResponse != nil {
		for k, v := range resp.Header {
			(*p.HeaderResponse)[k] = v
		}
	}

	if p.HTTPDebugging {
		dump, err := httputil.DumpResponse(resp, false)
		if err != nil {
			log.Errorf(log.RequestSys, "DumpResponse invalid response: %v:", err)
		}
		log.Debugf(log.RequestSys, "DumpResponse Headers (%v):\n%s", p.Path, dump)
		log.Debugf(log.RequestSys, "DumpResponse Body (%v):\n %s", p.Path, string(contents))
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode > http.StatusAccepted {
		return fmt.Errorf("%s %w: %d raw response: %s",
			r.Name,
			ErrUnsuccessfulStatus,
			resp.StatusCode,
			string(contents))
	}

	if verbose {
		log.Debugf(log.RequestSys, "%s HTTP status: %s, raw response: %s", r.Name, resp.Status, string(contents))
	}

	if p.Result != nil {
		return json.Unmarshal(contents, p.Result)
	}
	return nil
}

// validateRequest validates the requester item fields
func (i *Item) validateRequest(ctx context.Context, r *Requester) (*http.Request, error) {
	if i == nil {
		return nil, errRequestItemNil
	}
	if i.Path == "" {
		return nil, errInvalidPath
	}
	if i.HeaderResponse != nil && *i.HeaderResponse == nil {
		return nil, errHeaderResponseMapIsNil
	}

	req, err := http.NewRequestWithContext(ctx, i.Method, i.Path, i.Body)
	if err != nil {
		return nil, err
	}

	if i.HTTPDebugging {
		dump, _ := httputil.DumpRequestOut(req, true)
		log.Debugf(log.RequestSys, "DumpRequest:\n%s", dump)
	}

	for k, v := range i.Headers {
		req.Header.Add(k, v)
	}

	if r.UserAgent != "" && req.Header.Get(userAgent) == "" {
		req.Header.Add(userAgent, r.UserAgent)
	}
	return req, nil
}
