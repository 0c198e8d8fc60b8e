package request

import (
	"io"
	"net/http"

	"golang.org/x/time/rate"
)

const (
	userAgent = "User-Agent"

	// DefaultUserAgent is sent when the requester has no override
	DefaultUserAgent = "twapper"
)

// Requester struct for the request client
type Requester struct {
	HTTPClient *http.Client
	Name       string
	UserAgent  string
	limiter    *rate.Limiter
	verbose    bool
}

// RequesterOption is a function option that can be applied to configure a
// Requester when creating it.
type RequesterOption func(*Requester)

// Item is a temp item for requests
type Item struct {
	Method         string
	Path           string
	Headers        map[string]string
	Body           io.Reader
	Result         interface{}
	Verbose        bool
	HTTPDebugging  bool
	HeaderResponse *http.Header
}

// Generate defines a closure for functionality outside the requester to
// generate a new *http.Request on every attempt.
type Generate func() (*Item, error)
