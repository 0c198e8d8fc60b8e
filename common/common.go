package common

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Vars for common.go operations
var (
	// ErrNilPointer defines an error for a nil pointer
	ErrNilPointer = errors.New("nil pointer")
	// ErrNoResponse defines an error for an empty response from a remote
	ErrNoResponse = errors.New("no response")
	// ErrInvalidInstrument defines an error for an instrument without a
	// BASE-QUOTE delimiter
	ErrInvalidInstrument = errors.New("invalid instrument")
)

const instrumentDelimiter = "-"

// EncodeURLValues concatenates url values onto a url string and returns a
// string
func EncodeURLValues(urlPath string, values url.Values) string {
	u := urlPath
	if len(values) > 0 {
		u += "?" + values.Encode()
	}
	return u
}

// ExtractHost returns the hostname out of a string
func ExtractHost(address string) string {
	host, _, _ := strings.Cut(address, ":")
	if host == "" {
		return "localhost"
	}
	return host
}

// ExtractPort returns the port name out of a string, empty when none is set
func ExtractPort(address string) string {
	_, port, _ := strings.Cut(address, ":")
	return port
}

// SplitInstrument splits an instrument such as BTC-USDT into base and quote.
// The quote is the text after the last delimiter.
func SplitInstrument(instrument string) (base, quote string, err error) {
	idx := strings.LastIndex(instrument, instrumentDelimiter)
	if idx <= 0 || idx == len(instrument)-1 {
		return "", "", fmt.Errorf("%w: %q", ErrInvalidInstrument, instrument)
	}
	return instrument[:idx], instrument[idx+1:], nil
}
