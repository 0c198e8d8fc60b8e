package types

import (
	"fmt"
	"strconv"
	"time"
)

// Time represents a time.Time object that can be unmarshalled from a unix
// timestamp in seconds or milliseconds, quoted or bare.
type Time time.Time

// UnmarshalJSON deserializes json, and timestamp information.
func (t *Time) UnmarshalJSON(data []byte) error {
	s := string(data)
	switch s {
	case "null", "0", `""`, `"0"`:
		*t = Time(time.Time{})
		return nil
	}
	if s[0] == '"' {
		s = s[1 : len(s)-1]
	}
	standard, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return fmt.Errorf("cannot unmarshal %s into Time: %w", string(data), err)
	}
	switch len(s) {
	case 10:
		*t = Time(time.Unix(standard, 0))
	case 13:
		*t = Time(time.UnixMilli(standard))
	default:
		return fmt.Errorf("cannot unmarshal %s into Time", string(data))
	}
	return nil
}

// Time represents a time instance.
func (t Time) Time() time.Time { return time.Time(t) }

// String returns a string representation of the time.
func (t Time) String() string {
	return t.Time().String()
}

// MarshalJSON serializes the time to json.
func (t Time) MarshalJSON() ([]byte, error) {
	return t.Time().MarshalJSON()
}
