package types

import (
	"fmt"
	"strconv"
)

// Number represents a floating point number that exchanges frequently send as
// a quoted string. Empty strings decode to zero.
type Number float64

// UnmarshalJSON implements json.Unmarshaler
func (n *Number) UnmarshalJSON(data []byte) error {
	s := string(data)
	switch s {
	case "null", `""`:
		*n = 0
		return nil
	}
	if s[0] == '"' {
		s = s[1 : len(s)-1]
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("cannot unmarshal %s into Number: %w", string(data), err)
	}
	*n = Number(f)
	return nil
}

// MarshalJSON implements json.Marshaler
func (n Number) MarshalJSON() ([]byte, error) {
	return []byte(`"` + n.String() + `"`), nil
}

// Float64 returns the underlying float64
func (n Number) Float64() float64 {
	return float64(n)
}

// Int64 returns the truncated integer value
func (n Number) Int64() int64 {
	return int64(n)
}

// String returns the shortest decimal representation
func (n Number) String() string {
	return strconv.FormatFloat(float64(n), 'f', -1, 64)
}
