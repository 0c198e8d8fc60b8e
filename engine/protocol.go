package engine

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/buger/jsonparser"
	"github.com/thrasher-corp/twapper/exchanges/strategy/common"
	"github.com/thrasher-corp/twapper/exchanges/strategy/twap"
)

// Start request field names. The second name of each pair is accepted as an
// alias.
var (
	instrumentKeys = []string{"instrument", "instId"}
	percentKeys    = []string{"percent"}
	sliceKeys      = []string{"slice_count", "slices"}
	intervalKeys   = []string{"interval_seconds", "interval"}
)

// DecodeStartRequest decodes the first frame of a session. Missing or null
// fields take the value from defaults. Numbers may be sent as JSON numbers or
// numeric strings.
func DecodeStartRequest(data []byte, defaults twap.Request) (twap.Request, error) {
	req := defaults
	_, typ, _, err := jsonparser.Get(data)
	if err != nil {
		return req, fmt.Errorf("%w: %v", errInvalidStart, err)
	}
	if typ != jsonparser.Object {
		return req, fmt.Errorf("%w: expected object, received %s", errInvalidStart, typ)
	}

	if v, ok, err := lookupString(data, instrumentKeys); err != nil {
		return req, err
	} else if ok {
		req.Instrument = v
	}
	if v, ok, err := lookupNumber(data, percentKeys); err != nil {
		return req, err
	} else if ok {
		req.Percent = v
	}
	if v, ok, err := lookupNumber(data, sliceKeys); err != nil {
		return req, err
	} else if ok {
		if v != math.Trunc(v) {
			return req, fmt.Errorf("%w: %s must be a whole number, received %v", errInvalidField, sliceKeys[0], v)
		}
		req.Slices = int64(v)
	}
	if v, ok, err := lookupNumber(data, intervalKeys); err != nil {
		return req, err
	} else if ok {
		req.Interval = time.Duration(v * float64(time.Second))
	}
	return req, nil
}

// DecodeControlSignal decodes a frame received while an execution is running.
// Any JSON object decodes. An object without a string action yields an empty
// signal, which is not a cancel.
func DecodeControlSignal(data []byte) (common.ControlSignal, error) {
	if !json.Valid(data) {
		return common.ControlSignal{}, errInvalidControl
	}
	_, typ, _, err := jsonparser.Get(data)
	if err != nil {
		return common.ControlSignal{}, fmt.Errorf("%w: %v", errInvalidControl, err)
	}
	if typ != jsonparser.Object {
		return common.ControlSignal{}, fmt.Errorf("%w: expected object, received %s", errInvalidControl, typ)
	}
	action, err := jsonparser.GetString(data, "action")
	if err != nil {
		return common.ControlSignal{}, nil
	}
	return common.ControlSignal{Action: action}, nil
}

// lookup returns the first present, non null key
func lookup(data []byte, keys []string) (value []byte, typ jsonparser.ValueType, key string, err error) {
	for _, k := range keys {
		value, typ, _, err = jsonparser.Get(data, k)
		if errors.Is(err, jsonparser.KeyPathNotFoundError) {
			continue
		}
		if err != nil {
			return nil, jsonparser.NotExist, k, fmt.Errorf("%w: %s: %v", errInvalidField, k, err)
		}
		if typ == jsonparser.Null {
			continue
		}
		return value, typ, k, nil
	}
	return nil, jsonparser.NotExist, "", nil
}

func lookupString(data []byte, keys []string) (string, bool, error) {
	value, typ, key, err := lookup(data, keys)
	if err != nil || typ == jsonparser.NotExist {
		return "", false, err
	}
	if typ != jsonparser.String {
		return "", false, fmt.Errorf("%w: %s must be a string, received %s", errInvalidField, key, typ)
	}
	s, err := jsonparser.ParseString(value)
	if err != nil {
		return "", false, fmt.Errorf("%w: %s: %v", errInvalidField, key, err)
	}
	return s, true, nil
}

func lookupNumber(data []byte, keys []string) (float64, bool, error) {
	value, typ, key, err := lookup(data, keys)
	if err != nil || typ == jsonparser.NotExist {
		return 0, false, err
	}
	var f float64
	switch typ {
	case jsonparser.Number:
		f, err = jsonparser.ParseFloat(value)
	case jsonparser.String:
		f, err = strconv.ParseFloat(string(value), 64)
	default:
		return 0, false, fmt.Errorf("%w: %s must be a number, received %s", errInvalidField, key, typ)
	}
	if err != nil {
		return 0, false, fmt.Errorf("%w: %s: %v", errInvalidField, key, err)
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false, fmt.Errorf("%w: %s must be finite", errInvalidField, key)
	}
	return f, true, nil
}
