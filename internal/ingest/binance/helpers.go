package binance

import (
	"errors"
	"fmt"
)

var errShortKline = errors.New("binance: rest kline row too short")

// toFloat coerces a REST kline field (delivered as either a JSON string or number)
// into a float64.
func toFloat(v interface{}) (float64, error) {
	switch t := v.(type) {
	case string:
		var f float64
		_, err := fmt.Sscanf(t, "%g", &f)
		return f, err
	case float64:
		return t, nil
	default:
		return 0, fmt.Errorf("binance: unexpected kline field type %T", v)
	}
}

// toInt64 coerces a REST kline timestamp field into an int64.
func toInt64(v interface{}) (int64, error) {
	switch t := v.(type) {
	case float64:
		return int64(t), nil
	case int64:
		return t, nil
	default:
		return 0, fmt.Errorf("binance: unexpected kline timestamp type %T", v)
	}
}
