package domain

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// MaxAmountMinor is the largest charge Stripe accepts for two-decimal currencies.
const MaxAmountMinor int64 = 99999999

// ParseAmount converts a major-unit amount (JSON number or numeric string)
// into minor units, rounding to the nearest unit.
func ParseAmount(v any) (int64, error) {
	var f float64
	switch x := v.(type) {
	case float64:
		f = x
	case float32:
		f = float64(x)
	case int:
		f = float64(x)
	case int64:
		f = float64(x)
	case json.Number:
		parsed, err := x.Float64()
		if err != nil {
			return 0, ErrInvalidAmount
		}
		f = parsed
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil {
			return 0, ErrInvalidAmount
		}
		f = parsed
	default:
		return 0, ErrInvalidAmount
	}

	if math.IsNaN(f) || math.IsInf(f, 0) || f <= 0 {
		return 0, ErrInvalidAmount
	}
	minor := math.Round(f * 100)
	if minor < 1 || minor > float64(MaxAmountMinor) {
		return 0, ErrInvalidAmount
	}
	return int64(minor), nil
}

// FormatAmount renders minor units as "45.00 GBP".
func FormatAmount(minor int64, currency string) string {
	return fmt.Sprintf("%d.%02d %s", minor/100, minor%100, strings.ToUpper(currency))
}
