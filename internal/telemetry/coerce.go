package telemetry

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"
)

// timestampLayouts are tried in order. Layouts without an offset read the wall
// clock in the display location; date-only strings are UTC.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02",
}

// toNumber converts a raw payload value the way a loosely typed producer means it:
// absent, null, false and empty strings are 0, numeric strings are parsed, anything
// else is NaN so validation can reject it.
func toNumber(v any) float64 {
	switch t := v.(type) {
	case nil:
		return 0
	case float64:
		return t
	case float32:
		return float64(t)
	case int:
		return float64(t)
	case int32:
		return float64(t)
	case int64:
		return float64(t)
	case uint64:
		return float64(t)
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return math.NaN()
		}
		return f
	case bool:
		if t {
			return 1
		}
		return 0
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return 0
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return math.NaN()
		}
		return f
	default:
		return math.NaN()
	}
}

// finiteOrZero is toNumber for fields that must always hold a usable value.
func finiteOrZero(v any) float64 {
	f := toNumber(v)
	if !isFinite(f) {
		return 0
	}
	return f
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// toBool reports the truthiness of a raw value.
func toBool(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case string:
		return t != ""
	case float64, float32, int, int32, int64, uint64, json.Number:
		f := toNumber(t)
		return f != 0 && !math.IsNaN(f)
	default:
		return true
	}
}

// parseInstant reads a raw timestamp. Numbers are epoch milliseconds. Zero values
// count as absent.
func parseInstant(v any, loc *time.Location) (time.Time, bool) {
	switch t := v.(type) {
	case nil:
		return time.Time{}, false
	case time.Time:
		return t, !t.IsZero()
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return time.Time{}, false
		}
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			return millis(float64(n))
		}
		for _, layout := range timestampLayouts {
			var (
				ts  time.Time
				err error
			)
			switch layout {
			case time.RFC3339Nano:
				ts, err = time.Parse(layout, s)
			case "2006-01-02":
				ts, err = time.ParseInLocation(layout, s, time.UTC)
			default:
				ts, err = time.ParseInLocation(layout, s, loc)
			}
			if err == nil {
				return ts, true
			}
		}
		return time.Time{}, false
	case bool:
		return time.Time{}, false
	default:
		f := toNumber(t)
		if !isFinite(f) {
			return time.Time{}, false
		}
		return millis(f)
	}
}

func millis(ms float64) (time.Time, bool) {
	if ms == 0 {
		return time.Time{}, false
	}
	sec, frac := math.Modf(ms / 1000)
	return time.Unix(int64(sec), int64(frac*float64(time.Second))), true
}

// isoTimestamp renders t the way the device cluster writes current readings.
func isoTimestamp(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.000Z07:00")
}
