package kafka

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

var ErrBadMessage = errors.New("bad message")

type wireReading struct {
	ID           string          `json:"id"`
	Temperature  *float64        `json:"temperature"`
	Humidity     *float64        `json:"humidity"`
	SoilMoisture *float64        `json:"soil_moisture"`
	CO2Level     bool            `json:"co2_level"`
	Timestamp    json.RawMessage `json:"timestamp"`
}

// decodeReading parses a device payload. The message time is used when the
// payload has no timestamp of its own.
func decodeReading(b []byte, fallback time.Time) (Reading, error) {
	var w wireReading
	if err := json.Unmarshal(b, &w); err != nil {
		return Reading{}, fmt.Errorf("%w: %v", ErrBadMessage, err)
	}
	if w.Temperature == nil || w.Humidity == nil {
		return Reading{}, fmt.Errorf("%w: temperature and humidity are required", ErrBadMessage)
	}
	if !finite(*w.Temperature) || !finite(*w.Humidity) {
		return Reading{}, fmt.Errorf("%w: non-finite value", ErrBadMessage)
	}

	r := Reading{
		ID:          w.ID,
		Temperature: *w.Temperature,
		Humidity:    *w.Humidity,
		CO2Level:    w.CO2Level,
	}
	if w.SoilMoisture != nil && finite(*w.SoilMoisture) {
		r.SoilMoisture = *w.SoilMoisture
	}

	ts, err := parseTimestamp(w.Timestamp)
	if err != nil {
		return Reading{}, fmt.Errorf("%w: %v", ErrBadMessage, err)
	}
	if ts.IsZero() {
		ts = fallback
	}
	if ts.IsZero() {
		return Reading{}, fmt.Errorf("%w: no timestamp", ErrBadMessage)
	}
	r.Timestamp = ts.UTC()

	return r, nil
}

// parseTimestamp accepts epoch milliseconds or an RFC 3339 string. Absent or
// null yields the zero time.
func parseTimestamp(raw json.RawMessage) (time.Time, error) {
	s := strings.TrimSpace(string(raw))
	if s == "" || s == "null" {
		return time.Time{}, nil
	}

	if ms, err := strconv.ParseFloat(s, 64); err == nil {
		return time.UnixMilli(int64(ms)), nil
	}

	var str string
	if err := json.Unmarshal(raw, &str); err != nil {
		return time.Time{}, fmt.Errorf("invalid timestamp %s", s)
	}
	if ms, err := strconv.ParseInt(str, 10, 64); err == nil {
		return time.UnixMilli(ms), nil
	}
	ts, err := time.Parse(time.RFC3339Nano, str)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid timestamp %q", str)
	}
	return ts, nil
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
