// Package types
package types

import (
	"fmt"
	"time"
)

// Snapshot is one point-in-time payload pushed by a subscription.
// Value is a raw JSON-like map; for collection queries it is a map of raw maps.
type Snapshot struct {
	Exists bool           `json:"exists"`
	Value  map[string]any `json:"value,omitempty"`
}

type CurrentReading struct {
	Temperature float64 `json:"temperature"`
	Humidity    float64 `json:"humidity"`
	Timestamp   string  `json:"timestamp"`
}

// Value returns the reading for a threshold metric name.
func (c CurrentReading) Value(metric string) (float64, bool) {
	switch metric {
	case MetricTemperature:
		return c.Temperature, true
	case MetricHumidity:
		return c.Humidity, true
	default:
		return 0, false
	}
}

type HistoricSample struct {
	Temperature  float64   `json:"temperature"`
	Humidity     float64   `json:"humidity"`
	SoilMoisture float64   `json:"soil_moisture"`
	CO2Level     bool      `json:"co2_level"`
	Timestamp    string    `json:"timestamp"`
	At           time.Time `json:"at"`
}

const (
	MetricTemperature = "temperature"
	MetricHumidity    = "humidity"
)

type Status int

const (
	StatusNormal Status = iota
	StatusWarning
	StatusError
)

var ErrInvalidStatus = fmt.Errorf("invalid status")

func (s Status) String() string {
	switch s {
	case StatusNormal:
		return "normal"
	case StatusWarning:
		return "warning"
	case StatusError:
		return "error"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// Message is the alert line shown for a non-normal status.
func (s Status) Message() string {
	switch s {
	case StatusWarning:
		return "Some values are close to the recommended limits"
	case StatusError:
		return "Out-of-range values detected"
	default:
		return ""
	}
}

func ToStatus(status string) (Status, error) {
	switch status {
	case "normal":
		return StatusNormal, nil
	case "warning":
		return StatusWarning, nil
	case "error":
		return StatusError, nil
	default:
		return -1, ErrInvalidStatus
	}
}

func (s Status) MarshalText() ([]byte, error) {
	if s < StatusNormal || s > StatusError {
		return nil, ErrInvalidStatus
	}
	return []byte(s.String()), nil
}

func (s *Status) UnmarshalText(b []byte) error {
	v, err := ToStatus(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// Band tells where a single metric sits relative to its range.
type Band string

const (
	BandUnknown Band = "unknown"
	BandLow     Band = "low"
	BandOK      Band = "ok"
	BandHigh    Band = "high"
)

type Threshold struct {
	Metric string  `json:"metric"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
}

// AuxiliarySensor is an optional hive sensor shown next to the main cards.
type AuxiliarySensor struct {
	Name      string `json:"name"`
	Label     string `json:"label"`
	Connected bool   `json:"connected"`
}

type DashboardState struct {
	Current   *CurrentReading  `json:"current"`
	History   []HistoricSample `json:"history"`
	Status    Status           `json:"status"`
	Loading   bool             `json:"loading"`
	UpdatedAt time.Time        `json:"updated_at"`
}

// Clone returns a copy that shares no memory with s.
func (s DashboardState) Clone() DashboardState {
	out := s
	if s.Current != nil {
		c := *s.Current
		out.Current = &c
	}
	out.History = make([]HistoricSample, len(s.History))
	copy(out.History, s.History)
	return out
}
