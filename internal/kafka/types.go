package kafka

import (
	"context"
	"time"
)

// Reading is one device message as published on the readings topic.
type Reading struct {
	ID           string    `json:"id"`
	Temperature  float64   `json:"temperature"`
	Humidity     float64   `json:"humidity"`
	SoilMoisture float64   `json:"soil_moisture"`
	CO2Level     bool      `json:"co2_level"`
	Timestamp    time.Time `json:"-"`
}

// Writer persists readings where a dashboard source can pick them up.
type Writer interface {
	WriteReading(ctx context.Context, r Reading) error
	Close() error
}
