package db

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/ntentasd/colmena-telemetry/internal/metrics"
	"gopkg.in/inf.v0"
)

// Row is one stored reading. Nil decimals are absent columns.
type Row struct {
	Timestamp    time.Time
	Temperature  *inf.Dec
	Humidity     *inf.Dec
	SoilMoisture *inf.Dec
	CO2Level     *bool
}

// Raw renders the row as the JSON-like payload the ingestors consume.
func (r Row) Raw() map[string]any {
	raw := map[string]any{
		"timestamp": r.Timestamp.UTC().Format(time.RFC3339Nano),
	}
	putDec(raw, "temperature", r.Temperature)
	putDec(raw, "humidity", r.Humidity)
	putDec(raw, "soil_moisture", r.SoilMoisture)
	if r.CO2Level != nil {
		raw["co2_level"] = *r.CO2Level
	}
	return raw
}

func putDec(raw map[string]any, key string, dec *inf.Dec) {
	if dec == nil {
		return
	}
	val, err := strconv.ParseFloat(dec.String(), 64)
	if err != nil {
		raw[key] = dec.String()
		return
	}
	raw[key] = val
}

const selectReadings = `
SELECT timestamp, temperature, humidity, soil_moisture, co2_level
FROM readings_by_path
WHERE path = ?
ORDER BY timestamp DESC
LIMIT ?
`

// LastReadings returns up to n rows of path, newest first.
func (db *DB) LastReadings(ctx context.Context, path string, n int) ([]Row, error) {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	start := time.Now()
	iter := db.Data.Query(selectReadings, path, n).WithContext(ctx).Iter()

	rows := make([]Row, 0, n)
	var (
		ts              time.Time
		temp, hum, soil *inf.Dec
		co2             *bool
	)
	for iter.Scan(&ts, &temp, &hum, &soil, &co2) {
		rows = append(rows, Row{
			Timestamp:    ts,
			Temperature:  temp,
			Humidity:     hum,
			SoilMoisture: soil,
			CO2Level:     co2,
		})
		temp, hum, soil, co2 = nil, nil, nil, nil
	}

	if err := iter.Close(); err != nil {
		metrics.ScyllaQueryLatencySeconds.WithLabelValues("last_readings", "error").Observe(time.Since(start).Seconds())
		return nil, fmt.Errorf("failed to query %s: %w", path, err)
	}

	metrics.ScyllaQueryLatencySeconds.WithLabelValues("last_readings", "ok").Observe(time.Since(start).Seconds())
	metrics.ScyllaRowsRead.WithLabelValues("last_readings").Add(float64(len(rows)))
	return rows, nil
}

// LatestReading returns the newest row of path, or nil when the partition
// is empty.
func (db *DB) LatestReading(ctx context.Context, path string) (*Row, error) {
	rows, err := db.LastReadings(ctx, path, 1)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return &rows[0], nil
}
