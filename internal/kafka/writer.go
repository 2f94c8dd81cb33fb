package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var _ Writer = (*ValkeyWriter)(nil)

// ValkeyWriter keeps the layout the Valkey source reads: the current reading
// as a JSON string key, and the history as a sorted set of JSON members scored
// by timestamp millis, trimmed to the newest retain entries.
type ValkeyWriter struct {
	client     redis.UniversalClient
	currentKey string
	historyKey string
	retain     int
}

func NewValkeyWriter(client redis.UniversalClient, currentKey, historyKey string, retain int) *ValkeyWriter {
	return &ValkeyWriter{
		client:     client,
		currentKey: currentKey,
		historyKey: historyKey,
		retain:     retain,
	}
}

func currentPayload(r Reading) ([]byte, error) {
	return json.Marshal(map[string]any{
		"temperature": r.Temperature,
		"humidity":    r.Humidity,
		"timestamp":   r.Timestamp.Format(time.RFC3339Nano),
	})
}

func historyMember(r Reading) ([]byte, error) {
	return json.Marshal(map[string]any{
		"id":            r.ID,
		"temperature":   r.Temperature,
		"humidity":      r.Humidity,
		"soil_moisture": r.SoilMoisture,
		"co2_level":     r.CO2Level,
		"timestamp":     r.Timestamp.UnixMilli(),
	})
}

func (w *ValkeyWriter) WriteReading(ctx context.Context, r Reading) error {
	cur, err := currentPayload(r)
	if err != nil {
		return fmt.Errorf("failed to encode current reading: %w", err)
	}
	member, err := historyMember(r)
	if err != nil {
		return fmt.Errorf("failed to encode historic entry: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 500*time.Millisecond)
	defer cancel()

	// Both keys live in different slots on a cluster, so this is a pipeline
	// rather than a transaction.
	_, err = w.client.Pipelined(ctx, func(p redis.Pipeliner) error {
		p.ZAdd(ctx, w.historyKey, redis.Z{
			Score:  float64(r.Timestamp.UnixMilli()),
			Member: member,
		})
		p.ZRemRangeByRank(ctx, w.historyKey, 0, int64(-w.retain-1))
		p.Set(ctx, w.currentKey, cur, 0)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to write reading %s: %w", r.ID, err)
	}
	return nil
}

func (w *ValkeyWriter) Close() error {
	return w.client.Close()
}
