package telemetry

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/ntentasd/colmena-telemetry/internal/metrics"
	"github.com/ntentasd/colmena-telemetry/internal/state"
	"github.com/ntentasd/colmena-telemetry/pkg/types"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

// TimeOfDayLayout is how historic timestamps are rendered for charts.
const TimeOfDayLayout = "15:04:05"

// HistoryIngestor turns historic collection snapshots into HistoryUpdates.
type HistoryIngestor struct {
	sink   Sink
	loc    *time.Location
	limit  int
	logger zerolog.Logger
}

// NewHistoryIngestor keeps at most limit samples; limit <= 0 means HistoryLimit.
func NewHistoryIngestor(sink Sink, loc *time.Location, limit int, logger zerolog.Logger) *HistoryIngestor {
	if loc == nil {
		loc = time.Local
	}
	if limit <= 0 {
		limit = HistoryLimit
	}
	return &HistoryIngestor{
		sink:   sink,
		loc:    loc,
		limit:  limit,
		logger: logger.With().Str("component", "history-ingestor").Logger(),
	}
}

// Normalize maps every raw entry to a sample, drops the invalid ones and
// returns the rest ascending by instant, capped to the most recent entries.
// Entries with equal instants keep the order of their keys.
func (hi *HistoryIngestor) Normalize(raw map[string]any) ([]types.HistoricSample, []error) {
	keys := make([]string, 0, len(raw))
	for k := range raw {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	samples := make([]types.HistoricSample, 0, len(keys))
	var errs []error

	for _, k := range keys {
		s, err := hi.sample(k, raw[k])
		if err != nil {
			errs = append(errs, err)
			continue
		}
		samples = append(samples, s)
	}

	sort.SliceStable(samples, func(i, j int) bool {
		return samples[i].At.Before(samples[j].At)
	})

	if len(samples) > hi.limit {
		samples = samples[len(samples)-hi.limit:]
	}

	return samples, errs
}

func (hi *HistoryIngestor) sample(key string, v any) (types.HistoricSample, error) {
	entry, ok := v.(map[string]any)
	if !ok {
		return types.HistoricSample{}, &ValidationError{Key: key, Field: "entry", Reason: "is not an object"}
	}

	s := types.HistoricSample{
		Temperature:  toNumber(entry["temperature"]),
		Humidity:     toNumber(entry["humidity"]),
		SoilMoisture: finiteOrZero(entry["soil_moisture"]),
		CO2Level:     toBool(entry["co2_level"]),
	}

	if at, ok := parseInstant(entry["timestamp"], hi.loc); ok {
		s.At = at
		s.Timestamp = at.In(hi.loc).Format(TimeOfDayLayout)
	}

	switch {
	case s.Timestamp == "":
		return s, &ValidationError{Key: key, Field: "timestamp", Reason: "is missing or unparseable"}
	case !isFinite(s.Temperature):
		return s, &ValidationError{Key: key, Field: types.MetricTemperature, Reason: "is not numeric"}
	case !isFinite(s.Humidity):
		return s, &ValidationError{Key: key, Field: types.MetricHumidity, Reason: "is not numeric"}
	}

	return s, nil
}

// HandleSnapshot applies one historic collection event and ends loading.
func (hi *HistoryIngestor) HandleSnapshot(ctx context.Context, snap types.Snapshot) {
	_, span := otel.Tracer(tracerName).Start(ctx, "telemetry.HandleHistory")
	defer span.End()

	metrics.SnapshotsTotal.WithLabelValues(metrics.ChannelHistory, boolLabel(snap.Exists)).Inc()

	if !snap.Exists {
		span.SetAttributes(attribute.Int("history.len", 0))
		hi.sink.Apply(state.HistoryUpdate{Samples: []types.HistoricSample{}})
		return
	}

	samples, errs := hi.Normalize(snap.Value)
	for _, err := range errs {
		var verr *ValidationError
		if errors.As(err, &verr) {
			metrics.RejectedSamplesTotal.WithLabelValues(verr.Field).Inc()
		}
		hi.logger.Debug().Err(err).Msg("historic entry rejected")
	}

	span.SetAttributes(
		attribute.Int("history.raw", len(snap.Value)),
		attribute.Int("history.len", len(samples)),
		attribute.Int("history.rejected", len(errs)),
	)

	if !hi.sink.Apply(state.HistoryUpdate{Samples: samples}) {
		hi.logger.Debug().Msg("state closed, dropping history")
		return
	}

	hi.logger.Debug().
		Int("samples", len(samples)).
		Int("rejected", len(errs)).
		Msg("history applied")
}

// HandleError logs a transport failure and ends loading so the dashboard is
// not stuck waiting.
func (hi *HistoryIngestor) HandleError(ctx context.Context, err error) {
	metrics.TransportErrorsTotal.WithLabelValues(metrics.ChannelHistory).Inc()
	hi.logger.Error().Err(err).Msg("error reading historic data")
	hi.sink.Apply(state.HistoryFailed{})
}
