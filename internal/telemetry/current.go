package telemetry

import (
	"context"
	"strings"
	"time"

	"github.com/ntentasd/colmena-telemetry/internal/metrics"
	"github.com/ntentasd/colmena-telemetry/internal/state"
	"github.com/ntentasd/colmena-telemetry/pkg/types"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

const tracerName = "colmena-telemetry"

// CurrentIngestor turns current-reading snapshots into CurrentUpdates.
type CurrentIngestor struct {
	sink       Sink
	classifier Classifier
	logger     zerolog.Logger
	now        func() time.Time
}

func NewCurrentIngestor(sink Sink, logger zerolog.Logger) *CurrentIngestor {
	return &CurrentIngestor{
		sink:       sink,
		classifier: defaultClassifier,
		logger:     logger.With().Str("component", "current-ingestor").Logger(),
		now:        time.Now,
	}
}

// Normalize coerces a raw current payload. Unusable numbers become 0 and a
// missing timestamp becomes the ingestion time.
func (ci *CurrentIngestor) Normalize(raw map[string]any) types.CurrentReading {
	return types.CurrentReading{
		Temperature: finiteOrZero(raw["temperature"]),
		Humidity:    finiteOrZero(raw["humidity"]),
		Timestamp:   ci.timestamp(raw["timestamp"]),
	}
}

func (ci *CurrentIngestor) timestamp(v any) string {
	switch t := v.(type) {
	case string:
		if strings.TrimSpace(t) != "" {
			return t
		}
	case nil, bool:
	default:
		if ts, ok := parseInstant(t, time.UTC); ok {
			return isoTimestamp(ts)
		}
	}
	return isoTimestamp(ci.now())
}

// HandleSnapshot applies one current-reading event. A missing snapshot keeps
// the previous reading.
func (ci *CurrentIngestor) HandleSnapshot(ctx context.Context, snap types.Snapshot) {
	_, span := otel.Tracer(tracerName).Start(ctx, "telemetry.HandleCurrent")
	defer span.End()

	span.SetAttributes(attribute.Bool("snapshot.exists", snap.Exists))
	metrics.SnapshotsTotal.WithLabelValues(metrics.ChannelCurrent, boolLabel(snap.Exists)).Inc()

	if !snap.Exists {
		ci.logger.Debug().Msg("current reading absent, keeping previous")
		return
	}

	reading := ci.Normalize(snap.Value)
	status := ci.classifier.Classify(reading)

	metrics.CurrentValue.WithLabelValues(types.MetricTemperature).Set(reading.Temperature)
	metrics.CurrentValue.WithLabelValues(types.MetricHumidity).Set(reading.Humidity)
	span.SetAttributes(attribute.String("status", status.String()))

	if !ci.sink.Apply(state.CurrentUpdate{Reading: reading, Status: status}) {
		ci.logger.Debug().Msg("state closed, dropping current reading")
		return
	}

	ci.logger.Debug().
		Float64("temperature", reading.Temperature).
		Float64("humidity", reading.Humidity).
		Str("status", status.String()).
		Msg("current reading applied")
}

// HandleError logs a transport failure. The last good reading stays in place.
func (ci *CurrentIngestor) HandleError(ctx context.Context, err error) {
	metrics.TransportErrorsTotal.WithLabelValues(metrics.ChannelCurrent).Inc()
	ci.logger.Error().Err(err).Msg("error reading current data")
}

func boolLabel(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
