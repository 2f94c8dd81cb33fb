package telemetry

import "github.com/ntentasd/colmena-telemetry/pkg/types"

// WarningMargin is how close to a boundary an in-range value may get before it
// is reported as a warning.
const WarningMargin = 2.0

// DefaultThresholds is the acceptable range per metric for a healthy hive.
var DefaultThresholds = []types.Threshold{
	{Metric: types.MetricTemperature, Min: 20, Max: 35},
	{Metric: types.MetricHumidity, Min: 30, Max: 80},
}

// Classifier maps readings to a status against a fixed threshold table.
type Classifier struct {
	Thresholds []types.Threshold
	Margin     float64
}

var defaultClassifier = Classifier{
	Thresholds: DefaultThresholds,
	Margin:     WarningMargin,
}

// Classify evaluates r against DefaultThresholds.
func Classify(r types.CurrentReading) types.Status {
	return defaultClassifier.Classify(r)
}

// Classify returns the most severe status contributed by any metric.
func (c Classifier) Classify(r types.CurrentReading) types.Status {
	status := types.StatusNormal
	for _, th := range c.Thresholds {
		v, ok := r.Value(th.Metric)
		if !ok {
			continue
		}
		status = worst(status, c.metricStatus(th, v))
	}
	return status
}

func (c Classifier) metricStatus(th types.Threshold, v float64) types.Status {
	switch {
	case v < th.Min || v > th.Max:
		return types.StatusError
	case v < th.Min+c.Margin || v > th.Max-c.Margin:
		return types.StatusWarning
	default:
		return types.StatusNormal
	}
}

func worst(a, b types.Status) types.Status {
	if b > a {
		return b
	}
	return a
}

// Band places a single metric value below, inside or above its range.
func Band(metric string, v float64) types.Band {
	for _, th := range DefaultThresholds {
		if th.Metric != metric {
			continue
		}
		switch {
		case v < th.Min:
			return types.BandLow
		case v > th.Max:
			return types.BandHigh
		default:
			return types.BandOK
		}
	}
	return types.BandUnknown
}

// Bands returns the band of every thresholded metric of r.
func Bands(r types.CurrentReading) map[string]types.Band {
	out := make(map[string]types.Band, len(DefaultThresholds))
	for _, th := range DefaultThresholds {
		v, _ := r.Value(th.Metric)
		out[th.Metric] = Band(th.Metric, v)
	}
	return out
}
