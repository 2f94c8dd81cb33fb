package telemetry

import (
	"testing"

	"github.com/ntentasd/colmena-telemetry/pkg/types"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name        string
		temperature float64
		humidity    float64
		want        types.Status
	}{
		{"comfortable", 22, 50, types.StatusNormal},
		{"middle of both ranges", 27.5, 55, types.StatusNormal},
		{"temperature below min", 19, 50, types.StatusError},
		{"temperature above max", 36, 50, types.StatusError},
		{"temperature near min", 21, 50, types.StatusWarning},
		{"temperature near max", 34, 50, types.StatusWarning},
		{"temperature on min", 20, 50, types.StatusWarning},
		{"temperature on max", 35, 50, types.StatusWarning},
		{"temperature on warning edge", 22, 50, types.StatusNormal},
		{"humidity below min", 25, 29, types.StatusError},
		{"humidity above max", 25, 81, types.StatusError},
		{"humidity near min", 25, 31, types.StatusWarning},
		{"humidity near max", 25, 79, types.StatusWarning},
		{"error temperature, out of range humidity", 19, 82, types.StatusError},
		{"error temperature, warning humidity", 19, 79, types.StatusError},
		{"warning temperature, error humidity", 21, 90, types.StatusError},
		{"warning on both", 21, 79, types.StatusWarning},
		{"normal temperature, warning humidity", 27, 31, types.StatusWarning},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(types.CurrentReading{Temperature: tt.temperature, Humidity: tt.humidity})
			if got != tt.want {
				t.Errorf("Classify(%v, %v) = %v, want %v", tt.temperature, tt.humidity, got, tt.want)
			}
		})
	}
}

func TestClassifierCustomThresholds(t *testing.T) {
	c := Classifier{
		Thresholds: []types.Threshold{{Metric: types.MetricHumidity, Min: 40, Max: 60}},
		Margin:     5,
	}

	// Temperature has no threshold here, so it never contributes.
	r := types.CurrentReading{Temperature: -10, Humidity: 50}
	if got := c.Classify(r); got != types.StatusNormal {
		t.Errorf("expected normal, got %v", got)
	}

	r.Humidity = 43
	if got := c.Classify(r); got != types.StatusWarning {
		t.Errorf("expected warning, got %v", got)
	}
}

func TestBands(t *testing.T) {
	tests := []struct {
		reading types.CurrentReading
		want    map[string]types.Band
	}{
		{
			reading: types.CurrentReading{Temperature: 25, Humidity: 50},
			want:    map[string]types.Band{"temperature": types.BandOK, "humidity": types.BandOK},
		},
		{
			reading: types.CurrentReading{Temperature: 19.9, Humidity: 80.1},
			want:    map[string]types.Band{"temperature": types.BandLow, "humidity": types.BandHigh},
		},
		{
			reading: types.CurrentReading{Temperature: 40, Humidity: 12},
			want:    map[string]types.Band{"temperature": types.BandHigh, "humidity": types.BandLow},
		},
	}

	for _, tt := range tests {
		got := Bands(tt.reading)
		for metric, want := range tt.want {
			if got[metric] != want {
				t.Errorf("band of %s in %+v = %q, want %q", metric, tt.reading, got[metric], want)
			}
		}
	}

	if b := Band("soil_moisture", 10); b != types.BandUnknown {
		t.Errorf("expected unknown band for unthresholded metric, got %q", b)
	}
}
