package monitor

import (
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var sparkBlocks = []rune{'▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}

// sparkline renders the last width values scaled between lo and hi, padding
// on the left when there are fewer values than columns.
func sparkline(values []float64, width int, lo, hi float64, color func(float64) lipgloss.Color) string {
	if width <= 0 {
		return ""
	}

	dim := lipgloss.NewStyle().Foreground(lipgloss.Color("236"))
	if len(values) == 0 {
		return dim.Render(strings.Repeat("╌", width))
	}
	if len(values) > width {
		values = values[len(values)-width:]
	}

	span := hi - lo
	if span <= 0 {
		span = 1
	}

	var sb strings.Builder
	sb.WriteString(dim.Render(strings.Repeat("╌", width-len(values))))

	for _, v := range values {
		norm := math.Max(0, math.Min(1, (v-lo)/span))
		idx := int(math.Round(norm * float64(len(sparkBlocks)-1)))
		sb.WriteString(lipgloss.NewStyle().Foreground(color(v)).Render(string(sparkBlocks[idx])))
	}
	return sb.String()
}

// valueRange returns the bounds a series is drawn in: the data extent
// widened to include the threshold range.
func valueRange(values []float64, min, max float64) (float64, float64) {
	lo, hi := min, max
	for _, v := range values {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	return lo - 2, hi + 2
}
