package monitor

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/ntentasd/colmena-telemetry/internal/telemetry"
	"github.com/ntentasd/colmena-telemetry/pkg/types"
)

// ── Color palette ────────────────────────────────────────────────────

var (
	colorTitleBg  = lipgloss.Color("94")
	colorTitleFg  = lipgloss.Color("226")
	colorBorder   = lipgloss.Color("136")
	colorLabel    = lipgloss.Color("252")
	colorDim      = lipgloss.Color("240")
	colorFooterBg = lipgloss.Color("235")
	colorOk       = lipgloss.Color("78")
	colorLow      = lipgloss.Color("39")
	colorHigh     = lipgloss.Color("196")
	colorWarn     = lipgloss.Color("220")
	colorPaused   = lipgloss.Color("196")
)

func bandColor(b types.Band) lipgloss.Color {
	switch b {
	case types.BandLow:
		return colorLow
	case types.BandHigh:
		return colorHigh
	case types.BandOK:
		return colorOk
	default:
		return colorDim
	}
}

func metricColor(metric string) func(float64) lipgloss.Color {
	return func(v float64) lipgloss.Color {
		return bandColor(telemetry.Band(metric, v))
	}
}

// ── View ─────────────────────────────────────────────────────────────

func (m Model) View() string {
	if m.width == 0 {
		return "  Initializing..."
	}

	width := m.width - 2
	if width < 40 {
		width = 40
	}

	sections := []string{m.renderTitleBar(width)}

	if alert := m.renderAlert(width); alert != "" {
		sections = append(sections, alert)
	}

	switch {
	case !m.hasState || m.view.Loading:
		sections = append(sections, centered(width, "Loading data..."))
	default:
		sections = append(sections, m.renderCards(width))
		sections = append(sections, m.renderHistory(width))
	}

	if m.closed {
		sections = append(sections, centered(width, "Feed closed, press q to quit"))
	}

	sections = append(sections, m.renderFooter(width))

	content := lipgloss.JoinVertical(lipgloss.Left, sections...)
	if m.height > 0 {
		lines := strings.Split(content, "\n")
		if len(lines) > m.height {
			content = strings.Join(lines[:m.height], "\n")
		}
	}
	return content
}

func centered(width int, msg string) string {
	return lipgloss.NewStyle().
		Foreground(colorDim).
		Width(width).
		Align(lipgloss.Center).
		Padding(1, 0).
		Render(msg)
}

func (m Model) renderTitleBar(width int) string {
	logo := lipgloss.NewStyle().
		Bold(true).
		Foreground(colorTitleFg).
		Render("COLMENA MONITOR")

	dim := lipgloss.NewStyle().Foreground(colorDim)
	parts := []string{dim.Render(m.label)}

	if m.view.Current != nil {
		parts = append(parts, dim.Render("last update "+m.view.Current.Timestamp))
	}
	if !m.lastState.IsZero() {
		parts = append(parts, dim.Render("seen "+m.lastState.Format("15:04:05")))
	}
	if m.paused {
		parts = append(parts, lipgloss.NewStyle().Foreground(colorPaused).Bold(true).Render("PAUSED"))
	}

	right := strings.Join(parts, dim.Render(" │ "))

	gap := width - lipgloss.Width(logo) - lipgloss.Width(right) - 4
	if gap < 1 {
		gap = 1
	}

	return lipgloss.NewStyle().
		Background(colorTitleBg).
		Width(width).
		Padding(0, 1).
		Render(logo + strings.Repeat(" ", gap) + right)
}

func (m Model) renderAlert(width int) string {
	var color lipgloss.Color
	switch m.view.Status {
	case types.StatusWarning:
		color = colorWarn
	case types.StatusError:
		color = colorHigh
	default:
		return ""
	}

	return lipgloss.NewStyle().
		Foreground(color).
		Bold(true).
		Width(width).
		Padding(0, 1).
		Render("! " + m.view.Message)
}

func (m Model) renderCards(width int) string {
	cardWidth := width/4 - 2
	if cardWidth < 18 {
		cardWidth = 18
	}

	card := func(title, value string, color lipgloss.Color, note string) string {
		body := lipgloss.JoinVertical(lipgloss.Left,
			lipgloss.NewStyle().Foreground(colorLabel).Render(title),
			lipgloss.NewStyle().Foreground(color).Bold(true).Render(value),
			lipgloss.NewStyle().Foreground(colorDim).Render(note),
		)
		return lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorBorder).
			Padding(0, 1).
			Width(cardWidth).
			Render(body)
	}

	var cards []string
	if cur := m.view.Current; cur != nil {
		tb := m.view.Bands[types.MetricTemperature]
		hb := m.view.Bands[types.MetricHumidity]
		cards = append(cards,
			card("Temperature", fmt.Sprintf("%.1f°C", cur.Temperature), bandColor(tb), "range 20-35"),
			card("Humidity", fmt.Sprintf("%.1f%%", cur.Humidity), bandColor(hb), "range 30-80"),
		)
	} else {
		cards = append(cards,
			card("Temperature", "--", colorDim, "no reading"),
			card("Humidity", "--", colorDim, "no reading"),
		)
	}

	for _, s := range m.view.Sensors {
		value, note := "Not connected", "sensor disconnected"
		color := colorDim
		if s.Connected {
			value, note, color = "Connected", "", colorOk
		}
		cards = append(cards, card(s.Label, value, color, note))
	}

	return lipgloss.JoinHorizontal(lipgloss.Top, cards...)
}

func (m Model) renderHistory(width int) string {
	hist := m.view.History

	chartWidth := width - 30
	if chartWidth < 10 {
		chartWidth = 10
	}

	temps := make([]float64, len(hist))
	hums := make([]float64, len(hist))
	for i, s := range hist {
		temps[i] = s.Temperature
		hums[i] = s.Humidity
	}

	dim := lipgloss.NewStyle().Foreground(colorDim)
	label := lipgloss.NewStyle().Foreground(colorLabel).Width(14)

	row := func(name, metric string, values []float64, min, max float64) string {
		lo, hi := valueRange(values, min, max)
		last := dim.Render("   --")
		if len(values) > 0 {
			last = lipgloss.NewStyle().
				Foreground(metricColor(metric)(values[len(values)-1])).
				Render(fmt.Sprintf("%6.1f", values[len(values)-1]))
		}
		return label.Render(name) + sparkline(values, chartWidth, lo, hi, metricColor(metric)) + " " + last
	}

	rows := []string{
		lipgloss.NewStyle().Bold(true).Foreground(colorTitleFg).Render(fmt.Sprintf("Last %d records", m.view.Records)),
		row("Temperature", types.MetricTemperature, temps, 20, 35),
		row("Humidity", types.MetricHumidity, hums, 30, 80),
	}

	if len(hist) > 0 {
		span := hist[0].Timestamp + " → " + hist[len(hist)-1].Timestamp
		rows = append(rows, strings.Repeat(" ", 14)+dim.Render(span))
	}

	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(colorBorder).
		Padding(0, 1).
		Width(width).
		Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

func (m Model) renderFooter(width int) string {
	swatch := func(c lipgloss.Color) string {
		return lipgloss.NewStyle().Foreground(c).Render("██")
	}
	dim := lipgloss.NewStyle().Foreground(colorDim)
	key := lipgloss.NewStyle().Foreground(colorLabel)

	legend := swatch(colorOk) + dim.Render(" in range ") +
		swatch(colorLow) + dim.Render(" low ") +
		swatch(colorHigh) + dim.Render(" high")

	keys := dim.Render("q") + key.Render(":quit") +
		dim.Render("  p") + key.Render(":pause")

	gap := width - lipgloss.Width(legend) - lipgloss.Width(keys) - 4
	if gap < 1 {
		gap = 1
	}

	return lipgloss.NewStyle().
		Background(colorFooterBg).
		Width(width).
		Padding(0, 1).
		Render(legend + strings.Repeat(" ", gap) + keys)
}
