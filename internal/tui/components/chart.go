package components

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/theirongolddev/ghtraffic/internal/cli"
	"github.com/theirongolddev/ghtraffic/internal/tui/theme"
)

// Sparkline renders a unicode sparkline from values on background bg.
func Sparkline(values []float64, color, bg lipgloss.Color) string {
	if len(values) == 0 {
		return ""
	}

	blocks := []rune{'▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}

	peak := values[0]
	for _, v := range values[1:] {
		if v > peak {
			peak = v
		}
	}
	if peak == 0 {
		peak = 1
	}

	style := lipgloss.NewStyle().Foreground(color).Background(bg)

	var buf strings.Builder
	buf.Grow(len(values) * 3)
	for _, v := range values {
		idx := int(v / peak * float64(len(blocks)-1))
		if idx >= len(blocks) {
			idx = len(blocks) - 1
		}
		if idx < 0 {
			idx = 0
		}
		buf.WriteRune(blocks[idx])
	}

	return style.Render(buf.String())
}

// DateLabels builds compact X-axis labels for an ascending YYYY-MM-DD series.
// The first label and month boundaries show the month abbreviation,
// everything else the day number.
func DateLabels(dates []string) []string {
	labels := make([]string, len(dates))
	prevMonth := time.Month(0)
	for i, ds := range dates {
		dt, err := time.Parse("2006-01-02", ds)
		if err != nil {
			labels[i] = ds
			continue
		}
		switch {
		case i == 0, dt.Month() != prevMonth && i != len(dates)-1:
			labels[i] = dt.Format("Jan")
		default:
			labels[i] = strconv.Itoa(dt.Day())
		}
		prevMonth = dt.Month()
	}
	return labels
}

// eighths are the partial-cell glyphs, index = filled eighths.
var eighths = []rune{' ', '▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}

// BarChart draws one bar per day of counts, a count axis on the left, and
// labels (one per count) under the bars. When the days don't fit in width,
// neighbouring days are summed into buckets.
func BarChart(counts []int64, labels []string, color lipgloss.Color, width, height int) string {
	if len(counts) == 0 {
		return ""
	}
	t := theme.Active
	if width < 15 || height < 3 {
		vals := make([]float64, len(counts))
		for i, c := range counts {
			vals[i] = float64(c)
		}
		return Sparkline(vals, color, t.Surface)
	}

	var peak int64
	for _, c := range counts {
		peak = max(peak, c)
	}
	step, ceiling := CountAxis(peak, height/2)

	axisW := max(4, len(cli.FormatCompact(ceiling))+1)
	plotW := max(5, width-axisW-1)
	counts, labels = bucketDays(counts, labels, (plotW+1)/2)
	n := len(counts)
	barW := min(6, max(1, (plotW-(n-1))/n))
	lineW := n*barW + n - 1

	// Tick k sits on the row whose top edge is k*step.
	ticks := make(map[int]string)
	for v := step; v <= ceiling; v += step {
		row := int((v*int64(height) + ceiling/2) / ceiling)
		ticks[row] = cli.FormatCompact(v)
	}

	axis := lipgloss.NewStyle().Foreground(t.TextDim).Background(t.Surface)
	bar := lipgloss.NewStyle().Foreground(color).Background(t.Surface)
	blank := lipgloss.NewStyle().Background(t.Surface)

	var b strings.Builder
	for row := height; row >= 1; row-- {
		b.WriteString(axis.Render(fmt.Sprintf("%*s│", axisW, ticks[row])))
		// Cell spans (bottom, top] in count units, scaled by height.
		top := int64(row) * ceiling
		bottom := top - ceiling
		for i, c := range counts {
			if i > 0 {
				b.WriteString(blank.Render(" "))
			}
			scaled := c * int64(height)
			switch {
			case scaled >= top:
				b.WriteString(bar.Render(strings.Repeat("█", barW)))
			case scaled > bottom:
				fill := max(1, int((scaled-bottom)*8/ceiling))
				b.WriteString(bar.Render(strings.Repeat(string(eighths[fill]), barW)))
			default:
				b.WriteString(blank.Render(strings.Repeat(" ", barW)))
			}
		}
		b.WriteString("\n")
	}
	b.WriteString(axis.Render(fmt.Sprintf("%*s└%s", axisW, "0", strings.Repeat("─", lineW))))

	if len(labels) == n {
		b.WriteString("\n")
		b.WriteString(blank.Render(strings.Repeat(" ", axisW+1)))
		b.WriteString(axis.Render(placeLabels(labels, barW+1, lineW)))
	}
	return b.String()
}

// CountAxis picks a 1-2-5 step so that at most maxTicks steps cover peak,
// and returns the step and the axis ceiling (a multiple of step >= peak).
func CountAxis(peak int64, maxTicks int) (step, ceiling int64) {
	peak = max(peak, 1)
	maxTicks = max(maxTicks, 1)
	for base := int64(1); ; base *= 10 {
		for _, m := range []int64{1, 2, 5} {
			step = base * m
			if n := (peak + step - 1) / step; n <= int64(maxTicks) {
				return step, n * step
			}
		}
	}
}

// bucketDays sums consecutive counts so at most limit remain. Each bucket
// keeps the label of its first day.
func bucketDays(counts []int64, labels []string, limit int) ([]int64, []string) {
	limit = max(limit, 1)
	if len(counts) <= limit {
		return counts, labels
	}
	size := (len(counts) + limit - 1) / limit
	var outCounts []int64
	var outLabels []string
	for i := 0; i < len(counts); i += size {
		var sum int64
		for _, c := range counts[i:min(i+size, len(counts))] {
			sum += c
		}
		outCounts = append(outCounts, sum)
		if len(labels) == len(counts) {
			outLabels = append(outLabels, labels[i])
		}
	}
	return outCounts, outLabels
}

// placeLabels lays labels out at their bar offsets (stride apart) on a line
// of width w, skipping any that would touch the previous one. The last
// label is right-aligned to the line end when it fits.
func placeLabels(labels []string, stride, w int) string {
	line := []byte(strings.Repeat(" ", w))
	next := 0
	for i, lbl := range labels {
		pos := i * stride
		if i == len(labels)-1 && pos+len(lbl) > w {
			pos = w - len(lbl)
		}
		if pos < next || pos < 0 || pos+len(lbl) > w {
			continue
		}
		copy(line[pos:], lbl)
		next = pos + len(lbl) + 1
	}
	return strings.TrimRight(string(line), " ")
}
