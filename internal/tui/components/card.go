// Package components provides reusable TUI widgets for the ghtraffic dashboard.
package components

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/theirongolddev/ghtraffic/internal/cli"
	"github.com/theirongolddev/ghtraffic/internal/model"
	"github.com/theirongolddev/ghtraffic/internal/pipeline"
	"github.com/theirongolddev/ghtraffic/internal/tui/theme"
)

// LayoutRow distributes totalWidth into n widths that sum to exactly totalWidth.
// First items absorb the remainder from integer division.
func LayoutRow(totalWidth, n int) []int {
	if n <= 0 {
		return nil
	}
	base := totalWidth / n
	remainder := totalWidth % n
	widths := make([]int, n)
	for i := range widths {
		widths[i] = base
		if i < remainder {
			widths[i]++
		}
	}
	return widths
}

// Metric is one labelled figure in a MetricCardRow.
type Metric struct {
	Label string
	Value string
	Color lipgloss.Color // value color; empty uses the primary text color
}

// MetricCard renders a small metric card with label and value.
// outerWidth is the total rendered width including border.
func MetricCard(m Metric, outerWidth int) string {
	t := theme.Active

	contentWidth := outerWidth - 2
	if contentWidth < 10 {
		contentWidth = 10
	}

	color := m.Color
	if color == "" {
		color = t.TextPrimary
	}

	cardStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(t.Border).
		BorderBackground(t.Background).
		Background(t.Surface).
		Width(contentWidth).
		Padding(0, 1)

	labelStyle := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)
	valueStyle := lipgloss.NewStyle().Foreground(color).Background(t.Surface).Bold(true)

	return cardStyle.Render(labelStyle.Render(m.Label) + "\n" + valueStyle.Render(m.Value))
}

// MetricCardRow renders a row of metric cards side by side.
// totalWidth is the full row width; cards sum to exactly that.
func MetricCardRow(metrics []Metric, totalWidth int) string {
	if len(metrics) == 0 {
		return ""
	}

	widths := LayoutRow(totalWidth, len(metrics))

	rendered := make([]string, 0, len(metrics))
	for i, m := range metrics {
		rendered = append(rendered, MetricCard(m, widths[i]))
	}

	return CardRow(rendered)
}

// ContentCard renders a bordered content card with an optional title.
// outerWidth controls the total rendered width including border.
func ContentCard(title, body string, outerWidth int) string {
	return contentCard(title, body, outerWidth, false)
}

func contentCard(title, body string, outerWidth int, focused bool) string {
	t := theme.Active

	contentWidth := outerWidth - 2
	if contentWidth < 10 {
		contentWidth = 10
	}

	border := t.Border
	bg := t.Surface
	if focused {
		border = t.BorderAccent
		bg = t.SurfaceHover
	}

	cardStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(border).
		BorderBackground(t.Background).
		Background(bg).
		Width(contentWidth).
		Padding(0, 1)

	titleStyle := lipgloss.NewStyle().
		Foreground(t.TextPrimary).
		Background(bg).
		Bold(true)

	content := ""
	if title != "" {
		content = titleStyle.Render(title) + "\n"
	}
	content += body

	return cardStyle.Render(content)
}

// RepoCard renders one repository summary: headline counts, a views/clones
// sparkline pair, and the top referrer. focused draws the selection border.
func RepoCard(rt model.RepoTraffic, outerWidth int, focused bool) string {
	t := theme.Active
	bg := t.Surface
	if focused {
		bg = t.SurfaceHover
	}

	muted := lipgloss.NewStyle().Foreground(t.TextMuted).Background(bg)
	views := lipgloss.NewStyle().Foreground(t.Views).Background(bg).Bold(true)
	visitors := lipgloss.NewStyle().Foreground(t.Visitors).Background(bg).Bold(true)
	clones := lipgloss.NewStyle().Foreground(t.Clones).Background(bg).Bold(true)

	series := pipeline.CardSeries(rt)
	viewVals := make([]float64, len(series))
	cloneVals := make([]float64, len(series))
	for i, d := range series {
		viewVals[i] = float64(d.Views)
		cloneVals[i] = float64(d.Clones)
	}

	body := views.Render(cli.FormatCompact(rt.Views.Count)) + muted.Render(" views  ") +
		visitors.Render(cli.FormatCompact(rt.Views.Uniques)) + muted.Render(" visitors  ") +
		clones.Render(cli.FormatCompact(rt.Clones.Count)) + muted.Render(" clones")

	if len(series) > 0 {
		body += "\n" + Sparkline(viewVals, t.Views, bg) + muted.Render(" ") + Sparkline(cloneVals, t.Clones, bg)
	}

	ref := "no referrers"
	if top, ok := pipeline.TopReferrer(rt); ok {
		ref = fmt.Sprintf("top: %s (%s)", top.Referrer, cli.FormatCompact(top.Count))
	}
	body += "\n" + muted.Render(truncate(ref, CardInnerWidth(outerWidth)))

	return contentCard(pipeline.ShortName(rt.Repo), body, outerWidth, focused)
}

// CardRow joins pre-rendered card strings horizontally. Shorter cards are
// padded with background-filled lines so the row has no unstyled gaps.
func CardRow(cards []string) string {
	if len(cards) == 0 {
		return ""
	}

	maxH := 0
	for _, c := range cards {
		if h := lipgloss.Height(c); h > maxH {
			maxH = h
		}
	}

	fill := lipgloss.NewStyle().Background(theme.Active.Background)
	padded := make([]string, len(cards))
	for i, c := range cards {
		if h := lipgloss.Height(c); h < maxH {
			blank := fill.Render(strings.Repeat(" ", lipgloss.Width(c)))
			c += strings.Repeat("\n"+blank, maxH-h)
		}
		padded[i] = c
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, padded...)
}

// CardInnerWidth returns the usable text width inside a ContentCard
// given its outer width (subtracts border + padding).
func CardInnerWidth(outerWidth int) int {
	w := outerWidth - 4
	if w < 10 {
		w = 10
	}
	return w
}

func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	if limit <= 1 {
		return "…"
	}
	return string(runes[:limit-1]) + "…"
}
