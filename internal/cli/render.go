package cli

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/theirongolddev/ghtraffic/internal/model"
	"github.com/theirongolddev/ghtraffic/internal/pipeline"
)

// Theme colors (Flexoki Dark)
var (
	ColorBorder    = lipgloss.Color("#282726")
	ColorTextDim   = lipgloss.Color("#575653")
	ColorTextMuted = lipgloss.Color("#6F6E69")
	ColorText      = lipgloss.Color("#FFFCF0")
	ColorAccent    = lipgloss.Color("#3AA99F")
	ColorGreen     = lipgloss.Color("#879A39")
	ColorOrange    = lipgloss.Color("#DA702C")
	ColorRed       = lipgloss.Color("#D14D41")
	ColorBlue      = lipgloss.Color("#4385BE")
)

// Styles
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorText).
			Align(lipgloss.Center)

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorAccent)

	valueStyle = lipgloss.NewStyle().
			Foreground(ColorText)

	mutedStyle = lipgloss.NewStyle().
			Foreground(ColorTextMuted)

	viewStyle = lipgloss.NewStyle().
			Foreground(ColorBlue)

	cloneStyle = lipgloss.NewStyle().
			Foreground(ColorGreen)

	warnStyle = lipgloss.NewStyle().
			Foreground(ColorOrange)

	errStyle = lipgloss.NewStyle().
			Foreground(ColorRed)

	dimStyle = lipgloss.NewStyle().
			Foreground(ColorTextDim)
)

// Table represents a bordered text table for CLI output.
type Table struct {
	Title   string
	Headers []string
	Rows    [][]string
}

// RenderTitle renders a centered title bar in a bordered box.
func RenderTitle(title string) string {
	width := 55
	border := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ColorBorder).
		Width(width).
		Align(lipgloss.Center).
		Padding(0, 1)

	return border.Render(titleStyle.Render(title))
}

// RenderTable renders a bordered table with headers and rows. The first
// column is left-aligned and the rest right-aligned. A row holding the single
// cell "---" is drawn as a separator.
func RenderTable(t Table) string {
	if len(t.Rows) == 0 && len(t.Headers) == 0 {
		return ""
	}

	tbl := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(dimStyle).
		Headers(t.Headers...).
		StyleFunc(func(row, col int) lipgloss.Style {
			s := valueStyle
			if row == table.HeaderRow {
				s = headerStyle
			}
			s = s.Padding(0, 1)
			if col > 0 {
				s = s.Align(lipgloss.Right)
			}
			return s
		})

	numCols := len(t.Headers)
	for _, row := range t.Rows {
		if len(row) == 1 && row[0] == "---" {
			sep := make([]string, numCols)
			for i := range sep {
				sep[i] = dimStyle.Render("··")
			}
			tbl.Row(sep...)
			continue
		}
		tbl.Row(row...)
	}

	var b strings.Builder
	if t.Title != "" {
		b.WriteString("  ")
		b.WriteString(headerStyle.Render(t.Title))
		b.WriteString("\n")
	}
	b.WriteString(tbl.Render())
	b.WriteString("\n")
	return b.String()
}

// RenderSparkline generates a unicode block sparkline from a series of values.
func RenderSparkline(values []float64) string {
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

	var b strings.Builder
	for _, v := range values {
		idx := int(v / peak * float64(len(blocks)-1))
		if idx >= len(blocks) {
			idx = len(blocks) - 1
		}
		if idx < 0 {
			idx = 0
		}
		b.WriteRune(blocks[idx])
	}

	return b.String()
}

// RenderHorizontalBar renders a labelled horizontal bar chart entry.
func RenderHorizontalBar(label string, value, maxValue float64, maxWidth int) string {
	if maxValue <= 0 {
		return fmt.Sprintf("  %s", label)
	}
	barLen := int(value / maxValue * float64(maxWidth))
	if barLen < 0 {
		barLen = 0
	}
	bar := strings.Repeat("█", barLen)
	return fmt.Sprintf("  %-12s %s", label, viewStyle.Render(bar))
}

// RenderNoData renders the explicit empty state shown instead of a table.
func RenderNoData(what string) string {
	return "  " + mutedStyle.Render("No "+what+" yet. Run `ghtraffic collect` to fetch traffic.") + "\n"
}

// RenderReadError renders a failed read. The caller still renders the
// (empty) data below it.
func RenderReadError(err error) string {
	return "  " + errStyle.Render("Could not read traffic: "+err.Error()) + "\n"
}

// RenderSummaries renders per-repository totals with a views sparkline and
// the top referrer, followed by a totals row.
func RenderSummaries(data []model.RepoTraffic, days int) string {
	if len(data) == 0 {
		return RenderNoData("traffic")
	}

	rows := make([][]string, 0, len(data)+2)
	for _, rt := range data {
		spark := make([]float64, 0, len(rt.Views.Points))
		for _, p := range rt.Views.Points {
			spark = append(spark, float64(p.Count))
		}
		top := ""
		if ref, ok := pipeline.TopReferrer(rt); ok {
			top = fmt.Sprintf("%s (%s)", ref.Referrer, FormatCompact(ref.Count))
		}
		rows = append(rows, []string{
			rt.Repo,
			FormatNumber(rt.Views.Count),
			FormatNumber(rt.Views.Uniques),
			FormatNumber(rt.Clones.Count),
			FormatNumber(rt.Clones.Uniques),
			viewStyle.Render(RenderSparkline(spark)),
			top,
		})
	}

	totals := pipeline.Totals(data)
	rows = append(rows, []string{"---"}, []string{
		fmt.Sprintf("%d repos", totals.Repos),
		FormatNumber(totals.Views),
		FormatNumber(totals.Visitors),
		FormatNumber(totals.Clones),
		"", "", "",
	})

	return RenderTable(Table{
		Title:   fmt.Sprintf("Last %d days", days),
		Headers: []string{"Repository", "Views", "Visitors", "Clones", "Cloners", "Trend", "Top referrer"},
		Rows:    rows,
	})
}

// RenderHistory renders flat per-day rows, newest first. When daily is set,
// rows are summed per date across repositories instead.
func RenderHistory(rows []model.DailyTraffic, daily bool) string {
	if len(rows) == 0 {
		return RenderNoData("history")
	}

	if daily {
		totals := pipeline.AggregateByDate(rows)
		out := make([][]string, 0, len(totals))
		for i := len(totals) - 1; i >= 0; i-- {
			d := totals[i]
			out = append(out, []string{
				FormatDate(d.Date),
				FormatNumber(d.Views),
				FormatNumber(d.Visitors),
				FormatNumber(d.Clones),
			})
		}
		return RenderTable(Table{
			Title:   "Daily totals",
			Headers: []string{"Date", "Views", "Visitors", "Clones"},
			Rows:    out,
		})
	}

	out := make([][]string, 0, len(rows))
	for _, r := range rows {
		out = append(out, []string{
			r.Date,
			r.Repo,
			FormatNumber(r.Views),
			FormatNumber(r.Visitors),
			FormatNumber(r.Clones),
			FormatNumber(r.CloneUniques),
		})
	}
	return RenderTable(Table{
		Title:   "History",
		Headers: []string{"Date", "Repository", "Views", "Visitors", "Clones", "Cloners"},
		Rows:    out,
	})
}

// RenderReferrers renders each repository's referrers as horizontal bars.
func RenderReferrers(data []model.RepoTraffic) string {
	var b strings.Builder
	found := false
	for _, rt := range data {
		if len(rt.Referrers) == 0 {
			continue
		}
		found = true
		b.WriteString("  ")
		b.WriteString(headerStyle.Render(rt.Repo))
		b.WriteString("\n")
		peak := float64(rt.Referrers[0].Count)
		for _, ref := range rt.Referrers {
			b.WriteString(RenderHorizontalBar(ref.Referrer, float64(ref.Count), peak, 30))
			b.WriteString(" ")
			b.WriteString(mutedStyle.Render(fmt.Sprintf("%s / %s uniq", FormatNumber(ref.Count), FormatNumber(ref.Uniques))))
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}
	if !found {
		return RenderNoData("referrers")
	}
	return b.String()
}

// RenderBatchReport renders the outcome of a collection run.
func RenderBatchReport(r pipeline.BatchReport) string {
	var b strings.Builder
	failed := r.Failed()

	fmt.Fprintf(&b, "  %s %d/%d repositories as of %s in %s\n",
		cloneStyle.Render("Collected"),
		r.Succeeded(), r.Repos, r.AsOf,
		FormatDuration(r.FinishedAt.Sub(r.StartedAt)),
	)
	for _, o := range failed {
		fmt.Fprintf(&b, "  %s %s (%s): %v\n", warnStyle.Render("failed"), o.Repo, o.Stage, o.Err)
	}
	return b.String()
}
