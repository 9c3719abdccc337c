package tui

import (
	"fmt"
	"sort"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/theirongolddev/ghtraffic/internal/cli"
	"github.com/theirongolddev/ghtraffic/internal/model"
	"github.com/theirongolddev/ghtraffic/internal/pipeline"
	"github.com/theirongolddev/ghtraffic/internal/tui/components"
	"github.com/theirongolddev/ghtraffic/internal/tui/theme"
)

const historyChartHeight = 8

// historyState selects the repository and range shown on the History tab.
type historyState struct {
	repoIdx  int // 0 = all repositories, otherwise index+1 into HistoryRepos
	rangeIdx int // index into pipeline.HistoryRanges
}

func newHistoryState() historyState {
	st := historyState{}
	for i, d := range pipeline.HistoryRanges {
		if d == 30 {
			st.rangeIdx = i
		}
	}
	return st
}

func (s historyState) days() int {
	return pipeline.HistoryRanges[s.rangeIdx]
}

// repo returns the selected repository, or "all".
func (s historyState) repo(repos []string) string {
	if s.repoIdx == 0 || s.repoIdx > len(repos) {
		return "all"
	}
	return repos[s.repoIdx-1]
}

func (s historyState) repoLabel(repos []string) string {
	if r := s.repo(repos); r != "all" {
		return r
	}
	return "all repositories"
}

func (s *historyState) clamp(nRepos int) {
	if s.repoIdx > nRepos {
		s.repoIdx = 0
	}
}

func (a App) updateHistoryKey(key string) (tea.Model, tea.Cmd) {
	n := len(pipeline.HistoryRepos(a.history)) + 1
	switch key {
	case "n", "j", "down":
		a.hist.repoIdx = (a.hist.repoIdx + 1) % n
	case "p", "k", "up":
		a.hist.repoIdx = (a.hist.repoIdx - 1 + n) % n
	case "t":
		a.hist.rangeIdx = (a.hist.rangeIdx + 1) % len(pipeline.HistoryRanges)
	}
	return a, nil
}

func (a App) renderHistoryTab(cw int) string {
	t := theme.Active
	muted := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Background)

	repos := pipeline.HistoryRepos(a.history)
	rows := pipeline.FilterHistory(a.history, a.hist.repo(repos), a.hist.days(), a.opts.Now())
	daily := pipeline.AggregateByDate(rows)

	if len(daily) == 0 {
		return "\n" + muted.Render(fmt.Sprintf("  No traffic recorded for %s in the last %d days.",
			a.hist.repoLabel(repos), a.hist.days()))
	}

	var total model.DailyTotal
	peak := daily[0]
	dates := make([]string, len(daily))
	views := make([]int64, len(daily))
	clones := make([]int64, len(daily))
	for i, d := range daily {
		total.Views += d.Views
		total.Visitors += d.Visitors
		total.Clones += d.Clones
		if d.Views > peak.Views {
			peak = d
		}
		dates[i] = d.Date
		views[i] = d.Views
		clones[i] = d.Clones
	}

	var b strings.Builder
	b.WriteString(components.MetricCardRow([]components.Metric{
		{Label: "Views", Value: cli.FormatNumber(total.Views), Color: t.Views},
		{Label: "Visitor-days", Value: cli.FormatNumber(total.Visitors), Color: t.Visitors},
		{Label: "Clones", Value: cli.FormatNumber(total.Clones), Color: t.Clones},
		{Label: "Busiest day", Value: cli.FormatDate(peak.Date) + " · " + cli.FormatCompact(peak.Views)},
	}, cw))
	b.WriteString("\n")

	labels := components.DateLabels(dates)
	chartW := components.CardInnerWidth(cw)

	if a.isCompactLayout() {
		b.WriteString(components.ContentCard("Daily views",
			components.BarChart(views, labels, t.Views, chartW, historyChartHeight), cw))
		b.WriteString("\n")
		b.WriteString(components.ContentCard("Daily clones",
			components.BarChart(clones, labels, t.Clones, chartW, historyChartHeight), cw))
	} else {
		widths := components.LayoutRow(cw, 2)
		b.WriteString(components.CardRow([]string{
			components.ContentCard("Daily views",
				components.BarChart(views, labels, t.Views, components.CardInnerWidth(widths[0]), historyChartHeight), widths[0]),
			components.ContentCard("Daily clones",
				components.BarChart(clones, labels, t.Clones, components.CardInnerWidth(widths[1]), historyChartHeight), widths[1]),
		}))
	}
	b.WriteString("\n")

	if a.hist.repo(repos) == "all" {
		b.WriteString(renderTopRepos(rows, cw))
	}
	return b.String()
}

// renderTopRepos ranks repositories by views within rows.
func renderTopRepos(rows []model.DailyTraffic, cw int) string {
	t := theme.Active
	const limit = 8

	byRepo := make(map[string]int64)
	for _, r := range rows {
		byRepo[r.Repo] += r.Views
	}
	names := make([]string, 0, len(byRepo))
	for name := range byRepo {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		if byRepo[names[i]] != byRepo[names[j]] {
			return byRepo[names[i]] > byRepo[names[j]]
		}
		return names[i] < names[j]
	})
	if len(names) > limit {
		names = names[:limit]
	}

	inner := components.CardInnerWidth(cw)
	nameW := 28
	barMax := inner - nameW - 10
	if barMax < 5 {
		barMax = 5
	}
	maxViews := byRepo[names[0]]
	if maxViews == 0 {
		maxViews = 1
	}

	nameStyle := lipgloss.NewStyle().Foreground(t.TextPrimary).Background(t.Surface)
	barStyle := lipgloss.NewStyle().Foreground(t.Views).Background(t.Surface)
	numStyle := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)

	lines := make([]string, 0, len(names))
	for _, name := range names {
		w := int(float64(byRepo[name]) / float64(maxViews) * float64(barMax))
		lines = append(lines,
			nameStyle.Render(fmt.Sprintf("%-*s", nameW, truncStr(pipeline.ShortName(name), nameW)))+
				barStyle.Render(strings.Repeat("█", w))+
				numStyle.Render(" "+cli.FormatCompact(byRepo[name])))
	}
	return components.ContentCard("Top repositories by views", strings.Join(lines, "\n"), cw)
}

func truncStr(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	if limit <= 1 {
		return "…"
	}
	return string(runes[:limit-1]) + "…"
}
