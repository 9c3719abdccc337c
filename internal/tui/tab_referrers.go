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

// referrersState scrolls the referrer list.
type referrersState struct {
	offset int
}

func (a App) updateReferrersKey(key string) (tea.Model, tea.Cmd) {
	switch key {
	case "j", "down":
		a.referrers.offset++
	case "k", "up":
		if a.referrers.offset > 0 {
			a.referrers.offset--
		}
	case "g":
		a.referrers.offset = 0
	}
	return a, nil
}

// reposWithReferrers returns summaries that have referrers, busiest first.
func reposWithReferrers(data []model.RepoTraffic) []model.RepoTraffic {
	out := make([]model.RepoTraffic, 0, len(data))
	for _, rt := range data {
		if len(rt.Referrers) > 0 {
			out = append(out, rt)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return referrerSum(out[i]) > referrerSum(out[j])
	})
	return out
}

func referrerSum(rt model.RepoTraffic) int64 {
	var n int64
	for _, r := range rt.Referrers {
		n += r.Count
	}
	return n
}

func (a App) renderReferrersTab(cw, contentH int) string {
	t := theme.Active
	muted := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Background)

	repos := reposWithReferrers(a.summaries)
	if len(repos) == 0 {
		return "\n" + muted.Render(fmt.Sprintf("  No referrers recorded in the last %d days.", pipeline.SummaryDays))
	}

	inner := components.CardInnerWidth(cw)
	nameStyle := lipgloss.NewStyle().Foreground(t.TextPrimary).Background(t.Surface)
	countStyle := lipgloss.NewStyle().Foreground(t.Views).Background(t.Surface).Bold(true)
	uniqStyle := lipgloss.NewStyle().Foreground(t.Visitors).Background(t.Surface)
	headStyle := lipgloss.NewStyle().Foreground(t.TextDim).Background(t.Surface)

	nameW := inner - 22
	if nameW < 20 {
		nameW = 20
	}

	var lines []string
	for _, rt := range repos {
		body := []string{headStyle.Render(fmt.Sprintf("%-*s %10s %10s", nameW, "Source", "Views", "Uniques"))}
		for _, r := range rt.Referrers {
			body = append(body,
				nameStyle.Render(fmt.Sprintf("%-*s ", nameW, truncStr(r.Referrer, nameW)))+
					countStyle.Render(fmt.Sprintf("%10s", cli.FormatNumber(r.Count)))+
					uniqStyle.Render(fmt.Sprintf(" %10s", cli.FormatNumber(r.Uniques))))
		}
		card := components.ContentCard(rt.Repo, strings.Join(body, "\n"), cw)
		lines = append(lines, strings.Split(card, "\n")...)
	}

	offset := a.referrers.offset
	if maxOffset := len(lines) - contentH; offset > maxOffset {
		offset = maxOffset
	}
	if offset < 0 {
		offset = 0
	}
	return strings.Join(lines[offset:], "\n")
}
