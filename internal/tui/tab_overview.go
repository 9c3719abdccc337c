package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/theirongolddev/ghtraffic/internal/cli"
	"github.com/theirongolddev/ghtraffic/internal/model"
	"github.com/theirongolddev/ghtraffic/internal/pipeline"
	"github.com/theirongolddev/ghtraffic/internal/tui/components"
	"github.com/theirongolddev/ghtraffic/internal/tui/theme"
)

// overviewState tracks the repository grid.
type overviewState struct {
	cursor int

	searching   bool
	searchInput textinput.Model
	query       string

	sortKey   pipeline.SortKey
	showEmpty bool
}

func newOverviewState() overviewState {
	return overviewState{sortKey: pipeline.SortViews}
}

func newSearchInput() textinput.Model {
	ti := textinput.New()
	ti.Placeholder = "repository name..."
	ti.Prompt = "/ "
	ti.CharLimit = 100
	ti.Width = 40
	return ti
}

func (s *overviewState) clamp(n int) {
	if s.cursor >= n {
		s.cursor = n - 1
	}
	if s.cursor < 0 {
		s.cursor = 0
	}
}

// visibleRepos returns the summaries after search, empty-repo filter, and sort.
func (a App) visibleRepos() []model.RepoTraffic {
	data := pipeline.FilterRepos(a.summaries, a.overview.query, a.overview.showEmpty)
	pipeline.SortRepos(data, a.overview.sortKey)
	return data
}

func (a App) gridColumns() int {
	if a.isCompactLayout() {
		return 2
	}
	return 3
}

func (a App) updateOverviewKey(key string) (tea.Model, tea.Cmd) {
	n := len(a.visibleRepos())

	switch key {
	case "/":
		a.overview.searching = true
		a.overview.searchInput = newSearchInput()
		a.overview.searchInput.SetValue(a.overview.query)
		a.overview.searchInput.Focus()
		return a, a.overview.searchInput.Cursor.BlinkCmd()
	case "esc":
		a.overview.query = ""
		a.overview.cursor = 0
	case "s":
		a.overview.sortKey = nextSortKey(a.overview.sortKey)
		a.overview.cursor = 0
	case "a":
		a.overview.showEmpty = !a.overview.showEmpty
		a.overview.clamp(len(a.visibleRepos()))
	case "j", "down":
		if a.overview.cursor < n-1 {
			a.overview.cursor++
		}
	case "k", "up":
		if a.overview.cursor > 0 {
			a.overview.cursor--
		}
	case "g":
		a.overview.cursor = 0
	case "G":
		a.overview.cursor = n - 1
		a.overview.clamp(n)
	}
	return a, nil
}

// updateOverviewSearch handles key events while in search mode.
func (a App) updateOverviewSearch(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		a.overview.query = strings.TrimSpace(a.overview.searchInput.Value())
		a.overview.searching = false
		a.overview.cursor = 0
		return a, nil
	case "esc":
		a.overview.searching = false
		return a, nil
	}

	var cmd tea.Cmd
	a.overview.searchInput, cmd = a.overview.searchInput.Update(msg)
	return a, cmd
}

func nextSortKey(k pipeline.SortKey) pipeline.SortKey {
	for i, key := range pipeline.SortKeys {
		if key == k {
			return pipeline.SortKeys[(i+1)%len(pipeline.SortKeys)]
		}
	}
	return pipeline.SortViews
}

func (a App) renderOverviewTab(cw, contentH int) string {
	t := theme.Active
	muted := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Background)

	repos := a.visibleRepos()
	totals := pipeline.Totals(repos)

	var b strings.Builder
	b.WriteString(components.MetricCardRow([]components.Metric{
		{Label: "Repositories", Value: cli.FormatNumber(int64(totals.Repos))},
		{Label: "Views", Value: cli.FormatNumber(totals.Views), Color: t.Views},
		{Label: "Unique visitors", Value: cli.FormatNumber(totals.Visitors), Color: t.Visitors},
		{Label: "Clones", Value: cli.FormatNumber(totals.Clones), Color: t.Clones},
	}, cw))
	b.WriteString("\n")

	if a.overview.searching {
		b.WriteString(" " + a.overview.searchInput.View())
		b.WriteString("\n")
	}

	switch {
	case len(a.summaries) == 0:
		hint := "No traffic data yet. Run `ghtraffic collect`"
		if a.opts.Collect != nil {
			hint += " or press c"
		}
		b.WriteString("\n" + muted.Render("  "+hint+"."))
		return b.String()
	case len(repos) == 0:
		b.WriteString("\n" + muted.Render("  No repositories match. Press Esc to clear the search or a to include repositories without visitors."))
		return b.String()
	}

	cols := a.gridColumns()
	widths := components.LayoutRow(cw, cols)

	// Scroll so the cursor row stays on screen.
	cardH := lipgloss.Height(components.RepoCard(repos[0], widths[0], false))
	visibleRows := (contentH - lipgloss.Height(b.String())) / cardH
	if visibleRows < 1 {
		visibleRows = 1
	}
	offset := 0
	if cursorRow := a.overview.cursor / cols; cursorRow >= visibleRows {
		offset = cursorRow - visibleRows + 1
	}

	for row := offset; row < offset+visibleRows && row*cols < len(repos); row++ {
		cards := make([]string, 0, cols)
		for c := 0; c < cols; c++ {
			i := row*cols + c
			if i >= len(repos) {
				break
			}
			cards = append(cards, components.RepoCard(repos[i], widths[c], i == a.overview.cursor))
		}
		b.WriteString(components.CardRow(cards))
		b.WriteString("\n")
	}
	return b.String()
}
