package components

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/theirongolddev/ghtraffic/internal/tui/theme"
)

// StatusInfo is what the bottom bar reports besides the key hints.
type StatusInfo struct {
	Hints     string // key hints for the active tab
	Repos     int
	DataAge   string // "" before the first load
	Err       string // last read or collect error
	RateUsed  float64
	RateKnown bool
}

// RenderStatusBar renders the bottom status bar.
func RenderStatusBar(width int, info StatusInfo) string {
	t := theme.Active

	base := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)
	errStyle := lipgloss.NewStyle().Foreground(t.Error).Background(t.Surface)

	left := base.Render(" " + info.Hints + "  [?]help  [q]uit")

	var right []string
	if info.Err != "" {
		right = append(right, errStyle.Render(truncate(info.Err, width/3)))
	}
	if info.RateKnown {
		right = append(right, CompactRateBar("API", info.RateUsed, 20))
	}
	if info.DataAge != "" {
		right = append(right, base.Render(pluralRepos(info.Repos)+"  "+info.DataAge+" "))
	}
	r := strings.Join(right, base.Render("  "))

	padding := width - lipgloss.Width(left) - lipgloss.Width(r)
	if padding < 0 {
		padding = 0
	}
	return left + base.Render(strings.Repeat(" ", padding)) + r
}

func pluralRepos(n int) string {
	if n == 1 {
		return "1 repo"
	}
	return fmt.Sprintf("%d repos", n)
}
