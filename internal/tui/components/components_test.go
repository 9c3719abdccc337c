package components

import (
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"github.com/theirongolddev/ghtraffic/internal/model"
	"github.com/theirongolddev/ghtraffic/internal/tui/theme"
)

func init() {
	// Force TrueColor output so ANSI codes are generated in tests
	lipgloss.SetColorProfile(termenv.TrueColor)
}

func TestLayoutRow(t *testing.T) {
	widths := LayoutRow(80, 3)
	sum := 0
	for _, w := range widths {
		sum += w
	}
	if sum != 80 {
		t.Errorf("widths %v sum to %d, want 80", widths, sum)
	}
	if widths[0] != 27 || widths[2] != 26 {
		t.Errorf("widths = %v, want remainder on the first cards", widths)
	}
	if LayoutRow(10, 0) != nil {
		t.Error("LayoutRow(10, 0) should be nil")
	}
}

func TestCardRowBackgroundFill(t *testing.T) {
	theme.SetActive("flexoki-dark")

	shortCard := ContentCard("Short", "Content", 22)
	tallCard := ContentCard("Tall", "Line 1\nLine 2\nLine 3\nLine 4\nLine 5", 22)

	shortLines := lipgloss.Height(shortCard)
	tallLines := lipgloss.Height(tallCard)
	if shortLines >= tallLines {
		t.Fatal("short card should be shorter than tall card")
	}

	lines := strings.Split(CardRow([]string{tallCard, shortCard}), "\n")
	if len(lines) != tallLines {
		t.Fatalf("joined height = %d, want %d", len(lines), tallLines)
	}
	for i := shortLines; i < len(lines); i++ {
		if lipgloss.Width(lines[i]) != 44 {
			t.Errorf("line %d width = %d, want 44", i, lipgloss.Width(lines[i]))
		}
		if !strings.HasSuffix(lines[i], "\x1b[0m") {
			t.Errorf("padding line %d has no styled background: %q", i, lines[i])
		}
	}
}

func TestRepoCard(t *testing.T) {
	rt := model.RepoTraffic{
		Repo:  "acme/widget",
		Views: model.TrafficSeries{Count: 1500, Uniques: 40, Points: []model.TrafficPoint{{Timestamp: "2024-01-01T00:00:00Z", Count: 1500}}},
		Referrers: []model.Referrer{
			{Referrer: "github.com", Count: 12},
		},
	}

	card := RepoCard(rt, 40, false)
	for _, want := range []string{"widget", "1.5K", "views", "top: github.com (12)"} {
		if !strings.Contains(stripANSI(card), want) {
			t.Errorf("card missing %q:\n%s", want, stripANSI(card))
		}
	}

	empty := RepoCard(model.RepoTraffic{Repo: "acme/quiet"}, 40, true)
	if !strings.Contains(stripANSI(empty), "no referrers") {
		t.Errorf("empty card missing placeholder:\n%s", stripANSI(empty))
	}
}

func TestSparkline(t *testing.T) {
	got := stripANSI(Sparkline([]float64{0, 1, 2}, theme.Active.Views, theme.Active.Surface))
	if got != "▁▄█" {
		t.Errorf("Sparkline = %q, want ▁▄█", got)
	}
	if Sparkline(nil, theme.Active.Views, theme.Active.Surface) != "" {
		t.Error("empty sparkline should render nothing")
	}
}

func TestCountAxis(t *testing.T) {
	tests := []struct {
		peak          int64
		maxTicks      int
		step, ceiling int64
	}{
		{0, 4, 1, 1},
		{4, 2, 2, 4},
		{7, 4, 2, 8},
		{23, 4, 10, 30},
		{1800, 4, 500, 2000},
	}
	for _, tt := range tests {
		step, ceiling := CountAxis(tt.peak, tt.maxTicks)
		if step != tt.step || ceiling != tt.ceiling {
			t.Errorf("CountAxis(%d, %d) = %d, %d, want %d, %d", tt.peak, tt.maxTicks, step, ceiling, tt.step, tt.ceiling)
		}
	}
}

func TestBarChart(t *testing.T) {
	out := stripANSI(BarChart([]int64{1, 3, 4}, []string{"a", "b", "c"}, theme.Active.Views, 30, 4))
	lines := strings.Split(out, "\n")
	if len(lines) != 6 {
		t.Fatalf("lines = %d, want 6:\n%s", len(lines), out)
	}
	if !strings.HasPrefix(lines[0], "   4│") || !strings.HasSuffix(lines[0], "██████") {
		t.Errorf("top row = %q, want 4 tick and only the tallest bar", lines[0])
	}
	if !strings.HasPrefix(lines[1], "    │") {
		t.Errorf("row 3 = %q, want no tick", lines[1])
	}
	if lines[4] != "   0└"+strings.Repeat("─", 20) {
		t.Errorf("axis = %q", lines[4])
	}
	if got := strings.TrimSpace(lines[5]); got != "a      b      c" {
		t.Errorf("labels = %q", got)
	}
}

func TestBucketDays(t *testing.T) {
	counts, labels := bucketDays([]int64{1, 2, 3, 4, 5}, []string{"a", "b", "c", "d", "e"}, 2)
	if len(counts) != 2 || counts[0] != 6 || counts[1] != 9 {
		t.Errorf("counts = %v, want [6 9]", counts)
	}
	if len(labels) != 2 || labels[0] != "a" || labels[1] != "d" {
		t.Errorf("labels = %v, want [a d]", labels)
	}
}

func TestDateLabels(t *testing.T) {
	got := DateLabels([]string{"2024-01-30", "2024-01-31", "2024-02-01", "2024-02-02"})
	want := []string{"Jan", "31", "Feb", "2"}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("labels = %v, want %v", got, want)
			break
		}
	}
}

func TestTabs(t *testing.T) {
	if TabIdxByKey('h') != 1 || TabIdxByKey('e') != 2 || TabIdxByKey('z') != -1 {
		t.Error("TabIdxByKey mapping is wrong")
	}

	bar := RenderTabBar(0, 60)
	if w := lipgloss.Width(bar); w != 60 {
		t.Errorf("tab bar width = %d, want 60", w)
	}

	// Column 1 starts the first tab; the second begins after it plus the gap.
	if TabAtX(1, 0) != 0 {
		t.Error("x=1 should hit the first tab")
	}
	second := 1 + TabVisualWidth(0, 0) + len(tabGap)
	if TabAtX(second, 0) != 1 {
		t.Errorf("x=%d should hit the second tab", second)
	}
	if TabAtX(0, 0) != -1 {
		t.Error("x=0 is the leading margin")
	}
}

func TestRateLimitBarCountdown(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	got := stripANSI(RateLimitBar("API", 0.95, now.Add(90*time.Minute), now, 4, 10))
	if !strings.Contains(got, " 95%") || !strings.Contains(got, "resets in 1h 30m") {
		t.Errorf("RateLimitBar = %q", got)
	}
	if ColorForPct(0.95) != string(theme.Active.Error) || ColorForPct(0.1) != string(theme.Active.Clones) {
		t.Error("ColorForPct thresholds are wrong")
	}
}

func TestStatusBarFitsWidth(t *testing.T) {
	bar := RenderStatusBar(100, StatusInfo{Hints: "[r]efresh", Repos: 3, DataAge: "just now"})
	if w := lipgloss.Width(bar); w != 100 {
		t.Errorf("status bar width = %d, want 100", w)
	}
	if !strings.Contains(stripANSI(bar), "3 repos") {
		t.Errorf("status bar = %q", stripANSI(bar))
	}
}

func stripANSI(s string) string {
	var b strings.Builder
	inEsc := false
	for _, r := range s {
		switch {
		case r == '\x1b':
			inEsc = true
		case inEsc:
			if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') {
				inEsc = false
			}
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}
