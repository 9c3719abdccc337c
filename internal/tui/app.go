// Package tui provides the interactive Bubble Tea dashboard for ghtraffic.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/theirongolddev/ghtraffic/internal/cli"
	"github.com/theirongolddev/ghtraffic/internal/config"
	"github.com/theirongolddev/ghtraffic/internal/github"
	"github.com/theirongolddev/ghtraffic/internal/model"
	"github.com/theirongolddev/ghtraffic/internal/pipeline"
	"github.com/theirongolddev/ghtraffic/internal/tui/components"
	"github.com/theirongolddev/ghtraffic/internal/tui/theme"
)

// Source serves the stored traffic the dashboard displays.
type Source interface {
	Summaries(ctx context.Context) pipeline.Result[[]model.RepoTraffic]
	History(ctx context.Context) pipeline.Result[[]model.DailyTraffic]
}

// CollectFunc runs one collection batch, calling progress after each repository.
type CollectFunc func(ctx context.Context, progress func(done, total int)) (pipeline.BatchReport, error)

// Options configures the dashboard.
type Options struct {
	Source Source
	// Collect enables the [c]ollect key. Nil hides it.
	Collect CollectFunc
	// RateLimit reports the GitHub quota for the status bar. Nil hides it.
	RateLimit func() github.RateStatus
	// RefreshInterval reloads from the store periodically. Zero disables it.
	RefreshInterval time.Duration
	// NeedSetup shows the setup form after the first load. Answers are
	// saved to ConfigPath (default config.Path()).
	NeedSetup  bool
	ConfigPath string
	Now       func() time.Time
}

// DataLoadedMsg is sent when a read from the store finishes.
type DataLoadedMsg struct {
	Summaries pipeline.Result[[]model.RepoTraffic]
	History   pipeline.Result[[]model.DailyTraffic]
	LoadTime  time.Duration
}

// CollectProgressMsg reports collection progress.
type CollectProgressMsg struct {
	Done  int
	Total int
}

// CollectDoneMsg is sent when a collection batch finishes.
type CollectDoneMsg struct {
	Report pipeline.BatchReport
	Err    error
}

type refreshTickMsg time.Time

// App is the root Bubble Tea model.
type App struct {
	opts Options

	// Data
	summaries []model.RepoTraffic
	history   []model.DailyTraffic
	readErr   error
	loaded    bool
	loadTime  time.Duration

	lastRefresh time.Time
	refreshing  bool

	// UI state
	width     int
	height    int
	activeTab int
	showHelp  bool

	// Per-tab state
	overview  overviewState
	hist      historyState
	referrers referrersState

	// Collection
	collecting   bool
	collectDone  int
	collectTotal int
	collectSub    chan tea.Msg
	collectCancel context.CancelFunc
	lastReport   *pipeline.BatchReport
	collectErr   error

	// First-run setup (huh form)
	setupForm *huh.Form
	setupVals *SetupValues // shared with the form across model copies
	setupErr  error
	needSetup bool

	spinner spinner.Model
}

const (
	minTerminalWidth = 80
	compactWidth     = 120
	maxContentWidth  = 180

	minContentHeight = 5
	readTimeout      = 30 * time.Second
)

const (
	tabOverview = iota
	tabHistory
	tabReferrers
)

// NewApp creates a new TUI app model.
func NewApp(opts Options) App {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.ConfigPath == "" {
		opts.ConfigPath = config.Path()
	}

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(theme.Active.Accent).Background(theme.Active.Surface)

	return App{
		opts:      opts,
		needSetup: opts.NeedSetup,
		overview:  newOverviewState(),
		hist:      newHistoryState(),
		spinner:   sp,
	}
}

// Init implements tea.Model.
func (a App) Init() tea.Cmd {
	cmds := []tea.Cmd{
		tea.EnableMouseCellMotion,
		loadDataCmd(a.opts.Source),
		a.spinner.Tick,
	}
	if a.opts.RefreshInterval > 0 {
		cmds = append(cmds, refreshTickCmd(a.opts.RefreshInterval))
	}
	return tea.Batch(cmds...)
}

// Update implements tea.Model.
func (a App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		if a.setupForm != nil {
			a.setupForm = a.setupForm.WithWidth(msg.Width).WithHeight(msg.Height)
		}
		return a, nil

	case tea.MouseMsg:
		if !a.loaded || a.showHelp || a.setupForm != nil {
			return a, nil
		}
		return a.updateMouse(msg)

	case tea.KeyMsg:
		return a.updateKey(msg)

	case DataLoadedMsg:
		a.applyData(msg)

		if a.needSetup && a.setupForm == nil {
			vals := SetupValuesFrom(loadConfigOrDefault(a.opts.ConfigPath))
			a.setupVals = &vals
			a.setupForm = NewSetupForm(a.setupVals, a.opts.ConfigPath)
			if a.width > 0 {
				a.setupForm = a.setupForm.WithWidth(a.width).WithHeight(a.height)
			}
			return a, a.setupForm.Init()
		}
		return a, nil

	case refreshTickMsg:
		cmds := []tea.Cmd{refreshTickCmd(a.opts.RefreshInterval)}
		if !a.refreshing && !a.collecting {
			a.refreshing = true
			cmds = append(cmds, loadDataCmd(a.opts.Source))
		}
		return a, tea.Batch(cmds...)

	case CollectProgressMsg:
		a.collectDone = msg.Done
		a.collectTotal = msg.Total
		return a, waitForCollectMsg(a.collectSub)

	case CollectDoneMsg:
		a.collecting = false
		a.collectSub = nil
		if a.collectCancel != nil {
			a.collectCancel()
			a.collectCancel = nil
		}
		report := msg.Report
		a.lastReport = &report
		a.collectErr = msg.Err
		a.refreshing = true
		return a, loadDataCmd(a.opts.Source)

	case spinner.TickMsg:
		var cmd tea.Cmd
		a.spinner, cmd = a.spinner.Update(msg)
		return a, cmd
	}

	if a.setupForm != nil {
		return a.updateSetupForm(msg)
	}
	return a, nil
}

func (a App) updateKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()

	if key == "ctrl+c" {
		return a.quit()
	}
	if !a.loaded {
		return a, nil
	}

	// First-run setup intercepts all keys
	if a.setupForm != nil {
		return a.updateSetupForm(msg)
	}

	// Search mode intercepts all keys while typing
	if a.activeTab == tabOverview && a.overview.searching {
		return a.updateOverviewSearch(msg)
	}

	if key == "?" {
		a.showHelp = !a.showHelp
		return a, nil
	}
	if a.showHelp {
		a.showHelp = false
		return a, nil
	}

	switch key {
	case "q":
		return a.quit()
	case "r":
		if !a.refreshing && !a.collecting {
			a.refreshing = true
			return a, loadDataCmd(a.opts.Source)
		}
		return a, nil
	case "c":
		return a.startCollect()
	case "left", "shift+tab":
		a.activeTab = (a.activeTab - 1 + len(components.Tabs)) % len(components.Tabs)
		return a, nil
	case "right", "tab":
		a.activeTab = (a.activeTab + 1) % len(components.Tabs)
		return a, nil
	}

	if len(msg.Runes) == 1 {
		if idx := components.TabIdxByKey(msg.Runes[0]); idx >= 0 {
			a.activeTab = idx
			return a, nil
		}
	}

	switch a.activeTab {
	case tabOverview:
		return a.updateOverviewKey(key)
	case tabHistory:
		return a.updateHistoryKey(key)
	case tabReferrers:
		return a.updateReferrersKey(key)
	}
	return a, nil
}

func (a App) updateMouse(msg tea.MouseMsg) (tea.Model, tea.Cmd) {
	switch msg.Button {
	case tea.MouseButtonWheelUp:
		return a.updateKeyString("k")
	case tea.MouseButtonWheelDown:
		return a.updateKeyString("j")
	case tea.MouseButtonLeft:
		if msg.Action == tea.MouseActionPress && msg.Y == 0 {
			if tab := a.tabAtX(msg.X); tab >= 0 {
				a.activeTab = tab
			}
		}
	}
	return a, nil
}

func (a App) updateKeyString(key string) (tea.Model, tea.Cmd) {
	switch a.activeTab {
	case tabOverview:
		return a.updateOverviewKey(key)
	case tabReferrers:
		return a.updateReferrersKey(key)
	}
	return a, nil
}

func (a *App) applyData(msg DataLoadedMsg) {
	a.summaries = msg.Summaries.Data
	a.history = msg.History.Data
	a.readErr = msg.Summaries.Err
	if a.readErr == nil {
		a.readErr = msg.History.Err
	}
	a.loaded = true
	a.refreshing = false
	a.loadTime = msg.LoadTime
	a.lastRefresh = a.opts.Now()

	a.overview.clamp(len(a.visibleRepos()))
	a.hist.clamp(len(pipeline.HistoryRepos(a.history)))
}

func (a App) startCollect() (tea.Model, tea.Cmd) {
	if a.opts.Collect == nil || a.collecting {
		return a, nil
	}
	a.collecting = true
	a.collectDone = 0
	a.collectTotal = 0
	a.collectErr = nil
	a.collectSub = make(chan tea.Msg, 1)
	ctx, cancel := context.WithCancel(context.Background())
	a.collectCancel = cancel
	return a, tea.Batch(collectCmd(ctx, a.opts.Collect, a.collectSub), a.spinner.Tick)
}

// quit stops a running collection before exiting.
func (a App) quit() (tea.Model, tea.Cmd) {
	if a.collectCancel != nil {
		a.collectCancel()
	}
	return a, tea.Quit
}

func (a App) updateSetupForm(msg tea.Msg) (tea.Model, tea.Cmd) {
	form, cmd := a.setupForm.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		a.setupForm = f
	}

	switch a.setupForm.State {
	case huh.StateCompleted:
		cfg := loadConfigOrDefault(a.opts.ConfigPath)
		a.setupVals.Apply(&cfg)
		a.setupErr = config.SaveTo(a.opts.ConfigPath, cfg)
		theme.SetActive(cfg.Appearance.Theme)
		a.needSetup = false
		a.setupForm = nil
		return a, nil
	case huh.StateAborted:
		a.needSetup = false
		a.setupForm = nil
		return a, nil
	}
	return a, cmd
}

func (a App) contentWidth() int {
	cw := a.width
	if cw > maxContentWidth {
		cw = maxContentWidth
	}
	return cw
}

func (a App) isCompactLayout() bool {
	return a.contentWidth() < compactWidth
}

// View implements tea.Model.
func (a App) View() string {
	if a.width == 0 {
		return ""
	}
	if a.width < minTerminalWidth {
		return a.viewTooNarrow()
	}
	if !a.loaded {
		return a.viewLoading()
	}
	if a.setupForm != nil {
		return a.setupForm.View()
	}
	if a.showHelp {
		return a.viewHelp()
	}
	return a.viewMain()
}

func (a App) viewTooNarrow() string {
	h := a.height
	if h < 5 {
		h = 5
	}
	msg := fmt.Sprintf(
		"\n  Terminal too narrow (%d cols)\n\n  ghtraffic needs at least %d columns.\n",
		a.width,
		minTerminalWidth,
	)
	return padHeight(truncateHeight(msg, h), h)
}

func (a App) viewLoading() string {
	t := theme.Active

	cardStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(t.BorderAccent).
		Background(t.Surface).
		Padding(2, 4)
	logoStyle := lipgloss.NewStyle().Foreground(t.AccentBright).Background(t.Surface).Bold(true)
	subtitleStyle := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)

	body := logoStyle.Render("◈ ghtraffic") +
		subtitleStyle.Render(" · Repository Traffic") + "\n\n" +
		a.spinner.View() + subtitleStyle.Render(" Reading traffic history...")

	return lipgloss.Place(a.width, a.height, lipgloss.Center, lipgloss.Center, cardStyle.Render(body),
		lipgloss.WithWhitespaceBackground(t.Background))
}

type binding struct{ key, desc string }

func (a App) viewHelp() string {
	t := theme.Active

	cardStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(t.BorderAccent).
		Background(t.Surface).
		Padding(1, 3)
	titleStyle := lipgloss.NewStyle().Foreground(t.AccentBright).Background(t.Surface).Bold(true)
	sectionStyle := lipgloss.NewStyle().Foreground(t.Accent).Background(t.Surface).Bold(true)
	keyStyle := lipgloss.NewStyle().Foreground(t.Views).Background(t.Surface).Bold(true)
	descStyle := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)
	dimStyle := lipgloss.NewStyle().Foreground(t.TextDim).Background(t.Surface)

	sections := []struct {
		title    string
		bindings []binding
	}{
		{"Navigation", []binding{
			{"o h e", "Jump to tab"},
			{"← →", "Previous / Next tab"},
			{"j k", "Move selection / scroll"},
			{"g G", "First / Last repository"},
		}},
		{"Overview", []binding{
			{"/", "Search repositories"},
			{"Esc", "Clear search"},
			{"s", "Cycle sort (views, visitors, clones, name)"},
			{"a", "Show / hide repositories without visitors"},
		}},
		{"History", []binding{
			{"n p", "Next / Previous repository"},
			{"t", "Cycle range (7, 30, 90 days)"},
		}},
		{"Actions", []binding{
			{"r", "Reload from database"},
			{"c", "Collect from GitHub now"},
			{"?", "Toggle help"},
			{"q", "Quit"},
		}},
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("◈ Keyboard Shortcuts"))
	b.WriteString("\n")
	for _, sec := range sections {
		b.WriteString("\n")
		b.WriteString(sectionStyle.Render(sec.title))
		b.WriteString("\n")
		for _, bind := range sec.bindings {
			if bind.key == "c" && a.opts.Collect == nil {
				continue
			}
			fmt.Fprintf(&b, "  %s  %s\n",
				keyStyle.Render(fmt.Sprintf("%-8s", bind.key)),
				descStyle.Render(bind.desc))
		}
	}
	b.WriteString("\n")
	b.WriteString(dimStyle.Render("Press any key to close"))

	return lipgloss.Place(a.width, a.height, lipgloss.Center, lipgloss.Center, cardStyle.Render(b.String()),
		lipgloss.WithWhitespaceBackground(t.Background))
}

func (a App) viewMain() string {
	t := theme.Active
	w := a.width
	cw := a.contentWidth()
	h := a.height

	// 1. Header: tab bar + context line
	header := components.RenderTabBar(a.activeTab, w) + "\n" +
		lipgloss.NewStyle().Background(t.Surface).Width(w).Render(a.contextLine())

	// 2. Status bar
	statusBar := components.RenderStatusBar(w, a.statusInfo())

	// 3. Content zone height
	contentH := h - lipgloss.Height(header) - lipgloss.Height(statusBar)
	if contentH < minContentHeight {
		contentH = minContentHeight
	}

	var content string
	switch a.activeTab {
	case tabOverview:
		content = a.renderOverviewTab(cw, contentH)
	case tabHistory:
		content = a.renderHistoryTab(cw)
	case tabReferrers:
		content = a.renderReferrersTab(cw, contentH)
	}
	if a.collecting {
		content = a.renderCollectCard(cw) + "\n" + content
	}

	// 4. Truncate + pad to exactly contentH lines, fill gaps with background
	content = padHeight(truncateHeight(content, contentH), contentH)
	content = fillLinesWithBackground(content, cw, t.Background)
	content = lipgloss.Place(w, contentH, lipgloss.Center, lipgloss.Top, content,
		lipgloss.WithWhitespaceBackground(t.Background))

	output := lipgloss.JoinVertical(lipgloss.Left, header, content, statusBar)
	return lipgloss.Place(w, h, lipgloss.Left, lipgloss.Top, output,
		lipgloss.WithWhitespaceBackground(t.Background))
}

// contextLine describes the active tab's filter state.
func (a App) contextLine() string {
	t := theme.Active
	dim := lipgloss.NewStyle().Foreground(t.TextDim).Background(t.Surface)
	accent := lipgloss.NewStyle().Foreground(t.Accent).Background(t.Surface).Bold(true)
	sep := dim.Render(" │ ")

	switch a.activeTab {
	case tabOverview:
		s := dim.Render(" ") + accent.Render(fmt.Sprintf("%dd", pipeline.SummaryDays)) +
			sep + dim.Render("sort ") + accent.Render(string(a.overview.sortKey))
		if a.overview.query != "" {
			s += sep + dim.Render("search ") + accent.Render(a.overview.query)
		}
		if a.overview.showEmpty {
			s += sep + accent.Render("all repos")
		}
		return s
	case tabHistory:
		return dim.Render(" ") + accent.Render(fmt.Sprintf("%dd", a.hist.days())) +
			sep + accent.Render(a.hist.repoLabel(pipeline.HistoryRepos(a.history)))
	default:
		return dim.Render(" ") + accent.Render(fmt.Sprintf("%dd", pipeline.SummaryDays)) +
			sep + dim.Render("referrers summed per repository")
	}
}

func (a App) statusInfo() components.StatusInfo {
	info := components.StatusInfo{Repos: len(a.summaries)}

	switch a.activeTab {
	case tabOverview:
		info.Hints = "[/]search  [s]ort  [a]ll"
	case tabHistory:
		info.Hints = "[n/p]repo  [t]ange"
	case tabReferrers:
		info.Hints = "[j/k]scroll"
	}
	if a.opts.Collect != nil {
		info.Hints += "  [c]ollect"
	}

	switch {
	case a.refreshing:
		info.DataAge = "refreshing..."
	case !a.lastRefresh.IsZero():
		info.DataAge = "read in " + cli.FormatDuration(a.loadTime) + " at " + a.lastRefresh.Format("15:04")
	}

	switch {
	case a.collectErr != nil:
		info.Err = a.collectErr.Error()
	case a.readErr != nil:
		info.Err = "read failed: " + a.readErr.Error()
	case a.setupErr != nil:
		info.Err = "config not saved: " + a.setupErr.Error()
	case a.lastReport != nil && len(a.lastReport.Failed()) > 0:
		info.Err = fmt.Sprintf("%d repos failed in last collect", len(a.lastReport.Failed()))
	}

	if a.opts.RateLimit != nil {
		if rs := a.opts.RateLimit(); rs.Known() {
			info.RateKnown = true
			info.RateUsed = rs.Used()
		}
	}
	return info
}

func (a App) renderCollectCard(cw int) string {
	t := theme.Active
	muted := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)

	barW := components.CardInnerWidth(cw) - 2
	if barW > 60 {
		barW = 60
	}

	var body string
	if a.collectTotal == 0 {
		body = a.spinner.View() + muted.Render(" Listing repositories...")
	} else {
		body = a.spinner.View() + muted.Render(" Collecting traffic") + "\n" +
			components.ProgressBar(a.collectDone, a.collectTotal, barW)
	}
	if a.opts.RateLimit != nil {
		if rs := a.opts.RateLimit(); rs.Known() {
			rateW := barW - 24
			if rateW < 10 {
				rateW = 10
			}
			body += "\n" + components.RateLimitBar("API quota", rs.Used(), rs.Reset, a.opts.Now(), 10, rateW)
		}
	}
	return components.ContentCard("Collect", body, cw)
}

// ─── Helpers ────────────────────────────────────────────────────

// loadConfigOrDefault loads config, returning defaults on error.
func loadConfigOrDefault(path string) config.Config {
	cfg, err := config.LoadFrom(path)
	if err != nil {
		return config.DefaultConfig()
	}
	return cfg
}

// loadDataCmd reads summaries and history from src in the background.
func loadDataCmd(src Source) tea.Cmd {
	return func() tea.Msg {
		start := time.Now()
		ctx, cancel := context.WithTimeout(context.Background(), readTimeout)
		defer cancel()

		return DataLoadedMsg{
			Summaries: src.Summaries(ctx),
			History:   src.History(ctx),
			LoadTime:  time.Since(start),
		}
	}
}

// collectCmd runs a batch in a background goroutine. It streams
// CollectProgressMsg updates and a final CollectDoneMsg through sub.
// Once ctx is canceled the goroutine stops sending and exits.
func collectCmd(ctx context.Context, collect CollectFunc, sub chan tea.Msg) tea.Cmd {
	return func() tea.Msg {
		go func() {
			send := func(msg tea.Msg) {
				select {
				case sub <- msg:
				case <-ctx.Done():
				}
			}
			report, err := collect(ctx, func(done, total int) {
				send(CollectProgressMsg{Done: done, Total: total})
			})
			send(CollectDoneMsg{Report: report, Err: err})
		}()
		select {
		case msg := <-sub:
			return msg
		case <-ctx.Done():
			return nil
		}
	}
}

// waitForCollectMsg blocks until the next message arrives from the collector goroutine.
func waitForCollectMsg(sub chan tea.Msg) tea.Cmd {
	return func() tea.Msg {
		return <-sub
	}
}

func refreshTickCmd(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg {
		return refreshTickMsg(t)
	})
}

func truncateHeight(s string, limit int) string {
	lines := strings.Split(s, "\n")
	if len(lines) <= limit {
		return s
	}
	return strings.Join(lines[:limit], "\n")
}

func padHeight(s string, h int) string {
	lines := strings.Split(s, "\n")
	if len(lines) >= h {
		return s
	}
	return s + strings.Repeat("\n", h-len(lines))
}

// fillLinesWithBackground pads each line to width w with background color.
func fillLinesWithBackground(s string, w int, bg lipgloss.Color) string {
	lines := strings.Split(s, "\n")

	var result strings.Builder
	for i, line := range lines {
		result.WriteString(lipgloss.PlaceHorizontal(w, lipgloss.Left, line,
			lipgloss.WithWhitespaceBackground(bg)))
		if i < len(lines)-1 {
			result.WriteString("\n")
		}
	}
	return result.String()
}

// ─── Mouse Support ──────────────────────────────────────────────

// tabAtX returns the tab index at the given X coordinate, or -1 if none.
func (a App) tabAtX(x int) int {
	return components.TabAtX(x, a.activeTab)
}
