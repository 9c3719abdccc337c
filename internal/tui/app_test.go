package tui

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/theirongolddev/ghtraffic/internal/config"
	"github.com/theirongolddev/ghtraffic/internal/model"
	"github.com/theirongolddev/ghtraffic/internal/pipeline"
	"github.com/theirongolddev/ghtraffic/internal/tui/components"
)

type stubSource struct {
	summaries []model.RepoTraffic
	history   []model.DailyTraffic
	err       error
}

func (s stubSource) Summaries(context.Context) pipeline.Result[[]model.RepoTraffic] {
	if s.err != nil {
		return pipeline.Result[[]model.RepoTraffic]{Data: []model.RepoTraffic{}, Err: s.err}
	}
	return pipeline.Result[[]model.RepoTraffic]{Data: s.summaries}
}

func (s stubSource) History(context.Context) pipeline.Result[[]model.DailyTraffic] {
	if s.err != nil {
		return pipeline.Result[[]model.DailyTraffic]{Data: []model.DailyTraffic{}, Err: s.err}
	}
	return pipeline.Result[[]model.DailyTraffic]{Data: s.history}
}

var testNow = time.Date(2024, 3, 31, 12, 0, 0, 0, time.UTC)

func testSource() stubSource {
	return stubSource{
		summaries: []model.RepoTraffic{
			{Repo: "acme/widget", Views: model.TrafficSeries{Count: 5, Uniques: 2}, Clones: model.TrafficSeries{Count: 9}},
			{Repo: "acme/gizmo", Views: model.TrafficSeries{Count: 20, Uniques: 8},
				Referrers: []model.Referrer{{Referrer: "news.ycombinator.com", Count: 15, Uniques: 7}}},
			{Repo: "acme/quiet"},
		},
		history: []model.DailyTraffic{
			{Repo: "acme/gizmo", Date: "2024-03-30", Views: 12, Visitors: 5},
			{Repo: "acme/widget", Date: "2024-03-29", Views: 3, Visitors: 1, Clones: 4},
			{Repo: "acme/widget", Date: "2024-01-15", Views: 7},
		},
	}
}

// loadedApp returns an App that has received its first data load.
func loadedApp(t *testing.T, src Source, opts ...func(*Options)) App {
	t.Helper()
	o := Options{Source: src, Now: func() time.Time { return testNow }}
	for _, fn := range opts {
		fn(&o)
	}
	a := NewApp(o)
	a = update(t, a, tea.WindowSizeMsg{Width: 140, Height: 50})
	return update(t, a, loadDataCmd(src)())
}

func update(t *testing.T, a App, msg tea.Msg) App {
	t.Helper()
	m, _ := a.Update(msg)
	next, ok := m.(App)
	if !ok {
		t.Fatalf("Update returned %T, want App", m)
	}
	return next
}

func key(s string) tea.KeyMsg {
	switch s {
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestLoad_FiltersAndSortsOverview(t *testing.T) {
	a := loadedApp(t, testSource())

	repos := a.visibleRepos()
	if len(repos) != 2 || repos[0].Repo != "acme/gizmo" {
		t.Fatalf("visible = %v, want gizmo first and quiet hidden", repoNames(repos))
	}

	a = update(t, a, key("a"))
	if n := len(a.visibleRepos()); n != 3 {
		t.Errorf("after [a] visible = %d, want 3", n)
	}

	a = update(t, a, key("s")) // visitors
	a = update(t, a, key("s")) // clones
	if a.overview.sortKey != pipeline.SortClones || a.visibleRepos()[0].Repo != "acme/widget" {
		t.Errorf("sort = %s, first = %s", a.overview.sortKey, a.visibleRepos()[0].Repo)
	}
}

func TestSearch(t *testing.T) {
	a := loadedApp(t, testSource())

	a = update(t, a, key("/"))
	if !a.overview.searching {
		t.Fatal("[/] did not start search")
	}
	for _, r := range "wid" {
		a = update(t, a, key(string(r)))
	}
	if a.activeTab != tabOverview {
		t.Fatal("typing in search switched tabs")
	}
	a = update(t, a, key("enter"))
	if a.overview.query != "wid" {
		t.Fatalf("query = %q, want wid", a.overview.query)
	}
	if repos := a.visibleRepos(); len(repos) != 1 || repos[0].Repo != "acme/widget" {
		t.Errorf("visible = %v, want [acme/widget]", repoNames(repos))
	}

	a = update(t, a, key("esc"))
	if a.overview.query != "" {
		t.Error("[esc] did not clear the search")
	}
}

func TestTabKeys(t *testing.T) {
	a := loadedApp(t, testSource())
	for k, want := range map[string]int{"h": tabHistory, "e": tabReferrers, "o": tabOverview} {
		if got := update(t, a, key(k)).activeTab; got != want {
			t.Errorf("[%s] tab = %d, want %d", k, got, want)
		}
	}
}

func TestHistoryRepoAndRange(t *testing.T) {
	a := loadedApp(t, testSource())
	a = update(t, a, key("h"))

	repos := pipeline.HistoryRepos(a.history)
	if a.hist.days() != 30 || a.hist.repo(repos) != "all" {
		t.Fatalf("default history = %d days / %s, want 30 / all", a.hist.days(), a.hist.repo(repos))
	}

	a = update(t, a, key("n"))
	if got := a.hist.repo(repos); got != "acme/gizmo" {
		t.Errorf("after [n] repo = %s, want acme/gizmo", got)
	}
	a = update(t, a, key("p"))
	a = update(t, a, key("p"))
	if got := a.hist.repo(repos); got != "acme/widget" {
		t.Errorf("after [p][p] repo = %s, want acme/widget (wraps)", got)
	}

	a = update(t, a, key("t"))
	if a.hist.days() != 90 {
		t.Errorf("after [t] days = %d, want 90", a.hist.days())
	}

	view := a.View()
	if !strings.Contains(view, "Daily views") {
		t.Error("history view has no views chart")
	}
}

func TestReadErrorShownNotFatal(t *testing.T) {
	a := loadedApp(t, stubSource{err: errors.New("no such table: daily_traffic")})
	if !a.loaded || a.readErr == nil {
		t.Fatalf("loaded = %v, readErr = %v", a.loaded, a.readErr)
	}
	if info := a.statusInfo(); !strings.Contains(info.Err, "no such table") {
		t.Errorf("status error = %q", info.Err)
	}
	if !strings.Contains(a.View(), "No traffic data yet") {
		t.Error("empty overview has no placeholder")
	}
}

func TestCollectStreamsProgress(t *testing.T) {
	collect := func(_ context.Context, progress func(done, total int)) (pipeline.BatchReport, error) {
		progress(1, 2)
		progress(2, 2)
		return pipeline.BatchReport{Repos: 2, Outcomes: []pipeline.RepoOutcome{{Repo: "acme/a"}, {Repo: "acme/b"}}}, nil
	}
	a := loadedApp(t, testSource(), func(o *Options) { o.Collect = collect })

	m, _ := a.startCollect()
	a = m.(App)
	if !a.collecting {
		t.Fatal("startCollect did not start")
	}

	msg := collectCmd(context.Background(), collect, a.collectSub)()
	for {
		a = update(t, a, msg)
		if _, done := msg.(CollectDoneMsg); done {
			break
		}
		if p, ok := msg.(CollectProgressMsg); ok && a.collectDone != p.Done {
			t.Fatalf("collectDone = %d, want %d", a.collectDone, p.Done)
		}
		msg = waitForCollectMsg(a.collectSub)()
	}

	if a.collecting || a.lastReport == nil || a.lastReport.Succeeded() != 2 {
		t.Errorf("after collect: collecting=%v report=%+v", a.collecting, a.lastReport)
	}
	if a.collectTotal != 2 {
		t.Errorf("collectTotal = %d, want 2", a.collectTotal)
	}
}

func TestQuitCancelsRunningCollect(t *testing.T) {
	finished := make(chan error, 1)
	collect := func(ctx context.Context, progress func(done, total int)) (pipeline.BatchReport, error) {
		progress(1, 2)
		<-ctx.Done()
		finished <- ctx.Err()
		progress(2, 2)
		return pipeline.BatchReport{}, ctx.Err()
	}
	a := loadedApp(t, testSource(), func(o *Options) { o.Collect = collect })

	m, cmd := a.startCollect()
	a = m.(App)
	batch, ok := cmd().(tea.BatchMsg)
	if !ok || len(batch) == 0 {
		t.Fatalf("startCollect cmd = %T, want tea.BatchMsg", cmd())
	}
	if _, ok := batch[0]().(CollectProgressMsg); !ok {
		t.Fatal("first collect message is not progress")
	}

	_, quitCmd := a.Update(key("q"))
	if _, ok := quitCmd().(tea.QuitMsg); !ok {
		t.Fatal("[q] did not quit")
	}

	select {
	case err := <-finished:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("collect ctx err = %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("quitting did not cancel the collection")
	}
}

func TestCollectDisabledWithoutFunc(t *testing.T) {
	a := loadedApp(t, testSource())
	a = update(t, a, key("c"))
	if a.collecting {
		t.Error("[c] started a collection with no collector configured")
	}
}

func TestTabAtXMatchesTabWidths(t *testing.T) {
	for active := range components.Tabs {
		a := App{activeTab: active}
		pos := 1 // leading margin
		for i := range components.Tabs {
			w := components.TabVisualWidth(i, active)
			if got := a.tabAtX(pos + w/2); got != i {
				t.Fatalf("active=%d x=%d -> tab=%d, want %d", active, pos+w/2, got, i)
			}
			pos += w + 2
		}
	}
}

func TestSetupValuesApply(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.GitHub.Token = "old"

	SetupValues{Token: "  ", DatabaseURL: " libsql://x.turso.io ", AuthToken: "tok", Theme: "tokyo-night"}.Apply(&cfg)

	if cfg.GitHub.Token != "old" {
		t.Errorf("blank token overwrote config: %q", cfg.GitHub.Token)
	}
	if cfg.Database.URL != "libsql://x.turso.io" || cfg.Database.AuthToken != "tok" {
		t.Errorf("database = %+v", cfg.Database)
	}
	if cfg.Appearance.Theme != "tokyo-night" {
		t.Errorf("theme = %q", cfg.Appearance.Theme)
	}

	if err := validateDatabaseURL("postgres://db"); err == nil {
		t.Error("postgres URL accepted")
	}
	for _, ok := range []string{"", "/tmp/traffic.db", "file:traffic.db", "libsql://x.turso.io"} {
		if err := validateDatabaseURL(ok); err != nil {
			t.Errorf("validateDatabaseURL(%q) = %v", ok, err)
		}
	}
}

func repoNames(data []model.RepoTraffic) []string {
	names := make([]string, len(data))
	for i, rt := range data {
		names[i] = rt.Repo
	}
	return names
}
