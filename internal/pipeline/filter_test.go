package pipeline

import (
	"testing"
	"time"

	"github.com/theirongolddev/ghtraffic/internal/model"
)

func summary(repo string, views, visitors, clones int64) model.RepoTraffic {
	return model.RepoTraffic{
		Repo:   repo,
		Views:  model.TrafficSeries{Count: views, Uniques: visitors},
		Clones: model.TrafficSeries{Count: clones},
	}
}

func TestParseSortKey(t *testing.T) {
	tests := []struct {
		in      string
		want    SortKey
		wantErr bool
	}{
		{"", SortViews, false},
		{"visitors", SortVisitors, false},
		{"CLONES", SortClones, false},
		{"name", SortName, false},
		{"stars", SortViews, true},
	}
	for _, tt := range tests {
		got, err := ParseSortKey(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseSortKey(%q) err = %v, wantErr %v", tt.in, err, tt.wantErr)
		}
		if got != tt.want {
			t.Errorf("ParseSortKey(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFilterRepos(t *testing.T) {
	data := []model.RepoTraffic{
		summary("acme/Widget", 10, 4, 1),
		summary("acme/gadget", 3, 0, 2),
		summary("acme/widget-docs", 1, 1, 0),
	}

	if got := FilterRepos(data, "widget", false); len(got) != 2 {
		t.Errorf("query widget = %d repos, want 2", len(got))
	}
	if got := FilterRepos(data, "", false); len(got) != 2 {
		t.Errorf("hide empty = %d repos, want 2", len(got))
	}
	if got := FilterRepos(data, "", true); len(got) != 3 {
		t.Errorf("show empty = %d repos, want 3", len(got))
	}
	if got := FilterRepos(data, "gadget", false); len(got) != 0 {
		t.Errorf("gadget without show empty = %d repos, want 0", len(got))
	}
}

func TestSortRepos(t *testing.T) {
	data := []model.RepoTraffic{
		summary("acme/b", 5, 1, 9),
		summary("acme/a", 8, 2, 1),
		summary("acme/c", 1, 7, 3),
	}

	tests := []struct {
		key   SortKey
		first string
	}{
		{SortViews, "acme/a"},
		{SortVisitors, "acme/c"},
		{SortClones, "acme/b"},
		{SortName, "acme/a"},
	}
	for _, tt := range tests {
		SortRepos(data, tt.key)
		if data[0].Repo != tt.first {
			t.Errorf("sort %s: first = %s, want %s", tt.key, data[0].Repo, tt.first)
		}
	}
}

func TestTotals(t *testing.T) {
	got := Totals([]model.RepoTraffic{summary("a/x", 10, 4, 1), summary("a/y", 5, 2, 3)})
	want := model.TotalStats{Repos: 2, Views: 15, Visitors: 6, Clones: 4}
	if got != want {
		t.Errorf("Totals = %+v, want %+v", got, want)
	}
}

func TestShortNameAndTopReferrer(t *testing.T) {
	if got := ShortName("acme/widget"); got != "widget" {
		t.Errorf("ShortName = %q, want widget", got)
	}
	if got := ShortName("widget"); got != "widget" {
		t.Errorf("ShortName(no owner) = %q, want widget", got)
	}

	rt := summary("acme/widget", 1, 1, 0)
	if _, ok := TopReferrer(rt); ok {
		t.Error("TopReferrer on empty list reported ok")
	}
	rt.Referrers = []model.Referrer{{Referrer: "github.com", Count: 5}, {Referrer: "google.com", Count: 1}}
	if ref, ok := TopReferrer(rt); !ok || ref.Referrer != "github.com" {
		t.Errorf("TopReferrer = %+v, %v; want github.com", ref, ok)
	}
}

func TestFilterHistory(t *testing.T) {
	now := time.Date(2024, 3, 31, 18, 0, 0, 0, time.UTC)
	rows := []model.DailyTraffic{
		{Repo: "acme/a", Date: "2024-03-31", Views: 1},
		{Repo: "acme/b", Date: "2024-03-24", Views: 2},
		{Repo: "acme/a", Date: "2024-03-23", Views: 3},
		{Repo: "acme/a", Date: "2024-01-01", Views: 4},
	}

	if got := FilterHistory(rows, "all", 7, now); len(got) != 2 {
		t.Errorf("all/7 = %d rows, want 2", len(got))
	}
	if got := FilterHistory(rows, "acme/a", 30, now); len(got) != 2 {
		t.Errorf("acme/a/30 = %d rows, want 2", len(got))
	}
	if got := FilterHistory(rows, "", 90, now); len(got) != 4 {
		t.Errorf("all/90 = %d rows, want 4", len(got))
	}
}

func TestAggregateByDate(t *testing.T) {
	rows := []model.DailyTraffic{
		{Repo: "acme/a", Date: "2024-01-02", Views: 1, Visitors: 1, Clones: 1},
		{Repo: "acme/b", Date: "2024-01-02", Views: 2, Visitors: 2, Clones: 0},
		{Repo: "acme/a", Date: "2024-01-01", Views: 5, Visitors: 3, Clones: 2},
	}

	got := AggregateByDate(rows)
	want := []model.DailyTotal{
		{Date: "2024-01-01", Views: 5, Visitors: 3, Clones: 2},
		{Date: "2024-01-02", Views: 3, Visitors: 3, Clones: 1},
	}
	if len(got) != len(want) {
		t.Fatalf("days = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("day %d = %+v, want %+v", i, got[i], want[i])
		}
	}

	if repos := HistoryRepos(rows); len(repos) != 2 || repos[0] != "acme/a" {
		t.Errorf("HistoryRepos = %v, want [acme/a acme/b]", repos)
	}
}

func TestCardSeries(t *testing.T) {
	rt := model.RepoTraffic{
		Repo: "acme/a",
		Views: model.TrafficSeries{Points: []model.TrafficPoint{
			{Timestamp: "2024-01-01T00:00:00Z", Count: 4, Uniques: 2},
		}},
		Clones: model.TrafficSeries{Points: []model.TrafficPoint{
			{Timestamp: "2024-01-01T00:00:00Z", Count: 1},
			{Timestamp: "2024-01-02T00:00:00Z", Count: 3},
		}},
	}
	got := CardSeries(rt)
	if len(got) != 2 {
		t.Fatalf("series = %d days, want 2", len(got))
	}
	if got[0].Views != 4 || got[0].Clones != 1 || got[1].Clones != 3 {
		t.Errorf("series = %+v", got)
	}
}
