package pipeline

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/theirongolddev/ghtraffic/internal/model"
)

// SortKey orders repository summaries on the dashboard.
type SortKey string

// Sort keys. SortViews is the default.
const (
	SortViews    SortKey = "views"
	SortVisitors SortKey = "visitors"
	SortClones   SortKey = "clones"
	SortName     SortKey = "name"
)

// SortKeys lists the sort keys in display order.
var SortKeys = []SortKey{SortViews, SortVisitors, SortClones, SortName}

// ParseSortKey parses s, defaulting to SortViews when s is empty.
func ParseSortKey(s string) (SortKey, error) {
	if s == "" {
		return SortViews, nil
	}
	for _, k := range SortKeys {
		if string(k) == strings.ToLower(s) {
			return k, nil
		}
	}
	return SortViews, fmt.Errorf("unknown sort key %q (want views, visitors, clones, or name)", s)
}

// HistoryRanges are the selectable history windows, in days.
var HistoryRanges = []int{7, 30, 90}

// FilterRepos returns summaries whose repo name contains query
// (case-insensitive). Unless showEmpty is set, repositories with no unique
// visitors are dropped.
func FilterRepos(data []model.RepoTraffic, query string, showEmpty bool) []model.RepoTraffic {
	query = strings.ToLower(strings.TrimSpace(query))
	result := make([]model.RepoTraffic, 0, len(data))
	for _, rt := range data {
		if query != "" && !containsIgnoreCase(rt.Repo, query) {
			continue
		}
		if !showEmpty && rt.Views.Uniques == 0 {
			continue
		}
		result = append(result, rt)
	}
	return result
}

// SortRepos sorts data in place by key. Count keys sort descending, name ascending.
func SortRepos(data []model.RepoTraffic, key SortKey) {
	sort.SliceStable(data, func(i, j int) bool {
		a, b := data[i], data[j]
		switch key {
		case SortVisitors:
			return a.Views.Uniques > b.Views.Uniques
		case SortClones:
			return a.Clones.Count > b.Clones.Count
		case SortName:
			return a.Repo < b.Repo
		default:
			return a.Views.Count > b.Views.Count
		}
	})
}

// Totals sums views, unique visitors, and clones across all summaries.
func Totals(data []model.RepoTraffic) model.TotalStats {
	stats := model.TotalStats{Repos: len(data)}
	for _, rt := range data {
		stats.Views += rt.Views.Count
		stats.Visitors += rt.Views.Uniques
		stats.Clones += rt.Clones.Count
	}
	return stats
}

// ShortName returns the repository name without its owner.
func ShortName(fullName string) string {
	if _, name, ok := strings.Cut(fullName, "/"); ok {
		return name
	}
	return fullName
}

// TopReferrer returns the highest-count referrer, if any.
func TopReferrer(rt model.RepoTraffic) (model.Referrer, bool) {
	if len(rt.Referrers) == 0 {
		return model.Referrer{}, false
	}
	return rt.Referrers[0], true
}

// FilterHistory keeps rows for repo ("" or "all" keeps every repository)
// dated no more than days whole days before now.
func FilterHistory(rows []model.DailyTraffic, repo string, days int, now time.Time) []model.DailyTraffic {
	today := now.UTC().Truncate(24 * time.Hour)
	result := make([]model.DailyTraffic, 0, len(rows))
	for _, r := range rows {
		if repo != "" && repo != "all" && r.Repo != repo {
			continue
		}
		d, err := time.Parse("2006-01-02", r.Date)
		if err != nil {
			continue
		}
		if int(today.Sub(d).Hours()/24) > days {
			continue
		}
		result = append(result, r)
	}
	return result
}

// AggregateByDate sums rows per date across repositories, oldest first.
func AggregateByDate(rows []model.DailyTraffic) []model.DailyTotal {
	dayMap := make(map[string]*model.DailyTotal)
	for _, r := range rows {
		dt, ok := dayMap[r.Date]
		if !ok {
			dt = &model.DailyTotal{Date: r.Date}
			dayMap[r.Date] = dt
		}
		dt.Views += r.Views
		dt.Visitors += r.Visitors
		dt.Clones += r.Clones
	}

	days := make([]model.DailyTotal, 0, len(dayMap))
	for _, dt := range dayMap {
		days = append(days, *dt)
	}
	sort.Slice(days, func(i, j int) bool {
		return days[i].Date < days[j].Date
	})
	return days
}

// HistoryRepos returns the distinct repository names in rows, sorted.
func HistoryRepos(rows []model.DailyTraffic) []string {
	seen := make(map[string]struct{})
	for _, r := range rows {
		seen[r.Repo] = struct{}{}
	}
	repos := make([]string, 0, len(seen))
	for r := range seen {
		repos = append(repos, r)
	}
	sort.Strings(repos)
	return repos
}

// CardSeries aligns a summary's views and clones on the union of their dates,
// oldest first, for charting.
func CardSeries(rt model.RepoTraffic) []model.DailyTotal {
	rows := make([]model.DailyTraffic, 0, len(rt.Views.Points)+len(rt.Clones.Points))
	for _, p := range rt.Views.Points {
		rows = append(rows, model.DailyTraffic{Date: dateOfPoint(p), Views: p.Count, Visitors: p.Uniques})
	}
	for _, p := range rt.Clones.Points {
		rows = append(rows, model.DailyTraffic{Date: dateOfPoint(p), Clones: p.Count})
	}
	return AggregateByDate(rows)
}

func dateOfPoint(p model.TrafficPoint) string {
	date, _, _ := strings.Cut(p.Timestamp, "T")
	return date
}

func containsIgnoreCase(s, lowerSubstr string) bool {
	return strings.Contains(strings.ToLower(s), lowerSubstr)
}
