package pipeline

import (
	"context"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/theirongolddev/ghtraffic/internal/model"
)

// Default read windows, in days.
const (
	SummaryDays = 14
	HistoryDays = 90
)

// TrafficReader is the read side of the traffic store.
type TrafficReader interface {
	DailySince(ctx context.Context, since string) ([]model.DailyTraffic, error)
	HistorySince(ctx context.Context, since string) ([]model.DailyTraffic, error)
	ReferrerTotalsSince(ctx context.Context, since string) ([]model.ReferrerTotal, error)
}

// Result is a read that always carries renderable data. Err is set when the
// query failed, in which case Data is empty rather than nil.
type Result[T any] struct {
	Data T
	Err  error
}

// Failed reports whether the read failed, as opposed to finding no rows.
func (r Result[T]) Failed() bool {
	return r.Err != nil
}

// ReaderConfig controls a Reader.
type ReaderConfig struct {
	SummaryDays int
	HistoryDays int
	Now         func() time.Time
	Logger      zerolog.Logger
}

// Reader reshapes stored traffic for the dashboard.
type Reader struct {
	src         TrafficReader
	summaryDays int
	historyDays int
	now         func() time.Time
	log         zerolog.Logger
}

// NewReader returns a Reader over src.
func NewReader(src TrafficReader, cfg ReaderConfig) *Reader {
	if cfg.SummaryDays <= 0 {
		cfg.SummaryDays = SummaryDays
	}
	if cfg.HistoryDays <= 0 {
		cfg.HistoryDays = HistoryDays
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Reader{
		src:         src,
		summaryDays: cfg.SummaryDays,
		historyDays: cfg.HistoryDays,
		now:         cfg.Now,
		log:         cfg.Logger,
	}
}

// Cutoff returns the earliest date, inclusive, in a window of days ending today (UTC).
func Cutoff(now time.Time, days int) string {
	return now.UTC().AddDate(0, 0, -days).Format("2006-01-02")
}

// Summaries returns one RepoTraffic per repository with rows in the summary
// window. Repositories without rows in the window are absent.
func (r *Reader) Summaries(ctx context.Context) Result[[]model.RepoTraffic] {
	since := Cutoff(r.now(), r.summaryDays)

	daily, err := r.src.DailySince(ctx, since)
	if err != nil {
		r.log.Error().Err(err).Str("since", since).Msg("failed to read traffic summaries")
		return Result[[]model.RepoTraffic]{Data: []model.RepoTraffic{}, Err: err}
	}

	refs, err := r.src.ReferrerTotalsSince(ctx, since)
	if err != nil {
		r.log.Error().Err(err).Str("since", since).Msg("failed to read referrers")
		return Result[[]model.RepoTraffic]{Data: []model.RepoTraffic{}, Err: err}
	}

	return Result[[]model.RepoTraffic]{Data: BuildSummaries(daily, refs)}
}

// History returns the flat per-day rows in the history window, newest first.
func (r *Reader) History(ctx context.Context) Result[[]model.DailyTraffic] {
	since := Cutoff(r.now(), r.historyDays)

	rows, err := r.src.HistorySince(ctx, since)
	if err != nil {
		r.log.Error().Err(err).Str("since", since).Msg("failed to read traffic history")
		return Result[[]model.DailyTraffic]{Data: []model.DailyTraffic{}, Err: err}
	}
	if rows == nil {
		rows = []model.DailyTraffic{}
	}
	return Result[[]model.DailyTraffic]{Data: rows}
}

// BuildSummaries folds daily rows into per-repository running totals and
// date-ordered points, then attaches referrer totals, highest count first.
// Referrers for repositories with no daily rows are dropped.
func BuildSummaries(daily []model.DailyTraffic, refs []model.ReferrerTotal) []model.RepoTraffic {
	repoMap := make(map[string]*model.RepoTraffic)

	for _, d := range daily {
		rt, ok := repoMap[d.Repo]
		if !ok {
			rt = &model.RepoTraffic{Repo: d.Repo, Referrers: []model.Referrer{}}
			repoMap[d.Repo] = rt
		}

		ts := d.Date + "T00:00:00Z"

		rt.Views.Count += d.Views
		rt.Views.Uniques += d.Visitors
		rt.Views.Points = append(rt.Views.Points, model.TrafficPoint{Timestamp: ts, Count: d.Views, Uniques: d.Visitors})

		rt.Clones.Count += d.Clones
		rt.Clones.Uniques += d.CloneUniques
		rt.Clones.Points = append(rt.Clones.Points, model.TrafficPoint{Timestamp: ts, Count: d.Clones, Uniques: d.CloneUniques})
	}

	for _, ref := range refs {
		if rt, ok := repoMap[ref.Repo]; ok {
			rt.Referrers = append(rt.Referrers, ref.Referrer)
		}
	}

	result := make([]model.RepoTraffic, 0, len(repoMap))
	for _, rt := range repoMap {
		sortPoints(rt.Views.Points)
		sortPoints(rt.Clones.Points)
		sort.SliceStable(rt.Referrers, func(i, j int) bool {
			if rt.Referrers[i].Count != rt.Referrers[j].Count {
				return rt.Referrers[i].Count > rt.Referrers[j].Count
			}
			return rt.Referrers[i].Referrer < rt.Referrers[j].Referrer
		})
		result = append(result, *rt)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Repo < result[j].Repo
	})
	return result
}

func sortPoints(points []model.TrafficPoint) {
	sort.SliceStable(points, func(i, j int) bool {
		return points[i].Timestamp < points[j].Timestamp
	})
}
