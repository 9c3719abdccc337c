package pipeline

import (
	"context"
	"fmt"

	"github.com/theirongolddev/ghtraffic/internal/github"
	"github.com/theirongolddev/ghtraffic/internal/model"
)

// TrafficWriter is the write side of the traffic store.
type TrafficWriter interface {
	UpsertDaily(ctx context.Context, d model.DailyTraffic) error
	UpsertClones(ctx context.Context, repo, date string, clones, uniques int64) error
	UpsertReferrer(ctx context.Context, r model.ReferrerRow) error
}

// UpsertStats counts the rows written for one repository.
type UpsertStats struct {
	Days          int // rows written from the views series (with matching clones)
	CloneOnlyDays int
	Referrers     int
}

// Upserter writes fetched traffic as idempotent upserts keyed by
// (repo, date) and (repo, date, referrer).
type Upserter struct {
	w TrafficWriter
}

// NewUpserter returns an Upserter writing to w.
func NewUpserter(w TrafficWriter) *Upserter {
	return &Upserter{w: w}
}

// Apply writes one repository's traffic. Referrers are recorded under asOf,
// since the API only exposes a current snapshot. Writes are sequential and
// stop at the first failure; rows already written stay written.
func (u *Upserter) Apply(ctx context.Context, repo string, t *github.RepoTraffic, asOf string) (UpsertStats, error) {
	var stats UpsertStats

	for _, d := range MergeSeries(t.Views.Views, t.Clones.Clones) {
		if d.HasViews {
			err := u.w.UpsertDaily(ctx, model.DailyTraffic{
				Repo:         repo,
				Date:         d.Date,
				Views:        d.Views,
				Visitors:     d.Visitors,
				Clones:       d.Clones,
				CloneUniques: d.CloneUniques,
			})
			if err != nil {
				return stats, fmt.Errorf("writing %s %s: %w", repo, d.Date, err)
			}
			stats.Days++
			continue
		}

		if err := u.w.UpsertClones(ctx, repo, d.Date, d.Clones, d.CloneUniques); err != nil {
			return stats, fmt.Errorf("writing clones %s %s: %w", repo, d.Date, err)
		}
		stats.CloneOnlyDays++
	}

	for _, r := range t.Referrers {
		err := u.w.UpsertReferrer(ctx, model.ReferrerRow{
			Repo:     repo,
			Date:     asOf,
			Referrer: r.Referrer,
			Count:    r.Count,
			Uniques:  r.Uniques,
		})
		if err != nil {
			return stats, fmt.Errorf("writing referrer %s %s: %w", repo, r.Referrer, err)
		}
		stats.Referrers++
	}

	return stats, nil
}
