package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/theirongolddev/ghtraffic/internal/github"
)

// DefaultPacing is the delay inserted between repositories.
const DefaultPacing = 100 * time.Millisecond

// TrafficFetcher is the upstream side of a collection run.
type TrafficFetcher interface {
	ListOwnedRepos(ctx context.Context) ([]github.Repository, error)
	FetchTraffic(ctx context.Context, fullName string) (*github.RepoTraffic, error)
}

// Stage names the step at which a repository failed.
type Stage string

// Failure stages.
const (
	StageFetch Stage = "fetch"
	StageStore Stage = "store"
)

// RepoOutcome is the result of collecting one repository.
type RepoOutcome struct {
	Repo     string        `json:"repo"`
	Stats    UpsertStats   `json:"stats"`
	Stage    Stage         `json:"stage,omitempty"` // empty on success
	Err      error         `json:"-"`
	Duration time.Duration `json:"duration_ns"`
}

// OK reports whether the repository was fetched and written without error.
func (o RepoOutcome) OK() bool {
	return o.Err == nil
}

// BatchReport is the outcome of one collection run over all repositories.
type BatchReport struct {
	AsOf       string        `json:"as_of"`
	Repos      int           `json:"repos"`
	StartedAt  time.Time     `json:"started_at"`
	FinishedAt time.Time     `json:"finished_at"`
	Outcomes   []RepoOutcome `json:"outcomes"`
}

// Succeeded returns the number of repositories collected without error.
func (r BatchReport) Succeeded() int {
	n := 0
	for _, o := range r.Outcomes {
		if o.OK() {
			n++
		}
	}
	return n
}

// Failed returns the outcomes that ended in an error.
func (r BatchReport) Failed() []RepoOutcome {
	var failed []RepoOutcome
	for _, o := range r.Outcomes {
		if !o.OK() {
			failed = append(failed, o)
		}
	}
	return failed
}

// CollectorConfig controls a Collector.
type CollectorConfig struct {
	// Pacing is the minimum spacing between repositories. Zero disables it.
	Pacing time.Duration
	// Now supplies the run clock; the as-of date is its UTC calendar date.
	Now    func() time.Time
	Logger zerolog.Logger
	// OnRepo, when set, is called after each repository with the number
	// finished so far and the batch size.
	OnRepo func(done, total int, o RepoOutcome)
}

// Collector runs one fetch-and-upsert pass over every owned repository.
type Collector struct {
	fetch  TrafficFetcher
	up     *Upserter
	pacing time.Duration
	now    func() time.Time
	log    zerolog.Logger
	onRepo func(done, total int, o RepoOutcome)
}

// NewCollector returns a Collector reading from f and writing to w.
func NewCollector(f TrafficFetcher, w TrafficWriter, cfg CollectorConfig) *Collector {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Collector{
		fetch:  f,
		up:     NewUpserter(w),
		pacing: cfg.Pacing,
		now:    cfg.Now,
		log:    cfg.Logger,
		onRepo: cfg.OnRepo,
	}
}

// Run lists repositories and collects each one in turn. Per-repository
// failures are recorded in the report and do not stop the batch. An error is
// returned only if no repositories could be listed or ctx was canceled.
func (c *Collector) Run(ctx context.Context) (BatchReport, error) {
	start := c.now()
	report := BatchReport{
		AsOf:      start.UTC().Format("2006-01-02"),
		StartedAt: start,
	}

	if c.fetch == nil {
		return report, github.ErrAuth
	}

	repos, err := c.fetch.ListOwnedRepos(ctx)
	if err != nil {
		report.FinishedAt = c.now()
		return report, fmt.Errorf("listing repositories: %w", err)
	}
	report.Repos = len(repos)
	c.log.Info().Int("repos", len(repos)).Str("as_of", report.AsOf).Msg("found repositories")

	limit := rate.Inf
	if c.pacing > 0 {
		limit = rate.Every(c.pacing)
	}
	pacer := rate.NewLimiter(limit, 1)

	for i, repo := range repos {
		if err := pacer.Wait(ctx); err != nil {
			report.FinishedAt = c.now()
			return report, err
		}

		outcome := c.collectOne(ctx, repo.FullName, report.AsOf)
		report.Outcomes = append(report.Outcomes, outcome)

		if outcome.OK() {
			c.log.Info().
				Str("repo", outcome.Repo).
				Int("days", outcome.Stats.Days+outcome.Stats.CloneOnlyDays).
				Int("referrers", outcome.Stats.Referrers).
				Dur("took", outcome.Duration).
				Msg("collected")
		} else {
			c.log.Error().
				Err(outcome.Err).
				Str("repo", outcome.Repo).
				Str("stage", string(outcome.Stage)).
				Msg("collect failed")
		}
		if c.onRepo != nil {
			c.onRepo(i+1, len(repos), outcome)
		}
	}

	report.FinishedAt = c.now()
	c.log.Info().
		Int("succeeded", report.Succeeded()).
		Int("failed", len(report.Failed())).
		Msg("collection completed")
	return report, nil
}

func (c *Collector) collectOne(ctx context.Context, repo, asOf string) RepoOutcome {
	start := time.Now()
	out := RepoOutcome{Repo: repo}

	t, err := c.fetch.FetchTraffic(ctx, repo)
	if err != nil {
		out.Stage = StageFetch
		out.Err = err
		out.Duration = time.Since(start)
		return out
	}

	out.Stats, err = c.up.Apply(ctx, repo, t, asOf)
	if err != nil {
		out.Stage = StageStore
		out.Err = err
	}
	out.Duration = time.Since(start)
	return out
}
