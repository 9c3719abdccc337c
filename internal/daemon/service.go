// Package daemon provides the long-running background traffic collector and
// its read-only HTTP API.
package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/theirongolddev/ghtraffic/internal/model"
	"github.com/theirongolddev/ghtraffic/internal/pipeline"
)

// DefaultAddr is the loopback address the API listens on.
const DefaultAddr = "127.0.0.1:8788"

// Config controls the daemon runtime behavior.
type Config struct {
	Interval   time.Duration
	Addr       string
	RunsBuffer int // batch summaries retained for /v1/runs
	Now        func() time.Time
	Logger     zerolog.Logger
}

// Collector runs one collection batch.
type Collector interface {
	Run(ctx context.Context) (pipeline.BatchReport, error)
}

// Reader serves the stored traffic.
type Reader interface {
	Summaries(ctx context.Context) pipeline.Result[[]model.RepoTraffic]
	History(ctx context.Context) pipeline.Result[[]model.DailyTraffic]
}

// FailedRepo is one failed repository in a RunSummary.
type FailedRepo struct {
	Repo  string `json:"repo"`
	Stage string `json:"stage"`
	Error string `json:"error"`
}

// RunSummary is a compact record of one collection batch.
type RunSummary struct {
	ID         int64        `json:"id"`
	AsOf       string       `json:"as_of"`
	StartedAt  time.Time    `json:"started_at"`
	FinishedAt time.Time    `json:"finished_at"`
	Repos      int          `json:"repos"`
	Succeeded  int          `json:"succeeded"`
	Failed     []FailedRepo `json:"failed,omitempty"`
	Error      string       `json:"error,omitempty"`
}

// Status is served at /v1/status.
type Status struct {
	StartedAt   time.Time   `json:"started_at"`
	LastRunAt   time.Time   `json:"last_run_at"`
	NextRunAt   time.Time   `json:"next_run_at"`
	IntervalSec int         `json:"interval_sec"`
	RunCount    int64       `json:"run_count"`
	Running     bool        `json:"running"`
	LastRun     *RunSummary `json:"last_run,omitempty"`
	LastError   string      `json:"last_error,omitempty"`
	ReadError   string      `json:"read_error,omitempty"`
}

// Service provides the daemon runtime and HTTP API.
type Service struct {
	cfg     Config
	collect Collector
	read    Reader
	log     zerolog.Logger
	trigger chan struct{}

	mu        sync.RWMutex
	startedAt time.Time
	lastRunAt time.Time
	nextRunAt time.Time
	runCount  int64
	running   bool
	lastError string
	readError string
	runs      []RunSummary
}

// New returns a new daemon service with the provided config.
func New(cfg Config, c Collector, r Reader) *Service {
	if cfg.Interval < time.Minute {
		cfg.Interval = 24 * time.Hour
	}
	if cfg.RunsBuffer < 1 {
		cfg.RunsBuffer = 30
	}
	if cfg.Addr == "" {
		cfg.Addr = DefaultAddr
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	return &Service{
		cfg:       cfg,
		collect:   c,
		read:      r,
		log:       cfg.Logger,
		trigger:   make(chan struct{}, 1),
		startedAt: cfg.Now(),
	}
}

// Addr returns the listen address after defaults are applied.
func (s *Service) Addr() string { return s.cfg.Addr }

// Interval returns the collection interval after defaults are applied.
func (s *Service) Interval() time.Duration { return s.cfg.Interval }

// Handler returns the HTTP API.
func (s *Service) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /v1/status", s.handleStatus)
	mux.HandleFunc("GET /v1/runs", s.handleRuns)
	mux.HandleFunc("POST /v1/collect", s.handleCollect)
	mux.HandleFunc("GET /v1/traffic", s.handleTraffic)
	mux.HandleFunc("GET /v1/history", s.handleHistory)
	return mux
}

// Run starts the HTTP API and the collection loop until ctx is canceled.
// A batch runs at start, then every Interval; batches never overlap.
func (s *Service) Run(ctx context.Context) error {
	server := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("daemon http server: %w", err)
	}

	errCh := make(chan error, 1)
	go func() {
		if err := server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()
	s.log.Info().Str("addr", s.cfg.Addr).Dur("interval", s.cfg.Interval).Msg("daemon started")

	s.RunOnce(ctx)

	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return server.Shutdown(shutdownCtx)
		case <-ticker.C:
			s.RunOnce(ctx)
		case <-s.trigger:
			s.RunOnce(ctx)
			ticker.Reset(s.cfg.Interval)
		case err := <-errCh:
			return fmt.Errorf("daemon http server: %w", err)
		}
	}
}

// RunOnce runs a single collection batch and records its summary.
func (s *Service) RunOnce(ctx context.Context) RunSummary {
	s.mu.Lock()
	s.running = true
	s.mu.Unlock()

	report, err := s.collect.Run(ctx)
	sum := summarize(report)
	if err != nil {
		sum.Error = err.Error()
		s.log.Error().Err(err).Msg("collection batch failed")
	} else {
		s.log.Info().
			Str("as_of", report.AsOf).
			Int("succeeded", report.Succeeded()).
			Int("failed", len(report.Failed())).
			Msg("collection batch finished")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.running = false
	s.runCount++
	sum.ID = s.runCount
	s.lastRunAt = s.cfg.Now()
	s.nextRunAt = s.lastRunAt.Add(s.cfg.Interval)
	s.lastError = sum.Error
	s.runs = append(s.runs, sum)
	if len(s.runs) > s.cfg.RunsBuffer {
		s.runs = s.runs[len(s.runs)-s.cfg.RunsBuffer:]
	}
	return sum
}

func summarize(r pipeline.BatchReport) RunSummary {
	sum := RunSummary{
		AsOf:       r.AsOf,
		StartedAt:  r.StartedAt,
		FinishedAt: r.FinishedAt,
		Repos:      r.Repos,
		Succeeded:  r.Succeeded(),
	}
	for _, o := range r.Failed() {
		sum.Failed = append(sum.Failed, FailedRepo{
			Repo:  o.Repo,
			Stage: string(o.Stage),
			Error: o.Err.Error(),
		})
	}
	return sum
}

func (s *Service) snapshotStatus() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := Status{
		StartedAt:   s.startedAt,
		LastRunAt:   s.lastRunAt,
		NextRunAt:   s.nextRunAt,
		IntervalSec: int(s.cfg.Interval.Seconds()),
		RunCount:    s.runCount,
		Running:     s.running,
		LastError:   s.lastError,
		ReadError:   s.readError,
	}
	if n := len(s.runs); n > 0 {
		last := s.runs[n-1]
		st.LastRun = &last
	}
	return st
}

func (s *Service) noteRead(err error) {
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	s.mu.Lock()
	s.readError = msg
	s.mu.Unlock()
}

func (s *Service) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok\n"))
}

func (s *Service) handleStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, s.snapshotStatus())
}

func (s *Service) handleRuns(w http.ResponseWriter, _ *http.Request) {
	s.mu.RLock()
	runs := make([]RunSummary, len(s.runs))
	copy(runs, s.runs)
	s.mu.RUnlock()

	writeJSON(w, runs)
}

func (s *Service) handleCollect(w http.ResponseWriter, _ *http.Request) {
	select {
	case s.trigger <- struct{}{}:
		w.WriteHeader(http.StatusAccepted)
		_, _ = w.Write([]byte("queued\n"))
	default:
		w.WriteHeader(http.StatusConflict)
		_, _ = w.Write([]byte("collection already queued\n"))
	}
}

func (s *Service) handleTraffic(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	key, _ := pipeline.ParseSortKey(q.Get("sort"))
	showEmpty, _ := strconv.ParseBool(q.Get("show_empty"))

	res := s.read.Summaries(r.Context())
	s.noteRead(res.Err)
	if res.Failed() {
		w.Header().Set("X-Read-Error", res.Err.Error())
	}

	data := pipeline.FilterRepos(res.Data, q.Get("q"), showEmpty)
	pipeline.SortRepos(data, key)
	writeJSON(w, data)
}

func (s *Service) handleHistory(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	days := 30
	if v, err := strconv.Atoi(q.Get("days")); err == nil && v > 0 {
		days = v
	}

	res := s.read.History(r.Context())
	s.noteRead(res.Err)
	if res.Failed() {
		w.Header().Set("X-Read-Error", res.Err.Error())
	}

	writeJSON(w, pipeline.FilterHistory(res.Data, q.Get("repo"), days, s.cfg.Now()))
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
