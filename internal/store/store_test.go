package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/theirongolddev/ghtraffic/internal/model"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "traffic.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	if err := s.InitSchema(context.Background(), nil); err != nil {
		t.Fatalf("InitSchema: %v", err)
	}
	return s
}

func TestInitSchema_Idempotent(t *testing.T) {
	s := openTestStore(t)

	var steps []string
	if err := s.InitSchema(context.Background(), func(name string) { steps = append(steps, name) }); err != nil {
		t.Fatalf("second InitSchema: %v", err)
	}
	if len(steps) != 4 {
		t.Fatalf("steps = %d, want 4", len(steps))
	}
}

func TestDriverFor(t *testing.T) {
	cases := map[string]string{
		"libsql://traffic-acme.turso.io": "libsql",
		"wss://traffic.example.com":      "libsql",
		"https://traffic.example.com":    "libsql",
		"file:traffic.db":                "sqlite",
		"/var/lib/ghtraffic/traffic.db":  "sqlite",
		":memory:":                       "sqlite",
	}
	for dsn, want := range cases {
		if got := DriverFor(dsn); got != want {
			t.Errorf("DriverFor(%q) = %q, want %q", dsn, got, want)
		}
	}
}

func TestUpsertDaily_OverwritesOnConflict(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	first := model.DailyTraffic{Repo: "acme/widget", Date: "2024-01-01", Views: 10, Visitors: 8, Clones: 2, CloneUniques: 2}
	second := model.DailyTraffic{Repo: "acme/widget", Date: "2024-01-01", Views: 3, Visitors: 1, Clones: 0, CloneUniques: 0}

	if err := s.UpsertDaily(ctx, first); err != nil {
		t.Fatal(err)
	}
	if err := s.UpsertDaily(ctx, second); err != nil {
		t.Fatal(err)
	}

	rows, err := s.DailySince(ctx, "")
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 1 {
		t.Fatalf("rows = %d, want 1", len(rows))
	}
	if rows[0] != second {
		t.Errorf("row = %+v, want %+v (last write wins)", rows[0], second)
	}
}

func TestUpsertClones_KeepsExistingViews(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if err := s.UpsertDaily(ctx, model.DailyTraffic{Repo: "acme/widget", Date: "2024-01-02", Views: 9, Visitors: 4, Clones: 1, CloneUniques: 1}); err != nil {
		t.Fatal(err)
	}
	if err := s.UpsertClones(ctx, "acme/widget", "2024-01-02", 6, 3); err != nil {
		t.Fatal(err)
	}
	if err := s.UpsertClones(ctx, "acme/widget", "2024-01-03", 2, 2); err != nil {
		t.Fatal(err)
	}

	rows, err := s.DailySince(ctx, "")
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 2 {
		t.Fatalf("rows = %d, want 2", len(rows))
	}

	existing := rows[0]
	if existing.Views != 9 || existing.Visitors != 4 {
		t.Errorf("existing views/visitors = %d/%d, want 9/4 (preserved)", existing.Views, existing.Visitors)
	}
	if existing.Clones != 6 || existing.CloneUniques != 3 {
		t.Errorf("existing clones = %d/%d, want 6/3", existing.Clones, existing.CloneUniques)
	}

	fresh := rows[1]
	if fresh.Views != 0 || fresh.Visitors != 0 {
		t.Errorf("fresh views/visitors = %d/%d, want 0/0", fresh.Views, fresh.Visitors)
	}
	if fresh.Clones != 2 || fresh.CloneUniques != 2 {
		t.Errorf("fresh clones = %d/%d, want 2/2", fresh.Clones, fresh.CloneUniques)
	}
}

func TestUpsertReferrer_NaturalKey(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	writes := []model.ReferrerRow{
		{Repo: "acme/widget", Date: "2024-01-01", Referrer: "github.com", Count: 5, Uniques: 4},
		{Repo: "acme/widget", Date: "2024-01-01", Referrer: "github.com", Count: 7, Uniques: 5},
		{Repo: "acme/widget", Date: "2024-01-02", Referrer: "github.com", Count: 1, Uniques: 1},
		{Repo: "acme/widget", Date: "2024-01-01", Referrer: "google.com", Count: 2, Uniques: 2},
	}
	for _, w := range writes {
		if err := s.UpsertReferrer(ctx, w); err != nil {
			t.Fatal(err)
		}
	}

	_, refCount, err := s.RowCounts(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if refCount != 3 {
		t.Fatalf("referrer rows = %d, want 3", refCount)
	}

	var count, uniques int64
	err = s.db.QueryRow(`SELECT count, uniques FROM referrers
		WHERE repo = ? AND date = ? AND referrer = ?`, "acme/widget", "2024-01-01", "github.com").Scan(&count, &uniques)
	if err != nil {
		t.Fatal(err)
	}
	if count != 7 || uniques != 5 {
		t.Errorf("github.com = %d/%d, want 7/5 (later write)", count, uniques)
	}
}

func TestReferrerTotalsSince_SumsAndOrders(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	writes := []model.ReferrerRow{
		{Repo: "acme/widget", Date: "2024-01-01", Referrer: "github.com", Count: 5, Uniques: 4},
		{Repo: "acme/widget", Date: "2024-01-02", Referrer: "github.com", Count: 3, Uniques: 2},
		{Repo: "acme/widget", Date: "2024-01-02", Referrer: "news.ycombinator.com", Count: 20, Uniques: 15},
		{Repo: "acme/widget", Date: "2023-12-01", Referrer: "reddit.com", Count: 99, Uniques: 50},
	}
	for _, w := range writes {
		if err := s.UpsertReferrer(ctx, w); err != nil {
			t.Fatal(err)
		}
	}

	totals, err := s.ReferrerTotalsSince(ctx, "2024-01-01")
	if err != nil {
		t.Fatal(err)
	}
	if len(totals) != 2 {
		t.Fatalf("totals = %d, want 2 (reddit.com outside window)", len(totals))
	}
	if totals[0].Referrer.Referrer != "news.ycombinator.com" || totals[0].Count != 20 {
		t.Errorf("totals[0] = %+v, want news.ycombinator.com/20", totals[0])
	}
	if totals[1].Referrer.Referrer != "github.com" || totals[1].Count != 8 || totals[1].Uniques != 6 {
		t.Errorf("totals[1] = %+v, want github.com 8/6", totals[1])
	}
}

func TestHistorySince_NewestFirst(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	for _, d := range []model.DailyTraffic{
		{Repo: "acme/b", Date: "2024-01-01", Views: 1},
		{Repo: "acme/a", Date: "2024-01-03", Views: 3},
		{Repo: "acme/a", Date: "2024-01-02", Views: 2},
		{Repo: "acme/b", Date: "2024-01-03", Views: 4},
	} {
		if err := s.UpsertDaily(ctx, d); err != nil {
			t.Fatal(err)
		}
	}

	rows, err := s.HistorySince(ctx, "2024-01-02")
	if err != nil {
		t.Fatal(err)
	}
	want := []struct{ repo, date string }{
		{"acme/a", "2024-01-03"},
		{"acme/b", "2024-01-03"},
		{"acme/a", "2024-01-02"},
	}
	if len(rows) != len(want) {
		t.Fatalf("rows = %d, want %d", len(rows), len(want))
	}
	for i, w := range want {
		if rows[i].Repo != w.repo || rows[i].Date != w.date {
			t.Errorf("rows[%d] = %s %s, want %s %s", i, rows[i].Repo, rows[i].Date, w.repo, w.date)
		}
	}
}

func TestQueryOnClosedStore_ReturnsStorageError(t *testing.T) {
	s := openTestStore(t)
	_ = s.Close()

	_, err := s.DailySince(context.Background(), "")
	var se *StorageError
	if !errors.As(err, &se) {
		t.Fatalf("err = %v, want *StorageError", err)
	}
}
