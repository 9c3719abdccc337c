package store

import (
	"context"
	"database/sql"

	"github.com/theirongolddev/ghtraffic/internal/model"
)

// UpsertDaily writes one day of views and clones for a repository,
// overwriting every count if (repo, date) already exists.
func (s *Store) UpsertDaily(ctx context.Context, d model.DailyTraffic) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO daily_traffic
		(repo, date, views, visitors, clones, clone_uniques)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(repo, date) DO UPDATE SET
			views = excluded.views,
			visitors = excluded.visitors,
			clones = excluded.clones,
			clone_uniques = excluded.clone_uniques`,
		d.Repo, d.Date, d.Views, d.Visitors, d.Clones, d.CloneUniques,
	)
	if err != nil {
		return &StorageError{Op: "upserting daily traffic", Err: err}
	}
	return nil
}

// UpsertClones writes a clone-only day. A new row gets zero views; an
// existing row keeps its views and visitors and only has clones replaced.
func (s *Store) UpsertClones(ctx context.Context, repo, date string, clones, uniques int64) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO daily_traffic
		(repo, date, views, visitors, clones, clone_uniques)
		VALUES (?, ?, 0, 0, ?, ?)
		ON CONFLICT(repo, date) DO UPDATE SET
			clones = excluded.clones,
			clone_uniques = excluded.clone_uniques`,
		repo, date, clones, uniques,
	)
	if err != nil {
		return &StorageError{Op: "upserting clone traffic", Err: err}
	}
	return nil
}

// UpsertReferrer writes one referrer snapshot entry, overwriting counts on
// (repo, date, referrer).
func (s *Store) UpsertReferrer(ctx context.Context, r model.ReferrerRow) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO referrers
		(repo, date, referrer, count, uniques)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(repo, date, referrer) DO UPDATE SET
			count = excluded.count,
			uniques = excluded.uniques`,
		r.Repo, r.Date, r.Referrer, r.Count, r.Uniques,
	)
	if err != nil {
		return &StorageError{Op: "upserting referrer", Err: err}
	}
	return nil
}

// DailySince returns rows dated on or after since, ordered by repo then date.
func (s *Store) DailySince(ctx context.Context, since string) ([]model.DailyTraffic, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT
		repo, date, views, visitors, clones, clone_uniques
		FROM daily_traffic
		WHERE date >= ?
		ORDER BY repo, date`, since)
	if err != nil {
		return nil, &StorageError{Op: "querying daily traffic", Err: err}
	}
	return scanDaily(rows)
}

// HistorySince returns rows dated on or after since, newest first.
func (s *Store) HistorySince(ctx context.Context, since string) ([]model.DailyTraffic, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT
		repo, date, views, visitors, clones, clone_uniques
		FROM daily_traffic
		WHERE date >= ?
		ORDER BY date DESC, repo`, since)
	if err != nil {
		return nil, &StorageError{Op: "querying traffic history", Err: err}
	}
	return scanDaily(rows)
}

// ReferrerTotalsSince sums referrer counts per (repo, referrer) over rows
// dated on or after since, highest count first.
func (s *Store) ReferrerTotalsSince(ctx context.Context, since string) ([]model.ReferrerTotal, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT
		repo, referrer, SUM(count) AS total, SUM(uniques) AS total_uniques
		FROM referrers
		WHERE date >= ?
		GROUP BY repo, referrer
		ORDER BY total DESC, referrer`, since)
	if err != nil {
		return nil, &StorageError{Op: "querying referrers", Err: err}
	}
	defer func() { _ = rows.Close() }()

	var result []model.ReferrerTotal
	for rows.Next() {
		var rt model.ReferrerTotal
		if err := rows.Scan(&rt.Repo, &rt.Referrer.Referrer, &rt.Count, &rt.Uniques); err != nil {
			return nil, &StorageError{Op: "scanning referrers", Err: err}
		}
		result = append(result, rt)
	}
	if err := rows.Err(); err != nil {
		return nil, &StorageError{Op: "reading referrers", Err: err}
	}
	return result, nil
}

// RowCounts returns the number of stored daily and referrer rows.
func (s *Store) RowCounts(ctx context.Context) (daily, referrers int, err error) {
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM daily_traffic").Scan(&daily); err != nil {
		return 0, 0, &StorageError{Op: "counting daily traffic", Err: err}
	}
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM referrers").Scan(&referrers); err != nil {
		return 0, 0, &StorageError{Op: "counting referrers", Err: err}
	}
	return daily, referrers, nil
}

func scanDaily(rows *sql.Rows) ([]model.DailyTraffic, error) {
	defer func() { _ = rows.Close() }()

	var result []model.DailyTraffic
	for rows.Next() {
		var d model.DailyTraffic
		if err := rows.Scan(&d.Repo, &d.Date, &d.Views, &d.Visitors, &d.Clones, &d.CloneUniques); err != nil {
			return nil, &StorageError{Op: "scanning daily traffic", Err: err}
		}
		result = append(result, d)
	}
	if err := rows.Err(); err != nil {
		return nil, &StorageError{Op: "reading daily traffic", Err: err}
	}
	return result, nil
}
