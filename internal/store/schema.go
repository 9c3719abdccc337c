package store

// schema is executed one statement at a time; libsql's remote driver
// rejects multi-statement Exec.
var schema = []struct {
	name string
	sql  string
}{
	{"daily_traffic table", `CREATE TABLE IF NOT EXISTS daily_traffic (
    id                   INTEGER PRIMARY KEY AUTOINCREMENT,
    repo                 TEXT NOT NULL,
    date                 TEXT NOT NULL,
    views                INTEGER NOT NULL DEFAULT 0,
    visitors             INTEGER NOT NULL DEFAULT 0,
    clones               INTEGER NOT NULL DEFAULT 0,
    clone_uniques        INTEGER NOT NULL DEFAULT 0,
    UNIQUE(repo, date)
)`},
	{"referrers table", `CREATE TABLE IF NOT EXISTS referrers (
    id                   INTEGER PRIMARY KEY AUTOINCREMENT,
    repo                 TEXT NOT NULL,
    date                 TEXT NOT NULL,
    referrer             TEXT NOT NULL,
    count                INTEGER NOT NULL DEFAULT 0,
    uniques              INTEGER NOT NULL DEFAULT 0,
    UNIQUE(repo, date, referrer)
)`},
	{"daily_traffic index", `CREATE INDEX IF NOT EXISTS idx_daily_traffic_repo_date ON daily_traffic(repo, date)`},
	{"referrers index", `CREATE INDEX IF NOT EXISTS idx_referrers_repo_date ON referrers(repo, date)`},
}
