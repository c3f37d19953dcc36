package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/akashaero/fairval/internal/provider"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS snapshots (
	ticker     TEXT PRIMARY KEY,
	data       TEXT NOT NULL,
	fetched_at DATETIME NOT NULL,
	expires_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS runs (
	id         TEXT PRIMARY KEY,
	ticker     TEXT NOT NULL,
	inputs     TEXT NOT NULL,
	fair_value REAL NOT NULL,
	price      REAL NOT NULL,
	implied    TEXT,
	created_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_snapshots_expires_at ON snapshots(expires_at);
CREATE INDEX IF NOT EXISTS idx_runs_ticker ON runs(ticker);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) GetSnapshot(ctx context.Context, ticker string) (*provider.Snapshot, error) {
	var data string
	err := s.db.QueryRowContext(ctx,
		`SELECT data FROM snapshots WHERE ticker = ? AND expires_at > ?`,
		ticker, time.Now().UTC(),
	).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get snapshot %s", ticker)
	}

	var snap provider.Snapshot
	if err := json.Unmarshal([]byte(data), &snap); err != nil {
		return nil, eris.Wrapf(err, "sqlite: unmarshal snapshot %s", ticker)
	}
	return &snap, nil
}

func (s *SQLiteStore) PutSnapshot(ctx context.Context, snap *provider.Snapshot, ttl time.Duration) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return eris.Wrapf(err, "sqlite: marshal snapshot %s", snap.Ticker)
	}

	now := time.Now().UTC()
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO snapshots (ticker, data, fetched_at, expires_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(ticker) DO UPDATE SET data = excluded.data, fetched_at = excluded.fetched_at, expires_at = excluded.expires_at`,
		snap.Ticker, string(data), now, now.Add(ttl),
	)
	return eris.Wrapf(err, "sqlite: put snapshot %s", snap.Ticker)
}

func (s *SQLiteStore) DeleteExpiredSnapshots(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM snapshots WHERE expires_at <= ?`, time.Now().UTC())
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: delete expired snapshots")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: rows affected")
	}
	return n, nil
}

func (s *SQLiteStore) SaveRun(ctx context.Context, run *Run) error {
	if run.ID == "" {
		run.ID = uuid.New().String()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}

	inputs, err := json.Marshal(run.Inputs)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal inputs")
	}
	implied, err := json.Marshal(run.Implied)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal implied")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO runs (id, ticker, inputs, fair_value, price, implied, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Ticker, string(inputs), run.FairValue, run.Price, string(implied), run.CreatedAt,
	)
	return eris.Wrapf(err, "sqlite: insert run %s", run.ID)
}

func (s *SQLiteStore) ListRuns(ctx context.Context, ticker string, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `SELECT id, ticker, inputs, fair_value, price, implied, created_at FROM runs`
	args := []any{}
	if ticker != "" {
		query += ` WHERE ticker = ?`
		args = append(args, ticker)
	}
	query += ` ORDER BY created_at DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list runs")
	}
	defer rows.Close() //nolint:errcheck

	var out []Run
	for rows.Next() {
		var r Run
		var inputs, implied string
		if err := rows.Scan(&r.ID, &r.Ticker, &inputs, &r.FairValue, &r.Price, &implied, &r.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan run")
		}
		if err := json.Unmarshal([]byte(inputs), &r.Inputs); err != nil {
			return nil, eris.Wrapf(err, "sqlite: unmarshal inputs for run %s", r.ID)
		}
		if implied != "" {
			if err := json.Unmarshal([]byte(implied), &r.Implied); err != nil {
				return nil, eris.Wrapf(err, "sqlite: unmarshal implied for run %s", r.ID)
			}
		}
		out = append(out, r)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: iterate runs")
}
