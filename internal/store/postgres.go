package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/akashaero/fairval/internal/provider"
)

// Pool is the subset of pgxpool.Pool the store uses; pgxmock satisfies it
// in tests.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
	Close()
}

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool Pool
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}
	pgxCfg.MaxConns = 5
	pgxCfg.MaxConnLifetime = 30 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS snapshots (
	ticker     TEXT PRIMARY KEY,
	data       JSONB NOT NULL,
	fetched_at TIMESTAMPTZ NOT NULL,
	expires_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS runs (
	id         TEXT PRIMARY KEY,
	ticker     TEXT NOT NULL,
	inputs     JSONB NOT NULL,
	fair_value DOUBLE PRECISION NOT NULL,
	price      DOUBLE PRECISION NOT NULL,
	implied    JSONB,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_snapshots_expires_at ON snapshots(expires_at);
CREATE INDEX IF NOT EXISTS idx_runs_ticker ON runs(ticker);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) GetSnapshot(ctx context.Context, ticker string) (*provider.Snapshot, error) {
	var data []byte
	err := s.pool.QueryRow(ctx,
		`SELECT data FROM snapshots WHERE ticker = $1 AND expires_at > now()`,
		ticker,
	).Scan(&data)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get snapshot %s", ticker)
	}

	var snap provider.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, eris.Wrapf(err, "postgres: unmarshal snapshot %s", ticker)
	}
	return &snap, nil
}

func (s *PostgresStore) PutSnapshot(ctx context.Context, snap *provider.Snapshot, ttl time.Duration) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return eris.Wrapf(err, "postgres: marshal snapshot %s", snap.Ticker)
	}

	now := time.Now().UTC()
	_, err = s.pool.Exec(ctx,
		`INSERT INTO snapshots (ticker, data, fetched_at, expires_at) VALUES ($1, $2, $3, $4)
		 ON CONFLICT (ticker) DO UPDATE SET data = EXCLUDED.data, fetched_at = EXCLUDED.fetched_at, expires_at = EXCLUDED.expires_at`,
		snap.Ticker, data, now, now.Add(ttl),
	)
	return eris.Wrapf(err, "postgres: put snapshot %s", snap.Ticker)
}

func (s *PostgresStore) DeleteExpiredSnapshots(ctx context.Context) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM snapshots WHERE expires_at <= now()`)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: delete expired snapshots")
	}
	return tag.RowsAffected(), nil
}

func (s *PostgresStore) SaveRun(ctx context.Context, run *Run) error {
	if run.ID == "" {
		run.ID = uuid.New().String()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}

	inputs, err := json.Marshal(run.Inputs)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal inputs")
	}
	implied, err := json.Marshal(run.Implied)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal implied")
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO runs (id, ticker, inputs, fair_value, price, implied, created_at) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		run.ID, run.Ticker, inputs, run.FairValue, run.Price, implied, run.CreatedAt,
	)
	return eris.Wrapf(err, "postgres: insert run %s", run.ID)
}

func (s *PostgresStore) ListRuns(ctx context.Context, ticker string, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `SELECT id, ticker, inputs, fair_value, price, implied, created_at FROM runs`
	args := []any{}
	if ticker != "" {
		query += ` WHERE ticker = $1 ORDER BY created_at DESC LIMIT $2`
		args = append(args, ticker, limit)
	} else {
		query += ` ORDER BY created_at DESC LIMIT $1`
		args = append(args, limit)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list runs")
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		var r Run
		var inputs, implied []byte
		if err := rows.Scan(&r.ID, &r.Ticker, &inputs, &r.FairValue, &r.Price, &implied, &r.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan run")
		}
		if err := json.Unmarshal(inputs, &r.Inputs); err != nil {
			return nil, eris.Wrapf(err, "postgres: unmarshal inputs for run %s", r.ID)
		}
		if len(implied) > 0 {
			if err := json.Unmarshal(implied, &r.Implied); err != nil {
				return nil, eris.Wrapf(err, "postgres: unmarshal implied for run %s", r.ID)
			}
		}
		out = append(out, r)
	}
	return out, eris.Wrap(rows.Err(), "postgres: iterate runs")
}
