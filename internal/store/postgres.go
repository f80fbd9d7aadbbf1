package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/careerlens/careers-cli/internal/db"
	"github.com/careerlens/careers-cli/internal/index"
	"github.com/careerlens/careers-cli/internal/model"
)

// PostgresStore implements Store using pgxpool. The embedding index lives in
// pgvector columns on the same pool.
type PostgresStore struct {
	pool    db.Pool
	index   *index.PgvectorIndex
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

const (
	getCachedQuerySQL = `SELECT key, results, created_at, expires_at FROM query_cache WHERE key = $1`
	setCachedQuerySQL = `INSERT INTO query_cache (key, results, created_at, expires_at) VALUES ($1, $2, $3, $4) ON CONFLICT (key) DO UPDATE SET results = EXCLUDED.results, created_at = EXCLUDED.created_at, expires_at = EXCLUDED.expires_at`
	deleteExpiredSQL  = `DELETE FROM query_cache WHERE expires_at < $1`
	listCareersSQL    = `SELECT doc FROM careers ORDER BY position`
)

// preparedStatements lists queries to prepare on each new connection. The
// recommend path hits the cache queries on every request.
var preparedStatements = map[string]string{
	"get_cached_query":       getCachedQuerySQL,
	"set_cached_query":       setCachedQuerySQL,
	"delete_expired_queries": deleteExpiredSQL,
	"list_careers":           listCareersSQL,
}

const undefinedTable = "42P01"

// NewPostgres creates a PostgresStore with a connection pool. dims sizes the
// vector columns.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig, dims int) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pgxCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		for name, sql := range preparedStatements {
			if _, err := conn.Prepare(ctx, name, sql); err != nil {
				// Tables may not exist before the first migrate.
				var pgErr *pgconn.PgError
				if errors.As(err, &pgErr) && pgErr.Code == undefinedTable {
					continue
				}
				return eris.Wrapf(err, "postgres: prepare %s", name)
			}
		}
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return newPostgresStore(pool, dims, pool.Close), nil
}

func newPostgresStore(pool db.Pool, dims int, closeFn func()) *PostgresStore {
	return &PostgresStore{pool: pool, index: index.NewPgvectorIndex(pool, dims), closeFn: closeFn}
}

// Pool returns the underlying database pool.
func (s *PostgresStore) Pool() db.Pool {
	return s.pool
}

// Index returns the pgvector-backed index.
func (s *PostgresStore) Index() Index {
	return s.index
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS careers (
	slug     TEXT PRIMARY KEY,
	position INTEGER NOT NULL,
	doc      JSONB NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_careers_position ON careers(position);

CREATE TABLE IF NOT EXISTS query_cache (
	key        TEXT PRIMARY KEY,
	results    JSONB NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	expires_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_query_cache_expires_at ON query_cache(expires_at);
`

func (s *PostgresStore) Ping(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "SELECT 1")
	return eris.Wrap(err, "postgres: ping")
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, postgresMigration); err != nil {
		return eris.Wrap(err, "postgres: migrate")
	}
	return s.index.Migrate(ctx)
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

// --- Careers ---

var careerColumns = []string{"slug", "position", "doc"}

// ReplaceCareers clears the table and copies the new set in one transaction.
func (s *PostgresStore) ReplaceCareers(ctx context.Context, careers []model.ConsolidatedCareer) error {
	rows := make([][]any, 0, len(careers))
	for i, c := range careers {
		doc, err := json.Marshal(c)
		if err != nil {
			return eris.Wrapf(err, "postgres: marshal career %s", c.Slug)
		}
		rows = append(rows, []any{c.Slug, int32(i), doc})
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return eris.Wrap(err, "postgres: begin replace careers")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if _, err := tx.Exec(ctx, `DELETE FROM careers`); err != nil {
		return eris.Wrap(err, "postgres: clear careers")
	}
	if _, err := db.CopyFrom(ctx, tx, "careers", careerColumns, rows); err != nil {
		return eris.Wrap(err, "postgres: copy careers")
	}
	return eris.Wrap(tx.Commit(ctx), "postgres: commit careers")
}

func (s *PostgresStore) ListCareers(ctx context.Context) ([]model.ConsolidatedCareer, error) {
	rows, err := s.pool.Query(ctx, listCareersSQL)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list careers")
	}
	defer rows.Close()

	careers := make([]model.ConsolidatedCareer, 0)
	for rows.Next() {
		var doc []byte
		if err := rows.Scan(&doc); err != nil {
			return nil, eris.Wrap(err, "postgres: scan career")
		}
		var c model.ConsolidatedCareer
		if err := json.Unmarshal(doc, &c); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal career")
		}
		careers = append(careers, c)
	}
	return careers, eris.Wrap(rows.Err(), "postgres: iterate careers")
}

// --- Query cache ---

func (s *PostgresStore) GetCachedQuery(ctx context.Context, key string) (*model.CachedQuery, error) {
	var q model.CachedQuery
	var results []byte
	err := s.pool.QueryRow(ctx, getCachedQuerySQL, key).Scan(&q.Key, &results, &q.CreatedAt, &q.ExpiresAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrap(err, "postgres: get cached query")
	}
	if err := json.Unmarshal(results, &q.Results); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal cached results")
	}
	return &q, nil
}

func (s *PostgresStore) SetCachedQuery(ctx context.Context, q model.CachedQuery) error {
	results, err := json.Marshal(q.Results)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal cached results")
	}
	_, err = s.pool.Exec(ctx, setCachedQuerySQL, q.Key, results, q.CreatedAt, q.ExpiresAt)
	return eris.Wrap(err, "postgres: set cached query")
}

func (s *PostgresStore) DeleteExpiredQueries(ctx context.Context, now time.Time) (int, error) {
	tag, err := s.pool.Exec(ctx, deleteExpiredSQL, now)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: delete expired queries")
	}
	return int(tag.RowsAffected()), nil
}
