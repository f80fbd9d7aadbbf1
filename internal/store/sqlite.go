package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/careerlens/careers-cli/internal/index"
	"github.com/careerlens/careers-cli/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite. Embeddings are
// stored as JSON arrays and ranked in memory by index.Ranker.
type SQLiteStore struct {
	db   *sql.DB
	dims int
	now  func() time.Time
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string, dims int) (*SQLiteStore, error) {
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
			db.Close() //nolint:errcheck
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db, dims: dims, now: time.Now}, nil
}

// Timestamps are stored as Unix milliseconds so range predicates compare
// integers.
const sqliteMigration = `
CREATE TABLE IF NOT EXISTS careers (
	slug     TEXT PRIMARY KEY,
	position INTEGER NOT NULL,
	doc      TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS career_embeddings (
	career_slug         TEXT PRIMARY KEY,
	task_embedding      TEXT,
	narrative_embedding TEXT,
	skills_embedding    TEXT,
	parent_career_slug  TEXT,
	is_consolidated     INTEGER NOT NULL DEFAULT 0,
	updated_at          INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS work_activities (
	id        TEXT PRIMARY KEY,
	title     TEXT NOT NULL,
	embedding TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS query_cache (
	key        TEXT PRIMARY KEY,
	results    TEXT NOT NULL,
	created_at INTEGER NOT NULL,
	expires_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_careers_position ON careers(position);
CREATE INDEX IF NOT EXISTS idx_career_embeddings_parent ON career_embeddings(parent_career_slug);
CREATE INDEX IF NOT EXISTS idx_query_cache_expires_at ON query_cache(expires_at);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Index ranks by linear scan over this store's rows.
func (s *SQLiteStore) Index() Index {
	return sqliteIndex{Ranker: index.NewRanker(s, s.dims), SQLiteStore: s}
}

type sqliteIndex struct {
	*index.Ranker
	*SQLiteStore
}

// --- Careers ---

func (s *SQLiteStore) ReplaceCareers(ctx context.Context, careers []model.ConsolidatedCareer) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin replace careers")
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, `DELETE FROM careers`); err != nil {
		return eris.Wrap(err, "sqlite: clear careers")
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO careers (slug, position, doc) VALUES (?, ?, ?)`)
	if err != nil {
		return eris.Wrap(err, "sqlite: prepare insert career")
	}
	defer stmt.Close() //nolint:errcheck

	for i, c := range careers {
		doc, err := json.Marshal(c)
		if err != nil {
			return eris.Wrapf(err, "sqlite: marshal career %s", c.Slug)
		}
		if _, err := stmt.ExecContext(ctx, c.Slug, i, string(doc)); err != nil {
			return eris.Wrapf(err, "sqlite: insert career %s", c.Slug)
		}
	}
	return eris.Wrap(tx.Commit(), "sqlite: commit careers")
}

func (s *SQLiteStore) ListCareers(ctx context.Context) ([]model.ConsolidatedCareer, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT doc FROM careers ORDER BY position`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list careers")
	}
	defer rows.Close() //nolint:errcheck

	careers := make([]model.ConsolidatedCareer, 0)
	for rows.Next() {
		var doc string
		if err := rows.Scan(&doc); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan career")
		}
		var c model.ConsolidatedCareer
		if err := json.Unmarshal([]byte(doc), &c); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal career")
		}
		careers = append(careers, c)
	}
	return careers, eris.Wrap(rows.Err(), "sqlite: iterate careers")
}

// --- Embedding index ---

// Replace upserts one row; all facets change in a single statement.
func (s *SQLiteStore) Replace(ctx context.Context, entry model.EmbeddingEntry) error {
	for _, f := range [][]float32{entry.Vectors.Task, entry.Vectors.Narrative, entry.Vectors.Skills} {
		if len(f) != 0 && s.dims > 0 && len(f) != s.dims {
			return eris.Wrapf(index.ErrDimensionMismatch, "sqlite: replace %s: got %d, want %d", entry.CareerSlug, len(f), s.dims)
		}
	}

	task, err := encodeVector(entry.Vectors.Task)
	if err != nil {
		return err
	}
	narrative, err := encodeVector(entry.Vectors.Narrative)
	if err != nil {
		return err
	}
	skills, err := encodeVector(entry.Vectors.Skills)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO career_embeddings
			(career_slug, task_embedding, narrative_embedding, skills_embedding, parent_career_slug, is_consolidated, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (career_slug) DO UPDATE SET
			task_embedding = excluded.task_embedding,
			narrative_embedding = excluded.narrative_embedding,
			skills_embedding = excluded.skills_embedding,
			parent_career_slug = excluded.parent_career_slug,
			is_consolidated = excluded.is_consolidated,
			updated_at = excluded.updated_at`,
		entry.CareerSlug, task, narrative, skills, entry.ParentCareerSlug, entry.IsConsolidated, s.now().UnixMilli(),
	)
	return eris.Wrapf(err, "sqlite: upsert embedding %s", entry.CareerSlug)
}

func (s *SQLiteStore) Prune(ctx context.Context, keep []string) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: begin prune")
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, `CREATE TEMP TABLE IF NOT EXISTS keep_slugs (slug TEXT PRIMARY KEY)`); err != nil {
		return 0, eris.Wrap(err, "sqlite: create keep table")
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM keep_slugs`); err != nil {
		return 0, eris.Wrap(err, "sqlite: clear keep table")
	}
	for _, slug := range keep {
		if _, err := tx.ExecContext(ctx, `INSERT OR IGNORE INTO keep_slugs (slug) VALUES (?)`, slug); err != nil {
			return 0, eris.Wrap(err, "sqlite: stage keep slug")
		}
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM career_embeddings WHERE career_slug NOT IN (SELECT slug FROM keep_slugs)`)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: prune embeddings")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: rows affected")
	}
	return int(n), eris.Wrap(tx.Commit(), "sqlite: commit prune")
}

func (s *SQLiteStore) ReplaceActivities(ctx context.Context, activities []model.WorkActivity) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin replace activities")
	}
	defer tx.Rollback() //nolint:errcheck

	for _, a := range activities {
		if s.dims > 0 && len(a.Vector) != s.dims {
			return eris.Wrapf(index.ErrDimensionMismatch, "sqlite: activity %s has %d dimensions", a.ID, len(a.Vector))
		}
		vec, err := encodeVector(a.Vector)
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO work_activities (id, title, embedding) VALUES (?, ?, ?)
			 ON CONFLICT (id) DO UPDATE SET title = excluded.title, embedding = excluded.embedding`,
			a.ID, a.Title, vec,
		)
		if err != nil {
			return eris.Wrapf(err, "sqlite: upsert activity %s", a.ID)
		}
	}
	return eris.Wrap(tx.Commit(), "sqlite: commit activities")
}

// Candidates implements index.Source.
func (s *SQLiteStore) Candidates(ctx context.Context, preferConsolidated bool) ([]model.EmbeddingEntry, error) {
	q := `SELECT career_slug, task_embedding, narrative_embedding, skills_embedding, parent_career_slug, is_consolidated, updated_at
		FROM career_embeddings`
	if preferConsolidated {
		q += ` WHERE parent_career_slug IS NULL`
	}
	q += ` ORDER BY career_slug`

	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: query embeddings")
	}
	defer rows.Close() //nolint:errcheck

	var entries []model.EmbeddingEntry
	for rows.Next() {
		var e model.EmbeddingEntry
		var task, narrative, skills, parent sql.NullString
		var updated int64
		if err := rows.Scan(&e.CareerSlug, &task, &narrative, &skills, &parent, &e.IsConsolidated, &updated); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan embedding")
		}
		if e.Vectors.Task, err = decodeVector(task); err != nil {
			return nil, err
		}
		if e.Vectors.Narrative, err = decodeVector(narrative); err != nil {
			return nil, err
		}
		if e.Vectors.Skills, err = decodeVector(skills); err != nil {
			return nil, err
		}
		if parent.Valid {
			e.ParentCareerSlug = &parent.String
		}
		e.UpdatedAt = time.UnixMilli(updated).UTC()
		entries = append(entries, e)
	}
	return entries, eris.Wrap(rows.Err(), "sqlite: iterate embeddings")
}

// Activities implements index.Source.
func (s *SQLiteStore) Activities(ctx context.Context) ([]model.WorkActivity, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, title, embedding FROM work_activities ORDER BY id`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: query activities")
	}
	defer rows.Close() //nolint:errcheck

	var out []model.WorkActivity
	for rows.Next() {
		var a model.WorkActivity
		var vec sql.NullString
		if err := rows.Scan(&a.ID, &a.Title, &vec); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan activity")
		}
		if a.Vector, err = decodeVector(vec); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: iterate activities")
}

// --- Query cache ---

func (s *SQLiteStore) GetCachedQuery(ctx context.Context, key string) (*model.CachedQuery, error) {
	var q model.CachedQuery
	var results string
	var created, expires int64
	err := s.db.QueryRowContext(ctx,
		`SELECT key, results, created_at, expires_at FROM query_cache WHERE key = ?`, key,
	).Scan(&q.Key, &results, &created, &expires)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: get cached query")
	}
	if err := json.Unmarshal([]byte(results), &q.Results); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal cached results")
	}
	q.CreatedAt = time.UnixMilli(created).UTC()
	q.ExpiresAt = time.UnixMilli(expires).UTC()
	return &q, nil
}

func (s *SQLiteStore) SetCachedQuery(ctx context.Context, q model.CachedQuery) error {
	results, err := json.Marshal(q.Results)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal cached results")
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO query_cache (key, results, created_at, expires_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT (key) DO UPDATE SET results = excluded.results, created_at = excluded.created_at, expires_at = excluded.expires_at`,
		q.Key, string(results), q.CreatedAt.UnixMilli(), q.ExpiresAt.UnixMilli(),
	)
	return eris.Wrap(err, "sqlite: set cached query")
}

func (s *SQLiteStore) DeleteExpiredQueries(ctx context.Context, now time.Time) (int, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM query_cache WHERE expires_at < ?`, now.UnixMilli())
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: delete expired queries")
	}
	n, err := res.RowsAffected()
	return int(n), eris.Wrap(err, "sqlite: rows affected")
}

// helpers

func encodeVector(v []float32) (any, error) {
	if len(v) == 0 {
		return nil, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: marshal vector")
	}
	return string(b), nil
}

func decodeVector(s sql.NullString) ([]float32, error) {
	if !s.Valid || s.String == "" {
		return nil, nil
	}
	var v []float32
	if err := json.Unmarshal([]byte(s.String), &v); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal vector")
	}
	return v, nil
}
