package index

import (
	"context"
	"fmt"
	"time"

	"github.com/pgvector/pgvector-go"
	"github.com/rotisserie/eris"

	"github.com/careerlens/careers-cli/internal/db"
	"github.com/careerlens/careers-cli/internal/model"
)

// PgvectorIndex keeps the index in Postgres vector columns and pushes
// ranking into SQL using the cosine distance operator.
type PgvectorIndex struct {
	pool db.Pool
	dims int
	now  func() time.Time
}

// NewPgvectorIndex creates an index over pool with vector(dims) columns.
func NewPgvectorIndex(pool db.Pool, dims int) *PgvectorIndex {
	return &PgvectorIndex{pool: pool, dims: dims, now: time.Now}
}

func pgvectorMigration(dims int) string {
	return fmt.Sprintf(`
CREATE EXTENSION IF NOT EXISTS vector;

CREATE TABLE IF NOT EXISTS career_embeddings (
	career_slug         TEXT PRIMARY KEY,
	task_embedding      vector(%[1]d),
	narrative_embedding vector(%[1]d),
	skills_embedding    vector(%[1]d),
	parent_career_slug  TEXT,
	is_consolidated     BOOLEAN NOT NULL DEFAULT false,
	updated_at          TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_career_embeddings_parent ON career_embeddings(parent_career_slug);

CREATE TABLE IF NOT EXISTS work_activities (
	id        TEXT PRIMARY KEY,
	title     TEXT NOT NULL,
	embedding vector(%[1]d) NOT NULL
);
`, dims)
}

// Migrate creates the vector extension and index tables.
func (p *PgvectorIndex) Migrate(ctx context.Context) error {
	if p.dims <= 0 {
		return eris.Errorf("index: pgvector needs positive dimensions, got %d", p.dims)
	}
	if _, err := p.pool.Exec(ctx, pgvectorMigration(p.dims)); err != nil {
		return eris.Wrap(err, "index: pgvector migrate")
	}
	return nil
}

const upsertEmbeddingSQL = `INSERT INTO career_embeddings
	(career_slug, task_embedding, narrative_embedding, skills_embedding, parent_career_slug, is_consolidated, updated_at)
VALUES ($1, $2::vector, $3::vector, $4::vector, $5, $6, $7)
ON CONFLICT (career_slug) DO UPDATE SET
	task_embedding = EXCLUDED.task_embedding,
	narrative_embedding = EXCLUDED.narrative_embedding,
	skills_embedding = EXCLUDED.skills_embedding,
	parent_career_slug = EXCLUDED.parent_career_slug,
	is_consolidated = EXCLUDED.is_consolidated,
	updated_at = EXCLUDED.updated_at`

// Replace upserts one row inside a transaction so all three facets change
// together.
func (p *PgvectorIndex) Replace(ctx context.Context, entry model.EmbeddingEntry) error {
	if err := checkFacets(entry.Vectors, p.dims); err != nil {
		return eris.Wrapf(err, "index: replace %s", entry.CareerSlug)
	}

	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return eris.Wrap(err, "index: begin replace")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	_, err = tx.Exec(ctx, upsertEmbeddingSQL,
		entry.CareerSlug,
		vectorArg(entry.Vectors.Task),
		vectorArg(entry.Vectors.Narrative),
		vectorArg(entry.Vectors.Skills),
		entry.ParentCareerSlug,
		entry.IsConsolidated,
		p.now().UTC(),
	)
	if err != nil {
		return eris.Wrapf(err, "index: upsert %s", entry.CareerSlug)
	}
	if err := tx.Commit(ctx); err != nil {
		return eris.Wrapf(err, "index: commit %s", entry.CareerSlug)
	}
	return nil
}

// ReplaceActivities bulk-upserts the work-activity catalog.
func (p *PgvectorIndex) ReplaceActivities(ctx context.Context, activities []model.WorkActivity) error {
	rows := make([][]any, 0, len(activities))
	for _, a := range activities {
		if len(a.Vector) != p.dims {
			return eris.Wrapf(ErrDimensionMismatch, "index: activity %s has %d dimensions", a.ID, len(a.Vector))
		}
		rows = append(rows, []any{a.ID, a.Title, pgvector.NewVector(a.Vector)})
	}

	_, err := db.BulkUpsert(ctx, p.pool, db.UpsertConfig{
		Table:        "work_activities",
		Columns:      []string{"id", "title", "embedding"},
		ConflictKeys: []string{"id"},
	}, rows)
	if err != nil {
		return eris.Wrap(err, "index: replace activities")
	}
	return nil
}

// Prune deletes rows whose slug is not in keep.
func (p *PgvectorIndex) Prune(ctx context.Context, keep []string) (int, error) {
	tag, err := p.pool.Exec(ctx, `DELETE FROM career_embeddings WHERE NOT (career_slug = ANY($1))`, keep)
	if err != nil {
		return 0, eris.Wrap(err, "index: prune")
	}
	return int(tag.RowsAffected()), nil
}

// cosineSQL is 1 - cosine distance with NaN mapped to 0. pgvector returns
// NaN when either side has zero norm, and NaN sorts above every number.
func cosineSQL(column, arg string) string {
	return fmt.Sprintf("COALESCE(NULLIF(1 - (%s <=> %s::vector), 'NaN'::float8), 0)", column, arg)
}

// Similarities are computed once in the inner select; the outer query
// applies the weights, ordering, and limit. A NULL limit means no limit.
var rankSimilarSQL = `SELECT career_slug, parent_career_slug, task_sim, narrative_sim, skills_sim,
	$4 * task_sim + $5 * narrative_sim + $6 * skills_sim AS similarity
FROM (
	SELECT career_slug, parent_career_slug,
		` + cosineSQL("task_embedding", "$1") + ` AS task_sim,
		` + cosineSQL("narrative_embedding", "$2") + ` AS narrative_sim,
		` + cosineSQL("skills_embedding", "$3") + ` AS skills_sim
	FROM career_embeddings
	WHERE task_embedding IS NOT NULL
		AND narrative_embedding IS NOT NULL
		AND skills_embedding IS NOT NULL
		AND (NOT $7::boolean OR parent_career_slug IS NULL)
) scored
ORDER BY similarity DESC, career_slug ASC
LIMIT $8`

// RankSimilar runs the weighted three-facet search in SQL.
func (p *PgvectorIndex) RankSimilar(ctx context.Context, q Query) ([]model.RankedCareer, error) {
	if _, err := queryDims(q.Vectors, p.dims); err != nil {
		return nil, err
	}

	rows, err := p.pool.Query(ctx, rankSimilarSQL,
		pgvector.NewVector(q.Vectors.Task),
		pgvector.NewVector(q.Vectors.Narrative),
		pgvector.NewVector(q.Vectors.Skills),
		q.Weights.Task, q.Weights.Narrative, q.Weights.Skills,
		q.PreferConsolidated,
		limitArg(q.Limit),
	)
	if err != nil {
		return nil, eris.Wrap(err, "index: rank similar")
	}
	defer rows.Close()

	results := make([]model.RankedCareer, 0)
	for rows.Next() {
		var rc model.RankedCareer
		if err := rows.Scan(&rc.Slug, &rc.ParentSlug, &rc.TaskSimilarity, &rc.NarrativeSimilarity, &rc.SkillsSimilarity, &rc.Similarity); err != nil {
			return nil, eris.Wrap(err, "index: scan ranked career")
		}
		results = append(results, rc)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "index: iterate ranked careers")
	}
	return results, nil
}

var rankActivitiesSQL = `SELECT id, title, ` + cosineSQL("embedding", "$1") + ` AS similarity
FROM work_activities
ORDER BY similarity DESC, id ASC
LIMIT $2`

// RankActivities ranks the catalog against one query vector.
func (p *PgvectorIndex) RankActivities(ctx context.Context, query []float32, limit int) ([]model.RankedActivity, error) {
	if len(query) != p.dims {
		return nil, eris.Wrapf(ErrDimensionMismatch, "index: activity query has %d dimensions", len(query))
	}

	rows, err := p.pool.Query(ctx, rankActivitiesSQL, pgvector.NewVector(query), limitArg(limit))
	if err != nil {
		return nil, eris.Wrap(err, "index: rank activities")
	}
	defer rows.Close()

	results := make([]model.RankedActivity, 0)
	for rows.Next() {
		var ra model.RankedActivity
		if err := rows.Scan(&ra.ID, &ra.Title, &ra.Similarity); err != nil {
			return nil, eris.Wrap(err, "index: scan ranked activity")
		}
		results = append(results, ra)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "index: iterate ranked activities")
	}
	return results, nil
}

// vectorArg maps an empty facet to SQL NULL.
func vectorArg(v []float32) any {
	if len(v) == 0 {
		return nil
	}
	return pgvector.NewVector(v)
}

func limitArg(limit int) any {
	if limit <= 0 {
		return nil
	}
	return limit
}
