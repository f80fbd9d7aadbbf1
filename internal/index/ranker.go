package index

import (
	"context"
	"errors"
	"sort"

	"github.com/rotisserie/eris"

	"github.com/careerlens/careers-cli/internal/model"
)

// ErrDimensionMismatch is returned when a query or stored vector does not
// have the index's dimensionality.
var ErrDimensionMismatch = errors.New("embedding dimension mismatch")

// Query is one similarity search over the career index.
type Query struct {
	Vectors            model.FacetVectors
	Weights            Weights
	Limit              int // <= 0 means no limit
	PreferConsolidated bool
}

// Searcher ranks careers and work activities against query embeddings.
type Searcher interface {
	RankSimilar(ctx context.Context, q Query) ([]model.RankedCareer, error)
	RankActivities(ctx context.Context, query []float32, limit int) ([]model.RankedActivity, error)
}

// Writer replaces index rows. Each call swaps whole rows so readers never
// observe a partially written entry.
type Writer interface {
	Replace(ctx context.Context, entry model.EmbeddingEntry) error
	ReplaceActivities(ctx context.Context, activities []model.WorkActivity) error
	// Prune deletes career rows whose slug is not in keep.
	Prune(ctx context.Context, keep []string) (int, error)
}

// Source supplies candidate rows to the linear-scan Ranker.
type Source interface {
	// Candidates returns every entry, excluding specializations when
	// preferConsolidated is set.
	Candidates(ctx context.Context, preferConsolidated bool) ([]model.EmbeddingEntry, error)
	Activities(ctx context.Context) ([]model.WorkActivity, error)
}

// Ranker scores every candidate of a Source in memory.
type Ranker struct {
	src  Source
	dims int
}

// NewRanker creates a Ranker over src. dims <= 0 disables the query
// dimensionality check.
func NewRanker(src Source, dims int) *Ranker {
	return &Ranker{src: src, dims: dims}
}

// RankSimilar scores every eligible candidate and returns them ordered by
// similarity descending, then slug ascending. Entries missing any facet are
// not eligible. The result is empty, never nil, when nothing qualifies.
func (r *Ranker) RankSimilar(ctx context.Context, q Query) ([]model.RankedCareer, error) {
	dims, err := queryDims(q.Vectors, r.dims)
	if err != nil {
		return nil, err
	}

	entries, err := r.src.Candidates(ctx, q.PreferConsolidated)
	if err != nil {
		return nil, eris.Wrap(err, "index: load candidates")
	}

	results := make([]model.RankedCareer, 0, len(entries))
	for i := range entries {
		e := &entries[i]
		if q.PreferConsolidated && e.IsSpecialization() {
			continue
		}
		if !eligible(e.Vectors, dims) {
			continue
		}
		rc := Score(q.Vectors, e.Vectors, q.Weights)
		rc.Slug = e.CareerSlug
		rc.ParentSlug = e.ParentCareerSlug
		results = append(results, rc)
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Similarity != results[j].Similarity {
			return results[i].Similarity > results[j].Similarity
		}
		return results[i].Slug < results[j].Slug
	})
	return truncate(results, q.Limit), nil
}

// RankActivities ranks the work-activity catalog against a single query
// vector. Activities have no hierarchy, so nothing is filtered.
func (r *Ranker) RankActivities(ctx context.Context, query []float32, limit int) ([]model.RankedActivity, error) {
	if len(query) == 0 || (r.dims > 0 && len(query) != r.dims) {
		return nil, eris.Wrapf(ErrDimensionMismatch, "index: activity query has %d dimensions", len(query))
	}

	activities, err := r.src.Activities(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "index: load activities")
	}

	results := make([]model.RankedActivity, 0, len(activities))
	for _, a := range activities {
		if len(a.Vector) != len(query) {
			continue
		}
		results = append(results, model.RankedActivity{
			ID:         a.ID,
			Title:      a.Title,
			Similarity: CosineSimilarity(query, a.Vector),
		})
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Similarity != results[j].Similarity {
			return results[i].Similarity > results[j].Similarity
		}
		return results[i].ID < results[j].ID
	})
	return truncate(results, limit), nil
}

// queryDims checks that all three query facets share one dimensionality,
// and that it matches want when want > 0.
func queryDims(v model.FacetVectors, want int) (int, error) {
	n := len(v.Task)
	if n == 0 || len(v.Narrative) != n || len(v.Skills) != n || (want > 0 && n != want) {
		return 0, eris.Wrapf(ErrDimensionMismatch, "index: query facets have %d/%d/%d dimensions, want %d",
			len(v.Task), len(v.Narrative), len(v.Skills), want)
	}
	return n, nil
}

func eligible(v model.FacetVectors, dims int) bool {
	return len(v.Task) == dims && len(v.Narrative) == dims && len(v.Skills) == dims
}

func truncate[T any](s []T, limit int) []T {
	if limit > 0 && len(s) > limit {
		return s[:limit]
	}
	return s
}
