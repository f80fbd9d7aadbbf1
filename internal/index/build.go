package index

import (
	"context"
	"sync/atomic"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/careerlens/careers-cli/internal/embedding"
	"github.com/careerlens/careers-cli/internal/model"
)

// BuildStats counts what a Build wrote.
type BuildStats struct {
	Entries         int `json:"entries"`
	Specializations int `json:"specializations"`
	// Partial rows lack at least one facet and are never ranked.
	Partial int `json:"partial"`
	// Pruned rows belonged to careers that no longer exist.
	Pruned int `json:"pruned"`
}

// Build embeds every plan and replaces its row, then prunes rows of careers
// that are no longer planned. Up to workers plans are embedded at once; the
// first embedding or write error aborts the build before anything is pruned.
// Blank documents leave their facet empty instead of failing.
func Build(ctx context.Context, plans []Plan, e embedding.Embedder, w Writer, workers int) (*BuildStats, error) {
	if err := ValidateParents(skeleton(plans)); err != nil {
		return nil, err
	}
	if workers < 1 {
		workers = 1
	}

	var specializations, partial atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for _, p := range plans {
		g.Go(func() error {
			vectors, err := embedDocuments(gctx, e, p.Documents)
			if err != nil {
				return eris.Wrapf(err, "index: embed %s", p.CareerSlug)
			}
			if !vectors.Complete() {
				partial.Add(1)
				zap.L().Warn("index: entry missing a facet, it will not be ranked", zap.String("slug", p.CareerSlug))
			}
			if p.ParentSlug != nil {
				specializations.Add(1)
			}
			return w.Replace(gctx, model.EmbeddingEntry{
				CareerSlug:       p.CareerSlug,
				Vectors:          vectors,
				ParentCareerSlug: p.ParentSlug,
				IsConsolidated:   p.IsConsolidated,
			})
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	keep := make([]string, len(plans))
	for i, p := range plans {
		keep[i] = p.CareerSlug
	}
	pruned, err := w.Prune(ctx, keep)
	if err != nil {
		return nil, eris.Wrap(err, "index: prune stale rows")
	}

	stats := &BuildStats{
		Entries:         len(plans),
		Specializations: int(specializations.Load()),
		Partial:         int(partial.Load()),
		Pruned:          pruned,
	}
	zap.L().Info("index: build complete",
		zap.Int("entries", stats.Entries),
		zap.Int("specializations", stats.Specializations),
		zap.Int("partial", stats.Partial),
		zap.Int("pruned", stats.Pruned),
	)
	return stats, nil
}

// BuildActivities embeds work-activity titles and replaces the catalog.
func BuildActivities(ctx context.Context, activities []model.WorkActivity, e embedding.Embedder, w Writer, workers int) (int, error) {
	if workers < 1 {
		workers = 1
	}
	out := make([]model.WorkActivity, len(activities))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, a := range activities {
		g.Go(func() error {
			v, err := e.Embed(gctx, a.Title)
			if err != nil {
				return eris.Wrapf(err, "index: embed activity %s", a.ID)
			}
			out[i] = model.WorkActivity{ID: a.ID, Title: a.Title, Vector: v}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}
	if err := w.ReplaceActivities(ctx, out); err != nil {
		return 0, err
	}
	return len(out), nil
}

func embedDocuments(ctx context.Context, e embedding.Embedder, d Documents) (model.FacetVectors, error) {
	var v model.FacetVectors
	for _, f := range []struct {
		text string
		dst  *[]float32
	}{
		{d.Task, &v.Task},
		{d.Narrative, &v.Narrative},
		{d.Skills, &v.Skills},
	} {
		if f.text == "" {
			continue
		}
		vec, err := e.Embed(ctx, f.text)
		if err != nil {
			return model.FacetVectors{}, err
		}
		*f.dst = vec
	}
	return v, nil
}

// skeleton converts plans into vector-less entries for parent validation.
func skeleton(plans []Plan) []model.EmbeddingEntry {
	entries := make([]model.EmbeddingEntry, len(plans))
	for i, p := range plans {
		entries[i] = model.EmbeddingEntry{
			CareerSlug:       p.CareerSlug,
			ParentCareerSlug: p.ParentSlug,
			IsConsolidated:   p.IsConsolidated,
		}
	}
	return entries
}
