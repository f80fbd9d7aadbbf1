// Package recommend answers career queries: it embeds a profile, ranks the
// index, and memoizes the result per normalized profile.
package recommend

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/careerlens/careers-cli/internal/config"
	"github.com/careerlens/careers-cli/internal/embedding"
	"github.com/careerlens/careers-cli/internal/index"
	"github.com/careerlens/careers-cli/internal/model"
	"github.com/careerlens/careers-cli/internal/querycache"
)

// Options control one ranking.
type Options struct {
	Weights            index.Weights
	Limit              int
	PreferConsolidated bool
}

// OptionsFromConfig returns the configured ranking defaults.
func OptionsFromConfig(c config.RankerConfig) Options {
	return Options{
		Weights:            index.WeightsFromConfig(c.Weights),
		Limit:              c.Limit,
		PreferConsolidated: c.PreferConsolidated,
	}
}

// Service ranks careers for query profiles.
type Service struct {
	embedder *embedding.ProfileEmbedder
	searcher index.Searcher
	cache    *querycache.Cache
	careers  map[string]*model.ConsolidatedCareer
	opts     Options
}

// NewService creates a Service. cache may be nil to disable memoization.
func NewService(e *embedding.ProfileEmbedder, s index.Searcher, cache *querycache.Cache, opts Options) *Service {
	return &Service{embedder: e, searcher: s, cache: cache, opts: opts}
}

// WithCareers enables the salary and training constraints of a profile,
// which are checked against these careers.
func (s *Service) WithCareers(careers []model.ConsolidatedCareer) *Service {
	s.careers = make(map[string]*model.ConsolidatedCareer, len(careers))
	for i := range careers {
		s.careers[careers[i].Slug] = &careers[i]
	}
	return s
}

// Recommend ranks careers for p using the service defaults.
func (s *Service) Recommend(ctx context.Context, p model.QueryProfile) ([]model.RankedCareer, error) {
	return s.RecommendWith(ctx, p, s.opts)
}

// RecommendWith ranks careers for p. Results are cached under the profile
// hash qualified by opts, so differently ranked queries never share entries.
func (s *Service) RecommendWith(ctx context.Context, p model.QueryProfile, opts Options) ([]model.RankedCareer, error) {
	norm := p.Normalize()
	key := CacheKey(norm, opts)

	compute := func(ctx context.Context) ([]model.RankedCareer, error) {
		return s.rank(ctx, norm, opts)
	}
	if s.cache == nil {
		return compute(ctx)
	}
	return s.cache.GetOrCompute(ctx, key, compute)
}

func (s *Service) rank(ctx context.Context, p model.QueryProfile, opts Options) ([]model.RankedCareer, error) {
	start := time.Now()

	vectors, err := s.embedder.EmbedProfile(ctx, p)
	if err != nil {
		return nil, eris.Wrap(err, "recommend: embed profile")
	}

	constrained := s.careers != nil && (p.MinSalary != nil || p.MaxTrainingYears != nil)
	q := index.Query{
		Vectors:            vectors,
		Weights:            opts.Weights,
		Limit:              opts.Limit,
		PreferConsolidated: opts.PreferConsolidated,
	}
	if constrained {
		q.Limit = 0
	}

	ranked, err := s.searcher.RankSimilar(ctx, q)
	if err != nil {
		return nil, eris.Wrap(err, "recommend: rank")
	}
	if constrained {
		ranked = s.filter(ranked, p)
		if opts.Limit > 0 && len(ranked) > opts.Limit {
			ranked = ranked[:opts.Limit]
		}
	}

	zap.L().Info("recommend: ranked",
		zap.Int("results", len(ranked)),
		zap.Bool("constrained", constrained),
		zap.Duration("elapsed", time.Since(start)),
	)
	return ranked, nil
}

// filter drops careers failing the profile's salary or training bounds.
// Specializations are judged by their parent career; slugs unknown to the
// catalog are kept.
func (s *Service) filter(ranked []model.RankedCareer, p model.QueryProfile) []model.RankedCareer {
	out := make([]model.RankedCareer, 0, len(ranked))
	for _, r := range ranked {
		c, ok := s.careers[r.Slug]
		if !ok && r.ParentSlug != nil {
			c, ok = s.careers[*r.ParentSlug]
		}
		if ok && !Satisfies(c, p) {
			continue
		}
		out = append(out, r)
	}
	return out
}

// Satisfies reports whether c meets p's salary floor and training ceiling.
// A career whose median is unknown (zero) fails a salary floor.
func Satisfies(c *model.ConsolidatedCareer, p model.QueryProfile) bool {
	if p.MinSalary != nil && c.Wages.Median < *p.MinSalary {
		return false
	}
	if p.MaxTrainingYears != nil && minTrainingYears(c.TrainingTimeCategory) > *p.MaxTrainingYears {
		return false
	}
	return true
}

func minTrainingYears(c model.TrainingCategory) float64 {
	switch c {
	case model.TrainingUnder6Months:
		return 0
	case model.Training6To24Months:
		return 0.5
	case model.Training2To4Years:
		return 2
	case model.Training4PlusYears:
		return 4
	default:
		return math.Inf(1)
	}
}

// CacheKey is the profile hash qualified by the ranking options.
func CacheKey(p model.QueryProfile, opts Options) string {
	return fmt.Sprintf("%s:%t:%d:%g:%g:%g", p.Hash(), opts.PreferConsolidated, opts.Limit,
		opts.Weights.Task, opts.Weights.Narrative, opts.Weights.Skills)
}

// Activities ranks work activities against free text. Activity lookups are
// not cached.
func (s *Service) Activities(ctx context.Context, text string, limit int) ([]model.RankedActivity, error) {
	v, err := s.embedder.Embed(ctx, text)
	if err != nil {
		return nil, eris.Wrap(err, "recommend: embed activity query")
	}
	res, err := s.searcher.RankActivities(ctx, v, limit)
	if err != nil {
		return nil, eris.Wrap(err, "recommend: rank activities")
	}
	return res, nil
}
