package index

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/careerlens/careers-cli/internal/model"
)

func facets(task, narrative, skills []float32) model.FacetVectors {
	return model.FacetVectors{Task: task, Narrative: narrative, Skills: skills}
}

func seededIndex(t *testing.T) *MemoryIndex {
	t.Helper()
	idx := NewMemoryIndex(2)
	ctx := context.Background()
	for _, e := range []model.EmbeddingEntry{
		{CareerSlug: "nursing", IsConsolidated: true, Vectors: facets([]float32{1, 0}, []float32{1, 0}, []float32{1, 0})},
		{CareerSlug: "registered-nurses", ParentCareerSlug: strPtr("nursing"), Vectors: facets([]float32{1, 0}, []float32{1, 0}, []float32{1, 0})},
		{CareerSlug: "electricians", Vectors: facets([]float32{0, 1}, []float32{1, 1}, []float32{0, 1})},
		{CareerSlug: "welders", Vectors: facets([]float32{0, 1}, []float32{1, 1}, []float32{0, 1})},
		{CareerSlug: "half-done", Vectors: facets([]float32{1, 0}, nil, []float32{1, 0})},
	} {
		require.NoError(t, idx.Replace(ctx, e))
	}
	return idx
}

func nursingQuery() model.FacetVectors {
	return facets([]float32{1, 0}, []float32{1, 0}, []float32{1, 0})
}

func slugsOf(rs []model.RankedCareer) []string {
	out := make([]string, len(rs))
	for i, r := range rs {
		out[i] = r.Slug
	}
	return out
}

func TestRanker_PreferConsolidated(t *testing.T) {
	r := NewRanker(seededIndex(t), 2)

	res, err := r.RankSimilar(context.Background(), Query{
		Vectors: nursingQuery(), Weights: DefaultWeights(), PreferConsolidated: true,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"nursing", "electricians", "welders"}, slugsOf(res))
	for _, rc := range res {
		assert.Nil(t, rc.ParentSlug)
	}
	assert.InDelta(t, 1, res[0].Similarity, 1e-9)
}

func TestRanker_IncludeSpecializations(t *testing.T) {
	r := NewRanker(seededIndex(t), 2)

	res, err := r.RankSimilar(context.Background(), Query{
		Vectors: nursingQuery(), Weights: DefaultWeights(), PreferConsolidated: false,
	})
	require.NoError(t, err)
	// Equal scores fall back to slug order.
	assert.Equal(t, []string{"nursing", "registered-nurses", "electricians", "welders"}, slugsOf(res))
	require.NotNil(t, res[1].ParentSlug)
	assert.Equal(t, "nursing", *res[1].ParentSlug)
}

func TestRanker_Limit(t *testing.T) {
	r := NewRanker(seededIndex(t), 2)

	res, err := r.RankSimilar(context.Background(), Query{
		Vectors: nursingQuery(), Weights: DefaultWeights(), Limit: 2, PreferConsolidated: true,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"nursing", "electricians"}, slugsOf(res))
}

func TestRanker_NoEligibleCandidates(t *testing.T) {
	idx := NewMemoryIndex(2)
	require.NoError(t, idx.Replace(context.Background(), model.EmbeddingEntry{
		CareerSlug: "half-done", Vectors: facets([]float32{1, 0}, nil, nil),
	}))

	res, err := NewRanker(idx, 2).RankSimilar(context.Background(), Query{Vectors: nursingQuery(), Weights: DefaultWeights()})
	require.NoError(t, err)
	assert.NotNil(t, res)
	assert.Empty(t, res)
}

func TestRanker_QueryDimensionMismatch(t *testing.T) {
	r := NewRanker(seededIndex(t), 2)

	_, err := r.RankSimilar(context.Background(), Query{
		Vectors: facets([]float32{1, 0, 0}, []float32{1, 0, 0}, []float32{1, 0, 0}),
	})
	assert.ErrorIs(t, err, ErrDimensionMismatch)

	_, err = r.RankSimilar(context.Background(), Query{Vectors: facets([]float32{1, 0}, nil, []float32{1, 0})})
	assert.ErrorIs(t, err, ErrDimensionMismatch)
}

type failingSource struct{}

func (failingSource) Candidates(context.Context, bool) ([]model.EmbeddingEntry, error) {
	return nil, errors.New("store down")
}

func (failingSource) Activities(context.Context) ([]model.WorkActivity, error) {
	return nil, errors.New("store down")
}

func TestRanker_SourceError(t *testing.T) {
	r := NewRanker(failingSource{}, 0)
	_, err := r.RankSimilar(context.Background(), Query{Vectors: nursingQuery()})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "load candidates")

	_, err = r.RankActivities(context.Background(), []float32{1}, 5)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "load activities")
}

func TestRanker_RankActivities(t *testing.T) {
	idx := NewMemoryIndex(2)
	require.NoError(t, idx.ReplaceActivities(context.Background(), []model.WorkActivity{
		{ID: "4.A.2.a.4", Title: "Analyze data", Vector: []float32{0, 1}},
		{ID: "4.A.1.a.1", Title: "Gather information", Vector: []float32{1, 0}},
		{ID: "4.A.3.a.1", Title: "Perform physical work", Vector: []float32{1, 1}},
	}))
	r := NewRanker(idx, 2)

	res, err := r.RankActivities(context.Background(), []float32{1, 0}, 2)
	require.NoError(t, err)
	require.Len(t, res, 2)
	assert.Equal(t, "4.A.1.a.1", res[0].ID)
	assert.Equal(t, "Gather information", res[0].Title)
	assert.InDelta(t, 1, res[0].Similarity, 1e-9)
	assert.Equal(t, "4.A.3.a.1", res[1].ID)

	_, err = r.RankActivities(context.Background(), []float32{1}, 2)
	assert.ErrorIs(t, err, ErrDimensionMismatch)
}
