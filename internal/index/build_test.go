package index

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/careerlens/careers-cli/internal/model"
)

// stubEmbedder returns a 2-d vector derived from the text length.
type stubEmbedder struct {
	mu    sync.Mutex
	texts []string
	fail  string
}

func (s *stubEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.texts = append(s.texts, text)
	if s.fail != "" && text == s.fail {
		return nil, errors.New("embedding service unavailable")
	}
	return []float32{float32(len(text)), 1}, nil
}

func TestBuild(t *testing.T) {
	careers, records := planFixture()
	plans := PlanEntries(careers, records)
	idx := NewMemoryIndex(2)
	e := &stubEmbedder{}

	stats, err := Build(context.Background(), plans, e, idx, 3)
	require.NoError(t, err)
	assert.Equal(t, 4, stats.Entries)
	assert.Equal(t, 2, stats.Specializations)
	// electricians and registered-nurses have no skills text.
	assert.Equal(t, 2, stats.Partial)
	assert.Equal(t, 4, idx.Len())
	assert.Zero(t, stats.Pruned)

	nursing, ok := idx.Get("nursing")
	require.True(t, ok)
	assert.True(t, nursing.IsConsolidated)
	assert.True(t, nursing.Vectors.Complete())

	rn, ok := idx.Get("registered-nurses")
	require.True(t, ok)
	require.NotNil(t, rn.ParentCareerSlug)
	assert.Equal(t, "nursing", *rn.ParentCareerSlug)
	assert.Empty(t, rn.Vectors.Skills)

	for _, text := range e.texts {
		assert.NotEmpty(t, text)
	}
}

func TestBuild_PrunesStaleRows(t *testing.T) {
	idx := NewMemoryIndex(2)
	require.NoError(t, idx.Replace(context.Background(), model.EmbeddingEntry{CareerSlug: "retired-career"}))
	plans := []Plan{{CareerSlug: "nursing", Documents: Documents{Task: "x", Narrative: "y", Skills: "z"}}}

	stats, err := Build(context.Background(), plans, &stubEmbedder{}, idx, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Pruned)
	_, ok := idx.Get("retired-career")
	assert.False(t, ok)
	assert.Equal(t, 1, idx.Len())
}

func TestBuild_EmbedFailureAborts(t *testing.T) {
	careers, records := planFixture()
	plans := PlanEntries(careers, records)
	e := &stubEmbedder{fail: "Install wiring"}

	_, err := Build(context.Background(), plans, e, NewMemoryIndex(2), 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "embed electricians")
}

func TestBuild_OrphanSpecialization(t *testing.T) {
	parent := "nursing"
	plans := []Plan{{CareerSlug: "registered-nurses", ParentSlug: &parent, Documents: Documents{Task: "x"}}}
	e := &stubEmbedder{}

	_, err := Build(context.Background(), plans, e, NewMemoryIndex(2), 1)
	assert.ErrorIs(t, err, ErrOrphanSpecialization)
	assert.Empty(t, e.texts)
}

func TestBuild_WriterError(t *testing.T) {
	plans := []Plan{{CareerSlug: "nursing", Documents: Documents{Task: "x", Narrative: "y", Skills: "z"}}}

	_, err := Build(context.Background(), plans, &stubEmbedder{}, NewMemoryIndex(3), 1)
	assert.ErrorIs(t, err, ErrDimensionMismatch)
}

func TestBuildActivities(t *testing.T) {
	idx := NewMemoryIndex(2)
	n, err := BuildActivities(context.Background(), []model.WorkActivity{
		{ID: "4.A.1.a.1", Title: "Gather information"},
		{ID: "4.A.2.a.4", Title: "Analyze data"},
	}, &stubEmbedder{}, idx, 2)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	acts, err := idx.Activities(context.Background())
	require.NoError(t, err)
	require.Len(t, acts, 2)
	assert.Equal(t, "4.A.1.a.1", acts[0].ID)
	assert.Equal(t, []float32{float32(len("Gather information")), 1}, acts[0].Vector)
}

func TestBuildActivities_EmbedError(t *testing.T) {
	_, err := BuildActivities(context.Background(), []model.WorkActivity{{ID: "a", Title: "Analyze data"}},
		&stubEmbedder{fail: "Analyze data"}, NewMemoryIndex(2), 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "embed activity a")
}
