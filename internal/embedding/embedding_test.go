package embedding

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/careerlens/careers-cli/internal/model"
)

// fakeEmbedder maps text length onto a fixed-size vector and records calls.
type fakeEmbedder struct {
	mu    sync.Mutex
	dims  int
	calls []string
	fail  map[string]error
}

func (f *fakeEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, text)
	if err, ok := f.fail[text]; ok {
		return nil, err
	}
	v := make([]float32, f.dims)
	v[0] = float32(len(text))
	return v, nil
}

func TestProfileDocuments(t *testing.T) {
	task, narrative, skills := ProfileDocuments(model.QueryProfile{
		TaskPreferences: []string{"fix engines", "read schematics"},
		Skills:          []string{"welding", "cad"},
	})
	assert.Equal(t, "fix engines. read schematics", task)
	assert.Equal(t, task, narrative)
	assert.Equal(t, "welding, cad", skills)

	_, narrative, _ = ProfileDocuments(model.QueryProfile{Narrative: "  hands-on work  "})
	assert.Equal(t, "hands-on work", narrative)
}

func TestEmbedProfile(t *testing.T) {
	f := &fakeEmbedder{dims: 4}
	pe := NewProfileEmbedder(f, 4)

	v, err := pe.EmbedProfile(context.Background(), model.QueryProfile{
		TaskPreferences: []string{"teach"},
		Narrative:       "helping people learn",
		Skills:          []string{"patience"},
	})
	require.NoError(t, err)
	assert.True(t, v.Complete())
	assert.Equal(t, float32(len("teach")), v.Task[0])
	assert.Equal(t, float32(len("helping people learn")), v.Narrative[0])
	assert.Equal(t, float32(len("patience")), v.Skills[0])
	assert.Len(t, f.calls, 3)
}

func TestEmbedProfile_EmptyFacet(t *testing.T) {
	pe := NewProfileEmbedder(&fakeEmbedder{dims: 4}, 4)

	_, err := pe.EmbedProfile(context.Background(), model.QueryProfile{Narrative: "just a story"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrEmptyText))
}

func TestEmbedProfile_WrongDimensions(t *testing.T) {
	pe := NewProfileEmbedder(&fakeEmbedder{dims: 3}, 4)

	_, err := pe.EmbedProfile(context.Background(), model.QueryProfile{
		TaskPreferences: []string{"a"}, Skills: []string{"b"},
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrDimensions))
}

func TestEmbedProfile_EmbedderFailure(t *testing.T) {
	boom := errors.New("boom")
	f := &fakeEmbedder{dims: 2, fail: map[string]error{"welding": boom}}
	pe := NewProfileEmbedder(f, 2)

	_, err := pe.EmbedProfile(context.Background(), model.QueryProfile{
		TaskPreferences: []string{"build"}, Skills: []string{"welding"},
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, boom))
	assert.True(t, strings.Contains(err.Error(), "skills facet"))
}

func TestProfileEmbedder_EmbedBlank(t *testing.T) {
	f := &fakeEmbedder{dims: 2}
	_, err := NewProfileEmbedder(f, 2).Embed(context.Background(), "   ")
	assert.ErrorIs(t, err, ErrEmptyText)
	assert.Empty(t, f.calls)
}
