package index

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/rotisserie/eris"

	"github.com/careerlens/careers-cli/internal/model"
)

// MemoryIndex is an in-process Source and Writer. Rows are replaced whole
// under a write lock; searches take a read lock and copy what they need.
type MemoryIndex struct {
	mu         sync.RWMutex
	dims       int
	entries    map[string]model.EmbeddingEntry
	activities map[string]model.WorkActivity
	now        func() time.Time
}

// NewMemoryIndex creates an empty index. dims <= 0 accepts any length.
func NewMemoryIndex(dims int) *MemoryIndex {
	return &MemoryIndex{
		dims:       dims,
		entries:    make(map[string]model.EmbeddingEntry),
		activities: make(map[string]model.WorkActivity),
		now:        time.Now,
	}
}

// Replace stores entry, overwriting any row with the same slug. Populated
// facets must match the index dimensionality; empty facets are stored and
// make the row ineligible for ranking.
func (m *MemoryIndex) Replace(_ context.Context, entry model.EmbeddingEntry) error {
	if err := checkFacets(entry.Vectors, m.dims); err != nil {
		return eris.Wrapf(err, "index: replace %s", entry.CareerSlug)
	}
	entry.UpdatedAt = m.now().UTC()

	m.mu.Lock()
	m.entries[entry.CareerSlug] = entry
	m.mu.Unlock()
	return nil
}

// ReplaceActivities upserts catalog rows by ID.
func (m *MemoryIndex) ReplaceActivities(_ context.Context, activities []model.WorkActivity) error {
	for _, a := range activities {
		if m.dims > 0 && len(a.Vector) != m.dims {
			return eris.Wrapf(ErrDimensionMismatch, "index: activity %s has %d dimensions", a.ID, len(a.Vector))
		}
	}

	m.mu.Lock()
	for _, a := range activities {
		m.activities[a.ID] = a
	}
	m.mu.Unlock()
	return nil
}

// Prune drops rows not named in keep.
func (m *MemoryIndex) Prune(_ context.Context, keep []string) (int, error) {
	want := make(map[string]bool, len(keep))
	for _, k := range keep {
		want[k] = true
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	var n int
	for slug := range m.entries {
		if !want[slug] {
			delete(m.entries, slug)
			n++
		}
	}
	return n, nil
}

// Candidates returns entries sorted by slug.
func (m *MemoryIndex) Candidates(_ context.Context, preferConsolidated bool) ([]model.EmbeddingEntry, error) {
	m.mu.RLock()
	out := make([]model.EmbeddingEntry, 0, len(m.entries))
	for _, e := range m.entries {
		if preferConsolidated && e.IsSpecialization() {
			continue
		}
		out = append(out, e)
	}
	m.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].CareerSlug < out[j].CareerSlug })
	return out, nil
}

// Activities returns the catalog sorted by ID.
func (m *MemoryIndex) Activities(_ context.Context) ([]model.WorkActivity, error) {
	m.mu.RLock()
	out := make([]model.WorkActivity, 0, len(m.activities))
	for _, a := range m.activities {
		out = append(out, a)
	}
	m.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Get returns one entry by slug.
func (m *MemoryIndex) Get(slug string) (model.EmbeddingEntry, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.entries[slug]
	return e, ok
}

// Len reports the number of career rows.
func (m *MemoryIndex) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

// checkFacets rejects populated facets whose length differs from dims.
func checkFacets(v model.FacetVectors, dims int) error {
	if dims <= 0 {
		return nil
	}
	for _, f := range [][]float32{v.Task, v.Narrative, v.Skills} {
		if len(f) != 0 && len(f) != dims {
			return eris.Wrapf(ErrDimensionMismatch, "got %d, want %d", len(f), dims)
		}
	}
	return nil
}
