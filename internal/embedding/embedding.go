// Package embedding turns text into fixed-dimension vectors through an
// external embedding service.
package embedding

import (
	"context"
	"errors"
	"strings"

	"github.com/rotisserie/eris"
	"golang.org/x/sync/errgroup"

	"github.com/careerlens/careers-cli/internal/model"
)

// ErrEmptyText is returned when asked to embed blank text.
var ErrEmptyText = errors.New("embedding: empty text")

// ErrDimensions is returned when the service answers with a vector of the
// wrong length.
var ErrDimensions = errors.New("embedding: unexpected dimensions")

// Embedder produces one vector per text.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// ProfileEmbedder builds the three query vectors of a profile.
type ProfileEmbedder struct {
	embedder Embedder
	dims     int
}

// NewProfileEmbedder wraps e. Every returned vector must have dims entries.
func NewProfileEmbedder(e Embedder, dims int) *ProfileEmbedder {
	return &ProfileEmbedder{embedder: e, dims: dims}
}

// ProfileDocuments renders the task, narrative, and skills texts of a
// profile. The narrative falls back to the task text so a profile with
// only task preferences still yields three facets.
func ProfileDocuments(p model.QueryProfile) (task, narrative, skills string) {
	task = strings.Join(p.TaskPreferences, ". ")
	narrative = strings.TrimSpace(p.Narrative)
	if narrative == "" {
		narrative = task
	}
	skills = strings.Join(p.Skills, ", ")
	return task, narrative, skills
}

// EmbedProfile embeds the three facets concurrently.
func (pe *ProfileEmbedder) EmbedProfile(ctx context.Context, p model.QueryProfile) (model.FacetVectors, error) {
	task, narrative, skills := ProfileDocuments(p)

	var out model.FacetVectors
	g, gctx := errgroup.WithContext(ctx)
	for _, job := range []struct {
		name string
		text string
		dst  *[]float32
	}{
		{"task", task, &out.Task},
		{"narrative", narrative, &out.Narrative},
		{"skills", skills, &out.Skills},
	} {
		g.Go(func() error {
			v, err := pe.Embed(gctx, job.text)
			if err != nil {
				return eris.Wrapf(err, "embedding: %s facet", job.name)
			}
			*job.dst = v
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return model.FacetVectors{}, err
	}
	return out, nil
}

// Embed embeds one text and checks its dimensionality.
func (pe *ProfileEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyText
	}
	v, err := pe.embedder.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	if pe.dims > 0 && len(v) != pe.dims {
		return nil, eris.Wrapf(ErrDimensions, "embedding: got %d, want %d", len(v), pe.dims)
	}
	return v, nil
}
