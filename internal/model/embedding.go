package model

import "time"

// FacetVectors holds the three independently weighted embeddings of a
// career or a query.
type FacetVectors struct {
	Task      []float32 `json:"task"`
	Narrative []float32 `json:"narrative"`
	Skills    []float32 `json:"skills"`
}

// Complete reports whether all three facets are populated.
func (v FacetVectors) Complete() bool {
	return len(v.Task) > 0 && len(v.Narrative) > 0 && len(v.Skills) > 0
}

// EmbeddingEntry is one row of the embedding index.
type EmbeddingEntry struct {
	CareerSlug string       `json:"career_slug"`
	Vectors    FacetVectors `json:"vectors"`

	// ParentCareerSlug is set when this entry is a specialization subsumed
	// by a consolidated career.
	ParentCareerSlug *string   `json:"parent_career_slug,omitempty"`
	IsConsolidated   bool      `json:"is_consolidated"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// IsSpecialization reports whether the entry defers to a parent career.
func (e *EmbeddingEntry) IsSpecialization() bool {
	return e.ParentCareerSlug != nil
}

// RankedCareer is one similarity-search result.
type RankedCareer struct {
	Slug                string  `json:"slug"`
	ParentSlug          *string `json:"parent_slug,omitempty"`
	Similarity          float64 `json:"similarity"`
	TaskSimilarity      float64 `json:"task_similarity"`
	NarrativeSimilarity float64 `json:"narrative_similarity"`
	SkillsSimilarity    float64 `json:"skills_similarity"`
}

// WorkActivity is one entry of the Detailed Work Activity catalog.
type WorkActivity struct {
	ID     string    `json:"id"`
	Title  string    `json:"title"`
	Vector []float32 `json:"vector"`
}

// RankedActivity is one DWA similarity-search result.
type RankedActivity struct {
	ID         string  `json:"id"`
	Title      string  `json:"title"`
	Similarity float64 `json:"similarity"`
}
