package index

import (
	"math"

	"github.com/careerlens/careers-cli/internal/config"
	"github.com/careerlens/careers-cli/internal/model"
)

// Weights scale the per-facet similarities. They are applied as given:
// callers that want scores in [−1, 1] must supply weights summing to 1.
type Weights struct {
	Task      float64 `json:"task"`
	Narrative float64 `json:"narrative"`
	Skills    float64 `json:"skills"`
}

// DefaultWeights favors literal task overlap.
func DefaultWeights() Weights {
	return Weights{Task: 0.5, Narrative: 0.3, Skills: 0.2}
}

// WeightsFromConfig converts configured weights.
func WeightsFromConfig(c config.WeightsConfig) Weights {
	return Weights{Task: c.Task, Narrative: c.Narrative, Skills: c.Skills}
}

// CosineSimilarity returns the cosine of the angle between a and b, or 0 when
// the lengths differ or either vector has zero norm.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		normA += x * x
		normB += y * y
	}

	denominator := math.Sqrt(normA) * math.Sqrt(normB)
	if denominator == 0 {
		return 0
	}
	return dot / denominator
}

// Score computes the weighted three-facet similarity of an entry.
func Score(query model.FacetVectors, entry model.FacetVectors, w Weights) model.RankedCareer {
	task := CosineSimilarity(query.Task, entry.Task)
	narrative := CosineSimilarity(query.Narrative, entry.Narrative)
	skills := CosineSimilarity(query.Skills, entry.Skills)
	return model.RankedCareer{
		Similarity:          w.Task*task + w.Narrative*narrative + w.Skills*skills,
		TaskSimilarity:      task,
		NarrativeSimilarity: narrative,
		SkillsSimilarity:    skills,
	}
}
