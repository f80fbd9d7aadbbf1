package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestCategorizeTraining(t *testing.T) {
	tests := []struct {
		years float64
		want  TrainingCategory
	}{
		{0, TrainingUnder6Months},
		{0.49, TrainingUnder6Months},
		{0.5, Training6To24Months},
		{1.99, Training6To24Months},
		{2, Training2To4Years},
		{3.9, Training2To4Years},
		{4, Training4PlusYears},
		{8, Training4PlusYears},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, CategorizeTraining(tt.years), "years=%v", tt.years)
	}
}

func TestSlugify(t *testing.T) {
	tests := map[string]string{
		"Registered Nurses":          "registered-nurses",
		"  Food & Beverage Workers ": "food-and-beverage-workers",
		"Café Managers":              "cafe-managers",
		"Nurse/Midwife (Certified)":  "nurse-midwife-certified",
		"":                           "",
	}
	for in, want := range tests {
		assert.Equal(t, want, Slugify(in), "input=%q", in)
	}
}

func TestFacetVectors_Complete(t *testing.T) {
	v := FacetVectors{Task: []float32{1}, Narrative: []float32{1}}
	assert.False(t, v.Complete())
	v.Skills = []float32{1}
	assert.True(t, v.Complete())
}

func TestManualCareer_RiskTierPresence(t *testing.T) {
	var explicit ManualCareer
	require.NoError(t, json.Unmarshal([]byte(`{"slug":"dev","title":"Dev","risk_tier":"resilient"}`), &explicit))
	assert.True(t, explicit.RiskTierSet)
	assert.Equal(t, RiskResilient, explicit.RiskTier)
	assert.Equal(t, "dev", explicit.Slug)

	var omitted ManualCareer
	require.NoError(t, json.Unmarshal([]byte(`{"slug":"dev","title":"Dev"}`), &omitted))
	assert.False(t, omitted.RiskTierSet)

	var fromYAML []ManualCareer
	require.NoError(t, yaml.Unmarshal([]byte(`
- slug: a
  title: A
  risk_tier: shifting
- slug: b
  title: B
`), &fromYAML))
	require.Len(t, fromYAML, 2)
	assert.True(t, fromYAML[0].RiskTierSet)
	assert.Equal(t, RiskShifting, fromYAML[0].RiskTier)
	assert.False(t, fromYAML[1].RiskTierSet)
	assert.Equal(t, "b", fromYAML[1].Slug)

	var bad ManualCareer
	assert.Error(t, json.Unmarshal([]byte(`{"slug":"x","risk_tier":"doomed"}`), &bad))
}
