package index

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/careerlens/careers-cli/internal/model"
)

func strPtr(s string) *string { return &s }

func planFixture() ([]model.ConsolidatedCareer, []model.RawOccupationRecord) {
	records := []model.RawOccupationRecord{
		{Code: "29-1141", Title: "Registered Nurses", Description: "Care for patients.", Tasks: []string{"Monitor patients"}},
		{Code: "29-1171", Title: "Nurse Practitioners", Tasks: []string{"Prescribe medication"}, TechnologySkills: []string{"EHR"}},
		{Code: "47-2111", Title: "Electricians", Tasks: []string{"Install wiring"}},
	}
	careers := []model.ConsolidatedCareer{
		{
			Slug: "nursing", Title: "Nursing", IsConsolidated: true,
			MemberCodes: []string{"29-1141", "29-1171"},
			Description: "Nurses care for patients.",
			Tasks:       []string{"Monitor patients", "Prescribe medication."},
			TechnologySkills: []string{"EHR"}, Abilities: []string{"Empathy"},
		},
		{Slug: "electricians", Title: "Electricians", MemberCodes: []string{"47-2111"}, Tasks: []string{"Install wiring"}},
	}
	return careers, records
}

func TestPlanEntries(t *testing.T) {
	careers, records := planFixture()
	plans := PlanEntries(careers, records)
	require.Len(t, plans, 4)

	assert.Equal(t, "nursing", plans[0].CareerSlug)
	assert.True(t, plans[0].IsConsolidated)
	assert.Nil(t, plans[0].ParentSlug)
	assert.Equal(t, "Monitor patients. Prescribe medication", plans[0].Documents.Task)
	assert.Equal(t, "Nursing. Nurses care for patients", plans[0].Documents.Narrative)
	assert.Equal(t, "EHR. Empathy", plans[0].Documents.Skills)

	assert.Equal(t, "electricians", plans[1].CareerSlug)
	assert.Nil(t, plans[1].ParentSlug)
	assert.Empty(t, plans[1].Documents.Skills)

	assert.Equal(t, "registered-nurses", plans[2].CareerSlug)
	require.NotNil(t, plans[2].ParentSlug)
	assert.Equal(t, "nursing", *plans[2].ParentSlug)
	assert.False(t, plans[2].IsConsolidated)
	assert.Equal(t, "Registered Nurses. Care for patients", plans[2].Documents.Narrative)

	assert.Equal(t, "nurse-practitioners", plans[3].CareerSlug)
	assert.Equal(t, "EHR", plans[3].Documents.Skills)
}

func TestPlanEntries_SkipsCollidingSpecialization(t *testing.T) {
	careers, records := planFixture()
	records[0].Slug = "electricians"

	plans := PlanEntries(careers, records)
	require.Len(t, plans, 3)
	for _, p := range plans[2:] {
		assert.NotEqual(t, "electricians", p.CareerSlug)
	}
}

func TestValidateParents(t *testing.T) {
	ok := []model.EmbeddingEntry{
		{CareerSlug: "nursing", IsConsolidated: true},
		{CareerSlug: "registered-nurses", ParentCareerSlug: strPtr("nursing")},
	}
	assert.NoError(t, ValidateParents(ok))

	missing := []model.EmbeddingEntry{
		{CareerSlug: "registered-nurses", ParentCareerSlug: strPtr("nursing")},
	}
	assert.ErrorIs(t, ValidateParents(missing), ErrOrphanSpecialization)

	notConsolidated := []model.EmbeddingEntry{
		{CareerSlug: "electricians"},
		{CareerSlug: "apprentice", ParentCareerSlug: strPtr("electricians")},
	}
	assert.ErrorIs(t, ValidateParents(notConsolidated), ErrOrphanSpecialization)
}

func TestJoinSentences(t *testing.T) {
	assert.Equal(t, "a. b", joinSentences([]string{" a. ", "", "b"}))
	assert.Empty(t, joinSentences(nil))
}
