// Package index builds and searches the three-facet career embedding index.
package index

import (
	"errors"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/careerlens/careers-cli/internal/model"
)

// ErrOrphanSpecialization is returned when an entry names a parent that is
// missing from the index or is not a consolidated career.
var ErrOrphanSpecialization = errors.New("specialization parent is not a consolidated career")

// Documents are the three texts embedded for one index row.
type Documents struct {
	Task      string
	Narrative string
	Skills    string
}

// Plan is one index row waiting to be embedded.
type Plan struct {
	CareerSlug     string
	ParentSlug     *string
	IsConsolidated bool
	Documents      Documents
}

// PlanEntries produces one plan per career plus one per specialization of
// every consolidated career. Specialization documents come from the member
// record, so a consumer browsing within a consolidated career still sees
// distinct specializations.
func PlanEntries(careers []model.ConsolidatedCareer, records []model.RawOccupationRecord) []Plan {
	byCode := make(map[string]*model.RawOccupationRecord, len(records))
	for i := range records {
		byCode[records[i].Code] = &records[i]
	}

	taken := make(map[string]bool, len(careers))
	plans := make([]Plan, 0, len(careers))
	for i := range careers {
		c := &careers[i]
		taken[c.Slug] = true
		plans = append(plans, Plan{
			CareerSlug:     c.Slug,
			IsConsolidated: c.IsConsolidated,
			Documents:      careerDocuments(c),
		})
	}

	for i := range careers {
		c := &careers[i]
		if !c.IsConsolidated {
			continue
		}
		parent := c.Slug
		for _, code := range c.MemberCodes {
			rec, ok := byCode[code]
			if !ok {
				continue
			}
			slug := rec.CareerSlug()
			if taken[slug] {
				zap.L().Warn("index: specialization slug already indexed, skipping",
					zap.String("slug", slug),
					zap.String("parent", parent),
				)
				continue
			}
			taken[slug] = true
			plans = append(plans, Plan{
				CareerSlug: slug,
				ParentSlug: &parent,
				Documents:  recordDocuments(rec),
			})
		}
	}
	return plans
}

// ValidateParents checks that every specialization points at a consolidated
// entry in the same set.
func ValidateParents(entries []model.EmbeddingEntry) error {
	consolidated := make(map[string]bool, len(entries))
	for _, e := range entries {
		if e.IsConsolidated && !e.IsSpecialization() {
			consolidated[e.CareerSlug] = true
		}
	}
	for _, e := range entries {
		if e.IsSpecialization() && !consolidated[*e.ParentCareerSlug] {
			return eris.Wrapf(ErrOrphanSpecialization, "index: %s -> %s", e.CareerSlug, *e.ParentCareerSlug)
		}
	}
	return nil
}

func careerDocuments(c *model.ConsolidatedCareer) Documents {
	return Documents{
		Task:      joinSentences(c.Tasks),
		Narrative: joinSentences(append([]string{c.Title, c.Description, c.Outlook}, c.AlternateTitles...)),
		Skills:    joinSentences(append(append([]string{}, c.TechnologySkills...), c.Abilities...)),
	}
}

func recordDocuments(r *model.RawOccupationRecord) Documents {
	return Documents{
		Task:      joinSentences(r.Tasks),
		Narrative: joinSentences(append([]string{r.Title, r.Description, r.Outlook}, r.AlternateTitles...)),
		Skills:    joinSentences(append(append([]string{}, r.TechnologySkills...), r.Abilities...)),
	}
}

// joinSentences joins the non-blank parts with ". ".
func joinSentences(parts []string) string {
	kept := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			kept = append(kept, strings.TrimRight(p, "."))
		}
	}
	return strings.Join(kept, ". ")
}
