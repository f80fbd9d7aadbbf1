// Package model defines the occupation, career, embedding, and query records
// shared by the aggregation, indexing, and recommendation packages.
package model

import (
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
)

// ErrMalformedDefinition is returned when a consolidation definition violates
// its structural invariants.
var ErrMalformedDefinition = eris.New("malformed consolidation definition")

// RiskTier is an ordinal classification of automation/disruption exposure.
// Lower values are more resilient.
type RiskTier int

const (
	RiskResilient RiskTier = iota
	RiskEvolving
	RiskShifting
	RiskDisrupted
)

// RiskTiers lists every tier in ordinal order, most resilient first.
var RiskTiers = []RiskTier{RiskResilient, RiskEvolving, RiskShifting, RiskDisrupted}

var riskTierNames = [...]string{"resilient", "evolving", "shifting", "disrupted"}

func (t RiskTier) String() string {
	if !t.Valid() {
		return fmt.Sprintf("RiskTier(%d)", int(t))
	}
	return riskTierNames[t]
}

// Valid reports whether t is one of the four defined tiers.
func (t RiskTier) Valid() bool {
	return t >= RiskResilient && t <= RiskDisrupted
}

// ParseRiskTier parses a tier name (case-insensitive).
func ParseRiskTier(s string) (RiskTier, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for i, name := range riskTierNames {
		if name == s {
			return RiskTier(i), nil
		}
	}
	return 0, eris.Errorf("unknown risk tier %q", s)
}

func (t RiskTier) MarshalText() ([]byte, error) {
	if !t.Valid() {
		return nil, eris.Errorf("invalid risk tier %d", int(t))
	}
	return []byte(t.String()), nil
}

func (t *RiskTier) UnmarshalText(b []byte) error {
	v, err := ParseRiskTier(string(b))
	if err != nil {
		return err
	}
	*t = v
	return nil
}

// Wages holds annual wage percentiles. Every figure is nullable because
// upstream suppresses estimates for small occupations.
type Wages struct {
	Pct10           *float64 `json:"pct10,omitempty" yaml:"pct10,omitempty" validate:"omitempty,gte=0"`
	Pct25           *float64 `json:"pct25,omitempty" yaml:"pct25,omitempty" validate:"omitempty,gte=0"`
	Median          *float64 `json:"median,omitempty" yaml:"median,omitempty" validate:"omitempty,gte=0"`
	Pct75           *float64 `json:"pct75,omitempty" yaml:"pct75,omitempty" validate:"omitempty,gte=0"`
	Pct90           *float64 `json:"pct90,omitempty" yaml:"pct90,omitempty" validate:"omitempty,gte=0"`
	Mean            *float64 `json:"mean,omitempty" yaml:"mean,omitempty" validate:"omitempty,gte=0"`
	EmploymentCount *int64   `json:"employment_count,omitempty" yaml:"employment_count,omitempty" validate:"omitempty,gte=0"`
}

// Employment returns the employment count, treating missing as zero.
func (w *Wages) Employment() int64 {
	if w == nil || w.EmploymentCount == nil {
		return 0
	}
	return *w.EmploymentCount
}

// RawOccupationRecord is one fine-grained occupation as produced by the
// upstream ETL. Immutable within a run.
type RawOccupationRecord struct {
	Code     string `json:"code" yaml:"code" validate:"required"`
	Slug     string `json:"slug,omitempty" yaml:"slug,omitempty"`
	Title    string `json:"title" yaml:"title" validate:"required"`
	Category string `json:"category" yaml:"category"`

	Description string `json:"description,omitempty" yaml:"description,omitempty"`
	Subcategory string `json:"subcategory,omitempty" yaml:"subcategory,omitempty"`
	Outlook     string `json:"outlook,omitempty" yaml:"outlook,omitempty"`
	VideoURL    string `json:"video_url,omitempty" yaml:"video_url,omitempty"`

	Wages *Wages `json:"wages,omitempty" yaml:"wages,omitempty"`

	// TrainingYears is the typical time to job-ready; EducationYears is the
	// generic education duration used when the former is absent.
	TrainingYears  *float64 `json:"training_years,omitempty" yaml:"training_years,omitempty" validate:"omitempty,gte=0"`
	EducationYears *float64 `json:"education_years,omitempty" yaml:"education_years,omitempty" validate:"omitempty,gte=0"`

	RiskTier *RiskTier `json:"risk_tier,omitempty" yaml:"risk_tier,omitempty"`

	Tasks            []string `json:"tasks,omitempty" yaml:"tasks,omitempty"`
	TechnologySkills []string `json:"technology_skills,omitempty" yaml:"technology_skills,omitempty"`
	Abilities        []string `json:"abilities,omitempty" yaml:"abilities,omitempty"`
	AlternateTitles  []string `json:"alternate_titles,omitempty" yaml:"alternate_titles,omitempty"`
}

// CareerSlug returns the record's own slug, deriving it from the title when
// upstream left it empty.
func (r *RawOccupationRecord) CareerSlug() string {
	if r.Slug != "" {
		return r.Slug
	}
	return Slugify(r.Title)
}

// Years returns the preferred years-to-job-ready figure, if any.
func (r *RawOccupationRecord) Years() (float64, bool) {
	if r.TrainingYears != nil {
		return *r.TrainingYears, true
	}
	if r.EducationYears != nil {
		return *r.EducationYears, true
	}
	return 0, false
}

// Validate checks the record against its schema.
func (r *RawOccupationRecord) Validate() error {
	if err := validate.Struct(r); err != nil {
		return eris.Wrapf(err, "occupation %q", r.Code)
	}
	if r.RiskTier != nil && !r.RiskTier.Valid() {
		return eris.Errorf("occupation %q: invalid risk tier %d", r.Code, int(*r.RiskTier))
	}
	return nil
}

// ConsolidationDefinition lists the raw codes merged into one career.
type ConsolidationDefinition struct {
	ID          string   `json:"id" yaml:"id" validate:"required"`
	Title       string   `json:"title" yaml:"title" validate:"required"`
	Category    string   `json:"category" yaml:"category"`
	MemberCodes []string `json:"member_codes" yaml:"member_codes" validate:"required,min=1,dive,required"`
	PrimaryCode string   `json:"primary_code" yaml:"primary_code" validate:"required,primary_in_members"`
}

// Validate checks the definition's invariants, including that PrimaryCode is
// one of MemberCodes. Violations wrap ErrMalformedDefinition.
func (d *ConsolidationDefinition) Validate() error {
	if err := validate.Struct(d); err != nil {
		return eris.Wrapf(ErrMalformedDefinition, "definition %q: %v", d.ID, err)
	}
	return nil
}
