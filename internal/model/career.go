package model

import (
	"encoding/json"

	"gopkg.in/yaml.v3"
)

// TrainingCategory buckets the typical time to become job-ready.
type TrainingCategory string

const (
	TrainingUnder6Months TrainingCategory = "<6mo"
	Training6To24Months  TrainingCategory = "6-24mo"
	Training2To4Years    TrainingCategory = "2-4yr"
	Training4PlusYears   TrainingCategory = "4+yr"
)

// DefaultTrainingCategory is used when no member reports a years figure.
const DefaultTrainingCategory = Training2To4Years

// CategorizeTraining maps a years figure onto its bucket.
func CategorizeTraining(years float64) TrainingCategory {
	switch {
	case years < 0.5:
		return TrainingUnder6Months
	case years < 2:
		return Training6To24Months
	case years < 4:
		return Training2To4Years
	default:
		return Training4PlusYears
	}
}

// CareerSource records how a ConsolidatedCareer was produced.
type CareerSource string

const (
	SourceConsolidated CareerSource = "consolidated"
	SourcePassThrough  CareerSource = "passthrough"
	SourceManual       CareerSource = "manual"
)

// CareerWages are the aggregated pay figures of a career. Pct25 and Pct75
// are not aggregable across members and are only set on pass-through
// careers, where they are copied from the single source record.
type CareerWages struct {
	Pct10           float64  `json:"pct10"`
	Pct25           *float64 `json:"pct25,omitempty"`
	Median          float64  `json:"median"`
	Pct75           *float64 `json:"pct75,omitempty"`
	Pct90           float64  `json:"pct90"`
	EmploymentCount int64    `json:"employment_count"`
}

// ConsolidatedCareer is one consumer-facing career built from one or more
// raw occupation records.
type ConsolidatedCareer struct {
	Slug     string       `json:"slug" yaml:"slug" validate:"required"`
	Title    string       `json:"title" yaml:"title" validate:"required"`
	Category string       `json:"category" yaml:"category"`
	Source   CareerSource `json:"source" yaml:"source"`

	IsConsolidated      bool     `json:"is_consolidated" yaml:"is_consolidated"`
	SpecializationCount int      `json:"specialization_count" yaml:"specialization_count"`
	SpecializationSlugs []string `json:"specialization_slugs" yaml:"specialization_slugs"`
	MemberCodes         []string `json:"member_codes" yaml:"member_codes"`
	PrimaryCode         string   `json:"primary_code,omitempty" yaml:"primary_code,omitempty"`

	Wages                CareerWages      `json:"wages" yaml:"wages"`
	TrainingTimeCategory TrainingCategory `json:"training_time_category" yaml:"training_time_category"`
	RiskTier             RiskTier         `json:"risk_tier" yaml:"risk_tier"`

	Description string `json:"description,omitempty" yaml:"description,omitempty"`
	Subcategory string `json:"subcategory,omitempty" yaml:"subcategory,omitempty"`
	Outlook     string `json:"outlook,omitempty" yaml:"outlook,omitempty"`
	VideoURL    string `json:"video_url,omitempty" yaml:"video_url,omitempty"`

	Tasks            []string `json:"tasks" yaml:"tasks"`
	TechnologySkills []string `json:"technology_skills" yaml:"technology_skills"`
	Abilities        []string `json:"abilities" yaml:"abilities"`
	AlternateTitles  []string `json:"alternate_titles" yaml:"alternate_titles"`
}

// Validate checks a hand-authored career.
func (c *ConsolidatedCareer) Validate() error {
	return validate.Struct(c)
}

// ManualCareer is a hand-authored career. Aggregate fields it leaves empty
// are filled from the codes it claims, or defaulted.
type ManualCareer struct {
	ConsolidatedCareer

	// RiskTierSet records whether the input named a risk tier; the zero
	// tier is itself valid.
	RiskTierSet bool `json:"-" yaml:"-"`
}

type riskTierPresence struct {
	RiskTier *RiskTier `json:"risk_tier" yaml:"risk_tier"`
}

func (m *ManualCareer) UnmarshalJSON(b []byte) error {
	var p riskTierPresence
	if err := json.Unmarshal(b, &p); err != nil {
		return err
	}
	if err := json.Unmarshal(b, &m.ConsolidatedCareer); err != nil {
		return err
	}
	m.RiskTierSet = p.RiskTier != nil
	return nil
}

func (m *ManualCareer) UnmarshalYAML(n *yaml.Node) error {
	var p riskTierPresence
	if err := n.Decode(&p); err != nil {
		return err
	}
	if err := n.Decode(&m.ConsolidatedCareer); err != nil {
		return err
	}
	m.RiskTierSet = p.RiskTier != nil
	return nil
}
