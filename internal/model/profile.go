package model

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"
	"strings"
	"time"

	"golang.org/x/text/cases"
)

// QueryProfile is a user's free-form recommendation request.
type QueryProfile struct {
	Skills           []string `json:"skills"`
	TaskPreferences  []string `json:"task_preferences"`
	Narrative        string   `json:"narrative"`
	MinSalary        *float64 `json:"min_salary,omitempty"`
	MaxTrainingYears *float64 `json:"max_training_years,omitempty"`
	Location         string   `json:"location,omitempty"`
}

// normalizeText case-folds and collapses whitespace. A Caser holds state, so
// one is created per call.
func normalizeText(s string) string {
	return strings.Join(strings.Fields(cases.Fold().String(s)), " ")
}

func normalizeSet(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		n := normalizeText(s)
		if n == "" || seen[n] {
			continue
		}
		seen[n] = true
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// Normalize returns a copy with case folded, whitespace collapsed, and
// set-valued fields deduplicated and sorted, so that semantically identical
// profiles compare equal.
func (p QueryProfile) Normalize() QueryProfile {
	return QueryProfile{
		Skills:           normalizeSet(p.Skills),
		TaskPreferences:  normalizeSet(p.TaskPreferences),
		Narrative:        normalizeText(p.Narrative),
		MinSalary:        p.MinSalary,
		MaxTrainingYears: p.MaxTrainingYears,
		Location:         normalizeText(p.Location),
	}
}

// Hash returns the hex SHA-256 of the normalized profile's canonical JSON.
func (p QueryProfile) Hash() string {
	// Struct field order is fixed, so the encoding is stable.
	b, _ := json.Marshal(p.Normalize())
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

// CachedQuery is a memoized ranking result.
type CachedQuery struct {
	Key       string         `json:"key"`
	Results   []RankedCareer `json:"results"`
	CreatedAt time.Time      `json:"created_at"`
	ExpiresAt time.Time      `json:"expires_at"`
}

// Expired reports whether the entry is stale at now.
func (q *CachedQuery) Expired(now time.Time) bool {
	return now.After(q.ExpiresAt)
}
