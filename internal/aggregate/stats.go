package aggregate

import "github.com/careerlens/careers-cli/internal/model"

// DefaultRiskTier is assigned when no member reports a risk tier.
const DefaultRiskTier = model.RiskEvolving

// WeightedMedian returns the employment-weighted average of member medians.
// Members need both a median and a positive employment count to carry
// weight. When none do, it falls back to the plain mean of available
// medians, and to 0 when no member has a median. weighted reports whether
// the employment-weighted path was used.
func WeightedMedian(members []*model.RawOccupationRecord) (median float64, weighted bool) {
	var totalEmp int64
	for _, m := range members {
		if m.Wages != nil && m.Wages.Median != nil && m.Wages.Employment() > 0 {
			totalEmp += m.Wages.Employment()
		}
	}

	if totalEmp > 0 {
		var sum float64
		for _, m := range members {
			if m.Wages != nil && m.Wages.Median != nil && m.Wages.Employment() > 0 {
				weight := float64(m.Wages.Employment()) / float64(totalEmp)
				sum += weight * *m.Wages.Median
			}
		}
		return sum, true
	}

	var sum float64
	var n int
	for _, m := range members {
		if m.Wages != nil && m.Wages.Median != nil {
			sum += *m.Wages.Median
			n++
		}
	}
	if n == 0 {
		return 0, false
	}
	return sum / float64(n), false
}

// PayRange returns the lowest 10th percentile and the highest 90th
// percentile across members. A side with no inputs is 0.
func PayRange(members []*model.RawOccupationRecord) (low, high float64) {
	var haveLow, haveHigh bool
	for _, m := range members {
		if m.Wages == nil {
			continue
		}
		if p := m.Wages.Pct10; p != nil && (!haveLow || *p < low) {
			low, haveLow = *p, true
		}
		if p := m.Wages.Pct90; p != nil && (!haveHigh || *p > high) {
			high, haveHigh = *p, true
		}
	}
	return low, high
}

// TotalEmployment sums member employment, treating missing counts as 0.
func TotalEmployment(members []*model.RawOccupationRecord) int64 {
	var total int64
	for _, m := range members {
		total += m.Wages.Employment()
	}
	return total
}

// ClassifyRisk picks the tier with the most employment share among members.
// Without employment data each tiered member gets one vote. Ties go to the
// more resilient (lower) tier. ok is false when no member has a tier, in
// which case DefaultRiskTier is returned.
func ClassifyRisk(members []*model.RawOccupationRecord) (tier model.RiskTier, ok bool) {
	var weights [len(riskOrder)]float64

	var totalEmp int64
	for _, m := range members {
		if m.RiskTier != nil && m.Wages.Employment() > 0 {
			totalEmp += m.Wages.Employment()
		}
	}

	var voted bool
	for _, m := range members {
		if m.RiskTier == nil || !m.RiskTier.Valid() {
			continue
		}
		switch {
		case totalEmp > 0 && m.Wages.Employment() > 0:
			weights[*m.RiskTier] += float64(m.Wages.Employment()) / float64(totalEmp)
			voted = true
		case totalEmp == 0:
			weights[*m.RiskTier]++
			voted = true
		}
	}
	if !voted {
		return DefaultRiskTier, false
	}

	best := riskOrder[0]
	for _, t := range riskOrder[1:] {
		if weights[t] > weights[best] {
			best = t
		}
	}
	return best, true
}

// riskOrder fixes tie-break iteration: most resilient first.
var riskOrder = [...]model.RiskTier{model.RiskResilient, model.RiskEvolving, model.RiskShifting, model.RiskDisrupted}

// AverageTraining maps the simple (unweighted) mean of member years onto a
// training category. ok is false when no member has a years figure, in
// which case model.DefaultTrainingCategory is returned.
func AverageTraining(members []*model.RawOccupationRecord) (model.TrainingCategory, bool) {
	var sum float64
	var n int
	for _, m := range members {
		if y, ok := m.Years(); ok {
			sum += y
			n++
		}
	}
	if n == 0 {
		return model.DefaultTrainingCategory, false
	}
	return model.CategorizeTraining(sum / float64(n)), true
}
