package aggregate

// Content caps applied to every output career.
const (
	MaxTasks            = 15
	MaxTechnologySkills = 20
	MaxAbilities        = 10
	MaxAlternateTitles  = 30
)

// UnionCapped concatenates lists in order, drops exact duplicates keeping
// the first occurrence, and truncates to limit. The result is never nil.
func UnionCapped(limit int, lists ...[]string) []string {
	out := make([]string, 0, limit)
	seen := make(map[string]bool)
	for _, list := range lists {
		for _, s := range list {
			if len(out) >= limit {
				return out
			}
			if seen[s] {
				continue
			}
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}
