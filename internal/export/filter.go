package export

import (
	"strings"

	"easel/plugin/internal/model"
)

// Apply runs the filter predicate over the collection. Matching is a linear
// scan: free-text query over title/rationale/context (case-insensitive),
// exact status, and tag membership. Empty fields match everything.
func Apply(decisions []model.Decision, filter Filter) []model.Decision {
	query := strings.ToLower(strings.TrimSpace(filter.Query))
	out := make([]model.Decision, 0, len(decisions))
	for _, d := range decisions {
		if filter.Status != "" && d.Status != filter.Status {
			continue
		}
		if filter.Tag != "" && !hasTag(d.Tags, filter.Tag) {
			continue
		}
		if query != "" && !matchesQuery(d, query) {
			continue
		}
		out = append(out, d)
	}
	return out
}

func hasTag(tags []string, tag string) bool {
	for _, t := range tags {
		if strings.EqualFold(t, tag) {
			return true
		}
	}
	return false
}

func matchesQuery(d model.Decision, query string) bool {
	return strings.Contains(strings.ToLower(d.Title), query) ||
		strings.Contains(strings.ToLower(d.Rationale), query) ||
		strings.Contains(strings.ToLower(d.Context), query)
}
