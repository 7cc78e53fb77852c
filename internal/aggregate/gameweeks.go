package aggregate

import (
	"slices"

	"versostat-graphql/internal/model"
)

// SortGameweeks returns records ordered by gameweek ascending. Equal
// gameweeks keep their input order. The input is not modified.
func SortGameweeks(records []model.PlayerGameweek) []model.PlayerGameweek {
	sorted := slices.Clone(records)
	if sorted == nil {
		sorted = []model.PlayerGameweek{}
	}
	slices.SortStableFunc(sorted, func(a, b model.PlayerGameweek) int {
		return a.FPLGameweek - b.FPLGameweek
	})
	return sorted
}

// FilterGameweekRange keeps records whose gameweek lies in [start, end].
// A nil bound is open.
func FilterGameweekRange(records []model.PlayerGameweek, start, end *int) []model.PlayerGameweek {
	out := make([]model.PlayerGameweek, 0, len(records))
	for _, r := range records {
		if start != nil && r.FPLGameweek < *start {
			continue
		}
		if end != nil && r.FPLGameweek > *end {
			continue
		}
		out = append(out, r)
	}
	return out
}
