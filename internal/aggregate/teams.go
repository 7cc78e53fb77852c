// Package aggregate shapes flat view rows into the nested GraphQL results.
package aggregate

import (
	"slices"
	"time"

	"versostat-graphql/internal/apperrors"
	"versostat-graphql/internal/model"
	"versostat-graphql/internal/planner"
)

// MatchDateLayout is the rendering of fbref_match_date.
const MatchDateLayout = time.DateOnly

var matchDateLayouts = []string{
	time.DateOnly,
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02 15:04:05-07",
	"2006-01-02 15:04:05.999999-07",
}

// AggregateTeamMatchlogs groups rows by team and numbers each team's matches
// by ascending date. Teams appear in order of first occurrence; matches on
// the same date keep their input order. Any unparsable date fails the whole
// aggregation.
func AggregateTeamMatchlogs(rows []model.TeamMatchRow) ([]model.Team, error) {
	type dated struct {
		when time.Time
		row  model.TeamMatchRow
	}

	var order []string
	groups := make(map[string][]dated)
	for _, row := range rows {
		when, err := ParseMatchDate(row.MatchDate)
		if err != nil {
			return nil, apperrors.MalformedRow(planner.ViewTeamMatchlog,
				"unparsable fbref_date %q for team %q", row.MatchDate, row.Team)
		}
		if _, seen := groups[row.Team]; !seen {
			order = append(order, row.Team)
		}
		groups[row.Team] = append(groups[row.Team], dated{when: when, row: row})
	}

	teams := make([]model.Team, 0, len(order))
	for _, name := range order {
		matches := groups[name]
		slices.SortStableFunc(matches, func(a, b dated) int {
			return a.when.Compare(b.when)
		})
		matchlog := make([]model.TeamMatchlogEntry, len(matches))
		for i, m := range matches {
			matchlog[i] = model.TeamMatchlogEntry{
				MatchDate:   m.when.Format(MatchDateLayout),
				Round:       m.row.Round,
				MatchNumber: i + 1,
			}
		}
		teams = append(teams, model.Team{Name: name, Matchlog: matchlog})
	}
	return teams, nil
}

// ParseMatchDate parses a date as rendered by Postgres date or timestamp
// text output. The calendar date is kept as written.
func ParseMatchDate(value string) (time.Time, error) {
	var firstErr error
	for _, layout := range matchDateLayouts {
		parsed, err := time.Parse(layout, value)
		if err == nil {
			return time.Date(parsed.Year(), parsed.Month(), parsed.Day(), 0, 0, 0, 0, time.UTC), nil
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	return time.Time{}, firstErr
}
