package planner

import (
	"database/sql/driver"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlanPlayers(t *testing.T) {
	p := New("test_schema_2025")

	t.Run("all players", func(t *testing.T) {
		planned, err := p.PlanPlayers(nil)
		require.NoError(t, err)
		assertSQLMatches(t, planned.SQL,
			`SELECT "fpl_player_id", "fpl_player_code", "fpl_web_name", "fbref_team", "fpl_player_position", "fpl_player_cost", "fpl_selected_by_percent" FROM "test_schema_2025"."mv_player_data" ORDER BY "fpl_player_id"`,
		)
		assert.Empty(t, planned.Args)
	})

	t.Run("filtered by ids", func(t *testing.T) {
		planned, err := p.PlanPlayers([]string{"123", "456"})
		require.NoError(t, err)
		assert.Contains(t, planned.SQL, `WHERE "fpl_player_id" = ANY($1)`)
		require.Len(t, planned.Args, 1)
		assertArrayArg(t, planned.Args[0], `{"123","456"}`)
	})

	t.Run("empty id list still filters", func(t *testing.T) {
		planned, err := p.PlanPlayers([]string{})
		require.NoError(t, err)
		assert.Contains(t, planned.SQL, "= ANY($1)")
		assertArrayArg(t, planned.Args[0], `{}`)
	})
}

func TestPlanPlayerGameweeks(t *testing.T) {
	p := New("test_schema_2025")

	planned, err := p.PlanPlayerGameweeks([]string{"a", "b", "c"})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(planned.SQL, `SELECT "fpl_player_id", "fbref_round", "fbref_minutes"`))
	assert.Contains(t, planned.SQL, `FROM "test_schema_2025"."mv_player_matchlog"`)
	assert.Contains(t, planned.SQL, `WHERE "fpl_player_id" = ANY($1)`)
	assert.Contains(t, planned.SQL, `ORDER BY "fpl_player_id", "fpl_gameweek" ASC`)
	assert.Equal(t, 1, strings.Count(planned.SQL, "$"), "one array parameter regardless of key count")
	require.Len(t, planned.Args, 1)
	assertArrayArg(t, planned.Args[0], `{"a","b","c"}`)

	_, err = p.PlanPlayerGameweeks(nil)
	assert.Error(t, err)
}

func TestPlanTeamMatchlog(t *testing.T) {
	p := New("test_schema_2025")

	planned, err := p.PlanTeamMatchlog(nil)
	require.NoError(t, err)
	assertSQLMatches(t, planned.SQL,
		`SELECT "fbref_team", "fbref_date"::text AS "fbref_date", "fbref_round" FROM "test_schema_2025"."mv_team_matchlog" ORDER BY "fbref_team"`,
	)

	planned, err = p.PlanTeamMatchlog([]string{"Arsenal"})
	require.NoError(t, err)
	assert.Contains(t, planned.SQL, `WHERE "fbref_team" = ANY($1)`)
	assertArrayArg(t, planned.Args[0], `{"Arsenal"}`)
}

func TestPlanEvents(t *testing.T) {
	planned, err := New("").PlanEvents()
	require.NoError(t, err)
	assertSQLMatches(t, planned.SQL, `SELECT "id", "finished", "is_current" FROM "fpl_events" ORDER BY "id"`)
}

func TestPlanViewProbe(t *testing.T) {
	planned, err := New(`odd"schema`).PlanViewProbe(ViewEvents)
	require.NoError(t, err)
	assertSQLMatches(t, planned.SQL,
		`SELECT 1 FROM "odd""schema"."fpl_events" LIMIT 1`,
		`SELECT 1 FROM "odd""schema"."fpl_events" LIMIT $1`,
	)
}

var whitespace = regexp.MustCompile(`\s+`)

func normalizeSQL(sql string) string {
	return strings.TrimSpace(whitespace.ReplaceAllString(sql, " "))
}

func assertSQLMatches(t *testing.T, got string, candidates ...string) {
	t.Helper()

	gotNorm := normalizeSQL(got)
	for _, candidate := range candidates {
		if gotNorm == normalizeSQL(candidate) {
			return
		}
	}
	assert.Fail(t, "SQL did not match any expected form", "got: %q candidates: %v", gotNorm, candidates)
}

func assertArrayArg(t *testing.T, arg interface{}, want string) {
	t.Helper()

	valuer, ok := arg.(driver.Valuer)
	require.True(t, ok, "expected a driver.Valuer array argument, got %T", arg)
	value, err := valuer.Value()
	require.NoError(t, err)
	assert.Equal(t, want, value)
}
