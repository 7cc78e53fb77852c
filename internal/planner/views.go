// Package planner builds parameterized SQL for the statistics views.
package planner

import (
	"fmt"

	"versostat-graphql/internal/sqlutil"

	sq "github.com/Masterminds/squirrel"
	"github.com/lib/pq"
)

// View names in the statistics schema.
const (
	ViewPlayers        = "mv_player_data"
	ViewPlayerMatchlog = "mv_player_matchlog"
	ViewTeamMatchlog   = "mv_team_matchlog"
	ViewEvents         = "fpl_events"
)

// Views lists every view the API reads, in probe order.
var Views = []string{ViewPlayers, ViewPlayerMatchlog, ViewTeamMatchlog, ViewEvents}

// SQLQuery represents a planned SQL statement with bound args.
type SQLQuery struct {
	SQL  string
	Args []interface{}
}

var playerColumns = []string{
	"fpl_player_id",
	"fpl_player_code",
	"fpl_web_name",
	"fbref_team",
	"fpl_player_position",
	"fpl_player_cost",
	"fpl_selected_by_percent",
}

var playerGameweekColumns = []string{
	"fpl_player_id",
	"fbref_round",
	"fbref_minutes",
	"fbref_npxg",
	"fbref_xg_assist",
	"calc_fpl_npxp",
	"fpl_gameweek",
	"fpl_total_points",
	"fpl_goals_scored",
	"fpl_assists",
	"fpl_bps",
	"fpl_clean_sheet",
	"fpl_defensive_contribution",
}

var eventColumns = []string{"id", "finished", "is_current"}

// Planner plans queries against views in one schema.
type Planner struct {
	schema string
}

// New returns a planner for schema. An empty schema leaves views unqualified.
func New(schema string) *Planner {
	return &Planner{schema: schema}
}

// Schema returns the schema the planner qualifies views with.
func (p *Planner) Schema() string {
	return p.schema
}

// PlanPlayers selects player metadata, optionally restricted to ids.
func (p *Planner) PlanPlayers(ids []string) (SQLQuery, error) {
	builder := sq.Select(quoteColumns(playerColumns)...).
		From(p.view(ViewPlayers))
	if ids != nil {
		builder = builder.Where(anyOf("fpl_player_id", ids))
	}
	return build(builder.OrderBy(sqlutil.QuoteIdentifier("fpl_player_id")))
}

// PlanPlayerGameweeks selects matchlog rows for a set of players with one
// set-membership predicate, ordered by player then gameweek.
func (p *Planner) PlanPlayerGameweeks(playerIDs []string) (SQLQuery, error) {
	if len(playerIDs) == 0 {
		return SQLQuery{}, fmt.Errorf("player gameweek plan requires at least one player id")
	}
	builder := sq.Select(quoteColumns(playerGameweekColumns)...).
		From(p.view(ViewPlayerMatchlog)).
		Where(anyOf("fpl_player_id", playerIDs)).
		OrderBy(sqlutil.QuoteIdentifier("fpl_player_id"), sqlutil.QuoteIdentifier("fpl_gameweek")+" ASC")
	return build(builder)
}

// PlanTeamMatchlog selects flat team matchlog rows, optionally restricted to
// teamNames. The match date is returned as text and parsed by the aggregator.
func (p *Planner) PlanTeamMatchlog(teamNames []string) (SQLQuery, error) {
	builder := sq.Select(
		sqlutil.QuoteIdentifier("fbref_team"),
		sqlutil.QuoteIdentifier("fbref_date")+"::text AS "+sqlutil.QuoteIdentifier("fbref_date"),
		sqlutil.QuoteIdentifier("fbref_round"),
	).From(p.view(ViewTeamMatchlog))
	if teamNames != nil {
		builder = builder.Where(anyOf("fbref_team", teamNames))
	}
	return build(builder.OrderBy(sqlutil.QuoteIdentifier("fbref_team")))
}

// PlanEvents selects all gameweek events ordered by id.
func (p *Planner) PlanEvents() (SQLQuery, error) {
	return build(sq.Select(quoteColumns(eventColumns)...).
		From(p.view(ViewEvents)).
		OrderBy(sqlutil.QuoteIdentifier("id")))
}

// PlanViewProbe returns a query that succeeds iff view exists and is readable.
func (p *Planner) PlanViewProbe(view string) (SQLQuery, error) {
	return build(sq.Select("1").From(p.view(view)).Limit(1))
}

func (p *Planner) view(name string) string {
	return sqlutil.QualifiedName(p.schema, name)
}

func anyOf(column string, values []string) sq.Sqlizer {
	return sq.Expr(sqlutil.QuoteIdentifier(column)+" = ANY(?)", pq.Array(values))
}

func quoteColumns(columns []string) []string {
	quoted := make([]string, len(columns))
	for i, col := range columns {
		quoted[i] = sqlutil.QuoteIdentifier(col)
	}
	return quoted
}

func build(builder sq.SelectBuilder) (SQLQuery, error) {
	query, args, err := builder.PlaceholderFormat(sq.Dollar).ToSql()
	if err != nil {
		return SQLQuery{}, err
	}
	return SQLQuery{SQL: query, Args: args}, nil
}
