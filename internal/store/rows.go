package store

import (
	"database/sql"

	"versostat-graphql/internal/apperrors"
	"versostat-graphql/internal/model"
	"versostat-graphql/internal/planner"
)

type playerRow struct {
	ID                sql.NullString  `db:"fpl_player_id"`
	Code              sql.NullInt64   `db:"fpl_player_code"`
	WebName           sql.NullString  `db:"fpl_web_name"`
	Team              sql.NullString  `db:"fbref_team"`
	Position          sql.NullString  `db:"fpl_player_position"`
	Cost              sql.NullFloat64 `db:"fpl_player_cost"`
	SelectedByPercent sql.NullFloat64 `db:"fpl_selected_by_percent"`
}

func (r playerRow) toModel() (model.Player, error) {
	if !r.ID.Valid || r.ID.String == "" {
		return model.Player{}, apperrors.MalformedRow(planner.ViewPlayers, "fpl_player_id is null")
	}
	nulls := &nullColumns{}
	nulls.check("fpl_player_code", r.Code.Valid)
	nulls.check("fpl_web_name", r.WebName.Valid)
	nulls.check("fbref_team", r.Team.Valid)
	nulls.check("fpl_player_position", r.Position.Valid)
	nulls.check("fpl_player_cost", r.Cost.Valid)
	nulls.check("fpl_selected_by_percent", r.SelectedByPercent.Valid)
	if err := nulls.err(planner.ViewPlayers, "player", r.ID.String); err != nil {
		return model.Player{}, err
	}
	return model.Player{
		FPLPlayerID:          r.ID.String,
		FPLPlayerCode:        int(r.Code.Int64),
		FPLWebName:           r.WebName.String,
		FBRefTeam:            r.Team.String,
		FPLPlayerPosition:    r.Position.String,
		FPLPlayerCost:        r.Cost.Float64,
		FPLSelectedByPercent: r.SelectedByPercent.Float64,
	}, nil
}

type playerGameweekRow struct {
	PlayerID              sql.NullString  `db:"fpl_player_id"`
	Round                 sql.NullInt64   `db:"fbref_round"`
	Minutes               sql.NullInt64   `db:"fbref_minutes"`
	NPXG                  sql.NullFloat64 `db:"fbref_npxg"`
	XGAssist              sql.NullFloat64 `db:"fbref_xg_assist"`
	NPXP                  sql.NullFloat64 `db:"calc_fpl_npxp"`
	Gameweek              sql.NullInt64   `db:"fpl_gameweek"`
	TotalPoints           sql.NullInt64   `db:"fpl_total_points"`
	GoalsScored           sql.NullInt64   `db:"fpl_goals_scored"`
	Assists               sql.NullInt64   `db:"fpl_assists"`
	BPS                   sql.NullInt64   `db:"fpl_bps"`
	CleanSheet            sql.NullInt64   `db:"fpl_clean_sheet"`
	DefensiveContribution sql.NullInt64   `db:"fpl_defensive_contribution"`
}

func (r playerGameweekRow) toModel() (model.PlayerGameweek, error) {
	if !r.PlayerID.Valid || r.PlayerID.String == "" {
		return model.PlayerGameweek{}, apperrors.MalformedRow(planner.ViewPlayerMatchlog, "fpl_player_id is null")
	}
	nulls := &nullColumns{}
	nulls.check("fbref_round", r.Round.Valid)
	nulls.check("fbref_minutes", r.Minutes.Valid)
	nulls.check("fbref_npxg", r.NPXG.Valid)
	nulls.check("fbref_xg_assist", r.XGAssist.Valid)
	nulls.check("calc_fpl_npxp", r.NPXP.Valid)
	nulls.check("fpl_gameweek", r.Gameweek.Valid)
	nulls.check("fpl_total_points", r.TotalPoints.Valid)
	nulls.check("fpl_goals_scored", r.GoalsScored.Valid)
	nulls.check("fpl_assists", r.Assists.Valid)
	nulls.check("fpl_bps", r.BPS.Valid)
	nulls.check("fpl_clean_sheet", r.CleanSheet.Valid)
	nulls.check("fpl_defensive_contribution", r.DefensiveContribution.Valid)
	if err := nulls.err(planner.ViewPlayerMatchlog, "player", r.PlayerID.String); err != nil {
		return model.PlayerGameweek{}, err
	}
	return model.PlayerGameweek{
		FPLPlayerID:              r.PlayerID.String,
		FBRefRound:               int(r.Round.Int64),
		FBRefMinutes:             int(r.Minutes.Int64),
		FBRefNPXG:                r.NPXG.Float64,
		FBRefXGAssist:            r.XGAssist.Float64,
		CalcFPLNPXP:              r.NPXP.Float64,
		FPLGameweek:              int(r.Gameweek.Int64),
		FPLTotalPoints:           int(r.TotalPoints.Int64),
		FPLGoalsScored:           int(r.GoalsScored.Int64),
		FPLAssists:               int(r.Assists.Int64),
		FPLBPS:                   int(r.BPS.Int64),
		FPLCleanSheet:            int(r.CleanSheet.Int64),
		FPLDefensiveContribution: int(r.DefensiveContribution.Int64),
	}, nil
}

type teamMatchRow struct {
	Team  sql.NullString `db:"fbref_team"`
	Date  sql.NullString `db:"fbref_date"`
	Round sql.NullInt64  `db:"fbref_round"`
}

func (r teamMatchRow) toModel() (model.TeamMatchRow, error) {
	if !r.Team.Valid || r.Team.String == "" {
		return model.TeamMatchRow{}, apperrors.MalformedRow(planner.ViewTeamMatchlog, "fbref_team is null")
	}
	nulls := &nullColumns{}
	nulls.check("fbref_date", r.Date.Valid)
	nulls.check("fbref_round", r.Round.Valid)
	if err := nulls.err(planner.ViewTeamMatchlog, "team", r.Team.String); err != nil {
		return model.TeamMatchRow{}, err
	}
	return model.TeamMatchRow{
		Team:      r.Team.String,
		MatchDate: r.Date.String,
		Round:     int(r.Round.Int64),
	}, nil
}

type eventRow struct {
	ID        sql.NullInt64 `db:"id"`
	Finished  sql.NullBool  `db:"finished"`
	IsCurrent sql.NullBool  `db:"is_current"`
}

func (r eventRow) toModel() (model.Event, error) {
	if !r.ID.Valid {
		return model.Event{}, apperrors.MalformedRow(planner.ViewEvents, "id is null")
	}
	nulls := &nullColumns{}
	nulls.check("finished", r.Finished.Valid)
	nulls.check("is_current", r.IsCurrent.Valid)
	if err := nulls.err(planner.ViewEvents, "event", r.ID.Int64); err != nil {
		return model.Event{}, err
	}
	return model.Event{ID: int(r.ID.Int64), Finished: r.Finished.Bool, IsCurrent: r.IsCurrent.Bool}, nil
}

type nullColumns struct {
	names []string
}

func (n *nullColumns) check(column string, valid bool) {
	if !valid {
		n.names = append(n.names, column)
	}
}

func (n *nullColumns) err(view, entity string, id interface{}) error {
	if len(n.names) == 0 {
		return nil
	}
	return apperrors.MalformedRow(view, "null value in %v for %s %v", n.names, entity, id)
}
