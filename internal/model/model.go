// Package model holds the typed domain entities served by the GraphQL API.
//
// JSON tags double as GraphQL field names: graphql-go's default resolver
// matches struct fields by their json tag.
package model

// Player is one row of the player metadata view.
type Player struct {
	FPLPlayerID          string  `json:"fpl_player_id"`
	FPLPlayerCode        int     `json:"fpl_player_code"`
	FPLWebName           string  `json:"fpl_web_name"`
	FBRefTeam            string  `json:"fbref_team"`
	FPLPlayerPosition    string  `json:"fpl_player_position"`
	FPLPlayerCost        float64 `json:"fpl_player_cost"`
	FPLSelectedByPercent float64 `json:"fpl_selected_by_percent"`
}

// PlayerGameweek is a per-(player, gameweek) performance snapshot.
type PlayerGameweek struct {
	FPLPlayerID              string  `json:"fpl_player_id"`
	FBRefRound               int     `json:"fbref_round"`
	FBRefMinutes             int     `json:"fbref_minutes"`
	FBRefNPXG                float64 `json:"fbref_npxg"`
	FBRefXGAssist            float64 `json:"fbref_xg_assist"`
	CalcFPLNPXP              float64 `json:"calc_fpl_npxp"`
	FPLGameweek              int     `json:"fpl_gameweek"`
	FPLTotalPoints           int     `json:"fpl_total_points"`
	FPLGoalsScored           int     `json:"fpl_goals_scored"`
	FPLAssists               int     `json:"fpl_assists"`
	FPLBPS                   int     `json:"fpl_bps"`
	FPLCleanSheet            int     `json:"fpl_clean_sheet"`
	FPLDefensiveContribution int     `json:"fpl_defensive_contribution"`
}

// TeamMatchRow is a flat team matchlog row: one row per team per match.
// MatchDate is kept as text and parsed by the aggregator.
type TeamMatchRow struct {
	Team      string
	MatchDate string
	Round     int
}

// TeamMatchlogEntry is one match in a team's ordered matchlog.
type TeamMatchlogEntry struct {
	MatchDate   string `json:"fbref_match_date"`
	Round       int    `json:"fbref_round"`
	MatchNumber int    `json:"match_number"`
}

// Team groups a team's matchlog, ordered by match date.
type Team struct {
	Name     string              `json:"fbref_team"`
	Matchlog []TeamMatchlogEntry `json:"fbref_team_matchlog"`
}

// Event describes a gameweek period.
type Event struct {
	ID        int  `json:"id"`
	Finished  bool `json:"finished"`
	IsCurrent bool `json:"is_current"`
}
