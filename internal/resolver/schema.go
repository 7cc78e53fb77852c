package resolver

import (
	"github.com/graphql-go/graphql"
)

// BuildGraphQLSchema returns the executable schema. Field names follow the
// model's json tags, so leaf fields use graphql-go's default resolver.
func (r *Resolver) BuildGraphQLSchema() (graphql.Schema, error) {
	gameweekType := graphql.NewObject(graphql.ObjectConfig{
		Name:        "PlayerGameweekData",
		Description: "A player's performance in one gameweek.",
		Fields: graphql.Fields{
			"fbref_round":                nonNull(graphql.Int),
			"fbref_minutes":              nonNull(graphql.Int),
			"fbref_npxg":                 nonNull(graphql.Float),
			"fbref_xg_assist":            nonNull(graphql.Float),
			"calc_fpl_npxp":              nonNull(graphql.Float),
			"fpl_gameweek":               nonNull(graphql.Int),
			"fpl_total_points":           nonNull(graphql.Int),
			"fpl_goals_scored":           nonNull(graphql.Int),
			"fpl_assists":                nonNull(graphql.Int),
			"fpl_bps":                    nonNull(graphql.Int),
			"fpl_clean_sheet":            nonNull(graphql.Int),
			"fpl_defensive_contribution": nonNull(graphql.Int),
		},
	})

	playerType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Player",
		Fields: graphql.Fields{
			"fpl_player_id":           nonNull(graphql.String),
			"fpl_player_code":         nonNull(graphql.Int),
			"fpl_web_name":            nonNull(graphql.String),
			"fbref_team":              nonNull(graphql.String),
			"fpl_player_position":     nonNull(graphql.String),
			"fpl_player_cost":         nonNull(graphql.Float),
			"fpl_selected_by_percent": nonNull(graphql.Float),
			"player_gameweek_data": &graphql.Field{
				Type:        graphql.NewList(graphql.NewNonNull(gameweekType)),
				Description: "Gameweek snapshots ordered by gameweek, optionally limited to an inclusive range.",
				Args: graphql.FieldConfigArgument{
					argGameweekStart: &graphql.ArgumentConfig{Type: graphql.Int},
					argGameweekEnd:   &graphql.ArgumentConfig{Type: graphql.Int},
				},
				Resolve: r.resolvePlayerGameweeks,
			},
		},
	})

	matchlogType := graphql.NewObject(graphql.ObjectConfig{
		Name: "TeamMatchlog",
		Fields: graphql.Fields{
			"fbref_match_date": nonNull(graphql.String),
			"fbref_round":      nonNull(graphql.Int),
			"match_number":     nonNull(graphql.Int),
		},
	})

	teamType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Team",
		Fields: graphql.Fields{
			"fbref_team": nonNull(graphql.String),
			"fbref_team_matchlog": &graphql.Field{
				Type: graphql.NewNonNull(graphql.NewList(graphql.NewNonNull(matchlogType))),
			},
		},
	})

	eventType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Events",
		Fields: graphql.Fields{
			"id":         nonNull(graphql.Int),
			"finished":   nonNull(graphql.Boolean),
			"is_current": nonNull(graphql.Boolean),
		},
	})

	stringList := graphql.NewList(graphql.NewNonNull(graphql.String))
	query := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"players": &graphql.Field{
				Type: graphql.NewList(graphql.NewNonNull(playerType)),
				Args: graphql.FieldConfigArgument{
					argIDs: &graphql.ArgumentConfig{Type: stringList},
				},
				Resolve: r.resolvePlayers,
			},
			"teams": &graphql.Field{
				Type: graphql.NewList(graphql.NewNonNull(teamType)),
				Args: graphql.FieldConfigArgument{
					argTeamNames: &graphql.ArgumentConfig{Type: stringList},
				},
				Resolve: r.resolveTeams,
			},
			"events": &graphql.Field{
				Type:    graphql.NewList(graphql.NewNonNull(eventType)),
				Resolve: r.resolveEvents,
			},
		},
	})

	return graphql.NewSchema(graphql.SchemaConfig{Query: query})
}

func nonNull(t graphql.Output) *graphql.Field {
	return &graphql.Field{Type: graphql.NewNonNull(t)}
}
