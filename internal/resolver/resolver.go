// Package resolver serves the statistics GraphQL schema. Root fields read
// whole views through the store; player gameweek data goes through the
// request's batching loader so a list of players costs one query.
package resolver

import (
	"context"
	"log/slog"

	"versostat-graphql/internal/aggregate"
	"versostat-graphql/internal/apperrors"
	"versostat-graphql/internal/logging"
	"versostat-graphql/internal/model"

	"github.com/go-playground/validator/v10"
	"github.com/graphql-go/graphql"
	"github.com/graphql-go/graphql/gqlerrors"
	"go.opentelemetry.io/otel/attribute"
)

// Store is the data access the resolvers need.
type Store interface {
	ListPlayers(ctx context.Context, ids []string) ([]model.Player, error)
	ListTeamMatchRows(ctx context.Context, teamNames []string) ([]model.TeamMatchRow, error)
	ListEvents(ctx context.Context) ([]model.Event, error)
	PlayerGameweeksByPlayerIDs(ctx context.Context, ids []string) ([]model.PlayerGameweek, error)
}

// Resolver builds the schema and resolves its fields.
type Resolver struct {
	store    Store
	validate *validator.Validate
}

// NewResolver creates a resolver reading from store.
func NewResolver(store Store) *Resolver {
	return &Resolver{store: store, validate: newValidator()}
}

// Store returns the store the resolver reads from.
func (r *Resolver) Store() Store {
	return r.store
}

func (r *Resolver) resolvePlayers(p graphql.ResolveParams) (interface{}, error) {
	args, err := r.parsePlayersArgs(p.Args)
	if err != nil {
		return nil, r.fail(p.Context, "players", err)
	}

	ctx, span := startResolverSpan(p.Context, "graphql.resolve.players",
		attribute.Int("graphql.players.id_filter_count", len(args.IDs)))
	players, err := r.store.ListPlayers(ctx, args.IDs)
	finishResolverSpan(span, err)
	if err != nil {
		return nil, r.fail(p.Context, "players", err)
	}
	return players, nil
}

func (r *Resolver) resolveTeams(p graphql.ResolveParams) (interface{}, error) {
	args, err := r.parseTeamsArgs(p.Args)
	if err != nil {
		return nil, r.fail(p.Context, "teams", err)
	}

	ctx, span := startResolverSpan(p.Context, "graphql.resolve.teams",
		attribute.Int("graphql.teams.name_filter_count", len(args.TeamNames)))
	rows, err := r.store.ListTeamMatchRows(ctx, args.TeamNames)
	var teams []model.Team
	if err == nil {
		teams, err = aggregate.AggregateTeamMatchlogs(rows)
	}
	span.SetAttributes(attribute.Int("graphql.teams.row_count", len(rows)), attribute.Int("graphql.teams.team_count", len(teams)))
	finishResolverSpan(span, err)
	if err != nil {
		return nil, r.fail(p.Context, "teams", err)
	}
	return teams, nil
}

func (r *Resolver) resolveEvents(p graphql.ResolveParams) (interface{}, error) {
	ctx, span := startResolverSpan(p.Context, "graphql.resolve.events")
	events, err := r.store.ListEvents(ctx)
	finishResolverSpan(span, err)
	if err != nil {
		return nil, r.fail(p.Context, "events", err)
	}
	return events, nil
}

// resolvePlayerGameweeks registers the player with the request loader and
// returns a thunk. The gameweek range is applied after the batched load so
// the batch key stays the player id.
func (r *Resolver) resolvePlayerGameweeks(p graphql.ResolveParams) (interface{}, error) {
	player, ok := p.Source.(model.Player)
	if !ok {
		return nil, r.fail(p.Context, "player_gameweek_data", apperrors.Internalf("unexpected source %T", p.Source))
	}
	args, err := r.parseGameweekArgs(p.Args)
	if err != nil {
		return nil, r.fail(p.Context, "player_gameweek_data", err)
	}
	loaders, ok := LoadersFromContext(p.Context)
	if !ok {
		return nil, r.fail(p.Context, "player_gameweek_data", apperrors.Internalf("request context has no loaders"))
	}

	load := loaders.PlayerGameweeks.Load(p.Context, player.FPLPlayerID)
	return func() (interface{}, error) {
		records, err := load()
		if err != nil {
			// graphql-go drops extensions from errors returned by thunks; a
			// located error raised as a panic is reported unchanged. The
			// loader observer has already logged the failed batch.
			panic(locatedError(p, apperrors.ForGraphQL(err)))
		}
		return aggregate.SortGameweeks(aggregate.FilterGameweekRange(records, args.Start, args.End)), nil
	}, nil
}

// fail logs err with the request logger and converts it for the response.
func (r *Resolver) fail(ctx context.Context, field string, err error) error {
	logger := logging.FromContext(ctx)
	attrs := []any{slog.String("field", field), slog.String("code", apperrors.Code(err)), slog.String("error", err.Error())}
	if apperrors.IsValidation(err) {
		logger.Debug("graphql argument rejected", attrs...)
	} else {
		logger.Error("graphql field failed", attrs...)
	}
	return apperrors.ForGraphQL(err)
}

func locatedError(p graphql.ResolveParams, err error) *gqlerrors.Error {
	var path []interface{}
	if p.Info.Path != nil {
		path = p.Info.Path.AsArray()
	}
	return graphql.NewLocatedErrorWithPath(err, graphql.FieldASTsToNodeASTs(p.Info.FieldASTs), path)
}
