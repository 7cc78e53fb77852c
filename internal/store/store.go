// Package store reads the statistics views and maps rows to domain entities.
package store

import (
	"context"

	"versostat-graphql/internal/apperrors"
	"versostat-graphql/internal/dbexec"
	"versostat-graphql/internal/model"
	"versostat-graphql/internal/planner"

	"github.com/cockroachdb/errors"
	"github.com/jmoiron/sqlx"
)

// Store executes planned queries and converts rows into model values.
type Store struct {
	exec    dbexec.QueryExecutor
	planner *planner.Planner
}

// New creates a store reading views from the planner's schema through exec.
func New(exec dbexec.QueryExecutor, p *planner.Planner) *Store {
	return &Store{exec: exec, planner: p}
}

// ListPlayers returns players ordered by id. A nil ids slice returns every
// player; a non-nil slice restricts the result to those ids.
func (s *Store) ListPlayers(ctx context.Context, ids []string) ([]model.Player, error) {
	plan, err := s.planner.PlanPlayers(ids)
	if err != nil {
		return nil, err
	}
	rows, err := fetch[playerRow](ctx, s.exec, planner.ViewPlayers, plan)
	if err != nil {
		return nil, err
	}
	return convert(rows, playerRow.toModel)
}

// PlayerGameweeksByPlayerIDs returns matchlog rows for every player in ids
// using a single query, ordered by player then gameweek.
func (s *Store) PlayerGameweeksByPlayerIDs(ctx context.Context, ids []string) ([]model.PlayerGameweek, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	plan, err := s.planner.PlanPlayerGameweeks(ids)
	if err != nil {
		return nil, err
	}
	rows, err := fetch[playerGameweekRow](ctx, s.exec, planner.ViewPlayerMatchlog, plan)
	if err != nil {
		return nil, err
	}
	return convert(rows, playerGameweekRow.toModel)
}

// ListTeamMatchRows returns flat team matchlog rows. A nil teamNames slice
// returns every team.
func (s *Store) ListTeamMatchRows(ctx context.Context, teamNames []string) ([]model.TeamMatchRow, error) {
	plan, err := s.planner.PlanTeamMatchlog(teamNames)
	if err != nil {
		return nil, err
	}
	rows, err := fetch[teamMatchRow](ctx, s.exec, planner.ViewTeamMatchlog, plan)
	if err != nil {
		return nil, err
	}
	return convert(rows, teamMatchRow.toModel)
}

// ListEvents returns every gameweek event ordered by id.
func (s *Store) ListEvents(ctx context.Context) ([]model.Event, error) {
	plan, err := s.planner.PlanEvents()
	if err != nil {
		return nil, err
	}
	rows, err := fetch[eventRow](ctx, s.exec, planner.ViewEvents, plan)
	if err != nil {
		return nil, err
	}
	return convert(rows, eventRow.toModel)
}

// ProbeView checks that view exists and can be read.
func (s *Store) ProbeView(ctx context.Context, view string) error {
	plan, err := s.planner.PlanViewProbe(view)
	if err != nil {
		return err
	}
	rows, err := s.exec.QueryContext(ctx, plan.SQL, plan.Args...)
	if err != nil {
		return errors.Wrapf(err, "probe %s", view)
	}
	defer rows.Close()
	for rows.Next() {
	}
	if err := rows.Err(); err != nil {
		return errors.Wrapf(err, "probe %s", view)
	}
	return nil
}

func fetch[R any](ctx context.Context, exec dbexec.QueryExecutor, view string, plan planner.SQLQuery) ([]R, error) {
	rows, err := exec.QueryContext(ctx, plan.SQL, plan.Args...)
	if err != nil {
		return nil, errors.Wrapf(err, "query %s", view)
	}
	defer rows.Close()

	var out []R
	if err := sqlx.StructScan(rows, &out); err != nil {
		if apperrors.IsDataSource(err) {
			return nil, errors.Wrapf(err, "read %s", view)
		}
		return nil, apperrors.MalformedRow(view, "scan: %v", err)
	}
	return out, nil
}

func convert[R any, M any](rows []R, toModel func(R) (M, error)) ([]M, error) {
	out := make([]M, 0, len(rows))
	for _, row := range rows {
		m, err := toModel(row)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, nil
}
