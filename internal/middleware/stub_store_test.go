package middleware

import (
	"context"
	"slices"
	"sync"

	"versostat-graphql/internal/model"
)

type stubStore struct {
	mu        sync.Mutex
	gameweeks []model.PlayerGameweek
	calls     int
}

func (s *stubStore) ListPlayers(context.Context, []string) ([]model.Player, error) {
	return nil, nil
}

func (s *stubStore) ListTeamMatchRows(context.Context, []string) ([]model.TeamMatchRow, error) {
	return nil, nil
}

func (s *stubStore) ListEvents(context.Context) ([]model.Event, error) {
	return nil, nil
}

func (s *stubStore) PlayerGameweeksByPlayerIDs(_ context.Context, ids []string) ([]model.PlayerGameweek, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	var out []model.PlayerGameweek
	for _, gw := range s.gameweeks {
		if slices.Contains(ids, gw.FPLPlayerID) {
			out = append(out, gw)
		}
	}
	return out, nil
}
