package resolver

import (
	"bytes"
	"context"
	"encoding/json"
	"regexp"
	"slices"
	"sync"
	"testing"
	"time"

	"versostat-graphql/internal/apperrors"
	"versostat-graphql/internal/dbexec"
	"versostat-graphql/internal/logging"
	"versostat-graphql/internal/model"
	"versostat-graphql/internal/planner"
	"versostat-graphql/internal/store"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/cockroachdb/errors"
	"github.com/graphql-go/graphql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	mu           sync.Mutex
	players      []model.Player
	gameweeks    []model.PlayerGameweek
	teamRows     []model.TeamMatchRow
	events       []model.Event
	gameweekErr  error
	playersErr   error
	playersCalls int
	batchKeys    [][]string
}

func (f *fakeStore) ListPlayers(_ context.Context, ids []string) ([]model.Player, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.playersCalls++
	if f.playersErr != nil {
		return nil, f.playersErr
	}
	if ids == nil {
		return f.players, nil
	}
	var out []model.Player
	for _, p := range f.players {
		if slices.Contains(ids, p.FPLPlayerID) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeStore) ListTeamMatchRows(_ context.Context, names []string) ([]model.TeamMatchRow, error) {
	return f.teamRows, nil
}

func (f *fakeStore) ListEvents(context.Context) ([]model.Event, error) {
	return f.events, nil
}

func (f *fakeStore) PlayerGameweeksByPlayerIDs(_ context.Context, ids []string) ([]model.PlayerGameweek, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.batchKeys = append(f.batchKeys, slices.Clone(ids))
	if f.gameweekErr != nil {
		return nil, f.gameweekErr
	}
	var out []model.PlayerGameweek
	for _, gw := range f.gameweeks {
		if slices.Contains(ids, gw.FPLPlayerID) {
			out = append(out, gw)
		}
	}
	return out, nil
}

func squad() *fakeStore {
	return &fakeStore{
		players: []model.Player{
			{FPLPlayerID: "1", FPLWebName: "Raya"},
			{FPLPlayerID: "2", FPLWebName: "Saka"},
			{FPLPlayerID: "3", FPLWebName: "Palmer"},
		},
		gameweeks: []model.PlayerGameweek{
			{FPLPlayerID: "2", FPLGameweek: 3, FPLTotalPoints: 2},
			{FPLPlayerID: "2", FPLGameweek: 1, FPLTotalPoints: 12},
			{FPLPlayerID: "2", FPLGameweek: 2, FPLTotalPoints: 5},
			{FPLPlayerID: "3", FPLGameweek: 1, FPLTotalPoints: 8},
		},
		events: []model.Event{{ID: 1, Finished: true}, {ID: 2, IsCurrent: true}},
	}
}

func execute(t *testing.T, ctx context.Context, s Store, query string) *graphql.Result {
	t.Helper()
	schema, err := NewResolver(s).BuildGraphQLSchema()
	require.NoError(t, err)
	return graphql.Do(graphql.Params{Schema: schema, RequestString: query, Context: ctx})
}

func dataJSON(t *testing.T, result *graphql.Result) string {
	t.Helper()
	out, err := json.Marshal(result.Data)
	require.NoError(t, err)
	return string(out)
}

func TestPlayersGameweeks_OneBatchForAllPlayers(t *testing.T) {
	fs := squad()
	ctx := NewRequestContext(context.Background(), fs, nil)

	result := execute(t, ctx, fs, `{
		players {
			fpl_web_name
			player_gameweek_data { fpl_gameweek fpl_total_points }
		}
	}`)
	require.Empty(t, result.Errors)

	require.Len(t, fs.batchKeys, 1)
	assert.ElementsMatch(t, []string{"1", "2", "3"}, fs.batchKeys[0])
	assert.JSONEq(t, `{"players":[
		{"fpl_web_name":"Raya","player_gameweek_data":[]},
		{"fpl_web_name":"Saka","player_gameweek_data":[
			{"fpl_gameweek":1,"fpl_total_points":12},
			{"fpl_gameweek":2,"fpl_total_points":5},
			{"fpl_gameweek":3,"fpl_total_points":2}]},
		{"fpl_web_name":"Palmer","player_gameweek_data":[{"fpl_gameweek":1,"fpl_total_points":8}]}
	]}`, dataJSON(t, result))

	loaders, ok := LoadersFromContext(ctx)
	require.True(t, ok)
	stats := loaders.Stats()
	assert.Equal(t, int64(3), stats.Loads)
	assert.Equal(t, int64(1), stats.Batches)
}

func TestPlayersGameweeks_AliasesShareCache(t *testing.T) {
	fs := squad()
	ctx := NewRequestContext(context.Background(), fs, nil)

	result := execute(t, ctx, fs, `{
		players(ids: ["2"]) {
			early: player_gameweek_data(gameweekEnd: 1) { fpl_gameweek }
			late: player_gameweek_data(gameweekStart: 2) { fpl_gameweek }
		}
	}`)
	require.Empty(t, result.Errors)
	require.Len(t, fs.batchKeys, 1)
	assert.Equal(t, []string{"2"}, fs.batchKeys[0])
	assert.JSONEq(t, `{"players":[{
		"early":[{"fpl_gameweek":1}],
		"late":[{"fpl_gameweek":2},{"fpl_gameweek":3}]
	}]}`, dataJSON(t, result))

	loaders, _ := LoadersFromContext(ctx)
	assert.Equal(t, int64(1), loaders.Stats().CacheHits)
}

func TestPlayersGameweeks_RangeFilter(t *testing.T) {
	fs := squad()
	result := execute(t, NewRequestContext(context.Background(), fs, nil), fs, `{
		players(ids: ["2"]) {
			player_gameweek_data(gameweekStart: 2, gameweekEnd: 2) { fpl_gameweek }
		}
	}`)
	require.Empty(t, result.Errors)
	assert.JSONEq(t, `{"players":[{"player_gameweek_data":[{"fpl_gameweek":2}]}]}`, dataJSON(t, result))
}

func TestPlayersGameweeks_InvertedRangeIsValidationError(t *testing.T) {
	fs := squad()
	result := execute(t, NewRequestContext(context.Background(), fs, nil), fs, `{
		players(ids: ["2"]) {
			fpl_web_name
			player_gameweek_data(gameweekStart: 5, gameweekEnd: 2) { fpl_gameweek }
		}
	}`)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, apperrors.CodeValidation, result.Errors[0].Extensions["code"])
	assert.Contains(t, result.Errors[0].Message, "gameweekEnd")
	assert.Empty(t, fs.batchKeys)
	assert.JSONEq(t, `{"players":[{"fpl_web_name":"Saka","player_gameweek_data":null}]}`, dataJSON(t, result))
}

func TestPlayersGameweeks_NonPositiveStartIsValidationError(t *testing.T) {
	fs := squad()
	result := execute(t, NewRequestContext(context.Background(), fs, nil), fs, `{
		players(ids: ["2"]) { player_gameweek_data(gameweekStart: 0) { fpl_gameweek } }
	}`)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, apperrors.CodeValidation, result.Errors[0].Extensions["code"])
	assert.Contains(t, result.Errors[0].Message, "must be at least 1")
}

func TestPlayers_EmptyIDIsRejectedBeforeStore(t *testing.T) {
	fs := squad()
	result := execute(t, NewRequestContext(context.Background(), fs, nil), fs, `{ players(ids: ["2", ""]) { fpl_web_name } }`)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, apperrors.CodeValidation, result.Errors[0].Extensions["code"])
	assert.Contains(t, result.Errors[0].Message, `"ids"`)
	assert.Zero(t, fs.playersCalls)
}

func TestPlayersGameweeks_BatchFailureKeepsCodeAndSiblings(t *testing.T) {
	fs := squad()
	fs.gameweekErr = apperrors.DataSource(errors.New("connection refused"), "query mv_player_matchlog")

	result := execute(t, NewRequestContext(context.Background(), fs, nil), fs, `{
		players(ids: ["1", "2"]) {
			fpl_web_name
			player_gameweek_data { fpl_gameweek }
		}
		events { id }
	}`)

	require.Len(t, result.Errors, 2)
	for _, gqlErr := range result.Errors {
		assert.Equal(t, apperrors.CodeDataSource, gqlErr.Extensions["code"])
		assert.Equal(t, "data source unavailable", gqlErr.Message)
		assert.NotContains(t, gqlErr.Message, "connection refused")
		require.Len(t, gqlErr.Path, 3)
		assert.Equal(t, "player_gameweek_data", gqlErr.Path[2])
	}
	assert.Len(t, fs.batchKeys, 1)
	assert.JSONEq(t, `{
		"players":[
			{"fpl_web_name":"Raya","player_gameweek_data":null},
			{"fpl_web_name":"Saka","player_gameweek_data":null}],
		"events":[{"id":1},{"id":2}]
	}`, dataJSON(t, result))
}

func TestPlayers_StoreFailureIsFieldLevel(t *testing.T) {
	fs := squad()
	fs.playersErr = apperrors.DataSource(errors.New("pool exhausted"), "query mv_player_data")

	result := execute(t, NewRequestContext(context.Background(), fs, nil), fs, `{ players { fpl_web_name } events { id } }`)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, apperrors.CodeDataSource, result.Errors[0].Extensions["code"])
	assert.JSONEq(t, `{"players":null,"events":[{"id":1},{"id":2}]}`, dataJSON(t, result))
}

func TestPlayersGameweeks_BatchFailureLoggedOnce(t *testing.T) {
	fs := squad()
	fs.gameweekErr = apperrors.DataSource(errors.New("connection refused"), "query mv_player_matchlog")

	var buf bytes.Buffer
	logger := logging.NewLogger(logging.Config{Level: "debug", Format: "json", Output: &buf})
	ctx := NewRequestContext(logging.WithLogger(context.Background(), logger), fs, nil)

	result := execute(t, ctx, fs, `{ players { player_gameweek_data { fpl_gameweek } } }`)
	require.Len(t, result.Errors, 3)

	var failures []map[string]any
	for _, line := range bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n")) {
		var entry map[string]any
		require.NoError(t, json.Unmarshal(line, &entry))
		if entry["level"] == "ERROR" {
			failures = append(failures, entry)
		}
	}
	require.Len(t, failures, 1)
	assert.Equal(t, "loader batch failed", failures[0]["msg"])
	assert.Equal(t, PlayerGameweeksLoader, failures[0]["loader"])
	assert.EqualValues(t, 3, failures[0]["keys"])
	assert.Equal(t, apperrors.CodeDataSource, failures[0]["code"])
}

func TestPlayersGameweeks_MissingLoadersIsInternalError(t *testing.T) {
	fs := squad()
	result := execute(t, context.Background(), fs, `{ players(ids: ["2"]) { player_gameweek_data { fpl_gameweek } } }`)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, apperrors.CodeInternal, result.Errors[0].Extensions["code"])
	assert.Equal(t, "internal error", result.Errors[0].Message)
}

func TestRequestContexts_AreIsolated(t *testing.T) {
	fs := squad()
	query := `{ players(ids: ["2"]) { player_gameweek_data { fpl_gameweek } } }`

	schema, err := NewResolver(fs).BuildGraphQLSchema()
	require.NoError(t, err)

	first := NewRequestContext(context.Background(), fs, nil)
	second := NewRequestContext(context.Background(), fs, nil)
	results := make([]*graphql.Result, 2)
	var wg sync.WaitGroup
	for i, ctx := range []context.Context{first, second} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i] = graphql.Do(graphql.Params{Schema: schema, RequestString: query, Context: ctx})
		}()
	}
	wg.Wait()
	require.Empty(t, results[0].Errors)
	require.Empty(t, results[1].Errors)

	assert.Len(t, fs.batchKeys, 2)
	a, _ := LoadersFromContext(first)
	b, _ := LoadersFromContext(second)
	assert.NotSame(t, a, b)
	assert.Zero(t, a.Stats().CacheHits)
	assert.Zero(t, b.Stats().CacheHits)
}

func TestTeams_Aggregated(t *testing.T) {
	fs := &fakeStore{teamRows: []model.TeamMatchRow{
		{Team: "Arsenal", MatchDate: "2025-08-23", Round: 2},
		{Team: "Chelsea", MatchDate: "2025-08-17", Round: 1},
		{Team: "Arsenal", MatchDate: "2025-08-17", Round: 1},
	}}
	result := execute(t, NewRequestContext(context.Background(), fs, nil), fs, `{
		teams { fbref_team fbref_team_matchlog { fbref_match_date fbref_round match_number } }
	}`)
	require.Empty(t, result.Errors)
	assert.JSONEq(t, `{"teams":[
		{"fbref_team":"Arsenal","fbref_team_matchlog":[
			{"fbref_match_date":"2025-08-17","fbref_round":1,"match_number":1},
			{"fbref_match_date":"2025-08-23","fbref_round":2,"match_number":2}]},
		{"fbref_team":"Chelsea","fbref_team_matchlog":[
			{"fbref_match_date":"2025-08-17","fbref_round":1,"match_number":1}]}
	]}`, dataJSON(t, result))
}

func TestTeams_MalformedDateFailsField(t *testing.T) {
	fs := &fakeStore{teamRows: []model.TeamMatchRow{{Team: "Arsenal", MatchDate: "last sunday", Round: 1}}}
	result := execute(t, NewRequestContext(context.Background(), fs, nil), fs, `{ teams { fbref_team } }`)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, apperrors.CodeMalformedRow, result.Errors[0].Extensions["code"])
	assert.JSONEq(t, `{"teams":null}`, dataJSON(t, result))
}

func TestEvents(t *testing.T) {
	fs := squad()
	result := execute(t, NewRequestContext(context.Background(), fs, nil), fs, `{ events { id finished is_current } }`)
	require.Empty(t, result.Errors)
	assert.JSONEq(t, `{"events":[
		{"id":1,"finished":true,"is_current":false},
		{"id":2,"finished":false,"is_current":true}
	]}`, dataJSON(t, result))
}

func TestPlayersGameweeks_SingleQueryAgainstPostgresStore(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer db.Close()
	s := store.New(dbexec.NewStandardExecutor(db, time.Second), planner.New("test_schema_2025"))

	mock.ExpectQuery(regexp.QuoteMeta(`FROM "test_schema_2025"."mv_player_data"`)).
		WillReturnRows(sqlmock.NewRows([]string{
			"fpl_player_id", "fpl_player_code", "fpl_web_name", "fbref_team",
			"fpl_player_position", "fpl_player_cost", "fpl_selected_by_percent",
		}).
			AddRow("7", int64(223094), "Saka", "Arsenal", "MID", 10.0, 34.2).
			AddRow("42", int64(118748), "Salah", "Liverpool", "MID", 13.5, 61.0))
	mock.ExpectQuery(regexp.QuoteMeta(`FROM "test_schema_2025"."mv_player_matchlog" WHERE "fpl_player_id" = ANY($1)`)).
		WillReturnRows(sqlmock.NewRows([]string{
			"fpl_player_id", "fbref_round", "fbref_minutes", "fbref_npxg", "fbref_xg_assist", "calc_fpl_npxp",
			"fpl_gameweek", "fpl_total_points", "fpl_goals_scored", "fpl_assists", "fpl_bps", "fpl_clean_sheet",
			"fpl_defensive_contribution",
		}).
			AddRow("42", int64(1), int64(90), 0.8, 0.3, 6.1, int64(1), int64(13), int64(1), int64(1), int64(40), int64(1), int64(2)))

	result := execute(t, NewRequestContext(context.Background(), s, nil), s, `{
		players { fpl_web_name player_gameweek_data { fpl_gameweek fpl_total_points } }
	}`)
	require.Empty(t, result.Errors)
	assert.JSONEq(t, `{"players":[
		{"fpl_web_name":"Saka","player_gameweek_data":[]},
		{"fpl_web_name":"Salah","player_gameweek_data":[{"fpl_gameweek":1,"fpl_total_points":13}]}
	]}`, dataJSON(t, result))
	assert.NoError(t, mock.ExpectationsWereMet())
}
