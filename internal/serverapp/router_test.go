package serverapp

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"testing"
	"time"

	"versostat-graphql/internal/config"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testServerConfig() *config.Config {
	return &config.Config{
		Database: config.DatabaseConfig{
			Schema: "test_schema_2025",
			Pool:   config.PoolConfig{AcquireTimeout: time.Second},
		},
		Server: config.ServerConfig{
			GraphQLMaxDepth:      10,
			GraphQLMaxFields:     100,
			HealthCheckTimeout:   time.Second,
			CORSEnabled:          true,
			CORSAllowedOrigins:   []string{"http://localhost:5173"},
			CORSAllowCredentials: true,
		},
	}
}

// newTestHandler wires the full HTTP stack over a sqlmock database.
func newTestHandler(t *testing.T, cfg *config.Config) (http.Handler, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	statsStore := buildStore(cfg, db)
	graphqlHandler, err := buildGraphQLHandler(cfg, testLogger(), statsStore, nil)
	require.NoError(t, err)

	mux := buildRouter(cfg, testLogger(), &fakePinger{}, &fakeProber{}, graphqlHandler, nil)
	return wrapHTTPHandler(cfg, testLogger(), mux), mock
}

func postGraphQL(t *testing.T, h http.Handler, query string) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(map[string]string{"query": query})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/graphql", strings.NewReader(string(body)))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Origin", "http://localhost:5173")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestGraphQLEndpoint_ServesPlayersWithBatchedGameweeks(t *testing.T) {
	h, mock := newTestHandler(t, testServerConfig())

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
			AddRow("7", int64(2), int64(88), 0.4, 0.2, 4.3, int64(2), int64(6), int64(0), int64(1), int64(22), int64(0), int64(1)).
			AddRow("42", int64(1), int64(90), 0.8, 0.3, 6.1, int64(1), int64(13), int64(1), int64(1), int64(40), int64(1), int64(2)))

	rec := postGraphQL(t, h, `{ players(ids: ["7", "42"]) { fpl_web_name player_gameweek_data { fpl_gameweek fpl_total_points } } }`)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "http://localhost:5173", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	var resp struct {
		Data   json.RawMessage `json:"data"`
		Errors []any           `json:"errors"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Empty(t, resp.Errors)
	assert.JSONEq(t, `{"players":[
		{"fpl_web_name":"Saka","player_gameweek_data":[{"fpl_gameweek":2,"fpl_total_points":6}]},
		{"fpl_web_name":"Salah","player_gameweek_data":[{"fpl_gameweek":1,"fpl_total_points":13}]}
	]}`, string(resp.Data))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGraphQLEndpoint_RejectsTooDeepQuery(t *testing.T) {
	cfg := testServerConfig()
	cfg.Server.GraphQLMaxDepth = 1
	h, mock := newTestHandler(t, cfg)

	rec := postGraphQL(t, h, `{ players { player_gameweek_data { fpl_gameweek } } }`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "VALIDATION_ERROR")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRouter_HealthAndRedirect(t *testing.T) {
	h, _ := newTestHandler(t, testServerConfig())

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/graphql", rec.Header().Get("Location"))

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nope", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRouter_Ready(t *testing.T) {
	h, _ := newTestHandler(t, testServerConfig())

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ready", decodeReport(t, rec).Status)
}

func TestRouter_MetricsDisabledWithoutProvider(t *testing.T) {
	cfg := testServerConfig()
	cfg.Observability.MetricsEnabled = true
	h, _ := newTestHandler(t, cfg)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestWrapHTTPHandler_RateLimit(t *testing.T) {
	cfg := testServerConfig()
	cfg.Server.RateLimitEnabled = true
	cfg.Server.RateLimitRPS = 0.001
	cfg.Server.RateLimitBurst = 1
	h, _ := newTestHandler(t, cfg)

	first := httptest.NewRecorder()
	h.ServeHTTP(first, httptest.NewRequest(http.MethodGet, "/unknown", nil))
	second := httptest.NewRecorder()
	h.ServeHTTP(second, httptest.NewRequest(http.MethodGet, "/unknown", nil))
	probe := httptest.NewRecorder()
	h.ServeHTTP(probe, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusNotFound, first.Code)
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
	assert.Equal(t, http.StatusOK, probe.Code)
}
