package gqlrequest

import (
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnalyzeEnvelope_Metadata(t *testing.T) {
	tests := []struct {
		name              string
		query             string
		operationName     string
		wantType          string
		wantFields        int
		wantDepth         int
		wantVars          int
		wantParseErr      bool
		wantSelectionErr  bool
		wantResolvedName  string
		wantOperationHash bool
	}{
		{
			name: "anonymous query",
			query: `query {
				events {
					id
					is_current
				}
			}`,
			wantType:          "query",
			wantFields:        3,
			wantDepth:         2,
			wantResolvedName:  "<anonymous>",
			wantOperationHash: true,
		},
		{
			name: "named operation with variables",
			query: `query PlayerForm($ids: [String!], $from: Int) {
				players(ids: $ids) {
					fpl_web_name
					player_gameweek_data(gameweekStart: $from) {
						fpl_gameweek
						fpl_total_points
					}
				}
			}`,
			operationName:     "PlayerForm",
			wantType:          "query",
			wantFields:        5,
			wantDepth:         3,
			wantVars:          2,
			wantResolvedName:  "PlayerForm",
			wantOperationHash: true,
		},
		{
			name: "multiple operations without name is unresolved",
			query: `
				query Teams { teams { fbref_team } }
				query Events { events { id } }
			`,
			wantSelectionErr: true,
		},
		{
			name:             "unknown operation name",
			query:            `query Teams { teams { fbref_team } }`,
			operationName:    "Players",
			wantSelectionErr: true,
		},
		{
			name:         "malformed query",
			query:        `query { players { `,
			wantParseErr: true,
		},
		{
			name:  "empty query",
			query: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			analysis := AnalyzeEnvelope(Envelope{
				Query:         tt.query,
				OperationName: tt.operationName,
			})
			require.Equal(t, tt.wantParseErr, analysis.ParseError != nil, "parse error: %v", analysis.ParseError)
			require.Equal(t, tt.wantSelectionErr, analysis.SelectionError != nil, "selection error: %v", analysis.SelectionError)
			if tt.wantParseErr || tt.wantSelectionErr || tt.query == "" {
				return
			}
			assert.Equal(t, tt.wantType, analysis.OperationType)
			assert.Equal(t, tt.wantFields, analysis.FieldCount)
			assert.Equal(t, tt.wantDepth, analysis.SelectionDepth)
			assert.Equal(t, tt.wantVars, analysis.VariableCount)
			assert.Equal(t, tt.wantResolvedName, analysis.OperationName)
			assert.Equal(t, tt.wantOperationHash, analysis.OperationHash != "")
		})
	}
}

func TestAnalyzeEnvelope_FragmentCycleSafe(t *testing.T) {
	query := `
		fragment A on Player {
			fpl_player_id
			...B
		}
		fragment B on Player {
			fpl_web_name
			...A
		}
		query {
			players {
				...A
			}
		}
	`
	analysis := AnalyzeEnvelope(Envelope{Query: query})
	require.NoError(t, analysis.ParseError)
	require.NoError(t, analysis.SelectionError)
	assert.Equal(t, 3, analysis.FieldCount)
	assert.NotEmpty(t, analysis.OperationHash)
}

func TestAnalyzeEnvelope_RootAndBatchedFields(t *testing.T) {
	query := `
		fragment Form on Player {
			player_gameweek_data { fpl_total_points }
		}
		query Dashboard {
			players(ids: ["7"]) {
				fpl_web_name
				...Form
				recent: player_gameweek_data(gameweekStart: 30) { fpl_gameweek }
			}
			events { id }
		}
	`
	analysis := AnalyzeEnvelope(Envelope{Query: query})
	require.NoError(t, analysis.SelectionError)

	assert.Equal(t, []string{"players", "events"}, analysis.RootFields)
	assert.Equal(t, 2, analysis.BatchedFields)
	assert.Equal(t, 3, analysis.SelectionDepth)
	assert.Equal(t, 8, analysis.FieldCount)
}

func TestOperationHash_IgnoresUnusedFragments(t *testing.T) {
	a := AnalyzeEnvelope(Envelope{Query: `query Q { events { id } }`})
	b := AnalyzeEnvelope(Envelope{Query: `
		fragment Unused on Player { fpl_web_name }
		query Q { events { id } }
	`})
	assert.Equal(t, a.OperationHash, b.OperationHash)
}

func TestOperationHash_WhitespaceAndCommentsInsensitive(t *testing.T) {
	query1 := `
		query Squad {
			players { fpl_player_id fpl_web_name }
		}
	`
	query2 := `
		# weekly refresh
		query Squad { players { fpl_player_id, fpl_web_name } }
	`

	a := AnalyzeEnvelope(Envelope{Query: query1, OperationName: "Squad"})
	b := AnalyzeEnvelope(Envelope{Query: query2, OperationName: "Squad"})
	require.NotEmpty(t, a.OperationHash)
	assert.Equal(t, a.OperationHash, b.OperationHash)
}

func TestOperationHash_MultiOperationSelection(t *testing.T) {
	query := `
		query A { teams { fbref_team } }
		query B { events { id finished } }
	`
	a := AnalyzeEnvelope(Envelope{Query: query, OperationName: "A"})
	b := AnalyzeEnvelope(Envelope{Query: query, OperationName: "B"})
	require.NotEmpty(t, a.OperationHash)
	require.NotEmpty(t, b.OperationHash)
	assert.NotEqual(t, a.OperationHash, b.OperationHash)
}

func TestDigestDisambiguatesParts(t *testing.T) {
	assert.NotEqual(t, digest("ab", "c"), digest("a", "bc"))
}

func TestCheckLimits(t *testing.T) {
	deep := AnalyzeEnvelope(Envelope{Query: `{
		teams {
			fbref_team_matchlog {
				match_number
			}
		}
	}`})
	require.Equal(t, 3, deep.SelectionDepth)

	assert.NoError(t, deep.CheckLimits(Limits{}))
	assert.NoError(t, deep.CheckLimits(Limits{MaxDepth: 3}))

	err := deep.CheckLimits(Limits{MaxDepth: 2})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrLimitExceeded))
	assert.Contains(t, err.Error(), "query depth 3 exceeds maximum of 2")

	err = deep.CheckLimits(Limits{MaxFields: 2})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrLimitExceeded))

	unparsed := AnalyzeEnvelope(Envelope{Query: `{ teams {`})
	assert.NoError(t, unparsed.CheckLimits(Limits{MaxDepth: 1}))

	var missing *Analysis
	assert.NoError(t, missing.CheckLimits(Limits{MaxDepth: 1}))
}
