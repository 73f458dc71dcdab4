package sportdevs

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/riskibarqy/esports-fantasy/internal/domain/match"
	"github.com/riskibarqy/esports-fantasy/internal/usecase"
)

func TestNormalizeStatus(t *testing.T) {
	tests := map[string]string{
		"inprogress": "running",
		"NotStarted": "not_started",
		"finished":   "finished",
		"walkover":   "forfeit",
		" weird ":    "weird",
	}
	for raw, want := range tests {
		assert.Equal(t, want, NormalizeStatus(raw), raw)
	}
}

func TestFetchMatches(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/matches", r.URL.Path)
		assert.Equal(t, "gte.2026-03-05T00:00:00Z", r.URL.Query().Get("start_time"))
		_, _ = w.Write([]byte(`[{
			"id": 501,
			"tournament_id": 9,
			"tournament_name": "Grand Final",
			"league_name": "BLAST Premier",
			"home_team_id": 1,
			"home_team_name": "Vitality",
			"away_team_id": 2,
			"away_team_name": "MOUZ",
			"status_type": "inprogress",
			"start_time": "2026-03-07T16:00:00+00:00",
			"home_team_score": {"current": 1},
			"away_team_score": {"display": 0}
		}]`))
	}))
	defer server.Close()

	client := NewClient(ClientConfig{BaseURL: server.URL, Token: "tok"})
	matches, err := client.FetchMatches(context.Background(), time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Len(t, matches, 1)

	got := matches[0]
	assert.Equal(t, match.ProviderSportDevs, got.Provider)
	assert.Equal(t, "501", got.ExternalID)
	assert.Equal(t, "running", got.RawStatus)
	assert.Equal(t, "BLAST Premier Grand Final", got.TournamentName)
	assert.Equal(t, time.Date(2026, 3, 7, 16, 0, 0, 0, time.UTC), got.ScheduledAt)
	assert.Equal(t, 1, got.Result.TeamAMaps)
	assert.Equal(t, 0, got.Result.TeamBMaps)
}

func TestFetchTournaments_ChunksUniqueIDs(t *testing.T) {
	var filters []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		filters = append(filters, r.URL.Query().Get("id"))
		_, _ = w.Write([]byte(`[{"id": 9, "name": "BLAST", "tier": "a"}]`))
	}))
	defer server.Close()

	client := NewClient(ClientConfig{BaseURL: server.URL, Token: "tok"})
	items, err := client.FetchTournaments(context.Background(), []string{"9", "3", "9", ""})
	require.NoError(t, err)
	assert.Equal(t, []string{"in.(3,9)"}, filters)
	require.Len(t, items, 1)
	assert.Equal(t, "9", items[0].ExternalID)
}

func TestFetchMatch_Empty(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`[]`))
	}))
	defer server.Close()

	client := NewClient(ClientConfig{BaseURL: server.URL, Token: "tok"})
	_, err := client.FetchMatch(context.Background(), "404")
	assert.True(t, errors.Is(err, usecase.ErrNotFound))
}
