package postgres

import (
	"database/sql"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/riskibarqy/esports-fantasy/internal/domain/jobscheduler"
	"github.com/riskibarqy/esports-fantasy/internal/domain/match"
	"github.com/riskibarqy/esports-fantasy/internal/domain/synclog"
)

func TestIsNotFound(t *testing.T) {
	if !isNotFound(sql.ErrNoRows) {
		t.Fatalf("expected sql.ErrNoRows to be not found")
	}
	if !isNotFound(fmt.Errorf("select: %w", sql.ErrNoRows)) {
		t.Fatalf("expected wrapped sql.ErrNoRows to be not found")
	}
	if isNotFound(fmt.Errorf("connection reset")) {
		t.Fatalf("expected unrelated error to be found")
	}
}

func TestOptionalString(t *testing.T) {
	if optionalString("   ") != nil {
		t.Fatalf("expected nil for blank input")
	}
	got := optionalString("  navi ")
	if got == nil || *got != "navi" {
		t.Fatalf("expected trimmed value, got %v", got)
	}
}

func TestNullableTime(t *testing.T) {
	if nullableTime(nil) != nil {
		t.Fatalf("expected nil for nil input")
	}
	zero := time.Time{}
	if nullableTime(&zero) != nil {
		t.Fatalf("expected nil for zero time")
	}

	loc := time.FixedZone("WIB", 7*3600)
	in := time.Date(2026, 3, 1, 19, 0, 0, 0, loc)
	got := nullableTime(&in)
	if got == nil || got.Location() != time.UTC || !got.Equal(in) {
		t.Fatalf("expected utc copy of %s, got %v", in, got)
	}
}

func TestNullConversions(t *testing.T) {
	if nullStringValue(sql.NullString{}) != "" {
		t.Fatalf("expected empty string for null")
	}
	if nullStringValue(sql.NullString{String: "x", Valid: true}) != "x" {
		t.Fatalf("expected valid string value")
	}
	if nullTimeToPtr(sql.NullTime{}) != nil {
		t.Fatalf("expected nil for null time")
	}
}

func TestMatchTable(t *testing.T) {
	for _, provider := range match.Providers() {
		table, err := matchTable(provider)
		if err != nil {
			t.Fatalf("match table for %s: %v", provider, err)
		}
		if table != string(provider)+"_matches" {
			t.Fatalf("unexpected table %q", table)
		}
	}
	if _, err := matchTable("sportmonks"); err == nil {
		t.Fatalf("expected error for unknown provider")
	}
}

func TestCatalogTables(t *testing.T) {
	if table, err := teamTable(match.ProviderFaceit); err != nil || table != "faceit_teams" {
		t.Fatalf("unexpected faceit team table %q err=%v", table, err)
	}
	if _, err := teamTable(match.ProviderSportDevs); err == nil {
		t.Fatalf("expected sportdevs to have no team catalog")
	}
	if table, err := tournamentTable(match.ProviderSportDevs); err != nil || table != "sportdevs_tournaments" {
		t.Fatalf("unexpected sportdevs tournament table %q err=%v", table, err)
	}
	if _, err := tournamentTable(match.ProviderFaceit); err == nil {
		t.Fatalf("expected faceit to have no tournament catalog")
	}
}

func TestSyncLogTable(t *testing.T) {
	table, err := syncLogTable(synclog.JobMatchStatus)
	if err != nil || table != "match_status_sync_logs" {
		t.Fatalf("unexpected table %q err=%v", table, err)
	}
	if _, err := syncLogTable("users; drop table x"); err == nil {
		t.Fatalf("expected unknown job to be rejected")
	}
}

func TestMatchRowResultDecoding(t *testing.T) {
	row := matchTableModel{
		ExternalID:  "1-abc",
		Phase:       "finished",
		ScheduledAt: time.Date(2026, 3, 1, 18, 0, 0, 0, time.UTC),
		Result:      []byte(`{"team_a_maps":2,"team_b_maps":1,"winner_team_id":"t1","maps":[{"number":1,"team_a_score":13,"team_b_score":9}]}`),
	}

	item, err := row.toDomain(match.ProviderFaceit)
	if err != nil {
		t.Fatalf("decode row: %v", err)
	}
	if item.Provider != match.ProviderFaceit || item.Phase != match.PhaseFinished {
		t.Fatalf("unexpected match %+v", item)
	}
	if item.Result.WinnerTeamID != "t1" || item.Result.TeamAMaps != 2 || len(item.Result.Maps) != 1 {
		t.Fatalf("unexpected result %+v", item.Result)
	}

	row.Result = []byte(`{`)
	if _, err := row.toDomain(match.ProviderFaceit); err == nil {
		t.Fatalf("expected error for corrupt result")
	}
}

func TestBuildJobDispatchUpsert(t *testing.T) {
	now := time.Date(2026, 3, 1, 18, 0, 0, 0, time.UTC)

	query, args, err := buildJobDispatchUpsert(jobscheduler.DispatchEvent{
		DispatchID:   "d-1",
		JobName:      "sync_live",
		JobPath:      "/v1/internal/jobs/sync-live",
		Provider:     "faceit",
		MatchID:      "1-abc",
		Status:       jobscheduler.StatusFailed,
		ErrorMessage: "faceit 503",
		Payload:      map[string]any{"match_id": "1-abc"},
	}, now)
	if err != nil {
		t.Fatalf("build upsert: %v", err)
	}
	if !strings.HasPrefix(query, "INSERT INTO job_dispatch_events") {
		t.Fatalf("unexpected query: %s", query)
	}
	if !strings.Contains(query, "ON CONFLICT (dispatch_id)") {
		t.Fatalf("expected conflict clause: %s", query)
	}

	var sawPayload, sawError, sawFailedAt bool
	for _, arg := range args {
		switch v := arg.(type) {
		case string:
			if v == `{"match_id":"1-abc"}` {
				sawPayload = true
			}
		case *string:
			if v != nil && *v == "faceit 503" {
				sawError = true
			}
		case *time.Time:
			if v != nil && v.Equal(now) {
				sawFailedAt = true
			}
		}
	}
	if !sawPayload || !sawError || !sawFailedAt {
		t.Fatalf("missing args payload=%t error=%t failed_at=%t: %v", sawPayload, sawError, sawFailedAt, args)
	}

	if _, _, err := buildJobDispatchUpsert(jobscheduler.DispatchEvent{Status: jobscheduler.StatusSent}, now); err == nil {
		t.Fatalf("expected error for missing dispatch id")
	}
	if _, _, err := buildJobDispatchUpsert(jobscheduler.DispatchEvent{DispatchID: "d-2", Status: "queued"}, now); err == nil {
		t.Fatalf("expected error for unknown status")
	}
}
