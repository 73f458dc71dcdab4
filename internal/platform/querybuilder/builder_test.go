package querybuilder

import (
	"testing"
	"time"
)

func TestSelectBuilder(t *testing.T) {
	query, args, err := Select("external_id", "phase").
		From("faceit_matches").
		Where(AnyOf("phase", []string{"upcoming", "live"}), IsNull("finished_at")).
		OrderBy("scheduled_at").
		Limit(10).
		ToSQL()
	if err != nil {
		t.Fatalf("build select query: %v", err)
	}

	wantQuery := "SELECT external_id, phase FROM faceit_matches WHERE phase = ANY($1) AND finished_at IS NULL ORDER BY scheduled_at LIMIT 10"
	if query != wantQuery {
		t.Fatalf("unexpected query:\nwant: %s\ngot:  %s", wantQuery, query)
	}
	if len(args) != 1 {
		t.Fatalf("unexpected args: %+v", args)
	}
}

func TestSelectBuilder_Range(t *testing.T) {
	from := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	to := from.Add(24 * time.Hour)

	query, args, err := Select("id").
		From("match_status_sync_logs").
		Where(Gte("started_at", from), Lt("started_at", to), Lte("duration_ms", 500)).
		ToSQL()
	if err != nil {
		t.Fatalf("build select query: %v", err)
	}

	wantQuery := "SELECT id FROM match_status_sync_logs WHERE started_at >= $1 AND started_at < $2 AND duration_ms <= $3"
	if query != wantQuery {
		t.Fatalf("unexpected query:\nwant: %s\ngot:  %s", wantQuery, query)
	}
	if len(args) != 3 || args[0] != from || args[1] != to || args[2] != 500 {
		t.Fatalf("unexpected args: %+v", args)
	}
}

func TestSelectBuilder_EmptyAnyOf(t *testing.T) {
	query, args, err := Select("id").From("t").Where(AnyOf("id", nil)).ToSQL()
	if err != nil {
		t.Fatalf("build select query: %v", err)
	}
	if query != "SELECT id FROM t WHERE 1=0" || len(args) != 0 {
		t.Fatalf("unexpected query %q args %+v", query, args)
	}
}

func TestInsertBuilder(t *testing.T) {
	query, args, err := InsertInto("fantasy_rounds").
		Columns("id", "name").
		Values("r1", "Week 1").
		Suffix("RETURNING id").
		ToSQL()
	if err != nil {
		t.Fatalf("build insert query: %v", err)
	}

	wantQuery := "INSERT INTO fantasy_rounds (id, name) VALUES ($1, $2) RETURNING id"
	if query != wantQuery {
		t.Fatalf("unexpected query:\nwant: %s\ngot:  %s", wantQuery, query)
	}
	if len(args) != 2 || args[0] != "r1" || args[1] != "Week 1" {
		t.Fatalf("unexpected args: %+v", args)
	}
}

func TestUpdateBuilder(t *testing.T) {
	query, args, err := Update("user_promo_balances").
		SetExpr("balance_cents", "balance_cents - ?", int64(500)).
		SetExpr("updated_at", "NOW()").
		Where(Eq("user_id", "u1"), Gte("balance_cents", int64(500))).
		ToSQL()
	if err != nil {
		t.Fatalf("build update query: %v", err)
	}

	wantQuery := "UPDATE user_promo_balances SET balance_cents = balance_cents - $1, updated_at = NOW() WHERE user_id = $2 AND balance_cents >= $3"
	if query != wantQuery {
		t.Fatalf("unexpected query:\nwant: %s\ngot:  %s", wantQuery, query)
	}
	if len(args) != 3 || args[0] != int64(500) || args[1] != "u1" {
		t.Fatalf("unexpected args: %+v", args)
	}
}

func TestDeleteBuilder(t *testing.T) {
	query, args, err := DeleteFrom("fantasy_round_picks").
		Where(Eq("round_id", "r1"), Eq("user_id", "u1")).
		ToSQL()
	if err != nil {
		t.Fatalf("build delete query: %v", err)
	}
	if query != "DELETE FROM fantasy_round_picks WHERE round_id = $1 AND user_id = $2" {
		t.Fatalf("unexpected query %q", query)
	}
	if len(args) != 2 {
		t.Fatalf("unexpected args: %+v", args)
	}

	if _, _, err := DeleteFrom("fantasy_round_picks").ToSQL(); err == nil {
		t.Fatalf("expected unbounded delete to be rejected")
	}
}

func TestEqLiteralQuotes(t *testing.T) {
	query, args, err := Select("id").From("fantasy_rounds").Where(EqLiteral("status", "it's")).ToSQL()
	if err != nil {
		t.Fatalf("build select query: %v", err)
	}
	if query != "SELECT id FROM fantasy_rounds WHERE status = 'it''s'" || len(args) != 0 {
		t.Fatalf("unexpected query %q args %+v", query, args)
	}
}

func TestInsertBuilder_RowWidthMismatch(t *testing.T) {
	_, _, err := InsertInto("t").Columns("a", "b").Values(1).ToSQL()
	if err == nil {
		t.Fatalf("expected row width mismatch error")
	}
}

type matchRow struct {
	Provider   string    `db:"provider"`
	ExternalID string    `db:"external_id"`
	Phase      string    `db:"phase"`
	CreatedAt  time.Time `db:"created_at"`
	ignored    string
}

func TestUpsertModel(t *testing.T) {
	query, args, err := UpsertModel("pandascore_matches", matchRow{
		Provider:   "pandascore",
		ExternalID: "42",
		Phase:      "live",
		ignored:    "x",
	}, "external_id")
	if err != nil {
		t.Fatalf("build upsert query: %v", err)
	}

	wantQuery := "INSERT INTO pandascore_matches (provider, external_id, phase, created_at) VALUES ($1, $2, $3, $4) " +
		"ON CONFLICT (external_id) DO UPDATE SET provider = EXCLUDED.provider, phase = EXCLUDED.phase"
	if query != wantQuery {
		t.Fatalf("unexpected query:\nwant: %s\ngot:  %s", wantQuery, query)
	}
	if len(args) != 4 {
		t.Fatalf("unexpected args: %+v", args)
	}
}
