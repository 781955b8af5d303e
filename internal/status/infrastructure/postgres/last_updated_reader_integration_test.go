package postgres_test

import (
	"context"
	"database/sql"
	"os"
	"testing"
	"time"

	status "nowcasting-dashboard/internal/status/domain"
	statuspostgres "nowcasting-dashboard/internal/status/infrastructure/postgres"

	_ "github.com/jackc/pgx/v5/stdlib"
)

func TestLastUpdatedReader_Postgres(t *testing.T) {
	dsn := os.Getenv("PG_DSN")
	if dsn == "" {
		t.Skip("PG_DSN not set")
	}

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	defer db.Close()

	if !tableExists(db, "input_data_last_updated") {
		t.Skip("input_data_last_updated missing; run migrations")
	}

	ctx := context.Background()
	pulled := time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC)
	created := time.Now().UTC()
	if _, err := db.ExecContext(ctx, `
INSERT INTO input_data_last_updated (created_utc, gsp, nwp, pv, satellite)
VALUES ($1, $2, $2, $2, NULL)`, created, pulled); err != nil {
		t.Fatalf("insert: %v", err)
	}
	defer func() {
		_, _ = db.ExecContext(ctx, `DELETE FROM input_data_last_updated WHERE created_utc = $1`, created)
	}()

	reader := statuspostgres.NewLastUpdatedReader(db)
	ts, err := reader.LastUpdated(ctx, "pv")
	if err != nil {
		t.Fatalf("last updated: %v", err)
	}
	if ts == nil || !ts.Equal(pulled) {
		t.Fatalf("expected %s, got %v", pulled, ts)
	}

	ts, err = reader.LastUpdated(ctx, "satellite")
	if err != nil {
		t.Fatalf("last updated satellite: %v", err)
	}
	if ts != nil {
		t.Fatalf("expected nil for NULL column, got %v", ts)
	}

	if _, err := reader.LastUpdated(ctx, "radar"); err == nil {
		t.Fatal("expected error for unknown source")
	}

	if tableExists(db, "forecast") && tableExists(db, "location") {
		if _, err := reader.LatestForecastCreated(ctx, status.ScopeNational, 0); err != nil {
			t.Fatalf("latest forecast created: %v", err)
		}
	}
}

func tableExists(db *sql.DB, name string) bool {
	var exists bool
	err := db.QueryRow(`SELECT EXISTS (SELECT 1 FROM information_schema.tables WHERE table_name = $1)`, name).Scan(&exists)
	return err == nil && exists
}
