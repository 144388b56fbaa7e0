package store

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
)

func openTestDB(t *testing.T) (*sql.DB, context.Context) {
	t.Helper()
	dsn := strings.TrimSpace(os.Getenv("STOREFRONT_TEST_DATABASE_URL"))
	if dsn == "" {
		t.Skip("STOREFRONT_TEST_DATABASE_URL is not set")
	}
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		t.Fatalf("open postgres: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	t.Cleanup(cancel)
	if err := db.PingContext(ctx); err != nil {
		t.Fatalf("ping postgres: %v", err)
	}
	if err := resetPublicSchema(ctx, db); err != nil {
		t.Fatalf("reset schema: %v", err)
	}
	return db, ctx
}

func resetPublicSchema(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `DROP SCHEMA IF EXISTS public CASCADE; CREATE SCHEMA public;`)
	return err
}

func TestMigrationsRoundTripPostgres(t *testing.T) {
	db, ctx := openTestDB(t)

	if err := ApplyMigrations(ctx, db, migrationsDir); err != nil {
		t.Fatalf("apply up migrations (pass 1): %v", err)
	}
	assertSiteSettingsRow(t, ctx, db)

	if err := applyDownMigrations(ctx, db); err != nil {
		t.Fatalf("apply down migrations: %v", err)
	}
	var tables int
	if err := db.QueryRowContext(ctx, `
		SELECT count(*) FROM information_schema.tables
		WHERE table_schema = 'public' AND table_name IN ('pages', 'sections', 'site_settings')`).Scan(&tables); err != nil {
		t.Fatalf("count tables: %v", err)
	}
	if tables != 0 {
		t.Fatalf("down migrations left %d storefront tables", tables)
	}

	if _, err := db.ExecContext(ctx, `DELETE FROM schema_migrations`); err != nil {
		t.Fatalf("clear schema_migrations: %v", err)
	}
	if err := ApplyMigrations(ctx, db, migrationsDir); err != nil {
		t.Fatalf("apply up migrations (pass 2): %v", err)
	}
	assertSiteSettingsRow(t, ctx, db)

	pending, err := PendingMigrations(ctx, db, migrationsDir)
	if err != nil {
		t.Fatalf("pending migrations: %v", err)
	}
	if len(pending) != 0 {
		t.Fatalf("expected nothing pending, got %v", pending)
	}
}

func TestSingleHomePageConstraint(t *testing.T) {
	db, ctx := openTestDB(t)
	if err := ApplyMigrations(ctx, db, migrationsDir); err != nil {
		t.Fatalf("apply migrations: %v", err)
	}
	if _, err := db.ExecContext(ctx, `INSERT INTO pages (id, slug, title, is_home) VALUES ('pg_a', 'a', 'A', TRUE)`); err != nil {
		t.Fatalf("insert first home: %v", err)
	}
	if _, err := db.ExecContext(ctx, `INSERT INTO pages (id, slug, title, is_home) VALUES ('pg_b', 'b', 'B', TRUE)`); err == nil {
		t.Fatal("expected a second home page to be rejected")
	}
	if _, err := db.ExecContext(ctx, `INSERT INTO pages (id, slug, title, content) VALUES ('pg_c', 'c', 'C', '{"version":1,"blocks":{}}')`); err == nil {
		t.Fatal("expected non-array blocks to be rejected")
	}
}

func assertSiteSettingsRow(t *testing.T, ctx context.Context, db *sql.DB) {
	t.Helper()
	var revision int64
	var previous sql.NullString
	if err := db.QueryRowContext(ctx, `SELECT revision, previous FROM site_settings WHERE id = 1`).Scan(&revision, &previous); err != nil {
		t.Fatalf("read site_settings row: %v", err)
	}
	if revision != 0 || previous.Valid {
		t.Fatalf("unexpected fresh settings row: revision=%d previous=%v", revision, previous)
	}
}

func applyDownMigrations(ctx context.Context, db *sql.DB) error {
	downs, err := migrationFiles("down")
	if err != nil {
		return err
	}
	sort.Sort(sort.Reverse(sort.StringSlice(downs)))
	for _, name := range downs {
		raw, err := os.ReadFile(filepath.Join(migrationsDir, name))
		if err != nil {
			return err
		}
		if text := strings.TrimSpace(string(raw)); text != "" {
			if _, err := db.ExecContext(ctx, text); err != nil {
				return err
			}
		}
	}
	return nil
}
