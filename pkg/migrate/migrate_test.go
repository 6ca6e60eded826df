package migrate

import (
	"database/sql"
	"path/filepath"
	"testing"
	"testing/fstest"

	_ "modernc.org/sqlite"
)

var testMigrations = fstest.MapFS{
	"sql/001_create_plants.up.sql":   {Data: []byte("CREATE TABLE plants (name TEXT PRIMARY KEY);")},
	"sql/001_create_plants.down.sql": {Data: []byte("DROP TABLE plants;")},
	"sql/002_add_capacity.up.sql":    {Data: []byte("ALTER TABLE plants ADD COLUMN capacity REAL;")},
	"sql/002_add_capacity.down.sql":  {Data: []byte("ALTER TABLE plants DROP COLUMN capacity;")},
	"sql/README.md":                  {Data: []byte("not a migration")},
}

func openDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestGetMigrations(t *testing.T) {
	migrations, err := NewFSProvider(testMigrations, "sql", "").GetMigrations()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(migrations) != 2 {
		t.Fatalf("expected 2 migrations, got %d", len(migrations))
	}
	if migrations[0].Version != 1 || migrations[0].Name != "create plants" {
		t.Errorf("unexpected first migration: %+v", migrations[0])
	}
	if migrations[1].Up == "" || migrations[1].Down == "" {
		t.Errorf("expected both directions for migration 2")
	}
}

func TestMigrateUpAndDown(t *testing.T) {
	db := openDB(t)
	m := NewMigrator(db, NewFSProvider(testMigrations, "sql", ""))

	pending, err := m.Pending()
	if err != nil || len(pending) != 2 {
		t.Fatalf("expected 2 pending migrations, got %d (%v)", len(pending), err)
	}

	if err := m.MigrateUp(); err != nil {
		t.Fatalf("migrate up: %v", err)
	}
	if v, _ := m.CurrentVersion(); v != 2 {
		t.Errorf("version = %d, expected 2", v)
	}
	if _, err := db.Exec("INSERT INTO plants (name, capacity) VALUES ('a', 1.5)"); err != nil {
		t.Errorf("schema not applied: %v", err)
	}

	// Re-running is a no-op
	if err := m.MigrateUp(); err != nil {
		t.Fatalf("second migrate up: %v", err)
	}

	if err := m.MigrateTo(1); err != nil {
		t.Fatalf("migrate down: %v", err)
	}
	if v, _ := m.CurrentVersion(); v != 1 {
		t.Errorf("version = %d, expected 1", v)
	}
	if _, err := db.Exec("INSERT INTO plants (name, capacity) VALUES ('b', 2)"); err == nil {
		t.Errorf("expected the capacity column to be gone")
	}

	if err := m.MigrateTo(0); err != nil {
		t.Fatalf("migrate to 0: %v", err)
	}
	if v, _ := m.CurrentVersion(); v != 0 {
		t.Errorf("version = %d, expected 0", v)
	}
}
