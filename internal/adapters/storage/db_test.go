package storage

import (
	"database/sql"
	"sort"
	"testing"
)

// openTestDB creates an in-memory SQLite database for testing.
func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := Open(":memory:", 1)
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// getTableNames returns sorted table names from sqlite_master, excluding internal tables.
func getTableNames(t *testing.T, db *sql.DB) []string {
	t.Helper()
	rows, err := db.Query("SELECT name FROM sqlite_master WHERE type='table' AND name NOT LIKE 'sqlite_%' ORDER BY name")
	if err != nil {
		t.Fatalf("failed to query sqlite_master: %v", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			t.Fatalf("failed to scan table name: %v", err)
		}
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// expectedTables is the sorted list of tables after all migrations.
var expectedTables = []string{
	"account",
	"goose_db_version",
	"program",
	"program_data",
	"program_field",
}

// TestMigrateDB_Fresh verifies all migrations apply cleanly to an empty database.
func TestMigrateDB_Fresh(t *testing.T) {
	db := openTestDB(t)

	if err := MigrateDB(db); err != nil {
		t.Fatalf("MigrateDB failed on fresh db: %v", err)
	}

	version, err := SchemaVersion(db)
	if err != nil {
		t.Fatalf("SchemaVersion failed: %v", err)
	}
	latest, err := LatestSchemaVersion()
	if err != nil {
		t.Fatalf("LatestSchemaVersion failed: %v", err)
	}
	if version != latest {
		t.Errorf("version = %d, want %d", version, latest)
	}

	tables := getTableNames(t, db)
	if len(tables) != len(expectedTables) {
		t.Fatalf("got %d tables, want %d\ngot:  %v\nwant: %v", len(tables), len(expectedTables), tables, expectedTables)
	}
	for i, want := range expectedTables {
		if tables[i] != want {
			t.Errorf("table[%d] = %q, want %q", i, tables[i], want)
		}
	}
}

// TestMigrateDB_Idempotent verifies that running MigrateDB twice leaves the version unchanged.
func TestMigrateDB_Idempotent(t *testing.T) {
	db := openTestDB(t)

	if err := MigrateDB(db); err != nil {
		t.Fatalf("first MigrateDB failed: %v", err)
	}
	version1, _ := SchemaVersion(db)

	if err := MigrateDB(db); err != nil {
		t.Fatalf("second MigrateDB failed: %v", err)
	}
	version2, _ := SchemaVersion(db)

	if version1 != version2 {
		t.Errorf("version changed after idempotent run: %d to %d", version1, version2)
	}
}

// TestMigrateDB_DataSurvival verifies that existing rows survive a repeated migration.
func TestMigrateDB_DataSurvival(t *testing.T) {
	db := openTestDB(t)

	if err := MigrateDB(db); err != nil {
		t.Fatalf("MigrateDB failed: %v", err)
	}

	if _, err := db.Exec(`INSERT INTO program (id, name, created_at) VALUES ('p1', 'Scholarships', '2024-01-01T00:00:00Z')`); err != nil {
		t.Fatalf("failed to insert program: %v", err)
	}
	if _, err := db.Exec(`INSERT INTO program_data (id, program_id, data, created_at) VALUES ('d1', 'p1', '{}', '2024-01-01T00:00:00Z')`); err != nil {
		t.Fatalf("failed to insert program data: %v", err)
	}

	if err := MigrateDB(db); err != nil {
		t.Fatalf("second MigrateDB failed: %v", err)
	}

	var name string
	if err := db.QueryRow("SELECT name FROM program WHERE id = 'p1'").Scan(&name); err != nil {
		t.Fatalf("program data lost after migration: %v", err)
	}
	if name != "Scholarships" {
		t.Errorf("program name = %q, want %q", name, "Scholarships")
	}
}

// TestMigrateDB_ForeignKeysEnforced verifies the DSN pragmas turn on cascading deletes.
func TestMigrateDB_ForeignKeysEnforced(t *testing.T) {
	db := openTestDB(t)
	if err := MigrateDB(db); err != nil {
		t.Fatalf("MigrateDB failed: %v", err)
	}

	if _, err := db.Exec(`INSERT INTO program_data (id, program_id, data, created_at) VALUES ('d1', 'missing', '{}', '2024-01-01T00:00:00Z')`); err == nil {
		t.Fatal("insert with dangling program_id succeeded, want foreign key error")
	}

	db.Exec(`INSERT INTO program (id, name, created_at) VALUES ('p1', 'A', '2024-01-01T00:00:00Z')`)
	db.Exec(`INSERT INTO program_data (id, program_id, data, created_at) VALUES ('d1', 'p1', '{}', '2024-01-01T00:00:00Z')`)
	if _, err := db.Exec(`DELETE FROM program WHERE id = 'p1'`); err != nil {
		t.Fatalf("delete program: %v", err)
	}
	var n int
	db.QueryRow(`SELECT COUNT(*) FROM program_data`).Scan(&n)
	if n != 0 {
		t.Errorf("program_data rows after cascade = %d, want 0", n)
	}
}
