// ABOUTME: Migration tests: every declared jump path must converge on the
// ABOUTME: same table and column sets as a fresh current-version store.
package storage

import (
	"database/sql"
	"fmt"
	"path/filepath"
	"reflect"
	"sort"
	"testing"
)

// versionPrefix maps a historical schema version to how many freshSchema
// scripts existed at that version. Versions 5 and 6 shipped no DDL beyond
// v4, so they share its prefix.
var versionPrefix = map[int]int{
	1:  1,
	2:  2,
	3:  3,
	4:  6,
	6:  6,
	7:  14,
	8:  17,
	9:  18,
	10: 19,
	11: 21,
	12: 22,
}

// seedLegacyStore creates a database file frozen at a historical version.
func seedLegacyStore(t *testing.T, path string, version int) {
	t.Helper()
	n, ok := versionPrefix[version]
	if !ok {
		t.Fatalf("no schema prefix for version %d", version)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("open legacy db: %v", err)
	}
	defer db.Close()
	for _, script := range freshSchema[:n] {
		if _, err := db.Exec(script); err != nil {
			t.Fatalf("seed v%d schema: %v", version, err)
		}
	}
	if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", version)); err != nil {
		t.Fatalf("stamp version: %v", err)
	}
}

// schemaShape reads the table names and per-table column name sets. Column
// order differs between ALTER-grown and freshly created tables, so sets are
// compared, not DDL text.
func schemaShape(t *testing.T, s *Store) map[string][]string {
	t.Helper()
	rows, err := s.db.Query(`
		SELECT name FROM sqlite_master
		WHERE type = 'table' AND name NOT LIKE 'sqlite_%'
	`)
	if err != nil {
		t.Fatalf("list tables: %v", err)
	}
	defer rows.Close()

	shape := map[string][]string{}
	var tables []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			t.Fatalf("scan table name: %v", err)
		}
		tables = append(tables, name)
	}
	for _, table := range tables {
		cols, err := s.db.Query(fmt.Sprintf("PRAGMA table_info(%s)", table))
		if err != nil {
			t.Fatalf("table_info %s: %v", table, err)
		}
		var names []string
		for cols.Next() {
			var cid int
			var name, ctype string
			var notnull, pk int
			var dflt any
			if err := cols.Scan(&cid, &name, &ctype, &notnull, &dflt, &pk); err != nil {
				t.Fatalf("scan column: %v", err)
			}
			names = append(names, name)
		}
		cols.Close()
		sort.Strings(names)
		shape[table] = names
	}
	return shape
}

func openStore(t *testing.T, path string) *Store {
	t.Helper()
	s, err := Open(path)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestFreshInstallIsCurrentVersion(t *testing.T) {
	s := openStore(t, filepath.Join(t.TempDir(), "fresh.db"))
	v, err := s.version()
	if err != nil {
		t.Fatal(err)
	}
	if v != schemaVersion {
		t.Fatalf("fresh store at version %d, want %d", v, schemaVersion)
	}
}

func TestEveryLegacyVersionMigratesToCurrentShape(t *testing.T) {
	freshPath := filepath.Join(t.TempDir(), "fresh.db")
	fresh := openStore(t, freshPath)
	want := schemaShape(t, fresh)

	for version := range versionPrefix {
		if version == schemaVersion {
			continue
		}
		t.Run(fmt.Sprintf("from_v%d", version), func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "legacy.db")
			seedLegacyStore(t, path, version)

			s := openStore(t, path)
			v, err := s.version()
			if err != nil {
				t.Fatal(err)
			}
			if v != schemaVersion {
				t.Fatalf("migrated store at version %d, want %d", v, schemaVersion)
			}
			got := schemaShape(t, s)
			if !reflect.DeepEqual(got, want) {
				t.Errorf("schema shape after migrating from v%d diverges from fresh install:\ngot:  %v\nwant: %v", version, got, want)
			}
		})
	}
}

func TestMigrationPreservesRows(t *testing.T) {
	path := filepath.Join(t.TempDir(), "legacy.db")
	seedLegacyStore(t, path, 3)

	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatal(err)
	}
	_, err = db.Exec(`
		INSERT INTO metrics (id, code, timestamp, value, timezone, reset_hour, value_text)
		VALUES ('1700000000003-001-001-002', '003-001-001-002', 1700000000, 71.5, 'Europe/Zurich', 1, '')
	`)
	if err != nil {
		t.Fatal(err)
	}
	db.Close()

	s := openStore(t, path)
	var value float64
	err = s.db.QueryRow(`SELECT value FROM metrics WHERE id = '1700000000003-001-001-002'`).Scan(&value)
	if err != nil {
		t.Fatalf("row lost during migration: %v", err)
	}
	if value != 71.5 {
		t.Errorf("value = %v, want 71.5", value)
	}
}

func TestNewerSchemaRefusesToOpen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "future.db")
	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", schemaVersion+1)); err != nil {
		t.Fatal(err)
	}
	db.Close()

	if _, err := Open(path); err == nil {
		t.Fatal("expected error opening store with newer schema version")
	}
}

func TestMigrationPathPrefersDeclaredJumps(t *testing.T) {
	path, err := migrationPath(3, 8)
	if err != nil {
		t.Fatal(err)
	}
	if len(path) != 1 || path[0].From != 3 || path[0].To != 8 {
		t.Fatalf("path from 3 to 8 = %v, want the single declared jump", path)
	}

	path, err = migrationPath(1, schemaVersion)
	if err != nil {
		t.Fatal(err)
	}
	if path[0].From != 1 || path[len(path)-1].To != schemaVersion {
		t.Fatalf("path endpoints wrong: %v", path)
	}
	for i := 1; i < len(path); i++ {
		if path[i].From != path[i-1].To {
			t.Fatalf("path is not contiguous: %v", path)
		}
	}
}

func TestNoPathFromUnknownVersion(t *testing.T) {
	if _, err := migrationPath(5, schemaVersion); err == nil {
		t.Fatal("expected no path from version 5 (never shipped)")
	}
}
