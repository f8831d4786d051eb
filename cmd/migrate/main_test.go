package main

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

type mockRow struct {
	exists bool
}

func (r mockRow) Scan(dest ...any) error {
	*(dest[0].(*bool)) = r.exists
	return nil
}

type mockExecer struct {
	execs    []string
	applied  map[string]bool
	execFunc func(sql string) error
}

func newMockExecer() *mockExecer {
	return &mockExecer{applied: map[string]bool{}}
}

func (m *mockExecer) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	if m.execFunc != nil {
		if err := m.execFunc(sql); err != nil {
			return pgconn.CommandTag{}, err
		}
	}
	m.execs = append(m.execs, sql)
	if strings.HasPrefix(sql, "INSERT INTO schema_migrations") {
		m.applied[args[0].(string)] = true
	}
	return pgconn.NewCommandTag("OK"), nil
}

func (m *mockExecer) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return mockRow{exists: m.applied[args[0].(string)]}
}

func writeMigrations(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, body := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o600); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

func TestCollectUpFiles_SortedAndFiltered(t *testing.T) {
	dir := writeMigrations(t, map[string]string{
		"002_b.up.sql":     "B",
		"001_a.up.sql":     "A",
		"001_a.down.sql":   "down",
		"000_drop_all.sql": "drop",
		"README.md":        "docs",
	})

	files, err := collectUpFiles(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(files) != 2 || files[0] != "001_a.up.sql" || files[1] != "002_b.up.sql" {
		t.Errorf("unexpected files %v", files)
	}
}

func TestCollectUpFiles_MissingDir(t *testing.T) {
	if _, err := collectUpFiles(filepath.Join(t.TempDir(), "nope")); err == nil {
		t.Fatal("expected error")
	}
}

func TestMigrator_IncrementalSkipsApplied(t *testing.T) {
	dir := writeMigrations(t, map[string]string{
		"001_a.up.sql": "CREATE A",
		"002_b.up.sql": "CREATE B",
	})
	db := newMockExecer()
	db.applied["001_a"] = true

	m := &migrator{db: db, dir: dir}
	if err := m.incremental(context.Background()); err != nil {
		t.Fatal(err)
	}

	joined := strings.Join(db.execs, "\n")
	if strings.Contains(joined, "CREATE A") {
		t.Error("applied migration was re-run")
	}
	if !strings.Contains(joined, "CREATE B") {
		t.Error("pending migration was not run")
	}
	if !db.applied["002_b"] {
		t.Error("pending migration was not recorded")
	}
}

func TestMigrator_IncrementalStopsOnFailure(t *testing.T) {
	dir := writeMigrations(t, map[string]string{
		"001_a.up.sql": "BROKEN",
		"002_b.up.sql": "CREATE B",
	})
	db := newMockExecer()
	db.execFunc = func(sql string) error {
		if sql == "BROKEN" {
			return errors.New("syntax error")
		}
		return nil
	}

	m := &migrator{db: db, dir: dir}
	err := m.incremental(context.Background())
	if err == nil || !strings.Contains(err.Error(), "001_a.up.sql") {
		t.Fatalf("expected error naming the failed file, got %v", err)
	}
	if db.applied["001_a"] || db.applied["002_b"] {
		t.Error("nothing should be recorded after a failure")
	}
}

func TestMigrator_ConsolidatedMarksAll(t *testing.T) {
	dir := writeMigrations(t, map[string]string{
		"000_consolidated.sql": "CREATE ALL",
		"001_a.up.sql":         "CREATE A",
		"002_b.up.sql":         "CREATE B",
	})
	db := newMockExecer()

	m := &migrator{db: db, dir: dir}
	if err := m.consolidated(context.Background()); err != nil {
		t.Fatal(err)
	}

	if db.execs[0] != "CREATE ALL" {
		t.Errorf("expected consolidated schema first, got %q", db.execs[0])
	}
	if !db.applied["001_a"] || !db.applied["002_b"] {
		t.Errorf("expected all migrations marked, got %v", db.applied)
	}
}

func TestMigrator_RealMigrationsDirParses(t *testing.T) {
	files, err := collectUpFiles(filepath.Join("..", "..", "migrations"))
	if err != nil {
		t.Fatal(err)
	}
	if len(files) == 0 || !strings.HasPrefix(files[0], "001_") {
		t.Errorf("unexpected migrations %v", files)
	}
}
