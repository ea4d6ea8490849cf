package database

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"testing/fstest"
)

func TestConfigNormalize(t *testing.T) {
	cfg := Config{Host: "db"}
	cfg.Normalize()
	if cfg.Port != "5432" || cfg.SSLMode != "disable" || cfg.MaxConnections != 5 {
		t.Fatalf("defaults not applied: %+v", cfg)
	}
	if cfg.MigrationsDir != "" {
		t.Fatalf("migrations dir = %q, want embedded", cfg.MigrationsDir)
	}
	if !cfg.Enabled() {
		t.Fatal("config with host must be enabled")
	}
	if (Config{Host: "  "}).Enabled() {
		t.Fatal("blank host must disable the database")
	}
}

func TestConfigURL(t *testing.T) {
	cfg := Config{Host: "db", Port: "5433", User: "reg", Password: "p@ss word", Name: "regbot", SSLMode: "disable"}
	want := "postgres://reg:p%40ss%20word@db:5433/regbot?sslmode=disable"
	if got := cfg.URL(); got != want {
		t.Fatalf("URL() = %q, want %q", got, want)
	}
	wantKW := "user=reg password=p@ss word host=db port=5433 dbname=regbot sslmode=disable"
	if got := cfg.KeywordDSN(); got != wantKW {
		t.Fatalf("KeywordDSN() = %q, want %q", got, wantKW)
	}
}

func TestMigrationFileSelection(t *testing.T) {
	src := fstest.MapFS{
		"000010_add_source.up.sql":             {},
		"000002_add_index.up.sql":              {},
		"000001_create_registrations.up.sql":   {},
		"000001_create_registrations.down.sql": {},
		"README.md":                            {},
	}
	files := upFiles(src)
	want := []string{"000001_create_registrations.up.sql", "000002_add_index.up.sql", "000010_add_source.up.sql"}
	if !reflect.DeepEqual(files, want) {
		t.Fatalf("files = %v, want %v", files, want)
	}
	if got := between(files, 0, 10); len(got) != 3 {
		t.Fatalf("between(0, 10) = %v", got)
	}
	if got := between(files, 1, 2); !reflect.DeepEqual(got, want[1:2]) {
		t.Fatalf("between(1, 2) = %v", got)
	}
	if got := between(files, 10, 10); got != nil {
		t.Fatalf("between without change = %v", got)
	}
}

func TestMigratorSource(t *testing.T) {
	embedded := fstest.MapFS{"000001_x.up.sql": {}}

	src, where, err := Migrator{Source: embedded}.source("")
	if err != nil || where != "embedded" || src == nil {
		t.Fatalf("embedded source = %v %q %v", src, where, err)
	}
	if _, _, err := (Migrator{}).source(""); err == nil {
		t.Fatal("expected error without any source")
	}

	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "000003_y.up.sql"), nil, 0o600); err != nil {
		t.Fatal(err)
	}
	src, where, err = Migrator{Source: embedded}.source(dir)
	if err != nil || where != dir {
		t.Fatalf("dir source = %q %v", where, err)
	}
	if files := upFiles(src); !reflect.DeepEqual(files, []string{"000003_y.up.sql"}) {
		t.Fatalf("dir files = %v", files)
	}
	if _, _, err := (Migrator{}).source(filepath.Join(dir, "absent")); err == nil {
		t.Fatal("expected error for a missing directory")
	}
}
