package main

import (
	"strings"
	"testing"
	"time"
)

func TestLoadMigrations(t *testing.T) {
	migrations, err := loadMigrations(migrationsFS)
	if err != nil {
		t.Fatalf("unexpected error loading embedded migrations: %v", err)
	}
	if len(migrations) != 4 {
		t.Fatalf("expected 4 migrations, got %d", len(migrations))
	}
	for i, m := range migrations {
		if m.Version != int64(i+1) {
			t.Fatalf("expected migration %d at position %d, got %d", i+1, i, m.Version)
		}
		if m.UpSQL == "" || m.DownSQL == "" {
			t.Fatalf("expected non-empty up/down sql for version %d", m.Version)
		}
	}
	if migrations[0].Name != "create_bars" {
		t.Fatalf("expected first migration create_bars, got %s", migrations[0].Name)
	}
}

func TestStatusLines(t *testing.T) {
	migrations := []migration{
		{Version: 1, Name: "create_bars"},
		{Version: 2, Name: "create_feature_rows"},
		{Version: 3, Name: "create_model_versions"},
	}
	applied := map[int64]time.Time{
		1: time.Date(2026, 8, 1, 9, 30, 0, 0, time.UTC),
		2: time.Date(2026, 8, 2, 9, 30, 0, 0, time.UTC),
	}

	lines := statusLines(migrations, applied)
	if len(lines) != 3 {
		t.Fatalf("expected one line per migration, got %d", len(lines))
	}
	if !strings.Contains(lines[0], "create_bars") || !strings.Contains(lines[0], "applied 2026-08-01 09:30") {
		t.Fatalf("unexpected first line: %q", lines[0])
	}
	if !strings.Contains(lines[2], "create_model_versions") || !strings.Contains(lines[2], "pending") {
		t.Fatalf("unexpected pending line: %q", lines[2])
	}
}
