package dock

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/nerrad567/dockscan/internal/infrastructure/database"
	_ "github.com/nerrad567/dockscan/migrations"
)

// setupTestRepo opens a migrated SQLite file in a temp directory.
func setupTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()

	db, err := database.Open(database.Config{
		Path:        filepath.Join(t.TempDir(), "dockscan.db"),
		WALMode:     true,
		BusyTimeout: 5,
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() {
		db.Close()
	})

	if err := db.Migrate(context.Background()); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}

	return NewSQLiteRepository(db.DB)
}

func testRun(id string, started time.Time, serials ...string) Run {
	run := Run{
		ID:        id,
		Hostname:  "LAPTOP-01",
		Source:    MethodUSBEnumeration,
		StartedAt: started,
	}
	for _, s := range serials {
		obs := NewObservation(MethodUSBEnumeration, "Dell WD-19S", s, "", "OK", `USB\VID_413C&PID_B06E\`+s, "B06E")
		run.Entries = append(run.Entries, newEntry(obs, GroupingKey(obs), 1))
	}
	return run
}

func TestSQLiteRepository_SaveAndLatest(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()
	base := time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC)

	if _, err := repo.LatestRun(ctx); !errors.Is(err, ErrRunNotFound) {
		t.Fatalf("LatestRun() on empty db error = %v, want ErrRunNotFound", err)
	}

	if err := repo.SaveRun(ctx, testRun("run-1", base, "CN0A")); err != nil {
		t.Fatalf("SaveRun() error = %v", err)
	}
	want := testRun("run-2", base.Add(time.Minute), "CN0B", "")
	if err := repo.SaveRun(ctx, want); err != nil {
		t.Fatalf("SaveRun() error = %v", err)
	}

	got, err := repo.LatestRun(ctx)
	if err != nil {
		t.Fatalf("LatestRun() error = %v", err)
	}
	if got.ID != "run-2" {
		t.Errorf("ID = %q, want run-2", got.ID)
	}
	if !got.StartedAt.Equal(want.StartedAt) {
		t.Errorf("StartedAt = %v, want %v", got.StartedAt, want.StartedAt)
	}
	if got.Source != MethodUSBEnumeration {
		t.Errorf("Source = %v, want usb_enumeration", got.Source)
	}
	if got.DockCount() != 2 {
		t.Fatalf("DockCount = %d, want 2", got.DockCount())
	}
	for i := range want.Entries {
		if got.Entries[i] != want.Entries[i] {
			t.Errorf("entry %d = %+v, want %+v", i, got.Entries[i], want.Entries[i])
		}
	}
}

func TestSQLiteRepository_SaveRunValidation(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()

	tests := []struct {
		name string
		run  Run
	}{
		{"missing id", Run{StartedAt: time.Now()}},
		{"missing start", Run{ID: "x"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := repo.SaveRun(ctx, tt.run); !errors.Is(err, ErrInvalidRun) {
				t.Errorf("SaveRun() error = %v, want ErrInvalidRun", err)
			}
		})
	}
}

func TestSQLiteRepository_DuplicateIDRollsBack(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()
	now := time.Now()

	if err := repo.SaveRun(ctx, testRun("dup", now, "A")); err != nil {
		t.Fatalf("SaveRun() error = %v", err)
	}
	if err := repo.SaveRun(ctx, testRun("dup", now, "B", "C")); err == nil {
		t.Fatal("expected error for duplicate run id")
	}

	got, err := repo.LatestRun(ctx)
	if err != nil {
		t.Fatalf("LatestRun() error = %v", err)
	}
	if got.DockCount() != 1 || got.Entries[0].SerialNumber != "A" {
		t.Errorf("run modified by failed save: %+v", got)
	}
}

func TestSQLiteRepository_ListAndPrune(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()
	base := time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		run := testRun(fmt.Sprintf("run-%d", i), base.Add(time.Duration(i)*time.Hour), fmt.Sprintf("S%d", i))
		if err := repo.SaveRun(ctx, run); err != nil {
			t.Fatalf("SaveRun(%d) error = %v", i, err)
		}
	}

	runs, err := repo.ListRuns(ctx, 3)
	if err != nil {
		t.Fatalf("ListRuns() error = %v", err)
	}
	if len(runs) != 3 {
		t.Fatalf("len = %d, want 3", len(runs))
	}
	for i, want := range []string{"run-4", "run-3", "run-2"} {
		if runs[i].ID != want {
			t.Errorf("runs[%d] = %q, want %q", i, runs[i].ID, want)
		}
	}

	deleted, err := repo.Prune(ctx, 2)
	if err != nil {
		t.Fatalf("Prune() error = %v", err)
	}
	if deleted != 3 {
		t.Errorf("deleted = %d, want 3", deleted)
	}

	runs, err = repo.ListRuns(ctx, 0)
	if err != nil {
		t.Fatalf("ListRuns() error = %v", err)
	}
	if len(runs) != 2 {
		t.Errorf("len after prune = %d, want 2", len(runs))
	}

	var orphans int
	if err := repo.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM scan_docks WHERE run_id = 'run-0'").Scan(&orphans); err != nil {
		t.Fatalf("counting docks: %v", err)
	}
	if orphans != 0 {
		t.Errorf("docks of pruned run = %d, want 0", orphans)
	}

	if _, err := repo.Prune(ctx, 0); err == nil {
		t.Error("Prune(0) should fail")
	}
}
