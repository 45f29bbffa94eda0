package dock

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

const (
	defaultRunLimit = 20
	maxRunLimit     = 500

	// timestampLayout is fixed-width so stored values sort lexicographically.
	timestampLayout = "2006-01-02T15:04:05.000000000Z07:00"
)

// Run is one persisted scan: the inventory resolved on a host at a point in time.
type Run struct {
	ID        string           `json:"id"`
	Hostname  string           `json:"hostname"`
	Source    Method           `json:"source"`
	StartedAt time.Time        `json:"started_at"`
	Entries   []InventoryEntry `json:"entries"`
}

// DockCount returns the number of docks recorded for the run.
func (r Run) DockCount() int {
	return len(r.Entries)
}

// Repository persists scan runs.
type Repository interface {
	SaveRun(ctx context.Context, run Run) error
	LatestRun(ctx context.Context) (Run, error)
	ListRuns(ctx context.Context, limit int) ([]Run, error)
	Prune(ctx context.Context, keep int) (int64, error)
}

// SQLiteRepository implements Repository using the scan_runs and scan_docks tables.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a new SQLite scan repository.
//
// Parameters:
//   - db: Open SQLite connection with migrations applied
//
// Returns:
//   - *SQLiteRepository: Repository instance ready for use
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// SaveRun inserts a run and its entries in a single transaction.
//
// Parameters:
//   - ctx: Context for cancellation and timeout
//   - run: Run to persist; ID and StartedAt are required
//
// Returns:
//   - error: ErrInvalidRun for missing fields, otherwise the underlying database error
func (r *SQLiteRepository) SaveRun(ctx context.Context, run Run) error {
	if run.ID == "" {
		return fmt.Errorf("%w: id is required", ErrInvalidRun)
	}
	if run.StartedAt.IsZero() {
		return fmt.Errorf("%w: started_at is required", ErrInvalidRun)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // Rollback is no-op after commit

	_, err = tx.ExecContext(ctx,
		`INSERT INTO scan_runs (id, hostname, source, dock_count, started_at)
		 VALUES (?, ?, ?, ?, ?)`,
		run.ID,
		run.Hostname,
		run.Source.String(),
		len(run.Entries),
		run.StartedAt.UTC().Format(timestampLayout),
	)
	if err != nil {
		return fmt.Errorf("inserting scan run: %w", err)
	}

	for i, e := range run.Entries {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO scan_docks (run_id, position, method, model, serial, firmware, status, raw_device_id, product_id, merged_count)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			run.ID, i, e.Method.String(), e.Model, e.SerialNumber, e.FirmwareVersion,
			e.Status, e.RawDeviceID, e.ProductID, e.MergedCount,
		)
		if err != nil {
			return fmt.Errorf("inserting scan dock %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing scan run: %w", err)
	}
	return nil
}

// LatestRun returns the most recently started run with its entries.
// Returns ErrRunNotFound if nothing has been saved.
func (r *SQLiteRepository) LatestRun(ctx context.Context) (Run, error) {
	runs, err := r.ListRuns(ctx, 1)
	if err != nil {
		return Run{}, err
	}
	if len(runs) == 0 {
		return Run{}, ErrRunNotFound
	}
	return runs[0], nil
}

// ListRuns returns recent runs ordered newest first.
//
// Parameters:
//   - ctx: Context for cancellation and timeout
//   - limit: Maximum runs to return (default 20, max 500)
//
// Returns:
//   - []Run: Runs with their entries populated
//   - error: nil on success, otherwise the underlying query error
func (r *SQLiteRepository) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = defaultRunLimit
	}
	if limit > maxRunLimit {
		limit = maxRunLimit
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT id, hostname, source, started_at
		 FROM scan_runs
		 ORDER BY started_at DESC, rowid DESC
		 LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("querying scan runs: %w", err)
	}

	runs := make([]Run, 0, limit)
	for rows.Next() {
		var run Run
		var source, startedAt string
		if err := rows.Scan(&run.ID, &run.Hostname, &source, &startedAt); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scanning scan run: %w", err)
		}
		if run.Source, err = ParseMethod(source); err != nil {
			rows.Close()
			return nil, fmt.Errorf("run %s: %w", run.ID, err)
		}
		if run.StartedAt, err = time.Parse(timestampLayout, startedAt); err != nil {
			rows.Close()
			return nil, fmt.Errorf("parsing started_at: %w", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("iterating scan runs: %w", err)
	}
	rows.Close()

	// The connection pool holds a single connection, so entries are loaded
	// only after the run cursor is closed.
	for i := range runs {
		entries, err := r.loadEntries(ctx, runs[i].ID)
		if err != nil {
			return nil, err
		}
		runs[i].Entries = entries
	}

	return runs, nil
}

// Prune deletes all but the newest keep runs. Their docks go with them via
// ON DELETE CASCADE.
//
// Parameters:
//   - ctx: Context for cancellation and timeout
//   - keep: Number of runs to retain (must be positive)
//
// Returns:
//   - int64: Number of runs deleted
//   - error: nil on success, otherwise the underlying database error
func (r *SQLiteRepository) Prune(ctx context.Context, keep int) (int64, error) {
	if keep <= 0 {
		return 0, errors.New("keep must be positive")
	}

	result, err := r.db.ExecContext(ctx,
		`DELETE FROM scan_runs
		 WHERE id NOT IN (
			SELECT id FROM scan_runs ORDER BY started_at DESC, rowid DESC LIMIT ?
		 )`,
		keep,
	)
	if err != nil {
		return 0, fmt.Errorf("pruning scan runs: %w", err)
	}

	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("checking rows affected: %w", err)
	}
	return deleted, nil
}

func (r *SQLiteRepository) loadEntries(ctx context.Context, runID string) ([]InventoryEntry, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT method, model, serial, firmware, status, raw_device_id, product_id, merged_count
		 FROM scan_docks
		 WHERE run_id = ?
		 ORDER BY position`,
		runID,
	)
	if err != nil {
		return nil, fmt.Errorf("querying scan docks: %w", err)
	}
	defer rows.Close()

	var entries []InventoryEntry
	for rows.Next() {
		var e InventoryEntry
		var method string
		if err := rows.Scan(&method, &e.Model, &e.SerialNumber, &e.FirmwareVersion,
			&e.Status, &e.RawDeviceID, &e.ProductID, &e.MergedCount); err != nil {
			return nil, fmt.Errorf("scanning scan dock: %w", err)
		}
		if e.Method, err = ParseMethod(method); err != nil {
			return nil, fmt.Errorf("run %s: %w", runID, err)
		}
		e.Key = GroupingKey(e.AsObservation())
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating scan docks: %w", err)
	}
	return entries, nil
}
