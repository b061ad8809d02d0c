// Package store persists completed simulation runs to SQLite so snapshot
// history and run comparisons survive restarts.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/oceanbound/floodline/internal/sim"
)

// ErrNotFound reports a run id with no persisted record.
var ErrNotFound = errors.New("run not found")

// Run is one persisted simulation run. The full sorted sample is not
// persisted, only inputs and the statistical reduction; a run can always be
// replayed bit-identically from its seed.
type Run struct {
	ID               string                 `json:"id"`
	Mode             string                 `json:"mode"` // "manual" or "projection"
	ScenarioID       string                 `json:"scenario_id,omitempty"`
	Year             int                    `json:"year,omitempty"`
	Temperature      float64                `json:"temperature"`
	Iterations       int                    `json:"iterations"`
	Seed             uint32                 `json:"seed"`
	Stats            sim.Summary            `json:"stats"`
	ContributorStats map[string]sim.Summary `json:"contributor_stats"`
	CreatedAt        time.Time              `json:"created_at"`
}

// DB wraps a SQLite connection for run history persistence.
type DB struct {
	conn *sqlx.DB
}

// Open opens or creates a SQLite database at the given path.
func Open(path string) (*DB, error) {
	conn, err := sqlx.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Ping verifies the database is reachable; used by the readiness probe.
func (db *DB) Ping(ctx context.Context) error {
	return db.conn.PingContext(ctx)
}

func (db *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		mode TEXT NOT NULL,
		scenario_id TEXT NOT NULL DEFAULT '',
		year INTEGER NOT NULL DEFAULT 0,
		temperature REAL NOT NULL,
		iterations INTEGER NOT NULL,
		seed INTEGER NOT NULL,
		stats_json TEXT NOT NULL,
		contributor_stats_json TEXT NOT NULL,
		created_at TIMESTAMP NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_runs_created_at ON runs(created_at);
	`
	_, err := db.conn.Exec(schema)
	return err
}

type runRow struct {
	ID                   string    `db:"id"`
	Mode                 string    `db:"mode"`
	ScenarioID           string    `db:"scenario_id"`
	Year                 int       `db:"year"`
	Temperature          float64   `db:"temperature"`
	Iterations           int       `db:"iterations"`
	Seed                 int64     `db:"seed"`
	StatsJSON            string    `db:"stats_json"`
	ContributorStatsJSON string    `db:"contributor_stats_json"`
	CreatedAt            time.Time `db:"created_at"`
}

// SaveRun inserts a completed run. Run IDs are unique; saving the same id
// twice is a caller bug and fails.
func (db *DB) SaveRun(ctx context.Context, run Run) error {
	statsJSON, err := json.Marshal(run.Stats)
	if err != nil {
		return fmt.Errorf("marshal stats: %w", err)
	}
	contribJSON, err := json.Marshal(run.ContributorStats)
	if err != nil {
		return fmt.Errorf("marshal contributor stats: %w", err)
	}

	_, err = db.conn.ExecContext(ctx, `
		INSERT INTO runs (id, mode, scenario_id, year, temperature, iterations, seed, stats_json, contributor_stats_json, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Mode, run.ScenarioID, run.Year, run.Temperature,
		run.Iterations, int64(run.Seed), string(statsJSON), string(contribJSON), run.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

// GetRun fetches a run by id.
func (db *DB) GetRun(ctx context.Context, id string) (Run, error) {
	var row runRow
	err := db.conn.GetContext(ctx, &row, `SELECT * FROM runs WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return Run{}, fmt.Errorf("get run: %w", err)
	}
	return rowToRun(row)
}

// ListRuns returns up to limit runs, newest first.
func (db *DB) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 50
	}

	var rows []runRow
	err := db.conn.SelectContext(ctx, &rows, `SELECT * FROM runs ORDER BY created_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}

	runs := make([]Run, 0, len(rows))
	for _, row := range rows {
		run, err := rowToRun(row)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, nil
}

// Prune deletes runs created before the cutoff and reports how many were
// removed.
func (db *DB) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := db.conn.ExecContext(ctx, `DELETE FROM runs WHERE created_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("prune runs: %w", err)
	}
	return res.RowsAffected()
}

func rowToRun(row runRow) (Run, error) {
	var stats sim.Summary
	if err := json.Unmarshal([]byte(row.StatsJSON), &stats); err != nil {
		return Run{}, fmt.Errorf("unmarshal stats for run %s: %w", row.ID, err)
	}
	var contribStats map[string]sim.Summary
	if err := json.Unmarshal([]byte(row.ContributorStatsJSON), &contribStats); err != nil {
		return Run{}, fmt.Errorf("unmarshal contributor stats for run %s: %w", row.ID, err)
	}

	return Run{
		ID:               row.ID,
		Mode:             row.Mode,
		ScenarioID:       row.ScenarioID,
		Year:             row.Year,
		Temperature:      row.Temperature,
		Iterations:       row.Iterations,
		Seed:             uint32(row.Seed),
		Stats:            stats,
		ContributorStats: contribStats,
		CreatedAt:        row.CreatedAt,
	}, nil
}
