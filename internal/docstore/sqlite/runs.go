package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"
)

// Run is one persisted enrichment run.
type Run struct {
	ID         string
	StartedAt  time.Time
	FinishedAt time.Time
	Profile    string
	Backend    string
	Collection string
	DryRun     bool
	StatsJSON  string
	Error      string
}

// RecordRun inserts or replaces a run record.
func (s *Store) RecordRun(ctx context.Context, run Run) error {
	ctx = ensureContext(ctx)
	return retryOnBusy(ctx, func() error {
		_, err := s.db.ExecContext(ctx, `INSERT INTO runs (id, started_at, finished_at, profile, backend, collection, dry_run, stats_json, error_message)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
    finished_at = excluded.finished_at,
    stats_json = excluded.stats_json,
    error_message = excluded.error_message`,
			run.ID,
			formatTime(run.StartedAt),
			nullableString(formatTime(run.FinishedAt)),
			run.Profile,
			run.Backend,
			run.Collection,
			boolToInt(run.DryRun),
			nullableString(run.StatsJSON),
			nullableString(run.Error),
		)
		if err != nil {
			return fmt.Errorf("record run %s: %w", run.ID, err)
		}
		return nil
	})
}

// ListRuns returns the most recent runs first. A non-positive limit returns
// every run.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	query := "SELECT id, started_at, finished_at, profile, backend, collection, dry_run, stats_json, error_message FROM runs ORDER BY started_at DESC"
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var (
			run        Run
			startedRaw string
			finished   sql.NullString
			dryRun     int
			stats      sql.NullString
			errText    sql.NullString
		)
		if err := rows.Scan(&run.ID, &startedRaw, &finished, &run.Profile, &run.Backend, &run.Collection, &dryRun, &stats, &errText); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		run.StartedAt = parseTime(startedRaw)
		run.FinishedAt = parseTime(finished.String)
		run.DryRun = dryRun != 0
		run.StatsJSON = stats.String
		run.Error = errText.String
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(raw string) time.Time {
	if strings.TrimSpace(raw) == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}
	}
	return t
}

func nullableString(value string) any {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	return value
}

func boolToInt(v bool) int {
	if v {
		return 1
	}
	return 0
}
