package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"envelopes/internal/common"
	"envelopes/internal/model"
)

// ReportRun describes one persisted report computation.
type ReportRun struct {
	CreatedAt  time.Time
	Session    string
	FirstMonth string
	LastMonth  string
	ID         int64
	RowCount   int
}

// SaveReport stores one computed report under its session identifier.
// Saving the same session again replaces the previous run's rows.
func (s *SQLiteStorage) SaveReport(ctx context.Context, run ReportRun, rows []model.EnvelopeState) (int64, error) {
	if run.Session == "" {
		return 0, fmt.Errorf("session cannot be empty")
	}

	tx, err := s.BeginTx(ctx)
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM envelope_stats WHERE run_id IN (SELECT id FROM report_runs WHERE session = ?)`,
		run.Session); err != nil {
		return 0, fmt.Errorf("failed to clear previous run: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM report_runs WHERE session = ?`, run.Session); err != nil {
		return 0, fmt.Errorf("failed to clear previous run: %w", err)
	}

	result, err := tx.ExecContext(ctx,
		`INSERT INTO report_runs (session, first_month, last_month) VALUES (?, ?, ?)`,
		run.Session, run.FirstMonth, run.LastMonth)
	if err != nil {
		return 0, fmt.Errorf("failed to insert report run: %w", err)
	}
	runID, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get run id: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO envelope_stats (run_id, envelope, month, budget, adjustment, state_month, state, carryover)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for _, row := range rows {
		if _, err := stmt.ExecContext(ctx, runID,
			row.Envelope, row.Month, row.Budget, row.Adjustment,
			row.StateMonth, row.State, row.Carryover); err != nil {
			return 0, fmt.Errorf("failed to insert stats row %s/%s: %w", row.Envelope, row.Month, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit report: %w", err)
	}
	return runID, nil
}

// GetReport loads the rows of a persisted run by session identifier,
// ordered by (envelope, month).
func (s *SQLiteStorage) GetReport(ctx context.Context, session string) ([]model.EnvelopeState, error) {
	var runID int64
	err := s.db.QueryRowContext(ctx, `SELECT id FROM report_runs WHERE session = ?`, session).Scan(&runID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: session %q", common.ErrReportNotFound, session)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up run: %w", err)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT envelope, month, budget, adjustment, state_month, state, carryover
		 FROM envelope_stats WHERE run_id = ? ORDER BY envelope, month`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query stats: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var report []model.EnvelopeState
	for rows.Next() {
		var row model.EnvelopeState
		if err := rows.Scan(&row.Envelope, &row.Month, &row.Budget, &row.Adjustment,
			&row.StateMonth, &row.State, &row.Carryover); err != nil {
			return nil, fmt.Errorf("failed to scan stats row: %w", err)
		}
		report = append(report, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate stats rows: %w", err)
	}
	return report, nil
}

// ListRuns returns all persisted report runs, most recent first.
func (s *SQLiteStorage) ListRuns(ctx context.Context) ([]ReportRun, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT r.id, r.session, r.first_month, r.last_month, r.created_at,
		        (SELECT COUNT(*) FROM envelope_stats e WHERE e.run_id = r.id)
		 FROM report_runs r ORDER BY r.created_at DESC, r.id DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var runs []ReportRun
	for rows.Next() {
		var run ReportRun
		if err := rows.Scan(&run.ID, &run.Session, &run.FirstMonth, &run.LastMonth,
			&run.CreatedAt, &run.RowCount); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate runs: %w", err)
	}
	return runs, nil
}
