package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/brbzalck/projeto-news-reddit-power-automate/internal/ingest"
)

// CreateRun persists a freshly started run report.
func (s *Store) CreateRun(ctx context.Context, report *ingest.RunReport) error {
	payload, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("encode run report: %w", err)
	}
	_, err = s.conn.ExecContext(ctx, `
INSERT INTO run_reports (id, started_at, finished_at, status, report)
VALUES (?, ?, NULL, ?, ?)`,
		report.ID, report.StartedAt.UTC().Format(timeLayout), report.Status, string(payload))
	if err != nil {
		return fmt.Errorf("create run: %w", err)
	}
	return nil
}

// FinalizeRun stores the terminal report. The report is immutable afterwards;
// there is no other update path.
func (s *Store) FinalizeRun(ctx context.Context, report *ingest.RunReport) error {
	payload, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("encode run report: %w", err)
	}
	var finished any
	if report.FinishedAt != nil {
		finished = report.FinishedAt.UTC().Format(timeLayout)
	}
	res, err := s.conn.ExecContext(ctx, `
UPDATE run_reports SET finished_at = ?, status = ?, report = ?
WHERE id = ? AND finished_at IS NULL`,
		finished, report.Status, string(payload), report.ID)
	if err != nil {
		return fmt.Errorf("finalize run: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("finalize run result: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("run %s not found or already finalized", report.ID)
	}
	return nil
}

// GetRun returns a run report by id, or nil when absent.
func (s *Store) GetRun(ctx context.Context, id string) (*ingest.RunReport, error) {
	return s.scanRun(s.conn.QueryRowContext(ctx,
		`SELECT report FROM run_reports WHERE id = ?`, id))
}

// LatestRun returns the most recently started run report, or nil when the
// store has never seen a run.
func (s *Store) LatestRun(ctx context.Context) (*ingest.RunReport, error) {
	return s.scanRun(s.conn.QueryRowContext(ctx,
		`SELECT report FROM run_reports ORDER BY started_at DESC LIMIT 1`))
}

// ListRuns returns recent run reports, newest first.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]ingest.RunReport, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	rows, err := s.conn.QueryContext(ctx,
		`SELECT report FROM run_reports ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var out []ingest.RunReport
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, err
		}
		var report ingest.RunReport
		if err := json.Unmarshal([]byte(payload), &report); err != nil {
			return nil, fmt.Errorf("decode run report: %w", err)
		}
		out = append(out, report)
	}
	return out, rows.Err()
}

func (s *Store) scanRun(row *sql.Row) (*ingest.RunReport, error) {
	var payload string
	if err := row.Scan(&payload); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("read run: %w", err)
	}
	var report ingest.RunReport
	if err := json.Unmarshal([]byte(payload), &report); err != nil {
		return nil, fmt.Errorf("decode run report: %w", err)
	}
	return &report, nil
}
