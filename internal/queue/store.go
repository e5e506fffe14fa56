package queue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"dubline/internal/job"
	"dubline/internal/services"
	"dubline/internal/stage"
)

const defaultListLimit = 50

// Record upserts the job's current state under the run id carried by ctx.
// It satisfies stageexec.Recorder.
func (s *Store) Record(ctx context.Context, j *job.Job) error {
	if j == nil {
		return errors.New("record: job is nil")
	}
	runID, _ := services.RunIDFromContext(ctx)
	return s.Upsert(ctx, entryFromJob(runID, j))
}

// Upsert writes e, keeping the original created_at for an existing row.
func (s *Store) Upsert(ctx context.Context, e Entry) error {
	if strings.TrimSpace(e.JobKey) == "" {
		return errors.New("upsert: job key is required")
	}
	now := time.Now().UTC()
	if e.UpdatedAt.IsZero() {
		e.UpdatedAt = now
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = e.UpdatedAt
	}
	_, err := s.execWithRetry(ctx, `
INSERT INTO jobs (
    run_id, job_key, title, source, work_dir, status, stage,
    progress_percent, progress_message, attempts, error_message,
    error_category, output_path, created_at, updated_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(run_id, job_key) DO UPDATE SET
    title = excluded.title,
    source = excluded.source,
    work_dir = excluded.work_dir,
    status = excluded.status,
    stage = excluded.stage,
    progress_percent = excluded.progress_percent,
    progress_message = excluded.progress_message,
    attempts = excluded.attempts,
    error_message = excluded.error_message,
    error_category = excluded.error_category,
    output_path = excluded.output_path,
    updated_at = excluded.updated_at`,
		e.RunID,
		e.JobKey,
		nullable(e.Title),
		e.Source,
		e.WorkDir,
		string(e.Status),
		nullable(e.Stage),
		e.ProgressPercent,
		nullable(e.ProgressMessage),
		e.Attempts,
		nullable(e.ErrorMessage),
		nullable(e.ErrorCategory),
		nullable(e.OutputPath),
		formatTime(e.CreatedAt),
		formatTime(e.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("upsert job %s: %w", e.JobKey, err)
	}
	return nil
}

// Get returns the row for one job of a run, or nil when absent.
func (s *Store) Get(ctx context.Context, runID, jobKey string) (*Entry, error) {
	ctx = ensureContext(ctx)
	row := s.db.QueryRowContext(ctx,
		"SELECT "+entryColumns+" FROM jobs WHERE run_id = ? AND job_key = ?", runID, jobKey)
	entry, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get job %s: %w", jobKey, err)
	}
	return entry, nil
}

// List returns the most recently updated rows matching f.
func (s *Store) List(ctx context.Context, f Filter) ([]Entry, error) {
	ctx = ensureContext(ctx)
	var (
		clauses []string
		args    []any
	)
	if id := strings.TrimSpace(f.RunID); id != "" {
		clauses = append(clauses, "run_id = ?")
		args = append(args, id)
	}
	if f.Status != "" {
		clauses = append(clauses, "status = ?")
		args = append(args, string(f.Status))
	}
	query := "SELECT " + entryColumns + " FROM jobs"
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	limit := f.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	query += " ORDER BY updated_at DESC, job_key ASC LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan job: %w", err)
		}
		entries = append(entries, *entry)
	}
	return entries, rows.Err()
}

// Runs summarizes the most recent runs, newest first.
func (s *Store) Runs(ctx context.Context, limit int) ([]RunSummary, error) {
	ctx = ensureContext(ctx)
	if limit <= 0 {
		limit = defaultListLimit
	}
	rows, err := s.db.QueryContext(ctx, `
SELECT run_id,
       COUNT(1),
       SUM(CASE WHEN status = ? THEN 1 ELSE 0 END),
       SUM(CASE WHEN status = ? THEN 1 ELSE 0 END),
       MIN(created_at),
       MAX(updated_at)
FROM jobs
GROUP BY run_id
ORDER BY MAX(updated_at) DESC
LIMIT ?`, string(job.StatusSuccess), string(job.StatusFailed), limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []RunSummary
	for rows.Next() {
		var (
			run                RunSummary
			startedRaw, updRaw string
		)
		if err := rows.Scan(&run.RunID, &run.Jobs, &run.Succeeded, &run.Failed, &startedRaw, &updRaw); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		run.StartedAt = parseTime(startedRaw)
		run.UpdatedAt = parseTime(updRaw)
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// Prune deletes rows last updated before cutoff and returns how many went.
func (s *Store) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.execWithRetry(ctx, "DELETE FROM jobs WHERE updated_at < ?", formatTime(cutoff))
	if err != nil {
		return 0, fmt.Errorf("prune history: %w", err)
	}
	return res.RowsAffected()
}

func entryFromJob(runID string, j *job.Job) Entry {
	e := Entry{
		RunID:           runID,
		JobKey:          j.ID,
		Title:           j.Title(),
		Source:          j.Source.String(),
		WorkDir:         j.Dir,
		Status:          j.Status,
		ProgressPercent: j.Progress,
		ProgressMessage: j.Message,
		Attempts:        j.Attempt,
		OutputPath:      j.Output,
		CreatedAt:       j.StartedAt,
	}
	if s := stage.Stage(j.StageIndex); s.Valid() {
		e.Stage = s.String()
	}
	if j.Err != nil {
		e.ErrorMessage = j.Err.Error()
		e.ErrorCategory = services.Category(j.Err)
	}
	if !j.FinishedAt.IsZero() {
		e.UpdatedAt = j.FinishedAt
	}
	return e
}
