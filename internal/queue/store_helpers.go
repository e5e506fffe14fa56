package queue

import (
	"database/sql"
	"time"

	"dubline/internal/job"
)

// timeLayout has fixed-width fractions so stored values sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

const entryColumns = "run_id, job_key, title, source, work_dir, status, stage, progress_percent, progress_message, attempts, error_message, error_category, output_path, created_at, updated_at"

type rowScanner interface {
	Scan(dest ...any) error
}

// scanEntry reads one row selected with entryColumns. Nullable columns read
// as zero values and unparsable timestamps stay zero.
func scanEntry(row rowScanner) (*Entry, error) {
	var (
		e                             Entry
		status                        string
		title, stage, message, errMsg sql.NullString
		category, output              sql.NullString
		percent, attempts             sql.NullInt64
		created, updated              string
	)
	err := row.Scan(&e.RunID, &e.JobKey, &title, &e.Source, &e.WorkDir, &status,
		&stage, &percent, &message, &attempts, &errMsg, &category, &output,
		&created, &updated)
	if err != nil {
		return nil, err
	}
	e.Status = job.Status(status)
	e.Title = title.String
	e.Stage = stage.String
	e.ProgressPercent = int(percent.Int64)
	e.ProgressMessage = message.String
	e.Attempts = int(attempts.Int64)
	e.ErrorMessage = errMsg.String
	e.ErrorCategory = category.String
	e.OutputPath = output.String
	e.CreatedAt = parseTime(created)
	e.UpdatedAt = parseTime(updated)
	return &e, nil
}

// nullable stores empty strings as NULL.
func nullable(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

// parseTime accepts timeLayout values and SQLite's CURRENT_TIMESTAMP form.
func parseTime(value string) time.Time {
	for _, layout := range []string{time.RFC3339Nano, time.DateTime} {
		if t, err := time.Parse(layout, value); err == nil {
			return t
		}
	}
	return time.Time{}
}
