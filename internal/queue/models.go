package queue

import (
	"time"

	"dubline/internal/job"
)

// Entry is one job's row in the run history.
type Entry struct {
	RunID           string
	JobKey          string
	Title           string
	Source          string
	WorkDir         string
	Status          job.Status
	Stage           string
	ProgressPercent int
	ProgressMessage string
	Attempts        int
	ErrorMessage    string
	ErrorCategory   string
	OutputPath      string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Failed reports whether the job ended in failure.
func (e Entry) Failed() bool { return e.Status == job.StatusFailed }

// Filter narrows List results.
type Filter struct {
	RunID  string
	Status job.Status
	Limit  int
}

// RunSummary aggregates the jobs of one run.
type RunSummary struct {
	RunID     string
	Jobs      int
	Succeeded int
	Failed    int
	StartedAt time.Time
	UpdatedAt time.Time
}
