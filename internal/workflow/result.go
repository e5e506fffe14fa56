package workflow

import (
	"fmt"
	"strings"
	"time"

	"dubline/internal/job"
	"dubline/internal/stageexec"
)

// JobResult is the outcome of one job within a run.
type JobResult struct {
	ID       string
	Title    string
	Source   job.Source
	Dir      string
	Status   job.Status
	Output   string
	Attempts int
	// Stage names the failing stage, when known.
	Stage string
	Err   error
}

// Error returns the captured error text, or "".
func (r JobResult) Error() string {
	if r.Err == nil {
		return ""
	}
	return r.Err.Error()
}

func newJobResult(j *job.Job, output string, err error) JobResult {
	jr := JobResult{
		ID:       j.ID,
		Title:    j.Title(),
		Source:   j.Source,
		Dir:      j.Dir,
		Status:   j.Status,
		Output:   output,
		Attempts: j.Attempt,
		Err:      err,
	}
	if err != nil {
		jr.Status = job.StatusFailed
		if s, ok := stageexec.FailedStage(err); ok {
			jr.Stage = s.String()
		}
	}
	return jr
}

func skipped(j *job.Job) JobResult {
	return JobResult{
		ID:     j.ID,
		Title:  j.Title(),
		Source: j.Source,
		Dir:    j.Dir,
		Status: job.StatusFailed,
		Err:    stageexec.ErrStopped,
	}
}

// RunResult is the immutable outcome of one Orchestrator.Run.
type RunResult struct {
	RunID string
	Jobs  []JobResult
	// Output is the last successful job's final video, or "".
	Output string
	// Err is set when the run as a whole failed: invalid request, model
	// initialization, or a failing local job.
	Err        error
	Summary    string
	StartedAt  time.Time
	FinishedAt time.Time
}

// OK reports whether the run produced at least one video and did not fail
// as a whole.
func (r RunResult) OK() bool {
	return r.Err == nil && len(r.Succeeded()) > 0
}

// Succeeded returns the successful jobs in run order.
func (r RunResult) Succeeded() []JobResult {
	return r.filter(job.StatusSuccess)
}

// Failed returns the failed jobs in run order.
func (r RunResult) Failed() []JobResult {
	return r.filter(job.StatusFailed)
}

func (r RunResult) filter(status job.Status) []JobResult {
	var out []JobResult
	for _, jr := range r.Jobs {
		if jr.Status == status {
			out = append(out, jr)
		}
	}
	return out
}

// summarize renders "succeeded: N", "failed: M" and one "- id: error" line
// per failure. A run-level error with no jobs is listed under "run".
func (r RunResult) summarize() string {
	failed := r.Failed()
	var b strings.Builder
	fmt.Fprintf(&b, "succeeded: %d\nfailed: %d", len(r.Succeeded()), len(failed))
	for _, jr := range failed {
		fmt.Fprintf(&b, "\n- %s: %s", jr.ID, jr.Error())
	}
	if r.Err != nil && len(failed) == 0 {
		fmt.Fprintf(&b, "\n- run: %s", r.Err.Error())
	}
	return b.String()
}
