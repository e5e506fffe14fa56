package stage

import (
	"context"

	"dubline/internal/job"
)

// Result is what a stage function reports on success.
type Result struct {
	Summary string
	Output  string
}

// Handler is one opaque stage function. Implementations read inputs from the
// job directory and must commit their marker before returning nil.
type Handler interface {
	Run(context.Context, *job.Job) (Result, error)
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(context.Context, *job.Job) (Result, error)

// Run implements Handler.
func (f HandlerFunc) Run(ctx context.Context, j *job.Job) (Result, error) { return f(ctx, j) }

// HealthChecker is implemented by handlers that depend on external tools.
type HealthChecker interface {
	HealthCheck(context.Context) Health
}

// Set maps every stage to its handler.
type Set map[Stage]Handler

// Missing returns the stages with no handler.
func (s Set) Missing() []Stage {
	var out []Stage
	for _, d := range descriptors {
		if s[d.Stage] == nil {
			out = append(out, d.Stage)
		}
	}
	return out
}
