package stageexec

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime/debug"
	"strings"
	"time"

	"github.com/gofrs/flock"

	"dubline/internal/job"
	"dubline/internal/logging"
	"dubline/internal/services"
	"dubline/internal/stage"
)

const lockFileName = ".dubline.lock"

// Recorder persists job state transitions. Failures are logged, never fatal.
type Recorder interface {
	Record(context.Context, *job.Job) error
}

// Runner executes the six stages for one job at a time.
type Runner struct {
	handlers stage.Set
	policy   Policy
	logger   *slog.Logger
	recorder Recorder
	sleep    func(context.Context, time.Duration) error
}

// Option customizes a Runner.
type Option func(*Runner)

// WithPolicy overrides the retry policy.
func WithPolicy(p Policy) Option {
	return func(r *Runner) { r.policy = p }
}

// WithLogger sets the runner logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithRecorder persists job transitions through rec.
func WithRecorder(rec Recorder) Option {
	return func(r *Runner) { r.recorder = rec }
}

// WithSleeper replaces the wait between attempts (tests).
func WithSleeper(sleep func(context.Context, time.Duration) error) Option {
	return func(r *Runner) {
		if sleep != nil {
			r.sleep = sleep
		}
	}
}

// New builds a Runner. Every stage must have a handler.
func New(handlers stage.Set, opts ...Option) (*Runner, error) {
	if missing := handlers.Missing(); len(missing) > 0 {
		names := make([]string, 0, len(missing))
		for _, s := range missing {
			names = append(names, s.String())
		}
		return nil, fmt.Errorf("stage handlers missing: %s", strings.Join(names, ", "))
	}
	r := &Runner{
		handlers: handlers,
		policy:   DefaultPolicy(),
		logger:   logging.NewNop(),
		sleep:    sleepContext,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Run drives j through every stage, retrying the sequence up to the policy's
// attempt ceiling. It returns the Assemble output path on success. Errors
// from stage functions never escape as panics; they come back as
// *StageError (or ErrStopped / ErrLocked).
func (r *Runner) Run(ctx context.Context, j *job.Job, onProgress ProgressFunc) (string, error) {
	if j == nil {
		return "", errors.New("job is required")
	}
	if strings.TrimSpace(j.Dir) == "" {
		return "", services.Wrap(services.ErrValidation, "runner", "prepare", "job directory is empty", nil)
	}
	ctx = services.WithJobID(ctx, j.ID)
	logger := logging.WithContext(ctx, r.logger)

	if err := os.MkdirAll(j.Dir, 0o755); err != nil {
		return r.fail(ctx, j, fmt.Errorf("create job directory: %w", err))
	}
	lock := flock.New(filepath.Join(j.Dir, lockFileName))
	locked, err := lock.TryLock()
	if err != nil {
		return r.fail(ctx, j, fmt.Errorf("lock job directory: %w", err))
	}
	if !locked {
		return r.fail(ctx, j, fmt.Errorf("%w: %s", ErrLocked, j.Dir))
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			logger.Debug("job directory unlock failed", logging.Error(err))
		}
	}()

	emit := newEmitter(j, onProgress)
	j.Status = job.StatusRunning
	j.Err = nil
	j.StartedAt = time.Now().UTC()
	r.record(ctx, j)

	attempts := r.policy.attempts()
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		j.Attempt = attempt
		output, err := r.runAttempt(ctx, j, attempt, emit, logger)
		if err == nil {
			j.Status = job.StatusSuccess
			j.Output = output
			j.FinishedAt = time.Now().UTC()
			emit.emit(Progress{Percent: 100, Status: "complete", Stage: stage.Assemble, Completed: true})
			r.record(ctx, j)
			logger.Info("job completed",
				logging.String(logging.FieldEventType, "job_complete"),
				logging.String("output_path", output),
				logging.Int("attempts", attempt),
				logging.Duration("elapsed", j.FinishedAt.Sub(j.StartedAt)),
			)
			return output, nil
		}
		lastErr = err
		if errors.Is(err, ErrStopped) {
			return r.fail(ctx, j, err)
		}
		if attempt == attempts {
			break
		}
		delay := r.policy.delay(attempt)
		logger.Info("retrying job",
			logging.String(logging.FieldEventType, "job_retry"),
			logging.Int("next_attempt", attempt+1),
			logging.Int("max_attempts", attempts),
			logging.Duration("backoff", delay),
			logging.String("error_message", err.Error()),
		)
		if err := r.sleep(ctx, delay); err != nil {
			return r.fail(ctx, j, fmt.Errorf("%w: %v", ErrStopped, lastErr))
		}
	}
	return r.fail(ctx, j, lastErr)
}

func (r *Runner) runAttempt(ctx context.Context, j *job.Job, attempt int, emit *emitter, logger *slog.Logger) (string, error) {
	if _, err := stage.Reconcile(j.Dir, logger); err != nil {
		return "", &StageError{Stage: stage.Download, Attempt: attempt, Err: err}
	}
	var output string
	for _, d := range stage.All() {
		if ctx.Err() != nil {
			return "", ErrStopped
		}
		j.StageIndex = int(d.Stage)
		emit.emit(Progress{Percent: d.Stage.Floor(), Status: d.Label, Stage: d.Stage})
		r.record(ctx, j)

		stageCtx := services.WithStage(ctx, d.Name)
		stageLogger := logging.WithContext(stageCtx, r.logger)

		if stage.Done(j.Dir, d.Stage) {
			attrs := append(logging.DecisionAttrs("stage_resume", "skip", "marker present"),
				logging.String(logging.FieldEventType, "stage_skipped"),
				logging.String("marker", d.Marker),
			)
			stageLogger.Info("stage skipped", logging.Args(attrs...)...)
			if d.Stage == stage.Assemble {
				output = stage.MarkerPath(j.Dir, d.Stage)
				continue
			}
			emit.emit(Progress{Percent: d.Stage.Ceiling(), Status: d.Label, Stage: d.Stage, Completed: true})
			continue
		}

		stageLogger.Info("stage started",
			logging.String(logging.FieldEventType, "stage_start"),
			logging.Int("attempt", attempt),
		)
		started := time.Now()
		result, err := r.invoke(stageCtx, d.Stage, j)
		if err == nil && !stage.Done(j.Dir, d.Stage) {
			err = services.Wrap(services.ErrValidation, d.Name, "verify marker",
				"stage returned without committing "+d.Marker, nil)
		}
		if err != nil {
			logging.ErrorWithContext(stageLogger, "stage failed", "stage_failure",
				logging.Int("attempt", attempt),
				logging.String("error_category", services.Category(err)),
				logging.Error(err),
			)
			return "", &StageError{Stage: d.Stage, Attempt: attempt, Err: err}
		}
		stageLogger.Info("stage completed",
			logging.String(logging.FieldEventType, "stage_complete"),
			logging.Duration("elapsed", time.Since(started)),
			logging.String("summary", result.Summary),
		)
		if d.Stage == stage.Assemble {
			output = result.Output
			if output == "" {
				output = stage.MarkerPath(j.Dir, d.Stage)
			}
			continue
		}
		emit.emit(Progress{Percent: d.Stage.Ceiling(), Status: d.Label, Stage: d.Stage, Completed: true})
	}
	return output, nil
}

// invoke calls the stage function without propagating cancellation: a stop
// request only takes effect between stages.
func (r *Runner) invoke(ctx context.Context, s stage.Stage, j *job.Job) (result stage.Result, err error) {
	defer func() {
		if p := recover(); p != nil {
			r.logger.Error("stage panicked",
				logging.String(logging.FieldStage, s.String()),
				logging.Any("panic", p),
				logging.String("stack", string(debug.Stack())),
			)
			err = fmt.Errorf("stage %s panicked: %v", s, p)
		}
	}()
	return r.handlers[s].Run(context.WithoutCancel(ctx), j)
}

func (r *Runner) fail(ctx context.Context, j *job.Job, err error) (string, error) {
	j.Status = job.StatusFailed
	j.Err = err
	j.FinishedAt = time.Now().UTC()
	r.record(ctx, j)
	logging.ErrorWithContext(logging.WithContext(ctx, r.logger), "job failed", "job_failure",
		logging.Int("attempts", j.Attempt),
		logging.String("error_category", services.Category(err)),
		logging.Error(err),
	)
	return "", err
}

func (r *Runner) record(ctx context.Context, j *job.Job) {
	if r.recorder == nil {
		return
	}
	if err := r.recorder.Record(context.WithoutCancel(ctx), j); err != nil {
		r.logger.Debug("job state not recorded", logging.String(logging.FieldJobID, j.ID), logging.Error(err))
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
