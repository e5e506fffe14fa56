package workflow

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"dubline/internal/config"
	"dubline/internal/job"
	"dubline/internal/logging"
	"dubline/internal/models"
	"dubline/internal/services"
	"dubline/internal/stage"
	"dubline/internal/stageexec"
	"dubline/internal/textutil"
)

// Resolver expands remote locators into at most max video descriptors.
type Resolver interface {
	Resolve(ctx context.Context, locators []string, max int) ([]job.Descriptor, error)
}

// Orchestrator runs requests through the stage runner.
type Orchestrator struct {
	cfg      *config.Config
	handlers stage.Set
	models   *models.Manager
	resolver Resolver
	runner   *stageexec.Runner
	recorder stageexec.Recorder
	logger   *slog.Logger
	now      func() time.Time
}

// Option customizes an Orchestrator.
type Option func(*options)

type options struct {
	logger   *slog.Logger
	recorder stageexec.Recorder
	sleep    func(context.Context, time.Duration) error
	policy   *stageexec.Policy
}

// WithLogger sets the orchestrator and runner logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithRecorder persists job transitions, typically to the run history.
func WithRecorder(rec stageexec.Recorder) Option {
	return func(o *options) { o.recorder = rec }
}

// WithSleeper replaces the wait between job attempts.
func WithSleeper(sleep func(context.Context, time.Duration) error) Option {
	return func(o *options) { o.sleep = sleep }
}

// WithPolicy overrides the retry policy derived from configuration.
func WithPolicy(p stageexec.Policy) Option {
	return func(o *options) { o.policy = &p }
}

// New builds an Orchestrator. The model manager is owned by the caller and
// may be shared across runs so resident models are reused.
func New(cfg *config.Config, handlers stage.Set, manager *models.Manager, resolver Resolver, opts ...Option) (*Orchestrator, error) {
	if cfg == nil {
		return nil, errors.New("workflow: config is required")
	}
	if manager == nil {
		return nil, errors.New("workflow: model manager is required")
	}
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	logger := o.logger
	if logger == nil {
		logger = logging.NewNop()
	}
	policy := stageexec.PolicyFromConfig(cfg.Workflow)
	if o.policy != nil {
		policy = *o.policy
	}
	runnerOpts := []stageexec.Option{
		stageexec.WithPolicy(policy),
		stageexec.WithLogger(logging.NewComponentLogger(logger, "runner")),
		stageexec.WithSleeper(o.sleep),
	}
	if o.recorder != nil {
		runnerOpts = append(runnerOpts, stageexec.WithRecorder(o.recorder))
	}
	runner, err := stageexec.New(handlers, runnerOpts...)
	if err != nil {
		return nil, err
	}
	return &Orchestrator{
		cfg:      cfg,
		handlers: handlers,
		models:   manager,
		resolver: resolver,
		runner:   runner,
		recorder: o.recorder,
		logger:   logging.NewComponentLogger(logger, "workflow"),
		now:      time.Now,
	}, nil
}

// Run executes req and returns its result. It never panics past this
// boundary and never returns an error separately: failures live in the
// result.
func (o *Orchestrator) Run(ctx context.Context, req Request) (result RunResult) {
	result.RunID = uuid.NewString()
	result.StartedAt = o.now().UTC()
	ctx = services.WithRunID(ctx, result.RunID)
	logger := logging.WithContext(ctx, o.logger)
	defer func() {
		if p := recover(); p != nil {
			result.Err = fmt.Errorf("workflow panicked: %v", p)
		}
		result.FinishedAt = o.now().UTC()
		result.Summary = result.summarize()
		o.logRun(logger, result)
	}()

	jobs, err := o.expand(ctx, req)
	if err != nil {
		result.Err = err
		return result
	}
	logger.Info("run started",
		logging.String(logging.FieldEventType, "run_start"),
		logging.Int("jobs", len(jobs)),
	)

	if err := o.models.Initialize(ctx, models.Requirements(o.cfg)...); err != nil {
		result.Err = services.Wrap(services.ErrExternalTool, "workflow", "initialize models", "", err)
		logging.ErrorWithContext(logger, "model initialization failed; no job will run", "model_init_failure",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check the model tools and devices with `dubline deps`"),
		)
		return result
	}

	local := len(jobs) == 1 && jobs[0].Source.IsLocal()
	for i, j := range jobs {
		if ctx.Err() != nil {
			o.skip(ctx, j)
			result.Jobs = append(result.Jobs, skipped(j))
			continue
		}
		forward := o.forwarder(req.Progress, j, i, len(jobs))
		output, runErr := o.runner.Run(ctx, j, forward)
		jr := newJobResult(j, output, runErr)
		result.Jobs = append(result.Jobs, jr)
		if runErr == nil {
			result.Output = output
			continue
		}
		if local {
			result.Err = runErr
		}
	}
	if ctx.Err() != nil && result.Err == nil && len(result.Failed()) > 0 {
		result.Err = stageexec.ErrStopped
	}
	return result
}

// skip marks a job that never started as stopped and records it so the run
// history lists it alongside the jobs that ran.
func (o *Orchestrator) skip(ctx context.Context, j *job.Job) {
	j.Status = job.StatusFailed
	j.Err = stageexec.ErrStopped
	j.FinishedAt = o.now().UTC()
	if o.recorder == nil {
		return
	}
	if err := o.recorder.Record(context.WithoutCancel(ctx), j); err != nil {
		o.logger.Debug("skipped job not recorded", logging.String(logging.FieldJobID, j.ID), logging.Error(err))
	}
}

// Close releases every resident model.
func (o *Orchestrator) Close() error {
	return o.models.ReleaseAll()
}

// Health reports the readiness of every stage handler that can check itself.
func (o *Orchestrator) Health(ctx context.Context) []stage.Health {
	var out []stage.Health
	for _, d := range stage.All() {
		if hc, ok := o.handlers[d.Stage].(stage.HealthChecker); ok {
			out = append(out, hc.HealthCheck(ctx))
		}
	}
	return out
}

func (o *Orchestrator) forwarder(sink ProgressFunc, j *job.Job, index, count int) stageexec.ProgressFunc {
	if sink == nil {
		return nil
	}
	return func(p stageexec.Progress) {
		sink(Update{
			JobID:    j.ID,
			JobIndex: index,
			JobCount: count,
			Percent:  p.Percent,
			Status:   p.Status,
		})
	}
}

// expand turns the request into jobs with their working directories.
func (o *Orchestrator) expand(ctx context.Context, req Request) ([]*job.Job, error) {
	sources, err := req.sources()
	if err != nil {
		return nil, err
	}
	for _, src := range sources {
		if err := src.Validate(); err != nil {
			return nil, services.Wrap(services.ErrValidation, "workflow", "validate source", "", err)
		}
	}
	root := strings.TrimSpace(req.WorkRoot)
	if root == "" {
		root = o.cfg.Paths.WorkDir
	}
	count := req.Count
	if count <= 0 {
		count = o.cfg.Download.VideoCount
	}

	var (
		jobs     []*job.Job
		locators []string
	)
	dirs := newDirClaims()
	for _, src := range sources {
		if !src.IsLocal() {
			locators = append(locators, src.Locator)
			continue
		}
		key := localKey(src.Locator)
		if dirs.seen(key) {
			o.logger.Info("skipping duplicate source", logging.String("source", src.Locator))
			continue
		}
		j, err := localJob(root, src, dirs, key)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, j)
	}
	if len(locators) == 0 {
		return jobs, nil
	}
	if o.resolver == nil {
		return nil, services.Wrap(services.ErrConfiguration, "workflow", "resolve", "no list resolver configured", nil)
	}
	descriptors, err := o.resolver.Resolve(ctx, locators, count)
	if err != nil {
		return nil, services.Wrap(services.ErrExternalTool, "workflow", "resolve", "", err)
	}
	for _, d := range descriptors {
		key := strings.TrimSpace(d.ID)
		if key == "" {
			key = strings.TrimSpace(d.URL)
		}
		if key != "" && dirs.seen("remote:"+key) {
			o.logger.Info("skipping duplicate video", logging.String("url", d.URL), logging.String("id", d.ID))
			continue
		}
		dir, err := job.RemoteDir(root, d)
		if err != nil {
			o.logger.Warn("skipping unresolvable video", logging.String("url", d.URL), logging.Error(err))
			continue
		}
		tag := textutil.SanitizeFileName(d.ID)
		if tag == "" {
			tag = shortHash(d.URL)
		}
		dir = dirs.claim(dir, tag)
		id := strings.TrimSpace(d.ID)
		if id == "" {
			id = filepath.Base(dir)
		}
		locator := d.URL
		if locator == "" {
			locator = id
		}
		jobs = append(jobs, job.New(id, job.Remote(locator), d, dir))
	}
	if len(jobs) == 0 {
		return nil, services.Wrap(services.ErrNotFound, "workflow", "resolve", "no videos found", nil)
	}
	return jobs, nil
}

func localJob(root string, src job.Source, dirs *dirClaims, key string) (*job.Job, error) {
	dir, err := job.LocalDir(root, src.Locator)
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, "workflow", "local source", src.Locator, err)
	}
	title := titleFromName(filepath.Base(dir))
	dir = dirs.claim(dir, shortHash(key))
	name := filepath.Base(dir)
	return job.New(name, src, job.Descriptor{ID: name, Title: title}, dir), nil
}

// dirClaims hands out job directories so that no two jobs of one run share
// a directory, and remembers which sources were already expanded.
type dirClaims struct {
	dirs map[string]bool
	keys map[string]bool
}

func newDirClaims() *dirClaims {
	return &dirClaims{dirs: map[string]bool{}, keys: map[string]bool{}}
}

// seen records key and reports whether it was recorded before.
func (c *dirClaims) seen(key string) bool {
	if c.keys[key] {
		return true
	}
	c.keys[key] = true
	return false
}

// claim returns dir, or dir suffixed with tag when another job holds it.
func (c *dirClaims) claim(dir, tag string) string {
	candidate := dir
	for n := 1; c.dirs[candidate]; n++ {
		if n == 1 {
			candidate = dir + " [" + tag + "]"
		} else {
			candidate = fmt.Sprintf("%s [%s-%d]", dir, tag, n)
		}
	}
	c.dirs[candidate] = true
	return candidate
}

func localKey(path string) string {
	path = strings.TrimSpace(path)
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	return "local:" + filepath.Clean(path)
}

func shortHash(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:4])
}

var titleCaser = cases.Title(language.Und)

// titleFromName turns a file stem such as "my_trip-2024" into "My Trip 2024".
func titleFromName(name string) string {
	words := strings.FieldsFunc(name, func(r rune) bool {
		return r == '_' || r == '-' || r == '.' || r == ' '
	})
	if len(words) == 0 {
		return name
	}
	return titleCaser.String(strings.Join(words, " "))
}

func (o *Orchestrator) logRun(logger *slog.Logger, result RunResult) {
	attrs := []logging.Attr{
		logging.String(logging.FieldEventType, "run_complete"),
		logging.Int("succeeded", len(result.Succeeded())),
		logging.Int("failed", len(result.Failed())),
		logging.Duration("elapsed", result.FinishedAt.Sub(result.StartedAt)),
	}
	if result.Output != "" {
		attrs = append(attrs, logging.String("output_path", result.Output))
	}
	if result.Err != nil {
		attrs = append(attrs, logging.Error(result.Err))
		logger.Error("run failed", logging.Args(attrs...)...)
		return
	}
	logger.Info("run completed", logging.Args(attrs...)...)
}
