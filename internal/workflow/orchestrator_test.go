package workflow

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"dubline/internal/config"
	"dubline/internal/job"
	"dubline/internal/models"
	"dubline/internal/stage"
	"dubline/internal/stageexec"
	"dubline/internal/testsupport"
)

// markerStages writes each stage's marker and counts invocations. failFor
// makes every stage fail for the named job directories.
type markerStages struct {
	mu      sync.Mutex
	calls   int
	failFor map[string]bool
	onRun   func()
}

func (m *markerStages) set() stage.Set {
	set := stage.Set{}
	for _, d := range stage.All() {
		d := d
		set[d.Stage] = stage.HandlerFunc(func(_ context.Context, j *job.Job) (stage.Result, error) {
			m.mu.Lock()
			m.calls++
			fail := m.failFor[filepath.Base(j.Dir)]
			hook := m.onRun
			m.mu.Unlock()
			if hook != nil {
				hook()
			}
			if fail && d.Stage == stage.Transcribe {
				return stage.Result{}, errors.New("no speech detected")
			}
			final := stage.MarkerPath(j.Dir, d.Stage)
			if err := os.WriteFile(final, []byte(d.Name), 0o644); err != nil {
				return stage.Result{}, err
			}
			return stage.Result{Summary: d.Name, Output: final}, nil
		})
	}
	return set
}

type fakeResolver struct {
	descriptors []job.Descriptor
	err         error
	gotMax      int
}

func (f *fakeResolver) Resolve(_ context.Context, _ []string, max int) ([]job.Descriptor, error) {
	f.gotMax = max
	if f.err != nil {
		return nil, f.err
	}
	if len(f.descriptors) > max {
		return f.descriptors[:max], nil
	}
	return f.descriptors, nil
}

func noSleep(context.Context, time.Duration) error { return nil }

func okManager() (*models.Manager, *atomic.Int32) {
	var loads atomic.Int32
	loader := models.LoaderFunc(func(context.Context, models.Config) (models.Resource, error) {
		loads.Add(1)
		return &models.CommandResource{}, nil
	})
	return models.New(map[models.Kind]models.Loader{
		models.Separation:    loader,
		models.Transcription: loader,
		models.Diarization:   loader,
		models.Synthesis:     loader,
	}, nil), &loads
}

func newOrchestrator(t *testing.T, cfg *config.Config, stubs *markerStages, resolver Resolver, manager *models.Manager) *Orchestrator {
	t.Helper()
	o, err := New(cfg, stubs.set(), manager, resolver,
		WithSleeper(noSleep),
		WithPolicy(stageexec.Policy{MaxAttempts: 2}),
	)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return o
}

func localSource(t *testing.T, cfg *config.Config) string {
	t.Helper()
	path := filepath.Join(testsupport.BaseDir(cfg), "holiday_trip.mp4")
	testsupport.WriteFile(t, path, 1024)
	return path
}

func TestRunLocalJobEndToEnd(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	manager, _ := okManager()
	stubs := &markerStages{}
	o := newOrchestrator(t, cfg, stubs, nil, manager)

	var completed []int
	var last int
	result := o.Run(context.Background(), Request{
		Spec: localSource(t, cfg),
		Progress: func(u Update) {
			if u.Percent < last {
				t.Fatalf("progress decreased: %d after %d", u.Percent, last)
			}
			last = u.Percent
			if u.Percent > 0 && (len(completed) == 0 || completed[len(completed)-1] != u.Percent) {
				completed = append(completed, u.Percent)
			}
		},
	})

	if result.Err != nil || !result.OK() {
		t.Fatalf("expected success, got %v\n%s", result.Err, result.Summary)
	}
	want := []int{10, 25, 45, 70, 90, 100}
	if len(completed) != len(want) {
		t.Fatalf("progress = %v, want %v", completed, want)
	}
	for i := range want {
		if completed[i] != want[i] {
			t.Fatalf("progress = %v, want %v", completed, want)
		}
	}
	dir := filepath.Join(cfg.Paths.WorkDir, "holiday_trip")
	if result.Output != stage.MarkerPath(dir, stage.Assemble) {
		t.Fatalf("unexpected output %q", result.Output)
	}
	if got := result.Jobs[0].Title; got != "Holiday Trip" {
		t.Fatalf("title = %q", got)
	}
	if result.Summary != "succeeded: 1\nfailed: 0" {
		t.Fatalf("summary = %q", result.Summary)
	}
	if result.RunID == "" {
		t.Fatal("expected run id")
	}
}

func TestRunIsolatesRemoteFailures(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	manager, _ := okManager()
	resolver := &fakeResolver{descriptors: []job.Descriptor{
		{ID: "v1", Title: "One", Uploader: "chan", UploadDate: "20240101", URL: "https://example.com/1"},
		{ID: "v2", Title: "Two", Uploader: "chan", UploadDate: "20240102", URL: "https://example.com/2"},
		{ID: "v3", Title: "Three", Uploader: "chan", UploadDate: "20240103", URL: "https://example.com/3"},
	}}
	stubs := &markerStages{failFor: map[string]bool{"20240102 Two": true}}
	o := newOrchestrator(t, cfg, stubs, resolver, manager)

	result := o.Run(context.Background(), Request{Spec: "https://example.com/list", Count: 3})

	if result.Err != nil {
		t.Fatalf("remote partial failure must not fail the run: %v", result.Err)
	}
	if n := len(result.Succeeded()); n != 2 {
		t.Fatalf("succeeded = %d, want 2", n)
	}
	failed := result.Failed()
	if len(failed) != 1 || failed[0].ID != "v2" || failed[0].Stage != "transcribe" {
		t.Fatalf("unexpected failures %+v", failed)
	}
	if !strings.HasSuffix(filepath.Dir(result.Output), "20240103 Three") {
		t.Fatalf("expected last successful job's output, got %q", result.Output)
	}
	if !strings.Contains(result.Summary, "succeeded: 2\nfailed: 1\n- v2: ") {
		t.Fatalf("unexpected summary %q", result.Summary)
	}
	if resolver.gotMax != 3 {
		t.Fatalf("resolver max = %d", resolver.gotMax)
	}
}

func TestRunLocalFailureFailsRun(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	manager, _ := okManager()
	stubs := &markerStages{failFor: map[string]bool{"holiday_trip": true}}
	o := newOrchestrator(t, cfg, stubs, nil, manager)

	result := o.Run(context.Background(), Request{Sources: []job.Source{job.Local(localSource(t, cfg))}})
	if result.Err == nil || result.OK() {
		t.Fatal("expected run failure")
	}
	if result.Output != "" {
		t.Fatalf("unexpected output %q", result.Output)
	}
}

func TestRunModelInitFailureIsFatal(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	failing := models.LoaderFunc(func(context.Context, models.Config) (models.Resource, error) {
		return nil, errors.New("cuda unavailable")
	})
	manager := models.New(map[models.Kind]models.Loader{
		models.Separation:    failing,
		models.Transcription: failing,
		models.Diarization:   failing,
		models.Synthesis:     failing,
	}, nil)
	stubs := &markerStages{}
	o := newOrchestrator(t, cfg, stubs, nil, manager)

	result := o.Run(context.Background(), Request{Spec: localSource(t, cfg)})
	if result.Err == nil || !strings.Contains(result.Err.Error(), "cuda unavailable") {
		t.Fatalf("expected init failure, got %v", result.Err)
	}
	if stubs.calls != 0 || len(result.Jobs) != 0 {
		t.Fatalf("no job may run after init failure: calls=%d jobs=%d", stubs.calls, len(result.Jobs))
	}
	if len(manager.ResidentKinds()) != 0 {
		t.Fatal("failed init must leave no resident models")
	}
}

func TestRunReusesModelsAcrossRuns(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	manager, loads := okManager()
	o := newOrchestrator(t, cfg, &markerStages{}, nil, manager)
	src := localSource(t, cfg)

	o.Run(context.Background(), Request{Spec: src})
	first := loads.Load()
	o.Run(context.Background(), Request{Spec: src})
	if loads.Load() != first {
		t.Fatalf("second run reloaded models: %d -> %d", first, loads.Load())
	}
	if err := o.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if len(manager.ResidentKinds()) != 0 {
		t.Fatal("Close must release every model")
	}
}

func TestRunRejectsInvalidRequest(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	manager, loads := okManager()
	o := newOrchestrator(t, cfg, &markerStages{}, nil, manager)

	for name, req := range map[string]Request{
		"empty":       {},
		"bad kind":    {Sources: []job.Source{{Kind: "ftp", Locator: "x"}}},
		"neg count":   {Spec: "https://example.com/a", Count: -1},
		"no resolver": {Spec: "https://example.com/a"},
	} {
		result := o.Run(context.Background(), req)
		if result.Err == nil {
			t.Fatalf("%s: expected error", name)
		}
		if !strings.Contains(result.Summary, "- run: ") {
			t.Fatalf("%s: summary missing run error: %q", name, result.Summary)
		}
	}
	if loads.Load() != 0 {
		t.Fatal("invalid requests must not load models")
	}
}

func TestSessionStopsBetweenJobs(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	manager, _ := okManager()
	resolver := &fakeResolver{descriptors: []job.Descriptor{
		{ID: "v1", Title: "One", URL: "https://example.com/1"},
		{ID: "v2", Title: "Two", URL: "https://example.com/2"},
	}}
	stubs := &markerStages{}
	var session *Session
	var once sync.Once
	stopped := make(chan struct{})
	stubs.onRun = func() {
		once.Do(func() {
			<-stopped
			session.Stop()
		})
	}
	o := newOrchestrator(t, cfg, stubs, resolver, manager)

	session = Start(context.Background(), o, Request{Spec: "https://example.com/list"})
	close(stopped)
	result := session.Wait()

	if len(result.Succeeded()) != 0 {
		t.Fatalf("expected no completed job after stop, got %+v", result.Succeeded())
	}
	if len(result.Jobs) != 2 {
		t.Fatalf("expected both jobs reported, got %d", len(result.Jobs))
	}
	for _, jr := range result.Jobs {
		if !errors.Is(jr.Err, stageexec.ErrStopped) {
			t.Fatalf("job %s: expected stop, got %v", jr.ID, jr.Err)
		}
	}
	if stubs.calls != 1 {
		t.Fatalf("only the in-flight stage may run, got %d calls", stubs.calls)
	}
	if _, ok := <-session.Done(); ok {
		t.Fatal("done channel should be drained")
	}
}

func TestSessionDeliversProgress(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	manager, _ := okManager()
	o := newOrchestrator(t, cfg, &markerStages{}, nil, manager)

	session := Start(context.Background(), o, Request{Spec: localSource(t, cfg)})
	var updates []Update
	for u := range session.Progress() {
		updates = append(updates, u)
	}
	result := <-session.Done()
	if !result.OK() {
		t.Fatalf("run failed: %v", result.Err)
	}
	if len(updates) == 0 || updates[len(updates)-1].Percent != 100 {
		t.Fatalf("unexpected updates %+v", updates)
	}
	if updates[0].JobCount != 1 || updates[0].JobID != "holiday_trip" {
		t.Fatalf("unexpected first update %+v", updates[0])
	}
}

func TestRunGivesSameNamedLocalFilesTheirOwnDirectories(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	manager, _ := okManager()
	stubs := &markerStages{}
	o := newOrchestrator(t, cfg, stubs, nil, manager)

	base := testsupport.BaseDir(cfg)
	first := filepath.Join(base, "a", "clip.mp4")
	second := filepath.Join(base, "b", "clip.mp4")
	testsupport.WriteFile(t, first, 64)
	testsupport.WriteFile(t, second, 64)

	result := o.Run(context.Background(), Request{Sources: []job.Source{
		job.Local(first),
		job.Local(second),
		job.Local(first),
	}})

	if len(result.Jobs) != 2 {
		t.Fatalf("expected the repeated file to be dropped, got %d jobs", len(result.Jobs))
	}
	if n := len(result.Succeeded()); n != 2 {
		t.Fatalf("succeeded = %d, want 2\n%s", n, result.Summary)
	}
	if result.Jobs[0].Dir == result.Jobs[1].Dir {
		t.Fatalf("jobs share directory %q", result.Jobs[0].Dir)
	}
	if result.Jobs[0].ID == result.Jobs[1].ID {
		t.Fatalf("jobs share id %q", result.Jobs[0].ID)
	}
	if got := filepath.Base(result.Jobs[0].Dir); got != "clip" {
		t.Fatalf("first job dir = %q", got)
	}
	if got := result.Jobs[1].Title; got != "Clip" {
		t.Fatalf("second job title = %q", got)
	}
	if want := 2 * len(stage.All()); stubs.calls != want {
		t.Fatalf("stage calls = %d, want %d", stubs.calls, want)
	}
}

func TestRunGivesSameTitledVideosTheirOwnDirectories(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	manager, _ := okManager()
	resolver := &fakeResolver{descriptors: []job.Descriptor{
		{ID: "v1", Title: "Intro", Uploader: "chan", UploadDate: "20240101", URL: "https://example.com/1"},
		{ID: "v2", Title: "Intro", Uploader: "chan", UploadDate: "20240101", URL: "https://example.com/2"},
		{ID: "v1", Title: "Intro", Uploader: "chan", UploadDate: "20240101", URL: "https://example.com/1"},
	}}
	stubs := &markerStages{}
	o := newOrchestrator(t, cfg, stubs, resolver, manager)

	result := o.Run(context.Background(), Request{Spec: "https://example.com/list", Count: 3})

	if len(result.Jobs) != 2 {
		t.Fatalf("expected the repeated video to be dropped, got %d jobs", len(result.Jobs))
	}
	if n := len(result.Succeeded()); n != 2 {
		t.Fatalf("succeeded = %d, want 2\n%s", n, result.Summary)
	}
	first, second := result.Jobs[0], result.Jobs[1]
	if first.Dir != filepath.Join(cfg.Paths.WorkDir, "chan", "20240101 Intro") {
		t.Fatalf("first dir = %q", first.Dir)
	}
	if second.Dir != filepath.Join(cfg.Paths.WorkDir, "chan", "20240101 Intro [v2]") {
		t.Fatalf("second dir = %q", second.Dir)
	}
	if second.Output == first.Output {
		t.Fatalf("jobs share output %q", first.Output)
	}
	if want := 2 * len(stage.All()); stubs.calls != want {
		t.Fatalf("stage calls = %d, want %d", stubs.calls, want)
	}
}

type memoryRecorder struct {
	mu   sync.Mutex
	last map[string]job.Job
}

func (r *memoryRecorder) Record(_ context.Context, j *job.Job) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.last == nil {
		r.last = map[string]job.Job{}
	}
	r.last[j.ID] = *j
	return nil
}

func TestRunRecordsJobsSkippedAfterStop(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	manager, _ := okManager()
	resolver := &fakeResolver{descriptors: []job.Descriptor{
		{ID: "v1", Title: "One", URL: "https://example.com/1"},
		{ID: "v2", Title: "Two", URL: "https://example.com/2"},
	}}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	stubs := &markerStages{onRun: cancel}
	recorder := &memoryRecorder{}
	o, err := New(cfg, stubs.set(), manager, resolver,
		WithSleeper(noSleep),
		WithPolicy(stageexec.Policy{MaxAttempts: 2}),
		WithRecorder(recorder),
	)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	result := o.Run(ctx, Request{Spec: "https://example.com/list"})
	if len(result.Jobs) != 2 {
		t.Fatalf("expected both jobs reported, got %d", len(result.Jobs))
	}

	recorder.mu.Lock()
	defer recorder.mu.Unlock()
	got, ok := recorder.last["v2"]
	if !ok {
		t.Fatalf("skipped job not recorded; recorded %d jobs", len(recorder.last))
	}
	if got.Status != job.StatusFailed || !errors.Is(got.Err, stageexec.ErrStopped) {
		t.Fatalf("skipped job recorded as %s/%v", got.Status, got.Err)
	}
	if got.FinishedAt.IsZero() {
		t.Fatal("skipped job should carry a finish time")
	}
}
