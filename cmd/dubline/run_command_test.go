package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"dubline/internal/job"
	"dubline/internal/logging"
	"dubline/internal/workflow"
)

func TestBuildRunRequest(t *testing.T) {
	dir := t.TempDir()
	video := filepath.Join(dir, "clip.mp4")
	if err := os.WriteFile(video, []byte("video"), 0o644); err != nil {
		t.Fatalf("write video: %v", err)
	}

	req, err := buildRunRequest([]string{video}, runOptions{})
	if err != nil {
		t.Fatalf("positional file: %v", err)
	}
	if req.Spec != video || len(req.Sources) != 0 {
		t.Fatalf("expected spec passthrough, got %+v", req)
	}

	req, err = buildRunRequest([]string{"https://a.example/v1", "https://a.example/v2"}, runOptions{count: 3})
	if err != nil {
		t.Fatalf("positional locators: %v", err)
	}
	if req.Spec != "" || req.Count != 3 {
		t.Fatalf("unexpected request %+v", req)
	}
	requireSources(t, req.Sources, job.Remote("https://a.example/v1"), job.Remote("https://a.example/v2"))

	other := filepath.Join(dir, "other.mp4")
	if err := os.WriteFile(other, []byte("video"), 0o644); err != nil {
		t.Fatalf("write video: %v", err)
	}
	req, err = buildRunRequest([]string{video, other, "https://a.example/v4"}, runOptions{})
	if err != nil {
		t.Fatalf("positional files: %v", err)
	}
	requireSources(t, req.Sources, job.Local(video), job.Local(other), job.Remote("https://a.example/v4"))

	req, err = buildRunRequest([]string{"https://a.example/v3"}, runOptions{
		file: video,
		urls: []string{"https://a.example/v1", " "},
	})
	if err != nil {
		t.Fatalf("flag sources: %v", err)
	}
	requireSources(t, req.Sources, job.Local(video), job.Remote("https://a.example/v1"), job.Remote("https://a.example/v3"))
}

func requireSources(t *testing.T, got []job.Source, want ...job.Source) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("expected %d sources, got %+v", len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("source %d: expected %v, got %v", i, want[i], got[i])
		}
	}
}

func TestBuildRunRequestRejectsBadInput(t *testing.T) {
	if _, err := buildRunRequest(nil, runOptions{}); err == nil {
		t.Fatal("expected error without sources")
	}
	if _, err := buildRunRequest(nil, runOptions{file: filepath.Join(t.TempDir(), "missing.mp4")}); err == nil {
		t.Fatal("expected error for missing file")
	}
	if _, err := buildRunRequest(nil, runOptions{file: t.TempDir()}); err == nil {
		t.Fatal("expected error for directory")
	}
}

func TestRunRefusesWhenToolsMissing(t *testing.T) {
	env := setupCLITestEnv(t)
	t.Setenv("PATH", t.TempDir())
	video := filepath.Join(env.baseDir, "clip.mp4")
	if err := os.WriteFile(video, []byte("video"), 0o644); err != nil {
		t.Fatalf("write video: %v", err)
	}

	_, _, err := runCLI(t, []string{"run", "--plain", "--file", video}, env.configPath)
	if err == nil {
		t.Fatal("expected preflight failure")
	}
	requireContains(t, err.Error(), "preflight failed")
	requireContains(t, err.Error(), "FFmpeg")
	if strings.Contains(err.Error(), "yt-dlp") {
		t.Fatalf("optional yt-dlp should not fail preflight: %v", err)
	}
}

func TestLineViewPrintsChangesOnly(t *testing.T) {
	var buf bytes.Buffer
	view := newProgressView(&buf, false)
	updates := []workflow.Update{
		{JobID: "a", JobIndex: 0, JobCount: 2, Percent: 0, Status: "download"},
		{JobID: "a", JobIndex: 0, JobCount: 2, Percent: 0, Status: "download"},
		{JobID: "a", JobIndex: 0, JobCount: 2, Percent: 10, Status: "download"},
		{JobID: "b", JobIndex: 1, JobCount: 2, Percent: 10, Status: "download"},
	}
	for _, u := range updates {
		view.Update(u)
	}
	view.Close()

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %q", buf.String())
	}
	if lines[0] != "[1/2] a   0% download" || lines[2] != "[2/2] b  10% download" {
		t.Fatalf("unexpected lines %q", lines)
	}
}

func TestPrintRunResult(t *testing.T) {
	var buf bytes.Buffer
	printRunResult(&buf, workflow.RunResult{
		RunID: "run-1",
		Jobs: []workflow.JobResult{
			{ID: "ok", Title: "Good", Status: job.StatusSuccess, Attempts: 1, Output: "/videos/ok/video.mp4"},
			{ID: "bad", Title: "Bad", Status: job.StatusFailed, Attempts: 3, Stage: "transcribe", Err: errors.New("boom")},
		},
		Output:  "/videos/ok/video.mp4",
		Summary: "succeeded: 1\nfailed: 1\n- bad: boom",
	})

	out := buf.String()
	requireContains(t, out, "Run run-1")
	requireContains(t, out, "succeeded: 1")
	requireContains(t, out, "transcribe")
	requireContains(t, out, "boom")
	requireContains(t, out, "Output: /videos/ok/video.mp4")
}

type recordingNotifier struct {
	jobs   []string
	runs   [][2]int
	errors []string
}

func (r *recordingNotifier) NotifyJobCompleted(_ context.Context, title, _ string) error {
	r.jobs = append(r.jobs, title)
	return nil
}

func (r *recordingNotifier) NotifyRunCompleted(_ context.Context, succeeded, failed int, _ time.Duration) error {
	r.runs = append(r.runs, [2]int{succeeded, failed})
	return nil
}

func (r *recordingNotifier) NotifyError(_ context.Context, err error, _ string) error {
	r.errors = append(r.errors, err.Error())
	return nil
}

func (r *recordingNotifier) TestNotification(context.Context) error { return nil }

func TestNotifyRun(t *testing.T) {
	rec := &recordingNotifier{}
	notifyRun(context.Background(), rec, workflow.RunResult{
		Jobs: []workflow.JobResult{
			{ID: "a", Title: "First", Status: job.StatusSuccess},
			{ID: "b", Title: "Second", Status: job.StatusFailed, Err: errors.New("boom")},
		},
	}, logging.NewNop())
	if len(rec.jobs) != 1 || rec.jobs[0] != "First" {
		t.Fatalf("unexpected job notifications %v", rec.jobs)
	}
	if len(rec.runs) != 1 || rec.runs[0] != [2]int{1, 1} {
		t.Fatalf("unexpected run notifications %v", rec.runs)
	}

	rec = &recordingNotifier{}
	notifyRun(context.Background(), rec, workflow.RunResult{Err: errors.New("no jobs")}, logging.NewNop())
	if len(rec.errors) != 1 || len(rec.runs) != 0 {
		t.Fatalf("expected error notification only, got %+v", rec)
	}
}
