package main

import (
	"context"
	"strings"
	"testing"
	"time"

	"dubline/internal/job"
	"dubline/internal/queue"
	"dubline/internal/testsupport"
)

func TestHistoryShowsRunsAndJobs(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"history"}, env.configPath)
	if err != nil {
		t.Fatalf("history on empty store: %v", err)
	}
	requireContains(t, out, "No runs recorded")

	store := testsupport.MustOpenStore(t, env.cfg)
	now := time.Now().UTC()
	entries := []queue.Entry{
		{RunID: "run-alpha", JobKey: "v1", Title: "Morning Walk", Status: job.StatusSuccess, Stage: "assemble", ProgressPercent: 100, OutputPath: "/videos/v1/video.mp4", CreatedAt: now, UpdatedAt: now},
		{RunID: "run-alpha", JobKey: "v2", Title: "Evening Talk", Status: job.StatusFailed, Stage: "translate", ProgressPercent: 45, Attempts: 3, ErrorMessage: "backend down", ErrorCategory: "transient", CreatedAt: now, UpdatedAt: now},
	}
	for _, e := range entries {
		if err := store.Upsert(context.Background(), e); err != nil {
			t.Fatalf("upsert: %v", err)
		}
	}

	out, _, err = runCLI(t, []string{"history"}, env.configPath)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	requireContains(t, out, "run-alpha")

	out, _, err = runCLI(t, []string{"history", "--run", "run-alpha"}, env.configPath)
	if err != nil {
		t.Fatalf("history --run: %v", err)
	}
	requireContains(t, out, "Morning Walk")
	requireContains(t, out, "[transient] backend down")

	out, _, err = runCLI(t, []string{"history", "--status", "failed"}, env.configPath)
	if err != nil {
		t.Fatalf("history --status: %v", err)
	}
	if strings.Contains(out, "Morning Walk") {
		t.Fatalf("expected only failed jobs, got %q", out)
	}
	requireContains(t, out, "Evening Talk")
}

func TestHistoryPrune(t *testing.T) {
	env := setupCLITestEnv(t)
	store := testsupport.MustOpenStore(t, env.cfg)
	old := time.Now().Add(-72 * time.Hour).UTC()
	if err := store.Upsert(context.Background(), queue.Entry{RunID: "old", JobKey: "v1", Status: job.StatusSuccess, CreatedAt: old, UpdatedAt: old}); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	out, _, err := runCLI(t, []string{"history", "prune", "--older-than", "24h"}, env.configPath)
	if err != nil {
		t.Fatalf("prune: %v", err)
	}
	requireContains(t, out, "Removed 1 history rows")

	if _, _, err := runCLI(t, []string{"history", "prune", "--older-than", "0s"}, env.configPath); err == nil {
		t.Fatal("expected error for zero duration")
	}
}
