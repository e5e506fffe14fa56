package main

import (
	"testing"

	"dubline/internal/testsupport"
)

func TestDepsPassesWithStubbedTools(t *testing.T) {
	env := setupCLITestEnv(t, testsupport.WithStubbedBinaries())

	out, _, err := runCLI(t, []string{"deps"}, env.configPath)
	if err != nil {
		t.Fatalf("deps: %v\n%s", err, out)
	}
	requireContains(t, out, "FFmpeg")
	requireContains(t, out, "edge-tts")
	requireContains(t, out, "All required checks passed")
}

func TestDepsFailsWhenToolsMissing(t *testing.T) {
	env := setupCLITestEnv(t)
	t.Setenv("PATH", t.TempDir())

	out, _, err := runCLI(t, []string{"deps"}, env.configPath)
	if err == nil {
		t.Fatalf("expected failure, got output %q", out)
	}
	requireContains(t, out, "missing")
	requireContains(t, out, "missing (optional)")
}
