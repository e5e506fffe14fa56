package stage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"dubline/internal/job"
)

func TestWeightsSumToHundred(t *testing.T) {
	total := 0
	for _, d := range All() {
		total += d.Weight
	}
	if total != 100 {
		t.Fatalf("stage weights sum to %d, want 100", total)
	}
	if Assemble.Ceiling() != 100 {
		t.Fatalf("assemble ceiling = %d", Assemble.Ceiling())
	}
}

func TestFloorAndCeiling(t *testing.T) {
	tests := []struct {
		stage          Stage
		floor, ceiling int
	}{
		{Download, 0, 10},
		{Separate, 10, 25},
		{Transcribe, 25, 45},
		{Translate, 45, 70},
		{Synthesize, 70, 90},
		{Assemble, 90, 100},
	}
	for _, tt := range tests {
		if got := tt.stage.Floor(); got != tt.floor {
			t.Fatalf("%s floor = %d, want %d", tt.stage, got, tt.floor)
		}
		if got := tt.stage.Ceiling(); got != tt.ceiling {
			t.Fatalf("%s ceiling = %d, want %d", tt.stage, got, tt.ceiling)
		}
	}
}

func TestNextAndParse(t *testing.T) {
	next, ok := Translate.Next()
	if !ok || next != Synthesize {
		t.Fatalf("Translate.Next() = %v, %v", next, ok)
	}
	if _, ok := Assemble.Next(); ok {
		t.Fatal("Assemble should be the last stage")
	}
	s, err := Parse(" Transcribe ")
	if err != nil || s != Transcribe {
		t.Fatalf("Parse = %v, %v", s, err)
	}
	if _, err := Parse("encode"); err == nil {
		t.Fatal("expected error for unknown stage")
	}
}

func touch(t *testing.T, dir string, names ...string) {
	t.Helper()
	for _, name := range names {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
}

func TestDoneRequiresRegularFile(t *testing.T) {
	dir := t.TempDir()
	if Done(dir, Download) {
		t.Fatal("empty dir should not be done")
	}
	if err := os.Mkdir(filepath.Join(dir, FileVideo), 0o755); err != nil {
		t.Fatal(err)
	}
	if Done(dir, Download) {
		t.Fatal("a directory must not count as a marker")
	}
}

func TestCommitMovesTempIntoPlace(t *testing.T) {
	dir := t.TempDir()
	final := filepath.Join(dir, FileTranscript)
	tmp := TempPath(final)
	if filepath.Ext(tmp) != ".json" {
		t.Fatalf("temp path should keep extension, got %s", tmp)
	}
	if err := os.WriteFile(tmp, []byte("[]"), 0o644); err != nil {
		t.Fatal(err)
	}
	if Done(dir, Transcribe) {
		t.Fatal("marker visible before commit")
	}
	if err := Commit(tmp, final); err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if !Done(dir, Transcribe) {
		t.Fatal("marker missing after commit")
	}
	if _, err := os.Stat(tmp); !os.IsNotExist(err) {
		t.Fatalf("temp file should be gone, stat err = %v", err)
	}
	if err := Commit(tmp, final); err == nil {
		t.Fatal("expected error committing a missing temp file")
	}
}

func TestReconcileDropsMarkersAfterGap(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, FileVideo, FileTranscript, FileCombined, partialPrefix+FileTranslation)

	dropped, err := Reconcile(dir, nil)
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if len(dropped) != 2 || dropped[0] != Transcribe || dropped[1] != Synthesize {
		t.Fatalf("unexpected dropped stages %v", dropped)
	}
	if !Done(dir, Download) {
		t.Fatal("download marker must survive")
	}
	if Done(dir, Transcribe) || Done(dir, Synthesize) {
		t.Fatal("markers after the gap must be removed")
	}
	if _, err := os.Stat(filepath.Join(dir, partialPrefix+FileTranslation)); !os.IsNotExist(err) {
		t.Fatal("partial files must be removed")
	}
	assertMonotonic(t, dir)
}

func TestReconcileKeepsContiguousMarkers(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, FileVideo, FileVocals, FileTranscript)
	dropped, err := Reconcile(dir, nil)
	if err != nil || len(dropped) != 0 {
		t.Fatalf("Reconcile = %v, %v", dropped, err)
	}
	first, pending := FirstPending(dir)
	if !pending || first != Translate {
		t.Fatalf("FirstPending = %v, %v", first, pending)
	}
}

func assertMonotonic(t *testing.T, dir string) {
	t.Helper()
	seenMissing := false
	for _, d := range All() {
		done := Done(dir, d.Stage)
		if done && seenMissing {
			t.Fatalf("marker %s exists after a missing earlier marker", d.Marker)
		}
		if !done {
			seenMissing = true
		}
	}
}

func TestSetMissing(t *testing.T) {
	set := Set{}
	set[Download] = HandlerFunc(func(_ context.Context, _ *job.Job) (Result, error) { return Result{}, nil })
	missing := set.Missing()
	if len(missing) != Count-1 || missing[0] != Separate {
		t.Fatalf("unexpected missing stages %v", missing)
	}
}
