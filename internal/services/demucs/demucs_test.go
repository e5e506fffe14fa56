package demucs

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"dubline/internal/config"
	"dubline/internal/services"
)

func TestBuildArgs(t *testing.T) {
	args := BuildArgs(config.Separation{Model: "htdemucs", Device: "cuda", Shifts: 2}, "audio.wav", "out")
	want := "demucs --two-stems vocals -n htdemucs --shifts 2 -d cuda -o out audio.wav"
	if got := strings.Join(args, " "); got != want {
		t.Fatalf("args = %q, want %q", got, want)
	}
	auto := BuildArgs(config.Separation{Device: "auto"}, "a.wav", "o")
	if slices.Contains(auto, "-d") {
		t.Fatalf("auto device must not pass -d: %v", auto)
	}
	if !slices.Contains(auto, DefaultModel) {
		t.Fatalf("expected default model: %v", auto)
	}
}

func TestSeparateLocatesStems(t *testing.T) {
	outDir := t.TempDir()
	exec := services.ExecutorFunc(func(_ context.Context, binary string, args []string, _ []string) ([]byte, error) {
		if binary != UVXCommand {
			t.Fatalf("unexpected binary %q", binary)
		}
		stemDir := filepath.Join(outDir, "htdemucs_ft", "audio")
		if err := os.MkdirAll(stemDir, 0o755); err != nil {
			return nil, err
		}
		for _, name := range []string{"vocals.wav", "no_vocals.wav"} {
			if err := os.WriteFile(filepath.Join(stemDir, name), []byte("x"), 0o644); err != nil {
				return nil, err
			}
		}
		return nil, nil
	})
	stems, err := New(WithExecutor(exec)).Separate(context.Background(), config.Separation{Model: "htdemucs_ft"}, "/job/audio.wav", outDir)
	if err != nil {
		t.Fatalf("Separate: %v", err)
	}
	if filepath.Base(stems.Vocals) != "vocals.wav" || filepath.Base(stems.Instruments) != "no_vocals.wav" {
		t.Fatalf("unexpected stems %+v", stems)
	}
}

func TestSeparateFailures(t *testing.T) {
	failing := services.ExecutorFunc(func(context.Context, string, []string, []string) ([]byte, error) {
		return nil, errors.New("cuda oom")
	})
	_, err := New(WithExecutor(failing)).Separate(context.Background(), config.Separation{}, "a.wav", t.TempDir())
	if !errors.Is(err, services.ErrExternalTool) || !strings.Contains(err.Error(), "cuda oom") {
		t.Fatalf("unexpected error %v", err)
	}

	silent := services.ExecutorFunc(func(context.Context, string, []string, []string) ([]byte, error) { return nil, nil })
	_, err = New(WithExecutor(silent)).Separate(context.Background(), config.Separation{}, "a.wav", t.TempDir())
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}
