package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"dubline/internal/config"
)

// ConfigOption adjusts the config produced by NewConfig.
type ConfigOption func(*fixture)

type fixture struct {
	t    testing.TB
	root string
	cfg  config.Config
}

// stubbedTools are the executables the pipeline and preflight look up.
var stubbedTools = []string{"ffmpeg", "ffprobe", "yt-dlp", "uvx", "edge-tts"}

// NewConfig returns defaults rooted in a fresh temp directory: videos/,
// state/ and logs/ under it, Simplified Chinese output and no retry delay.
// Directories are not created; call EnsureDirectories when a test needs them.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()
	f := &fixture{t: t, root: t.TempDir(), cfg: config.Default()}

	f.cfg.Paths.WorkDir = filepath.Join(f.root, "videos")
	f.cfg.Paths.StateDir = filepath.Join(f.root, "state")
	f.cfg.Paths.LogDir = filepath.Join(f.root, "logs")
	f.cfg.Translation.APIKey = "test"
	f.cfg.Translation.TargetLanguage = "Simplified Chinese"
	f.cfg.Synthesis.Language = "Simplified Chinese"
	f.cfg.Synthesis.Voice = "zh-CN-XiaoxiaoNeural"
	f.cfg.Workflow.RetryBaseDelaySeconds = 0
	f.cfg.Workflow.RetryMaxDelaySeconds = 0

	for _, opt := range opts {
		opt(f)
	}
	return &f.cfg
}

// WithTranslationMethod selects the translation backend.
func WithTranslationMethod(method string) ConfigOption {
	return func(f *fixture) { f.cfg.Translation.Method = method }
}

// WithStubbedBinaries puts no-op executables named names (default: every
// external tool) first on PATH for the duration of the test.
func WithStubbedBinaries(names ...string) ConfigOption {
	return func(f *fixture) {
		if len(names) == 0 {
			names = stubbedTools
		}
		bin := filepath.Join(f.root, "bin")
		if err := os.MkdirAll(bin, 0o755); err != nil {
			f.t.Fatalf("mkdir bin dir: %v", err)
		}
		for _, name := range names {
			if err := os.WriteFile(filepath.Join(bin, name), []byte("#!/bin/sh\nexit 0\n"), 0o755); err != nil {
				f.t.Fatalf("write stub %s: %v", name, err)
			}
		}
		f.t.Setenv("PATH", bin+string(os.PathListSeparator)+os.Getenv("PATH"))
	}
}

// BaseDir returns the temp root behind a NewConfig config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.WorkDir)
}
