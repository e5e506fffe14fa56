// Package demucs runs Demucs two-stem separation through uvx.
package demucs

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"dubline/internal/config"
	"dubline/internal/models"
	"dubline/internal/services"
	"dubline/internal/stage"
)

const (
	// UVXCommand launches demucs in an isolated environment.
	UVXCommand = "uvx"
	// DefaultModel matches the fine-tuned hybrid transformer model.
	DefaultModel = "htdemucs_ft"
)

// Option configures the service.
type Option func(*Service)

// WithExecutor injects a custom executor (primarily for tests).
func WithExecutor(exec services.Executor) Option {
	return func(s *Service) {
		if exec != nil {
			s.exec = exec
		}
	}
}

// Service separates vocals from accompaniment.
type Service struct {
	binary string
	exec   services.Executor
}

// New constructs a Service.
func New(opts ...Option) *Service {
	s := &Service{binary: UVXCommand, exec: services.CommandExecutor{}}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Loader verifies uvx for the model lifecycle manager.
func (s *Service) Loader() models.Loader {
	return models.CommandLoader(s.binary, func(context.Context, models.Config) error {
		return services.LookPath(s.binary)
	})
}

// HealthCheck reports whether uvx is installed.
func (s *Service) HealthCheck(context.Context) stage.Health {
	if err := services.LookPath(s.binary); err != nil {
		return stage.Unhealthy("demucs", err.Error())
	}
	return stage.Healthy("demucs")
}

// Stems are the two outputs of a separation.
type Stems struct {
	Vocals      string
	Instruments string
}

// Separate splits audio into vocals and everything else under outDir.
func (s *Service) Separate(ctx context.Context, cfg config.Separation, audio, outDir string) (Stems, error) {
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return Stems{}, fmt.Errorf("demucs: ensure output dir: %w", err)
	}
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = DefaultModel
	}
	if _, err := s.exec.Run(ctx, s.binary, BuildArgs(cfg, audio, outDir), nil); err != nil {
		return Stems{}, services.Wrap(services.ErrExternalTool, "separate", "demucs", model, err)
	}
	base := strings.TrimSuffix(filepath.Base(audio), filepath.Ext(audio))
	stemDir := filepath.Join(outDir, model, base)
	stems := Stems{
		Vocals:      filepath.Join(stemDir, "vocals.wav"),
		Instruments: filepath.Join(stemDir, "no_vocals.wav"),
	}
	for _, path := range []string{stems.Vocals, stems.Instruments} {
		if _, err := os.Stat(path); err != nil {
			return Stems{}, services.Wrap(services.ErrValidation, "separate", "demucs", "missing stem output", err)
		}
	}
	return stems, nil
}

// BuildArgs constructs the uvx command line.
func BuildArgs(cfg config.Separation, audio, outDir string) []string {
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = DefaultModel
	}
	args := []string{"demucs", "--two-stems", "vocals", "-n", model}
	if cfg.Shifts > 0 {
		args = append(args, "--shifts", strconv.Itoa(cfg.Shifts))
	}
	if device := strings.TrimSpace(cfg.Device); device != "" && device != "auto" {
		args = append(args, "-d", device)
	}
	return append(args, "-o", outDir, audio)
}
