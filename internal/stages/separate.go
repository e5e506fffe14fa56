package stages

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"dubline/internal/job"
	"dubline/internal/logging"
	"dubline/internal/models"
	"dubline/internal/services"
	"dubline/internal/stage"
)

// Separate extracts the soundtrack and splits it into vocals and
// instruments.
type Separate struct {
	deps   Dependencies
	logger *slog.Logger
}

// HealthCheck reports the separator's readiness.
func (s *Separate) HealthCheck(ctx context.Context) stage.Health {
	return health(ctx, "separate", s.deps.Separator)
}

// Run implements stage.Handler.
func (s *Separate) Run(ctx context.Context, j *job.Job) (stage.Result, error) {
	if res, ok := existing(j, stage.Separate); ok {
		return res, nil
	}
	if s.deps.Separator == nil || s.deps.Media == nil {
		return stage.Result{}, services.Wrap(services.ErrConfiguration, "separate", "setup", "separator and media tools required", nil)
	}
	logger := logging.WithContext(ctx, s.logger)
	cfg := s.deps.Config.Separation

	audio := filepath.Join(j.Dir, stage.FileAudio)
	if !nonEmptyFile(audio) {
		tmp := stage.TempPath(audio)
		if err := s.deps.Media.ExtractAudio(ctx, stage.MarkerPath(j.Dir, stage.Download), tmp); err != nil {
			return stage.Result{}, services.Wrap(services.ErrExternalTool, "separate", "extract audio", "", err)
		}
		if err := stage.Commit(tmp, audio); err != nil {
			return stage.Result{}, err
		}
	}

	if err := acquire(ctx, s.deps.Models, models.SeparationRequest(cfg)); err != nil {
		return stage.Result{}, err
	}

	outDir := filepath.Join(j.Dir, ".partial-demucs")
	defer os.RemoveAll(outDir)
	logger.Info("separating vocals",
		logging.String("model", cfg.Model),
		logging.String("device", cfg.Device),
		logging.Int("shifts", cfg.Shifts),
	)
	stems, err := s.deps.Separator.Separate(ctx, cfg, audio, outDir)
	if err != nil {
		return stage.Result{}, err
	}
	if err := os.Rename(stems.Instruments, filepath.Join(j.Dir, stage.FileInstruments)); err != nil {
		return stage.Result{}, fmt.Errorf("move instruments: %w", err)
	}
	final := stage.MarkerPath(j.Dir, stage.Separate)
	if err := stage.Commit(stems.Vocals, final); err != nil {
		return stage.Result{}, err
	}
	logger.Info("separation completed", logging.String("vocals", final))
	return stage.Result{Summary: "separated vocals with " + cfg.Model, Output: final}, nil
}
