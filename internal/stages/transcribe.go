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
	"dubline/internal/services/whisperx"
	"dubline/internal/stage"
	"dubline/internal/transcript"
)

// Transcribe runs speech recognition on the separated vocals.
type Transcribe struct {
	deps   Dependencies
	logger *slog.Logger
}

// HealthCheck reports the transcriber's readiness.
func (t *Transcribe) HealthCheck(ctx context.Context) stage.Health {
	return health(ctx, "transcribe", t.deps.Transcriber)
}

// Run implements stage.Handler.
func (t *Transcribe) Run(ctx context.Context, j *job.Job) (stage.Result, error) {
	if res, ok := existing(j, stage.Transcribe); ok {
		return res, nil
	}
	if t.deps.Transcriber == nil {
		return stage.Result{}, services.Wrap(services.ErrConfiguration, "transcribe", "setup", "no transcriber configured", nil)
	}
	logger := logging.WithContext(ctx, t.logger)
	cfg := t.deps.Config.Transcription

	if err := acquire(ctx, t.deps.Models, models.TranscriptionRequest(cfg)); err != nil {
		return stage.Result{}, err
	}
	if cfg.Diarization {
		if err := acquire(ctx, t.deps.Models, models.DiarizationRequest(cfg)); err != nil {
			return stage.Result{}, err
		}
	}

	outDir := filepath.Join(j.Dir, ".partial-whisperx")
	defer os.RemoveAll(outDir)
	vocals := stage.MarkerPath(j.Dir, stage.Separate)
	lines, err := t.deps.Transcriber.Transcribe(ctx, whisperx.FromConfig(cfg), vocals, outDir)
	if err != nil {
		return stage.Result{}, err
	}
	if len(lines) == 0 {
		return stage.Result{}, services.Wrap(services.ErrValidation, "transcribe", "check output", "no speech detected", nil)
	}
	transcript.Sort(lines)
	if err := transcript.Validate(lines); err != nil {
		return stage.Result{}, services.Wrap(services.ErrValidation, "transcribe", "check output", "", err)
	}
	data, err := transcript.Encode(lines)
	if err != nil {
		return stage.Result{}, err
	}
	final := stage.MarkerPath(j.Dir, stage.Transcribe)
	if err := commitBytes(final, data); err != nil {
		return stage.Result{}, err
	}
	logger.Info("transcription completed",
		logging.Int("lines", len(lines)),
		logging.Bool("diarization", cfg.Diarization),
	)
	return stage.Result{Summary: fmt.Sprintf("transcribed %d lines", len(lines)), Output: final}, nil
}
