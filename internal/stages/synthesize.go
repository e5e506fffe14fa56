package stages

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strings"

	"dubline/internal/config"
	"dubline/internal/job"
	"dubline/internal/logging"
	"dubline/internal/media/ffmpeg"
	"dubline/internal/models"
	"dubline/internal/services"
	"dubline/internal/services/tts"
	"dubline/internal/stage"
	"dubline/internal/translation"
)

const (
	clipAttempts = 3
	// maxTempo bounds how much a clip is sped up to fit its slot.
	maxTempo = 2.0
)

// Synthesize voices every translated record and mixes the clips over the
// instrumental track.
type Synthesize struct {
	deps   Dependencies
	logger *slog.Logger
}

// HealthCheck reports the synthesizer's readiness.
func (s *Synthesize) HealthCheck(ctx context.Context) stage.Health {
	return health(ctx, "synthesize", s.deps.Synthesizer)
}

// Run implements stage.Handler.
func (s *Synthesize) Run(ctx context.Context, j *job.Job) (stage.Result, error) {
	if res, ok := existing(j, stage.Synthesize); ok {
		return res, nil
	}
	if s.deps.Synthesizer == nil || s.deps.Media == nil {
		return stage.Result{}, services.Wrap(services.ErrConfiguration, "synthesize", "setup", "synthesizer and media tools required", nil)
	}
	logger := logging.WithContext(ctx, s.logger)
	records, err := translation.Load(stage.MarkerPath(j.Dir, stage.Translate))
	if err != nil {
		return stage.Result{}, services.Wrap(services.ErrValidation, "synthesize", "load translation", "", err)
	}
	if s.deps.Config.Synthesis.Method == config.SynthesisXTTS {
		if err := acquire(ctx, s.deps.Models, models.SynthesisRequest(s.deps.Config.Synthesis)); err != nil {
			return stage.Result{}, err
		}
	}

	clipDir := filepath.Join(j.Dir, stage.FileSynthesisDir)
	if err := os.MkdirAll(clipDir, 0o755); err != nil {
		return stage.Result{}, fmt.Errorf("ensure clip dir: %w", err)
	}
	reference := stage.MarkerPath(j.Dir, stage.Separate)
	ext := s.deps.Synthesizer.Extension()

	clips := make([]ffmpeg.Clip, 0, len(records))
	skipped := 0
	for i, rec := range records {
		if !speakable(rec) {
			skipped++
			continue
		}
		if err := ctx.Err(); err != nil {
			return stage.Result{}, err
		}
		path := clipPath(clipDir, i, rec.Translation, ext)
		if !nonEmptyFile(path) {
			dropStaleClips(clipDir, i, path)
			if err := s.synthesizeClip(ctx, rec.Translation, reference, path); err != nil {
				return stage.Result{}, err
			}
		}
		clips = append(clips, ffmpeg.Clip{
			Path:  path,
			Start: rec.Start,
			Tempo: s.tempo(ctx, logger, path, slotDuration(records, i)),
		})
	}
	if len(clips) == 0 {
		logging.WarnWithContext(logger, "no translated sentence to voice; dubbing with instruments only", "synthesis_silent",
			logging.Int("records", len(records)),
			logging.String(logging.FieldImpact, "the output video has no dubbed speech"),
			logging.String(logging.FieldErrorHint, "check the translation backend and redo the translate stage"),
		)
	}

	final := stage.MarkerPath(j.Dir, stage.Synthesize)
	tmp := stage.TempPath(final)
	instruments := filepath.Join(j.Dir, stage.FileInstruments)
	if err := s.deps.Media.MixClips(ctx, instruments, clips, tmp); err != nil {
		return stage.Result{}, services.Wrap(services.ErrExternalTool, "synthesize", "mix clips", "", err)
	}
	if err := stage.Commit(tmp, final); err != nil {
		return stage.Result{}, err
	}
	logger.Info("speech synthesis completed",
		logging.Int("clips", len(clips)),
		logging.Int("skipped", skipped),
	)
	return stage.Result{Summary: fmt.Sprintf("synthesized %d clips", len(clips)), Output: final}, nil
}

// clipPath names the clip for record i after its text, so a rewritten
// translation never reuses audio voiced for the old one.
func clipPath(dir string, i int, text, ext string) string {
	sum := sha256.Sum256([]byte(text))
	return filepath.Join(dir, fmt.Sprintf("%04d-%s%s", i, hex.EncodeToString(sum[:4]), ext))
}

func dropStaleClips(dir string, i int, keep string) {
	stale, _ := filepath.Glob(filepath.Join(dir, fmt.Sprintf("%04d-*", i)))
	for _, path := range stale {
		if path != keep {
			_ = os.Remove(path)
		}
	}
}

func (s *Synthesize) synthesizeClip(ctx context.Context, text, reference, path string) error {
	tmp := stage.TempPath(path)
	var lastErr error
	for attempt := 1; attempt <= clipAttempts; attempt++ {
		lastErr = s.deps.Synthesizer.Synthesize(ctx, tts.Request{Text: text, Reference: reference, Output: tmp})
		if lastErr == nil {
			return os.Rename(tmp, path)
		}
		_ = os.Remove(tmp)
		if ctx.Err() != nil {
			break
		}
		logging.WarnWithContext(s.logger, "clip synthesis failed", "tts_retry",
			logging.Int("attempt", attempt),
			logging.String("clip", filepath.Base(path)),
			logging.Error(lastErr),
			logging.String(logging.FieldErrorHint, "check the speech synthesis tool"),
		)
	}
	return lastErr
}

// tempo returns the speed-up needed for the clip at path to fit slot.
func (s *Synthesize) tempo(ctx context.Context, logger *slog.Logger, path string, slot float64) float64 {
	if s.deps.Probe == nil || slot <= 0 {
		return 1
	}
	result, err := s.deps.Probe(ctx, path)
	if err != nil {
		logger.Warn("clip probe failed; keeping natural speed", logging.String("clip", filepath.Base(path)), logging.Error(err))
		return 1
	}
	return fitTempo(result.DurationSeconds(), slot)
}

func fitTempo(duration, slot float64) float64 {
	if math.IsNaN(duration) || duration <= slot || slot <= 0 {
		return 1
	}
	return math.Min(duration/slot, maxTempo)
}

func speakable(rec translation.Record) bool {
	text := strings.TrimSpace(rec.Translation)
	return text != "" && rec.Outcome != translation.OutcomeUntranslated && text != translation.Placeholder
}

// slotDuration is the time from a record's start to the next record's start,
// or the record's own span for the last one.
func slotDuration(records []translation.Record, i int) float64 {
	if i+1 < len(records) {
		if gap := records[i+1].Start - records[i].Start; gap > 0 {
			return gap
		}
	}
	return records[i].End - records[i].Start
}
