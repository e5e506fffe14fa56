package stages

import (
	"context"
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
	"dubline/internal/services"
	"dubline/internal/stage"
	"dubline/internal/subtitles"
	"dubline/internal/translation"
)

// Assemble renders the final video: dubbed audio, speed change, optional
// background music and optional burned-in subtitles.
type Assemble struct {
	deps   Dependencies
	logger *slog.Logger
}

// HealthCheck reports whether ffmpeg is available.
func (a *Assemble) HealthCheck(context.Context) stage.Health {
	if a.deps.Config == nil {
		return stage.Unhealthy("assemble", "not configured")
	}
	if err := services.LookPath(a.deps.Config.FFmpegBinary()); err != nil {
		return stage.Unhealthy("assemble", err.Error())
	}
	return stage.Healthy("assemble")
}

// Run implements stage.Handler.
func (a *Assemble) Run(ctx context.Context, j *job.Job) (stage.Result, error) {
	if res, ok := existing(j, stage.Assemble); ok {
		return res, nil
	}
	if a.deps.Media == nil {
		return stage.Result{}, services.Wrap(services.ErrConfiguration, "assemble", "setup", "media tools required", nil)
	}
	logger := logging.WithContext(ctx, a.logger)
	cfg := a.deps.Config.Assembly
	video := stage.MarkerPath(j.Dir, stage.Download)

	records, err := translation.Load(stage.MarkerPath(j.Dir, stage.Translate))
	if err != nil {
		return stage.Result{}, services.Wrap(services.ErrValidation, "assemble", "load translation", "", err)
	}
	srt := filepath.Join(j.Dir, stage.FileSubtitles)
	srtTmp := stage.TempPath(srt)
	if err := subtitles.WriteFile(srtTmp, records, cfg.SpeedUp); err != nil {
		return stage.Result{}, err
	}
	if err := stage.Commit(srtTmp, srt); err != nil {
		return stage.Result{}, err
	}

	width, height, duration := a.frameSize(ctx, logger, video, cfg)
	if duration > 0 {
		if issues := subtitles.ValidateSRTContent(srt, duration/speedOrOne(cfg.SpeedUp)); len(issues) > 0 {
			logging.WarnWithContext(logger, "subtitle check reported issues", "subtitle_validation",
				logging.String("issues", strings.Join(issues, "; ")),
				logging.String(logging.FieldImpact, "subtitles may be mistimed"),
			)
		}
	}

	final := stage.MarkerPath(j.Dir, stage.Assemble)
	rendered := filepath.Join(j.Dir, ".partial-render.mp4")
	defer os.Remove(rendered)
	err = a.deps.Media.Render(ctx, ffmpeg.RenderOptions{
		Video:  video,
		Audio:  stage.MarkerPath(j.Dir, stage.Synthesize),
		Output: rendered,
		Speed:  cfg.SpeedUp,
		FPS:    cfg.FPS,
		Width:  width,
		Height: height,
	})
	if err != nil {
		return stage.Result{}, services.Wrap(services.ErrExternalTool, "assemble", "render", "", err)
	}
	current := rendered

	if music := strings.TrimSpace(cfg.BackgroundMusic); music != "" {
		mixed := filepath.Join(j.Dir, ".partial-bgm.mp4")
		defer os.Remove(mixed)
		if err := a.deps.Media.AddBackgroundMusic(ctx, current, music, mixed, cfg.VideoVolume, cfg.BGMVolume); err != nil {
			return stage.Result{}, services.Wrap(services.ErrExternalTool, "assemble", "background music", music, err)
		}
		current = mixed
	}

	if cfg.Subtitles {
		burned := filepath.Join(j.Dir, ".partial-subtitled.mp4")
		defer os.Remove(burned)
		style := ffmpeg.SubtitleStyle{FontName: cfg.FontName, FontDir: cfg.FontDir, Width: width}
		if err := a.deps.Media.BurnSubtitles(ctx, current, srt, burned, style); err != nil {
			logging.WarnWithContext(logger, "subtitle burn-in failed; keeping video without subtitles", "subtitle_burn_failure",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check the subtitle font and ffmpeg libass support"),
				logging.String(logging.FieldImpact, "output has no burned-in subtitles"),
			)
		} else {
			current = burned
		}
	}

	tmp := stage.TempPath(final)
	if err := os.Rename(current, tmp); err != nil {
		return stage.Result{}, fmt.Errorf("stage output: %w", err)
	}
	if err := stage.Commit(tmp, final); err != nil {
		return stage.Result{}, err
	}
	logger.Info("video assembled",
		logging.String("output", final),
		logging.Int("width", width),
		logging.Int("height", height),
	)
	return stage.Result{Summary: "assembled " + j.Title(), Output: final}, nil
}

// frameSize probes the source to derive an even output size. A probe
// failure leaves the size to ffmpeg.
func (a *Assemble) frameSize(ctx context.Context, logger *slog.Logger, video string, cfg config.Assembly) (int, int, float64) {
	if a.deps.Probe == nil {
		return 0, 0, 0
	}
	result, err := a.deps.Probe(ctx, video)
	if err != nil {
		logger.Warn("video probe failed; keeping source size", logging.Error(err))
		return 0, 0, 0
	}
	duration := result.DurationSeconds()
	if math.IsNaN(duration) {
		duration = 0
	}
	aspect, err := result.AspectRatio()
	if err != nil {
		logger.Warn("aspect ratio unavailable; keeping source size", logging.Error(err))
		return 0, 0, duration
	}
	base, err := config.ParseResolution(cfg.Resolution)
	if err != nil {
		return 0, 0, duration
	}
	width, height, err := ffmpeg.TargetSize(aspect, base)
	if err != nil {
		return 0, 0, duration
	}
	return width, height, duration
}

func speedOrOne(v float64) float64 {
	if v <= 0 {
		return 1
	}
	return v
}
