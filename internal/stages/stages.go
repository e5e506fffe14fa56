package stages

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"dubline/internal/config"
	"dubline/internal/job"
	"dubline/internal/logging"
	"dubline/internal/media/ffmpeg"
	"dubline/internal/media/ffprobe"
	"dubline/internal/models"
	"dubline/internal/services"
	"dubline/internal/services/demucs"
	"dubline/internal/services/llm"
	"dubline/internal/services/tts"
	"dubline/internal/services/whisperx"
	"dubline/internal/services/ytdlp"
	"dubline/internal/stage"
	"dubline/internal/transcript"
)

// Downloader fetches a remote video into dir as <base>.mp4 plus <base>.info.json.
type Downloader interface {
	Download(ctx context.Context, url, dir, base string) (string, error)
}

// Separator splits audio into vocals and accompaniment.
type Separator interface {
	Separate(ctx context.Context, cfg config.Separation, audio, outDir string) (demucs.Stems, error)
}

// Transcriber turns speech into ordered transcript lines.
type Transcriber interface {
	Transcribe(ctx context.Context, cfg whisperx.Config, audio, outDir string) ([]transcript.Line, error)
}

// Media is the subset of ffmpeg operations the stages use.
type Media interface {
	ExtractAudio(ctx context.Context, source, dest string) error
	MixClips(ctx context.Context, background string, clips []ffmpeg.Clip, dest string) error
	Render(ctx context.Context, opts ffmpeg.RenderOptions) error
	AddBackgroundMusic(ctx context.Context, video, music, dest string, videoVolume, musicVolume float64) error
	BurnSubtitles(ctx context.Context, video, srt, dest string, style ffmpeg.SubtitleStyle) error
}

// Prober inspects a media file.
type Prober func(ctx context.Context, path string) (ffprobe.Result, error)

// Dependencies wires the stage handlers to their collaborators.
type Dependencies struct {
	Config      *config.Config
	Models      *models.Manager
	Logger      *slog.Logger
	Downloader  Downloader
	Separator   Separator
	Transcriber Transcriber
	Completer   llm.Completer
	Synthesizer tts.Synthesizer
	Media       Media
	Probe       Prober
	// Sleep paces translation retries; nil uses time.Sleep.
	Sleep func(time.Duration)
}

// NewSet builds the handler for every stage.
func NewSet(deps Dependencies) stage.Set {
	if deps.Logger == nil {
		deps.Logger = logging.NewNop()
	}
	if deps.Probe == nil && deps.Config != nil {
		binary := deps.Config.FFprobeBinary()
		deps.Probe = func(ctx context.Context, path string) (ffprobe.Result, error) {
			return ffprobe.Inspect(ctx, binary, path)
		}
	}
	return stage.Set{
		stage.Download:   &Download{deps: deps, logger: logging.NewComponentLogger(deps.Logger, "download")},
		stage.Separate:   &Separate{deps: deps, logger: logging.NewComponentLogger(deps.Logger, "separate")},
		stage.Transcribe: &Transcribe{deps: deps, logger: logging.NewComponentLogger(deps.Logger, "transcribe")},
		stage.Translate:  &Translate{deps: deps, logger: logging.NewComponentLogger(deps.Logger, "translate")},
		stage.Synthesize: &Synthesize{deps: deps, logger: logging.NewComponentLogger(deps.Logger, "synthesize")},
		stage.Assemble:   &Assemble{deps: deps, logger: logging.NewComponentLogger(deps.Logger, "assemble")},
	}
}

// Toolchain holds the concrete external tool wrappers for a configuration.
type Toolchain struct {
	YtDlp       *ytdlp.Client
	Demucs      *demucs.Service
	WhisperX    *whisperx.Service
	Synthesizer tts.Synthesizer
	FFmpeg      *ffmpeg.Tool
	Completer   llm.Completer
}

// NewToolchain constructs the default wrappers for cfg.
func NewToolchain(cfg *config.Config) (*Toolchain, error) {
	completer, err := llm.New(cfg.Translation)
	if err != nil {
		return nil, err
	}
	synth, err := tts.New(cfg.Synthesis)
	if err != nil {
		return nil, err
	}
	return &Toolchain{
		YtDlp:       ytdlp.New(cfg.Download),
		Demucs:      demucs.New(),
		WhisperX:    whisperx.NewService(),
		Synthesizer: synth,
		FFmpeg:      ffmpeg.New(cfg.FFmpegBinary()),
		Completer:   completer,
	}, nil
}

// Loaders returns the model loaders backed by the toolchain.
func (t *Toolchain) Loaders() map[models.Kind]models.Loader {
	loaders := map[models.Kind]models.Loader{
		models.Separation:    t.Demucs.Loader(),
		models.Transcription: t.WhisperX.Loader(),
		models.Diarization:   t.WhisperX.Loader(),
	}
	if x, ok := t.Synthesizer.(*tts.XTTS); ok {
		loaders[models.Synthesis] = x.Loader()
	}
	return loaders
}

// Dependencies returns stage dependencies using the toolchain.
func (t *Toolchain) Dependencies(cfg *config.Config, manager *models.Manager, logger *slog.Logger) Dependencies {
	return Dependencies{
		Config:      cfg,
		Models:      manager,
		Logger:      logger,
		Downloader:  t.YtDlp,
		Separator:   t.Demucs,
		Transcriber: t.WhisperX,
		Completer:   t.Completer,
		Synthesizer: t.Synthesizer,
		Media:       t.FFmpeg,
	}
}

func existing(j *job.Job, s stage.Stage) (stage.Result, bool) {
	if !stage.Done(j.Dir, s) {
		return stage.Result{}, false
	}
	return stage.Result{Summary: s.Marker() + " already present", Output: stage.MarkerPath(j.Dir, s)}, true
}

func acquire(ctx context.Context, manager *models.Manager, req models.Request) error {
	if manager == nil {
		return nil
	}
	if _, err := manager.Acquire(ctx, req.Kind, req.Config); err != nil {
		return services.Wrap(services.ErrExternalTool, "", "load model", string(req.Kind), err)
	}
	return nil
}

// commitBytes writes data to the marker path through a temporary file.
func commitBytes(final string, data []byte) error {
	tmp := stage.TempPath(final)
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", filepath.Base(final), err)
	}
	return stage.Commit(tmp, final)
}

func nonEmptyFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular() && info.Size() > 0
}

func health(ctx context.Context, name string, v any) stage.Health {
	if checker, ok := v.(stage.HealthChecker); ok {
		return checker.HealthCheck(ctx)
	}
	if v == nil {
		return stage.Unhealthy(name, "not configured")
	}
	return stage.Healthy(name)
}
