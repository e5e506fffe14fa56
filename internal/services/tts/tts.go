package tts

import (
	"context"
	"fmt"
	"os"
	"strings"

	"dubline/internal/config"
	"dubline/internal/language"
	"dubline/internal/models"
	"dubline/internal/services"
	"dubline/internal/stage"
)

// Request is one utterance to synthesize.
type Request struct {
	Text string
	// Reference is a recording of the original speaker (XTTS only).
	Reference string
	Output    string
}

// Synthesizer renders speech to a file.
type Synthesizer interface {
	Synthesize(ctx context.Context, req Request) error
	// Extension is the file extension (with dot) of produced clips.
	Extension() string
	HealthCheck(ctx context.Context) stage.Health
}

// Option configures a backend.
type Option func(*options)

type options struct {
	exec services.Executor
}

// WithExecutor injects a custom executor (primarily for tests).
func WithExecutor(exec services.Executor) Option {
	return func(o *options) {
		if exec != nil {
			o.exec = exec
		}
	}
}

// New selects the backend named by cfg.Method.
func New(cfg config.Synthesis, opts ...Option) (Synthesizer, error) {
	o := options{exec: services.CommandExecutor{}}
	for _, opt := range opts {
		opt(&o)
	}
	switch cfg.Method {
	case config.SynthesisEdgeTTS, "":
		return newEdge(cfg, o.exec), nil
	case config.SynthesisXTTS:
		return newXTTS(cfg, o.exec), nil
	default:
		return nil, services.Wrap(services.ErrConfiguration, "synthesize", "select backend", fmt.Sprintf("unknown synthesis method %q", cfg.Method), nil)
	}
}

// EdgeTTS drives the edge-tts CLI.
type EdgeTTS struct {
	binary string
	voice  string
	exec   services.Executor
}

const edgeFallbackVoice = "en-US-JennyNeural"

func newEdge(cfg config.Synthesis, exec services.Executor) *EdgeTTS {
	voice := strings.TrimSpace(cfg.Voice)
	if voice == "" {
		voice = language.DefaultVoice(cfg.Language)
	}
	if voice == "" {
		voice = edgeFallbackVoice
	}
	return &EdgeTTS{binary: "edge-tts", voice: voice, exec: exec}
}

// Voice returns the selected voice.
func (e *EdgeTTS) Voice() string { return e.voice }

// Extension implements Synthesizer.
func (e *EdgeTTS) Extension() string { return ".mp3" }

// HealthCheck implements Synthesizer.
func (e *EdgeTTS) HealthCheck(context.Context) stage.Health {
	if err := services.LookPath(e.binary); err != nil {
		return stage.Unhealthy("edge-tts", err.Error())
	}
	return stage.Healthy("edge-tts")
}

// Synthesize implements Synthesizer.
func (e *EdgeTTS) Synthesize(ctx context.Context, req Request) error {
	args := []string{"--text", req.Text, "--write-media", req.Output, "--voice", e.voice}
	if _, err := e.exec.Run(ctx, e.binary, args, nil); err != nil {
		return services.Wrap(services.ErrExternalTool, "synthesize", "edge-tts", e.voice, err)
	}
	return checkOutput(req.Output)
}

// XTTS drives Coqui's `tts` CLI with speaker cloning.
type XTTS struct {
	binary   string
	model    string
	language string
	device   string
	exec     services.Executor
}

const defaultXTTSModel = "tts_models/multilingual/multi-dataset/xtts_v2"

func newXTTS(cfg config.Synthesis, exec services.Executor) *XTTS {
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = defaultXTTSModel
	}
	return &XTTS{binary: "tts", model: model, language: XTTSLanguage(cfg.Language), device: cfg.Device, exec: exec}
}

// XTTSLanguage maps a language name or code to the identifiers XTTS accepts.
func XTTSLanguage(value string) string {
	code := language.ToISO2(value)
	switch code {
	case "zh":
		return "zh-cn"
	case "":
		return "en"
	default:
		return code
	}
}

// Loader verifies the tts CLI for the model lifecycle manager.
func (x *XTTS) Loader() models.Loader {
	return models.CommandLoader(x.binary, func(context.Context, models.Config) error {
		return services.LookPath(x.binary)
	})
}

// Extension implements Synthesizer.
func (x *XTTS) Extension() string { return ".wav" }

// HealthCheck implements Synthesizer.
func (x *XTTS) HealthCheck(context.Context) stage.Health {
	if err := services.LookPath(x.binary); err != nil {
		return stage.Unhealthy("xtts", err.Error())
	}
	return stage.Healthy("xtts")
}

// Synthesize implements Synthesizer.
func (x *XTTS) Synthesize(ctx context.Context, req Request) error {
	if strings.TrimSpace(req.Reference) == "" {
		return services.Wrap(services.ErrValidation, "synthesize", "xtts", "speaker reference required", nil)
	}
	args := []string{
		"--model_name", x.model,
		"--text", req.Text,
		"--speaker_wav", req.Reference,
		"--language_idx", x.language,
		"--out_path", req.Output,
	}
	if x.device == "cuda" {
		args = append(args, "--use_cuda", "true")
	}
	if _, err := x.exec.Run(ctx, x.binary, args, []string{"COQUI_TOS_AGREED=1"}); err != nil {
		return services.Wrap(services.ErrExternalTool, "synthesize", "xtts", x.model, err)
	}
	return checkOutput(req.Output)
}

func checkOutput(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return services.Wrap(services.ErrValidation, "synthesize", "check output", "no audio written", err)
	}
	if info.Size() == 0 {
		return services.Wrap(services.ErrValidation, "synthesize", "check output", "empty audio file", nil)
	}
	return nil
}
