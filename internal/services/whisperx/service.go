package whisperx

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"dubline/internal/models"
	"dubline/internal/services"
	"dubline/internal/stage"
	"dubline/internal/transcript"
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

// Service provides WhisperX transcription capabilities.
type Service struct {
	binary string
	exec   services.Executor
}

// NewService creates a WhisperX service.
func NewService(opts ...Option) *Service {
	s := &Service{binary: UVXCommand, exec: services.CommandExecutor{}}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Loader verifies uvx for the transcription and diarization kinds. The
// diarization model additionally needs a Hugging Face token.
func (s *Service) Loader() models.Loader {
	return models.CommandLoader(s.binary, func(_ context.Context, cfg models.Config) error {
		if cfg.Method == "pyannote" && strings.TrimSpace(cfg.Params["hf_token"]) == "" {
			return services.Wrap(services.ErrConfiguration, "transcribe", "diarization", "hf_token required for pyannote", nil)
		}
		return services.LookPath(s.binary)
	})
}

// HealthCheck reports whether uvx is installed.
func (s *Service) HealthCheck(context.Context) stage.Health {
	if err := services.LookPath(s.binary); err != nil {
		return stage.Unhealthy("whisperx", err.Error())
	}
	return stage.Healthy("whisperx")
}

// run executes a command with the torch loading workaround.
func (s *Service) run(ctx context.Context, args []string) error {
	var env []string
	// Torch 2.6 changed torch.load default to weights_only=true, breaking WhisperX/pyannote.
	if os.Getenv("TORCH_FORCE_NO_WEIGHTS_ONLY_LOAD") == "" {
		env = append(env, "TORCH_FORCE_NO_WEIGHTS_ONLY_LOAD=1")
	}
	_, err := s.exec.Run(ctx, s.binary, args, env)
	return err
}

// Transcribe runs WhisperX on audio and returns transcript lines ordered by
// start time. outputDir receives the raw WhisperX JSON.
func (s *Service) Transcribe(ctx context.Context, cfg Config, audio, outputDir string) ([]transcript.Line, error) {
	if audio == "" {
		return nil, fmt.Errorf("transcribe: source path required")
	}
	if outputDir == "" {
		outputDir = filepath.Dir(audio)
	}
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, fmt.Errorf("transcribe: ensure output dir: %w", err)
	}
	if err := s.run(ctx, BuildArgs(cfg, audio, outputDir)); err != nil {
		return nil, services.Wrap(services.ErrExternalTool, "transcribe", "whisperx", cfg.Model, err)
	}
	baseName := strings.TrimSuffix(filepath.Base(audio), filepath.Ext(audio))
	segments, err := LoadSegments(filepath.Join(outputDir, baseName+".json"))
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, "transcribe", "whisperx", "read output", err)
	}
	return Lines(segments), nil
}

// BuildArgs constructs the uvx command arguments for WhisperX.
func BuildArgs(cfg Config, source, outputDir string) []string {
	args := make([]string, 0, 40)

	if cfg.CUDAEnabled() {
		args = append(args,
			"--index-url", CUDAIndexURL,
			"--extra-index-url", PypiIndexURL,
		)
	} else {
		args = append(args, "--index-url", PypiIndexURL)
	}

	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}
	batch := cfg.BatchSize
	if batch <= 0 {
		batch = DefaultBatchSize
	}

	args = append(args,
		"whisperx",
		source,
		"--model", model,
		"--batch_size", strconv.Itoa(batch),
		"--output_dir", outputDir,
		"--output_format", OutputFormat,
		"--segment_resolution", SegmentResolution,
		"--chunk_size", ChunkSize,
		"--vad_onset", VADOnset,
		"--vad_offset", VADOffset,
		"--beam_size", BeamSize,
		"--temperature", Temperature,
	)

	if cfg.Diarize {
		args = append(args, "--diarize")
		if cfg.MinSpeakers > 0 {
			args = append(args, "--min_speakers", strconv.Itoa(cfg.MinSpeakers))
		}
		if cfg.MaxSpeakers > 0 {
			args = append(args, "--max_speakers", strconv.Itoa(cfg.MaxSpeakers))
		}
		if cfg.HFToken != "" {
			args = append(args, "--hf_token", cfg.HFToken)
		}
	}

	switch cfg.Device {
	case CUDADevice:
		args = append(args, "--device", CUDADevice)
	case "", "auto":
		args = append(args, "--compute_type", CPUComputeType)
	default:
		args = append(args, "--device", cfg.Device, "--compute_type", CPUComputeType)
	}

	return args
}

// Segment represents a transcribed segment from WhisperX JSON output.
type Segment struct {
	Text    string  `json:"text"`
	Start   float64 `json:"start"`
	End     float64 `json:"end"`
	Speaker string  `json:"speaker"`
}

type whisperXPayload struct {
	Segments []Segment `json:"segments"`
}

// LoadSegments loads segments from a WhisperX JSON file.
func LoadSegments(jsonPath string) ([]Segment, error) {
	data, err := os.ReadFile(jsonPath)
	if err != nil {
		return nil, err
	}
	var payload whisperXPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("parse whisperx json: %w", err)
	}
	return payload.Segments, nil
}

// Lines converts segments into transcript lines, dropping blank text and
// filling in a default speaker label.
func Lines(segments []Segment) []transcript.Line {
	lines := make([]transcript.Line, 0, len(segments))
	for _, seg := range segments {
		text := strings.TrimSpace(seg.Text)
		if text == "" {
			continue
		}
		speaker := strings.TrimSpace(seg.Speaker)
		if speaker == "" {
			speaker = DefaultSpeaker
		}
		lines = append(lines, transcript.Line{
			Start:   round3(seg.Start),
			End:     round3(seg.End),
			Speaker: speaker,
			Text:    text,
		})
	}
	transcript.Sort(lines)
	return lines
}

func round3(v float64) float64 {
	return float64(int64(v*1000+0.5)) / 1000
}
