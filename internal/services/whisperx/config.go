package whisperx

import (
	"dubline/internal/config"
)

// Config captures runtime settings for WhisperX operations.
type Config struct {
	// Model is the WhisperX model to use (e.g., "large-v3").
	Model string
	// Device is auto, cpu, cuda or mps.
	Device string
	// BatchSize is forwarded to --batch_size.
	BatchSize int
	// Diarize enables pyannote speaker labels.
	Diarize     bool
	MinSpeakers int
	MaxSpeakers int
	// HFToken is the Hugging Face token for pyannote models.
	HFToken string
}

// FromConfig maps transcription settings.
func FromConfig(cfg config.Transcription) Config {
	return Config{
		Model:       cfg.Model,
		Device:      cfg.Device,
		BatchSize:   cfg.BatchSize,
		Diarize:     cfg.Diarization,
		MinSpeakers: cfg.MinSpeakers,
		MaxSpeakers: cfg.MaxSpeakers,
		HFToken:     cfg.HFToken,
	}
}

// CUDAEnabled reports whether the GPU wheel index is needed.
func (c Config) CUDAEnabled() bool {
	return c.Device == CUDADevice
}

// WhisperX configuration constants.
const (
	DefaultModel      = "large-v3"
	CUDAIndexURL      = "https://download.pytorch.org/whl/cu128"
	PypiIndexURL      = "https://pypi.org/simple"
	DefaultBatchSize  = 32
	ChunkSize         = "15"
	VADOnset          = "0.08"
	VADOffset         = "0.07"
	BeamSize          = "5"
	Temperature       = "0.0"
	SegmentResolution = "sentence"
	OutputFormat      = "json"
	CPUDevice         = "cpu"
	CUDADevice        = "cuda"
	CPUComputeType    = "float32"
	DefaultSpeaker    = "SPEAKER_00"
)

// UVXCommand launches whisperx in an isolated environment.
const UVXCommand = "uvx"
