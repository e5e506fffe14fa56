package models

import (
	"strconv"

	"dubline/internal/config"
)

// Requirements lists the models implied by the configured methods. Separation
// is always needed; transcription and diarization follow the transcription
// method; only the xtts synthesis method keeps a resident model.
func Requirements(cfg *config.Config) []Request {
	if cfg == nil {
		return nil
	}
	reqs := []Request{SeparationRequest(cfg.Separation)}
	if cfg.Transcription.Method == config.TranscriptionWhisperX {
		reqs = append(reqs, TranscriptionRequest(cfg.Transcription))
		if cfg.Transcription.Diarization {
			reqs = append(reqs, DiarizationRequest(cfg.Transcription))
		}
	}
	if cfg.Synthesis.Method == config.SynthesisXTTS {
		reqs = append(reqs, SynthesisRequest(cfg.Synthesis))
	}
	return reqs
}

// SeparationRequest describes the separation model for cfg.
func SeparationRequest(cfg config.Separation) Request {
	return Request{Kind: Separation, Config: Config{
		Method: "demucs",
		Model:  cfg.Model,
		Device: cfg.Device,
		Params: map[string]string{"shifts": strconv.Itoa(cfg.Shifts)},
	}}
}

// TranscriptionRequest describes the speech recognition model for cfg.
func TranscriptionRequest(cfg config.Transcription) Request {
	return Request{Kind: Transcription, Config: Config{
		Method: cfg.Method,
		Model:  cfg.Model,
		Device: cfg.Device,
		Params: map[string]string{"batch_size": strconv.Itoa(cfg.BatchSize)},
	}}
}

// DiarizationRequest describes the speaker diarization model for cfg.
func DiarizationRequest(cfg config.Transcription) Request {
	return Request{Kind: Diarization, Config: Config{
		Method: "pyannote",
		Model:  "pyannote/speaker-diarization-3.1",
		Device: cfg.Device,
		Params: map[string]string{
			"min_speakers": strconv.Itoa(cfg.MinSpeakers),
			"max_speakers": strconv.Itoa(cfg.MaxSpeakers),
			"hf_token":     cfg.HFToken,
		},
	}}
}

// SynthesisRequest describes the speech synthesis model for cfg.
func SynthesisRequest(cfg config.Synthesis) Request {
	return Request{Kind: Synthesis, Config: Config{
		Method: cfg.Method,
		Model:  cfg.Model,
		Device: cfg.Device,
	}}
}
