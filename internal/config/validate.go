package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateDownload(); err != nil {
		return err
	}
	if err := c.validateModels(); err != nil {
		return err
	}
	if err := c.validateTranslation(); err != nil {
		return err
	}
	if err := c.validateAssembly(); err != nil {
		return err
	}
	if err := c.validateWorkflow(); err != nil {
		return err
	}
	if err := c.validateNotifications(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateDownload() error {
	if c.Download.VideoCount <= 0 {
		return errors.New("download.video_count must be positive")
	}
	if _, err := ParseResolution(c.Download.Resolution); err != nil {
		return fmt.Errorf("download.resolution: %w", err)
	}
	return nil
}

func (c *Config) validateModels() error {
	if c.Separation.Shifts <= 0 {
		return errors.New("separation.shifts must be positive")
	}
	if err := validateDevice("separation.device", c.Separation.Device); err != nil {
		return err
	}
	if c.Transcription.Method != TranscriptionWhisperX {
		return fmt.Errorf("transcription.method: unsupported value %q", c.Transcription.Method)
	}
	if c.Transcription.BatchSize <= 0 {
		return errors.New("transcription.batch_size must be positive")
	}
	if err := validateDevice("transcription.device", c.Transcription.Device); err != nil {
		return err
	}
	if c.Transcription.MinSpeakers < 0 || c.Transcription.MaxSpeakers < 0 {
		return errors.New("transcription speaker bounds must not be negative")
	}
	if c.Transcription.MaxSpeakers > 0 && c.Transcription.MinSpeakers > c.Transcription.MaxSpeakers {
		return errors.New("transcription.min_speakers must not exceed transcription.max_speakers")
	}
	if c.Transcription.Diarization && c.Transcription.HFToken == "" {
		return errors.New("transcription.hf_token is required when diarization is enabled (or set HF_TOKEN)")
	}
	switch c.Synthesis.Method {
	case SynthesisEdgeTTS:
		if c.Synthesis.Voice == "" {
			return errors.New("synthesis.voice must be set for edge-tts")
		}
	case SynthesisXTTS:
		if err := validateDevice("synthesis.device", c.Synthesis.Device); err != nil {
			return err
		}
	default:
		return fmt.Errorf("synthesis.method: unsupported value %q", c.Synthesis.Method)
	}
	return nil
}

func (c *Config) validateTranslation() error {
	t := c.Translation
	switch t.Method {
	case TranslationOpenRouter, TranslationOpenAI, TranslationAnthropic:
		if t.APIKey == "" {
			return fmt.Errorf("translation.api_key is required for method %q (or set %s)", t.Method, apiKeyEnv(t.Method))
		}
	case TranslationOllama:
		if t.Model == "" {
			return errors.New("translation.model is required for ollama")
		}
	case TranslationLibreTranslate:
	default:
		return fmt.Errorf("translation.method: unsupported value %q", t.Method)
	}
	if t.MaxRetries <= 0 {
		return errors.New("translation.max_retries must be positive")
	}
	return nil
}

func (c *Config) validateAssembly() error {
	a := c.Assembly
	if a.SpeedUp <= 0 || a.SpeedUp > 2 {
		return errors.New("assembly.speed_up must be within (0, 2]")
	}
	if a.FPS <= 0 {
		return errors.New("assembly.fps must be positive")
	}
	if _, err := ParseResolution(a.Resolution); err != nil {
		return fmt.Errorf("assembly.resolution: %w", err)
	}
	if a.BGMVolume < 0 || a.VideoVolume < 0 {
		return errors.New("assembly volumes must not be negative")
	}
	return nil
}

func (c *Config) validateWorkflow() error {
	w := c.Workflow
	if w.MaxAttempts <= 0 {
		return errors.New("workflow.max_attempts must be positive")
	}
	if w.RetryBaseDelaySeconds < 0 || w.RetryMaxDelaySeconds < 0 {
		return errors.New("workflow retry delays must not be negative")
	}
	if w.RetryMaxDelaySeconds > 0 && w.RetryBaseDelaySeconds > w.RetryMaxDelaySeconds {
		return errors.New("workflow.retry_base_delay_seconds must not exceed workflow.retry_max_delay_seconds")
	}
	return nil
}

func (c *Config) validateNotifications() error {
	topic := c.Notifications.NtfyTopic
	if topic != "" && !strings.HasPrefix(topic, "http://") && !strings.HasPrefix(topic, "https://") {
		return fmt.Errorf("notifications.ntfy_topic must be an http(s) URL, got %q", topic)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	return nil
}

func validateDevice(field, value string) error {
	switch value {
	case "auto", "cpu", "cuda", "mps":
		return nil
	default:
		return fmt.Errorf("%s: unsupported value %q", field, value)
	}
}

// ParseResolution converts a "1080p" style value to its pixel height.
func ParseResolution(value string) (int, error) {
	trimmed := strings.TrimSuffix(strings.ToLower(strings.TrimSpace(value)), "p")
	height, err := strconv.Atoi(trimmed)
	if err != nil || height <= 0 {
		return 0, fmt.Errorf("invalid resolution %q", value)
	}
	return height, nil
}
