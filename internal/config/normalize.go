package config

import (
	"fmt"
	"os"
	"strings"

	"dubline/internal/language"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeDownload()
	c.normalizeTranslation()
	c.normalizeModels()
	c.normalizeAssembly()
	c.normalizeNotifications()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.WorkDir, err = ExpandPath(c.Paths.WorkDir); err != nil {
		return fmt.Errorf("paths.work_dir: %w", err)
	}
	if c.Paths.StateDir, err = ExpandPath(c.Paths.StateDir); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	if c.Paths.LogDir, err = ExpandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if c.Logging.File != "" {
		if c.Logging.File, err = ExpandPath(c.Logging.File); err != nil {
			return fmt.Errorf("logging.file: %w", err)
		}
	}
	if c.Assembly.BackgroundMusic != "" {
		if c.Assembly.BackgroundMusic, err = ExpandPath(c.Assembly.BackgroundMusic); err != nil {
			return fmt.Errorf("assembly.background_music: %w", err)
		}
	}
	if c.Assembly.FontDir != "" {
		if c.Assembly.FontDir, err = ExpandPath(c.Assembly.FontDir); err != nil {
			return fmt.Errorf("assembly.font_dir: %w", err)
		}
	}
	return nil
}

func (c *Config) normalizeDownload() {
	c.Download.Resolution = strings.ToLower(strings.TrimSpace(c.Download.Resolution))
	if c.Download.Resolution == "" {
		c.Download.Resolution = defaultResolution
	}
	c.Download.YtDlpBinary = strings.TrimSpace(c.Download.YtDlpBinary)
	if c.Download.YtDlpBinary == "" {
		c.Download.YtDlpBinary = defaultYtDlpBinary
	}
	if c.Download.InfoTimeout <= 0 {
		c.Download.InfoTimeout = defaultInfoTimeout
	}
	if c.Download.FetchTimeout <= 0 {
		c.Download.FetchTimeout = defaultFetchTimeout
	}
}

func (c *Config) normalizeModels() {
	c.Separation.Model = strings.TrimSpace(c.Separation.Model)
	if c.Separation.Model == "" {
		c.Separation.Model = defaultSeparationModel
	}
	c.Separation.Device = normalizeDevice(c.Separation.Device)
	c.Transcription.Method = strings.ToLower(strings.TrimSpace(c.Transcription.Method))
	if c.Transcription.Method == "" {
		c.Transcription.Method = defaultTranscriptionMethod
	}
	c.Transcription.Device = normalizeDevice(c.Transcription.Device)
	c.Transcription.HFToken = strings.TrimSpace(c.Transcription.HFToken)
	if c.Transcription.HFToken == "" {
		if value, ok := os.LookupEnv("HUGGING_FACE_HUB_TOKEN"); ok {
			c.Transcription.HFToken = strings.TrimSpace(value)
		} else if value, ok := os.LookupEnv("HF_TOKEN"); ok {
			c.Transcription.HFToken = strings.TrimSpace(value)
		}
	}
	c.Synthesis.Method = strings.ToLower(strings.TrimSpace(c.Synthesis.Method))
	if c.Synthesis.Method == "" {
		c.Synthesis.Method = defaultSynthesisMethod
	}
	c.Synthesis.Device = normalizeDevice(c.Synthesis.Device)
	c.Synthesis.Voice = strings.TrimSpace(c.Synthesis.Voice)
	if strings.TrimSpace(c.Synthesis.Language) == "" {
		c.Synthesis.Language = c.Translation.TargetLanguage
	}
	if c.Synthesis.Voice == "" {
		c.Synthesis.Voice = language.DefaultVoice(c.Synthesis.Language)
	}
	if c.Synthesis.Voice == "" {
		c.Synthesis.Voice = defaultVoice
	}
}

func (c *Config) normalizeTranslation() {
	t := &c.Translation
	t.Method = strings.ToLower(strings.TrimSpace(t.Method))
	switch t.Method {
	case "", "llm":
		t.Method = TranslationOpenRouter
	case "google", "bing", "google translate", "bing translate":
		t.Method = TranslationLibreTranslate
	}
	t.TargetLanguage = strings.TrimSpace(t.TargetLanguage)
	if t.TargetLanguage == "" {
		t.TargetLanguage = defaultTargetLanguage
	}
	t.APIKey = strings.TrimSpace(t.APIKey)
	if t.APIKey == "" {
		if env := apiKeyEnv(t.Method); env != "" {
			if value, ok := os.LookupEnv(env); ok {
				t.APIKey = strings.TrimSpace(value)
			}
		}
	}
	t.BaseURL = strings.TrimSpace(t.BaseURL)
	if t.BaseURL == "" {
		switch t.Method {
		case TranslationOpenRouter:
			t.BaseURL = defaultOpenRouterBaseURL
		case TranslationOllama:
			t.BaseURL = defaultOllamaBaseURL
		case TranslationLibreTranslate:
			t.BaseURL = defaultLibreTranslateURL
		}
	}
	t.Model = strings.TrimSpace(t.Model)
	if t.Model == "" && t.Method == TranslationOpenRouter {
		t.Model = defaultOpenRouterModel
	}
	if t.HistorySize < 0 {
		t.HistorySize = 0
	}
	if t.RetryDelayMS < 0 {
		t.RetryDelayMS = 0
	}
	if t.TimeoutSeconds <= 0 {
		t.TimeoutSeconds = defaultLLMTimeoutSeconds
	}
}

func (c *Config) normalizeAssembly() {
	c.Assembly.Resolution = strings.ToLower(strings.TrimSpace(c.Assembly.Resolution))
	if c.Assembly.Resolution == "" {
		c.Assembly.Resolution = c.Download.Resolution
	}
	if c.Assembly.SpeedUp == 0 {
		c.Assembly.SpeedUp = 1.0
	}
	if strings.TrimSpace(c.Assembly.FontName) == "" {
		c.Assembly.FontName = defaultFontName
	}
}

func (c *Config) normalizeNotifications() {
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.RequestTimeout <= 0 {
		c.Notifications.RequestTimeout = defaultNtfyTimeout
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}

func normalizeDevice(value string) string {
	value = strings.ToLower(strings.TrimSpace(value))
	if value == "" {
		return defaultDevice
	}
	return value
}

func apiKeyEnv(method string) string {
	switch method {
	case TranslationOpenRouter:
		return "OPENROUTER_API_KEY"
	case TranslationOpenAI:
		return "OPENAI_API_KEY"
	case TranslationAnthropic:
		return "ANTHROPIC_API_KEY"
	case TranslationLibreTranslate:
		return "LIBRETRANSLATE_API_KEY"
	default:
		return ""
	}
}
