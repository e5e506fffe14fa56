package config

const (
	defaultWorkDir             = "~/dubline/videos"
	defaultStateDir            = "~/.local/share/dubline"
	defaultLogDir              = "~/.local/share/dubline/logs"
	defaultVideoCount          = 5
	defaultResolution          = "1080p"
	defaultYtDlpBinary         = "yt-dlp"
	defaultInfoTimeout         = 120
	defaultFetchTimeout        = 3600
	defaultSeparationModel     = "htdemucs_ft"
	defaultDevice              = "auto"
	defaultSeparationShifts    = 5
	defaultWhisperXModel       = "large-v3"
	defaultWhisperXBatchSize   = 32
	defaultTargetLanguage      = "English"
	defaultNtfyTimeout         = 10
	defaultOpenRouterBaseURL   = "https://openrouter.ai/api/v1/chat/completions"
	defaultOpenRouterModel     = "google/gemini-3-flash-preview"
	defaultOllamaBaseURL       = "http://localhost:11434"
	defaultLibreTranslateURL   = "http://localhost:5000"
	defaultReferer             = "https://github.com/dubline/dubline"
	defaultTitle               = "dubline"
	defaultHistorySize         = 30
	defaultTranslationRetries  = 10
	defaultRetryDelayMS        = 1000
	defaultLLMTimeoutSeconds   = 60
	defaultVoice               = "en-US-JennyNeural"
	defaultXTTSModel           = "tts_models/multilingual/multi-dataset/xtts_v2"
	defaultFPS                 = 30
	defaultBGMVolume           = 0.5
	defaultVideoVolume         = 1.0
	defaultFontName            = "SimHei"
	defaultMaxAttempts         = 5
	defaultRetryBaseDelay      = 5
	defaultRetryMaxDelay       = 60
	defaultLogFormat           = "console"
	defaultLogLevel            = "info"
	defaultSynthesisMethod     = SynthesisEdgeTTS
	defaultTranslationMethod   = TranslationOpenRouter
	defaultTranscriptionMethod = TranscriptionWhisperX
)

// Translation backends.
const (
	TranslationOpenRouter     = "openrouter"
	TranslationOpenAI         = "openai"
	TranslationOllama         = "ollama"
	TranslationAnthropic      = "anthropic"
	TranslationLibreTranslate = "libretranslate"
)

// Transcription backends.
const (
	TranscriptionWhisperX = "whisperx"
)

// Synthesis backends.
const (
	SynthesisEdgeTTS = "edge-tts"
	SynthesisXTTS    = "xtts"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			WorkDir:  defaultWorkDir,
			StateDir: defaultStateDir,
			LogDir:   defaultLogDir,
		},
		Download: Download{
			VideoCount:   defaultVideoCount,
			Resolution:   defaultResolution,
			YtDlpBinary:  defaultYtDlpBinary,
			InfoTimeout:  defaultInfoTimeout,
			FetchTimeout: defaultFetchTimeout,
		},
		Separation: Separation{
			Model:  defaultSeparationModel,
			Device: defaultDevice,
			Shifts: defaultSeparationShifts,
		},
		Transcription: Transcription{
			Method:    defaultTranscriptionMethod,
			Model:     defaultWhisperXModel,
			BatchSize: defaultWhisperXBatchSize,
			Device:    defaultDevice,
		},
		Translation: Translation{
			Method:         defaultTranslationMethod,
			TargetLanguage: defaultTargetLanguage,
			Referer:        defaultReferer,
			Title:          defaultTitle,
			HistorySize:    defaultHistorySize,
			MaxRetries:     defaultTranslationRetries,
			RetryDelayMS:   defaultRetryDelayMS,
			TimeoutSeconds: defaultLLMTimeoutSeconds,
		},
		Synthesis: Synthesis{
			Method:   defaultSynthesisMethod,
			Language: defaultTargetLanguage,
			Model:    defaultXTTSModel,
			Device:   defaultDevice,
		},
		Assembly: Assembly{
			Subtitles:   true,
			SpeedUp:     1.0,
			FPS:         defaultFPS,
			Resolution:  defaultResolution,
			BGMVolume:   defaultBGMVolume,
			VideoVolume: defaultVideoVolume,
			FontName:    defaultFontName,
		},
		Workflow: Workflow{
			MaxAttempts:           defaultMaxAttempts,
			RetryBaseDelaySeconds: defaultRetryBaseDelay,
			RetryMaxDelaySeconds:  defaultRetryMaxDelay,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNtfyTimeout,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
