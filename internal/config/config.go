package config

// Paths contains directory configuration.
type Paths struct {
	WorkDir  string `toml:"work_dir"`
	StateDir string `toml:"state_dir"`
	LogDir   string `toml:"log_dir"`
}

// Download contains remote source resolution settings.
type Download struct {
	VideoCount   int    `toml:"video_count"`
	Resolution   string `toml:"resolution"`
	YtDlpBinary  string `toml:"ytdlp_binary"`
	CookiesFile  string `toml:"cookies_file"`
	InfoTimeout  int    `toml:"info_timeout"`
	FetchTimeout int    `toml:"fetch_timeout"`
}

// Separation contains vocal/instrument separation model settings.
type Separation struct {
	Model  string `toml:"model"`
	Device string `toml:"device"`
	Shifts int    `toml:"shifts"`
}

// Transcription contains speech recognition settings.
type Transcription struct {
	Method      string `toml:"method"`
	Model       string `toml:"model"`
	BatchSize   int    `toml:"batch_size"`
	Device      string `toml:"device"`
	Diarization bool   `toml:"diarization"`
	MinSpeakers int    `toml:"min_speakers"`
	MaxSpeakers int    `toml:"max_speakers"`
	HFToken     string `toml:"hf_token"`
}

// Translation contains language-model translation settings.
type Translation struct {
	Method         string `toml:"method"`
	TargetLanguage string `toml:"target_language"`
	Model          string `toml:"model"`
	BaseURL        string `toml:"base_url"`
	APIKey         string `toml:"api_key"`
	Referer        string `toml:"referer"`
	Title          string `toml:"title"`
	HistorySize    int    `toml:"history_size"`
	MaxRetries     int    `toml:"max_retries"`
	RetryDelayMS   int    `toml:"retry_delay_ms"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Synthesis contains speech synthesis settings.
type Synthesis struct {
	Method   string `toml:"method"`
	Language string `toml:"language"`
	Voice    string `toml:"voice"`
	Model    string `toml:"model"`
	Device   string `toml:"device"`
}

// Assembly contains final video rendering settings.
type Assembly struct {
	Subtitles       bool    `toml:"subtitles"`
	SpeedUp         float64 `toml:"speed_up"`
	FPS             int     `toml:"fps"`
	Resolution      string  `toml:"resolution"`
	BackgroundMusic string  `toml:"background_music"`
	BGMVolume       float64 `toml:"bgm_volume"`
	VideoVolume     float64 `toml:"video_volume"`
	FontDir         string  `toml:"font_dir"`
	FontName        string  `toml:"font_name"`
}

// Workflow contains per-job retry settings.
type Workflow struct {
	MaxAttempts           int `toml:"max_attempts"`
	RetryBaseDelaySeconds int `toml:"retry_base_delay_seconds"`
	RetryMaxDelaySeconds  int `toml:"retry_max_delay_seconds"`
}

// Notifications contains ntfy delivery settings. An empty topic disables them.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
	File   string `toml:"file"`
}

// Config encapsulates all configuration values for dubline.
//
// Configuration sections by stage:
//   - Paths: job working root, run history and log directories
//   - Download: yt-dlp resolution and list expansion
//   - Separation: demucs model selection
//   - Transcription: WhisperX and diarization
//   - Translation: language-model backend and retry ceiling
//   - Synthesis: speech synthesis backend and voice
//   - Assembly: ffmpeg rendering options
//   - Workflow: job-level attempts and backoff
//   - Notifications: ntfy topic for run completion
//   - Logging: log format and level
type Config struct {
	Paths         Paths         `toml:"paths"`
	Download      Download      `toml:"download"`
	Separation    Separation    `toml:"separation"`
	Transcription Transcription `toml:"transcription"`
	Translation   Translation   `toml:"translation"`
	Synthesis     Synthesis     `toml:"synthesis"`
	Assembly      Assembly      `toml:"assembly"`
	Workflow      Workflow      `toml:"workflow"`
	Notifications Notifications `toml:"notifications"`
	Logging       Logging       `toml:"logging"`
}
