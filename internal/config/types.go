package config

import "time"

type Config struct {
	Capture       CaptureConfig             `toml:"capture"`
	Segmenter     SegmenterConfig           `toml:"segmenter"`
	Transcription TranscriptionConfig       `toml:"transcription"`
	Output        OutputConfig              `toml:"output"`
	Translation   TranslationConfig         `toml:"translation"`
	Notifications NotificationsConfig       `toml:"notifications"`
	Server        ServerConfig              `toml:"server"`
	Log           LogConfig                 `toml:"log"`
	Providers     map[string]ProviderConfig `toml:"providers"`
}

// ProviderConfig holds API key for a provider
type ProviderConfig struct {
	APIKey string `toml:"api_key"`
}

type CaptureConfig struct {
	Backend           string `toml:"backend"` // "pipewire" or "pulse"
	Device            string `toml:"device"`  // sink or monitor name, empty for the default
	SampleRate        int    `toml:"sample_rate"`
	Channels          int    `toml:"channels"`
	Encoding          string `toml:"encoding"`
	BufferSize        int    `toml:"buffer_size"`
	ChannelBufferSize int    `toml:"channel_buffer_size"`
}

type SegmenterConfig struct {
	MinChunk     time.Duration `toml:"min_chunk"`
	MaxChunk     time.Duration `toml:"max_chunk"`
	PollInterval time.Duration `toml:"poll_interval"`
}

type TranscriptionConfig struct {
	Backend       string        `toml:"backend"` // "openai", "http" or "whisper.cpp"
	Provider      string        `toml:"provider"`
	Endpoint      string        `toml:"endpoint"`
	APIKey        string        `toml:"api_key"`
	Model         string        `toml:"model"`
	Language      string        `toml:"language"`
	Prompt        string        `toml:"prompt"`
	Translate     bool          `toml:"translate"`
	Timeout       time.Duration `toml:"timeout"`
	MaxConcurrent int           `toml:"max_concurrent"`
	ModelPath     string        `toml:"model_path"`
	Threads       int           `toml:"threads"` // whisper.cpp CPU threads (0 = auto: NumCPU-1)
	Retry         RetryConfig   `toml:"retry"`
}

type RetryConfig struct {
	MaxAttempts    int           `toml:"max_attempts"`
	InitialBackoff time.Duration `toml:"initial_backoff"`
	MaxBackoff     time.Duration `toml:"max_backoff"`
}

type OutputConfig struct {
	Ordered        bool          `toml:"ordered"`
	ReorderTimeout time.Duration `toml:"reorder_timeout"`
	DisposeTimeout time.Duration `toml:"dispose_timeout"`
}

// TranslationConfig rewrites segment text into another language before display.
type TranslationConfig struct {
	Enabled        bool          `toml:"enabled"`
	TargetLanguage string        `toml:"target_language"`
	Provider       string        `toml:"provider"`
	Model          string        `toml:"model"`
	Timeout        time.Duration `toml:"timeout"`
}

type NotificationsConfig struct {
	Enabled bool   `toml:"enabled"`
	Type    string `toml:"type"` // "desktop", "log", "none"
}

type ServerConfig struct {
	Enabled bool   `toml:"enabled"`
	Listen  string `toml:"listen"`
}

type LogConfig struct {
	Level  string `toml:"level"`
	Pretty bool   `toml:"pretty"`
}
