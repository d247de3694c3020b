package config

import "time"

// DefaultConfig returns the configuration written on first run.
func DefaultConfig() *Config {
	return &Config{
		Capture: CaptureConfig{
			Backend:           "pipewire",
			Device:            "",
			SampleRate:        48000,
			Channels:          2,
			Encoding:          "s16le",
			BufferSize:        8192,
			ChannelBufferSize: 30,
		},
		Segmenter: SegmenterConfig{
			MinChunk:     3 * time.Second,
			MaxChunk:     30 * time.Second,
			PollInterval: 200 * time.Millisecond,
		},
		Transcription: TranscriptionConfig{
			Backend:       "openai",
			Provider:      "openai",
			Model:         "whisper-1",
			Language:      "",
			Timeout:       30 * time.Second,
			MaxConcurrent: 0,
			Threads:       0,
			Retry: RetryConfig{
				MaxAttempts:    1,
				InitialBackoff: 500 * time.Millisecond,
				MaxBackoff:     5 * time.Second,
			},
		},
		Output: OutputConfig{
			Ordered:        false,
			ReorderTimeout: 10 * time.Second,
			DisposeTimeout: 5 * time.Second,
		},
		Translation: TranslationConfig{
			Enabled:        false,
			TargetLanguage: "es",
			Provider:       "openai",
			Timeout:        10 * time.Second,
		},
		Notifications: NotificationsConfig{
			Enabled: false,
			Type:    "desktop",
		},
		Server: ServerConfig{
			Enabled: false,
			Listen:  "127.0.0.1:8765",
		},
		Log: LogConfig{
			Level:  "info",
			Pretty: true,
		},
		Providers: make(map[string]ProviderConfig),
	}
}
