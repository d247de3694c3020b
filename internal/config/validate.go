package config

import (
	"fmt"

	"github.com/leonardotrapani/livecc/internal/audio"
	"github.com/leonardotrapani/livecc/internal/language"
	"github.com/leonardotrapani/livecc/internal/logging"
	"github.com/leonardotrapani/livecc/internal/provider"
)

func (c *Config) Validate() error {
	switch c.Capture.Backend {
	case "pipewire", "pulse":
	default:
		return fmt.Errorf("invalid capture.backend: %s (must be pipewire or pulse)", c.Capture.Backend)
	}
	if c.Capture.SampleRate <= 0 {
		return fmt.Errorf("invalid capture.sample_rate: %d", c.Capture.SampleRate)
	}
	if c.Capture.Channels <= 0 {
		return fmt.Errorf("invalid capture.channels: %d", c.Capture.Channels)
	}
	if _, err := audio.ParseEncoding(c.Capture.Encoding); err != nil {
		return fmt.Errorf("invalid capture.encoding: %w", err)
	}
	if c.Capture.BufferSize <= 0 {
		return fmt.Errorf("invalid capture.buffer_size: %d", c.Capture.BufferSize)
	}
	if c.Capture.ChannelBufferSize <= 0 {
		return fmt.Errorf("invalid capture.channel_buffer_size: %d", c.Capture.ChannelBufferSize)
	}

	if c.Segmenter.MinChunk <= 0 {
		return fmt.Errorf("invalid segmenter.min_chunk: %v", c.Segmenter.MinChunk)
	}
	if c.Segmenter.MaxChunk < c.Segmenter.MinChunk {
		return fmt.Errorf("invalid segmenter.max_chunk: %v is below min_chunk %v", c.Segmenter.MaxChunk, c.Segmenter.MinChunk)
	}
	if c.Segmenter.PollInterval <= 0 {
		return fmt.Errorf("invalid segmenter.poll_interval: %v", c.Segmenter.PollInterval)
	}

	if err := c.validateTranscription(); err != nil {
		return err
	}

	if c.Output.ReorderTimeout <= 0 {
		return fmt.Errorf("invalid output.reorder_timeout: %v", c.Output.ReorderTimeout)
	}
	if c.Output.DisposeTimeout <= 0 {
		return fmt.Errorf("invalid output.dispose_timeout: %v", c.Output.DisposeTimeout)
	}

	if c.Translation.Enabled {
		if !language.IsValidCode(c.Translation.TargetLanguage) {
			return fmt.Errorf("invalid translation.target_language: %q", c.Translation.TargetLanguage)
		}
		p := provider.GetProvider(c.Translation.Provider)
		if p == nil || p.ChatModel == "" {
			return fmt.Errorf("invalid translation.provider: %s (must be one of %v)", c.Translation.Provider, provider.ListProviders())
		}
		if c.ResolveAPIKey(c.Translation.Provider) == "" {
			return fmt.Errorf("%s API key required for translation: not found in config (providers.%s.api_key) or environment variable (%s)",
				p.Label, p.Name, p.APIKeyEnv)
		}
	}

	validTypes := map[string]bool{"desktop": true, "log": true, "none": true}
	if !validTypes[c.Notifications.Type] {
		return fmt.Errorf("invalid notifications.type: %s (must be desktop, log, or none)", c.Notifications.Type)
	}

	if c.Server.Enabled && c.Server.Listen == "" {
		return fmt.Errorf("invalid server.listen: empty")
	}
	if !logging.ValidLevel(c.Log.Level) {
		return fmt.Errorf("invalid log.level: %s", c.Log.Level)
	}
	return nil
}

func (c *Config) validateTranscription() error {
	t := &c.Transcription

	if t.Language != "" && !language.IsValidCode(t.Language) {
		return fmt.Errorf("invalid transcription.language: %s (use empty string for auto-detect or ISO-639-1 codes like 'en', 'es', 'fr')", t.Language)
	}
	if t.Timeout <= 0 {
		return fmt.Errorf("invalid transcription.timeout: %v", t.Timeout)
	}
	if t.MaxConcurrent < 0 {
		return fmt.Errorf("invalid transcription.max_concurrent: %d", t.MaxConcurrent)
	}
	if t.Retry.MaxAttempts < 1 {
		return fmt.Errorf("invalid transcription.retry.max_attempts: %d (1 disables retries)", t.Retry.MaxAttempts)
	}
	if t.Retry.MaxAttempts > 1 && (t.Retry.InitialBackoff <= 0 || t.Retry.MaxBackoff < t.Retry.InitialBackoff) {
		return fmt.Errorf("invalid transcription.retry backoff: initial %v, max %v", t.Retry.InitialBackoff, t.Retry.MaxBackoff)
	}

	switch t.Backend {
	case "openai":
		p := provider.GetProvider(t.Provider)
		if p == nil && t.Endpoint == "" {
			return fmt.Errorf("unknown transcription.provider %q needs transcription.endpoint", t.Provider)
		}
		if c.ResolveAPIKey(t.Provider) == "" {
			label, env := t.Provider, "OPENAI_API_KEY"
			if p != nil {
				label, env = p.Label, p.APIKeyEnv
			}
			return fmt.Errorf("%s API key required: not found in config (providers.%s.api_key, transcription.api_key) or environment variable (%s)",
				label, t.Provider, env)
		}

	case "http":
		if t.Endpoint == "" && provider.GetProvider(t.Provider) == nil {
			return fmt.Errorf("http backend requires transcription.endpoint")
		}

	case "whisper.cpp":
		// local, no API key required
		if t.ModelPath == "" {
			return fmt.Errorf("whisper.cpp backend requires transcription.model_path (see livecc models)")
		}

	default:
		return fmt.Errorf("unsupported transcription.backend: %s (must be openai, http, or whisper.cpp)", t.Backend)
	}
	return nil
}
