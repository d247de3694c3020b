package config

import (
	"os"

	"github.com/leonardotrapani/livecc/internal/audio"
	"github.com/leonardotrapani/livecc/internal/models/whisper"
	"github.com/leonardotrapani/livecc/internal/provider"
	"github.com/leonardotrapani/livecc/internal/recording"
	"github.com/leonardotrapani/livecc/internal/resilience"
	"github.com/leonardotrapani/livecc/internal/segmenter"
	"github.com/leonardotrapani/livecc/internal/session"
	"github.com/leonardotrapani/livecc/internal/transcriber"
	"github.com/leonardotrapani/livecc/internal/translate"
)

func (c *Config) ToRecordingConfig() recording.Config {
	// Validate rejects bad encodings; S16LE keeps an unvalidated config usable
	enc, err := audio.ParseEncoding(c.Capture.Encoding)
	if err != nil {
		enc = audio.S16LE
	}
	return recording.Config{
		Backend:           recording.Backend(c.Capture.Backend),
		SampleRate:        c.Capture.SampleRate,
		Channels:          c.Capture.Channels,
		Encoding:          enc,
		BufferSize:        c.Capture.BufferSize,
		Device:            c.Capture.Device,
		ChannelBufferSize: c.Capture.ChannelBufferSize,
	}
}

func (c *Config) ToSegmenterConfig() segmenter.Config {
	return segmenter.NewConfig(c.Segmenter.MinChunk, c.Segmenter.MaxChunk, c.Segmenter.PollInterval)
}

func (c *Config) ToTranscriberConfig() transcriber.Config {
	t := c.Transcription
	config := transcriber.Config{
		Backend:   t.Backend,
		Provider:  t.Provider,
		Endpoint:  t.Endpoint,
		APIKey:    c.ResolveAPIKey(t.Provider),
		Model:     t.Model,
		Language:  t.Language,
		Prompt:    t.Prompt,
		Translate: t.Translate,
		Timeout:   t.Timeout,
		ModelPath: t.ModelPath,
		Threads:   t.Threads,
	}

	if t.Backend == transcriber.BackendWhisperCpp && t.ModelPath != "" {
		if store, err := whisper.NewStore(); err == nil {
			if path, err := store.Resolve(t.ModelPath); err == nil {
				config.ModelPath = path
			}
		}
	}
	return config
}

func (c *Config) ToSessionConfig() session.Config {
	t := c.Transcription
	return session.Config{
		Segmenter:      c.ToSegmenterConfig(),
		RequestTimeout: t.Timeout,
		MaxConcurrent:  t.MaxConcurrent,
		Retry: resilience.RetryConfig{
			MaxAttempts:       t.Retry.MaxAttempts,
			InitialBackoff:    t.Retry.InitialBackoff,
			MaxBackoff:        t.Retry.MaxBackoff,
			BackoffMultiplier: 2.0,
			Jitter:            true,
		},
		Ordered:        c.Output.Ordered,
		ReorderTimeout: c.Output.ReorderTimeout,
		DisposeTimeout: c.Output.DisposeTimeout,
	}
}

func (c *Config) ToTranslateConfig() translate.Config {
	tr := c.Translation
	config := translate.Config{
		Provider:       tr.Provider,
		APIKey:         c.ResolveAPIKey(tr.Provider),
		Model:          tr.Model,
		TargetLanguage: tr.TargetLanguage,
		Timeout:        tr.Timeout,
	}
	if p := provider.GetProvider(tr.Provider); p != nil {
		config.BaseURL = p.BaseURL
		if config.Model == "" {
			config.Model = p.ChatModel
		}
	}
	return config
}

// ResolveAPIKey returns the API key for a provider from, in order,
// providers.<name>.api_key, transcription.api_key, the provider's environment
// variable and OPENAI_API_KEY.
func (c *Config) ResolveAPIKey(providerName string) string {
	if pc, ok := c.Providers[providerName]; ok && pc.APIKey != "" {
		return pc.APIKey
	}
	if c.Transcription.APIKey != "" && providerName == c.Transcription.Provider {
		return c.Transcription.APIKey
	}
	if p := provider.GetProvider(providerName); p != nil && p.APIKeyEnv != "" {
		if key := os.Getenv(p.APIKeyEnv); key != "" {
			return key
		}
	}
	return os.Getenv("OPENAI_API_KEY")
}
