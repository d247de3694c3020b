package transcriber

import (
	"context"
	"fmt"
	"time"

	"github.com/leonardotrapani/livecc/internal/audio"
	"github.com/leonardotrapani/livecc/internal/provider"
)

// Adapter turns one chunk of canonical PCM (16 kHz, s16le, mono) into text.
// Empty text means the chunk held nothing worth transcribing.
type Adapter interface {
	Transcribe(ctx context.Context, pcm []byte) (string, error)
}

const (
	BackendOpenAI     = "openai"
	BackendHTTP       = "http"
	BackendWhisperCpp = "whisper.cpp"
)

// Configuration for the transcription backend
type Config struct {
	Backend  string
	Provider string // registry entry supplying endpoint and model defaults
	Endpoint string // base URL for openai, full URL for http
	APIKey   string
	Model    string
	Language string
	Prompt   string
	// Translate asks OpenAI-compatible backends for an English translation
	// instead of a transcript.
	Translate bool
	Timeout   time.Duration

	ModelPath string // whisper.cpp model file
	Threads   int
}

func DefaultConfig() Config {
	return Config{
		Backend:  BackendOpenAI,
		Provider: "openai",
		Model:    "whisper-1",
		Timeout:  30 * time.Second,
	}
}

// NewAdapter builds the adapter selected by config.Backend, filling endpoint and
// model from the provider registry when unset.
func NewAdapter(config Config) (Adapter, error) {
	if p := provider.GetProvider(config.Provider); p != nil {
		if config.Endpoint == "" {
			config.Endpoint = p.Endpoint(config.Backend)
		}
		if config.Model == "" {
			config.Model = p.DefaultModel
		}
	}
	if config.Timeout <= 0 {
		config.Timeout = 30 * time.Second
	}

	switch config.Backend {
	case BackendOpenAI:
		if config.APIKey == "" {
			return nil, fmt.Errorf("%s API key required", providerLabel(config.Provider))
		}
		return NewOpenAIAdapter(config), nil

	case BackendHTTP:
		if config.Endpoint == "" {
			return nil, fmt.Errorf("http backend requires an endpoint")
		}
		return NewHTTPAdapter(config), nil

	case BackendWhisperCpp:
		if config.ModelPath == "" {
			return nil, fmt.Errorf("whisper.cpp backend requires a model path")
		}
		return NewWhisperCppAdapter(config.ModelPath, config.Language, config.Threads), nil

	default:
		return nil, fmt.Errorf("unsupported backend: %s", config.Backend)
	}
}

func providerLabel(name string) string {
	if name == "" {
		return "OpenAI"
	}
	return name
}

// encodeWAV wraps a canonical chunk in the 44-byte WAV container backends expect.
func encodeWAV(pcm []byte) ([]byte, error) {
	return audio.EncodeWAV(pcm, audio.Canonical)
}
