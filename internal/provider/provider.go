package provider

import (
	"sort"
	"strings"
)

// Provider describes a hosted speech-to-text service and the defaults used to
// reach it.
type Provider struct {
	Name      string
	Label     string
	BaseURL   string // OpenAI-compatible API root, including the version segment
	AudioPath string // multipart transcription path below BaseURL
	APIKeyEnv string
	KeyPrefix string

	DefaultModel string
	Models       []string
	ChatModel    string // default model for translation, empty if unsupported
}

// Endpoint returns the URL a transcription backend should be pointed at: the API
// root for the openai backend, the full audio URL for the http backend.
func (p *Provider) Endpoint(backend string) string {
	if backend == "http" {
		return strings.TrimRight(p.BaseURL, "/") + p.AudioPath
	}
	return p.BaseURL
}

// ValidateAPIKey does a cheap shape check of key.
func (p *Provider) ValidateAPIKey(key string) bool {
	if key == "" {
		return false
	}
	return p.KeyPrefix == "" || strings.HasPrefix(key, p.KeyPrefix)
}

var registry = make(map[string]*Provider)

func init() {
	Register(&Provider{
		Name:         "openai",
		Label:        "OpenAI",
		BaseURL:      "https://api.openai.com/v1",
		AudioPath:    "/audio/transcriptions",
		APIKeyEnv:    "OPENAI_API_KEY",
		KeyPrefix:    "sk-",
		DefaultModel: "whisper-1",
		Models:       []string{"whisper-1", "gpt-4o-transcribe", "gpt-4o-mini-transcribe"},
		ChatModel:    "gpt-4o-mini",
	})
	Register(&Provider{
		Name:         "groq",
		Label:        "Groq",
		BaseURL:      "https://api.groq.com/openai/v1",
		AudioPath:    "/audio/transcriptions",
		APIKeyEnv:    "GROQ_API_KEY",
		KeyPrefix:    "gsk_",
		DefaultModel: "whisper-large-v3-turbo",
		Models:       []string{"whisper-large-v3-turbo", "whisper-large-v3"},
		ChatModel:    "llama-3.3-70b-versatile",
	})
}

// Register adds a provider to the registry
func Register(p *Provider) {
	registry[p.Name] = p
}

// GetProvider returns a provider by name, or nil if not found
func GetProvider(name string) *Provider {
	return registry[name]
}

// ListProviders returns all registered provider names, sorted
func ListProviders() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
