package provider

import (
	"slices"
	"testing"
)

func TestRegisteredProviders(t *testing.T) {
	tests := []struct {
		name         string
		defaultModel string
		apiKeyEnv    string
		endpoint     string
		httpEndpoint string
	}{
		{
			name:         "openai",
			defaultModel: "whisper-1",
			apiKeyEnv:    "OPENAI_API_KEY",
			endpoint:     "https://api.openai.com/v1",
			httpEndpoint: "https://api.openai.com/v1/audio/transcriptions",
		},
		{
			name:         "groq",
			defaultModel: "whisper-large-v3-turbo",
			apiKeyEnv:    "GROQ_API_KEY",
			endpoint:     "https://api.groq.com/openai/v1",
			httpEndpoint: "https://api.groq.com/openai/v1/audio/transcriptions",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			p := GetProvider(tc.name)
			if p == nil {
				t.Fatalf("GetProvider(%q) returned nil", tc.name)
			}
			if p.DefaultModel != tc.defaultModel {
				t.Errorf("DefaultModel = %q, want %q", p.DefaultModel, tc.defaultModel)
			}
			if !slices.Contains(p.Models, p.DefaultModel) {
				t.Errorf("default model %q missing from Models %v", p.DefaultModel, p.Models)
			}
			if p.APIKeyEnv != tc.apiKeyEnv {
				t.Errorf("APIKeyEnv = %q, want %q", p.APIKeyEnv, tc.apiKeyEnv)
			}
			if got := p.Endpoint("openai"); got != tc.endpoint {
				t.Errorf("Endpoint(openai) = %q, want %q", got, tc.endpoint)
			}
			if got := p.Endpoint("http"); got != tc.httpEndpoint {
				t.Errorf("Endpoint(http) = %q, want %q", got, tc.httpEndpoint)
			}
		})
	}
}

func TestGetProvider_Unknown(t *testing.T) {
	if GetProvider("nonexistent") != nil {
		t.Error("GetProvider(nonexistent) should return nil")
	}
}

func TestListProviders(t *testing.T) {
	got := ListProviders()
	if !slices.Equal(got, []string{"groq", "openai"}) {
		t.Errorf("ListProviders() = %v, want [groq openai]", got)
	}
}

func TestValidateAPIKey(t *testing.T) {
	tests := []struct {
		provider string
		key      string
		want     bool
	}{
		{"openai", "sk-test123", true},
		{"openai", "gsk_test123", false},
		{"openai", "", false},
		{"groq", "gsk_test123", true},
		{"groq", "sk-test123", false},
	}
	for _, tt := range tests {
		t.Run(tt.provider+"/"+tt.key, func(t *testing.T) {
			if got := GetProvider(tt.provider).ValidateAPIKey(tt.key); got != tt.want {
				t.Errorf("ValidateAPIKey(%q) = %v, want %v", tt.key, got, tt.want)
			}
		})
	}
}
