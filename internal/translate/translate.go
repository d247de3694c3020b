package translate

import (
	"context"
	"fmt"
	"time"
)

// Translator rewrites caption text into another language.
type Translator interface {
	Translate(ctx context.Context, text string) (string, error)
}

type Config struct {
	Provider       string
	BaseURL        string
	APIKey         string
	Model          string
	TargetLanguage string // ISO-639-1
	Timeout        time.Duration
}

func NewTranslator(cfg Config) (Translator, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%s API key required for translation", cfg.Provider)
	}
	if cfg.TargetLanguage == "" {
		return nil, fmt.Errorf("translation target language required")
	}
	if cfg.Model == "" {
		return nil, fmt.Errorf("no chat model for translation provider %s", cfg.Provider)
	}
	return NewOpenAITranslator(cfg), nil
}
