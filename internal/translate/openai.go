package translate

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sashabaranov/go-openai"
)

// OpenAITranslator uses chat completions on any OpenAI-compatible API.
type OpenAITranslator struct {
	client *openai.Client
	config Config
	system string
}

func NewOpenAITranslator(cfg Config) *OpenAITranslator {
	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}
	return &OpenAITranslator{
		client: openai.NewClientWithConfig(clientConfig),
		config: cfg,
		system: BuildSystemPrompt(cfg.TargetLanguage),
	}
}

func (t *OpenAITranslator) Translate(ctx context.Context, text string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", nil
	}

	req := openai.ChatCompletionRequest{
		Model: t.config.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: t.system},
			{Role: openai.ChatMessageRoleUser, Content: text},
		},
		Temperature: 0.2,
	}

	start := time.Now()
	resp, err := t.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", fmt.Errorf("%s chat completion: %w", t.config.Provider, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%s chat completion: no response choices", t.config.Provider)
	}

	result := strings.TrimSpace(resp.Choices[0].Message.Content)
	log.Debug().Dur("took", time.Since(start)).Str("target", t.config.TargetLanguage).Msg("translate: segment translated")
	return result, nil
}
