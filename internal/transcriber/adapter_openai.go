package transcriber

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sashabaranov/go-openai"
)

// OpenAIAdapter talks to any OpenAI-compatible audio endpoint (OpenAI, Groq,
// local servers) through go-openai.
type OpenAIAdapter struct {
	client *openai.Client
	config Config
}

func NewOpenAIAdapter(config Config) *OpenAIAdapter {
	clientConfig := openai.DefaultConfig(config.APIKey)
	if config.Endpoint != "" {
		clientConfig.BaseURL = config.Endpoint
	}
	clientConfig.HTTPClient = &http.Client{Timeout: config.Timeout}

	return &OpenAIAdapter{
		client: openai.NewClientWithConfig(clientConfig),
		config: config,
	}
}

func (a *OpenAIAdapter) Transcribe(ctx context.Context, pcm []byte) (string, error) {
	if len(pcm) == 0 {
		return "", nil
	}

	wavData, err := encodeWAV(pcm)
	if err != nil {
		return "", fmt.Errorf("convert to WAV: %w", err)
	}

	req := openai.AudioRequest{
		Model:    a.config.Model,
		Reader:   bytes.NewReader(wavData),
		FilePath: "audio.wav",
		Prompt:   a.config.Prompt,
		Format:   openai.AudioResponseFormatJSON,
	}

	start := time.Now()
	var resp openai.AudioResponse
	if a.config.Translate {
		resp, err = a.client.CreateTranslation(ctx, req)
	} else {
		req.Language = a.config.Language
		resp, err = a.client.CreateTranscription(ctx, req)
	}
	duration := time.Since(start)

	if err != nil {
		log.Debug().Err(err).Dur("took", duration).Msg("openai-adapter: API call failed")
		return "", fmt.Errorf("openai transcription: %w", err)
	}

	log.Debug().Int("bytes", len(pcm)).Dur("took", duration).Msgf("openai-adapter: transcribed %q", resp.Text)
	return resp.Text, nil
}
