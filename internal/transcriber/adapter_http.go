package transcriber

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
)

// HTTPAdapter posts chunks to a plain multipart transcription endpoint that
// answers {"text": "..."}.
type HTTPAdapter struct {
	client *http.Client
	config Config
}

type httpResponse struct {
	Text string `json:"text"`
}

func NewHTTPAdapter(config Config) *HTTPAdapter {
	return &HTTPAdapter{
		client: &http.Client{Timeout: config.Timeout},
		config: config,
	}
}

func (a *HTTPAdapter) Transcribe(ctx context.Context, pcm []byte) (string, error) {
	if len(pcm) == 0 {
		return "", nil
	}

	wavData, err := encodeWAV(pcm)
	if err != nil {
		return "", fmt.Errorf("convert to WAV: %w", err)
	}

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	part, err := writer.CreateFormFile("file", "audio.wav")
	if err != nil {
		return "", fmt.Errorf("create form file: %w", err)
	}
	if _, err := part.Write(wavData); err != nil {
		return "", fmt.Errorf("copy audio data: %w", err)
	}

	fields := [][2]string{
		{"model", a.config.Model},
		{"response_format", "json"},
		{"language", a.config.Language},
		{"prompt", a.config.Prompt},
	}
	for _, f := range fields {
		if f[1] == "" {
			continue
		}
		if err := writer.WriteField(f[0], f[1]); err != nil {
			return "", fmt.Errorf("write %s: %w", f[0], err)
		}
	}

	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("close writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.config.Endpoint, &body)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	if a.config.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+a.config.APIKey)
	}

	start := time.Now()
	resp, err := a.client.Do(req)
	duration := time.Since(start)

	if err != nil {
		log.Debug().Err(err).Dur("took", duration).Msg("http-adapter: request failed")
		return "", fmt.Errorf("transcription request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &APIError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	var result httpResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	log.Debug().Int("bytes", len(pcm)).Dur("took", duration).Msgf("http-adapter: transcribed %q", result.Text)
	return result.Text, nil
}
