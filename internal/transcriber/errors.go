package transcriber

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/leonardotrapani/livecc/internal/resilience"
	"github.com/sashabaranov/go-openai"
)

// ErrMalformedResponse is returned when a backend reply cannot be decoded.
var ErrMalformedResponse = errors.New("malformed transcription response")

// APIError is a non-2xx reply from a transcription endpoint.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error: %d - %s", e.StatusCode, e.Body)
}

// Temporary reports whether the status is worth retrying (429 and 5xx).
func (e *APIError) Temporary() bool {
	return isTransientStatus(e.StatusCode)
}

func isTransientStatus(code int) bool {
	return code == http.StatusTooManyRequests || code >= 500
}

// IsTransient classifies an adapter error as retryable: connection failures,
// timeouts, 429/5xx responses and anything wrapped by resilience.NewRetryableError.
// Cancellation and fatal errors are never transient.
func IsTransient(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, ErrMalformedResponse) || IsFatalTranscriptionError(err) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) || resilience.IsRetryable(err) {
		return true
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Temporary()
	}

	var oaErr *openai.APIError
	if errors.As(err, &oaErr) {
		return isTransientStatus(oaErr.HTTPStatusCode)
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return isTransientStatus(reqErr.HTTPStatusCode)
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	var opErr *net.OpError
	return errors.As(err, &opErr)
}

// FatalTranscriptionError marks a configuration problem that no later chunk can
// recover from, such as a missing model file.
type FatalTranscriptionError struct {
	Err error
}

func (e *FatalTranscriptionError) Error() string {
	if e == nil || e.Err == nil {
		return "fatal transcription error"
	}
	return e.Err.Error()
}

func (e *FatalTranscriptionError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func NewFatalTranscriptionError(err error) error {
	if err == nil {
		return nil
	}
	return &FatalTranscriptionError{Err: err}
}

func IsFatalTranscriptionError(err error) bool {
	var fatal *FatalTranscriptionError
	return errors.As(err, &fatal)
}
