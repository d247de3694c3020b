package transcriber

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// WhisperCppAdapter transcribes locally with whisper.cpp's whisper-cli.
type WhisperCppAdapter struct {
	modelPath string
	language  string
	threads   int
	binary    string
}

// NewWhisperCppAdapter creates a new whisper-cpp adapter
// modelPath: full path to a ggml model file
// lang: whisper-cpp language code, empty for auto
// threads: number of CPU threads (0 for auto)
func NewWhisperCppAdapter(modelPath, lang string, threads int) *WhisperCppAdapter {
	return &WhisperCppAdapter{
		modelPath: modelPath,
		language:  lang,
		threads:   threads,
		binary:    "whisper-cli",
	}
}

func (a *WhisperCppAdapter) Transcribe(ctx context.Context, pcm []byte) (string, error) {
	if len(pcm) == 0 {
		return "", nil
	}

	if _, err := os.Stat(a.modelPath); os.IsNotExist(err) {
		return "", NewFatalTranscriptionError(fmt.Errorf("model file not found: %s", a.modelPath))
	}

	whisperPath, err := exec.LookPath(a.binary)
	if err != nil {
		return "", NewFatalTranscriptionError(fmt.Errorf("%s not found: install whisper.cpp first", a.binary))
	}

	wavData, err := encodeWAV(pcm)
	if err != nil {
		return "", fmt.Errorf("convert to WAV: %w", err)
	}

	tmp, err := os.CreateTemp("", "livecc-*.wav")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(wavData); err != nil {
		tmp.Close()
		return "", fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("write temp file: %w", err)
	}

	cmd := exec.CommandContext(ctx, whisperPath, a.args(tmp.Name())...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err = cmd.Run()
	duration := time.Since(start)

	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		log.Debug().Err(err).Dur("took", duration).Str("stderr", stderr.String()).Msg("whisper-cpp: command failed")
		return "", fmt.Errorf("whisper-cli failed: %w", err)
	}

	// with -nt whisper-cli prints plain text, one line per segment
	text := strings.Join(strings.Fields(stdout.String()), " ")

	log.Debug().Int("bytes", len(pcm)).Dur("took", duration).Msgf("whisper-cpp: transcribed %q", text)
	return text, nil
}

func (a *WhisperCppAdapter) args(wavPath string) []string {
	lang := a.language
	if lang == "" {
		lang = "auto"
	}
	args := []string{
		"-m", a.modelPath,
		"-l", lang,
		"-nt", // no timestamps
		"-np", // no progress
		"-f", wavPath,
	}
	if a.threads > 0 {
		args = append(args, "-t", strconv.Itoa(a.threads))
	}
	return args
}
