package whisper

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"
)

const defaultBaseURL = "https://huggingface.co/ggerganov/whisper.cpp/resolve/main"

// ProgressFunc is called during download with bytes downloaded and total
type ProgressFunc func(downloaded, total int64)

// Store manages downloaded models in one directory.
type Store struct {
	Dir     string
	BaseURL string
	Client  *http.Client
}

// DefaultDir is $XDG_DATA_HOME/livecc/models, falling back to ~/.local/share.
func DefaultDir() (string, error) {
	if data := os.Getenv("XDG_DATA_HOME"); data != "" {
		return filepath.Join(data, "livecc", "models"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".local", "share", "livecc", "models"), nil
}

func NewStore() (*Store, error) {
	dir, err := DefaultDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get models directory: %w", err)
	}
	return &Store{Dir: dir, BaseURL: defaultBaseURL, Client: http.DefaultClient}, nil
}

func (s *Store) Path(m Model) string {
	return filepath.Join(s.Dir, m.Filename)
}

func (s *Store) Installed(m Model) bool {
	info, err := os.Stat(s.Path(m))
	return err == nil && info.Size() > 0
}

// Resolve turns a catalog ID into the path of its installed file. Anything that
// is not a catalog ID is taken as a path.
func (s *Store) Resolve(nameOrPath string) (string, error) {
	m, ok := Lookup(nameOrPath)
	if !ok || strings.ContainsRune(nameOrPath, os.PathSeparator) {
		return nameOrPath, nil
	}
	if !s.Installed(m) {
		return "", fmt.Errorf("model not installed: %s (run livecc models download %s)", m.ID, m.ID)
	}
	return s.Path(m), nil
}

// Download fetches m into the store. The file appears under its final name only
// once complete.
func (s *Store) Download(ctx context.Context, m Model, onProgress ProgressFunc) error {
	if err := os.MkdirAll(s.Dir, 0755); err != nil {
		return fmt.Errorf("failed to create models directory: %w", err)
	}

	url := strings.TrimRight(s.BaseURL, "/") + "/" + m.Filename
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	client := s.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to download: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("download failed with status: %s", resp.Status)
	}

	total := resp.ContentLength
	if total < 0 {
		total = m.SizeBytes
	}

	dest := s.Path(m)
	tmp, err := os.CreateTemp(s.Dir, m.Filename+".*.downloading")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name()) // no-op after the rename

	log.Info().Str("model", m.ID).Str("url", url).Msg("whisper: downloading model")

	pw := &progressWriter{total: total, onProgress: onProgress}
	if _, err := io.Copy(io.MultiWriter(tmp, pw), resp.Body); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write model: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close file: %w", err)
	}
	if err := os.Rename(tmp.Name(), dest); err != nil {
		return fmt.Errorf("failed to finalize download: %w", err)
	}

	log.Info().Str("model", m.ID).Int64("bytes", pw.written).Msg("whisper: model installed")
	return nil
}

// Remove deletes a downloaded model
func (s *Store) Remove(m Model) error {
	if !s.Installed(m) {
		return fmt.Errorf("model not installed: %s", m.ID)
	}
	if err := os.Remove(s.Path(m)); err != nil {
		return fmt.Errorf("failed to remove model: %w", err)
	}
	return nil
}

type progressWriter struct {
	written    int64
	total      int64
	onProgress ProgressFunc
}

func (p *progressWriter) Write(b []byte) (int, error) {
	p.written += int64(len(b))
	if p.onProgress != nil {
		p.onProgress(p.written, p.total)
	}
	return len(b), nil
}
