package tui

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/leonardotrapani/livecc/internal/config"
	"github.com/leonardotrapani/livecc/internal/language"
	"github.com/leonardotrapani/livecc/internal/models/whisper"
	"github.com/leonardotrapani/livecc/internal/provider"
)

// Section is an entry of the configuration menu.
type Section string

const (
	SectionCapture       Section = "capture"
	SectionTranscription Section = "transcription"
	SectionOutput        Section = "output"
	SectionTranslation   Section = "translation"
	SectionNotifications Section = "notifications"
	SectionServer        Section = "server"
	SectionSaveExit      Section = "save_exit"
	SectionDiscardExit   Section = "discard_exit"
)

func sectionOptions(cfg *config.Config) []huh.Option[Section] {
	return []huh.Option[Section]{
		huh.NewOption(fmt.Sprintf("Audio capture (%s)", cfg.Capture.Backend), SectionCapture),
		huh.NewOption(transcriptionLabel(cfg), SectionTranscription),
		huh.NewOption(outputLabel(cfg), SectionOutput),
		huh.NewOption(onOff("Translation", cfg.Translation.Enabled, language.Name(cfg.Translation.TargetLanguage)), SectionTranslation),
		huh.NewOption(onOff("Notifications", cfg.Notifications.Enabled, cfg.Notifications.Type), SectionNotifications),
		huh.NewOption(onOff("Caption server", cfg.Server.Enabled, cfg.Server.Listen), SectionServer),
		huh.NewOption("Save & Exit", SectionSaveExit),
		huh.NewOption("Discard & Exit", SectionDiscardExit),
	}
}

func transcriptionLabel(cfg *config.Config) string {
	t := cfg.Transcription
	switch t.Backend {
	case "whisper.cpp":
		return fmt.Sprintf("Transcription (whisper.cpp, %s)", t.ModelPath)
	case "http":
		return fmt.Sprintf("Transcription (http, %s)", t.Endpoint)
	}
	return fmt.Sprintf("Transcription (%s/%s)", t.Provider, t.Model)
}

func outputLabel(cfg *config.Config) string {
	if cfg.Output.Ordered {
		return "Output (ordered)"
	}
	return "Output (completion order)"
}

func onOff(name string, enabled bool, detail string) string {
	if !enabled {
		return name + " (off)"
	}
	if detail == "" {
		return name + " (on)"
	}
	return fmt.Sprintf("%s (%s)", name, detail)
}

func languageOptions(autoLabel string) []huh.Option[string] {
	opts := []huh.Option[string]{huh.NewOption(autoLabel, "")}
	for _, code := range language.Codes() {
		opts = append(opts, huh.NewOption(fmt.Sprintf("%s (%s)", language.Name(code), code), code))
	}
	return opts
}

func providerOptions() []huh.Option[string] {
	var opts []huh.Option[string]
	for _, name := range provider.ListProviders() {
		opts = append(opts, huh.NewOption(provider.GetProvider(name).Label, name))
	}
	return opts
}

func modelOptions(providerName string) []huh.Option[string] {
	p := provider.GetProvider(providerName)
	if p == nil {
		return nil
	}
	var opts []huh.Option[string]
	for _, m := range p.Models {
		label := m
		if m == p.DefaultModel {
			label += " (default)"
		}
		opts = append(opts, huh.NewOption(label, m))
	}
	return opts
}

// whisperModelOptions lists the local model catalog, marking installed models
// when store is non-nil.
func whisperModelOptions(store *whisper.Store) []huh.Option[string] {
	var opts []huh.Option[string]
	for _, m := range whisper.Models() {
		label := fmt.Sprintf("%s (%s)", m.Name, m.Size)
		if !m.Multilingual {
			label += " [English only]"
		}
		if store != nil && store.Installed(m) {
			label += " ✓"
		}
		opts = append(opts, huh.NewOption(label, m.ID))
	}
	return opts
}

func validateDuration(s string) error {
	d, err := time.ParseDuration(strings.TrimSpace(s))
	if err != nil {
		return fmt.Errorf("use Go durations like 3s or 500ms")
	}
	if d <= 0 {
		return fmt.Errorf("must be positive")
	}
	return nil
}

func validateAPIKey(providerName string) func(string) error {
	return func(key string) error {
		key = strings.TrimSpace(key)
		if key == "" {
			return nil // keep the environment variable
		}
		if p := provider.GetProvider(providerName); p != nil && !p.ValidateAPIKey(key) {
			return fmt.Errorf("%s keys start with %q", p.Label, p.KeyPrefix)
		}
		return nil
	}
}

// summaryLines describes cfg for the save confirmation.
func summaryLines(cfg *config.Config) []string {
	lines := []string{
		fmt.Sprintf("Capture: %s %s", cfg.Capture.Backend, valueOr(cfg.Capture.Device, "(default monitor)")),
		transcriptionLabel(cfg),
		fmt.Sprintf("Language: %s", language.Name(cfg.Transcription.Language)),
		fmt.Sprintf("Chunks: %v to %v", cfg.Segmenter.MinChunk, cfg.Segmenter.MaxChunk),
		outputLabel(cfg),
	}
	if cfg.Translation.Enabled {
		lines = append(lines, fmt.Sprintf("Translation: %s via %s", language.Name(cfg.Translation.TargetLanguage), cfg.Translation.Provider))
	}
	if cfg.Notifications.Enabled {
		lines = append(lines, "Notifications: "+cfg.Notifications.Type)
	}
	if cfg.Server.Enabled {
		lines = append(lines, "Caption server: "+cfg.Server.Listen)
	}
	return lines
}

func valueOr(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}

var (
	errRequired    = errors.New("required")
	errPositive    = errors.New("must be a positive number")
	errNonNegative = errors.New("must be zero or more")
)
