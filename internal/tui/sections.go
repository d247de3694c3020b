package tui

import (
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/leonardotrapani/livecc/internal/config"
	"github.com/leonardotrapani/livecc/internal/models/whisper"
	"github.com/leonardotrapani/livecc/internal/provider"
)

func editCapture(cfg *config.Config) error {
	backend := cfg.Capture.Backend
	device := cfg.Capture.Device
	minChunk := cfg.Segmenter.MinChunk.String()
	maxChunk := cfg.Segmenter.MaxChunk.String()

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Capture backend").
				Description("Records the output monitor of the default sink").
				Options(
					huh.NewOption("PipeWire (pw-record)", "pipewire"),
					huh.NewOption("PulseAudio (parec)", "pulse"),
				).
				Value(&backend),
			huh.NewInput().
				Title("Device").
				Description("Monitor source name, empty for the default output").
				Value(&device),
		),
		huh.NewGroup(
			huh.NewInput().
				Title("Minimum chunk").
				Description("Audio collected before a transcription request").
				Validate(validateDuration).
				Value(&minChunk),
			huh.NewInput().
				Title("Maximum chunk").
				Validate(validateDuration).
				Value(&maxChunk),
		),
	).WithTheme(getTheme())

	if err := form.Run(); err != nil {
		return err
	}

	cfg.Capture.Backend = backend
	cfg.Capture.Device = strings.TrimSpace(device)
	cfg.Segmenter.MinChunk = mustDuration(minChunk)
	cfg.Segmenter.MaxChunk = mustDuration(maxChunk)
	return nil
}

func editTranscription(cfg *config.Config) error {
	backend := cfg.Transcription.Backend
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Transcription backend").
				Options(
					huh.NewOption("Hosted API (OpenAI compatible)", "openai"),
					huh.NewOption("Custom HTTP endpoint", "http"),
					huh.NewOption("Local whisper.cpp", "whisper.cpp"),
				).
				Value(&backend),
		),
	).WithTheme(getTheme())
	if err := form.Run(); err != nil {
		return err
	}

	var err error
	switch backend {
	case "openai":
		err = editHostedTranscription(cfg)
	case "http":
		err = editHTTPTranscription(cfg)
	case "whisper.cpp":
		err = editLocalTranscription(cfg)
	}
	if err != nil {
		return err
	}
	cfg.Transcription.Backend = backend
	return editLanguage(cfg)
}

func editHostedTranscription(cfg *config.Config) error {
	providerName := cfg.Transcription.Provider
	if provider.GetProvider(providerName) == nil {
		providerName = "openai"
	}

	if err := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Provider").
				Options(providerOptions()...).
				Value(&providerName),
		),
	).WithTheme(getTheme()).Run(); err != nil {
		return err
	}

	p := provider.GetProvider(providerName)
	model := cfg.Transcription.Model
	if !slices.Contains(p.Models, model) {
		model = p.DefaultModel
	}
	apiKey := cfg.Providers[providerName].APIKey

	if err := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Model").
				Options(modelOptions(providerName)...).
				Value(&model),
			huh.NewInput().
				Title(p.Label+" API key").
				Description("Leave empty to use $"+p.APIKeyEnv).
				EchoMode(huh.EchoModePassword).
				Validate(validateAPIKey(providerName)).
				Value(&apiKey),
		),
	).WithTheme(getTheme()).Run(); err != nil {
		return err
	}

	cfg.Transcription.Provider = providerName
	cfg.Transcription.Model = model
	if key := strings.TrimSpace(apiKey); key != "" {
		cfg.Providers[providerName] = config.ProviderConfig{APIKey: key}
	}
	return nil
}

func editHTTPTranscription(cfg *config.Config) error {
	endpoint := cfg.Transcription.Endpoint
	apiKey := cfg.Transcription.APIKey

	if err := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Endpoint").
				Description("Receives multipart WAV uploads, e.g. a whisper.cpp server's /inference").
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return errRequired
					}
					return nil
				}).
				Value(&endpoint),
			huh.NewInput().
				Title("Bearer token").
				Description("Optional").
				EchoMode(huh.EchoModePassword).
				Value(&apiKey),
		),
	).WithTheme(getTheme()).Run(); err != nil {
		return err
	}

	cfg.Transcription.Provider = ""
	cfg.Transcription.Endpoint = strings.TrimSpace(endpoint)
	cfg.Transcription.APIKey = strings.TrimSpace(apiKey)
	return nil
}

func editLocalTranscription(cfg *config.Config) error {
	store, _ := whisper.NewStore()
	model := cfg.Transcription.ModelPath
	if _, ok := whisper.Lookup(model); !ok {
		model = "base"
	}
	threads := strconv.Itoa(cfg.Transcription.Threads)

	if err := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Model").
				Description("Download with: livecc models download <id>").
				Options(whisperModelOptions(store)...).
				Value(&model),
			huh.NewInput().
				Title("Threads").
				Validate(func(s string) error {
					if n, err := strconv.Atoi(strings.TrimSpace(s)); err != nil || n < 1 {
						return errPositive
					}
					return nil
				}).
				Value(&threads),
		),
	).WithTheme(getTheme()).Run(); err != nil {
		return err
	}

	cfg.Transcription.ModelPath = model
	cfg.Transcription.Threads, _ = strconv.Atoi(strings.TrimSpace(threads))
	if store != nil {
		if m, ok := whisper.Lookup(model); ok && !store.Installed(m) {
			PrintWarning("Model " + m.ID + " is not installed yet: run livecc models download " + m.ID)
			waitForEnter()
		}
	}
	return nil
}

func editLanguage(cfg *config.Config) error {
	lang := cfg.Transcription.Language
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Spoken language").
				Description("A fixed language avoids misdetection on short chunks").
				Options(languageOptions("Auto-detect")...).
				Filtering(true).
				Value(&lang),
		),
	).WithTheme(getTheme())
	if err := form.Run(); err != nil {
		return err
	}
	cfg.Transcription.Language = lang
	return nil
}

func editOutput(cfg *config.Config) error {
	ordered := cfg.Output.Ordered
	concurrent := strconv.Itoa(cfg.Transcription.MaxConcurrent)
	attempts := strconv.Itoa(cfg.Transcription.Retry.MaxAttempts)

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title("Keep captions in audio order?").
				Description("Otherwise each caption is shown as soon as its request finishes").
				Value(&ordered),
			huh.NewInput().
				Title("Max concurrent requests").
				Description("0 for unlimited").
				Validate(func(s string) error {
					if n, err := strconv.Atoi(strings.TrimSpace(s)); err != nil || n < 0 {
						return errNonNegative
					}
					return nil
				}).
				Value(&concurrent),
			huh.NewInput().
				Title("Attempts per chunk").
				Description("1 disables retries").
				Validate(func(s string) error {
					if n, err := strconv.Atoi(strings.TrimSpace(s)); err != nil || n < 1 {
						return errPositive
					}
					return nil
				}).
				Value(&attempts),
		),
	).WithTheme(getTheme())
	if err := form.Run(); err != nil {
		return err
	}

	cfg.Output.Ordered = ordered
	cfg.Transcription.MaxConcurrent, _ = strconv.Atoi(strings.TrimSpace(concurrent))
	cfg.Transcription.Retry.MaxAttempts, _ = strconv.Atoi(strings.TrimSpace(attempts))
	return nil
}

func editTranslation(cfg *config.Config) error {
	enabled := cfg.Translation.Enabled
	target := cfg.Translation.TargetLanguage
	providerName := cfg.Translation.Provider

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title("Translate captions?").
				Value(&enabled),
		),
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Target language").
				Options(languageOptions("None")[1:]...).
				Filtering(true).
				Value(&target),
			huh.NewSelect[string]().
				Title("Translation provider").
				Options(providerOptions()...).
				Value(&providerName),
		).WithHideFunc(func() bool { return !enabled }),
	).WithTheme(getTheme())
	if err := form.Run(); err != nil {
		return err
	}

	cfg.Translation.Enabled = enabled
	if enabled {
		cfg.Translation.TargetLanguage = target
		cfg.Translation.Provider = providerName
	}
	return nil
}

func editNotifications(cfg *config.Config) error {
	enabled := cfg.Notifications.Enabled
	kind := cfg.Notifications.Type

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title("Notify on status changes and errors?").
				Value(&enabled),
			huh.NewSelect[string]().
				Title("Notification type").
				Options(
					huh.NewOption("Desktop (notify-send)", "desktop"),
					huh.NewOption("Log only", "log"),
					huh.NewOption("None", "none"),
				).
				Value(&kind),
		),
	).WithTheme(getTheme())
	if err := form.Run(); err != nil {
		return err
	}

	cfg.Notifications.Enabled = enabled
	cfg.Notifications.Type = kind
	return nil
}

func editServer(cfg *config.Config) error {
	enabled := cfg.Server.Enabled
	listen := cfg.Server.Listen

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title("Serve captions over websocket?").
				Description("Also exposes /metrics for Prometheus").
				Value(&enabled),
			huh.NewInput().
				Title("Listen address").
				Value(&listen),
		),
	).WithTheme(getTheme())
	if err := form.Run(); err != nil {
		return err
	}

	cfg.Server.Enabled = enabled
	cfg.Server.Listen = strings.TrimSpace(listen)
	return nil
}

func mustDuration(s string) time.Duration {
	d, _ := time.ParseDuration(strings.TrimSpace(s))
	return d
}
