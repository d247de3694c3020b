package tui

import (
	"fmt"
	"os"

	"github.com/charmbracelet/huh"
	"github.com/leonardotrapani/livecc/internal/config"
	"github.com/muesli/termenv"
)

// ConfigureResult holds the configuration result from the TUI
type ConfigureResult struct {
	Config    *config.Config
	Cancelled bool
}

// Run edits a copy of existing (or the defaults) through a section menu until
// the user saves or discards.
func Run(existing *config.Config) (*ConfigureResult, error) {
	cfg := config.DefaultConfig()
	if existing != nil {
		copied := *existing
		copied.Providers = make(map[string]config.ProviderConfig, len(existing.Providers))
		for k, v := range existing.Providers {
			copied.Providers[k] = v
		}
		cfg = &copied
	}

	for {
		clearScreen()
		fmt.Println(Logo())
		fmt.Println()

		section, err := selectSection(cfg)
		if err != nil {
			return &ConfigureResult{Cancelled: true}, nil
		}

		switch section {
		case SectionSaveExit:
			if err := cfg.Validate(); err != nil {
				fmt.Println(StyleError.Render("Configuration is incomplete: ") + err.Error())
				waitForEnter()
				continue
			}
			confirmed, err := showSummary(cfg)
			if err != nil {
				return &ConfigureResult{Cancelled: true}, nil
			}
			if confirmed {
				return &ConfigureResult{Config: cfg}, nil
			}

		case SectionDiscardExit:
			return &ConfigureResult{Cancelled: true}, nil

		default:
			edit := editors[section]
			// esc inside a section goes back to the menu
			_ = edit(cfg)
		}
	}
}

var editors = map[Section]func(*config.Config) error{
	SectionCapture:       editCapture,
	SectionTranscription: editTranscription,
	SectionOutput:        editOutput,
	SectionTranslation:   editTranslation,
	SectionNotifications: editNotifications,
	SectionServer:        editServer,
}

func selectSection(cfg *config.Config) (Section, error) {
	var selected Section
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[Section]().
				Title("Configuration Menu").
				Description("↑/↓ navigate • enter select • esc cancel").
				Options(sectionOptions(cfg)...).
				Value(&selected),
		),
	).WithTheme(getTheme())

	if err := form.Run(); err != nil {
		return "", err
	}
	return selected, nil
}

func showSummary(cfg *config.Config) (bool, error) {
	fmt.Println()
	fmt.Println(StyleHeader.Render("Configuration Summary"))
	for _, line := range summaryLines(cfg) {
		fmt.Println("  " + StyleMuted.Render(line))
	}
	fmt.Println()

	var confirmed bool
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title("Save this configuration?").
				Affirmative("Save").
				Negative("Cancel").
				Value(&confirmed),
		),
	).WithTheme(getTheme())

	if err := form.Run(); err != nil {
		return false, err
	}
	return confirmed, nil
}

func waitForEnter() {
	huh.NewForm(huh.NewGroup(huh.NewNote().Title("Press enter to continue"))).WithTheme(getTheme()).Run()
}

func clearScreen() {
	output := termenv.NewOutput(os.Stdout)
	output.ClearScreen()
}

// PrintSaved reports where the configuration was written.
func PrintSaved(path string) {
	fmt.Println(StyleSuccess.Render("Configuration saved to " + path))
}

// PrintWarning prints a highlighted warning line.
func PrintWarning(msg string) {
	fmt.Println(StyleWarning.Render(msg))
}
