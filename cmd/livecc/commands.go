package main

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/leonardotrapani/livecc/internal/config"
	"github.com/leonardotrapani/livecc/internal/deps"
	"github.com/leonardotrapani/livecc/internal/language"
	"github.com/leonardotrapani/livecc/internal/models/whisper"
	"github.com/leonardotrapani/livecc/internal/provider"
	"github.com/leonardotrapani/livecc/internal/tui"
	"github.com/spf13/cobra"
)

func configureCmd(g *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "configure",
		Short: "Interactive configuration setup",
		Long: `Edit the livecc configuration section by section:
- Capture backend and device
- Transcription backend, provider, model and language
- Output ordering, translation, notifications and the websocket server`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigure(g)
		},
	}
}

func runConfigure(g *globalOptions) error {
	path, err := g.path()
	if err != nil {
		return err
	}

	existing, err := config.LoadFile(path)
	if errors.Is(err, config.ErrConfigNotFound) {
		existing = nil
	} else if err != nil {
		tui.PrintWarning(fmt.Sprintf("Existing config could not be read (%v), starting from defaults", err))
		existing = nil
	}

	result, err := tui.Run(existing)
	if err != nil {
		return fmt.Errorf("configuration wizard error: %w", err)
	}
	if result.Cancelled {
		fmt.Println("Configuration cancelled.")
		return nil
	}

	if err := config.SaveFile(result.Config, path); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}
	tui.PrintSaved(path)
	return nil
}

func modelsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "models",
		Short: "Manage local whisper.cpp models",
	}
	cmd.AddCommand(modelsListCmd(), modelsDownloadCmd(), modelsRemoveCmd())
	return cmd
}

func modelsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List whisper.cpp models and whether they are installed",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := whisper.NewStore()
			if err != nil {
				return err
			}
			printModels(cmd.OutOrStdout(), store)
			return nil
		},
	}
}

func printModels(w io.Writer, store *whisper.Store) {
	for _, m := range whisper.Models() {
		mark := "[ ]"
		if store.Installed(m) {
			mark = "[x]"
		}
		langs := "en"
		if m.Multilingual {
			langs = "multilingual"
		}
		fmt.Fprintf(w, "  %s %-15s %-15s [%s, %s]\n", mark, m.ID, m.Name, m.Size, langs)
	}
	fmt.Fprintf(w, "\nModels directory: %s\n", store.Dir)
}

func modelsDownloadCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "download <model>",
		Short: "Download a whisper.cpp model",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, ok := whisper.Lookup(args[0])
			if !ok {
				return fmt.Errorf("unknown model: %s", args[0])
			}
			store, err := whisper.NewStore()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if store.Installed(m) {
				fmt.Fprintf(out, "model '%s' is already installed at %s\n", m.ID, store.Path(m))
				return nil
			}

			fmt.Fprintf(out, "downloading %s (%s)...\n", m.ID, m.Size)
			lastPercent := 0
			err = store.Download(cmd.Context(), m, func(downloaded, total int64) {
				if total <= 0 {
					return
				}
				if percent := int(downloaded * 100 / total); percent >= lastPercent+10 {
					fmt.Fprintf(out, "%d%% ", percent)
					lastPercent = percent
				}
			})
			if err != nil {
				return fmt.Errorf("download failed: %w", err)
			}
			fmt.Fprintf(out, "\ndownload complete: %s\n", store.Path(m))
			return nil
		},
	}
}

func modelsRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <model>",
		Short: "Remove a downloaded whisper.cpp model",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, ok := whisper.Lookup(args[0])
			if !ok {
				return fmt.Errorf("unknown model: %s", args[0])
			}
			store, err := whisper.NewStore()
			if err != nil {
				return err
			}
			if err := store.Remove(m); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "model '%s' removed\n", m.ID)
			return nil
		},
	}
}

func languagesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "languages",
		Short: "List supported language codes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			for _, code := range language.Codes() {
				fmt.Fprintf(out, "  %-4s %s\n", code, language.Name(code))
			}
			return nil
		},
	}
}

func providersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "providers",
		Short: "List hosted transcription providers and their models",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			for _, name := range provider.ListProviders() {
				p := provider.GetProvider(name)
				fmt.Fprintf(out, "\n%s (%s, key from %s):\n", p.Name, p.Label, p.APIKeyEnv)
				for _, m := range p.Models {
					suffix := ""
					if m == p.DefaultModel {
						suffix = " (default)"
					}
					fmt.Fprintf(out, "  %s%s\n", m, suffix)
				}
				if p.ChatModel != "" {
					fmt.Fprintf(out, "  translation: %s\n", p.ChatModel)
				}
			}
			fmt.Fprintln(out)
			return nil
		},
	}
}

func doctorCmd(g *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check the external programs the current config needs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := g.load()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			missing := checkTools(out, cfg)

			if err := cfg.Validate(); err != nil {
				fmt.Fprintf(out, "\nconfig: %v\n", err)
				return errors.New("config is invalid")
			}
			if len(missing) > 0 {
				return fmt.Errorf("missing: %s", strings.Join(missing, ", "))
			}
			fmt.Fprintln(out, "\nall good")
			return nil
		},
	}
}

func checkTools(w io.Writer, cfg *config.Config) []string {
	desktop := cfg.Notifications.Enabled && cfg.Notifications.Type == "desktop"
	var missing []string
	for _, t := range deps.Required(cfg.Capture.Backend, cfg.Transcription.Backend, desktop) {
		st := deps.Check(t)
		if !st.Installed {
			fmt.Fprintf(w, "  [ ] %-12s not found (%s)\n", t.Name, t.Purpose)
			missing = append(missing, t.Name)
			continue
		}
		fmt.Fprintf(w, "  [x] %-12s %s %s\n", t.Name, st.Path, st.Version)
	}
	return missing
}
