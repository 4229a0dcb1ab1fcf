package cmd

import (
	"errors"
	"fmt"

	"github.com/trailhound-dev/trailhound/internal/config"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"
)

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "First-time setup wizard",
	RunE:  runSetup,
}

func init() {
	rootCmd.AddCommand(setupCmd)
}

func runSetup(_ *cobra.Command, _ []string) error {
	cfg, _ := config.Load()

	storePath := cfg.Store.Path
	capThinking := cfg.Capture.Thinking
	capToolIO := cfg.Capture.ToolIO
	retentionDays := cfg.Retention.Days

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Event store path").
				Description("SQLite file where recorded traffic is kept.").
				Value(&storePath),

			huh.NewConfirm().
				Title("Capture thinking blocks?").
				Description("Internal reasoning spans, indexed for search.").
				Value(&capThinking),

			huh.NewConfirm().
				Title("Capture tool input/output?").
				Description("Payloads of tool calls and results.").
				Value(&capToolIO),

			huh.NewSelect[int]().
				Title("Retention").
				Description("How long to keep recorded events.").
				Options(
					huh.NewOption("Keep forever", 0),
					huh.NewOption("90 days", 90),
					huh.NewOption("30 days", 30),
					huh.NewOption("7 days", 7),
				).
				Value(&retentionDays),
		),
	)

	if err := form.Run(); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			fmt.Println("\n  Setup canceled, nothing saved.")
			return nil
		}
		return err
	}

	if storePath != "" {
		cfg.Store.Path = storePath
	}
	cfg.Capture.Thinking = capThinking
	cfg.Capture.ToolIO = capToolIO
	cfg.Retention.Days = retentionDays

	if err := config.Save(cfg); err != nil {
		return fmt.Errorf("saving config: %w", err)
	}

	fmt.Println()
	fmt.Printf("  Saved to %s\n", config.ConfigPath())
	fmt.Println("  Run `trailhound setup` anytime to reconfigure.")
	fmt.Println()

	return nil
}
