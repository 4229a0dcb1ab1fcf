package cmd

import (
	"github.com/trailhound-dev/trailhound/internal/tui"

	"github.com/spf13/cobra"
)

var tuiCmd = &cobra.Command{
	Use:   "browse",
	Short: "Interactive recall browser",
	RunE:  runBrowse,
}

func init() {
	rootCmd.AddCommand(tuiCmd)
}

func runBrowse(_ *cobra.Command, _ []string) error {
	engine, _, err := openEngine()
	if err != nil {
		return err
	}
	defer func() { _ = engine.Close() }()

	return tui.Run(engine, flagLimit)
}
