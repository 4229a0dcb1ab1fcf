package cmd

import (
	"fmt"

	"github.com/trailhound-dev/trailhound/internal/config"

	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show current configuration",
	RunE:  runConfig,
}

func init() {
	rootCmd.AddCommand(configCmd)
}

func runConfig(_ *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	fmt.Printf("  Config file: %s\n", config.ConfigPath())
	if config.Exists() {
		fmt.Println("  Status: loaded")
	} else {
		fmt.Println("  Status: using defaults (no config file)")
	}
	fmt.Println()

	fmt.Println("  [Store]")
	fmt.Printf("    Path: %s\n", cfg.Store.Path)
	fmt.Println()

	fmt.Println("  [Capture]")
	fmt.Printf("    Thinking blocks: %v\n", cfg.Capture.Thinking)
	fmt.Printf("    Tool I/O:        %v\n", cfg.Capture.ToolIO)
	fmt.Printf("    Max block bytes: %d\n", cfg.Capture.MaxBlockBytes)
	fmt.Println()

	fmt.Println("  [Writer]")
	fmt.Printf("    Queue capacity: %d\n", cfg.Writer.QueueCapacity)
	fmt.Printf("    Batch size:     %d\n", cfg.Writer.BatchSize)
	fmt.Printf("    Flush interval: %s\n", cfg.Writer.FlushInterval())
	fmt.Println()

	fmt.Println("  [Retention]")
	if cfg.Retention.Days > 0 {
		fmt.Printf("    Horizon: %d days\n", cfg.Retention.Days)
	} else {
		fmt.Println("    Horizon: disabled (keep forever)")
	}
	fmt.Println()

	fmt.Println("  [Observe]")
	fmt.Printf("    Address: %s\n", cfg.Observe.Addr)

	return nil
}
