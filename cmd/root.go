// Package cmd implements the trailhound CLI commands.
package cmd

import (
	"os"

	"github.com/trailhound-dev/trailhound/internal/config"
	"github.com/trailhound-dev/trailhound/internal/query"

	"github.com/spf13/cobra"
)

var (
	flagStorePath string
	flagLimit     int
)

var rootCmd = &cobra.Command{
	Use:   "trailhound",
	Short: "Agent traffic recorder and recall engine",
	Long: "Record a long-running agent's API traffic into a local SQLite store\n" +
		"and search the accumulated history for context recovery.",
	RunE: runStats,
}

// Execute is the main entry point called from main.go.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&flagStorePath, "store", "s", "", "Path to the event store (default from config)")
	rootCmd.PersistentFlags().IntVarP(&flagLimit, "limit", "l", 20, "Max results to return")
}

// loadConfig resolves config with the --store flag applied on top.
func loadConfig() (config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return cfg, err
	}
	if flagStorePath != "" {
		cfg.Store.Path = flagStorePath
	}
	if cfg.Store.Path == "" {
		cfg.Store.Path = config.DefaultStorePath()
	}
	return cfg, nil
}

// openEngine is the shared read path used by the query-side commands.
func openEngine() (*query.Engine, config.Config, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, cfg, err
	}
	engine, err := query.Open(cfg.Store.Path, 4)
	if err != nil {
		return nil, cfg, err
	}
	return engine, cfg, nil
}
