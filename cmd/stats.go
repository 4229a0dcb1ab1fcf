package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/trailhound-dev/trailhound/internal/cli"

	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Lifetime usage statistics",
	RunE:  runStats,
}

func init() {
	rootCmd.AddCommand(statsCmd)
}

func runStats(cmd *cobra.Command, _ []string) error {
	engine, _, err := openEngine()
	if err != nil {
		return err
	}
	defer func() { _ = engine.Close() }()

	ctx := context.Background()
	if cmd != nil && cmd.Context() != nil {
		ctx = cmd.Context()
	}

	stats, err := engine.Stats(ctx)
	if err != nil {
		return err
	}

	fmt.Println()
	fmt.Println(cli.RenderTitle("TRAILHOUND  Lifetime Usage"))
	fmt.Println()

	fmt.Printf("  Sessions:  %s\n", cli.FormatNumber(stats.TotalSessions))
	fmt.Printf("  Tokens:    %s\n", cli.FormatTokens(stats.TotalTokens))
	fmt.Printf("  Cost:      %s\n", cli.FormatCost(stats.TotalCostUSD))
	if !stats.FirstSession.IsZero() {
		fmt.Printf("  First:     %s\n", stats.FirstSession.Local().Format(time.RFC3339))
		fmt.Printf("  Last:      %s\n", stats.LastSession.Local().Format(time.RFC3339))
	}
	fmt.Println()

	if len(stats.ByModel) > 0 {
		rows := make([][]string, 0, len(stats.ByModel))
		for _, ms := range stats.ByModel {
			rows = append(rows, []string{
				ms.Model,
				cli.FormatNumber(ms.APICalls),
				cli.FormatTokens(ms.InputTokens),
				cli.FormatTokens(ms.OutputTokens),
				cli.FormatCost(ms.CostUSD),
			})
		}
		fmt.Print(cli.RenderTable(cli.Table{
			Title:   "BY MODEL",
			Headers: []string{"Model", "Calls", "Input", "Output", "Cost"},
			Rows:    rows,
		}))
		fmt.Println()
	}

	if len(stats.ByTool) > 0 {
		rows := make([][]string, 0, len(stats.ByTool))
		for _, ts := range stats.ByTool {
			rows = append(rows, []string{
				ts.Tool,
				cli.FormatNumber(ts.Calls),
				cli.FormatDurationMs(ts.AvgDurationMs),
				cli.FormatPercent(ts.SuccessRate),
			})
		}
		fmt.Print(cli.RenderTable(cli.Table{
			Title:   "BY TOOL",
			Headers: []string{"Tool", "Calls", "Avg Duration", "Success"},
			Rows:    rows,
		}))
	}

	return nil
}
