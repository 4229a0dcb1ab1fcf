package cmd

import (
	"fmt"

	"github.com/trailhound-dev/trailhound/internal/cli"

	"github.com/spf13/cobra"
)

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "List recent sessions",
	RunE:  runSessions,
}

func init() {
	rootCmd.AddCommand(sessionsCmd)
}

func runSessions(cmd *cobra.Command, _ []string) error {
	engine, _, err := openEngine()
	if err != nil {
		return err
	}
	defer func() { _ = engine.Close() }()

	sessions, err := engine.RecentSessions(cmd.Context(), flagLimit)
	if err != nil {
		return err
	}

	if len(sessions) == 0 {
		fmt.Println("\n  No sessions recorded yet.")
		return nil
	}

	rows := make([][]string, 0, len(sessions))
	for _, s := range sessions {
		rows = append(rows, []string{
			cli.Ellipsize(s.ID, 20),
			s.Source,
			cli.FormatTimeAgo(s.EndTime),
			cli.FormatTokens(s.TotalTokens),
			cli.FormatCost(s.CostUSD),
		})
	}

	fmt.Println()
	fmt.Print(cli.RenderTable(cli.Table{
		Title:   "RECENT SESSIONS",
		Headers: []string{"Session", "Source", "Last Seen", "Tokens", "Cost"},
		Rows:    rows,
	}))

	return nil
}
