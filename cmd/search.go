package cmd

import (
	"context"
	"fmt"

	"github.com/trailhound-dev/trailhound/internal/cli"
	"github.com/trailhound-dev/trailhound/internal/model"
	"github.com/trailhound-dev/trailhound/internal/query"

	"github.com/spf13/cobra"
)

var (
	flagSearchMode   string
	flagSearchSource string
)

var searchCmd = &cobra.Command{
	Use:   "search <term>",
	Short: "Search the recorded history",
	Long: "Ranked full-text search across thinking blocks, prompts, and responses.\n" +
		"Modes: phrase (literal, default), natural (AND/OR/NOT and trailing *), raw (unescaped).",
	Args: cobra.MinimumNArgs(1),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().StringVarP(&flagSearchMode, "mode", "m", "phrase", "Search mode: phrase, natural, raw")
	searchCmd.Flags().StringVar(&flagSearchSource, "source", "", "Restrict to one source: thinking, prompts, responses")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	engine, _, err := openEngine()
	if err != nil {
		return err
	}
	defer func() { _ = engine.Close() }()

	mode, err := query.ParseMode(flagSearchMode)
	if err != nil {
		return err
	}

	term := args[0]
	for _, a := range args[1:] {
		term += " " + a
	}

	var hits []model.SearchHit
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if flagSearchSource != "" {
		hits, err = engine.SearchSource(ctx, model.SearchSource(flagSearchSource), term, mode, flagLimit)
	} else {
		hits, err = engine.Search(ctx, term, mode, flagLimit)
	}
	if err != nil {
		return err
	}

	if len(hits) == 0 {
		fmt.Println("\n  No matches.")
		return nil
	}

	rows := make([][]string, 0, len(hits))
	for _, h := range hits {
		rows = append(rows, []string{
			cli.Ellipsize(h.Snippet, 60),
			string(h.Source),
			cli.Ellipsize(h.SessionID, 12),
			cli.FormatTimeAgo(h.Timestamp),
			fmt.Sprintf("%.2f", h.Rank),
		})
	}

	fmt.Println()
	fmt.Print(cli.RenderTable(cli.Table{
		Title:   fmt.Sprintf("SEARCH  %q  mode=%s", term, mode),
		Headers: []string{"Match", "Source", "Session", "When", "Rank"},
		Rows:    rows,
	}))

	return nil
}
