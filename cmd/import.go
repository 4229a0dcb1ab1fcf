package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/trailhound-dev/trailhound/internal/ingest"
	"github.com/trailhound-dev/trailhound/internal/model"
	"github.com/trailhound-dev/trailhound/internal/source"
	"github.com/trailhound-dev/trailhound/internal/store"
	"github.com/trailhound-dev/trailhound/internal/writer"

	"github.com/spf13/cobra"
)

var importCmd = &cobra.Command{
	Use:   "import <transcript.ndjson>...",
	Short: "Import event transcripts into the store",
	Long:  "Bulk-load newline-delimited JSON event transcripts through the same ingest path the daemon uses.",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runImport,
}

func init() {
	rootCmd.AddCommand(importCmd)
}

func runImport(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	st, err := store.Open(cfg.Store.Path)
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()

	w := writer.New(st, writer.Config{
		QueueCapacity: cfg.Writer.QueueCapacity,
		BatchSize:     cfg.Writer.BatchSize,
		FlushInterval: cfg.Writer.FlushInterval(),
	})
	proc := ingest.New(w, cfg)

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	var events, invalid int
	for _, path := range args {
		res, err := source.ReadFile(path, func(ev model.Event) error {
			// A full queue here means the writer is behind the file read;
			// back off briefly instead of losing transcript rows.
			for proc.Process(ctx, ev) == ingest.OutcomeDropped {
				select {
				case <-ctx.Done():
					return ctx.Err()
				case <-time.After(10 * time.Millisecond):
				}
			}
			return nil
		})
		events += res.Events
		invalid += res.Invalid
		if err != nil {
			return fmt.Errorf("import %s: %w", path, err)
		}
	}

	drainCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := w.Shutdown(drainCtx); err != nil {
		return fmt.Errorf("drain writer: %w", err)
	}

	snap := w.Metrics()
	fmt.Printf("  Imported %d events (%d invalid lines skipped)\n", events, invalid)
	fmt.Printf("  Stored: %d  Failed: %d  Flushes: %d\n", snap.Stored, snap.StoreFailed, snap.Flushes)

	return nil
}
