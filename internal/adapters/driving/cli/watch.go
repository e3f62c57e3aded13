package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/arclight-labs/casetrail/internal/adapters/driving/watch"
	"github.com/arclight-labs/casetrail/internal/logger"
)

var (
	watchCase     string
	watchDebounce time.Duration
)

var watchCmd = &cobra.Command{
	Use:   "watch [case-dir]",
	Short: "Watch a case directory and re-ingest on changes",
	Long: `Runs an initial ingestion, then watches the case directory tree and
re-ingests whenever artifact files are added, changed or removed.
Changes are debounced so a burst of file copies triggers one run.

Generated content under artifacts/ and the summary files are
ignored. Stop with Ctrl-C.`,
	Args: cobra.ExactArgs(1),
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().StringVarP(&watchCase, "case", "c", "", "case id to re-ingest (required)")
	watchCmd.Flags().DurationVar(&watchDebounce, "debounce", watch.DefaultDebounce, "quiet period before re-ingesting")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	caseDir := args[0]
	if watchCase == "" {
		return errors.New("case id required (use --case)")
	}

	if err := ensureRegistry(); err != nil {
		logger.Warn("Case registry unavailable: %v", err)
	}
	if err := ensureBackends(); err != nil {
		return err
	}
	if ingestService == nil {
		return errors.New("ingest service not configured")
	}
	printBackendWarnings(cmd)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd.Printf("Running initial ingestion for case %s...\n", watchCase)
	count, err := ingestService.BuildAndIndex(ctx, caseDir, watchCase)
	if err != nil {
		return fmt.Errorf("initial ingest failed: %w", err)
	}
	cmd.Printf("Indexed %d chunks.\n", count)

	w, err := watch.NewWatcher(watch.Config{
		CaseDir:  caseDir,
		CaseID:   watchCase,
		Debounce: watchDebounce,
		OnResult: func(count int, err error) {
			if err != nil {
				cmd.Println(styles.Err.Render(fmt.Sprintf("Re-ingest failed: %v", err)))
				return
			}
			cmd.Printf("Re-ingested %d chunks.\n", count)
		},
	}, ingestService)
	if err != nil {
		return fmt.Errorf("start watcher: %w", err)
	}
	defer w.Close()

	cmd.Printf("Watching %s. Press Ctrl-C to stop.\n", caseDir)
	if err := w.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	cmd.Println("Stopped.")
	return nil
}
