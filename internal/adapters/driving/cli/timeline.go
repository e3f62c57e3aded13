package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/arclight-labs/casetrail/internal/core/domain"
)

var (
	timelineLimit int
	timelineAsc   bool
	timelineJSON  bool
)

var timelineCmd = &cobra.Command{
	Use:   "timeline [case]",
	Short: "Print the fused event timeline of a case",
	Long: `Fuses the event-log and registry derivatives of a case into one
chronological view, newest first by default.

The argument is a case directory or the id of a registered case.
Events whose timestamp could not be parsed sort after all dated
events and show ` + domain.UnknownTime + ` in the timestamp column.
The timeline is built from the derivatives on disk alone; no backend
needs to be running.`,
	Args: cobra.ExactArgs(1),
	RunE: runTimeline,
}

func init() {
	timelineCmd.Flags().IntVarP(&timelineLimit, "limit", "n", domain.DefaultTimelineLimit, "maximum number of events")
	timelineCmd.Flags().BoolVar(&timelineAsc, "asc", false, "sort oldest first")
	timelineCmd.Flags().BoolVar(&timelineJSON, "json", false, "output events as JSON")
	rootCmd.AddCommand(timelineCmd)
}

func runTimeline(cmd *cobra.Command, args []string) error {
	if err := ensureCore(); err != nil {
		return err
	}
	if timelineService == nil {
		return errors.New("timeline service not configured")
	}

	caseDir, err := resolveCaseDir(args[0])
	if err != nil {
		return err
	}

	opts := domain.TimelineOptions{
		Limit:      timelineLimit,
		Descending: !timelineAsc,
	}
	events, err := timelineService.Build(context.Background(), caseDir, opts)
	if err != nil {
		return fmt.Errorf("timeline failed: %w", err)
	}

	if timelineJSON {
		return outputTimelineJSON(cmd, events)
	}
	return outputTimelineTable(cmd, caseDir, events)
}

// resolveCaseDir accepts either a case directory path or the id of a
// registered case.
func resolveCaseDir(arg string) (string, error) {
	if info, err := os.Stat(arg); err == nil && info.IsDir() {
		return arg, nil
	}

	if err := ensureRegistry(); err != nil {
		return "", fmt.Errorf("%s is not a directory and the case registry is unavailable: %w", arg, err)
	}
	record, err := caseStore.GetCase(context.Background(), arg)
	if err != nil {
		if errors.Is(err, domain.ErrCaseNotFound) {
			return "", fmt.Errorf("no directory or registered case named %q", arg)
		}
		return "", fmt.Errorf("resolve case %q: %w", arg, err)
	}
	return record.Dir, nil
}

func outputTimelineJSON(cmd *cobra.Command, events []domain.TimelineEvent) error {
	data, err := json.MarshalIndent(events, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal events: %w", err)
	}
	cmd.Println(string(data))
	return nil
}

func outputTimelineTable(cmd *cobra.Command, caseDir string, events []domain.TimelineEvent) error {
	if len(events) == 0 {
		cmd.Println("No events found. Run 'casetrail ingest' first to generate derivatives.")
		return nil
	}

	header := fmt.Sprintf("Timeline for %s (%d events):", caseDir, len(events))
	cmd.Println(styles.Header.Render(header))
	cmd.Println()
	for i := range events {
		cmd.Printf("  %-30s %s\n", events[i].Timestamp, formatTimelineEvent(&events[i]))
	}
	return nil
}

// formatTimelineEvent renders the source, origin fields and
// description of one event as a single line.
func formatTimelineEvent(e *domain.TimelineEvent) string {
	var b strings.Builder
	b.WriteString("[" + string(e.Source) + "]")
	if e.Channel != "" {
		b.WriteString(" " + e.Channel)
	}
	if e.Computer != "" {
		b.WriteString("@" + e.Computer)
	}
	if e.EventID != nil {
		fmt.Fprintf(&b, " #%d", *e.EventID)
	}
	if e.Description != "" {
		b.WriteString(" " + e.Description)
	}
	return b.String()
}
