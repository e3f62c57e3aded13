package cli

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/arclight-labs/casetrail/internal/core/domain"
)

// runsLimit bounds the ingest run listing.
const runsLimit = 20

var casesJSON bool

var casesCmd = &cobra.Command{
	Use:   "cases",
	Short: "List registered cases",
	Long: `Lists every case the registry knows about, with the chunk count
and last ingestion time recorded for each.`,
	RunE: runCases,
}

var casesRunsCmd = &cobra.Command{
	Use:   "runs [case-id]",
	Short: "Show recent ingest runs for a case",
	Args:  cobra.ExactArgs(1),
	RunE:  runCasesRuns,
}

func init() {
	casesCmd.Flags().BoolVar(&casesJSON, "json", false, "output cases as JSON")
	casesCmd.AddCommand(casesRunsCmd)
	rootCmd.AddCommand(casesCmd)
}

func runCases(cmd *cobra.Command, _ []string) error {
	if err := ensureRegistry(); err != nil {
		return err
	}
	if caseStore == nil {
		return fmt.Errorf("case registry not configured: %w", domain.ErrCaseStoreUnavailable)
	}

	cases, err := caseStore.ListCases(context.Background())
	if err != nil {
		return fmt.Errorf("failed to list cases: %w", err)
	}

	if casesJSON {
		data, err := json.MarshalIndent(cases, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal cases: %w", err)
		}
		cmd.Println(string(data))
		return nil
	}

	if len(cases) == 0 {
		cmd.Println("No registered cases. Run 'casetrail ingest' to register one.")
		return nil
	}

	cmd.Println(styles.Header.Render("Registered cases:"))
	cmd.Println()
	for i := range cases {
		c := &cases[i]
		cmd.Printf("  %s\n", c.ID)
		cmd.Printf("    %s\n", styles.Muted.Render(c.Dir))
		cmd.Printf("    Chunks: %d", c.ChunkCount)
		if !c.LastIngestAt.IsZero() {
			cmd.Printf("  Last ingest: %s", c.LastIngestAt.Local().Format("2006-01-02 15:04:05"))
		}
		cmd.Println()
		cmd.Println()
	}

	cmd.Printf("Total: %d cases\n", len(cases))
	return nil
}

func runCasesRuns(cmd *cobra.Command, args []string) error {
	caseID := args[0]

	if err := ensureRegistry(); err != nil {
		return err
	}
	if caseStore == nil {
		return fmt.Errorf("case registry not configured: %w", domain.ErrCaseStoreUnavailable)
	}

	runs, err := caseStore.ListRuns(context.Background(), caseID, runsLimit)
	if err != nil {
		return fmt.Errorf("failed to list ingest runs: %w", err)
	}

	if len(runs) == 0 {
		cmd.Printf("No ingest runs recorded for case %s.\n", caseID)
		return nil
	}

	cmd.Println(styles.Header.Render(fmt.Sprintf("Ingest runs for %s:", caseID)))
	cmd.Println()
	for i := range runs {
		r := &runs[i]
		status := string(r.Status)
		if r.Status == domain.RunFailed {
			status = styles.Err.Render(status)
		}
		cmd.Printf("  #%d  %s  %s  %d chunks", r.ID, r.StartedAt.Local().Format("2006-01-02 15:04:05"), status, r.ChunkCount)
		if r.Error != "" {
			cmd.Printf("  (%s)", r.Error)
		}
		cmd.Println()
	}
	return nil
}
