package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/arclight-labs/casetrail/internal/core/domain"
	"github.com/arclight-labs/casetrail/internal/core/services"
)

var (
	searchCase string
	searchTopK int
	searchJSON bool
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search a case with natural language",
	Long: `Embeds the query and returns the closest indexed chunks from the
case collection. Lower distance means a closer match.`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().StringVarP(&searchCase, "case", "c", "", "case id to search (required)")
	searchCmd.Flags().IntVarP(&searchTopK, "top", "n", services.DefaultTopK, "number of hits to return")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "output hits as JSON")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	query := args[0]
	if searchCase == "" {
		return errors.New("case id required (use --case)")
	}

	if err := ensureBackends(); err != nil {
		return err
	}
	if searchService == nil {
		return errors.New("search service not configured")
	}
	printBackendWarnings(cmd)

	hits, err := searchService.Search(context.Background(), searchCase, query, searchTopK)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if searchJSON {
		return outputSearchJSON(cmd, hits)
	}
	return outputSearchTable(cmd, hits)
}

func outputSearchJSON(cmd *cobra.Command, hits []domain.SearchHit) error {
	data, err := json.MarshalIndent(hits, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal hits: %w", err)
	}
	cmd.Println(string(data))
	return nil
}

func outputSearchTable(cmd *cobra.Command, hits []domain.SearchHit) error {
	if len(hits) == 0 {
		cmd.Println("No hits found.")
		return nil
	}

	cmd.Println(styles.Header.Render("Hits:"))
	cmd.Println()
	for i := range hits {
		cmd.Printf("  [%d] distance %.4f\n", i+1, hits[i].Distance)

		origin := hits[i].Metadata.Source
		if hits[i].Metadata.File != "" {
			origin += "  " + hits[i].Metadata.File
		}
		if origin != "" {
			cmd.Printf("      %s\n", styles.Muted.Render(origin))
		}

		cmd.Printf("      %s\n", hits[i].Text)
		cmd.Println()
	}
	return nil
}
