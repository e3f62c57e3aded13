package cli

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/arclight-labs/casetrail/internal/logger"
)

var ingestCase string

var ingestCmd = &cobra.Command{
	Use:   "ingest [case-dir]",
	Short: "Ingest a case directory into the index",
	Long: `Walks a case directory, converts recognised artifacts to text and
indexes every chunk in the vector store.

Event logs (.evtx) and registry hives are parsed by the external
casetrail-evtx and casetrail-registry tools into derivatives under
<case-dir>/artifacts/. Plain .txt, .log and .csv files are indexed
directly. Without --case a fresh case id is derived from the
directory name.`,
	Args: cobra.ExactArgs(1),
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().StringVarP(&ingestCase, "case", "c", "", "case id (generated when omitted)")
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	caseDir := args[0]

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

	caseID := ingestCase
	if caseID == "" {
		caseID = newCaseID(caseDir)
		cmd.Printf("Generated case id: %s\n", caseID)
	}

	cmd.Printf("Ingesting %s into case %s...\n", caseDir, caseID)

	count, err := ingestService.BuildAndIndex(context.Background(), caseDir, caseID)
	if err != nil {
		return fmt.Errorf("ingest failed: %w", err)
	}

	if count == 0 {
		cmd.Println("No indexable text found.")
		return nil
	}
	cmd.Printf("Indexed %d chunks into case %s.\n", count, caseID)
	return nil
}

// newCaseID derives a case id from the directory name plus a random
// suffix so repeated ingestions of same-named directories never
// collide.
func newCaseID(caseDir string) string {
	base := strings.ToLower(filepath.Base(filepath.Clean(caseDir)))
	var b strings.Builder
	for _, r := range base {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '-' || r == '_' || r == ' ':
			b.WriteRune('-')
		}
	}
	slug := strings.Trim(b.String(), "-")
	if slug == "" {
		slug = "case"
	}
	return slug + "-" + uuid.NewString()[:8]
}
