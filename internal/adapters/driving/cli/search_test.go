package cli

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arclight-labs/casetrail/internal/core/domain"
)

func TestSearchCmd_Use(t *testing.T) {
	assert.Equal(t, "search [query]", searchCmd.Use)
}

func TestSearchCmd_Short(t *testing.T) {
	assert.Equal(t, "Search a case with natural language", searchCmd.Short)
}

func TestSearchCmd_RequiresExactlyOneArg(t *testing.T) {
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs([]string{"search"})
	defer func() {
		rootCmd.SetArgs(nil)
	}()

	err := rootCmd.Execute()

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "accepts 1 arg(s)")
}

func TestSearchCmd_HasTopFlag(t *testing.T) {
	flag := searchCmd.Flags().Lookup("top")
	require.NotNil(t, flag, "top flag should exist")
	assert.Equal(t, "n", flag.Shorthand)
	assert.Equal(t, "5", flag.DefValue)
}

func TestSearchCmd_RequiresCaseFlag(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs([]string{"search", "suspicious logons"})
	defer func() {
		rootCmd.SetArgs(nil)
	}()

	err := rootCmd.Execute()

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "case id required")
}

func TestSearchCmd_ExecutesWithQuery(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetArgs([]string{"search", "--case", "case-1", "suspicious logons"})
	defer func() {
		rootCmd.SetArgs(nil)
		searchCase = ""
	}()

	err := rootCmd.Execute()

	assert.NoError(t, err)
	assert.Contains(t, buf.String(), "Hits:")
	assert.Contains(t, buf.String(), "0.1234")
	assert.Contains(t, buf.String(), "Security.evtx")

	mock := searchService.(*mockSearcher)
	assert.Equal(t, "case-1", mock.lastCaseID)
	assert.Equal(t, "suspicious logons", mock.lastQuery)
	assert.Equal(t, 5, mock.lastTopK)
}

func TestSearchCmd_TopFlagPassesThrough(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetArgs([]string{"search", "--case", "case-1", "-n", "25", "lateral movement"})
	defer func() {
		rootCmd.SetArgs(nil)
		searchCase = ""
		searchTopK = 5
	}()

	err := rootCmd.Execute()

	assert.NoError(t, err)
	mock := searchService.(*mockSearcher)
	assert.Equal(t, 25, mock.lastTopK)
}

func TestSearchCmd_JSONOutput(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetArgs([]string{"search", "--case", "case-1", "--json", "suspicious logons"})
	defer func() {
		rootCmd.SetArgs(nil)
		searchCase = ""
		searchJSON = false
	}()

	err := rootCmd.Execute()

	assert.NoError(t, err)
	assert.Contains(t, buf.String(), "\"distance\"")
	assert.Contains(t, buf.String(), "\"case-1_abc\"")
	assert.Contains(t, buf.String(), "\"evtx\"")
}

func TestSearchCmd_ServiceNotConfigured(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()
	searchService = nil

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs([]string{"search", "--case", "case-1", "test"})
	defer func() {
		rootCmd.SetArgs(nil)
		searchCase = ""
	}()

	err := rootCmd.Execute()

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "search service not configured")
}

func TestSearchCmd_ServiceError(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()
	searchService = &mockSearcher{err: errors.New("collection gone")}

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs([]string{"search", "--case", "case-1", "test"})
	defer func() {
		rootCmd.SetArgs(nil)
		searchCase = ""
	}()

	err := rootCmd.Execute()

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "search failed")
}

func TestOutputSearchTable_EmptyResults(t *testing.T) {
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)

	err := outputSearchTable(rootCmd, nil)

	assert.NoError(t, err)
	assert.Contains(t, buf.String(), "No hits found")
}

func TestOutputSearchTable_WithHits(t *testing.T) {
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)

	hits := []domain.SearchHit{
		{
			ID:       "acme_1",
			Distance: 0.42,
			Text:     "RunOnce updater.exe added",
			Metadata: domain.ChunkMetadata{Source: "registry", File: "NTUSER.DAT"},
		},
	}

	err := outputSearchTable(rootCmd, hits)

	assert.NoError(t, err)
	assert.Contains(t, buf.String(), "0.4200")
	assert.Contains(t, buf.String(), "registry")
	assert.Contains(t, buf.String(), "NTUSER.DAT")
	assert.Contains(t, buf.String(), "RunOnce updater.exe added")
}

func TestOutputSearchJSON_EmptyResults(t *testing.T) {
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)

	err := outputSearchJSON(rootCmd, []domain.SearchHit{})

	assert.NoError(t, err)
	assert.Contains(t, buf.String(), "[]")
}
