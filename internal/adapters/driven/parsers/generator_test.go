package parsers

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arclight-labs/casetrail/internal/core/domain"
)

// fakeTool writes an executable shell script standing in for a parser.
func fakeTool(t *testing.T, script string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("parser tool tests use shell scripts")
	}
	path := filepath.Join(t.TempDir(), "fake-parser")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+script), 0o755))
	return path
}

func TestNewGenerators_Defaults(t *testing.T) {
	evtx := NewEvtxGenerator("")
	registry := NewRegistryGenerator("")

	assert.Equal(t, domain.SourceEvtx, evtx.Source())
	assert.Equal(t, DefaultEvtxCommand, evtx.command)
	assert.Equal(t, domain.SourceRegistry, registry.Source())
	assert.Equal(t, DefaultRegistryCommand, registry.command)
}

func TestGenerator_Generate(t *testing.T) {
	tool := fakeTool(t, `echo "{\"events_count\": 42, \"txt_path\": \"$2/artifacts/evtx/out.txt\"}"`)
	gen := NewEvtxGenerator(tool)

	result, err := gen.Generate(context.Background(), "/case/logs/security.evtx", "/case")

	require.NoError(t, err)
	assert.Equal(t, 42, result.EventsCount)
	assert.Equal(t, "/case/artifacts/evtx/out.txt", result.TxtPath)
}

func TestGenerator_Generate_ZeroEvents(t *testing.T) {
	tool := fakeTool(t, `echo '{"events_count": 0, "txt_path": ""}'`)
	gen := NewEvtxGenerator(tool)

	result, err := gen.Generate(context.Background(), "/case/empty.evtx", "/case")

	require.NoError(t, err)
	assert.Equal(t, 0, result.EventsCount)
}

func TestGenerator_Generate_ToolFailure(t *testing.T) {
	tool := fakeTool(t, `echo "corrupt file header" >&2; exit 3`)
	gen := NewRegistryGenerator(tool)

	_, err := gen.Generate(context.Background(), "/case/NTUSER.DAT", "/case")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "corrupt file header")
}

func TestGenerator_Generate_MalformedOutput(t *testing.T) {
	tool := fakeTool(t, `echo "not json"`)
	gen := NewEvtxGenerator(tool)

	_, err := gen.Generate(context.Background(), "/case/x.evtx", "/case")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse")
}

func TestGenerator_Generate_MissingDerivativePath(t *testing.T) {
	tool := fakeTool(t, `echo '{"events_count": 7, "txt_path": ""}'`)
	gen := NewEvtxGenerator(tool)

	_, err := gen.Generate(context.Background(), "/case/x.evtx", "/case")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "no derivative path")
}

func TestGenerator_Generate_PassesArguments(t *testing.T) {
	tool := fakeTool(t, `echo "{\"events_count\": 1, \"txt_path\": \"$1.txt\"}"`)
	gen := NewEvtxGenerator(tool)

	result, err := gen.Generate(context.Background(), "/case/logs/app.evtx", "/case")

	require.NoError(t, err)
	assert.Equal(t, "/case/logs/app.evtx.txt", result.TxtPath, "artifact path is the first argument")
}
