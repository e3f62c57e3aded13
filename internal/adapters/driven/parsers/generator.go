// Package parsers provides derivative generators that shell out to
// the external artifact parsing tools. Each tool reads one binary
// artifact, writes the JSONL and text derivatives under the case's
// artifacts directory and prints a small JSON result on stdout.
package parsers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/arclight-labs/casetrail/internal/core/domain"
	"github.com/arclight-labs/casetrail/internal/core/ports/driven"
)

// Ensure Generator implements the interface.
var _ driven.DerivativeGenerator = (*Generator)(nil)

// Default configuration values.
const (
	DefaultEvtxCommand     = "casetrail-evtx"
	DefaultRegistryCommand = "casetrail-registry"
	DefaultTimeout         = 5 * time.Minute
)

// generateResult is the JSON document a parser tool prints on stdout.
type generateResult struct {
	EventsCount int    `json:"events_count"`
	TxtPath     string `json:"txt_path"`
}

// Generator runs one external parser tool. The tool is invoked as
// `<command> <artifact-path> <case-dir>`.
type Generator struct {
	source  domain.Source
	command string
	timeout time.Duration
}

// NewEvtxGenerator creates a generator for Windows event logs.
// An empty command selects the default tool on PATH.
func NewEvtxGenerator(command string) *Generator {
	if command == "" {
		command = DefaultEvtxCommand
	}
	return &Generator{
		source:  domain.SourceEvtx,
		command: command,
		timeout: DefaultTimeout,
	}
}

// NewRegistryGenerator creates a generator for registry hives.
// An empty command selects the default tool on PATH.
func NewRegistryGenerator(command string) *Generator {
	if command == "" {
		command = DefaultRegistryCommand
	}
	return &Generator{
		source:  domain.SourceRegistry,
		command: command,
		timeout: DefaultTimeout,
	}
}

// SetTimeout overrides the per-artifact timeout.
func (g *Generator) SetTimeout(d time.Duration) {
	if d > 0 {
		g.timeout = d
	}
}

// Source returns the artifact source this generator handles.
func (g *Generator) Source() domain.Source {
	return g.source
}

// Generate runs the parser tool for one artifact and returns the
// derivative result. The tool's stderr is folded into the error so a
// broken artifact is diagnosable from the skip log.
func (g *Generator) Generate(ctx context.Context, path, caseDir string) (*driven.DerivativeResult, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, g.command, path, caseDir)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return nil, fmt.Errorf("%s: %w: %s", g.command, err, msg)
		}
		return nil, fmt.Errorf("%s: %w", g.command, err)
	}

	var result generateResult
	if err := json.Unmarshal(stdout.Bytes(), &result); err != nil {
		return nil, fmt.Errorf("parse %s output: %w", g.command, err)
	}
	if result.EventsCount > 0 && result.TxtPath == "" {
		return nil, fmt.Errorf("%s reported %d events but no derivative path", g.command, result.EventsCount)
	}

	return &driven.DerivativeResult{
		EventsCount: result.EventsCount,
		TxtPath:     result.TxtPath,
	}, nil
}
