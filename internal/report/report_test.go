package report

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cruffinoni/gobars/internal/ast"
	"github.com/cruffinoni/gobars/internal/diagnostics"
	"github.com/cruffinoni/gobars/internal/runtime"
)

func TestWriteJSONAndCSV(t *testing.T) {
	dir := t.TempDir()
	jsonPath := filepath.Join(dir, "audit", "report.json")
	csvPath := filepath.Join(dir, "audit", "report.csv")

	files := []FileItem{
		{
			File:             "b.hbs",
			Status:           StatusCompileError,
			Diagnostics:      []DiagnosticItem{{Code: "ERR", Message: "boom"}},
			RenderChecked:    false,
			FeaturesDetected: nil,
		},
		{
			File:             "a.hbs",
			Status:           StatusCompiled,
			SpecPath:         "out/a.json",
			Statements:       3,
			Cached:           true,
			FeaturesDetected: []string{"block:if"},
			HelpersRequired:  []string{"t"},
			RenderChecked:    true,
		},
	}
	summary := Summary{
		Discovered:    2,
		Compiled:      1,
		CompileFailed: 1,
	}

	rep := NewJSONReport(summary, files)
	require.NoError(t, WriteJSON(jsonPath, rep))
	require.NoError(t, WriteCSV(csvPath, files))

	raw, err := os.ReadFile(jsonPath)
	require.NoError(t, err)
	var decoded JSONReport
	require.NoError(t, json.Unmarshal(raw, &decoded))
	require.Equal(t, 2, decoded.Summary.Discovered)
	require.Equal(t, 1, decoded.Summary.CompileFailed)

	fh, err := os.Open(csvPath)
	require.NoError(t, err)
	defer fh.Close()
	rows, err := csv.NewReader(fh).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	require.Equal(t, []string{"a.hbs", "compiled", "out/a.json", "3", "true", "0", "1", "1", "true", ""}, rows[1])
	require.Equal(t, "b.hbs", rows[2][0])

	require.NoError(t, WriteJSON("", rep))
	require.NoError(t, WriteCSV("", files))
}

func TestToDiagnosticItem(t *testing.T) {
	d := diagnostics.New("SYNTAX_UNCLOSED_TAG", "a.hbs", 2, 4, "unclosed tag", "<div")
	item := ToDiagnosticItem("a.hbs", fmt.Errorf("compile: %w", d))
	require.Equal(t, "SYNTAX_UNCLOSED_TAG", item.Code)
	require.Equal(t, 2, item.Line)
	require.Equal(t, 4, item.Column)
	require.Equal(t, "<div", item.Snippet)

	loc := ast.NewLocation("a.hbs", ast.Position{Line: 1, Column: 3}, ast.Position{Line: 1, Column: 12})
	stmtErr := &runtime.StatementError{Loc: loc, Err: fmt.Errorf("%w: t", runtime.ErrMissingHelper)}
	item = ToDiagnosticItem("a.hbs", stmtErr)
	require.Equal(t, "RENDER_MISSING_HELPER", item.Code)
	require.Equal(t, 1, item.Line)
	require.Equal(t, 3, item.Column)

	item = ToDiagnosticItem("c.hbs", errors.New("disk full"))
	require.Equal(t, DiagnosticItem{Code: "ERROR", Message: "disk full", File: "c.hbs"}, item)
}
