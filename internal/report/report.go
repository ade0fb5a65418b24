package report

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/cruffinoni/gobars/internal/diagnostics"
	"github.com/cruffinoni/gobars/internal/runtime"
)

// FileStatus is the per-template processing status used in reports.
type FileStatus string

const (
	StatusCompiled       FileStatus = "compiled"
	StatusCompiledNoData FileStatus = "compiled_no_sample"
	StatusCompileError   FileStatus = "failed_compile"
	StatusRoundTripError FileStatus = "failed_roundtrip"
	StatusRenderError    FileStatus = "failed_render"
)

// DiagnosticItem is the report-friendly representation of one error/diagnostic.
type DiagnosticItem struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	File    string `json:"file,omitempty"`
	Line    int    `json:"line,omitempty"`
	Column  int    `json:"column,omitempty"`
	Snippet string `json:"snippet,omitempty"`
}

// FileItem describes compilation and validation for one template file.
type FileItem struct {
	File             string           `json:"file"`
	Status           FileStatus       `json:"status"`
	SpecPath         string           `json:"spec_path,omitempty"`
	Statements       int              `json:"statements"`
	Cached           bool             `json:"cached"`
	Diagnostics      []DiagnosticItem `json:"diagnostics,omitempty"`
	FeaturesDetected []string         `json:"features_detected,omitempty"`
	HelpersRequired  []string         `json:"helpers_required,omitempty"`
	RenderChecked    bool             `json:"render_checked"`
	SamplePath       string           `json:"sample_path,omitempty"`
	RenderedPath     string           `json:"rendered_path,omitempty"`
}

// Summary contains aggregate counters for a precompile run.
type Summary struct {
	Discovered      int      `json:"discovered"`
	Compiled        int      `json:"compiled"`
	CompileFailed   int      `json:"compile_failed"`
	RoundTripFailed int      `json:"roundtrip_failed"`
	RenderFailed    int      `json:"render_failed"`
	NoSample        int      `json:"no_sample"`
	CacheHits       int      `json:"cache_hits"`
	HelpersNeeded   []string `json:"helpers_needed,omitempty"`
}

// JSONReport is the structured report persisted by --report-json.
type JSONReport struct {
	GeneratedAt string     `json:"generated_at"`
	Summary     Summary    `json:"summary"`
	Files       []FileItem `json:"files"`
}

// NewJSONReport builds a report payload with RFC3339 generation timestamp.
func NewJSONReport(summary Summary, files []FileItem) JSONReport {
	return JSONReport{
		GeneratedAt: time.Now().UTC().Format(time.RFC3339),
		Summary:     summary,
		Files:       files,
	}
}

// ToDiagnosticItem converts an error to a typed report diagnostic. Syntax
// diagnostics keep their code; render failures keep the statement location.
func ToDiagnosticItem(file string, err error) DiagnosticItem {
	if d, ok := diagnostics.As(err); ok {
		return DiagnosticItem{
			Code:    d.Code,
			Message: d.Message,
			File:    d.File,
			Line:    d.Line,
			Column:  d.Column,
			Snippet: d.Snippet,
		}
	}
	var stmtErr *runtime.StatementError
	if errors.As(err, &stmtErr) {
		code := "RENDER_ERROR"
		if errors.Is(err, runtime.ErrMissingHelper) {
			code = "RENDER_MISSING_HELPER"
		}
		return DiagnosticItem{
			Code:    code,
			Message: stmtErr.Err.Error(),
			File:    file,
			Line:    stmtErr.Loc.Start.Line,
			Column:  stmtErr.Loc.Start.Column,
		}
	}
	return DiagnosticItem{
		Code:    "ERROR",
		Message: err.Error(),
		File:    file,
	}
}

// WriteJSON writes the full JSON report if path is non-empty.
func WriteJSON(path string, report JSONReport) error {
	if path == "" {
		return nil
	}
	raw, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, append(raw, '\n'), 0o644)
}

// csvColumns flattens a FileItem into one CSV row, in header order.
var csvColumns = []struct {
	name  string
	value func(FileItem) string
}{
	{"file", func(f FileItem) string { return f.File }},
	{"status", func(f FileItem) string { return string(f.Status) }},
	{"spec_path", func(f FileItem) string { return f.SpecPath }},
	{"statements", func(f FileItem) string { return strconv.Itoa(f.Statements) }},
	{"cached", func(f FileItem) string { return strconv.FormatBool(f.Cached) }},
	{"diagnostics_count", func(f FileItem) string { return strconv.Itoa(len(f.Diagnostics)) }},
	{"helpers_count", func(f FileItem) string { return strconv.Itoa(len(f.HelpersRequired)) }},
	{"features_count", func(f FileItem) string { return strconv.Itoa(len(f.FeaturesDetected)) }},
	{"render_checked", func(f FileItem) string { return strconv.FormatBool(f.RenderChecked) }},
	{"sample_path", func(f FileItem) string { return f.SamplePath }},
}

// WriteCSV writes one row per file, sorted by path, if path is non-empty.
func WriteCSV(path string, files []FileItem) error {
	if path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	fh, err := os.Create(path)
	if err != nil {
		return err
	}
	defer fh.Close()

	rows := make([][]string, 0, len(files)+1)
	header := make([]string, len(csvColumns))
	for i, col := range csvColumns {
		header[i] = col.name
	}
	rows = append(rows, header)

	sorted := slices.Clone(files)
	slices.SortFunc(sorted, func(a, b FileItem) int { return strings.Compare(a.File, b.File) })
	for _, item := range sorted {
		row := make([]string, len(csvColumns))
		for i, col := range csvColumns {
			row[i] = col.value(item)
		}
		rows = append(rows, row)
	}

	w := csv.NewWriter(fh)
	if err := w.WriteAll(rows); err != nil {
		return err
	}
	return fh.Close()
}
