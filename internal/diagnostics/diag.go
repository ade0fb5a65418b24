package diagnostics

import (
	"errors"
	"fmt"

	"github.com/cruffinoni/gobars/internal/ast"
)

// Diagnostic is a structured syntax or compile error with source metadata.
// Line is 1-based and Column 0-based, like ast.Position.
type Diagnostic struct {
	Code      string
	Message   string
	File      string
	Line      int
	Column    int
	EndLine   int
	EndColumn int
	Snippet   string
}

// Error implements the error interface with location and error code formatting.
func (d Diagnostic) Error() string {
	location := d.File
	if location == "" {
		location = "<template>"
	}
	if d.Line > 0 {
		location = fmt.Sprintf("%s:%d:%d", location, d.Line, d.Column)
	}
	if d.Code == "" {
		return fmt.Sprintf("%s: %s", location, d.Message)
	}
	return fmt.Sprintf("%s [%s]: %s", location, d.Code, d.Message)
}

// Location returns the span the diagnostic points at.
func (d Diagnostic) Location() ast.Location {
	end := ast.Position{Line: d.EndLine, Column: d.EndColumn}
	if d.EndLine == 0 {
		end = ast.Position{Line: d.Line, Column: d.Column}
	}
	return ast.NewLocation(d.File, ast.Position{Line: d.Line, Column: d.Column}, end)
}

// New constructs a Diagnostic pointing at a single position.
func New(code string, file string, line int, column int, msg string, snippet string) Diagnostic {
	return Diagnostic{
		Code:      code,
		Message:   msg,
		File:      file,
		Line:      line,
		Column:    column,
		EndLine:   line,
		EndColumn: column,
		Snippet:   snippet,
	}
}

// At constructs a Diagnostic covering loc.
func At(code string, loc ast.Location, msg string, snippet string) Diagnostic {
	return Diagnostic{
		Code:      code,
		Message:   msg,
		File:      loc.SourceName(),
		Line:      loc.Start.Line,
		Column:    loc.Start.Column,
		EndLine:   loc.End.Line,
		EndColumn: loc.End.Column,
		Snippet:   snippet,
	}
}

// As extracts a Diagnostic from an error chain.
func As(err error) (Diagnostic, bool) {
	var d Diagnostic
	if errors.As(err, &d) {
		return d, true
	}
	return Diagnostic{}, false
}
