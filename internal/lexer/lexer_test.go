package lexer

import (
	"testing"

	"github.com/cruffinoni/gobars/internal/ast"
	"github.com/cruffinoni/gobars/internal/diagnostics"
	"github.com/stretchr/testify/require"
)

func TestLexBasicTemplate(t *testing.T) {
	src := "<p>{{name}}</p>{{#if ok}}yes{{else}}no{{/if}}"
	tokens, err := Lex("sample.hbs", src)
	require.NoError(t, err)
	require.Len(t, tokens, 8)
	require.Equal(t, TokenContent, tokens[0].Kind)
	require.Equal(t, "<p>", tokens[0].Raw)
	require.Equal(t, TokenOpen, tokens[1].Kind)
	require.Equal(t, "name", tokens[1].Body)
	require.Equal(t, TokenBlock, tokens[3].Kind)
	require.Equal(t, "if ok", tokens[3].Body)
	require.Equal(t, TokenElse, tokens[5].Kind)
	require.Equal(t, TokenClose, tokens[7].Kind)
	require.Equal(t, "if", tokens[7].Body)
}

func TestLexPositions(t *testing.T) {
	tokens, err := Lex("", "a\n  {{foo}}")
	require.NoError(t, err)
	require.Len(t, tokens, 2)
	require.Equal(t, ast.Position{Line: 2, Column: 2}, tokens[1].Start)
	require.Equal(t, ast.Position{Line: 2, Column: 9}, tokens[1].End)
	require.Equal(t, ast.Position{Line: 2, Column: 4}, tokens[1].BodyStart)
}

func TestLexTripleStashAndAmpersand(t *testing.T) {
	tokens, err := Lex("", "{{{raw}}}{{&also}}")
	require.NoError(t, err)
	require.Len(t, tokens, 2)
	require.Equal(t, TokenUnescaped, tokens[0].Kind)
	require.Equal(t, "raw", tokens[0].Body)
	require.Equal(t, TokenUnescaped, tokens[1].Kind)
	require.Equal(t, "also", tokens[1].Body)
}

func TestLexStripMarkers(t *testing.T) {
	tokens, err := Lex("", "{{~foo~}}{{! note ~}}")
	require.NoError(t, err)
	require.Len(t, tokens, 2)
	require.True(t, tokens[0].Strip.Open)
	require.True(t, tokens[0].Strip.Close)
	require.Equal(t, "foo", tokens[0].Body)
	require.Equal(t, TokenComment, tokens[1].Kind)
	require.True(t, tokens[1].Strip.Close)
	require.Equal(t, " note ", tokens[1].Body)
}

func TestLexLongComment(t *testing.T) {
	tokens, err := Lex("", "{{!-- has }} inside --}}")
	require.NoError(t, err)
	require.Len(t, tokens, 1)
	require.Equal(t, TokenComment, tokens[0].Kind)
	require.Equal(t, " has }} inside ", tokens[0].Body)
}

func TestLexElseIf(t *testing.T) {
	tokens, err := Lex("", "{{else if b}}{{^}}")
	require.NoError(t, err)
	require.Len(t, tokens, 2)
	require.Equal(t, TokenElse, tokens[0].Kind)
	require.Equal(t, " if b", tokens[0].Body)
	require.Equal(t, ast.Position{Line: 1, Column: 6}, tokens[0].BodyStart)
	require.Equal(t, TokenElse, tokens[1].Kind)
}

func TestLexInverseSection(t *testing.T) {
	tokens, err := Lex("", "{{^items}}none{{/items}}")
	require.NoError(t, err)
	require.Equal(t, TokenInverse, tokens[0].Kind)
	require.Equal(t, "items", tokens[0].Body)
}

func TestLexQuotedCloser(t *testing.T) {
	tokens, err := Lex("", `{{foo "}}"}}`)
	require.NoError(t, err)
	require.Len(t, tokens, 1)
	require.Equal(t, `foo "}}"`, tokens[0].Body)
}

func TestLexUnsupportedForms(t *testing.T) {
	tokens, err := Lex("", "{{> partial}}{{#> layout}}{{* deco}}")
	require.NoError(t, err)
	require.Equal(t, TokenPartial, tokens[0].Kind)
	require.Equal(t, TokenDecorator, tokens[1].Kind)
	require.Equal(t, TokenDecorator, tokens[2].Kind)

	_, err = Lex("raw.hbs", "{{{{raw}}}}x{{{{/raw}}}}")
	diag, ok := diagnostics.As(err)
	require.True(t, ok)
	require.Equal(t, "LEX_RAW_BLOCK", diag.Code)
}

func TestLexReportsLineAndColumn(t *testing.T) {
	_, err := Lex("broken.hbs", "abc\n  {{missing")
	require.Error(t, err)
	diag, ok := err.(diagnostics.Diagnostic)
	require.True(t, ok)
	require.Equal(t, "LEX_UNCLOSED_MUSTACHE", diag.Code)
	require.Equal(t, 2, diag.Line)
	require.Equal(t, 2, diag.Column)
}

func TestLexUnclosedComment(t *testing.T) {
	_, err := Lex("", "{{!-- open")
	diag, ok := diagnostics.As(err)
	require.True(t, ok)
	require.Equal(t, "LEX_UNCLOSED_COMMENT", diag.Code)
}
