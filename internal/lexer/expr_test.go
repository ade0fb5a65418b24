package lexer

import (
	"testing"

	"github.com/cruffinoni/gobars/internal/ast"
	"github.com/cruffinoni/gobars/internal/diagnostics"
	"github.com/stretchr/testify/require"
)

func exprKinds(tokens []ExprToken) []ExprKind {
	out := make([]ExprKind, 0, len(tokens))
	for _, tok := range tokens {
		out = append(out, tok.Kind)
	}
	return out
}

func TestLexExpressionPathAndParams(t *testing.T) {
	tokens, err := LexExpression("", `link-to user.name "x" 12 -1.5 true null undefined`, ast.Position{Line: 1, Column: 2})
	require.NoError(t, err)
	require.Equal(t, []ExprKind{
		ExprID, ExprID, ExprSep, ExprID, ExprString, ExprNumber, ExprNumber,
		ExprBoolean, ExprNull, ExprUndefined, ExprEOF,
	}, exprKinds(tokens))
	require.Equal(t, "link-to", tokens[0].Value)
	require.Equal(t, ast.Position{Line: 1, Column: 2}, tokens[0].Start)
	require.Equal(t, ast.Position{Line: 1, Column: 9}, tokens[0].End)
	require.True(t, tokens[1].Spaced)
	require.False(t, tokens[2].Spaced)
	require.Equal(t, "-1.5", tokens[6].Value)
}

func TestLexExpressionHashAndSexpr(t *testing.T) {
	tokens, err := LexExpression("", `foo (bar baz) key=@index`, ast.Position{Line: 1})
	require.NoError(t, err)
	require.Equal(t, []ExprKind{
		ExprID, ExprOpenSexpr, ExprID, ExprID, ExprCloseSexpr,
		ExprID, ExprEquals, ExprData, ExprID, ExprEOF,
	}, exprKinds(tokens))
}

func TestLexExpressionBlockParams(t *testing.T) {
	tokens, err := LexExpression("", `each items as |item i|`, ast.Position{Line: 1})
	require.NoError(t, err)
	require.Equal(t, []ExprKind{
		ExprID, ExprID, ExprOpenBlockParams, ExprID, ExprID, ExprCloseBlockParams, ExprEOF,
	}, exprKinds(tokens))
}

func TestLexExpressionThisAndParent(t *testing.T) {
	tokens, err := LexExpression("", `. ../name [odd key]`, ast.Position{Line: 1})
	require.NoError(t, err)
	require.Equal(t, []ExprKind{ExprID, ExprID, ExprSep, ExprID, ExprID, ExprEOF}, exprKinds(tokens))
	require.Equal(t, ".", tokens[0].Value)
	require.Equal(t, "..", tokens[1].Value)
	require.Equal(t, "odd key", tokens[4].Value)
}

func TestLexExpressionKeywordAfterSeparator(t *testing.T) {
	tokens, err := LexExpression("", `foo.true`, ast.Position{Line: 1})
	require.NoError(t, err)
	require.Equal(t, ExprID, tokens[2].Kind)
}

func TestLexExpressionErrors(t *testing.T) {
	_, err := LexExpression("bad.hbs", `foo "open`, ast.Position{Line: 3, Column: 4})
	diag, ok := diagnostics.As(err)
	require.True(t, ok)
	require.Equal(t, "LEX_UNCLOSED_STRING", diag.Code)
	require.Equal(t, 3, diag.Line)

	_, err = LexExpression("", `each x as |a`, ast.Position{Line: 1})
	diag, ok = diagnostics.As(err)
	require.True(t, ok)
	require.Equal(t, "LEX_UNCLOSED_BLOCK_PARAMS", diag.Code)
}
