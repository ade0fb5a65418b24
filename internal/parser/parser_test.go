package parser

import (
	"testing"

	"github.com/cruffinoni/gobars/internal/ast"
	"github.com/cruffinoni/gobars/internal/diagnostics"
	"github.com/cruffinoni/gobars/internal/lexer"
	"github.com/stretchr/testify/require"
)

func parse(t *testing.T, src string) *ast.Program {
	t.Helper()
	tokens, err := lexer.Lex("sample.hbs", src)
	require.NoError(t, err)
	program, err := Parse("sample.hbs", tokens)
	require.NoError(t, err)
	return program
}

func parseErr(t *testing.T, src string) diagnostics.Diagnostic {
	t.Helper()
	tokens, err := lexer.Lex("sample.hbs", src)
	require.NoError(t, err)
	_, err = Parse("sample.hbs", tokens)
	require.Error(t, err)
	diag, ok := diagnostics.As(err)
	require.True(t, ok)
	return diag
}

func TestParseMustacheAndContent(t *testing.T) {
	program := parse(t, `<p>{{user.name}}</p>{{{html}}}`)
	require.Len(t, program.Body, 4)

	content, ok := program.Body[0].(*ast.ContentStatement)
	require.True(t, ok)
	require.Equal(t, "<p>", content.Value())

	mustache, ok := program.Body[1].(*ast.MustacheStatement)
	require.True(t, ok)
	require.True(t, mustache.Escaped)
	path, ok := mustache.Path.(*ast.PathExpression)
	require.True(t, ok)
	require.Equal(t, "user.name", path.Original)
	require.Equal(t, []string{"user", "name"}, path.Parts)
	require.Equal(t, ast.Position{Line: 1, Column: 5}, path.Loc.Start)
	require.Equal(t, ast.Position{Line: 1, Column: 14}, path.Loc.End)

	raw, ok := program.Body[3].(*ast.MustacheStatement)
	require.True(t, ok)
	require.False(t, raw.Escaped)
}

func TestParseParamsHashAndSubExpression(t *testing.T) {
	program := parse(t, `{{link-to "home" (concat a 1) active=true class=@index}}`)
	mustache := program.Body[0].(*ast.MustacheStatement)
	require.Equal(t, "link-to", ast.CalleeName(mustache.Path))
	require.Len(t, mustache.Params, 2)

	str, ok := mustache.Params[0].(*ast.StringLiteral)
	require.True(t, ok)
	require.Equal(t, "home", str.Value)

	sexpr, ok := mustache.Params[1].(*ast.SubExpression)
	require.True(t, ok)
	require.Equal(t, "concat", ast.CalleeName(sexpr.Path))
	require.Len(t, sexpr.Params, 2)
	num, ok := sexpr.Params[1].(*ast.NumberLiteral)
	require.True(t, ok)
	require.Equal(t, 1.0, num.Value)

	require.NotNil(t, mustache.Hash)
	require.Len(t, mustache.Hash.Pairs, 2)
	require.Equal(t, "active", mustache.Hash.Pairs[0].Key)
	_, ok = mustache.Hash.Pairs[0].Value.(*ast.BooleanLiteral)
	require.True(t, ok)
	data, ok := mustache.Hash.Pairs[1].Value.(*ast.PathExpression)
	require.True(t, ok)
	require.True(t, data.Data)
	require.Equal(t, "@index", data.Original)
}

func TestParseThisAndParentPaths(t *testing.T) {
	program := parse(t, `{{this}}{{.}}{{./name}}{{this.name}}{{../../up}}`)
	require.Len(t, program.Body, 5)
	for i := 0; i < 4; i++ {
		path := program.Body[i].(*ast.MustacheStatement).Path.(*ast.PathExpression)
		require.True(t, path.This, "statement %d", i)
	}
	require.Empty(t, program.Body[0].(*ast.MustacheStatement).Path.(*ast.PathExpression).Parts)
	require.Equal(t, []string{"name"}, program.Body[2].(*ast.MustacheStatement).Path.(*ast.PathExpression).Parts)

	up := program.Body[4].(*ast.MustacheStatement).Path.(*ast.PathExpression)
	require.Equal(t, 2, up.Depth)
	require.Equal(t, []string{"up"}, up.Parts)
}

func TestParseBlockWithElse(t *testing.T) {
	program := parse(t, "{{#if ok}}yes{{else}}no{{/if}}")
	require.Len(t, program.Body, 1)
	block, ok := program.Body[0].(*ast.BlockStatement)
	require.True(t, ok)
	require.Equal(t, "if", ast.CalleeName(block.Path))
	require.Len(t, block.Program.Body, 1)
	require.NotNil(t, block.Inverse)
	require.Len(t, block.Inverse.Body, 1)
	require.False(t, block.Inverse.Chained)

	require.Equal(t, ast.Position{Line: 1, Column: 0}, block.OpenLoc.Start)
	require.Equal(t, ast.Position{Line: 1, Column: 10}, block.OpenLoc.End)
	require.Equal(t, ast.Position{Line: 1, Column: 13}, block.ElseLoc.Start)
	require.Equal(t, ast.Position{Line: 1, Column: 21}, block.ElseLoc.End)
	require.Equal(t, ast.Position{Line: 1, Column: 23}, block.CloseLoc.Start)
	require.Equal(t, ast.Position{Line: 1, Column: 30}, block.CloseLoc.End)
}

func TestParseBlockParams(t *testing.T) {
	program := parse(t, "{{#each items as |item i|}}{{item}}{{/each}}")
	block := program.Body[0].(*ast.BlockStatement)
	require.Equal(t, []string{"item", "i"}, block.Program.BlockParams)
	require.Len(t, block.Params, 1)
}

func TestParseElseIfChain(t *testing.T) {
	program := parse(t, "{{#if a}}A{{else if b}}B{{else}}C{{/if}}")
	block := program.Body[0].(*ast.BlockStatement)
	require.NotNil(t, block.Inverse)
	require.True(t, block.Inverse.Chained)
	require.Len(t, block.Inverse.Body, 1)

	chained, ok := block.Inverse.Body[0].(*ast.BlockStatement)
	require.True(t, ok)
	require.Equal(t, "if", ast.CalleeName(chained.Path))
	require.Equal(t, "b", ast.CalleeName(chained.Params[0]))
	require.NotNil(t, chained.Inverse)
	require.Equal(t, block.CloseLoc, chained.CloseLoc)
	require.Equal(t, block.ElseLoc.Start, chained.OpenLoc.Start)
}

func TestParseInverseSection(t *testing.T) {
	program := parse(t, "{{^items}}none{{/items}}")
	block := program.Body[0].(*ast.BlockStatement)
	require.Empty(t, block.Program.Body)
	require.Len(t, block.Inverse.Body, 1)
	require.True(t, block.ElseLoc.IsEmpty())
	require.Equal(t, block.OpenLoc.End, block.ElseLoc.Start)
}

func TestParseComments(t *testing.T) {
	program := parse(t, "a{{! hidden }}b")
	require.Len(t, program.Body, 3)
	comment, ok := program.Body[1].(*ast.MustacheCommentStatement)
	require.True(t, ok)
	require.Equal(t, " hidden ", comment.Value)
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		code string
	}{
		{name: "mismatched close", src: "{{#if a}}x{{/each}}", code: "PARSE_MISMATCHED_CLOSE"},
		{name: "unclosed block", src: "{{#if a}}x", code: "PARSE_UNCLOSED_BLOCK"},
		{name: "stray close", src: "x{{/if}}", code: "PARSE_UNEXPECTED_CLOSE"},
		{name: "stray else", src: "{{else}}", code: "PARSE_UNEXPECTED_ELSE"},
		{name: "double else", src: "{{#if a}}1{{else}}2{{else}}3{{/if}}", code: "PARSE_UNEXPECTED_ELSE"},
		{name: "partial", src: "{{> header}}", code: "PARSE_PARTIAL_UNSUPPORTED"},
		{name: "decorator", src: "{{* inline}}", code: "PARSE_DECORATOR_UNSUPPORTED"},
		{name: "empty mustache", src: "{{ }}", code: "PARSE_EMPTY_MUSTACHE"},
		{name: "block params on mustache", src: "{{foo as |x|}}", code: "PARSE_UNEXPECTED_BLOCK_PARAMS"},
		{name: "positional after hash", src: "{{foo a=1 b}}", code: "PARSE_INVALID_HASH"},
		{name: "parent after segment", src: "{{foo/../bar}}", code: "PARSE_INVALID_PATH"},
		{name: "unclosed sexpr", src: "{{foo (bar}}", code: "PARSE_UNCLOSED_SEXPR"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			diag := parseErr(t, tc.src)
			require.Equal(t, tc.code, diag.Code)
			require.Equal(t, "sample.hbs", diag.File)
		})
	}
}
