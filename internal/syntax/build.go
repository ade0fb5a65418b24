// Package syntax turns the raw template tree into the annotated syntax tree:
// content is tokenized as HTML into elements, attributes and text, element
// modifiers are attached, and every node receives its final Location.
package syntax

import (
	"fmt"

	"github.com/cruffinoni/gobars/internal/ast"
	"github.com/cruffinoni/gobars/internal/lexer"
	"github.com/cruffinoni/gobars/internal/parser"
)

// Plugin rewrites a built Program before it is compiled.
type Plugin interface {
	Name() string
	Transform(program *ast.Program) (*ast.Program, error)
}

// PluginFunc adapts a function to the Plugin interface.
type PluginFunc struct {
	ID string
	Fn func(program *ast.Program) (*ast.Program, error)
}

// Name returns the plugin identifier used in error messages.
func (p PluginFunc) Name() string { return p.ID }

// Transform calls the wrapped function.
func (p PluginFunc) Transform(program *ast.Program) (*ast.Program, error) { return p.Fn(program) }

// Options configures a parse.
type Options struct {
	// ModuleName is recorded as the source of every Location.
	ModuleName string
	Plugins    []Plugin
}

// Parse runs the full front-end: lexing, raw parsing, building and plugins.
func Parse(src string, opts Options) (*ast.Program, error) {
	tokens, err := lexer.Lex(opts.ModuleName, src)
	if err != nil {
		return nil, err
	}
	raw, err := parser.Parse(opts.ModuleName, tokens)
	if err != nil {
		return nil, err
	}
	program, err := Build(src, raw, opts)
	if err != nil {
		return nil, err
	}
	for _, plugin := range opts.Plugins {
		program, err = plugin.Transform(program)
		if err != nil {
			return nil, fmt.Errorf("plugin %s: %w", plugin.Name(), err)
		}
		if program == nil {
			return nil, fmt.Errorf("plugin %s returned no program", plugin.Name())
		}
	}
	return program, nil
}

// Build converts a raw tree produced by the parser for src into the
// annotated tree. Whitespace control is applied to raw in place.
func Build(src string, raw *ast.Program, opts Options) (*ast.Program, error) {
	stripWhitespace(raw)

	b := &builder{file: opts.ModuleName}
	start := ast.Position{Line: 1, Column: 0}
	program, err := b.program(raw, b.loc(start, start.Advance(src)))
	if err != nil {
		return nil, err
	}
	if err := validateSpans(program); err != nil {
		return nil, err
	}
	return program, nil
}

type builder struct {
	file string
}

func (b *builder) loc(start, end ast.Position) ast.Location {
	return ast.NewLocation(b.file, start, end)
}

// program builds one statement list. Elements opened inside it must be
// closed inside it.
func (b *builder) program(raw *ast.Program, loc ast.Location) (*ast.Program, error) {
	pb := newProgramBuilder(b)
	for _, stmt := range raw.Body {
		if err := pb.statement(stmt); err != nil {
			return nil, err
		}
	}
	if err := pb.finish(); err != nil {
		return nil, err
	}
	return &ast.Program{
		Loc:         loc,
		Body:        pb.body,
		BlockParams: raw.BlockParams,
		Chained:     raw.Chained,
	}, nil
}

// block computes block and body spans from the delimiter spans:
//
//	{{#if a}} program {{else}} inverse {{/if}}
//	^ block start                            ^ block end
//
// A chained `{{else if}}` block ends where the shared close starts.
func (b *builder) block(raw *ast.BlockStatement, chained bool) (*ast.BlockStatement, error) {
	end := raw.CloseLoc.End
	if chained {
		end = raw.CloseLoc.Start
	}
	out := &ast.BlockStatement{
		Loc:          b.loc(raw.OpenLoc.Start, end),
		Path:         raw.Path,
		Params:       raw.Params,
		Hash:         raw.Hash,
		OpenLoc:      raw.OpenLoc,
		ElseLoc:      raw.ElseLoc,
		CloseLoc:     raw.CloseLoc,
		OpenStrip:    raw.OpenStrip,
		InverseStrip: raw.InverseStrip,
		CloseStrip:   raw.CloseStrip,
	}

	programEnd := raw.CloseLoc.Start
	if raw.Inverse != nil {
		programEnd = raw.ElseLoc.Start
	}
	program, err := b.program(raw.Program, b.loc(raw.OpenLoc.End, programEnd))
	if err != nil {
		return nil, err
	}
	out.Program = program

	switch {
	case raw.Inverse == nil:
	case raw.Inverse.Chained:
		inner, ok := raw.Inverse.Body[0].(*ast.BlockStatement)
		if !ok {
			return nil, fmt.Errorf("chained inverse without a block")
		}
		next, err := b.block(inner, true)
		if err != nil {
			return nil, err
		}
		out.Inverse = &ast.Program{
			Loc:     b.loc(next.Loc.Start, raw.CloseLoc.Start),
			Body:    []ast.Statement{next},
			Chained: true,
		}
	default:
		inverse, err := b.program(raw.Inverse, b.loc(raw.ElseLoc.End, raw.CloseLoc.Start))
		if err != nil {
			return nil, err
		}
		out.Inverse = inverse
	}
	return out, nil
}
