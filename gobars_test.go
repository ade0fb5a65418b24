package gobars

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cruffinoni/gobars/internal/ast"
	"github.com/cruffinoni/gobars/internal/compiler"
	"github.com/cruffinoni/gobars/internal/diagnostics"
	"github.com/cruffinoni/gobars/internal/syntax"
)

func TestCompileAndRender(t *testing.T) {
	tmpl, err := Compile(`<h1>{{title}}</h1>{{#each items as |item|}}<p>{{item}}</p>{{/each}}`, Options{ModuleName: "page.hbs"})
	require.NoError(t, err)

	res, err := tmpl.Render(map[string]any{"title": "T", "items": []string{"a"}}, nil, nil)
	require.NoError(t, err)
	require.Equal(t, `<h1>T</h1><p>a</p>`, res.HTML())
}

func TestPrecompileRoundTrip(t *testing.T) {
	data, err := Precompile(`<b>{{x}}</b>`, Options{ModuleName: "b.hbs"}, compiler.FormatYAML)
	require.NoError(t, err)

	tmpl, err := TemplateFromBytes(data, compiler.FormatYAML)
	require.NoError(t, err)
	require.Equal(t, "b.hbs", tmpl.Spec().Meta.ModuleName)

	res, err := tmpl.Render(map[string]any{"x": 1}, nil, nil)
	require.NoError(t, err)
	require.Equal(t, `<b>1</b>`, res.HTML())

	_, err = TemplateFromBytes([]byte(`{"revision":"other"}`), compiler.FormatJSON)
	require.ErrorIs(t, err, compiler.ErrInvalidSpec)
}

func TestTemplateFromSpec(t *testing.T) {
	spec, err := CompileSpec(`x`, Options{})
	require.NoError(t, err)
	tmpl, err := Template(spec)
	require.NoError(t, err)
	require.Same(t, spec, tmpl.Spec())
}

func TestSyntaxErrorsAreDiagnostics(t *testing.T) {
	_, err := Compile(`<div>{{#if x}}</div>{{/if}}`, Options{ModuleName: "bad.hbs"})
	require.Error(t, err)
	var d diagnostics.Diagnostic
	require.True(t, errors.As(err, &d))
	require.Equal(t, "bad.hbs", d.File)
	require.Contains(t, err.Error(), "compile bad.hbs")
}

func TestPluginsRunBeforeCompilation(t *testing.T) {
	var seen int
	plugin := syntax.PluginFunc{ID: "count", Fn: func(p *ast.Program) (*ast.Program, error) {
		seen = len(p.Body)
		return p, nil
	}}
	_, err := CompileSpec(`a{{b}}`, Options{Plugins: []syntax.Plugin{plugin}})
	require.NoError(t, err)
	require.Equal(t, 2, seen)
}

func TestLocationJSONShape(t *testing.T) {
	spec, err := CompileSpec(`{{x}}`, Options{})
	require.NoError(t, err)
	out, err := json.Marshal(spec.Statements[0].Loc)
	require.NoError(t, err)
	require.JSONEq(t, `{"source":null,"start":{"line":1,"column":0},"end":{"line":1,"column":5}}`, string(out))
}
