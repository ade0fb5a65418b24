package compiler

import (
	"errors"
	"testing"

	"github.com/cruffinoni/gobars/internal/ast"
	"github.com/cruffinoni/gobars/internal/syntax"
	"github.com/stretchr/testify/require"
)

func compileSource(t *testing.T, src string) *Spec {
	t.Helper()
	program, err := syntax.Parse(src, syntax.Options{ModuleName: "test.hbs"})
	require.NoError(t, err)
	spec, err := Compile(program, Options{ModuleName: "test.hbs"})
	require.NoError(t, err)
	return spec
}

func TestCompileStaticStructure(t *testing.T) {
	spec := compileSource(t, `<div class="a">hi<!-- note --></div>`)

	require.Equal(t, Revision, spec.Revision)
	require.Equal(t, "test.hbs", spec.Meta.ModuleName)
	require.Equal(t, []Instruction{
		{Op: OpElement, Tag: "div"},
		{Op: OpAttr, Name: "class", Value: "a"},
		{Op: OpText, Value: "hi"},
		{Op: OpComment, Value: " note "},
		{Op: OpClose},
	}, spec.Fragment)
	require.Empty(t, spec.Statements)
	require.Empty(t, spec.Templates)
}

func TestCompileCoordinatesAreStructural(t *testing.T) {
	spec := compileSource(t, `{{a}}{{b}}<p>x{{c}}</p>{{! gone }}{{d}}`)

	require.Len(t, spec.Statements, 4)
	paths := [][]int{}
	for _, s := range spec.Statements {
		require.Equal(t, KindContent, s.Kind)
		paths = append(paths, s.Path)
	}
	require.Equal(t, [][]int{{0}, {1}, {2, 1}, {3}}, paths)
	require.Equal(t, "a", spec.Statements[0].Call.Callee.Original)
	require.True(t, spec.Statements[0].Escaped)
}

func TestCompileTripleStashIsUnescaped(t *testing.T) {
	spec := compileSource(t, `{{{html}}}`)
	require.Len(t, spec.Statements, 1)
	require.False(t, spec.Statements[0].Escaped)
}

func TestCompileBlockBodies(t *testing.T) {
	spec := compileSource(t, `<ul>{{#each items as |item i|}}<li>{{item}}</li>{{else}}none{{/each}}</ul>`)

	require.Len(t, spec.Statements, 1)
	block := spec.Statements[0]
	require.Equal(t, KindBlock, block.Kind)
	require.Equal(t, []int{0, 0}, block.Path)
	require.Equal(t, "each", block.Call.Callee.Original)
	require.Len(t, block.Call.Params, 1)
	require.Equal(t, 0, block.Program)
	require.Equal(t, 1, block.Inverse)

	require.Len(t, spec.Templates, 2)
	body := spec.Templates[0]
	require.Equal(t, []string{"item", "i"}, body.BlockParams)
	require.Equal(t, []int{0, 0}, body.Statements[0].Path)
	inverse := spec.Templates[1]
	require.Equal(t, []Instruction{{Op: OpText, Value: "none"}}, inverse.Fragment)
}

func TestCompileBlockWithoutInverse(t *testing.T) {
	spec := compileSource(t, `{{#if ok}}yes{{/if}}`)
	require.Equal(t, 0, spec.Statements[0].Program)
	require.Equal(t, -1, spec.Statements[0].Inverse)
	require.Len(t, spec.Templates, 1)
}

func TestCompileChainedElse(t *testing.T) {
	spec := compileSource(t, `{{#if a}}A{{else if b}}B{{else}}C{{/if}}`)

	outer := spec.Statements[0]
	require.Equal(t, 1, outer.Inverse)
	chained := spec.Templates[outer.Inverse]
	require.Len(t, chained.Statements, 1)
	require.Equal(t, KindBlock, chained.Statements[0].Kind)
	require.Equal(t, "if", chained.Statements[0].Call.Callee.Original)
	require.Len(t, chained.Templates, 2)
}

func TestCompileAttributesAndModifiers(t *testing.T) {
	spec := compileSource(t, `<a href="/u/{{id}}" title={{t}} {{action "go" on="click"}}>x</a>`)

	require.Len(t, spec.Statements, 3)

	href := spec.Statements[0]
	require.Equal(t, KindAttribute, href.Kind)
	require.Equal(t, []int{0}, href.Path)
	require.Equal(t, "href", href.Name)
	require.True(t, href.Quoted)
	require.Len(t, href.Parts, 2)
	require.Equal(t, "/u/", href.Parts[0].Text)
	require.Equal(t, "id", href.Parts[1].Call.Callee.Original)

	title := spec.Statements[1]
	require.False(t, title.Quoted)
	require.Len(t, title.Parts, 1)
	require.Equal(t, "t", title.Parts[0].Call.Callee.Original)

	mod := spec.Statements[2]
	require.Equal(t, KindModifier, mod.Kind)
	require.Equal(t, []int{0}, mod.Path)
	require.Equal(t, "action", mod.Call.Callee.Original)
	require.Equal(t, ExprString, mod.Call.Params[0].Kind)
	require.Equal(t, "go", mod.Call.Params[0].String)
	require.Equal(t, "on", mod.Call.Hash[0].Key)
}

func TestCompileNamespacedAttributes(t *testing.T) {
	spec := compileSource(t, `<svg><use xlink:href="#a"></use></svg>`)
	require.Equal(t, Instruction{Op: OpAttr, Name: "xlink:href", Value: "#a", Namespace: "http://www.w3.org/1999/xlink"}, spec.Fragment[2])
}

func TestCompileSubExpressionsAndLiterals(t *testing.T) {
	spec := compileSource(t, `{{join (concat a "b") 1.5 true null undefined sep=@index}}`)

	call := spec.Statements[0].Call
	require.Equal(t, "join", call.Callee.Original)
	require.Len(t, call.Params, 5)
	require.Equal(t, ExprSubExpr, call.Params[0].Kind)
	require.Equal(t, "concat", call.Params[0].Call.Callee.Original)
	require.Equal(t, ExprNumber, call.Params[1].Kind)
	require.Equal(t, 1.5, call.Params[1].Number)
	require.Equal(t, ExprBoolean, call.Params[2].Kind)
	require.True(t, call.Params[2].Bool)
	require.Equal(t, ExprNull, call.Params[3].Kind)
	require.Equal(t, ExprUndefined, call.Params[4].Kind)
	require.True(t, call.Hash[0].Value.Data)
}

func TestCompileRepairs(t *testing.T) {
	spec := compileSource(t, `<input type="checkbox" checked><p></p>`)
	require.Equal(t, []Repair{{Path: []int{0}, Checked: true}}, spec.Repairs)

	program := &ast.Program{Body: []ast.Statement{
		&ast.ElementNode{Tag: "div", Children: []ast.Statement{
			&ast.TextNode{Chars: ""},
			&ast.ElementNode{Tag: "span"},
			&ast.TextNode{Chars: ""},
		}},
		&ast.TextNode{Chars: ""},
	}}
	spec, err := Compile(program, Options{})
	require.NoError(t, err)
	require.Equal(t, []Repair{
		{Path: []int{0}, BlankText: []int{0, 2}},
		{Path: []int{}, BlankText: []int{1}},
	}, spec.Repairs)
}

func TestCompileRejectsUnaddressableNodes(t *testing.T) {
	program := &ast.Program{Body: []ast.Statement{&ast.ContentStatement{Original: "raw", Hi: 3}}}
	_, err := Compile(program, Options{})
	require.True(t, errors.Is(err, ErrNoCoordinate))

	_, err = Compile(nil, Options{})
	require.True(t, errors.Is(err, ErrNoCoordinate))
}

func TestCompileDoesNotShareCoordinates(t *testing.T) {
	spec := compileSource(t, `<div>{{a}}{{b}}</div>`)
	spec.Statements[0].Path[0] = 9
	require.Equal(t, []int{0, 1}, spec.Statements[1].Path)
}

func TestAttributeNamespace(t *testing.T) {
	require.Equal(t, "http://www.w3.org/1999/xlink", AttributeNamespace("xlink:href"))
	require.Equal(t, "http://www.w3.org/XML/1998/namespace", AttributeNamespace("xml:lang"))
	require.Equal(t, "http://www.w3.org/2000/xmlns/", AttributeNamespace("xmlns"))
	require.Equal(t, "http://www.w3.org/2000/xmlns/", AttributeNamespace("xmlns:xlink"))
	require.Equal(t, "", AttributeNamespace("class"))
}

func TestFeatures(t *testing.T) {
	program, err := syntax.Parse(`<p class={{c}} {{on "click"}}>{{#each xs as |x|}}{{{x}}}{{else}}{{t (upper @index)}}{{/each}}</p>`, syntax.Options{})
	require.NoError(t, err)
	require.Equal(t, []string{
		"attr:dynamic",
		"block:each",
		"block:else",
		"block:params",
		"helper:t",
		"helper:upper",
		"modifier:on",
		"mustache:unescaped",
		"node:block",
		"node:element",
		"node:mustache",
		"path:data",
	}, Features(program))
}
