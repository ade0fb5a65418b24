package compiler

import (
	"sort"

	"github.com/cruffinoni/gobars/internal/ast"
)

// Features lists the constructs a built program uses, as sorted keys such as
// "node:element", "block:each" or "modifier:action". Reports use it to show
// which helpers a template set depends on.
func Features(program *ast.Program) []string {
	set := map[string]struct{}{}
	add := func(k string) { set[k] = struct{}{} }

	ast.Walk(program, func(n ast.Node) bool {
		switch t := n.(type) {
		case *ast.TextNode:
			add("node:text")
		case *ast.CommentStatement:
			add("node:comment")
		case *ast.MustacheCommentStatement:
			add("node:mustache-comment")
		case *ast.ElementNode:
			add("node:element")
			for _, a := range t.Attributes {
				switch a.Value.(type) {
				case *ast.MustacheStatement:
					add("attr:dynamic")
				case *ast.ConcatStatement:
					add("attr:concat")
				}
			}
		case *ast.MustacheStatement:
			add("node:mustache")
			if !t.Escaped {
				add("mustache:unescaped")
			}
			if name := ast.CalleeName(t.Path); name != "" && (len(t.Params) > 0 || t.Hash != nil) {
				add("helper:" + name)
			}
		case *ast.SubExpression:
			if name := ast.CalleeName(t.Path); name != "" {
				add("helper:" + name)
			}
		case *ast.BlockStatement:
			add("node:block")
			if name := ast.CalleeName(t.Path); name != "" {
				add("block:" + name)
			}
			if t.Inverse != nil {
				if t.Inverse.Chained {
					add("block:else-chain")
				} else {
					add("block:else")
				}
			}
			if t.Program != nil && len(t.Program.BlockParams) > 0 {
				add("block:params")
			}
		case *ast.ElementModifierStatement:
			if name := ast.CalleeName(t.Path); name != "" {
				add("modifier:" + name)
			}
		case *ast.PathExpression:
			if t.Data {
				add("path:data")
			}
			if t.Depth > 0 {
				add("path:parent")
			}
		}
		return true
	})

	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
