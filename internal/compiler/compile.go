// Package compiler turns an annotated syntax tree into a Spec: a flat list of
// structural instructions plus dynamic opcodes addressed by tree coordinates.
// Compiling never touches a document.
package compiler

import (
	"fmt"
	"strings"

	"github.com/cruffinoni/gobars/internal/ast"
	"github.com/cruffinoni/gobars/internal/dom"
)

// Options configures compilation.
type Options struct {
	ModuleName string
}

// Compile compiles program and its nested block bodies.
func Compile(program *ast.Program, opts Options) (*Spec, error) {
	if program == nil {
		return nil, fmt.Errorf("%w: nil program", ErrNoCoordinate)
	}
	return compileProgram(program, opts)
}

// programCompiler emits one Spec. Paths are always freshly allocated so
// coordinates never alias each other.
type programCompiler struct {
	opts    Options
	spec    *Spec
	repairs map[string]*Repair
	order   []string
}

func compileProgram(program *ast.Program, opts Options) (*Spec, error) {
	c := &programCompiler{
		opts: opts,
		spec: &Spec{
			Revision:   Revision,
			Meta:       Meta{ModuleName: opts.ModuleName},
			Fragment:   []Instruction{},
			Statements: []Statement{},
		},
		repairs: map[string]*Repair{},
	}
	if len(program.BlockParams) > 0 {
		c.spec.BlockParams = append([]string(nil), program.BlockParams...)
	}
	if err := c.children(program.Body, []int{}); err != nil {
		return nil, err
	}
	for _, key := range c.order {
		c.spec.Repairs = append(c.spec.Repairs, *c.repairs[key])
	}
	return c.spec, nil
}

func childPath(parent []int, index int) []int {
	out := make([]int, len(parent)+1)
	copy(out, parent)
	out[len(parent)] = index
	return out
}

func (c *programCompiler) emit(ins Instruction) {
	c.spec.Fragment = append(c.spec.Fragment, ins)
}

func (c *programCompiler) repair(path []int) *Repair {
	parts := make([]string, len(path))
	for i, p := range path {
		parts[i] = fmt.Sprint(p)
	}
	key := strings.Join(parts, ".")
	if r, ok := c.repairs[key]; ok {
		return r
	}
	r := &Repair{Path: append([]int{}, path...)}
	c.repairs[key] = r
	c.order = append(c.order, key)
	return r
}

// children emits a statement list whose nodes become the children of the
// node at parent. Every statement occupies exactly one child index, so a
// coordinate depends only on structural position.
func (c *programCompiler) children(stmts []ast.Statement, parent []int) error {
	index := 0
	for _, stmt := range stmts {
		switch n := stmt.(type) {
		case *ast.MustacheCommentStatement:
			continue

		case *ast.TextNode:
			c.emit(Instruction{Op: OpText, Value: n.Chars})
			if n.Chars == "" {
				r := c.repair(parent)
				r.BlankText = append(r.BlankText, index)
			}

		case *ast.CommentStatement:
			c.emit(Instruction{Op: OpComment, Value: n.Value})

		case *ast.ElementNode:
			if err := c.element(n, childPath(parent, index)); err != nil {
				return err
			}

		case *ast.MustacheStatement:
			call, err := convertCall(n.Path, n.Params, n.Hash)
			if err != nil {
				return err
			}
			c.emit(Instruction{Op: OpPlaceholder})
			c.spec.Statements = append(c.spec.Statements, Statement{
				Kind:    KindContent,
				Path:    childPath(parent, index),
				Call:    call,
				Escaped: n.Escaped,
				Program: -1,
				Inverse: -1,
				Loc:     n.Loc,
			})

		case *ast.BlockStatement:
			if err := c.block(n, childPath(parent, index)); err != nil {
				return err
			}

		default:
			return fmt.Errorf("%w: %s at %s", ErrNoCoordinate, stmt.Type(), stmt.Location())
		}
		index++
	}
	return nil
}

func (c *programCompiler) block(n *ast.BlockStatement, path []int) error {
	call, err := convertCall(n.Path, n.Params, n.Hash)
	if err != nil {
		return err
	}
	stmt := Statement{
		Kind:    KindBlock,
		Path:    path,
		Call:    call,
		Program: -1,
		Inverse: -1,
		Loc:     n.Loc,
	}
	if n.Program != nil {
		child, err := compileProgram(n.Program, c.opts)
		if err != nil {
			return err
		}
		stmt.Program = len(c.spec.Templates)
		c.spec.Templates = append(c.spec.Templates, child)
	}
	if n.Inverse != nil {
		child, err := compileProgram(n.Inverse, c.opts)
		if err != nil {
			return err
		}
		stmt.Inverse = len(c.spec.Templates)
		c.spec.Templates = append(c.spec.Templates, child)
	}
	c.emit(Instruction{Op: OpPlaceholder})
	c.spec.Statements = append(c.spec.Statements, stmt)
	return nil
}

func (c *programCompiler) element(n *ast.ElementNode, path []int) error {
	c.emit(Instruction{Op: OpElement, Tag: n.Tag})

	for _, attr := range n.Attributes {
		ns := AttributeNamespace(attr.Name)
		switch v := attr.Value.(type) {
		case *ast.TextNode:
			c.emit(Instruction{Op: OpAttr, Name: attr.Name, Value: v.Chars, Namespace: ns})
			if strings.EqualFold(attr.Name, "checked") {
				c.repair(path).Checked = true
			}
		case *ast.MustacheStatement:
			call, err := convertCall(v.Path, v.Params, v.Hash)
			if err != nil {
				return err
			}
			c.spec.Statements = append(c.spec.Statements, Statement{
				Kind:      KindAttribute,
				Path:      path,
				Name:      attr.Name,
				Namespace: ns,
				Parts:     []Part{{Call: call, Escaped: v.Escaped}},
				Program:   -1,
				Inverse:   -1,
				Loc:       attr.Loc,
			})
		case *ast.ConcatStatement:
			parts := make([]Part, 0, len(v.Parts))
			for _, p := range v.Parts {
				switch part := p.(type) {
				case *ast.TextNode:
					parts = append(parts, Part{Text: part.Chars})
				case *ast.MustacheStatement:
					call, err := convertCall(part.Path, part.Params, part.Hash)
					if err != nil {
						return err
					}
					parts = append(parts, Part{Call: call, Escaped: part.Escaped})
				default:
					return fmt.Errorf("%w: %s in attribute %q at %s", ErrNoCoordinate, p.Type(), attr.Name, p.Location())
				}
			}
			c.spec.Statements = append(c.spec.Statements, Statement{
				Kind:      KindAttribute,
				Path:      path,
				Name:      attr.Name,
				Namespace: ns,
				Parts:     parts,
				Quoted:    true,
				Program:   -1,
				Inverse:   -1,
				Loc:       attr.Loc,
			})
		default:
			return fmt.Errorf("%w: attribute %q value %T at %s", ErrNoCoordinate, attr.Name, attr.Value, attr.Loc)
		}
	}

	for _, m := range n.Modifiers {
		call, err := convertCall(m.Path, m.Params, m.Hash)
		if err != nil {
			return err
		}
		c.spec.Statements = append(c.spec.Statements, Statement{
			Kind:    KindModifier,
			Path:    path,
			Call:    call,
			Program: -1,
			Inverse: -1,
			Loc:     m.Loc,
		})
	}

	if err := c.children(n.Children, path); err != nil {
		return err
	}
	c.emit(Instruction{Op: OpClose})
	return nil
}

// AttributeNamespace returns the namespace URI implied by a prefixed
// attribute name, or "" for plain attributes.
func AttributeNamespace(name string) string {
	switch {
	case strings.HasPrefix(name, "xlink:"):
		return dom.XLinkNamespace
	case strings.HasPrefix(name, "xml:"):
		return dom.XMLNamespace
	case name == "xmlns" || strings.HasPrefix(name, "xmlns:"):
		return dom.XMLNSNamespace
	}
	return ""
}

func convertCall(path ast.Expression, params []ast.Expression, hash *ast.Hash) (*Call, error) {
	callee, err := convertExpr(path)
	if err != nil {
		return nil, err
	}
	call := &Call{Callee: callee}
	for _, p := range params {
		e, err := convertExpr(p)
		if err != nil {
			return nil, err
		}
		call.Params = append(call.Params, e)
	}
	if hash != nil {
		for _, pair := range hash.Pairs {
			e, err := convertExpr(pair.Value)
			if err != nil {
				return nil, err
			}
			call.Hash = append(call.Hash, HashPair{Key: pair.Key, Value: e})
		}
	}
	return call, nil
}

func convertExpr(e ast.Expression) (Expr, error) {
	switch n := e.(type) {
	case *ast.PathExpression:
		expr := Expr{
			Kind:     ExprPath,
			Original: n.Original,
			This:     n.This,
			Data:     n.Data,
			Depth:    n.Depth,
		}
		if len(n.Parts) > 0 {
			expr.Parts = append([]string(nil), n.Parts...)
		}
		return expr, nil
	case *ast.SubExpression:
		call, err := convertCall(n.Path, n.Params, n.Hash)
		if err != nil {
			return Expr{}, err
		}
		return Expr{Kind: ExprSubExpr, Call: call}, nil
	case *ast.StringLiteral:
		return Expr{Kind: ExprString, String: n.Value}, nil
	case *ast.NumberLiteral:
		return Expr{Kind: ExprNumber, Number: n.Value, Original: n.Original}, nil
	case *ast.BooleanLiteral:
		return Expr{Kind: ExprBoolean, Bool: n.Value}, nil
	case *ast.NullLiteral:
		return Expr{Kind: ExprNull}, nil
	case *ast.UndefinedLiteral:
		return Expr{Kind: ExprUndefined}, nil
	case nil:
		return Expr{}, fmt.Errorf("%w: missing expression", ErrNoCoordinate)
	}
	return Expr{}, fmt.Errorf("%w: unsupported expression %s at %s", ErrNoCoordinate, e.Type(), e.Location())
}
