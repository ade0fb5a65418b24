package runtime

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"golang.org/x/net/html"

	"github.com/cruffinoni/gobars/internal/ast"
	"github.com/cruffinoni/gobars/internal/compiler"
	"github.com/cruffinoni/gobars/internal/dom"
)

// ErrDestroyed is returned when updating a destroyed Result.
var ErrDestroyed = errors.New("result destroyed")

// StatementError locates a render failure at the statement that caused it.
type StatementError struct {
	Loc ast.Location
	Err error
}

func (e *StatementError) Error() string { return e.Loc.String() + ": " + e.Err.Error() }

func (e *StatementError) Unwrap() error { return e.Err }

// session is shared by a root Result and every Result rendered inside it.
type session struct {
	attached bool
}

// Result is a rendered template: a range of nodes covered by a root morph
// and the bindings that keep it up to date.
type Result struct {
	tmpl       *Template
	env        *Env
	sess       *session
	fragment   *html.Node
	root       *dom.Morph
	contextual *html.Node
	bindings   []binding
	pending    []func() error
	destroyed  bool
}

type binding interface {
	statement() *compiler.Statement
	update(scope *Scope) error
}

func (r *Result) bind(stmt *compiler.Statement, node *html.Node) (binding, error) {
	h := r.env.DOM
	switch stmt.Kind {
	case compiler.KindContent, compiler.KindBlock:
		contextual := node.Parent
		if !dom.IsElement(contextual) {
			contextual = r.contextual
		}
		m, err := h.CreateMorphAt(node, contextual)
		if err != nil {
			return nil, err
		}
		if len(stmt.Path) == 1 {
			m.SetOwner(r.root)
		}
		if stmt.Kind == compiler.KindContent {
			return &contentBinding{r: r, stmt: stmt, morph: m}, nil
		}
		return &blockBinding{r: r, stmt: stmt, morph: m}, nil
	case compiler.KindAttribute:
		return &attrBinding{r: r, stmt: stmt, morph: h.CreateAttrMorph(node, stmt.Name, stmt.Namespace)}, nil
	case compiler.KindModifier:
		return &modifierBinding{r: r, stmt: stmt, el: node}, nil
	}
	return nil, fmt.Errorf("%w: statement kind %q", ErrInvalidSpec, stmt.Kind)
}

func (r *Result) update(scope *Scope) error {
	for _, b := range r.bindings {
		if err := b.update(scope); err != nil {
			var located *StatementError
			if errors.As(err, &located) {
				return err
			}
			return &StatementError{Loc: b.statement().Loc, Err: err}
		}
	}
	return nil
}

// fire runs the modifiers queued since the last call, including those of
// nested block bodies.
func (r *Result) fire() error {
	pending := r.pending
	r.pending = nil
	var errs []error
	for _, run := range pending {
		if err := run(); err != nil {
			errs = append(errs, err)
		}
	}
	for _, b := range r.bindings {
		if blk, ok := b.(*blockBinding); ok {
			for _, c := range blk.children {
				if err := c.fire(); err != nil {
					errs = append(errs, err)
				}
			}
		}
	}
	return errors.Join(errs...)
}

// Fragment returns the container the result was built in. It is emptied by
// AppendTo and InsertBefore.
func (r *Result) Fragment() *html.Node { return r.fragment }

// Nodes returns the top-level nodes of the result.
func (r *Result) Nodes() []*html.Node { return r.root.Nodes() }

// Morphs returns the content and block morphs of the top-level template.
func (r *Result) Morphs() []*dom.Morph {
	var out []*dom.Morph
	for _, b := range r.bindings {
		switch t := b.(type) {
		case *contentBinding:
			out = append(out, t.morph)
		case *blockBinding:
			out = append(out, t.morph)
		}
	}
	return out
}

// AppendTo moves the result to the end of parent and runs pending modifiers.
func (r *Result) AppendTo(parent *html.Node) error {
	return r.InsertBefore(parent, nil)
}

// InsertBefore moves the result before ref under parent and runs pending
// modifiers.
func (r *Result) InsertBefore(parent, ref *html.Node) error {
	if r.destroyed {
		return ErrDestroyed
	}
	r.root.MoveBefore(parent, ref)
	r.sess.attached = true
	return r.fire()
}

// Rerender re-evaluates every statement with `this` bound to self. Blocks
// keep their bodies when the same branches are selected and rebuild them
// otherwise.
func (r *Result) Rerender(self any) error {
	if r.destroyed {
		return ErrDestroyed
	}
	if err := r.update(NewScope(self)); err != nil {
		return err
	}
	if r.sess.attached {
		return r.fire()
	}
	return nil
}

// Destroy removes the result's nodes and drops their live state.
func (r *Result) Destroy() {
	if r.destroyed {
		return
	}
	r.root.Destroy()
	r.destroyed = true
}

// HTML serializes the result's nodes.
func (r *Result) HTML() string { return r.root.HTML() }

type contentBinding struct {
	r     *Result
	stmt  *compiler.Statement
	morph *dom.Morph
	last  any
	set   bool
}

func (b *contentBinding) statement() *compiler.Statement { return b.stmt }

func (b *contentBinding) update(scope *Scope) error {
	v, err := evalCall(b.r.env, scope, b.stmt.Call)
	if err != nil {
		return err
	}
	if b.set && dom.SameValue(b.last, v) {
		return nil
	}
	b.last, b.set = v, true
	return setContent(b.morph, v, b.stmt.Escaped)
}

func setContent(m *dom.Morph, v any, escaped bool) error {
	switch t := v.(type) {
	case nil:
		m.Clear()
	case SafeHTML:
		return m.SetHTML(string(t))
	case *html.Node:
		m.SetNode(t)
	default:
		if dom.IsUndefined(v) {
			m.Clear()
			return nil
		}
		s := dom.Stringify(v)
		if !escaped {
			return m.SetHTML(s)
		}
		m.SetText(s)
	}
	return nil
}

type attrBinding struct {
	r     *Result
	stmt  *compiler.Statement
	morph *dom.AttrMorph
}

func (b *attrBinding) statement() *compiler.Statement { return b.stmt }

func (b *attrBinding) update(scope *Scope) error {
	parts := b.stmt.Parts
	if !b.stmt.Quoted && len(parts) == 1 && parts[0].Call != nil {
		v, err := evalCall(b.r.env, scope, parts[0].Call)
		if err != nil {
			return err
		}
		b.morph.SetContent(v)
		return nil
	}

	var sb strings.Builder
	for _, p := range parts {
		if p.Call == nil {
			sb.WriteString(p.Text)
			continue
		}
		v, err := evalCall(b.r.env, scope, p.Call)
		if err != nil {
			return err
		}
		sb.WriteString(text(v))
	}
	b.morph.SetContent(sb.String())
	return nil
}

type modifierBinding struct {
	r     *Result
	stmt  *compiler.Statement
	el    *html.Node
	bound bool
}

func (b *modifierBinding) statement() *compiler.Statement { return b.stmt }

// update queues the modifier on first evaluation only; modifiers never run
// twice for the same element.
func (b *modifierBinding) update(scope *Scope) error {
	if b.bound {
		return nil
	}
	env := b.r.env
	var m Modifier
	found := false
	if name, ok := helperName(b.stmt.Call.Callee); ok {
		m, found = env.Hooks.Modifier(env, name)
	}
	if !found {
		return fmt.Errorf("%w: modifier %s", ErrMissingHelper, calleeName(b.stmt.Call.Callee))
	}
	params, hash, err := evalArgs(env, scope, b.stmt.Call)
	if err != nil {
		return err
	}
	b.bound = true
	el, loc := b.el, b.stmt.Loc
	b.r.pending = append(b.r.pending, func() error {
		if err := m(el, params, hash); err != nil {
			return &StatementError{Loc: loc, Err: err}
		}
		return nil
	})
	return nil
}

type blockBinding struct {
	r        *Result
	stmt     *compiler.Statement
	morph    *dom.Morph
	plan     []int
	children []*Result
	rendered bool
}

func (b *blockBinding) statement() *compiler.Statement { return b.stmt }

func (b *blockBinding) update(scope *Scope) error {
	yields, err := evalBlock(b.r.env, scope, b.stmt.Call)
	if err != nil {
		return err
	}
	plan := make([]int, 0, len(yields))
	picked := make([]Yield, 0, len(yields))
	for _, y := range yields {
		index := b.stmt.Program
		if y.Inverse {
			index = b.stmt.Inverse
		}
		if index < 0 {
			continue
		}
		plan = append(plan, index)
		picked = append(picked, y)
	}

	if b.rendered && slices.Equal(plan, b.plan) {
		for i, c := range b.children {
			if err := c.update(scope.child(picked[i], c.tmpl.spec.BlockParams)); err != nil {
				return err
			}
		}
		return nil
	}
	return b.rebuild(scope, plan, picked)
}

func (b *blockBinding) rebuild(scope *Scope, plan []int, picked []Yield) error {
	env := b.r.env
	frag := env.DOM.CreateFragment()
	children := make([]*Result, 0, len(plan))
	for i, index := range plan {
		tmpl := b.r.tmpl.children[index]
		c, err := tmpl.render(env, scope.child(picked[i], tmpl.spec.BlockParams), b.morph.ContextualElement(), b.r.sess)
		if err != nil {
			return err
		}
		c.root.MoveBefore(frag, nil)
		c.root.SetOwner(b.morph)
		children = append(children, c)
	}
	if b.rendered {
		env.Logger.Debug("block rebuilt", "loc", b.stmt.Loc.String(), "plan", plan)
	}
	b.morph.SetNode(frag)
	b.children, b.plan, b.rendered = children, plan, true
	return nil
}
