package runtime

import (
	"fmt"
	"slices"
	"sort"
	"sync"

	"golang.org/x/net/html"

	"github.com/cruffinoni/gobars/internal/compiler"
	"github.com/cruffinoni/gobars/internal/dom"
)

// Template is an executable spec. It is safe for concurrent use: the built
// static structure is cached per namespace and cloned for every render.
type Template struct {
	spec     *compiler.Spec
	children []*Template

	mu    sync.Mutex
	cache map[string]*html.Node
}

// FromSpec validates spec and returns an executable template. The spec is
// never modified.
func FromSpec(spec *compiler.Spec) (*Template, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	return newTemplate(spec), nil
}

func newTemplate(spec *compiler.Spec) *Template {
	t := &Template{spec: spec, cache: map[string]*html.Node{}}
	for _, child := range spec.Templates {
		t.children = append(t.children, newTemplate(child))
	}
	return t
}

// Spec returns the spec the template executes.
func (t *Template) Spec() *compiler.Spec { return t.spec }

// Render builds a detached Result with `this` bound to self. contextual is
// the element the result will be inserted under; it defaults to a body
// element.
func (t *Template) Render(self any, env *Env, contextual *html.Node) (*Result, error) {
	env = env.withDefaults()
	if contextual == nil {
		contextual = env.DOM.CreateElementNS(dom.XHTMLNamespace, "body")
	}
	if !dom.IsElement(contextual) {
		return nil, fmt.Errorf("render: %w", dom.ErrInvalidContextualElement)
	}
	return t.render(env, NewScope(self), contextual, &session{})
}

func (t *Template) render(env *Env, scope *Scope, contextual *html.Node, sess *session) (*Result, error) {
	h := env.DOM
	frag, err := t.fragment(h, contextual)
	if err != nil {
		return nil, err
	}
	if frag.FirstChild == nil {
		frag.AppendChild(h.CreateTextNode(""))
	}

	// Coordinates refer to the fragment as built, so every node is resolved
	// before any morph changes the tree.
	nodes := make([]*html.Node, len(t.spec.Statements))
	for i, stmt := range t.spec.Statements {
		n, err := h.ChildAt(frag, stmt.Path)
		if err != nil {
			return nil, &StatementError{Loc: stmt.Loc, Err: err}
		}
		nodes[i] = n
	}

	root, err := h.CreateMorph(frag, frag.FirstChild, frag.LastChild, contextual)
	if err != nil {
		return nil, err
	}
	r := &Result{
		tmpl:       t,
		env:        env,
		sess:       sess,
		fragment:   frag,
		root:       root,
		contextual: contextual,
	}
	for i := range t.spec.Statements {
		b, err := r.bind(&t.spec.Statements[i], nodes[i])
		if err != nil {
			return nil, &StatementError{Loc: t.spec.Statements[i].Loc, Err: err}
		}
		r.bindings = append(r.bindings, b)
	}
	if err := r.update(scope); err != nil {
		return nil, err
	}
	return r, nil
}

// fragment returns a repaired clone of the static structure built for the
// namespace contextual imposes.
func (t *Template) fragment(h *dom.Helper, contextual *html.Node) (*html.Node, error) {
	key := h.Namespace() + " " + dom.ChildNamespace(contextual)

	t.mu.Lock()
	built, ok := t.cache[key]
	if !ok {
		var err error
		built, err = t.build(h, contextual)
		if err != nil {
			t.mu.Unlock()
			return nil, err
		}
		t.cache[key] = built
	}
	t.mu.Unlock()

	clone := h.CloneNode(built, true)
	t.repair(h, clone)
	return clone, nil
}

func (t *Template) build(h *dom.Helper, contextual *html.Node) (*html.Node, error) {
	frag := h.CreateFragment()
	stack := []*html.Node{frag}
	for i, ins := range t.spec.Fragment {
		top := stack[len(stack)-1]
		switch ins.Op {
		case compiler.OpElement:
			parent := top
			if len(stack) == 1 {
				parent = contextual
			}
			el := h.CreateElement(ins.Tag, parent)
			top.AppendChild(el)
			stack = append(stack, el)
		case compiler.OpAttr:
			if ins.Namespace != "" {
				h.SetAttributeNS(top, ins.Namespace, ins.Name, ins.Value)
			} else {
				h.SetAttribute(top, ins.Name, ins.Value)
			}
		case compiler.OpText:
			top.AppendChild(h.CreateTextNode(ins.Value))
		case compiler.OpComment:
			top.AppendChild(h.CreateComment(ins.Value))
		case compiler.OpPlaceholder:
			top.AppendChild(h.CreateComment(""))
		case compiler.OpClose:
			if len(stack) == 1 {
				return nil, fmt.Errorf("%w: instruction %d closes the fragment", ErrInvalidSpec, i)
			}
			stack = stack[:len(stack)-1]
		default:
			return nil, fmt.Errorf("%w: instruction %d has unknown op %q", ErrInvalidSpec, i, ins.Op)
		}
	}
	return frag, nil
}

// repair applies the clone repairs outermost first, so the paths of deeper
// repairs resolve against already repaired ancestors.
func (t *Template) repair(h *dom.Helper, clone *html.Node) {
	if len(t.spec.Repairs) == 0 {
		return
	}
	repairs := slices.Clone(t.spec.Repairs)
	sort.SliceStable(repairs, func(i, j int) bool {
		return len(repairs[i].Path) < len(repairs[j].Path)
	})
	for _, r := range repairs {
		n, err := h.ChildAt(clone, r.Path)
		if err != nil {
			continue
		}
		h.RepairClonedNode(n, r.BlankText, r.Checked)
	}
}
