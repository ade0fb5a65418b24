// Package runtime executes compiled template specs against a document tree.
// Rendering builds the static structure once per namespace, clones it for
// every render, and binds morphs to the dynamic statements so a Result can be
// updated in place.
package runtime

import (
	"errors"
	"log/slog"

	"golang.org/x/net/html"

	"github.com/cruffinoni/gobars/internal/compiler"
	"github.com/cruffinoni/gobars/internal/dom"
)

// ErrMissingHelper is returned when a call passes arguments to a name that no
// helper, block helper or modifier is registered under.
var ErrMissingHelper = errors.New("missing helper")

// ErrInvalidSpec is returned by FromSpec for specs that cannot be executed.
var ErrInvalidSpec = compiler.ErrInvalidSpec

// SafeHTML marks trusted markup. Content statements parse it instead of
// escaping it, and URL attributes accept it unchanged.
type SafeHTML = dom.HTML

// Helper computes an inline value.
type Helper func(params []any, hash map[string]any) (any, error)

// Yield is one rendering of a block body. Inverse selects the else body.
// When NewContext is set, Self becomes `this` inside the body. Params bind
// the block params declared with `as |a b|` in order, and Data adds
// @-variables.
type Yield struct {
	Inverse    bool
	NewContext bool
	Self       any
	Params     []any
	Data       map[string]any
}

// BlockHelper decides how many times, and with which scope, a block body is
// rendered.
type BlockHelper func(params []any, hash map[string]any) ([]Yield, error)

// Modifier runs once against its element after the element is attached.
type Modifier func(el *html.Node, params []any, hash map[string]any) error

// Hooks resolves names for the executor.
type Hooks interface {
	Lookup(scope *Scope, path compiler.Expr) any
	Helper(env *Env, name string) (Helper, bool)
	BlockHelper(env *Env, name string) (BlockHelper, bool)
	Modifier(env *Env, name string) (Modifier, bool)
}

// DefaultHooks resolves paths through Scope and names through the Env
// registries, then the built-ins.
type DefaultHooks struct{}

func (DefaultHooks) Lookup(scope *Scope, path compiler.Expr) any {
	return scope.Resolve(path)
}

func (DefaultHooks) Helper(env *Env, name string) (Helper, bool) {
	if h, ok := env.Helpers[name]; ok {
		return h, true
	}
	h, ok := builtinHelpers[name]
	return h, ok
}

func (DefaultHooks) BlockHelper(env *Env, name string) (BlockHelper, bool) {
	if h, ok := env.BlockHelpers[name]; ok {
		return h, true
	}
	h, ok := builtinBlockHelpers[name]
	return h, ok
}

func (DefaultHooks) Modifier(env *Env, name string) (Modifier, bool) {
	m, ok := env.Modifiers[name]
	return m, ok
}

// Env is the data and behaviour a template renders with. Zero fields take
// defaults; Render never mutates the Env it is given.
type Env struct {
	DOM          *dom.Helper
	Hooks        Hooks
	Helpers      map[string]Helper
	BlockHelpers map[string]BlockHelper
	Modifiers    map[string]Modifier
	Logger       *slog.Logger
}

func (e *Env) withDefaults() *Env {
	out := &Env{}
	if e != nil {
		*out = *e
	}
	if out.DOM == nil {
		out.DOM = dom.NewHelper(dom.WithLogger(out.Logger))
	}
	if out.Hooks == nil {
		out.Hooks = DefaultHooks{}
	}
	if out.Logger == nil {
		out.Logger = slog.New(slog.DiscardHandler)
	}
	return out
}
