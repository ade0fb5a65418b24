// Package starhelpers loads template helpers written in Starlark. Every
// public top-level function of a script becomes an inline helper: template
// params are passed positionally and hash pairs as keyword arguments.
//
// Functions named modifier_<name> become the element modifier <name>. They
// receive the element's attributes as a dict before the template params and
// may return a dict of attribute updates, where None removes the attribute.
package starhelpers

import (
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strings"

	"go.starlark.net/starlark"
	"golang.org/x/net/html"

	"github.com/cruffinoni/gobars/internal/dom"
	"github.com/cruffinoni/gobars/internal/runtime"
)

const modifierPrefix = "modifier_"

// Registry holds the helpers defined by one script.
type Registry struct {
	filename  string
	funcs     map[string]starlark.Callable
	modifiers map[string]starlark.Callable
	dom       *dom.Helper
	logger    *slog.Logger
}

// LoadFile reads and executes the script at path.
func LoadFile(path string, logger *slog.Logger) (*Registry, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read helpers %s: %w", path, err)
	}
	return Load(path, src, logger)
}

// Load executes src, which may be a string or []byte, and collects its
// functions. Names starting with "_" are private to the script.
func Load(filename string, src any, logger *slog.Logger) (*Registry, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	r := &Registry{
		filename:  filename,
		funcs:     map[string]starlark.Callable{},
		modifiers: map[string]starlark.Callable{},
		dom:       dom.NewHelper(dom.WithLogger(logger)),
		logger:    logger,
	}

	thread := r.thread("load")
	globals, err := starlark.ExecFile(thread, filename, src, builtins())
	if err != nil {
		return nil, fmt.Errorf("load helpers %s: %w", filename, err)
	}
	globals.Freeze()

	for name, v := range globals {
		fn, ok := v.(starlark.Callable)
		if !ok || strings.HasPrefix(name, "_") {
			continue
		}
		if mod, ok := strings.CutPrefix(name, modifierPrefix); ok && mod != "" {
			r.modifiers[mod] = fn
			continue
		}
		r.funcs[name] = fn
	}
	logger.Debug("loaded starlark helpers", "file", filename, "helpers", r.Names(), "modifiers", r.ModifierNames())
	return r, nil
}

// thread returns a fresh thread; frozen globals make concurrent calls safe.
func (r *Registry) thread(name string) *starlark.Thread {
	return &starlark.Thread{
		Name: "gobars:" + name,
		Print: func(_ *starlark.Thread, msg string) {
			r.logger.Debug(msg, "file", r.filename, "helper", name)
		},
	}
}

// Names returns the helper names in sorted order.
func (r *Registry) Names() []string {
	return sortedKeys(r.funcs)
}

// ModifierNames returns the modifier names, without their prefix, in
// sorted order.
func (r *Registry) ModifierNames() []string {
	return sortedKeys(r.modifiers)
}

func sortedKeys(m map[string]starlark.Callable) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Helpers adapts the script functions to runtime helpers.
func (r *Registry) Helpers() map[string]runtime.Helper {
	out := make(map[string]runtime.Helper, len(r.funcs))
	for name, fn := range r.funcs {
		out[name] = r.helper(name, fn)
	}
	return out
}

// Modifiers adapts the modifier_ functions to runtime modifiers.
func (r *Registry) Modifiers() map[string]runtime.Modifier {
	out := make(map[string]runtime.Modifier, len(r.modifiers))
	for name, fn := range r.modifiers {
		out[name] = r.modifier(name, fn)
	}
	return out
}

func (r *Registry) helper(name string, fn starlark.Callable) runtime.Helper {
	return func(params []any, hash map[string]any) (any, error) {
		args, kwargs, err := callArgs(nil, params, hash)
		if err != nil {
			return nil, fmt.Errorf("helper %s: %w", name, err)
		}
		result, err := starlark.Call(r.thread(name), fn, args, kwargs)
		if err != nil {
			return nil, fmt.Errorf("helper %s: %w", name, err)
		}
		return fromStarlark(result)
	}
}

func (r *Registry) modifier(name string, fn starlark.Callable) runtime.Modifier {
	return func(el *html.Node, params []any, hash map[string]any) error {
		attrs := make(map[string]any, len(el.Attr))
		for _, a := range el.Attr {
			key := a.Key
			if a.Namespace != "" {
				key = a.Namespace + ":" + a.Key
			}
			attrs[key] = a.Val
		}
		first, err := toStarlark(attrs)
		if err != nil {
			return fmt.Errorf("modifier %s: %w", name, err)
		}
		args, kwargs, err := callArgs(first, params, hash)
		if err != nil {
			return fmt.Errorf("modifier %s: %w", name, err)
		}
		result, err := starlark.Call(r.thread(modifierPrefix+name), fn, args, kwargs)
		if err != nil {
			return fmt.Errorf("modifier %s: %w", name, err)
		}
		if result == starlark.None {
			return nil
		}
		updates, ok := result.(*starlark.Dict)
		if !ok {
			return fmt.Errorf("modifier %s: returned %s, want dict or None", name, result.Type())
		}
		for _, item := range updates.Items() {
			key, ok := item[0].(starlark.String)
			if !ok {
				return fmt.Errorf("modifier %s: attribute name %s is not a string", name, item[0])
			}
			if item[1] == starlark.None {
				r.dom.RemoveAttribute(el, string(key))
				continue
			}
			val, err := fromStarlark(item[1])
			if err != nil {
				return fmt.Errorf("modifier %s: %w", name, err)
			}
			r.dom.SetAttribute(el, string(key), val)
		}
		return nil
	}
}

// callArgs converts template params and hash pairs to Starlark call
// arguments. A non-nil first value is passed before the params.
func callArgs(first starlark.Value, params []any, hash map[string]any) (starlark.Tuple, []starlark.Tuple, error) {
	args := make(starlark.Tuple, 0, len(params)+1)
	if first != nil {
		args = append(args, first)
	}
	for _, p := range params {
		v, err := toStarlark(p)
		if err != nil {
			return nil, nil, err
		}
		args = append(args, v)
	}

	keys := make([]string, 0, len(hash))
	for k := range hash {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	kwargs := make([]starlark.Tuple, 0, len(keys))
	for _, k := range keys {
		v, err := toStarlark(hash[k])
		if err != nil {
			return nil, nil, err
		}
		kwargs = append(kwargs, starlark.Tuple{starlark.String(k), v})
	}
	return args, kwargs, nil
}

func builtins() starlark.StringDict {
	return starlark.StringDict{
		"safe": starlark.NewBuiltin("safe", func(_ *starlark.Thread, fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
			var s string
			if err := starlark.UnpackPositionalArgs(fn.Name(), args, kwargs, 1, &s); err != nil {
				return nil, err
			}
			return safeString(s), nil
		}),
	}
}
