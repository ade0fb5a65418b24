package runtime

import (
	"fmt"
	"strings"

	"github.com/cruffinoni/gobars/internal/compiler"
	"github.com/cruffinoni/gobars/internal/dom"
)

// helperName returns the name a callee can be registered under: a single
// segment path without `this`, `@` or `../`.
func helperName(callee compiler.Expr) (string, bool) {
	if callee.Kind != compiler.ExprPath || callee.This || callee.Data || callee.Depth > 0 || len(callee.Parts) != 1 {
		return "", false
	}
	return callee.Parts[0], true
}

func calleeName(callee compiler.Expr) string {
	if callee.Original != "" {
		return callee.Original
	}
	return strings.Join(callee.Parts, ".")
}

func evalExpr(env *Env, scope *Scope, e compiler.Expr) (any, error) {
	switch e.Kind {
	case compiler.ExprPath:
		return env.Hooks.Lookup(scope, e), nil
	case compiler.ExprString:
		return e.String, nil
	case compiler.ExprNumber:
		return e.Number, nil
	case compiler.ExprBoolean:
		return e.Bool, nil
	case compiler.ExprNull:
		return nil, nil
	case compiler.ExprUndefined:
		return dom.Undefined, nil
	case compiler.ExprSubExpr:
		if e.Call == nil {
			return nil, fmt.Errorf("%w: subexpression without a call", ErrInvalidSpec)
		}
		var h Helper
		found := false
		if name, ok := helperName(e.Call.Callee); ok {
			h, found = env.Hooks.Helper(env, name)
		}
		if !found {
			return nil, fmt.Errorf("%w: %s", ErrMissingHelper, calleeName(e.Call.Callee))
		}
		params, hash, err := evalArgs(env, scope, e.Call)
		if err != nil {
			return nil, err
		}
		return h(params, hash)
	}
	return nil, fmt.Errorf("%w: unknown expression kind %q", ErrInvalidSpec, e.Kind)
}

func evalArgs(env *Env, scope *Scope, call *compiler.Call) ([]any, map[string]any, error) {
	var params []any
	for _, p := range call.Params {
		v, err := evalExpr(env, scope, p)
		if err != nil {
			return nil, nil, err
		}
		params = append(params, v)
	}
	hash := make(map[string]any, len(call.Hash))
	for _, pair := range call.Hash {
		v, err := evalExpr(env, scope, pair.Value)
		if err != nil {
			return nil, nil, err
		}
		hash[pair.Key] = v
	}
	return params, hash, nil
}

// evalCall evaluates a mustache: a registered helper is called, otherwise the
// callee is looked up. Arguments without a helper are an error.
func evalCall(env *Env, scope *Scope, call *compiler.Call) (any, error) {
	if name, ok := helperName(call.Callee); ok {
		if h, found := env.Hooks.Helper(env, name); found {
			params, hash, err := evalArgs(env, scope, call)
			if err != nil {
				return nil, err
			}
			return h(params, hash)
		}
	}
	if call.HasArgs() {
		return nil, fmt.Errorf("%w: %s", ErrMissingHelper, calleeName(call.Callee))
	}
	return evalExpr(env, scope, call.Callee)
}

func evalBlock(env *Env, scope *Scope, call *compiler.Call) ([]Yield, error) {
	if name, ok := helperName(call.Callee); ok {
		if h, found := env.Hooks.BlockHelper(env, name); found {
			params, hash, err := evalArgs(env, scope, call)
			if err != nil {
				return nil, err
			}
			return h(params, hash)
		}
	}
	if call.HasArgs() {
		return nil, fmt.Errorf("%w: block %s", ErrMissingHelper, calleeName(call.Callee))
	}
	v, err := evalExpr(env, scope, call.Callee)
	if err != nil {
		return nil, err
	}
	return implicitBlock(v), nil
}
