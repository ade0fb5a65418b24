package runtime

import (
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/cruffinoni/gobars/internal/dom"
)

var builtinHelpers = map[string]Helper{
	"concat":  concatHelper,
	"eq":      eqHelper,
	"not":     notHelper,
	"or":      orHelper,
	"and":     andHelper,
	"join":    joinHelper,
	"default": defaultHelper,
}

var builtinBlockHelpers = map[string]BlockHelper{
	"if":     ifHelper,
	"unless": unlessHelper,
	"each":   eachHelper,
	"with":   withHelper,
}

// Builtin reports whether name is a built-in inline or block helper.
func Builtin(name string) bool {
	if _, ok := builtinHelpers[name]; ok {
		return true
	}
	_, ok := builtinBlockHelpers[name]
	return ok
}

// Truthy is the condition test used by blocks: nil, Undefined, false, zero,
// "" and empty lists are false.
func Truthy(v any) bool {
	if v == nil || dom.IsUndefined(v) {
		return false
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Bool:
		return rv.Bool()
	case reflect.String:
		return rv.Len() > 0
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int() != 0
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return rv.Uint() != 0
	case reflect.Float32, reflect.Float64:
		return rv.Float() != 0
	case reflect.Slice, reflect.Array:
		return rv.Len() > 0
	case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Func, reflect.Chan:
		return !rv.IsNil()
	}
	return true
}

func text(v any) string {
	if v == nil || dom.IsUndefined(v) {
		return ""
	}
	return dom.Stringify(v)
}

func concatHelper(params []any, _ map[string]any) (any, error) {
	var b strings.Builder
	for _, p := range params {
		b.WriteString(text(p))
	}
	return b.String(), nil
}

func eqHelper(params []any, _ map[string]any) (any, error) {
	if len(params) != 2 {
		return nil, fmt.Errorf("eq takes 2 arguments, got %d", len(params))
	}
	return equal(params[0], params[1]), nil
}

func equal(a, b any) bool {
	if fa, ok := number(a); ok {
		fb, ok := number(b)
		return ok && fa == fb
	}
	return reflect.DeepEqual(a, b)
}

func number(v any) (float64, bool) {
	if v == nil {
		return 0, false
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(rv.Uint()), true
	case reflect.Float32, reflect.Float64:
		return rv.Float(), true
	}
	return 0, false
}

func notHelper(params []any, _ map[string]any) (any, error) {
	if len(params) != 1 {
		return nil, fmt.Errorf("not takes 1 argument, got %d", len(params))
	}
	return !Truthy(params[0]), nil
}

func orHelper(params []any, _ map[string]any) (any, error) {
	var last any = dom.Undefined
	for _, p := range params {
		if Truthy(p) {
			return p, nil
		}
		last = p
	}
	return last, nil
}

func andHelper(params []any, _ map[string]any) (any, error) {
	var last any = dom.Undefined
	for _, p := range params {
		if !Truthy(p) {
			return p, nil
		}
		last = p
	}
	return last, nil
}

// joinHelper joins a list with the second argument, or "," by default.
func joinHelper(params []any, _ map[string]any) (any, error) {
	if len(params) == 0 || len(params) > 2 {
		return nil, fmt.Errorf("join takes 1 or 2 arguments, got %d", len(params))
	}
	sep := ","
	if len(params) == 2 {
		sep = text(params[1])
	}
	rv := reflect.ValueOf(params[0])
	if params[0] == nil || (rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array) {
		return text(params[0]), nil
	}
	items := make([]string, rv.Len())
	for i := range items {
		items[i] = text(rv.Index(i).Interface())
	}
	return strings.Join(items, sep), nil
}

func defaultHelper(params []any, _ map[string]any) (any, error) {
	if len(params) != 2 {
		return nil, fmt.Errorf("default takes 2 arguments, got %d", len(params))
	}
	if Truthy(params[0]) {
		return params[0], nil
	}
	return params[1], nil
}

func condition(name string, params []any, hash map[string]any) (bool, error) {
	if len(params) != 1 {
		return false, fmt.Errorf("%s takes 1 argument, got %d", name, len(params))
	}
	if Truthy(hash["includeZero"]) {
		if n, ok := number(params[0]); ok && n == 0 {
			return true, nil
		}
	}
	return Truthy(params[0]), nil
}

func ifHelper(params []any, hash map[string]any) ([]Yield, error) {
	ok, err := condition("if", params, hash)
	if err != nil {
		return nil, err
	}
	return []Yield{{Inverse: !ok}}, nil
}

func unlessHelper(params []any, hash map[string]any) ([]Yield, error) {
	ok, err := condition("unless", params, hash)
	if err != nil {
		return nil, err
	}
	return []Yield{{Inverse: ok}}, nil
}

func withHelper(params []any, _ map[string]any) ([]Yield, error) {
	if len(params) != 1 {
		return nil, fmt.Errorf("with takes 1 argument, got %d", len(params))
	}
	if !Truthy(params[0]) {
		return []Yield{{Inverse: true}}, nil
	}
	return []Yield{{NewContext: true, Self: params[0], Params: []any{params[0]}}}, nil
}

func eachHelper(params []any, _ map[string]any) ([]Yield, error) {
	if len(params) != 1 {
		return nil, fmt.Errorf("each takes 1 argument, got %d", len(params))
	}
	yields := iterate(params[0])
	if len(yields) == 0 {
		return []Yield{{Inverse: true}}, nil
	}
	return yields, nil
}

// iterate yields once per list element or map entry, maps in key order.
func iterate(v any) []Yield {
	if v == nil || dom.IsUndefined(v) {
		return nil
	}
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return nil
		}
		rv = rv.Elem()
	}

	var out []Yield
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		n := rv.Len()
		for i := 0; i < n; i++ {
			item := rv.Index(i).Interface()
			out = append(out, Yield{
				NewContext: true,
				Self:       item,
				Params:     []any{item, i},
				Data:       map[string]any{"index": i, "first": i == 0, "last": i == n-1},
			})
		}
	case reflect.Map:
		keys := rv.MapKeys()
		sort.Slice(keys, func(i, j int) bool {
			return fmt.Sprint(keys[i].Interface()) < fmt.Sprint(keys[j].Interface())
		})
		for i, k := range keys {
			item := rv.MapIndex(k).Interface()
			key := k.Interface()
			out = append(out, Yield{
				NewContext: true,
				Self:       item,
				Params:     []any{item, key},
				Data:       map[string]any{"key": key, "index": i, "first": i == 0, "last": i == len(keys)-1},
			})
		}
	}
	return out
}

// implicitBlock renders `{{#name}}` without a block helper: lists iterate,
// other truthy values become the context, and false-y values select the
// inverse.
func implicitBlock(v any) []Yield {
	if !Truthy(v) {
		return []Yield{{Inverse: true}}
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		return iterate(v)
	case reflect.Bool:
		return []Yield{{}}
	}
	return []Yield{{NewContext: true, Self: v, Params: []any{v}}}
}
