package starhelpers

import (
	"fmt"
	"math"
	"reflect"
	"sort"
	"strconv"

	"go.starlark.net/starlark"

	"github.com/cruffinoni/gobars/internal/dom"
	"github.com/cruffinoni/gobars/internal/runtime"
)

// safeString is trusted markup returned by the safe() builtin.
type safeString string

var _ starlark.Value = safeString("")

func (s safeString) String() string        { return "safe(" + strconv.Quote(string(s)) + ")" }
func (s safeString) Type() string          { return "safe_html" }
func (s safeString) Freeze()               {}
func (s safeString) Truth() starlark.Bool  { return s != "" }
func (s safeString) Hash() (uint32, error) { return starlark.String(s).Hash() }

// toStarlark converts template data to a Starlark value. Structs become
// dicts of their exported fields.
func toStarlark(v any) (starlark.Value, error) {
	switch t := v.(type) {
	case nil:
		return starlark.None, nil
	case starlark.Value:
		return t, nil
	case runtime.SafeHTML:
		return safeString(t), nil
	case string:
		return starlark.String(t), nil
	case bool:
		return starlark.Bool(t), nil
	}
	if dom.IsUndefined(v) {
		return starlark.None, nil
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return starlark.MakeInt64(rv.Int()), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return starlark.MakeUint64(rv.Uint()), nil
	case reflect.Float32, reflect.Float64:
		f := rv.Float()
		if f == math.Trunc(f) && math.Abs(f) < 1<<53 {
			return starlark.MakeInt64(int64(f)), nil
		}
		return starlark.Float(f), nil
	case reflect.String:
		return starlark.String(rv.String()), nil
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return starlark.None, nil
		}
		return toStarlark(rv.Elem().Interface())
	case reflect.Slice, reflect.Array:
		items := make([]starlark.Value, rv.Len())
		for i := range items {
			item, err := toStarlark(rv.Index(i).Interface())
			if err != nil {
				return nil, err
			}
			items[i] = item
		}
		return starlark.NewList(items), nil
	case reflect.Map:
		dict := starlark.NewDict(rv.Len())
		keys := rv.MapKeys()
		sort.Slice(keys, func(i, j int) bool {
			return fmt.Sprint(keys[i].Interface()) < fmt.Sprint(keys[j].Interface())
		})
		for _, k := range keys {
			val, err := toStarlark(rv.MapIndex(k).Interface())
			if err != nil {
				return nil, err
			}
			if err := dict.SetKey(starlark.String(fmt.Sprint(k.Interface())), val); err != nil {
				return nil, err
			}
		}
		return dict, nil
	case reflect.Struct:
		dict := starlark.NewDict(rv.NumField())
		t := rv.Type()
		for i := 0; i < t.NumField(); i++ {
			if !t.Field(i).IsExported() {
				continue
			}
			val, err := toStarlark(rv.Field(i).Interface())
			if err != nil {
				return nil, err
			}
			if err := dict.SetKey(starlark.String(t.Field(i).Name), val); err != nil {
				return nil, err
			}
		}
		return dict, nil
	}
	return nil, fmt.Errorf("cannot pass %T to starlark", v)
}

// fromStarlark converts a helper result back to template data.
func fromStarlark(v starlark.Value) (any, error) {
	switch t := v.(type) {
	case nil, starlark.NoneType:
		return nil, nil
	case safeString:
		return runtime.SafeHTML(t), nil
	case starlark.String:
		return string(t), nil
	case starlark.Bool:
		return bool(t), nil
	case starlark.Int:
		if i, ok := t.Int64(); ok {
			return int(i), nil
		}
		return t.String(), nil
	case starlark.Float:
		return float64(t), nil
	case *starlark.List:
		out := make([]any, t.Len())
		for i := range out {
			item, err := fromStarlark(t.Index(i))
			if err != nil {
				return nil, err
			}
			out[i] = item
		}
		return out, nil
	case starlark.Tuple:
		out := make([]any, len(t))
		for i, item := range t {
			conv, err := fromStarlark(item)
			if err != nil {
				return nil, err
			}
			out[i] = conv
		}
		return out, nil
	case *starlark.Dict:
		out := make(map[string]any, t.Len())
		for _, item := range t.Items() {
			key, ok := item[0].(starlark.String)
			if !ok {
				return nil, fmt.Errorf("dict key %s is not a string", item[0])
			}
			val, err := fromStarlark(item[1])
			if err != nil {
				return nil, err
			}
			out[string(key)] = val
		}
		return out, nil
	}
	return nil, fmt.Errorf("unsupported starlark %s result", v.Type())
}
