package runtime

import (
	"reflect"
	"strconv"
	"strings"

	"github.com/cruffinoni/gobars/internal/compiler"
	"github.com/cruffinoni/gobars/internal/dom"
)

// Scope is one frame of the name resolution chain. Frames opened by a block
// that does not change `this` share the self of their parent and are skipped
// by `../`.
type Scope struct {
	self    any
	parent  *Scope
	locals  map[string]any
	data    map[string]any
	context bool
}

// NewScope returns a root scope where `this` is self.
func NewScope(self any) *Scope {
	return &Scope{self: self, context: true}
}

// Self returns the value of `this`.
func (s *Scope) Self() any { return s.self }

func (s *Scope) child(y Yield, blockParams []string) *Scope {
	c := &Scope{self: s.self, parent: s, data: y.Data}
	if y.NewContext {
		c.self = y.Self
		c.context = true
	}
	if len(blockParams) > 0 {
		c.locals = make(map[string]any, len(blockParams))
		for i, name := range blockParams {
			if i < len(y.Params) {
				c.locals[name] = y.Params[i]
			} else {
				c.locals[name] = dom.Undefined
			}
		}
	}
	return c
}

// Resolve evaluates a path expression. Missing values are dom.Undefined.
func (s *Scope) Resolve(e compiler.Expr) any {
	if e.Data {
		if len(e.Parts) == 0 {
			return dom.Undefined
		}
		for f := s; f != nil; f = f.parent {
			if v, ok := f.data[e.Parts[0]]; ok {
				return walkPath(v, e.Parts[1:])
			}
		}
		return dom.Undefined
	}

	if !e.This && e.Depth == 0 && len(e.Parts) > 0 {
		for f := s; f != nil; f = f.parent {
			if v, ok := f.locals[e.Parts[0]]; ok {
				return walkPath(v, e.Parts[1:])
			}
		}
	}

	frame := s
	for i := 0; i < e.Depth; i++ {
		frame = frame.outer()
		if frame == nil {
			return dom.Undefined
		}
	}
	return walkPath(frame.self, e.Parts)
}

// outer returns the frame enclosing the nearest context frame.
func (s *Scope) outer() *Scope {
	f := s
	for f != nil && !f.context {
		f = f.parent
	}
	if f == nil {
		return nil
	}
	return f.parent
}

func walkPath(v any, parts []string) any {
	for _, p := range parts {
		next, ok := property(v, p)
		if !ok {
			return dom.Undefined
		}
		v = next
	}
	return v
}

// property reads key from maps, structs (field name, json tag, then a
// case-insensitive name), slices and strings.
func property(v any, key string) (any, bool) {
	if v == nil || dom.IsUndefined(v) {
		return nil, false
	}
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return nil, false
		}
		rv = rv.Elem()
	}

	switch rv.Kind() {
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return nil, false
		}
		mv := rv.MapIndex(reflect.ValueOf(key).Convert(rv.Type().Key()))
		if !mv.IsValid() {
			return nil, false
		}
		return mv.Interface(), true

	case reflect.Struct:
		return structField(rv, key)

	case reflect.Slice, reflect.Array, reflect.String:
		if key == "length" {
			return rv.Len(), true
		}
		if rv.Kind() == reflect.String {
			return nil, false
		}
		i, err := strconv.Atoi(key)
		if err != nil || i < 0 || i >= rv.Len() {
			return nil, false
		}
		return rv.Index(i).Interface(), true
	}
	return nil, false
}

func structField(rv reflect.Value, key string) (any, bool) {
	t := rv.Type()
	if f, ok := t.FieldByName(key); ok && f.IsExported() {
		fv, err := rv.FieldByIndexErr(f.Index)
		if err != nil {
			return nil, false
		}
		return fv.Interface(), true
	}
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		tag, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if tag == key {
			return rv.Field(i).Interface(), true
		}
	}
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if f.IsExported() && strings.EqualFold(f.Name, key) {
			return rv.Field(i).Interface(), true
		}
	}
	return nil, false
}
