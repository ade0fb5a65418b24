package dom

import (
	"reflect"
	"slices"
	"strings"
	"sync"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

type propKind uint8

const (
	// propString reflects to an attribute holding the stringified value.
	propString propKind = iota + 1
	// propBool reflects to the presence of an attribute.
	propBool
	// propLive is node state that is not serialized as an attribute.
	propLive
)

type property struct {
	name string
	attr string
	kind propKind
	tags []atom.Atom
}

// properties is keyed by lower-cased attribute or property name.
var properties = map[string]property{
	"id":            {"id", "id", propString, nil},
	"classname":     {"className", "class", propString, nil},
	"title":         {"title", "title", propString, nil},
	"lang":          {"lang", "lang", propString, nil},
	"dir":           {"dir", "dir", propString, nil},
	"tabindex":      {"tabIndex", "tabindex", propString, nil},
	"accesskey":     {"accessKey", "accesskey", propString, nil},
	"hidden":        {"hidden", "hidden", propBool, nil},
	"htmlfor":       {"htmlFor", "for", propString, []atom.Atom{atom.Label, atom.Output}},
	"name":          {"name", "name", propString, []atom.Atom{atom.Input, atom.Button, atom.Select, atom.Textarea, atom.Form, atom.Iframe, atom.Img, atom.Map, atom.Meta, atom.Object, atom.Output, atom.Fieldset, atom.Param}},
	"href":          {"href", "href", propString, []atom.Atom{atom.A, atom.Area, atom.Link, atom.Base}},
	"src":           {"src", "src", propString, []atom.Atom{atom.Img, atom.Script, atom.Iframe, atom.Input, atom.Audio, atom.Video, atom.Source, atom.Embed, atom.Track}},
	"alt":           {"alt", "alt", propString, []atom.Atom{atom.Img, atom.Input, atom.Area}},
	"type":          {"type", "type", propString, []atom.Atom{atom.Input, atom.Button, atom.Script, atom.Link, atom.Style, atom.Source, atom.Embed, atom.Object, atom.Ol}},
	"placeholder":   {"placeholder", "placeholder", propString, []atom.Atom{atom.Input, atom.Textarea}},
	"action":        {"action", "action", propString, []atom.Atom{atom.Form}},
	"method":        {"method", "method", propString, []atom.Atom{atom.Form}},
	"target":        {"target", "target", propString, []atom.Atom{atom.A, atom.Area, atom.Base, atom.Form}},
	"rel":           {"rel", "rel", propString, []atom.Atom{atom.A, atom.Area, atom.Link}},
	"min":           {"min", "min", propString, []atom.Atom{atom.Input}},
	"max":           {"max", "max", propString, []atom.Atom{atom.Input}},
	"step":          {"step", "step", propString, []atom.Atom{atom.Input}},
	"pattern":       {"pattern", "pattern", propString, []atom.Atom{atom.Input}},
	"disabled":      {"disabled", "disabled", propBool, []atom.Atom{atom.Input, atom.Button, atom.Select, atom.Textarea, atom.Option, atom.Optgroup, atom.Fieldset}},
	"readonly":      {"readOnly", "readonly", propBool, []atom.Atom{atom.Input, atom.Textarea}},
	"required":      {"required", "required", propBool, []atom.Atom{atom.Input, atom.Select, atom.Textarea}},
	"multiple":      {"multiple", "multiple", propBool, []atom.Atom{atom.Input, atom.Select}},
	"autofocus":     {"autofocus", "autofocus", propBool, []atom.Atom{atom.Input, atom.Button, atom.Select, atom.Textarea}},
	"open":          {"open", "open", propBool, []atom.Atom{atom.Details, atom.Dialog}},
	"value":         {"value", "value", propLive, []atom.Atom{atom.Input, atom.Textarea, atom.Select}},
	"checked":       {"checked", "checked", propLive, []atom.Atom{atom.Input}},
	"selected":      {"selected", "selected", propLive, []atom.Atom{atom.Option}},
	"indeterminate": {"indeterminate", "", propLive, []atom.Atom{atom.Input}},
}

// attributeOnly lists (tag, name) pairs whose properties are read-only or
// reject values on some engines, so SetProperty always writes the attribute.
var attributeOnly = map[atom.Atom]map[string]bool{
	atom.Button:   {"type": true, "form": true},
	atom.Input:    {"type": true, "list": true, "form": true, "autocorrect": true},
	atom.Fieldset: {"form": true},
	atom.Label:    {"form": true},
	atom.Object:   {"form": true},
	atom.Output:   {"form": true},
	atom.Select:   {"form": true},
	atom.Textarea: {"form": true},
}

var inputTypes = map[string]bool{
	"button": true, "checkbox": true, "color": true, "date": true, "datetime-local": true,
	"email": true, "file": true, "hidden": true, "image": true, "month": true, "number": true,
	"password": true, "radio": true, "range": true, "reset": true, "search": true,
	"submit": true, "tel": true, "text": true, "time": true, "url": true, "week": true,
}

// lookupProperty finds the property an HTML element exposes for name.
func lookupProperty(el *html.Node, name string) (property, bool) {
	if el == nil || el.Type != html.ElementNode || el.Namespace != "" {
		return property{}, false
	}
	p, ok := properties[strings.ToLower(name)]
	if !ok {
		return property{}, false
	}
	if p.tags != nil && !slices.Contains(p.tags, el.DataAtom) {
		return property{}, false
	}
	return p, true
}

// normalizeProperty is lookupProperty minus the attribute-only pairs.
func normalizeProperty(el *html.Node, name string) (property, bool) {
	p, ok := lookupProperty(el, name)
	if !ok {
		return property{}, false
	}
	if attributeOnly[el.DataAtom][strings.ToLower(name)] {
		return property{}, false
	}
	return p, true
}

// propertyStore keeps live node state that x/net/html cannot represent.
type propertyStore struct {
	mu     sync.RWMutex
	values map[*html.Node]map[string]any
}

func (s *propertyStore) get(n *html.Node, name string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[n][name]
	return v, ok
}

func (s *propertyStore) set(n *html.Node, name string, v any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m := s.values[n]
	if m == nil {
		m = map[string]any{}
		s.values[n] = m
	}
	m[name] = v
}

func (s *propertyStore) copyTo(src, dst *html.Node, skip string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, v := range s.values[src] {
		if k == skip {
			continue
		}
		m := s.values[dst]
		if m == nil {
			m = map[string]any{}
			s.values[dst] = m
		}
		m[k] = v
	}
}

func (s *propertyStore) release(n *html.Node) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		delete(s.values, n)
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
}

// Release forgets live state held for n and its descendants.
func (h *Helper) Release(n *html.Node) {
	h.props.release(n)
}

// Truthy reports whether v counts as true when assigned to a boolean
// property.
func Truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case string:
		return t != ""
	case HTML:
		return t != ""
	case int:
		return t != 0
	case int64:
		return t != 0
	case float64:
		return t != 0
	}
	if IsUndefined(v) {
		return false
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
		return !rv.IsNil()
	}
	return true
}

// SetProperty assigns name on el the way a template binding does. SVG
// elements, style and namespaced names use attributes. Known properties are
// assigned as properties unless the (tag, name) pair is attribute-only.
// Everything else is an attribute. nil and Undefined remove the attribute.
func (h *Helper) SetProperty(el *html.Node, name string, value any, namespace string) {
	if el.Namespace == "svg" || strings.EqualFold(name, "style") {
		h.setOrRemoveAttribute(el, name, value, namespace)
		return
	}
	if p, ok := normalizeProperty(el, name); ok && namespace == "" {
		h.assignProperty(el, p, value)
		return
	}
	h.setOrRemoveAttribute(el, name, value, namespace)
}

func (h *Helper) setOrRemoveAttribute(el *html.Node, name string, value any, namespace string) {
	switch {
	case isRemoval(value) && namespace != "":
		h.RemoveAttributeNS(el, namespace, name)
	case isRemoval(value):
		h.RemoveAttribute(el, name)
	case namespace != "":
		h.SetAttributeNS(el, namespace, name, value)
	default:
		h.SetAttribute(el, name, value)
	}
}

// SetPropertyStrict assigns a property directly. nil and Undefined are
// normalized to "" for value, type and src so they never reach the node as
// "null".
func (h *Helper) SetPropertyStrict(el *html.Node, name string, value any) {
	if isRemoval(value) {
		switch strings.ToLower(name) {
		case "value", "type", "src":
			value = ""
		}
	}
	if p, ok := lookupProperty(el, name); ok {
		h.assignProperty(el, p, value)
		return
	}
	h.setOrRemoveAttribute(el, name, value, "")
}

func (h *Helper) assignProperty(el *html.Node, p property, value any) {
	switch p.kind {
	case propString:
		if isRemoval(value) {
			h.RemoveAttribute(el, p.attr)
			return
		}
		h.SetAttribute(el, p.attr, value)
	case propBool:
		if Truthy(value) {
			h.SetAttribute(el, p.attr, "")
		} else {
			h.RemoveAttribute(el, p.attr)
		}
	case propLive:
		if p.name == "value" {
			if isRemoval(value) {
				value = ""
			}
			h.props.set(el, p.name, Stringify(value))
			return
		}
		h.props.set(el, p.name, Truthy(value))
	}
}

// Property reads the live value of name: stored live state first, then the
// reflected attribute. Unknown names return the attribute or nil.
func (h *Helper) Property(el *html.Node, name string) any {
	p, ok := lookupProperty(el, name)
	if !ok {
		if v, ok := h.GetAttribute(el, name); ok {
			return v
		}
		return nil
	}
	switch p.kind {
	case propBool:
		return h.HasAttribute(el, p.attr)
	case propString:
		v, _ := h.GetAttribute(el, p.attr)
		if p.name == "type" && el.DataAtom == atom.Input {
			if t := strings.ToLower(v); inputTypes[t] {
				return t
			}
			return "text"
		}
		return v
	}

	if v, ok := h.props.get(el, p.name); ok {
		return v
	}
	switch p.name {
	case "value":
		return h.defaultValue(el)
	case "checked":
		return h.HasAttribute(el, "checked")
	case "selected":
		return h.HasAttribute(el, "selected") || h.implicitlySelected(el)
	}
	return false
}

func (h *Helper) defaultValue(el *html.Node) string {
	switch el.DataAtom {
	case atom.Textarea:
		return textContent(el)
	case atom.Select:
		for _, opt := range options(el) {
			if h.Property(opt, "selected") == true {
				return optionValue(h, opt)
			}
		}
		return ""
	}
	v, _ := h.GetAttribute(el, "value")
	return v
}

func optionValue(h *Helper, opt *html.Node) string {
	if v, ok := h.GetAttribute(opt, "value"); ok {
		return v
	}
	return strings.TrimSpace(textContent(opt))
}

// implicitlySelected applies the single-select rule: with no option
// explicitly selected, the first option is.
func (h *Helper) implicitlySelected(opt *html.Node) bool {
	sel := opt.Parent
	if sel != nil && sel.DataAtom == atom.Optgroup {
		sel = sel.Parent
	}
	if sel == nil || sel.DataAtom != atom.Select || h.HasAttribute(sel, "multiple") {
		return false
	}
	opts := options(sel)
	for _, o := range opts {
		if v, ok := h.props.get(o, "selected"); ok && v == true {
			return false
		}
		if h.HasAttribute(o, "selected") {
			return false
		}
	}
	return len(opts) > 0 && opts[0] == opt
}

func options(sel *html.Node) []*html.Node {
	var out []*html.Node
	for c := sel.FirstChild; c != nil; c = c.NextSibling {
		switch c.DataAtom {
		case atom.Option:
			out = append(out, c)
		case atom.Optgroup:
			for o := c.FirstChild; o != nil; o = o.NextSibling {
				if o.DataAtom == atom.Option {
					out = append(out, o)
				}
			}
		}
	}
	return out
}

func textContent(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return b.String()
}
