package dom

import (
	"reflect"

	"golang.org/x/net/html"
)

type attrStrategy uint8

const (
	strategyAttribute attrStrategy = iota
	strategyAttributeNS
	strategyProperty
)

// AttrMorph binds one attribute of an element to a dynamic value. The
// assignment strategy is chosen once, from the element and attribute name.
type AttrMorph struct {
	dom       *Helper
	element   *html.Node
	name      string
	namespace string
	strategy  attrStrategy
	last      any
	set       bool
}

// CreateAttrMorph creates a binding for name on el. A non-empty namespace
// makes it a namespaced attribute.
func (h *Helper) CreateAttrMorph(el *html.Node, name, namespace string) *AttrMorph {
	m := &AttrMorph{dom: h, element: el, name: name, namespace: namespace}
	switch {
	case namespace != "":
		m.strategy = strategyAttributeNS
	case el.Namespace != "":
		m.strategy = strategyAttribute
	default:
		if _, ok := normalizeProperty(el, name); ok {
			m.strategy = strategyProperty
		}
	}
	return m
}

// Element returns the bound element.
func (m *AttrMorph) Element() *html.Node { return m.element }

// Name returns the bound attribute name.
func (m *AttrMorph) Name() string { return m.name }

// SetContent assigns value after URL sanitization. Assigning the value the
// morph already holds is a no-op.
func (m *AttrMorph) SetContent(value any) {
	value = m.dom.SanitizeAttributeValue(m.element, m.name, value)
	if m.set && SameValue(m.last, value) {
		return
	}
	m.last, m.set = value, true

	switch m.strategy {
	case strategyProperty:
		m.dom.SetProperty(m.element, m.name, value, "")
	case strategyAttributeNS:
		if isRemoval(value) {
			m.dom.RemoveAttributeNS(m.element, m.namespace, m.name)
			return
		}
		m.dom.SetAttributeNS(m.element, m.namespace, m.name, value)
	default:
		if isRemoval(value) {
			m.dom.RemoveAttribute(m.element, m.name)
			return
		}
		m.dom.SetAttribute(m.element, m.name, value)
	}
}

// SameValue reports whether a and b are equal scalars of the same type.
// Composite values never compare equal.
func SameValue(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if reflect.TypeOf(a) != reflect.TypeOf(b) {
		return false
	}
	switch reflect.TypeOf(a).Kind() {
	case reflect.String, reflect.Bool, reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Float32, reflect.Float64:
		return a == b
	}
	return false
}
