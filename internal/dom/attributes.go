package dom

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"golang.org/x/net/html"
)

type undefinedValue struct{}

func (undefinedValue) String() string { return "undefined" }

// Undefined is the absent value. Unlike nil, which SetAttribute writes as
// "null", Undefined asks SetProperty to remove the attribute.
var Undefined any = undefinedValue{}

// IsUndefined reports whether v is Undefined.
func IsUndefined(v any) bool {
	_, ok := v.(undefinedValue)
	return ok
}

// isRemoval reports the values that remove an attribute through SetProperty.
func isRemoval(v any) bool {
	return v == nil || IsUndefined(v)
}

// HTML is markup that is trusted and inserted without escaping.
type HTML string

// Stringify converts a value the way attribute assignment does: nil becomes
// "null" and Undefined becomes "undefined".
func Stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return "null"
	case string:
		return t
	case HTML:
		return string(t)
	case bool:
		return strconv.FormatBool(t)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32)
	case fmt.Stringer:
		return t.String()
	}
	return fmt.Sprint(v)
}

// attrKey normalizes an attribute name: HTML elements use lower case.
func attrKey(el *html.Node, name string) string {
	if el.Namespace == "" {
		return strings.ToLower(name)
	}
	return name
}

// SetAttribute sets a plain attribute; the value is stringified.
func (h *Helper) SetAttribute(el *html.Node, name string, value any) {
	setAttr(el, "", attrKey(el, name), Stringify(value))
}

// SetAttributeNS sets a namespace-qualified attribute.
func (h *Helper) SetAttributeNS(el *html.Node, namespace, name string, value any) {
	space, key := attributeSpace(namespace, name)
	setAttr(el, space, key, Stringify(value))
}

func setAttr(el *html.Node, space, key, val string) {
	for i := range el.Attr {
		if el.Attr[i].Namespace == space && el.Attr[i].Key == key {
			el.Attr[i].Val = val
			return
		}
	}
	el.Attr = append(el.Attr, html.Attribute{Namespace: space, Key: key, Val: val})
}

// RemoveAttribute removes a plain attribute, or a prefixed one such as
// "xlink:href".
func (h *Helper) RemoveAttribute(el *html.Node, name string) {
	key := attrKey(el, name)
	out := el.Attr[:0]
	for _, a := range el.Attr {
		if qualifiedName(a) == key {
			continue
		}
		out = append(out, a)
	}
	el.Attr = out
}

// RemoveAttributeNS removes a namespace-qualified attribute.
func (h *Helper) RemoveAttributeNS(el *html.Node, namespace, name string) {
	space, key := attributeSpace(namespace, name)
	out := el.Attr[:0]
	for _, a := range el.Attr {
		if a.Namespace == space && a.Key == key {
			continue
		}
		out = append(out, a)
	}
	el.Attr = out
}

func qualifiedName(a html.Attribute) string {
	if a.Namespace == "" {
		return a.Key
	}
	return a.Namespace + ":" + a.Key
}

// GetAttribute returns an attribute by its qualified name.
func (h *Helper) GetAttribute(el *html.Node, name string) (string, bool) {
	if el == nil {
		return "", false
	}
	key := attrKey(el, name)
	for _, a := range el.Attr {
		if qualifiedName(a) == key {
			return a.Val, true
		}
	}
	return "", false
}

// HasAttribute reports whether the attribute is present.
func (h *Helper) HasAttribute(el *html.Node, name string) bool {
	_, ok := h.GetAttribute(el, name)
	return ok
}

// AddClasses appends the classes el does not already carry.
func (h *Helper) AddClasses(el *html.Node, classes []string) {
	current, _ := h.GetAttribute(el, "class")
	list := strings.Fields(current)
	for _, c := range classes {
		if !slices.Contains(list, c) {
			list = append(list, c)
		}
	}
	h.SetAttribute(el, "class", strings.Join(list, " "))
}

// RemoveClasses drops the given classes, leaving an empty class attribute
// when none remain.
func (h *Helper) RemoveClasses(el *html.Node, classes []string) {
	current, ok := h.GetAttribute(el, "class")
	if !ok {
		return
	}
	var kept []string
	for _, c := range strings.Fields(current) {
		if !slices.Contains(classes, c) {
			kept = append(kept, c)
		}
	}
	h.SetAttribute(el, "class", strings.Join(kept, " "))
}
