// Package dom is the document adapter used by the template runtime. It
// builds and mutates golang.org/x/net/html trees with browser semantics:
// namespace-aware element creation, attribute and property assignment with
// quirk tables, fragment parsing under a context element, clone repair and
// morphs.
package dom

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// ErrInvalidContextualElement is returned when a morph or fragment is
// anchored to a node that is not an element.
var ErrInvalidContextualElement = errors.New("contextual element must be an element node")

// fragmentMarker tags document nodes that stand in for DocumentFragment.
const fragmentMarker = "#document-fragment"

// Quirks models engine behaviour that RepairClonedNode compensates for.
type Quirks struct {
	// DropsBlankTextOnClone removes zero-length text nodes from clones.
	DropsBlankTextOnClone bool
	// DropsCheckedOnClone copies the checked attribute but not the checked
	// property.
	DropsCheckedOnClone bool
}

// Option configures a Helper.
type Option func(*Helper)

// WithQuirks sets the clone quirks to emulate.
func WithQuirks(q Quirks) Option {
	return func(h *Helper) { h.quirks = q }
}

// WithDocumentURL sets the URL ProtocolForURL falls back to.
func WithDocumentURL(u *url.URL) Option {
	return func(h *Helper) { h.docURL = u }
}

// WithLogger sets the logger used for debug traces.
func WithLogger(l *slog.Logger) Option {
	return func(h *Helper) {
		if l != nil {
			h.logger = l
		}
	}
}

// Helper is the document adapter. A Helper is immutable apart from its
// property store; InNamespace returns a scoped copy sharing that store.
type Helper struct {
	doc       *html.Node
	body      *html.Node
	namespace string
	quirks    Quirks
	docURL    *url.URL
	logger    *slog.Logger
	props     *propertyStore
}

// NewHelper creates a helper owning a fresh html/head/body document.
func NewHelper(opts ...Option) *Helper {
	doc := &html.Node{Type: html.DocumentNode}
	root := newElement("html", "")
	head := newElement("head", "")
	body := newElement("body", "")
	doc.AppendChild(root)
	root.AppendChild(head)
	root.AppendChild(body)

	h := &Helper{
		doc:    doc,
		body:   body,
		docURL: &url.URL{Scheme: "about", Opaque: "blank"},
		logger: slog.New(slog.DiscardHandler),
		props:  &propertyStore{values: map[*html.Node]map[string]any{}},
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// InNamespace returns a helper that creates elements in namespace unless the
// tag itself dictates otherwise. An empty namespace clears the override.
func (h *Helper) InNamespace(namespace string) *Helper {
	c := *h
	c.namespace = namespace
	return &c
}

// Namespace returns the explicit namespace override, if any.
func (h *Helper) Namespace() string { return h.namespace }

// Quirks returns the clone quirks the helper emulates.
func (h *Helper) Quirks() Quirks { return h.quirks }

// Document returns the owning document node.
func (h *Helper) Document() *html.Node { return h.doc }

// Body returns the document body.
func (h *Helper) Body() *html.Node { return h.body }

func newElement(tag, space string) *html.Node {
	n := &html.Node{Type: html.ElementNode, Data: tag, Namespace: space}
	n.DataAtom = atom.Lookup([]byte(tag))
	return n
}

// CreateElement creates tag. The namespace is chosen by precedence: the svg
// tag is always SVG; then the helper's explicit namespace; then the namespace
// children of contextual receive; then XHTML.
func (h *Helper) CreateElement(tag string, contextual *html.Node) *html.Node {
	switch {
	case tag == "svg":
		return h.CreateElementNS(SVGNamespace, tag)
	case h.namespace != "":
		return h.CreateElementNS(h.namespace, tag)
	case contextual != nil:
		return h.CreateElementNS(ChildNamespace(contextual), tag)
	}
	return h.CreateElementNS(XHTMLNamespace, tag)
}

// CreateElementNS creates tag in the given namespace URI.
func (h *Helper) CreateElementNS(namespace, tag string) *html.Node {
	return newElement(tag, elementSpace(namespace))
}

// CreateTextNode creates a text node.
func (h *Helper) CreateTextNode(text string) *html.Node {
	return &html.Node{Type: html.TextNode, Data: text}
}

// CreateComment creates a comment node.
func (h *Helper) CreateComment(text string) *html.Node {
	return &html.Node{Type: html.CommentNode, Data: text}
}

// CreateFragment creates an empty document fragment.
func (h *Helper) CreateFragment() *html.Node {
	return &html.Node{Type: html.DocumentNode, Data: fragmentMarker}
}

// IsFragment reports whether n was created by CreateFragment or ParseHTML.
func IsFragment(n *html.Node) bool {
	return n != nil && n.Type == html.DocumentNode && n.Data == fragmentMarker
}

// IsElement reports whether n is an element node.
func IsElement(n *html.Node) bool {
	return n != nil && n.Type == html.ElementNode
}

func detach(n *html.Node) {
	if n.Parent != nil {
		n.Parent.RemoveChild(n)
	}
}

// AppendChild moves child to the end of parent. Fragments are emptied into
// parent.
func (h *Helper) AppendChild(parent, child *html.Node) *html.Node {
	return h.InsertBefore(parent, child, nil)
}

// InsertBefore moves child before ref, or to the end when ref is nil.
// Fragments are emptied into parent.
func (h *Helper) InsertBefore(parent, child, ref *html.Node) *html.Node {
	if IsFragment(child) {
		for c := child.FirstChild; c != nil; c = child.FirstChild {
			child.RemoveChild(c)
			parent.InsertBefore(c, ref)
		}
		return child
	}
	detach(child)
	parent.InsertBefore(child, ref)
	return child
}

// RemoveChild detaches child from parent.
func (h *Helper) RemoveChild(parent, child *html.Node) {
	if child.Parent == parent {
		parent.RemoveChild(child)
	}
}

// AppendText appends a new text node to parent and returns it.
func (h *Helper) AppendText(parent *html.Node, text string) *html.Node {
	n := h.CreateTextNode(text)
	parent.AppendChild(n)
	return n
}

// ChildAtIndex returns the index-th child of parent, or nil.
func (h *Helper) ChildAtIndex(parent *html.Node, index int) *html.Node {
	if parent == nil || index < 0 {
		return nil
	}
	c := parent.FirstChild
	for i := 0; c != nil && i < index; i++ {
		c = c.NextSibling
	}
	return c
}

// ChildAt follows a path of child indices from parent.
func (h *Helper) ChildAt(parent *html.Node, path []int) (*html.Node, error) {
	n := parent
	for depth, index := range path {
		next := h.ChildAtIndex(n, index)
		if next == nil {
			return nil, fmt.Errorf("no node at %v (stopped at depth %d)", path, depth)
		}
		n = next
	}
	return n, nil
}

// ChildNodes returns the children of n.
func ChildNodes(n *html.Node) []*html.Node {
	var out []*html.Node
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		out = append(out, c)
	}
	return out
}

// GetElementByID searches root, or the helper's document when root is nil,
// for the first element with the given id.
func (h *Helper) GetElementByID(id string, root *html.Node) *html.Node {
	if root == nil {
		root = h.doc
	}
	var found *html.Node
	var walk func(n *html.Node) bool
	walk = func(n *html.Node) bool {
		if n.Type == html.ElementNode {
			if v, ok := h.GetAttribute(n, "id"); ok && v == id {
				found = n
				return true
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if walk(c) {
				return true
			}
		}
		return false
	}
	walk(root)
	return found
}
