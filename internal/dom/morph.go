package dom

import (
	"fmt"
	"strings"

	"golang.org/x/net/html"
)

// Morph is a live placeholder covering the sibling range first..last under
// one parent. Replacing its content only touches that range, so neighbouring
// morphs keep their bookends. A morph is never empty: cleared content is a
// single empty text node.
type Morph struct {
	dom        *Helper
	parent     *html.Node
	contextual *html.Node
	first      *html.Node
	last       *html.Node
	owner      *Morph
}

// CreateMorph creates a morph over start..end under parent. contextual
// defaults to parent and must be an element.
func (h *Helper) CreateMorph(parent, start, end, contextual *html.Node) (*Morph, error) {
	if contextual == nil {
		contextual = parent
	}
	if !IsElement(contextual) {
		return nil, ErrInvalidContextualElement
	}
	if (start == nil) != (end == nil) {
		return nil, fmt.Errorf("morph needs both bookends or neither")
	}
	return &Morph{dom: h, parent: parent, contextual: contextual, first: start, last: end}, nil
}

// CreateMorphAt creates a morph covering node, which stays in place.
func (h *Helper) CreateMorphAt(node, contextual *html.Node) (*Morph, error) {
	return h.CreateMorph(node.Parent, node, node, contextual)
}

// AppendMorph appends a placeholder to parent and returns a morph over it.
func (h *Helper) AppendMorph(parent, contextual *html.Node) (*Morph, error) {
	return h.InsertMorphBefore(parent, nil, contextual)
}

// InsertMorphBefore inserts a placeholder before ref, or at the end of parent
// when ref is nil, and returns a morph over it.
func (h *Helper) InsertMorphBefore(parent, ref, contextual *html.Node) (*Morph, error) {
	if contextual == nil {
		contextual = parent
	}
	if !IsElement(contextual) {
		return nil, ErrInvalidContextualElement
	}
	placeholder := h.CreateTextNode("")
	parent.InsertBefore(placeholder, ref)
	return &Morph{dom: h, parent: parent, contextual: contextual, first: placeholder, last: placeholder}, nil
}

// ContextualElement returns the element used for parsing and namespaces.
func (m *Morph) ContextualElement() *html.Node { return m.contextual }

// FirstNode returns the first node of the current content.
func (m *Morph) FirstNode() *html.Node { return m.first }

// LastNode returns the last node of the current content.
func (m *Morph) LastNode() *html.Node { return m.last }

// SetOwner nests m inside owner: when m's content starts or ends owner's
// range, owner's bookends follow m's.
func (m *Morph) SetOwner(owner *Morph) { m.owner = owner }

// Nodes returns the current content.
func (m *Morph) Nodes() []*html.Node {
	var out []*html.Node
	for n := m.first; n != nil; n = n.NextSibling {
		out = append(out, n)
		if n == m.last {
			break
		}
	}
	return out
}

// SetContent replaces the content. Strings become text, HTML is parsed under
// the contextual element, nodes are inserted as is and fragments are
// emptied into the range. nil and Undefined clear the morph.
func (m *Morph) SetContent(value any) error {
	switch v := value.(type) {
	case nil:
		m.Clear()
	case string:
		m.SetText(v)
	case HTML:
		return m.SetHTML(string(v))
	case *html.Node:
		m.SetNode(v)
	default:
		if IsUndefined(value) {
			m.Clear()
			return nil
		}
		m.SetText(Stringify(value))
	}
	return nil
}

// SetText shows text. A morph already holding a single text node updates
// it in place.
func (m *Morph) SetText(text string) {
	if m.first != nil && m.first == m.last && m.first.Type == html.TextNode {
		m.first.Data = text
		return
	}
	m.replace([]*html.Node{m.dom.CreateTextNode(text)})
}

// SetHTML parses markup under the contextual element and shows the result.
func (m *Morph) SetHTML(markup string) error {
	frag, err := m.dom.ParseHTML(markup, m.contextual)
	if err != nil {
		return err
	}
	m.SetNode(frag)
	return nil
}

// SetNode shows node, or the children of a fragment.
func (m *Morph) SetNode(node *html.Node) {
	if IsFragment(node) {
		nodes := ChildNodes(node)
		for _, n := range nodes {
			node.RemoveChild(n)
		}
		m.replace(nodes)
		return
	}
	detach(node)
	m.replace([]*html.Node{node})
}

// Clear replaces the content with an empty text node.
func (m *Morph) Clear() {
	m.SetText("")
}

// Destroy removes the content from the document and forgets its live state.
func (m *Morph) Destroy() {
	for _, n := range m.Nodes() {
		detach(n)
		m.dom.Release(n)
	}
	m.first, m.last = nil, nil
}

// MoveBefore moves the content under parent before ref (at the end when ref
// is nil). The morph becomes rooted at parent.
func (m *Morph) MoveBefore(parent, ref *html.Node) {
	for _, n := range m.Nodes() {
		detach(n)
		parent.InsertBefore(n, ref)
	}
	m.parent = parent
}

// HTML renders the current content.
func (m *Morph) HTML() string {
	var b strings.Builder
	for _, n := range m.Nodes() {
		_ = html.Render(&b, n)
	}
	return b.String()
}

func (m *Morph) currentParent() *html.Node {
	if m.first != nil && m.first.Parent != nil {
		return m.first.Parent
	}
	return m.parent
}

// replace swaps first..last for nodes, keeping everything outside the range.
func (m *Morph) replace(nodes []*html.Node) {
	if len(nodes) == 0 {
		nodes = []*html.Node{m.dom.CreateTextNode("")}
	}
	parent := m.currentParent()
	var next *html.Node
	if m.last != nil {
		next = m.last.NextSibling
	}
	for _, n := range m.Nodes() {
		detach(n)
		m.dom.Release(n)
	}
	if parent == nil {
		parent = m.dom.CreateFragment()
		m.parent = parent
	}
	for _, n := range nodes {
		parent.InsertBefore(n, next)
	}
	m.setFirst(nodes[0])
	m.setLast(nodes[len(nodes)-1])
}

func (m *Morph) setFirst(n *html.Node) {
	if o := m.owner; o != nil && o.first == m.first {
		o.setFirst(n)
	}
	m.first = n
}

func (m *Morph) setLast(n *html.Node) {
	if o := m.owner; o != nil && o.last == m.last {
		o.setLast(n)
	}
	m.last = n
}
