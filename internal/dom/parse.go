package dom

import (
	"fmt"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// corrections maps a context tag and the first tag of the markup to the chain
// of wrapper contexts the markup must be parsed under. Without it the
// fragment algorithm inserts implied ancestors: "<tr>" under a table becomes
// "<tbody><tr>". Contexts not listed here parse uncorrected.
var corrections = map[atom.Atom]map[atom.Atom][]atom.Atom{
	atom.Table: {
		atom.Tr:  {atom.Tbody},
		atom.Td:  {atom.Tbody, atom.Tr},
		atom.Th:  {atom.Tbody, atom.Tr},
		atom.Col: {atom.Colgroup},
	},
	atom.Tbody: {atom.Td: {atom.Tr}, atom.Th: {atom.Tr}},
	atom.Thead: {atom.Td: {atom.Tr}, atom.Th: {atom.Tr}},
	atom.Tfoot: {atom.Td: {atom.Tr}, atom.Th: {atom.Tr}},
}

// ParseHTML parses markup as the children of contextual and returns them in
// a fragment. A nil contextual parses as body content in the helper's
// namespace.
//
// A leading <script> before any element disables correction, so
// "<script></script><tr>" under a table yields SCRIPT then TBODY. This case
// cannot be fixed without reordering the markup.
func (h *Helper) ParseHTML(markup string, contextual *html.Node) (*html.Node, error) {
	if contextual != nil && contextual.Type != html.ElementNode {
		return nil, fmt.Errorf("parse html: %w", ErrInvalidContextualElement)
	}
	context := h.parseContext(markup, contextual)
	nodes, err := html.ParseFragment(strings.NewReader(markup), context)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	frag := h.CreateFragment()
	for _, n := range nodes {
		frag.AppendChild(n)
	}
	if context.DataAtom == atom.Select && context.Namespace == "" {
		// Options parsed for a select carry only their explicit selection.
		for _, n := range nodes {
			if n.Type == html.ElementNode && n.DataAtom == atom.Option {
				h.props.set(n, "selected", h.HasAttribute(n, "selected"))
			}
		}
	}
	return frag, nil
}

// parseContext builds the synthetic element the markup is parsed under.
func (h *Helper) parseContext(markup string, contextual *html.Node) *html.Node {
	if contextual == nil {
		if h.namespace != "" && h.namespace != XHTMLNamespace {
			return newElement("svg", elementSpace(h.namespace))
		}
		return newElement("body", "")
	}
	if isIntegrationPoint(contextual) {
		return newElement("div", "")
	}
	if contextual.Namespace != "" {
		return newElement(contextual.Data, contextual.Namespace)
	}

	context := newElement(contextual.Data, "")
	table, ok := corrections[context.DataAtom]
	if !ok {
		return context
	}
	first := leadingTag(markup)
	if first == atom.Script {
		h.logger.Debug("leading script disables fragment correction", "context", contextual.Data)
		return context
	}
	chain, ok := table[first]
	if !ok {
		return context
	}
	for _, wrapper := range chain {
		next := newElement(wrapper.String(), "")
		context.AppendChild(next)
		context = next
	}
	return context
}

// leadingTag returns the first start tag of markup, skipping whitespace and
// comments. Any other leading content yields 0.
func leadingTag(markup string) atom.Atom {
	z := html.NewTokenizer(strings.NewReader(markup))
	for {
		switch z.Next() {
		case html.ErrorToken:
			return 0
		case html.TextToken:
			if strings.TrimSpace(string(z.Text())) != "" {
				return 0
			}
		case html.CommentToken, html.DoctypeToken:
		case html.StartTagToken, html.SelfClosingTagToken:
			name, _ := z.TagName()
			return atom.Lookup(name)
		default:
			return 0
		}
	}
}
