package dom

import (
	"strings"

	"golang.org/x/net/html"
)

// Namespace URIs understood by the helper.
const (
	XHTMLNamespace  = "http://www.w3.org/1999/xhtml"
	SVGNamespace    = "http://www.w3.org/2000/svg"
	MathMLNamespace = "http://www.w3.org/1998/Math/MathML"
	XLinkNamespace  = "http://www.w3.org/1999/xlink"
	XMLNamespace    = "http://www.w3.org/XML/1998/namespace"
	XMLNSNamespace  = "http://www.w3.org/2000/xmlns/"
)

// x/net/html stores element namespaces and attribute namespaces as short
// names rather than URIs.
var (
	elementSpaces = map[string]string{
		SVGNamespace:    "svg",
		MathMLNamespace: "math",
	}
	attributeSpaces = map[string]string{
		XLinkNamespace: "xlink",
		XMLNamespace:   "xml",
		XMLNSNamespace: "xmlns",
	}
)

// NamespaceURI returns the namespace URI of an element, "" for other nodes.
func NamespaceURI(n *html.Node) string {
	if n == nil || n.Type != html.ElementNode {
		return ""
	}
	switch n.Namespace {
	case "":
		return XHTMLNamespace
	case "svg":
		return SVGNamespace
	case "math":
		return MathMLNamespace
	}
	return n.Namespace
}

// TagName returns the element's tag the way the DOM reports it: upper-cased
// for HTML elements and verbatim for foreign ones.
func TagName(n *html.Node) string {
	if n == nil || n.Type != html.ElementNode {
		return ""
	}
	if n.Namespace == "" {
		return strings.ToUpper(n.Data)
	}
	return n.Data
}

// isIntegrationPoint reports SVG elements whose children are HTML.
func isIntegrationPoint(n *html.Node) bool {
	if n == nil || n.Namespace != "svg" {
		return false
	}
	switch n.Data {
	case "foreignObject", "desc", "title":
		return true
	}
	return false
}

// ChildNamespace returns the namespace URI that elements created under
// contextual default to when no other rule applies.
func ChildNamespace(contextual *html.Node) string {
	if contextual == nil || contextual.Type != html.ElementNode || isIntegrationPoint(contextual) {
		return XHTMLNamespace
	}
	return NamespaceURI(contextual)
}

func elementSpace(uri string) string {
	if uri == "" || uri == XHTMLNamespace {
		return ""
	}
	if short, ok := elementSpaces[uri]; ok {
		return short
	}
	return uri
}

// attributeSpace maps a namespace URI and a possibly prefixed attribute name
// to the x/net/html namespace and local key.
func attributeSpace(uri, qualified string) (space, key string) {
	if uri == "" || (uri == XMLNSNamespace && qualified == "xmlns") {
		return "", qualified
	}
	prefix, local, found := strings.Cut(qualified, ":")
	if !found {
		local = qualified
	}
	if short, ok := attributeSpaces[uri]; ok {
		return short, local
	}
	if prefix != "" {
		return prefix, local
	}
	return uri, local
}
