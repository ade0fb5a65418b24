package dom

import (
	"strings"

	"golang.org/x/net/html"
)

// OuterHTML serializes n. Fragments serialize their children.
func OuterHTML(n *html.Node) string {
	var b strings.Builder
	_ = html.Render(&b, n)
	return b.String()
}

// InnerHTML serializes the children of n.
func InnerHTML(n *html.Node) string {
	var b strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		_ = html.Render(&b, c)
	}
	return b.String()
}
