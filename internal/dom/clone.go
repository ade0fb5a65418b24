package dom

import (
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// CloneNode copies node, and its subtree when deep is set. Live state is
// copied with it, subject to the helper's quirks.
func (h *Helper) CloneNode(node *html.Node, deep bool) *html.Node {
	clone := &html.Node{
		Type:      node.Type,
		DataAtom:  node.DataAtom,
		Data:      node.Data,
		Namespace: node.Namespace,
	}
	if len(node.Attr) > 0 {
		clone.Attr = append([]html.Attribute(nil), node.Attr...)
	}

	skip := ""
	if h.quirks.DropsCheckedOnClone && node.DataAtom == atom.Input && node.Namespace == "" {
		skip = "checked"
		h.props.set(clone, "checked", false)
	}
	h.props.copyTo(node, clone, skip)

	if !deep {
		return clone
	}
	for c := node.FirstChild; c != nil; c = c.NextSibling {
		if h.quirks.DropsBlankTextOnClone && c.Type == html.TextNode && c.Data == "" {
			continue
		}
		clone.AppendChild(h.CloneNode(c, true))
	}
	return clone
}

// RepairClonedNode undoes what the quirks dropped from a clone: blank text
// nodes are re-inserted at the given child indexes, and the checked property
// is restored when checked is set.
func (h *Helper) RepairClonedNode(clone *html.Node, blankText []int, checked bool) {
	if h.quirks.DropsBlankTextOnClone {
		for _, index := range blankText {
			text := h.CreateTextNode("")
			if ref := h.ChildAtIndex(clone, index); ref != nil {
				clone.InsertBefore(text, ref)
			} else {
				clone.AppendChild(text)
			}
		}
	}
	if checked && h.quirks.DropsCheckedOnClone {
		h.props.set(clone, "checked", true)
	}
}
