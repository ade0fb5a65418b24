package dom

import (
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"
)

func TestCloneNodeShallow(t *testing.T) {
	h := NewHelper()
	div := h.CreateElement("div", nil)
	h.SetAttribute(div, "id", "x")
	h.AppendChild(div, h.CreateElement("span", nil))

	clone := h.CloneNode(div, false)
	require.NotSame(t, div, clone)
	require.Equal(t, `<div id="x"></div>`, OuterHTML(clone))
	require.Nil(t, clone.Parent)

	h.SetAttribute(clone, "id", "y")
	v, _ := h.GetAttribute(div, "id")
	require.Equal(t, "x", v)
}

func TestCloneNodeDeep(t *testing.T) {
	h := NewHelper()
	div := h.CreateElement("div", nil)
	span := h.CreateElement("span", nil)
	h.AppendText(span, "hi")
	h.AppendChild(div, span)
	h.AppendChild(div, h.CreateComment("c"))

	clone := h.CloneNode(div, true)
	require.Equal(t, OuterHTML(div), OuterHTML(clone))
	require.NotSame(t, span, clone.FirstChild)
}

func blankTextSource(h *Helper) *html.Node {
	div := h.CreateElement("div", nil)
	h.AppendText(div, "")
	return div
}

func TestRepairClonedNodeBlankText(t *testing.T) {
	t.Run("engine keeps blank text", func(t *testing.T) {
		h := NewHelper()
		clone := h.CloneNode(blankTextSource(h), true)
		require.Len(t, ChildNodes(clone), 1)
		h.RepairClonedNode(clone, []int{0}, false)
		require.Len(t, ChildNodes(clone), 1)
	})

	t.Run("engine drops blank text", func(t *testing.T) {
		h := NewHelper(WithQuirks(Quirks{DropsBlankTextOnClone: true}))
		clone := h.CloneNode(blankTextSource(h), true)
		require.Empty(t, ChildNodes(clone))
		h.RepairClonedNode(clone, []int{0}, false)
		require.Len(t, ChildNodes(clone), 1)
		require.Equal(t, html.TextNode, clone.FirstChild.Type)
		require.Equal(t, "", clone.FirstChild.Data)
	})

	t.Run("repair inserts at index", func(t *testing.T) {
		h := NewHelper(WithQuirks(Quirks{DropsBlankTextOnClone: true}))
		div := h.CreateElement("div", nil)
		h.AppendChild(div, h.CreateElement("b", nil))
		h.AppendText(div, "")
		h.AppendChild(div, h.CreateElement("i", nil))

		clone := h.CloneNode(div, true)
		require.Len(t, ChildNodes(clone), 2)
		h.RepairClonedNode(clone, []int{1}, false)
		require.Equal(t, []string{"B", "#", "I"}, tagNames(ChildNodes(clone)))
	})
}

func TestRepairClonedNodeChecked(t *testing.T) {
	t.Run("engine keeps checked", func(t *testing.T) {
		h := NewHelper()
		input := h.CreateElement("input", nil)
		h.SetAttribute(input, "checked", "checked")
		clone := h.CloneNode(input, false)
		require.Equal(t, true, h.Property(clone, "checked"))
	})

	t.Run("engine drops checked", func(t *testing.T) {
		h := NewHelper(WithQuirks(Quirks{DropsCheckedOnClone: true}))
		input := h.CreateElement("input", nil)
		h.SetAttribute(input, "checked", "checked")
		require.Equal(t, true, h.Property(input, "checked"))

		clone := h.CloneNode(input, false)
		require.Equal(t, false, h.Property(clone, "checked"))
		h.RepairClonedNode(clone, nil, true)
		require.Equal(t, true, h.Property(clone, "checked"))
		require.Equal(t, `<input checked="checked"/>`, OuterHTML(clone))
	})
}

func TestCloneCopiesLiveState(t *testing.T) {
	h := NewHelper()
	input := h.CreateElement("input", nil)
	h.SetProperty(input, "value", "typed", "")
	clone := h.CloneNode(input, false)
	require.Equal(t, "typed", h.Property(clone, "value"))

	h.SetProperty(clone, "value", "other", "")
	require.Equal(t, "typed", h.Property(input, "value"))
}

func TestNamespaceSelection(t *testing.T) {
	h := NewHelper()

	require.Equal(t, XHTMLNamespace, NamespaceURI(h.CreateElement("div", nil)))

	svg := h.CreateElement("svg", nil)
	require.Equal(t, "svg", TagName(svg))
	require.Equal(t, SVGNamespace, NamespaceURI(svg))

	path := h.CreateElement("path", svg)
	require.Equal(t, SVGNamespace, NamespaceURI(path))

	div := h.CreateElement("div", nil)
	require.Equal(t, SVGNamespace, NamespaceURI(h.CreateElement("svg", div)))

	scoped := h.InNamespace(SVGNamespace)
	require.Equal(t, SVGNamespace, scoped.Namespace())
	require.Equal(t, SVGNamespace, NamespaceURI(scoped.CreateElement("g", nil)))
	require.Equal(t, "", h.Namespace())

	math := h.CreateElementNS(MathMLNamespace, "math")
	require.Equal(t, MathMLNamespace, NamespaceURI(h.CreateElement("mi", math)))
}

func TestSetPropertyOnSVG(t *testing.T) {
	h := NewHelper()
	svg := h.CreateElementNS(SVGNamespace, "svg")

	h.SetProperty(svg, "viewBox", "0 0 0 0", "")
	require.Equal(t, `<svg viewBox="0 0 0 0"></svg>`, OuterHTML(svg))

	h.SetProperty(svg, "xlink:title", "super-blast", XLinkNamespace)
	require.Contains(t, OuterHTML(svg), `xlink:title="super-blast"`)

	h.SetProperty(svg, "xlink:title", nil, XLinkNamespace)
	require.False(t, h.HasAttribute(svg, "xlink:title"))
}

func TestAttributeSpace(t *testing.T) {
	cases := []struct {
		uri, name, space, key string
	}{
		{"", "href", "", "href"},
		{XLinkNamespace, "xlink:href", "xlink", "href"},
		{XLinkNamespace, "href", "xlink", "href"},
		{XMLNamespace, "xml:lang", "xml", "lang"},
		{XMLNSNamespace, "xmlns", "", "xmlns"},
		{XMLNSNamespace, "xmlns:xlink", "xmlns", "xlink"},
		{"urn:custom", "c:thing", "c", "thing"},
	}
	for _, tc := range cases {
		space, key := attributeSpace(tc.uri, tc.name)
		require.Equal(t, tc.space, space, tc.name)
		require.Equal(t, tc.key, key, tc.name)
	}
}
