package dom

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"
)

func TestCreateElement(t *testing.T) {
	h := NewHelper()
	node := h.CreateElement("div", nil)
	require.Equal(t, "DIV", TagName(node))
	require.Equal(t, "<div></div>", OuterHTML(node))
}

func TestChildAtIndex(t *testing.T) {
	h := NewHelper()
	node := h.CreateElement("div", nil)
	p := h.CreateElement("p", nil)
	img := h.CreateElement("img", nil)

	for i := 0; i < 3; i++ {
		require.Nil(t, h.ChildAtIndex(node, i))
	}

	h.AppendChild(node, p)
	require.Equal(t, "P", TagName(h.ChildAtIndex(node, 0)))
	require.Nil(t, h.ChildAtIndex(node, 1))

	h.InsertBefore(node, img, p)
	require.Equal(t, "IMG", TagName(h.ChildAtIndex(node, 0)))
	require.Equal(t, "P", TagName(h.ChildAtIndex(node, 1)))
	require.Nil(t, h.ChildAtIndex(node, 2))
}

func TestChildAt(t *testing.T) {
	h := NewHelper()
	frag, err := h.ParseHTML("<ul><li>a</li><li><b>b</b></li></ul>", nil)
	require.NoError(t, err)

	n, err := h.ChildAt(frag, []int{0, 1, 0})
	require.NoError(t, err)
	require.Equal(t, "B", TagName(n))

	_, err = h.ChildAt(frag, []int{0, 5})
	require.Error(t, err)
}

func TestAppendText(t *testing.T) {
	h := NewHelper()
	node := h.CreateElement("div", nil)
	text := h.AppendText(node, "Howdy")
	require.NotNil(t, text)
	require.Equal(t, "<div>Howdy</div>", OuterHTML(node))
}

func TestAppendChildEmptiesFragments(t *testing.T) {
	h := NewHelper()
	frag := h.CreateFragment()
	h.AppendText(frag, "a")
	h.AppendText(frag, "b")
	div := h.CreateElement("div", nil)
	h.AppendChild(div, frag)
	require.Equal(t, "<div>ab</div>", OuterHTML(div))
	require.Nil(t, frag.FirstChild)
}

func TestSetAttribute(t *testing.T) {
	h := NewHelper()
	node := h.CreateElement("div", nil)
	h.SetAttribute(node, "id", "super-tag")
	require.Equal(t, `<div id="super-tag"></div>`, OuterHTML(node))
	h.SetAttribute(node, "id", nil)
	require.Equal(t, `<div id="null"></div>`, OuterHTML(node))

	input := h.CreateElement("input", nil)
	require.False(t, h.HasAttribute(input, "disabled"))
	h.SetAttribute(input, "disabled", true)
	require.True(t, h.HasAttribute(input, "disabled"))
	h.SetAttribute(input, "disabled", false)
	v, ok := h.GetAttribute(input, "disabled")
	require.True(t, ok)
	require.Equal(t, "false", v)
}

func TestSetAttributeNS(t *testing.T) {
	h := NewHelper()
	node := h.CreateElement("svg", nil)
	h.SetAttributeNS(node, XLinkNamespace, "xlink:href", "super-fun")
	require.Contains(t, OuterHTML(node), `href="super-fun"`)

	h.SetAttributeNS(node, XLinkNamespace, "href", nil)
	require.Contains(t, OuterHTML(node), `href="null"`)
	require.Len(t, node.Attr, 1)
}

func TestGetElementByID(t *testing.T) {
	h := NewHelper()
	parent := h.CreateElement("div", nil)
	child := h.CreateElement("div", nil)
	h.SetAttribute(parent, "id", "parent")
	h.SetAttribute(child, "id", "child")
	h.AppendChild(parent, child)
	h.AppendChild(h.Body(), parent)

	require.Equal(t, `<div id="child"></div>`, OuterHTML(h.GetElementByID("child", nil)))
	h.RemoveChild(h.Body(), parent)
	require.Nil(t, h.GetElementByID("child", nil))
}

func TestGetElementByIDWithDifferentRoot(t *testing.T) {
	h := NewHelper()
	doc := &html.Node{Type: html.DocumentNode}
	body := h.CreateElementNS(XHTMLNamespace, "body")
	doc.AppendChild(body)
	parent := h.CreateElement("div", nil)
	child := h.CreateElement("div", nil)
	h.SetAttribute(parent, "id", "parent")
	h.SetAttribute(child, "id", "child")
	h.AppendChild(parent, child)
	h.AppendChild(body, parent)

	require.Equal(t, `<div id="child"></div>`, OuterHTML(h.GetElementByID("child", doc)))
	require.Nil(t, h.GetElementByID("child", nil))
}

func TestSetPropertyStrict(t *testing.T) {
	h := NewHelper()
	node := h.CreateElement("div", nil)
	h.SetPropertyStrict(node, "id", "super-tag")
	require.Equal(t, `<div id="super-tag"></div>`, OuterHTML(node))

	input := h.CreateElement("input", nil)
	h.SetPropertyStrict(input, "disabled", true)
	require.True(t, h.HasAttribute(input, "disabled"))
	h.SetPropertyStrict(input, "disabled", false)
	require.False(t, h.HasAttribute(input, "disabled"))
}

func TestSetPropertyStrictNormalizesEmptyValues(t *testing.T) {
	h := NewHelper()

	input := h.CreateElement("input", nil)
	for _, v := range []any{Undefined, nil} {
		h.SetPropertyStrict(input, "value", v)
		require.Equal(t, "", h.Property(input, "value"))
		h.SetPropertyStrict(input, "type", v)
		require.Equal(t, "text", h.Property(input, "type"))
	}

	img := h.CreateElement("img", nil)
	for _, v := range []any{Undefined, nil} {
		h.SetPropertyStrict(img, "src", v)
		require.Equal(t, "", h.Property(img, "src"))
		src, _ := h.GetAttribute(img, "src")
		require.Equal(t, "", src)
	}
}

func TestRemoveAttribute(t *testing.T) {
	h := NewHelper()
	node := h.CreateElement("div", nil)
	h.SetAttribute(node, "id", "super-tag")
	require.Equal(t, `<div id="super-tag"></div>`, OuterHTML(node))
	h.RemoveAttribute(node, "id")
	require.Equal(t, `<div></div>`, OuterHTML(node))
}

func TestRemoveAttributeOfSVG(t *testing.T) {
	h := NewHelper().InNamespace(SVGNamespace)
	node := h.CreateElement("svg", nil)
	h.SetAttribute(node, "viewBox", "0 0 100 100")
	require.Equal(t, `<svg viewBox="0 0 100 100"></svg>`, OuterHTML(node))
	h.RemoveAttribute(node, "viewBox")
	require.Equal(t, `<svg></svg>`, OuterHTML(node))
}

func TestSetProperty(t *testing.T) {
	h := NewHelper()

	node := h.CreateElement("div", nil)
	h.SetProperty(node, "id", "super-tag", "")
	require.Equal(t, `<div id="super-tag"></div>`, OuterHTML(node))
	h.SetProperty(node, "id", nil, "")
	v, _ := h.GetAttribute(node, "id")
	require.NotEqual(t, "super-tag", v)

	node = h.CreateElement("div", nil)
	h.SetProperty(node, "data-fun", "whoopie", "")
	require.Equal(t, `<div data-fun="whoopie"></div>`, OuterHTML(node))
	h.SetProperty(node, "data-fun", nil, "")
	require.Equal(t, `<div></div>`, OuterHTML(node))

	input := h.CreateElement("input", nil)
	h.SetProperty(input, "disabled", true, "")
	require.Equal(t, true, h.Property(input, "disabled"))
	h.SetProperty(input, "disabled", false, "")
	require.Equal(t, false, h.Property(input, "disabled"))

	node = h.CreateElement("div", nil)
	h.SetProperty(node, "style", "color: red;", "")
	require.Equal(t, `<div style="color: red;"></div>`, OuterHTML(node))
}

func TestSetPropertyRemovesAttributeWithUndefined(t *testing.T) {
	h := NewHelper()
	node := h.CreateElement("div", nil)
	h.SetProperty(node, "data-fun", "whoopie", "")
	require.Equal(t, `<div data-fun="whoopie"></div>`, OuterHTML(node))
	h.SetProperty(node, "data-fun", Undefined, "")
	require.Equal(t, `<div></div>`, OuterHTML(node))
}

func TestSetPropertyUsesAttributesForAttributeOnlyPairs(t *testing.T) {
	h := NewHelper()
	cases := []struct {
		tag, key, value, want string
	}{
		{"button", "type", "submit", `<button type="submit"></button>`},
		{"input", "type", "x-not-supported", `<input type="x-not-supported"/>`},
	}
	for _, tc := range cases {
		node := h.CreateElement(tc.tag, nil)
		_, isProperty := normalizeProperty(node, tc.key)
		require.False(t, isProperty, "%s/%s", tc.tag, tc.key)

		h.SetProperty(node, tc.key, tc.value, "")
		require.Equal(t, tc.want, OuterHTML(node))
	}

	input := h.CreateElement("input", nil)
	h.SetProperty(input, "type", "x-not-supported", "")
	require.Equal(t, "text", h.Property(input, "type"))
}

func TestSetPropertyLiveValues(t *testing.T) {
	h := NewHelper()
	input := h.CreateElement("input", nil)
	h.SetAttribute(input, "value", "initial")
	require.Equal(t, "initial", h.Property(input, "value"))

	h.SetProperty(input, "value", "typed", "")
	require.Equal(t, "typed", h.Property(input, "value"))
	v, _ := h.GetAttribute(input, "value")
	require.Equal(t, "initial", v)

	h.SetProperty(input, "checked", true, "")
	require.Equal(t, true, h.Property(input, "checked"))
	require.False(t, h.HasAttribute(input, "checked"))

	h.SetProperty(input, "indeterminate", 1, "")
	require.Equal(t, true, h.Property(input, "indeterminate"))
}

func TestAddClasses(t *testing.T) {
	h := NewHelper()
	node := h.CreateElement("div", nil)
	class := func() string { v, _ := h.GetAttribute(node, "class"); return v }

	h.AddClasses(node, []string{"super-fun"})
	require.Equal(t, "super-fun", class())
	h.AddClasses(node, []string{"super-fun"})
	require.Equal(t, "super-fun", class())
	h.AddClasses(node, []string{"super-blast"})
	require.Equal(t, "super-fun super-blast", class())
	h.AddClasses(node, []string{"bacon", "ham"})
	require.Equal(t, "super-fun super-blast bacon ham", class())
}

func TestRemoveClasses(t *testing.T) {
	h := NewHelper()
	node := h.CreateElement("div", nil)
	class := func() string { v, _ := h.GetAttribute(node, "class"); return v }

	h.SetAttribute(node, "class", "this-class that-class")
	h.RemoveClasses(node, []string{"this-class"})
	require.Equal(t, "that-class", class())
	h.RemoveClasses(node, []string{"this-class"})
	require.Equal(t, "that-class", class())
	h.RemoveClasses(node, []string{"that-class"})
	require.Equal(t, "", class())

	h.SetAttribute(node, "class", "woop moop jeep")
	h.RemoveClasses(node, []string{"moop", "jeep"})
	require.Equal(t, "woop", class())
}

func TestClassesOnSVG(t *testing.T) {
	h := NewHelper()
	node := h.CreateElementNS(SVGNamespace, "svg")
	class := func() string { v, _ := h.GetAttribute(node, "class"); return v }

	h.AddClasses(node, []string{"super-fun"})
	h.AddClasses(node, []string{"super-fun"})
	h.AddClasses(node, []string{"super-blast"})
	require.Equal(t, "super-fun super-blast", class())

	h.RemoveClasses(node, []string{"super-fun"})
	h.RemoveClasses(node, []string{"super-blast"})
	require.Equal(t, "", class())
}

func TestCreateElementOfTrWithTableContext(t *testing.T) {
	h := NewHelper()
	table := h.CreateElement("table", nil)
	node := h.CreateElement("tr", table)
	require.Equal(t, "TR", TagName(node))
	require.Equal(t, "<tr></tr>", OuterHTML(node))
}

func TestProtocolForURL(t *testing.T) {
	h := NewHelper()
	require.Equal(t, "http:", h.ProtocolForURL("http://www.emberjs.com"))
	require.Equal(t, "javascript:", h.ProtocolForURL("   javascript:lulzhacked()"))
	require.Equal(t, "about:", h.ProtocolForURL("relative/path"))
	require.Equal(t, "javascript:", h.ProtocolForURL("java\tscript:alert(1)"))
	require.Equal(t, "javascript:", h.ProtocolForURL("java\nscript:alert(1)"))
	require.Equal(t, "javascript:", h.ProtocolForURL("javascript\t:alert(1)"))
	require.Equal(t, "javascript:", h.ProtocolForURL("\x00\x1f java\r\nscript:alert(1) \x0c"))

	u, err := url.Parse("https://example.com/app")
	require.NoError(t, err)
	h = NewHelper(WithDocumentURL(u))
	require.Equal(t, "https:", h.ProtocolForURL("/other"))
	require.Equal(t, "mailto:", h.ProtocolForURL("MAILTO:x@example.com"))
}

func TestSanitizeAttributeValue(t *testing.T) {
	h := NewHelper()
	a := h.CreateElement("a", nil)
	div := h.CreateElement("div", nil)

	require.Equal(t, "unsafe:javascript:alert(1)", h.SanitizeAttributeValue(a, "href", "javascript:alert(1)"))
	require.Equal(t, "unsafe: vbscript:x", h.SanitizeAttributeValue(a, "HREF", " vbscript:x"))
	require.Equal(t, "/ok", h.SanitizeAttributeValue(a, "href", "/ok"))
	require.Equal(t, HTML("javascript:trusted()"), h.SanitizeAttributeValue(a, "href", HTML("javascript:trusted()")))
	require.Equal(t, "javascript:x", h.SanitizeAttributeValue(div, "title", "javascript:x"))
	require.Nil(t, h.SanitizeAttributeValue(a, "href", nil))

	for _, raw := range []string{"java\tscript:alert(1)", "java\nscript:alert(1)", "javascript\t:alert(1)", "\x01vb\rscript:x"} {
		require.Equal(t, "unsafe:"+raw, h.SanitizeAttributeValue(a, "href", raw), "%q", raw)
	}
}

func TestStringifyAndTruthy(t *testing.T) {
	require.Equal(t, "null", Stringify(nil))
	require.Equal(t, "undefined", Stringify(Undefined))
	require.Equal(t, "1.5", Stringify(1.5))
	require.Equal(t, "3", Stringify(3))
	require.Equal(t, "false", Stringify(false))

	require.False(t, Truthy(nil))
	require.False(t, Truthy(Undefined))
	require.False(t, Truthy(""))
	require.False(t, Truthy(0))
	require.True(t, Truthy("x"))
	require.True(t, Truthy([]int{}))
	require.False(t, Truthy([]int(nil)))
}
