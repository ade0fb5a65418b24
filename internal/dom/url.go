package dom

import (
	"net/url"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// ProtocolForURL returns the scheme of raw with its trailing colon, as in
// "http:". Strings that do not parse as absolute URLs inherit the scheme of
// the helper's document URL.
func (h *Helper) ProtocolForURL(raw string) string {
	if u, err := url.Parse(preprocessURL(raw)); err == nil && u.Scheme != "" {
		return strings.ToLower(u.Scheme) + ":"
	}
	if h.docURL == nil || h.docURL.Scheme == "" {
		return ":"
	}
	return strings.ToLower(h.docURL.Scheme) + ":"
}

// preprocessURL applies the browser's URL input cleanup: C0 controls and
// spaces are trimmed from both ends, then tab, LF and CR are removed
// everywhere, so "java\tscript:" reads as "javascript:".
func preprocessURL(raw string) string {
	trimmed := strings.TrimFunc(raw, func(r rune) bool { return r <= ' ' })
	return strings.Map(func(r rune) rune {
		switch r {
		case '\t', '\n', '\r':
			return -1
		}
		return r
	}, trimmed)
}

var badProtocols = map[string]bool{
	"javascript:": true,
	"vbscript:":   true,
}

// urlAttributes lists the attributes that navigate or load, per tag.
var urlAttributes = map[atom.Atom]map[string]bool{
	atom.A:      {"href": true},
	atom.Area:   {"href": true},
	atom.Base:   {"href": true},
	atom.Link:   {"href": true},
	atom.Img:    {"src": true},
	atom.Iframe: {"src": true},
	atom.Embed:  {"src": true},
	atom.Source: {"src": true},
	atom.Form:   {"action": true},
	atom.Body:   {"background": true},
	atom.Table:  {"background": true},
	atom.Td:     {"background": true},
	atom.Th:     {"background": true},
}

// SanitizeAttributeValue prefixes "unsafe:" to script URLs assigned to URL
// attributes. HTML values are trusted and returned unchanged.
func (h *Helper) SanitizeAttributeValue(el *html.Node, name string, value any) any {
	if _, trusted := value.(HTML); trusted || isRemoval(value) {
		return value
	}
	if el == nil || el.Namespace != "" || !urlAttributes[el.DataAtom][strings.ToLower(name)] {
		return value
	}
	s := Stringify(value)
	if badProtocols[h.ProtocolForURL(s)] {
		return "unsafe:" + s
	}
	return value
}
