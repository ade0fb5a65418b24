package syntax

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/net/html"

	"github.com/cruffinoni/gobars/internal/ast"
	"github.com/cruffinoni/gobars/internal/diagnostics"
)

// tokState is the HTML tokenizer state carried across content chunks.
type tokState int

const (
	stateData tokState = iota
	stateTagName
	stateBeforeAttrName
	stateAttrName
	stateAfterAttrName
	stateBeforeAttrValue
	stateAttrValueQuoted
	stateAttrValueUnquoted
	stateAfterAttrValueQuoted
	stateSelfClosingStartTag
	stateEndTagName
	stateComment
)

var voidElements = map[string]struct{}{
	"area": {}, "base": {}, "br": {}, "col": {}, "command": {}, "embed": {},
	"hr": {}, "img": {}, "input": {}, "keygen": {}, "link": {}, "meta": {},
	"param": {}, "source": {}, "track": {}, "wbr": {},
}

// IsVoid reports whether tag never has children or an end tag.
func IsVoid(tag string) bool {
	_, ok := voidElements[strings.ToLower(tag)]
	return ok
}

// programBuilder tokenizes the content of one Program and assembles its
// statements. Mustaches between content chunks are routed by the tokenizer
// state at the point they appear.
type programBuilder struct {
	b     *builder
	body  []ast.Statement
	stack []*ast.ElementNode
	state tokState
	pos   ast.Position

	text      strings.Builder
	textStart ast.Position
	inText    bool

	tag      *ast.ElementNode
	tagName  strings.Builder
	tagStart ast.Position

	attrName       strings.Builder
	attrStart      ast.Position
	attrNameEnd    ast.Position
	attrHasValue   bool
	attrQuote      rune
	attrValueStart ast.Position
	parts          []ast.Node
	partText       strings.Builder
	partStart      ast.Position
	inPart         bool

	comment      strings.Builder
	commentStart ast.Position
}

func newProgramBuilder(b *builder) *programBuilder {
	return &programBuilder{b: b}
}

func (p *programBuilder) fail(code string, start, end ast.Position, msg string) error {
	return diagnostics.At(code, p.b.loc(start, end), msg, "")
}

func (p *programBuilder) appendStatement(s ast.Statement) {
	if n := len(p.stack); n > 0 {
		top := p.stack[n-1]
		top.Children = append(top.Children, s)
		return
	}
	p.body = append(p.body, s)
}

func (p *programBuilder) statement(stmt ast.Statement) error {
	switch s := stmt.(type) {
	case *ast.ContentStatement:
		start := s.Loc.Start.Advance(s.Original[:s.Lo])
		return p.feed(s.Value(), start)
	case *ast.MustacheStatement:
		return p.mustache(s)
	case *ast.BlockStatement:
		if p.state != stateData {
			return p.fail("SYNTAX_BLOCK_IN_TAG", s.OpenLoc.Start, s.OpenLoc.End,
				fmt.Sprintf("block %q cannot be used inside an element's start tag", ast.CalleeName(s.Path)))
		}
		p.flushText()
		block, err := p.b.block(s, false)
		if err != nil {
			return err
		}
		p.appendStatement(block)
		return nil
	case *ast.MustacheCommentStatement:
		switch p.state {
		case stateData:
			p.flushText()
			p.appendStatement(s)
		case stateTagName, stateBeforeAttrName, stateAfterAttrName, stateAfterAttrValueQuoted:
			// comments inside a start tag are dropped
		default:
			return p.fail("SYNTAX_COMMENT_IN_ATTRIBUTE", s.Loc.Start, s.Loc.End, "mustache comments cannot appear inside an attribute")
		}
		return nil
	default:
		return fmt.Errorf("unexpected raw statement %s", stmt.Type())
	}
}

func (p *programBuilder) mustache(m *ast.MustacheStatement) error {
	switch p.state {
	case stateData:
		p.flushText()
		p.appendStatement(m)
	case stateTagName:
		p.tag.Tag = p.tagName.String()
		p.state = stateBeforeAttrName
		p.addModifier(m)
	case stateBeforeAttrName, stateAfterAttrValueQuoted:
		p.state = stateBeforeAttrName
		p.addModifier(m)
	case stateAfterAttrName:
		p.finishAttr(p.attrNameEnd)
		p.state = stateBeforeAttrName
		p.addModifier(m)
	case stateBeforeAttrValue:
		p.attrHasValue = true
		p.attrQuote = 0
		p.attrValueStart = m.Loc.Start
		p.parts = append(p.parts, m)
		p.state = stateAttrValueUnquoted
	case stateAttrValueQuoted:
		p.flushPart()
		p.parts = append(p.parts, m)
	case stateAttrValueUnquoted:
		return p.fail("SYNTAX_MIXED_UNQUOTED_ATTR", p.attrStart, m.Loc.End,
			fmt.Sprintf("attribute %q mixes text and mustaches without quotes", p.attrName.String()))
	case stateAttrName:
		return p.fail("SYNTAX_MUSTACHE_IN_ATTR_NAME", m.Loc.Start, m.Loc.End, "mustaches cannot be used inside an attribute name")
	case stateEndTagName:
		return p.fail("SYNTAX_MUSTACHE_IN_END_TAG", m.Loc.Start, m.Loc.End, "mustaches cannot be used inside an end tag")
	case stateComment:
		return p.fail("SYNTAX_MUSTACHE_IN_COMMENT", m.Loc.Start, m.Loc.End, "mustaches cannot be used inside an HTML comment")
	default:
		return p.fail("SYNTAX_UNEXPECTED_MUSTACHE", m.Loc.Start, m.Loc.End, "mustache is not allowed here")
	}
	return nil
}

func (p *programBuilder) addModifier(m *ast.MustacheStatement) {
	p.tag.Modifiers = append(p.tag.Modifiers, &ast.ElementModifierStatement{
		Loc:    m.Loc,
		Path:   m.Path,
		Params: m.Params,
		Hash:   m.Hash,
	})
}

// feed runs the tokenizer over one content chunk starting at start.
func (p *programBuilder) feed(chunk string, start ast.Position) error {
	p.pos = start
	for i := 0; i < len(chunk); {
		n, err := p.step(chunk, i)
		if err != nil {
			return err
		}
		p.pos = p.pos.Advance(chunk[i : i+n])
		i += n
	}
	return nil
}

func isASCIILetter(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}

// step consumes input at chunk[i] and returns the number of bytes used. A
// zero return means the state changed and the same input is reprocessed.
func (p *programBuilder) step(chunk string, i int) (int, error) {
	r, size := utf8.DecodeRuneInString(chunk[i:])
	rest := chunk[i:]
	after := p.pos.Advance(rest[:size])

	switch p.state {
	case stateData:
		switch {
		case strings.HasPrefix(rest, "<!--"):
			p.flushText()
			p.commentStart = p.pos
			p.comment.Reset()
			p.state = stateComment
			return 4, nil
		case strings.HasPrefix(rest, "<!") && len(rest) > 2 && (isASCIILetter(rest[2]) || rest[2] == '['):
			end := p.pos.Advance("<!")
			if gt := strings.IndexByte(rest, '>'); gt > 0 {
				end = p.pos.Advance(rest[:gt+1])
			}
			return 0, p.fail("SYNTAX_MARKUP_DECLARATION", p.pos, end,
				"doctype and CDATA declarations are not supported in templates")
		case strings.HasPrefix(rest, "</") && len(rest) > 2 && isASCIILetter(rest[2]):
			p.flushText()
			p.tagStart = p.pos
			p.tagName.Reset()
			p.state = stateEndTagName
			return 2, nil
		case r == '<' && len(rest) > 1 && isASCIILetter(rest[1]):
			p.flushText()
			p.tagStart = p.pos
			p.tagName.Reset()
			p.tag = &ast.ElementNode{}
			p.state = stateTagName
			return 1, nil
		}
		if !p.inText {
			p.inText = true
			p.textStart = p.pos
			p.text.Reset()
		}
		p.text.WriteRune(r)
		return size, nil

	case stateComment:
		if strings.HasPrefix(rest, "-->") {
			end := p.pos.Advance("-->")
			p.appendStatement(&ast.CommentStatement{
				Loc:   p.b.loc(p.commentStart, end),
				Value: p.comment.String(),
			})
			p.state = stateData
			return 3, nil
		}
		p.comment.WriteRune(r)
		return size, nil

	case stateTagName:
		switch {
		case unicode.IsSpace(r):
			p.tag.Tag = p.tagName.String()
			p.state = stateBeforeAttrName
		case r == '/':
			p.tag.Tag = p.tagName.String()
			p.state = stateSelfClosingStartTag
		case r == '>':
			p.tag.Tag = p.tagName.String()
			p.finishStartTag(after)
		default:
			p.tagName.WriteRune(r)
		}
		return size, nil

	case stateBeforeAttrName:
		switch {
		case unicode.IsSpace(r):
		case r == '/':
			p.state = stateSelfClosingStartTag
		case r == '>':
			p.finishStartTag(after)
		default:
			p.beginAttr()
			return 0, nil
		}
		return size, nil

	case stateAttrName:
		switch {
		case unicode.IsSpace(r):
			p.attrNameEnd = p.pos
			p.state = stateAfterAttrName
		case r == '=':
			p.attrNameEnd = p.pos
			p.state = stateBeforeAttrValue
		case r == '/' || r == '>':
			p.attrNameEnd = p.pos
			p.finishAttr(p.pos)
			p.state = stateBeforeAttrName
			return 0, nil
		default:
			p.attrName.WriteRune(r)
		}
		return size, nil

	case stateAfterAttrName:
		switch {
		case unicode.IsSpace(r):
		case r == '=':
			p.state = stateBeforeAttrValue
		default:
			p.finishAttr(p.attrNameEnd)
			p.state = stateBeforeAttrName
			return 0, nil
		}
		return size, nil

	case stateBeforeAttrValue:
		switch {
		case unicode.IsSpace(r):
		case r == '"' || r == '\'':
			p.attrHasValue = true
			p.attrQuote = r
			p.attrValueStart = p.pos
			p.state = stateAttrValueQuoted
		case r == '>':
			p.attrHasValue = true
			p.attrValueStart = p.pos
			p.finishAttr(p.pos)
			p.finishStartTag(after)
		default:
			p.attrHasValue = true
			p.attrQuote = 0
			p.attrValueStart = p.pos
			p.state = stateAttrValueUnquoted
			return 0, nil
		}
		return size, nil

	case stateAttrValueQuoted:
		if r == p.attrQuote {
			p.flushPart()
			p.finishAttr(after)
			p.state = stateAfterAttrValueQuoted
			return size, nil
		}
		p.writePart(r)
		return size, nil

	case stateAttrValueUnquoted:
		switch {
		case unicode.IsSpace(r) || r == '>':
			p.flushPart()
			p.finishAttr(p.pos)
			p.state = stateBeforeAttrName
			return 0, nil
		default:
			if len(p.parts) > 0 {
				return 0, p.fail("SYNTAX_MIXED_UNQUOTED_ATTR", p.attrStart, after,
					fmt.Sprintf("attribute %q mixes text and mustaches without quotes", p.attrName.String()))
			}
			p.writePart(r)
		}
		return size, nil

	case stateAfterAttrValueQuoted:
		switch {
		case unicode.IsSpace(r):
			p.state = stateBeforeAttrName
		case r == '/':
			p.state = stateSelfClosingStartTag
		case r == '>':
			p.finishStartTag(after)
		default:
			p.state = stateBeforeAttrName
			return 0, nil
		}
		return size, nil

	case stateSelfClosingStartTag:
		if r == '>' {
			p.tag.SelfClosing = true
			p.finishStartTag(after)
			return size, nil
		}
		p.state = stateBeforeAttrName
		return 0, nil

	case stateEndTagName:
		switch {
		case r == '>':
			if err := p.finishEndTag(after); err != nil {
				return 0, err
			}
		case unicode.IsSpace(r):
		default:
			p.tagName.WriteRune(r)
		}
		return size, nil
	}
	return 0, fmt.Errorf("tokenizer in unknown state %d", p.state)
}

func (p *programBuilder) flushText() {
	if !p.inText {
		return
	}
	p.inText = false
	raw := p.text.String()
	if raw == "" {
		return
	}
	p.appendStatement(&ast.TextNode{
		Loc:   p.b.loc(p.textStart, p.pos),
		Chars: html.UnescapeString(raw),
	})
}

func (p *programBuilder) beginAttr() {
	p.attrName.Reset()
	p.attrStart = p.pos
	p.attrNameEnd = p.pos
	p.attrHasValue = false
	p.attrQuote = 0
	p.parts = nil
	p.inPart = false
	p.state = stateAttrName
}

func (p *programBuilder) writePart(r rune) {
	if !p.inPart {
		p.inPart = true
		p.partStart = p.pos
		p.partText.Reset()
	}
	p.partText.WriteRune(r)
}

func (p *programBuilder) flushPart() {
	if !p.inPart {
		return
	}
	p.inPart = false
	p.parts = append(p.parts, &ast.TextNode{
		Loc:   p.b.loc(p.partStart, p.pos),
		Chars: html.UnescapeString(p.partText.String()),
	})
}

// finishAttr attaches the attribute being built to the pending element.
func (p *programBuilder) finishAttr(end ast.Position) {
	attr := &ast.AttrNode{
		Loc:  p.b.loc(p.attrStart, end),
		Name: p.attrName.String(),
	}
	switch {
	case !p.attrHasValue:
		attr.Loc = p.b.loc(p.attrStart, p.attrNameEnd)
		attr.Value = &ast.TextNode{Loc: p.b.loc(p.attrNameEnd, p.attrNameEnd)}
	case p.attrQuote != 0:
		valueLoc := p.b.loc(p.attrValueStart, end)
		dynamic := false
		var chars strings.Builder
		for _, part := range p.parts {
			if text, ok := part.(*ast.TextNode); ok {
				chars.WriteString(text.Chars)
				continue
			}
			dynamic = true
		}
		if dynamic {
			attr.Value = &ast.ConcatStatement{Loc: valueLoc, Parts: p.parts}
		} else {
			attr.Value = &ast.TextNode{Loc: valueLoc, Chars: chars.String()}
		}
	case len(p.parts) == 0:
		attr.Value = &ast.TextNode{Loc: p.b.loc(p.attrValueStart, end)}
	default:
		attr.Value = p.parts[0]
	}
	p.tag.Attributes = append(p.tag.Attributes, attr)
	p.parts = nil
}

func (p *programBuilder) finishStartTag(end ast.Position) {
	el := p.tag
	p.tag = nil
	p.state = stateData
	el.Loc = p.b.loc(p.tagStart, end)
	p.appendStatement(el)
	if el.SelfClosing || IsVoid(el.Tag) {
		return
	}
	p.stack = append(p.stack, el)
}

func (p *programBuilder) finishEndTag(end ast.Position) error {
	p.state = stateData
	name := p.tagName.String()
	if IsVoid(name) {
		return p.fail("SYNTAX_VOID_END_TAG", p.tagStart, end, fmt.Sprintf("<%s> elements do not need end tags", name))
	}
	n := len(p.stack)
	if n == 0 {
		return p.fail("SYNTAX_UNEXPECTED_END_TAG", p.tagStart, end, fmt.Sprintf("closing tag </%s> without an open tag", name))
	}
	top := p.stack[n-1]
	if top.Tag != name {
		return p.fail("SYNTAX_MISMATCHED_END_TAG", p.tagStart, end,
			fmt.Sprintf("closing tag </%s> did not match last open tag <%s> (on line %d)", name, top.Tag, top.Loc.Start.Line))
	}
	p.stack = p.stack[:n-1]
	top.Loc = p.b.loc(top.Loc.Start, end)
	return nil
}

// finish closes the program: the tokenizer must be back in data state and
// every element opened in this program must be closed.
func (p *programBuilder) finish() error {
	switch p.state {
	case stateData:
	case stateComment:
		return p.fail("SYNTAX_UNCLOSED_COMMENT", p.commentStart, p.pos, "unclosed HTML comment")
	default:
		return p.fail("SYNTAX_UNCLOSED_TAG", p.tagStart, p.pos, "unclosed tag")
	}
	p.flushText()
	if n := len(p.stack); n > 0 {
		top := p.stack[n-1]
		return p.fail("SYNTAX_UNCLOSED_ELEMENT", top.Loc.Start, top.Loc.End, fmt.Sprintf("unclosed element <%s>", top.Tag))
	}
	return nil
}
