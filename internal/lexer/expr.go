package lexer

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/cruffinoni/gobars/internal/ast"
	"github.com/cruffinoni/gobars/internal/diagnostics"
)

// ExprKind is the category of a token inside a mustache body.
type ExprKind string

const (
	ExprID               ExprKind = "id"
	ExprSep              ExprKind = "sep"
	ExprData             ExprKind = "data"
	ExprString           ExprKind = "string"
	ExprNumber           ExprKind = "number"
	ExprBoolean          ExprKind = "boolean"
	ExprNull             ExprKind = "null"
	ExprUndefined        ExprKind = "undefined"
	ExprOpenSexpr        ExprKind = "("
	ExprCloseSexpr       ExprKind = ")"
	ExprEquals           ExprKind = "="
	ExprOpenBlockParams  ExprKind = "as |"
	ExprCloseBlockParams ExprKind = "|"
	ExprEOF              ExprKind = "eof"
)

// ExprToken is one token of a mustache body.
type ExprToken struct {
	Kind  ExprKind
	Value string
	Start ast.Position
	End   ast.Position
	// Spaced reports whether whitespace preceded the token.
	Spaced bool
}

// idTerminators are the characters that end a Handlebars identifier.
const idTerminators = "!\"#%&'()*+,./;<=>@[\\]^`{|}~"

type exprScanner struct {
	src    string
	file   string
	index  int
	pos    ast.Position
	params bool
}

func (s *exprScanner) eof() bool { return s.index >= len(s.src) }

func (s *exprScanner) peekRune() rune {
	r, _ := utf8.DecodeRuneInString(s.src[s.index:])
	return r
}

func (s *exprScanner) advance(n int) {
	s.pos = s.pos.Advance(s.src[s.index : s.index+n])
	s.index += n
}

func (s *exprScanner) fail(code, msg string) error {
	return diagnostics.New(code, s.file, s.pos.Line, s.pos.Column, msg, s.src)
}

func isIDRune(r rune) bool {
	return !unicode.IsSpace(r) && !strings.ContainsRune(idTerminators, r)
}

func (s *exprScanner) scanID() string {
	start := s.index
	for !s.eof() {
		r := s.peekRune()
		if !isIDRune(r) {
			break
		}
		s.advance(utf8.RuneLen(r))
	}
	return s.src[start:s.index]
}

func (s *exprScanner) scanString(quote byte) (string, error) {
	s.advance(1)
	var b strings.Builder
	for !s.eof() {
		ch := s.src[s.index]
		if ch == '\\' && s.index+1 < len(s.src) && s.src[s.index+1] == quote {
			b.WriteByte(quote)
			s.advance(2)
			continue
		}
		if ch == quote {
			s.advance(1)
			return b.String(), nil
		}
		r := s.peekRune()
		b.WriteRune(r)
		s.advance(utf8.RuneLen(r))
	}
	return "", s.fail("LEX_UNCLOSED_STRING", "unclosed string literal")
}

// numberAt returns the length of a number literal at the cursor, or 0.
func (s *exprScanner) numberAt() int {
	i := s.index
	if i < len(s.src) && s.src[i] == '-' {
		i++
	}
	digits := i
	for i < len(s.src) && s.src[i] >= '0' && s.src[i] <= '9' {
		i++
	}
	if i == digits {
		return 0
	}
	if i+1 < len(s.src) && s.src[i] == '.' && s.src[i+1] >= '0' && s.src[i+1] <= '9' {
		i++
		for i < len(s.src) && s.src[i] >= '0' && s.src[i] <= '9' {
			i++
		}
	}
	if i < len(s.src) {
		r, _ := utf8.DecodeRuneInString(s.src[i:])
		if !unicode.IsSpace(r) && r != ')' && r != '|' && r != '}' && r != '~' {
			return 0
		}
	}
	return i - s.index
}

// LexExpression tokenizes the body of a mustache. start is the position of
// the first byte of body in the template source.
func LexExpression(file string, body string, start ast.Position) ([]ExprToken, error) {
	s := &exprScanner{src: body, file: file, pos: start}
	var out []ExprToken
	spaced := false

	emit := func(kind ExprKind, value string, from ast.Position) {
		out = append(out, ExprToken{Kind: kind, Value: value, Start: from, End: s.pos, Spaced: spaced})
		spaced = false
	}

	for !s.eof() {
		r := s.peekRune()
		if unicode.IsSpace(r) {
			s.advance(utf8.RuneLen(r))
			spaced = true
			continue
		}
		from := s.pos
		ch := s.src[s.index]
		switch {
		case ch == '(':
			s.advance(1)
			emit(ExprOpenSexpr, "(", from)
		case ch == ')':
			s.advance(1)
			emit(ExprCloseSexpr, ")", from)
		case ch == '=':
			s.advance(1)
			emit(ExprEquals, "=", from)
		case ch == '|' && s.params:
			s.advance(1)
			s.params = false
			emit(ExprCloseBlockParams, "|", from)
		case ch == '@':
			s.advance(1)
			emit(ExprData, "@", from)
		case ch == '"' || ch == '\'':
			v, err := s.scanString(ch)
			if err != nil {
				return nil, err
			}
			emit(ExprString, v, from)
		case ch == '[':
			end := strings.IndexByte(s.src[s.index:], ']')
			if end < 0 {
				return nil, s.fail("LEX_UNCLOSED_SEGMENT", "unclosed [literal] path segment")
			}
			v := s.src[s.index+1 : s.index+end]
			s.advance(end + 1)
			emit(ExprID, v, from)
		case strings.HasPrefix(s.src[s.index:], ".."):
			s.advance(2)
			emit(ExprID, "..", from)
		case ch == '.' || ch == '/':
			// A lone `.` followed by a terminator is the `this` shorthand.
			next := byte(0)
			if s.index+1 < len(s.src) {
				next = s.src[s.index+1]
			}
			s.advance(1)
			if ch == '.' && (next == 0 || next == ' ' || next == '}' || next == ')' || next == '\n' || next == '\t' || next == '|' || next == '~') && (len(out) == 0 || out[len(out)-1].Kind != ExprID || spaced) {
				emit(ExprID, ".", from)
				continue
			}
			emit(ExprSep, string(ch), from)
		default:
			if n := s.numberAt(); n > 0 {
				v := s.src[s.index : s.index+n]
				s.advance(n)
				emit(ExprNumber, v, from)
				continue
			}
			if !isIDRune(r) {
				return nil, s.fail("LEX_INVALID_CHARACTER", fmt.Sprintf("unexpected character %q in expression", r))
			}
			id := s.scanID()
			if id == "as" && !s.params {
				rest := strings.TrimLeftFunc(s.src[s.index:], unicode.IsSpace)
				if strings.HasPrefix(rest, "|") {
					s.advance(len(s.src[s.index:]) - len(rest) + 1)
					s.params = true
					emit(ExprOpenBlockParams, "as |", from)
					continue
				}
			}
			kind := ExprID
			prevSep := len(out) > 0 && !spaced && (out[len(out)-1].Kind == ExprSep || out[len(out)-1].Kind == ExprData)
			if !prevSep {
				switch id {
				case "true", "false":
					kind = ExprBoolean
				case "null":
					kind = ExprNull
				case "undefined":
					kind = ExprUndefined
				}
			}
			emit(kind, id, from)
		}
	}
	if s.params {
		return nil, s.fail("LEX_UNCLOSED_BLOCK_PARAMS", "unclosed block params, expected `|`")
	}
	out = append(out, ExprToken{Kind: ExprEOF, Start: s.pos, End: s.pos})
	return out, nil
}
