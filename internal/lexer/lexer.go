package lexer

import (
	"strings"
	"unicode"

	"github.com/cruffinoni/gobars/internal/ast"
	"github.com/cruffinoni/gobars/internal/diagnostics"
)

// TokenKind describes the syntactic category emitted by the lexer.
type TokenKind string

const (
	TokenContent   TokenKind = "content"
	TokenOpen      TokenKind = "open"
	TokenUnescaped TokenKind = "unescaped"
	TokenBlock     TokenKind = "block"
	TokenInverse   TokenKind = "inverse"
	TokenElse      TokenKind = "else"
	TokenClose     TokenKind = "close"
	TokenComment   TokenKind = "comment"
	TokenPartial   TokenKind = "partial"
	TokenDecorator TokenKind = "decorator"
	TokenRaw       TokenKind = "raw"
)

// Token represents one lexical unit with source coordinates. For mustache
// tokens Body is the text between the sigil and the closing delimiter, with
// whitespace control markers removed.
type Token struct {
	Kind      TokenKind
	Start     ast.Position
	End       ast.Position
	Offset    int
	EndOffset int
	Raw       string
	Body      string
	BodyStart ast.Position
	Strip     ast.StripFlags
}

// scanner performs streaming lexical analysis over one template source string.
type scanner struct {
	src    string
	file   string
	index  int
	line   int
	column int
}

func (s *scanner) pos() ast.Position {
	return ast.Position{Line: s.line, Column: s.column}
}

// hasPrefix reports whether remaining source starts with prefix.
func (s *scanner) hasPrefix(prefix string) bool {
	return strings.HasPrefix(s.src[s.index:], prefix)
}

// eof reports whether the scanner has consumed all input.
func (s *scanner) eof() bool {
	return s.index >= len(s.src)
}

// advance moves the scanner n bytes forward, keeping line/column counters.
func (s *scanner) advance(n int) {
	end := s.index + n
	if end > len(s.src) {
		end = len(s.src)
	}
	for _, r := range s.src[s.index:end] {
		if r == '\n' {
			s.line++
			s.column = 0
		} else {
			s.column++
		}
	}
	s.index = end
}

// consumeContent consumes literal text until the next `{{`.
func (s *scanner) consumeContent() Token {
	start, startOffset := s.pos(), s.index
	idx := strings.Index(s.src[s.index:], "{{")
	if idx < 0 {
		idx = len(s.src) - s.index
	}
	s.advance(idx)
	text := s.src[startOffset:s.index]
	return Token{
		Kind:      TokenContent,
		Start:     start,
		End:       s.pos(),
		Offset:    startOffset,
		EndOffset: s.index,
		Raw:       text,
		Body:      text,
		BodyStart: start,
	}
}

// consumeComment consumes `{{! }}` and `{{!-- --}}` comments.
func (s *scanner) consumeComment(tok Token) (Token, error) {
	long := s.hasPrefix("!--")
	s.advance(1)
	if long {
		s.advance(2)
	}
	tok.BodyStart = s.pos()
	bodyStart := s.index

	for !s.eof() {
		if !long && (s.hasPrefix("}}") || s.hasPrefix("~}}")) {
			break
		}
		if long && s.hasPrefix("--") {
			rest := s.src[s.index+2:]
			if strings.HasPrefix(rest, "}}") || strings.HasPrefix(rest, "~}}") {
				break
			}
		}
		s.advance(1)
	}
	if s.eof() {
		return Token{}, diagnostics.New("LEX_UNCLOSED_COMMENT", s.file, tok.Start.Line, tok.Start.Column, "unclosed comment", "")
	}
	tok.Body = s.src[bodyStart:s.index]
	if long {
		s.advance(2)
	}
	if s.hasPrefix("~") {
		tok.Strip.Close = true
		s.advance(1)
	}
	s.advance(2)
	return s.finish(tok), nil
}

// consumeMustache consumes one `{{…}}` construct including its sigil.
func (s *scanner) consumeMustache() (Token, error) {
	tok := Token{Kind: TokenOpen, Start: s.pos(), Offset: s.index}

	if s.hasPrefix("{{{{") {
		return Token{}, diagnostics.New("LEX_RAW_BLOCK", s.file, s.line, s.column, "raw blocks are not supported", "")
	}
	triple := s.hasPrefix("{{{")
	if triple {
		s.advance(3)
		tok.Kind = TokenUnescaped
	} else {
		s.advance(2)
	}
	if s.hasPrefix("~") {
		tok.Strip.Open = true
		s.advance(1)
	}

	if !triple && !s.eof() {
		switch s.src[s.index] {
		case '!':
			tok.Kind = TokenComment
			return s.consumeComment(tok)
		case '&':
			tok.Kind = TokenUnescaped
			s.advance(1)
		case '#':
			tok.Kind = TokenBlock
			s.advance(1)
			if s.hasPrefix(">") || s.hasPrefix("*") {
				tok.Kind = TokenDecorator
			}
		case '^':
			tok.Kind = TokenInverse
			s.advance(1)
		case '/':
			tok.Kind = TokenClose
			s.advance(1)
		case '>':
			tok.Kind = TokenPartial
			s.advance(1)
		case '*':
			tok.Kind = TokenDecorator
			s.advance(1)
		}
	}

	tok.BodyStart = s.pos()
	bodyStart := s.index
	closer := "}}"
	if triple {
		closer = "}}}"
	}

	inQuote := byte(0)
	escaped := false
	for !s.eof() {
		ch := s.src[s.index]
		if inQuote != 0 {
			s.advance(1)
			if escaped {
				escaped = false
				continue
			}
			if ch == '\\' {
				escaped = true
				continue
			}
			if ch == inQuote {
				inQuote = 0
			}
			continue
		}
		if ch == '"' || ch == '\'' {
			inQuote = ch
			s.advance(1)
			continue
		}
		if s.hasPrefix("~" + closer) {
			tok.Body = s.src[bodyStart:s.index]
			tok.Strip.Close = true
			s.advance(1 + len(closer))
			return s.classify(s.finish(tok)), nil
		}
		if s.hasPrefix(closer) {
			tok.Body = s.src[bodyStart:s.index]
			s.advance(len(closer))
			return s.classify(s.finish(tok)), nil
		}
		s.advance(1)
	}

	return Token{}, diagnostics.New("LEX_UNCLOSED_MUSTACHE", s.file, tok.Start.Line, tok.Start.Column, "unclosed mustache", s.src[tok.Offset:])
}

func (s *scanner) finish(tok Token) Token {
	tok.End = s.pos()
	tok.EndOffset = s.index
	tok.Raw = s.src[tok.Offset:s.index]
	return tok
}

// classify turns `{{else}}`, `{{else if x}}` and `{{^}}` into else tokens.
func (s *scanner) classify(tok Token) Token {
	switch tok.Kind {
	case TokenInverse:
		if strings.TrimSpace(tok.Body) == "" {
			tok.Kind = TokenElse
		}
	case TokenOpen:
		trimmed := strings.TrimLeftFunc(tok.Body, unicode.IsSpace)
		if trimmed == "else" || (strings.HasPrefix(trimmed, "else") && unicode.IsSpace(rune(trimmed[4]))) {
			lead := len(tok.Body) - len(trimmed) + len("else")
			tok.Kind = TokenElse
			tok.BodyStart = tok.BodyStart.Advance(tok.Body[:lead])
			tok.Body = tok.Body[lead:]
		}
	}
	return tok
}

// Lex tokenizes template source into content and mustache tokens.
func Lex(file string, src string) ([]Token, error) {
	s := &scanner{
		src:  src,
		file: file,
		line: 1,
	}
	var tokens []Token

	for !s.eof() {
		if s.hasPrefix("{{") {
			tok, err := s.consumeMustache()
			if err != nil {
				return nil, err
			}
			tokens = append(tokens, tok)
			continue
		}
		tok := s.consumeContent()
		if tok.Raw != "" {
			tokens = append(tokens, tok)
		}
	}

	return tokens, nil
}
