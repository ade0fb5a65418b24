package parser

import (
	"fmt"
	"strings"

	"github.com/cruffinoni/gobars/internal/ast"
	"github.com/cruffinoni/gobars/internal/diagnostics"
	"github.com/cruffinoni/gobars/internal/lexer"
)

// state stores parser progress while consuming lexer tokens.
type state struct {
	file   string
	tokens []lexer.Token
	index  int
}

// stopper decides which token ends the current statement list.
type stopper func(lexer.Token) bool

func stopAtElseOrClose(tok lexer.Token) bool {
	return tok.Kind == lexer.TokenElse || tok.Kind == lexer.TokenClose
}

func (s *state) tokenLoc(tok lexer.Token) ast.Location {
	return ast.NewLocation(s.file, tok.Start, tok.End)
}

func (s *state) fail(code string, tok lexer.Token, msg string) error {
	return diagnostics.At(code, s.tokenLoc(tok), msg, tok.Raw)
}

// Parse converts lexer tokens into the raw template tree. Content is kept as
// ContentStatement values; Program and Block spans are left for the syntax
// builder, which knows the full source.
func Parse(file string, tokens []lexer.Token) (*ast.Program, error) {
	s := &state{
		file:   file,
		tokens: tokens,
	}

	body, stop, err := s.parseStatements(func(lexer.Token) bool { return false })
	if err != nil {
		return nil, err
	}
	if stop != nil {
		return nil, s.fail("PARSE_UNEXPECTED_TOKEN", *stop, fmt.Sprintf("unexpected %s", stop.Raw))
	}
	return &ast.Program{Body: body}, nil
}

// parseStatements parses statements until EOF or until a stopper token is
// reached. The stopper token is consumed and returned.
func (s *state) parseStatements(stop stopper) ([]ast.Statement, *lexer.Token, error) {
	var body []ast.Statement
	for s.index < len(s.tokens) {
		tok := s.tokens[s.index]
		s.index++

		if stop(tok) {
			return body, &tok, nil
		}

		switch tok.Kind {
		case lexer.TokenContent:
			body = append(body, &ast.ContentStatement{
				Loc:      s.tokenLoc(tok),
				Original: tok.Raw,
				Lo:       0,
				Hi:       len(tok.Raw),
			})

		case lexer.TokenComment:
			body = append(body, &ast.MustacheCommentStatement{
				Loc:   s.tokenLoc(tok),
				Value: tok.Body,
				Strip: tok.Strip,
			})

		case lexer.TokenOpen, lexer.TokenUnescaped:
			c, err := parseCall(s.file, tok, tok.Body, tok.BodyStart, false)
			if err != nil {
				return nil, nil, err
			}
			body = append(body, &ast.MustacheStatement{
				Loc:     s.tokenLoc(tok),
				Path:    c.path,
				Params:  c.params,
				Hash:    c.hash,
				Escaped: tok.Kind == lexer.TokenOpen,
				Strip:   tok.Strip,
			})

		case lexer.TokenBlock, lexer.TokenInverse:
			block, closeTok, err := s.parseBlock(tok)
			if err != nil {
				return nil, nil, err
			}
			if err := s.checkCloseName(block, closeTok); err != nil {
				return nil, nil, err
			}
			body = append(body, block)

		case lexer.TokenElse:
			return nil, nil, s.fail("PARSE_UNEXPECTED_ELSE", tok, "{{else}} outside of a block")

		case lexer.TokenClose:
			return nil, nil, s.fail("PARSE_UNEXPECTED_CLOSE", tok, fmt.Sprintf("unexpected closing %s", tok.Raw))

		case lexer.TokenPartial:
			return nil, nil, s.fail("PARSE_PARTIAL_UNSUPPORTED", tok, "partials are not supported")

		case lexer.TokenDecorator:
			return nil, nil, s.fail("PARSE_DECORATOR_UNSUPPORTED", tok, "decorators are not supported")

		default:
			return nil, nil, s.fail("PARSE_UNEXPECTED_TOKEN", tok, fmt.Sprintf("unexpected %s", tok.Raw))
		}
	}
	return body, nil, nil
}

// parseBlock parses a block opened by open (a `{{#`, `{{^` or chained
// `{{else if}}` token) up to and including its close. The returned token is
// the shared `{{/…}}` close.
func (s *state) parseBlock(open lexer.Token) (*ast.BlockStatement, lexer.Token, error) {
	c, err := parseCall(s.file, open, open.Body, open.BodyStart, true)
	if err != nil {
		return nil, lexer.Token{}, err
	}
	block := &ast.BlockStatement{
		Path:      c.path,
		Params:    c.params,
		Hash:      c.hash,
		OpenLoc:   s.tokenLoc(open),
		OpenStrip: open.Strip,
	}

	primary, stop, err := s.parseStatements(stopAtElseOrClose)
	if err != nil {
		return nil, lexer.Token{}, err
	}
	if stop == nil {
		return nil, lexer.Token{}, s.fail("PARSE_UNCLOSED_BLOCK", open, fmt.Sprintf("block %q is never closed", ast.CalleeName(c.path)))
	}
	block.Program = &ast.Program{Body: primary, BlockParams: c.blockParams}

	if open.Kind == lexer.TokenInverse {
		if stop.Kind == lexer.TokenElse {
			return nil, lexer.Token{}, s.fail("PARSE_UNEXPECTED_ELSE", *stop, "{{else}} is not allowed inside an inverse section")
		}
		// `{{^x}}body{{/x}}`: the body is the inverse, the program is empty.
		at := open.End
		block.Inverse = block.Program
		block.Program = &ast.Program{BlockParams: c.blockParams}
		block.ElseLoc = ast.NewLocation(s.file, at, at)
		return s.closeBlock(block, *stop), *stop, nil
	}

	if stop.Kind == lexer.TokenClose {
		return s.closeBlock(block, *stop), *stop, nil
	}

	elseTok := *stop
	block.ElseLoc = s.tokenLoc(elseTok)
	block.InverseStrip = elseTok.Strip

	if strings.TrimSpace(elseTok.Body) != "" {
		chained, closeTok, err := s.parseBlock(elseTok)
		if err != nil {
			return nil, lexer.Token{}, err
		}
		block.Inverse = &ast.Program{Body: []ast.Statement{chained}, Chained: true}
		return s.closeBlock(block, closeTok), closeTok, nil
	}

	inverse, stop, err := s.parseStatements(stopAtElseOrClose)
	if err != nil {
		return nil, lexer.Token{}, err
	}
	if stop == nil {
		return nil, lexer.Token{}, s.fail("PARSE_UNCLOSED_BLOCK", open, fmt.Sprintf("block %q is never closed", ast.CalleeName(c.path)))
	}
	if stop.Kind == lexer.TokenElse {
		return nil, lexer.Token{}, s.fail("PARSE_UNEXPECTED_ELSE", *stop, "a block can only have one {{else}}")
	}
	block.Inverse = &ast.Program{Body: inverse}
	return s.closeBlock(block, *stop), *stop, nil
}

func (s *state) closeBlock(block *ast.BlockStatement, closeTok lexer.Token) *ast.BlockStatement {
	block.CloseLoc = s.tokenLoc(closeTok)
	block.CloseStrip = closeTok.Strip
	return block
}

// checkCloseName verifies `{{/name}}` against the outermost opener.
func (s *state) checkCloseName(block *ast.BlockStatement, closeTok lexer.Token) error {
	want := ast.CalleeName(block.Path)
	got := strings.TrimSpace(closeTok.Body)
	if want == "" || got != want {
		return diagnostics.At(
			"PARSE_MISMATCHED_CLOSE",
			s.tokenLoc(closeTok),
			fmt.Sprintf("%s doesn't match %s", want, got),
			closeTok.Raw,
		)
	}
	return nil
}
