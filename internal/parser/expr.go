package parser

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/cruffinoni/gobars/internal/ast"
	"github.com/cruffinoni/gobars/internal/diagnostics"
	"github.com/cruffinoni/gobars/internal/lexer"
)

// call is the parsed body of a mustache, block opener or sub-expression.
type call struct {
	path        ast.Expression
	params      []ast.Expression
	hash        *ast.Hash
	blockParams []string
}

// exprState walks the expression tokens of one mustache body.
type exprState struct {
	file   string
	raw    string
	tokens []lexer.ExprToken
	index  int
}

func (e *exprState) peek() lexer.ExprToken { return e.tokens[e.index] }

func (e *exprState) peekAt(offset int) lexer.ExprToken {
	if e.index+offset >= len(e.tokens) {
		return e.tokens[len(e.tokens)-1]
	}
	return e.tokens[e.index+offset]
}

func (e *exprState) next() lexer.ExprToken {
	tok := e.tokens[e.index]
	if tok.Kind != lexer.ExprEOF {
		e.index++
	}
	return tok
}

func (e *exprState) fail(code string, tok lexer.ExprToken, msg string) error {
	return diagnostics.New(code, e.file, tok.Start.Line, tok.Start.Column, msg, e.raw)
}

func (e *exprState) loc(start, end ast.Position) ast.Location {
	return ast.NewLocation(e.file, start, end)
}

// parseCall parses a mustache body. allowBlockParams is set for block openers.
func parseCall(file string, tok lexer.Token, body string, bodyStart ast.Position, allowBlockParams bool) (call, error) {
	tokens, err := lexer.LexExpression(file, body, bodyStart)
	if err != nil {
		return call{}, err
	}
	e := &exprState{file: file, raw: tok.Raw, tokens: tokens}
	if e.peek().Kind == lexer.ExprEOF {
		return call{}, diagnostics.New("PARSE_EMPTY_MUSTACHE", file, tok.Start.Line, tok.Start.Column, "mustache has no expression", tok.Raw)
	}
	c, err := e.parseCallBody(lexer.ExprEOF)
	if err != nil {
		return call{}, err
	}
	if e.peek().Kind == lexer.ExprOpenBlockParams {
		open := e.next()
		if !allowBlockParams {
			return call{}, e.fail("PARSE_UNEXPECTED_BLOCK_PARAMS", open, "block params are only allowed on block openers")
		}
		for e.peek().Kind == lexer.ExprID {
			c.blockParams = append(c.blockParams, e.next().Value)
		}
		closeTok := e.next()
		if closeTok.Kind != lexer.ExprCloseBlockParams {
			return call{}, e.fail("PARSE_INVALID_BLOCK_PARAMS", closeTok, "block params must be plain identifiers")
		}
		if len(c.blockParams) == 0 {
			return call{}, e.fail("PARSE_INVALID_BLOCK_PARAMS", open, "empty block params")
		}
	}
	if rest := e.peek(); rest.Kind != lexer.ExprEOF {
		return call{}, e.fail("PARSE_UNEXPECTED_TOKEN", rest, fmt.Sprintf("unexpected %q in expression", rest.Value))
	}
	return c, nil
}

// parseCallBody parses `head param* hash?` until end or a block params opener.
func (e *exprState) parseCallBody(end lexer.ExprKind) (call, error) {
	var c call
	head, err := e.parseOperand()
	if err != nil {
		return call{}, err
	}
	c.path = head

	for {
		tok := e.peek()
		if tok.Kind == end || tok.Kind == lexer.ExprEOF || tok.Kind == lexer.ExprOpenBlockParams {
			return c, nil
		}
		if tok.Kind == lexer.ExprID && e.peekAt(1).Kind == lexer.ExprEquals {
			hash, err := e.parseHash(end)
			if err != nil {
				return call{}, err
			}
			c.hash = hash
			return c, nil
		}
		param, err := e.parseOperand()
		if err != nil {
			return call{}, err
		}
		c.params = append(c.params, param)
	}
}

func (e *exprState) parseHash(end lexer.ExprKind) (*ast.Hash, error) {
	hash := &ast.Hash{}
	for {
		tok := e.peek()
		if tok.Kind == end || tok.Kind == lexer.ExprEOF || tok.Kind == lexer.ExprOpenBlockParams {
			break
		}
		key := e.next()
		if key.Kind != lexer.ExprID || e.peek().Kind != lexer.ExprEquals {
			return nil, e.fail("PARSE_INVALID_HASH", key, "positional params cannot follow hash arguments")
		}
		e.next()
		value, err := e.parseOperand()
		if err != nil {
			return nil, err
		}
		hash.Pairs = append(hash.Pairs, &ast.HashPair{
			Loc:   e.loc(key.Start, value.Location().End),
			Key:   key.Value,
			Value: value,
		})
	}
	first, last := hash.Pairs[0], hash.Pairs[len(hash.Pairs)-1]
	hash.Loc = e.loc(first.Loc.Start, last.Loc.End)
	return hash, nil
}

// parseOperand parses one path, literal or sub-expression.
func (e *exprState) parseOperand() (ast.Expression, error) {
	tok := e.peek()
	switch tok.Kind {
	case lexer.ExprOpenSexpr:
		open := e.next()
		c, err := e.parseCallBody(lexer.ExprCloseSexpr)
		if err != nil {
			return nil, err
		}
		closeTok := e.next()
		if closeTok.Kind != lexer.ExprCloseSexpr {
			return nil, e.fail("PARSE_UNCLOSED_SEXPR", open, "unclosed sub-expression")
		}
		return &ast.SubExpression{
			Loc:    e.loc(open.Start, closeTok.End),
			Path:   c.path,
			Params: c.params,
			Hash:   c.hash,
		}, nil
	case lexer.ExprString:
		e.next()
		return &ast.StringLiteral{Loc: e.loc(tok.Start, tok.End), Value: tok.Value}, nil
	case lexer.ExprNumber:
		e.next()
		v, err := strconv.ParseFloat(tok.Value, 64)
		if err != nil {
			return nil, e.fail("PARSE_INVALID_NUMBER", tok, fmt.Sprintf("invalid number %q", tok.Value))
		}
		return &ast.NumberLiteral{Loc: e.loc(tok.Start, tok.End), Value: v, Original: tok.Value}, nil
	case lexer.ExprBoolean:
		e.next()
		return &ast.BooleanLiteral{Loc: e.loc(tok.Start, tok.End), Value: tok.Value == "true"}, nil
	case lexer.ExprNull:
		e.next()
		return &ast.NullLiteral{Loc: e.loc(tok.Start, tok.End)}, nil
	case lexer.ExprUndefined:
		e.next()
		return &ast.UndefinedLiteral{Loc: e.loc(tok.Start, tok.End)}, nil
	case lexer.ExprID, lexer.ExprData, lexer.ExprSep:
		return e.parsePath()
	case lexer.ExprEOF:
		return nil, e.fail("PARSE_UNEXPECTED_END", tok, "expression ended unexpectedly")
	default:
		return nil, e.fail("PARSE_UNEXPECTED_TOKEN", tok, fmt.Sprintf("unexpected %q in expression", tok.Value))
	}
}

// parsePath consumes adjacent id/separator tokens into a PathExpression.
func (e *exprState) parsePath() (ast.Expression, error) {
	first := e.peek()
	path := &ast.PathExpression{}
	var original strings.Builder

	if first.Kind == lexer.ExprData {
		e.next()
		path.Data = true
		original.WriteString("@")
		if e.peek().Kind != lexer.ExprID || e.peek().Spaced {
			return nil, e.fail("PARSE_INVALID_PATH", first, "`@` must be followed by a name")
		}
	}

	end := first.End
	expectID := true
	for {
		tok := e.peek()
		if tok != first && tok.Spaced {
			break
		}
		if expectID {
			if tok.Kind == lexer.ExprSep && tok.Value == "." && len(path.Parts) == 0 && !path.This && path.Depth == 0 {
				// `./name`
				e.next()
				path.This = true
				original.WriteString(".")
				end = tok.End
				expectID = false
				continue
			}
			if tok.Kind != lexer.ExprID {
				if tok.Kind == lexer.ExprSep || original.Len() == 0 {
					return nil, e.fail("PARSE_INVALID_PATH", tok, "path segment expected")
				}
				break
			}
			e.next()
			original.WriteString(tok.Value)
			end = tok.End
			switch {
			case tok.Value == "..":
				if len(path.Parts) > 0 || path.This {
					return nil, e.fail("PARSE_INVALID_PATH", tok, "`..` is only allowed at the start of a path")
				}
				path.Depth++
			case tok.Value == "." || tok.Value == "this":
				if len(path.Parts) > 0 || path.Depth > 0 || path.This || path.Data {
					return nil, e.fail("PARSE_INVALID_PATH", tok, fmt.Sprintf("invalid path: %s", original.String()))
				}
				path.This = true
			default:
				path.Parts = append(path.Parts, tok.Value)
			}
			expectID = false
			continue
		}
		if tok.Kind != lexer.ExprSep {
			break
		}
		e.next()
		original.WriteString(tok.Value)
		end = tok.End
		expectID = true
	}
	if expectID {
		return nil, e.fail("PARSE_INVALID_PATH", e.peek(), fmt.Sprintf("path %q ends with a separator", original.String()))
	}
	path.Original = original.String()
	path.Loc = e.loc(first.Start, end)
	return path, nil
}
