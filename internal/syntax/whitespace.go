package syntax

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/cruffinoni/gobars/internal/ast"
)

var (
	prevLineBreak     = regexp.MustCompile(`\r?\n\s*?$`)
	prevLineBreakRoot = regexp.MustCompile(`(^|\r?\n)\s*?$`)
	nextLineBreak     = regexp.MustCompile(`^\s*?\r?\n`)
	nextLineBreakRoot = regexp.MustCompile(`^\s*?(\r?\n|$)`)
	standaloneRight   = regexp.MustCompile(`^[ \t]*\r?\n?`)
	standaloneLeft    = regexp.MustCompile(`[ \t]+$`)
)

// whitespace applies `~` markers and standalone-line stripping to the
// content statements of a raw tree. Only Lo/Hi of content statements move;
// Original and Loc stay untouched.
type whitespace struct {
	rootSeen bool
	// left and right record contents already trimmed by a standalone pass.
	left  map[*ast.ContentStatement]bool
	right map[*ast.ContentStatement]bool
}

type stripInfo struct {
	open             bool
	close            bool
	openStandalone   bool
	closeStandalone  bool
	inlineStandalone bool
}

func stripWhitespace(root *ast.Program) {
	w := &whitespace{
		left:  map[*ast.ContentStatement]bool{},
		right: map[*ast.ContentStatement]bool{},
	}
	w.program(root)
}

func (w *whitespace) program(p *ast.Program) {
	isRoot := !w.rootSeen
	w.rootSeen = true
	body := p.Body
	for i, current := range body {
		strip, ok := w.statement(current)
		if !ok {
			continue
		}
		prevWS := isPrevWhitespace(body, i, isRoot)
		nextWS := isNextWhitespace(body, i, isRoot)
		openStandalone := strip.openStandalone && prevWS
		closeStandalone := strip.closeStandalone && nextWS
		inlineStandalone := strip.inlineStandalone && prevWS && nextWS

		if strip.close {
			w.omitRight(body, i, true)
		}
		if strip.open {
			w.omitLeft(body, i, true)
		}
		if inlineStandalone {
			w.omitRight(body, i, false)
			w.omitLeft(body, i, false)
		}
		if block, isBlock := current.(*ast.BlockStatement); isBlock {
			primary, _ := blockBodies(block)
			last := lastInverse(block)
			if openStandalone {
				w.omitRight(primary.Body, -1, false)
				w.omitLeft(body, i, false)
			}
			if closeStandalone {
				w.omitRight(body, i, false)
				w.omitLeft(last.Body, len(last.Body), false)
			}
		}
	}
}

func (w *whitespace) statement(s ast.Statement) (stripInfo, bool) {
	switch t := s.(type) {
	case *ast.MustacheStatement:
		return stripInfo{open: t.Strip.Open, close: t.Strip.Close}, true
	case *ast.MustacheCommentStatement:
		return stripInfo{open: t.Strip.Open, close: t.Strip.Close, inlineStandalone: true}, true
	case *ast.BlockStatement:
		return w.block(t), true
	}
	return stripInfo{}, false
}

func (w *whitespace) block(b *ast.BlockStatement) stripInfo {
	w.program(b.Program)
	if b.Inverse != nil {
		w.program(b.Inverse)
	}

	primary, inverse := blockBodies(b)
	firstInverse := inverse
	if inverse != nil && inverse.Chained {
		firstInverse = inverse.Body[0].(*ast.BlockStatement).Program
	}
	closeCandidate := primary
	if firstInverse != nil {
		closeCandidate = firstInverse
	}

	strip := stripInfo{
		open:            b.OpenStrip.Open,
		close:           b.CloseStrip.Close,
		openStandalone:  isNextWhitespace(primary.Body, -1, false),
		closeStandalone: isPrevWhitespace(closeCandidate.Body, len(closeCandidate.Body), false),
	}

	if b.OpenStrip.Close {
		w.omitRight(primary.Body, -1, true)
	}
	if inverse != nil {
		last := lastInverse(b)
		if b.InverseStrip.Open {
			w.omitLeft(primary.Body, len(primary.Body), true)
		}
		if b.InverseStrip.Close {
			w.omitRight(firstInverse.Body, -1, true)
		}
		if b.CloseStrip.Open {
			w.omitLeft(last.Body, len(last.Body), true)
		}
		if isPrevWhitespace(primary.Body, len(primary.Body), false) && isNextWhitespace(firstInverse.Body, -1, false) {
			w.omitLeft(primary.Body, len(primary.Body), false)
			w.omitRight(firstInverse.Body, -1, false)
		}
	} else if b.CloseStrip.Open {
		w.omitLeft(primary.Body, len(primary.Body), true)
	}
	return strip
}

// blockBodies returns the body rendered when the block is truthy and the
// else body, treating `{{^x}}` sections as a lone body.
func blockBodies(b *ast.BlockStatement) (primary, inverse *ast.Program) {
	if isInverseSection(b) {
		return b.Inverse, nil
	}
	return b.Program, b.Inverse
}

// lastInverse follows an `{{else if}}` chain to the body closed by `{{/…}}`.
func lastInverse(b *ast.BlockStatement) *ast.Program {
	primary, inverse := blockBodies(b)
	if inverse == nil {
		return primary
	}
	for inverse.Chained {
		chained := inverse.Body[len(inverse.Body)-1].(*ast.BlockStatement)
		if chained.Inverse == nil {
			return chained.Program
		}
		inverse = chained.Inverse
	}
	return inverse
}

// isInverseSection reports whether b came from `{{^name}}…{{/name}}`.
func isInverseSection(b *ast.BlockStatement) bool {
	return b.Inverse != nil && len(b.Program.Body) == 0 && b.ElseLoc.IsEmpty() && b.ElseLoc.Start == b.OpenLoc.End
}

func isPrevWhitespace(body []ast.Statement, i int, isRoot bool) bool {
	if i <= 0 {
		return isRoot
	}
	prev, ok := body[i-1].(*ast.ContentStatement)
	if !ok {
		return false
	}
	if i >= 2 || !isRoot {
		return prevLineBreak.MatchString(prev.Original)
	}
	return prevLineBreakRoot.MatchString(prev.Original)
}

func isNextWhitespace(body []ast.Statement, i int, isRoot bool) bool {
	if i+1 >= len(body) {
		return isRoot
	}
	next, ok := body[i+1].(*ast.ContentStatement)
	if !ok {
		return false
	}
	if i+2 < len(body) || !isRoot {
		return nextLineBreak.MatchString(next.Original)
	}
	return nextLineBreakRoot.MatchString(next.Original)
}

// omitRight trims the start of the content following body[i].
func (w *whitespace) omitRight(body []ast.Statement, i int, multiple bool) {
	if i+1 >= len(body) {
		return
	}
	current, ok := body[i+1].(*ast.ContentStatement)
	if !ok || (!multiple && w.right[current]) {
		return
	}
	value := current.Value()
	var trimmed string
	if multiple {
		trimmed = strings.TrimLeftFunc(value, unicode.IsSpace)
	} else {
		trimmed = value[len(standaloneRight.FindString(value)):]
	}
	current.Lo += len(value) - len(trimmed)
	w.right[current] = len(trimmed) != len(value)
}

// omitLeft trims the end of the content preceding body[i].
func (w *whitespace) omitLeft(body []ast.Statement, i int, multiple bool) {
	if i-1 < 0 || i-1 >= len(body) {
		return
	}
	current, ok := body[i-1].(*ast.ContentStatement)
	if !ok || (!multiple && w.left[current]) {
		return
	}
	value := current.Value()
	var trimmed string
	if multiple {
		trimmed = strings.TrimRightFunc(value, unicode.IsSpace)
	} else {
		trimmed = standaloneLeft.ReplaceAllString(value, "")
	}
	current.Hi -= len(value) - len(trimmed)
	w.left[current] = len(trimmed) != len(value)
}
