package syntax

import (
	"fmt"

	"github.com/cruffinoni/gobars/internal/ast"
	"github.com/cruffinoni/gobars/internal/diagnostics"
)

// validateSpans checks that every node ends after it starts and lies inside
// its parent. A violation means the front-end produced bad positions; it is
// reported, never clamped.
func validateSpans(root *ast.Program) error {
	return checkSpan(root, nil)
}

func checkSpan(n ast.Node, parent ast.Node) error {
	loc := n.Location()
	if loc.Start.Line < 1 || loc.Start.Column < 0 {
		return diagnostics.At("SYNTAX_SPAN_INVALID", loc,
			fmt.Sprintf("%s has an invalid start position %s", n.Type(), loc.Start), "")
	}
	if loc.End.Before(loc.Start) {
		return diagnostics.At("SYNTAX_SPAN_INVALID", loc,
			fmt.Sprintf("%s ends at %s before it starts at %s", n.Type(), loc.End, loc.Start), "")
	}
	if parent != nil && !parent.Location().Contains(loc) {
		return diagnostics.At("SYNTAX_SPAN_INVALID", loc,
			fmt.Sprintf("%s at %s lies outside its parent %s at %s", n.Type(), loc, parent.Type(), parent.Location()), "")
	}
	for _, child := range ast.Children(n) {
		if err := checkSpan(child, n); err != nil {
			return err
		}
	}
	return nil
}
