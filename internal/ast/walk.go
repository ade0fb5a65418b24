package ast

// Children returns the direct child nodes of n in source order.
func Children(n Node) []Node {
	var out []Node
	switch t := n.(type) {
	case *Program:
		for _, s := range t.Body {
			out = append(out, s)
		}
	case *MustacheStatement:
		out = appendCall(out, t.Path, t.Params, t.Hash)
	case *BlockStatement:
		out = appendCall(out, t.Path, t.Params, t.Hash)
		if t.Program != nil {
			out = append(out, t.Program)
		}
		if t.Inverse != nil {
			out = append(out, t.Inverse)
		}
	case *ElementModifierStatement:
		out = appendCall(out, t.Path, t.Params, t.Hash)
	case *SubExpression:
		out = appendCall(out, t.Path, t.Params, t.Hash)
	case *ElementNode:
		for _, a := range t.Attributes {
			out = append(out, a)
		}
		for _, m := range t.Modifiers {
			out = append(out, m)
		}
		for _, c := range t.Children {
			out = append(out, c)
		}
	case *AttrNode:
		if t.Value != nil {
			out = append(out, t.Value)
		}
	case *ConcatStatement:
		out = append(out, t.Parts...)
	case *Hash:
		for _, p := range t.Pairs {
			out = append(out, p)
		}
	case *HashPair:
		if t.Value != nil {
			out = append(out, t.Value)
		}
	}
	return out
}

func appendCall(out []Node, path Expression, params []Expression, hash *Hash) []Node {
	if path != nil {
		out = append(out, path)
	}
	for _, p := range params {
		out = append(out, p)
	}
	if hash != nil {
		out = append(out, hash)
	}
	return out
}

// Walk visits n and its descendants depth-first in source order. When visit
// returns false the children of that node are skipped.
func Walk(n Node, visit func(Node) bool) {
	if n == nil || !visit(n) {
		return
	}
	for _, c := range Children(n) {
		Walk(c, visit)
	}
}

// CalleeName returns the original text of a call's path when it is a plain
// path expression, and "" otherwise.
func CalleeName(path Expression) string {
	if p, ok := path.(*PathExpression); ok {
		return p.Original
	}
	return ""
}
