package compiler

import "fmt"

// Validate checks that the spec and its templates are well formed: a known
// revision, balanced element instructions, and statements whose coordinates
// and template references resolve.
func (s *Spec) Validate() error {
	return s.validate("root")
}

func (s *Spec) validate(where string) error {
	if s == nil {
		return fmt.Errorf("%w: %s: missing spec", ErrInvalidSpec, where)
	}
	if s.Revision != Revision {
		return fmt.Errorf("%w: %s: revision %q, want %q", ErrInvalidSpec, where, s.Revision, Revision)
	}

	nodes, err := s.coordinates()
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrInvalidSpec, where, err)
	}

	for i, stmt := range s.Statements {
		if len(stmt.Path) == 0 {
			return fmt.Errorf("%w: %s: statement %d has an empty path", ErrInvalidSpec, where, i)
		}
		op, ok := nodes[pathKey(stmt.Path)]
		if !ok {
			return fmt.Errorf("%w: %s: statement %d path %v does not resolve", ErrInvalidSpec, where, i, stmt.Path)
		}
		switch stmt.Kind {
		case KindContent, KindBlock:
			if op != OpPlaceholder {
				return fmt.Errorf("%w: %s: statement %d path %v is a %s, want a placeholder", ErrInvalidSpec, where, i, stmt.Path, op)
			}
			if stmt.Call == nil {
				return fmt.Errorf("%w: %s: statement %d has no call", ErrInvalidSpec, where, i)
			}
		case KindAttribute:
			if op != OpElement || stmt.Name == "" {
				return fmt.Errorf("%w: %s: attribute statement %d is not bound to an element", ErrInvalidSpec, where, i)
			}
		case KindModifier:
			if op != OpElement || stmt.Call == nil {
				return fmt.Errorf("%w: %s: modifier statement %d is not bound to an element", ErrInvalidSpec, where, i)
			}
		default:
			return fmt.Errorf("%w: %s: statement %d has unknown kind %q", ErrInvalidSpec, where, i, stmt.Kind)
		}
		for _, ref := range []int{stmt.Program, stmt.Inverse} {
			if ref < -1 || ref >= len(s.Templates) {
				return fmt.Errorf("%w: %s: statement %d references template %d of %d", ErrInvalidSpec, where, i, ref, len(s.Templates))
			}
		}
	}

	for i, child := range s.Templates {
		if err := child.validate(fmt.Sprintf("%s.templates[%d]", where, i)); err != nil {
			return err
		}
	}
	return nil
}

// coordinates replays the fragment instructions and returns the opcode that
// created the node at every coordinate.
func (s *Spec) coordinates() (map[string]Op, error) {
	nodes := map[string]Op{}
	path := []int{}
	next := []int{0}
	for i, ins := range s.Fragment {
		switch ins.Op {
		case OpElement, OpText, OpComment, OpPlaceholder:
			depth := len(path)
			here := append(append([]int{}, path...), next[depth])
			nodes[pathKey(here)] = ins.Op
			next[depth]++
			if ins.Op == OpElement {
				if ins.Tag == "" {
					return nil, fmt.Errorf("instruction %d: element without a tag", i)
				}
				path = here
				next = append(next, 0)
			}
		case OpAttr:
			if len(path) == 0 || ins.Name == "" {
				return nil, fmt.Errorf("instruction %d: attribute outside an element", i)
			}
		case OpClose:
			if len(path) == 0 {
				return nil, fmt.Errorf("instruction %d: close without an open element", i)
			}
			path = path[:len(path)-1]
			next = next[:len(next)-1]
		default:
			return nil, fmt.Errorf("instruction %d: unknown op %q", i, ins.Op)
		}
	}
	if len(path) != 0 {
		return nil, fmt.Errorf("%d element(s) left open", len(path))
	}
	return nodes, nil
}

func pathKey(path []int) string {
	return fmt.Sprint(path)
}
