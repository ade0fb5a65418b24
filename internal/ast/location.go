package ast

import "fmt"

// Position is a source position. Lines are 1-based, columns are 0-based and
// counted in runes.
type Position struct {
	Line   int `json:"line" yaml:"line"`
	Column int `json:"column" yaml:"column"`
}

// Before reports whether p sorts strictly before o.
func (p Position) Before(o Position) bool {
	if p.Line != o.Line {
		return p.Line < o.Line
	}
	return p.Column < o.Column
}

// Advance returns the position reached after reading fragment from p.
func (p Position) Advance(fragment string) Position {
	for _, r := range fragment {
		if r == '\n' {
			p.Line++
			p.Column = 0
		} else {
			p.Column++
		}
	}
	return p
}

// String formats the position as line:column.
func (p Position) String() string {
	return fmt.Sprintf("%d:%d", p.Line, p.Column)
}

// Location is the span of one syntax node. Source is nil when the template was
// compiled without a module name.
type Location struct {
	Source *string  `json:"source" yaml:"source"`
	Start  Position `json:"start" yaml:"start"`
	End    Position `json:"end" yaml:"end"`
}

// NewLocation builds a Location; an empty source is recorded as null.
func NewLocation(source string, start, end Position) Location {
	loc := Location{Start: start, End: end}
	if source != "" {
		s := source
		loc.Source = &s
	}
	return loc
}

// SourceName returns the module name or "" when none was attached.
func (l Location) SourceName() string {
	if l.Source == nil {
		return ""
	}
	return *l.Source
}

// IsEmpty reports whether the span is zero-width.
func (l Location) IsEmpty() bool {
	return l.Start == l.End
}

// Contains reports whether o lies within l, bounds inclusive.
func (l Location) Contains(o Location) bool {
	return !o.Start.Before(l.Start) && !l.End.Before(o.End)
}

// String renders the span the way diagnostics print it.
func (l Location) String() string {
	name := l.SourceName()
	if name == "" {
		name = "<template>"
	}
	return fmt.Sprintf("%s:%s-%s", name, l.Start, l.End)
}
