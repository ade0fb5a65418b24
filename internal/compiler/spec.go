package compiler

import (
	"errors"

	"github.com/cruffinoni/gobars/internal/ast"
)

// Revision identifies the instruction set emitted by this compiler.
const Revision = "gobars/1"

// ErrInvalidSpec reports a specification that cannot be executed.
var ErrInvalidSpec = errors.New("invalid template specification")

// ErrNoCoordinate reports a dynamic node the compiler cannot address.
var ErrNoCoordinate = errors.New("dynamic node has no tree coordinate")

// Spec is the compiled, serializable form of one Program. Block bodies are
// compiled into Templates and referenced by index.
type Spec struct {
	Revision    string        `json:"revision" yaml:"revision"`
	Meta        Meta          `json:"meta" yaml:"meta"`
	BlockParams []string      `json:"blockParams,omitempty" yaml:"blockParams,omitempty"`
	Fragment    []Instruction `json:"fragment" yaml:"fragment"`
	Statements  []Statement   `json:"statements" yaml:"statements"`
	Repairs     []Repair      `json:"repairs,omitempty" yaml:"repairs,omitempty"`
	Templates   []*Spec       `json:"templates,omitempty" yaml:"templates,omitempty"`
}

// Meta carries compile options that affect diagnostics.
type Meta struct {
	ModuleName string `json:"moduleName,omitempty" yaml:"moduleName,omitempty"`
}

// Op is a structural instruction opcode.
type Op string

const (
	OpElement     Op = "element"
	OpAttr        Op = "attr"
	OpText        Op = "text"
	OpComment     Op = "comment"
	OpPlaceholder Op = "placeholder"
	OpClose       Op = "close"
)

// Instruction builds one piece of static structure. Element opens a node
// that receives the following instructions until the matching close.
type Instruction struct {
	Op        Op     `json:"op" yaml:"op"`
	Tag       string `json:"tag,omitempty" yaml:"tag,omitempty"`
	Name      string `json:"name,omitempty" yaml:"name,omitempty"`
	Value     string `json:"value,omitempty" yaml:"value,omitempty"`
	Namespace string `json:"namespace,omitempty" yaml:"namespace,omitempty"`
}

// StatementKind selects how a dynamic opcode is hydrated.
type StatementKind string

const (
	KindContent   StatementKind = "content"
	KindBlock     StatementKind = "block"
	KindAttribute StatementKind = "attribute"
	KindModifier  StatementKind = "modifier"
)

// Statement is a dynamic opcode. Path is the child-index coordinate of the
// placeholder (content, block) or element (attribute, modifier) from the
// fragment root.
type Statement struct {
	Kind      StatementKind `json:"kind" yaml:"kind"`
	Path      []int         `json:"path" yaml:"path,flow"`
	Call      *Call         `json:"call,omitempty" yaml:"call,omitempty"`
	Escaped   bool          `json:"escaped,omitempty" yaml:"escaped,omitempty"`
	Name      string        `json:"name,omitempty" yaml:"name,omitempty"`
	Namespace string        `json:"namespace,omitempty" yaml:"namespace,omitempty"`
	Parts     []Part        `json:"parts,omitempty" yaml:"parts,omitempty"`
	Quoted    bool          `json:"quoted,omitempty" yaml:"quoted,omitempty"`
	Program   int           `json:"program" yaml:"program"`
	Inverse   int           `json:"inverse" yaml:"inverse"`
	Loc       ast.Location  `json:"loc" yaml:"loc"`
}

// Call is a callee with positional and named arguments.
type Call struct {
	Callee Expr       `json:"callee" yaml:"callee"`
	Params []Expr     `json:"params,omitempty" yaml:"params,omitempty"`
	Hash   []HashPair `json:"hash,omitempty" yaml:"hash,omitempty"`
}

// HasArgs reports whether the call passes any argument.
func (c *Call) HasArgs() bool {
	return len(c.Params) > 0 || len(c.Hash) > 0
}

// HashPair is one named argument.
type HashPair struct {
	Key   string `json:"key" yaml:"key"`
	Value Expr   `json:"value" yaml:"value"`
}

// ExprKind tags an Expr variant.
type ExprKind string

const (
	ExprPath      ExprKind = "path"
	ExprString    ExprKind = "string"
	ExprNumber    ExprKind = "number"
	ExprBoolean   ExprKind = "boolean"
	ExprNull      ExprKind = "null"
	ExprUndefined ExprKind = "undefined"
	ExprSubExpr   ExprKind = "sexpr"
)

// Expr is a serializable expression. Only the fields of its Kind are set.
type Expr struct {
	Kind     ExprKind `json:"kind" yaml:"kind"`
	Original string   `json:"original,omitempty" yaml:"original,omitempty"`
	Parts    []string `json:"parts,omitempty" yaml:"parts,omitempty,flow"`
	This     bool     `json:"this,omitempty" yaml:"this,omitempty"`
	Data     bool     `json:"data,omitempty" yaml:"data,omitempty"`
	Depth    int      `json:"depth,omitempty" yaml:"depth,omitempty"`
	String   string   `json:"string,omitempty" yaml:"string,omitempty"`
	Number   float64  `json:"number,omitempty" yaml:"number,omitempty"`
	Bool     bool     `json:"bool,omitempty" yaml:"bool,omitempty"`
	Call     *Call    `json:"call,omitempty" yaml:"call,omitempty"`
}

// Part is one piece of a dynamic attribute value: literal text or a call.
type Part struct {
	Text    string `json:"text,omitempty" yaml:"text,omitempty"`
	Call    *Call  `json:"call,omitempty" yaml:"call,omitempty"`
	Escaped bool   `json:"escaped,omitempty" yaml:"escaped,omitempty"`
}

// Repair lists fixes applied to a cloned fragment under the node at Path:
// zero-length text nodes to re-insert by child index, and the live checked
// state of the node itself.
type Repair struct {
	Path      []int `json:"path" yaml:"path,flow"`
	BlankText []int `json:"blankText,omitempty" yaml:"blankText,omitempty,flow"`
	Checked   bool  `json:"checked,omitempty" yaml:"checked,omitempty"`
}
