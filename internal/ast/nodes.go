package ast

// NodeType names a syntax node variant.
type NodeType string

const (
	TypeProgram                  NodeType = "Program"
	TypeContentStatement         NodeType = "ContentStatement"
	TypeMustacheStatement        NodeType = "MustacheStatement"
	TypeBlockStatement           NodeType = "BlockStatement"
	TypeElementNode              NodeType = "ElementNode"
	TypeElementModifierStatement NodeType = "ElementModifierStatement"
	TypeAttrNode                 NodeType = "AttrNode"
	TypeTextNode                 NodeType = "TextNode"
	TypeConcatStatement          NodeType = "ConcatStatement"
	TypeCommentStatement         NodeType = "CommentStatement"
	TypeMustacheCommentStatement NodeType = "MustacheCommentStatement"
	TypePathExpression           NodeType = "PathExpression"
	TypeSubExpression            NodeType = "SubExpression"
	TypeStringLiteral            NodeType = "StringLiteral"
	TypeNumberLiteral            NodeType = "NumberLiteral"
	TypeBooleanLiteral           NodeType = "BooleanLiteral"
	TypeNullLiteral              NodeType = "NullLiteral"
	TypeUndefinedLiteral         NodeType = "UndefinedLiteral"
	TypeHash                     NodeType = "Hash"
	TypeHashPair                 NodeType = "HashPair"
)

// Node is implemented by every syntax node.
type Node interface {
	Type() NodeType
	Location() Location
}

// Statement is a node that can appear in a Program body or element children.
type Statement interface {
	Node
	statement()
}

// Expression is a node that can appear as a callee, param or hash value.
type Expression interface {
	Node
	expression()
}

// StripFlags records whitespace control markers on a mustache: Open is `{{~`,
// Close is `~}}`.
type StripFlags struct {
	Open  bool
	Close bool
}

// Program is a sequence of sibling statements: the template root, a block
// body or an inverse body.
type Program struct {
	Loc         Location
	Body        []Statement
	BlockParams []string
	// Chained marks an inverse program that only holds an `{{else if}}` block.
	Chained bool
}

// ContentStatement is raw literal text produced by the grammar front-end. The
// SyntaxTree Builder replaces it with TextNode and ElementNode values.
type ContentStatement struct {
	Loc      Location
	Original string
	// Lo and Hi delimit the part of Original left after whitespace control.
	Lo, Hi int
}

// Value returns the text left after whitespace control.
func (c *ContentStatement) Value() string { return c.Original[c.Lo:c.Hi] }

// MustacheStatement is a `{{expr}}` or `{{{expr}}}` reference.
type MustacheStatement struct {
	Loc     Location
	Path    Expression
	Params  []Expression
	Hash    *Hash
	Escaped bool
	Strip   StripFlags
}

// BlockStatement is a `{{#name}}…{{else}}…{{/name}}` construct.
type BlockStatement struct {
	Loc     Location
	Path    Expression
	Params  []Expression
	Hash    *Hash
	Program *Program
	Inverse *Program

	// Delimiter spans as reported by the grammar front-end. ElseLoc is the
	// zero value when the block has no inverse.
	OpenLoc  Location
	ElseLoc  Location
	CloseLoc Location

	OpenStrip    StripFlags
	InverseStrip StripFlags
	CloseStrip   StripFlags
}

// ElementModifierStatement is a mustache placed inside an element's start tag.
type ElementModifierStatement struct {
	Loc    Location
	Path   Expression
	Params []Expression
	Hash   *Hash
}

// ElementNode is an HTML element with its attributes, modifiers and children.
type ElementNode struct {
	Loc         Location
	Tag         string
	Attributes  []*AttrNode
	Modifiers   []*ElementModifierStatement
	Children    []Statement
	SelfClosing bool
}

// AttrNode is one attribute. Value is a *TextNode, *MustacheStatement or
// *ConcatStatement.
type AttrNode struct {
	Loc   Location
	Name  string
	Value Node
}

// TextNode is literal text with character references decoded.
type TextNode struct {
	Loc   Location
	Chars string
}

// ConcatStatement is a quoted attribute value mixing text and mustaches.
type ConcatStatement struct {
	Loc   Location
	Parts []Node
}

// CommentStatement is an HTML `<!-- -->` comment.
type CommentStatement struct {
	Loc   Location
	Value string
}

// MustacheCommentStatement is a `{{! }}` comment. It never reaches the DOM.
type MustacheCommentStatement struct {
	Loc   Location
	Value string
	Strip StripFlags
}

// PathExpression is a dotted lookup such as `this.user.name` or `@index`.
type PathExpression struct {
	Loc      Location
	Original string
	Parts    []string
	This     bool
	Data     bool
	// Depth counts leading `../` segments.
	Depth int
}

// Head returns the first path segment or "" for a bare `this`.
func (p *PathExpression) Head() string {
	if len(p.Parts) == 0 {
		return ""
	}
	return p.Parts[0]
}

// SubExpression is a parenthesized helper call.
type SubExpression struct {
	Loc    Location
	Path   Expression
	Params []Expression
	Hash   *Hash
}

// StringLiteral is a quoted string.
type StringLiteral struct {
	Loc   Location
	Value string
}

// NumberLiteral is a numeric literal.
type NumberLiteral struct {
	Loc      Location
	Value    float64
	Original string
}

// BooleanLiteral is `true` or `false`.
type BooleanLiteral struct {
	Loc   Location
	Value bool
}

// NullLiteral is `null`.
type NullLiteral struct{ Loc Location }

// UndefinedLiteral is `undefined`.
type UndefinedLiteral struct{ Loc Location }

// Hash holds `key=value` arguments.
type Hash struct {
	Loc   Location
	Pairs []*HashPair
}

// HashPair is one `key=value` argument.
type HashPair struct {
	Loc   Location
	Key   string
	Value Expression
}

func (n *Program) Type() NodeType                  { return TypeProgram }
func (n *ContentStatement) Type() NodeType         { return TypeContentStatement }
func (n *MustacheStatement) Type() NodeType        { return TypeMustacheStatement }
func (n *BlockStatement) Type() NodeType           { return TypeBlockStatement }
func (n *ElementModifierStatement) Type() NodeType { return TypeElementModifierStatement }
func (n *ElementNode) Type() NodeType              { return TypeElementNode }
func (n *AttrNode) Type() NodeType                 { return TypeAttrNode }
func (n *TextNode) Type() NodeType                 { return TypeTextNode }
func (n *ConcatStatement) Type() NodeType          { return TypeConcatStatement }
func (n *CommentStatement) Type() NodeType         { return TypeCommentStatement }
func (n *MustacheCommentStatement) Type() NodeType { return TypeMustacheCommentStatement }
func (n *PathExpression) Type() NodeType           { return TypePathExpression }
func (n *SubExpression) Type() NodeType            { return TypeSubExpression }
func (n *StringLiteral) Type() NodeType            { return TypeStringLiteral }
func (n *NumberLiteral) Type() NodeType            { return TypeNumberLiteral }
func (n *BooleanLiteral) Type() NodeType           { return TypeBooleanLiteral }
func (n *NullLiteral) Type() NodeType              { return TypeNullLiteral }
func (n *UndefinedLiteral) Type() NodeType         { return TypeUndefinedLiteral }
func (n *Hash) Type() NodeType                     { return TypeHash }
func (n *HashPair) Type() NodeType                 { return TypeHashPair }

func (n *Program) Location() Location                  { return n.Loc }
func (n *ContentStatement) Location() Location         { return n.Loc }
func (n *MustacheStatement) Location() Location        { return n.Loc }
func (n *BlockStatement) Location() Location           { return n.Loc }
func (n *ElementModifierStatement) Location() Location { return n.Loc }
func (n *ElementNode) Location() Location              { return n.Loc }
func (n *AttrNode) Location() Location                 { return n.Loc }
func (n *TextNode) Location() Location                 { return n.Loc }
func (n *ConcatStatement) Location() Location          { return n.Loc }
func (n *CommentStatement) Location() Location         { return n.Loc }
func (n *MustacheCommentStatement) Location() Location { return n.Loc }
func (n *PathExpression) Location() Location           { return n.Loc }
func (n *SubExpression) Location() Location            { return n.Loc }
func (n *StringLiteral) Location() Location            { return n.Loc }
func (n *NumberLiteral) Location() Location            { return n.Loc }
func (n *BooleanLiteral) Location() Location           { return n.Loc }
func (n *NullLiteral) Location() Location              { return n.Loc }
func (n *UndefinedLiteral) Location() Location         { return n.Loc }
func (n *Hash) Location() Location                     { return n.Loc }
func (n *HashPair) Location() Location                 { return n.Loc }

func (*ContentStatement) statement()         {}
func (*MustacheStatement) statement()        {}
func (*BlockStatement) statement()           {}
func (*ElementNode) statement()              {}
func (*TextNode) statement()                 {}
func (*CommentStatement) statement()         {}
func (*MustacheCommentStatement) statement() {}

func (*PathExpression) expression()   {}
func (*SubExpression) expression()    {}
func (*StringLiteral) expression()    {}
func (*NumberLiteral) expression()    {}
func (*BooleanLiteral) expression()   {}
func (*NullLiteral) expression()      {}
func (*UndefinedLiteral) expression() {}
