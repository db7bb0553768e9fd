// Package ast defines the tagged syntax tree produced by the parser.
// Every node carries a Span and a stable, unique NodeID; node ids are
// never reused within one compilation.
package ast

import (
	"github.com/nova-lang/nova/internal/source"
	"github.com/nova-lang/nova/internal/types"
)

// NodeID uniquely and monotonically identifies an AST node within a
// single compilation. Zero is never assigned; it marks "no node".
type NodeID uint64

// IDGen hands out monotonically increasing node ids. One IDGen is
// shared by the whole parse of a program (and anything synthesized
// afterwards, e.g. desugared nodes from the analyzer).
type IDGen struct{ next uint64 }

func (g *IDGen) Next() NodeID {
	g.next++
	return NodeID(g.next)
}

// Node is satisfied by every AST node.
type Node interface {
	ID() NodeID
	Span() source.Span
}

// Typed is satisfied by every expression and pattern node, which carry
// an inferred-type slot filled in by the inference engine.
type Typed interface {
	Node
	InferredType() types.Type
	SetInferredType(types.Type)
}

type base struct {
	id NodeID
	sp source.Span
}

func (b base) ID() NodeID        { return b.id }
func (b base) Span() source.Span { return b.sp }

type typedBase struct {
	base
	ty types.Type
}

func (t *typedBase) InferredType() types.Type      { return t.ty }
func (t *typedBase) SetInferredType(ty types.Type) { t.ty = ty }

func newBase(g *IDGen, sp source.Span) base { return base{id: g.Next(), sp: sp} }

// Program is the root of every parsed compilation unit.
type Program struct {
	base
	File    string
	Package string
	Imports []*ImportItem
	Exports []*ExportItem
	Items   []Item
}

func NewProgram(g *IDGen, sp source.Span, file, pkg string) *Program {
	return &Program{base: newBase(g, sp), File: file, Package: pkg}
}

// ImportItem brings a module path into scope, optionally aliased and
// optionally restricted to a set of named members.
type ImportItem struct {
	base
	Path    string
	Alias   string
	Members []string
}

func NewImportItem(g *IDGen, sp source.Span, path, alias string, members []string) *ImportItem {
	return &ImportItem{base: newBase(g, sp), Path: path, Alias: alias, Members: members}
}

// ExportItem re-exposes a locally defined name under its own or an
// aliased name.
type ExportItem struct {
	base
	Name  string
	Alias string
}

func NewExportItem(g *IDGen, sp source.Span, name, alias string) *ExportItem {
	return &ExportItem{base: newBase(g, sp), Name: name, Alias: alias}
}

// Item is a top-level declaration: function, constant, type alias,
// struct, or enum.
type Item interface {
	Node
	itemNode()
}

// TypeParam is a generic parameter with optional trait bounds,
// e.g. <T: Ord>.
type TypeParam struct {
	Name   string
	Bounds []string
}

// Param is a single function parameter: a binding pattern with an
// optional type annotation (omitted under gradual typing).
type Param struct {
	Pattern    Pattern
	Annotation types.Type
}

// FuncItem is `fn name<T>(params) -> Return { Body }`.
type FuncItem struct {
	base
	Name       string
	TypeParams []TypeParam
	Params     []Param
	Return     types.Type
	Body       *BlockExpr
	IsAsync    bool
}

func (*FuncItem) itemNode() {}

func NewFuncItem(g *IDGen, sp source.Span, name string) *FuncItem {
	return &FuncItem{base: newBase(g, sp), Name: name}
}

// ConstItem is `const NAME: Type = Expr`.
type ConstItem struct {
	base
	Name       string
	Annotation types.Type
	Value      Expr
}

func (*ConstItem) itemNode() {}

func NewConstItem(g *IDGen, sp source.Span, name string) *ConstItem {
	return &ConstItem{base: newBase(g, sp), Name: name}
}

// TypeAliasItem is `type Name<T> = Type`.
type TypeAliasItem struct {
	base
	Name       string
	TypeParams []TypeParam
	Aliased    types.Type
}

func (*TypeAliasItem) itemNode() {}

func NewTypeAliasItem(g *IDGen, sp source.Span, name string) *TypeAliasItem {
	return &TypeAliasItem{base: newBase(g, sp), Name: name}
}

// StructField is a named, typed field of a struct declaration.
type StructField struct {
	Name       string
	Annotation types.Type
}

// StructItem is `struct Name<T> { fields }`.
type StructItem struct {
	base
	Name       string
	TypeParams []TypeParam
	Fields     []StructField
}

func (*StructItem) itemNode() {}

func NewStructItem(g *IDGen, sp source.Span, name string) *StructItem {
	return &StructItem{base: newBase(g, sp), Name: name}
}

// EnumVariant is one constructor of an enum declaration, carrying zero
// or more positional payload types.
type EnumVariant struct {
	Name    string
	Payload []types.Type
}

// EnumItem is `enum Name<T> { Variant(Payload), ... }`.
type EnumItem struct {
	base
	Name       string
	TypeParams []TypeParam
	Variants   []EnumVariant
}

func (*EnumItem) itemNode() {}

func NewEnumItem(g *IDGen, sp source.Span, name string) *EnumItem {
	return &EnumItem{base: newBase(g, sp), Name: name}
}

// Stmt is satisfied by every statement node.
type Stmt interface {
	Node
	stmtNode()
}

// LetStmt is `let pattern: Type = Expr`.
type LetStmt struct {
	base
	Pattern    Pattern
	Annotation types.Type
	Value      Expr
	Mutable    bool
}

func (*LetStmt) stmtNode() {}

func NewLetStmt(g *IDGen, sp source.Span, pat Pattern, value Expr, mutable bool) *LetStmt {
	return &LetStmt{base: newBase(g, sp), Pattern: pat, Value: value, Mutable: mutable}
}

// ExprStmt wraps an expression used for its side effect.
type ExprStmt struct {
	base
	Value Expr
}

func (*ExprStmt) stmtNode() {}

func NewExprStmt(g *IDGen, sp source.Span, value Expr) *ExprStmt {
	return &ExprStmt{base: newBase(g, sp), Value: value}
}

// ReturnStmt is `return Expr?`.
type ReturnStmt struct {
	base
	Value Expr // nil for a bare return
}

func (*ReturnStmt) stmtNode() {}

func NewReturnStmt(g *IDGen, sp source.Span, value Expr) *ReturnStmt {
	return &ReturnStmt{base: newBase(g, sp), Value: value}
}

// WhileStmt is `while Cond { Body }`.
type WhileStmt struct {
	base
	Cond Expr
	Body *BlockExpr
}

func (*WhileStmt) stmtNode() {}

func NewWhileStmt(g *IDGen, sp source.Span, cond Expr, body *BlockExpr) *WhileStmt {
	return &WhileStmt{base: newBase(g, sp), Cond: cond, Body: body}
}

// ForStmt is `for Pattern in Iter { Body }`.
type ForStmt struct {
	base
	Pattern Pattern
	Iter    Expr
	Body    *BlockExpr
}

func (*ForStmt) stmtNode() {}

func NewForStmt(g *IDGen, sp source.Span, pat Pattern, iter Expr, body *BlockExpr) *ForStmt {
	return &ForStmt{base: newBase(g, sp), Pattern: pat, Iter: iter, Body: body}
}

// BreakStmt is `break`, only legal where the enclosing scope permits
// it (symbols.Scope.AllowsBreak).
type BreakStmt struct{ base }

func (*BreakStmt) stmtNode() {}

func NewBreakStmt(g *IDGen, sp source.Span) *BreakStmt { return &BreakStmt{base: newBase(g, sp)} }

// ContinueStmt is `continue`.
type ContinueStmt struct{ base }

func (*ContinueStmt) stmtNode() {}

func NewContinueStmt(g *IDGen, sp source.Span) *ContinueStmt {
	return &ContinueStmt{base: newBase(g, sp)}
}

// Expr is satisfied by every expression node; all expressions carry an
// inferred-type slot (Typed).
type Expr interface {
	Typed
	exprNode()
}

// IntLiteral is a fixed-width integer literal.
type IntLiteral struct {
	typedBase
	Value int64
}

func (*IntLiteral) exprNode() {}

func NewIntLiteral(g *IDGen, sp source.Span, v int64) *IntLiteral {
	return &IntLiteral{typedBase: typedBase{base: newBase(g, sp)}, Value: v}
}

// BigIntLiteral is an integer literal too large for int64 (the lexer's
// overflow-widening path); Digits is the decimal text, re-parsed by
// the runtime's arbitrary-precision representation.
type BigIntLiteral struct {
	typedBase
	Digits string
}

func (*BigIntLiteral) exprNode() {}

func NewBigIntLiteral(g *IDGen, sp source.Span, digits string) *BigIntLiteral {
	return &BigIntLiteral{typedBase: typedBase{base: newBase(g, sp)}, Digits: digits}
}

// FloatLiteral is a floating-point literal.
type FloatLiteral struct {
	typedBase
	Value float64
}

func (*FloatLiteral) exprNode() {}

func NewFloatLiteral(g *IDGen, sp source.Span, v float64) *FloatLiteral {
	return &FloatLiteral{typedBase: typedBase{base: newBase(g, sp)}, Value: v}
}

// BoolLiteral is `true` or `false`.
type BoolLiteral struct {
	typedBase
	Value bool
}

func (*BoolLiteral) exprNode() {}

func NewBoolLiteral(g *IDGen, sp source.Span, v bool) *BoolLiteral {
	return &BoolLiteral{typedBase: typedBase{base: newBase(g, sp)}, Value: v}
}

// StringLiteral is a (already-unescaped) string literal.
type StringLiteral struct {
	typedBase
	Value string
}

func (*StringLiteral) exprNode() {}

func NewStringLiteral(g *IDGen, sp source.Span, v string) *StringLiteral {
	return &StringLiteral{typedBase: typedBase{base: newBase(g, sp)}, Value: v}
}

// CharLiteral is a single Unicode scalar literal.
type CharLiteral struct {
	typedBase
	Value rune
}

func (*CharLiteral) exprNode() {}

func NewCharLiteral(g *IDGen, sp source.Span, v rune) *CharLiteral {
	return &CharLiteral{typedBase: typedBase{base: newBase(g, sp)}, Value: v}
}

// UnitLiteral is `()`.
type UnitLiteral struct{ typedBase }

func (*UnitLiteral) exprNode() {}

func NewUnitLiteral(g *IDGen, sp source.Span) *UnitLiteral {
	return &UnitLiteral{typedBase: typedBase{base: newBase(g, sp)}}
}

// Identifier references a binding by name; resolution to a symbol
// happens in the semantic analyzer (C5), not here.
type Identifier struct {
	typedBase
	Name string
}

func (*Identifier) exprNode() {}

func NewIdentifier(g *IDGen, sp source.Span, name string) *Identifier {
	return &Identifier{typedBase: typedBase{base: newBase(g, sp)}, Name: name}
}

// UnaryOp enumerates prefix operators.
type UnaryOp int

const (
	UnaryNeg UnaryOp = iota
	UnaryNot
)

// UnaryExpr is `op Operand`.
type UnaryExpr struct {
	typedBase
	Op      UnaryOp
	Operand Expr
}

func (*UnaryExpr) exprNode() {}

func NewUnaryExpr(g *IDGen, sp source.Span, op UnaryOp, operand Expr) *UnaryExpr {
	return &UnaryExpr{typedBase: typedBase{base: newBase(g, sp)}, Op: op, Operand: operand}
}

// BinaryOp enumerates infix operators, matching the parser's fixed
// precedence table.
type BinaryOp int

const (
	BinAdd BinaryOp = iota
	BinSub
	BinMul
	BinDiv
	BinMod
	BinPow
	BinEq
	BinNotEq
	BinLt
	BinLte
	BinGt
	BinGte
	BinAnd
	BinOr
	BinPipe // |>
)

// BinaryExpr is `Left op Right`.
type BinaryExpr struct {
	typedBase
	Op    BinaryOp
	Left  Expr
	Right Expr
}

func (*BinaryExpr) exprNode() {}

func NewBinaryExpr(g *IDGen, sp source.Span, op BinaryOp, l, r Expr) *BinaryExpr {
	return &BinaryExpr{typedBase: typedBase{base: newBase(g, sp)}, Op: op, Left: l, Right: r}
}

// IndexExpr is `Target[Index]`.
type IndexExpr struct {
	typedBase
	Target Expr
	Index  Expr
}

func (*IndexExpr) exprNode() {}

func NewIndexExpr(g *IDGen, sp source.Span, target, index Expr) *IndexExpr {
	return &IndexExpr{typedBase: typedBase{base: newBase(g, sp)}, Target: target, Index: index}
}

// MemberExpr is `Target.Name`.
type MemberExpr struct {
	typedBase
	Target Expr
	Name   string
}

func (*MemberExpr) exprNode() {}

func NewMemberExpr(g *IDGen, sp source.Span, target Expr, name string) *MemberExpr {
	return &MemberExpr{typedBase: typedBase{base: newBase(g, sp)}, Target: target, Name: name}
}

// CallExpr is `Callee(Args...)`.
type CallExpr struct {
	typedBase
	Callee Expr
	Args   []Expr
}

func (*CallExpr) exprNode() {}

func NewCallExpr(g *IDGen, sp source.Span, callee Expr, args []Expr) *CallExpr {
	return &CallExpr{typedBase: typedBase{base: newBase(g, sp)}, Callee: callee, Args: args}
}

// ArrayExpr is `[Elements...]`.
type ArrayExpr struct {
	typedBase
	Elements []Expr
}

func (*ArrayExpr) exprNode() {}

func NewArrayExpr(g *IDGen, sp source.Span, elems []Expr) *ArrayExpr {
	return &ArrayExpr{typedBase: typedBase{base: newBase(g, sp)}, Elements: elems}
}

// BlockExpr is `{ Stmts...; TailExpr? }`; a block's type is TailExpr's
// type, or Unit when there is no tail expression.
type BlockExpr struct {
	typedBase
	Stmts []Stmt
	Tail  Expr // nil when the block has no tail expression
}

func (*BlockExpr) exprNode() {}

func NewBlockExpr(g *IDGen, sp source.Span, stmts []Stmt, tail Expr) *BlockExpr {
	return &BlockExpr{typedBase: typedBase{base: newBase(g, sp)}, Stmts: stmts, Tail: tail}
}

// IfExpr is `if Cond { Then } else { Else }`; Else may be nil for a
// statement-position `if` with no else branch (typed Unit).
type IfExpr struct {
	typedBase
	Cond Expr
	Then *BlockExpr
	Else Expr // *BlockExpr or *IfExpr (else-if chain), or nil
}

func (*IfExpr) exprNode() {}

func NewIfExpr(g *IDGen, sp source.Span, cond Expr, then *BlockExpr, els Expr) *IfExpr {
	return &IfExpr{typedBase: typedBase{base: newBase(g, sp)}, Cond: cond, Then: then, Else: els}
}

// MatchArm is one `Pattern [if Guard] -> Body` arm of a match
// expression.
type MatchArm struct {
	Pattern Pattern
	Guard   Expr // nil when the arm is unguarded
	Body    Expr
}

// MatchExpr is `match Scrutinee { Arms... }`.
type MatchExpr struct {
	typedBase
	Scrutinee Expr
	Arms      []MatchArm
}

func (*MatchExpr) exprNode() {}

func NewMatchExpr(g *IDGen, sp source.Span, scrutinee Expr, arms []MatchArm) *MatchExpr {
	return &MatchExpr{typedBase: typedBase{base: newBase(g, sp)}, Scrutinee: scrutinee, Arms: arms}
}

// AwaitExpr is `await Operand`, only legal where the enclosing scope
// permits it (symbols.Scope.AllowsAwait).
type AwaitExpr struct {
	typedBase
	Operand Expr
}

func (*AwaitExpr) exprNode() {}

func NewAwaitExpr(g *IDGen, sp source.Span, operand Expr) *AwaitExpr {
	return &AwaitExpr{typedBase: typedBase{base: newBase(g, sp)}, Operand: operand}
}

// ClosureExpr is `|Params| Body` or `async |Params| Body`; captures are
// resolved by the semantic analyzer and annotated during lowering
// (C11) rather than stored here.
type ClosureExpr struct {
	typedBase
	Params  []Param
	Body    Expr
	IsAsync bool
}

func (*ClosureExpr) exprNode() {}

func NewClosureExpr(g *IDGen, sp source.Span, params []Param, body Expr, isAsync bool) *ClosureExpr {
	return &ClosureExpr{typedBase: typedBase{base: newBase(g, sp)}, Params: params, Body: body, IsAsync: isAsync}
}

// AssignExpr is `Target = Value`; Target must be an lvalue
// (Identifier, IndexExpr, or MemberExpr), checked by the analyzer.
type AssignExpr struct {
	typedBase
	Target Expr
	Value  Expr
}

func (*AssignExpr) exprNode() {}

func NewAssignExpr(g *IDGen, sp source.Span, target, value Expr) *AssignExpr {
	return &AssignExpr{typedBase: typedBase{base: newBase(g, sp)}, Target: target, Value: value}
}

// Pattern is satisfied by every pattern node in the grammar.
type Pattern interface {
	Typed
	patternNode()
}

// WildcardPattern is `_`.
type WildcardPattern struct{ typedBase }

func (*WildcardPattern) patternNode() {}

func NewWildcardPattern(g *IDGen, sp source.Span) *WildcardPattern {
	return &WildcardPattern{typedBase: typedBase{base: newBase(g, sp)}}
}

// LiteralPattern matches a constant literal value.
type LiteralPattern struct {
	typedBase
	Value Expr // one of the *Literal expression nodes
}

func (*LiteralPattern) patternNode() {}

func NewLiteralPattern(g *IDGen, sp source.Span, value Expr) *LiteralPattern {
	return &LiteralPattern{typedBase: typedBase{base: newBase(g, sp)}, Value: value}
}

// IdentifierPattern binds the matched value to Name.
type IdentifierPattern struct {
	typedBase
	Name string
}

func (*IdentifierPattern) patternNode() {}

func NewIdentifierPattern(g *IDGen, sp source.Span, name string) *IdentifierPattern {
	return &IdentifierPattern{typedBase: typedBase{base: newBase(g, sp)}, Name: name}
}

// ArrayPattern matches an array, with an optional rest binding
// capturing the remaining elements (e.g. `[a, b, ...rest]`).
type ArrayPattern struct {
	typedBase
	Elements []Pattern
	Rest     string // "" when there is no rest binding
	HasRest  bool
}

func (*ArrayPattern) patternNode() {}

func NewArrayPattern(g *IDGen, sp source.Span, elems []Pattern, rest string, hasRest bool) *ArrayPattern {
	return &ArrayPattern{typedBase: typedBase{base: newBase(g, sp)}, Elements: elems, Rest: rest, HasRest: hasRest}
}

// ObjectPatternField is one field of an ObjectPattern, supporting the
// `name: pattern` and bare `name` (shorthand rename-to-self) forms.
type ObjectPatternField struct {
	Name    string
	Pattern Pattern
}

// ObjectPattern matches a record/struct, with an optional rest binding
// (e.g. `{ x, y: p, ...rest }`).
type ObjectPattern struct {
	typedBase
	Fields  []ObjectPatternField
	Rest    string
	HasRest bool
}

func (*ObjectPattern) patternNode() {}

func NewObjectPattern(g *IDGen, sp source.Span, fields []ObjectPatternField, rest string, hasRest bool) *ObjectPattern {
	return &ObjectPattern{typedBase: typedBase{base: newBase(g, sp)}, Fields: fields, Rest: rest, HasRest: hasRest}
}

// OrPattern is `P1 | P2 | ...`; all alternatives must bind the same
// set of names (checked by the semantic analyzer).
type OrPattern struct {
	typedBase
	Alternatives []Pattern
}

func (*OrPattern) patternNode() {}

func NewOrPattern(g *IDGen, sp source.Span, alts []Pattern) *OrPattern {
	return &OrPattern{typedBase: typedBase{base: newBase(g, sp)}, Alternatives: alts}
}

// ConstructorPattern matches an enum variant by name, destructuring
// its positional payload (e.g. `Some(x)`, `None`).
type ConstructorPattern struct {
	typedBase
	Name    string
	Payload []Pattern
}

func (*ConstructorPattern) patternNode() {}

func NewConstructorPattern(g *IDGen, sp source.Span, name string, payload []Pattern) *ConstructorPattern {
	return &ConstructorPattern{typedBase: typedBase{base: newBase(g, sp)}, Name: name, Payload: payload}
}

// RangePattern matches a scalar value against an inclusive or
// exclusive range, e.g. `1..10` or `1..=10`.
type RangePattern struct {
	typedBase
	Low, High Expr
	Inclusive bool
}

func (*RangePattern) patternNode() {}

func NewRangePattern(g *IDGen, sp source.Span, low, high Expr, inclusive bool) *RangePattern {
	return &RangePattern{typedBase: typedBase{base: newBase(g, sp)}, Low: low, High: high, Inclusive: inclusive}
}

// GuardPattern wraps an inner pattern with an `if` condition evaluated
// after the inner pattern successfully binds; guarded arms are never
// counted towards exhaustiveness.
type GuardPattern struct {
	typedBase
	Inner     Pattern
	Condition Expr
}

func (*GuardPattern) patternNode() {}

func NewGuardPattern(g *IDGen, sp source.Span, inner Pattern, cond Expr) *GuardPattern {
	return &GuardPattern{typedBase: typedBase{base: newBase(g, sp)}, Inner: inner, Condition: cond}
}
