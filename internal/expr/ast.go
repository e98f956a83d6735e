package expr

import "strings"

// ASTNode represents a node in the abstract syntax tree
type ASTNode interface {
	astNode()
	// Position returns the byte offset of the token that produced the node.
	Position() int
}

// LiteralKind classifies an unbound literal by its token form.
type LiteralKind int

const (
	LiteralString LiteralKind = iota
	LiteralNumber
	LiteralBoolean
	LiteralNull
)

// BinaryExpr represents a logical or comparison expression
// (e.g. A && B, Age > 18)
type BinaryExpr struct {
	Left     ASTNode
	Operator string
	Right    ASTNode
	Pos      int
}

func (e *BinaryExpr) astNode()      {}
func (e *BinaryExpr) Position() int { return e.Pos }

// UnaryExpr represents a negated boolean expression (e.g. !IsActive)
type UnaryExpr struct {
	Operator string
	Operand  ASTNode
	Pos      int
}

func (e *UnaryExpr) astNode()      {}
func (e *UnaryExpr) Position() int { return e.Pos }

// LiteralExpr represents a literal value. Raw holds the literal text
// (unquoted and unescaped for strings) and stays unresolved until bound.
type LiteralExpr struct {
	Raw  string
	Kind LiteralKind
	Pos  int
}

func (e *LiteralExpr) astNode()      {}
func (e *LiteralExpr) Position() int { return e.Pos }

// MemberExpr represents a dotted member navigation chain
// (e.g. Company.Address.City)
type MemberExpr struct {
	Path []string
	Pos  int
}

func (e *MemberExpr) astNode()      {}
func (e *MemberExpr) Position() int { return e.Pos }

// MethodCallExpr represents a predicate method call on a member
// (e.g. Name.Contains("oh"))
type MethodCallExpr struct {
	Target *MemberExpr
	Name   string
	Args   []*LiteralExpr
	Pos    int
}

func (e *MethodCallExpr) astNode()      {}
func (e *MethodCallExpr) Position() int { return e.Pos }

// Format serializes a node back to its canonical textual form. Binary
// expressions are fully parenthesized so that re-parsing the result
// yields a structurally equal tree (parentheses do not create nodes).
func Format(node ASTNode) string {
	var b strings.Builder
	writeNode(&b, node)
	return b.String()
}

func writeNode(b *strings.Builder, node ASTNode) {
	switch n := node.(type) {
	case *BinaryExpr:
		b.WriteByte('(')
		writeNode(b, n.Left)
		b.WriteByte(' ')
		b.WriteString(n.Operator)
		b.WriteByte(' ')
		writeNode(b, n.Right)
		b.WriteByte(')')
	case *UnaryExpr:
		b.WriteString(n.Operator)
		writeNode(b, n.Operand)
	case *LiteralExpr:
		writeLiteral(b, n)
	case *MemberExpr:
		b.WriteString(strings.Join(n.Path, "."))
	case *MethodCallExpr:
		writeNode(b, n.Target)
		b.WriteByte('.')
		b.WriteString(n.Name)
		b.WriteByte('(')
		for i, arg := range n.Args {
			if i > 0 {
				b.WriteString(", ")
			}
			writeLiteral(b, arg)
		}
		b.WriteByte(')')
	}
}

func writeLiteral(b *strings.Builder, lit *LiteralExpr) {
	if lit.Kind == LiteralString {
		b.WriteByte('"')
		b.WriteString(strings.ReplaceAll(lit.Raw, `"`, `\"`))
		b.WriteByte('"')
		return
	}
	b.WriteString(lit.Raw)
}

// Equal reports whether two trees are structurally equal, ignoring
// source positions.
func Equal(a, b ASTNode) bool {
	switch an := a.(type) {
	case *BinaryExpr:
		bn, ok := b.(*BinaryExpr)
		return ok && an.Operator == bn.Operator &&
			Equal(an.Left, bn.Left) && Equal(an.Right, bn.Right)
	case *UnaryExpr:
		bn, ok := b.(*UnaryExpr)
		return ok && an.Operator == bn.Operator && Equal(an.Operand, bn.Operand)
	case *LiteralExpr:
		bn, ok := b.(*LiteralExpr)
		return ok && literalEqual(an, bn)
	case *MemberExpr:
		bn, ok := b.(*MemberExpr)
		return ok && memberEqual(an, bn)
	case *MethodCallExpr:
		bn, ok := b.(*MethodCallExpr)
		if !ok || an.Name != bn.Name || !memberEqual(an.Target, bn.Target) {
			return false
		}
		if len(an.Args) != len(bn.Args) {
			return false
		}
		for i := range an.Args {
			if !literalEqual(an.Args[i], bn.Args[i]) {
				return false
			}
		}
		return true
	}
	return false
}

func literalEqual(a, b *LiteralExpr) bool {
	return a.Kind == b.Kind && a.Raw == b.Raw
}

func memberEqual(a, b *MemberExpr) bool {
	if len(a.Path) != len(b.Path) {
		return false
	}
	for i := range a.Path {
		if a.Path[i] != b.Path[i] {
			return false
		}
	}
	return true
}
