package binder

import (
	"reflect"
	"strings"

	"github.com/nlstn/go-filter/internal/expr"
	"github.com/nlstn/go-filter/internal/metadata"
)

// allowedMethods is the allow-list of predicate method calls. Each one
// requires a string-like target member and a single string argument.
var allowedMethods = map[string]bool{
	"Contains":   true,
	"StartsWith": true,
	"EndsWith":   true,
}

// Predicate is a compiled, reusable boolean predicate bound to one
// target struct type. It holds no reference back into tokenizer or
// parser state and is safe for concurrent use.
type Predicate struct {
	root boolNode
	typ  reflect.Type
}

// Type returns the struct type the predicate was bound against.
func (p *Predicate) Type() reflect.Type { return p.typ }

// Evaluate applies the predicate to one instance of the target type.
// The value must be the (dereferenced) struct the predicate was bound
// against; Bind callers are responsible for the dereference.
func (p *Predicate) Evaluate(root reflect.Value) bool {
	return p.root.eval(root)
}

// Bind compiles an AST into a predicate over the target type in a
// single top-down pass. Compilation is all-or-nothing: on any failure
// only an *EvaluationError is returned.
func Bind(node expr.ASTNode, t reflect.Type) (*Predicate, error) {
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}

	b := &binder{typeName: t.Name()}

	meta, err := metadata.Analyze(t)
	if err != nil {
		return nil, b.errf("", "%v", err)
	}
	b.meta = meta

	root, err := b.bindBool(node)
	if err != nil {
		return nil, err
	}

	return &Predicate{root: root, typ: t}, nil
}

type binder struct {
	typeName string
	meta     *metadata.TypeMetadata
}

// boolNode is a bound, boolean-valued evaluation node.
type boolNode interface {
	eval(root reflect.Value) bool
}

type andNode struct{ left, right boolNode }

func (n *andNode) eval(root reflect.Value) bool { return n.left.eval(root) && n.right.eval(root) }

type orNode struct{ left, right boolNode }

func (n *orNode) eval(root reflect.Value) bool { return n.left.eval(root) || n.right.eval(root) }

type notNode struct{ operand boolNode }

func (n *notNode) eval(root reflect.Value) bool { return !n.operand.eval(root) }

type constBoolNode struct{ v bool }

func (n *constBoolNode) eval(reflect.Value) bool { return n.v }

// boolMemberNode evaluates a bare boolean member. A nil pointer along
// the navigation path evaluates to false.
type boolMemberNode struct{ acc *metadata.Accessor }

func (n *boolMemberNode) eval(root reflect.Value) bool {
	v, ok := n.acc.Get(root)
	return ok && v.Bool()
}

// nullCheckNode evaluates a `member == null` / `member != null`
// comparison. The member is null when any pointer along its path,
// including the member itself, is nil.
type nullCheckNode struct {
	acc    *metadata.Accessor
	negate bool
}

func (n *nullCheckNode) eval(root reflect.Value) bool {
	_, ok := n.acc.Get(root)
	isNull := !ok
	if n.negate {
		return !isNull
	}
	return isNull
}

// operand is one side of a bound comparison: either a member accessor
// or a pre-parsed constant.
type operand struct {
	acc *metadata.Accessor
	val value
}

func (o *operand) resolve(root reflect.Value, kind metadata.Kind) (value, bool) {
	if o.acc == nil {
		return o.val, true
	}
	v, ok := o.acc.Get(root)
	if !ok {
		return value{}, false
	}
	return memberValue(v, kind), true
}

// cmpNode evaluates a comparison whose operands were bound to a common
// kind. A nil pointer along either side's path evaluates to false.
type cmpNode struct {
	op          string
	kind        metadata.Kind
	left, right operand
}

func (n *cmpNode) eval(root reflect.Value) bool {
	l, ok := n.left.resolve(root, n.kind)
	if !ok {
		return false
	}
	r, ok := n.right.resolve(root, n.kind)
	if !ok {
		return false
	}
	return compare(n.op, n.kind, l, r)
}

// compare applies a comparison operator to two normalized values.
// String equality is ordinal and case-insensitive by design; ordering
// is only ever bound for numbers and dates.
func compare(op string, kind metadata.Kind, l, r value) bool {
	switch kind {
	case metadata.KindString, metadata.KindUUID:
		eq := strings.EqualFold(l.str, r.str)
		if op == "!=" {
			return !eq
		}
		return eq

	case metadata.KindBool:
		eq := l.b == r.b
		if op == "!=" {
			return !eq
		}
		return eq

	case metadata.KindTime:
		switch op {
		case "==":
			return l.t.Equal(r.t)
		case "!=":
			return !l.t.Equal(r.t)
		case ">":
			return l.t.After(r.t)
		case "<":
			return l.t.Before(r.t)
		case ">=":
			return !l.t.Before(r.t)
		case "<=":
			return !l.t.After(r.t)
		}

	case metadata.KindNumber:
		c := l.num.Cmp(r.num)
		switch op {
		case "==":
			return c == 0
		case "!=":
			return c != 0
		case ">":
			return c > 0
		case "<":
			return c < 0
		case ">=":
			return c >= 0
		case "<=":
			return c <= 0
		}
	}
	return false
}

// methodNode evaluates an allow-listed string predicate method.
// Matching is ordinal and case-sensitive.
type methodNode struct {
	acc    *metadata.Accessor
	method string
	arg    string
}

func (n *methodNode) eval(root reflect.Value) bool {
	v, ok := n.acc.Get(root)
	if !ok {
		return false
	}
	s := memberValue(v, n.acc.Kind()).str
	switch n.method {
	case "Contains":
		return strings.Contains(s, n.arg)
	case "StartsWith":
		return strings.HasPrefix(s, n.arg)
	case "EndsWith":
		return strings.HasSuffix(s, n.arg)
	}
	return false
}

// bindBool binds a node that must produce a boolean value: logical
// combinators, comparisons, method calls, boolean members, and boolean
// literals.
func (b *binder) bindBool(node expr.ASTNode) (boolNode, error) {
	switch n := node.(type) {
	case *expr.BinaryExpr:
		if n.Operator == "&&" || n.Operator == "||" {
			return b.bindLogical(n)
		}
		return b.bindComparison(n)

	case *expr.UnaryExpr:
		operand, err := b.bindBool(n.Operand)
		if err != nil {
			return nil, err
		}
		return &notNode{operand: operand}, nil

	case *expr.MethodCallExpr:
		return b.bindMethod(n)

	case *expr.MemberExpr:
		path := strings.Join(n.Path, ".")
		acc, err := b.meta.ResolvePath(n.Path)
		if err != nil {
			return nil, b.errf(path, "%v", err)
		}
		if acc.Kind() != metadata.KindBool {
			return nil, b.errf(path, "member of kind %s is not boolean-valued", acc.Kind())
		}
		return &boolMemberNode{acc: acc}, nil

	case *expr.LiteralExpr:
		if n.Kind != expr.LiteralBoolean {
			return nil, b.errf("", "%s literal %q is not boolean-valued",
				literalKindName(n.Kind), n.Raw)
		}
		return &constBoolNode{v: strings.EqualFold(n.Raw, "true")}, nil
	}

	return nil, b.errf("", "unsupported expression node")
}

func (b *binder) bindLogical(n *expr.BinaryExpr) (boolNode, error) {
	left, err := b.bindBool(n.Left)
	if err != nil {
		return nil, err
	}
	right, err := b.bindBool(n.Right)
	if err != nil {
		return nil, err
	}
	if n.Operator == "&&" {
		return &andNode{left: left, right: right}, nil
	}
	return &orNode{left: left, right: right}, nil
}

// isOrdering reports whether op is one of the ordering comparisons,
// which are defined only for numeric and date operands.
func isOrdering(op string) bool {
	return op == ">" || op == "<" || op == ">=" || op == "<="
}

func (b *binder) bindComparison(n *expr.BinaryExpr) (boolNode, error) {
	leftMember, leftIsMember := n.Left.(*expr.MemberExpr)
	rightMember, rightIsMember := n.Right.(*expr.MemberExpr)
	leftLit, leftIsLit := n.Left.(*expr.LiteralExpr)
	rightLit, rightIsLit := n.Right.(*expr.LiteralExpr)

	if !leftIsMember && !leftIsLit {
		return nil, b.errf("", "left side of comparison %q must be a member or literal", n.Operator)
	}
	if !rightIsMember && !rightIsLit {
		return nil, b.errf("", "right side of comparison %q must be a member or literal", n.Operator)
	}

	// Null comparisons are a nil check on a member, valid only with == / !=.
	if leftIsLit && leftLit.Kind == expr.LiteralNull || rightIsLit && rightLit.Kind == expr.LiteralNull {
		return b.bindNullComparison(n, leftMember, rightMember, leftIsMember, rightIsMember)
	}

	switch {
	case leftIsMember && rightIsMember:
		return b.bindMemberComparison(n, leftMember, rightMember)

	case leftIsMember:
		return b.bindMemberLiteral(n, leftMember, rightLit, false)

	case rightIsMember:
		return b.bindMemberLiteral(n, rightMember, leftLit, true)
	}

	return b.bindLiteralComparison(n, leftLit, rightLit)
}

func (b *binder) bindNullComparison(n *expr.BinaryExpr, leftMember, rightMember *expr.MemberExpr, leftIsMember, rightIsMember bool) (boolNode, error) {
	if n.Operator != "==" && n.Operator != "!=" {
		return nil, b.errf("", "operator %q is not defined for null operands", n.Operator)
	}

	var member *expr.MemberExpr
	switch {
	case leftIsMember:
		member = leftMember
	case rightIsMember:
		member = rightMember
	default:
		return nil, b.errf("", "null comparison requires a member operand")
	}

	path := strings.Join(member.Path, ".")
	acc, err := b.meta.ResolvePath(member.Path)
	if err != nil {
		return nil, b.errf(path, "%v", err)
	}
	return &nullCheckNode{acc: acc, negate: n.Operator == "!="}, nil
}

func (b *binder) bindMemberComparison(n *expr.BinaryExpr, left, right *expr.MemberExpr) (boolNode, error) {
	leftPath := strings.Join(left.Path, ".")
	rightPath := strings.Join(right.Path, ".")

	leftAcc, err := b.meta.ResolvePath(left.Path)
	if err != nil {
		return nil, b.errf(leftPath, "%v", err)
	}
	rightAcc, err := b.meta.ResolvePath(right.Path)
	if err != nil {
		return nil, b.errf(rightPath, "%v", err)
	}

	if leftAcc.Kind() != rightAcc.Kind() {
		return nil, b.errf(leftPath, "cannot compare member of kind %s with member %s of kind %s",
			leftAcc.Kind(), rightPath, rightAcc.Kind())
	}
	if err := b.checkOperator(n.Operator, leftAcc.Kind(), leftPath); err != nil {
		return nil, err
	}

	return &cmpNode{
		op:    n.Operator,
		kind:  leftAcc.Kind(),
		left:  operand{acc: leftAcc},
		right: operand{acc: rightAcc},
	}, nil
}

// bindMemberLiteral binds a member-vs-literal comparison. When swapped
// is true the literal was on the left, so the operator direction is
// mirrored to keep the member on the left of the bound node.
func (b *binder) bindMemberLiteral(n *expr.BinaryExpr, member *expr.MemberExpr, lit *expr.LiteralExpr, swapped bool) (boolNode, error) {
	path := strings.Join(member.Path, ".")
	acc, err := b.meta.ResolvePath(member.Path)
	if err != nil {
		return nil, b.errf(path, "%v", err)
	}

	op := n.Operator
	if swapped {
		op = mirrorOperator(op)
	}
	if err := b.checkOperator(op, acc.Kind(), path); err != nil {
		return nil, err
	}

	val, err := b.literalValue(lit, acc.Kind(), path)
	if err != nil {
		return nil, err
	}

	return &cmpNode{
		op:    op,
		kind:  acc.Kind(),
		left:  operand{acc: acc},
		right: operand{val: val},
	}, nil
}

func (b *binder) bindLiteralComparison(n *expr.BinaryExpr, left, right *expr.LiteralExpr) (boolNode, error) {
	kind := naturalKind(left)
	if kind != naturalKind(right) {
		return nil, b.errf("", "cannot compare %s literal %q with %s literal %q",
			literalKindName(left.Kind), left.Raw, literalKindName(right.Kind), right.Raw)
	}
	if err := b.checkOperator(n.Operator, kind, ""); err != nil {
		return nil, err
	}

	lv, err := b.literalValue(left, kind, "")
	if err != nil {
		return nil, err
	}
	rv, err := b.literalValue(right, kind, "")
	if err != nil {
		return nil, err
	}

	return &constBoolNode{v: compare(n.Operator, kind, lv, rv)}, nil
}

// checkOperator validates operator/kind compatibility: comparisons are
// defined only for scalar kinds, and ordering only for numbers and
// dates. Callers must use the predicate methods or equality on strings
// instead of ordering.
func (b *binder) checkOperator(op string, kind metadata.Kind, path string) error {
	switch kind {
	case metadata.KindNumber, metadata.KindTime:
		return nil
	case metadata.KindString, metadata.KindUUID, metadata.KindBool:
		if isOrdering(op) {
			return b.errf(path, "ordering operator %q is not defined for %s operands", op, kind)
		}
		return nil
	}
	return b.errf(path, "operator %q is not defined for %s operands", op, kind)
}

func mirrorOperator(op string) string {
	switch op {
	case ">":
		return "<"
	case "<":
		return ">"
	case ">=":
		return "<="
	case "<=":
		return ">="
	}
	return op
}

func (b *binder) bindMethod(n *expr.MethodCallExpr) (boolNode, error) {
	path := strings.Join(n.Target.Path, ".")

	if !allowedMethods[n.Name] {
		return nil, b.errf(path, "method %q is not allowed (allowed: Contains, StartsWith, EndsWith)", n.Name)
	}

	acc, err := b.meta.ResolvePath(n.Target.Path)
	if err != nil {
		return nil, b.errf(path, "%v", err)
	}
	if acc.Kind() != metadata.KindString && acc.Kind() != metadata.KindUUID {
		return nil, b.errf(path, "method %s requires a string member, got kind %s", n.Name, acc.Kind())
	}

	if len(n.Args) != 1 || n.Args[0].Kind != expr.LiteralString {
		return nil, b.errf(path, "method %s requires a single string argument", n.Name)
	}

	return &methodNode{acc: acc, method: n.Name, arg: n.Args[0].Raw}, nil
}
