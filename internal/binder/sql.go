package binder

import (
	"fmt"
	"reflect"
	"strings"

	"gorm.io/gorm/schema"

	"github.com/nlstn/go-filter/internal/expr"
	"github.com/nlstn/go-filter/internal/metadata"
)

const likeEscapeClause = "ESCAPE '\\'"

var namer = schema.NamingStrategy{}

// SQL translates a bound expression's AST into a SQL WHERE clause with
// positional placeholders. Only top-level members can be translated;
// navigation paths would require join knowledge this library does not
// have. String equality translates to a case-insensitive comparison to
// match the in-memory semantics.
func SQL(node expr.ASTNode, t reflect.Type) (string, []any, error) {
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}

	b := &binder{typeName: t.Name()}
	meta, err := metadata.Analyze(t)
	if err != nil {
		return "", nil, b.errf("", "%v", err)
	}
	b.meta = meta

	s := &sqlBuilder{binder: b}
	clause, args, err := s.build(node)
	if err != nil {
		return "", nil, err
	}
	return clause, args, nil
}

type sqlBuilder struct {
	binder *binder
}

func (s *sqlBuilder) build(node expr.ASTNode) (string, []any, error) {
	switch n := node.(type) {
	case *expr.BinaryExpr:
		if n.Operator == "&&" || n.Operator == "||" {
			return s.buildLogical(n)
		}
		return s.buildComparison(n)

	case *expr.UnaryExpr:
		clause, args, err := s.build(n.Operand)
		if err != nil {
			return "", nil, err
		}
		return fmt.Sprintf("NOT (%s)", clause), args, nil

	case *expr.MethodCallExpr:
		return s.buildMethod(n)

	case *expr.MemberExpr:
		col, acc, err := s.column(n)
		if err != nil {
			return "", nil, err
		}
		if acc.Kind() != metadata.KindBool {
			return "", nil, s.binder.errf(strings.Join(n.Path, "."),
				"member of kind %s is not boolean-valued", acc.Kind())
		}
		return fmt.Sprintf("%s = ?", col), []any{true}, nil

	case *expr.LiteralExpr:
		if n.Kind != expr.LiteralBoolean {
			return "", nil, s.binder.errf("", "%s literal %q is not boolean-valued",
				literalKindName(n.Kind), n.Raw)
		}
		return constantClause(strings.EqualFold(n.Raw, "true")), nil, nil
	}

	return "", nil, s.binder.errf("", "unsupported expression node")
}

func (s *sqlBuilder) buildLogical(n *expr.BinaryExpr) (string, []any, error) {
	left, leftArgs, err := s.build(n.Left)
	if err != nil {
		return "", nil, err
	}
	right, rightArgs, err := s.build(n.Right)
	if err != nil {
		return "", nil, err
	}

	op := "AND"
	if n.Operator == "||" {
		op = "OR"
	}
	return fmt.Sprintf("(%s %s %s)", left, op, right), append(leftArgs, rightArgs...), nil
}

func (s *sqlBuilder) buildComparison(n *expr.BinaryExpr) (string, []any, error) {
	leftMember, leftIsMember := n.Left.(*expr.MemberExpr)
	rightMember, rightIsMember := n.Right.(*expr.MemberExpr)
	leftLit, leftIsLit := n.Left.(*expr.LiteralExpr)
	rightLit, rightIsLit := n.Right.(*expr.LiteralExpr)

	if (!leftIsMember && !leftIsLit) || (!rightIsMember && !rightIsLit) {
		return "", nil, s.binder.errf("", "operand of comparison %q must be a member or literal", n.Operator)
	}

	// Both sides literal: fold to a constant truth clause.
	if leftIsLit && rightIsLit {
		node, err := s.binder.bindComparison(n)
		if err != nil {
			return "", nil, err
		}
		return constantClause(node.eval(reflect.Value{})), nil, nil
	}

	if leftIsLit && leftLit.Kind == expr.LiteralNull {
		return s.buildNullCheck(rightMember, n.Operator)
	}
	if rightIsLit && rightLit.Kind == expr.LiteralNull {
		return s.buildNullCheck(leftMember, n.Operator)
	}

	if leftIsMember && rightIsMember {
		return s.buildMemberComparison(n, leftMember, rightMember)
	}

	member, lit, op := leftMember, rightLit, n.Operator
	if rightIsMember {
		member, lit, op = rightMember, leftLit, mirrorOperator(n.Operator)
	}
	return s.buildMemberLiteral(member, lit, op)
}

func (s *sqlBuilder) buildNullCheck(member *expr.MemberExpr, op string) (string, []any, error) {
	if op != "==" && op != "!=" {
		return "", nil, s.binder.errf("", "operator %q is not defined for null operands", op)
	}
	col, _, err := s.column(member)
	if err != nil {
		return "", nil, err
	}
	if op == "!=" {
		return fmt.Sprintf("%s IS NOT NULL", col), nil, nil
	}
	return fmt.Sprintf("%s IS NULL", col), nil, nil
}

func (s *sqlBuilder) buildMemberComparison(n *expr.BinaryExpr, left, right *expr.MemberExpr) (string, []any, error) {
	leftCol, leftAcc, err := s.column(left)
	if err != nil {
		return "", nil, err
	}
	rightCol, rightAcc, err := s.column(right)
	if err != nil {
		return "", nil, err
	}

	if leftAcc.Kind() != rightAcc.Kind() {
		return "", nil, s.binder.errf(strings.Join(left.Path, "."),
			"cannot compare member of kind %s with member %s of kind %s",
			leftAcc.Kind(), strings.Join(right.Path, "."), rightAcc.Kind())
	}
	if err := s.binder.checkOperator(n.Operator, leftAcc.Kind(), strings.Join(left.Path, ".")); err != nil {
		return "", nil, err
	}

	if stringKind(leftAcc.Kind()) && (n.Operator == "==" || n.Operator == "!=") {
		leftCol = fmt.Sprintf("LOWER(%s)", leftCol)
		rightCol = fmt.Sprintf("LOWER(%s)", rightCol)
	}
	return fmt.Sprintf("%s %s %s", leftCol, sqlOperator(n.Operator), rightCol), nil, nil
}

func (s *sqlBuilder) buildMemberLiteral(member *expr.MemberExpr, lit *expr.LiteralExpr, op string) (string, []any, error) {
	path := strings.Join(member.Path, ".")
	col, acc, err := s.column(member)
	if err != nil {
		return "", nil, err
	}
	if err := s.binder.checkOperator(op, acc.Kind(), path); err != nil {
		return "", nil, err
	}

	val, err := s.binder.literalValue(lit, acc.Kind(), path)
	if err != nil {
		return "", nil, err
	}

	if stringKind(acc.Kind()) && (op == "==" || op == "!=") {
		return fmt.Sprintf("LOWER(%s) %s LOWER(?)", col, sqlOperator(op)), []any{val.str}, nil
	}
	return fmt.Sprintf("%s %s ?", col, sqlOperator(op)), []any{sqlArg(acc.Kind(), val)}, nil
}

func (s *sqlBuilder) buildMethod(n *expr.MethodCallExpr) (string, []any, error) {
	path := strings.Join(n.Target.Path, ".")
	if !allowedMethods[n.Name] {
		return "", nil, s.binder.errf(path, "method %q is not allowed (allowed: Contains, StartsWith, EndsWith)", n.Name)
	}

	col, acc, err := s.column(n.Target)
	if err != nil {
		return "", nil, err
	}
	if acc.Kind() != metadata.KindString && acc.Kind() != metadata.KindUUID {
		return "", nil, s.binder.errf(path, "method %s requires a string member, got kind %s", n.Name, acc.Kind())
	}
	if len(n.Args) != 1 || n.Args[0].Kind != expr.LiteralString {
		return "", nil, s.binder.errf(path, "method %s requires a single string argument", n.Name)
	}

	pattern := escapeLikePattern(n.Args[0].Raw)
	switch n.Name {
	case "Contains":
		pattern = "%" + pattern + "%"
	case "StartsWith":
		pattern = pattern + "%"
	case "EndsWith":
		pattern = "%" + pattern
	}
	return fmt.Sprintf("%s LIKE ? %s", col, likeEscapeClause), []any{pattern}, nil
}

// column resolves a member to its column name. Only top-level members
// are supported; deeper paths would require join construction.
func (s *sqlBuilder) column(member *expr.MemberExpr) (string, *metadata.Accessor, error) {
	path := strings.Join(member.Path, ".")
	if len(member.Path) > 1 {
		return "", nil, s.binder.errf(path, "navigation paths are not supported in SQL translation")
	}

	acc, err := s.binder.meta.ResolvePath(member.Path)
	if err != nil {
		return "", nil, s.binder.errf(path, "%v", err)
	}
	return namer.ColumnName("", member.Path[0]), acc, nil
}

func escapeLikePattern(value string) string {
	replacer := strings.NewReplacer(
		"\\", "\\\\",
		"%", "\\%",
		"_", "\\_",
	)
	return replacer.Replace(value)
}

func sqlOperator(op string) string {
	switch op {
	case "==":
		return "="
	case "!=":
		return "<>"
	}
	return op
}

func sqlArg(kind metadata.Kind, val value) any {
	switch kind {
	case metadata.KindString, metadata.KindUUID:
		return val.str
	case metadata.KindNumber:
		return val.num
	case metadata.KindBool:
		return val.b
	case metadata.KindTime:
		return val.t
	}
	return nil
}

func stringKind(kind metadata.Kind) bool {
	return kind == metadata.KindString || kind == metadata.KindUUID
}

func constantClause(v bool) string {
	if v {
		return "1 = 1"
	}
	return "1 = 0"
}
