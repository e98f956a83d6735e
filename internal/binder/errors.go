package binder

import "fmt"

// EvaluationError reports a failure to bind a parsed expression against
// the target type: unresolvable member paths, operator/type mismatches,
// disallowed method calls, and unparsable literals.
type EvaluationError struct {
	// Type is the name of the target type the expression was bound against.
	Type string
	// Path is the dotted member path involved, empty when the failure is
	// not tied to a member.
	Path string
	// Reason describes the failure without the type/path prefix.
	Reason string

	message string
}

// Error implements the error interface.
func (e *EvaluationError) Error() string {
	return e.message
}

func (b *binder) errf(path string, format string, args ...any) *EvaluationError {
	reason := fmt.Sprintf(format, args...)
	msg := reason
	if path != "" {
		msg = fmt.Sprintf("%s: %s", path, msg)
	}
	return &EvaluationError{
		Type:    b.typeName,
		Path:    path,
		Reason:  reason,
		message: fmt.Sprintf("cannot bind filter against %s: %s", b.typeName, msg),
	}
}
