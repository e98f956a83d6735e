package filter

import (
	"errors"

	"github.com/nlstn/go-filter/internal/binder"
	"github.com/nlstn/go-filter/internal/expr"
)

// TokenizationError is returned when the raw filter text cannot be
// turned into tokens: an unexpected character, an unterminated string
// literal, or a violation of the maximum expression length. It carries
// the offending character and position, or the length and limit.
type TokenizationError = expr.TokenizeError

// ParseError is returned when the token stream violates the grammar or
// the maximum nesting depth. It carries the offending token and its
// position, or the configured depth limit.
type ParseError = expr.ParseError

// EvaluationError is returned when a parsed expression cannot be bound
// against the target type: an unresolvable member path, an
// operator/type mismatch, a disallowed method call, or an unparsable
// literal. It carries the target type name and the member path.
type EvaluationError = binder.EvaluationError

// IsTokenizationError reports whether err is, or wraps, a
// TokenizationError.
func IsTokenizationError(err error) bool {
	var e *TokenizationError
	return errors.As(err, &e)
}

// IsParseError reports whether err is, or wraps, a ParseError.
func IsParseError(err error) bool {
	var e *ParseError
	return errors.As(err, &e)
}

// IsEvaluationError reports whether err is, or wraps, an
// EvaluationError.
func IsEvaluationError(err error) bool {
	var e *EvaluationError
	return errors.As(err, &e)
}
