package expr

import "fmt"

// TokenizeError reports a failure to turn raw filter text into tokens.
// It is raised for unexpected characters, unterminated string literals,
// and violations of the maximum expression length.
type TokenizeError struct {
	// Char is the offending character, 0 for length-limit violations.
	Char rune
	// Pos is the byte offset of the offending character.
	Pos int
	// Length and Limit are set when the input exceeded the maximum length.
	Length int
	Limit  int

	message string
}

// Error implements the error interface.
func (e *TokenizeError) Error() string {
	return e.message
}

func errUnexpectedChar(ch rune, pos int) *TokenizeError {
	return &TokenizeError{
		Char:    ch,
		Pos:     pos,
		message: fmt.Sprintf("unexpected character '%c' at position %d", ch, pos),
	}
}

func errUnterminatedString(pos int) *TokenizeError {
	return &TokenizeError{
		Char:    '"',
		Pos:     pos,
		message: fmt.Sprintf("unterminated string literal starting at position %d", pos),
	}
}

func errLengthLimit(length, limit int) *TokenizeError {
	return &TokenizeError{
		Length:  length,
		Limit:   limit,
		message: fmt.Sprintf("expression length %d exceeds the maximum of %d characters", length, limit),
	}
}

// ParseError reports a grammar violation or a nesting-depth violation.
type ParseError struct {
	// Token is the text of the offending token, empty for depth violations.
	Token string
	// Pos is the byte offset of the offending token.
	Pos int
	// Depth is the configured maximum nesting depth, 0 unless the
	// depth limit was exceeded.
	Depth int

	message string
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	return e.message
}

func errUnexpectedToken(tok Token) *ParseError {
	return &ParseError{
		Token:   tok.Value,
		Pos:     tok.Pos,
		message: fmt.Sprintf("unexpected %s at position %d", tokenText(tok), tok.Pos),
	}
}

func errExpectedToken(want string, got Token) *ParseError {
	return &ParseError{
		Token:   got.Value,
		Pos:     got.Pos,
		message: fmt.Sprintf("expected %s, got %s at position %d", want, tokenText(got), got.Pos),
	}
}

func errTrailingToken(tok Token) *ParseError {
	return &ParseError{
		Token:   tok.Value,
		Pos:     tok.Pos,
		message: fmt.Sprintf("unexpected %s after expression at position %d", tokenText(tok), tok.Pos),
	}
}

func errMethodArity(name string, want, got, pos int) *ParseError {
	return &ParseError{
		Token:   name,
		Pos:     pos,
		message: fmt.Sprintf("method %s requires %d argument(s), got %d", name, want, got),
	}
}

func errDepthLimit(limit, pos int) *ParseError {
	return &ParseError{
		Pos:     pos,
		Depth:   limit,
		message: fmt.Sprintf("expression nesting exceeds the maximum depth of %d", limit),
	}
}

// tokenText renders a token for error messages. EOF has no text of its own.
func tokenText(tok Token) string {
	if tok.Type == TokenEOF {
		return "end of input"
	}
	return fmt.Sprintf("token %q", tok.Value)
}
