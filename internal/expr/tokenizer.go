package expr

import (
	"strings"
	"unicode/utf8"
)

// DefaultMaxLength is the maximum accepted expression length in bytes.
// The limit is checked before any character is scanned so that oversized
// inputs are rejected at constant cost.
const DefaultMaxLength = 10000

// TokenType represents the type of a token
type TokenType int

const (
	TokenEOF TokenType = iota
	TokenIdentifier
	TokenString
	TokenNumber
	TokenBoolean
	TokenNull
	TokenOperator
	TokenLogical
	TokenNot
	TokenDot
	TokenComma
	TokenLParen
	TokenRParen
)

// Token represents a single token in the filter expression
type Token struct {
	Type  TokenType
	Value string
	Pos   int
}

// Tokenizer tokenizes filter expressions
type Tokenizer struct {
	input     string
	pos       int
	ch        byte
	maxLength int
}

// NewTokenizer creates a new tokenizer. A maxLength of zero or less
// falls back to DefaultMaxLength.
func NewTokenizer(input string, maxLength int) *Tokenizer {
	if maxLength <= 0 {
		maxLength = DefaultMaxLength
	}
	t := &Tokenizer{
		input:     input,
		pos:       0,
		maxLength: maxLength,
	}
	if len(input) > 0 {
		t.ch = input[0]
	}
	return t
}

// advance moves to the next character
func (t *Tokenizer) advance() {
	t.pos++
	if t.pos >= len(t.input) {
		t.ch = 0 // EOF
	} else {
		t.ch = t.input[t.pos]
	}
}

// peek looks ahead without advancing
func (t *Tokenizer) peek() byte {
	if t.pos+1 >= len(t.input) {
		return 0
	}
	return t.input[t.pos+1]
}

// skipWhitespace skips whitespace characters
func (t *Tokenizer) skipWhitespace() {
	for t.ch == ' ' || t.ch == '\t' || t.ch == '\n' || t.ch == '\r' {
		t.advance()
	}
}

// readString reads a double-quoted string. A backslash escapes an
// embedded quote; any other backslash is kept literally.
func (t *Tokenizer) readString() (string, error) {
	start := t.pos
	t.advance() // skip opening quote

	var result strings.Builder
	for t.ch != 0 && t.ch != '"' {
		if t.ch == '\\' && t.peek() == '"' {
			t.advance()
		}
		result.WriteByte(t.ch)
		t.advance()
	}

	if t.ch != '"' {
		return "", errUnterminatedString(start)
	}
	t.advance() // skip closing quote

	return result.String(), nil
}

// readNumber reads a run of digits with at most one decimal point.
// Exponent notation is not part of the grammar. A leading '-' has
// already been consumed by the caller when present.
func (t *Tokenizer) readNumber(result *strings.Builder) string {
	for isDigit(t.ch) {
		result.WriteByte(t.ch)
		t.advance()
	}

	if t.ch == '.' && isDigit(t.peek()) {
		result.WriteByte(t.ch)
		t.advance()
		for isDigit(t.ch) {
			result.WriteByte(t.ch)
			t.advance()
		}
	}

	return result.String()
}

// readIdentifier reads an identifier or keyword
func (t *Tokenizer) readIdentifier() string {
	start := t.pos
	for t.ch != 0 && (isLetter(t.ch) || isDigit(t.ch) || t.ch == '_') {
		t.advance()
	}
	return t.input[start:t.pos]
}

// NextToken returns the next token
func (t *Tokenizer) NextToken() (Token, error) {
	t.skipWhitespace()

	if t.ch == 0 {
		return Token{Type: TokenEOF, Pos: t.pos}, nil
	}

	pos := t.pos

	switch {
	case t.ch == '"':
		value, err := t.readString()
		if err != nil {
			return Token{}, err
		}
		return Token{Type: TokenString, Value: value, Pos: pos}, nil

	case isDigit(t.ch) || (t.ch == '-' && isDigit(t.peek())):
		var result strings.Builder
		if t.ch == '-' {
			result.WriteByte(t.ch)
			t.advance()
		}
		value := t.readNumber(&result)
		return Token{Type: TokenNumber, Value: value, Pos: pos}, nil

	case isLetter(t.ch) || t.ch == '_':
		value := t.readIdentifier()
		switch strings.ToLower(value) {
		case "true", "false":
			return Token{Type: TokenBoolean, Value: value, Pos: pos}, nil
		case "null":
			return Token{Type: TokenNull, Value: value, Pos: pos}, nil
		}
		return Token{Type: TokenIdentifier, Value: value, Pos: pos}, nil
	}

	if tok, ok := t.nextPunctuation(pos); ok {
		return tok, nil
	}

	r, _ := utf8.DecodeRuneInString(t.input[t.pos:])
	return Token{}, errUnexpectedChar(r, pos)
}

// nextPunctuation tokenizes operators and single-character punctuation.
func (t *Tokenizer) nextPunctuation(pos int) (Token, bool) {
	switch t.ch {
	case '(':
		t.advance()
		return Token{Type: TokenLParen, Value: "(", Pos: pos}, true
	case ')':
		t.advance()
		return Token{Type: TokenRParen, Value: ")", Pos: pos}, true
	case ',':
		t.advance()
		return Token{Type: TokenComma, Value: ",", Pos: pos}, true
	case '.':
		t.advance()
		return Token{Type: TokenDot, Value: ".", Pos: pos}, true
	case '=':
		if t.peek() == '=' {
			t.advance()
			t.advance()
			return Token{Type: TokenOperator, Value: "==", Pos: pos}, true
		}
	case '!':
		if t.peek() == '=' {
			t.advance()
			t.advance()
			return Token{Type: TokenOperator, Value: "!=", Pos: pos}, true
		}
		t.advance()
		return Token{Type: TokenNot, Value: "!", Pos: pos}, true
	case '>':
		if t.peek() == '=' {
			t.advance()
			t.advance()
			return Token{Type: TokenOperator, Value: ">=", Pos: pos}, true
		}
		t.advance()
		return Token{Type: TokenOperator, Value: ">", Pos: pos}, true
	case '<':
		if t.peek() == '=' {
			t.advance()
			t.advance()
			return Token{Type: TokenOperator, Value: "<=", Pos: pos}, true
		}
		t.advance()
		return Token{Type: TokenOperator, Value: "<", Pos: pos}, true
	case '&':
		if t.peek() == '&' {
			t.advance()
			t.advance()
			return Token{Type: TokenLogical, Value: "&&", Pos: pos}, true
		}
	case '|':
		if t.peek() == '|' {
			t.advance()
			t.advance()
			return Token{Type: TokenLogical, Value: "||", Pos: pos}, true
		}
	}
	return Token{}, false
}

// TokenizeAll returns all tokens from the input. The length limit is
// enforced before the first character is scanned.
func (t *Tokenizer) TokenizeAll() ([]Token, error) {
	if len(t.input) > t.maxLength {
		return nil, errLengthLimit(len(t.input), t.maxLength)
	}

	var tokens []Token

	for {
		token, err := t.NextToken()
		if err != nil {
			return nil, err
		}

		tokens = append(tokens, token)

		if token.Type == TokenEOF {
			break
		}
	}

	return tokens, nil
}

func isDigit(ch byte) bool {
	return ch >= '0' && ch <= '9'
}

func isLetter(ch byte) bool {
	return (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z')
}
