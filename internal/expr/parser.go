package expr

// DefaultMaxDepth is the maximum nesting depth accepted by the parser.
// The counter guards the recursion points of the grammar ('!' operands
// and parenthesized groups); the OR/AND productions are iterative and
// consume no stack.
const DefaultMaxDepth = 100

// predicateMethodArity lists the argument counts of the known string
// predicate methods. Arity is a grammar concern and is checked here;
// whether a method may be applied to a member is decided by the binder.
var predicateMethodArity = map[string]int{
	"Contains":   1,
	"StartsWith": 1,
	"EndsWith":   1,
}

// Parser parses a token stream into an AST via recursive descent.
type Parser struct {
	tokens   []Token
	current  int
	depth    int
	maxDepth int
}

// NewParser creates a new parser. A maxDepth of zero or less falls back
// to DefaultMaxDepth.
func NewParser(tokens []Token, maxDepth int) *Parser {
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}
	return &Parser{
		tokens:   tokens,
		current:  0,
		maxDepth: maxDepth,
	}
}

// currentToken returns the current token
func (p *Parser) currentToken() Token {
	if p.current >= len(p.tokens) {
		return Token{Type: TokenEOF}
	}
	return p.tokens[p.current]
}

// advance moves to the next token
func (p *Parser) advance() Token {
	token := p.currentToken()
	if p.current < len(p.tokens) {
		p.current++
	}
	return token
}

// enter increments the nesting depth around a recursion point.
func (p *Parser) enter(pos int) error {
	p.depth++
	if p.depth > p.maxDepth {
		return errDepthLimit(p.maxDepth, pos)
	}
	return nil
}

// leave decrements the nesting depth.
func (p *Parser) leave() {
	p.depth--
}

// Parse parses the tokens into an AST. A successful parse consumes
// every token up to and including EOF.
func (p *Parser) Parse() (ASTNode, error) {
	node, err := p.parseOr()
	if err != nil {
		return nil, err
	}

	if p.currentToken().Type != TokenEOF {
		return nil, errTrailingToken(p.currentToken())
	}

	return node, nil
}

// parseOr handles '||' expressions (lowest precedence)
func (p *Parser) parseOr() (ASTNode, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}

	for p.currentToken().Type == TokenLogical && p.currentToken().Value == "||" {
		op := p.advance()
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = &BinaryExpr{
			Left:     left,
			Operator: op.Value,
			Right:    right,
			Pos:      op.Pos,
		}
	}

	return left, nil
}

// parseAnd handles '&&' expressions
func (p *Parser) parseAnd() (ASTNode, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}

	for p.currentToken().Type == TokenLogical && p.currentToken().Value == "&&" {
		op := p.advance()
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = &BinaryExpr{
			Left:     left,
			Operator: op.Value,
			Right:    right,
			Pos:      op.Pos,
		}
	}

	return left, nil
}

// parseUnary handles '!' expressions
func (p *Parser) parseUnary() (ASTNode, error) {
	if p.currentToken().Type == TokenNot {
		op := p.advance()
		if err := p.enter(op.Pos); err != nil {
			return nil, err
		}
		operand, err := p.parseUnary()
		p.leave()
		if err != nil {
			return nil, err
		}
		return &UnaryExpr{
			Operator: op.Value,
			Operand:  operand,
			Pos:      op.Pos,
		}, nil
	}

	return p.parseComparison()
}

// parseComparison handles comparison expressions. The comparison
// operator is optional, so a bare boolean member is a valid operand
// for the logical combinators.
func (p *Parser) parseComparison() (ASTNode, error) {
	left, err := p.parseOperand()
	if err != nil {
		return nil, err
	}

	if p.currentToken().Type == TokenOperator {
		op := p.advance()
		right, err := p.parseOperand()
		if err != nil {
			return nil, err
		}
		return &BinaryExpr{
			Left:     left,
			Operator: op.Value,
			Right:    right,
			Pos:      op.Pos,
		}, nil
	}

	return left, nil
}

// parseOperand handles primary operands: member paths with an optional
// predicate method call, literals, and parenthesized expressions.
func (p *Parser) parseOperand() (ASTNode, error) {
	tok := p.currentToken()

	switch tok.Type {
	case TokenIdentifier:
		return p.parseMember()

	case TokenString:
		p.advance()
		return &LiteralExpr{Raw: tok.Value, Kind: LiteralString, Pos: tok.Pos}, nil

	case TokenNumber:
		p.advance()
		return &LiteralExpr{Raw: tok.Value, Kind: LiteralNumber, Pos: tok.Pos}, nil

	case TokenBoolean:
		p.advance()
		return &LiteralExpr{Raw: tok.Value, Kind: LiteralBoolean, Pos: tok.Pos}, nil

	case TokenNull:
		p.advance()
		return &LiteralExpr{Raw: tok.Value, Kind: LiteralNull, Pos: tok.Pos}, nil

	case TokenLParen:
		p.advance()
		if err := p.enter(tok.Pos); err != nil {
			return nil, err
		}
		node, err := p.parseOr()
		p.leave()
		if err != nil {
			return nil, err
		}
		if p.currentToken().Type != TokenRParen {
			return nil, errExpectedToken("')'", p.currentToken())
		}
		p.advance()
		return node, nil
	}

	return nil, errUnexpectedToken(tok)
}

// parseMember parses a dotted member chain. When the final segment is
// followed by '(', it is the name of a predicate method call on the
// preceding member.
func (p *Parser) parseMember() (ASTNode, error) {
	first := p.advance()
	member := &MemberExpr{Path: []string{first.Value}, Pos: first.Pos}

	for p.currentToken().Type == TokenDot {
		p.advance()
		seg := p.currentToken()
		if seg.Type != TokenIdentifier {
			return nil, errExpectedToken("identifier after '.'", seg)
		}
		p.advance()

		if p.currentToken().Type == TokenLParen {
			return p.parseMethodCall(member, seg)
		}

		member.Path = append(member.Path, seg.Value)
	}

	return member, nil
}

// parseMethodCall parses the argument list of a predicate method call.
// Arguments are restricted to literals.
func (p *Parser) parseMethodCall(target *MemberExpr, name Token) (ASTNode, error) {
	p.advance() // consume '('

	var args []*LiteralExpr
	for p.currentToken().Type != TokenRParen {
		arg := p.currentToken()
		switch arg.Type {
		case TokenString:
			args = append(args, &LiteralExpr{Raw: arg.Value, Kind: LiteralString, Pos: arg.Pos})
		case TokenNumber:
			args = append(args, &LiteralExpr{Raw: arg.Value, Kind: LiteralNumber, Pos: arg.Pos})
		case TokenBoolean:
			args = append(args, &LiteralExpr{Raw: arg.Value, Kind: LiteralBoolean, Pos: arg.Pos})
		case TokenNull:
			args = append(args, &LiteralExpr{Raw: arg.Value, Kind: LiteralNull, Pos: arg.Pos})
		default:
			return nil, errExpectedToken("literal argument", arg)
		}
		p.advance()

		if p.currentToken().Type == TokenComma {
			p.advance()
			if p.currentToken().Type == TokenRParen {
				return nil, errExpectedToken("literal argument", p.currentToken())
			}
			continue
		}
		break
	}

	if p.currentToken().Type != TokenRParen {
		return nil, errExpectedToken("')'", p.currentToken())
	}
	p.advance()

	if want, known := predicateMethodArity[name.Value]; known && len(args) != want {
		return nil, errMethodArity(name.Value, want, len(args), name.Pos)
	}

	return &MethodCallExpr{
		Target: target,
		Name:   name.Value,
		Args:   args,
		Pos:    name.Pos,
	}, nil
}
