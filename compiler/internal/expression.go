package internal

import (
	"strconv"
)

var (
	equalityOps = map[TokenType]OperatorKind{
		EqualTP:    Equal,
		NotEqualTP: NotEqual,
	}
	relationalOps = map[TokenType]OperatorKind{
		LessTP:         Less,
		LessEqualTP:    LessEqual,
		GreaterTP:      Greater,
		GreaterEqualTP: GreaterEqual,
	}
	addOps = map[TokenType]OperatorKind{
		AddTP:   Add,
		MinusTP: Sub,
	}
	mulOps = map[TokenType]OperatorKind{
		MultiplyTP: Mul,
		DivideTP:   Div,
	}
)

// buildExpressionsTree folds terms and the operators between them into a left leaning tree, so
// 9 - 5 - 1 becomes ((9 - 5) - 1):
//
//	          -
//	        /   \
//	       -     1
//	     /   \
//	    9     5
//
// len(terms) must be len(ops) + 1.
func buildExpressionsTree(ops []OperatorKind, terms []Expr) Expr {
	lhs := terms[0]
	for i, op := range ops {
		lhs = &BinaryOperation{Op: op, Left: lhs, Right: terms[i+1]}
	}
	return lhs
}

func (parser *Parser) parseExpression() (Expr, error) {
	defer parser.enter("expr")()
	return parser.parseAssign()
}

// assign := equality ('=' assign)?
// Assignment is the only right associative operator, so it recurses instead of folding.
func (parser *Parser) parseAssign() (Expr, error) {
	defer parser.enter("assign")()
	targetToken := parser.getCurrentToken()
	left, err := parser.parseEquality()
	if err != nil {
		return nil, err
	}
	if _, match := parser.expectToken(AssignTP, false); !match {
		return left, nil
	}
	if _, isIdent := left.(*Ident); !isIdent {
		return nil, parser.makeErrorAt(targetToken, "invalid assignment target "+left.String(),
			IdentifierTP.String())
	}
	parser.stepForward()
	right, err := parser.parseAssign()
	if err != nil {
		return nil, err
	}
	return &BinaryOperation{Op: Assign, Left: left, Right: right}, nil
}

func (parser *Parser) parseEquality() (Expr, error) {
	return parser.parseBinaryLevel("equality", equalityOps, parser.parseRelational)
}

func (parser *Parser) parseRelational() (Expr, error) {
	return parser.parseBinaryLevel("relational", relationalOps, parser.parseAdd)
}

func (parser *Parser) parseAdd() (Expr, error) {
	return parser.parseBinaryLevel("add", addOps, parser.parseMul)
}

func (parser *Parser) parseMul() (Expr, error) {
	return parser.parseBinaryLevel("mul", mulOps, parser.parseUnary)
}

// parseBinaryLevel parses `next (op next)*` for one precedence level. Operators and operands are collected
// first and folded afterwards, never by recursing on the right operand at the same level.
func (parser *Parser) parseBinaryLevel(production string, ops map[TokenType]OperatorKind,
	next func() (Expr, error)) (Expr, error) {
	defer parser.enter(production)()
	term, err := next()
	if err != nil {
		return nil, err
	}
	terms := []Expr{term}
	var kinds []OperatorKind
	for {
		op, match := ops[parser.getCurrentToken().tp]
		if !match {
			break
		}
		parser.stepForward()
		term, err = next()
		if err != nil {
			return nil, err
		}
		kinds = append(kinds, op)
		terms = append(terms, term)
	}
	return buildExpressionsTree(kinds, terms), nil
}

// unary := ('+' | '-')? primary
// -x is rewritten to 0 - x. Only one sign is allowed, so --1 is a syntax error.
func (parser *Parser) parseUnary() (Expr, error) {
	defer parser.enter("unary")()
	token := parser.getCurrentToken()
	switch token.tp {
	case AddTP:
		parser.stepForward()
		return parser.parsePrimary()
	case MinusTP:
		parser.stepForward()
		operand, err := parser.parsePrimary()
		if err != nil {
			return nil, err
		}
		return &BinaryOperation{Op: Sub, Left: &Num{Value: 0}, Right: operand}, nil
	default:
		return parser.parsePrimary()
	}
}

// primary := num | ident | '(' expr ')'
func (parser *Parser) parsePrimary() (Expr, error) {
	defer parser.enter("primary")()
	token := parser.getCurrentToken()
	switch token.tp {
	case IntegerTP:
		value, err := strconv.ParseInt(token.content, 10, 64)
		if err != nil {
			return nil, parser.makeError("integer literal out of range", IntegerTP.String())
		}
		parser.stepForward()
		return &Num{Value: value}, nil
	case IdentifierTP:
		parser.stepForward()
		return &Ident{Name: token.content}, nil
	case LeftParentThesesTP:
		parser.stepForward()
		expr, err := parser.parseExpression()
		if err != nil {
			return nil, err
		}
		if _, err = parser.expect(RightParentThesesTP); err != nil {
			return nil, err
		}
		return expr, nil
	default:
		return nil, parser.makeError("", IntegerTP.String(), IdentifierTP.String(), LeftParentThesesTP.String())
	}
}
