package internal

// The grammar, from the lowest precedence to the highest:
//
//	program    := stmt* EOF
//	stmt       := expr ';'
//	            | 'return' expr ';'
//	            | 'if' '(' expr ')' stmt ('else' stmt)?
//	            | 'while' '(' expr ')' stmt
//	            | 'for' '(' expr? ';' expr? ';' expr? ')' stmt
//	            | '{' stmt* '}'
//	expr       := assign
//	assign     := equality ('=' assign)?
//	equality   := relational (('==' | '!=') relational)*
//	relational := add (('<' | '<=' | '>' | '>=') add)*
//	add        := mul (('+' | '-') mul)*
//	mul        := unary (('*' | '/') unary)*
//	unary      := ('+' | '-')? primary
//	primary    := num | ident | '(' expr ')'
type Parser struct {
	currentTokenPos int
	currentTokens   []*Token
	// productions is the stack of grammar rules being parsed, used to describe where a syntax error happened.
	productions []string
}

// Parse tokenizes and parses src. The first syntax error stops the parse and is returned as a *ParseError.
func Parse(src string) (*Program, error) {
	tokenizer := &Tokenizer{}
	tokens, err := tokenizer.Tokenize(src)
	if err != nil {
		return nil, err
	}
	parser := &Parser{currentTokens: tokens}
	return parser.parseProgram()
}

// enter pushes a production and returns the func popping it, meant to be deferred.
func (parser *Parser) enter(production string) func() {
	parser.productions = append(parser.productions, production)
	return func() {
		parser.productions = parser.productions[:len(parser.productions)-1]
	}
}

func (parser *Parser) parseProgram() (*Program, error) {
	defer parser.enter("program")()
	program := &Program{}
	for !parser.atEOF() {
		stmt, err := parser.parseStatement()
		if err != nil {
			return nil, err
		}
		program.Stmts = append(program.Stmts, stmt)
	}
	return program, nil
}

func (parser *Parser) parseStatement() (Expr, error) {
	defer parser.enter("stmt")()
	token := parser.getCurrentToken()
	switch token.tp {
	case ReturnTP:
		return parser.parseReturnStatement()
	case IfTP:
		return parser.parseIfStatement()
	case WhileTP:
		return parser.parseWhileStatement()
	case ForTP:
		return parser.parseForStatement()
	case LeftBraceTP:
		return parser.parseBlockStatement()
	default:
		return parser.parseExpressionStatement()
	}
}

// expr ;
func (parser *Parser) parseExpressionStatement() (Expr, error) {
	expr, err := parser.parseExpression()
	if err != nil {
		return nil, err
	}
	if _, err = parser.expect(SemiColonTP); err != nil {
		return nil, err
	}
	return expr, nil
}

// return expr ;
func (parser *Parser) parseReturnStatement() (Expr, error) {
	if _, err := parser.expect(ReturnTP); err != nil {
		return nil, err
	}
	expr, err := parser.parseExpression()
	if err != nil {
		return nil, err
	}
	if _, err = parser.expect(SemiColonTP); err != nil {
		return nil, err
	}
	return &Return{Expr: expr}, nil
}

// if (condition) stmt [else stmt]
func (parser *Parser) parseIfStatement() (Expr, error) {
	cond, err := parser.parseCondition(IfTP)
	if err != nil {
		return nil, err
	}
	then, err := parser.parseStatement()
	if err != nil {
		return nil, err
	}
	stmt := &If{Cond: cond, Then: then}
	// A dangling else belongs to the nearest if.
	if _, match := parser.expectToken(ElseTP, true); match {
		stmt.Else, err = parser.parseStatement()
		if err != nil {
			return nil, err
		}
	}
	return stmt, nil
}

// while (condition) stmt
func (parser *Parser) parseWhileStatement() (Expr, error) {
	cond, err := parser.parseCondition(WhileTP)
	if err != nil {
		return nil, err
	}
	body, err := parser.parseStatement()
	if err != nil {
		return nil, err
	}
	return &While{Cond: cond, Body: body}, nil
}

// parseCondition parses `keyword ( expr )`.
func (parser *Parser) parseCondition(keyword TokenType) (Expr, error) {
	if err := parser.expectTokens(keyword, LeftParentThesesTP); err != nil {
		return nil, err
	}
	cond, err := parser.parseExpression()
	if err != nil {
		return nil, err
	}
	if _, err = parser.expect(RightParentThesesTP); err != nil {
		return nil, err
	}
	return cond, nil
}

// for ([init]; [cond]; [step]) stmt
func (parser *Parser) parseForStatement() (Expr, error) {
	if err := parser.expectTokens(ForTP, LeftParentThesesTP); err != nil {
		return nil, err
	}
	stmt := &For{}
	var err error
	if stmt.Init, err = parser.parseOptionalExpression(SemiColonTP); err != nil {
		return nil, err
	}
	if stmt.Cond, err = parser.parseOptionalExpression(SemiColonTP); err != nil {
		return nil, err
	}
	if stmt.Step, err = parser.parseOptionalExpression(RightParentThesesTP); err != nil {
		return nil, err
	}
	if stmt.Body, err = parser.parseStatement(); err != nil {
		return nil, err
	}
	return stmt, nil
}

// parseOptionalExpression parses `expr? terminator`, returning nil when the expression is omitted.
func (parser *Parser) parseOptionalExpression(terminator TokenType) (Expr, error) {
	if _, match := parser.expectToken(terminator, true); match {
		return nil, nil
	}
	expr, err := parser.parseExpression()
	if err != nil {
		return nil, err
	}
	if _, err = parser.expect(terminator); err != nil {
		return nil, err
	}
	return expr, nil
}

// { stmt* }
func (parser *Parser) parseBlockStatement() (Expr, error) {
	defer parser.enter("block")()
	if _, err := parser.expect(LeftBraceTP); err != nil {
		return nil, err
	}
	block := &Block{}
	for {
		if _, match := parser.expectToken(RightBraceTP, true); match {
			return block, nil
		}
		if parser.atEOF() {
			return nil, parser.makeError("", RightBraceTP.String(), "statement")
		}
		stmt, err := parser.parseStatement()
		if err != nil {
			return nil, err
		}
		block.Stmts = append(block.Stmts, stmt)
	}
}

func (parser *Parser) getCurrentToken() *Token {
	// The token stream always ends with EOF, and the parser never steps past it.
	return parser.currentTokens[parser.currentTokenPos]
}

func (parser *Parser) atEOF() bool {
	return parser.getCurrentToken().tp == EOFTP
}

func (parser *Parser) stepForward() {
	if !parser.atEOF() {
		parser.currentTokenPos++
	}
}

// expectToken reports whether the current token has type expectedTokenTp, consuming it when walk is set.
func (parser *Parser) expectToken(expectedTokenTp TokenType, walk bool) (*Token, bool) {
	token := parser.getCurrentToken()
	if token.tp != expectedTokenTp {
		return nil, false
	}
	if walk {
		parser.stepForward()
	}
	return token, true
}

// expect consumes a token of type tp or fails with a ParseError at the current token.
func (parser *Parser) expect(tp TokenType) (*Token, error) {
	token, match := parser.expectToken(tp, true)
	if !match {
		return nil, parser.makeError("", tp.String())
	}
	return token, nil
}

func (parser *Parser) expectTokens(expectedTokenTPs ...TokenType) error {
	for _, tokenType := range expectedTokenTPs {
		if _, err := parser.expect(tokenType); err != nil {
			return err
		}
	}
	return nil
}

// makeError builds a ParseError at the current token.
func (parser *Parser) makeError(msg string, expected ...string) error {
	return parser.makeErrorAt(parser.getCurrentToken(), msg, expected...)
}

func (parser *Parser) makeErrorAt(token *Token, msg string, expected ...string) error {
	productions := make([]string, len(parser.productions))
	copy(productions, parser.productions)
	return &ParseError{
		Pos:         token.pos,
		Line:        token.line,
		Column:      token.column,
		Near:        token.String(),
		Expected:    expected,
		Productions: productions,
		Msg:         msg,
	}
}
