package internal

import (
	"fmt"

	"github.com/xiaobogaga/minicc/util"
)

// A simple Tokenizer for the language.

// The language has those elements:
// * KeyWord: return, if, else, while, for.
// * Symbol: (, ), {, }, ;, +, -, *, /, =, ==, !=, <, <=, >, >=.
// * Constant: integer.
// * Identifier: letters, digits, underscore, not starting with a digit.
// * Comment: /**/, //.

type TokenType int

const (
	IntegerTP           TokenType = iota // 1010
	IdentifierTP                         // varA
	ReturnTP                             // return
	IfTP                                 // if
	ElseTP                               // else
	WhileTP                              // while
	ForTP                                // for
	LeftParentThesesTP                   // (
	RightParentThesesTP                  // )
	LeftBraceTP                          // {
	RightBraceTP                         // }
	SemiColonTP                          // ;
	AddTP                                // +
	MinusTP                              // -
	MultiplyTP                           // *
	DivideTP                             // /
	AssignTP                             // =
	EqualTP                              // ==
	NotEqualTP                           // !=
	LessTP                               // <
	LessEqualTP                          // <=
	GreaterTP                            // >
	GreaterEqualTP                       // >=
	EOFTP                                // end of input
)

var tokenTypeNames = map[TokenType]string{
	IntegerTP:           "number",
	IdentifierTP:        "identifier",
	ReturnTP:            "return",
	IfTP:                "if",
	ElseTP:              "else",
	WhileTP:             "while",
	ForTP:               "for",
	LeftParentThesesTP:  "(",
	RightParentThesesTP: ")",
	LeftBraceTP:         "{",
	RightBraceTP:        "}",
	SemiColonTP:         ";",
	AddTP:               "+",
	MinusTP:             "-",
	MultiplyTP:          "*",
	DivideTP:            "/",
	AssignTP:            "=",
	EqualTP:             "==",
	NotEqualTP:          "!=",
	LessTP:              "<",
	LessEqualTP:         "<=",
	GreaterTP:           ">",
	GreaterEqualTP:      ">=",
	EOFTP:               "EOF",
}

func (tp TokenType) String() string {
	if name, ok := tokenTypeNames[tp]; ok {
		return name
	}
	return fmt.Sprintf("TokenType(%d)", int(tp))
}

// keyWordTokenTPMap is the mapping from identifier to the corresponding TokenTP.
var keyWordTokenTPMap = map[string]TokenType{
	"return": ReturnTP,
	"if":     IfTP,
	"else":   ElseTP,
	"while":  WhileTP,
	"for":    ForTP,
}

// twoCharSymbolTokenTPMap must be checked before simpleSymbolTokenTPMap so that "<=" is not read as "<", "=".
var twoCharSymbolTokenTPMap = map[string]TokenType{
	"==": EqualTP,
	"!=": NotEqualTP,
	"<=": LessEqualTP,
	">=": GreaterEqualTP,
}

// simpleSymbolTokenTPMap is the mapping from single character symbols to the corresponding TokenTP.
var simpleSymbolTokenTPMap = map[string]TokenType{
	"(": LeftParentThesesTP,
	")": RightParentThesesTP,
	"{": LeftBraceTP,
	"}": RightBraceTP,
	";": SemiColonTP,
	"+": AddTP,
	"-": MinusTP,
	"*": MultiplyTP,
	"/": DivideTP,
	"=": AssignTP,
	"<": LessTP,
	">": GreaterTP,
}

type Token struct {
	content string
	pos     int
	line    int
	column  int
	tp      TokenType
}

func (t *Token) String() string {
	if t.tp == EOFTP {
		return "EOF"
	}
	return t.content
}

type Tokenizer struct {
	src         []byte
	currentPos  int
	currentLine int
	lineStart   int
	tokens      []*Token
}

// Tokenize splits src into tokens according to the language rules. The returned slice always ends with an EOF
// token positioned at len(src).
func (tokenizer *Tokenizer) Tokenize(src string) ([]*Token, error) {
	tokenizer.Reset()
	tokenizer.src = []byte(src)
	for {
		err := tokenizer.skipSpaceAndComments()
		if err != nil {
			return nil, err
		}
		if !tokenizer.hasRemainCharacters() {
			break
		}
		token, err := tokenizer.getNextToken()
		if err != nil {
			return nil, err
		}
		tokenizer.tokens = append(tokenizer.tokens, token)
	}
	tokenizer.tokens = append(tokenizer.tokens, tokenizer.makeToken(EOFTP, tokenizer.currentPos, tokenizer.currentPos))
	return tokenizer.tokens, nil
}

// getNextToken returns the token starting at currentPos, which must be a non-space character.
func (tokenizer *Tokenizer) getNextToken() (*Token, error) {
	c := tokenizer.src[tokenizer.currentPos]
	switch {
	case util.IsNumber(c):
		return tokenizer.tokenNumber(), nil
	case util.IsIdentifierStart(c):
		return tokenizer.toKeywordOrIdentifier(), nil
	case util.IsOperator(c):
		return tokenizer.tokenSymbol()
	default:
		return nil, tokenizer.makeError(tokenizer.currentPos, string(c), "unexpected character")
	}
}

// skipSpaceAndComments steps forward over whitespace, // comments and /* */ comments.
func (tokenizer *Tokenizer) skipSpaceAndComments() error {
	for tokenizer.hasRemainCharacters() {
		c := tokenizer.src[tokenizer.currentPos]
		switch {
		case c == '\n':
			tokenizer.currentPos++
			tokenizer.currentLine++
			tokenizer.lineStart = tokenizer.currentPos
		case util.IsSpace(c):
			tokenizer.currentPos++
		case tokenizer.lookingAt("//"):
			for tokenizer.hasRemainCharacters() && tokenizer.src[tokenizer.currentPos] != '\n' {
				tokenizer.currentPos++
			}
		case tokenizer.lookingAt("/*"):
			err := tokenizer.skipMultipleLineComment()
			if err != nil {
				return err
			}
		default:
			return nil
		}
	}
	return nil
}

func (tokenizer *Tokenizer) skipMultipleLineComment() error {
	startPos, startLine, startLineStart := tokenizer.currentPos, tokenizer.currentLine, tokenizer.lineStart
	tokenizer.currentPos += 2
	for tokenizer.hasRemainCharacters() {
		if tokenizer.lookingAt("*/") {
			tokenizer.currentPos += 2
			return nil
		}
		if tokenizer.src[tokenizer.currentPos] == '\n' {
			tokenizer.currentLine++
			tokenizer.lineStart = tokenizer.currentPos + 1
		}
		tokenizer.currentPos++
	}
	// Report the comment where it was opened.
	tokenizer.currentLine, tokenizer.lineStart = startLine, startLineStart
	return tokenizer.makeError(startPos, "/*", "unterminated comment")
}

func (tokenizer *Tokenizer) lookingAt(s string) bool {
	return tokenizer.currentPos+len(s) <= len(tokenizer.src) &&
		string(tokenizer.src[tokenizer.currentPos:tokenizer.currentPos+len(s)]) == s
}

func (tokenizer *Tokenizer) hasRemainCharacters() bool {
	return tokenizer.currentPos < len(tokenizer.src)
}

func (tokenizer *Tokenizer) tokenSymbol() (*Token, error) {
	startPos := tokenizer.currentPos
	if tokenizer.currentPos+2 <= len(tokenizer.src) {
		symbol := string(tokenizer.src[startPos : startPos+2])
		if tp, ok := twoCharSymbolTokenTPMap[symbol]; ok {
			tokenizer.currentPos += 2
			return tokenizer.makeToken(tp, startPos, tokenizer.currentPos), nil
		}
	}
	symbol := string(tokenizer.src[startPos])
	tp, ok := simpleSymbolTokenTPMap[symbol]
	if !ok {
		// A lone '!' is the only operator byte without a single character meaning.
		return nil, tokenizer.makeError(startPos, symbol, "unexpected character")
	}
	tokenizer.currentPos++
	return tokenizer.makeToken(tp, startPos, tokenizer.currentPos), nil
}

func (tokenizer *Tokenizer) tokenNumber() *Token {
	// Look forward to find a continuous number.
	startPos := tokenizer.currentPos
	for tokenizer.hasRemainCharacters() && util.IsNumber(tokenizer.src[tokenizer.currentPos]) {
		tokenizer.currentPos++
	}
	// Something like 12ab is not rejected here, the parser will complain about the identifier that follows.
	return tokenizer.makeToken(IntegerTP, startPos, tokenizer.currentPos)
}

func (tokenizer *Tokenizer) toKeywordOrIdentifier() *Token {
	startPos := tokenizer.currentPos
	for tokenizer.hasRemainCharacters() && util.IsIdentifierPart(tokenizer.src[tokenizer.currentPos]) {
		tokenizer.currentPos++
	}
	word := string(tokenizer.src[startPos:tokenizer.currentPos])
	if keyWordTP, isKeyWord := keyWordTokenTPMap[word]; isKeyWord {
		return tokenizer.makeToken(keyWordTP, startPos, tokenizer.currentPos)
	}
	return tokenizer.makeToken(IdentifierTP, startPos, tokenizer.currentPos)
}

func (tokenizer *Tokenizer) makeToken(tp TokenType, startPos, endPos int) *Token {
	return &Token{
		content: string(tokenizer.src[startPos:endPos]),
		pos:     startPos,
		line:    tokenizer.currentLine,
		column:  startPos - tokenizer.lineStart + 1,
		tp:      tp,
	}
}

func (tokenizer *Tokenizer) makeError(pos int, near string, msg string) error {
	return &ParseError{
		Pos:         pos,
		Line:        tokenizer.currentLine,
		Column:      pos - tokenizer.lineStart + 1,
		Near:        near,
		Productions: []string{"token"},
		Msg:         msg,
	}
}

func (tokenizer *Tokenizer) Reset() {
	tokenizer.src, tokenizer.tokens = nil, nil
	tokenizer.currentPos, tokenizer.currentLine, tokenizer.lineStart = 0, 1, 0
}
