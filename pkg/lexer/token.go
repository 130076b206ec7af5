package lexer

import (
	"fmt"
)

type TokenType int
type TokenCategory int

type Token struct {
	Type    TokenType // Type of the token
	Lexeme  string    // Actual string from the listing
	Literal string    // Literal value (if applicable), empty string if not
	Pos     Position  // Position in the listing
}

// NewToken creates a new Token instance
func NewToken(tokenType TokenType, lexeme string, literal string, Pos Position) Token {
	return Token{
		Type:    tokenType,
		Lexeme:  lexeme,
		Literal: literal,
		Pos:     Pos,
	}
}

const (
	NONE_CATEGORY TokenCategory = iota
	KEYWORD
	IDENTIFIER
	LITERAL
	OPERATOR
	DELIMITER
)

const (
	EOF TokenType = iota // End of file

	CODE  // code
	END   // end
	NONE  // None
	TRUE  // True
	FALSE // False

	ID     // id (identifier or mnemonic)
	NUM    // num (number)
	STRING // string literal

	AT    // @
	STAR  // *
	DSTAR // **
	LT    // <
	GT    // >
	LE    // <=
	GE    // >=
	EQ    // ==
	NE    // !=

	COMMA  // ,
	COLON  // :
	LPAREN // (
	RPAREN // )

	ILLEGAL // illegal token
)

var Keywords = map[string]TokenType{
	"code":  CODE,
	"end":   END,
	"None":  NONE,
	"True":  TRUE,
	"False": FALSE,
}

// TokenToString converts a TokenType to its string representation
func (t Token) TokenToString() (string, bool) {
	mapping := map[TokenType]string{
		CODE:    "code",
		END:     "end",
		NONE:    "None",
		TRUE:    "True",
		FALSE:   "False",
		ID:      "id",
		NUM:     "num",
		STRING:  "string",
		AT:      "@",
		STAR:    "*",
		DSTAR:   "**",
		LT:      "<",
		GT:      ">",
		LE:      "<=",
		GE:      ">=",
		EQ:      "==",
		NE:      "!=",
		COMMA:   ",",
		COLON:   ":",
		LPAREN:  "(",
		RPAREN:  ")",
		ILLEGAL: "illegal",
		EOF:     "$",
	}

	str, ok := mapping[t.Type]
	return str, ok
}

// String returns a string representation of the Token
func (t Token) String() string {
	if t.Literal == "" {

		return fmt.Sprintf("T_{%s, %v, nil, %s}",
			t.Type, t.Lexeme, t.Pos.String())
	}

	return fmt.Sprintf("T_{%s, %v, %q, %s}",
		t.Type, t.Lexeme, t.Literal, t.Pos.String())
}

// String returns a string representation of the TokenType
func (t TokenType) String() string {
	if str, ok := (Token{Type: t}).TokenToString(); ok {
		return str
	}

	return fmt.Sprintf("UNKNOWN(%d)", int(t))
}

// GetCategory returns the category of the token
func (t TokenType) GetCategory() TokenCategory {
	switch t {
	case CODE, END, NONE, TRUE, FALSE:
		return KEYWORD
	case ID:
		return IDENTIFIER
	case NUM, STRING:
		return LITERAL
	case AT, STAR, DSTAR, LT, GT, LE, GE, EQ, NE:
		return OPERATOR
	case COMMA, COLON, LPAREN, RPAREN:
		return DELIMITER
	default:
		return NONE_CATEGORY
	}
}

// IsComparator reports whether the token can spell a COMPARE_OP operand.
func (t TokenType) IsComparator() bool {
	switch t {
	case LT, GT, LE, GE, EQ, NE:
		return true
	default:
		return false
	}
}

// IsKeyword checks if the given identifier is a keyword and returns its TokenType if it is
func IsKeyword(identifier string) (TokenType, bool) {
	tokenType, ok := Keywords[identifier]
	return tokenType, ok
}
