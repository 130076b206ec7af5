package lexer

import (
	"regexp"
)

type tokenRegex struct {
	Pattern *regexp.Regexp
	Raw     string
}

// Token regex patterns
var tokenRegexes = map[TokenType]tokenRegex{
	LE:    {regexp.MustCompile(`^<=`), `^<=`},
	GE:    {regexp.MustCompile(`^>=`), `^>=`},
	EQ:    {regexp.MustCompile(`^==`), `^==`},
	NE:    {regexp.MustCompile(`^!=`), `^!=`},
	DSTAR: {regexp.MustCompile(`^\*\*`), `^\*\*`},

	CODE:  {regexp.MustCompile(`^code\b`), `^code\b`},
	END:   {regexp.MustCompile(`^end\b`), `^end\b`},
	NONE:  {regexp.MustCompile(`^None\b`), `^None\b`},
	TRUE:  {regexp.MustCompile(`^True\b`), `^True\b`},
	FALSE: {regexp.MustCompile(`^False\b`), `^False\b`},

	AT:   {regexp.MustCompile(`^@`), `^@`},
	STAR: {regexp.MustCompile(`^\*`), `^\*`},
	LT:   {regexp.MustCompile(`^<`), `^<`},
	GT:   {regexp.MustCompile(`^>`), `^>`},

	COMMA:  {regexp.MustCompile(`^,`), `^,`},
	COLON:  {regexp.MustCompile(`^:`), `^:`},
	LPAREN: {regexp.MustCompile(`^\(`), `^\(`},
	RPAREN: {regexp.MustCompile(`^\)`), `^\)`},

	NUM:    {regexp.MustCompile(`^\d+(\.\d+)?([eE][+-]?\d+)?`), `^\d+(\.\d+)?([eE][+-]?\d+)?`},
	STRING: {regexp.MustCompile(`^("([^"\\]|\\.)*"|'([^'\\]|\\.)*')`), `^("([^"\\]|\\.)*"|'([^'\\]|\\.)*')`},
	ID:     {regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_.]*`), `^[a-zA-Z_][a-zA-Z0-9_.]*`},
}

var (
	whitespaceRegex = regexp.MustCompile(`^\s+`)
	commentRegex    = regexp.MustCompile(`^(//|#).*`)
)

// Token precedence order for matching (longer patterns first)
var tokenPrecedenceOrder = []TokenType{
	FALSE, CODE, NONE, TRUE, END, LE, GE, EQ, NE, DSTAR,
	AT, STAR, LT, GT, COMMA, COLON, LPAREN, RPAREN,
	NUM, STRING, ID,
}

// Get the regex pattern for a token type
func (t TokenType) Regex() *regexp.Regexp {
	if regex, ok := tokenRegexes[t]; ok {
		return regex.Pattern
	}

	return nil
}

// Get the raw regex string for a token type
func (t TokenType) RawRegex() string {
	if regex, ok := tokenRegexes[t]; ok {
		return regex.Raw
	}

	return ""
}

// Match the longest token at the start of the string
func MatchToken(s string) (TokenType, string, bool) {
	if s == "" {
		return EOF, "", false
	} else if match := whitespaceRegex.FindString(s); match != "" {
		return EOF, match, true
	} else if match := commentRegex.FindString(s); match != "" {
		return EOF, match, true
	}

	for _, tokenType := range tokenPrecedenceOrder {
		if regex, ok := tokenRegexes[tokenType]; ok {
			if match := regex.Pattern.FindString(s); match != "" {
				return tokenType, match, true
			}
		}
	}

	return ILLEGAL, string(s[0]), false
}

// Check if a byte is a digit
func isDigit(b byte) bool {
	return b >= '0' && b <= '9'
}
