package lexer_test

import (
	"bcvm/pkg/lexer"
	"testing"
)

func TestNumbers(t *testing.T) {
	tests := []struct {
		input       string
		expected    lexer.TokenType
		description string
	}{
		{"42", lexer.NUM, "integer"},
		{"0", lexer.NUM, "zero"},

		{"3.14", lexer.NUM, "simple float"},
		{"0.5", lexer.NUM, "float starting with zero"},
		{"123.456", lexer.NUM, "multi-digit float"},

		{"1e5", lexer.NUM, "scientific notation with e"},
		{"1e+5", lexer.NUM, "scientific notation with e+"},
		{"1e-5", lexer.NUM, "scientific notation with e-"},
		{"2.5e10", lexer.NUM, "float with scientific notation"},
		{"3.14E-2", lexer.NUM, "float with negative exponent E"},

		{"1000000", lexer.NUM, "large integer"},
	}

	for _, test := range tests {
		tokenType, lexeme, matched := lexer.MatchToken(test.input)
		if !matched {
			t.Errorf("Failed to match %s (%s)", test.input, test.description)
		}
		if tokenType != test.expected {
			t.Errorf("Input %s (%s): expected %s, got %s", test.input, test.description, test.expected, tokenType)
		}
		if lexeme != test.input {
			t.Errorf("Input %s (%s): expected lexeme %s, got %s", test.input, test.description, test.input, lexeme)
		}
	}
}

func TestNegativeNumbers(t *testing.T) {
	tests := []string{"-1", "-0.5", "-2e3"}

	for _, input := range tests {
		tok := lexer.NewLexer(input).NextToken()
		if tok.Type != lexer.NUM {
			t.Errorf("Input %s: expected num, got %s", input, tok.Type)
		}
		if tok.Literal != input {
			t.Errorf("Input %s: expected literal %s, got %s", input, input, tok.Literal)
		}
	}
}
