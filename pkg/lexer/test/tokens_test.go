package lexer_test

import (
	"bcvm/pkg/lexer"
	"testing"
)

func TestTokens(t *testing.T) {
	input := "code add(a, b, *rest, **kw)\n" +
		"    0 LOAD_FAST a\n" +
		"loop:\n" +
		"    2 LOAD_CONST @inner\n" +
		"    4 COMPARE_OP <=\n" +
		"    6 LOAD_CONST (1, 'x', None, True, False)\n" +
		"end"
	mylexer := lexer.NewLexer(input)

	expectedTokens := []lexer.TokenType{
		lexer.CODE, lexer.ID, lexer.LPAREN, lexer.ID, lexer.COMMA, lexer.ID, lexer.COMMA,
		lexer.STAR, lexer.ID, lexer.COMMA, lexer.DSTAR, lexer.ID, lexer.RPAREN,
		lexer.NUM, lexer.ID, lexer.ID,
		lexer.ID, lexer.COLON,
		lexer.NUM, lexer.ID, lexer.AT, lexer.ID,
		lexer.NUM, lexer.ID, lexer.LE,
		lexer.NUM, lexer.ID, lexer.LPAREN, lexer.NUM, lexer.COMMA, lexer.STRING, lexer.COMMA,
		lexer.NONE, lexer.COMMA, lexer.TRUE, lexer.COMMA, lexer.FALSE, lexer.RPAREN,
		lexer.END,
		lexer.EOF,
	}

	for i, expected := range expectedTokens {
		token := mylexer.NextToken()
		if token.Type != expected {
			t.Errorf("Token %d: expected %s, got %s", i, expected, token.Type)
		}
	}
}

func TestComparators(t *testing.T) {
	tests := []struct {
		input    string
		expected lexer.TokenType
	}{
		{"<", lexer.LT},
		{"<=", lexer.LE},
		{">", lexer.GT},
		{">=", lexer.GE},
		{"==", lexer.EQ},
		{"!=", lexer.NE},
	}

	for _, test := range tests {
		tok := lexer.NewLexer(test.input).NextToken()
		if tok.Type != test.expected {
			t.Errorf("Input %s: expected %s, got %s", test.input, test.expected, tok.Type)
		}
		if !tok.Type.IsComparator() {
			t.Errorf("Input %s: %s should be a comparator", test.input, tok.Type)
		}
	}
}

func TestPositions(t *testing.T) {
	mylexer := lexer.NewLexer("code f()\n  NOP\nend")

	for i := 0; i < 4; i++ {
		mylexer.NextToken()
	}
	tok := mylexer.NextToken()
	if tok.Type != lexer.ID || tok.Lexeme != "NOP" {
		t.Fatalf("expected NOP, got %s", tok)
	}
	if tok.Pos.Line != 2 || tok.Pos.Column != 3 {
		t.Errorf("NOP at %d:%d, expected 2:3", tok.Pos.Line, tok.Pos.Column)
	}
}
