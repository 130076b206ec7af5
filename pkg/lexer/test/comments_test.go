package lexer_test

import (
	"bcvm/pkg/lexer"
	"testing"
)

func TestComments(t *testing.T) {
	input := `// test comment
code f() # another test comment
# another another test comment
  0 RETURN_VALUE // trailing
end`

	mylexer := lexer.NewLexer(input)
	expectedTokens := []lexer.TokenType{
		lexer.CODE, lexer.ID, lexer.LPAREN, lexer.RPAREN,
		lexer.NUM, lexer.ID,
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

func TestStrings(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{`"plain"`, "plain"},
		{`'single'`, "single"},
		{`"tab\tnew\n"`, "tab\tnew\n"},
		{`'it\'s'`, "it's"},
		{`'say "hi"'`, `say "hi"`},
		{`"<module>"`, "<module>"},
	}

	for _, test := range tests {
		tok := lexer.NewLexer(test.input).NextToken()
		if tok.Type != lexer.STRING {
			t.Errorf("Input %s: expected string, got %s", test.input, tok.Type)
			continue
		}
		if tok.Literal != test.expected {
			t.Errorf("Input %s: expected literal %q, got %q", test.input, test.expected, tok.Literal)
		}
	}
}
