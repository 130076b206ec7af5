package parser

import (
	"bcvm/pkg/color"
	"bcvm/pkg/lexer"
	"fmt"
	"strings"
)

// Error is returned by Assemble when the listing has syntax errors.
type Error struct {
	Messages []string
}

func (e *Error) Error() string {
	if len(e.Messages) == 1 {
		return e.Messages[0]
	}
	return fmt.Sprintf("%d errors:\n  %s", len(e.Messages), strings.Join(e.Messages, "\n  "))
}

// addError records a parsing error with location
func (p *Parser) addError(msg string) {
	p.addErrorAt(msg, p.currentToken.Pos)
}

func (p *Parser) addErrorAt(msg string, pos lexer.Position) {
	if p.currentToken.Type == lexer.ILLEGAL && pos == p.currentToken.Pos {
		msg = fmt.Sprintf("Illegal token '%s'", p.currentToken.Lexeme)
	}
	formatted := color.RedText(msg) + " at " + color.YellowText(pos.String())
	p.errors = append(p.errors, formatted)
}

// Errors returns the list of parsing errors
func (p *Parser) Errors() []string {
	return p.errors
}
