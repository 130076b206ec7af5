package lexer

import "fmt"

// Position locates a token in a listing. Line and Column start at 1;
// Offset is the byte index.
type Position struct {
	Line   int
	Column int
	Offset int
}

// String renders the position as line:column.
func (p Position) String() string {
	return fmt.Sprintf("%d:%d", p.Line, p.Column)
}
