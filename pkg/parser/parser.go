package parser

import (
	"bcvm/pkg/bytecode"
	"bcvm/pkg/lexer"
	"fmt"
	"strconv"
	"strings"
)

// Parser assembles a listing into code objects. A listing is a sequence of
//
//	code NAME(params)
//	    [OFFSET] MNEMONIC [OPERAND]
//	    label:
//	end
//
// blocks. The last block is the entry point; @NAME operands refer to other
// blocks in either direction.
type Parser struct {
	lexer        *lexer.Lexer              // lexer instance
	currentToken lexer.Token               // current token
	codes        map[string]*bytecode.Code // code objects by name, including forward references
	defined      map[string]bool           // names whose block has been parsed
	refs         map[string]lexer.Position // first reference to each code name
	entry        *bytecode.Code            // last block parsed
	errors       []string                  // list of errors
}

// jumpFixup is a jump whose label target is resolved when its block ends.
type jumpFixup struct {
	index int
	label string
	pos   lexer.Position
}

// NewParser creates a new parser instance
func NewParser(l *lexer.Lexer) *Parser {
	p := &Parser{
		lexer:   l,
		codes:   make(map[string]*bytecode.Code),
		defined: make(map[string]bool),
		refs:    make(map[string]lexer.Position),
		errors:  []string{},
	}

	// Initialize current token
	p.nextToken()

	return p
}

// Assemble parses a complete listing and returns its entry code object.
func Assemble(src string) (*bytecode.Code, error) {
	p := NewParser(lexer.NewLexer(src))
	p.Parse()
	if errs := p.Errors(); len(errs) > 0 {
		return nil, &Error{Messages: errs}
	}
	return p.Entry(), nil
}

// Parse reads every code block in the input
func (p *Parser) Parse() {
	for p.currentToken.Type != lexer.EOF {
		if p.currentToken.Type != lexer.CODE {
			p.addError(fmt.Sprintf("Expected 'code', found '%s'", p.currentToken.Lexeme))
			p.skipLine()
			continue
		}
		p.parseCode()
	}

	for name, pos := range p.refs {
		if !p.defined[name] {
			p.addErrorAt(fmt.Sprintf("Undefined code object `%s`", name), pos)
		}
	}

	if p.entry == nil && len(p.errors) == 0 {
		p.addError("Listing contains no code blocks")
	}
}

// Entry returns the entry code object, the last block in the listing
func (p *Parser) Entry() *bytecode.Code {
	return p.entry
}

func (p *Parser) parseCode() {
	p.nextToken() // code

	name, ok := p.parseName()
	if !ok {
		p.addError("Missing code object name")
		p.skipTo(lexer.END)
		return
	}
	if p.defined[name] {
		p.addError(fmt.Sprintf("Redefinition of code object `%s`", name))
	}

	code := p.ref(name)
	p.defined[name] = true
	if !p.parseParams(code) {
		p.skipTo(lexer.END)
		return
	}

	labels := make(map[string]int)
	var fixups []jumpFixup
	pendingLabels := []string{}

	for p.currentToken.Type != lexer.END {
		if p.currentToken.Type == lexer.EOF {
			p.addError(fmt.Sprintf("Missing 'end' for code object `%s`", name))
			return
		}

		// label:
		if p.currentToken.Type == lexer.ID && p.lexer.Peek().Type == lexer.COLON {
			label := p.currentToken.Literal
			if _, dup := labels[label]; dup || contains(pendingLabels, label) {
				p.addError(fmt.Sprintf("Duplicate label `%s`", label))
			}
			pendingLabels = append(pendingLabels, label)
			p.nextToken()
			p.nextToken()
			continue
		}

		in, fixup, ok := p.parseInstruction(code)
		if !ok {
			p.skipLine()
			continue
		}
		for _, label := range pendingLabels {
			labels[label] = len(code.Instructions)
		}
		pendingLabels = pendingLabels[:0]
		if fixup != nil {
			fixup.index = len(code.Instructions)
			fixups = append(fixups, *fixup)
		}
		code.Instructions = append(code.Instructions, in)
	}
	p.nextToken() // end

	if len(pendingLabels) > 0 {
		p.addError(fmt.Sprintf("Label `%s` does not precede an instruction", pendingLabels[0]))
	}
	for _, f := range fixups {
		idx, ok := labels[f.label]
		if !ok {
			p.addErrorAt(fmt.Sprintf("Undefined label `%s`", f.label), f.pos)
			continue
		}
		code.Instructions[f.index].Arg.Int = code.Instructions[idx].Offset
	}

	if err := code.Validate(); err != nil && len(p.errors) == 0 {
		p.addError(err.Error())
	}
	p.entry = code
}

// parseParams reads "(a, b, *args, k, **kw)" into the code's parameter layout
func (p *Parser) parseParams(code *bytecode.Code) bool {
	if !p.expect(lexer.LPAREN) {
		return false
	}

	var positional, kwonly []string
	var varargs, varkw string
	star := false

	for p.currentToken.Type != lexer.RPAREN {
		switch p.currentToken.Type {
		case lexer.STAR:
			if star {
				p.addError("Duplicate '*' in parameter list")
				return false
			}
			star = true
			p.nextToken()
			if name, ok := p.parseName(); ok {
				varargs = name
			}
		case lexer.DSTAR:
			p.nextToken()
			name, ok := p.parseName()
			if !ok {
				p.addError("Missing name after '**'")
				return false
			}
			varkw = name
		default:
			name, ok := p.parseName()
			if !ok {
				p.addError(fmt.Sprintf("Unexpected '%s' in parameter list", p.currentToken.Lexeme))
				return false
			}
			if varkw != "" {
				p.addError("Parameter after '**' parameter")
				return false
			}
			if star {
				kwonly = append(kwonly, name)
			} else {
				positional = append(positional, name)
			}
		}

		if p.currentToken.Type == lexer.COMMA {
			p.nextToken()
		} else if p.currentToken.Type != lexer.RPAREN {
			p.addError(fmt.Sprintf("Expected ',' or ')', found '%s'", p.currentToken.Lexeme))
			return false
		}
	}
	p.nextToken() // )

	code.ArgCount = len(positional)
	code.KwOnlyArgCount = len(kwonly)
	code.VarNames = append(append([]string{}, positional...), kwonly...)
	code.Flags = 0
	if varargs != "" {
		code.Flags |= bytecode.FlagVarArgs
		code.VarNames = append(code.VarNames, varargs)
	}
	if varkw != "" {
		code.Flags |= bytecode.FlagVarKeywords
		code.VarNames = append(code.VarNames, varkw)
	}
	return true
}

func (p *Parser) parseInstruction(code *bytecode.Code) (bytecode.Instruction, *jumpFixup, bool) {
	offset := 0
	if n := len(code.Instructions); n > 0 {
		offset = code.Instructions[n-1].Offset + 2
	}

	if p.currentToken.Type == lexer.NUM {
		n, err := strconv.Atoi(p.currentToken.Literal)
		if err != nil || n < 0 {
			p.addError(fmt.Sprintf("Invalid offset '%s'", p.currentToken.Lexeme))
			return bytecode.Instruction{}, nil, false
		}
		offset = n
		p.nextToken()
	}

	if p.currentToken.Type != lexer.ID {
		p.addError(fmt.Sprintf("Expected mnemonic, found '%s'", p.currentToken.Lexeme))
		return bytecode.Instruction{}, nil, false
	}
	op, ok := bytecode.LookupOpcode(p.currentToken.Literal)
	if !ok {
		p.addError(fmt.Sprintf("Unknown opcode `%s`", p.currentToken.Literal))
		return bytecode.Instruction{}, nil, false
	}
	p.nextToken()

	in := bytecode.Instruction{Op: op, Offset: offset, Arg: bytecode.NoArg}
	switch op.Operand() {
	case bytecode.ArgConst:
		c, ok := p.parseConst()
		if !ok {
			return in, nil, false
		}
		in.Arg = bytecode.ArgConstOf(c)

	case bytecode.ArgName:
		name, ok := p.parseName()
		if !ok {
			p.addError(fmt.Sprintf("%s expects a name", op))
			return in, nil, false
		}
		in.Arg = bytecode.ArgNameOf(name)

	case bytecode.ArgCompare:
		cmp, ok := p.parseComparator()
		if !ok {
			p.addError(fmt.Sprintf("%s expects a comparator", op))
			return in, nil, false
		}
		in.Arg = bytecode.ArgCompareOf(cmp)

	case bytecode.ArgCount:
		n, ok := p.parseInt()
		if !ok {
			p.addError(fmt.Sprintf("%s expects an integer", op))
			return in, nil, false
		}
		in.Arg = bytecode.ArgCountOf(n)

	case bytecode.ArgJump:
		if p.currentToken.Type == lexer.ID {
			fixup := &jumpFixup{label: p.currentToken.Literal, pos: p.currentToken.Pos}
			p.nextToken()
			in.Arg = bytecode.ArgJumpTo(-1)
			return in, fixup, true
		}
		n, ok := p.parseInt()
		if !ok {
			p.addError(fmt.Sprintf("%s expects a target offset or label", op))
			return in, nil, false
		}
		in.Arg = bytecode.ArgJumpTo(n)
	}

	return in, nil, true
}

func (p *Parser) parseConst() (bytecode.Const, bool) {
	tok := p.currentToken
	switch tok.Type {
	case lexer.NONE:
		p.nextToken()
		return bytecode.NoneConst(), true
	case lexer.TRUE, lexer.FALSE:
		p.nextToken()
		return bytecode.BoolConst(tok.Type == lexer.TRUE), true
	case lexer.STRING:
		p.nextToken()
		return bytecode.StrConst(tok.Literal), true
	case lexer.NUM:
		p.nextToken()
		if !strings.ContainsAny(tok.Literal, ".eE") {
			if n, err := strconv.ParseInt(tok.Literal, 10, 64); err == nil {
				return bytecode.IntConst(n), true
			}
		}
		f, err := strconv.ParseFloat(tok.Literal, 64)
		if err != nil {
			p.addErrorAt(fmt.Sprintf("Invalid number '%s'", tok.Lexeme), tok.Pos)
			return bytecode.Const{}, false
		}
		return bytecode.FloatConst(f), true
	case lexer.AT:
		p.nextToken()
		pos := p.currentToken.Pos
		name, ok := p.parseName()
		if !ok {
			p.addError("Missing code object name after '@'")
			return bytecode.Const{}, false
		}
		if _, seen := p.refs[name]; !seen {
			p.refs[name] = pos
		}
		return bytecode.CodeConst(p.ref(name)), true
	case lexer.LPAREN:
		p.nextToken()
		var items []bytecode.Const
		for p.currentToken.Type != lexer.RPAREN {
			item, ok := p.parseConst()
			if !ok {
				return bytecode.Const{}, false
			}
			items = append(items, item)
			if p.currentToken.Type == lexer.COMMA {
				p.nextToken()
			} else if p.currentToken.Type != lexer.RPAREN {
				p.addError(fmt.Sprintf("Expected ',' or ')' in tuple, found '%s'", p.currentToken.Lexeme))
				return bytecode.Const{}, false
			}
		}
		p.nextToken()
		return bytecode.TupleConst(items...), true
	default:
		p.addError(fmt.Sprintf("Expected constant, found '%s'", tok.Lexeme))
		return bytecode.Const{}, false
	}
}

func (p *Parser) parseComparator() (string, bool) {
	tok := p.currentToken
	switch {
	case tok.Type.IsComparator():
		p.nextToken()
		return tok.Lexeme, true
	case tok.Type == lexer.STRING:
		p.nextToken()
		return tok.Literal, true
	case tok.Type == lexer.ID && tok.Literal == "in":
		p.nextToken()
		return "in", true
	case tok.Type == lexer.ID && tok.Literal == "is":
		p.nextToken()
		if p.currentToken.Type == lexer.ID && p.currentToken.Literal == "not" {
			p.nextToken()
			return "is not", true
		}
		return "is", true
	case tok.Type == lexer.ID && tok.Literal == "not":
		p.nextToken()
		if p.currentToken.Type == lexer.ID && p.currentToken.Literal == "in" {
			p.nextToken()
			return "not in", true
		}
		return "", false
	default:
		return "", false
	}
}

func (p *Parser) parseInt() (int, bool) {
	if p.currentToken.Type != lexer.NUM {
		return 0, false
	}
	n, err := strconv.Atoi(p.currentToken.Literal)
	if err != nil {
		return 0, false
	}
	p.nextToken()
	return n, true
}

// parseName accepts an identifier or a quoted string
func (p *Parser) parseName() (string, bool) {
	switch p.currentToken.Type {
	case lexer.ID, lexer.STRING:
		name := p.currentToken.Literal
		p.nextToken()
		return name, true
	default:
		return "", false
	}
}

// ref returns the code object for name, creating a placeholder for forward
// references
func (p *Parser) ref(name string) *bytecode.Code {
	if c, ok := p.codes[name]; ok {
		return c
	}
	c := &bytecode.Code{Name: name}
	p.codes[name] = c
	return c
}

func (p *Parser) expect(t lexer.TokenType) bool {
	if p.currentToken.Type != t {
		p.addError(fmt.Sprintf("Expected '%s', found '%s'", t, p.currentToken.Lexeme))
		return false
	}
	p.nextToken()
	return true
}

// skipLine drops the rest of the current line so one bad instruction
// produces one error
func (p *Parser) skipLine() {
	line := p.currentToken.Pos.Line
	for p.currentToken.Type != lexer.EOF && p.currentToken.Type != lexer.END && p.currentToken.Pos.Line == line {
		p.nextToken()
	}
}

func (p *Parser) skipTo(t lexer.TokenType) {
	for p.currentToken.Type != lexer.EOF && p.currentToken.Type != t {
		p.nextToken()
	}
	if p.currentToken.Type == t {
		p.nextToken()
	}
}

// nextToken advances to the next token from the lexer
func (p *Parser) nextToken() {
	p.currentToken = p.lexer.NextToken()
}

func contains(list []string, s string) bool {
	for _, x := range list {
		if x == s {
			return true
		}
	}
	return false
}
