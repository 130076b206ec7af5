package bytecode

import (
	"fmt"
	"strconv"
)

// Operand is the decoded argument of an instruction. Which field is
// meaningful is given by Kind, which always matches the opcode's OperandKind.
type Operand struct {
	Kind  OperandKind
	Const Const  // ArgConst
	Name  string // ArgName, ArgCompare
	Int   int    // ArgCount, ArgJump (absolute byte offset)
}

// NoArg is the operand of instructions that take none.
var NoArg = Operand{Kind: ArgNone}

func ArgConstOf(c Const) Operand    { return Operand{Kind: ArgConst, Const: c} }
func ArgNameOf(name string) Operand { return Operand{Kind: ArgName, Name: name} }
func ArgCountOf(n int) Operand      { return Operand{Kind: ArgCount, Int: n} }
func ArgJumpTo(offset int) Operand  { return Operand{Kind: ArgJump, Int: offset} }
func ArgCompareOf(op string) Operand {
	return Operand{Kind: ArgCompare, Name: op}
}

// String renders the operand in listing syntax.
func (o Operand) String() string {
	switch o.Kind {
	case ArgNone:
		return ""
	case ArgConst:
		return o.Const.String()
	case ArgName:
		if isPlainName(o.Name) {
			return o.Name
		}
		return strconv.Quote(o.Name)
	case ArgCompare:
		return strconv.Quote(o.Name)
	default:
		return strconv.Itoa(o.Int)
	}
}

// Instruction is one decoded unit of an instruction stream.
type Instruction struct {
	Op     Opcode
	Arg    Operand
	Offset int
}

// Make builds an instruction whose operand kind is derived from op. The arg
// must be a Const, string or int as op requires; nil means no operand (or
// None for LOAD_CONST).
func Make(op Opcode, offset int, arg any) Instruction {
	in := Instruction{Op: op, Offset: offset, Arg: NoArg}
	switch op.Operand() {
	case ArgConst:
		c, ok := arg.(Const)
		if !ok {
			c = NoneConst()
		}
		in.Arg = ArgConstOf(c)
	case ArgName:
		s, _ := arg.(string)
		in.Arg = ArgNameOf(s)
	case ArgCompare:
		s, _ := arg.(string)
		in.Arg = ArgCompareOf(s)
	case ArgCount:
		n, _ := arg.(int)
		in.Arg = ArgCountOf(n)
	case ArgJump:
		n, _ := arg.(int)
		in.Arg = ArgJumpTo(n)
	}
	return in
}

// String returns a string representation of the instruction
func (i Instruction) String() string {
	if i.Arg.Kind == ArgNone {
		return fmt.Sprintf("%6d %s", i.Offset, i.Op)
	}
	return fmt.Sprintf("%6d %-24s %s", i.Offset, i.Op, i.Arg)
}

func isPlainName(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z'):
		case i > 0 && ((r >= '0' && r <= '9') || r == '.'):
		default:
			return false
		}
	}
	switch s {
	case "None", "True", "False", "code", "end":
		return false
	}
	return true
}
