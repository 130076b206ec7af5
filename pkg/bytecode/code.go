package bytecode

import (
	"fmt"
	"sync"

	"github.com/pkg/errors"
)

// CodeFlags describes the variadic shape of a code object's parameters.
type CodeFlags uint8

const (
	FlagVarArgs     CodeFlags = 1 << iota // collects extra positionals into a tuple
	FlagVarKeywords                       // collects extra keywords into a dict
)

// Code is a compiled instruction stream plus the parameter layout needed to
// call it. VarNames starts with the parameters: ArgCount positional names,
// then KwOnlyArgCount keyword-only names, then the *args and **kwargs names
// when the matching flags are set.
type Code struct {
	Name           string
	ArgCount       int
	KwOnlyArgCount int
	VarNames       []string
	Flags          CodeFlags
	Instructions   []Instruction

	indexOnce sync.Once
	index     map[int]int
}

// NewCode creates a code object with no parameters.
func NewCode(name string, instructions ...Instruction) *Code {
	return &Code{Name: name, Instructions: instructions}
}

// Len returns the number of instructions.
func (c *Code) Len() int {
	return len(c.Instructions)
}

// PositionalNames returns the positional parameter names.
func (c *Code) PositionalNames() []string {
	return c.VarNames[:c.ArgCount]
}

// KwOnlyNames returns the keyword-only parameter names.
func (c *Code) KwOnlyNames() []string {
	return c.VarNames[c.ArgCount : c.ArgCount+c.KwOnlyArgCount]
}

// VarArgsName returns the name bound to extra positionals, if any.
func (c *Code) VarArgsName() (string, bool) {
	if c.Flags&FlagVarArgs == 0 {
		return "", false
	}
	return c.VarNames[c.ArgCount+c.KwOnlyArgCount], true
}

// VarKeywordsName returns the name bound to extra keywords, if any.
func (c *Code) VarKeywordsName() (string, bool) {
	if c.Flags&FlagVarKeywords == 0 {
		return "", false
	}
	i := c.ArgCount + c.KwOnlyArgCount
	if c.Flags&FlagVarArgs != 0 {
		i++
	}
	return c.VarNames[i], true
}

// ParamCount returns the number of VarNames that are parameters.
func (c *Code) ParamCount() int {
	n := c.ArgCount + c.KwOnlyArgCount
	if c.Flags&FlagVarArgs != 0 {
		n++
	}
	if c.Flags&FlagVarKeywords != 0 {
		n++
	}
	return n
}

// IndexOf returns the index of the instruction at the given byte offset.
// The table is built once on first use and shared by every frame.
func (c *Code) IndexOf(offset int) (int, bool) {
	c.indexOnce.Do(func() {
		c.index = make(map[int]int, len(c.Instructions))
		for i, in := range c.Instructions {
			c.index[in.Offset] = i
		}
	})
	i, ok := c.index[offset]
	return i, ok
}

// Walk calls fn for c and every code object reachable through its constants,
// each exactly once, parents before children.
func (c *Code) Walk(fn func(*Code) error) error {
	seen := make(map[*Code]bool)
	var walk func(*Code) error
	walk = func(code *Code) error {
		if code == nil || seen[code] {
			return nil
		}
		seen[code] = true
		if err := fn(code); err != nil {
			return err
		}
		for _, in := range code.Instructions {
			if in.Arg.Kind != ArgConst {
				continue
			}
			if err := walkConst(in.Arg.Const, walk); err != nil {
				return err
			}
		}
		return nil
	}
	return walk(c)
}

func walkConst(c Const, walk func(*Code) error) error {
	switch c.Kind {
	case ConstCode:
		return walk(c.Code)
	case ConstTuple:
		for _, item := range c.Items {
			if err := walkConst(item, walk); err != nil {
				return err
			}
		}
	}
	return nil
}

// Validate checks the structural rules the interpreter relies on: offsets
// are non-negative and strictly increasing, every opcode is defined, operand
// kinds match their opcodes and the parameter layout fits in VarNames. Jump
// targets are not checked; a missing target surfaces when the jump runs.
func (c *Code) Validate() error {
	return c.Walk(func(code *Code) error {
		if code.ArgCount < 0 || code.KwOnlyArgCount < 0 {
			return errors.Errorf("code %s: negative parameter count", code.Name)
		}
		if code.ParamCount() > len(code.VarNames) {
			return errors.Errorf("code %s: %d parameters but only %d varnames",
				code.Name, code.ParamCount(), len(code.VarNames))
		}
		last := -1
		for i, in := range code.Instructions {
			if !in.Op.Valid() {
				return errors.Errorf("code %s: instruction %d: undefined opcode %d", code.Name, i, in.Op)
			}
			if in.Offset < 0 || in.Offset <= last {
				return errors.Errorf("code %s: instruction %d (%s): offset %d is not increasing",
					code.Name, i, in.Op, in.Offset)
			}
			last = in.Offset
			if in.Arg.Kind != in.Op.Operand() {
				return errors.Errorf("code %s: instruction %d (%s): operand kind %s, want %s",
					code.Name, i, in.Op, in.Arg.Kind, in.Op.Operand())
			}
			if in.Arg.Kind == ArgConst && in.Arg.Const.Kind == ConstCode && in.Arg.Const.Code == nil {
				return errors.Errorf("code %s: instruction %d: nil code constant", code.Name, i)
			}
		}
		return nil
	})
}

func (c *Code) String() string {
	return fmt.Sprintf("<code object %s>", c.Name)
}
