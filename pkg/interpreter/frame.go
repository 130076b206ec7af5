package interpreter

import "bcvm/pkg/bytecode"

// Frame represents one activation of a code object.
type Frame struct {
	Code     *bytecode.Code // instructions being executed
	IP       int            // index of the next instruction, not a byte offset
	Locals   Namespace      // owned by this frame
	Globals  Namespace      // shared with every frame of the call chain
	Builtins Namespace      // inherited from the caller
	Back     *Frame         // caller; only used to inherit builtins

	stackBase int // operand stack depth on entry
	blockBase int // block stack depth on entry
}

// newFrame creates a frame whose builtins come from back, or from builtins
// when there is no caller.
func newFrame(code *bytecode.Code, back *Frame, globals, locals, builtins Namespace) *Frame {
	f := &Frame{
		Code:     code,
		Locals:   locals,
		Globals:  globals,
		Builtins: builtins,
		Back:     back,
	}
	if back != nil {
		f.Builtins = back.Builtins
	}
	return f
}

// done reports whether the instruction pointer ran off the end.
func (f *Frame) done() bool {
	return f.IP >= len(f.Code.Instructions)
}

type BlockKind uint8

const (
	BlockLoop BlockKind = iota
	BlockExcept
)

func (k BlockKind) String() string {
	if k == BlockLoop {
		return "loop"
	}
	return "except"
}

// Block is a loop or exception region pushed by a SETUP_* instruction.
type Block struct {
	Kind   BlockKind
	Target int // byte offset to continue at when the block is left early
	Level  int // operand stack depth when the block was pushed
}
