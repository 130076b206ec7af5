package interpreter

import (
	"github.com/pkg/errors"
)

func invalidJump(f *Frame, target int) error {
	return errors.Wrapf(ErrInvalidJumpTarget, "offset %d in %s", target, f.Code.Name)
}

// jumpTo moves the instruction pointer to the instruction at the target
// byte offset, scanning backward or forward from the current position.
func (vm *VM) jumpTo(f *Frame, target int) error {
	ins := f.Code.Instructions
	if vm.jumpTable {
		i, ok := f.Code.IndexOf(target)
		if !ok {
			return invalidJump(f, target)
		}
		f.IP = i
		return nil
	}

	if len(ins) == 0 {
		return invalidJump(f, target)
	}
	i := min(f.IP, len(ins)-1)
	for i > 0 && ins[i].Offset > target {
		i--
	}
	for i < len(ins) && ins[i].Offset < target {
		i++
	}
	if i >= len(ins) || ins[i].Offset != target {
		return invalidJump(f, target)
	}
	f.IP = i
	return nil
}

// jumpForward is jumpTo restricted to targets at or after the next
// instruction.
func (vm *VM) jumpForward(f *Frame, target int) error {
	ins := f.Code.Instructions
	if vm.jumpTable {
		i, ok := f.Code.IndexOf(target)
		if !ok || i < f.IP {
			return invalidJump(f, target)
		}
		f.IP = i
		return nil
	}

	i := f.IP
	for i < len(ins) && ins[i].Offset < target {
		i++
	}
	if i >= len(ins) || ins[i].Offset != target {
		return invalidJump(f, target)
	}
	f.IP = i
	return nil
}

func (vm *VM) pushBlock(kind BlockKind, target int) {
	vm.blocks.Push(Block{Kind: kind, Target: target, Level: vm.stack.Size()})
}

// popBlock removes the innermost block of the current frame.
func (vm *VM) popBlock(f *Frame) (Block, error) {
	if vm.blocks.Size() <= f.blockBase {
		return Block{}, errors.Wrapf(ErrBlockStack, "POP_BLOCK with no active block in %s", f.Code.Name)
	}
	return vm.blocks.Pop(), nil
}

// breakLoop leaves the innermost loop: the block is popped, the operand
// stack is cut back to its depth at SETUP_LOOP and execution continues at
// the loop's exit.
func (vm *VM) breakLoop(f *Frame) error {
	if vm.blocks.Size() <= f.blockBase {
		return errors.Wrapf(ErrBlockStack, "BREAK_LOOP outside a loop in %s", f.Code.Name)
	}
	b := vm.blocks.Peek()
	if b.Kind != BlockLoop {
		return errors.Wrapf(ErrBlockStack, "BREAK_LOOP with %s block on top in %s", b.Kind, f.Code.Name)
	}
	vm.blocks.Pop()
	vm.stack.Truncate(min(b.Level, vm.stack.Size()))
	return vm.jumpTo(f, b.Target)
}

// forIter advances the iterator on top of the stack. On exhaustion the
// iterator is popped and execution continues at target.
func (vm *VM) forIter(f *Frame, target int) error {
	top := vm.stack.Peek()
	if top.Kind != KindIterator {
		return newTypeError("'%s' object is not an iterator", top.TypeName())
	}
	v, ok, err := top.Ref.(*Iterator).Next()
	if err != nil {
		return err
	}
	if ok {
		vm.stack.Push(v)
		return nil
	}
	vm.stack.Pop()
	return vm.jumpForward(f, target)
}

// raise implements RAISE_VARARGS.
func (vm *VM) raise(argc int) error {
	switch argc {
	case 0:
		return unsupported("RAISE_VARARGS 0 (re-raise)")
	case 1:
		exc, err := vm.exceptionValue(vm.stack.Pop())
		if err != nil {
			return err
		}
		return &RaisedError{Exc: exc}
	case 2:
		causeValue := vm.stack.Pop()
		exc, err := vm.exceptionValue(vm.stack.Pop())
		if err != nil {
			return err
		}
		if !vm.chainCause {
			return &RaisedError{Exc: exc}
		}
		switch causeValue.Kind {
		case KindNone:
			exc.Cause = nil
		case KindException, KindExcClass:
			cause, err := vm.exceptionValue(causeValue)
			if err != nil {
				return err
			}
			exc.Cause = cause
		default:
			return newTypeError("exception causes must derive from BaseException")
		}
		return &RaisedError{Exc: exc}
	}
	return errors.Errorf("RAISE_VARARGS: bad argument count %d", argc)
}
