package interpreter

import (
	"io"

	"bcvm/pkg/bytecode"

	"github.com/pkg/errors"
)

// step executes one instruction of f. The instruction pointer has already
// moved past in. It returns true when the frame is finished.
func (vm *VM) step(f *Frame, in bytecode.Instruction) (bool, error) {
	s := vm.stack
	arg := in.Arg.Int

	switch in.Op {
	case bytecode.OpNop, bytecode.OpExtendedArg:
		// operands arrive already widened

	// Stack manipulation
	case bytecode.OpPopTop:
		s.Pop()
	case bytecode.OpRotTwo:
		a, b := s.Pop(), s.Pop()
		s.Push(a)
		s.Push(b)
	case bytecode.OpRotThree:
		a, b, c := s.Pop(), s.Pop(), s.Pop()
		s.Push(a)
		s.Push(c)
		s.Push(b)
	case bytecode.OpDupTop:
		s.Push(s.Peek())
	case bytecode.OpDupTopTwo:
		a, b := s.PeekN(2), s.PeekN(1)
		s.Push(a)
		s.Push(b)

	// Operators
	case bytecode.OpUnaryPositive, bytecode.OpUnaryNegative, bytecode.OpUnaryNot,
		bytecode.OpUnaryConvert, bytecode.OpUnaryInvert:
		r, err := vm.unaryOp(in.Op, s.Peek())
		if err != nil {
			return false, err
		}
		s.SetTop(r)

	case bytecode.OpBinaryPower, bytecode.OpBinaryMultiply, bytecode.OpBinaryMatrixMultiply,
		bytecode.OpBinaryFloorDivide, bytecode.OpBinaryTrueDivide, bytecode.OpBinaryModulo,
		bytecode.OpBinaryAdd, bytecode.OpBinarySubtract, bytecode.OpBinarySubscr,
		bytecode.OpBinaryLshift, bytecode.OpBinaryRshift, bytecode.OpBinaryAnd,
		bytecode.OpBinaryXor, bytecode.OpBinaryOr,
		bytecode.OpInplacePower, bytecode.OpInplaceMultiply, bytecode.OpInplaceMatrixMultiply,
		bytecode.OpInplaceFloorDivide, bytecode.OpInplaceTrueDivide, bytecode.OpInplaceModulo,
		bytecode.OpInplaceAdd, bytecode.OpInplaceSubtract, bytecode.OpInplaceLshift,
		bytecode.OpInplaceRshift, bytecode.OpInplaceAnd, bytecode.OpInplaceXor,
		bytecode.OpInplaceOr:
		b, a := s.Pop(), s.Pop()
		r, err := vm.binaryOp(in.Op, a, b)
		if err != nil {
			return false, err
		}
		s.Push(r)

	case bytecode.OpCompareOp:
		b, a := s.Pop(), s.Pop()
		r, err := vm.compare(in.Arg.Name, a, b)
		if err != nil {
			return false, err
		}
		s.Push(r)

	// Subscripts: TOS is the key, TOS1 the container, TOS2 the value
	case bytecode.OpStoreSubscr:
		key, container, value := s.Pop(), s.Pop(), s.Pop()
		if err := vm.setItem(container, key, value); err != nil {
			return false, err
		}
	case bytecode.OpDeleteSubscr:
		key, container := s.Pop(), s.Pop()
		if err := vm.delItem(container, key); err != nil {
			return false, err
		}

	case bytecode.OpPrintExpr:
		v := s.Pop()
		if v.Kind == KindNone {
			break
		}
		text, err := vm.repr(v)
		if err != nil {
			return false, err
		}
		if _, err := io.WriteString(vm.out, text+"\n"); err != nil {
			return false, errors.Wrap(err, "PRINT_EXPR")
		}
		f.Builtins["_"] = v

	case bytecode.OpLoadBuildClass:
		bc, ok := f.Builtins["__build_class__"]
		if !ok {
			return false, newExc(ExcNameError, "__build_class__ not found")
		}
		s.Push(bc)

	case bytecode.OpReturnValue:
		vm.returnValue = s.Pop()
		return true, nil

	// Names
	case bytecode.OpStoreName:
		f.Locals[in.Arg.Name] = s.Pop()
	case bytecode.OpDeleteName:
		if err := f.deleteName(in.Arg.Name); err != nil {
			return false, err
		}
	case bytecode.OpLoadName, bytecode.OpLoadGlobal:
		v, err := f.loadName(in.Arg.Name)
		if err != nil {
			return false, err
		}
		s.Push(v)
	case bytecode.OpStoreGlobal:
		f.Globals[in.Arg.Name] = s.Pop()
	case bytecode.OpDeleteGlobal:
		if err := f.deleteGlobal(in.Arg.Name); err != nil {
			return false, err
		}
	case bytecode.OpLoadFast:
		v, err := f.loadFast(in.Arg.Name)
		if err != nil {
			return false, err
		}
		s.Push(v)
	case bytecode.OpStoreFast:
		f.Locals[in.Arg.Name] = s.Pop()
	case bytecode.OpDeleteFast:
		if err := f.deleteFast(in.Arg.Name); err != nil {
			return false, err
		}
	case bytecode.OpLoadConst:
		s.Push(constValue(in.Arg.Const))

	// Attributes
	case bytecode.OpLoadAttr:
		v, err := vm.getAttr(s.Pop(), in.Arg.Name)
		if err != nil {
			return false, err
		}
		s.Push(v)
	case bytecode.OpStoreAttr:
		owner, value := s.Pop(), s.Pop()
		if err := vm.setAttr(owner, in.Arg.Name, value); err != nil {
			return false, err
		}
	case bytecode.OpDeleteAttr:
		if err := vm.delAttr(s.Pop(), in.Arg.Name); err != nil {
			return false, err
		}
	case bytecode.OpLoadMethod:
		lower, upper, err := vm.loadMethod(s.Pop(), in.Arg.Name)
		if err != nil {
			return false, err
		}
		s.Push(lower)
		s.Push(upper)

	// Builders
	case bytecode.OpUnpackSequence:
		if err := vm.unpackSequence(arg); err != nil {
			return false, err
		}
	case bytecode.OpBuildTuple:
		s.Push(NewTuple(s.PopN(arg)...))
	case bytecode.OpBuildList:
		s.Push(NewList(s.PopN(arg)...))
	case bytecode.OpBuildSet, bytecode.OpBuildMap, bytecode.OpBuildConstKeyMap,
		bytecode.OpBuildString, bytecode.OpBuildSlice:
		r, err := vm.build(in.Op, arg)
		if err != nil {
			return false, err
		}
		s.Push(r)
	case bytecode.OpListAppend:
		if err := vm.listAppend(arg); err != nil {
			return false, err
		}
	case bytecode.OpSetAdd:
		if err := vm.setAdd(arg); err != nil {
			return false, err
		}
	case bytecode.OpMapAdd:
		if err := vm.mapAdd(arg); err != nil {
			return false, err
		}

	// Jumps
	case bytecode.OpJumpForward:
		return false, vm.jumpForward(f, arg)
	case bytecode.OpJumpAbsolute, bytecode.OpContinueLoop:
		return false, vm.jumpTo(f, arg)
	case bytecode.OpPopJumpIfTrue, bytecode.OpPopJumpIfFalse:
		ok, err := vm.truthy(s.Pop())
		if err != nil {
			return false, err
		}
		if ok == (in.Op == bytecode.OpPopJumpIfTrue) {
			return false, vm.jumpTo(f, arg)
		}
	case bytecode.OpJumpIfTrueOrPop, bytecode.OpJumpIfFalseOrPop:
		ok, err := vm.truthy(s.Peek())
		if err != nil {
			return false, err
		}
		if ok == (in.Op == bytecode.OpJumpIfTrueOrPop) {
			return false, vm.jumpForward(f, arg)
		}
		s.Pop()

	// Blocks and iteration
	case bytecode.OpSetupLoop:
		vm.pushBlock(BlockLoop, arg)
	case bytecode.OpSetupExcept:
		vm.pushBlock(BlockExcept, arg)
	case bytecode.OpPopBlock:
		if _, err := vm.popBlock(f); err != nil {
			return false, err
		}
	case bytecode.OpBreakLoop:
		return false, vm.breakLoop(f)
	case bytecode.OpGetIter:
		it, err := vm.iterate(s.Peek())
		if err != nil {
			return false, err
		}
		s.SetTop(iteratorValue(it))
	case bytecode.OpForIter:
		return false, vm.forIter(f, arg)

	case bytecode.OpRaiseVarargs:
		return false, vm.raise(arg)

	// Calls
	case bytecode.OpCallFunction:
		return false, vm.callWithStack(arg, nil)
	case bytecode.OpCallFunctionKw:
		return false, vm.callFunctionKw(arg)
	case bytecode.OpCallFunctionEx:
		return false, vm.callFunctionEx(arg)
	case bytecode.OpCallMethod:
		return false, vm.callMethod(arg)
	case bytecode.OpMakeFunction:
		fn, err := vm.makeFunction(arg)
		if err != nil {
			return false, err
		}
		s.Push(fn)

	// Exception handling beyond SETUP_EXCEPT is not implemented
	case bytecode.OpUnpackEx, bytecode.OpPopExcept, bytecode.OpEndFinally,
		bytecode.OpSetupFinally, bytecode.OpSetupWith:
		return false, unsupported(in.Op.String())

	default:
		return false, errors.Errorf("unknown opcode %d at offset %d in %s", in.Op, in.Offset, f.Code.Name)
	}
	return false, nil
}

// build dispatches the builders that can fail.
func (vm *VM) build(op bytecode.Opcode, n int) (Value, error) {
	switch op {
	case bytecode.OpBuildSet:
		return vm.buildSet(n)
	case bytecode.OpBuildMap:
		return vm.buildMap(n)
	case bytecode.OpBuildConstKeyMap:
		return vm.buildConstKeyMap(n)
	case bytecode.OpBuildString:
		return vm.buildString(n)
	}
	return vm.buildSlice(n)
}
