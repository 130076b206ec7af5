package interpreter

import (
	"fmt"

	"github.com/pkg/errors"
)

// Sentinel errors. Raised exceptions match them through RaisedError.Is, so
// callers can test a run's failure without knowing the exception class.
var (
	ErrMaxStepsExceeded  = errors.New("maximum steps exceeded")
	ErrNameResolution    = errors.New("name resolution failed")
	ErrRuntimeType       = errors.New("runtime type error")
	ErrBlockStack        = errors.New("block stack inconsistency")
	ErrUnsupported       = errors.New("unsupported operation")
	ErrRecursionLimit    = errors.New("maximum recursion depth exceeded")
	ErrInvalidJumpTarget = errors.New("invalid jump target")
	ErrStackUnderflow    = errors.New("operand stack underflow")
	ErrRaised            = errors.New("exception raised")
)

// Built-in exception classes, shared by every VM.
var (
	ExcBaseException       = newExcClass("BaseException")
	ExcException           = newExcClass("Exception", ExcBaseException)
	ExcArithmeticError     = newExcClass("ArithmeticError", ExcException)
	ExcZeroDivisionError   = newExcClass("ZeroDivisionError", ExcArithmeticError)
	ExcOverflowError       = newExcClass("OverflowError", ExcArithmeticError)
	ExcAssertionError      = newExcClass("AssertionError", ExcException)
	ExcAttributeError      = newExcClass("AttributeError", ExcException)
	ExcLookupError         = newExcClass("LookupError", ExcException)
	ExcIndexError          = newExcClass("IndexError", ExcLookupError)
	ExcKeyError            = newExcClass("KeyError", ExcLookupError)
	ExcNameError           = newExcClass("NameError", ExcException)
	ExcUnboundLocalError   = newExcClass("UnboundLocalError", ExcNameError)
	ExcRuntimeError        = newExcClass("RuntimeError", ExcException)
	ExcRecursionError      = newExcClass("RecursionError", ExcRuntimeError)
	ExcNotImplementedError = newExcClass("NotImplementedError", ExcRuntimeError)
	ExcStopIteration       = newExcClass("StopIteration", ExcException)
	ExcTypeError           = newExcClass("TypeError", ExcException)
	ExcValueError          = newExcClass("ValueError", ExcException)
)

var exceptionClasses = []*Class{
	ExcBaseException, ExcException, ExcArithmeticError, ExcZeroDivisionError,
	ExcOverflowError, ExcAssertionError, ExcAttributeError, ExcLookupError,
	ExcIndexError, ExcKeyError, ExcNameError, ExcUnboundLocalError,
	ExcRuntimeError, ExcRecursionError, ExcNotImplementedError,
	ExcStopIteration, ExcTypeError, ExcValueError,
}

func newExcClass(name string, bases ...*Class) *Class {
	return &Class{Name: name, Bases: bases, Attrs: Namespace{}, builtin: true, exc: true}
}

// RaisedError carries a language-level exception out of Run.
type RaisedError struct {
	Exc *Instance
}

func (e *RaisedError) Error() string {
	msg := (&printer{}).excMessage(e.Exc)
	if msg == "" {
		return e.Exc.Class.Name
	}
	return e.Exc.Class.Name + ": " + msg
}

// Value returns the exception object.
func (e *RaisedError) Value() Value {
	return Value{Kind: KindException, Ref: e.Exc}
}

// Cause returns the exception recorded by `raise ... from ...`, if any.
func (e *RaisedError) Cause() *RaisedError {
	if e.Exc.Cause == nil {
		return nil
	}
	return &RaisedError{Exc: e.Exc.Cause}
}

func (e *RaisedError) Is(target error) bool {
	switch target {
	case ErrRaised:
		return true
	case ErrNameResolution:
		return e.Exc.Class.IsSubclass(ExcNameError)
	case ErrRuntimeType:
		return e.Exc.Class.IsSubclass(ExcTypeError)
	case ErrRecursionLimit:
		return e.Exc.Class.IsSubclass(ExcRecursionError)
	default:
		return false
	}
}

// newExc builds a RaisedError of the given class with a formatted message.
func newExc(cls *Class, format string, args ...any) error {
	return &RaisedError{Exc: &Instance{
		Class: cls,
		Attrs: Namespace{},
		Args:  []Value{NewStr(fmt.Sprintf(format, args...))},
	}}
}

func newTypeError(format string, args ...any) error {
	return newExc(ExcTypeError, format, args...)
}

func newNameError(name string) error {
	return newExc(ExcNameError, "name '%s' is not defined", name)
}

func newKeyError(key Value) error {
	return &RaisedError{Exc: &Instance{Class: ExcKeyError, Attrs: Namespace{}, Args: []Value{key}}}
}

func stopIteration() error {
	return &RaisedError{Exc: &Instance{Class: ExcStopIteration, Attrs: Namespace{}}}
}

// isStopIteration reports whether err is a raised StopIteration.
func isStopIteration(err error) bool {
	var raised *RaisedError
	return errors.As(err, &raised) && raised.Exc.Class.IsSubclass(ExcStopIteration)
}

// unsupported reports an opcode the interpreter deliberately does not
// implement.
func unsupported(what string) error {
	return errors.Wrap(ErrUnsupported, what)
}

// exceptionValue turns the operand of a raise into an exception instance.
// A class is instantiated with no arguments.
func (vm *VM) exceptionValue(v Value) (*Instance, error) {
	switch v.Kind {
	case KindException:
		return v.Instance(), nil
	case KindExcClass:
		inst, err := vm.call(v, nil, nil)
		if err != nil {
			return nil, err
		}
		if inst.Kind != KindException {
			return nil, newTypeError("calling %s should have returned an instance of BaseException, not %s",
				v.Class().Name, inst.TypeName())
		}
		return inst.Instance(), nil
	default:
		return nil, newTypeError("exceptions must derive from BaseException")
	}
}

// exceptionMatches implements the "exception match" comparator.
func exceptionMatches(exc, spec Value) (bool, error) {
	var cls *Class
	switch exc.Kind {
	case KindException:
		cls = exc.Instance().Class
	case KindExcClass:
		cls = exc.Class()
	default:
		return false, nil
	}

	if spec.Kind == KindTuple {
		for _, item := range spec.Tuple().Items {
			ok, err := exceptionMatches(exc, item)
			if err != nil || ok {
				return ok, err
			}
		}
		return false, nil
	}
	if spec.Kind != KindExcClass {
		return false, newTypeError("catching classes that do not inherit from BaseException is not allowed")
	}
	return cls.IsSubclass(spec.Class()), nil
}
