package interpreter

import (
	"fmt"
	"io"
	"os"

	"bcvm/pkg/bytecode"
	"bcvm/pkg/stack"

	"github.com/charmbracelet/log"
	"github.com/pkg/errors"
)

const (
	DefaultMaxCallDepth = 1000
)

// VM executes code objects. It owns the call stack and the operand and block
// stacks, which are shared by every frame. A VM is not safe for concurrent
// use.
type VM struct {
	frames []*Frame            // call stack
	stack  *stack.Stack[Value] // operand stack
	blocks *stack.Stack[Block] // block stack
	extras map[string]Value    // builtins added with WithBuiltins
	ids    map[any]int64       // id() numbering for reference values
	types  map[string]*Class   // type() of values without a builtin type object
	binary [256]binaryFunc     // operator table, indexed by opcode
	unary  [256]unaryFunc

	globals     Namespace // globals of the most recent run
	builtins    Namespace // builtins of the most recent run
	returnValue Value     // last value produced by RETURN_VALUE

	out    io.Writer   // output writer for print and PRINT_EXPR
	logger *log.Logger // trace and frame logging
	trace  bool

	maxSteps     int // maximum steps (0 = unlimited)
	steps        int // steps executed
	maxCallDepth int
	compareDepth int  // nesting of container comparisons
	jumpTable    bool // resolve jumps through Code.IndexOf instead of scanning
	chainCause   bool // record the cause of `raise ... from ...`
}

type Option func(*VM)

// WithWriter sets the output writer for print and PRINT_EXPR
func WithWriter(w io.Writer) Option {
	return func(vm *VM) { vm.out = w }
}

// WithMaxSteps sets a maximum number of executed instructions before Run
// returns ErrMaxStepsExceeded
func WithMaxSteps(n int) Option {
	return func(vm *VM) { vm.maxSteps = n }
}

// WithMaxCallDepth sets the frame depth at which calls raise RecursionError
func WithMaxCallDepth(n int) Option {
	return func(vm *VM) {
		if n > 0 {
			vm.maxCallDepth = n
		}
	}
}

// WithJumpTable resolves jump targets through a precomputed offset table
// instead of a linear scan. Observable behavior is the same.
func WithJumpTable(enabled bool) Option {
	return func(vm *VM) { vm.jumpTable = enabled }
}

// WithChainCause makes RAISE_VARARGS 2 record the cause on the raised
// exception. When disabled the cause is popped and discarded.
func WithChainCause(enabled bool) Option {
	return func(vm *VM) { vm.chainCause = enabled }
}

// WithLogger sets the logger used for tracing
func WithLogger(l *log.Logger) Option {
	return func(vm *VM) { vm.logger = l }
}

// WithTrace logs every dispatched instruction at debug level
func WithTrace(enabled bool) Option {
	return func(vm *VM) { vm.trace = enabled }
}

// WithBuiltins adds or replaces builtins visible to every run
func WithBuiltins(b map[string]Value) Option {
	return func(vm *VM) {
		for name, v := range b {
			vm.extras[name] = v
		}
	}
}

// New creates a VM
func New(opts ...Option) *VM {
	vm := &VM{
		stack:        stack.NewStack[Value](),
		blocks:       stack.NewStack[Block](),
		extras:       make(map[string]Value),
		ids:          make(map[any]int64),
		maxCallDepth: DefaultMaxCallDepth,
		chainCause:   true,
		returnValue:  None,
	}

	for _, o := range opts {
		o(vm)
	}

	if vm.out == nil {
		vm.out = os.Stdout
	}
	if vm.logger == nil {
		vm.logger = log.Default()
	}

	vm.bindOperators()
	return vm
}

// Run executes code as the module frame and returns the last value produced
// by RETURN_VALUE. Output written before a failure stays written.
func (vm *VM) Run(code *bytecode.Code) (Value, error) {
	vm.reset()

	globals := Namespace{"__name__": NewStr("__main__")}
	vm.globals = globals
	vm.builtins = vm.newBuiltins()
	frame := newFrame(code, nil, globals, globals, vm.builtins)

	return vm.runFrame(frame)
}

// Globals returns the global namespace of the most recent run
func (vm *VM) Globals() Namespace {
	return vm.globals
}

// Output returns the output writer
func (vm *VM) Output() io.Writer {
	return vm.out
}

// Steps returns the number of instructions executed by the most recent run
func (vm *VM) Steps() int {
	return vm.steps
}

// StackDepth returns the operand stack depth
func (vm *VM) StackDepth() int {
	return vm.stack.Size()
}

// BlockDepth returns the block stack depth
func (vm *VM) BlockDepth() int {
	return vm.blocks.Size()
}

func (vm *VM) reset() {
	vm.frames = vm.frames[:0]
	vm.stack.Truncate(0)
	vm.blocks.Truncate(0)
	vm.returnValue = None
	vm.steps = 0
	vm.ids = make(map[any]int64)
	vm.compareDepth = 0
}

// frame returns the current call frame, or nil if none
func (vm *VM) frame() *Frame {
	if len(vm.frames) == 0 {
		return nil
	}
	return vm.frames[len(vm.frames)-1]
}

// runFrame executes f until its instruction pointer runs off the end or
// RETURN_VALUE executes. On exit, normal or not, the shared stacks are cut
// back to their depth at entry, dropping anything the frame left behind.
func (vm *VM) runFrame(f *Frame) (result Value, err error) {
	if len(vm.frames) >= vm.maxCallDepth {
		return None, newExc(ExcRecursionError, "maximum recursion depth exceeded")
	}

	f.stackBase = vm.stack.Size()
	f.blockBase = vm.blocks.Size()
	vm.frames = append(vm.frames, f)
	vm.logger.Debug("push frame", "code", f.Code.Name, "depth", len(vm.frames))
	defer func() {
		if r := recover(); r != nil {
			result, err = None, vm.recovered(f, r)
		}
		vm.frames = vm.frames[:len(vm.frames)-1]
		vm.stack.Truncate(min(f.stackBase, vm.stack.Size()))
		vm.blocks.Truncate(min(f.blockBase, vm.blocks.Size()))
		vm.logger.Debug("pop frame", "code", f.Code.Name, "depth", len(vm.frames))
	}()

	if err := vm.loop(f); err != nil {
		return None, err
	}
	return vm.returnValue, nil
}

// loop is the fetch, advance, execute cycle.
func (vm *VM) loop(f *Frame) error {
	for !f.done() {
		if vm.maxSteps > 0 && vm.steps >= vm.maxSteps {
			return errors.Wrapf(ErrMaxStepsExceeded, "after %d steps", vm.steps)
		}

		in := f.Code.Instructions[f.IP]
		f.IP++
		vm.steps++

		if vm.trace {
			vm.logger.Debug("exec",
				"depth", len(vm.frames),
				"offset", in.Offset,
				"op", in.Op.String(),
				"arg", in.Arg.String(),
				"stack", vm.stack.Size())
		}

		returned, err := vm.step(f, in)
		if err != nil {
			return err
		}
		if returned {
			return nil
		}
	}
	return nil
}

// recovered converts a host panic inside a handler of f into an error.
func (vm *VM) recovered(f *Frame, r any) error {
	where := f.Code.Name
	if f.IP > 0 && f.IP <= len(f.Code.Instructions) {
		in := f.Code.Instructions[f.IP-1]
		where = fmt.Sprintf("%s at offset %d in %s", in.Op, in.Offset, f.Code.Name)
	}

	if e, ok := r.(error); ok && errors.Is(e, stack.ErrUnderflow) {
		return errors.Wrap(ErrStackUnderflow, where)
	}
	return errors.Errorf("internal error: %v (%s)", r, where)
}

// currentGlobals returns the globals of the executing frame, falling back to
// def when no frame is active.
func (vm *VM) currentGlobals(def Namespace) Namespace {
	if f := vm.frame(); f != nil {
		return f.Globals
	}
	if def != nil {
		return def
	}
	return vm.globals
}

// id returns a stable identity number for a reference value.
func (vm *VM) id(v Value) int64 {
	key := v.Ref
	if key == nil {
		key = v.Int
	}
	if id, ok := vm.ids[key]; ok {
		return id
	}
	id := int64(len(vm.ids) + 1)
	vm.ids[key] = id
	return id
}
