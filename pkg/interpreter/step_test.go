package interpreter

import (
	"bytes"
	"testing"

	"bcvm/pkg/bytecode"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// harness executes single instructions against a frame of its own.
type harness struct {
	vm  *VM
	f   *Frame
	out bytes.Buffer
}

func newHarness() *harness {
	h := &harness{}
	h.vm = New(WithWriter(&h.out))
	h.vm.builtins = h.vm.newBuiltins()
	ns := Namespace{"__name__": NewStr("__main__")}
	h.f = newFrame(bytecode.NewCode("test"), nil, ns, ns, h.vm.builtins)
	h.vm.frames = append(h.vm.frames, h.f)
	return h
}

func (h *harness) exec(in bytecode.Instruction, stack ...Value) (bool, error) {
	h.vm.stack.Truncate(0)
	for _, v := range stack {
		h.vm.stack.Push(v)
	}
	return h.vm.step(h.f, in)
}

func (h *harness) stack(t *testing.T) []string {
	t.Helper()
	var out []string
	for _, v := range h.vm.stack.Array() {
		s, err := h.vm.repr(v)
		require.NoError(t, err)
		out = append(out, s)
	}
	return out
}

func ints(ns ...int64) []Value {
	out := make([]Value, len(ns))
	for i, n := range ns {
		out[i] = NewInt(n)
	}
	return out
}

func TestStepStackEffects(t *testing.T) {
	op := bytecode.Make
	tests := []struct {
		name  string
		in    bytecode.Instruction
		stack []Value
		want  []string
	}{
		{"pop top", op(bytecode.OpPopTop, 0, nil), ints(1, 2), []string{"1"}},
		{"rot two", op(bytecode.OpRotTwo, 0, nil), ints(1, 2), []string{"2", "1"}},
		{"rot three", op(bytecode.OpRotThree, 0, nil), ints(1, 2, 3), []string{"3", "1", "2"}},
		{"dup top", op(bytecode.OpDupTop, 0, nil), ints(1), []string{"1", "1"}},
		{"dup top two", op(bytecode.OpDupTopTwo, 0, nil), ints(1, 2), []string{"1", "2", "1", "2"}},
		{"nop", op(bytecode.OpNop, 0, nil), ints(1), []string{"1"}},
		{"extended arg", op(bytecode.OpExtendedArg, 0, 1), ints(1), []string{"1"}},

		{"negative", op(bytecode.OpUnaryNegative, 0, nil), ints(5), []string{"-5"}},
		{"positive", op(bytecode.OpUnaryPositive, 0, nil), []Value{True}, []string{"1"}},
		{"not", op(bytecode.OpUnaryNot, 0, nil), ints(0), []string{"True"}},
		{"invert", op(bytecode.OpUnaryInvert, 0, nil), ints(5), []string{"-6"}},
		{"convert", op(bytecode.OpUnaryConvert, 0, nil), ints(5), []string{"'5'"}},

		{"subtract", op(bytecode.OpBinarySubtract, 0, nil), ints(7, 2), []string{"5"}},
		{"power", op(bytecode.OpBinaryPower, 0, nil), ints(2, 10), []string{"1024"}},
		{"floor divide", op(bytecode.OpBinaryFloorDivide, 0, nil), ints(-7, 2), []string{"-4"}},
		{"modulo", op(bytecode.OpBinaryModulo, 0, nil), ints(-7, 2), []string{"1"}},
		{"true divide", op(bytecode.OpBinaryTrueDivide, 0, nil), ints(7, 2), []string{"3.5"}},
		{"lshift", op(bytecode.OpBinaryLshift, 0, nil), ints(1, 4), []string{"16"}},
		{"xor", op(bytecode.OpBinaryXor, 0, nil), ints(6, 3), []string{"5"}},
		{"subscr", op(bytecode.OpBinarySubscr, 0, nil), []Value{NewList(ints(10, 20)...), NewInt(-1)}, []string{"20"}},
		{"string repeat", op(bytecode.OpBinaryMultiply, 0, nil), []Value{NewStr("ab"), NewInt(2)}, []string{"'abab'"}},
		{"inplace add", op(bytecode.OpInplaceAdd, 0, nil), []Value{NewList(ints(1)...), NewList(ints(2)...)}, []string{"[1, 2]"}},
		{"compare", op(bytecode.OpCompareOp, 0, "<"), ints(1, 2), []string{"True"}},
		{"in", op(bytecode.OpCompareOp, 0, "in"), []Value{NewInt(2), NewTuple(ints(1, 2)...)}, []string{"True"}},

		{"build tuple", op(bytecode.OpBuildTuple, 0, 2), ints(1, 2), []string{"(1, 2)"}},
		{"build list", op(bytecode.OpBuildList, 0, 3), ints(1, 2, 3), []string{"[1, 2, 3]"}},
		{"build set", op(bytecode.OpBuildSet, 0, 3), ints(2, 1, 2), []string{"{1, 2}"}},
		{"build map", op(bytecode.OpBuildMap, 0, 2),
			[]Value{NewStr("a"), NewInt(1), NewStr("b"), NewInt(2)}, []string{"{'a': 1, 'b': 2}"}},
		{"build const key map", op(bytecode.OpBuildConstKeyMap, 0, 2),
			[]Value{NewInt(1), NewInt(2), NewTuple(NewStr("a"), NewStr("b"))}, []string{"{'a': 1, 'b': 2}"}},
		{"build string", op(bytecode.OpBuildString, 0, 2), []Value{NewStr("ab"), NewStr("cd")}, []string{"'abcd'"}},
		{"build slice", op(bytecode.OpBuildSlice, 0, 2), ints(1, 2), []string{"slice(1, 2, None)"}},
		{"build slice step", op(bytecode.OpBuildSlice, 0, 3), ints(1, 2, 3), []string{"slice(1, 2, 3)"}},
		{"unpack", op(bytecode.OpUnpackSequence, 0, 3), []Value{NewTuple(ints(1, 2, 3)...)}, []string{"3", "2", "1"}},
		{"list append", op(bytecode.OpListAppend, 0, 2),
			[]Value{NewList(), NewInt(0), NewInt(9)}, []string{"[9]", "0"}},

		{"store subscr", op(bytecode.OpStoreSubscr, 0, nil), []Value{NewInt(9), NewList(ints(0)...), NewInt(0)}, nil},
		{"delete subscr", op(bytecode.OpDeleteSubscr, 0, nil), []Value{NewList(ints(0)...), NewInt(0)}, nil},
		{"load const", op(bytecode.OpLoadConst, 0, bytecode.IntConst(7)), nil, []string{"7"}},
		{"store name", op(bytecode.OpStoreName, 0, "x"), ints(1), nil},
		{"store fast", op(bytecode.OpStoreFast, 0, "x"), ints(1), nil},
		{"store global", op(bytecode.OpStoreGlobal, 0, "x"), ints(1), nil},
		{"load global", op(bytecode.OpLoadGlobal, 0, "len"), nil, []string{"<built-in function len>"}},
		{"load attr", op(bytecode.OpLoadAttr, 0, "stop"), []Value{{Kind: KindRange, Ref: &Range{Stop: 3, Step: 1}}}, []string{"3"}},
		{"print expr", op(bytecode.OpPrintExpr, 0, nil), ints(1), nil},
		{"setup loop", op(bytecode.OpSetupLoop, 0, 10), ints(1), []string{"1"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness()
			returned, err := h.exec(tt.in, tt.stack...)
			require.NoError(t, err)
			assert.False(t, returned)
			assert.Equal(t, tt.want, h.stack(t))
		})
	}
}

func TestStepCallFunctionOperand(t *testing.T) {
	h := newHarness()
	var gotArgs []Value
	var gotKw []Kwarg
	callable := NewBuiltin("spy", func(vm *VM, args []Value, kw []Kwarg) (Value, error) {
		gotArgs, gotKw = args, kw
		return NewStr("done"), nil
	})

	_, err := h.exec(bytecode.Make(bytecode.OpCallFunction, 0, 0x0102),
		callable, NewStr("p1"), NewStr("p2"), NewStr("k1"), NewStr("v1"))
	require.NoError(t, err)

	assert.Equal(t, []Value{NewStr("p1"), NewStr("p2")}, gotArgs)
	assert.Equal(t, []Kwarg{{Name: "k1", Value: NewStr("v1")}}, gotKw)
	assert.Equal(t, []string{"'done'"}, h.stack(t))
}

func TestStepCallFunctionKwExtraPositionals(t *testing.T) {
	h := newHarness()
	var gotArgs []Value
	callable := NewBuiltin("spy", func(vm *VM, args []Value, kw []Kwarg) (Value, error) {
		gotArgs = args
		return None, nil
	})

	_, err := h.exec(bytecode.Make(bytecode.OpCallFunctionKw, 0, 1),
		callable, NewInt(1), NewList(ints(2, 3)...))
	require.NoError(t, err)
	assert.Equal(t, ints(1, 2, 3), gotArgs)
	assert.Equal(t, []string{"None"}, h.stack(t))
}

func TestStepGetIterReplacesTop(t *testing.T) {
	h := newHarness()
	_, err := h.exec(bytecode.Make(bytecode.OpGetIter, 0, nil), NewInt(1), NewList(ints(5)...))
	require.NoError(t, err)
	require.Equal(t, 2, h.vm.StackDepth())
	assert.Equal(t, KindIterator, h.vm.stack.Peek().Kind)
	assert.Equal(t, "1", reprOf(t, h.vm.stack.PeekN(2)))

	_, err = h.exec(bytecode.Make(bytecode.OpGetIter, 0, nil), NewInt(1))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "'int' object is not iterable")
}

func TestStepLoadMethodPairs(t *testing.T) {
	h := newHarness()
	_, err := h.exec(bytecode.Make(bytecode.OpLoadMethod, 0, "append"), NewList())
	require.NoError(t, err)
	require.Equal(t, 2, h.vm.StackDepth())
	assert.Equal(t, KindNull, h.vm.stack.PeekN(2).Kind)
	assert.Equal(t, KindBoundMethod, h.vm.stack.PeekN(1).Kind)
}

func TestStepAttributes(t *testing.T) {
	h := newHarness()
	obj := Value{Kind: KindInstance, Ref: &Instance{Class: &Class{Name: "C", Attrs: Namespace{}}, Attrs: Namespace{}}}

	_, err := h.exec(bytecode.Make(bytecode.OpStoreAttr, 0, "x"), NewInt(5), obj)
	require.NoError(t, err)
	assert.Equal(t, 0, h.vm.StackDepth())
	assert.Equal(t, NewInt(5).Int.Int64(), obj.Instance().Attrs["x"].Int.Int64())

	_, err = h.exec(bytecode.Make(bytecode.OpDeleteAttr, 0, "x"), obj)
	require.NoError(t, err)
	assert.Equal(t, 0, h.vm.StackDepth())
	assert.NotContains(t, obj.Instance().Attrs, "x")

	_, err = h.exec(bytecode.Make(bytecode.OpLoadAttr, 0, "x"), obj)
	assert.EqualError(t, err, "AttributeError: 'C' object has no attribute 'x'")
}

func TestStepReturnValue(t *testing.T) {
	h := newHarness()
	returned, err := h.exec(bytecode.Make(bytecode.OpReturnValue, 0, nil), NewInt(3))
	require.NoError(t, err)
	assert.True(t, returned)
	assert.Equal(t, int64(3), h.vm.returnValue.Int.Int64())
	assert.Equal(t, 0, h.vm.StackDepth())
}

func TestStepBlocks(t *testing.T) {
	h := newHarness()
	_, err := h.exec(bytecode.Make(bytecode.OpSetupExcept, 0, 8), ints(1, 2)...)
	require.NoError(t, err)
	require.Equal(t, 1, h.vm.BlockDepth())
	assert.Equal(t, Block{Kind: BlockExcept, Target: 8, Level: 2}, h.vm.blocks.Peek())

	_, err = h.exec(bytecode.Make(bytecode.OpPopBlock, 0, nil))
	require.NoError(t, err)
	assert.Equal(t, 0, h.vm.BlockDepth())

	_, err = h.exec(bytecode.Make(bytecode.OpPopBlock, 0, nil))
	assert.ErrorIs(t, err, ErrBlockStack)
}

func TestStepStoreSubscrOrder(t *testing.T) {
	h := newHarness()
	d := NewDict()
	_, err := h.exec(bytecode.Make(bytecode.OpStoreSubscr, 0, nil), NewStr("value"), NewDictValue(d), NewStr("key"))
	require.NoError(t, err)
	v, ok, err := d.Get(NewStr("key"))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "value", v.Str)
}

func TestStepUnpackErrors(t *testing.T) {
	h := newHarness()
	_, err := h.exec(bytecode.Make(bytecode.OpUnpackSequence, 0, 3), NewTuple(ints(1, 2)...))
	assert.EqualError(t, err, "ValueError: not enough values to unpack (expected 3, got 2)")

	_, err = h.exec(bytecode.Make(bytecode.OpUnpackSequence, 0, 2), NewList(ints(1, 2, 3)...))
	assert.EqualError(t, err, "ValueError: too many values to unpack (expected 2)")

	_, err = h.exec(bytecode.Make(bytecode.OpUnpackSequence, 0, 2), NewStr("ab"))
	require.NoError(t, err)
	assert.Equal(t, []string{"'b'", "'a'"}, h.stack(t))
}

func TestStepPrintExprWritesRepr(t *testing.T) {
	h := newHarness()
	_, err := h.exec(bytecode.Make(bytecode.OpPrintExpr, 0, nil), NewStr("hi"))
	require.NoError(t, err)
	_, err = h.exec(bytecode.Make(bytecode.OpPrintExpr, 0, nil), None)
	require.NoError(t, err)
	assert.Equal(t, "'hi'\n", h.out.String())
}
