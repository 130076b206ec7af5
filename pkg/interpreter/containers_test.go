package interpreter

import (
	"testing"

	"bcvm/pkg/bytecode"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setOfInts(t *testing.T, ns ...int64) *Set {
	t.Helper()
	s := NewSet()
	for _, v := range ints(ns...) {
		require.NoError(t, s.Add(v))
	}
	return s
}

// Numeric sets iterate in the same order CPython prints them.
func TestSetIterationOrder(t *testing.T) {
	rng := func(n ...int64) Value {
		v, err := builtinRange(New(), ints(n...), nil)
		require.NoError(t, err)
		return v
	}

	list := func(items ...Value) Value { return NewList(items...) }

	tests := []struct {
		name string
		arg  Value
		want string
	}{
		{"sorted small ints", list(ints(3, 1, 2)...), "{1, 2, 3}"},
		{"duplicates", list(ints(2, 1, 2)...), "{1, 2}"},
		{"distinct slots", list(ints(10, 1)...), "{1, 10}"},
		{"collision keeps first", list(ints(8, 1)...), "{8, 1}"},
		{"neighbor slot", list(ints(9, 1)...), "{9, 1}"},
		{"neighbor slot reversed", list(ints(1, 9)...), "{1, 9}"},
		{"negative", list(ints(-1, 0)...), "{0, -1}"},
		{"floats", list(NewFloat(1.5), NewInt(2), NewFloat(0.5)), "{0.5, 1.5, 2}"},
		{"range", rng(20, 0, -3), "{2, 5, 8, 11, 14, 17, 20}"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := callBuiltin(t, "set", []Value{tt.arg})
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSetReusesDeletedSlots(t *testing.T) {
	s := setOfInts(t, 1, 2, 3, 4, 5, 6, 7)
	ok, err := s.Remove(NewInt(3))
	require.NoError(t, err)
	require.True(t, ok)
	require.NoError(t, s.Add(NewInt(11)))
	assert.Equal(t, "{1, 2, 4, 5, 6, 7, 11}", reprOf(t, NewSetValue(s)))
}

func TestSetOperatorOrder(t *testing.T) {
	vm := New()
	tests := []struct {
		name string
		op   bytecode.Opcode
		b    []int64
		want string
	}{
		{"union", bytecode.OpBinaryOr, []int64{2, 64}, "{64, 17, 1, 33, 2, 5}"},
		{"intersection", bytecode.OpBinaryAnd, []int64{33, 1, 99}, "{33, 1}"},
		{"difference", bytecode.OpBinarySubtract, []int64{17}, "{1, 5, 33}"},
		{"symmetric difference", bytecode.OpBinaryXor, []int64{1, 100}, "{33, 100, 5, 17}"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := NewSetValue(setOfInts(t, 5, 17, 33, 1))
			b := NewSetValue(setOfInts(t, tt.b...))
			r, err := vm.binaryOp(tt.op, a, b)
			require.NoError(t, err)
			assert.Equal(t, tt.want, reprOf(t, r))
		})
	}
}

func TestSetInPlaceOperators(t *testing.T) {
	vm := New()
	a := NewSetValue(setOfInts(t, 5, 17, 33, 1))

	r, err := vm.binaryOp(bytecode.OpInplaceOr, a, NewSetValue(setOfInts(t, 2, 64)))
	require.NoError(t, err)
	assert.True(t, Is(a, r))
	assert.Equal(t, 6, a.Set().Len())

	r, err = vm.binaryOp(bytecode.OpInplaceXor, a, NewSetValue(setOfInts(t, 2, 64)))
	require.NoError(t, err)
	assert.True(t, Is(a, r))
	assert.Equal(t, "{17, 1, 33, 5}", reprOf(t, a))
}

func TestUnhashableSetMember(t *testing.T) {
	_, err := callBuiltin(t, "set", []Value{NewList(NewList())})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unhashable type: 'list'")
}
