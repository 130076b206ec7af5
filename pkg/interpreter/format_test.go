package interpreter

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRepr(t *testing.T) {
	d := NewDict()
	require.NoError(t, d.Set(NewStr("k"), NewList(NewFloat(0.1), None, True)))

	tests := []struct {
		v    Value
		want string
	}{
		{NewFloat(1e16), "1e+16"},
		{NewFloat(1.0), "1.0"},
		{NewFloat(math.Inf(-1)), "-inf"},
		{NewTuple(NewInt(1)), "(1,)"},
		{NewTuple(), "()"},
		{NewSetValue(NewSet()), "set()"},
		{NewDictValue(d), "{'k': [0.1, None, True]}"},
		{NewStr("a\nb"), `'a\nb'`},
		{classValue(ExcValueError), "<class 'ValueError'>"},
	}
	vm := New()
	for _, tt := range tests {
		got, err := vm.repr(tt.v)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}
}

func TestReprOfSelfReferencingList(t *testing.T) {
	l := &List{}
	v := Value{Kind: KindList, Ref: l}
	l.Items = append(l.Items, NewInt(1), v)
	got, err := New().repr(v)
	require.NoError(t, err)
	assert.Equal(t, "[1, [...]]", got)
}

func TestPercentFormat(t *testing.T) {
	tests := []struct {
		format string
		args   Value
		want   string
	}{
		{"%5.2f|%-4d|%x", NewTuple(NewFloat(3.14159), NewInt(7), NewInt(255)), " 3.14|7   |ff"},
		{"%s and %r", NewTuple(NewStr("a"), NewStr("b")), "a and 'b'"},
		{"%03d%%", NewInt(7), "007%"},
		{"%+.1e", NewFloat(12345.678), "+1.2e+04"},
		{"%*d", NewTuple(NewInt(4), NewInt(42)), "  42"},
	}
	vm := New()
	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			got, err := vm.percentFormat(tt.format, tt.args)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	d := NewDict()
	require.NoError(t, d.Set(NewStr("name"), NewStr("bob")))
	got, err := vm.percentFormat("hi %(name)s", NewDictValue(d))
	require.NoError(t, err)
	assert.Equal(t, "hi bob", got)

	_, err = vm.percentFormat("%d %d", NewTuple(NewInt(1)))
	assert.EqualError(t, err, "TypeError: not enough arguments for format string")

	_, err = vm.percentFormat("%d", NewTuple(NewInt(1), NewInt(2)))
	assert.EqualError(t, err, "TypeError: not all arguments converted during string formatting")
}

func TestStrFormat(t *testing.T) {
	kw := []Kwarg{{Name: "name", Value: NewStr("x")}}
	tests := []struct {
		format string
		args   []Value
		want   string
	}{
		{"{}-{}", ints(1, 2), "1-2"},
		{"{1}{0}", ints(1, 2), "21"},
		{"{name!r}", nil, "'x'"},
		{"{:,}", ints(1234567), "1,234,567"},
		{"{:08.3f}", []Value{NewFloat(3.14159)}, "0003.142"},
		{"{:^7}", strs("ab"), "  ab   "},
		{"{:*>5}", ints(42), "***42"},
		{"{:#x}", ints(255), "0xff"},
		{"{:.1%}", []Value{NewFloat(0.256)}, "25.6%"},
		{"{{}}", nil, "{}"},
	}
	vm := New()
	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			got, err := vm.strFormat(tt.format, tt.args, kw)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := vm.strFormat("{0}{}", ints(1, 2), nil)
	assert.EqualError(t, err, "ValueError: cannot switch from manual field specification to automatic field numbering")
}
