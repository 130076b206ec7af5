package interpreter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// callBuiltin calls a builtin by name with a fresh namespace.
func callBuiltin(t *testing.T, name string, args []Value, kw ...Kwarg) (string, error) {
	t.Helper()
	vm := New()
	vm.builtins = vm.newBuiltins()
	fn, ok := vm.builtins[name]
	require.True(t, ok, name)
	v, err := vm.call(fn, args, kw)
	if err != nil {
		return "", err
	}
	s, err := vm.repr(v)
	require.NoError(t, err)
	return s, nil
}

// callMethod calls a method of a built-in value.
func callMethod(t *testing.T, recv Value, name string, args []Value, kw ...Kwarg) (string, error) {
	t.Helper()
	vm := New()
	m, err := vm.getAttr(recv, name)
	require.NoError(t, err)
	v, err := vm.call(m, args, kw)
	if err != nil {
		return "", err
	}
	s, err := vm.repr(v)
	require.NoError(t, err)
	return s, nil
}

func strs(ss ...string) []Value {
	out := make([]Value, len(ss))
	for i, s := range ss {
		out[i] = NewStr(s)
	}
	return out
}

func TestBuiltins(t *testing.T) {
	rng := func(n ...int64) Value {
		v, err := builtinRange(New(), ints(n...), nil)
		require.NoError(t, err)
		return v
	}
	intType := NewBuiltin("int", builtinInt)

	tests := []struct {
		name string
		args []Value
		kw   []Kwarg
		want string
	}{
		{"len", []Value{NewStr("héllo")}, nil, "5"},
		{"range", ints(1, 10, 3), nil, "range(1, 10, 3)"},
		{"list", []Value{rng(1, 10, 3)}, nil, "[1, 4, 7]"},
		{"list", []Value{rng(5, 0, -2)}, nil, "[5, 3, 1]"},
		{"tuple", []Value{NewStr("ab")}, nil, "('a', 'b')"},
		{"str", []Value{NewFloat(2.0)}, nil, "'2.0'"},
		{"repr", []Value{NewStr("it's")}, nil, `'"it\'s"'`},
		{"int", []Value{NewStr(" -42 ")}, nil, "-42"},
		{"int", []Value{NewStr("ff"), NewInt(16)}, nil, "255"},
		{"int", []Value{NewFloat(-3.9)}, nil, "-3"},
		{"float", []Value{NewStr("1e3")}, nil, "1000.0"},
		{"bool", []Value{NewList()}, nil, "False"},
		{"abs", ints(-4), nil, "4"},
		{"min", ints(3, 1, 2), nil, "1"},
		{"max", []Value{NewList(ints(3, 9, 2)...)}, nil, "9"},
		{"sum", []Value{NewList(ints(1, 2, 3)...), NewInt(10)}, nil, "16"},
		{"sorted", []Value{NewList(ints(3, 1, 2)...)}, []Kwarg{{Name: "reverse", Value: True}}, "[3, 2, 1]"},
		{"any", []Value{NewList(ints(0, 0, 1)...)}, nil, "True"},
		{"all", []Value{NewList(ints(1, 0)...)}, nil, "False"},
		{"chr", ints(65), nil, "'A'"},
		{"ord", []Value{NewStr("a")}, nil, "97"},
		{"divmod", ints(-7, 2), nil, "(-4, 1)"},
		{"pow", ints(2, 10, 1000), nil, "24"},
		{"round", []Value{NewFloat(2.5)}, nil, "2"},
		{"round", []Value{NewFloat(3.14159), NewInt(2)}, nil, "3.14"},
		{"isinstance", []Value{NewInt(1), classValue(ExcException)}, nil, "False"},
		{"isinstance", []Value{True, intType}, nil, "True"},
		{"isinstance", []Value{NewFloat(1), intType}, nil, "False"},
		{"isinstance", []Value{NewStr("a"), NewTuple(intType, classValue(objectClass))}, nil, "True"},
		{"type", ints(1), nil, "<class 'int'>"},
		{"type", []Value{None}, nil, "<class 'NoneType'>"},
		{"type", []Value{classValue(ExcException)}, nil, "<class 'type'>"},
		{"hash", ints(-1), nil, "-2"},
		{"hash", []Value{NewFloat(2.0)}, nil, "2"},
		{"hash", []Value{NewFloat(1.5)}, nil, "1152921504606846977"},
		{"hash", []Value{NewTuple(ints(1, 2)...)}, nil, "3713081631934410656"},
		{"callable", []Value{NewInt(1)}, nil, "False"},
		{"dict", nil, []Kwarg{{Name: "a", Value: NewInt(1)}}, "{'a': 1}"},
		{"set", []Value{NewList(ints(1, 1, 2)...)}, nil, "{1, 2}"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := callBuiltin(t, tt.name, tt.args, tt.kw...)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestBuiltinIterators(t *testing.T) {
	vm := New()
	vm.builtins = vm.newBuiltins()

	collect := func(name string, args ...Value) string {
		v, err := vm.call(vm.builtins[name], args, nil)
		require.NoError(t, err)
		items, err := vm.collect(v)
		require.NoError(t, err)
		s, err := vm.repr(NewList(items...))
		require.NoError(t, err)
		return s
	}

	assert.Equal(t, "[(0, 'a'), (1, 'b')]", collect("enumerate", NewStr("ab")))
	assert.Equal(t, "[(1, 'a'), (2, 'b')]", collect("zip", NewList(ints(1, 2, 3)...), NewStr("ab")))
	assert.Equal(t, "[2, 1]", collect("reversed", NewList(ints(1, 2)...)))
	assert.Equal(t, "[1, 3]", collect("filter", None, NewList(ints(1, 0, 3)...)))
	assert.Equal(t, "['1', '2']", collect("map", vm.builtins["str"], NewList(ints(1, 2)...)))
}

func TestBuiltinNext(t *testing.T) {
	vm := New()
	vm.builtins = vm.newBuiltins()
	it, err := vm.call(vm.builtins["iter"], []Value{NewList(ints(7)...)}, nil)
	require.NoError(t, err)

	v, err := vm.call(vm.builtins["next"], []Value{it}, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(7), v.Int.Int64())

	v, err = vm.call(vm.builtins["next"], []Value{it, NewStr("done")}, nil)
	require.NoError(t, err)
	assert.Equal(t, "done", v.Str)

	_, err = vm.call(vm.builtins["next"], []Value{it}, nil)
	assert.True(t, isStopIteration(err))
}

func TestBuiltinErrors(t *testing.T) {
	tests := []struct {
		name string
		args []Value
		want string
	}{
		{"len", ints(1), "TypeError: object of type 'int' has no len()"},
		{"int", []Value{NewStr("x")}, "ValueError: invalid literal for int() with base 10: 'x'"},
		{"min", []Value{NewList()}, "ValueError: min() arg is an empty sequence"},
		{"chr", ints(-1), "ValueError: chr() arg not in range(0x110000)"},
		{"range", []Value{NewInt(1), NewInt(2), NewInt(0)}, "ValueError: range() arg 3 must not be zero"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := callBuiltin(t, tt.name, tt.args)
			assert.EqualError(t, err, tt.want)
		})
	}
}

func TestListMethods(t *testing.T) {
	xs := NewList(ints(3, 1, 2)...)

	_, err := callMethod(t, xs, "append", ints(4))
	require.NoError(t, err)
	_, err = callMethod(t, xs, "insert", ints(0, 9))
	require.NoError(t, err)
	got, err := callMethod(t, xs, "pop", nil)
	require.NoError(t, err)
	assert.Equal(t, "4", got)

	got, err = callMethod(t, xs, "index", ints(1))
	require.NoError(t, err)
	assert.Equal(t, "2", got)

	_, err = callMethod(t, xs, "sort", nil)
	require.NoError(t, err)
	assert.Equal(t, "[1, 2, 3, 9]", reprOf(t, xs))

	_, err = callMethod(t, xs, "remove", ints(5))
	assert.EqualError(t, err, "ValueError: list.remove(x): x not in list")

	_, err = callMethod(t, NewList(), "pop", nil)
	assert.EqualError(t, err, "IndexError: pop from empty list")
}

func TestSortIsStableWithKey(t *testing.T) {
	vm := New()
	vm.builtins = vm.newBuiltins()
	words := NewList(strs("bb", "a", "cc", "d")...)
	_, err := callMethod(t, words, "sort", nil, Kwarg{Name: "key", Value: vm.builtins["len"]})
	require.NoError(t, err)
	assert.Equal(t, "['a', 'd', 'bb', 'cc']", reprOf(t, words))

	_, err = callMethod(t, NewList(NewInt(1), NewStr("a")), "sort", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "TypeError: '<' not supported between instances of")
}

func TestDictMethods(t *testing.T) {
	d := NewDict()
	require.NoError(t, d.Set(NewStr("a"), NewInt(1)))
	dv := NewDictValue(d)

	got, err := callMethod(t, dv, "get", strs("z"))
	require.NoError(t, err)
	assert.Equal(t, "None", got)

	got, err = callMethod(t, dv, "setdefault", []Value{NewStr("b"), NewInt(2)})
	require.NoError(t, err)
	assert.Equal(t, "2", got)

	got, err = callMethod(t, dv, "items", nil)
	require.NoError(t, err)
	assert.Equal(t, "[('a', 1), ('b', 2)]", got)

	got, err = callMethod(t, dv, "pop", strs("a"))
	require.NoError(t, err)
	assert.Equal(t, "1", got)

	_, err = callMethod(t, dv, "pop", strs("a"))
	assert.EqualError(t, err, "KeyError: 'a'")
}

func TestStrMethods(t *testing.T) {
	tests := []struct {
		recv string
		name string
		args []Value
		want string
	}{
		{"a,b,,c", "split", strs(","), "['a', 'b', '', 'c']"},
		{"  a  b ", "split", nil, "['a', 'b']"},
		{"-", "join", []Value{NewList(strs("x", "y")...)}, "'x-y'"},
		{"xxhixx", "strip", strs("x"), "'hi'"},
		{"hello", "replace", strs("l", "L"), "'heLLo'"},
		{"hello", "find", strs("lo"), "3"},
		{"hello", "startswith", strs("he"), "True"},
		{"hello world", "title", nil, "'Hello World'"},
		{"abc", "upper", nil, "'ABC'"},
		{"123", "isdigit", nil, "True"},
		{"banana", "count", strs("an"), "2"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := callMethod(t, NewStr(tt.recv), tt.name, tt.args)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSetMethods(t *testing.T) {
	a := NewSet()
	for _, v := range ints(1, 2, 3) {
		require.NoError(t, a.Add(v))
	}
	av := NewSetValue(a)

	got, err := callMethod(t, av, "intersection", []Value{NewList(ints(2, 3, 4)...)})
	require.NoError(t, err)
	assert.Equal(t, "{2, 3}", got)

	got, err = callMethod(t, av, "difference", []Value{NewList(ints(1)...)})
	require.NoError(t, err)
	assert.Equal(t, "{2, 3}", got)

	_, err = callMethod(t, av, "discard", ints(9))
	require.NoError(t, err)
	_, err = callMethod(t, av, "remove", ints(9))
	assert.EqualError(t, err, "KeyError: 9")
}
