package interpreter

import (
	"fmt"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const vectorClass = `
code "__init__"(self, n)
    LOAD_FAST n
    LOAD_FAST self
    STORE_ATTR n
    LOAD_CONST None
    RETURN_VALUE
end

code "__add__"(self, other)
    LOAD_GLOBAL V
    LOAD_FAST self
    LOAD_ATTR n
    LOAD_FAST other
    LOAD_ATTR n
    BINARY_ADD
    CALL_FUNCTION 1
    RETURN_VALUE
end

code "__eq__"(self, other)
    LOAD_CONST True
    RETURN_VALUE
end

code "__lt__"(self, other)
    LOAD_FAST self
    LOAD_ATTR n
    LOAD_FAST other
    LOAD_ATTR n
    COMPARE_OP <
    RETURN_VALUE
end

code "__len__"(self)
    LOAD_CONST 0
    RETURN_VALUE
end

code V()
    LOAD_CONST @"__init__"
    LOAD_CONST "V.__init__"
    MAKE_FUNCTION 0
    STORE_NAME "__init__"
    LOAD_CONST @"__add__"
    LOAD_CONST "V.__add__"
    MAKE_FUNCTION 0
    STORE_NAME "__add__"
    LOAD_CONST @"__eq__"
    LOAD_CONST "V.__eq__"
    MAKE_FUNCTION 0
    STORE_NAME "__eq__"
    LOAD_CONST @"__lt__"
    LOAD_CONST "V.__lt__"
    MAKE_FUNCTION 0
    STORE_NAME "__lt__"
    LOAD_CONST @"__len__"
    LOAD_CONST "V.__len__"
    MAKE_FUNCTION 0
    STORE_NAME "__len__"
    LOAD_CONST None
    RETURN_VALUE
end
`

const vectorMain = `
code main()
    LOAD_BUILD_CLASS
    LOAD_CONST @V
    LOAD_CONST "V"
    MAKE_FUNCTION 0
    LOAD_CONST "V"
    CALL_FUNCTION 2
    STORE_NAME V
    LOAD_NAME V
    LOAD_CONST 1
    CALL_FUNCTION 1
    STORE_NAME a
    LOAD_NAME V
    LOAD_CONST 2
    CALL_FUNCTION 1
    STORE_NAME b
%s
end
`

func runVector(t *testing.T, body string) result {
	t.Helper()
	return run(t, vectorClass+fmt.Sprintf(vectorMain, body))
}

func TestSpecialMethods(t *testing.T) {
	r := runVector(t, `
    LOAD_NAME a
    LOAD_NAME b
    BINARY_ADD
    LOAD_ATTR n
    LOAD_NAME a
    LOAD_NAME b
    COMPARE_OP ==
    LOAD_NAME a
    UNARY_NOT
    LOAD_NAME a
    LOAD_NAME b
    COMPARE_OP <
    LOAD_NAME b
    LOAD_NAME a
    COMPARE_OP >
    LOAD_NAME a
    LOAD_NAME b
    COMPARE_OP !=
    BUILD_TUPLE 6
    RETURN_VALUE`)
	require.NoError(t, r.err)
	assert.Equal(t, "(3, True, True, True, True, False)", reprOf(t, r.value))
}

func TestSpecialMethodsInContainers(t *testing.T) {
	r := runVector(t, `
    LOAD_NAME a
    BUILD_LIST 1
    LOAD_NAME b
    BUILD_LIST 1
    COMPARE_OP ==
    LOAD_NAME b
    LOAD_NAME a
    BUILD_LIST 1
    COMPARE_OP in
    LOAD_NAME sorted
    LOAD_NAME b
    LOAD_NAME a
    BUILD_LIST 2
    CALL_FUNCTION 1
    LOAD_CONST 0
    BINARY_SUBSCR
    LOAD_ATTR n
    LOAD_NAME bool
    LOAD_NAME a
    CALL_FUNCTION 1
    BUILD_TUPLE 4
    RETURN_VALUE`)
	require.NoError(t, r.err)
	assert.Equal(t, "(True, True, 1, False)", reprOf(t, r.value))
}

func TestUnsupportedSpecialOperands(t *testing.T) {
	r := runVector(t, `
    LOAD_NAME a
    LOAD_CONST 1
    BINARY_SUBTRACT
    RETURN_VALUE`)
	require.Error(t, r.err)
	assert.Equal(t, "TypeError", raisedClass(t, r.err))

	r = runVector(t, `
    LOAD_NAME a
    LOAD_CONST 1
    COMPARE_OP <=
    RETURN_VALUE`)
	require.Error(t, r.err)
	assert.Contains(t, r.err.Error(), "'<=' not supported between instances of 'V' and 'int'")
}

func TestEqWithoutHashIsUnhashable(t *testing.T) {
	r := runVector(t, `
    LOAD_NAME hash
    LOAD_NAME a
    CALL_FUNCTION 1
    RETURN_VALUE`)
	require.Error(t, r.err)
	assert.True(t, errors.Is(r.err, ErrRuntimeType))
	assert.Contains(t, r.err.Error(), "unhashable type: 'V'")
}

func TestUserHashAsDictKey(t *testing.T) {
	r := run(t, `
code "__hash__"(self)
    LOAD_CONST 7
    RETURN_VALUE
end

code "__eq__"(self, other)
    LOAD_CONST True
    RETURN_VALUE
end

code K()
    LOAD_CONST @"__hash__"
    LOAD_CONST "K.__hash__"
    MAKE_FUNCTION 0
    STORE_NAME "__hash__"
    LOAD_CONST @"__eq__"
    LOAD_CONST "K.__eq__"
    MAKE_FUNCTION 0
    STORE_NAME "__eq__"
    LOAD_CONST None
    RETURN_VALUE
end

code main()
    LOAD_BUILD_CLASS
    LOAD_CONST @K
    LOAD_CONST "K"
    MAKE_FUNCTION 0
    LOAD_CONST "K"
    CALL_FUNCTION 2
    STORE_NAME K
    BUILD_MAP 0
    STORE_NAME d
    LOAD_CONST "first"
    LOAD_NAME d
    LOAD_NAME K
    CALL_FUNCTION 0
    STORE_SUBSCR
    LOAD_NAME d
    LOAD_NAME K
    CALL_FUNCTION 0
    BINARY_SUBSCR
    LOAD_NAME hash
    LOAD_NAME K
    CALL_FUNCTION 0
    CALL_FUNCTION 1
    LOAD_NAME len
    LOAD_NAME d
    CALL_FUNCTION 1
    BUILD_TUPLE 3
    RETURN_VALUE
end
`)
	require.NoError(t, r.err)
	assert.Equal(t, "('first', 7, 1)", reprOf(t, r.value))
}

func TestSelfContainingListsCompare(t *testing.T) {
	r := run(t, `
code main()
    BUILD_LIST 0
    STORE_NAME a
    LOAD_NAME a
    LOAD_METHOD append
    LOAD_NAME a
    CALL_METHOD 1
    POP_TOP
    BUILD_LIST 0
    STORE_NAME b
    LOAD_NAME b
    LOAD_METHOD append
    LOAD_NAME b
    CALL_METHOD 1
    POP_TOP
    LOAD_NAME a
    LOAD_NAME b
    COMPARE_OP ==
    RETURN_VALUE
end
`, WithMaxCallDepth(50))
	require.Error(t, r.err)
	assert.Equal(t, "RecursionError", raisedClass(t, r.err))
	assert.Zero(t, r.vm.compareDepth)
}

func TestTruthyChecksBoolResult(t *testing.T) {
	vm := New()
	cls := &Class{Name: "B", Attrs: Namespace{
		"__bool__": NewBuiltin("__bool__", func(vm *VM, args []Value, kw []Kwarg) (Value, error) {
			return NewInt(1), nil
		}),
	}}
	_, err := vm.truthy(Value{Kind: KindInstance, Ref: &Instance{Class: cls, Attrs: Namespace{}}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "__bool__ should return bool, returned int")

	ok, err := vm.truthy(Value{Kind: KindInstance, Ref: &Instance{Class: &Class{Name: "E", Attrs: Namespace{}}, Attrs: Namespace{}}})
	require.NoError(t, err)
	assert.True(t, ok)
}
