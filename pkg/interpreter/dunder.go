package interpreter

import (
	"bcvm/pkg/bytecode"
)

// NotImplemented is returned by special methods that decline an operand.
var NotImplemented = Value{Kind: KindInstance, Ref: &Instance{
	Class: &Class{Name: "NotImplementedType", Attrs: Namespace{}, builtin: true},
	Attrs: Namespace{},
}}

// operatorNames lists the special methods tried for a binary opcode: the
// in-place form first when there is one, then the forward and reflected
// forms.
type operatorNames struct {
	inplace, forward, reflected string
}

var binaryDunders = map[bytecode.Opcode]operatorNames{
	bytecode.OpBinaryPower:          {"", "__pow__", "__rpow__"},
	bytecode.OpBinaryMultiply:       {"", "__mul__", "__rmul__"},
	bytecode.OpBinaryMatrixMultiply: {"", "__matmul__", "__rmatmul__"},
	bytecode.OpBinaryFloorDivide:    {"", "__floordiv__", "__rfloordiv__"},
	bytecode.OpBinaryTrueDivide:     {"", "__truediv__", "__rtruediv__"},
	bytecode.OpBinaryModulo:         {"", "__mod__", "__rmod__"},
	bytecode.OpBinaryAdd:            {"", "__add__", "__radd__"},
	bytecode.OpBinarySubtract:       {"", "__sub__", "__rsub__"},
	bytecode.OpBinaryLshift:         {"", "__lshift__", "__rlshift__"},
	bytecode.OpBinaryRshift:         {"", "__rshift__", "__rrshift__"},
	bytecode.OpBinaryAnd:            {"", "__and__", "__rand__"},
	bytecode.OpBinaryXor:            {"", "__xor__", "__rxor__"},
	bytecode.OpBinaryOr:             {"", "__or__", "__ror__"},

	bytecode.OpInplacePower:          {"__ipow__", "__pow__", "__rpow__"},
	bytecode.OpInplaceMultiply:       {"__imul__", "__mul__", "__rmul__"},
	bytecode.OpInplaceMatrixMultiply: {"__imatmul__", "__matmul__", "__rmatmul__"},
	bytecode.OpInplaceFloorDivide:    {"__ifloordiv__", "__floordiv__", "__rfloordiv__"},
	bytecode.OpInplaceTrueDivide:     {"__itruediv__", "__truediv__", "__rtruediv__"},
	bytecode.OpInplaceModulo:         {"__imod__", "__mod__", "__rmod__"},
	bytecode.OpInplaceAdd:            {"__iadd__", "__add__", "__radd__"},
	bytecode.OpInplaceSubtract:       {"__isub__", "__sub__", "__rsub__"},
	bytecode.OpInplaceLshift:         {"__ilshift__", "__lshift__", "__rlshift__"},
	bytecode.OpInplaceRshift:         {"__irshift__", "__rshift__", "__rrshift__"},
	bytecode.OpInplaceAnd:            {"__iand__", "__and__", "__rand__"},
	bytecode.OpInplaceXor:            {"__ixor__", "__xor__", "__rxor__"},
	bytecode.OpInplaceOr:             {"__ior__", "__or__", "__ror__"},
}

var unaryDunders = map[bytecode.Opcode]string{
	bytecode.OpUnaryPositive: "__pos__",
	bytecode.OpUnaryNegative: "__neg__",
	bytecode.OpUnaryInvert:   "__invert__",
}

// comparisonDunders maps a comparator to its method and the reflected one.
var comparisonDunders = map[string][2]string{
	"==": {"__eq__", "__eq__"},
	"!=": {"__ne__", "__ne__"},
	"<":  {"__lt__", "__gt__"},
	"<=": {"__le__", "__ge__"},
	">":  {"__gt__", "__lt__"},
	">=": {"__ge__", "__le__"},
}

func isObject(v Value) bool {
	return v.Kind == KindInstance
}

// callSpecial calls a special method of a user object. ok is false when
// recv is not an object, lacks the method, or the method returned
// NotImplemented.
func (vm *VM) callSpecial(recv Value, name string, args ...Value) (Value, bool, error) {
	if !isObject(recv) {
		return Value{}, false, nil
	}
	fn, found := recv.Instance().Class.Lookup(name)
	if !found {
		return Value{}, false, nil
	}
	r, err := vm.call(fn, append([]Value{recv}, args...), nil)
	if err != nil {
		return Value{}, true, err
	}
	if Is(r, NotImplemented) {
		return Value{}, false, nil
	}
	return r, true, nil
}

// binaryOp applies a binary or in-place opcode, giving user objects the
// first say.
func (vm *VM) binaryOp(op bytecode.Opcode, a, b Value) (Value, error) {
	if names, ok := binaryDunders[op]; ok && (isObject(a) || isObject(b)) {
		if names.inplace != "" {
			if r, ok, err := vm.callSpecial(a, names.inplace, b); ok || err != nil {
				return r, err
			}
		}
		if r, ok, err := vm.callSpecial(a, names.forward, b); ok || err != nil {
			return r, err
		}
		if !sameClass(a, b) {
			if r, ok, err := vm.callSpecial(b, names.reflected, a); ok || err != nil {
				return r, err
			}
		}
	}
	return vm.binary[op](vm, a, b)
}

func sameClass(a, b Value) bool {
	return isObject(a) && isObject(b) && a.Instance().Class == b.Instance().Class
}

func (vm *VM) unaryOp(op bytecode.Opcode, v Value) (Value, error) {
	if name, ok := unaryDunders[op]; ok {
		if r, ok, err := vm.callSpecial(v, name); ok || err != nil {
			return r, err
		}
	}
	return vm.unary[op](vm, v)
}

// richCompare runs a comparison where at least one side is a user object
// and returns whatever the special method returned.
func (vm *VM) richCompare(op string, a, b Value) (Value, error) {
	names := comparisonDunders[op]
	if r, ok, err := vm.callSpecial(a, names[0], b); ok || err != nil {
		return r, err
	}
	if r, ok, err := vm.callSpecial(b, names[1], a); ok || err != nil {
		return r, err
	}

	switch op {
	case "==":
		return NewBool(Is(a, b)), nil
	case "!=":
		r, err := vm.richCompare("==", a, b)
		if err != nil {
			return Value{}, err
		}
		eq, err := vm.truthy(r)
		return NewBool(!eq), err
	}
	return Value{}, newTypeError("'%s' not supported between instances of '%s' and '%s'",
		op, a.TypeName(), b.TypeName())
}

// truthy is Value.Truthy extended with __bool__ and __len__.
func (vm *VM) truthy(v Value) (bool, error) {
	if !isObject(v) {
		return v.Truthy(), nil
	}
	if r, ok, err := vm.callSpecial(v, "__bool__"); ok || err != nil {
		if err != nil {
			return false, err
		}
		if r.Kind != KindBool {
			return false, newTypeError("__bool__ should return bool, returned %s", r.TypeName())
		}
		return r.Bool, nil
	}
	if r, ok, err := vm.callSpecial(v, "__len__"); ok || err != nil {
		if err != nil {
			return false, err
		}
		n, isInt := asInt(r)
		if !isInt {
			return false, newTypeError("'%s' object cannot be interpreted as an integer", r.TypeName())
		}
		if n.Sign() < 0 {
			return false, newExc(ExcValueError, "__len__() should return >= 0")
		}
		return n.Sign() != 0, nil
	}
	return true, nil
}

func (vm *VM) enterCompare() error {
	if vm.compareDepth >= vm.maxCallDepth {
		return newExc(ExcRecursionError, "maximum recursion depth exceeded in comparison")
	}
	vm.compareDepth++
	return nil
}

func (vm *VM) leaveCompare() {
	vm.compareDepth--
}

// orderFromBool turns the outcome of op into a three-way result that
// reproduces it.
func orderFromBool(op string, holds bool) int {
	if holds == (op == "<" || op == "<=") {
		return -1
	}
	return 1
}
