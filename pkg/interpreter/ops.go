package interpreter

import (
	"math/big"
	"strings"

	"bcvm/pkg/bytecode"
)

type binaryFunc func(vm *VM, a, b Value) (Value, error)

type unaryFunc func(vm *VM, v Value) (Value, error)

// bindOperators fills the operator tables the dispatcher indexes by opcode.
func (vm *VM) bindOperators() {
	table := map[bytecode.Opcode]binaryFunc{
		bytecode.OpBinaryPower:          (*VM).pow,
		bytecode.OpBinaryMultiply:       (*VM).mul,
		bytecode.OpBinaryMatrixMultiply: (*VM).matmul,
		bytecode.OpBinaryFloorDivide:    (*VM).floorDiv,
		bytecode.OpBinaryTrueDivide:     (*VM).trueDiv,
		bytecode.OpBinaryModulo:         (*VM).mod,
		bytecode.OpBinaryAdd:            (*VM).add,
		bytecode.OpBinarySubtract:       (*VM).sub,
		bytecode.OpBinarySubscr:         (*VM).getItem,
		bytecode.OpBinaryLshift:         (*VM).lshift,
		bytecode.OpBinaryRshift:         (*VM).rshift,
		bytecode.OpBinaryAnd:            (*VM).and,
		bytecode.OpBinaryXor:            (*VM).xor,
		bytecode.OpBinaryOr:             (*VM).or,

		bytecode.OpInplacePower:          (*VM).pow,
		bytecode.OpInplaceMultiply:       (*VM).imul,
		bytecode.OpInplaceMatrixMultiply: (*VM).matmul,
		bytecode.OpInplaceFloorDivide:    (*VM).floorDiv,
		bytecode.OpInplaceTrueDivide:     (*VM).trueDiv,
		bytecode.OpInplaceModulo:         (*VM).mod,
		bytecode.OpInplaceAdd:            (*VM).iadd,
		bytecode.OpInplaceSubtract:       (*VM).isub,
		bytecode.OpInplaceLshift:         (*VM).lshift,
		bytecode.OpInplaceRshift:         (*VM).rshift,
		bytecode.OpInplaceAnd:            (*VM).iand,
		bytecode.OpInplaceXor:            (*VM).ixor,
		bytecode.OpInplaceOr:             (*VM).ior,
	}
	for op, fn := range table {
		vm.binary[op] = fn
	}

	vm.unary[bytecode.OpUnaryPositive] = (*VM).pos
	vm.unary[bytecode.OpUnaryNegative] = (*VM).neg
	vm.unary[bytecode.OpUnaryNot] = (*VM).not
	vm.unary[bytecode.OpUnaryConvert] = (*VM).convert
	vm.unary[bytecode.OpUnaryInvert] = (*VM).invert
}

func unsupportedOperands(op string, a, b Value) error {
	return newTypeError("unsupported operand type(s) for %s: '%s' and '%s'", op, a.TypeName(), b.TypeName())
}

func (vm *VM) add(a, b Value) (Value, error) {
	if v, ok, err := numericOp(a, b, intAdd, floatAdd); ok {
		return v, err
	}
	switch {
	case a.Kind == KindStr && b.Kind == KindStr:
		return NewStr(a.Str + b.Str), nil
	case a.Kind == KindList && b.Kind == KindList:
		items := append(append([]Value{}, a.List().Items...), b.List().Items...)
		return NewList(items...), nil
	case a.Kind == KindTuple && b.Kind == KindTuple:
		items := append(append([]Value{}, a.Tuple().Items...), b.Tuple().Items...)
		return NewTuple(items...), nil
	case a.Kind == KindStr || a.Kind == KindList || a.Kind == KindTuple:
		return Value{}, newTypeError(`can only concatenate %s (not "%s") to %s`, a.TypeName(), b.TypeName(), a.TypeName())
	}
	return Value{}, unsupportedOperands("+", a, b)
}

// iadd extends lists in place; everything else behaves like add.
func (vm *VM) iadd(a, b Value) (Value, error) {
	if a.Kind == KindList {
		items, err := vm.collect(b)
		if err != nil {
			return Value{}, err
		}
		l := a.List()
		l.Items = append(l.Items, items...)
		return a, nil
	}
	return vm.add(a, b)
}

func (vm *VM) sub(a, b Value) (Value, error) {
	if v, ok, err := numericOp(a, b, intSub, floatSub); ok {
		return v, err
	}
	if a.Kind == KindSet && b.Kind == KindSet {
		return NewSetValue(a.Set().difference(b.Set())), nil
	}
	return Value{}, unsupportedOperands("-", a, b)
}

func (vm *VM) isub(a, b Value) (Value, error) {
	if a.Kind == KindSet && b.Kind == KindSet {
		s := a.Set()
		for _, v := range b.Set().Items() {
			if _, err := s.Remove(v); err != nil {
				return Value{}, err
			}
		}
		return a, nil
	}
	return vm.sub(a, b)
}

func repeatCount(n Value) (int, bool) {
	i, ok := asInt(n)
	if !ok {
		return 0, false
	}
	if i.Sign() < 0 {
		return 0, true
	}
	if !i.IsInt64() {
		return 1 << 30, true
	}
	return int(i.Int64()), true
}

func repeatItems(items []Value, n int) []Value {
	out := make([]Value, 0, len(items)*n)
	for range n {
		out = append(out, items...)
	}
	return out
}

func (vm *VM) mul(a, b Value) (Value, error) {
	if v, ok, err := numericOp(a, b, intMul, floatMul); ok {
		return v, err
	}

	seq, n := a, b
	if b.Kind == KindStr || b.Kind == KindList || b.Kind == KindTuple {
		seq, n = b, a
	}
	switch seq.Kind {
	case KindStr, KindList, KindTuple:
		count, ok := repeatCount(n)
		if !ok {
			return Value{}, newTypeError("can't multiply sequence by non-int of type '%s'", n.TypeName())
		}
		switch seq.Kind {
		case KindStr:
			return NewStr(strings.Repeat(seq.Str, count)), nil
		case KindList:
			return NewList(repeatItems(seq.List().Items, count)...), nil
		default:
			return NewTuple(repeatItems(seq.Tuple().Items, count)...), nil
		}
	}
	return Value{}, unsupportedOperands("*", a, b)
}

func (vm *VM) imul(a, b Value) (Value, error) {
	if a.Kind == KindList {
		count, ok := repeatCount(b)
		if !ok {
			return Value{}, newTypeError("can't multiply sequence by non-int of type '%s'", b.TypeName())
		}
		l := a.List()
		l.Items = repeatItems(l.Items, count)
		return a, nil
	}
	return vm.mul(a, b)
}

func (vm *VM) matmul(a, b Value) (Value, error) {
	return Value{}, unsupportedOperands("@", a, b)
}

func (vm *VM) trueDiv(a, b Value) (Value, error) {
	if v, ok, err := numericOp(a, b, intTrueDiv, floatTrueDiv); ok {
		return v, err
	}
	return Value{}, unsupportedOperands("/", a, b)
}

func (vm *VM) floorDiv(a, b Value) (Value, error) {
	if v, ok, err := numericOp(a, b, intFloorDiv, floatFloorDiv); ok {
		return v, err
	}
	return Value{}, unsupportedOperands("//", a, b)
}

func (vm *VM) mod(a, b Value) (Value, error) {
	if a.Kind == KindStr {
		s, err := vm.percentFormat(a.Str, b)
		if err != nil {
			return Value{}, err
		}
		return NewStr(s), nil
	}
	if v, ok, err := numericOp(a, b, intMod, floatMod); ok {
		return v, err
	}
	return Value{}, unsupportedOperands("%", a, b)
}

func (vm *VM) pow(a, b Value) (Value, error) {
	if v, ok, err := numericOp(a, b, intPow, floatPow); ok {
		return v, err
	}
	return Value{}, unsupportedOperands("** or pow()", a, b)
}

func intOnly(op string, a, b Value, fn func(x, y *big.Int) (Value, error)) (Value, error) {
	x, okx := asInt(a)
	y, oky := asInt(b)
	if !okx || !oky {
		return Value{}, unsupportedOperands(op, a, b)
	}
	return fn(x, y)
}

func (vm *VM) lshift(a, b Value) (Value, error) {
	return intOnly("<<", a, b, intLshift)
}

func (vm *VM) rshift(a, b Value) (Value, error) {
	return intOnly(">>", a, b, intRshift)
}

// bitwise applies a bitwise operator to ints, bools (keeping bool when both
// are) or sets.
func bitwise(op string, a, b Value,
	intFn func(z, x, y *big.Int) *big.Int,
	boolFn func(x, y bool) bool,
	setFn func(x, y *Set) *Set,
) (Value, error) {
	switch {
	case a.Kind == KindBool && b.Kind == KindBool:
		return NewBool(boolFn(a.Bool, b.Bool)), nil
	case a.Kind == KindSet && b.Kind == KindSet:
		return NewSetValue(setFn(a.Set(), b.Set())), nil
	}
	return intOnly(op, a, b, func(x, y *big.Int) (Value, error) {
		return NewBigInt(intFn(new(big.Int), x, y)), nil
	})
}

func (vm *VM) and(a, b Value) (Value, error) {
	return bitwise("&", a, b, (*big.Int).And,
		func(x, y bool) bool { return x && y }, (*Set).intersection)
}

func (vm *VM) or(a, b Value) (Value, error) {
	return bitwise("|", a, b, (*big.Int).Or,
		func(x, y bool) bool { return x || y }, (*Set).union)
}

func (vm *VM) xor(a, b Value) (Value, error) {
	return bitwise("^", a, b, (*big.Int).Xor,
		func(x, y bool) bool { return x != y }, (*Set).symmetricDifference)
}

// inPlaceSet replaces a set's contents with the result of op.
func (vm *VM) inPlaceSet(a, b Value, op binaryFunc) (Value, error) {
	r, err := op(vm, a, b)
	if err != nil {
		return Value{}, err
	}
	if a.Kind == KindSet && r.Kind == KindSet {
		*a.Set() = *r.Set()
		return a, nil
	}
	return r, nil
}

func (vm *VM) iand(a, b Value) (Value, error) { return vm.inPlaceSet(a, b, (*VM).and) }

func (vm *VM) ior(a, b Value) (Value, error) {
	if a.Kind == KindSet && b.Kind == KindSet {
		a.Set().merge(b.Set())
		return a, nil
	}
	return vm.or(a, b)
}

func (vm *VM) ixor(a, b Value) (Value, error) {
	if a.Kind == KindSet && b.Kind == KindSet {
		a.Set().symmetricUpdate(b.Set())
		return a, nil
	}
	return vm.xor(a, b)
}

func (vm *VM) pos(v Value) (Value, error) {
	switch v.Kind {
	case KindInt, KindFloat:
		return v, nil
	case KindBool:
		i, _ := asInt(v)
		return NewBigInt(i), nil
	}
	return Value{}, newTypeError("bad operand type for unary +: '%s'", v.TypeName())
}

func (vm *VM) neg(v Value) (Value, error) {
	switch v.Kind {
	case KindFloat:
		return NewFloat(-v.Float), nil
	case KindInt, KindBool:
		i, _ := asInt(v)
		return NewBigInt(new(big.Int).Neg(i)), nil
	}
	return Value{}, newTypeError("bad operand type for unary -: '%s'", v.TypeName())
}

func (vm *VM) not(v Value) (Value, error) {
	ok, err := vm.truthy(v)
	return NewBool(!ok), err
}

func (vm *VM) convert(v Value) (Value, error) {
	s, err := vm.repr(v)
	if err != nil {
		return Value{}, err
	}
	return NewStr(s), nil
}

func (vm *VM) invert(v Value) (Value, error) {
	if i, ok := asInt(v); ok {
		return NewBigInt(new(big.Int).Not(i)), nil
	}
	return Value{}, newTypeError("bad operand type for unary ~: '%s'", v.TypeName())
}

// compare implements COMPARE_OP.
func (vm *VM) compare(op string, a, b Value) (Value, error) {
	if _, ok := comparisonDunders[op]; ok && (isObject(a) || isObject(b)) {
		return vm.richCompare(op, a, b)
	}
	switch op {
	case "==", "!=":
		eq, err := vm.equal(a, b)
		if err != nil {
			return Value{}, err
		}
		return NewBool(eq == (op == "==")), nil
	case "<", "<=", ">", ">=":
		ok, err := vm.ordered(op, a, b)
		return NewBool(ok), err
	case "is":
		return NewBool(Is(a, b)), nil
	case "is not":
		return NewBool(!Is(a, b)), nil
	case "in", "not in":
		in, err := vm.contains(b, a)
		if err != nil {
			return Value{}, err
		}
		return NewBool(in == (op == "in")), nil
	case "exception match":
		ok, err := exceptionMatches(a, b)
		return NewBool(ok), err
	default:
		return Value{}, unsupported("comparator " + op)
	}
}

// equal implements ==, recursing into containers.
func (vm *VM) equal(a, b Value) (bool, error) {
	if isObject(a) || isObject(b) {
		r, err := vm.richCompare("==", a, b)
		if err != nil {
			return false, err
		}
		return vm.truthy(r)
	}
	if isNumber(a) && isNumber(b) {
		c, ok := compareNumbers(a, b)
		return ok && c == 0, nil
	}
	if a.Kind != b.Kind {
		return false, nil
	}

	switch a.Kind {
	case KindNone, KindNull:
		return true, nil
	case KindStr:
		return a.Str == b.Str, nil
	case KindList, KindTuple:
		x, _ := a.items()
		y, _ := b.items()
		if len(x) != len(y) {
			return false, nil
		}
		if err := vm.enterCompare(); err != nil {
			return false, err
		}
		defer vm.leaveCompare()
		for i := range x {
			if Is(x[i], y[i]) {
				continue
			}
			eq, err := vm.equal(x[i], y[i])
			if err != nil || !eq {
				return false, err
			}
		}
		return true, nil
	case KindDict:
		x, y := a.Dict(), b.Dict()
		if x.Len() != y.Len() {
			return false, nil
		}
		if err := vm.enterCompare(); err != nil {
			return false, err
		}
		defer vm.leaveCompare()
		for i, k := range x.Keys() {
			v, ok, err := y.Get(k)
			if err != nil || !ok {
				return false, err
			}
			eq, err := vm.equal(x.Values()[i], v)
			if err != nil || !eq {
				return false, err
			}
		}
		return true, nil
	case KindSet:
		x, y := a.Set(), b.Set()
		return x.Len() == y.Len() && x.subsetOf(y), nil
	case KindRange:
		x, y := a.Range(), b.Range()
		if x.Len() != y.Len() {
			return false, nil
		}
		return x.Len() == 0 || (x.Start == y.Start && (x.Len() == 1 || x.Step == y.Step)), nil
	case KindSlice:
		x, y := a.Slice(), b.Slice()
		return vm.equal(NewTuple(x.Start, x.Stop, x.Step), NewTuple(y.Start, y.Stop, y.Step))
	case KindBoundMethod:
		x, y := a.Ref.(*BoundMethod), b.Ref.(*BoundMethod)
		return Is(x.Self, y.Self) && Is(x.Fn, y.Fn), nil
	default:
		return Is(a, b), nil
	}
}

// ordered implements <, <=, > and >=.
func (vm *VM) ordered(op string, a, b Value) (bool, error) {
	if isObject(a) || isObject(b) {
		r, err := vm.richCompare(op, a, b)
		if err != nil {
			return false, err
		}
		return vm.truthy(r)
	}
	if a.Kind == KindSet && b.Kind == KindSet {
		x, y := a.Set(), b.Set()
		switch op {
		case "<":
			return x.Len() < y.Len() && x.subsetOf(y), nil
		case "<=":
			return x.subsetOf(y), nil
		case ">":
			return y.Len() < x.Len() && y.subsetOf(x), nil
		default:
			return y.subsetOf(x), nil
		}
	}

	c, ok, err := vm.order(op, a, b)
	if err != nil || !ok {
		return false, err
	}
	switch op {
	case "<":
		return c < 0, nil
	case "<=":
		return c <= 0, nil
	case ">":
		return c > 0, nil
	default:
		return c >= 0, nil
	}
}

// order returns the three-way comparison of a and b. ok is false when the
// values are unordered (NaN).
func (vm *VM) order(op string, a, b Value) (c int, ok bool, err error) {
	switch {
	case isNumber(a) && isNumber(b):
		c, ok = compareNumbers(a, b)
		return c, ok, nil
	case a.Kind == KindStr && b.Kind == KindStr:
		return strings.Compare(a.Str, b.Str), true, nil
	case (a.Kind == KindList && b.Kind == KindList) || (a.Kind == KindTuple && b.Kind == KindTuple):
		x, _ := a.items()
		y, _ := b.items()
		if err := vm.enterCompare(); err != nil {
			return 0, false, err
		}
		defer vm.leaveCompare()
		for i := 0; i < len(x) && i < len(y); i++ {
			eq, err := vm.equal(x[i], y[i])
			if err != nil {
				return 0, false, err
			}
			if !eq {
				if isObject(x[i]) || isObject(y[i]) {
					lt, err := vm.ordered(op, x[i], y[i])
					if err != nil {
						return 0, false, err
					}
					return orderFromBool(op, lt), true, nil
				}
				return vm.order(op, x[i], y[i])
			}
		}
		return len(x) - len(y), true, nil
	}
	return 0, false, newTypeError("'%s' not supported between instances of '%s' and '%s'", op, a.TypeName(), b.TypeName())
}

// contains implements the `in` operator.
func (vm *VM) contains(container, item Value) (bool, error) {
	if r, ok, err := vm.callSpecial(container, "__contains__", item); ok || err != nil {
		if err != nil {
			return false, err
		}
		return vm.truthy(r)
	}
	switch container.Kind {
	case KindStr:
		if item.Kind != KindStr {
			return false, newTypeError("'in <string>' requires string as left operand, not %s", item.TypeName())
		}
		return strings.Contains(container.Str, item.Str), nil
	case KindDict:
		_, ok, err := container.Dict().Get(item)
		return ok, err
	case KindSet:
		return container.Set().Contains(item)
	case KindRange:
		i, ok := asInt(item)
		if !ok || !i.IsInt64() {
			if item.Kind == KindFloat {
				break
			}
			return false, nil
		}
		r := container.Range()
		n := i.Int64()
		if r.Len() == 0 || (n-r.Start)%r.Step != 0 {
			return false, nil
		}
		idx := (n - r.Start) / r.Step
		return idx >= 0 && idx < r.Len(), nil
	}

	it, err := vm.iterate(container)
	if err != nil {
		return false, newTypeError("argument of type '%s' is not iterable", container.TypeName())
	}
	for {
		v, ok, err := it.Next()
		if err != nil || !ok {
			return false, err
		}
		if Is(v, item) {
			return true, nil
		}
		eq, err := vm.equal(v, item)
		if err != nil || eq {
			return eq, err
		}
	}
}
