package interpreter

import (
	"io"
	"math"
	"math/big"
	"strconv"
	"strings"
	"unicode/utf8"

	"bcvm/pkg/bytecode"

	"github.com/pkg/errors"
)

type builtinFunc = func(vm *VM, args []Value, kw []Kwarg) (Value, error)

var builtinFuncs map[string]builtinFunc

func init() {
	builtinFuncs = map[string]builtinFunc{
		"print":           builtinPrint,
		"len":             builtinLen,
		"range":           builtinRange,
		"str":             builtinStr,
		"repr":            builtinRepr,
		"int":             builtinInt,
		"float":           builtinFloat,
		"bool":            builtinBool,
		"list":            builtinList,
		"tuple":           builtinTuple,
		"dict":            builtinDict,
		"set":             builtinSet,
		"abs":             builtinAbs,
		"min":             builtinMin,
		"max":             builtinMax,
		"sum":             builtinSum,
		"sorted":          builtinSorted,
		"reversed":        builtinReversed,
		"enumerate":       builtinEnumerate,
		"zip":             builtinZip,
		"map":             builtinMap,
		"filter":          builtinFilter,
		"any":             builtinAny,
		"all":             builtinAll,
		"iter":            builtinIter,
		"next":            builtinNext,
		"hasattr":         builtinHasattr,
		"getattr":         builtinGetattr,
		"setattr":         builtinSetattr,
		"isinstance":      builtinIsinstance,
		"chr":             builtinChr,
		"ord":             builtinOrd,
		"divmod":          builtinDivmod,
		"pow":             builtinPow,
		"round":           builtinRound,
		"hash":            builtinHash,
		"id":              builtinID,
		"callable":        builtinCallable,
		"type":            builtinType,
		"__build_class__": (*VM).buildClass,
	}
}

// newBuiltins builds the builtin namespace for one run: the functions
// above, the exception classes and anything added with WithBuiltins.
func (vm *VM) newBuiltins() Namespace {
	ns := make(Namespace, len(builtinFuncs)+len(exceptionClasses)+len(vm.extras))
	for name, fn := range builtinFuncs {
		ns[name] = NewBuiltin(name, fn)
	}
	for _, c := range exceptionClasses {
		ns[c.Name] = classValue(c)
	}
	ns["object"] = classValue(objectClass)
	ns["NotImplemented"] = NotImplemented
	for name, v := range vm.extras {
		ns[name] = v
	}
	return ns
}

func builtinPrint(vm *VM, args []Value, kw []Kwarg) (Value, error) {
	opts, err := keywords("print", kw, "sep", "end", "flush")
	if err != nil {
		return Value{}, err
	}
	sep, end := " ", "\n"
	for name, target := range map[string]*string{"sep": &sep, "end": &end} {
		v, ok := opts[name]
		if !ok || v.Kind == KindNone {
			continue
		}
		if v.Kind != KindStr {
			return Value{}, newTypeError("%s must be None or a string, not %s", name, v.TypeName())
		}
		*target = v.Str
	}

	var b strings.Builder
	for i, a := range args {
		if i > 0 {
			b.WriteString(sep)
		}
		s, err := vm.str(a)
		if err != nil {
			return Value{}, err
		}
		b.WriteString(s)
	}
	b.WriteString(end)
	if _, err := io.WriteString(vm.out, b.String()); err != nil {
		return Value{}, errors.Wrap(err, "print")
	}
	return None, nil
}

func builtinLen(vm *VM, args []Value, kw []Kwarg) (Value, error) {
	if err := arity("len", args, kw, 1, 1); err != nil {
		return Value{}, err
	}
	v := args[0]
	switch v.Kind {
	case KindStr:
		return NewInt(int64(utf8.RuneCountInString(v.Str))), nil
	case KindList:
		return NewInt(int64(len(v.List().Items))), nil
	case KindTuple:
		return NewInt(int64(len(v.Tuple().Items))), nil
	case KindDict:
		return NewInt(int64(v.Dict().Len())), nil
	case KindSet:
		return NewInt(int64(v.Set().Len())), nil
	case KindRange:
		return NewInt(v.Range().Len()), nil
	case KindInstance:
		if fn, ok := v.Instance().Class.Lookup("__len__"); ok {
			return vm.call(fn, []Value{v}, nil)
		}
	}
	return Value{}, newTypeError("object of type '%s' has no len()", v.TypeName())
}

// intArg converts an argument that must be an integer fitting in int64.
func intArg(v Value) (int64, error) {
	i, ok := asInt(v)
	if !ok {
		return 0, newTypeError("'%s' object cannot be interpreted as an integer", v.TypeName())
	}
	if !i.IsInt64() {
		return 0, newExc(ExcOverflowError, "Python int too large to convert to C ssize_t")
	}
	return i.Int64(), nil
}

func builtinRange(vm *VM, args []Value, kw []Kwarg) (Value, error) {
	if err := arity("range", args, kw, 1, 3); err != nil {
		return Value{}, err
	}
	nums := make([]int64, len(args))
	for i, a := range args {
		n, err := intArg(a)
		if err != nil {
			return Value{}, err
		}
		nums[i] = n
	}
	r := &Range{Step: 1}
	switch len(nums) {
	case 1:
		r.Stop = nums[0]
	case 2:
		r.Start, r.Stop = nums[0], nums[1]
	default:
		r.Start, r.Stop, r.Step = nums[0], nums[1], nums[2]
		if r.Step == 0 {
			return Value{}, newExc(ExcValueError, "range() arg 3 must not be zero")
		}
	}
	return Value{Kind: KindRange, Ref: r}, nil
}

func builtinStr(vm *VM, args []Value, kw []Kwarg) (Value, error) {
	if err := arity("str", args, kw, 0, 1); err != nil {
		return Value{}, err
	}
	if len(args) == 0 {
		return NewStr(""), nil
	}
	s, err := vm.str(args[0])
	return NewStr(s), err
}

func builtinRepr(vm *VM, args []Value, kw []Kwarg) (Value, error) {
	if err := arity("repr", args, kw, 1, 1); err != nil {
		return Value{}, err
	}
	s, err := vm.repr(args[0])
	return NewStr(s), err
}

// parseIntLiteral parses the string forms int() accepts. Base 0 infers the
// base from a 0x, 0o or 0b prefix.
func parseIntLiteral(s string, base int) (*big.Int, bool) {
	t := strings.TrimSpace(s)
	neg := false
	if t != "" && (t[0] == '+' || t[0] == '-') {
		neg = t[0] == '-'
		t = t[1:]
	}
	lower := strings.ToLower(t)
	prefixes := map[string]int{"0x": 16, "0o": 8, "0b": 2}
	if len(lower) > 2 {
		if b, ok := prefixes[lower[:2]]; ok && (base == 0 || base == b) {
			t, base = t[2:], b
		}
	}
	if base == 0 {
		base = 10
		if len(t) > 1 && t[0] == '0' && strings.Trim(t, "0_") != "" {
			return nil, false
		}
	}
	if t == "" || t[0] == '_' || t[len(t)-1] == '_' || strings.Contains(t, "__") {
		return nil, false
	}
	i, ok := new(big.Int).SetString(strings.ReplaceAll(t, "_", ""), base)
	if !ok {
		return nil, false
	}
	if neg {
		i.Neg(i)
	}
	return i, true
}

func builtinInt(vm *VM, args []Value, kw []Kwarg) (Value, error) {
	opts, err := keywords("int", kw, "base")
	if err != nil {
		return Value{}, err
	}
	if err := arity("int", args, nil, 0, 2); err != nil {
		return Value{}, err
	}
	if len(args) == 0 {
		return NewInt(0), nil
	}
	if len(args) == 2 {
		opts["base"] = args[1]
	}

	v := args[0]
	if b, ok := opts["base"]; ok {
		if v.Kind != KindStr {
			return Value{}, newTypeError("int() can't convert non-string with explicit base")
		}
		base, err := intArg(b)
		if err != nil {
			return Value{}, err
		}
		if base != 0 && (base < 2 || base > 36) {
			return Value{}, newExc(ExcValueError, "int() base must be >= 2 and <= 36, or 0")
		}
		i, ok := parseIntLiteral(v.Str, int(base))
		if !ok {
			return Value{}, newExc(ExcValueError, "invalid literal for int() with base %d: %s", base, strRepr(v.Str))
		}
		return NewBigInt(i), nil
	}

	switch v.Kind {
	case KindInt:
		return v, nil
	case KindBool:
		i, _ := asInt(v)
		return NewBigInt(i), nil
	case KindFloat:
		switch {
		case math.IsInf(v.Float, 0):
			return Value{}, newExc(ExcOverflowError, "cannot convert float infinity to integer")
		case math.IsNaN(v.Float):
			return Value{}, newExc(ExcValueError, "cannot convert float NaN to integer")
		}
		i, _ := big.NewFloat(math.Trunc(v.Float)).Int(nil)
		return NewBigInt(i), nil
	case KindStr:
		i, ok := parseIntLiteral(v.Str, 10)
		if !ok {
			return Value{}, newExc(ExcValueError, "invalid literal for int() with base 10: %s", strRepr(v.Str))
		}
		return NewBigInt(i), nil
	}
	return Value{}, newTypeError("int() argument must be a string, a bytes-like object or a number, not '%s'", v.TypeName())
}

func builtinFloat(vm *VM, args []Value, kw []Kwarg) (Value, error) {
	if err := arity("float", args, kw, 0, 1); err != nil {
		return Value{}, err
	}
	if len(args) == 0 {
		return NewFloat(0), nil
	}
	v := args[0]
	if v.Kind == KindStr {
		t := strings.ToLower(strings.TrimSpace(v.Str))
		sign := 1.0
		if u := strings.TrimLeft(t, "+-"); len(t)-len(u) == 1 {
			if t[0] == '-' {
				sign = -1
			}
			t = u
		}
		switch t {
		case "inf", "infinity":
			return NewFloat(math.Inf(int(sign))), nil
		case "nan":
			return NewFloat(math.NaN()), nil
		}
		f, err := strconv.ParseFloat(strings.ReplaceAll(t, "_", ""), 64)
		if err != nil && !errors.Is(err, strconv.ErrRange) || t == "" {
			return Value{}, newExc(ExcValueError, "could not convert string to float: %s", strRepr(v.Str))
		}
		return NewFloat(sign * f), nil
	}
	f, ok, err := asFloat(v)
	if err != nil {
		return Value{}, err
	}
	if !ok {
		return Value{}, newTypeError("float() argument must be a string or a number, not '%s'", v.TypeName())
	}
	return NewFloat(f), nil
}

func builtinBool(vm *VM, args []Value, kw []Kwarg) (Value, error) {
	if err := arity("bool", args, kw, 0, 1); err != nil {
		return Value{}, err
	}
	if len(args) == 0 {
		return False, nil
	}
	b, err := vm.truthy(args[0])
	return NewBool(b), err
}

func builtinList(vm *VM, args []Value, kw []Kwarg) (Value, error) {
	if err := arity("list", args, kw, 0, 1); err != nil {
		return Value{}, err
	}
	if len(args) == 0 {
		return NewList(), nil
	}
	items, err := vm.collect(args[0])
	return NewList(items...), err
}

func builtinTuple(vm *VM, args []Value, kw []Kwarg) (Value, error) {
	if err := arity("tuple", args, kw, 0, 1); err != nil {
		return Value{}, err
	}
	if len(args) == 0 {
		return NewTuple(), nil
	}
	if args[0].Kind == KindTuple {
		return args[0], nil
	}
	items, err := vm.collect(args[0])
	return NewTuple(items...), err
}

func builtinDict(vm *VM, args []Value, kw []Kwarg) (Value, error) {
	if err := arity("dict", args, nil, 0, 1); err != nil {
		return Value{}, err
	}
	d := NewDict()
	if len(args) == 1 {
		if err := vm.updateDict(d, args[0]); err != nil {
			return Value{}, err
		}
	}
	for _, k := range kw {
		if err := d.Set(NewStr(k.Name), k.Value); err != nil {
			return Value{}, err
		}
	}
	return NewDictValue(d), nil
}

func builtinSet(vm *VM, args []Value, kw []Kwarg) (Value, error) {
	if err := arity("set", args, kw, 0, 1); err != nil {
		return Value{}, err
	}
	if len(args) == 0 {
		return NewSetValue(NewSet()), nil
	}
	s, err := vm.setOf(args[0])
	if err != nil {
		return Value{}, err
	}
	return NewSetValue(s), nil
}

func builtinAbs(vm *VM, args []Value, kw []Kwarg) (Value, error) {
	if err := arity("abs", args, kw, 1, 1); err != nil {
		return Value{}, err
	}
	v := args[0]
	switch v.Kind {
	case KindFloat:
		return NewFloat(math.Abs(v.Float)), nil
	case KindInt, KindBool:
		i, _ := asInt(v)
		return NewBigInt(new(big.Int).Abs(i)), nil
	}
	return Value{}, newTypeError("bad operand type for abs(): '%s'", v.TypeName())
}

// extreme implements min and max.
func extreme(name, op string) builtinFunc {
	return func(vm *VM, args []Value, kw []Kwarg) (Value, error) {
		opts, err := keywords(name, kw, "key", "default")
		if err != nil {
			return Value{}, err
		}
		if len(args) == 0 {
			return Value{}, newTypeError("%s expected 1 arguments, got 0", name)
		}
		items := args
		if len(args) == 1 {
			if items, err = vm.collect(args[0]); err != nil {
				return Value{}, err
			}
		} else if _, ok := opts["default"]; ok {
			return Value{}, newTypeError("Cannot specify a default for %s() with multiple positional arguments", name)
		}
		if len(items) == 0 {
			if def, ok := opts["default"]; ok {
				return def, nil
			}
			return Value{}, newExc(ExcValueError, "%s() arg is an empty sequence", name)
		}

		key := opts["key"]
		keyOf := func(v Value) (Value, error) {
			if key.Kind == KindNone {
				return v, nil
			}
			return vm.call(key, []Value{v}, nil)
		}
		best := items[0]
		bestKey, err := keyOf(best)
		if err != nil {
			return Value{}, err
		}
		for _, item := range items[1:] {
			k, err := keyOf(item)
			if err != nil {
				return Value{}, err
			}
			better, err := vm.ordered(op, k, bestKey)
			if err != nil {
				return Value{}, err
			}
			if better {
				best, bestKey = item, k
			}
		}
		return best, nil
	}
}

var (
	builtinMin = extreme("min", "<")
	builtinMax = extreme("max", ">")
)

func builtinSum(vm *VM, args []Value, kw []Kwarg) (Value, error) {
	opts, err := keywords("sum", kw, "start")
	if err != nil {
		return Value{}, err
	}
	if err := arity("sum", args, nil, 1, 2); err != nil {
		return Value{}, err
	}
	total := NewInt(0)
	if v, ok := opts["start"]; ok {
		total = v
	}
	if len(args) == 2 {
		total = args[1]
	}
	if total.Kind == KindStr {
		return Value{}, newTypeError("sum() can't sum strings [use ''.join(seq) instead]")
	}
	items, err := vm.collect(args[0])
	if err != nil {
		return Value{}, err
	}
	for _, item := range items {
		if total, err = vm.binaryOp(bytecode.OpBinaryAdd, total, item); err != nil {
			return Value{}, err
		}
	}
	return total, nil
}

func builtinSorted(vm *VM, args []Value, kw []Kwarg) (Value, error) {
	opts, err := keywords("sorted", kw, "key", "reverse")
	if err != nil {
		return Value{}, err
	}
	if err := arity("sorted", args, nil, 1, 1); err != nil {
		return Value{}, err
	}
	items, err := vm.collect(args[0])
	if err != nil {
		return Value{}, err
	}
	out, err := vm.sortValues(items, opts["key"], opts["reverse"].Truthy())
	if err != nil {
		return Value{}, err
	}
	return NewList(out...), nil
}

func builtinReversed(vm *VM, args []Value, kw []Kwarg) (Value, error) {
	if err := arity("reversed", args, kw, 1, 1); err != nil {
		return Value{}, err
	}
	v := args[0]
	var items []Value
	name := "reversed"
	switch v.Kind {
	case KindList:
		items, name = v.List().Items, "list_reverseiterator"
	case KindTuple:
		items = v.Tuple().Items
	case KindStr, KindRange:
		items, _ = vm.collect(v)
		if v.Kind == KindRange {
			name = "range_iterator"
		}
	default:
		return Value{}, newTypeError("'%s' object is not reversible", v.TypeName())
	}
	i := len(items)
	return iteratorValue(newIterator(name, func() (Value, bool, error) {
		if i <= 0 {
			return Value{}, false, nil
		}
		i--
		return items[i], true, nil
	})), nil
}

func builtinEnumerate(vm *VM, args []Value, kw []Kwarg) (Value, error) {
	opts, err := keywords("enumerate", kw, "start")
	if err != nil {
		return Value{}, err
	}
	if err := arity("enumerate", args, nil, 1, 2); err != nil {
		return Value{}, err
	}
	start := NewInt(0)
	if v, ok := opts["start"]; ok {
		start = v
	}
	if len(args) == 2 {
		start = args[1]
	}
	n, ok := asInt(start)
	if !ok {
		return Value{}, newTypeError("'%s' object cannot be interpreted as an integer", start.TypeName())
	}
	it, err := vm.iterate(args[0])
	if err != nil {
		return Value{}, err
	}
	count := new(big.Int).Set(n)
	return iteratorValue(newIterator("enumerate", func() (Value, bool, error) {
		v, ok, err := it.Next()
		if err != nil || !ok {
			return Value{}, ok, err
		}
		idx := NewBigInt(new(big.Int).Set(count))
		count.Add(count, big.NewInt(1))
		return NewTuple(idx, v), true, nil
	})), nil
}

func (vm *VM) iterators(args []Value) ([]*Iterator, error) {
	its := make([]*Iterator, len(args))
	for i, a := range args {
		it, err := vm.iterate(a)
		if err != nil {
			return nil, err
		}
		its[i] = it
	}
	return its, nil
}

// advanceAll steps every iterator once, stopping at the shortest.
func advanceAll(its []*Iterator) ([]Value, bool, error) {
	row := make([]Value, len(its))
	for i, it := range its {
		v, ok, err := it.Next()
		if err != nil || !ok {
			return nil, false, err
		}
		row[i] = v
	}
	return row, true, nil
}

func builtinZip(vm *VM, args []Value, kw []Kwarg) (Value, error) {
	if len(kw) > 0 {
		return Value{}, newTypeError("zip() takes no keyword arguments")
	}
	its, err := vm.iterators(args)
	if err != nil {
		return Value{}, err
	}
	return iteratorValue(newIterator("zip", func() (Value, bool, error) {
		if len(its) == 0 {
			return Value{}, false, nil
		}
		row, ok, err := advanceAll(its)
		if err != nil || !ok {
			return Value{}, false, err
		}
		return NewTuple(row...), true, nil
	})), nil
}

func builtinMap(vm *VM, args []Value, kw []Kwarg) (Value, error) {
	if len(kw) > 0 {
		return Value{}, newTypeError("map() takes no keyword arguments")
	}
	if len(args) < 2 {
		return Value{}, newTypeError("map() must have at least two arguments.")
	}
	fn := args[0]
	its, err := vm.iterators(args[1:])
	if err != nil {
		return Value{}, err
	}
	return iteratorValue(newIterator("map", func() (Value, bool, error) {
		row, ok, err := advanceAll(its)
		if err != nil || !ok {
			return Value{}, false, err
		}
		r, err := vm.call(fn, row, nil)
		return r, err == nil, err
	})), nil
}

func builtinFilter(vm *VM, args []Value, kw []Kwarg) (Value, error) {
	if err := arity("filter", args, kw, 2, 2); err != nil {
		return Value{}, err
	}
	fn := args[0]
	it, err := vm.iterate(args[1])
	if err != nil {
		return Value{}, err
	}
	return iteratorValue(newIterator("filter", func() (Value, bool, error) {
		for {
			v, ok, err := it.Next()
			if err != nil || !ok {
				return Value{}, false, err
			}
			keep := v
			if fn.Kind != KindNone {
				if keep, err = vm.call(fn, []Value{v}, nil); err != nil {
					return Value{}, false, err
				}
			}
			if b, err := vm.truthy(keep); err != nil || b {
				return v, err == nil, err
			}
		}
	})), nil
}

// quantifier implements any and all, stopping at the first item whose
// truth equals stopOn.
func quantifier(name string, stopOn bool) builtinFunc {
	return func(vm *VM, args []Value, kw []Kwarg) (Value, error) {
		if err := arity(name, args, kw, 1, 1); err != nil {
			return Value{}, err
		}
		it, err := vm.iterate(args[0])
		if err != nil {
			return Value{}, err
		}
		for {
			v, ok, err := it.Next()
			if err != nil {
				return Value{}, err
			}
			if !ok {
				return NewBool(!stopOn), nil
			}
			b, err := vm.truthy(v)
			if err != nil {
				return Value{}, err
			}
			if b == stopOn {
				return NewBool(stopOn), nil
			}
		}
	}
}

var (
	builtinAny = quantifier("any", true)
	builtinAll = quantifier("all", false)
)

func builtinIter(vm *VM, args []Value, kw []Kwarg) (Value, error) {
	if err := arity("iter", args, kw, 1, 1); err != nil {
		return Value{}, err
	}
	it, err := vm.iterate(args[0])
	if err != nil {
		return Value{}, err
	}
	return iteratorValue(it), nil
}

func builtinNext(vm *VM, args []Value, kw []Kwarg) (Value, error) {
	if err := arity("next", args, kw, 1, 2); err != nil {
		return Value{}, err
	}
	if args[0].Kind != KindIterator {
		return Value{}, newTypeError("'%s' object is not an iterator", args[0].TypeName())
	}
	v, ok, err := args[0].Ref.(*Iterator).Next()
	if err != nil {
		return Value{}, err
	}
	if ok {
		return v, nil
	}
	if len(args) == 2 {
		return args[1], nil
	}
	return Value{}, stopIteration()
}

func attrName(fn string, v Value) (string, error) {
	if v.Kind != KindStr {
		return "", newTypeError("%s(): attribute name must be string", fn)
	}
	return v.Str, nil
}

func builtinHasattr(vm *VM, args []Value, kw []Kwarg) (Value, error) {
	if err := arity("hasattr", args, kw, 2, 2); err != nil {
		return Value{}, err
	}
	name, err := attrName("hasattr", args[1])
	if err != nil {
		return Value{}, err
	}
	_, ok := vm.lookupAttr(args[0], name)
	return NewBool(ok), nil
}

func builtinGetattr(vm *VM, args []Value, kw []Kwarg) (Value, error) {
	if err := arity("getattr", args, kw, 2, 3); err != nil {
		return Value{}, err
	}
	name, err := attrName("getattr", args[1])
	if err != nil {
		return Value{}, err
	}
	if v, ok := vm.lookupAttr(args[0], name); ok {
		return v, nil
	}
	if len(args) == 3 {
		return args[2], nil
	}
	return Value{}, attributeError(args[0], name)
}

func builtinSetattr(vm *VM, args []Value, kw []Kwarg) (Value, error) {
	if err := arity("setattr", args, kw, 3, 3); err != nil {
		return Value{}, err
	}
	name, err := attrName("setattr", args[1])
	if err != nil {
		return Value{}, err
	}
	return None, vm.setAttr(args[0], name, args[2])
}

func builtinIsinstance(vm *VM, args []Value, kw []Kwarg) (Value, error) {
	if err := arity("isinstance", args, kw, 2, 2); err != nil {
		return Value{}, err
	}
	v, spec := args[0], args[1]
	specs := []Value{spec}
	if spec.Kind == KindTuple {
		specs = spec.Tuple().Items
	}
	for _, s := range specs {
		switch {
		case s.Kind == KindBuiltin && builtinTypes[s.Ref.(*Builtin).Name]:
			if isBuiltinType(v, s.Ref.(*Builtin).Name) {
				return True, nil
			}
		case s.Kind != KindClass && s.Kind != KindExcClass:
			return Value{}, newTypeError("isinstance() arg 2 must be a type or tuple of types")
		case s.Class() == objectClass:
			return True, nil
		case (v.Kind == KindInstance || v.Kind == KindException) && v.Instance().Class.IsSubclass(s.Class()):
			return True, nil
		}
	}
	return False, nil
}

// builtinTypes names the builtins that double as type objects.
var builtinTypes = map[string]bool{
	"int": true, "float": true, "str": true, "bool": true, "list": true,
	"tuple": true, "dict": true, "set": true, "range": true, "type": true,
}

// objectClass is the root class every value is an instance of.
var objectClass = &Class{Name: "object", Attrs: Namespace{}, builtin: true}

func isBuiltinType(v Value, name string) bool {
	switch name {
	case "int":
		return v.Kind == KindInt || v.Kind == KindBool
	case "type":
		return v.Kind == KindClass || v.Kind == KindExcClass ||
			v.Kind == KindBuiltin && builtinTypes[v.Ref.(*Builtin).Name]
	}
	return v.TypeName() == name
}

func builtinType(vm *VM, args []Value, kw []Kwarg) (Value, error) {
	if err := arity("type", args, kw, 1, 1); err != nil {
		return Value{}, err
	}
	v := args[0]
	switch {
	case v.Kind == KindInstance || v.Kind == KindException:
		return classValue(v.Instance().Class), nil
	case isBuiltinType(v, "type"):
		return vm.builtins["type"], nil
	}
	name := v.TypeName()
	if t, ok := vm.builtins[name]; ok && builtinTypes[name] && t.Kind == KindBuiltin {
		return t, nil
	}
	if vm.types == nil {
		vm.types = make(map[string]*Class)
	}
	cls, ok := vm.types[name]
	if !ok {
		cls = &Class{Name: name, Bases: []*Class{objectClass}, Attrs: Namespace{}, builtin: true}
		vm.types[name] = cls
	}
	return classValue(cls), nil
}

func builtinChr(vm *VM, args []Value, kw []Kwarg) (Value, error) {
	if err := arity("chr", args, kw, 1, 1); err != nil {
		return Value{}, err
	}
	n, err := intArg(args[0])
	if err != nil {
		return Value{}, err
	}
	if n < 0 || n > utf8.MaxRune {
		return Value{}, newExc(ExcValueError, "chr() arg not in range(0x110000)")
	}
	return NewStr(string(rune(n))), nil
}

func builtinOrd(vm *VM, args []Value, kw []Kwarg) (Value, error) {
	if err := arity("ord", args, kw, 1, 1); err != nil {
		return Value{}, err
	}
	v := args[0]
	if v.Kind != KindStr {
		return Value{}, newTypeError("ord() expected string of length 1, but %s found", v.TypeName())
	}
	if n := utf8.RuneCountInString(v.Str); n != 1 {
		return Value{}, newTypeError("ord() expected a character, but string of length %d found", n)
	}
	r, _ := utf8.DecodeRuneInString(v.Str)
	return NewInt(int64(r)), nil
}

func builtinDivmod(vm *VM, args []Value, kw []Kwarg) (Value, error) {
	if err := arity("divmod", args, kw, 2, 2); err != nil {
		return Value{}, err
	}
	if !isNumber(args[0]) || !isNumber(args[1]) {
		return Value{}, unsupportedOperands("divmod()", args[0], args[1])
	}
	q, err := vm.floorDiv(args[0], args[1])
	if err != nil {
		return Value{}, err
	}
	r, err := vm.mod(args[0], args[1])
	if err != nil {
		return Value{}, err
	}
	return NewTuple(q, r), nil
}

func builtinPow(vm *VM, args []Value, kw []Kwarg) (Value, error) {
	if err := arity("pow", args, kw, 2, 3); err != nil {
		return Value{}, err
	}
	if len(args) == 2 || args[2].Kind == KindNone {
		return vm.pow(args[0], args[1])
	}
	x, okx := asInt(args[0])
	y, oky := asInt(args[1])
	m, okm := asInt(args[2])
	if !okx || !oky || !okm {
		return Value{}, newTypeError("pow() 3rd argument not allowed unless all arguments are integers")
	}
	if y.Sign() < 0 {
		return Value{}, newExc(ExcValueError, "pow() 2nd argument cannot be negative when 3rd argument specified")
	}
	if m.Sign() == 0 {
		return Value{}, newExc(ExcValueError, "pow() 3rd argument cannot be 0")
	}
	r := new(big.Int).Exp(x, y, new(big.Int).Abs(m))
	_, r = floorDivMod(r, m)
	return NewBigInt(r), nil
}

func builtinRound(vm *VM, args []Value, kw []Kwarg) (Value, error) {
	if err := arity("round", args, kw, 1, 2); err != nil {
		return Value{}, err
	}
	v := args[0]
	withDigits := len(args) == 2 && args[1].Kind != KindNone
	digits := int64(0)
	if withDigits {
		var err error
		if digits, err = intArg(args[1]); err != nil {
			return Value{}, err
		}
	}

	switch v.Kind {
	case KindFloat:
		if !withDigits {
			switch {
			case math.IsInf(v.Float, 0):
				return Value{}, newExc(ExcOverflowError, "cannot convert float infinity to integer")
			case math.IsNaN(v.Float):
				return Value{}, newExc(ExcValueError, "cannot convert float NaN to integer")
			}
			i, _ := big.NewFloat(math.RoundToEven(v.Float)).Int(nil)
			return NewBigInt(i), nil
		}
		return NewFloat(roundHalfEven(v.Float, int(digits))), nil

	case KindInt, KindBool:
		i, _ := asInt(v)
		if digits >= 0 {
			return NewBigInt(i), nil
		}
		p := new(big.Int).Exp(big.NewInt(10), big.NewInt(-digits), nil)
		q, r := floorDivMod(i, p)
		twice := new(big.Int).Lsh(r, 1)
		if c := twice.Cmp(p); c > 0 || (c == 0 && q.Bit(0) == 1) {
			q.Add(q, big.NewInt(1))
		}
		return NewBigInt(q.Mul(q, p)), nil
	}
	return Value{}, newTypeError("type %s doesn't define __round__ method", v.TypeName())
}

func builtinHash(vm *VM, args []Value, kw []Kwarg) (Value, error) {
	if err := arity("hash", args, kw, 1, 1); err != nil {
		return Value{}, err
	}
	h, err := pyHash(args[0])
	if err != nil {
		return Value{}, err
	}
	return NewInt(h), nil
}

func builtinID(vm *VM, args []Value, kw []Kwarg) (Value, error) {
	if err := arity("id", args, kw, 1, 1); err != nil {
		return Value{}, err
	}
	return NewInt(vm.id(args[0])), nil
}

func builtinCallable(vm *VM, args []Value, kw []Kwarg) (Value, error) {
	if err := arity("callable", args, kw, 1, 1); err != nil {
		return Value{}, err
	}
	switch args[0].Kind {
	case KindFunction, KindBuiltin, KindBoundMethod, KindClass, KindExcClass:
		return True, nil
	case KindInstance:
		_, ok := args[0].Instance().Class.Lookup("__call__")
		return NewBool(ok), nil
	}
	return False, nil
}
