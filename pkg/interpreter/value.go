package interpreter

import (
	"fmt"
	"math"
	"math/big"
	"strconv"

	"bcvm/pkg/bytecode"
)

type ValueKind int

const (
	KindNone ValueKind = iota
	KindBool
	KindInt
	KindFloat
	KindStr
	KindList
	KindTuple
	KindDict
	KindSet
	KindSlice
	KindRange
	KindFunction
	KindBuiltin
	KindBoundMethod
	KindCode
	KindIterator
	KindClass
	KindInstance
	KindExcClass
	KindException
	KindNull
)

// Value represents a dynamically-typed value in the interpreter. Scalars live
// inline; everything with identity lives behind Ref.
type Value struct {
	Kind  ValueKind
	Bool  bool
	Int   *big.Int // never mutated once stored in a Value
	Float float64
	Str   string
	Ref   any
}

var (
	None  = Value{Kind: KindNone}
	True  = Value{Kind: KindBool, Bool: true}
	False = Value{Kind: KindBool, Bool: false}

	// Null marks the empty slot LOAD_METHOD leaves below a plain callable.
	Null = Value{Kind: KindNull}
)

// Tuple is an immutable sequence.
type Tuple struct {
	Items []Value
}

// List is a mutable sequence.
type List struct {
	Items []Value
}

// Slice is the value BUILD_SLICE produces.
type Slice struct {
	Start, Stop, Step Value
}

// Range is a lazy arithmetic progression.
type Range struct {
	Start, Stop, Step int64
}

func (r *Range) Len() int64 {
	if r.Step > 0 && r.Start < r.Stop {
		return (r.Stop - r.Start + r.Step - 1) / r.Step
	}
	if r.Step < 0 && r.Start > r.Stop {
		return (r.Start - r.Stop - r.Step - 1) / -r.Step
	}
	return 0
}

func (r *Range) At(i int64) int64 {
	return r.Start + i*r.Step
}

func NewInt(i int64) Value {
	return Value{Kind: KindInt, Int: big.NewInt(i)}
}

func NewBigInt(i *big.Int) Value {
	return Value{Kind: KindInt, Int: i}
}

func NewFloat(f float64) Value {
	return Value{Kind: KindFloat, Float: f}
}

func NewBool(b bool) Value {
	if b {
		return True
	}
	return False
}

func NewStr(s string) Value {
	return Value{Kind: KindStr, Str: s}
}

func NewList(items ...Value) Value {
	return Value{Kind: KindList, Ref: &List{Items: items}}
}

func NewTuple(items ...Value) Value {
	return Value{Kind: KindTuple, Ref: &Tuple{Items: items}}
}

func NewDictValue(d *Dict) Value {
	return Value{Kind: KindDict, Ref: d}
}

func NewSetValue(s *Set) Value {
	return Value{Kind: KindSet, Ref: s}
}

func (v Value) List() *List     { return v.Ref.(*List) }
func (v Value) Tuple() *Tuple   { return v.Ref.(*Tuple) }
func (v Value) Dict() *Dict     { return v.Ref.(*Dict) }
func (v Value) Set() *Set       { return v.Ref.(*Set) }
func (v Value) Slice() *Slice   { return v.Ref.(*Slice) }
func (v Value) Range() *Range   { return v.Ref.(*Range) }
func (v Value) Func() *Function { return v.Ref.(*Function) }
func (v Value) Class() *Class   { return v.Ref.(*Class) }
func (v Value) Instance() *Instance {
	return v.Ref.(*Instance)
}

// constValue materializes a LOAD_CONST operand.
func constValue(c bytecode.Const) Value {
	switch c.Kind {
	case bytecode.ConstBool:
		return NewBool(c.Bool)
	case bytecode.ConstInt:
		return NewInt(c.Int)
	case bytecode.ConstFloat:
		return NewFloat(c.Float)
	case bytecode.ConstString:
		return NewStr(c.Str)
	case bytecode.ConstTuple:
		items := make([]Value, len(c.Items))
		for i, item := range c.Items {
			items[i] = constValue(item)
		}
		return NewTuple(items...)
	case bytecode.ConstCode:
		return Value{Kind: KindCode, Ref: c.Code}
	default:
		return None
	}
}

// items returns the elements of a list or tuple.
func (v Value) items() ([]Value, bool) {
	switch v.Kind {
	case KindList:
		return v.List().Items, true
	case KindTuple:
		return v.Tuple().Items, true
	default:
		return nil, false
	}
}

// TypeName returns the name Python reports in error messages.
func (v Value) TypeName() string {
	switch v.Kind {
	case KindNone:
		return "NoneType"
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindStr:
		return "str"
	case KindList:
		return "list"
	case KindTuple:
		return "tuple"
	case KindDict:
		return "dict"
	case KindSet:
		return "set"
	case KindSlice:
		return "slice"
	case KindRange:
		return "range"
	case KindFunction:
		return "function"
	case KindBuiltin:
		return "builtin_function_or_method"
	case KindBoundMethod:
		return "method"
	case KindCode:
		return "code"
	case KindIterator:
		return v.Ref.(*Iterator).name
	case KindClass, KindExcClass:
		return "type"
	case KindInstance, KindException:
		return v.Instance().Class.Name
	default:
		return "NULL"
	}
}

// Truthy reports the truth value used by conditional jumps and `not`.
func (v Value) Truthy() bool {
	switch v.Kind {
	case KindNone, KindNull:
		return false
	case KindBool:
		return v.Bool
	case KindInt:
		return v.Int.Sign() != 0
	case KindFloat:
		return v.Float != 0
	case KindStr:
		return v.Str != ""
	case KindList:
		return len(v.List().Items) > 0
	case KindTuple:
		return len(v.Tuple().Items) > 0
	case KindDict:
		return v.Dict().Len() > 0
	case KindSet:
		return v.Set().Len() > 0
	case KindRange:
		return v.Range().Len() > 0
	default:
		return true
	}
}

// Is implements the `is` comparator. Small ints and equal strings are
// shared the way Python caches them.
func Is(a, b Value) bool {
	if a.Kind != b.Kind {
		return false
	}
	switch a.Kind {
	case KindNone, KindNull:
		return true
	case KindBool:
		return a.Bool == b.Bool
	case KindInt:
		if a.Int == b.Int {
			return true
		}
		return a.Int.IsInt64() && b.Int.IsInt64() && a.Int.Cmp(b.Int) == 0 &&
			a.Int.Int64() >= -5 && a.Int.Int64() <= 256
	case KindFloat:
		return math.Float64bits(a.Float) == math.Float64bits(b.Float)
	case KindStr:
		return a.Str == b.Str
	default:
		return a.Ref == b.Ref
	}
}

// floatRepr formats a float the way Python's repr does:
// shortest round-trip digits, fixed notation for exponents in [-4, 16).
func floatRepr(f float64) string {
	switch {
	case math.IsInf(f, 1):
		return "inf"
	case math.IsInf(f, -1):
		return "-inf"
	case math.IsNaN(f):
		return "nan"
	}

	e := strconv.FormatFloat(f, 'e', -1, 64)
	exp := 0
	for i := len(e) - 1; i >= 0; i-- {
		if e[i] == 'e' {
			exp, _ = strconv.Atoi(e[i+1:])
			break
		}
	}
	if exp < -4 || exp >= 16 {
		return e
	}

	s := strconv.FormatFloat(f, 'f', -1, 64)
	for i := 0; i < len(s); i++ {
		if s[i] == '.' {
			return s
		}
	}
	return s + ".0"
}

// strRepr quotes a string the way Python's repr does.
func strRepr(s string) string {
	quote := byte('\'')
	hasSingle, hasDouble := false, false
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '\'':
			hasSingle = true
		case '"':
			hasDouble = true
		}
	}
	if hasSingle && !hasDouble {
		quote = '"'
	}

	buf := []byte{quote}
	for _, r := range s {
		switch {
		case r == rune(quote) || r == '\\':
			buf = append(buf, '\\', byte(r))
		case r == '\n':
			buf = append(buf, `\n`...)
		case r == '\r':
			buf = append(buf, `\r`...)
		case r == '\t':
			buf = append(buf, `\t`...)
		case r < 0x20 || r == 0x7f:
			buf = append(buf, fmt.Sprintf(`\x%02x`, r)...)
		default:
			buf = append(buf, string(r)...)
		}
	}
	return string(append(buf, quote))
}
