package bytecode

import (
	"fmt"
	"strconv"
	"strings"
)

type ConstKind uint8

const (
	ConstNone ConstKind = iota
	ConstBool
	ConstInt
	ConstFloat
	ConstString
	ConstTuple
	ConstCode
)

// Const is a literal carried by a LOAD_CONST operand. Constants are immutable
// and shared by every frame running the code that holds them.
type Const struct {
	Kind  ConstKind
	Bool  bool
	Int   int64
	Float float64
	Str   string
	Items []Const
	Code  *Code
}

func NoneConst() Const                { return Const{Kind: ConstNone} }
func BoolConst(b bool) Const          { return Const{Kind: ConstBool, Bool: b} }
func IntConst(i int64) Const          { return Const{Kind: ConstInt, Int: i} }
func FloatConst(f float64) Const      { return Const{Kind: ConstFloat, Float: f} }
func StrConst(s string) Const         { return Const{Kind: ConstString, Str: s} }
func TupleConst(items ...Const) Const { return Const{Kind: ConstTuple, Items: items} }
func CodeConst(c *Code) Const         { return Const{Kind: ConstCode, Code: c} }

// String renders the constant in listing syntax, which the assembler reads
// back.
func (c Const) String() string {
	switch c.Kind {
	case ConstNone:
		return "None"
	case ConstBool:
		if c.Bool {
			return "True"
		}
		return "False"
	case ConstInt:
		return strconv.FormatInt(c.Int, 10)
	case ConstFloat:
		s := strconv.FormatFloat(c.Float, 'g', -1, 64)
		if !strings.ContainsAny(s, ".eEn") {
			s += ".0"
		}
		return s
	case ConstString:
		return strconv.Quote(c.Str)
	case ConstTuple:
		parts := make([]string, len(c.Items))
		for i, item := range c.Items {
			parts[i] = item.String()
		}
		if len(parts) == 1 {
			return "(" + parts[0] + ",)"
		}
		return "(" + strings.Join(parts, ", ") + ")"
	case ConstCode:
		if c.Code == nil {
			return "@?"
		}
		if !isPlainName(c.Code.Name) {
			return "@" + strconv.Quote(c.Code.Name)
		}
		return "@" + c.Code.Name
	default:
		return fmt.Sprintf("<const kind %d>", c.Kind)
	}
}
