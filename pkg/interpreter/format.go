package interpreter

import (
	"fmt"
	"math"
	"math/big"
	"strconv"
	"strings"
	"unicode/utf8"

	"bcvm/pkg/bytecode"

	"github.com/pkg/errors"
)

// printer renders values for str() and repr(). vm may be nil, in which case
// user-defined __str__ and __repr__ are not consulted.
type printer struct {
	vm   *VM
	seen map[any]bool
}

func (vm *VM) repr(v Value) (string, error) {
	return (&printer{vm: vm}).repr(v)
}

func (vm *VM) str(v Value) (string, error) {
	return (&printer{vm: vm}).str(v)
}

// userMethod calls a dunder method defined on an instance's class, if any.
func (p *printer) userMethod(v Value, name string) (string, bool, error) {
	if p.vm == nil {
		return "", false, nil
	}
	fn, ok := v.Instance().Class.Lookup(name)
	if !ok || fn.Kind != KindFunction {
		return "", false, nil
	}
	r, err := p.vm.call(fn, []Value{v}, nil)
	if err != nil {
		return "", true, err
	}
	if r.Kind != KindStr {
		return "", true, newTypeError("%s returned non-string (type %s)", name, r.TypeName())
	}
	return r.Str, true, nil
}

func (p *printer) str(v Value) (string, error) {
	switch v.Kind {
	case KindStr:
		return v.Str, nil
	case KindException:
		if s, ok, err := p.userMethod(v, "__str__"); ok {
			return s, err
		}
		return p.excMessage(v.Instance()), nil
	case KindInstance:
		if s, ok, err := p.userMethod(v, "__str__"); ok {
			return s, err
		}
	}
	return p.repr(v)
}

// enter guards against printing a container inside itself.
func (p *printer) enter(ref any) bool {
	if p.seen == nil {
		p.seen = make(map[any]bool)
	}
	if p.seen[ref] {
		return false
	}
	p.seen[ref] = true
	return true
}

func (p *printer) join(items []Value, sep string) (string, error) {
	parts := make([]string, len(items))
	for i, item := range items {
		s, err := p.repr(item)
		if err != nil {
			return "", err
		}
		parts[i] = s
	}
	return strings.Join(parts, sep), nil
}

func (p *printer) repr(v Value) (string, error) {
	switch v.Kind {
	case KindNone:
		return "None", nil
	case KindNull:
		return "<NULL>", nil
	case KindBool:
		if v.Bool {
			return "True", nil
		}
		return "False", nil
	case KindInt:
		return v.Int.String(), nil
	case KindFloat:
		return floatRepr(v.Float), nil
	case KindStr:
		return strRepr(v.Str), nil

	case KindList:
		if !p.enter(v.Ref) {
			return "[...]", nil
		}
		defer delete(p.seen, v.Ref)
		s, err := p.join(v.List().Items, ", ")
		return "[" + s + "]", err

	case KindTuple:
		items := v.Tuple().Items
		if !p.enter(v.Ref) {
			return "(...)", nil
		}
		defer delete(p.seen, v.Ref)
		s, err := p.join(items, ", ")
		if len(items) == 1 {
			s += ","
		}
		return "(" + s + ")", err

	case KindDict:
		if !p.enter(v.Ref) {
			return "{...}", nil
		}
		defer delete(p.seen, v.Ref)
		d := v.Dict()
		parts := make([]string, d.Len())
		for i, k := range d.Keys() {
			ks, err := p.repr(k)
			if err != nil {
				return "", err
			}
			vs, err := p.repr(d.Values()[i])
			if err != nil {
				return "", err
			}
			parts[i] = ks + ": " + vs
		}
		return "{" + strings.Join(parts, ", ") + "}", nil

	case KindSet:
		if v.Set().Len() == 0 {
			return "set()", nil
		}
		if !p.enter(v.Ref) {
			return "set(...)", nil
		}
		defer delete(p.seen, v.Ref)
		s, err := p.join(v.Set().Items(), ", ")
		return "{" + s + "}", err

	case KindSlice:
		s := v.Slice()
		body, err := p.join([]Value{s.Start, s.Stop, s.Step}, ", ")
		return "slice(" + body + ")", err

	case KindRange:
		r := v.Range()
		if r.Step == 1 {
			return fmt.Sprintf("range(%d, %d)", r.Start, r.Stop), nil
		}
		return fmt.Sprintf("range(%d, %d, %d)", r.Start, r.Stop, r.Step), nil

	case KindFunction:
		return fmt.Sprintf("<function %s at %p>", v.Func().QualName, v.Ref), nil
	case KindBuiltin:
		if name := v.Ref.(*Builtin).Name; builtinTypes[name] {
			return fmt.Sprintf("<class '%s'>", name), nil
		}
		return fmt.Sprintf("<built-in function %s>", v.Ref.(*Builtin).Name), nil
	case KindBoundMethod:
		m := v.Ref.(*BoundMethod)
		self, err := p.repr(m.Self)
		if err != nil {
			return "", err
		}
		if m.Fn.Kind == KindFunction {
			return fmt.Sprintf("<bound method %s of %s>", m.Fn.Func().QualName, self), nil
		}
		return fmt.Sprintf("<built-in method %s of %s object at %p>",
			m.Fn.Ref.(*Builtin).Name, m.Self.TypeName(), m.Self.Ref), nil
	case KindCode:
		return fmt.Sprintf("<code object %s at %p>", v.Ref.(*bytecode.Code).Name, v.Ref), nil
	case KindIterator:
		return fmt.Sprintf("<%s object at %p>", v.Ref.(*Iterator).name, v.Ref), nil
	case KindClass, KindExcClass:
		return fmt.Sprintf("<class '%s'>", v.Class().qualName()), nil

	case KindInstance:
		if Is(v, NotImplemented) {
			return "NotImplemented", nil
		}
		if s, ok, err := p.userMethod(v, "__repr__"); ok {
			return s, err
		}
		return fmt.Sprintf("<%s object at %p>", v.Instance().Class.qualName(), v.Ref), nil

	case KindException:
		if s, ok, err := p.userMethod(v, "__repr__"); ok {
			return s, err
		}
		inst := v.Instance()
		args, err := p.join(inst.Args, ", ")
		return inst.Class.Name + "(" + args + ")", err
	}
	return fmt.Sprintf("<%s>", v.TypeName()), nil
}

// excMessage renders the str() of an exception from its arguments.
func (p *printer) excMessage(exc *Instance) string {
	switch len(exc.Args) {
	case 0:
		return ""
	case 1:
		var s string
		if exc.Class.IsSubclass(ExcKeyError) {
			s, _ = p.repr(exc.Args[0])
		} else {
			s, _ = p.str(exc.Args[0])
		}
		return s
	default:
		s, _ := p.repr(NewTuple(exc.Args...))
		return s
	}
}

// formatSpec is a parsed format specification, shared by str.format and
// %-formatting.
type formatSpec struct {
	fill  rune
	align byte
	sign  byte
	alt   bool
	zero  bool
	width int
	comma bool
	prec  int
	typ   byte
}

func parseFormatSpec(spec string) (formatSpec, error) {
	fs := formatSpec{fill: ' ', prec: -1}
	rs := []rune(spec)
	i := 0
	isAlign := func(r rune) bool { return r == '<' || r == '>' || r == '=' || r == '^' }

	if len(rs) >= 2 && isAlign(rs[1]) {
		fs.fill, fs.align = rs[0], byte(rs[1])
		i = 2
	} else if len(rs) >= 1 && isAlign(rs[0]) {
		fs.align = byte(rs[0])
		i = 1
	}
	if i < len(rs) && (rs[i] == '+' || rs[i] == '-' || rs[i] == ' ') {
		fs.sign = byte(rs[i])
		i++
	}
	if i < len(rs) && rs[i] == '#' {
		fs.alt = true
		i++
	}
	if i < len(rs) && rs[i] == '0' {
		fs.zero = true
		i++
	}
	start := i
	for i < len(rs) && rs[i] >= '0' && rs[i] <= '9' {
		i++
	}
	if i > start {
		fs.width, _ = strconv.Atoi(string(rs[start:i]))
	}
	if i < len(rs) && (rs[i] == ',' || rs[i] == '_') {
		fs.comma = true
		i++
	}
	if i < len(rs) && rs[i] == '.' {
		i++
		start = i
		for i < len(rs) && rs[i] >= '0' && rs[i] <= '9' {
			i++
		}
		if i == start {
			return fs, newExc(ExcValueError, "Format specifier missing precision")
		}
		fs.prec, _ = strconv.Atoi(string(rs[start:i]))
	}
	if i < len(rs) {
		fs.typ = byte(rs[i])
		i++
	}
	if i != len(rs) {
		return fs, newExc(ExcValueError, "Invalid format specifier")
	}
	return fs, nil
}

// pad aligns body (with its sign prefix) to the requested field width.
func (fs formatSpec) pad(prefix, body string, numeric bool) string {
	n := utf8.RuneCountInString(prefix) + utf8.RuneCountInString(body)
	if n >= fs.width {
		return prefix + body
	}
	fill, align := fs.fill, fs.align
	if fs.zero && numeric && align == 0 {
		fill, align = '0', '='
	}
	if align == 0 {
		align = '<'
		if numeric {
			align = '>'
		}
	}
	gap := strings.Repeat(string(fill), fs.width-n)
	switch align {
	case '>':
		return gap + prefix + body
	case '=':
		return prefix + gap + body
	case '^':
		half := (fs.width - n) / 2
		left := strings.Repeat(string(fill), half)
		right := strings.Repeat(string(fill), fs.width-n-half)
		return left + prefix + body + right
	default:
		return prefix + body + gap
	}
}

func (fs formatSpec) signPrefix(negative bool) string {
	switch {
	case negative:
		return "-"
	case fs.sign == '+':
		return "+"
	case fs.sign == ' ':
		return " "
	}
	return ""
}

func groupThousands(digits string) string {
	if len(digits) <= 3 {
		return digits
	}
	var b strings.Builder
	lead := len(digits) % 3
	if lead > 0 {
		b.WriteString(digits[:lead])
	}
	for i := lead; i < len(digits); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(digits[i : i+3])
	}
	return b.String()
}

func (fs formatSpec) formatInt(i *big.Int) (string, error) {
	abs := new(big.Int).Abs(i)
	var body, prefix string
	switch fs.typ {
	case 0, 'd', 'n':
		body = abs.String()
		if fs.comma {
			body = groupThousands(body)
		}
	case 'x', 'X':
		body = abs.Text(16)
		if fs.alt {
			prefix = "0x"
		}
		if fs.typ == 'X' {
			body, prefix = strings.ToUpper(body), strings.ToUpper(prefix)
		}
	case 'o':
		body = abs.Text(8)
		if fs.alt {
			prefix = "0o"
		}
	case 'b':
		body = abs.Text(2)
		if fs.alt {
			prefix = "0b"
		}
	case 'c':
		if !i.IsInt64() || i.Int64() < 0 || i.Int64() > utf8.MaxRune {
			return "", newExc(ExcOverflowError, "%%c arg not in range(0x110000)")
		}
		return fs.pad("", string(rune(i.Int64())), false), nil
	case 'e', 'E', 'f', 'F', 'g', 'G', '%':
		f, _ := new(big.Float).SetInt(i).Float64()
		return fs.formatFloat(f)
	default:
		return "", newExc(ExcValueError, "Unknown format code '%c' for object of type 'int'", fs.typ)
	}
	return fs.pad(fs.signPrefix(i.Sign() < 0)+prefix, body, true), nil
}

func (fs formatSpec) formatFloat(f float64) (string, error) {
	neg := math.Signbit(f) && !math.IsNaN(f)
	abs := math.Abs(f)
	prec := fs.prec
	var body string

	switch {
	case math.IsInf(abs, 0):
		body = "inf"
	case math.IsNaN(abs):
		body = "nan"
	default:
		switch fs.typ {
		case 'f', 'F':
			if prec < 0 {
				prec = 6
			}
			body = strconv.FormatFloat(abs, 'f', prec, 64)
		case 'e', 'E':
			if prec < 0 {
				prec = 6
			}
			body = strconv.FormatFloat(abs, 'e', prec, 64)
		case 'g', 'G':
			if prec < 0 {
				prec = 6
			}
			if prec == 0 {
				prec = 1
			}
			body = strconv.FormatFloat(abs, 'g', prec, 64)
		case '%':
			if prec < 0 {
				prec = 6
			}
			body = strconv.FormatFloat(abs*100, 'f', prec, 64) + "%"
		case 0:
			if prec < 0 {
				body = floatRepr(abs)
			} else {
				body = strconv.FormatFloat(abs, 'g', max(prec, 1), 64)
			}
		default:
			return "", newExc(ExcValueError, "Unknown format code '%c' for object of type 'float'", fs.typ)
		}
	}

	if fs.comma {
		intPart, rest := body, ""
		if i := strings.IndexAny(body, ".e%"); i >= 0 {
			intPart, rest = body[:i], body[i:]
		}
		body = groupThousands(intPart) + rest
	}
	if fs.typ == 'E' || fs.typ == 'G' || fs.typ == 'F' {
		body = strings.ToUpper(body)
	}
	return fs.pad(fs.signPrefix(neg), body, true), nil
}

// formatValue implements the format() protocol for a single value.
func (vm *VM) formatValue(v Value, spec string) (string, error) {
	if spec == "" {
		return vm.str(v)
	}
	fs, err := parseFormatSpec(spec)
	if err != nil {
		return "", err
	}

	switch v.Kind {
	case KindStr:
		if fs.typ != 0 && fs.typ != 's' {
			return "", newExc(ExcValueError, "Unknown format code '%c' for object of type 'str'", fs.typ)
		}
		s := v.Str
		if fs.prec >= 0 && utf8.RuneCountInString(s) > fs.prec {
			s = string([]rune(s)[:fs.prec])
		}
		return fs.pad("", s, false), nil
	case KindInt, KindBool:
		i, _ := asInt(v)
		return fs.formatInt(i)
	case KindFloat:
		return fs.formatFloat(v.Float)
	}
	return "", newTypeError("unsupported format string passed to %s.__format__", v.TypeName())
}

// percentFormat implements `format % args`.
func (vm *VM) percentFormat(format string, args Value) (string, error) {
	var positional []Value
	var mapping *Dict
	switch args.Kind {
	case KindTuple:
		positional = args.Tuple().Items
	case KindDict:
		mapping = args.Dict()
		positional = []Value{args}
	default:
		positional = []Value{args}
	}

	next := 0
	nextArg := func() (Value, error) {
		if next >= len(positional) {
			return Value{}, newTypeError("not enough arguments for format string")
		}
		next++
		return positional[next-1], nil
	}

	var b strings.Builder
	usedMapping := false
	for i := 0; i < len(format); i++ {
		c := format[i]
		if c != '%' {
			b.WriteByte(c)
			continue
		}
		i++
		if i >= len(format) {
			return "", newExc(ExcValueError, "incomplete format")
		}

		var arg Value
		haveArg := false
		if format[i] == '(' {
			end := strings.IndexByte(format[i:], ')')
			if end < 0 {
				return "", newExc(ExcValueError, "incomplete format key")
			}
			if mapping == nil {
				return "", newTypeError("format requires a mapping")
			}
			key := NewStr(format[i+1 : i+end])
			v, ok, err := mapping.Get(key)
			if err != nil {
				return "", err
			}
			if !ok {
				return "", newKeyError(key)
			}
			arg, haveArg, usedMapping = v, true, true
			i += end + 1
		}

		fs := formatSpec{fill: ' ', prec: -1, align: '>'}
		for ; i < len(format) && strings.IndexByte("-+ #0", format[i]) >= 0; i++ {
			switch format[i] {
			case '-':
				fs.align = '<'
			case '+', ' ':
				if fs.sign != '+' {
					fs.sign = format[i]
				}
			case '#':
				fs.alt = true
			case '0':
				fs.zero = true
			}
		}
		if i < len(format) && format[i] == '*' {
			w, err := nextArg()
			if err != nil {
				return "", err
			}
			n, err := indexOf(w, "width")
			if err != nil {
				return "", newTypeError("* wants int")
			}
			fs.width = n
			i++
		}
		for ; i < len(format) && format[i] >= '0' && format[i] <= '9'; i++ {
			fs.width = fs.width*10 + int(format[i]-'0')
		}
		if i < len(format) && format[i] == '.' {
			fs.prec = 0
			for i++; i < len(format) && format[i] >= '0' && format[i] <= '9'; i++ {
				fs.prec = fs.prec*10 + int(format[i]-'0')
			}
		}
		if fs.align == '<' {
			fs.zero = false
		} else if fs.zero {
			fs.align, fs.fill = '=', '0'
		}
		if i >= len(format) {
			return "", newExc(ExcValueError, "incomplete format")
		}

		conv := format[i]
		if conv == '%' {
			b.WriteByte('%')
			continue
		}
		if !haveArg {
			v, err := nextArg()
			if err != nil {
				return "", err
			}
			arg = v
		}

		s, err := vm.percentConvert(conv, arg, fs)
		if err != nil {
			if err == errBadConversion {
				return "", newExc(ExcValueError, "unsupported format character '%c' (0x%x) at index %d", conv, conv, i)
			}
			return "", err
		}
		b.WriteString(s)
	}

	if !usedMapping && mapping == nil && next < len(positional) {
		return "", newTypeError("not all arguments converted during string formatting")
	}
	return b.String(), nil
}

var errBadConversion = errors.New("bad conversion")

func (vm *VM) percentConvert(conv byte, arg Value, fs formatSpec) (string, error) {
	switch conv {
	case 's', 'r', 'a':
		var s string
		var err error
		if conv == 's' {
			s, err = vm.str(arg)
		} else {
			s, err = vm.repr(arg)
		}
		if err != nil {
			return "", err
		}
		if fs.prec >= 0 && utf8.RuneCountInString(s) > fs.prec {
			s = string([]rune(s)[:fs.prec])
		}
		fs.zero, fs.fill = false, ' '
		if fs.align == '=' {
			fs.align = '>'
		}
		return fs.pad("", s, false), nil

	case 'd', 'i', 'u':
		fs.typ = 'd'
		switch arg.Kind {
		case KindInt, KindBool:
			i, _ := asInt(arg)
			return fs.formatInt(i)
		case KindFloat:
			if math.IsInf(arg.Float, 0) || math.IsNaN(arg.Float) {
				return "", newExc(ExcOverflowError, "cannot convert float infinity to integer")
			}
			i, _ := big.NewFloat(math.Trunc(arg.Float)).Int(nil)
			return fs.formatInt(i)
		}
		return "", newTypeError("%%%c format: a number is required, not %s", conv, arg.TypeName())

	case 'x', 'X', 'o':
		fs.typ = conv
		if i, ok := asInt(arg); ok {
			return fs.formatInt(i)
		}
		return "", newTypeError("%%%c format: an integer is required, not %s", conv, arg.TypeName())

	case 'e', 'E', 'f', 'F', 'g', 'G':
		fs.typ = conv
		f, ok, err := asFloat(arg)
		if err != nil {
			return "", err
		}
		if !ok {
			return "", newTypeError("must be real number, not %s", arg.TypeName())
		}
		return fs.formatFloat(f)

	case 'c':
		fs.typ = 'c'
		if arg.Kind == KindStr {
			if utf8.RuneCountInString(arg.Str) != 1 {
				return "", newTypeError("%%c requires int or char")
			}
			return fs.pad("", arg.Str, false), nil
		}
		if i, ok := asInt(arg); ok {
			return fs.formatInt(i)
		}
		return "", newTypeError("%%c requires int or char")
	}
	return "", errBadConversion
}

// strFormat implements str.format.
func (vm *VM) strFormat(format string, args []Value, kw []Kwarg) (string, error) {
	var b strings.Builder
	auto := 0
	manual := false

	for i := 0; i < len(format); i++ {
		c := format[i]
		switch {
		case c == '{' && i+1 < len(format) && format[i+1] == '{':
			b.WriteByte('{')
			i++
			continue
		case c == '}' && i+1 < len(format) && format[i+1] == '}':
			b.WriteByte('}')
			i++
			continue
		case c == '}':
			return "", newExc(ExcValueError, "Single '}' encountered in format string")
		case c != '{':
			b.WriteByte(c)
			continue
		}

		end := strings.IndexByte(format[i:], '}')
		if end < 0 {
			return "", newExc(ExcValueError, "expected '}' before end of string")
		}
		field := format[i+1 : i+end]
		i += end

		var spec, conv string
		if j := strings.IndexByte(field, ':'); j >= 0 {
			field, spec = field[:j], field[j+1:]
		}
		if j := strings.IndexByte(field, '!'); j >= 0 {
			field, conv = field[:j], field[j+1:]
		}

		var v Value
		switch {
		case field == "":
			if manual {
				return "", newExc(ExcValueError, "cannot switch from manual field specification to automatic field numbering")
			}
			if auto >= len(args) {
				return "", newExc(ExcIndexError, "tuple index out of range")
			}
			v = args[auto]
			auto++
		case field[0] >= '0' && field[0] <= '9':
			n, err := strconv.Atoi(field)
			if err != nil {
				return "", newExc(ExcValueError, "invalid field name %s", strRepr(field))
			}
			if auto > 0 {
				return "", newExc(ExcValueError, "cannot switch from automatic field numbering to manual field specification")
			}
			manual = true
			if n >= len(args) {
				return "", newExc(ExcIndexError, "tuple index out of range")
			}
			v = args[n]
		default:
			name, attr, _ := strings.Cut(field, ".")
			found := false
			for _, k := range kw {
				if k.Name == name {
					v, found = k.Value, true
				}
			}
			if !found {
				return "", newKeyError(NewStr(name))
			}
			if attr != "" {
				var err error
				if v, err = vm.getAttr(v, attr); err != nil {
					return "", err
				}
			}
		}

		switch conv {
		case "":
		case "r", "a":
			s, err := vm.repr(v)
			if err != nil {
				return "", err
			}
			v = NewStr(s)
		case "s":
			s, err := vm.str(v)
			if err != nil {
				return "", err
			}
			v = NewStr(s)
		default:
			return "", newExc(ExcValueError, "Unknown conversion specifier %s", conv)
		}

		s, err := vm.formatValue(v, spec)
		if err != nil {
			return "", err
		}
		b.WriteString(s)
	}
	return b.String(), nil
}
