package bytecode

import (
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/fxamacker/cbor/v2"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Format selects a serialized program encoding.
type Format uint8

const (
	FormatYAML Format = iota
	FormatCBOR
)

func (f Format) String() string {
	switch f {
	case FormatYAML:
		return "yaml"
	case FormatCBOR:
		return "cbor"
	default:
		return fmt.Sprintf("Format(%d)", int(f))
	}
}

// ParseFormat maps a format name to a Format.
func ParseFormat(name string) (Format, error) {
	switch strings.ToLower(name) {
	case "yaml", "yml":
		return FormatYAML, nil
	case "cbor":
		return FormatCBOR, nil
	default:
		return 0, errors.Errorf("unknown program format %q", name)
	}
}

// cborEncMode uses canonical encoding so the same program always yields the
// same bytes.
var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("bytecode: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

// A serialized program is a flat list of named code objects. Code constants
// refer to other entries by name as {code: NAME}.
type wireProgram struct {
	Entry string     `yaml:"entry" cbor:"entry"`
	Codes []wireCode `yaml:"codes" cbor:"codes"`
}

type wireCode struct {
	Name           string            `yaml:"name" cbor:"name"`
	ArgCount       int               `yaml:"argcount,omitempty" cbor:"argcount,omitempty"`
	KwOnlyArgCount int               `yaml:"kwonlyargcount,omitempty" cbor:"kwonlyargcount,omitempty"`
	VarNames       []string          `yaml:"varnames,omitempty" cbor:"varnames,omitempty"`
	Flags          []string          `yaml:"flags,omitempty" cbor:"flags,omitempty"`
	Instructions   []wireInstruction `yaml:"instructions" cbor:"instructions"`
}

type wireInstruction struct {
	Offset *int   `yaml:"offset,omitempty" cbor:"offset,omitempty"`
	Op     string `yaml:"op" cbor:"op"`
	Arg    any    `yaml:"arg,omitempty" cbor:"arg,omitempty"`
}

const (
	flagVarArgs     = "varargs"
	flagVarKeywords = "varkeywords"
)

// Encode writes code, and every code object it references, in the given
// format.
func Encode(w io.Writer, code *Code, format Format) error {
	prog, err := toWire(code, format)
	if err != nil {
		return err
	}

	switch format {
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(prog); err != nil {
			return errors.Wrap(err, "encode yaml program")
		}
		return errors.Wrap(enc.Close(), "encode yaml program")
	case FormatCBOR:
		data, err := cborEncMode.Marshal(prog)
		if err != nil {
			return errors.Wrap(err, "encode cbor program")
		}
		_, err = w.Write(data)
		return errors.Wrap(err, "write cbor program")
	default:
		return errors.Errorf("unsupported program format %s", format)
	}
}

// Decode reads a program in the given format and returns its entry code.
func Decode(r io.Reader, format Format) (*Code, error) {
	var prog wireProgram
	switch format {
	case FormatYAML:
		if err := yaml.NewDecoder(r).Decode(&prog); err != nil {
			return nil, errors.Wrap(err, "decode yaml program")
		}
	case FormatCBOR:
		data, err := io.ReadAll(r)
		if err != nil {
			return nil, errors.Wrap(err, "read cbor program")
		}
		if err := cbor.Unmarshal(data, &prog); err != nil {
			return nil, errors.Wrap(err, "decode cbor program")
		}
	default:
		return nil, errors.Errorf("unsupported program format %s", format)
	}

	code, err := fromWire(&prog)
	if err != nil {
		return nil, err
	}
	if err := code.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid program")
	}
	return code, nil
}

func toWire(entry *Code, format Format) (*wireProgram, error) {
	names := make(map[*Code]string)
	used := make(map[string]bool)
	var order []*Code
	if err := entry.Walk(func(c *Code) error {
		name := c.Name
		for n := 2; used[name]; n++ {
			name = c.Name + "#" + strconv.Itoa(n)
		}
		used[name] = true
		names[c] = name
		order = append(order, c)
		return nil
	}); err != nil {
		return nil, err
	}

	prog := &wireProgram{Entry: names[entry]}
	for _, c := range order {
		wc := wireCode{
			Name:           names[c],
			ArgCount:       c.ArgCount,
			KwOnlyArgCount: c.KwOnlyArgCount,
			VarNames:       c.VarNames,
		}
		if c.Flags&FlagVarArgs != 0 {
			wc.Flags = append(wc.Flags, flagVarArgs)
		}
		if c.Flags&FlagVarKeywords != 0 {
			wc.Flags = append(wc.Flags, flagVarKeywords)
		}
		for _, in := range c.Instructions {
			offset := in.Offset
			wi := wireInstruction{Offset: &offset, Op: in.Op.String()}
			switch in.Arg.Kind {
			case ArgNone:
			case ArgConst:
				wi.Arg = constToWire(in.Arg.Const, names, format)
			case ArgName, ArgCompare:
				wi.Arg = in.Arg.Name
			default:
				wi.Arg = in.Arg.Int
			}
			wc.Instructions = append(wc.Instructions, wi)
		}
		prog.Codes = append(prog.Codes, wc)
	}
	return prog, nil
}

func constToWire(c Const, names map[*Code]string, format Format) any {
	switch c.Kind {
	case ConstBool:
		return c.Bool
	case ConstInt:
		return c.Int
	case ConstFloat:
		if format == FormatYAML {
			// yaml would print 1.0 as 1 and read it back as an int
			return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!float", Value: yamlFloat(c.Float)}
		}
		return c.Float
	case ConstString:
		return c.Str
	case ConstTuple:
		items := make([]any, len(c.Items))
		for i, item := range c.Items {
			items[i] = constToWire(item, names, format)
		}
		return items
	case ConstCode:
		return map[string]any{"code": names[c.Code]}
	default:
		return nil
	}
}

func yamlFloat(f float64) string {
	switch {
	case math.IsInf(f, 1):
		return ".inf"
	case math.IsInf(f, -1):
		return "-.inf"
	case math.IsNaN(f):
		return ".nan"
	}
	s := strconv.FormatFloat(f, 'g', -1, 64)
	if !strings.ContainsAny(s, ".e") {
		s += ".0"
	}
	return s
}

func fromWire(prog *wireProgram) (*Code, error) {
	if len(prog.Codes) == 0 {
		return nil, errors.New("program has no code objects")
	}

	byName := make(map[string]*Code, len(prog.Codes))
	for _, wc := range prog.Codes {
		if _, dup := byName[wc.Name]; dup {
			return nil, errors.Errorf("duplicate code object %q", wc.Name)
		}
		c := &Code{
			Name:           wc.Name,
			ArgCount:       wc.ArgCount,
			KwOnlyArgCount: wc.KwOnlyArgCount,
			VarNames:       wc.VarNames,
		}
		for _, f := range wc.Flags {
			switch f {
			case flagVarArgs:
				c.Flags |= FlagVarArgs
			case flagVarKeywords:
				c.Flags |= FlagVarKeywords
			default:
				return nil, errors.Errorf("code %s: unknown flag %q", wc.Name, f)
			}
		}
		byName[wc.Name] = c
	}

	for _, wc := range prog.Codes {
		c := byName[wc.Name]
		c.Instructions = make([]Instruction, 0, len(wc.Instructions))
		for i, wi := range wc.Instructions {
			in, err := instructionFromWire(i, wi, byName)
			if err != nil {
				return nil, errors.Wrapf(err, "code %s: instruction %d", wc.Name, i)
			}
			c.Instructions = append(c.Instructions, in)
		}
	}

	entry := prog.Entry
	if entry == "" {
		entry = prog.Codes[len(prog.Codes)-1].Name
	}
	code, ok := byName[entry]
	if !ok {
		return nil, errors.Errorf("entry code object %q not found", entry)
	}
	return code, nil
}

func instructionFromWire(i int, wi wireInstruction, byName map[string]*Code) (Instruction, error) {
	op, ok := LookupOpcode(wi.Op)
	if !ok {
		return Instruction{}, errors.Errorf("unknown opcode %q", wi.Op)
	}
	in := Instruction{Op: op, Offset: 2 * i, Arg: NoArg}
	if wi.Offset != nil {
		in.Offset = *wi.Offset
	}

	switch op.Operand() {
	case ArgConst:
		c, err := constFromWire(wi.Arg, byName)
		if err != nil {
			return Instruction{}, err
		}
		in.Arg = ArgConstOf(c)
	case ArgName, ArgCompare:
		s, ok := wi.Arg.(string)
		if !ok {
			return Instruction{}, errors.Errorf("%s wants a string operand, got %T", op, wi.Arg)
		}
		in.Arg = Operand{Kind: op.Operand(), Name: s}
	case ArgCount, ArgJump:
		if wi.Arg == nil && op.Operand() == ArgCount {
			in.Arg = ArgCountOf(0)
			break
		}
		n, err := wireInt(wi.Arg)
		if err != nil {
			return Instruction{}, errors.Wrapf(err, "%s operand", op)
		}
		in.Arg = Operand{Kind: op.Operand(), Int: n}
	}
	return in, nil
}

func constFromWire(v any, byName map[string]*Code) (Const, error) {
	switch x := v.(type) {
	case nil:
		return NoneConst(), nil
	case bool:
		return BoolConst(x), nil
	case int:
		return IntConst(int64(x)), nil
	case int64:
		return IntConst(x), nil
	case uint64:
		if x > math.MaxInt64 {
			return Const{}, errors.Errorf("integer constant %d out of range", x)
		}
		return IntConst(int64(x)), nil
	case float32:
		return FloatConst(float64(x)), nil
	case float64:
		return FloatConst(x), nil
	case string:
		return StrConst(x), nil
	case []any:
		items := make([]Const, len(x))
		for i, item := range x {
			c, err := constFromWire(item, byName)
			if err != nil {
				return Const{}, err
			}
			items[i] = c
		}
		return TupleConst(items...), nil
	case map[string]any:
		return codeRefFromWire(x["code"], byName)
	case map[any]any:
		return codeRefFromWire(x["code"], byName)
	default:
		return Const{}, errors.Errorf("unsupported constant %v (%T)", v, v)
	}
}

func codeRefFromWire(ref any, byName map[string]*Code) (Const, error) {
	name, ok := ref.(string)
	if !ok {
		return Const{}, errors.Errorf("code reference must be a name, got %T", ref)
	}
	c, ok := byName[name]
	if !ok {
		return Const{}, errors.Errorf("undefined code object %q", name)
	}
	return CodeConst(c), nil
}

func wireInt(v any) (int, error) {
	switch x := v.(type) {
	case int:
		return x, nil
	case int64:
		return int(x), nil
	case uint64:
		return int(x), nil
	case float64:
		if x == math.Trunc(x) {
			return int(x), nil
		}
	}
	return 0, errors.Errorf("want an integer, got %v (%T)", v, v)
}
