package bytecode

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleProgram() *Code {
	add := &Code{
		Name:     "add",
		ArgCount: 2,
		VarNames: []string{"a", "b", "rest"},
		Flags:    FlagVarArgs,
		Instructions: []Instruction{
			Make(OpLoadFast, 0, "a"),
			Make(OpLoadFast, 2, "b"),
			Make(OpBinaryAdd, 4, nil),
			Make(OpReturnValue, 6, nil),
		},
	}
	return NewCode("<module>",
		Make(OpLoadConst, 0, CodeConst(add)),
		Make(OpLoadConst, 2, StrConst("add")),
		Make(OpMakeFunction, 4, 0),
		Make(OpStoreName, 6, "add"),
		Make(OpLoadConst, 8, FloatConst(1.0)),
		Make(OpLoadConst, 10, TupleConst(IntConst(-3), StrConst("x"), NoneConst())),
		Make(OpCompareOp, 12, "not in"),
		Make(OpPopJumpIfFalse, 14, 18),
		Make(OpLoadConst, 16, BoolConst(false)),
		Make(OpReturnValue, 18, nil),
	)
}

func TestLookupOpcode(t *testing.T) {
	for _, op := range Opcodes() {
		got, ok := LookupOpcode(op.String())
		require.True(t, ok, op.String())
		assert.Equal(t, op, got)
	}

	_, ok := LookupOpcode("PRINT_ITEM")
	assert.False(t, ok)

	assert.True(t, OpForIter.IsJump())
	assert.True(t, OpSetupLoop.IsJump())
	assert.False(t, OpBreakLoop.HasArg())
	assert.Equal(t, ArgCompare, OpCompareOp.Operand())
	assert.Equal(t, "Opcode(250)", Opcode(250).String())
}

func TestConstString(t *testing.T) {
	tests := []struct {
		c    Const
		want string
	}{
		{NoneConst(), "None"},
		{BoolConst(true), "True"},
		{IntConst(-7), "-7"},
		{FloatConst(2), "2.0"},
		{FloatConst(0.5), "0.5"},
		{StrConst("a\"b"), `"a\"b"`},
		{TupleConst(IntConst(1)), "(1,)"},
		{TupleConst(), "()"},
		{TupleConst(IntConst(1), StrConst("k")), `(1, "k")`},
		{CodeConst(NewCode("f")), "@f"},
		{CodeConst(NewCode("<lambda>")), `@"<lambda>"`},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.c.String())
	}
}

func TestValidate(t *testing.T) {
	require.NoError(t, sampleProgram().Validate())

	t.Run("offsets must increase", func(t *testing.T) {
		c := NewCode("bad", Make(OpNop, 2, nil), Make(OpNop, 2, nil))
		err := c.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "not increasing")
	})

	t.Run("operand kind must match", func(t *testing.T) {
		c := NewCode("bad", Instruction{Op: OpLoadFast, Arg: ArgCountOf(1)})
		err := c.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "operand kind count, want name")
	})

	t.Run("parameters must fit varnames", func(t *testing.T) {
		c := &Code{Name: "f", ArgCount: 2, VarNames: []string{"a"}}
		assert.Error(t, c.Validate())
	})

	t.Run("nested code is checked", func(t *testing.T) {
		inner := NewCode("inner", Instruction{Op: Opcode(200)})
		outer := NewCode("outer", Make(OpLoadConst, 0, CodeConst(inner)))
		err := outer.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "code inner")
	})
}

func TestCodeParameters(t *testing.T) {
	c := &Code{
		Name:           "f",
		ArgCount:       1,
		KwOnlyArgCount: 1,
		VarNames:       []string{"a", "k", "args", "kw", "local"},
		Flags:          FlagVarArgs | FlagVarKeywords,
	}
	assert.Equal(t, []string{"a"}, c.PositionalNames())
	assert.Equal(t, []string{"k"}, c.KwOnlyNames())
	name, ok := c.VarArgsName()
	assert.True(t, ok)
	assert.Equal(t, "args", name)
	name, ok = c.VarKeywordsName()
	assert.True(t, ok)
	assert.Equal(t, "kw", name)
	assert.Equal(t, 4, c.ParamCount())
}

func TestIndexOf(t *testing.T) {
	c := sampleProgram()
	i, ok := c.IndexOf(14)
	assert.True(t, ok)
	assert.Equal(t, 7, i)
	_, ok = c.IndexOf(3)
	assert.False(t, ok)
}

func TestWalkVisitsSharedCodeOnce(t *testing.T) {
	shared := NewCode("shared", Make(OpReturnValue, 0, nil))
	entry := NewCode("entry",
		Make(OpLoadConst, 0, CodeConst(shared)),
		Make(OpLoadConst, 2, TupleConst(CodeConst(shared))),
	)
	var names []string
	require.NoError(t, entry.Walk(func(c *Code) error {
		names = append(names, c.Name)
		return nil
	}))
	assert.Equal(t, []string{"entry", "shared"}, names)
}

func TestDisassemble(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Disassemble(&buf, sampleProgram(), nil))
	out := buf.String()
	pad14 := strings.Repeat(" ", 14)

	blocks := strings.Split(out, "\n\n")
	require.Len(t, blocks, 2)
	assert.True(t, strings.HasPrefix(blocks[0], "code add(a, b, *rest)\n"))
	assert.True(t, strings.HasPrefix(blocks[1], `code "<module>"()`))
	assert.Contains(t, out, "LOAD_CONST"+pad14+"@add")
	assert.Contains(t, out, "COMPARE_OP"+pad14+`"not in"`)
	assert.Contains(t, out, "LOAD_CONST"+pad14+"1.0")
	assert.True(t, strings.HasSuffix(out, "end\n"))

	sig := signature(&Code{ArgCount: 1, KwOnlyArgCount: 1, VarNames: []string{"a", "k"}})
	assert.Equal(t, "a, *, k", sig)
}

func TestDisassembleHighlight(t *testing.T) {
	var buf bytes.Buffer
	hl := func(part Part, text string) string {
		if part == PartOpcode {
			return "<" + text + ">"
		}
		return text
	}
	require.NoError(t, Disassemble(&buf, NewCode("m", Make(OpReturnValue, 0, nil)), hl))
	assert.Contains(t, buf.String(), "<RETURN_VALUE>")
}

func assertSameProgram(t *testing.T, want, got *Code) {
	t.Helper()
	var a, b bytes.Buffer
	require.NoError(t, Disassemble(&a, want, nil))
	require.NoError(t, Disassemble(&b, got, nil))
	assert.Equal(t, a.String(), b.String())
}

func TestEncodeDecode(t *testing.T) {
	for _, format := range []Format{FormatYAML, FormatCBOR} {
		t.Run(format.String(), func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, Encode(&buf, sampleProgram(), format))

			code, err := Decode(&buf, format)
			require.NoError(t, err)
			assertSameProgram(t, sampleProgram(), code)

			c := code.Instructions[4].Arg.Const
			assert.Equal(t, ConstFloat, c.Kind)
			assert.Equal(t, 1.0, c.Float)
			fn := code.Instructions[0].Arg.Const.Code
			require.NotNil(t, fn)
			assert.Equal(t, FlagVarArgs, fn.Flags)
		})
	}
}

func TestEncodeIsDeterministic(t *testing.T) {
	var a, b bytes.Buffer
	require.NoError(t, Encode(&a, sampleProgram(), FormatCBOR))
	require.NoError(t, Encode(&b, sampleProgram(), FormatCBOR))
	assert.Equal(t, a.Bytes(), b.Bytes())
}

func TestDecodeYAMLDefaults(t *testing.T) {
	src := `
codes:
  - name: main
    instructions:
      - op: LOAD_CONST
      - op: BUILD_LIST
      - op: LOAD_CONST
        arg: [1, 2.5, "s"]
      - op: RETURN_VALUE
`
	code, err := Decode(strings.NewReader(src), FormatYAML)
	require.NoError(t, err)
	require.Equal(t, 4, code.Len())
	assert.Equal(t, ConstNone, code.Instructions[0].Arg.Const.Kind)
	assert.Equal(t, ArgCountOf(0), code.Instructions[1].Arg)
	assert.Equal(t, 4, code.Instructions[2].Offset)
	assert.Equal(t, `(1, 2.5, "s")`, code.Instructions[2].Arg.Const.String())
}

func TestDecodeErrors(t *testing.T) {
	tests := map[string]string{
		"unknown opcode":  "codes:\n  - name: m\n    instructions:\n      - op: FROB\n",
		"missing code":    "codes:\n  - name: m\n    instructions:\n      - op: LOAD_CONST\n        arg: {code: nope}\n",
		"bad entry":       "entry: x\ncodes:\n  - name: m\n    instructions: []\n",
		"empty":           "codes: []\n",
		"name not string": "codes:\n  - name: m\n    instructions:\n      - op: LOAD_NAME\n        arg: 3\n",
	}
	for name, src := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Decode(strings.NewReader(src), FormatYAML)
			assert.Error(t, err)
		})
	}
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat("YML")
	require.NoError(t, err)
	assert.Equal(t, FormatYAML, f)
	_, err = ParseFormat("json")
	assert.Error(t, err)
}
