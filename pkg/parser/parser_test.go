package parser

import (
	"bytes"
	"strings"
	"testing"

	"bcvm/pkg/bytecode"
	"bcvm/pkg/color"
	"bcvm/pkg/lexer"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	color.EnableColor(false)
}

const sumListing = `
// sum 1..3 with a for loop
code main()
    0 LOAD_CONST 0
    2 STORE_NAME total
    4 SETUP_LOOP done
      LOAD_CONST (1, 2, 3)
      GET_ITER
loop: FOR_ITER exit
      STORE_NAME i
      LOAD_NAME total
      LOAD_NAME i
      INPLACE_ADD
      STORE_NAME total
      JUMP_ABSOLUTE loop
exit: POP_BLOCK
done: LOAD_NAME total
      RETURN_VALUE
end
`

func TestAssembleLabelsAndOffsets(t *testing.T) {
	code, err := Assemble(sumListing)
	require.NoError(t, err)
	require.Equal(t, "main", code.Name)
	require.Equal(t, 15, code.Len())

	for i, in := range code.Instructions {
		assert.Equal(t, 2*i, in.Offset, "instruction %d", i)
	}

	assert.Equal(t, bytecode.OpSetupLoop, code.Instructions[2].Op)
	assert.Equal(t, 26, code.Instructions[2].Arg.Int)  // done
	assert.Equal(t, 24, code.Instructions[5].Arg.Int)  // exit
	assert.Equal(t, 10, code.Instructions[11].Arg.Int) // loop
	assert.Equal(t, "(1, 2, 3)", code.Instructions[3].Arg.Const.String())
}

func TestAssembleFunctionsAndForwardRefs(t *testing.T) {
	src := `
code "<module>"()
    LOAD_CONST @f
    LOAD_CONST "f"
    MAKE_FUNCTION 0
    STORE_NAME f
    LOAD_CONST None
    RETURN_VALUE
end

code f(a, b, *args, k, **kw)
    LOAD_FAST a
    COMPARE_OP is not
    COMPARE_OP not in
    COMPARE_OP <=
    COMPARE_OP "exception match"
    RETURN_VALUE
end
`
	code, err := Assemble(src)
	require.NoError(t, err)

	// the last block is the entry point
	assert.Equal(t, "f", code.Name)
	assert.Equal(t, 2, code.ArgCount)
	assert.Equal(t, 1, code.KwOnlyArgCount)
	assert.Equal(t, []string{"a", "b", "k", "args", "kw"}, code.VarNames)
	assert.Equal(t, bytecode.FlagVarArgs|bytecode.FlagVarKeywords, code.Flags)

	var ops []string
	for _, in := range code.Instructions[1:5] {
		ops = append(ops, in.Arg.Name)
	}
	assert.Equal(t, []string{"is not", "not in", "<=", "exception match"}, ops)
}

func TestAssembleForwardReferenceResolvesToSameObject(t *testing.T) {
	src := `
code main()
    LOAD_CONST @g
    LOAD_CONST (@g, 1.5, -2, True, 'x')
    RETURN_VALUE
end
code g()
    LOAD_CONST None
    RETURN_VALUE
end
code entry()
    LOAD_CONST @main
    RETURN_VALUE
end
`
	entry, err := Assemble(src)
	require.NoError(t, err)
	main := entry.Instructions[0].Arg.Const.Code
	require.NotNil(t, main)

	g1 := main.Instructions[0].Arg.Const.Code
	tuple := main.Instructions[1].Arg.Const
	require.Len(t, tuple.Items, 5)
	assert.Same(t, g1, tuple.Items[0].Code)
	assert.Equal(t, 2, g1.Len())
	assert.Equal(t, 1.5, tuple.Items[1].Float)
	assert.Equal(t, int64(-2), tuple.Items[2].Int)
	assert.Equal(t, "x", tuple.Items[4].Str)
}

func TestAssembleErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{"unknown opcode", "code m()\n  FROB\nend\n", "Unknown opcode `FROB`"},
		{"missing end", "code m()\n  NOP\n", "Missing 'end'"},
		{"undefined label", "code m()\n  JUMP_ABSOLUTE nowhere\nend\n", "Undefined label `nowhere`"},
		{"undefined code", "code m()\n  LOAD_CONST @h\nend\n", "Undefined code object `h`"},
		{"missing operand", "code m()\n  LOAD_FAST\nend\n", "LOAD_FAST expects a name"},
		{"bad count", "code m()\n  BUILD_LIST x\nend\n", "BUILD_LIST expects an integer"},
		{"redefinition", "code m()\nend\ncode m()\nend\n", "Redefinition of code object `m`"},
		{"empty", "// nothing\n", "no code blocks"},
		{"stray token", "NOP\n", "Expected 'code'"},
		{"offsets", "code m()\n  4 NOP\n  2 NOP\nend\n", "not increasing"},
		{"dangling label", "code m()\n  NOP\nhere:\nend\n", "does not precede an instruction"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Assemble(tt.src)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestErrorsCarryPosition(t *testing.T) {
	p := NewParser(lexer.NewLexer("code m()\n  NOP\n  FROB 1 2\n  NOP\nend\n"))
	p.Parse()
	errs := p.Errors()
	require.Len(t, errs, 1)
	assert.Equal(t, "Unknown opcode `FROB` at 3:3", errs[0])
}

func TestErrorCollectsMultiple(t *testing.T) {
	_, err := Assemble("code m()\n  FROB\n  BLAH\nend\n")
	require.Error(t, err)
	perr, ok := err.(*Error)
	require.True(t, ok)
	assert.Len(t, perr.Messages, 2)
	assert.True(t, strings.HasPrefix(err.Error(), "2 errors:"))
}

func TestDisassembleRoundTrip(t *testing.T) {
	src := `
code "<lambda>"(x)
    LOAD_FAST x
    RETURN_VALUE
end
code main(a, *, k)
    0 LOAD_CONST @"<lambda>"
    2 LOAD_CONST "<lambda>"
    4 MAKE_FUNCTION 0
    6 LOAD_CONST 1e+21
    8 LOAD_CONST "tab\there"
   10 STORE_NAME "odd name"
   12 COMPARE_OP in
   20 POP_JUMP_IF_TRUE 12
   22 RETURN_VALUE
end
`
	code, err := Assemble(src)
	require.NoError(t, err)

	var first bytes.Buffer
	require.NoError(t, bytecode.Disassemble(&first, code, nil))

	again, err := Assemble(first.String())
	require.NoError(t, err, first.String())

	var second bytes.Buffer
	require.NoError(t, bytecode.Disassemble(&second, again, nil))
	assert.Equal(t, first.String(), second.String())
	assert.Contains(t, first.String(), "code main(a, *, k)")
}
