package bytecode

import "fmt"

// Opcode identifies an instruction. The set is closed; the interpreter
// switches over it exhaustively.
type Opcode uint8

// List of opcodes
const (
	OpNop Opcode = iota
	OpPopTop
	OpRotTwo
	OpRotThree
	OpDupTop
	OpDupTopTwo

	OpUnaryPositive
	OpUnaryNegative
	OpUnaryNot
	OpUnaryConvert
	OpUnaryInvert

	OpBinaryPower
	OpBinaryMultiply
	OpBinaryMatrixMultiply
	OpBinaryFloorDivide
	OpBinaryTrueDivide
	OpBinaryModulo
	OpBinaryAdd
	OpBinarySubtract
	OpBinarySubscr
	OpBinaryLshift
	OpBinaryRshift
	OpBinaryAnd
	OpBinaryXor
	OpBinaryOr

	OpInplacePower
	OpInplaceMultiply
	OpInplaceMatrixMultiply
	OpInplaceFloorDivide
	OpInplaceTrueDivide
	OpInplaceModulo
	OpInplaceAdd
	OpInplaceSubtract
	OpInplaceLshift
	OpInplaceRshift
	OpInplaceAnd
	OpInplaceXor
	OpInplaceOr

	OpStoreSubscr
	OpDeleteSubscr
	OpPrintExpr
	OpLoadBuildClass
	OpReturnValue
	OpPopBlock
	OpPopExcept
	OpEndFinally

	OpStoreName
	OpDeleteName
	OpLoadName
	OpLoadGlobal
	OpStoreGlobal
	OpDeleteGlobal
	OpLoadFast
	OpStoreFast
	OpDeleteFast
	OpLoadConst

	OpLoadAttr
	OpStoreAttr
	OpDeleteAttr
	OpLoadMethod

	OpUnpackSequence
	OpUnpackEx

	OpBuildTuple
	OpBuildList
	OpBuildSet
	OpBuildMap
	OpBuildConstKeyMap
	OpBuildString
	OpBuildSlice
	OpListAppend
	OpSetAdd
	OpMapAdd

	OpCompareOp

	OpJumpForward
	OpJumpAbsolute
	OpPopJumpIfTrue
	OpPopJumpIfFalse
	OpJumpIfTrueOrPop
	OpJumpIfFalseOrPop

	OpSetupLoop
	OpBreakLoop
	OpContinueLoop
	OpGetIter
	OpForIter

	OpSetupExcept
	OpSetupFinally
	OpSetupWith
	OpRaiseVarargs

	OpCallFunction
	OpCallFunctionKw
	OpCallFunctionEx
	OpCallMethod
	OpMakeFunction

	OpExtendedArg

	opcodeCount
)

// OperandKind says how an instruction's operand is interpreted.
type OperandKind uint8

const (
	ArgNone    OperandKind = iota // no operand
	ArgConst                      // a constant value
	ArgName                       // a variable, attribute or method name
	ArgCount                      // an integer count or flag set
	ArgJump                       // an absolute target byte offset
	ArgCompare                    // a comparator string
)

func (k OperandKind) String() string {
	switch k {
	case ArgNone:
		return "none"
	case ArgConst:
		return "const"
	case ArgName:
		return "name"
	case ArgCount:
		return "count"
	case ArgJump:
		return "jump"
	case ArgCompare:
		return "compare"
	default:
		return fmt.Sprintf("OperandKind(%d)", int(k))
	}
}

type opInfo struct {
	name string
	arg  OperandKind
}

var opcodes = [opcodeCount]opInfo{
	OpNop:       {"NOP", ArgNone},
	OpPopTop:    {"POP_TOP", ArgNone},
	OpRotTwo:    {"ROT_TWO", ArgNone},
	OpRotThree:  {"ROT_THREE", ArgNone},
	OpDupTop:    {"DUP_TOP", ArgNone},
	OpDupTopTwo: {"DUP_TOP_TWO", ArgNone},

	OpUnaryPositive: {"UNARY_POSITIVE", ArgNone},
	OpUnaryNegative: {"UNARY_NEGATIVE", ArgNone},
	OpUnaryNot:      {"UNARY_NOT", ArgNone},
	OpUnaryConvert:  {"UNARY_CONVERT", ArgNone},
	OpUnaryInvert:   {"UNARY_INVERT", ArgNone},

	OpBinaryPower:          {"BINARY_POWER", ArgNone},
	OpBinaryMultiply:       {"BINARY_MULTIPLY", ArgNone},
	OpBinaryMatrixMultiply: {"BINARY_MATRIX_MULTIPLY", ArgNone},
	OpBinaryFloorDivide:    {"BINARY_FLOOR_DIVIDE", ArgNone},
	OpBinaryTrueDivide:     {"BINARY_TRUE_DIVIDE", ArgNone},
	OpBinaryModulo:         {"BINARY_MODULO", ArgNone},
	OpBinaryAdd:            {"BINARY_ADD", ArgNone},
	OpBinarySubtract:       {"BINARY_SUBTRACT", ArgNone},
	OpBinarySubscr:         {"BINARY_SUBSCR", ArgNone},
	OpBinaryLshift:         {"BINARY_LSHIFT", ArgNone},
	OpBinaryRshift:         {"BINARY_RSHIFT", ArgNone},
	OpBinaryAnd:            {"BINARY_AND", ArgNone},
	OpBinaryXor:            {"BINARY_XOR", ArgNone},
	OpBinaryOr:             {"BINARY_OR", ArgNone},

	OpInplacePower:          {"INPLACE_POWER", ArgNone},
	OpInplaceMultiply:       {"INPLACE_MULTIPLY", ArgNone},
	OpInplaceMatrixMultiply: {"INPLACE_MATRIX_MULTIPLY", ArgNone},
	OpInplaceFloorDivide:    {"INPLACE_FLOOR_DIVIDE", ArgNone},
	OpInplaceTrueDivide:     {"INPLACE_TRUE_DIVIDE", ArgNone},
	OpInplaceModulo:         {"INPLACE_MODULO", ArgNone},
	OpInplaceAdd:            {"INPLACE_ADD", ArgNone},
	OpInplaceSubtract:       {"INPLACE_SUBTRACT", ArgNone},
	OpInplaceLshift:         {"INPLACE_LSHIFT", ArgNone},
	OpInplaceRshift:         {"INPLACE_RSHIFT", ArgNone},
	OpInplaceAnd:            {"INPLACE_AND", ArgNone},
	OpInplaceXor:            {"INPLACE_XOR", ArgNone},
	OpInplaceOr:             {"INPLACE_OR", ArgNone},

	OpStoreSubscr:    {"STORE_SUBSCR", ArgNone},
	OpDeleteSubscr:   {"DELETE_SUBSCR", ArgNone},
	OpPrintExpr:      {"PRINT_EXPR", ArgNone},
	OpLoadBuildClass: {"LOAD_BUILD_CLASS", ArgNone},
	OpReturnValue:    {"RETURN_VALUE", ArgNone},
	OpPopBlock:       {"POP_BLOCK", ArgNone},
	OpPopExcept:      {"POP_EXCEPT", ArgNone},
	OpEndFinally:     {"END_FINALLY", ArgNone},

	OpStoreName:    {"STORE_NAME", ArgName},
	OpDeleteName:   {"DELETE_NAME", ArgName},
	OpLoadName:     {"LOAD_NAME", ArgName},
	OpLoadGlobal:   {"LOAD_GLOBAL", ArgName},
	OpStoreGlobal:  {"STORE_GLOBAL", ArgName},
	OpDeleteGlobal: {"DELETE_GLOBAL", ArgName},
	OpLoadFast:     {"LOAD_FAST", ArgName},
	OpStoreFast:    {"STORE_FAST", ArgName},
	OpDeleteFast:   {"DELETE_FAST", ArgName},
	OpLoadConst:    {"LOAD_CONST", ArgConst},

	OpLoadAttr:   {"LOAD_ATTR", ArgName},
	OpStoreAttr:  {"STORE_ATTR", ArgName},
	OpDeleteAttr: {"DELETE_ATTR", ArgName},
	OpLoadMethod: {"LOAD_METHOD", ArgName},

	OpUnpackSequence: {"UNPACK_SEQUENCE", ArgCount},
	OpUnpackEx:       {"UNPACK_EX", ArgCount},

	OpBuildTuple:       {"BUILD_TUPLE", ArgCount},
	OpBuildList:        {"BUILD_LIST", ArgCount},
	OpBuildSet:         {"BUILD_SET", ArgCount},
	OpBuildMap:         {"BUILD_MAP", ArgCount},
	OpBuildConstKeyMap: {"BUILD_CONST_KEY_MAP", ArgCount},
	OpBuildString:      {"BUILD_STRING", ArgCount},
	OpBuildSlice:       {"BUILD_SLICE", ArgCount},
	OpListAppend:       {"LIST_APPEND", ArgCount},
	OpSetAdd:           {"SET_ADD", ArgCount},
	OpMapAdd:           {"MAP_ADD", ArgCount},

	OpCompareOp: {"COMPARE_OP", ArgCompare},

	OpJumpForward:      {"JUMP_FORWARD", ArgJump},
	OpJumpAbsolute:     {"JUMP_ABSOLUTE", ArgJump},
	OpPopJumpIfTrue:    {"POP_JUMP_IF_TRUE", ArgJump},
	OpPopJumpIfFalse:   {"POP_JUMP_IF_FALSE", ArgJump},
	OpJumpIfTrueOrPop:  {"JUMP_IF_TRUE_OR_POP", ArgJump},
	OpJumpIfFalseOrPop: {"JUMP_IF_FALSE_OR_POP", ArgJump},

	OpSetupLoop:    {"SETUP_LOOP", ArgJump},
	OpBreakLoop:    {"BREAK_LOOP", ArgNone},
	OpContinueLoop: {"CONTINUE_LOOP", ArgJump},
	OpGetIter:      {"GET_ITER", ArgNone},
	OpForIter:      {"FOR_ITER", ArgJump},

	OpSetupExcept:  {"SETUP_EXCEPT", ArgJump},
	OpSetupFinally: {"SETUP_FINALLY", ArgJump},
	OpSetupWith:    {"SETUP_WITH", ArgJump},
	OpRaiseVarargs: {"RAISE_VARARGS", ArgCount},

	OpCallFunction:   {"CALL_FUNCTION", ArgCount},
	OpCallFunctionKw: {"CALL_FUNCTION_KW", ArgCount},
	OpCallFunctionEx: {"CALL_FUNCTION_EX", ArgCount},
	OpCallMethod:     {"CALL_METHOD", ArgCount},
	OpMakeFunction:   {"MAKE_FUNCTION", ArgCount},

	OpExtendedArg: {"EXTENDED_ARG", ArgCount},
}

var byMnemonic = func() map[string]Opcode {
	m := make(map[string]Opcode, len(opcodes))
	for op, info := range opcodes {
		m[info.name] = Opcode(op)
	}
	return m
}()

// LookupOpcode maps a mnemonic such as "LOAD_CONST" to its opcode.
func LookupOpcode(mnemonic string) (Opcode, bool) {
	op, ok := byMnemonic[mnemonic]
	return op, ok
}

// Opcodes returns every defined opcode in numeric order.
func Opcodes() []Opcode {
	ops := make([]Opcode, opcodeCount)
	for i := range ops {
		ops[i] = Opcode(i)
	}
	return ops
}

// Valid reports whether op is a defined opcode.
func (op Opcode) Valid() bool {
	return op < opcodeCount
}

// String returns the opcode mnemonic.
func (op Opcode) String() string {
	if !op.Valid() {
		return fmt.Sprintf("Opcode(%d)", int(op))
	}
	return opcodes[op].name
}

// Operand returns the kind of operand op expects.
func (op Opcode) Operand() OperandKind {
	if !op.Valid() {
		return ArgNone
	}
	return opcodes[op].arg
}

// HasArg reports whether op takes an operand.
func (op Opcode) HasArg() bool {
	return op.Operand() != ArgNone
}

// IsJump reports whether op's operand is a jump target.
func (op Opcode) IsJump() bool {
	return op.Operand() == ArgJump
}
