package compiler

import "fmt"

// ---------------------------------------------------------------------------
// Opcode definitions
// ---------------------------------------------------------------------------

// Opcode is a single instruction word. Operands follow the opcode in the
// code stream as additional words.
type Opcode uint32

// NoIdent marks an absent identifier operand (no namespace, no package).
const NoIdent uint32 = 0xFFFFFFFF

// Declarations
const (
	OpFuncDecl Opcode = iota
	OpCreateObject
	OpAddObject
	OpEndObject
	OpFinishObject
)

// Control flow
const (
	OpJmpIfFNot Opcode = iota + 0x10 // pop float, jump if zero
	OpJmpIfNot                       // pop int, jump if zero
	OpJmpIfF                         // pop float, jump if nonzero
	OpJmpIf                          // pop int, jump if nonzero
	OpJmpIfNotNP                     // jump if int top is zero, keep it; else pop
	OpJmpIfNP                        // jump if int top is nonzero, keep it; else pop
	OpJmp
	OpReturn     // return current string
	OpReturnVoid // return ""
)

// Integer and comparison operators
const (
	OpCmpEQ Opcode = iota + 0x20
	OpCmpGR
	OpCmpGE
	OpCmpLT
	OpCmpLE
	OpCmpNE
	OpXor
	OpMod
	OpBitAnd
	OpBitOr
	OpNot
	OpNotF
	OpOnesComplement
	OpShr
	OpShl
)

// Float operators
const (
	OpAdd Opcode = iota + 0x30
	OpSub
	OpMul
	OpDiv
	OpNeg
)

// Variables and fields
const (
	OpSetCurVar Opcode = iota + 0x40
	OpSetCurVarCreate
	OpSetCurVarArray
	OpSetCurVarArrayCreate
	OpLoadVarUInt
	OpLoadVarFlt
	OpLoadVarStr
	OpSaveVarUInt
	OpSaveVarFlt
	OpSaveVarStr
	OpSetCurObject
	OpSetCurObjectNew
	OpSetCurField
	OpSetCurFieldArray
	OpLoadFieldUInt
	OpLoadFieldFlt
	OpLoadFieldStr
	OpSaveFieldUInt
	OpSaveFieldFlt
	OpSaveFieldStr
)

// Type conversions
const (
	OpStrToUInt Opcode = iota + 0x60
	OpStrToFlt
	OpStrToNone
	OpFltToUInt
	OpFltToStr
	OpFltToNone
	OpUIntToFlt
	OpUIntToStr
	OpUIntToNone
)

// Immediates, calls and the string stack
const (
	OpLoadImmedUInt Opcode = iota + 0x70
	OpLoadImmedFlt
	OpLoadImmedStr
	OpLoadImmedIdent
	OpCallFunc
	OpAdvanceStr
	OpAdvanceStrAppendChar
	OpAdvanceStrComma
	OpAdvanceStrNul
	OpRewindStr
	OpTerminateRewindStr
	OpCompareStr
	OpPush
	OpPushFrame
)

// Call types carried by OpCallFunc.
const (
	FunctionCall uint32 = iota
	MethodCall
	ParentCall
)

// ---------------------------------------------------------------------------
// Opcode metadata
// ---------------------------------------------------------------------------

// OpcodeInfo holds metadata about an opcode.
type OpcodeInfo struct {
	Name     string
	Operands int // fixed operand words; OpFuncDecl has a variable tail
}

var opcodeTable = map[Opcode]OpcodeInfo{
	OpFuncDecl:     {"FUNC_DECL", 6},
	OpCreateObject: {"CREATE_OBJECT", 3},
	OpAddObject:    {"ADD_OBJECT", 1},
	OpEndObject:    {"END_OBJECT", 1},
	OpFinishObject: {"FINISH_OBJECT", 0},

	OpJmpIfFNot:  {"JMPIFFNOT", 1},
	OpJmpIfNot:   {"JMPIFNOT", 1},
	OpJmpIfF:     {"JMPIFF", 1},
	OpJmpIf:      {"JMPIF", 1},
	OpJmpIfNotNP: {"JMPIFNOT_NP", 1},
	OpJmpIfNP:    {"JMPIF_NP", 1},
	OpJmp:        {"JMP", 1},
	OpReturn:     {"RETURN", 0},
	OpReturnVoid: {"RETURN_VOID", 0},

	OpCmpEQ:          {"CMPEQ", 0},
	OpCmpGR:          {"CMPGR", 0},
	OpCmpGE:          {"CMPGE", 0},
	OpCmpLT:          {"CMPLT", 0},
	OpCmpLE:          {"CMPLE", 0},
	OpCmpNE:          {"CMPNE", 0},
	OpXor:            {"XOR", 0},
	OpMod:            {"MOD", 0},
	OpBitAnd:         {"BITAND", 0},
	OpBitOr:          {"BITOR", 0},
	OpNot:            {"NOT", 0},
	OpNotF:           {"NOTF", 0},
	OpOnesComplement: {"ONESCOMPLEMENT", 0},
	OpShr:            {"SHR", 0},
	OpShl:            {"SHL", 0},

	OpAdd: {"ADD", 0},
	OpSub: {"SUB", 0},
	OpMul: {"MUL", 0},
	OpDiv: {"DIV", 0},
	OpNeg: {"NEG", 0},

	OpSetCurVar:            {"SETCURVAR", 1},
	OpSetCurVarCreate:      {"SETCURVAR_CREATE", 1},
	OpSetCurVarArray:       {"SETCURVAR_ARRAY", 0},
	OpSetCurVarArrayCreate: {"SETCURVAR_ARRAY_CREATE", 0},
	OpLoadVarUInt:          {"LOADVAR_UINT", 0},
	OpLoadVarFlt:           {"LOADVAR_FLT", 0},
	OpLoadVarStr:           {"LOADVAR_STR", 0},
	OpSaveVarUInt:          {"SAVEVAR_UINT", 0},
	OpSaveVarFlt:           {"SAVEVAR_FLT", 0},
	OpSaveVarStr:           {"SAVEVAR_STR", 0},
	OpSetCurObject:         {"SETCUROBJECT", 0},
	OpSetCurObjectNew:      {"SETCUROBJECT_NEW", 0},
	OpSetCurField:          {"SETCURFIELD", 1},
	OpSetCurFieldArray:     {"SETCURFIELD_ARRAY", 0},
	OpLoadFieldUInt:        {"LOADFIELD_UINT", 0},
	OpLoadFieldFlt:         {"LOADFIELD_FLT", 0},
	OpLoadFieldStr:         {"LOADFIELD_STR", 0},
	OpSaveFieldUInt:        {"SAVEFIELD_UINT", 0},
	OpSaveFieldFlt:         {"SAVEFIELD_FLT", 0},
	OpSaveFieldStr:         {"SAVEFIELD_STR", 0},

	OpStrToUInt:  {"STR_TO_UINT", 0},
	OpStrToFlt:   {"STR_TO_FLT", 0},
	OpStrToNone:  {"STR_TO_NONE", 0},
	OpFltToUInt:  {"FLT_TO_UINT", 0},
	OpFltToStr:   {"FLT_TO_STR", 0},
	OpFltToNone:  {"FLT_TO_NONE", 0},
	OpUIntToFlt:  {"UINT_TO_FLT", 0},
	OpUIntToStr:  {"UINT_TO_STR", 0},
	OpUIntToNone: {"UINT_TO_NONE", 0},

	OpLoadImmedUInt:        {"LOADIMMED_UINT", 1},
	OpLoadImmedFlt:         {"LOADIMMED_FLT", 1},
	OpLoadImmedStr:         {"LOADIMMED_STR", 1},
	OpLoadImmedIdent:       {"LOADIMMED_IDENT", 1},
	OpCallFunc:             {"CALLFUNC", 3},
	OpAdvanceStr:           {"ADVANCE_STR", 0},
	OpAdvanceStrAppendChar: {"ADVANCE_STR_APPENDCHAR", 1},
	OpAdvanceStrComma:      {"ADVANCE_STR_COMMA", 0},
	OpAdvanceStrNul:        {"ADVANCE_STR_NUL", 0},
	OpRewindStr:            {"REWIND_STR", 0},
	OpTerminateRewindStr:   {"TERMINATE_REWIND_STR", 0},
	OpCompareStr:           {"COMPARE_STR", 0},
	OpPush:                 {"PUSH", 0},
	OpPushFrame:            {"PUSH_FRAME", 0},
}

// Info returns the metadata for an opcode.
func (op Opcode) Info() OpcodeInfo {
	if info, ok := opcodeTable[op]; ok {
		return info
	}
	return OpcodeInfo{Name: fmt.Sprintf("UNKNOWN_%02X", uint32(op))}
}

// String returns the opcode's mnemonic.
func (op Opcode) String() string {
	return op.Info().Name
}

// ---------------------------------------------------------------------------
// TypeReq: the type an expression is asked to leave behind
// ---------------------------------------------------------------------------

// TypeReq selects which VM stack an expression's result lands on.
type TypeReq uint8

const (
	TypeReqNone TypeReq = iota
	TypeReqUInt
	TypeReqFloat
	TypeReqString
)

func (t TypeReq) String() string {
	switch t {
	case TypeReqNone:
		return "none"
	case TypeReqUInt:
		return "uint"
	case TypeReqFloat:
		return "float"
	case TypeReqString:
		return "string"
	default:
		return fmt.Sprintf("TypeReq(%d)", t)
	}
}

// conversionOp returns the opcode converting a value of type src into dst.
// The caller only asks when src != dst.
func conversionOp(src, dst TypeReq) Opcode {
	switch src {
	case TypeReqString:
		switch dst {
		case TypeReqUInt:
			return OpStrToUInt
		case TypeReqFloat:
			return OpStrToFlt
		case TypeReqNone:
			return OpStrToNone
		}
	case TypeReqFloat:
		switch dst {
		case TypeReqUInt:
			return OpFltToUInt
		case TypeReqString:
			return OpFltToStr
		case TypeReqNone:
			return OpFltToNone
		}
	case TypeReqUInt:
		switch dst {
		case TypeReqFloat:
			return OpUIntToFlt
		case TypeReqString:
			return OpUIntToStr
		case TypeReqNone:
			return OpUIntToNone
		}
	}
	panic(fmt.Sprintf("compiler: no conversion from %s to %s", src, dst))
}
