package compiler

// ---------------------------------------------------------------------------
// Expression sizing and emission
//
// precompile(t) returns the exact number of words compile(t) writes and
// caches whatever compile needs (literal indices, sub-sizes). Binary
// operators emit the right operand first so the left one ends on top.
// ---------------------------------------------------------------------------

// convSize is the cost of leaving a value of type src as dst.
func convSize(src, dst TypeReq) uint32 {
	if src == dst {
		return 0
	}
	return 1
}

func emitConv(code []uint32, ip uint32, src, dst TypeReq) uint32 {
	if src == dst {
		return ip
	}
	code[ip] = uint32(conversionOp(src, dst))
	return ip + 1
}

func emit1(code []uint32, ip uint32, op Opcode) uint32 {
	code[ip] = uint32(op)
	return ip + 1
}

func emit2(code []uint32, ip uint32, op Opcode, operand uint32) uint32 {
	code[ip] = uint32(op)
	code[ip+1] = operand
	return ip + 2
}

// arithOperand maps an arithmetic token to the stack it runs on and its opcode.
func arithOperand(op TokenType) (TypeReq, Opcode) {
	switch op {
	case TokenPlus:
		return TypeReqFloat, OpAdd
	case TokenMinus:
		return TypeReqFloat, OpSub
	case TokenStar:
		return TypeReqFloat, OpMul
	case TokenSlash:
		return TypeReqFloat, OpDiv
	case TokenPercent:
		return TypeReqUInt, OpMod
	case TokenAmp:
		return TypeReqUInt, OpBitAnd
	case TokenBar:
		return TypeReqUInt, OpBitOr
	case TokenCaret:
		return TypeReqUInt, OpXor
	case TokenShl:
		return TypeReqUInt, OpShl
	case TokenShr:
		return TypeReqUInt, OpShr
	case TokenLT:
		return TypeReqFloat, OpCmpLT
	case TokenGT:
		return TypeReqFloat, OpCmpGR
	case TokenLE:
		return TypeReqFloat, OpCmpLE
	case TokenGE:
		return TypeReqFloat, OpCmpGE
	case TokenEQ:
		return TypeReqFloat, OpCmpEQ
	case TokenNE:
		return TypeReqFloat, OpCmpNE
	}
	panic("compiler: not an arithmetic operator: " + op.String())
}

func loadVarOp(t TypeReq) Opcode {
	switch t {
	case TypeReqUInt:
		return OpLoadVarUInt
	case TypeReqFloat:
		return OpLoadVarFlt
	}
	return OpLoadVarStr
}

func saveVarOp(t TypeReq) Opcode {
	switch t {
	case TypeReqUInt:
		return OpSaveVarUInt
	case TypeReqFloat:
		return OpSaveVarFlt
	}
	return OpSaveVarStr
}

func loadFieldOp(t TypeReq) Opcode {
	switch t {
	case TypeReqUInt:
		return OpLoadFieldUInt
	case TypeReqFloat:
		return OpLoadFieldFlt
	}
	return OpLoadFieldStr
}

func saveFieldOp(t TypeReq) Opcode {
	switch t {
	case TypeReqUInt:
		return OpSaveFieldUInt
	case TypeReqFloat:
		return OpSaveFieldFlt
	}
	return OpSaveFieldStr
}

// ---------------------------------------------------------------------------
// Literals
// ---------------------------------------------------------------------------

func (n *IntLit) preferredType() TypeReq { return TypeReqUInt }

func (n *IntLit) precompile(c *Compiler, t TypeReq) uint32 {
	switch t {
	case TypeReqString:
		n.index = c.strings.AddInt(n.Value)
	case TypeReqFloat:
		n.index = c.floats.Add(float64(n.Value))
	case TypeReqNone:
		return 0
	}
	return 2
}

func (n *IntLit) compile(c *Compiler, code []uint32, ip uint32, t TypeReq) uint32 {
	switch t {
	case TypeReqUInt:
		return emit2(code, ip, OpLoadImmedUInt, uint32(n.Value))
	case TypeReqString:
		return emit2(code, ip, OpLoadImmedStr, n.index)
	case TypeReqFloat:
		return emit2(code, ip, OpLoadImmedFlt, n.index)
	}
	return ip
}

func (n *FloatLit) preferredType() TypeReq { return TypeReqFloat }

func (n *FloatLit) precompile(c *Compiler, t TypeReq) uint32 {
	switch t {
	case TypeReqString:
		n.index = c.strings.AddFloat(n.Value)
	case TypeReqFloat:
		n.index = c.floats.Add(n.Value)
	case TypeReqNone:
		return 0
	}
	return 2
}

func (n *FloatLit) compile(c *Compiler, code []uint32, ip uint32, t TypeReq) uint32 {
	switch t {
	case TypeReqUInt:
		return emit2(code, ip, OpLoadImmedUInt, uint32(int64(n.Value)))
	case TypeReqString:
		return emit2(code, ip, OpLoadImmedStr, n.index)
	case TypeReqFloat:
		return emit2(code, ip, OpLoadImmedFlt, n.index)
	}
	return ip
}

// Quoted and bare-word literals share layout; only the string opcode differs.
func precompileText(c *Compiler, value string, index *uint32, num *float64, t TypeReq) uint32 {
	switch t {
	case TypeReqString:
		*index = c.strings.Add(value)
	case TypeReqUInt:
		*num = StringToNumber(value)
	case TypeReqFloat:
		*num = StringToNumber(value)
		*index = c.floats.Add(*num)
	case TypeReqNone:
		return 0
	}
	return 2
}

func compileText(code []uint32, ip uint32, strOp Opcode, index uint32, num float64, t TypeReq) uint32 {
	switch t {
	case TypeReqString:
		return emit2(code, ip, strOp, index)
	case TypeReqUInt:
		return emit2(code, ip, OpLoadImmedUInt, uint32(int64(num)))
	case TypeReqFloat:
		return emit2(code, ip, OpLoadImmedFlt, index)
	}
	return ip
}

func (n *StrLit) preferredType() TypeReq { return TypeReqString }

func (n *StrLit) precompile(c *Compiler, t TypeReq) uint32 {
	return precompileText(c, n.Value, &n.index, &n.num, t)
}

func (n *StrLit) compile(c *Compiler, code []uint32, ip uint32, t TypeReq) uint32 {
	return compileText(code, ip, OpLoadImmedStr, n.index, n.num, t)
}

func (n *ConstLit) preferredType() TypeReq { return TypeReqString }

func (n *ConstLit) precompile(c *Compiler, t TypeReq) uint32 {
	return precompileText(c, n.Value, &n.index, &n.num, t)
}

func (n *ConstLit) compile(c *Compiler, code []uint32, ip uint32, t TypeReq) uint32 {
	return compileText(code, ip, OpLoadImmedIdent, n.index, n.num, t)
}

// ---------------------------------------------------------------------------
// Variables
// ---------------------------------------------------------------------------

func (n *VarExpr) preferredType() TypeReq { return TypeReqNone }

func (n *VarExpr) precompile(c *Compiler, t TypeReq) uint32 {
	if t == TypeReqNone {
		return 0
	}
	n.nameIdx = c.ident(n.Name)
	if n.Index != nil {
		return n.Index.precompile(c, TypeReqString) + 6
	}
	return 3
}

func (n *VarExpr) compile(c *Compiler, code []uint32, ip uint32, t TypeReq) uint32 {
	if t == TypeReqNone {
		return ip
	}
	if n.Index != nil {
		ip = emit2(code, ip, OpLoadImmedIdent, n.nameIdx)
		ip = emit1(code, ip, OpAdvanceStr)
		ip = n.Index.compile(c, code, ip, TypeReqString)
		ip = emit1(code, ip, OpRewindStr)
		ip = emit1(code, ip, OpSetCurVarArray)
	} else {
		ip = emit2(code, ip, OpSetCurVar, n.nameIdx)
	}
	return emit1(code, ip, loadVarOp(t))
}

func valueSubType(e Expr) TypeReq {
	if t := e.preferredType(); t != TypeReqNone {
		return t
	}
	return TypeReqString
}

func (n *AssignExpr) preferredType() TypeReq { return valueSubType(n.Value) }

// Layout with an index:
//
//	value; [ADVANCE_STR] LOADIMMED_IDENT name ADVANCE_STR index REWIND_STR
//	SETCURVAR_ARRAY_CREATE [TERMINATE_REWIND_STR] SAVEVAR
//
// A string value is parked on the string stack while the name is built.
func (n *AssignExpr) precompile(c *Compiler, t TypeReq) uint32 {
	n.subType = valueSubType(n.Value)
	n.nameIdx = c.ident(n.Name)
	size := n.Value.precompile(c, n.subType)
	if n.Index == nil {
		size += 3
	} else {
		size += n.Index.precompile(c, TypeReqString)
		if n.subType == TypeReqString {
			size += 8
		} else {
			size += 6
		}
	}
	return size + convSize(n.subType, t)
}

func (n *AssignExpr) compile(c *Compiler, code []uint32, ip uint32, t TypeReq) uint32 {
	ip = n.Value.compile(c, code, ip, n.subType)
	if n.Index == nil {
		ip = emit2(code, ip, OpSetCurVarCreate, n.nameIdx)
	} else {
		if n.subType == TypeReqString {
			ip = emit1(code, ip, OpAdvanceStr)
		}
		ip = emit2(code, ip, OpLoadImmedIdent, n.nameIdx)
		ip = emit1(code, ip, OpAdvanceStr)
		ip = n.Index.compile(c, code, ip, TypeReqString)
		ip = emit1(code, ip, OpRewindStr)
		ip = emit1(code, ip, OpSetCurVarArrayCreate)
		if n.subType == TypeReqString {
			ip = emit1(code, ip, OpTerminateRewindStr)
		}
	}
	ip = emit1(code, ip, saveVarOp(n.subType))
	return emitConv(code, ip, n.subType, t)
}

func (n *AssignOpExpr) preferredType() TypeReq {
	t, _ := arithOperand(n.Op)
	return t
}

func (n *AssignOpExpr) precompile(c *Compiler, t TypeReq) uint32 {
	n.subType, n.operand = arithOperand(n.Op)
	n.nameIdx = c.ident(n.Name)
	size := n.Value.precompile(c, n.subType)
	if n.Index == nil {
		size += 5
	} else {
		size += n.Index.precompile(c, TypeReqString) + 8
	}
	return size + convSize(n.subType, t)
}

func (n *AssignOpExpr) compile(c *Compiler, code []uint32, ip uint32, t TypeReq) uint32 {
	ip = n.Value.compile(c, code, ip, n.subType)
	if n.Index == nil {
		ip = emit2(code, ip, OpSetCurVarCreate, n.nameIdx)
	} else {
		ip = emit2(code, ip, OpLoadImmedIdent, n.nameIdx)
		ip = emit1(code, ip, OpAdvanceStr)
		ip = n.Index.compile(c, code, ip, TypeReqString)
		ip = emit1(code, ip, OpRewindStr)
		ip = emit1(code, ip, OpSetCurVarArrayCreate)
	}
	ip = emit1(code, ip, loadVarOp(n.subType))
	ip = emit1(code, ip, n.operand)
	ip = emit1(code, ip, saveVarOp(n.subType))
	return emitConv(code, ip, n.subType, t)
}

// ---------------------------------------------------------------------------
// Operators
// ---------------------------------------------------------------------------

func (n *FloatBinaryExpr) preferredType() TypeReq { return TypeReqFloat }

func (n *FloatBinaryExpr) precompile(c *Compiler, t TypeReq) uint32 {
	size := n.Left.precompile(c, TypeReqFloat) + n.Right.precompile(c, TypeReqFloat) + 1
	return size + convSize(TypeReqFloat, t)
}

func (n *FloatBinaryExpr) compile(c *Compiler, code []uint32, ip uint32, t TypeReq) uint32 {
	ip = n.Right.compile(c, code, ip, TypeReqFloat)
	ip = n.Left.compile(c, code, ip, TypeReqFloat)
	_, op := arithOperand(n.Op)
	ip = emit1(code, ip, op)
	return emitConv(code, ip, TypeReqFloat, t)
}

func (n *IntBinaryExpr) preferredType() TypeReq { return TypeReqUInt }

func (n *IntBinaryExpr) precompile(c *Compiler, t TypeReq) uint32 {
	n.subType, n.operand = arithOperand(n.Op)
	size := n.Left.precompile(c, n.subType) + n.Right.precompile(c, n.subType) + 1
	return size + convSize(TypeReqUInt, t)
}

func (n *IntBinaryExpr) compile(c *Compiler, code []uint32, ip uint32, t TypeReq) uint32 {
	ip = n.Right.compile(c, code, ip, n.subType)
	ip = n.Left.compile(c, code, ip, n.subType)
	ip = emit1(code, ip, n.operand)
	return emitConv(code, ip, TypeReqUInt, t)
}

func (n *AndOrExpr) preferredType() TypeReq { return TypeReqUInt }

// Layout: left JMPIF(NOT)_NP end right. The short-circuit value stays on
// the int stack when the jump is taken.
func (n *AndOrExpr) precompile(c *Compiler, t TypeReq) uint32 {
	size := n.Left.precompile(c, TypeReqUInt) + 2
	n.rightSize = n.Right.precompile(c, TypeReqUInt)
	return size + n.rightSize + convSize(TypeReqUInt, t)
}

func (n *AndOrExpr) compile(c *Compiler, code []uint32, ip uint32, t TypeReq) uint32 {
	ip = n.Left.compile(c, code, ip, TypeReqUInt)
	op := OpJmpIfNotNP
	if n.Op == TokenOrOr {
		op = OpJmpIfNP
	}
	ip = emit2(code, ip, op, ip+2+n.rightSize)
	ip = n.Right.compile(c, code, ip, TypeReqUInt)
	return emitConv(code, ip, TypeReqUInt, t)
}

func (n *StrEqExpr) preferredType() TypeReq { return TypeReqUInt }

func (n *StrEqExpr) precompile(c *Compiler, t TypeReq) uint32 {
	size := n.Left.precompile(c, TypeReqString) + 1 + n.Right.precompile(c, TypeReqString) + 1
	if !n.Equal {
		size++
	}
	return size + convSize(TypeReqUInt, t)
}

func (n *StrEqExpr) compile(c *Compiler, code []uint32, ip uint32, t TypeReq) uint32 {
	ip = n.Left.compile(c, code, ip, TypeReqString)
	ip = emit1(code, ip, OpAdvanceStrNul)
	ip = n.Right.compile(c, code, ip, TypeReqString)
	ip = emit1(code, ip, OpCompareStr)
	if !n.Equal {
		ip = emit1(code, ip, OpNot)
	}
	return emitConv(code, ip, TypeReqUInt, t)
}

func (n *StrCatExpr) preferredType() TypeReq { return TypeReqString }

func (n *StrCatExpr) precompile(c *Compiler, t TypeReq) uint32 {
	size := n.Left.precompile(c, TypeReqString) + 1
	if n.AppendChar != 0 {
		size++
	}
	size += n.Right.precompile(c, TypeReqString) + 1
	return size + convSize(TypeReqString, t)
}

func (n *StrCatExpr) compile(c *Compiler, code []uint32, ip uint32, t TypeReq) uint32 {
	ip = n.Left.compile(c, code, ip, TypeReqString)
	if n.AppendChar == 0 {
		ip = emit1(code, ip, OpAdvanceStr)
	} else {
		ip = emit2(code, ip, OpAdvanceStrAppendChar, uint32(n.AppendChar))
	}
	ip = n.Right.compile(c, code, ip, TypeReqString)
	ip = emit1(code, ip, OpRewindStr)
	return emitConv(code, ip, TypeReqString, t)
}

func (n *CommaCatExpr) preferredType() TypeReq { return TypeReqString }

func (n *CommaCatExpr) precompile(c *Compiler, t TypeReq) uint32 {
	size := n.Left.precompile(c, TypeReqString) + 1 + n.Right.precompile(c, TypeReqString) + 1
	return size + convSize(TypeReqString, t)
}

func (n *CommaCatExpr) compile(c *Compiler, code []uint32, ip uint32, t TypeReq) uint32 {
	ip = n.Left.compile(c, code, ip, TypeReqString)
	ip = emit1(code, ip, OpAdvanceStrComma)
	ip = n.Right.compile(c, code, ip, TypeReqString)
	ip = emit1(code, ip, OpRewindStr)
	return emitConv(code, ip, TypeReqString, t)
}

func (n *UnaryExpr) preferredType() TypeReq {
	if n.Op == TokenMinus {
		return TypeReqFloat
	}
	return TypeReqUInt
}

func (n *UnaryExpr) precompile(c *Compiler, t TypeReq) uint32 {
	if n.Op == TokenMinus {
		return n.X.precompile(c, TypeReqFloat) + 1 + convSize(TypeReqFloat, t)
	}
	n.integer = true
	if n.Op == TokenBang {
		if p := n.X.preferredType(); p == TypeReqFloat || p == TypeReqString {
			n.integer = false
		}
	}
	operand := TypeReqUInt
	if !n.integer {
		operand = TypeReqFloat
	}
	return n.X.precompile(c, operand) + 1 + convSize(TypeReqUInt, t)
}

func (n *UnaryExpr) compile(c *Compiler, code []uint32, ip uint32, t TypeReq) uint32 {
	switch {
	case n.Op == TokenMinus:
		ip = n.X.compile(c, code, ip, TypeReqFloat)
		ip = emit1(code, ip, OpNeg)
		return emitConv(code, ip, TypeReqFloat, t)
	case n.Op == TokenTilde:
		ip = n.X.compile(c, code, ip, TypeReqUInt)
		ip = emit1(code, ip, OpOnesComplement)
	case n.integer:
		ip = n.X.compile(c, code, ip, TypeReqUInt)
		ip = emit1(code, ip, OpNot)
	default:
		ip = n.X.compile(c, code, ip, TypeReqFloat)
		ip = emit1(code, ip, OpNotF)
	}
	return emitConv(code, ip, TypeReqUInt, t)
}

func (n *ConditionalExpr) preferredType() TypeReq { return n.True.preferredType() }

// Layout: test JMPIFNOT false-branch true JMP end false.
func (n *ConditionalExpr) precompile(c *Compiler, t TypeReq) uint32 {
	tt, integer := testType(n.Test)
	n.integer = integer
	n.testSize = n.Test.precompile(c, tt)
	n.trueSize = n.True.precompile(c, t)
	n.falseSize = n.False.precompile(c, t)
	return n.testSize + n.trueSize + n.falseSize + 4
}

func (n *ConditionalExpr) compile(c *Compiler, code []uint32, ip uint32, t TypeReq) uint32 {
	start := ip
	tt := TypeReqFloat
	if n.integer {
		tt = TypeReqUInt
	}
	ip = n.Test.compile(c, code, ip, tt)
	ip = emit2(code, ip, jumpIfNot(n.integer), start+n.testSize+n.trueSize+4)
	ip = n.True.compile(c, code, ip, t)
	ip = emit2(code, ip, OpJmp, start+n.testSize+n.trueSize+n.falseSize+4)
	return n.False.compile(c, code, ip, t)
}

// ---------------------------------------------------------------------------
// Calls and objects
// ---------------------------------------------------------------------------

func (n *CallExpr) preferredType() TypeReq { return TypeReqString }

// Layout: PUSH_FRAME (arg PUSH)* CALLFUNC name ns callType.
func (n *CallExpr) precompile(c *Compiler, t TypeReq) uint32 {
	n.nameIdx = c.ident(n.Name)
	n.nsIdx = c.ident(n.Namespace)
	size := convSize(TypeReqString, t)
	for _, a := range n.Args {
		size += a.precompile(c, TypeReqString) + 1
	}
	return size + 5
}

func (n *CallExpr) compile(c *Compiler, code []uint32, ip uint32, t TypeReq) uint32 {
	ip = emit1(code, ip, OpPushFrame)
	for _, a := range n.Args {
		ip = a.compile(c, code, ip, TypeReqString)
		ip = emit1(code, ip, OpPush)
	}
	code[ip] = uint32(OpCallFunc)
	code[ip+1] = n.nameIdx
	code[ip+2] = n.nsIdx
	code[ip+3] = n.CallType
	ip += 4
	return emitConv(code, ip, TypeReqString, t)
}

func (n *SlotAccessExpr) preferredType() TypeReq { return TypeReqNone }

// Layout: [index ADVANCE_STR] object SETCUROBJECT SETCURFIELD f
// [TERMINATE_REWIND_STR SETCURFIELD_ARRAY] LOADFIELD.
func (n *SlotAccessExpr) precompile(c *Compiler, t TypeReq) uint32 {
	if t == TypeReqNone {
		return 0
	}
	n.fieldIdx = c.ident(n.Field)
	var size uint32
	if n.Index != nil {
		size += n.Index.precompile(c, TypeReqString) + 3
	}
	size += n.Object.precompile(c, TypeReqString) + 3
	return size + 1
}

func (n *SlotAccessExpr) compile(c *Compiler, code []uint32, ip uint32, t TypeReq) uint32 {
	if t == TypeReqNone {
		return ip
	}
	if n.Index != nil {
		ip = n.Index.compile(c, code, ip, TypeReqString)
		ip = emit1(code, ip, OpAdvanceStr)
	}
	ip = n.Object.compile(c, code, ip, TypeReqString)
	ip = emit1(code, ip, OpSetCurObject)
	ip = emit2(code, ip, OpSetCurField, n.fieldIdx)
	if n.Index != nil {
		ip = emit1(code, ip, OpTerminateRewindStr)
		ip = emit1(code, ip, OpSetCurFieldArray)
	}
	return emit1(code, ip, loadFieldOp(t))
}

func (n *SlotAssignExpr) preferredType() TypeReq { return TypeReqString }

// Layout: value ADVANCE_STR [index ADVANCE_STR] (object SETCUROBJECT |
// SETCUROBJECT_NEW) SETCURFIELD f [TERMINATE_REWIND_STR SETCURFIELD_ARRAY]
// TERMINATE_REWIND_STR SAVEFIELD_STR.
func (n *SlotAssignExpr) precompile(c *Compiler, t TypeReq) uint32 {
	n.fieldIdx = c.ident(n.Field)
	size := convSize(TypeReqString, t)
	size += n.Value.precompile(c, TypeReqString)
	if n.Object != nil {
		size += n.Object.precompile(c, TypeReqString) + 5
	} else {
		size += 5
	}
	if n.Index != nil {
		size += n.Index.precompile(c, TypeReqString) + 3
	}
	return size + 1
}

func (n *SlotAssignExpr) compile(c *Compiler, code []uint32, ip uint32, t TypeReq) uint32 {
	ip = n.Value.compile(c, code, ip, TypeReqString)
	ip = emit1(code, ip, OpAdvanceStr)
	if n.Index != nil {
		ip = n.Index.compile(c, code, ip, TypeReqString)
		ip = emit1(code, ip, OpAdvanceStr)
	}
	if n.Object != nil {
		ip = n.Object.compile(c, code, ip, TypeReqString)
		ip = emit1(code, ip, OpSetCurObject)
	} else {
		ip = emit1(code, ip, OpSetCurObjectNew)
	}
	ip = emit2(code, ip, OpSetCurField, n.fieldIdx)
	if n.Index != nil {
		ip = emit1(code, ip, OpTerminateRewindStr)
		ip = emit1(code, ip, OpSetCurFieldArray)
	}
	ip = emit1(code, ip, OpTerminateRewindStr)
	ip = emit1(code, ip, OpSaveFieldStr)
	return emitConv(code, ip, TypeReqString, t)
}

func (n *SlotAssignOpExpr) preferredType() TypeReq {
	t, _ := arithOperand(n.Op)
	return t
}

// Layout: value [index ADVANCE_STR] object SETCUROBJECT SETCURFIELD f
// [TERMINATE_REWIND_STR SETCURFIELD_ARRAY] LOADFIELD op SAVEFIELD.
func (n *SlotAssignOpExpr) precompile(c *Compiler, t TypeReq) uint32 {
	n.subType, n.operand = arithOperand(n.Op)
	n.fieldIdx = c.ident(n.Field)
	size := n.Value.precompile(c, n.subType)
	size += n.Object.precompile(c, TypeReqString) + 3 + 3
	if n.Index != nil {
		size += n.Index.precompile(c, TypeReqString) + 3
	}
	return size + convSize(n.subType, t)
}

func (n *SlotAssignOpExpr) compile(c *Compiler, code []uint32, ip uint32, t TypeReq) uint32 {
	ip = n.Value.compile(c, code, ip, n.subType)
	if n.Index != nil {
		ip = n.Index.compile(c, code, ip, TypeReqString)
		ip = emit1(code, ip, OpAdvanceStr)
	}
	ip = n.Object.compile(c, code, ip, TypeReqString)
	ip = emit1(code, ip, OpSetCurObject)
	ip = emit2(code, ip, OpSetCurField, n.fieldIdx)
	if n.Index != nil {
		ip = emit1(code, ip, OpTerminateRewindStr)
		ip = emit1(code, ip, OpSetCurFieldArray)
	}
	ip = emit1(code, ip, loadFieldOp(n.subType))
	ip = emit1(code, ip, n.operand)
	ip = emit1(code, ip, saveFieldOp(n.subType))
	return emitConv(code, ip, n.subType, t)
}

func (n *ObjectDecl) preferredType() TypeReq { return TypeReqUInt }

// Layout:
//
//	LOADIMMED_UINT 0
//	PUSH_FRAME class PUSH name PUSH (arg PUSH)*
//	CREATE_OBJECT parent isDatablock failJump
//	slot assignments
//	ADD_OBJECT root
//	child declarations
//	END_OBJECT root
//	FINISH_OBJECT
//
// failJump skips to just past the declaration's END_OBJECT.
func (n *ObjectDecl) precompile(c *Compiler, t TypeReq) uint32 {
	return 2 + n.precompileSubObject(c) + 1 + convSize(TypeReqUInt, t)
}

func (n *ObjectDecl) precompileSubObject(c *Compiler) uint32 {
	n.parentIdx = c.ident(n.Parent)
	size := uint32(1)
	size += n.ClassName.precompile(c, TypeReqString) + 1
	size += n.ObjectName.precompile(c, TypeReqString) + 1
	for _, a := range n.Args {
		size += a.precompile(c, TypeReqString) + 1
	}
	size += 4
	for _, s := range n.Slots {
		size += s.precompile(c, TypeReqNone)
	}
	size += 2
	for _, ch := range n.Children {
		size += ch.precompileSubObject(c)
	}
	size += 2
	n.failOffset = size
	return size
}

func (n *ObjectDecl) compile(c *Compiler, code []uint32, ip uint32, t TypeReq) uint32 {
	ip = emit2(code, ip, OpLoadImmedUInt, 0)
	ip = n.compileSubObject(c, code, ip, true)
	ip = emit1(code, ip, OpFinishObject)
	return emitConv(code, ip, TypeReqUInt, t)
}

func (n *ObjectDecl) compileSubObject(c *Compiler, code []uint32, ip uint32, root bool) uint32 {
	start := ip
	var rootFlag, dbFlag uint32
	if root {
		rootFlag = 1
	}
	if n.IsDatablock {
		dbFlag = 1
	}
	ip = emit1(code, ip, OpPushFrame)
	ip = n.ClassName.compile(c, code, ip, TypeReqString)
	ip = emit1(code, ip, OpPush)
	ip = n.ObjectName.compile(c, code, ip, TypeReqString)
	ip = emit1(code, ip, OpPush)
	for _, a := range n.Args {
		ip = a.compile(c, code, ip, TypeReqString)
		ip = emit1(code, ip, OpPush)
	}
	code[ip] = uint32(OpCreateObject)
	code[ip+1] = n.parentIdx
	code[ip+2] = dbFlag
	code[ip+3] = start + n.failOffset
	ip += 4
	for _, s := range n.Slots {
		ip = s.compile(c, code, ip, TypeReqNone)
	}
	ip = emit2(code, ip, OpAddObject, rootFlag)
	for _, ch := range n.Children {
		ip = ch.compileSubObject(c, code, ip, false)
	}
	return emit2(code, ip, OpEndObject, rootFlag)
}
