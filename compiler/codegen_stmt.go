package compiler

// ---------------------------------------------------------------------------
// Statement sizing and emission
// ---------------------------------------------------------------------------

func (n *ExprStmt) precompileStmt(c *Compiler, loopCount int) uint32 {
	c.addBreakCount()
	return n.X.precompile(c, TypeReqNone)
}

func (n *ExprStmt) compileStmt(c *Compiler, code []uint32, ip uint32, loop loopTargets) uint32 {
	c.addBreakLine(n, ip)
	return n.X.compile(c, code, ip, TypeReqNone)
}

// testType picks the stack a condition is evaluated on.
func testType(e Expr) (TypeReq, bool) {
	if e.preferredType() == TypeReqUInt {
		return TypeReqUInt, true
	}
	return TypeReqFloat, false
}

func jumpIfNot(integer bool) Opcode {
	if integer {
		return OpJmpIfNot
	}
	return OpJmpIfFNot
}

func jumpIf(integer bool) Opcode {
	if integer {
		return OpJmpIf
	}
	return OpJmpIfF
}

// Layout:
//
//	test
//	JMPIFNOT  start+elseOffset (or start+endifOffset)
//	then-block
//	JMP       start+endifOffset   (only with else)
//	else-block
func (n *IfStmt) precompileStmt(c *Compiler, loopCount int) uint32 {
	c.addBreakCount()
	t, integer := testType(n.Test)
	n.integer = integer
	exprSize := n.Test.precompile(c, t)
	ifSize := precompileBlock(c, n.Then, loopCount)

	if n.Else == nil {
		n.endifOffset = exprSize + 2 + ifSize
		return n.endifOffset
	}
	elseSize := precompileBlock(c, n.Else, loopCount)
	n.elseOffset = exprSize + 2 + ifSize + 2
	n.endifOffset = n.elseOffset + elseSize
	return n.endifOffset
}

func (n *IfStmt) compileStmt(c *Compiler, code []uint32, ip uint32, loop loopTargets) uint32 {
	start := ip
	c.addBreakLine(n, ip)
	t := TypeReqFloat
	if n.integer {
		t = TypeReqUInt
	}
	ip = n.Test.compile(c, code, ip, t)
	code[ip] = uint32(jumpIfNot(n.integer))
	ip++

	if n.Else == nil {
		code[ip] = start + n.endifOffset
		ip++
		return compileBlock(c, n.Then, code, ip, loop)
	}

	code[ip] = start + n.elseOffset
	ip++
	ip = compileBlock(c, n.Then, code, ip, loop)
	code[ip] = uint32(OpJmp)
	code[ip+1] = start + n.endifOffset
	ip += 2
	return compileBlock(c, n.Else, code, ip, loop)
}

// Layout for while/for:
//
//	init
//	test; JMPIFNOT break
//	loopStart: body
//	continue:  end
//	test; JMPIF loopStart
//	break:
//
// A do-while omits the leading test.
func (n *LoopStmt) precompileStmt(c *Compiler, loopCount int) uint32 {
	c.addBreakCount()
	var initSize uint32
	if n.Init != nil {
		initSize = n.Init.precompile(c, TypeReqNone)
	}
	t, integer := testType(n.Test)
	n.integer = integer
	testSize := n.Test.precompile(c, t)
	blockSize := precompileBlock(c, n.Body, loopCount+1)
	var endSize uint32
	if n.End != nil {
		endSize = n.End.precompile(c, TypeReqNone)
	}

	if n.IsDo {
		n.loopBlockStartOffset = initSize
	} else {
		n.loopBlockStartOffset = initSize + testSize + 2
	}
	n.continueOffset = n.loopBlockStartOffset + blockSize
	n.breakOffset = n.continueOffset + endSize + testSize + 2
	return n.breakOffset
}

func (n *LoopStmt) compileStmt(c *Compiler, code []uint32, ip uint32, _ loopTargets) uint32 {
	c.addBreakLine(n, ip)
	start := ip
	t := TypeReqFloat
	if n.integer {
		t = TypeReqUInt
	}
	if n.Init != nil {
		ip = n.Init.compile(c, code, ip, TypeReqNone)
	}
	if !n.IsDo {
		ip = n.Test.compile(c, code, ip, t)
		code[ip] = uint32(jumpIfNot(n.integer))
		code[ip+1] = start + n.breakOffset
		ip += 2
	}
	ip = compileBlock(c, n.Body, code, ip, loopTargets{
		continueIP: start + n.continueOffset,
		breakIP:    start + n.breakOffset,
	})
	if n.End != nil {
		ip = n.End.compile(c, code, ip, TypeReqNone)
	}
	ip = n.Test.compile(c, code, ip, t)
	code[ip] = uint32(jumpIf(n.integer))
	code[ip+1] = start + n.loopBlockStartOffset
	return ip + 2
}

func (n *BreakStmt) precompileStmt(c *Compiler, loopCount int) uint32 {
	if loopCount == 0 {
		c.warnf(n.pos, "break outside of loop... ignoring.")
		n.emitted = false
		return 0
	}
	c.addBreakCount()
	n.emitted = true
	return 2
}

func (n *BreakStmt) compileStmt(c *Compiler, code []uint32, ip uint32, loop loopTargets) uint32 {
	if !n.emitted {
		return ip
	}
	c.addBreakLine(n, ip)
	code[ip] = uint32(OpJmp)
	code[ip+1] = loop.breakIP
	return ip + 2
}

func (n *ContinueStmt) precompileStmt(c *Compiler, loopCount int) uint32 {
	if loopCount == 0 {
		c.warnf(n.pos, "continue outside of loop... ignoring.")
		n.emitted = false
		return 0
	}
	c.addBreakCount()
	n.emitted = true
	return 2
}

func (n *ContinueStmt) compileStmt(c *Compiler, code []uint32, ip uint32, loop loopTargets) uint32 {
	if !n.emitted {
		return ip
	}
	c.addBreakLine(n, ip)
	code[ip] = uint32(OpJmp)
	code[ip+1] = loop.continueIP
	return ip + 2
}

func (n *ReturnStmt) precompileStmt(c *Compiler, loopCount int) uint32 {
	c.addBreakCount()
	if n.Value == nil {
		return 1
	}
	return n.Value.precompile(c, TypeReqString) + 1
}

func (n *ReturnStmt) compileStmt(c *Compiler, code []uint32, ip uint32, loop loopTargets) uint32 {
	c.addBreakLine(n, ip)
	if n.Value == nil {
		code[ip] = uint32(OpReturnVoid)
		return ip + 1
	}
	ip = n.Value.compile(c, code, ip, TypeReqString)
	code[ip] = uint32(OpReturn)
	return ip + 1
}

// Header layout:
//
//	FUNC_DECL name ns pkg (hasBody | line<<1) end argc argNames...
//	body
//	RETURN_VOID
func (n *FunctionDecl) precompileStmt(c *Compiler, loopCount int) uint32 {
	n.nameIdx = c.ident(n.Name)
	n.nsIdx = c.ident(n.Namespace)
	n.pkgIdx = c.ident(n.Package)
	n.argIdx = make([]uint32, len(n.Args))
	for i, a := range n.Args {
		n.argIdx[i] = c.ident(a)
	}
	c.addBreakCount()
	// Loops do not reach into a function body.
	bodySize := precompileBlock(c, n.Body, 0)
	n.endOffset = uint32(len(n.Args)) + bodySize + 8
	return n.endOffset
}

func (n *FunctionDecl) compileStmt(c *Compiler, code []uint32, ip uint32, _ loopTargets) uint32 {
	start := ip
	c.addBreakLine(n, ip)
	var hasBody uint32
	if len(n.Body) > 0 {
		hasBody = 1
	}
	code[ip] = uint32(OpFuncDecl)
	code[ip+1] = n.nameIdx
	code[ip+2] = n.nsIdx
	code[ip+3] = n.pkgIdx
	code[ip+4] = hasBody | uint32(n.pos.Line)<<1
	code[ip+5] = start + n.endOffset
	code[ip+6] = uint32(len(n.Args))
	ip += 7
	for _, idx := range n.argIdx {
		code[ip] = idx
		ip++
	}
	ip = compileBlock(c, n.Body, code, ip, loopTargets{})
	code[ip] = uint32(OpReturnVoid)
	return ip + 1
}
