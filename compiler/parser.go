package compiler

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ---------------------------------------------------------------------------
// Parser: Recursive descent parser for console script
// ---------------------------------------------------------------------------

// Parser parses console script source code into an AST.
type Parser struct {
	lexer     *Lexer
	curToken  Token
	peekToken Token
	errors    []string
}

// NewParser creates a new parser for the given input.
func NewParser(input string) *Parser {
	p := &Parser{lexer: NewLexer(input)}
	// Read two tokens to fill curToken and peekToken
	p.nextToken()
	p.nextToken()
	return p
}

// nextToken advances to the next token.
func (p *Parser) nextToken() {
	p.curToken = p.peekToken
	p.peekToken = p.lexer.NextToken()
	if p.peekToken.Type == TokenError {
		msg := fmt.Sprintf("line %d: %s", p.peekToken.Pos.Line, p.peekToken.Literal)
		p.errors = append(p.errors, msg)
		p.peekToken = p.lexer.NextToken()
	}
}

func (p *Parser) curTokenIs(t TokenType) bool {
	return p.curToken.Type == t
}

func (p *Parser) peekTokenIs(t TokenType) bool {
	return p.peekToken.Type == t
}

// expect advances if the current token matches, otherwise records an error.
func (p *Parser) expect(t TokenType) bool {
	if p.curTokenIs(t) {
		p.nextToken()
		return true
	}
	p.errorf("expected %s, got %s", t, p.describe(p.curToken))
	return false
}

func (p *Parser) describe(tok Token) string {
	if tok.Literal != "" {
		return strconv.Quote(tok.Literal)
	}
	return tok.Type.String()
}

// errorf records a parse error.
func (p *Parser) errorf(format string, args ...interface{}) {
	msg := fmt.Sprintf("line %d: %s", p.curToken.Pos.Line, fmt.Sprintf(format, args...))
	p.errors = append(p.errors, msg)
}

// Errors returns accumulated parse errors.
func (p *Parser) Errors() []string {
	return p.errors
}

// synchronize skips to the end of the current statement after an error.
func (p *Parser) synchronize() {
	for !p.curTokenIs(TokenEOF) {
		if p.curTokenIs(TokenSemicolon) {
			p.nextToken()
			return
		}
		if p.curTokenIs(TokenRBrace) {
			return
		}
		p.nextToken()
	}
}

// ---------------------------------------------------------------------------
// Top-level parsing
// ---------------------------------------------------------------------------

// ParseProgram parses a whole source file.
func (p *Parser) ParseProgram() *Program {
	prog := &Program{}
	for !p.curTokenIs(TokenEOF) {
		before := len(p.errors)
		switch p.curToken.Type {
		case TokenPackage:
			prog.Statements = append(prog.Statements, p.parsePackage()...)
		case TokenRBrace:
			p.errorf("unexpected }")
			p.nextToken()
		default:
			if s := p.parseStatement(); s != nil {
				prog.Statements = append(prog.Statements, s)
			}
		}
		if len(p.errors) > before {
			p.synchronize()
		}
	}
	return prog
}

// parsePackage parses package Name { function ... };. Only function
// declarations may appear inside a package.
func (p *Parser) parsePackage() []Stmt {
	p.nextToken() // 'package'
	if !p.curTokenIs(TokenIdent) {
		p.errorf("expected package name, got %s", p.describe(p.curToken))
		return nil
	}
	name := p.curToken.Literal
	p.nextToken()
	if !p.expect(TokenLBrace) {
		return nil
	}
	var stmts []Stmt
	for !p.curTokenIs(TokenRBrace) && !p.curTokenIs(TokenEOF) {
		if !p.curTokenIs(TokenFunction) {
			p.errorf("only functions may be declared in package %s", name)
			return stmts
		}
		fn := p.parseFunction()
		if fn == nil {
			return stmts
		}
		fn.Package = name
		stmts = append(stmts, fn)
	}
	p.expect(TokenRBrace)
	if p.curTokenIs(TokenSemicolon) {
		p.nextToken()
	}
	return stmts
}

func (p *Parser) parseFunction() *FunctionDecl {
	fn := &FunctionDecl{nodeBase: nodeBase{pos: p.curToken.Pos}}
	p.nextToken() // 'function'
	if !p.curTokenIs(TokenIdent) {
		p.errorf("expected function name, got %s", p.describe(p.curToken))
		return nil
	}
	fn.Name = p.curToken.Literal
	p.nextToken()
	if p.curTokenIs(TokenColonColon) {
		p.nextToken()
		if !p.curTokenIs(TokenIdent) {
			p.errorf("expected function name after ::, got %s", p.describe(p.curToken))
			return nil
		}
		fn.Namespace = fn.Name
		fn.Name = p.curToken.Literal
		p.nextToken()
	}
	if !p.expect(TokenLParen) {
		return nil
	}
	for !p.curTokenIs(TokenRParen) {
		if !p.curTokenIs(TokenLocalVar) {
			p.errorf("expected parameter, got %s", p.describe(p.curToken))
			return nil
		}
		fn.Args = append(fn.Args, p.curToken.Literal)
		p.nextToken()
		if p.curTokenIs(TokenComma) {
			p.nextToken()
		} else if !p.curTokenIs(TokenRParen) {
			p.errorf("expected , or ) in parameter list, got %s", p.describe(p.curToken))
			return nil
		}
	}
	p.nextToken() // ')'
	if !p.curTokenIs(TokenLBrace) {
		p.errorf("expected { after function header, got %s", p.describe(p.curToken))
		return nil
	}
	fn.Body = p.parseBlock()
	return fn
}

// parseBlock parses { stmt* }.
func (p *Parser) parseBlock() []Stmt {
	p.nextToken() // '{'
	stmts := []Stmt{}
	for !p.curTokenIs(TokenRBrace) && !p.curTokenIs(TokenEOF) {
		before := len(p.errors)
		if s := p.parseStatement(); s != nil {
			stmts = append(stmts, s)
		}
		if len(p.errors) > before {
			p.synchronize()
		}
	}
	p.expect(TokenRBrace)
	return stmts
}

// parseBody parses either a braced block or a single statement.
func (p *Parser) parseBody() []Stmt {
	if p.curTokenIs(TokenLBrace) {
		return p.parseBlock()
	}
	if s := p.parseStatement(); s != nil {
		return []Stmt{s}
	}
	return []Stmt{}
}

// ---------------------------------------------------------------------------
// Statements
// ---------------------------------------------------------------------------

func (p *Parser) parseStatement() Stmt {
	pos := p.curToken.Pos
	switch p.curToken.Type {
	case TokenFunction:
		if fn := p.parseFunction(); fn != nil {
			return fn
		}
		return nil
	case TokenIf:
		return p.parseIf()
	case TokenWhile:
		return p.parseWhile()
	case TokenFor:
		return p.parseFor()
	case TokenDo:
		return p.parseDo()
	case TokenSwitch, TokenSwitchStr:
		return p.parseSwitch()
	case TokenBreak:
		p.nextToken()
		p.expect(TokenSemicolon)
		return &BreakStmt{nodeBase: nodeBase{pos: pos}}
	case TokenContinue:
		p.nextToken()
		p.expect(TokenSemicolon)
		return &ContinueStmt{nodeBase: nodeBase{pos: pos}}
	case TokenReturn:
		p.nextToken()
		ret := &ReturnStmt{nodeBase: nodeBase{pos: pos}}
		if !p.curTokenIs(TokenSemicolon) {
			ret.Value = p.parseExpression()
		}
		p.expect(TokenSemicolon)
		return ret
	case TokenPackage:
		p.errorf("package blocks must appear at file scope")
		return nil
	case TokenSemicolon:
		p.nextToken()
		return nil
	}

	x := p.parseExpression()
	if x == nil {
		return nil
	}
	p.expect(TokenSemicolon)
	return &ExprStmt{nodeBase: nodeBase{pos: pos}, X: x}
}

func (p *Parser) parseCondition() Expr {
	if !p.expect(TokenLParen) {
		return nil
	}
	x := p.parseExpression()
	p.expect(TokenRParen)
	return x
}

func (p *Parser) parseIf() Stmt {
	s := &IfStmt{nodeBase: nodeBase{pos: p.curToken.Pos}}
	p.nextToken()
	s.Test = p.parseCondition()
	if s.Test == nil {
		return nil
	}
	s.Then = p.parseBody()
	if p.curTokenIs(TokenElse) {
		p.nextToken()
		s.Else = p.parseBody()
	}
	return s
}

func (p *Parser) parseWhile() Stmt {
	s := &LoopStmt{nodeBase: nodeBase{pos: p.curToken.Pos}}
	p.nextToken()
	s.Test = p.parseCondition()
	if s.Test == nil {
		return nil
	}
	s.Body = p.parseBody()
	return s
}

func (p *Parser) parseFor() Stmt {
	s := &LoopStmt{nodeBase: nodeBase{pos: p.curToken.Pos}}
	p.nextToken()
	if !p.expect(TokenLParen) {
		return nil
	}
	if !p.curTokenIs(TokenSemicolon) {
		s.Init = p.parseExpression()
	}
	p.expect(TokenSemicolon)
	if p.curTokenIs(TokenSemicolon) {
		s.Test = &IntLit{nodeBase: nodeBase{pos: p.curToken.Pos}, Value: 1}
	} else {
		s.Test = p.parseExpression()
	}
	p.expect(TokenSemicolon)
	if !p.curTokenIs(TokenRParen) {
		s.End = p.parseExpression()
	}
	if !p.expect(TokenRParen) || s.Test == nil {
		return nil
	}
	s.Body = p.parseBody()
	return s
}

func (p *Parser) parseDo() Stmt {
	s := &LoopStmt{nodeBase: nodeBase{pos: p.curToken.Pos}, IsDo: true}
	p.nextToken()
	s.Body = p.parseBody()
	if !p.expect(TokenWhile) {
		return nil
	}
	s.Test = p.parseCondition()
	if s.Test == nil {
		return nil
	}
	p.expect(TokenSemicolon)
	return s
}

type switchCase struct {
	pos    Position
	values []Expr
	body   []Stmt
}

// parseSwitch lowers switch and switch$ into an if/else chain. Each case
// compares against the switch operand again; "or" joins alternatives.
func (p *Parser) parseSwitch() Stmt {
	pos := p.curToken.Pos
	stringCmp := p.curTokenIs(TokenSwitchStr)
	p.nextToken()
	subject := p.parseCondition()
	if subject == nil || !p.expect(TokenLBrace) {
		return nil
	}

	var cases []switchCase
	var def []Stmt
	hasDefault := false
	for !p.curTokenIs(TokenRBrace) && !p.curTokenIs(TokenEOF) {
		switch p.curToken.Type {
		case TokenCase:
			sc := switchCase{pos: p.curToken.Pos}
			p.nextToken()
			for {
				v := p.parseTernary()
				if v == nil {
					return nil
				}
				sc.values = append(sc.values, v)
				if !p.curTokenIs(TokenOr) {
					break
				}
				p.nextToken()
			}
			if !p.expect(TokenColon) {
				return nil
			}
			sc.body = p.parseCaseBody()
			cases = append(cases, sc)
		case TokenDefault:
			p.nextToken()
			if !p.expect(TokenColon) {
				return nil
			}
			def = p.parseCaseBody()
			hasDefault = true
		default:
			p.errorf("expected case or default in switch, got %s", p.describe(p.curToken))
			return nil
		}
	}
	p.expect(TokenRBrace)

	if len(cases) == 0 {
		if hasDefault {
			// Nothing to test: run the default unconditionally.
			return &IfStmt{nodeBase: nodeBase{pos: pos}, Test: &IntLit{nodeBase: nodeBase{pos: pos}, Value: 1}, Then: def}
		}
		return nil
	}

	var tail []Stmt
	if hasDefault {
		tail = def
	}
	for i := len(cases) - 1; i >= 0; i-- {
		sc := cases[i]
		var test Expr
		for _, v := range sc.values {
			var cmp Expr
			if stringCmp {
				cmp = &StrEqExpr{nodeBase: nodeBase{pos: sc.pos}, Equal: true, Left: subject, Right: v}
			} else {
				cmp = &IntBinaryExpr{nodeBase: nodeBase{pos: sc.pos}, Op: TokenEQ, Left: subject, Right: v}
			}
			if test == nil {
				test = cmp
			} else {
				test = &AndOrExpr{nodeBase: nodeBase{pos: sc.pos}, Op: TokenOrOr, Left: test, Right: cmp}
			}
		}
		node := &IfStmt{nodeBase: nodeBase{pos: sc.pos}, Test: test, Then: sc.body, Else: tail}
		tail = []Stmt{node}
	}
	return tail[0]
}

func (p *Parser) parseCaseBody() []Stmt {
	stmts := []Stmt{}
	for !p.curTokenIs(TokenCase) && !p.curTokenIs(TokenDefault) &&
		!p.curTokenIs(TokenRBrace) && !p.curTokenIs(TokenEOF) {
		before := len(p.errors)
		if s := p.parseStatement(); s != nil {
			stmts = append(stmts, s)
		}
		if len(p.errors) > before {
			return stmts
		}
	}
	return stmts
}

// ---------------------------------------------------------------------------
// Expressions
// ---------------------------------------------------------------------------

// ParseExpression parses a single expression.
func (p *Parser) ParseExpression() Expr {
	return p.parseExpression()
}

var compoundOps = map[TokenType]TokenType{
	TokenPlusEq:    TokenPlus,
	TokenMinusEq:   TokenMinus,
	TokenStarEq:    TokenStar,
	TokenSlashEq:   TokenSlash,
	TokenPercentEq: TokenPercent,
	TokenAmpEq:     TokenAmp,
	TokenBarEq:     TokenBar,
	TokenCaretEq:   TokenCaret,
	TokenShlEq:     TokenShl,
	TokenShrEq:     TokenShr,
}

// parseExpression handles assignment, which is right associative and binds
// loosest.
func (p *Parser) parseExpression() Expr {
	left := p.parseTernary()
	if left == nil {
		return nil
	}
	pos := p.curToken.Pos
	if p.curTokenIs(TokenAssign) {
		p.nextToken()
		value := p.parseExpression()
		if value == nil {
			return nil
		}
		return p.makeAssign(left, value, pos)
	}
	if op, ok := compoundOps[p.curToken.Type]; ok {
		p.nextToken()
		value := p.parseExpression()
		if value == nil {
			return nil
		}
		return p.makeAssignOp(left, op, value, pos)
	}
	return left
}

func (p *Parser) makeAssign(target, value Expr, pos Position) Expr {
	switch t := target.(type) {
	case *VarExpr:
		return &AssignExpr{nodeBase: nodeBase{pos: pos}, Name: t.Name, Index: t.Index, Value: value}
	case *SlotAccessExpr:
		return &SlotAssignExpr{nodeBase: nodeBase{pos: pos}, Object: t.Object, Field: t.Field, Index: t.Index, Value: value}
	}
	p.errorf("invalid assignment target")
	return nil
}

func (p *Parser) makeAssignOp(target Expr, op TokenType, value Expr, pos Position) Expr {
	switch t := target.(type) {
	case *VarExpr:
		return &AssignOpExpr{nodeBase: nodeBase{pos: pos}, Name: t.Name, Index: t.Index, Op: op, Value: value}
	case *SlotAccessExpr:
		return &SlotAssignOpExpr{nodeBase: nodeBase{pos: pos}, Object: t.Object, Field: t.Field, Index: t.Index, Op: op, Value: value}
	}
	p.errorf("invalid assignment target")
	return nil
}

func (p *Parser) parseTernary() Expr {
	test := p.parseBinary(0)
	if test == nil || !p.curTokenIs(TokenQuestion) {
		return test
	}
	pos := p.curToken.Pos
	p.nextToken()
	t := p.parseExpression()
	if t == nil || !p.expect(TokenColon) {
		return nil
	}
	f := p.parseTernary()
	if f == nil {
		return nil
	}
	return &ConditionalExpr{nodeBase: nodeBase{pos: pos}, Test: test, True: t, False: f}
}

// binaryPrecedence lists the binary operators from loosest to tightest.
var binaryPrecedence = map[TokenType]int{
	TokenOrOr:    1,
	TokenAndAnd:  2,
	TokenBar:     3,
	TokenCaret:   4,
	TokenAmp:     5,
	TokenEQ:      6,
	TokenNE:      6,
	TokenStrEQ:   6,
	TokenStrNE:   6,
	TokenLT:      7,
	TokenGT:      7,
	TokenLE:      7,
	TokenGE:      7,
	TokenAt:      8,
	TokenSPC:     8,
	TokenTAB:     8,
	TokenNL:      8,
	TokenShl:     9,
	TokenShr:     9,
	TokenPlus:    10,
	TokenMinus:   10,
	TokenStar:    11,
	TokenSlash:   11,
	TokenPercent: 11,
}

// parseBinary is precedence climbing over left-associative operators.
func (p *Parser) parseBinary(minPrec int) Expr {
	left := p.parseUnary()
	for left != nil {
		op := p.curToken.Type
		prec, ok := binaryPrecedence[op]
		if !ok || prec <= minPrec {
			return left
		}
		pos := p.curToken.Pos
		p.nextToken()
		right := p.parseBinary(prec)
		if right == nil {
			return nil
		}
		left = makeBinary(op, left, right, pos)
	}
	return left
}

func makeBinary(op TokenType, left, right Expr, pos Position) Expr {
	base := nodeBase{pos: pos}
	switch op {
	case TokenPlus, TokenMinus, TokenStar, TokenSlash:
		return &FloatBinaryExpr{nodeBase: base, Op: op, Left: left, Right: right}
	case TokenAndAnd, TokenOrOr:
		return &AndOrExpr{nodeBase: base, Op: op, Left: left, Right: right}
	case TokenStrEQ:
		return &StrEqExpr{nodeBase: base, Equal: true, Left: left, Right: right}
	case TokenStrNE:
		return &StrEqExpr{nodeBase: base, Equal: false, Left: left, Right: right}
	case TokenAt:
		return &StrCatExpr{nodeBase: base, Left: left, Right: right}
	case TokenSPC:
		return &StrCatExpr{nodeBase: base, Left: left, Right: right, AppendChar: ' '}
	case TokenTAB:
		return &StrCatExpr{nodeBase: base, Left: left, Right: right, AppendChar: '\t'}
	case TokenNL:
		return &StrCatExpr{nodeBase: base, Left: left, Right: right, AppendChar: '\n'}
	}
	return &IntBinaryExpr{nodeBase: base, Op: op, Left: left, Right: right}
}

func (p *Parser) parseUnary() Expr {
	switch p.curToken.Type {
	case TokenMinus, TokenBang, TokenTilde:
		pos := p.curToken.Pos
		op := p.curToken.Type
		p.nextToken()
		x := p.parseUnary()
		if x == nil {
			return nil
		}
		if op == TokenMinus {
			switch lit := x.(type) {
			case *IntLit:
				lit.Value = -lit.Value
				lit.pos = pos
				return lit
			case *FloatLit:
				lit.Value = -lit.Value
				lit.pos = pos
				return lit
			}
		}
		return &UnaryExpr{nodeBase: nodeBase{pos: pos}, Op: op, X: x}
	}
	return p.parsePostfix()
}

// parsePostfix handles field access, method calls, indexing and ++/--.
func (p *Parser) parsePostfix() Expr {
	x := p.parsePrimary()
	for x != nil {
		pos := p.curToken.Pos
		switch p.curToken.Type {
		case TokenDot:
			p.nextToken()
			name, ok := p.fieldName()
			if !ok {
				p.errorf("expected field or method name after ., got %s", p.describe(p.curToken))
				return nil
			}
			p.nextToken()
			if p.curTokenIs(TokenLParen) {
				args := p.parseArgs()
				if args == nil {
					return nil
				}
				x = &CallExpr{nodeBase: nodeBase{pos: pos}, Name: name, CallType: MethodCall, Args: append([]Expr{x}, args...)}
			} else {
				x = &SlotAccessExpr{nodeBase: nodeBase{pos: pos}, Object: x, Field: name}
			}
		case TokenLBracket:
			idx := p.parseIndex()
			if idx == nil {
				return nil
			}
			switch t := x.(type) {
			case *VarExpr:
				if t.Index != nil {
					p.errorf("variable %s is already indexed", t.Name)
					return nil
				}
				t.Index = idx
			case *SlotAccessExpr:
				if t.Index != nil {
					p.errorf("field %s is already indexed", t.Field)
					return nil
				}
				t.Index = idx
			default:
				p.errorf("only variables and fields can be indexed")
				return nil
			}
		case TokenPlusPlus, TokenMinusMinus:
			op := TokenPlus
			if p.curTokenIs(TokenMinusMinus) {
				op = TokenMinus
			}
			p.nextToken()
			x = p.makeAssignOp(x, op, &IntLit{nodeBase: nodeBase{pos: pos}, Value: 1}, pos)
		default:
			return x
		}
	}
	return x
}

// fieldName accepts identifiers and keywords as field names.
func (p *Parser) fieldName() (string, bool) {
	t := p.curToken.Type
	if t == TokenIdent || (t >= TokenIf && t <= TokenNL) {
		return p.curToken.Literal, true
	}
	return "", false
}

// parseIndex parses [a, b, ...] into a '_'-joined key expression.
func (p *Parser) parseIndex() Expr {
	p.nextToken() // '['
	idx := p.parseExpression()
	if idx == nil {
		return nil
	}
	for p.curTokenIs(TokenComma) {
		pos := p.curToken.Pos
		p.nextToken()
		next := p.parseExpression()
		if next == nil {
			return nil
		}
		idx = &CommaCatExpr{nodeBase: nodeBase{pos: pos}, Left: idx, Right: next}
	}
	if !p.expect(TokenRBracket) {
		return nil
	}
	return idx
}

// parseArgs parses ( expr, ... ). It returns a non-nil slice on success.
func (p *Parser) parseArgs() []Expr {
	p.nextToken() // '('
	args := []Expr{}
	for !p.curTokenIs(TokenRParen) {
		a := p.parseExpression()
		if a == nil {
			return nil
		}
		args = append(args, a)
		if p.curTokenIs(TokenComma) {
			p.nextToken()
		} else if !p.curTokenIs(TokenRParen) {
			p.errorf("expected , or ) in argument list, got %s", p.describe(p.curToken))
			return nil
		}
	}
	p.nextToken() // ')'
	return args
}

func (p *Parser) parsePrimary() Expr {
	tok := p.curToken
	base := nodeBase{pos: tok.Pos}
	switch tok.Type {
	case TokenInteger:
		p.nextToken()
		return parseIntLiteral(tok)
	case TokenFloat:
		p.nextToken()
		f, err := strconv.ParseFloat(tok.Literal, 64)
		if err != nil {
			p.errorf("invalid number %q", tok.Literal)
			return nil
		}
		return &FloatLit{nodeBase: base, Value: f}
	case TokenString:
		p.nextToken()
		return &StrLit{nodeBase: base, Value: tok.Literal}
	case TokenTagString:
		p.nextToken()
		return &StrLit{nodeBase: base, Value: tok.Literal, Tag: true}
	case TokenTrue:
		p.nextToken()
		return &IntLit{nodeBase: base, Value: 1}
	case TokenFalse:
		p.nextToken()
		return &IntLit{nodeBase: base, Value: 0}
	case TokenLocalVar, TokenGlobalVar:
		p.nextToken()
		return &VarExpr{nodeBase: base, Name: tok.Literal}
	case TokenIdent:
		return p.parseIdentExpr()
	case TokenLParen:
		p.nextToken()
		x := p.parseExpression()
		if x == nil || !p.expect(TokenRParen) {
			return nil
		}
		return x
	case TokenNew:
		p.nextToken()
		return p.parseObjectDecl(tok.Pos, false)
	case TokenDatablock:
		p.nextToken()
		return p.parseObjectDecl(tok.Pos, true)
	}
	p.errorf("unexpected %s", p.describe(tok))
	return nil
}

func parseIntLiteral(tok Token) Expr {
	base := nodeBase{pos: tok.Pos}
	lit := tok.Literal
	// Immediate integers are 32 bits wide. Hex keeps its bit pattern up to
	// 0xffffffff; anything wider goes through the float pool.
	if strings.HasPrefix(lit, "0x") || strings.HasPrefix(lit, "0X") {
		u, err := strconv.ParseUint(lit[2:], 16, 64)
		if err == nil && u <= math.MaxUint32 {
			return &IntLit{nodeBase: base, Value: int64(int32(uint32(u)))}
		}
		return &FloatLit{nodeBase: base, Value: float64(u)}
	}
	v, err := strconv.ParseInt(lit, 10, 64)
	if err != nil || v > math.MaxInt32 || v < math.MinInt32 {
		f, _ := strconv.ParseFloat(lit, 64)
		return &FloatLit{nodeBase: base, Value: f}
	}
	return &IntLit{nodeBase: base, Value: v}
}

// parseIdentExpr handles calls (f(), Ns::f(), Parent::f()) and bare words.
func (p *Parser) parseIdentExpr() Expr {
	tok := p.curToken
	base := nodeBase{pos: tok.Pos}
	p.nextToken()

	if p.curTokenIs(TokenColonColon) {
		p.nextToken()
		if !p.curTokenIs(TokenIdent) {
			p.errorf("expected function name after ::, got %s", p.describe(p.curToken))
			return nil
		}
		name := p.curToken.Literal
		p.nextToken()
		if !p.curTokenIs(TokenLParen) {
			p.errorf("expected ( after %s::%s", tok.Literal, name)
			return nil
		}
		args := p.parseArgs()
		if args == nil {
			return nil
		}
		callType := FunctionCall
		if strings.EqualFold(tok.Literal, "Parent") {
			callType = ParentCall
		}
		return &CallExpr{nodeBase: base, Name: name, Namespace: tok.Literal, CallType: callType, Args: args}
	}

	if p.curTokenIs(TokenLParen) {
		args := p.parseArgs()
		if args == nil {
			return nil
		}
		return &CallExpr{nodeBase: base, Name: tok.Literal, CallType: FunctionCall, Args: args}
	}
	return &ConstLit{nodeBase: base, Value: tok.Literal}
}

// parseObjectDecl parses the part after new/datablock:
//
//	Class(name : parent, args...) { field = value; new Child(); ... }
func (p *Parser) parseObjectDecl(pos Position, datablock bool) Expr {
	decl := &ObjectDecl{nodeBase: nodeBase{pos: pos}, IsDatablock: datablock}

	switch p.curToken.Type {
	case TokenIdent:
		decl.ClassName = &ConstLit{nodeBase: nodeBase{pos: p.curToken.Pos}, Value: p.curToken.Literal}
		p.nextToken()
	case TokenLParen:
		p.nextToken()
		decl.ClassName = p.parseExpression()
		if decl.ClassName == nil || !p.expect(TokenRParen) {
			return nil
		}
	default:
		p.errorf("expected class name, got %s", p.describe(p.curToken))
		return nil
	}

	if !p.expect(TokenLParen) {
		return nil
	}
	if p.curTokenIs(TokenRParen) || p.curTokenIs(TokenColon) {
		decl.ObjectName = &StrLit{nodeBase: nodeBase{pos: p.curToken.Pos}}
	} else {
		decl.ObjectName = p.parseTernary()
		if decl.ObjectName == nil {
			return nil
		}
	}
	if p.curTokenIs(TokenColon) {
		p.nextToken()
		if !p.curTokenIs(TokenIdent) {
			p.errorf("expected parent object name, got %s", p.describe(p.curToken))
			return nil
		}
		decl.Parent = p.curToken.Literal
		p.nextToken()
	}
	for p.curTokenIs(TokenComma) {
		p.nextToken()
		a := p.parseExpression()
		if a == nil {
			return nil
		}
		decl.Args = append(decl.Args, a)
	}
	if !p.expect(TokenRParen) {
		return nil
	}

	if !p.curTokenIs(TokenLBrace) {
		return decl
	}
	p.nextToken()
	for !p.curTokenIs(TokenRBrace) && !p.curTokenIs(TokenEOF) {
		if p.curTokenIs(TokenNew) || (p.curTokenIs(TokenDatablock) && !p.peekTokenIs(TokenAssign)) {
			childPos := p.curToken.Pos
			isDB := p.curTokenIs(TokenDatablock)
			p.nextToken()
			child, ok := p.parseObjectDecl(childPos, isDB).(*ObjectDecl)
			if !ok || child == nil {
				return nil
			}
			decl.Children = append(decl.Children, child)
			if !p.expect(TokenSemicolon) {
				return nil
			}
			continue
		}
		slot := p.parseSlot()
		if slot == nil {
			return nil
		}
		decl.Slots = append(decl.Slots, slot)
	}
	if !p.expect(TokenRBrace) {
		return nil
	}
	return decl
}

// parseSlot parses field[index] = value; inside an object body.
func (p *Parser) parseSlot() *SlotAssignExpr {
	pos := p.curToken.Pos
	name, ok := p.fieldName()
	if !ok {
		p.errorf("expected field name, got %s", p.describe(p.curToken))
		return nil
	}
	p.nextToken()
	slot := &SlotAssignExpr{nodeBase: nodeBase{pos: pos}, Field: name}
	if p.curTokenIs(TokenLBracket) {
		slot.Index = p.parseIndex()
		if slot.Index == nil {
			return nil
		}
	}
	if !p.expect(TokenAssign) {
		return nil
	}
	slot.Value = p.parseExpression()
	if slot.Value == nil || !p.expect(TokenSemicolon) {
		return nil
	}
	return slot
}
