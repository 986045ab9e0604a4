package compiler

// ---------------------------------------------------------------------------
// AST: Abstract Syntax Tree for console scripts
// ---------------------------------------------------------------------------

// Position represents a source location.
type Position struct {
	Offset int // byte offset
	Line   int // 1-based line number
	Column int // 1-based column number
}

// Node is the interface implemented by all AST nodes.
type Node interface {
	Pos() Position
	node() // marker method
}

// Stmt is a statement node. Every statement sizes itself in the first
// compiler pass and writes itself at a fixed offset in the second.
type Stmt interface {
	Node
	precompileStmt(c *Compiler, loopCount int) uint32
	compileStmt(c *Compiler, code []uint32, ip uint32, loop loopTargets) uint32
}

// Expr is an expression node. The requested TypeReq decides which VM stack
// the result is left on; TypeReqNone leaves nothing behind.
type Expr interface {
	Node
	preferredType() TypeReq
	precompile(c *Compiler, t TypeReq) uint32
	compile(c *Compiler, code []uint32, ip uint32, t TypeReq) uint32
}

// loopTargets carries the absolute break and continue landing pads of the
// innermost enclosing loop during the emission pass.
type loopTargets struct {
	continueIP uint32
	breakIP    uint32
}

type nodeBase struct {
	pos Position
}

func (n *nodeBase) Pos() Position { return n.pos }
func (n *nodeBase) node()         {}

// ---------------------------------------------------------------------------
// Statements
// ---------------------------------------------------------------------------

// ExprStmt evaluates an expression for its side effects.
type ExprStmt struct {
	nodeBase
	X Expr
}

// IfStmt is if/else. Offsets are relative to the statement start.
type IfStmt struct {
	nodeBase
	Test Expr
	Then []Stmt
	Else []Stmt // nil when there is no else branch

	integer     bool
	elseOffset  uint32
	endifOffset uint32
}

// LoopStmt covers while, for and do-while.
type LoopStmt struct {
	nodeBase
	Init   Expr // optional
	Test   Expr
	End    Expr // optional, evaluated at the continue point
	Body   []Stmt
	IsDo   bool

	integer              bool
	loopBlockStartOffset uint32
	continueOffset       uint32
	breakOffset          uint32
}

// BreakStmt leaves the innermost loop.
type BreakStmt struct {
	nodeBase
	emitted bool
}

// ContinueStmt jumps to the innermost loop's continue point.
type ContinueStmt struct {
	nodeBase
	emitted bool
}

// ReturnStmt returns from the current function, optionally with a value.
type ReturnStmt struct {
	nodeBase
	Value Expr
}

// FunctionDecl declares a script function, optionally in a namespace
// (Ns::name) and optionally inside a package block.
type FunctionDecl struct {
	nodeBase
	Name      string
	Namespace string
	Package   string
	Args      []string
	Body      []Stmt

	nameIdx   uint32
	nsIdx     uint32
	pkgIdx    uint32
	argIdx    []uint32
	endOffset uint32
}

// ---------------------------------------------------------------------------
// Expressions
// ---------------------------------------------------------------------------

// IntLit is an integer literal.
type IntLit struct {
	nodeBase
	Value int64

	index uint32
}

// FloatLit is a floating-point literal.
type FloatLit struct {
	nodeBase
	Value float64

	index uint32
}

// StrLit is a quoted string literal.
type StrLit struct {
	nodeBase
	Value string
	Tag   bool

	index uint32
	num   float64
}

// ConstLit is a bare identifier used as a value, e.g. an object name.
type ConstLit struct {
	nodeBase
	Value string

	index uint32
	num   float64
}

// VarExpr reads a local (%x) or global ($x) variable, optionally indexed.
type VarExpr struct {
	nodeBase
	Name  string
	Index Expr // optional array index

	nameIdx uint32
}

// AssignExpr is name = value.
type AssignExpr struct {
	nodeBase
	Name  string
	Index Expr
	Value Expr

	nameIdx uint32
	subType TypeReq
}

// AssignOpExpr is a compound assignment (+=, ++, ...).
type AssignOpExpr struct {
	nodeBase
	Name  string
	Index Expr
	Op    TokenType // the arithmetic operator, e.g. TokenPlus
	Value Expr

	nameIdx uint32
	subType TypeReq
	operand Opcode
}

// FloatBinaryExpr is + - * / evaluated as floats.
type FloatBinaryExpr struct {
	nodeBase
	Op          TokenType
	Left, Right Expr
}

// IntBinaryExpr covers bitwise, modulo and relational operators.
type IntBinaryExpr struct {
	nodeBase
	Op          TokenType
	Left, Right Expr

	subType TypeReq
	operand Opcode
}

// AndOrExpr is short-circuit && / ||.
type AndOrExpr struct {
	nodeBase
	Op          TokenType
	Left, Right Expr

	rightSize uint32
}

// StrEqExpr is $= / !$=.
type StrEqExpr struct {
	nodeBase
	Equal       bool
	Left, Right Expr
}

// StrCatExpr concatenates two strings with an optional separator char.
type StrCatExpr struct {
	nodeBase
	Left, Right Expr
	AppendChar  byte // 0 for plain @
}

// CommaCatExpr joins array index components with '_'.
type CommaCatExpr struct {
	nodeBase
	Left, Right Expr
}

// UnaryExpr is -, ! or ~.
type UnaryExpr struct {
	nodeBase
	Op TokenType
	X  Expr

	integer bool
}

// ConditionalExpr is test ? a : b.
type ConditionalExpr struct {
	nodeBase
	Test, True, False Expr

	integer   bool
	testSize  uint32
	trueSize  uint32
	falseSize uint32
}

// CallExpr is a function, namespace, parent or method call. For method
// calls Args[0] is the receiver expression.
type CallExpr struct {
	nodeBase
	Name      string
	Namespace string
	CallType  uint32
	Args      []Expr

	nameIdx uint32
	nsIdx   uint32
}

// SlotAccessExpr reads object.field or object.field[index].
type SlotAccessExpr struct {
	nodeBase
	Object Expr
	Field  string
	Index  Expr

	fieldIdx uint32
}

// SlotAssignExpr writes object.field = value. A nil Object targets the
// object currently being constructed by an enclosing declaration.
type SlotAssignExpr struct {
	nodeBase
	Object Expr
	Field  string
	Index  Expr
	Value  Expr

	fieldIdx uint32
}

// SlotAssignOpExpr is a compound assignment on an object field.
type SlotAssignOpExpr struct {
	nodeBase
	Object Expr
	Field  string
	Index  Expr
	Op     TokenType
	Value  Expr

	fieldIdx uint32
	subType  TypeReq
	operand  Opcode
}

// ObjectDecl is new Class(name : parent, args) { fields; subobjects; }.
type ObjectDecl struct {
	nodeBase
	ClassName   Expr
	ObjectName  Expr
	Parent      string // copy-from object, optional
	Args        []Expr
	IsDatablock bool
	Slots       []*SlotAssignExpr
	Children    []*ObjectDecl

	parentIdx  uint32
	failOffset uint32
}

// Program is the parsed form of one source file.
type Program struct {
	Filename   string
	Statements []Stmt
}
