package compiler

import (
	"errors"
	"fmt"
	"strings"

	"github.com/tliron/commonlog"
)

var log = commonlog.GetLogger("torque.compiler")

// ErrParse is returned when the source does not parse.
var ErrParse = errors.New("parse error")

// ErrLayout is returned when the emission pass disagrees with the sizing
// pass. It always indicates a compiler bug.
var ErrLayout = errors.New("code layout mismatch")

// ---------------------------------------------------------------------------
// Unit: the output of one compilation
// ---------------------------------------------------------------------------

// LineBreak maps a breakable statement's first instruction to its line.
type LineBreak struct {
	Line uint32
	IP   uint32
}

// Unit is one compiled source file: a fixed-width code stream plus the
// literal pools its operands index into.
type Unit struct {
	Name       string
	Code       []uint32
	Strings    []string
	Floats     []float64
	LineBreaks []LineBreak
	Warnings   []string
}

// LineForIP returns the source line of the breakable statement covering ip,
// or 0 when no line information is available.
func (u *Unit) LineForIP(ip uint32) uint32 {
	var line uint32
	for _, lb := range u.LineBreaks {
		if lb.IP > ip {
			break
		}
		line = lb.Line
	}
	return line
}

// ---------------------------------------------------------------------------
// Compiler: the two-pass AST-to-bytecode driver
// ---------------------------------------------------------------------------

// Compiler holds per-unit compilation state shared by every node.
type Compiler struct {
	filename string
	strings  *StringTable
	floats   *FloatTable
	warnings []string

	breakCount int
	lineBreaks []LineBreak
}

// NewCompiler creates a compiler for one unit.
func NewCompiler(filename string) *Compiler {
	return &Compiler{
		filename: filename,
		strings:  NewStringTable(),
		floats:   NewFloatTable(),
	}
}

// Warnings returns accumulated soft diagnostics.
func (c *Compiler) Warnings() []string {
	return c.warnings
}

func (c *Compiler) warnf(pos Position, format string, args ...interface{}) {
	msg := fmt.Sprintf("%s (%d): %s", c.filename, pos.Line, fmt.Sprintf(format, args...))
	c.warnings = append(c.warnings, msg)
	log.Warning(msg)
}

// ident returns the string-table index of an identifier operand.
func (c *Compiler) ident(name string) uint32 {
	if name == "" {
		return NoIdent
	}
	return c.strings.Add(name)
}

func (c *Compiler) addBreakCount() {
	c.breakCount++
}

func (c *Compiler) addBreakLine(n Node, ip uint32) {
	c.lineBreaks = append(c.lineBreaks, LineBreak{Line: uint32(n.Pos().Line), IP: ip})
}

// Compile parses source and compiles it into a Unit.
func Compile(source, filename string) (*Unit, error) {
	p := NewParser(source)
	prog := p.ParseProgram()
	if errs := p.Errors(); len(errs) > 0 {
		return nil, fmt.Errorf("%s: %w: %s", filename, ErrParse, strings.Join(errs, "; "))
	}
	prog.Filename = filename
	return NewCompiler(filename).CompileProgram(prog)
}

// CompileProgram runs the sizing pass over every statement, allocates the
// code buffer at exactly that size and runs the emission pass.
func (c *Compiler) CompileProgram(prog *Program) (unit *Unit, err error) {
	defer func() {
		// An undersized buffer surfaces as an out-of-range write.
		if r := recover(); r != nil {
			unit = nil
			err = fmt.Errorf("%s: %w: %v", c.filename, ErrLayout, r)
		}
	}()

	var size uint32
	for _, s := range prog.Statements {
		size += s.precompileStmt(c, 0)
	}
	size++ // trailing OP_RETURN_VOID

	c.lineBreaks = make([]LineBreak, 0, c.breakCount)
	code := make([]uint32, size)
	var ip uint32
	for _, s := range prog.Statements {
		ip = s.compileStmt(c, code, ip, loopTargets{})
	}
	code[ip] = uint32(OpReturnVoid)
	ip++

	if ip != size {
		return nil, fmt.Errorf("%s: %w: emitted %d words, sized %d", c.filename, ErrLayout, ip, size)
	}

	return &Unit{
		Name:       c.filename,
		Code:       code,
		Strings:    c.strings.Strings(),
		Floats:     c.floats.Floats(),
		LineBreaks: c.lineBreaks,
		Warnings:   c.warnings,
	}, nil
}

// precompileBlock sizes a statement list.
func precompileBlock(c *Compiler, stmts []Stmt, loopCount int) uint32 {
	var size uint32
	for _, s := range stmts {
		size += s.precompileStmt(c, loopCount)
	}
	return size
}

// compileBlock emits a statement list.
func compileBlock(c *Compiler, stmts []Stmt, code []uint32, ip uint32, loop loopTargets) uint32 {
	for _, s := range stmts {
		ip = s.compileStmt(c, code, ip, loop)
	}
	return ip
}
