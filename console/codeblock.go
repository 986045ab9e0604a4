package console

import (
	"fmt"

	"github.com/GarageGames/Torque3D-sub044/compiler"
)

// ---------------------------------------------------------------------------
// CodeBlock: a compiled unit held by the runtime
// ---------------------------------------------------------------------------

// CodeBlock is a compiled unit loaded into a runtime. Every function entry
// defined by the unit holds a reference; the block is dropped from the
// runtime when the last reference goes.
type CodeBlock struct {
	Name string
	Unit *compiler.Unit

	rt       *Runtime
	refCount int
	idents   []*Name
}

// NewCodeBlock wraps unit for execution in rt.
func (rt *Runtime) NewCodeBlock(unit *compiler.Unit) *CodeBlock {
	cb := &CodeBlock{
		Name:   unit.Name,
		Unit:   unit,
		rt:     rt,
		idents: make([]*Name, len(unit.Strings)),
	}
	rt.codeBlocks = append(rt.codeBlocks, cb)
	return cb
}

// Compile compiles source into a code block without running it.
func (rt *Runtime) Compile(source, filename string) (*CodeBlock, error) {
	unit, err := compiler.Compile(source, filename)
	if err != nil {
		return nil, fmt.Errorf("compile: %w", err)
	}
	for _, w := range unit.Warnings {
		fmt.Fprintln(rt.out, w)
	}
	return rt.NewCodeBlock(unit), nil
}

// CodeBlocks returns the blocks still referenced by the runtime.
func (rt *Runtime) CodeBlocks() []*CodeBlock {
	out := make([]*CodeBlock, len(rt.codeBlocks))
	copy(out, rt.codeBlocks)
	return out
}

// RefCount returns the number of live references.
func (cb *CodeBlock) RefCount() int { return cb.refCount }

// IncRef takes a reference.
func (cb *CodeBlock) IncRef() { cb.refCount++ }

// DecRef releases a reference, unloading the block on the last one.
func (cb *CodeBlock) DecRef() {
	cb.refCount--
	if cb.refCount > 0 {
		return
	}
	blocks := cb.rt.codeBlocks
	for i, b := range blocks {
		if b == cb {
			cb.rt.codeBlocks = append(blocks[:i], blocks[i+1:]...)
			break
		}
	}
}

// ident interns the identifier operand at idx. NoIdent yields nil.
func (cb *CodeBlock) ident(idx uint32) *Name {
	if idx == compiler.NoIdent {
		return nil
	}
	if n := cb.idents[idx]; n != nil {
		return n
	}
	n := cb.rt.Names.Intern(cb.Unit.Strings[idx])
	cb.idents[idx] = n
	return n
}

// str returns the string literal at idx.
func (cb *CodeBlock) str(idx uint32) string {
	if idx == compiler.NoIdent {
		return ""
	}
	return cb.Unit.Strings[idx]
}

// Line returns the source line covering ip.
func (cb *CodeBlock) Line(ip uint32) uint32 {
	return cb.Unit.LineForIP(ip)
}
