package console

import (
	"io"
	"os"

	"github.com/tliron/commonlog"
)

var log = commonlog.GetLogger("torque.console")

// ---------------------------------------------------------------------------
// Runtime: one independent script environment
// ---------------------------------------------------------------------------

// Options configures a Runtime. Zero values select defaults.
type Options struct {
	// InitialBuckets is the starting bucket count of every variable table.
	InitialBuckets int
	// MaxCallDepth bounds script recursion; 0 selects DefaultMaxCallDepth.
	MaxCallDepth int
	// Output receives echo/warn/error text. Defaults to os.Stdout.
	Output io.Writer
	// CacheArenaSize is the slot count of each namespace-cache arena block.
	CacheArenaSize int
}

// DefaultMaxCallDepth is the script call depth at which calls are refused.
const DefaultMaxCallDepth = 1024

type nsKey struct {
	name *Name
	pkg  *Name
}

// Runtime owns every piece of state shared by scripts: interned names,
// namespaces, the package stack, variables, objects and compiled code.
type Runtime struct {
	Names *NameTable
	State *EvalState

	Global *Namespace

	namespaces []*Namespace
	nsIndex    map[nsKey]*Namespace
	packages   map[*Name]bool

	cacheSeq   uint64
	cacheArena *sliceArena[*Entry]

	activePackages []*Name

	objects     map[uint32]*Object
	objectNames map[*Name]*Object
	nextID      uint32
	classes     map[*Name]*Name // class -> parent class

	codeBlocks []*CodeBlock

	out          io.Writer
	maxCallDepth int
	callDepth    int
}

// NewRuntime creates a runtime with the builtin functions and base object
// classes registered.
func NewRuntime(opts Options) *Runtime {
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.MaxCallDepth <= 0 {
		opts.MaxCallDepth = DefaultMaxCallDepth
	}
	if opts.CacheArenaSize <= 0 {
		opts.CacheArenaSize = 4096
	}
	names := NewNameTable()
	rt := &Runtime{
		Names:        names,
		State:        NewEvalState(names, opts.InitialBuckets),
		nsIndex:      make(map[nsKey]*Namespace),
		packages:     make(map[*Name]bool),
		cacheSeq:     1,
		cacheArena:   newSliceArena[*Entry](opts.CacheArenaSize),
		objects:      make(map[uint32]*Object),
		objectNames:  make(map[*Name]*Object),
		nextID:       firstObjectID,
		classes:      make(map[*Name]*Name),
		out:          opts.Output,
		maxCallDepth: opts.MaxCallDepth,
	}
	rt.Global = rt.FindNamespace("", "")
	rt.registerBuiltins()
	rt.registerObjectClasses()
	return rt
}

// Output returns the writer echo text goes to.
func (rt *Runtime) Output() io.Writer { return rt.out }

// SetOutput redirects echo/warn/error text.
func (rt *Runtime) SetOutput(w io.Writer) { rt.out = w }

// Globals is shorthand for the global variable table.
func (rt *Runtime) Globals() *Dictionary { return rt.State.Globals() }

// trashCache invalidates every namespace lookup cache.
func (rt *Runtime) trashCache() {
	rt.cacheSeq++
	rt.cacheArena.reset()
}

// CacheSequence returns the global cache stamp.
func (rt *Runtime) CacheSequence() uint64 { return rt.cacheSeq }

// FindNamespace returns the namespace for name in package pkg, creating
// it on first use. Empty name is the global namespace.
func (rt *Runtime) FindNamespace(name, pkg string) *Namespace {
	return rt.findNamespace(rt.Names.Intern(name), rt.Names.Intern(pkg))
}

func (rt *Runtime) findNamespace(name, pkg *Name) *Namespace {
	key := nsKey{name: name, pkg: pkg}
	if ns, ok := rt.nsIndex[key]; ok {
		return ns
	}
	ns := &Namespace{Name: name, Package: pkg, rt: rt}
	rt.nsIndex[key] = ns
	rt.namespaces = append(rt.namespaces, ns)
	if pkg != nil {
		rt.packages[pkg] = true
		// A namespace first declared while its package is active joins
		// the base immediately, in activation order.
		if rt.activeIndex(pkg) >= 0 {
			rt.layer(ns)
		}
	}
	return ns
}

// LookupNamespace returns an existing namespace without creating one.
func (rt *Runtime) LookupNamespace(name, pkg string) *Namespace {
	n, p := rt.Names.Lookup(name), rt.Names.Lookup(pkg)
	if (name != "" && n == nil) || (pkg != "" && p == nil) {
		return nil
	}
	return rt.nsIndex[nsKey{name: n, pkg: p}]
}

// Namespaces returns every namespace in creation order.
func (rt *Runtime) Namespaces() []*Namespace {
	out := make([]*Namespace, len(rt.namespaces))
	copy(out, rt.namespaces)
	return out
}
