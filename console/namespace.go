package console

// ---------------------------------------------------------------------------
// Entry: one callable registered in a Namespace
// ---------------------------------------------------------------------------

// EntryKind tags what an Entry invokes.
type EntryKind uint8

const (
	GroupMarker EntryKind = iota
	ScriptCallbackMarker
	ScriptFunction
	StringCallbackKind
	IntCallbackKind
	FloatCallbackKind
	VoidCallbackKind
	BoolCallbackKind
)

func (k EntryKind) String() string {
	switch k {
	case GroupMarker:
		return "group"
	case ScriptCallbackMarker:
		return "callback"
	case ScriptFunction:
		return "script"
	case StringCallbackKind:
		return "string"
	case IntCallbackKind:
		return "int"
	case FloatCallbackKind:
		return "float"
	case VoidCallbackKind:
		return "void"
	case BoolCallbackKind:
		return "bool"
	}
	return "unknown"
}

// Native callback signatures. For method calls obj is the receiver and
// argv[0] its id; for plain functions obj is nil and argv holds only the
// call's arguments.
type (
	StringCallback func(obj *Object, argv []string) string
	IntCallback    func(obj *Object, argv []string) int64
	FloatCallback  func(obj *Object, argv []string) float64
	VoidCallback   func(obj *Object, argv []string)
	BoolCallback   func(obj *Object, argv []string) bool
)

// Entry is a function registered in exactly one Namespace.
type Entry struct {
	Namespace *Namespace
	Name      *Name
	Kind      EntryKind
	Package   *Name
	MinArgs   int // 0 means unchecked
	MaxArgs   int // 0 means unbounded
	Usage     string

	// Script functions
	Code   *CodeBlock
	Offset uint32 // ip of the FUNC_DECL header
	Line   uint32

	stringFn StringCallback
	intFn    IntCallback
	floatFn  FloatCallback
	voidFn   VoidCallback
	boolFn   BoolCallback

	next *Entry
}

// clear drops the entry's payload so it can be redefined in place.
func (e *Entry) clear() {
	if e.Code != nil {
		e.Code.DecRef()
	}
	next := e.next
	*e = Entry{Namespace: e.Namespace, Name: e.Name, next: next}
}

// QualifiedName renders Ns::name, or just name in the global namespace.
func (e *Entry) QualifiedName() string {
	if e.Namespace == nil || e.Namespace.Name == nil {
		return e.Name.String()
	}
	return e.Namespace.Name.String() + "::" + e.Name.String()
}

// ---------------------------------------------------------------------------
// Namespace
// ---------------------------------------------------------------------------

// Namespace is a named set of entries with single-parent inheritance.
// A namespace tagged with a package is an overlay: while the package is
// active it sits in its base twin's layer list and its entries shadow the
// base's own.
type Namespace struct {
	Name    *Name
	Package *Name
	Usage   string

	rt       *Runtime
	parent   *Namespace
	refCount int
	entries  *Entry

	layers []*Namespace // active overlays, oldest first (base only)
	base   *Namespace   // the base twin while layered (overlay only)

	cache    []*Entry
	cacheSeq uint64
}

// Parent returns the inheritance parent.
func (ns *Namespace) Parent() *Namespace { return ns.parent }

// EntryHead returns the first entry of the namespace's own list.
func (ns *Namespace) EntryHead() *Entry { return ns.entries }

// Layers returns the active package overlays, oldest first.
func (ns *Namespace) Layers() []*Namespace {
	out := make([]*Namespace, len(ns.layers))
	copy(out, ns.layers)
	return out
}

// Base returns the namespace an active overlay is layered onto.
func (ns *Namespace) Base() *Namespace { return ns.base }

// Entries returns the namespace's own entries, newest first.
func (ns *Namespace) Entries() []*Entry {
	var out []*Entry
	for e := ns.entries; e != nil; e = e.next {
		out = append(out, e)
	}
	return out
}

func (ns *Namespace) String() string {
	name := "<global>"
	if ns.Name != nil {
		name = ns.Name.String()
	}
	if ns.Package != nil {
		return "[" + ns.Package.String() + "]" + name
	}
	return name
}

// localEntry finds an entry in this namespace's own list.
func (ns *Namespace) localEntry(name *Name) *Entry {
	for e := ns.entries; e != nil; e = e.next {
		if e.Name == name {
			return e
		}
	}
	return nil
}

// createLocalEntry returns a cleared entry for name, reusing an existing
// one so earlier lookups keep pointing at the live definition.
func (ns *Namespace) createLocalEntry(name *Name) *Entry {
	if e := ns.localEntry(name); e != nil {
		e.clear()
		ns.rt.trashCache()
		return e
	}
	e := &Entry{Namespace: ns, Name: name, next: ns.entries}
	ns.entries = e
	ns.rt.trashCache()
	return e
}

// AddFunction registers a script function defined at offset in cb.
func (ns *Namespace) AddFunction(name *Name, cb *CodeBlock, offset, line uint32) *Entry {
	e := ns.createLocalEntry(name)
	e.Kind = ScriptFunction
	e.Package = ns.Package
	e.Code = cb
	e.Offset = offset
	e.Line = line
	if cb != nil {
		cb.IncRef()
	}
	return e
}

func (ns *Namespace) addNative(name string, kind EntryKind, usage string, minArgs, maxArgs int) *Entry {
	e := ns.createLocalEntry(ns.rt.Names.Intern(name))
	e.Kind = kind
	e.Package = ns.Package
	e.Usage = usage
	e.MinArgs = minArgs
	e.MaxArgs = maxArgs
	return e
}

// AddStringCommand registers a string-returning native.
func (ns *Namespace) AddStringCommand(name string, fn StringCallback, usage string, minArgs, maxArgs int) *Entry {
	e := ns.addNative(name, StringCallbackKind, usage, minArgs, maxArgs)
	e.stringFn = fn
	return e
}

// AddIntCommand registers an integer-returning native.
func (ns *Namespace) AddIntCommand(name string, fn IntCallback, usage string, minArgs, maxArgs int) *Entry {
	e := ns.addNative(name, IntCallbackKind, usage, minArgs, maxArgs)
	e.intFn = fn
	return e
}

// AddFloatCommand registers a float-returning native.
func (ns *Namespace) AddFloatCommand(name string, fn FloatCallback, usage string, minArgs, maxArgs int) *Entry {
	e := ns.addNative(name, FloatCallbackKind, usage, minArgs, maxArgs)
	e.floatFn = fn
	return e
}

// AddVoidCommand registers a native with no result.
func (ns *Namespace) AddVoidCommand(name string, fn VoidCallback, usage string, minArgs, maxArgs int) *Entry {
	e := ns.addNative(name, VoidCallbackKind, usage, minArgs, maxArgs)
	e.voidFn = fn
	return e
}

// AddBoolCommand registers a bool-returning native.
func (ns *Namespace) AddBoolCommand(name string, fn BoolCallback, usage string, minArgs, maxArgs int) *Entry {
	e := ns.addNative(name, BoolCallbackKind, usage, minArgs, maxArgs)
	e.boolFn = fn
	return e
}

// AddScriptCallback documents a method the engine calls into script.
// Calling the marker itself does nothing.
func (ns *Namespace) AddScriptCallback(name, usage string) *Entry {
	return ns.addNative(name, ScriptCallbackMarker, usage, 0, 0)
}

// MarkGroup starts a documentation group in the entry list.
func (ns *Namespace) MarkGroup(name, usage string) *Entry {
	return ns.addNative(name, GroupMarker, usage, 0, 0)
}

// ---------------------------------------------------------------------------
// Lookup and the flat cache
// ---------------------------------------------------------------------------

// visibleEntries walks overlays newest-first, then the namespace's own
// entries, then the parent chain.
func (ns *Namespace) visibleEntries(fn func(*Entry)) {
	seen := 0
	for cur := ns; cur != nil && seen <= len(ns.rt.namespaces); cur = cur.parent {
		for i := len(cur.layers) - 1; i >= 0; i-- {
			for e := cur.layers[i].entries; e != nil; e = e.next {
				fn(e)
			}
		}
		for e := cur.entries; e != nil; e = e.next {
			fn(e)
		}
		seen++
	}
}

// buildCache rebuilds the open-addressed table keyed by name id. The
// first (nearest) entry for each name wins.
func (ns *Namespace) buildCache() {
	count := 0
	ns.visibleEntries(func(*Entry) { count++ })
	size := 8
	for size < count*2 {
		size <<= 1
	}
	table := ns.rt.cacheArena.alloc(size)
	mask := uint32(size - 1)
	ns.visibleEntries(func(e *Entry) {
		if e.Kind == GroupMarker {
			return
		}
		for i := e.Name.id & mask; ; i = (i + 1) & mask {
			if table[i] == nil {
				table[i] = e
				return
			}
			if table[i].Name == e.Name {
				return
			}
		}
	})
	ns.cache = table
	ns.cacheSeq = ns.rt.cacheSeq
}

// Lookup resolves name through overlays, own entries and ancestors.
func (ns *Namespace) Lookup(name *Name) *Entry {
	if name == nil {
		return nil
	}
	if ns.cacheSeq != ns.rt.cacheSeq || ns.cache == nil {
		ns.buildCache()
	}
	mask := uint32(len(ns.cache) - 1)
	for i := name.id & mask; ; i = (i + 1) & mask {
		e := ns.cache[i]
		if e == nil {
			return nil
		}
		if e.Name == name {
			return e
		}
	}
}

// LookupString is Lookup by spelling.
func (ns *Namespace) LookupString(name string) *Entry {
	return ns.Lookup(ns.rt.Names.Lookup(name))
}

// lookupBelow resolves name starting beneath the layer that owns from.
// It implements Parent:: calls.
func (rt *Runtime) lookupBelow(from *Namespace, name *Name) *Entry {
	if from == nil {
		return nil
	}
	if base := from.base; base != nil {
		idx := -1
		for i, l := range base.layers {
			if l == from {
				idx = i
				break
			}
		}
		for i := idx - 1; i >= 0; i-- {
			if e := base.layers[i].localEntry(name); e != nil {
				return e
			}
		}
		if e := base.localEntry(name); e != nil {
			return e
		}
		from = base
	}
	if from.parent == nil {
		return nil
	}
	return from.parent.Lookup(name)
}

// ---------------------------------------------------------------------------
// Class linkage
// ---------------------------------------------------------------------------

// ClassLinkTo makes parent the inheritance parent of ns. Linking to the
// current parent again only bumps its reference count. A different
// existing parent, or a link that would form a cycle, is rejected.
func (ns *Namespace) ClassLinkTo(parent *Namespace) bool {
	if parent == nil {
		return false
	}
	if ns.parent == parent {
		ns.refCount++
		return true
	}
	if ns.parent != nil {
		log.Errorf("Error: cannot change namespace parent linkage of %s from %s to %s.", ns, ns.parent, parent)
		return false
	}
	for p := parent; p != nil; p = p.parent {
		if p == ns {
			log.Errorf("Error: linking %s to %s would create a cycle.", ns, parent)
			return false
		}
	}
	ns.parent = parent
	ns.refCount = 1
	ns.rt.trashCache()
	return true
}

// UnlinkClass drops one reference to parent, detaching on the last one.
func (ns *Namespace) UnlinkClass(parent *Namespace) bool {
	if parent == nil || ns.parent != parent {
		log.Errorf("Error: cannot unlink namespace parent linkage for %s from %s.", ns, parent)
		return false
	}
	ns.refCount--
	if ns.refCount == 0 {
		ns.parent = nil
		ns.rt.trashCache()
	}
	return true
}
