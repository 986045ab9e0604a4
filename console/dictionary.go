package console

import (
	"path"
	"sort"
	"strings"
)

// ---------------------------------------------------------------------------
// Variable: one binding in a Dictionary
// ---------------------------------------------------------------------------

// NotifyFunc is called after a variable's value changes.
type NotifyFunc func(v *Variable)

// Variable is a named, typed binding living in a Dictionary bucket chain.
type Variable struct {
	name     *Name
	value    Value
	notify   []NotifyFunc
	constant bool
	gen      uint32
	next     *Variable
}

// Name returns the interned variable name.
func (v *Variable) Name() *Name { return v.name }

// Value returns the current value.
func (v *Variable) Value() Value { return v.value }

// GetString returns the value as text.
func (v *Variable) GetString() string { return v.value.String() }

// GetInt returns the value as an integer.
func (v *Variable) GetInt() int64 { return v.value.Int() }

// GetFloat returns the value as a float.
func (v *Variable) GetFloat() float64 { return v.value.Float() }

// SetString stores s.
func (v *Variable) SetString(s string) bool { return v.set(StringValue(s)) }

// SetInt stores i.
func (v *Variable) SetInt(i int64) bool { return v.set(IntValue(i)) }

// SetFloat stores f.
func (v *Variable) SetFloat(f float64) bool { return v.set(FloatValue(f)) }

// SetValue stores val as is.
func (v *Variable) SetValue(val Value) bool { return v.set(val) }

func (v *Variable) set(val Value) bool {
	if v.constant {
		log.Errorf("Cannot change variable %s because it is a constant.", v.name)
		return false
	}
	v.value = val
	for _, fn := range v.notify {
		fn(v)
	}
	return true
}

// AddNotify registers fn to run after every successful assignment.
func (v *Variable) AddNotify(fn NotifyFunc) {
	v.notify = append(v.notify, fn)
}

// SetConstant marks the variable read-only (or writable again).
func (v *Variable) SetConstant(constant bool) { v.constant = constant }

// IsConstant reports whether assignments are rejected.
func (v *Variable) IsConstant() bool { return v.constant }

// ---------------------------------------------------------------------------
// Dictionary: open-hashed scope table
// ---------------------------------------------------------------------------

// DefaultBuckets is the initial bucket count of a new table.
const DefaultBuckets = 15

// hashTable is the storage a Dictionary owns or borrows.
type hashTable struct {
	buckets []*Variable
	count   int
	owner   *Dictionary
	entries chunker[Variable]
}

func newHashTable(owner *Dictionary, size int) *hashTable {
	if size < 1 {
		size = DefaultBuckets
	}
	return &hashTable{buckets: make([]*Variable, size), owner: owner}
}

func (t *hashTable) bucket(name *Name) int {
	return int(name.id % uint32(len(t.buckets)))
}

// grow relinks every entry into a bucket array of 4*size-1 slots. Entries
// keep their identity.
func (t *hashTable) grow() {
	nb := make([]*Variable, 4*len(t.buckets)-1)
	for _, e := range t.buckets {
		for e != nil {
			next := e.next
			idx := e.name.id % uint32(len(nb))
			e.next = nb[idx]
			nb[idx] = e
			e = next
		}
	}
	t.buckets = nb
}

// Dictionary is one variable scope: the global table or a call frame.
// It either owns its hash table or borrows another frame's.
type Dictionary struct {
	names   *NameTable
	table   *hashTable
	own     *hashTable
	state   *EvalState
	initial int

	// Scope metadata, set by the frame stack.
	ScopeName      *Name
	ScopeNamespace *Namespace
	Code           *CodeBlock
	IP             uint32
}

// NewDictionary creates a dictionary that will own a table of buckets
// slots once its first variable is added.
func NewDictionary(names *NameTable, buckets int) *Dictionary {
	if buckets < 1 {
		buckets = DefaultBuckets
	}
	return &Dictionary{names: names, initial: buckets}
}

func (d *Dictionary) ensureTable() *hashTable {
	if d.table == nil {
		if d.own == nil {
			d.own = newHashTable(d, d.initial)
		}
		d.table = d.own
	}
	return d.table
}

// SetState binds the dictionary to a frame stack. With a non-nil ref the
// dictionary borrows ref's table; otherwise it uses (and lazily creates)
// its own.
func (d *Dictionary) SetState(state *EvalState, ref *Dictionary) {
	d.state = state
	if ref != nil {
		d.table = ref.ensureTable()
		return
	}
	d.table = d.own
}

// Owns reports whether the dictionary is the owner of the table it uses.
func (d *Dictionary) Owns() bool {
	return d.table != nil && d.table.owner == d
}

// Shares reports whether d and other operate on the same table.
func (d *Dictionary) Shares(other *Dictionary) bool {
	return d.table != nil && d.table == other.table
}

// Reset empties an owned table, keeping its bucket allocation, or drops a
// borrowed one. Scope metadata is cleared either way.
func (d *Dictionary) Reset() {
	if d.table != nil && d.table == d.own {
		t := d.own
		for i := range t.buckets {
			t.buckets[i] = nil
		}
		t.count = 0
		t.entries.reset()
	}
	d.table = nil
	d.ScopeName = nil
	d.ScopeNamespace = nil
	d.Code = nil
	d.IP = 0
}

// Count returns the number of live variables.
func (d *Dictionary) Count() int {
	if d.table == nil {
		return 0
	}
	return d.table.count
}

// BucketCount returns the current bucket array length.
func (d *Dictionary) BucketCount() int {
	if d.table == nil {
		if d.own != nil {
			return len(d.own.buckets)
		}
		return d.initial
	}
	return len(d.table.buckets)
}

// Lookup returns the variable bound to name, or nil.
func (d *Dictionary) Lookup(name *Name) *Variable {
	if d.table == nil || name == nil {
		return nil
	}
	for e := d.table.buckets[d.table.bucket(name)]; e != nil; e = e.next {
		if e.name == name {
			return e
		}
	}
	return nil
}

// Add returns the variable bound to name, creating it if necessary.
func (d *Dictionary) Add(name *Name) *Variable {
	if name == nil {
		return nil
	}
	if v := d.Lookup(name); v != nil {
		return v
	}
	t := d.ensureTable()
	t.count++
	if t.count > 2*len(t.buckets) {
		t.grow()
	}
	v := t.entries.alloc()
	*v = Variable{name: name, gen: t.entries.gen}
	idx := t.bucket(name)
	v.next = t.buckets[idx]
	t.buckets[idx] = v
	return v
}

// Remove unlinks v from its bucket, leaving the order of the remaining
// entries untouched. It reports whether v was present.
func (d *Dictionary) Remove(v *Variable) bool {
	if v == nil || d.table == nil || v.gen != d.table.entries.gen {
		return false
	}
	t := d.table
	for p := &t.buckets[t.bucket(v.name)]; *p != nil; p = &(*p).next {
		if *p == v {
			*p = v.next
			v.next = nil
			t.count--
			return true
		}
	}
	return false
}

// Variable returns the named variable, creating it.
func (d *Dictionary) Variable(name string) *Variable {
	return d.Add(d.names.Intern(name))
}

// SetVariable assigns a string to the named variable, creating it.
func (d *Dictionary) SetVariable(name, value string) {
	if v := d.Variable(name); v != nil {
		v.SetString(value)
	}
}

// GetVariable returns the named variable's text, if it exists.
func (d *Dictionary) GetVariable(name string) (string, bool) {
	v := d.Lookup(d.names.Lookup(name))
	if v == nil {
		return "", false
	}
	return v.GetString(), true
}

// AddNotify registers fn on the named variable, creating it.
func (d *Dictionary) AddNotify(name string, fn NotifyFunc) {
	if v := d.Add(d.names.Intern(name)); v != nil {
		v.AddNotify(fn)
	}
}

// Match returns the variables whose names match pattern, sorted
// case-insensitively by name.
func (d *Dictionary) Match(pattern string) []*Variable {
	if d.table == nil {
		return nil
	}
	var out []*Variable
	for _, e := range d.table.buckets {
		for ; e != nil; e = e.next {
			if MatchPattern(pattern, e.name.text) {
				out = append(out, e)
			}
		}
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := strings.ToLower(out[i].name.text), strings.ToLower(out[j].name.text)
		if a != b {
			return a < b
		}
		return out[i].name.text < out[j].name.text
	})
	return out
}

// Names returns every variable name in sorted order.
func (d *Dictionary) Names() []string {
	vars := d.Match("*")
	names := make([]string, len(vars))
	for i, v := range vars {
		names[i] = v.name.text
	}
	return names
}

// DeleteVariables removes every variable matching pattern and returns how
// many were removed. Constants are kept.
func (d *Dictionary) DeleteVariables(pattern string) int {
	n := 0
	for _, v := range d.Match(pattern) {
		if v.constant {
			continue
		}
		if d.Remove(v) {
			n++
		}
	}
	return n
}

// MatchPattern reports whether s matches a case-insensitive glob with
// '*' (any run) and '?' (any single character). Every other character,
// including '/', '[' and backslash, matches itself.
func MatchPattern(pattern, s string) bool {
	ok, err := path.Match(globEscaper.Replace(strings.ToLower(pattern)), slashFree.Replace(strings.ToLower(s)))
	return err == nil && ok
}

var (
	globEscaper = strings.NewReplacer(`\`, `\\`, "[", `\[`, "/", "\x00")
	slashFree   = strings.NewReplacer("/", "\x00")
)
