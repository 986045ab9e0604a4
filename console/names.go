package console

import (
	"strings"
	"sync"
)

// ---------------------------------------------------------------------------
// NameTable: case-insensitive interned identifiers
// ---------------------------------------------------------------------------

// Name is an interned identifier. Two names compare equal iff they are the
// same pointer; the first spelling seen is the one kept.
type Name struct {
	id   uint32
	text string
}

// ID returns the name's dense, non-zero identifier.
func (n *Name) ID() uint32 { return n.id }

func (n *Name) String() string {
	if n == nil {
		return ""
	}
	return n.text
}

// NameTable interns identifiers case-insensitively.
type NameTable struct {
	mu    sync.RWMutex
	byKey map[string]*Name
	byID  []*Name
}

// NewNameTable creates an empty name table.
func NewNameTable() *NameTable {
	return &NameTable{
		byKey: make(map[string]*Name),
		byID:  make([]*Name, 1, 256), // id 0 is reserved
	}
}

// Intern returns the unique Name for s. The empty string interns to nil.
func (nt *NameTable) Intern(s string) *Name {
	if s == "" {
		return nil
	}
	key := strings.ToLower(s)

	nt.mu.RLock()
	if n, ok := nt.byKey[key]; ok {
		nt.mu.RUnlock()
		return n
	}
	nt.mu.RUnlock()

	nt.mu.Lock()
	defer nt.mu.Unlock()
	if n, ok := nt.byKey[key]; ok {
		return n
	}
	n := &Name{id: uint32(len(nt.byID)), text: s}
	nt.byKey[key] = n
	nt.byID = append(nt.byID, n)
	return n
}

// Lookup returns the Name for s without interning it.
func (nt *NameTable) Lookup(s string) *Name {
	nt.mu.RLock()
	defer nt.mu.RUnlock()
	return nt.byKey[strings.ToLower(s)]
}

// Len returns the number of interned names.
func (nt *NameTable) Len() int {
	nt.mu.RLock()
	defer nt.mu.RUnlock()
	return len(nt.byID) - 1
}
