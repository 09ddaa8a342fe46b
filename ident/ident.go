// Package ident provides stable, interned handles for the names that appear
// throughout a Calyx program: components, cells, ports, groups, attributes.
// Every named IR entity is referenced by Identifier, never by raw string, so
// that renaming and structural-equality checks stay cheap.
package ident

import (
	"fmt"
	"sync"

	"github.com/calyx-lang/calyxgo/diag"
)

// ID is the small integer handle backing an Identifier. Zero is never
// issued by Table.Intern; it is reserved as the zero value meaning "no
// identifier" so a zero Identifier can be detected without an extra bool.
type ID uint32

// Identifier is an immutable interned handle to a name plus the optional
// source position at which it was declared. Two Identifiers naming the same
// string from the same Table share the same ID; the Position travels with
// the specific occurrence, not the name, mirroring how the same component
// name can be declared once and referenced from many call sites.
type Identifier struct {
	id   ID
	name string
	pos  diag.Position
}

// Name returns the identifier's textual name.
func (i Identifier) Name() string { return i.name }

// Pos returns the source position this particular Identifier value was
// minted at (may be zero for synthesized names).
func (i Identifier) Pos() diag.Position { return i.pos }

// ID returns the stable small handle, suitable for use as a map key or
// array index into per-component side tables.
func (i Identifier) ID() ID { return i.id }

// IsZero reports whether this is the zero Identifier (no name interned).
func (i Identifier) IsZero() bool { return i.id == 0 }

func (i Identifier) String() string { return i.name }

// WithPos returns a copy of the identifier carrying a different source
// position, without affecting interning (same ID, same Table entry).
func (i Identifier) WithPos(pos diag.Position) Identifier {
	i.pos = pos
	return i
}

// Table interns names into stable Identifiers, exactly as
// confignew.NameIDBinding bound a mesh port's name to a small integer:
// registering the same name twice returns the same ID, and both directions
// of the mapping stay queryable.
type Table struct {
	mu         sync.RWMutex
	nameToID   map[string]ID
	idToName   map[ID]string
	next       ID
}

// NewTable constructs an empty interning table.
func NewTable() *Table {
	return &Table{
		nameToID: make(map[string]ID),
		idToName: make(map[ID]string),
		next:     1,
	}
}

// Intern returns the Identifier for name, minting a new ID on first sight.
// pos is attached to the returned value but does not affect deduplication —
// calling Intern twice with the same name and different positions yields
// two Identifier values with the same ID.
func (t *Table) Intern(name string, pos diag.Position) Identifier {
	t.mu.Lock()
	defer t.mu.Unlock()

	id, ok := t.nameToID[name]
	if !ok {
		id = t.next
		t.next++
		t.nameToID[name] = id
		t.idToName[id] = name
	}
	return Identifier{id: id, name: name, pos: pos}
}

// Lookup resolves an ID back to its name. ok is false if the table never
// interned that ID.
func (t *Table) Lookup(id ID) (name string, ok bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	name, ok = t.idToName[id]
	return name, ok
}

// MustLookup is Lookup but panics on a missing ID; used in paths that
// already hold an Identifier obtained from this same table, where a miss
// indicates a hash-consing bug rather than user error.
func (t *Table) MustLookup(id ID) string {
	name, ok := t.Lookup(id)
	if !ok {
		panic(fmt.Sprintf("ident: table has no entry for id %d", id))
	}
	return name
}

// Size returns the number of distinct names interned so far.
func (t *Table) Size() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.idToName)
}
