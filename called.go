// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package smx

import "fmt"

// CalledFunction is a procedure discovered by following CALL targets
// during disassembly rather than listed in the public table.
type CalledFunction struct {
	Address uint32
	Name    string
}

// CalledFunctionsTable is the append-only worklist of discovered
// procedures: every CALL target not already known as a public or a
// prior discovery is recorded here with a synthetic "sub_<hex>" name,
// and queued for disassembly in turn.
type CalledFunctionsTable struct {
	entries []CalledFunction
	known   map[uint32]bool
	cursor  int
}

// NewCalledFunctionsTable builds an empty discovered-functions table.
func NewCalledFunctionsTable() *CalledFunctionsTable {
	return &CalledFunctionsTable{known: make(map[uint32]bool)}
}

// Record adds addr to the table if it is not already a known
// discovery, returning true if a new entry was appended.
func (t *CalledFunctionsTable) Record(addr uint32) bool {
	if t.known[addr] {
		return false
	}
	t.known[addr] = true
	t.entries = append(t.entries, CalledFunction{
		Address: addr,
		Name:    fmt.Sprintf("sub_%x", addr),
	})
	return true
}

// Has reports whether addr has already been discovered.
func (t *CalledFunctionsTable) Has(addr uint32) bool {
	return t.known[addr]
}

// Entries returns the discovered functions, in discovery order.
func (t *CalledFunctionsTable) Entries() []CalledFunction {
	return t.entries
}

// Next returns the next undrained entry and advances the cursor, for
// the facade's worklist loop: entries recorded mid-drain (by CALLs
// found while disassembling a just-discovered function) remain
// visible to subsequent calls since entries only ever grows.
func (t *CalledFunctionsTable) Next() (CalledFunction, bool) {
	if t.cursor >= len(t.entries) {
		return CalledFunction{}, false
	}
	e := t.entries[t.cursor]
	t.cursor++
	return e, true
}

// FindByAddress returns the discovered function at addr, if any.
func (t *CalledFunctionsTable) FindByAddress(addr uint32) (CalledFunction, bool) {
	for _, e := range t.entries {
		if e.Address == addr {
			return e, true
		}
	}
	return CalledFunction{}, false
}
