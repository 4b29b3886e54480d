// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package smx

import (
	"bytes"
	"encoding/binary"
	"sort"
)

// DebugInfoHeader is the leading header of the ".dbg.info" section:
// four legacy row counters, carried for parity with the on-disk
// format but not otherwise consulted by this reader.
type DebugInfoHeader struct {
	NumFiles   int32
	NumLines   int32
	NumSymbols int32
	NumArrays  int32
}

// NewDebugInfoHeader decodes the ".dbg.info" section's fixed header.
func NewDebugInfoHeader(header *Header, section *SectionEntry) (DebugInfoHeader, error) {
	var h DebugInfoHeader
	if err := binary.Read(bytes.NewReader(header.Bytes(section)), binary.LittleEndian, &h); err != nil {
		return DebugInfoHeader{}, wrapIO(err)
	}
	return h, nil
}

// DebugFileEntry maps a code address to the source file active there.
type DebugFileEntry struct {
	Address    uint32
	NameOffset int32
	Name       string
}

const debugFileEntrySize = 8

// DebugFileTable holds the ".dbg.files" section, ordered by address.
type DebugFileTable struct {
	entries []DebugFileEntry
}

// NewDebugFileTable decodes the ".dbg.files" section.
func NewDebugFileTable(header *Header, section *SectionEntry, names *NameTable) (*DebugFileTable, error) {
	rows, err := decodeFixedRows(header, section, debugFileEntrySize, func(r *bytes.Reader) (DebugFileEntry, error) {
		var raw struct {
			Address    uint32
			NameOffset int32
		}
		if err := binary.Read(r, binary.LittleEndian, &raw); err != nil {
			return DebugFileEntry{}, wrapIO(err)
		}
		name, err := names.StringAt(raw.NameOffset)
		if err != nil {
			return DebugFileEntry{}, err
		}
		return DebugFileEntry{Address: raw.Address, NameOffset: raw.NameOffset, Name: name}, nil
	})
	if err != nil {
		return nil, err
	}
	return &DebugFileTable{entries: rows}, nil
}

// Entries returns the decoded file entries, in file (address) order.
func (t *DebugFileTable) Entries() []DebugFileEntry { return t.entries }

// FindByAddress returns the file entry whose address is the greatest
// one not exceeding addr, via a right-biased binary search over the
// sorted address column.
func (t *DebugFileTable) FindByAddress(addr uint32) (DebugFileEntry, bool) {
	n := len(t.entries)
	i := sort.Search(n, func(i int) bool { return t.entries[i].Address > addr })
	if i == 0 {
		return DebugFileEntry{}, false
	}
	return t.entries[i-1], true
}

// DebugLineEntry maps a code address to a 0-based source line number.
type DebugLineEntry struct {
	Address uint32
	Line    int32
}

const debugLineEntrySize = 8

// DebugLineTable holds the ".dbg.lines" section, ordered by address.
type DebugLineTable struct {
	entries []DebugLineEntry
}

// NewDebugLineTable decodes the ".dbg.lines" section.
func NewDebugLineTable(header *Header, section *SectionEntry) (*DebugLineTable, error) {
	rows, err := decodeFixedRows(header, section, debugLineEntrySize, func(r *bytes.Reader) (DebugLineEntry, error) {
		var e DebugLineEntry
		if err := binary.Read(r, binary.LittleEndian, &e); err != nil {
			return DebugLineEntry{}, wrapIO(err)
		}
		return e, nil
	})
	if err != nil {
		return nil, err
	}
	return &DebugLineTable{entries: rows}, nil
}

// Entries returns the decoded line entries, in file (address) order.
func (t *DebugLineTable) Entries() []DebugLineEntry { return t.entries }

// FindByAddress returns the 1-based line number active at addr, via a
// right-biased binary search over the sorted address column. The
// stored (0-based) line is incremented by one to align with the
// conventional 1-based numbering callers expect.
func (t *DebugLineTable) FindByAddress(addr uint32) (int32, bool) {
	n := len(t.entries)
	i := sort.Search(n, func(i int) bool { return t.entries[i].Address > addr })
	if i == 0 {
		return 0, false
	}
	return t.entries[i-1].Line + 1, true
}

// VarScope classifies a DebugVarEntry's storage class.
type VarScope uint8

// Recognized variable scopes; any other on-disk value decodes to
// VarScopeUnknown.
const (
	VarScopeGlobal VarScope = iota
	VarScopeLocal
	VarScopeStatic
	VarScopeArg
	VarScopeUnknown
)

func varScopeFromByte(b uint8) VarScope {
	switch b {
	case 0:
		return VarScopeGlobal
	case 1:
		return VarScopeLocal
	case 2:
		return VarScopeStatic
	case 3:
		return VarScopeArg
	default:
		return VarScopeUnknown
	}
}

// DebugVarEntry describes one global, local, static, or argument
// symbol, with the code range over which it is live.
type DebugVarEntry struct {
	Address    int32
	Scope      VarScope
	NameOffset int32
	Name       string
	CodeStart  int32
	CodeEnd    int32
	TypeID     int32
}

const debugVarEntrySize = 4 + 1 + 4 + 4 + 4 + 4

func decodeDebugVarRow(r *bytes.Reader, names *NameTable) (DebugVarEntry, error) {
	var raw struct {
		Address    int32
		Scope      uint8
		NameOffset int32
		CodeStart  int32
		CodeEnd    int32
		TypeID     int32
	}
	if err := binary.Read(r, binary.LittleEndian, &raw); err != nil {
		return DebugVarEntry{}, wrapIO(err)
	}
	name, err := names.StringAt(raw.NameOffset)
	if err != nil {
		return DebugVarEntry{}, err
	}
	return DebugVarEntry{
		Address:    raw.Address,
		Scope:      varScopeFromByte(raw.Scope),
		NameOffset: raw.NameOffset,
		Name:       name,
		CodeStart:  raw.CodeStart,
		CodeEnd:    raw.CodeEnd,
		TypeID:     raw.TypeID,
	}, nil
}

// DebugGlobalTable holds the ".dbg.globals" section.
type DebugGlobalTable struct {
	entries []DebugVarEntry
}

// NewDebugGlobalTable decodes the ".dbg.globals" section.
func NewDebugGlobalTable(header *Header, section *SectionEntry, names *NameTable) (*DebugGlobalTable, error) {
	rows, err := decodeFixedRows(header, section, debugVarEntrySize, func(r *bytes.Reader) (DebugVarEntry, error) {
		return decodeDebugVarRow(r, names)
	})
	if err != nil {
		return nil, err
	}
	return &DebugGlobalTable{entries: rows}, nil
}

// Entries returns the decoded global entries, in file order.
func (t *DebugGlobalTable) Entries() []DebugVarEntry { return t.entries }

// FindGlobal returns the global symbol declared at addr, if any.
func (t *DebugGlobalTable) FindGlobal(addr int32) (DebugVarEntry, bool) {
	for _, e := range t.entries {
		if e.Address == addr {
			return e, true
		}
	}
	return DebugVarEntry{}, false
}

// DebugLocalTable holds the ".dbg.locals" section.
type DebugLocalTable struct {
	entries []DebugVarEntry
}

// NewDebugLocalTable decodes the ".dbg.locals" section.
func NewDebugLocalTable(header *Header, section *SectionEntry, names *NameTable) (*DebugLocalTable, error) {
	rows, err := decodeFixedRows(header, section, debugVarEntrySize, func(r *bytes.Reader) (DebugVarEntry, error) {
		return decodeDebugVarRow(r, names)
	})
	if err != nil {
		return nil, err
	}
	return &DebugLocalTable{entries: rows}, nil
}

// Entries returns the decoded local entries, in file order.
func (t *DebugLocalTable) Entries() []DebugVarEntry { return t.entries }

// FindLocal returns the local/static/arg symbol declared at addr whose
// live range covers codeAddr, if any.
func (t *DebugLocalTable) FindLocal(codeAddr, addr int32) (DebugVarEntry, bool) {
	for _, e := range t.entries {
		if e.Address == addr && codeAddr >= e.CodeStart && codeAddr < e.CodeEnd {
			return e, true
		}
	}
	return DebugVarEntry{}, false
}

// DebugMethodEntry associates an RTTI method index with the first row
// of ".dbg.locals" belonging to it.
type DebugMethodEntry struct {
	MethodIndex int32
	FirstLocal  int32
}

const debugMethodEntrySize = 8

// DebugMethodTable holds the ".dbg.methods" section.
type DebugMethodTable struct {
	entries []DebugMethodEntry
}

// NewDebugMethodTable decodes the ".dbg.methods" section.
func NewDebugMethodTable(header *Header, section *SectionEntry) (*DebugMethodTable, error) {
	rows, err := decodeFixedRows(header, section, debugMethodEntrySize, func(r *bytes.Reader) (DebugMethodEntry, error) {
		var e DebugMethodEntry
		if err := binary.Read(r, binary.LittleEndian, &e); err != nil {
			return DebugMethodEntry{}, wrapIO(err)
		}
		return e, nil
	})
	if err != nil {
		return nil, err
	}
	return &DebugMethodTable{entries: rows}, nil
}

// Entries returns the decoded method entries, in file order.
func (t *DebugMethodTable) Entries() []DebugMethodEntry { return t.entries }
