// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package smx

import (
	"bytes"
	"encoding/binary"
)

// Tag flag bits, packed into the high bits of a TagEntry's raw tag
// value; the low bits are the tag's id.
const (
	TagFlagFixed     uint32 = 0x40000000
	TagFlagFunc      uint32 = 0x20000000
	TagFlagObject    uint32 = 0x10000000
	TagFlagEnum      uint32 = 0x08000000
	TagFlagMethodmap uint32 = 0x04000000
	TagFlagStruct    uint32 = 0x02000000

	tagFlagMask = TagFlagFixed | TagFlagFunc | TagFlagObject |
		TagFlagEnum | TagFlagMethodmap | TagFlagStruct
)

// PublicEntry is one exported function entry.
type PublicEntry struct {
	Address    uint32
	NameOffset int32
	Name       string
}

const publicEntrySize = 8

// PublicTable holds the container's exported function entries.
type PublicTable struct {
	entries []PublicEntry
}

// NewPublicTable decodes the ".publics" section.
func NewPublicTable(header *Header, section *SectionEntry, names *NameTable) (*PublicTable, error) {
	rows, err := decodeFixedRows(header, section, publicEntrySize, func(r *bytes.Reader) (PublicEntry, error) {
		var raw struct {
			Address    uint32
			NameOffset int32
		}
		if err := binary.Read(r, binary.LittleEndian, &raw); err != nil {
			return PublicEntry{}, wrapIO(err)
		}
		name, err := names.StringAt(raw.NameOffset)
		if err != nil {
			return PublicEntry{}, err
		}
		return PublicEntry{Address: raw.Address, NameOffset: raw.NameOffset, Name: name}, nil
	})
	if err != nil {
		return nil, err
	}
	return &PublicTable{entries: rows}, nil
}

// Entries returns the decoded public entries, in file order.
func (t *PublicTable) Entries() []PublicEntry { return t.entries }

// FindByAddress returns the public entry at the given address, if any.
func (t *PublicTable) FindByAddress(addr uint32) (PublicEntry, bool) {
	for _, e := range t.entries {
		if e.Address == addr {
			return e, true
		}
	}
	return PublicEntry{}, false
}

// NativeEntry is one imported (native) function reference.
type NativeEntry struct {
	NameOffset int32
	Name       string
}

const nativeEntrySize = 4

// NativeTable holds the container's native function references.
type NativeTable struct {
	entries []NativeEntry
}

// NewNativeTable decodes the ".natives" section.
func NewNativeTable(header *Header, section *SectionEntry, names *NameTable) (*NativeTable, error) {
	rows, err := decodeFixedRows(header, section, nativeEntrySize, func(r *bytes.Reader) (NativeEntry, error) {
		var nameOffset int32
		if err := binary.Read(r, binary.LittleEndian, &nameOffset); err != nil {
			return NativeEntry{}, wrapIO(err)
		}
		name, err := names.StringAt(nameOffset)
		if err != nil {
			return NativeEntry{}, err
		}
		return NativeEntry{NameOffset: nameOffset, Name: name}, nil
	})
	if err != nil {
		return nil, err
	}
	return &NativeTable{entries: rows}, nil
}

// Entries returns the decoded native entries, in file order.
func (t *NativeTable) Entries() []NativeEntry { return t.entries }

// PubvarEntry is one exported variable entry.
type PubvarEntry struct {
	Address    uint32
	NameOffset int32
	Name       string
}

const pubvarEntrySize = 8

// PubvarTable holds the container's exported variable entries.
type PubvarTable struct {
	entries []PubvarEntry
}

// NewPubvarTable decodes the ".pubvars" section.
func NewPubvarTable(header *Header, section *SectionEntry, names *NameTable) (*PubvarTable, error) {
	rows, err := decodeFixedRows(header, section, pubvarEntrySize, func(r *bytes.Reader) (PubvarEntry, error) {
		var raw struct {
			Address    uint32
			NameOffset int32
		}
		if err := binary.Read(r, binary.LittleEndian, &raw); err != nil {
			return PubvarEntry{}, wrapIO(err)
		}
		name, err := names.StringAt(raw.NameOffset)
		if err != nil {
			return PubvarEntry{}, err
		}
		return PubvarEntry{Address: raw.Address, NameOffset: raw.NameOffset, Name: name}, nil
	})
	if err != nil {
		return nil, err
	}
	return &PubvarTable{entries: rows}, nil
}

// Entries returns the decoded pubvar entries, in file order.
func (t *PubvarTable) Entries() []PubvarEntry { return t.entries }

// TagEntry is one tag definition: a packed 32-bit value whose high
// bits carry flags and whose low bits carry the tag's id.
type TagEntry struct {
	Tag        uint32
	NameOffset int32
	Name       string
}

const tagEntrySize = 8

// ID returns the tag's id, with flag bits masked off.
func (t TagEntry) ID() uint32 { return t.Tag &^ tagFlagMask }

// Flags returns the tag's flag bits, with the id masked off.
func (t TagEntry) Flags() uint32 { return t.Tag & tagFlagMask }

// Value returns the tag's raw packed value.
func (t TagEntry) Value() uint32 { return t.Tag }

// TagTable holds the container's tag definitions.
type TagTable struct {
	entries []TagEntry
	found   map[uint32]*TagEntry
}

// NewTagTable decodes the ".tags" section.
func NewTagTable(header *Header, section *SectionEntry, names *NameTable) (*TagTable, error) {
	rows, err := decodeFixedRows(header, section, tagEntrySize, func(r *bytes.Reader) (TagEntry, error) {
		var raw struct {
			Tag        uint32
			NameOffset int32
		}
		if err := binary.Read(r, binary.LittleEndian, &raw); err != nil {
			return TagEntry{}, wrapIO(err)
		}
		name, err := names.StringAt(raw.NameOffset)
		if err != nil {
			return TagEntry{}, err
		}
		return TagEntry{Tag: raw.Tag, NameOffset: raw.NameOffset, Name: name}, nil
	})
	if err != nil {
		return nil, err
	}
	return &TagTable{entries: rows, found: make(map[uint32]*TagEntry)}, nil
}

// Entries returns the decoded tag entries, in file order.
func (t *TagTable) Entries() []TagEntry { return t.entries }

// FindTag performs a memoized linear search for the first tag entry
// whose id matches tag16. There is no guarantee ids are unique across
// tags with different flag bits, so the first match wins and sticks.
func (t *TagTable) FindTag(tag16 uint32) (TagEntry, bool) {
	if e, ok := t.found[tag16]; ok {
		return *e, true
	}
	for i := range t.entries {
		if t.entries[i].ID() == tag16 {
			t.found[tag16] = &t.entries[i]
			return t.entries[i], true
		}
	}
	return TagEntry{}, false
}

// decodeFixedRows validates that section.Size is a multiple of
// rowSize and decodes section.Size/rowSize rows via decodeRow, in the
// teacher's structUnpack style: a bytes.Reader plus encoding/binary.
func decodeFixedRows[T any](header *Header, section *SectionEntry, rowSize int32, decodeRow func(*bytes.Reader) (T, error)) ([]T, error) {
	if rowSize == 0 || section.Size%rowSize != 0 {
		return nil, ErrInvalidSize
	}
	count := int(section.Size / rowSize)

	r := bytes.NewReader(header.Bytes(section))
	rows := make([]T, 0, count)
	for i := 0; i < count; i++ {
		row, err := decodeRow(r)
		if err != nil {
			return nil, err
		}
		rows = append(rows, row)
	}
	return rows, nil
}
