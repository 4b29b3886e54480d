// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package smx

// NameTable is a string-pool view over one section: a sequence of
// NUL-terminated strings addressed by byte offset into the pool.
// Resolved strings are memoized; the set of root offsets is computed
// lazily, once, on first request.
type NameTable struct {
	header  *Header
	section *SectionEntry

	cache        map[int32]string
	extends      []int32
	extendsKnown bool
}

// NewNameTable builds a name table view over the given section.
func NewNameTable(header *Header, section *SectionEntry) *NameTable {
	return &NameTable{
		header:  header,
		section: section,
		cache:   make(map[int32]string),
	}
}

// StringAt resolves the NUL-terminated string starting at the given
// byte offset within the pool. Successful lookups are cached.
func (nt *NameTable) StringAt(index int32) (string, error) {
	if s, ok := nt.cache[index]; ok {
		return s, nil
	}
	if index < 0 || index >= nt.section.Size {
		return "", ErrInvalidIndex
	}

	start := int(nt.section.DataOffset) + int(index)
	limit := int(nt.section.DataOffset) + int(nt.section.Size)

	end := start
	for end < limit && nt.header.Image[end] != 0 {
		end++
	}
	s := sanitizeUTF8(nt.header.Image[start:end])

	nt.cache[index] = s
	return s, nil
}

// GetExtends returns the root offsets of every string in the pool,
// computed once by scanning the section for NUL boundaries.
func (nt *NameTable) GetExtends() []int32 {
	if nt.extendsKnown {
		return nt.extends
	}

	var lastIndex int32
	for i := int32(0); i < nt.section.Size; i++ {
		if nt.header.Image[int(nt.section.DataOffset)+int(i)] == 0 {
			nt.extends = append(nt.extends, lastIndex)
			lastIndex = i + 1
		}
	}
	nt.extendsKnown = true

	return nt.extends
}
