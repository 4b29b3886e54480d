// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package smx

// Shared byte-slice builders used across this package's table-driven
// tests. No real .smx fixture ships in this repo, so every test
// assembles a minimal synthetic container by hand.

func u8b(v uint8) []byte { return []byte{v} }

func u16le(v uint16) []byte {
	return []byte{byte(v), byte(v >> 8)}
}

func u32le(v uint32) []byte {
	return []byte{byte(v), byte(v >> 8), byte(v >> 16), byte(v >> 24)}
}

func i32le(v int32) []byte { return u32le(uint32(v)) }

func leb128(v uint32) []byte {
	var out []byte
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if v != 0 {
			b |= 0x80
		}
		out = append(out, b)
		if v == 0 {
			break
		}
	}
	return out
}

func concat(chunks ...[]byte) []byte {
	var out []byte
	for _, c := range chunks {
		out = append(out, c...)
	}
	return out
}

// namedSection is one section's name and raw byte content, as fed to
// buildContainer.
type namedSection struct {
	name string
	data []byte
}

// buildContainer assembles an uncompressed SMX container: a 24-byte
// header, a section directory, the section data blocks, and a
// trailing NUL-terminated name pool, in the layout spec.md §6
// describes.
func buildContainer(version uint16, sections []namedSection) []byte {
	nameOffsets := make([]int32, len(sections))
	var strTable []byte
	for i, s := range sections {
		nameOffsets[i] = int32(len(strTable))
		strTable = append(strTable, []byte(s.name)...)
		strTable = append(strTable, 0)
	}

	dirSize := len(sections) * 12
	dataStart := HeaderSize + dirSize
	dataOffsets := make([]int32, len(sections))
	var blob []byte
	cur := dataStart
	for i, s := range sections {
		dataOffsets[i] = int32(cur)
		blob = append(blob, s.data...)
		cur += len(s.data)
	}
	stringTableOffset := int32(cur)
	total := cur + len(strTable)

	buf := make([]byte, 0, total)
	buf = append(buf, u32le(FileMagic)...)
	buf = append(buf, u16le(version)...)
	buf = append(buf, 0) // compression: none
	buf = append(buf, i32le(int32(total))...)
	buf = append(buf, i32le(int32(total))...)
	buf = append(buf, byte(len(sections)))
	buf = append(buf, i32le(stringTableOffset)...)
	buf = append(buf, i32le(HeaderSize)...)

	for i := range sections {
		buf = append(buf, i32le(nameOffsets[i])...)
		buf = append(buf, i32le(dataOffsets[i])...)
		buf = append(buf, i32le(int32(len(sections[i].data)))...)
	}
	buf = append(buf, blob...)
	buf = append(buf, strTable...)
	return buf
}

// loadTestHeader loads a version 1.0 header built by buildContainer,
// returning LoadHeader's error for the caller to check.
func loadTestHeader(sections []namedSection) (*Header, error) {
	return LoadHeader(buildContainer(Version10, sections))
}
