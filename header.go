// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package smx

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"io"
)

const (
	// FileMagic is the SourcePawn container magic number ("SPFF").
	FileMagic = 0x53504646

	// Version10 is the 1.0 container format version.
	Version10 = 0x0101

	// Version11 is the 1.1 container format version.
	Version11 = 0x0102

	// HeaderSize is the size, in bytes, of the fixed leading header.
	HeaderSize = 24

	// sectionDirEntrySize is the on-disk size of one SectionEntry record.
	sectionDirEntrySize = 12

	dbgNativesSectionName = ".dbg.natives"
)

// CompressionKind identifies how the container's tail is stored on disk.
type CompressionKind uint8

// Recognized compression kinds. Anything other than GZ on disk maps to
// None, matching the format's tolerant reader.
const (
	CompressionNone CompressionKind = iota
	CompressionGZ
)

func (c CompressionKind) String() string {
	if c == CompressionGZ {
		return "GZ"
	}
	return "None"
}

// SectionEntry describes one entry of the section directory: where its
// bytes live in the expanded image, and its resolved name.
type SectionEntry struct {
	NameOffset int32
	DataOffset int32
	Size       int32
	Name       string
}

// Header is the decoded, fixed-size SMX container header, plus the
// expanded image buffer and the resolved section directory.
type Header struct {
	Magic             uint32
	Version           uint16
	Compression       CompressionKind
	DiskSize          int32
	ImageSize         int32
	SectionCount      uint8
	StringTableOffset int32
	DataOffset        int32
	DebugPacked       bool

	// Image is the expanded container buffer; every offset referenced
	// by a SectionEntry or by the code blob is relative to this slice.
	Image []byte

	// Sections is the resolved section directory, in file order.
	Sections []*SectionEntry
}

// rawHeader mirrors the 24-byte on-disk header layout. encoding/binary
// decodes it field-by-field regardless of Go's own struct padding.
type rawHeader struct {
	Magic             uint32
	Version           uint16
	Compression       uint8
	DiskSize          int32
	ImageSize         int32
	SectionCount      uint8
	StringTableOffset int32
	DataOffset        int32
}

type rawSectionEntry struct {
	NameOffset int32
	DataOffset int32
	Size       int32
}

// LoadHeader validates and decodes an SMX container's header, expanding
// a compressed tail into a single owned image buffer and resolving the
// section directory's names against the container's own string table.
func LoadHeader(data []byte) (*Header, error) {
	if len(data) < HeaderSize {
		return nil, wrapIO(io.ErrUnexpectedEOF)
	}

	var raw rawHeader
	if err := binary.Read(bytes.NewReader(data[:HeaderSize]), binary.LittleEndian, &raw); err != nil {
		return nil, wrapIO(err)
	}

	if raw.Magic != FileMagic {
		return nil, ErrInvalidMagic
	}

	if raw.DiskSize < HeaderSize || raw.ImageSize < HeaderSize {
		return nil, ErrInvalidSize
	}

	if raw.StringTableOffset < HeaderSize || raw.DataOffset < HeaderSize {
		return nil, ErrInvalidOffset
	}

	compression := CompressionNone
	if raw.Compression == 1 {
		compression = CompressionGZ
	}

	image, err := expandImage(data, compression, raw.ImageSize, raw.DataOffset)
	if err != nil {
		return nil, err
	}

	h := &Header{
		Magic:             raw.Magic,
		Version:           raw.Version,
		Compression:       compression,
		DiskSize:          raw.DiskSize,
		ImageSize:         raw.ImageSize,
		SectionCount:      raw.SectionCount,
		StringTableOffset: raw.StringTableOffset,
		DataOffset:        raw.DataOffset,
		Image:             image,
	}

	sections, foundDbgNatives, err := readSectionDirectory(h)
	if err != nil {
		return nil, err
	}
	h.Sections = sections
	h.DebugPacked = raw.Version == Version10 && !foundDbgNatives

	return h, nil
}

// expandImage builds the decompressed image buffer: the leading header
// bytes are preserved verbatim, and the remainder is either copied
// as-is or zlib-inflated, per the format's "prefix-preserving"
// compression scheme.
func expandImage(data []byte, compression CompressionKind, imageSize, dataOffset int32) ([]byte, error) {
	image := make([]byte, 0, imageSize)
	image = append(image, data[:HeaderSize]...)

	switch compression {
	case CompressionGZ:
		if int(dataOffset) > len(data) {
			return nil, wrapIO(io.ErrUnexpectedEOF)
		}
		image = append(image, data[HeaderSize:dataOffset]...)

		zr, err := zlib.NewReader(bytes.NewReader(data[dataOffset:]))
		if err != nil {
			return nil, wrapIO(err)
		}
		defer zr.Close()

		inflated, err := io.ReadAll(zr)
		if err != nil {
			return nil, wrapIO(err)
		}
		image = append(image, inflated...)
	default:
		if int(imageSize) > len(data) {
			return nil, wrapIO(io.ErrUnexpectedEOF)
		}
		image = append(image, data[HeaderSize:imageSize]...)
	}

	return image, nil
}

// readSectionDirectory decodes section_count SectionEntry records
// starting at offset 24 of the (already expanded) image, resolving
// each entry's name against the string table.
func readSectionDirectory(h *Header) ([]*SectionEntry, bool, error) {
	count := int(h.SectionCount)
	dirSize := count * sectionDirEntrySize
	if HeaderSize+dirSize > len(h.Image) {
		return nil, false, wrapIO(io.ErrUnexpectedEOF)
	}

	r := bytes.NewReader(h.Image[HeaderSize : HeaderSize+dirSize])
	sections := make([]*SectionEntry, 0, count)
	foundDbgNatives := false

	for i := 0; i < count; i++ {
		var raw rawSectionEntry
		if err := binary.Read(r, binary.LittleEndian, &raw); err != nil {
			return nil, false, wrapIO(err)
		}

		if raw.NameOffset < 0 {
			return nil, false, ErrOffsetOverflow
		}
		if raw.DataOffset < HeaderSize {
			return nil, false, ErrOffsetOverflow
		}
		if raw.Size < 0 {
			return nil, false, ErrSizeOverflow
		}

		nameStart := int(h.StringTableOffset) + int(raw.NameOffset)
		if nameStart > len(h.Image) {
			return nil, false, ErrOffsetOverflow
		}
		name, _ := readCString(h.Image, nameStart)
		if name == dbgNativesSectionName {
			foundDbgNatives = true
		}

		sections = append(sections, &SectionEntry{
			NameOffset: raw.NameOffset,
			DataOffset: raw.DataOffset,
			Size:       raw.Size,
			Name:       name,
		})
	}

	return sections, foundDbgNatives, nil
}

// FindSection returns the first section directory entry with the
// given name, or nil if none matches.
func (h *Header) FindSection(name string) *SectionEntry {
	for _, s := range h.Sections {
		if s.Name == name {
			return s
		}
	}
	return nil
}

// Bytes returns the section's raw content window into the image.
func (h *Header) Bytes(s *SectionEntry) []byte {
	return h.Image[s.DataOffset : s.DataOffset+s.Size]
}
