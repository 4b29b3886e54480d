// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package smx

import (
	"bytes"
	"encoding/binary"
)

// CodeV1VersionJIT1 and CodeV1VersionJIT2 are the two code_version
// values produced by the JIT1/JIT2-era SourcePawn compiler.
const (
	CodeV1VersionJIT1 = 9
	CodeV1VersionJIT2 = 10

	// codeV1FeaturesVersion is the first code_version that carries a
	// trailing reserved "features" word. Its semantics are
	// unspecified; this reader consumes and discards it.
	codeV1FeaturesVersion = 13
)

// CodeV1Header is the leading header of the ".code" section.
type CodeV1Header struct {
	CodeSize    int32
	CellSize    uint8
	CodeVersion uint8
	Flags       uint16
	MainOffset  int32
	CodeOffset  int32

	// Features is always reported as 0; code_version >= 13 carries a
	// reserved word here whose semantics are unspecified upstream.
	Features int32
}

// NewCodeV1Header decodes the fixed-size header at the start of r.
func NewCodeV1Header(r *bytes.Reader) (CodeV1Header, error) {
	var raw struct {
		CodeSize    int32
		CellSize    uint8
		CodeVersion uint8
		Flags       uint16
		MainOffset  int32
		CodeOffset  int32
	}
	if err := binary.Read(r, binary.LittleEndian, &raw); err != nil {
		return CodeV1Header{}, wrapIO(err)
	}

	if raw.CodeVersion >= codeV1FeaturesVersion {
		var discard int32
		if err := binary.Read(r, binary.LittleEndian, &discard); err != nil {
			return CodeV1Header{}, wrapIO(err)
		}
	}

	return CodeV1Header{
		CodeSize:    raw.CodeSize,
		CellSize:    raw.CellSize,
		CodeVersion: raw.CodeVersion,
		Flags:       raw.Flags,
		MainOffset:  raw.MainOffset,
		CodeOffset:  raw.CodeOffset,
		Features:    0,
	}, nil
}

// CodeV1Section wraps the ".code" section's header and exposes the
// range of the embedded bytecode blob within the image.
type CodeV1Section struct {
	header  CodeV1Header
	section *SectionEntry
}

// NewCodeV1Section decodes the ".code" section.
func NewCodeV1Section(h *Header, section *SectionEntry) (*CodeV1Section, error) {
	hdr, err := NewCodeV1Header(bytes.NewReader(h.Bytes(section)))
	if err != nil {
		return nil, err
	}
	return &CodeV1Section{header: hdr, section: section}, nil
}

// Header returns the decoded code header.
func (c *CodeV1Section) Header() CodeV1Header { return c.header }

// CodeStart returns the offset, within the image, of the first
// instruction in the bytecode blob.
func (c *CodeV1Section) CodeStart() int32 {
	return c.section.DataOffset + c.header.CodeOffset
}

// DataHeader is the leading header of the ".data" section.
type DataHeader struct {
	DataSize   uint32
	MemorySize uint32
	DataOffset uint32
}

const dataHeaderSize = 12

// NewDataHeader decodes the fixed-size header at the start of r.
func NewDataHeader(r *bytes.Reader) (DataHeader, error) {
	var h DataHeader
	if err := binary.Read(r, binary.LittleEndian, &h); err != nil {
		return DataHeader{}, wrapIO(err)
	}
	return h, nil
}

// DataSection wraps the ".data" section's header and exposes the
// range of the embedded data blob within the image.
type DataSection struct {
	header  DataHeader
	section *SectionEntry
}

// NewDataSection decodes the ".data" section.
func NewDataSection(h *Header, section *SectionEntry) (*DataSection, error) {
	hdr, err := NewDataHeader(bytes.NewReader(h.Bytes(section)))
	if err != nil {
		return nil, err
	}
	return &DataSection{header: hdr, section: section}, nil
}

// Header returns the decoded data header.
func (d *DataSection) Header() DataHeader { return d.header }

// Blob returns the embedded data blob's byte range within the image.
func (d *DataSection) Blob(h *Header) []byte {
	start := d.section.DataOffset + int32(d.header.DataOffset)
	end := start + int32(d.header.DataSize)
	return h.Image[start:end]
}
