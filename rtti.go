// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package smx

import (
	"bytes"
	"encoding/binary"
)

// rttiListHeader is the 12-byte header leading every RTTI row table:
// a self-reported header size, a per-row stride, and a row count.
type rttiListHeader struct {
	HeaderSize uint32
	RowSize    uint32
	RowCount   uint32
}

const rttiListHeaderSize = 12

// readRTTIListHeader decodes the leading header of an RTTI section and
// enforces that its declared row_size matches wantRowSize. A mismatch
// means this reader's hard-coded row layout for the table no longer
// matches the format, so that one table fails closed rather than being
// silently misdecoded.
func readRTTIListHeader(r *bytes.Reader, wantRowSize uint32) (rttiListHeader, error) {
	var h rttiListHeader
	if err := binary.Read(r, binary.LittleEndian, &h); err != nil {
		return rttiListHeader{}, wrapIO(err)
	}
	if h.RowSize != wantRowSize {
		return rttiListHeader{}, ErrInvalidSize
	}
	return h, nil
}

// RTTIEnumTable holds the ".rtti.enums" section: one name per row,
// followed by three reserved 32-bit words this reader skips.
type RTTIEnumTable struct {
	enums []string
}

const rttiEnumRowSize = 16

// NewRTTIEnumTable decodes the ".rtti.enums" section.
func NewRTTIEnumTable(header *Header, section *SectionEntry, names *NameTable) (*RTTIEnumTable, error) {
	r := bytes.NewReader(header.Bytes(section))
	lh, err := readRTTIListHeader(r, rttiEnumRowSize)
	if err != nil {
		return nil, err
	}

	enums := make([]string, 0, lh.RowCount)
	for i := uint32(0); i < lh.RowCount; i++ {
		var row struct {
			NameOffset int32
			Reserved   [3]int32
		}
		if err := binary.Read(r, binary.LittleEndian, &row); err != nil {
			return nil, wrapIO(err)
		}
		name, err := names.StringAt(row.NameOffset)
		if err != nil {
			return nil, err
		}
		enums = append(enums, name)
	}

	return &RTTIEnumTable{enums: enums}, nil
}

// Enums returns the decoded enum names, in declaration order.
func (t *RTTIEnumTable) Enums() []string { return t.enums }

// RTTIMethod is one row of the ".rtti.methods" section: a named
// function with a pcode range and an offset into the RTTI byte stream
// describing its signature.
type RTTIMethod struct {
	Name       string
	PcodeStart int32
	PcodeEnd   int32
	Signature  int32
}

const rttiMethodRowSize = 16

// RTTIMethodTable holds the ".rtti.methods" section.
type RTTIMethodTable struct {
	methods []RTTIMethod
}

// NewRTTIMethodTable decodes the ".rtti.methods" section.
func NewRTTIMethodTable(header *Header, section *SectionEntry, names *NameTable) (*RTTIMethodTable, error) {
	r := bytes.NewReader(header.Bytes(section))
	lh, err := readRTTIListHeader(r, rttiMethodRowSize)
	if err != nil {
		return nil, err
	}

	methods := make([]RTTIMethod, 0, lh.RowCount)
	for i := uint32(0); i < lh.RowCount; i++ {
		var row struct {
			NameOffset int32
			PcodeStart int32
			PcodeEnd   int32
			Signature  int32
		}
		if err := binary.Read(r, binary.LittleEndian, &row); err != nil {
			return nil, wrapIO(err)
		}
		name, err := names.StringAt(row.NameOffset)
		if err != nil {
			return nil, err
		}
		methods = append(methods, RTTIMethod{
			Name:       name,
			PcodeStart: row.PcodeStart,
			PcodeEnd:   row.PcodeEnd,
			Signature:  row.Signature,
		})
	}

	return &RTTIMethodTable{methods: methods}, nil
}

// Methods returns the decoded methods, in declaration order.
func (t *RTTIMethodTable) Methods() []RTTIMethod { return t.methods }

// RTTINative is one row of the ".rtti.natives" section.
type RTTINative struct {
	Name      string
	Signature int32
}

const rttiNativeRowSize = 8

// RTTINativeTable holds the ".rtti.natives" section.
type RTTINativeTable struct {
	natives []RTTINative
}

// NewRTTINativeTable decodes the ".rtti.natives" section.
func NewRTTINativeTable(header *Header, section *SectionEntry, names *NameTable) (*RTTINativeTable, error) {
	r := bytes.NewReader(header.Bytes(section))
	lh, err := readRTTIListHeader(r, rttiNativeRowSize)
	if err != nil {
		return nil, err
	}

	natives := make([]RTTINative, 0, lh.RowCount)
	for i := uint32(0); i < lh.RowCount; i++ {
		var row struct {
			NameOffset int32
			Signature  int32
		}
		if err := binary.Read(r, binary.LittleEndian, &row); err != nil {
			return nil, wrapIO(err)
		}
		name, err := names.StringAt(row.NameOffset)
		if err != nil {
			return nil, err
		}
		natives = append(natives, RTTINative{Name: name, Signature: row.Signature})
	}

	return &RTTINativeTable{natives: natives}, nil
}

// Natives returns the decoded natives, in declaration order.
func (t *RTTINativeTable) Natives() []RTTINative { return t.natives }

// RTTITypedef is one row of the ".rtti.typedefs" section.
type RTTITypedef struct {
	Name   string
	TypeID int32
}

const rttiTypedefRowSize = 8

// RTTITypedefTable holds the ".rtti.typedefs" section.
type RTTITypedefTable struct {
	typedefs []RTTITypedef
}

// NewRTTITypedefTable decodes the ".rtti.typedefs" section.
func NewRTTITypedefTable(header *Header, section *SectionEntry, names *NameTable) (*RTTITypedefTable, error) {
	r := bytes.NewReader(header.Bytes(section))
	lh, err := readRTTIListHeader(r, rttiTypedefRowSize)
	if err != nil {
		return nil, err
	}

	typedefs := make([]RTTITypedef, 0, lh.RowCount)
	for i := uint32(0); i < lh.RowCount; i++ {
		var row struct {
			NameOffset int32
			TypeID     int32
		}
		if err := binary.Read(r, binary.LittleEndian, &row); err != nil {
			return nil, wrapIO(err)
		}
		name, err := names.StringAt(row.NameOffset)
		if err != nil {
			return nil, err
		}
		typedefs = append(typedefs, RTTITypedef{Name: name, TypeID: row.TypeID})
	}

	return &RTTITypedefTable{typedefs: typedefs}, nil
}

// Typedefs returns the decoded typedefs, in declaration order.
func (t *RTTITypedefTable) Typedefs() []RTTITypedef { return t.typedefs }

// RTTITypeset is one row of the ".rtti.typesets" section: a named
// union of types, described by an offset into the RTTI byte stream.
type RTTITypeset struct {
	Name      string
	Signature int32
}

const rttiTypesetRowSize = 8

// RTTITypesetTable holds the ".rtti.typesets" section.
type RTTITypesetTable struct {
	typesets []RTTITypeset
}

// NewRTTITypesetTable decodes the ".rtti.typesets" section.
func NewRTTITypesetTable(header *Header, section *SectionEntry, names *NameTable) (*RTTITypesetTable, error) {
	r := bytes.NewReader(header.Bytes(section))
	lh, err := readRTTIListHeader(r, rttiTypesetRowSize)
	if err != nil {
		return nil, err
	}

	typesets := make([]RTTITypeset, 0, lh.RowCount)
	for i := uint32(0); i < lh.RowCount; i++ {
		var row struct {
			NameOffset int32
			Signature  int32
		}
		if err := binary.Read(r, binary.LittleEndian, &row); err != nil {
			return nil, wrapIO(err)
		}
		name, err := names.StringAt(row.NameOffset)
		if err != nil {
			return nil, err
		}
		typesets = append(typesets, RTTITypeset{Name: name, Signature: row.Signature})
	}

	return &RTTITypesetTable{typesets: typesets}, nil
}

// Typesets returns the decoded typesets, in declaration order.
func (t *RTTITypesetTable) Typesets() []RTTITypeset { return t.typesets }

// RTTIEnumStruct is one row of the ".rtti.enumstructs" section.
type RTTIEnumStruct struct {
	NameOffset int32
	FirstField int32
	Size       int32
	Name       string
}

const rttiEnumStructRowSize = 12

// RTTIEnumStructTable holds the ".rtti.enumstructs" section.
type RTTIEnumStructTable struct {
	entries []RTTIEnumStruct
}

// NewRTTIEnumStructTable decodes the ".rtti.enumstructs" section.
func NewRTTIEnumStructTable(header *Header, section *SectionEntry, names *NameTable) (*RTTIEnumStructTable, error) {
	r := bytes.NewReader(header.Bytes(section))
	lh, err := readRTTIListHeader(r, rttiEnumStructRowSize)
	if err != nil {
		return nil, err
	}

	entries := make([]RTTIEnumStruct, 0, lh.RowCount)
	for i := uint32(0); i < lh.RowCount; i++ {
		var row struct {
			NameOffset int32
			FirstField int32
			Size       int32
		}
		if err := binary.Read(r, binary.LittleEndian, &row); err != nil {
			return nil, wrapIO(err)
		}
		name, err := names.StringAt(row.NameOffset)
		if err != nil {
			return nil, err
		}
		entries = append(entries, RTTIEnumStruct{
			NameOffset: row.NameOffset,
			FirstField: row.FirstField,
			Size:       row.Size,
			Name:       name,
		})
	}

	return &RTTIEnumStructTable{entries: entries}, nil
}

// Entries returns the decoded enum-struct entries, in declaration order.
func (t *RTTIEnumStructTable) Entries() []RTTIEnumStruct { return t.entries }

// RTTIEnumStructField is one row of the ".rtti.enumstruct_fields"
// section, belonging to the enum-struct whose FirstField row index
// does not exceed it.
type RTTIEnumStructField struct {
	NameOffset int32
	TypeID     int32
	Offset     int32
	Name       string
}

const rttiEnumStructFieldRowSize = 12

// RTTIEnumStructFieldTable holds the ".rtti.enumstruct_fields" section.
type RTTIEnumStructFieldTable struct {
	entries []RTTIEnumStructField
}

// NewRTTIEnumStructFieldTable decodes the ".rtti.enumstruct_fields" section.
func NewRTTIEnumStructFieldTable(header *Header, section *SectionEntry, names *NameTable) (*RTTIEnumStructFieldTable, error) {
	r := bytes.NewReader(header.Bytes(section))
	lh, err := readRTTIListHeader(r, rttiEnumStructFieldRowSize)
	if err != nil {
		return nil, err
	}

	entries := make([]RTTIEnumStructField, 0, lh.RowCount)
	for i := uint32(0); i < lh.RowCount; i++ {
		var row struct {
			NameOffset int32
			TypeID     int32
			Offset     int32
		}
		if err := binary.Read(r, binary.LittleEndian, &row); err != nil {
			return nil, wrapIO(err)
		}
		name, err := names.StringAt(row.NameOffset)
		if err != nil {
			return nil, err
		}
		entries = append(entries, RTTIEnumStructField{
			NameOffset: row.NameOffset,
			TypeID:     row.TypeID,
			Offset:     row.Offset,
			Name:       name,
		})
	}

	return &RTTIEnumStructFieldTable{entries: entries}, nil
}

// Entries returns the decoded fields, in declaration order.
func (t *RTTIEnumStructFieldTable) Entries() []RTTIEnumStructField { return t.entries }

// RTTIClassDef is one row of the ".rtti.classdefs" section: a
// methodmap or struct definition, carrying a 16-byte reserved trailer
// this reader treats as opaque padding.
type RTTIClassDef struct {
	Flags      int32
	NameOffset int32
	FirstField int32
	Name       string
}

const rttiClassDefRowSize = 28

// RTTIClassDefTable holds the ".rtti.classdefs" section.
type RTTIClassDefTable struct {
	defs []RTTIClassDef
}

// NewRTTIClassDefTable decodes the ".rtti.classdefs" section.
func NewRTTIClassDefTable(header *Header, section *SectionEntry, names *NameTable) (*RTTIClassDefTable, error) {
	r := bytes.NewReader(header.Bytes(section))
	lh, err := readRTTIListHeader(r, rttiClassDefRowSize)
	if err != nil {
		return nil, err
	}

	defs := make([]RTTIClassDef, 0, lh.RowCount)
	for i := uint32(0); i < lh.RowCount; i++ {
		var row struct {
			Flags      int32
			NameOffset int32
			FirstField int32
			Reserved   [4]int32
		}
		if err := binary.Read(r, binary.LittleEndian, &row); err != nil {
			return nil, wrapIO(err)
		}
		name, err := names.StringAt(row.NameOffset)
		if err != nil {
			return nil, err
		}
		defs = append(defs, RTTIClassDef{
			Flags:      row.Flags,
			NameOffset: row.NameOffset,
			FirstField: row.FirstField,
			Name:       name,
		})
	}

	return &RTTIClassDefTable{defs: defs}, nil
}

// Defs returns the decoded class defs, in declaration order.
func (t *RTTIClassDefTable) Defs() []RTTIClassDef { return t.defs }

// RTTIField is one row of the ".rtti.fields" section, belonging to
// the classdef whose FirstField row index does not exceed it.
type RTTIField struct {
	Flags      int16
	NameOffset int32
	TypeID     int32
	Name       string
}

const rttiFieldRowSize = 10

// RTTIFieldTable holds the ".rtti.fields" section.
type RTTIFieldTable struct {
	fields []RTTIField
}

// NewRTTIFieldTable decodes the ".rtti.fields" section.
func NewRTTIFieldTable(header *Header, section *SectionEntry, names *NameTable) (*RTTIFieldTable, error) {
	r := bytes.NewReader(header.Bytes(section))
	lh, err := readRTTIListHeader(r, rttiFieldRowSize)
	if err != nil {
		return nil, err
	}

	fields := make([]RTTIField, 0, lh.RowCount)
	for i := uint32(0); i < lh.RowCount; i++ {
		var row struct {
			Flags      int16
			NameOffset int32
			TypeID     int32
		}
		if err := binary.Read(r, binary.LittleEndian, &row); err != nil {
			return nil, wrapIO(err)
		}
		name, err := names.StringAt(row.NameOffset)
		if err != nil {
			return nil, err
		}
		fields = append(fields, RTTIField{
			Flags:      row.Flags,
			NameOffset: row.NameOffset,
			TypeID:     row.TypeID,
			Name:       name,
		})
	}

	return &RTTIFieldTable{fields: fields}, nil
}

// Fields returns the decoded fields, in declaration order.
func (t *RTTIFieldTable) Fields() []RTTIField { return t.fields }
