// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package smx

import "fmt"

// RTTI byte-stream kind tags, as laid out in the ".rtti.data" blob.
const (
	cbBool        = 0x01
	cbInt32       = 0x06
	cbFloat32     = 0x0c
	cbChar8       = 0x0e
	cbAny         = 0x10
	cbTopFunction = 0x11

	cbFixedArray = 0x30
	cbArray      = 0x31
	cbFunction   = 0x32

	cbEnum        = 0x42
	cbTypedef     = 0x43
	cbTypeset     = 0x44
	cbStruct      = 0x45
	cbEnumStruct  = 0x46

	cbVoid     = 0x70
	cbVariadic = 0x71
	cbByRef    = 0x72
	cbConst    = 0x73

	typeIDInline  = 0x0
	typeIDComplex = 0x1
)

// RTTIContext resolves indices found in the RTTI byte stream against
// the container's own RTTI row tables. Any table may be nil if its
// section is absent; a lookup against a nil table, or past its last
// row, yields a placeholder such as "enum#3" rather than failing the
// whole decode.
type RTTIContext struct {
	Enums        *RTTIEnumTable
	Typedefs     *RTTITypedefTable
	Typesets     *RTTITypesetTable
	ClassDefs    *RTTIClassDefTable
	EnumStructs  *RTTIEnumStructTable
}

func (c *RTTIContext) enumName(index int32) string {
	if c.Enums == nil || int(index) >= len(c.Enums.enums) {
		return fmt.Sprintf("enum#%d", index)
	}
	return c.Enums.enums[index]
}

func (c *RTTIContext) typedefName(index int32) string {
	if c.Typedefs == nil || int(index) >= len(c.Typedefs.typedefs) {
		return fmt.Sprintf("typedef#%d", index)
	}
	return c.Typedefs.typedefs[index].Name
}

func (c *RTTIContext) typesetName(index int32) string {
	if c.Typesets == nil || int(index) >= len(c.Typesets.typesets) {
		return fmt.Sprintf("typeset#%d", index)
	}
	return c.Typesets.typesets[index].Name
}

func (c *RTTIContext) structName(index int32) string {
	if c.ClassDefs == nil || int(index) >= len(c.ClassDefs.defs) {
		return fmt.Sprintf("struct#%d", index)
	}
	return c.ClassDefs.defs[index].Name
}

func (c *RTTIContext) enumStructName(index int32) string {
	if c.EnumStructs == nil || int(index) >= len(c.EnumStructs.entries) {
		return fmt.Sprintf("enumstruct#%d", index)
	}
	return c.EnumStructs.entries[index].Name
}

// RTTIData is a view over the ".rtti.data" section, decoding
// type_ids and offsets into human-readable type names.
type RTTIData struct {
	bytes []byte
	ctx   *RTTIContext
}

// NewRTTIData builds an RTTI byte-stream decoder over the
// ".rtti.data" section.
func NewRTTIData(header *Header, section *SectionEntry, ctx *RTTIContext) *RTTIData {
	return &RTTIData{bytes: header.Bytes(section), ctx: ctx}
}

// TypeFromID decodes a packed type_id: a 4-bit kind tag in the low
// bits, and either an inline-encoded type byte sequence or an offset
// into the RTTI byte stream in the remaining bits.
func (d *RTTIData) TypeFromID(typeID int32) string {
	kind := typeID & 0xf
	payload := (typeID >> 4) & 0x0fffffff

	if kind == typeIDInline {
		inline := []byte{
			byte(payload),
			byte(payload >> 8),
			byte(payload >> 16),
			byte(payload >> 24),
		}
		b := newTypeBuilder(inline, 0, d.ctx)
		return b.decodeNew()
	}

	if kind != typeIDComplex {
		return fmt.Sprintf("unknown type_id kind: %d", kind)
	}

	b := newTypeBuilder(d.bytes, payload, d.ctx)
	return b.decodeNew()
}

// FunctionTypeFromOffset decodes a function signature starting at the
// given offset into the RTTI byte stream.
func (d *RTTIData) FunctionTypeFromOffset(offset int32) string {
	b := newTypeBuilder(d.bytes, offset, d.ctx)
	return b.decodeFunction()
}

// TypesetTypesFromOffset decodes a typeset's member type list starting
// at the given offset: a LEB128 count followed by that many types.
func (d *RTTIData) TypesetTypesFromOffset(offset int32) []string {
	cursor := int(offset)
	count := decodeLEB128(d.bytes, &cursor)

	b := newTypeBuilder(d.bytes, int32(cursor), d.ctx)
	types := make([]string, 0, count)
	for i := uint32(0); i < count; i++ {
		types = append(types, b.decodeNew())
	}
	return types
}

// typeBuilder walks the RTTI byte stream producing a type name, with
// a sticky "const" flag that survives across recursive decode calls
// for the current, non-dependent type.
type typeBuilder struct {
	bytes   []byte
	offset  int32
	isConst bool
	ctx     *RTTIContext
}

func newTypeBuilder(bytes []byte, offset int32, ctx *RTTIContext) *typeBuilder {
	return &typeBuilder{bytes: bytes, offset: offset, ctx: ctx}
}

// decodeNew decodes one type, resetting the const indicator so it
// does not leak into a type that does not depend on it.
func (b *typeBuilder) decodeNew() string {
	wasConst := b.isConst
	b.isConst = false

	result := b.decode()
	if b.isConst {
		result = "const " + result
	}

	b.isConst = wasConst
	return result
}

func (b *typeBuilder) decode() string {
	if b.match(cbConst) {
		b.isConst = true
	}

	tag := b.bytes[b.offset]
	b.offset++

	switch tag {
	case cbBool:
		return "bool"
	case cbInt32:
		return "int"
	case cbFloat32:
		return "float"
	case cbChar8:
		return "char"
	case cbAny:
		return "any"
	case cbTopFunction:
		return "Function"
	case cbFixedArray:
		index := b.decodeUint()
		inner := b.decode()
		return fmt.Sprintf("%s[%d]", inner, index)
	case cbArray:
		inner := b.decode()
		return inner + "[]"
	case cbEnum:
		index := b.decodeUint()
		return b.ctx.enumName(int32(index))
	case cbTypedef:
		index := b.decodeUint()
		return b.ctx.typedefName(int32(index))
	case cbTypeset:
		index := b.decodeUint()
		return b.ctx.typesetName(int32(index))
	case cbStruct:
		index := b.decodeUint()
		return b.ctx.structName(int32(index))
	case cbFunction:
		return b.decodeFunction()
	case cbEnumStruct:
		index := b.decodeUint()
		return b.ctx.enumStructName(int32(index))
	default:
		return fmt.Sprintf("unknown type code: %d", tag)
	}
}

func (b *typeBuilder) decodeFunction() string {
	argc := int(b.bytes[b.offset])
	b.offset++

	variadic := b.match(cbVariadic)

	var returnType string
	if b.bytes[b.offset] == cbVoid {
		returnType = "void"
		b.offset++
	} else {
		returnType = b.decodeNew()
	}

	argv := make([]string, 0, argc)
	for i := 0; i < argc; i++ {
		isByRef := b.match(cbByRef)
		text := b.decodeNew()
		if isByRef {
			text += "&"
		}
		argv = append(argv, text)
	}

	signature := fmt.Sprintf("function %s (", returnType)
	for i, a := range argv {
		if i > 0 {
			signature += ", "
		}
		signature += a
	}
	if variadic {
		signature += "..."
	}
	signature += ")"

	return signature
}

// match consumes the given byte if it is next in the stream.
func (b *typeBuilder) match(want byte) bool {
	if b.bytes[b.offset] != want {
		return false
	}
	b.offset++
	return true
}

// decodeUint reads an unsigned LEB128 varint from the stream.
func (b *typeBuilder) decodeUint() uint32 {
	offset := int(b.offset)
	v := decodeLEB128(b.bytes, &offset)
	b.offset = int32(offset)
	return v
}
