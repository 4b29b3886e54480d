// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package smx

import "testing"

func TestTypeBuilderPrimitivesAndModifiers(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want string
	}{
		{"const int", []byte{cbConst, cbInt32}, "const int"},
		{"fixed array", []byte{cbFixedArray, 0x03, cbChar8}, "char[3]"},
		{"array", []byte{cbArray, cbBool}, "bool[]"},
		{"bool", []byte{cbBool}, "bool"},
		{"float", []byte{cbFloat32}, "float"},
		{"any", []byte{cbAny}, "any"},
		{"top function", []byte{cbTopFunction}, "Function"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := newTypeBuilder(tt.data, 0, &RTTIContext{})
			if got := b.decodeNew(); got != tt.want {
				t.Fatalf("decodeNew() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestTypeBuilderFunctionSignatures(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want string
	}{
		{
			"void, one arg",
			[]byte{1, cbVoid, cbInt32},
			"function void (int)",
		},
		{
			"variadic with byref",
			[]byte{2, cbVariadic, cbFloat32, cbByRef, cbInt32, cbBool},
			"function float (int&, bool...)",
		},
		{
			"no args",
			[]byte{0, cbVoid},
			"function void ()",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := newTypeBuilder(tt.data, 0, &RTTIContext{})
			if got := b.decodeFunction(); got != tt.want {
				t.Fatalf("decodeFunction() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestTypeBuilderResolvesNamedIndices(t *testing.T) {
	ctx := &RTTIContext{Enums: &RTTIEnumTable{enums: []string{"Season", "Weather"}}}

	data := concat([]byte{cbEnum}, leb128(1))
	b := newTypeBuilder(data, 0, ctx)
	if got := b.decodeNew(); got != "Weather" {
		t.Fatalf("decodeNew() = %q, want %q", got, "Weather")
	}
}

func TestTypeBuilderUnknownTypeCode(t *testing.T) {
	b := newTypeBuilder([]byte{0xfe}, 0, &RTTIContext{})
	got := b.decodeNew()
	want := "unknown type code: 254"
	if got != want {
		t.Fatalf("decodeNew() = %q, want %q", got, want)
	}
}

func TestRTTIDataTypeFromIDInline(t *testing.T) {
	d := &RTTIData{ctx: &RTTIContext{}}
	// kind=0 (inline), payload packs [cbInt32, 0, 0, 0] as the mini-buffer.
	typeID := int32(cbInt32) << 4
	if got := d.TypeFromID(typeID); got != "int" {
		t.Fatalf("TypeFromID(inline int) = %q, want %q", got, "int")
	}
}

func TestRTTIDataTypeFromIDComplex(t *testing.T) {
	d := &RTTIData{bytes: []byte{cbBool}, ctx: &RTTIContext{}}
	typeID := int32(1) // kind=1 (complex), offset=0
	if got := d.TypeFromID(typeID); got != "bool" {
		t.Fatalf("TypeFromID(complex bool) = %q, want %q", got, "bool")
	}
}

func TestRTTIDataTypeFromIDUnknownKind(t *testing.T) {
	d := &RTTIData{ctx: &RTTIContext{}}
	typeID := int32(0xf) // kind=15, unrecognized
	want := "unknown type_id kind: 15"
	if got := d.TypeFromID(typeID); got != want {
		t.Fatalf("TypeFromID = %q, want %q", got, want)
	}
}

func TestRTTIDataTypesetTypesFromOffset(t *testing.T) {
	data := concat(leb128(2), []byte{cbInt32, cbBool})
	d := &RTTIData{bytes: data, ctx: &RTTIContext{}}

	types := d.TypesetTypesFromOffset(0)
	want := []string{"int", "bool"}
	if len(types) != len(want) {
		t.Fatalf("got %v, want %v", types, want)
	}
	for i, w := range want {
		if types[i] != w {
			t.Fatalf("types[%d] = %q, want %q", i, types[i], w)
		}
	}
}
