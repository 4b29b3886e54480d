// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package smx

import (
	"bytes"
	"testing"
)

func codeV1HeaderRow(codeSize int32, cellSize, codeVersion uint8, flags uint16, mainOffset, codeOffset int32, features *int32) []byte {
	row := concat(
		i32le(codeSize),
		u8b(cellSize),
		u8b(codeVersion),
		u16le(flags),
		i32le(mainOffset),
		i32le(codeOffset),
	)
	if features != nil {
		row = concat(row, i32le(*features))
	}
	return row
}

func TestCodeV1HeaderFeaturesDiscarded(t *testing.T) {
	rawFeatures := uint32(0xdeadbeef)
	features := int32(rawFeatures)
	row := codeV1HeaderRow(32, 4, codeV1FeaturesVersion, 0, 0, 16, &features)

	hdr, err := NewCodeV1Header(bytes.NewReader(row))
	if err != nil {
		t.Fatalf("NewCodeV1Header: %v", err)
	}
	if hdr.CodeVersion != codeV1FeaturesVersion {
		t.Fatalf("CodeVersion = %d, want %d", hdr.CodeVersion, codeV1FeaturesVersion)
	}
	if hdr.Features != 0 {
		t.Fatalf("Features = %#x, want 0 (read-and-discarded)", hdr.Features)
	}
}

func TestCodeV1HeaderNoFeaturesWord(t *testing.T) {
	row := codeV1HeaderRow(32, 4, CodeV1VersionJIT2, 0, 0, 16, nil)

	hdr, err := NewCodeV1Header(bytes.NewReader(row))
	if err != nil {
		t.Fatalf("NewCodeV1Header: %v", err)
	}
	if hdr.CodeSize != 32 || hdr.CellSize != 4 || hdr.CodeOffset != 16 {
		t.Fatalf("got %+v", hdr)
	}
}

func TestCodeV1SectionCodeStart(t *testing.T) {
	row := codeV1HeaderRow(8, 4, CodeV1VersionJIT2, 0, 0, 12, nil)
	h, _, sec := buildNamesAndSection(t, "", ".code", row)

	cs, err := NewCodeV1Section(h, sec)
	if err != nil {
		t.Fatalf("NewCodeV1Section: %v", err)
	}
	want := sec.DataOffset + 12
	if cs.CodeStart() != want {
		t.Fatalf("CodeStart() = %d, want %d", cs.CodeStart(), want)
	}
}

func TestDataSectionBlob(t *testing.T) {
	payload := []byte{1, 2, 3, 4}
	row := concat(u32le(uint32(len(payload))), u32le(16), u32le(12), payload)
	h, _, sec := buildNamesAndSection(t, "", ".data", row)

	ds, err := NewDataSection(h, sec)
	if err != nil {
		t.Fatalf("NewDataSection: %v", err)
	}
	got := ds.Blob(h)
	if !bytes.Equal(got, payload) {
		t.Fatalf("Blob() = %v, want %v", got, payload)
	}
}
