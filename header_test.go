// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package smx

import (
	"bytes"
	"compress/zlib"
	"testing"
)

func TestLoadHeaderInvalidMagic(t *testing.T) {
	data := make([]byte, 24)
	copy(data, []byte{0, 0, 0, 0})
	_, err := LoadHeader(data)
	if err != ErrInvalidMagic {
		t.Fatalf("got %v, want ErrInvalidMagic", err)
	}
}

func TestLoadHeaderTruncated(t *testing.T) {
	_, err := LoadHeader([]byte{0, 0, 0})
	if err == nil {
		t.Fatal("expected an error for a truncated buffer")
	}
}

func TestLoadHeaderInvalidSizes(t *testing.T) {
	tests := []struct {
		name      string
		diskSize  int32
		imageSize int32
		strOff    int32
		dataOff   int32
		wantErr   error
	}{
		{"disk size too small", 10, 24, 24, 24, ErrInvalidSize},
		{"image size too small", 24, 10, 24, 24, ErrInvalidSize},
		{"string table offset too small", 24, 24, 10, 24, ErrInvalidOffset},
		{"data offset too small", 24, 24, 24, 10, ErrInvalidOffset},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := concat(
				u32le(FileMagic),
				u16le(Version10),
				u8b(0),
				i32le(tt.diskSize),
				i32le(tt.imageSize),
				u8b(0),
				i32le(tt.strOff),
				i32le(tt.dataOff),
			)
			_, err := LoadHeader(buf)
			if err != tt.wantErr {
				t.Fatalf("got %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestLoadHeaderNoneRoundTrips(t *testing.T) {
	data := buildContainer(Version10, []namedSection{
		{name: ".names", data: []byte("foo\x00")},
	})
	h, err := LoadHeader(data)
	if err != nil {
		t.Fatalf("LoadHeader: %v", err)
	}
	if int(h.ImageSize) != len(data) {
		t.Fatalf("image size = %d, want %d", h.ImageSize, len(data))
	}
	if !bytes.Equal(h.Image, data) {
		t.Fatal("image bytes should be byte-identical to the input for an uncompressed container")
	}
}

func TestLoadHeaderGZRoundTrips(t *testing.T) {
	plain := []byte("hello from the compressed tail of an smx container")

	var compressed bytes.Buffer
	zw := zlib.NewWriter(&compressed)
	if _, err := zw.Write(plain); err != nil {
		t.Fatal(err)
	}
	zw.Close()

	dataOffset := int32(HeaderSize)
	imageSize := dataOffset + int32(len(plain))

	buf := concat(
		u32le(FileMagic),
		u16le(Version10),
		u8b(1), // GZ
		i32le(int32(HeaderSize+compressed.Len())),
		i32le(imageSize),
		u8b(0),
		i32le(HeaderSize),
		i32le(dataOffset),
		compressed.Bytes(),
	)

	h, err := LoadHeader(buf)
	if err != nil {
		t.Fatalf("LoadHeader: %v", err)
	}
	if int(h.ImageSize) != len(h.Image) {
		t.Fatalf("image size = %d, decoded image len = %d", h.ImageSize, len(h.Image))
	}
	if !bytes.Equal(h.Image[:HeaderSize], buf[:HeaderSize]) {
		t.Fatal("header prefix must be preserved verbatim")
	}
	if !bytes.Equal(h.Image[dataOffset:], plain) {
		t.Fatal("decompressed tail does not match the original plaintext")
	}
}

func TestHeaderEmptySectionCount(t *testing.T) {
	h, err := loadTestHeader(nil)
	if err != nil {
		t.Fatalf("LoadHeader: %v", err)
	}
	if len(h.Sections) != 0 {
		t.Fatalf("expected an empty section directory, got %d entries", len(h.Sections))
	}
}

func TestDebugPacked(t *testing.T) {
	tests := []struct {
		name     string
		version  uint16
		sections []namedSection
		want     bool
	}{
		{"1.0 without dbg.natives", Version10, nil, true},
		{"1.0 with dbg.natives", Version10, []namedSection{{name: ".dbg.natives"}}, false},
		{"1.1 without dbg.natives", Version11, nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, err := LoadHeader(buildContainer(tt.version, tt.sections))
			if err != nil {
				t.Fatalf("LoadHeader: %v", err)
			}
			if h.DebugPacked != tt.want {
				t.Fatalf("DebugPacked = %v, want %v", h.DebugPacked, tt.want)
			}
		})
	}
}

func TestFindSection(t *testing.T) {
	h, err := loadTestHeader([]namedSection{
		{name: ".names", data: []byte("a\x00")},
		{name: ".publics", data: make([]byte, 8)},
	})
	if err != nil {
		t.Fatalf("LoadHeader: %v", err)
	}
	if s := h.FindSection(".publics"); s == nil || s.Size != 8 {
		t.Fatalf("FindSection(.publics) = %+v", s)
	}
	if s := h.FindSection(".missing"); s != nil {
		t.Fatalf("FindSection(.missing) = %+v, want nil", s)
	}
}
