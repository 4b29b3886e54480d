// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package smx

import "testing"

func namesTable(t *testing.T, pool string) (*Header, *NameTable) {
	t.Helper()
	h, err := loadTestHeader([]namedSection{
		{name: ".names", data: []byte(pool)},
	})
	if err != nil {
		t.Fatalf("LoadHeader: %v", err)
	}
	return h, NewNameTable(h, h.FindSection(".names"))
}

func TestNameTableStringAt(t *testing.T) {
	_, nt := namesTable(t, "foo\x00bar\x00baz\x00")

	tests := []struct {
		index int32
		want  string
	}{
		{0, "foo"},
		{4, "bar"},
		{8, "baz"},
	}
	for _, tt := range tests {
		got, err := nt.StringAt(tt.index)
		if err != nil {
			t.Fatalf("StringAt(%d): %v", tt.index, err)
		}
		if got != tt.want {
			t.Fatalf("StringAt(%d) = %q, want %q", tt.index, got, tt.want)
		}
		// Idempotent: a repeated lookup returns the same value.
		got2, err := nt.StringAt(tt.index)
		if err != nil || got2 != got {
			t.Fatalf("StringAt(%d) not idempotent: %q then %q (err=%v)", tt.index, got, got2, err)
		}
	}
}

func TestNameTableInvalidIndex(t *testing.T) {
	_, nt := namesTable(t, "foo\x00")
	if _, err := nt.StringAt(100); err != ErrInvalidIndex {
		t.Fatalf("got %v, want ErrInvalidIndex", err)
	}
	if _, err := nt.StringAt(-1); err != ErrInvalidIndex {
		t.Fatalf("got %v, want ErrInvalidIndex", err)
	}
}

func TestNameTableGetExtends(t *testing.T) {
	_, nt := namesTable(t, "foo\x00bar\x00baz\x00")

	roots := nt.GetExtends()
	want := []int32{0, 4, 8}
	if len(roots) != len(want) {
		t.Fatalf("GetExtends() = %v, want %v", roots, want)
	}
	for i, r := range roots {
		if r != want[i] {
			t.Fatalf("GetExtends()[%d] = %d, want %d", i, r, want[i])
		}
		s, err := nt.StringAt(r)
		if err != nil {
			t.Fatalf("StringAt(%d): %v", r, err)
		}
		if len(s) == 0 {
			t.Fatalf("root offset %d resolved to an empty string", r)
		}
	}
}
