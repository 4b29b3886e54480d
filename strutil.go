// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package smx

import (
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
)

// sanitizeUTF8 normalizes a raw byte slice the way the original SMX
// tooling's "from_utf8_lossy" does: ill-formed sequences are replaced
// rather than rejected, so a corrupt name table never blocks parsing.
func sanitizeUTF8(b []byte) string {
	out, _, err := transform.Bytes(runes.ReplaceIllFormed(), b)
	if err != nil {
		return string(b)
	}
	return string(out)
}

// readCString reads a NUL-terminated string starting at offset within
// data and returns it along with the offset one past the terminator.
// The terminator itself is never included in the returned string; if
// no NUL is found before the end of data, the remainder is returned.
func readCString(data []byte, offset int) (string, int) {
	end := offset
	for end < len(data) && data[end] != 0 {
		end++
	}
	s := sanitizeUTF8(data[offset:end])
	if end < len(data) {
		end++
	}
	return s, end
}

// decodeLEB128 reads an unsigned LEB128 varint starting at *offset
// within data, advancing *offset past the consumed bytes.
func decodeLEB128(data []byte, offset *int) uint32 {
	var value uint32
	var shift uint
	for {
		b := data[*offset]
		*offset++
		value |= uint32(b&0x7f) << shift
		if b&0x80 == 0 {
			break
		}
		shift += 7
	}
	return value
}
