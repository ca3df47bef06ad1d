// Copyright ©2017 The bíogo Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package varint provides the variable-length integer encodings used
// by the CRAM format: ITF8 and LTF8 (re-exported from
// cram/encoding/itf8 and cram/encoding/ltf8) and the unsigned
// big-endian base-128 encoding ("uint7") used by the rANS Nx16
// codec's block headers and frequency tables.
package varint

import (
	"github.com/arand/hts/cram/encoding/itf8"
	"github.com/arand/hts/cram/encoding/ltf8"
)

// ITF8Len returns the number of bytes required to ITF8 encode v.
func ITF8Len(v int32) int { return itf8.Len(v) }

// DecodeITF8 decodes the ITF8 encoding in b.
func DecodeITF8(b []byte) (v int32, n int, ok bool) { return itf8.Decode(b) }

// EncodeITF8 encodes v as ITF8 into b, which must be large enough.
func EncodeITF8(b []byte, v int32) int { return itf8.Encode(b, v) }

// LTF8Len returns the number of bytes required to LTF8 encode v.
func LTF8Len(v int64) int { return ltf8.Len(v) }

// DecodeLTF8 decodes the LTF8 encoding in b.
func DecodeLTF8(b []byte) (v int64, n int, ok bool) { return ltf8.Decode(b) }

// EncodeLTF8 encodes v as LTF8 into b, which must be large enough.
func EncodeLTF8(b []byte, v int64) int { return ltf8.Encode(b, v) }

// Uint7Len returns the number of bytes required to encode u as a
// uint7 value: 7 payload bits per byte, most significant group
// first, continuation signalled by the top bit of every byte but the
// last.
func Uint7Len(u uint32) int {
	n := 1
	for u >>= 7; u != 0; u >>= 7 {
		n++
	}
	return n
}

// DecodeUint7 decodes the uint7 encoding at the start of b, returning
// the value, the number of bytes consumed and whether decoding
// succeeded. Each byte contributes its low 7 bits to the top of the
// accumulator; a cleared top bit ends the value. Decoding fails if b
// is exhausted, or more than 5 groups are seen, before that happens.
func DecodeUint7(b []byte) (v uint32, n int, ok bool) {
	for n < len(b) {
		if n == 5 {
			return 0, n, false
		}
		c := b[n]
		n++
		v = v<<7 | uint32(c&0x7f)
		if c&0x80 == 0 {
			return v, n, true
		}
	}
	return 0, n, false
}

// EncodeUint7 encodes u into b, which must be at least Uint7Len(u)
// bytes long, and returns the number of bytes written. u is split
// into 7-bit groups least-significant first, then emitted most
// significant group first with the continuation bit set on every
// byte but the last.
func EncodeUint7(b []byte, u uint32) int {
	var groups [5]byte
	n := 1
	groups[0] = byte(u & 0x7f)
	u >>= 7
	for u != 0 {
		groups[n] = byte(u & 0x7f)
		u >>= 7
		n++
	}
	for i := 0; i < n; i++ {
		c := groups[n-1-i]
		if i != n-1 {
			c |= 0x80
		}
		b[i] = c
	}
	return n
}
