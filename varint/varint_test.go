// Copyright ©2017 The bíogo Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package varint

import "testing"

func TestUint7RoundTrip(t *testing.T) {
	b := make([]byte, 10)
	for i := uint(0); i < 32; i++ {
		for off := -1; off <= 1; off++ {
			in := uint32(1<<i + off)
			inn := EncodeUint7(b, in)
			wantn := Uint7Len(in)
			if wantn != inn {
				t.Errorf("disagreement in number of encoded bytes required: want=%d need=%d", wantn, inn)
			}
			out, outn, ok := DecodeUint7(b)
			if !ok {
				t.Errorf("failed to decode uint7 bytes: %08b", b[:inn])
			}
			if inn != outn {
				t.Errorf("disagreement in number of encoded bytes: in=%d out=%d", inn, outn)
			}
			if in != out {
				t.Errorf("disagreement in encoded value: in=%d out=%d", in, out)
			}
		}
	}
}

func TestUint7KnownValues(t *testing.T) {
	tests := []struct {
		bytes []byte
		want  uint32
	}{
		{bytes: []byte{0x00}, want: 0},
		{bytes: []byte{0x7f}, want: 0x7f},
		{bytes: []byte{0x81, 0x00}, want: 0x80},
		{bytes: []byte{0x84, 0x49}, want: 585},
		{bytes: []byte{0x89, 0x13}, want: 1171},
		{bytes: []byte{0x8f, 0xff, 0xff, 0xff, 0x7f}, want: 0xffffffff},
	}
	for _, test := range tests {
		got, n, ok := DecodeUint7(test.bytes)
		if !ok {
			t.Errorf("failed to decode uint7 bytes: %08b", test.bytes)
		}
		if n != len(test.bytes) {
			t.Errorf("disagreement in expected number of encoded bytes: n=%d len(b)=%d", n, len(test.bytes))
		}
		if got != test.want {
			t.Errorf("disagreement in decoded value: got=%d want=%d", got, test.want)
		}
	}
}

func TestBitReaderWriterRoundTrip(t *testing.T) {
	widths := []uint{1, 2, 3, 4, 5, 7, 8, 9, 16, 17, 32}
	w := NewBitWriter()
	var written []uint32
	for _, n := range widths {
		v := uint32(1)<<n - 1
		if n == 32 {
			v = 0xffffffff
		}
		written = append(written, v)
		w.WriteBits(v, n)
	}
	r := NewBitReader(w.Bytes())
	for i, n := range widths {
		got, err := r.ReadBits(n)
		if err != nil {
			t.Fatalf("unexpected error reading %d bits: %v", n, err)
		}
		if got != written[i] {
			t.Errorf("bit mismatch at width %d: got=%#x want=%#x", n, got, written[i])
		}
	}
}

func TestBitReaderInsufficientBits(t *testing.T) {
	r := NewBitReader([]byte{0xff})
	if _, err := r.ReadBits(9); err != ErrInsufficientBits {
		t.Errorf("expected ErrInsufficientBits, got %v", err)
	}
}

func TestITF8LTF8ReExport(t *testing.T) {
	b := make([]byte, 5)
	n := EncodeITF8(b, 4542278)
	if n != ITF8Len(4542278) {
		t.Errorf("ITF8 length mismatch: got=%d want=%d", n, ITF8Len(4542278))
	}
	v, vn, ok := DecodeITF8(b)
	if !ok || vn != n || v != 4542278 {
		t.Errorf("ITF8 round trip failed: v=%d vn=%d ok=%v", v, vn, ok)
	}

	b8 := make([]byte, 9)
	n8 := EncodeLTF8(b8, 1<<40)
	v8, vn8, ok8 := DecodeLTF8(b8)
	if !ok8 || vn8 != n8 || v8 != 1<<40 {
		t.Errorf("LTF8 round trip failed: v=%d vn=%d ok=%v", v8, vn8, ok8)
	}
}
