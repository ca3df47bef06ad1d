// Copyright ©2012 The bíogo Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package bcf

import (
	"bytes"
	"testing"
)

func TestReadValueScalarInt(t *testing.T) {
	tests := []struct {
		name string
		b    []byte
		want int32
	}{
		{"int8", []byte{0x11, 0x08}, 8},
		{"int16", []byte{0x12, 0x0d, 0x00}, 13},
		{"int32", []byte{0x13, 0x15, 0x00, 0x00, 0x00}, 21},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			v, err := readValue(bytes.NewReader(test.b))
			if err != nil {
				t.Fatalf("readValue: %v", err)
			}
			if v == nil || len(v.Ints) != 1 || v.Ints[0] != test.want {
				t.Fatalf("got %#v, want scalar %d", v, test.want)
			}
		})
	}
}

func TestReadValueAbsent(t *testing.T) {
	for _, b := range [][]byte{{0x01}, {0x02}, {0x03}, {0x05}, {0x07}} {
		v, err := readValue(bytes.NewReader(b))
		if err != nil {
			t.Fatalf("readValue(%x): %v", b, err)
		}
		if v != nil {
			t.Fatalf("readValue(%x) = %#v, want nil", b, v)
		}
	}
}

func TestReadValueMissingScalar(t *testing.T) {
	tests := [][]byte{
		{0x11, 0x80},
		{0x12, 0x00, 0x80},
		{0x13, 0x00, 0x00, 0x00, 0x80},
	}
	for _, b := range tests {
		v, err := readValue(bytes.NewReader(b))
		if err != nil {
			t.Fatalf("readValue(%x): %v", b, err)
		}
		if v == nil || len(v.Ints) != 1 || v.Ints[0] != IntMissing {
			t.Fatalf("readValue(%x) = %#v, want a single IntMissing", b, v)
		}
	}
}

// TestReadValueIntegerVector exercises the example from the binning
// invariant test vectors: header declares Number=. Type=Integer, and
// bytes 21 08 80 decode to [8, missing].
func TestReadValueIntegerVector(t *testing.T) {
	v, err := readValue(bytes.NewReader([]byte{0x21, 0x08, 0x80}))
	if err != nil {
		t.Fatalf("readValue: %v", err)
	}
	want := []int32{8, IntMissing}
	if len(v.Ints) != len(want) || v.Ints[0] != want[0] || v.Ints[1] != want[1] {
		t.Fatalf("got %v, want %v", v.Ints, want)
	}
}

func TestReadValueIntegerVectorEnd(t *testing.T) {
	// Declared count 2, but the second int8 slot carries the
	// end-of-vector sentinel: only one value should be returned.
	v, err := readValue(bytes.NewReader([]byte{0x21, 0x37, 0x81}))
	if err != nil {
		t.Fatalf("readValue: %v", err)
	}
	if len(v.Ints) != 1 || v.Ints[0] != 0x37 {
		t.Fatalf("got %v, want [0x37]", v.Ints)
	}
}

func TestReadValueFloat(t *testing.T) {
	v, err := readValue(bytes.NewReader([]byte{0x15, 0x00, 0x00, 0x00, 0x00}))
	if err != nil {
		t.Fatalf("readValue: %v", err)
	}
	if len(v.Floats) != 1 || v.Floats[0] != 0.0 {
		t.Fatalf("got %v, want [0.0]", v.Floats)
	}
}

func TestReadValueCharacterAndString(t *testing.T) {
	v, err := readValue(bytes.NewReader([]byte{0x17, 0x6e}))
	if err != nil {
		t.Fatalf("readValue: %v", err)
	}
	if v.Str != "n" {
		t.Fatalf("got %q, want %q", v.Str, "n")
	}

	v, err = readValue(bytes.NewReader([]byte{0x47, 0x6e, 0x64, 0x6c, 0x73}))
	if err != nil {
		t.Fatalf("readValue: %v", err)
	}
	if v.Str != "ndls" {
		t.Fatalf("got %q, want %q", v.Str, "ndls")
	}
}

func TestReadValueExtendedCount(t *testing.T) {
	// count nibble 15 signals an explicit typed integer length
	// follows: here a scalar int8 value of 20 gives the real count,
	// then 20 int8 elements of value 1.
	var b bytes.Buffer
	b.WriteByte(0xf1)       // type int8, count=15 (extended)
	b.WriteByte(0x11)       // typed int8 scalar descriptor
	b.WriteByte(20)         // the actual count
	for i := 0; i < 20; i++ {
		b.WriteByte(1)
	}
	v, err := readValue(bytes.NewReader(b.Bytes()))
	if err != nil {
		t.Fatalf("readValue: %v", err)
	}
	if len(v.Ints) != 20 {
		t.Fatalf("got %d elements, want 20", len(v.Ints))
	}
}
