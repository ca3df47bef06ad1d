// Copyright ©2017 The bíogo Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cram

import (
	"bytes"
	"errors"
	"fmt"
	"reflect"
	"testing"

	"github.com/arand/hts/cram/rans"
	"github.com/kortschak/utter"
)

func TestReadDefinition(t *testing.T) {
	tests := []struct {
		bytes [26]byte
		want  definition
		err   error
	}{
		{
			bytes: [26]byte{
				'C', 'R', 'A', 'M',
				3,
				0,
				's', 'h', 'a', '1', '-', '0',
			},
			want: definition{
				Magic:   [4]byte{'C', 'R', 'A', 'M'},
				Version: [2]byte{3, 0},
				ID:      [20]byte{'s', 'h', 'a', '1', '-', '0'},
			},
			err: nil,
		},
		{
			bytes: [26]byte{
				'B', 'A', 'M', 0x1,
				3,
				0,
				's', 'h', 'a', '1', '-', '0',
			},
			want: definition{
				Magic:   [4]byte{'B', 'A', 'M', 0x1},
				Version: [2]byte{3, 0},
				ID:      [20]byte{'s', 'h', 'a', '1', '-', '0'},
			},
			err: errors.New(`cram: not a cram file: magic bytes "BAM\x01"`),
		},
	}
	for _, test := range tests {
		var got definition
		err := got.readFrom(bytes.NewReader(test.bytes[:]))
		if fmt.Sprint(err) != fmt.Sprint(test.err) {
			t.Errorf("unexpected error return: got: %q want: %q", err, test.err)
		}

		if got != test.want {
			t.Errorf("unexpected cram definition value:\ngot: %#v\nwant:%#v", got, test.want)
		}
	}
}

func TestReadEOFContainer(t *testing.T) {
	var c Container
	err := c.readFrom(bytes.NewReader(cramEOFmarker))
	if err != nil {
		t.Errorf("failed to read container: %v\n%#v", err, c)
	}
	var b Block
	err = b.readFrom(c.blockData)
	if err != nil {
		t.Errorf("failed to read block: %v\n%#v", err, b)
	}
	t.Log(utter.Sdump(c))
	t.Log(utter.Sdump(b))

	c.blockData = nil
	wantContainer := Container{
		blockLen:  15,
		refID:     -1,
		start:     4542278,
		span:      0,
		nRec:      0,
		recCount:  0,
		bases:     0,
		blocks:    1,
		landmarks: nil,
		crc32:     0x4fd9bd05,
	}
	if !reflect.DeepEqual(c, wantContainer) {
		t.Errorf("unexpected EOF container value:\ngot: %#v\nwant:%#v", c, wantContainer)
	}

	wantBlock := Block{
		method:         rawMethod,
		typ:            compressionHeader,
		contentID:      0,
		compressedSize: 6,
		rawSize:        6,
		blockData:      []byte{0x01, 0x00, 0x01, 0x00, 0x01, 0x00},
		crc32:          0x4b0163ee,
	}
	if !reflect.DeepEqual(b, wantBlock) {
		t.Errorf("unexpected EOF block value:\ngot: %#v\nwant:%#v", b, wantBlock)
	}
}

func TestHasEOFSyntheticStream(t *testing.T) {
	r := bytes.NewReader(append([]byte("not a real container but long enough to pad"), cramEOFmarker...))
	ok, err := HasEOF(r)
	if err != nil {
		t.Fatalf("failed to read EOF: %v", err)
	}
	if !ok {
		t.Error("failed to identify known EOF block appended to a stream")
	}
}

func TestHasEOFMissing(t *testing.T) {
	r := bytes.NewReader(bytes.Repeat([]byte{0}, 64))
	ok, err := HasEOF(r)
	if err != nil {
		t.Fatalf("failed to read EOF: %v", err)
	}
	if ok {
		t.Error("reported EOF marker present in a stream that has none")
	}
}

func TestRansMethodBlock(t *testing.T) {
	raw := bytes.Repeat([]byte("ACGT"), 64)
	enc, err := rans.Encode(raw, rans.Options{})
	if err != nil {
		t.Fatalf("rans.Encode: %v", err)
	}
	b := &Block{
		method:    ransMethod,
		typ:       externalData,
		rawSize:   int32(len(raw)),
		blockData: enc,
	}
	got, err := b.expandBlockdata()
	if err != nil {
		t.Fatalf("expandBlockdata: %v", err)
	}
	if !bytes.Equal(got, raw) {
		t.Errorf("rANS-compressed block did not round trip through Block.expandBlockdata")
	}
}

func TestReaderSingleEOFContainer(t *testing.T) {
	var stream bytes.Buffer
	stream.WriteString("CRAM")
	stream.Write([]byte{3, 0})
	stream.Write(make([]byte, 20))
	stream.Write(cramEOFmarker)

	r, err := NewReader(&stream)
	if err != nil {
		t.Fatalf("NewReader: %v", err)
	}
	if !r.Next() {
		t.Fatalf("expected to read the EOF container, got error: %v", r.Err())
	}
	if r.Next() {
		t.Fatalf("unexpected second container after the EOF marker")
	}
	if err := r.Err(); err != nil {
		t.Errorf("unexpected error after stream exhausted: %v", err)
	}
}
