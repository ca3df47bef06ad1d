// Copyright ©2012 The bíogo Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package bcf

import (
	"bytes"
	"encoding/binary"
	"io"
	"math"
	"testing"
)

const testHeaderText = `##fileformat=VCFv4.2
##FILTER=<ID=PASS,Description="All filters passed">
##INFO=<ID=AC,Number=.,Type=Integer,Description="Allele count">
##INFO=<ID=HM3,Number=0,Type=Flag,Description="HapMap3 membership">
##FORMAT=<ID=GT,Number=1,Type=String,Description="Genotype">
##contig=<ID=1,length=1000>
#CHROM	POS	ID	REF	ALT	QUAL	FILTER	INFO	FORMAT	SAMPLE1
`

// buildStream assembles a minimal single-record BCF byte stream: magic,
// version, header text, and one site whose INFO AC field matches the
// canonical [8, missing] integer-vector example.
func buildStream(t *testing.T) []byte {
	t.Helper()

	var shared bytes.Buffer
	// fixed 24-byte prefix
	write32(&shared, 0)                    // chrom id (contig "1")
	write32(&shared, 100)                  // pos, 0-based
	write32(&shared, 1)                    // rlen
	write32(&shared, 0x7F800001)           // qual: missing
	write32(&shared, uint32(2)<<16|1)      // n_allele=2, n_info=1
	write32(&shared, uint32(1)<<24|1)      // n_fmt=1, n_sample=1
	shared.WriteByte(0x07)                 // ID: absent
	shared.Write([]byte{0x17, 'A'})        // REF allele
	shared.Write([]byte{0x17, 'C'})        // ALT allele
	shared.Write([]byte{0x11, 0x00})       // FILTER: [PASS] (string map index 0)
	shared.Write([]byte{0x11, 0x01})       // INFO key: AC (string map index 1)
	shared.Write([]byte{0x21, 0x08, 0x80}) // INFO value: [8, missing]

	var indiv bytes.Buffer
	indiv.Write([]byte{0x11, 0x03}) // FORMAT key: GT (string map index 3)
	indiv.WriteByte(0x37)           // column descriptor: char, count 3
	indiv.WriteString("0/1")        // sample 1 value

	var buf bytes.Buffer
	buf.WriteString("BCF")
	buf.Write([]byte{2, 2})
	text := append([]byte(testHeaderText), 0)
	write32(&buf, uint32(len(text)))
	buf.Write(text)

	write32(&buf, uint32(shared.Len()))
	write32(&buf, uint32(indiv.Len()))
	buf.Write(shared.Bytes())
	buf.Write(indiv.Bytes())

	return buf.Bytes()
}

func write32(buf *bytes.Buffer, v uint32) {
	buf.Write(le32(v))
}

func le32(v uint32) []byte {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	return b[:]
}

func TestReaderReadsHeaderAndRecord(t *testing.T) {
	r, err := NewReader(bytes.NewReader(buildStream(t)))
	if err != nil {
		t.Fatalf("NewReader: %v", err)
	}

	h := r.Header()
	if h.FileFormat != "VCFv4.2" {
		t.Errorf("FileFormat = %q", h.FileFormat)
	}

	rec, err := r.Read()
	if err != nil {
		t.Fatalf("Read: %v", err)
	}

	if rec.ChromID != 0 || rec.Pos != 100 || rec.RLen != 1 {
		t.Errorf("got chrom=%d pos=%d rlen=%d", rec.ChromID, rec.Pos, rec.RLen)
	}
	if rec.HasQual {
		t.Errorf("HasQual = true, want false (missing)")
	}
	if rec.Ref != "A" || len(rec.Alt) != 1 || rec.Alt[0] != "C" {
		t.Errorf("Ref=%q Alt=%v", rec.Ref, rec.Alt)
	}
	if len(rec.FilterID) != 1 || rec.FilterID[0] != 0 {
		t.Errorf("FilterID = %v, want [0]", rec.FilterID)
	}

	ac := rec.Get("AC")
	if ac == nil {
		t.Fatal("missing AC info field")
	}
	if len(ac.Ints) != 2 || ac.Ints[0] != 8 || ac.Ints[1] != IntMissing {
		t.Errorf("AC = %v, want [8, missing]", ac.Ints)
	}

	fields, err := rec.Genotypes()
	if err != nil {
		t.Fatalf("Genotypes: %v", err)
	}
	if len(fields) != 1 || fields[0].Key != "GT" {
		t.Fatalf("Genotypes = %#v", fields)
	}
	if len(fields[0].Samples) != 1 || fields[0].Samples[0].Str != "0/1" {
		t.Fatalf("GT sample value = %#v", fields[0].Samples)
	}

	_, err = r.Read()
	if err != io.EOF {
		t.Errorf("second Read error = %v, want io.EOF", err)
	}
}

func TestReaderRejectsBadMagic(t *testing.T) {
	var buf bytes.Buffer
	buf.WriteString("BAM")
	buf.Write([]byte{1, 0})
	_, err := NewReader(&buf)
	if err != errBadMagic {
		t.Errorf("got err %v, want errBadMagic", err)
	}
}

func TestFloatMissingIsNaN(t *testing.T) {
	if !math.IsNaN(float64(FloatMissing)) {
		t.Error("FloatMissing is not NaN")
	}
}
