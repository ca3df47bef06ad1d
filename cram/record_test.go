// Copyright ©2017 The bíogo Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cram

import (
	"bytes"
	"io"
	"testing"

	"github.com/arand/hts/cram/encoding"
)

// externalOf returns an External encoding reading ITF-8 values one at
// a time from a content id dedicated to series.
func externalOf(id int32) *encoding.Encoding {
	return &encoding.Encoding{Kind: encoding.External, ExternalID: id}
}

func itf8Stream(vs ...int32) []byte {
	var buf bytes.Buffer
	for _, v := range vs {
		buf.Write(hitf8(v))
	}
	return buf.Bytes()
}

func newByteReader(b []byte) io.ByteReader {
	return bytes.NewReader(b)
}

func TestDecodeRecordsMinimal(t *testing.T) {
	h := &CompressionHeader{
		Preservation: defaultPreservationMap(),
		DataSeries:   make(map[string]*encoding.Encoding),
		TagEncodings: make(map[int32]*encoding.Encoding),
	}
	h.Preservation.ReadNamesPreserved = false

	ids := map[string]int32{
		SeriesBAMFlags:       1,
		SeriesCRAMFlags:      2,
		SeriesRefID:          3,
		SeriesReadLength:     4,
		SeriesAlignmentStart: 5,
		SeriesReadGroup:      6,
		SeriesTagLineIndex:   7,
		SeriesFeatureCount:   8,
		SeriesMappingQuality: 9,
	}
	externals := make(map[int32]io.ByteReader)
	for key, id := range ids {
		h.DataSeries[key] = externalOf(id)
	}

	externals[ids[SeriesBAMFlags]] = newByteReader(itf8Stream(0))
	externals[ids[SeriesCRAMFlags]] = newByteReader(itf8Stream(0))
	externals[ids[SeriesRefID]] = newByteReader(itf8Stream(0))
	externals[ids[SeriesReadLength]] = newByteReader(itf8Stream(4))
	externals[ids[SeriesAlignmentStart]] = newByteReader(itf8Stream(100))
	externals[ids[SeriesReadGroup]] = newByteReader(itf8Stream(-1))
	externals[ids[SeriesTagLineIndex]] = newByteReader(itf8Stream(-1))
	externals[ids[SeriesFeatureCount]] = newByteReader(itf8Stream(0))
	externals[ids[SeriesMappingQuality]] = newByteReader(itf8Stream(60))

	src := &encoding.Source{Externals: externals}
	records, err := DecodeRecords(h, src, 1)
	if err != nil {
		t.Fatalf("DecodeRecords: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("got %d records, want 1", len(records))
	}
	r := records[0]
	if r.ReadLength != 4 || r.AlignmentStart != 100 || r.MappingQuality != 60 {
		t.Errorf("got %#v", r)
	}
	if len(r.Features) != 0 {
		t.Errorf("got %d features, want 0", len(r.Features))
	}
}

func TestRecordReconstructNoFeatures(t *testing.T) {
	r := &Record{ReadLength: 5, AlignmentStart: 2, CRAMFlags: FlagQualityStored}
	ref := []byte("AACCGGTT")
	r.Reconstruct(ref, [5][4]byte{})
	if string(r.Bases) != "ACCGG" {
		t.Errorf("Bases = %q, want %q", r.Bases, "ACCGG")
	}
}

func TestRecordReconstructSubstitution(t *testing.T) {
	var sm [5][4]byte
	sm[baseRow('A')] = [4]byte{'C', 'G', 'T', 'N'}
	r := &Record{
		ReadLength:     3,
		AlignmentStart: 1,
		CRAMFlags:      FlagQualityStored,
		Features:       []Feature{{Code: FeatureSubstitution, Pos: 2, Code2: 1}},
	}
	ref := []byte("AAA")
	r.Reconstruct(ref, sm)
	if string(r.Bases) != "AGA" {
		t.Errorf("Bases = %q, want %q", r.Bases, "AGA")
	}
}

func TestRecordReconstructDeletion(t *testing.T) {
	r := &Record{
		ReadLength:     3,
		AlignmentStart: 1,
		CRAMFlags:      FlagQualityStored,
		Features:       []Feature{{Code: FeatureDeletion, Pos: 2, Length: 2}},
	}
	ref := []byte("ACGTAA")
	r.Reconstruct(ref, [5][4]byte{})
	// position 1 matches A, deletion skips C,G in the reference
	// without consuming read positions, then positions 2-3 resume
	// matching from the reference at T,A.
	if string(r.Bases) != "ATA" {
		t.Errorf("Bases = %q, want %q", r.Bases, "ATA")
	}
}

func TestResolveMatesDownstream(t *testing.T) {
	records := []*Record{
		{RefID: 0, AlignmentStart: 10, CRAMFlags: FlagMateDownstream, DistanceToNextFragment: 0, ReadName: "r1"},
		{RefID: 0, AlignmentStart: 20},
	}
	resolveMates(records)
	if records[0].MatePos != 20 || records[1].MatePos != 10 {
		t.Errorf("got mate positions %d, %d", records[0].MatePos, records[1].MatePos)
	}
	if records[1].ReadName != "r1" {
		t.Errorf("mate read name not propagated: %q", records[1].ReadName)
	}
}
