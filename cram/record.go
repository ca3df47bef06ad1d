// Copyright ©2017 The bíogo Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cram

import (
	"fmt"

	"github.com/arand/hts/cram/encoding"
	"github.com/arand/hts/sam"
)

// CRAMFlags are the per-record bit flags carried in the CF data
// series, distinct from the BAM flags every record also carries.
//
// See CRAM spec section 8.5.
type CRAMFlags byte

const (
	// FlagQualityStored indicates quality scores are present for
	// this record, rather than implied as all missing.
	FlagQualityStored CRAMFlags = 1 << 0
	// FlagDetached indicates the record carries its own mate
	// information (next fragment id, position, template size)
	// rather than a distance to a downstream mate in the same slice.
	FlagDetached CRAMFlags = 1 << 1
	// FlagMateDownstream indicates a detached record's mate appears
	// later in the same slice and can be resolved without an
	// external lookup.
	FlagMateDownstream CRAMFlags = 1 << 2
	// FlagUnknownBases indicates the read's bases could not be
	// reconstructed against the reference and should read as all N.
	FlagUnknownBases CRAMFlags = 1 << 3
)

// Record is one reconstructed CRAM alignment record. Bases and
// Qualities are populated by Reconstruct; until then they are nil.
type Record struct {
	BAMFlags  sam.Flags
	CRAMFlags CRAMFlags

	RefID          int32
	ReadLength     int32
	AlignmentStart int32
	ReadGroup      int32
	ReadName       string

	// Mate fields, meaningful only when CRAMFlags&FlagDetached != 0.
	MateBAMFlags sam.Flags
	MateRefID    int32
	MatePos      int32
	TemplateSize int32

	// DistanceToNextFragment is meaningful only when CRAMFlags has
	// FlagDetached clear and FlagMateDownstream set: the number of
	// records, within the same slice, to the record's mate.
	DistanceToNextFragment int32

	MappingQuality byte
	TagLineIndex   int32

	Features []Feature

	Bases     []byte
	Qualities []byte
}

// decodeRecord reads one Record from src using h's data series
// encodings, following the field order named for CRAM record
// decoding: BAM flags, CRAM flags, reference id, read length,
// alignment start, read group, an optional read name, mate fields or
// a downstream distance, the tag line index, and the feature list.
func decodeRecord(h *CompressionHeader, src *encoding.Source, prevAlignmentStart *int32) (*Record, error) {
	r := &Record{}

	bf, _, err := h.decodeIntSeries(SeriesBAMFlags, src)
	if err != nil {
		return nil, err
	}
	r.BAMFlags = sam.Flags(bf)

	cf, _, err := h.decodeIntSeries(SeriesCRAMFlags, src)
	if err != nil {
		return nil, err
	}
	r.CRAMFlags = CRAMFlags(cf)

	refID, _, err := h.decodeIntSeries(SeriesRefID, src)
	if err != nil {
		return nil, err
	}
	r.RefID = refID

	rl, _, err := h.decodeIntSeries(SeriesReadLength, src)
	if err != nil {
		return nil, err
	}
	r.ReadLength = rl

	ap, ok, err := h.decodeIntSeries(SeriesAlignmentStart, src)
	if err != nil {
		return nil, err
	}
	if ok {
		if h.Preservation.APDelta {
			*prevAlignmentStart += ap
			r.AlignmentStart = *prevAlignmentStart
		} else {
			r.AlignmentStart = ap
			*prevAlignmentStart = ap
		}
	}

	rg, _, err := h.decodeIntSeries(SeriesReadGroup, src)
	if err != nil {
		return nil, err
	}
	r.ReadGroup = rg

	if h.Preservation.ReadNamesPreserved {
		name, err := h.decodeBytesSeries(SeriesReadName, src)
		if err != nil {
			return nil, err
		}
		r.ReadName = string(name)
	}

	if r.CRAMFlags&FlagDetached != 0 {
		mf, _, err := h.decodeIntSeries(SeriesNextMateFlags, src)
		if err != nil {
			return nil, err
		}
		r.MateBAMFlags = sam.Flags(mf)
		if !h.Preservation.ReadNamesPreserved {
			name, err := h.decodeBytesSeries(SeriesReadName, src)
			if err != nil {
				return nil, err
			}
			r.ReadName = string(name)
		}
		ns, _, err := h.decodeIntSeries(SeriesNextFragmentID, src)
		if err != nil {
			return nil, err
		}
		r.MateRefID = ns
		np, _, err := h.decodeIntSeries(SeriesNextMatePos, src)
		if err != nil {
			return nil, err
		}
		r.MatePos = np
		ts, _, err := h.decodeIntSeries(SeriesTemplateSize, src)
		if err != nil {
			return nil, err
		}
		r.TemplateSize = ts
	} else if r.CRAMFlags&FlagMateDownstream != 0 {
		nf, _, err := h.decodeIntSeries(SeriesDistToNextFrag, src)
		if err != nil {
			return nil, err
		}
		r.DistanceToNextFragment = nf
	}

	tl, _, err := h.decodeIntSeries(SeriesTagLineIndex, src)
	if err != nil {
		return nil, err
	}
	r.TagLineIndex = tl

	fn, _, err := h.decodeIntSeries(SeriesFeatureCount, src)
	if err != nil {
		return nil, err
	}
	r.Features, err = decodeFeatures(h, src, int(fn))
	if err != nil {
		return nil, err
	}

	mq, ok, err := h.decodeIntSeries(SeriesMappingQuality, src)
	if err != nil {
		return nil, err
	}
	if ok {
		r.MappingQuality = byte(mq)
	}

	if r.CRAMFlags&FlagQualityStored == 0 {
		r.Qualities = make([]byte, r.ReadLength)
		for i := range r.Qualities {
			r.Qualities[i] = 0xff // missing quality sentinel, as in BAM
		}
	}

	return r, nil
}

// DecodeRecords reads count records from the core and external
// streams of a slice, in the order the compression header's data
// series map specifies they were written.
func DecodeRecords(h *CompressionHeader, src *encoding.Source, count int) ([]*Record, error) {
	records := make([]*Record, count)
	var prevStart int32
	for i := range records {
		r, err := decodeRecord(h, src, &prevStart)
		if err != nil {
			return nil, fmt.Errorf("cram: record %d: %w", i, err)
		}
		records[i] = r
	}
	resolveMates(records)
	return records, nil
}

// resolveMates fills in mate reference id and position for records
// whose mate is recorded only as a distance to a downstream fragment
// in the same slice, following the two-pass scheme CRAM uses to avoid
// repeating each pair's mate fields twice.
func resolveMates(records []*Record) {
	for i, r := range records {
		if r.CRAMFlags&FlagDetached != 0 || r.CRAMFlags&FlagMateDownstream == 0 {
			continue
		}
		j := i + int(r.DistanceToNextFragment) + 1
		if j < 0 || j >= len(records) {
			continue
		}
		mate := records[j]
		r.MateRefID = mate.RefID
		r.MatePos = mate.AlignmentStart
		mate.MateRefID = r.RefID
		mate.MatePos = r.AlignmentStart
		if r.ReadName == "" {
			r.ReadName = mate.ReadName
		} else if mate.ReadName == "" {
			mate.ReadName = r.ReadName
		}
	}
}

// Reconstruct builds the read's base and quality sequences by walking
// ref, the reference sequence from its first base (ref[0] is 1-based
// position 1, so r.AlignmentStart indexes ref[r.AlignmentStart-1]),
// and applying r.Features in order. Insertions,
// soft clips and padding consume the read but not the reference;
// deletions and reference skips consume the reference but not the
// read; substitutions and plain matches consume both. Reference
// positions outside a nil or too-short ref read as N; the
// FlagUnknownBases flag produces an all-N read.
func (r *Record) Reconstruct(ref []byte, subMatrix [5][4]byte) {
	bases := make([]byte, 0, r.ReadLength)
	quals := make([]byte, 0, r.ReadLength)
	refPos := int(r.AlignmentStart) - 1 // 0-based into ref
	readPos := 0

	nextFeature := 0
	for readPos < int(r.ReadLength) {
		var f *Feature
		if nextFeature < len(r.Features) && r.Features[nextFeature].Pos == readPos+1 {
			f = &r.Features[nextFeature]
			nextFeature++
		}
		if f == nil {
			bases = append(bases, refBaseAt(ref, refPos))
			quals = append(quals, 0xff)
			refPos++
			readPos++
			continue
		}
		switch f.Code {
		case FeatureReadBase:
			bases = append(bases, f.Base)
			quals = append(quals, f.Qual)
			refPos++
			readPos++
		case FeatureSubstitution:
			row := baseRow(refBaseAt(ref, refPos))
			base := byte('N')
			if row >= 0 && int(f.Code2) < 4 {
				base = subMatrix[row][f.Code2]
			}
			bases = append(bases, base)
			quals = append(quals, 0xff)
			refPos++
			readPos++
		case FeatureQualityScore:
			bases = append(bases, refBaseAt(ref, refPos))
			quals = append(quals, f.Qual)
			refPos++
			readPos++
		case FeatureInsertBase:
			bases = append(bases, f.Base)
			quals = append(quals, 0xff)
			readPos++
		case FeatureInsertion, FeatureSoftClip, FeatureBases:
			bases = append(bases, f.Bases...)
			for range f.Bases {
				quals = append(quals, 0xff)
			}
			readPos += len(f.Bases)
		case FeatureScores:
			for _, q := range f.Scores {
				bases = append(bases, refBaseAt(ref, refPos))
				quals = append(quals, q)
				refPos++
				readPos++
			}
		case FeatureDeletion, FeatureReferenceSkip:
			refPos += f.Length
		case FeaturePadding, FeatureHardClip:
			// Consumes neither the read nor the reference.
		}
	}

	if r.CRAMFlags&FlagUnknownBases != 0 {
		for i := range bases {
			bases[i] = 'N'
		}
	}

	r.Bases = bases
	if r.CRAMFlags&FlagQualityStored != 0 {
		r.Qualities = quals
	}
}

func refBaseAt(ref []byte, pos int) byte {
	if pos < 0 || pos >= len(ref) {
		return 'N'
	}
	return ref[pos]
}

func baseRow(b byte) int {
	for i, c := range baseOrder {
		if c == b {
			return i
		}
	}
	return -1
}
