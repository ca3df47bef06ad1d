// Copyright ©2017 The bíogo Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cram

import (
	"fmt"

	"github.com/arand/hts/cram/encoding"
)

// FeatureCode identifies the kind of edit a Feature applies to a read
// during reference-guided reconstruction.
//
// See CRAM spec section 8.5 (features), table of feature codes.
type FeatureCode byte

// The CRAM feature codes, each naming one edit against the reference
// a record's read sequence makes at an in-read position.
const (
	FeatureBases         FeatureCode = 'b' // literal run of bases, used when no reference is available
	FeatureScores        FeatureCode = 'q' // literal run of quality scores
	FeatureReadBase      FeatureCode = 'B' // single base and quality pair
	FeatureSubstitution  FeatureCode = 'X' // substitution matrix code at this position
	FeatureInsertion     FeatureCode = 'I' // run of inserted bases
	FeatureDeletion      FeatureCode = 'D' // run of deleted reference bases
	FeatureInsertBase    FeatureCode = 'i' // single inserted base
	FeatureQualityScore  FeatureCode = 'Q' // single quality score, base taken from the reference
	FeatureReferenceSkip FeatureCode = 'N' // run of skipped reference bases (e.g. an intron)
	FeatureSoftClip      FeatureCode = 'S' // run of soft-clipped bases
	FeaturePadding       FeatureCode = 'P' // run of padding, consuming neither read nor reference
	FeatureHardClip      FeatureCode = 'H' // count of hard-clipped bases, present in neither read nor reference
)

// Feature is one position-anchored edit in a record's feature list.
// Pos is the 1-based position in the read the feature applies at,
// reconstructed from the wire format's delta-from-previous-feature
// encoding.
type Feature struct {
	Code FeatureCode
	Pos  int

	Bases  []byte // Bases, Insertion, SoftClip
	Base   byte   // ReadBase, InsertBase
	Qual   byte   // ReadBase, QualityScore
	Scores []byte // Scores
	Code2  byte   // Substitution: 2-bit code into the substitution matrix row for the reference base
	Length int    // Deletion, ReferenceSkip, Padding, HardClip
}

// decodeFeatures reads n features from src using the encodings
// registered in h's data series map, resolving each feature's
// position from the cumulative feature-position delta series.
func decodeFeatures(h *CompressionHeader, src *encoding.Source, n int) ([]Feature, error) {
	features := make([]Feature, 0, n)
	pos := 0
	for i := 0; i < n; i++ {
		codeVal, ok, err := h.decodeIntSeries(SeriesFeatureCode, src)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, fmt.Errorf("cram: no encoding registered for feature code series %q", SeriesFeatureCode)
		}
		delta, ok, err := h.decodeIntSeries(SeriesFeaturePos, src)
		if err != nil {
			return nil, err
		}
		if ok {
			pos += int(delta)
		} else {
			pos++
		}
		f := Feature{Code: FeatureCode(codeVal), Pos: pos}
		if err := h.decodeFeaturePayload(&f, src); err != nil {
			return nil, err
		}
		features = append(features, f)
	}
	return features, nil
}

// decodeFeaturePayload fills in the fields of f specific to its Code,
// reading them from the data series associated with that feature
// kind.
func (h *CompressionHeader) decodeFeaturePayload(f *Feature, src *encoding.Source) error {
	switch f.Code {
	case FeatureReadBase:
		b, err := h.decodeByteSeries(SeriesBases, src)
		if err != nil {
			return err
		}
		f.Base = b
		q, err := h.decodeByteSeries(SeriesQualityScore, src)
		if err != nil {
			return err
		}
		f.Qual = q
	case FeatureQualityScore:
		q, err := h.decodeByteSeries(SeriesQualityScore, src)
		if err != nil {
			return err
		}
		f.Qual = q
	case FeatureInsertBase:
		b, err := h.decodeByteSeries(SeriesBases, src)
		if err != nil {
			return err
		}
		f.Base = b
	case FeatureSubstitution:
		c, err := h.decodeByteSeries(SeriesSubstitution, src)
		if err != nil {
			return err
		}
		f.Code2 = c
	case FeatureBases, FeatureInsertion, FeatureSoftClip:
		key := SeriesInsertion
		if f.Code == FeatureSoftClip {
			key = SeriesSoftClip
		}
		b, err := h.decodeBytesSeries(key, src)
		if err != nil {
			return err
		}
		f.Bases = b
	case FeatureScores:
		b, err := h.decodeBytesSeries(SeriesBaseQualities, src)
		if err != nil {
			return err
		}
		f.Scores = b
	case FeatureDeletion, FeatureReferenceSkip, FeaturePadding, FeatureHardClip:
		key := map[FeatureCode]string{
			FeatureDeletion:      SeriesDeletion,
			FeatureReferenceSkip: SeriesRefSkip,
			FeaturePadding:       SeriesPadding,
			FeatureHardClip:      SeriesHardClip,
		}[f.Code]
		l, ok, err := h.decodeIntSeries(key, src)
		if err != nil {
			return err
		}
		if ok {
			f.Length = int(l)
		}
	default:
		return fmt.Errorf("cram: unrecognised feature code %q", byte(f.Code))
	}
	return nil
}

func (h *CompressionHeader) decodeIntSeries(key string, src *encoding.Source) (int32, bool, error) {
	enc, ok := h.DataSeries[key]
	if !ok {
		return 0, false, nil
	}
	v, err := enc.DecodeInt(src)
	if err != nil {
		return 0, false, err
	}
	return v, true, nil
}

func (h *CompressionHeader) decodeByteSeries(key string, src *encoding.Source) (byte, error) {
	v, ok, err := h.decodeIntSeries(key, src)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, fmt.Errorf("cram: no encoding registered for series %q", key)
	}
	return byte(v), nil
}

func (h *CompressionHeader) decodeBytesSeries(key string, src *encoding.Source) ([]byte, error) {
	enc, ok := h.DataSeries[key]
	if !ok {
		return nil, fmt.Errorf("cram: no encoding registered for series %q", key)
	}
	return enc.DecodeBytes(src)
}
