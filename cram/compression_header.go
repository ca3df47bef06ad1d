// Copyright ©2017 The bíogo Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cram

import (
	"bytes"
	"fmt"
	"io"

	"github.com/arand/hts/cram/encoding"
)

// dataSeries names the ~30 CRAM data series a compression header's
// encoding map assigns an Encoding to.
//
// See CRAM spec section 8.4, table of data series.
const (
	SeriesBAMFlags       = "BF"
	SeriesCRAMFlags      = "CF"
	SeriesRefID          = "RI"
	SeriesReadLength     = "RL"
	SeriesAlignmentStart = "AP"
	SeriesReadGroup      = "RG"
	SeriesReadName       = "RN"
	SeriesNextMateFlags  = "MF"
	SeriesNextFragmentID = "NS"
	SeriesNextMatePos    = "NP"
	SeriesTemplateSize   = "TS"
	SeriesDistToNextFrag = "NF"
	SeriesTagLineIndex   = "TL"
	SeriesFeatureCount   = "FN"
	SeriesFeatureCode    = "FC"
	SeriesFeaturePos     = "FP"
	SeriesQualityScore   = "QS"
	SeriesBaseQualities  = "QQ"
	SeriesBases          = "BA"
	SeriesSubstitution   = "BS"
	SeriesInsertion      = "IN"
	SeriesSoftClip       = "SC"
	SeriesHardClip       = "HC"
	SeriesPadding        = "PD"
	SeriesDeletion       = "DL"
	SeriesRefSkip        = "RS"
	SeriesMappingQuality = "MQ"
	SeriesTagCount       = "TC"
	SeriesTagLen         = "TN"
)

// PreservationMap holds the boolean preservation flags, substitution
// matrix and tag dictionary carried in a CRAM compression header.
//
// See CRAM spec section 8.4, preservation map.
type PreservationMap struct {
	// ReadNamesPreserved reports whether read names (RN key true)
	// are stored explicitly rather than generated at mate
	// resolution.
	ReadNamesPreserved bool
	// APDelta reports whether alignment start is stored as a delta
	// from the previous record's alignment start within a slice.
	APDelta bool
	// ReferenceRequired reports whether the reference sequence must
	// be resolvable to decode records (substitutions, deletions and
	// reference skips need it).
	ReferenceRequired bool

	// SubstitutionMatrix is the 5x4 (ref_base, code) -> read_base
	// table, indexed by the base order ACGTN for rows and 0..3 for
	// columns.
	SubstitutionMatrix [5][4]byte

	// TagDictionary is the list of tag-id tuples a record's tag line
	// index selects from; each entry is a run of (name[2], type)
	// triples packed as the int32 (name[0]<<16|name[1]<<8|type).
	TagDictionary [][]int32
}

var baseOrder = [5]byte{'A', 'C', 'G', 'T', 'N'}

func defaultPreservationMap() PreservationMap {
	m := PreservationMap{ReadNamesPreserved: true, ReferenceRequired: true}
	for i := range m.SubstitutionMatrix {
		for j := range m.SubstitutionMatrix[i] {
			m.SubstitutionMatrix[i][j] = 'N'
		}
	}
	return m
}

// CompressionHeader is a decoded CRAM compression header block: the
// preservation map plus the data-series and tag encoding maps that
// tell a slice decoder how to read every field of every record.
//
// See CRAM spec section 8.4.
type CompressionHeader struct {
	Preservation PreservationMap
	DataSeries   map[string]*encoding.Encoding
	TagEncodings map[int32]*encoding.Encoding
}

// readCompressionHeader decodes a CompressionHeader from the
// (already decompressed) body of a compressionHeader-typed Block.
func readCompressionHeader(body []byte) (*CompressionHeader, error) {
	h := &CompressionHeader{
		Preservation: defaultPreservationMap(),
		DataSeries:   make(map[string]*encoding.Encoding),
		TagEncodings: make(map[int32]*encoding.Encoding),
	}
	er := errorReader{r: bytes.NewReader(body)}

	presBuf := readByteCountedBlock(&er)
	if er.err != nil {
		return nil, er.err
	}
	if err := h.Preservation.readFrom(presBuf); err != nil {
		return nil, err
	}

	dsBuf := readByteCountedBlock(&er)
	if er.err != nil {
		return nil, er.err
	}
	if err := h.readDataSeriesMap(dsBuf); err != nil {
		return nil, err
	}

	tagBuf := readByteCountedBlock(&er)
	if er.err != nil {
		return nil, er.err
	}
	if err := h.readTagEncodingMap(tagBuf); err != nil {
		return nil, err
	}

	return h, er.err
}

// readByteCountedBlock reads an ITF-8 byte count followed by that
// many raw bytes, the framing shared by all three compression header
// sub-maps.
func readByteCountedBlock(er *errorReader) []byte {
	n := er.itf8()
	if er.err != nil {
		return nil
	}
	buf := make([]byte, n)
	_, err := io.ReadFull(er, buf)
	if err != nil {
		er.err = err
		return nil
	}
	return buf
}

func (m *PreservationMap) readFrom(buf []byte) error {
	er := errorReader{r: bytes.NewReader(buf)}
	n := er.itf8()
	for i := int32(0); i < n; i++ {
		var key [2]byte
		if _, err := io.ReadFull(&er, key[:]); err != nil {
			return err
		}
		switch string(key[:]) {
		case "RN":
			b, err := readByte(&er)
			if err != nil {
				return err
			}
			m.ReadNamesPreserved = b != 0
		case "AP":
			b, err := readByte(&er)
			if err != nil {
				return err
			}
			m.APDelta = b != 0
		case "RR":
			b, err := readByte(&er)
			if err != nil {
				return err
			}
			m.ReferenceRequired = b != 0
		case "SM":
			var sm [5]byte
			if _, err := io.ReadFull(&er, sm[:]); err != nil {
				return err
			}
			for row, packed := range sm {
				for col := 0; col < 4; col++ {
					shift := uint(6 - 2*col)
					code := (packed >> shift) & 0x3
					m.SubstitutionMatrix[row][col] = substitutedBase(row, int(code))
				}
			}
		case "TD":
			tdLen := er.itf8()
			td := make([]byte, tdLen)
			if _, err := io.ReadFull(&er, td); err != nil {
				return err
			}
			m.TagDictionary = parseTagDictionary(td)
		default:
			return fmt.Errorf("cram: unrecognised preservation map key %q", key)
		}
	}
	return er.err
}

// substitutedBase maps a reference base row and a 2-bit substitution
// code to the read base the code names, following the fixed ACGT
// code order used by the substitution matrix everywhere except the
// reference base's own row.
func substitutedBase(row, code int) byte {
	bases := []byte{'A', 'C', 'G', 'T'}
	var out []byte
	for _, b := range bases {
		if b != baseOrder[row] {
			out = append(out, b)
		}
	}
	if code < 0 || code >= len(out) {
		return 'N'
	}
	return out[code]
}

// parseTagDictionary splits a tag dictionary byte blob into its
// NUL-terminated entries, each a run of 3-byte (name[2], type)
// triples packed into an int32 key.
func parseTagDictionary(td []byte) [][]int32 {
	var entries [][]int32
	start := 0
	for i := 0; i <= len(td); i++ {
		if i == len(td) || td[i] == 0 {
			group := td[start:i]
			var ids []int32
			for j := 0; j+3 <= len(group); j += 3 {
				ids = append(ids, tagID(group[j], group[j+1], group[j+2]))
			}
			entries = append(entries, ids)
			start = i + 1
		}
	}
	return entries
}

// tagID packs a two-character tag name and its type byte into the
// int32 key used to look a tag's Encoding up in the tag encoding map.
func tagID(name0, name1, typ byte) int32 {
	return int32(name0)<<16 | int32(name1)<<8 | int32(typ)
}

func readByte(er *errorReader) (byte, error) {
	var b [1]byte
	_, err := io.ReadFull(er, b[:])
	return b[0], err
}

func (h *CompressionHeader) readDataSeriesMap(buf []byte) error {
	er := errorReader{r: bytes.NewReader(buf)}
	n := er.itf8()
	for i := int32(0); i < n && er.err == nil; i++ {
		var key [2]byte
		if _, err := io.ReadFull(&er, key[:]); err != nil {
			return err
		}
		rest, err := io.ReadAll(&er)
		if err != nil {
			return err
		}
		enc, consumed, err := encoding.Parse(rest)
		if err != nil {
			return fmt.Errorf("cram: data series %q: %w", key, err)
		}
		h.DataSeries[string(key[:])] = enc
		er = errorReader{r: bytes.NewReader(rest[consumed:])}
	}
	return nil
}

func (h *CompressionHeader) readTagEncodingMap(buf []byte) error {
	er := errorReader{r: bytes.NewReader(buf)}
	n := er.itf8()
	for i := int32(0); i < n && er.err == nil; i++ {
		id := er.itf8()
		if er.err != nil {
			return er.err
		}
		rest, err := io.ReadAll(&er)
		if err != nil {
			return err
		}
		enc, consumed, err := encoding.Parse(rest)
		if err != nil {
			return fmt.Errorf("cram: tag encoding %d: %w", id, err)
		}
		h.TagEncodings[id] = enc
		er = errorReader{r: bytes.NewReader(rest[consumed:])}
	}
	return nil
}
