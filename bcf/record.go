// Copyright ©2012 The bíogo Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package bcf

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/arand/hts/bcf/vcfheader"
)

var errTruncatedRecord = errors.New("bcf: truncated record")

// Record is one decoded BCF site. The shared block (chromosome,
// position, quality, filters, IDs, alleles and INFO) is parsed
// eagerly; the per-sample genotype block is kept as a raw buffer and
// parsed lazily on first use via Genotypes, following the l_shared/
// l_indiv split of the wire format.
type Record struct {
	ChromID  int32
	Pos      int32 // 0-based
	RLen     int32
	Qual     float32
	HasQual  bool
	IDs      []string
	Ref      string
	Alt      []string
	FilterID []int32

	Info []InfoField

	nFmt    int
	nSample int
	indiv   []byte
	h       *vcfheader.Header
}

// InfoField is one decoded key/value pair from a record's INFO block.
type InfoField struct {
	Key   string
	Value *Value
}

// Get returns the value associated with key, or nil if key is not
// present on the record.
func (r *Record) Get(key string) *Value {
	for _, f := range r.Info {
		if f.Key == key {
			return f.Value
		}
	}
	return nil
}

// Flag reports whether the Flag-typed INFO field key is set.
func (r *Record) Flag(key string) bool {
	return r.Get(key) != nil
}

// decodeShared parses the l_shared block into r, returning the
// (n_fmt, n_sample) pair packed into the block's n_fmt_sample word,
// following the field order of the BCF2 site record.
func (r *Record) decodeShared(buf []byte, h *vcfheader.Header) (nFmt, nSample int, err error) {
	br := bytes.NewReader(buf)
	var fixed [24]byte
	if _, err := io.ReadFull(br, fixed[:]); err != nil {
		return 0, 0, errTruncatedRecord
	}
	r.ChromID = int32(binary.LittleEndian.Uint32(fixed[0:4]))
	r.Pos = int32(binary.LittleEndian.Uint32(fixed[4:8]))
	r.RLen = int32(binary.LittleEndian.Uint32(fixed[8:12]))
	qualBits := binary.LittleEndian.Uint32(fixed[12:16])
	r.HasQual = qualBits != floatMissingBits
	if r.HasQual {
		r.Qual = math.Float32frombits(qualBits)
	}
	nAlleleInfo := binary.LittleEndian.Uint32(fixed[16:20])
	nInfo := int(nAlleleInfo & 0xffff)
	nAllele := int(nAlleleInfo >> 16)
	nFmtSample := binary.LittleEndian.Uint32(fixed[20:24])
	nSample = int(nFmtSample & 0xffffff)
	nFmt = int(nFmtSample >> 24)

	ids, err := readIDs(br)
	if err != nil {
		return 0, 0, err
	}
	r.IDs = ids

	alleles, err := readAlleles(br, nAllele)
	if err != nil {
		return 0, 0, err
	}
	if len(alleles) > 0 {
		r.Ref = alleles[0]
		r.Alt = alleles[1:]
	}

	filters, err := readValue(br)
	if err != nil {
		return 0, 0, err
	}
	if filters != nil {
		r.FilterID = filters.Ints
	}

	r.Info = r.Info[:0]
	for i := 0; i < nInfo; i++ {
		keyVal, err := readValue(br)
		if err != nil {
			return 0, 0, err
		}
		if keyVal == nil || len(keyVal.Ints) == 0 {
			return 0, 0, errTruncatedRecord
		}
		key, err := h.ResolveString(keyVal.Ints[0])
		if err != nil {
			return 0, 0, err
		}
		decl, ok := h.Info(key)
		if !ok {
			return 0, 0, fmt.Errorf("bcf: missing header INFO record for %s", key)
		}
		val, err := readValue(br)
		if err != nil {
			return 0, 0, err
		}
		if err := checkInfoType(decl, val); err != nil {
			return 0, 0, err
		}
		r.Info = append(r.Info, InfoField{Key: key, Value: val})
	}

	r.h = h
	return nFmt, nSample, nil
}

// checkInfoType enforces that a decoded typed value's wire type is
// compatible with the header's declared Type for the field; integer
// widths are allowed to vary (the encoder picks the narrowest width
// that fits) but the type class itself must agree.
func checkInfoType(decl *vcfheader.Info, v *Value) error {
	if v == nil {
		return nil
	}
	switch decl.Type {
	case vcfheader.Integer, vcfheader.Flag:
		if v.Type != typeInt8 && v.Type != typeInt16 && v.Type != typeInt32 {
			return errTypeMismatch
		}
	case vcfheader.Float:
		if v.Type != typeFloat {
			return errTypeMismatch
		}
	case vcfheader.Character, vcfheader.String:
		if v.Type != typeChar {
			return errTypeMismatch
		}
	}
	return nil
}

func readIDs(br *bytes.Reader) ([]string, error) {
	v, err := readValue(br)
	if err != nil {
		return nil, err
	}
	if v == nil || v.Str == "" || v.Str == "." {
		return nil, nil
	}
	return splitCSV(v.Str), nil
}

func readAlleles(br *bytes.Reader, n int) ([]string, error) {
	alleles := make([]string, 0, n)
	for i := 0; i < n; i++ {
		v, err := readValue(br)
		if err != nil {
			return nil, err
		}
		if v == nil {
			alleles = append(alleles, "")
			continue
		}
		alleles = append(alleles, v.Str)
	}
	return alleles, nil
}

func splitCSV(s string) []string {
	var out []string
	start := 0
	for i := 0; i < len(s); i++ {
		if s[i] == ';' {
			out = append(out, s[start:i])
			start = i + 1
		}
	}
	out = append(out, s[start:])
	return out
}

