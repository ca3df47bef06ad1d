// Copyright ©2012 The bíogo Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package bcf implements reading of the BCF2 variant call format: the
// binary encoding of VCF defined by the BCF2 specification in the VCF
// 4.3 document. A BCF stream is BGZF-wrapped (see package bgzf) and
// begins with a textual VCF header followed by a sequence of
// length-prefixed binary site records.
package bcf

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/arand/hts/bcf/vcfheader"
)

var magic = [3]byte{'B', 'C', 'F'}

var (
	errBadMagic = errors.New("bcf: not a bcf file")
	errTrunc    = errors.New("bcf: truncated stream")
)

// Reader implements BCF2 format reading. The header is parsed once at
// construction and lent by reference to every Record decoded from the
// Reader, following the convention that a Reader is bound to exactly
// one Header for its lifetime.
type Reader struct {
	r *bufio.Reader
	h *vcfheader.Header
}

// NewReader returns a new Reader, reading the magic number, format
// version and VCF header text from r before returning. r is expected
// to already be unwrapped from its BGZF container (e.g. by reading
// through a *bgzf.Reader).
func NewReader(r io.Reader) (*Reader, error) {
	br := bufio.NewReader(r)

	var m [3]byte
	if _, err := io.ReadFull(br, m[:]); err != nil {
		return nil, fmt.Errorf("bcf: reading magic: %w", err)
	}
	if m != magic {
		return nil, errBadMagic
	}
	var version [2]byte
	if _, err := io.ReadFull(br, version[:]); err != nil {
		return nil, fmt.Errorf("bcf: reading format version: %w", err)
	}

	var lText uint32
	if err := binary.Read(br, binary.LittleEndian, &lText); err != nil {
		return nil, fmt.Errorf("bcf: reading header length: %w", err)
	}
	text := make([]byte, lText)
	if _, err := io.ReadFull(br, text); err != nil {
		return nil, fmt.Errorf("bcf: reading header text: %w", err)
	}
	// The VCF header text is NUL-terminated; trim the terminator if
	// present before handing it to the text parser.
	if n := len(text); n > 0 && text[n-1] == 0 {
		text = text[:n-1]
	}

	h, err := vcfheader.NewHeader(text)
	if err != nil {
		return nil, fmt.Errorf("bcf: parsing header: %w", err)
	}

	return &Reader{r: br, h: h}, nil
}

// Header returns the Reader's parsed VCF header.
func (r *Reader) Header() *vcfheader.Header { return r.h }

// Read decodes the next Record from the stream. It returns io.EOF,
// and a nil Record, when the stream ends cleanly before an l_shared
// length prefix; any error encountered after that point is reported
// as a truncation, not a clean end-of-stream.
func (r *Reader) Read() (*Record, error) {
	var lShared, lIndiv uint32
	if err := binary.Read(r.r, binary.LittleEndian, &lShared); err != nil {
		if err == io.EOF {
			return nil, io.EOF
		}
		return nil, errTrunc
	}
	if err := binary.Read(r.r, binary.LittleEndian, &lIndiv); err != nil {
		return nil, errTrunc
	}

	shared := make([]byte, lShared)
	if _, err := io.ReadFull(r.r, shared); err != nil {
		return nil, errTrunc
	}
	indiv := make([]byte, lIndiv)
	if _, err := io.ReadFull(r.r, indiv); err != nil {
		return nil, errTrunc
	}

	rec := &Record{}
	nFmt, nSample, err := rec.decodeShared(shared, r.h)
	if err != nil {
		return nil, err
	}
	rec.nFmt = nFmt
	rec.nSample = nSample
	rec.indiv = indiv

	return rec, nil
}
