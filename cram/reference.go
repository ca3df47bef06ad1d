// Copyright ©2017 The bíogo Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cram

import (
	"errors"
	"io"

	"github.com/arand/hts/fai"
	"github.com/arand/hts/internal/pool"
)

// ReferenceSource resolves the bases of a named reference sequence
// over a half-open, 0-based range. Record.Reconstruct needs the
// bases spanning a record's alignment before it can rebuild a read
// that was reference-compressed.
type ReferenceSource interface {
	Sequence(name string, start, end int) ([]byte, error)
}

// FastaReferenceSource resolves reference bases from an FAI-indexed
// FASTA file, held open and accessed by mmap for the life of the
// source so repeated lookups do not re-read the file from disk.
type FastaReferenceSource struct {
	f *fai.File
}

// NewFastaReferenceSource opens the FASTA file at path for random
// access using idx, typically obtained by calling fai.ReadFrom on
// the file's companion .fai index or fai.NewIndex on the FASTA
// itself.
func NewFastaReferenceSource(path string, idx fai.Index) (*FastaReferenceSource, error) {
	f, err := fai.OpenFile(path, idx)
	if err != nil {
		return nil, err
	}
	return &FastaReferenceSource{f: f}, nil
}

// Close releases the underlying mmapped file.
func (s *FastaReferenceSource) Close() error {
	return s.f.Close()
}

// Sequence returns a copy of the bases of name over [start, end). The
// read is staged through a buffer drawn from internal/pool's size
// class for the request, since slice fetches during reconstruction
// happen once per record and are otherwise many small allocations of
// similar sizes.
func (s *FastaReferenceSource) Sequence(name string, start, end int) ([]byte, error) {
	if end < start {
		return nil, errBadRange
	}
	seq, err := s.f.SeqRange(name, start, end)
	if err != nil {
		return nil, err
	}
	defer seq.Close()

	buf := pool.GetBuffer(end - start)
	defer pool.PutBuffer(buf)
	n, err := io.ReadFull(seq, buf)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return nil, err
	}
	out := make([]byte, n)
	copy(out, buf[:n])
	return out, nil
}

var errBadRange = errors.New("cram: reference range end before start")
