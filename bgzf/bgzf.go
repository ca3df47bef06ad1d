// Copyright ©2012 The bíogo Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package bgzf implements the BGZF blocked gzip format.
//
// BGZF is documented here: https://samtools.github.io/hts-specs/SAMv1.pdf.
package bgzf

import (
	"errors"
)

const (
	// BlockSize is the size of input data blocks that are
	// individually compressed into a BGZF block.
	BlockSize = 0x0ff00
	// MaxBlockSize is the maximum size of a compressed BGZF block.
	MaxBlockSize = 0x10000
)

func compressBound(srcLen int) int {
	return srcLen + srcLen>>12 + srcLen>>14 + srcLen>>25 + 13 + 18 + len(bgzfExtra)
}

func init() {
	if compressBound(BlockSize) > MaxBlockSize {
		panic("bgzf: BlockSize too large")
	}
}

var (
	ErrClosed            = errors.New("bgzf: write to closed writer")
	ErrBlockOverflow     = errors.New("bgzf: block overflow")
	ErrNoBlockSize       = errors.New("bgzf: could not determine block size")
	ErrBlockSizeMismatch = errors.New("bgzf: block size mismatch")
	ErrNotASeeker        = errors.New("bgzf: not a seeker")
)

// bgzfExtra is the literal bytes of the required gzip extra subfield
// identifying a BGZF member: subfield id "BC", subfield length 2,
// followed by the two BSIZE bytes (patched in after compression).
var bgzfExtra = []byte("BC\x02\x00\x00\x00")

var bgzfExtraPrefix = []byte("BC\x02\x00")

// eofBlock is the canonical 28 byte BGZF end-of-file marker.
var eofBlock = []byte{
	0x1f, 0x8b, 0x08, 0x04, 0x00, 0x00, 0x00, 0x00, 0x00, 0xff,
	0x06, 0x00, 0x42, 0x43, 0x02, 0x00, 0x1b, 0x00, 0x03, 0x00,
	0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
}

// EOFMarker returns a copy of the canonical BGZF EOF block. Writers
// append this block to signal graceful termination of a stream;
// readers treat its absence as a recoverable warning rather than
// an error, since some tools do not emit it.
func EOFMarker() []byte {
	b := make([]byte, len(eofBlock))
	copy(b, eofBlock)
	return b
}

// Offset is a BGZF virtual file offset, comparing lexicographically
// with other Offsets based on File then Block. File is the offset in
// the underlying stream of the start of a BGZF block, and Block is
// the offset into the uncompressed data of that block.
type Offset struct {
	File  int64
	Block uint16
}

// Chunk is a region of a BGZF stream represented as a pair of
// virtual offsets.
type Chunk struct {
	Begin Offset
	End   Offset
}

func vOffset(o Offset) int64 {
	return o.File<<16 | int64(o.Block)
}

func isZero(o Offset) bool {
	return o == Offset{}
}

// Compare returns -1, 0 or 1 if a is less than, equal to, or greater
// than b, treating an Offset pair as a 64+16 bit lexicographic value.
func Compare(a, b Offset) int {
	switch va, vb := vOffset(a), vOffset(b); {
	case va < vb:
		return -1
	case va > vb:
		return 1
	default:
		return 0
	}
}
