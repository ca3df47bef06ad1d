// Copyright ©2012 The bíogo Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package bgzf

import (
	"bytes"
	"io"

	"github.com/klauspost/compress/gzip"
)

// Cache is a Block caching type. Basic cache implementations are
// provided in the bgzf/cache package.
type Cache interface {
	// Get returns the Block in the Cache with the specified
	// base or a nil Block if it does not exist. The returned
	// Block must be removed from the Cache.
	Get(base int64) Block

	// Put inserts a Block into the Cache, returning the Block
	// that was evicted or nil if no eviction was necessary and
	// a boolean indicating whether the put Block was retained
	// by the Cache.
	Put(Block) (evicted Block, retained bool)
}

// Block wraps interaction with decompressed BGZF data blocks.
type Block interface {
	// Base returns the file offset of the start of the gzip
	// member from which the Block data was decompressed.
	Base() int64

	io.Reader

	// Used returns whether one or more bytes have been read
	// from the Block.
	Used() bool

	// NextBase returns the expected file offset of the next
	// BGZF block, or -1 if that cannot be determined.
	NextBase() int64

	setBase(int64)
	setHeader(gzip.Header)
	header() gzip.Header
	readFrom(io.Reader) (int64, error)
	seek(offset int64) error
	len() int
	hasData() bool
	ownedBy(*Reader) bool
	setOwner(*Reader)
}

type block struct {
	owner *Reader
	used  bool

	base int64
	h    gzip.Header

	buf *bytes.Reader
	// data is the backing array for buf; it is reused across
	// Reader.readBlock calls to avoid churn.
	data [MaxBlockSize]byte
}

func (b *block) Base() int64 { return b.base }
func (b *block) Used() bool  { return b.used }

func (b *block) Read(p []byte) (int, error) {
	n, err := b.buf.Read(p)
	if n > 0 {
		b.used = true
	}
	return n, err
}

func (b *block) readFrom(r io.Reader) (int64, error) {
	buf := bytes.NewBuffer(b.data[:0])
	n, err := io.Copy(buf, r)
	if err != nil {
		return n, err
	}
	b.buf = bytes.NewReader(buf.Bytes())
	return n, nil
}

func (b *block) seek(offset int64) error {
	_, err := b.buf.Seek(offset, io.SeekStart)
	return err
}

func (b *block) len() int {
	if b.buf == nil {
		return 0
	}
	return b.buf.Len()
}

func (b *block) setBase(n int64) { b.base = n }

func (b *block) NextBase() int64 {
	size := int64(blockSizeFromHeader(b.h))
	if size < 0 {
		return -1
	}
	return b.base + size
}

func (b *block) setHeader(h gzip.Header) { b.h = h }
func (b *block) header() gzip.Header     { return b.h }

func (b *block) setOwner(r *Reader) {
	b.owner = r
	b.used = false
	b.base = -1
	b.h = gzip.Header{}
	b.buf = nil
}

func (b *block) ownedBy(r *Reader) bool { return b.owner == r }
func (b *block) hasData() bool          { return b.buf != nil }

// blockSizeFromHeader returns the total compressed size (BSIZE+1) of
// the BGZF member described by h, or -1 if h carries no BGZF extra
// subfield.
func blockSizeFromHeader(h gzip.Header) int {
	i := bytes.Index(h.Extra, bgzfExtraPrefix)
	if i < 0 || i+5 >= len(h.Extra) {
		return -1
	}
	return (int(h.Extra[i+4]) | int(h.Extra[i+5])<<8) + 1
}
