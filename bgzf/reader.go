// Copyright ©2012 The bíogo Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package bgzf

import (
	"bufio"
	"io"
	"log/slog"
	"runtime"

	"github.com/klauspost/compress/gzip"
)

// Reader implements BGZF blocked gzip decompression. It presents the
// concatenated uncompressed data of every BGZF member in the
// underlying stream as a single io.Reader, and reports the virtual
// file Offset of the data most recently read.
//
// Decompression of a single BGZF member depends only on its
// compressed bytes, so an external driver wanting to parallelize
// decoding across disjoint ranges of a file may open several
// independent Readers rather than rely on internal concurrency; the
// package does not export a standalone single-block decode function.
// Reader itself decodes one block at a time and relies
// on an optional Cache to avoid repeat work for seeks that land back
// in an already-decoded block.
type Reader struct {
	Header gzip.Header

	r  io.Reader
	cr *countReader
	gz *gzip.Reader

	// concurrency is retained for API compatibility with callers
	// that size read-ahead based on GOMAXPROCS; Reader's own
	// decoding does not use it.
	concurrency int

	cache Cache

	cur *block

	// Blocked, when true, stops Read from crossing a BGZF
	// block boundary within a single call, so that callers
	// iterating over a known set of bgzf.Chunks never read
	// past the end of the block containing a chunk boundary.
	Blocked bool

	offset    Offset
	lastChunk Chunk

	err error
}

type countReader struct {
	r io.Reader
	n int64
}

func (r *countReader) Read(p []byte) (int, error) {
	n, err := r.r.Read(p)
	r.n += int64(n)
	return n, err
}

// NewReader returns a Reader reading BGZF data from r. The
// concurrency parameter records how many blocks an external driver
// intends to decode in parallel; a value of zero or less selects
// GOMAXPROCS. It does not itself spawn goroutines.
func NewReader(r io.Reader, concurrency int) (*Reader, error) {
	if concurrency <= 0 {
		concurrency = defaultConcurrency()
	}
	cr := &countReader{r: bufio.NewReader(r)}
	bg := &Reader{r: r, cr: cr, concurrency: concurrency}
	gz, err := gzip.NewReader(cr)
	if err != nil {
		return nil, err
	}
	gz.Multistream(false)
	bg.gz = gz
	bg.Header = gz.Header
	if blockSizeFromHeader(bg.Header) < 0 {
		return nil, ErrNoBlockSize
	}
	return bg, nil
}

// SetCache sets the cache used to retain recently decompressed
// blocks, amortizing the cost of seeks that repeatedly land in the
// same block.
func (bg *Reader) SetCache(c Cache) {
	bg.cache = c
}

// Begin returns a transaction marker that can be used with its End
// method to compute the Chunk spanned by one or more subsequent Read
// calls.
func (bg *Reader) Begin() Transaction {
	return Transaction{r: bg, begin: bg.offset}
}

// Transaction tracks the virtual offset span of a sequence of Read
// calls made between a call to Reader.Begin and a call to its End
// method.
type Transaction struct {
	r     *Reader
	begin Offset
}

// End returns the Chunk spanning the Transaction.
func (t Transaction) End() Chunk {
	return Chunk{Begin: t.begin, End: t.r.offset}
}

// LastChunk returns the Chunk describing the most recent completed
// Read operation.
func (bg *Reader) LastChunk() Chunk { return bg.lastChunk }

// BlockLen returns the length of the uncompressed data of the block
// currently being read.
func (bg *Reader) BlockLen() int {
	if bg.cur == nil {
		return 0
	}
	return bg.cur.len() + int(bg.offset.Block)
}

// Close closes the Reader.
func (bg *Reader) Close() error {
	return bg.gz.Close()
}

// Seek moves the read position to the given virtual Offset. The
// underlying reader must implement io.ReadSeeker.
func (bg *Reader) Seek(off Offset) error {
	rs, ok := bg.r.(io.ReadSeeker)
	if !ok {
		return ErrNotASeeker
	}
	if bg.cache != nil {
		if cached := bg.cache.Get(off.File); cached != nil {
			bg.cur = cached.(*block)
			bg.offset = Offset{File: off.File, Block: off.Block}
			bg.err = bg.cur.seek(int64(off.Block))
			return bg.err
		}
	}
	_, bg.err = rs.Seek(off.File, io.SeekStart)
	if bg.err != nil {
		return bg.err
	}
	bg.cr = &countReader{r: bufio.NewReader(bg.r), n: off.File}
	bg.err = bg.gz.Reset(bg.cr)
	if bg.err != nil {
		return bg.err
	}
	bg.gz.Multistream(false)
	bg.Header = bg.gz.Header
	bg.cur = nil
	bg.offset = Offset{File: off.File}
	if off.Block > 0 {
		buf := make([]byte, off.Block)
		_, bg.err = io.ReadFull(bg, buf)
	}
	return bg.err
}

// decodeNext decompresses the next BGZF member from the underlying
// stream into a fresh block and resets gz onto the member that
// follows it.
func (bg *Reader) decodeNext() (*block, error) {
	base := bg.cr.n
	b := &block{base: base}
	n, err := b.readFrom(bg.gz)
	if err != nil && err != io.EOF {
		return nil, err
	}
	b.setHeader(bg.Header)
	if n == 0 {
		return nil, io.EOF
	}
	resetErr := bg.gz.Reset(bg.cr)
	if resetErr == io.EOF {
		// No further members; this block is still valid. A
		// well-formed BGZF stream's final member is the empty
		// canonical EOF block, so a non-empty final member means
		// the file was truncated before it could be written.
		if n != 0 {
			slog.Warn("bgzf: stream ended without EOF marker block")
		}
		return b, nil
	}
	if resetErr != nil {
		return nil, resetErr
	}
	bg.gz.Multistream(false)
	bg.Header = bg.gz.Header
	return b, nil
}

// Read implements io.Reader, transparently decompressing successive
// BGZF blocks and tracking the current virtual Offset.
func (bg *Reader) Read(p []byte) (int, error) {
	if bg.err != nil {
		return 0, bg.err
	}
	var n int
	for n < len(p) {
		if bg.cur == nil || bg.cur.len() == 0 {
			blk, err := bg.decodeNext()
			if err != nil {
				bg.err = err
				if n > 0 {
					bg.lastChunk.End = bg.offset
					return n, nil
				}
				return n, err
			}
			if bg.cache != nil {
				bg.cache.Put(blk)
			}
			bg.cur = blk
			bg.offset = Offset{File: blk.Base(), Block: 0}
			if bg.Blocked && n > 0 {
				bg.lastChunk.End = bg.offset
				return n, nil
			}
		}
		c, rerr := bg.cur.Read(p[n:])
		n += c
		bg.offset.Block += uint16(c)
		if rerr != nil && rerr != io.EOF {
			bg.err = rerr
			bg.lastChunk.End = bg.offset
			return n, rerr
		}
		if bg.Blocked {
			break
		}
	}
	bg.lastChunk.End = bg.offset
	return n, nil
}

func defaultConcurrency() int { return runtime.GOMAXPROCS(0) }
