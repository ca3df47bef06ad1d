// Copyright ©2012 The bíogo Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package bgzf

import (
	"bytes"
	"io"
	"sync"

	"github.com/klauspost/compress/gzip"
)

// Writer implements BGZF blocked gzip compression.
//
// Writes are buffered into BlockSize chunks and each chunk is
// compressed into an independent BGZF member; because members are
// independent, compression of distinct blocks may be done
// concurrently. Writer exploits this with a small worker pool sized
// by the concurrency value passed to NewWriterLevel, compressing up
// to that many pending blocks in parallel while preserving output
// order.
type Writer struct {
	gzip.Header

	level int
	w     io.Writer

	next   uint
	block  [BlockSize]byte
	err    error
	closed bool

	wc  int
	wg  sync.WaitGroup
	seq int

	mu      sync.Mutex
	pending map[int][]byte
	wantSeq int
}

// NewWriter returns a new Writer using the default compression
// level and write concurrency wc. If wc is less than 1 it is treated
// as 1.
func NewWriter(w io.Writer, wc int) *Writer {
	bw, _ := NewWriterLevel(w, gzip.DefaultCompression, wc)
	return bw
}

// NewWriterLevel returns a new Writer using the given compression
// level and write concurrency wc. If wc is less than 1 it is treated
// as 1.
func NewWriterLevel(w io.Writer, level, wc int) (*Writer, error) {
	if level < gzip.HuffmanOnly || level > gzip.BestCompression {
		if level != gzip.DefaultCompression {
			return nil, gzip.ErrHeader
		}
	}
	if wc < 1 {
		wc = 1
	}
	bw := &Writer{
		Header:  gzip.Header{OS: 0xff},
		w:       w,
		level:   level,
		wc:      wc,
		pending: make(map[int][]byte),
	}
	return bw, nil
}

// Next returns the number of bytes buffered but not yet flushed to a
// BGZF block.
func (bg *Writer) Next() int { return int(bg.next) }

// Write implements io.Writer, buffering p into BlockSize chunks and
// flushing completed chunks as independent BGZF blocks.
func (bg *Writer) Write(p []byte) (int, error) {
	if bg.err != nil {
		return 0, bg.err
	}
	if bg.closed {
		return 0, ErrClosed
	}
	var n int
	for len(p) > 0 {
		c := copy(bg.block[bg.next:], p)
		n += c
		p = p[c:]
		bg.next += uint(c)
		if bg.next == BlockSize {
			if bg.err = bg.Flush(); bg.err != nil {
				return n, bg.err
			}
		}
	}
	return n, nil
}

// Flush compresses and emits any buffered data as a BGZF block.
func (bg *Writer) Flush() error {
	if bg.err != nil {
		return bg.err
	}
	if bg.closed {
		return nil
	}
	if bg.next == 0 {
		return nil
	}
	data := make([]byte, bg.next)
	copy(data, bg.block[:bg.next])
	bg.next = 0
	return bg.submit(data)
}

// submit compresses data into one BGZF block and writes it to the
// underlying stream. Concurrent submissions (up to wc in flight) are
// serialized back into file order before being written out, since
// BGZF block order in the stream must match caller write order even
// though compression itself may run out of order.
func (bg *Writer) submit(data []byte) error {
	if bg.wc <= 1 {
		out, err := encodeBlock(data, bg.level, bg.Header)
		if err != nil {
			bg.err = err
			return err
		}
		_, err = bg.w.Write(out)
		if err != nil {
			bg.err = err
		}
		return err
	}
	if bg.seq-bg.wantSeq >= bg.wc {
		bg.wg.Wait()
		if err := bg.drainReady(); err != nil {
			return err
		}
	}
	seq := bg.seq
	bg.seq++
	bg.wg.Add(1)
	go func(h gzip.Header) {
		defer bg.wg.Done()
		out, err := encodeBlock(data, bg.level, h)
		bg.deliver(seq, out, err)
	}(bg.Header)
	return bg.drainReady()
}

func (bg *Writer) deliver(seq int, data []byte, err error) {
	bg.mu.Lock()
	defer bg.mu.Unlock()
	if err != nil && bg.err == nil {
		bg.err = err
	}
	bg.pending[seq] = data
}

// drainReady writes out any compressed blocks that have arrived in
// order; it does not wait for blocks still being compressed.
func (bg *Writer) drainReady() error {
	bg.mu.Lock()
	for {
		data, ok := bg.pending[bg.wantSeq]
		if !ok {
			break
		}
		delete(bg.pending, bg.wantSeq)
		bg.wantSeq++
		bg.mu.Unlock()
		if bg.err == nil {
			if _, err := bg.w.Write(data); err != nil {
				bg.err = err
			}
		}
		bg.mu.Lock()
	}
	bg.mu.Unlock()
	return bg.err
}

// Wait blocks until all blocks submitted so far have been
// compressed and written, and returns the first error seen.
func (bg *Writer) Wait() error {
	bg.wg.Wait()
	return bg.drainReady()
}

// Close flushes any buffered data, waits for pending compression,
// appends the BGZF EOF marker and closes the Writer.
func (bg *Writer) Close() error {
	if bg.err != nil {
		return bg.err
	}
	if bg.closed {
		return nil
	}
	if err := bg.Flush(); err != nil {
		return err
	}
	if err := bg.Wait(); err != nil {
		return err
	}
	bg.closed = true
	_, err := bg.w.Write(EOFMarker())
	if err != nil {
		bg.err = err
	}
	return bg.err
}

// encodeBlock compresses data as a single BGZF member, patching the
// gzip extra subfield with the final compressed block size (BSIZE).
func encodeBlock(data []byte, level int, h gzip.Header) ([]byte, error) {
	if len(data) > BlockSize {
		return nil, ErrBlockOverflow
	}
	var buf bytes.Buffer
	gz, err := gzip.NewWriterLevel(&buf, level)
	if err != nil {
		return nil, err
	}
	gz.Header = gzip.Header{
		Comment: h.Comment,
		Extra:   append(append([]byte(nil), bgzfExtra...), h.Extra...),
		ModTime: h.ModTime,
		Name:    h.Name,
		OS:      h.OS,
	}
	if _, err := gz.Write(data); err != nil {
		return nil, err
	}
	if err := gz.Close(); err != nil {
		return nil, err
	}
	b := buf.Bytes()
	i := bytes.Index(b, bgzfExtraPrefix)
	if i < 0 {
		return nil, gzip.ErrHeader
	}
	size := len(b) - 1
	if size >= MaxBlockSize {
		return nil, ErrBlockOverflow
	}
	b[i+4], b[i+5] = byte(size), byte(size>>8)
	return b, nil
}
