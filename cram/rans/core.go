// Copyright ©2017 The bíogo Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package rans

import (
	"bytes"
	"encoding/binary"

	"github.com/arand/hts/varint"
)

// encodeCore rANS-encodes data with nstates interleaved states,
// writing its frequency table(s) and state/renorm stream. The number
// of symbols is not written here: it is already known from the
// outer block's length field, or from a PACK/RLE transform header,
// by the time this is called. With order1 set, a separate frequency
// table is built per preceding-byte context; the context for the
// first byte of data is zero, and the table set is preceded by a
// single byte packing the cumulative-frequency bit width into its
// top nibble.
func encodeCore(data []byte, order1 bool, nstates int) ([]byte, error) {
	var buf bytes.Buffer
	if len(data) == 0 {
		return buf.Bytes(), nil
	}

	if !order1 {
		t, err := newFreqTable(countBytes(data))
		if err != nil {
			return nil, err
		}
		t.write(&buf)
		words, states := runStates(data, func(int) *freqTable { return t }, nstates)
		writeStates(&buf, states, words)
		return buf.Bytes(), nil
	}

	ctxOf := make([]byte, len(data))
	counts := map[byte]*[256]uint32{}
	for i, s := range data {
		ctx := byte(0)
		if i > 0 {
			ctx = data[i-1]
		}
		ctxOf[i] = ctx
		c, ok := counts[ctx]
		if !ok {
			c = &[256]uint32{}
			counts[ctx] = c
		}
		c[s]++
	}
	tables := make(map[byte]*freqTable, len(counts))
	buf.WriteByte(scale << 4)
	writeUint7(&buf, uint32(len(counts)))
	for ctx, c := range counts {
		t, err := newFreqTable(*c)
		if err != nil {
			return nil, err
		}
		tables[ctx] = t
		buf.WriteByte(ctx)
		t.write(&buf)
	}
	words, states := runStates(data, func(i int) *freqTable { return tables[ctxOf[i]] }, nstates)
	writeStates(&buf, states, words)
	return buf.Bytes(), nil
}

// runStates performs the reverse-order interleaved rANS encode pass,
// returning the emitted 16 bit renormalization words (already
// reordered into forward stream order) and the final per-state
// values.
func runStates(data []byte, tableFor func(i int) *freqTable, nstates int) ([]uint32, []uint32) {
	states := make([]uint32, nstates)
	for i := range states {
		states[i] = lowState
	}
	var words []uint32
	for i := len(data) - 1; i >= 0; i-- {
		s := data[i]
		t := tableFor(i)
		f := t.freq[s]
		c := t.cum[s]
		si := i % nstates
		x := states[si]
		for x >= f<<(31-scale) {
			words = append(words, x&0xffff)
			x >>= 16
		}
		x = (x/f)<<scale + c + x%f
		states[si] = x
	}
	for i, j := 0, len(words)-1; i < j; i, j = i+1, j-1 {
		words[i], words[j] = words[j], words[i]
	}
	return words, states
}

func writeStates(buf *bytes.Buffer, states, words []uint32) {
	for i := len(states) - 1; i >= 0; i-- {
		var b [4]byte
		binary.LittleEndian.PutUint32(b[:], states[i])
		buf.Write(b[:])
	}
	for _, w := range words {
		buf.WriteByte(byte(w >> 8))
		buf.WriteByte(byte(w))
	}
}

// decodeCore is the inverse of encodeCore. n is the number of
// symbols to produce, already known to the caller from the block's
// length field or a PACK/RLE transform header.
func decodeCore(b []byte, n int, order1 bool, nstates int) ([]byte, error) {
	out := make([]byte, n)
	if n == 0 {
		return out, nil
	}

	var tableFor func(prev byte) *freqTable
	if !order1 {
		t, off, err := readFreqTable(b)
		if err != nil {
			return nil, err
		}
		b = b[off:]
		tableFor = func(byte) *freqTable { return t }
	} else {
		if len(b) < 1 {
			return nil, errShortInput
		}
		b = b[1:] // cumulative-frequency bit width, always scale<<4 here
		m, nn, ok := varint.DecodeUint7(b)
		if !ok {
			return nil, errShortInput
		}
		b = b[nn:]
		tables := make(map[byte]*freqTable, m)
		for i := uint32(0); i < m; i++ {
			if len(b) < 1 {
				return nil, errShortInput
			}
			ctx := b[0]
			b = b[1:]
			t, off, err := readFreqTable(b)
			if err != nil {
				return nil, err
			}
			b = b[off:]
			tables[ctx] = t
		}
		tableFor = func(ctx byte) *freqTable { return tables[ctx] }
	}

	if len(b) < nstates*4 {
		return nil, errShortInput
	}
	states := make([]uint32, nstates)
	for i := nstates - 1; i >= 0; i-- {
		states[i] = binary.LittleEndian.Uint32(b[:4])
		b = b[4:]
	}

	wordAt := 0
	readWord := func() uint32 {
		if wordAt+2 > len(b) {
			return 0
		}
		w := uint32(b[wordAt])<<8 | uint32(b[wordAt+1])
		wordAt += 2
		return w
	}

	var prev byte
	for i := 0; i < n; i++ {
		si := i % nstates
		x := states[si]
		t := tableFor(prev)
		slot := x & (total - 1)
		s := t.symOf[slot]
		f := t.freq[s]
		c := t.cum[s]
		x = f*(x>>scale) + slot - c
		for x < lowState {
			x = x<<16 | readWord()
		}
		states[si] = x
		out[i] = s
		prev = s
	}
	return out, nil
}
