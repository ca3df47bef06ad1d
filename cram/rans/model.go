// Copyright ©2017 The bíogo Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package rans

import (
	"bytes"

	"github.com/arand/hts/varint"
)

// freqTable holds a normalized order-0 frequency model: freq sums to
// total (4096) across the symbols present, and cum holds the
// cumulative frequency preceding each symbol.
type freqTable struct {
	freq [256]uint32
	cum  [256]uint32
	// symOf maps a normalized cumulative-frequency slot (0..4095) to
	// the symbol owning it, built once per table for decode.
	symOf [total]byte
}

func newFreqTable(counts [256]uint32) (*freqTable, error) {
	t := &freqTable{}
	var sum uint64
	for _, c := range counts {
		sum += uint64(c)
	}
	if sum == 0 {
		return t, nil
	}
	var assigned uint32
	best := -1
	for s, c := range counts {
		if c == 0 {
			continue
		}
		f := uint32(uint64(c) * total / sum)
		if f == 0 {
			f = 1
		}
		t.freq[s] = f
		assigned += f
		if best < 0 || c > counts[best] {
			best = s
		}
	}
	if best >= 0 {
		if assigned > total {
			t.freq[best] -= assigned - total
		} else {
			t.freq[best] += total - assigned
		}
	}
	var c uint32
	for s := 0; s < 256; s++ {
		t.cum[s] = c
		c += t.freq[s]
	}
	if c != total && best >= 0 {
		return nil, errBadFrequency
	}
	for s := 0; s < 256; s++ {
		for i := uint32(0); i < t.freq[s]; i++ {
			t.symOf[t.cum[s]+i] = byte(s)
		}
	}
	return t, nil
}

func countBytes(b []byte) [256]uint32 {
	var c [256]uint32
	for _, x := range b {
		c[x]++
	}
	return c
}

// write encodes the table the way order-0 and order-1 rANS Nx16
// blocks lay out their frequencies: a run-length-compressed alphabet
// (each present symbol, plus a count of further consecutive present
// symbols whenever the one below it is also present, so a dense run
// costs two bytes total rather than one per member) terminated by
// the sentinel 0, followed by each present symbol's frequency as a
// uint7, in ascending symbol order.
func (t *freqTable) write(buf *bytes.Buffer) {
	writeFreqAlphabet(buf, &t.freq)
	for s := 0; s < 256; s++ {
		if t.freq[s] > 0 {
			writeUint7(buf, t.freq[s])
		}
	}
}

func writeFreqAlphabet(buf *bytes.Buffer, freq *[256]uint32) {
	rle := 0
	for s := 0; s < 256; s++ {
		if freq[s] == 0 {
			continue
		}
		if rle > 0 {
			rle--
			continue
		}
		buf.WriteByte(byte(s))
		if s > 0 && freq[s-1] > 0 {
			rle = 0
			for k := s + 1; k < 256 && freq[k] > 0; k++ {
				rle++
			}
			buf.WriteByte(byte(rle))
		}
	}
	buf.WriteByte(0)
}

func readFreqTable(b []byte) (*freqTable, int, error) {
	symbols, off, err := readAlphabetRuns(b)
	if err != nil {
		return nil, 0, err
	}
	b = b[off:]
	var counts [256]uint32
	for _, s := range symbols {
		f, fn, ok := varint.DecodeUint7(b)
		if !ok {
			return nil, 0, errShortInput
		}
		counts[s] = f
		b = b[fn:]
		off += fn
	}
	t := &freqTable{}
	var c uint32
	for s := 0; s < 256; s++ {
		t.freq[s] = counts[s]
		t.cum[s] = c
		c += counts[s]
	}
	for s := 0; s < 256; s++ {
		for i := uint32(0); i < t.freq[s]; i++ {
			t.symOf[t.cum[s]+i] = byte(s)
		}
	}
	return t, off, nil
}

// readAlphabetRuns decodes the run-length-compressed symbol list
// written by writeFreqAlphabet, expanding runs back into the full
// ascending list of present symbols.
func readAlphabetRuns(b []byte) (symbols []byte, n int, err error) {
	last := -1
	for {
		if n >= len(b) {
			return nil, 0, errShortInput
		}
		sym := b[n]
		n++
		if last >= 0 && sym == 0 {
			return symbols, n, nil
		}
		symbols = append(symbols, sym)
		adjacent := last >= 0 && int(sym) == last+1
		last = int(sym)
		if adjacent {
			if n >= len(b) {
				return nil, 0, errShortInput
			}
			run := int(b[n])
			n++
			for k := 1; k <= run; k++ {
				last++
				symbols = append(symbols, byte(last))
			}
		}
	}
}
