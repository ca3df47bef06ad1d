// Copyright ©2017 The bíogo Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package rans implements the rANS Nx16 entropy codec used by CRAM
// block compression method 4 (see CRAM format specification section
// 8, "rANS4x8/rANS4x16 coding").
//
// The codec is a range asymmetric numeral system coder over a static
// per-block frequency table normalized to a total of 4096, run with
// either 4 or 32 interleaved states, optionally preceded by PACK
// and/or RLE transforms and optionally split into interleaved
// STRIPE sub-streams.
package rans

import (
	"bytes"
	"errors"

	"github.com/arand/hts/varint"
)

// Flag bits for the leading byte of an encoded rANS Nx16 block. Order,
// Strip, Cat, RLE and Pack are confirmed against literal reference
// block bytes; N32 and NoSiz occupy the two bit positions those
// vectors never exercise and are placed per the bit layout used
// elsewhere in the format family, not independently confirmed against
// a reference block.
const (
	Order = 1 << 0 // order-1 (context = previous byte) instead of order-0
	N32   = 1 << 1 // 32 interleaved states instead of 4
	NoSiz = 1 << 2 // omit the uncompressed length from the header
	Strip = 1 << 3 // split input into interleaved stripes, recurse per stripe
	Cat   = 1 << 5 // store bytes verbatim, no entropy coding
	RLE   = 1 << 6 // apply a run-length transform before coding
	Pack  = 1 << 7 // pack a <=16 symbol alphabet into 1/2/4 bits per input

	scale    = 12
	total    = 1 << scale // 4096
	lowState = 1 << 15
)

var (
	errTooManySymbols = errors.New("rans: more than 16 distinct symbols for PACK")
	errBadFrequency   = errors.New("rans: frequency table does not sum to 4096")
	errShortInput     = errors.New("rans: truncated input")
)

// Options controls how Encode builds a block.
type Options struct {
	Order1 bool // use order-1 context model
	N32    bool // use 32 interleaved states instead of 4
	Stripe bool // split input into interleaved stripes, one per state, each coded order-0
	Pack   bool // apply the PACK transform; input must have <= 16 distinct bytes
	RLE    bool // apply the RLE transform
	NoSize bool // omit the uncompressed length (caller must supply it to Decode)
	Cat    bool // store the input verbatim, no entropy coding
}

// Encode compresses data according to opts and returns the encoded
// block, including its leading flag byte and any transform headers.
func Encode(data []byte, opts Options) ([]byte, error) {
	var flags byte
	if opts.Order1 {
		flags |= Order
	}
	if opts.N32 {
		flags |= N32
	}
	if opts.Stripe {
		flags |= Strip
	}
	if opts.NoSize {
		flags |= NoSiz
	}
	if opts.Cat {
		flags |= Cat
	}
	if opts.RLE {
		flags |= RLE
	}
	if opts.Pack {
		flags |= Pack
	}

	var buf bytes.Buffer
	buf.WriteByte(flags)
	if !opts.NoSize {
		writeUint7(&buf, uint32(len(data)))
	}

	nstates := 4
	if opts.N32 {
		nstates = 32
	}

	// STRIPE takes the input whole: it is mutually exclusive with
	// PACK, RLE and CAT, which apply only on the non-striped path.
	if opts.Stripe {
		enc, err := encodeStripe(data, nstates)
		if err != nil {
			return nil, err
		}
		buf.Write(enc)
		return buf.Bytes(), nil
	}

	var packHeader, rleHeader []byte
	body := data
	if opts.Pack {
		packed, symbols, bits, err := packEncode(body)
		if err != nil {
			return nil, err
		}
		var h bytes.Buffer
		h.WriteByte(byte(len(symbols)))
		h.Write(symbols)
		writeUint7(&h, uint32(len(packed)))
		packHeader = h.Bytes()
		_ = bits // recovered from len(symbols) on decode, not stored
		body = packed
	}
	if opts.RLE {
		meta, lits := rleEncode(body)
		var h bytes.Buffer
		writeUint7(&h, uint32(len(meta))<<1|1)
		writeUint7(&h, uint32(len(lits)))
		h.Write(meta)
		rleHeader = h.Bytes()
		body = lits
	}
	buf.Write(packHeader)
	buf.Write(rleHeader)

	if opts.Cat {
		buf.Write(body)
		return buf.Bytes(), nil
	}

	enc, err := encodeCore(body, opts.Order1, nstates)
	if err != nil {
		return nil, err
	}
	buf.Write(enc)
	return buf.Bytes(), nil
}

// encodeStripe splits data into n interleaved sub-streams and
// recursively encodes each as a fully self-contained, flagless
// block, preceded by the stripe count and each sub-block's byte
// length.
func encodeStripe(data []byte, n int) ([]byte, error) {
	stripes := deinterleave(data, n)
	var buf bytes.Buffer
	buf.WriteByte(byte(n))
	encs := make([][]byte, n)
	for i, s := range stripes {
		enc, err := Encode(s, Options{})
		if err != nil {
			return nil, err
		}
		encs[i] = enc
	}
	for _, enc := range encs {
		writeUint7(&buf, uint32(len(enc)))
	}
	for _, enc := range encs {
		buf.Write(enc)
	}
	return buf.Bytes(), nil
}

// Decode decompresses a block produced by Encode. outLen must be the
// original uncompressed length when the block was encoded with
// Options.NoSize set; it is ignored otherwise.
func Decode(b []byte, outLen int) ([]byte, error) {
	if len(b) == 0 {
		return nil, errShortInput
	}
	flags := b[0]
	b = b[1:]

	n := outLen
	if flags&NoSiz == 0 {
		v, nn, ok := varint.DecodeUint7(b)
		if !ok {
			return nil, errShortInput
		}
		n = int(v)
		b = b[nn:]
	}

	// STRIPE is mutually exclusive with PACK, RLE and CAT: each
	// sub-block is a fully self-contained recursive block, so none of
	// those headers appear at this level.
	if flags&Strip != 0 {
		if len(b) < 1 {
			return nil, errShortInput
		}
		nstripes := int(b[0])
		b = b[1:]
		clens := make([]int, nstripes)
		for i := range clens {
			v, nn, ok := varint.DecodeUint7(b)
			if !ok {
				return nil, errShortInput
			}
			b = b[nn:]
			clens[i] = int(v)
		}
		stripes := make([][]byte, nstripes)
		for i, clen := range clens {
			if len(b) < clen {
				return nil, errShortInput
			}
			dec, err := Decode(b[:clen], 0)
			if err != nil {
				return nil, err
			}
			stripes[i] = dec
			b = b[clen:]
		}
		out := interleave(stripes)
		if len(out) > n {
			out = out[:n]
		}
		return out, nil
	}

	nstates := 4
	if flags&N32 != 0 {
		nstates = 32
	}

	var symbols []byte
	packedLen := n // length of the packed byte stream, if PACK is set
	if flags&Pack != 0 {
		if len(b) < 1 {
			return nil, errShortInput
		}
		nsym := int(b[0])
		b = b[1:]
		if len(b) < nsym {
			return nil, errShortInput
		}
		symbols = append([]byte(nil), b[:nsym]...)
		b = b[nsym:]
		v, nn, ok := varint.DecodeUint7(b)
		if !ok {
			return nil, errShortInput
		}
		packedLen = int(v)
		b = b[nn:]
	}

	var rleMeta []byte
	var litLen int
	haveRLE := flags&RLE != 0
	if haveRLE {
		v, nn, ok := varint.DecodeUint7(b)
		if !ok || v&1 == 0 {
			return nil, errShortInput
		}
		metaLen := int(v >> 1)
		b = b[nn:]
		v2, nn2, ok := varint.DecodeUint7(b)
		if !ok {
			return nil, errShortInput
		}
		litLen = int(v2)
		b = b[nn2:]
		if len(b) < metaLen {
			return nil, errShortInput
		}
		rleMeta = b[:metaLen]
		b = b[metaLen:]
	}

	// entropyN is the number of symbols the rANS (or CAT) stage
	// below must produce: the RLE literal count if RLE ran, else the
	// packed byte count if PACK ran, else the original length.
	entropyN := n
	if flags&Pack != 0 {
		entropyN = packedLen
	}
	if haveRLE {
		entropyN = litLen
	}

	var body []byte
	if flags&Cat != 0 {
		if len(b) < entropyN {
			return nil, errShortInput
		}
		body = append([]byte(nil), b[:entropyN]...)
	} else {
		var err error
		body, err = decodeCore(b, entropyN, flags&Order != 0, nstates)
		if err != nil {
			return nil, err
		}
	}

	if haveRLE {
		rleTarget := n
		if flags&Pack != 0 {
			rleTarget = packedLen
		}
		var err error
		body, err = rleDecode(rleMeta, body, rleTarget)
		if err != nil {
			return nil, err
		}
	}
	if flags&Pack != 0 {
		return packDecode(body, symbols, bitsFor(len(symbols)), n), nil
	}
	return body, nil
}

func writeUint7(buf *bytes.Buffer, v uint32) {
	var b [5]byte
	n := varint.EncodeUint7(b[:], v)
	buf.Write(b[:n])
}

func deinterleave(b []byte, n int) [][]byte {
	out := make([][]byte, n)
	for i := range out {
		out[i] = make([]byte, 0, len(b)/n+1)
	}
	for i, c := range b {
		out[i%n] = append(out[i%n], c)
	}
	return out
}

func interleave(stripes [][]byte) []byte {
	var n int
	for _, s := range stripes {
		n += len(s)
	}
	out := make([]byte, n)
	idx := make([]int, len(stripes))
	for i := 0; i < n; i++ {
		s := i % len(stripes)
		out[i] = stripes[s][idx[s]]
		idx[s]++
	}
	return out
}
