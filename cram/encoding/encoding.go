// Copyright ©2017 The bíogo Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package encoding implements the CRAM encoding variants used to
// describe how a data series or tag value is laid out across the
// core and external blocks of a slice.
//
// See CRAM spec section 8.3 (encoding map). The variant set is
// closed: decoding a data series is a match over the variants below,
// not a dispatch through an interface, because the format defines no
// extension point for new encodings.
package encoding

import (
	"errors"
	"fmt"
	"io"

	"github.com/arand/hts/cram/encoding/itf8"
	"github.com/arand/hts/varint"
)

// Kind identifies one of the CRAM encoding variants.
type Kind byte

// Encoding variant identifiers, as written in a data-series or tag
// encoding map entry.
//
// See CRAM spec section 8.3, table of encoding IDs.
const (
	Null Kind = iota
	External
	Golomb
	Huffman
	ByteArrayLen
	ByteArrayStop
	Beta
	Subexp
	GolombRice
	Gamma
)

var errBadEncoding = errors.New("encoding: malformed encoding descriptor")

// Encoding is a decoded CRAM encoding descriptor: a variant tag plus
// the parameters that variant needs to read a value from a Source.
type Encoding struct {
	Kind Kind

	// External, ByteArrayStop
	ExternalID int32

	// Huffman
	HuffmanAlphabet []int32
	HuffmanBitLens  []int32

	// Beta
	BetaOffset int32
	BetaWidth  uint

	// ByteArrayLen
	LenEncoding *Encoding
	ValEncoding *Encoding

	// ByteArrayStop
	StopByte byte

	// Subexp
	SubexpOffset int32
	SubexpK      uint

	// Golomb, GolombRice
	GolombOffset int32
	GolombM      int32
}

// Parse decodes one encoding descriptor from b: an ITF-8 kind id,
// an ITF-8 byte count, and that many bytes of variant-specific
// arguments. It returns the decoded Encoding and the number of bytes
// of b it consumed.
func Parse(b []byte) (*Encoding, int, error) {
	id, n, ok := itf8.Decode(b)
	if !ok {
		return nil, 0, errBadEncoding
	}
	off := n
	argLen, n, ok := itf8.Decode(b[off:])
	if !ok {
		return nil, 0, errBadEncoding
	}
	off += n
	args := b[off : off+int(argLen)]
	off += int(argLen)

	e := &Encoding{Kind: Kind(id)}
	switch e.Kind {
	case Null:
	case ByteArrayStop:
		// ByteArrayStop args are {stop_byte, external_id}.
		e.StopByte = args[0]
		v, _, ok := itf8.Decode(args[1:])
		if !ok {
			return nil, 0, errBadEncoding
		}
		e.ExternalID = v
	case External:
		v, _, ok := itf8.Decode(args)
		if !ok {
			return nil, 0, errBadEncoding
		}
		e.ExternalID = v
	case Golomb, GolombRice:
		v, n, ok := itf8.Decode(args)
		if !ok {
			return nil, 0, errBadEncoding
		}
		e.GolombOffset = v
		v, _, ok = itf8.Decode(args[n:])
		if !ok {
			return nil, 0, errBadEncoding
		}
		e.GolombM = v
	case Huffman:
		p := 0
		nsym, n, ok := itf8.Decode(args[p:])
		if !ok {
			return nil, 0, errBadEncoding
		}
		p += n
		e.HuffmanAlphabet = make([]int32, nsym)
		for i := range e.HuffmanAlphabet {
			v, n, ok := itf8.Decode(args[p:])
			if !ok {
				return nil, 0, errBadEncoding
			}
			e.HuffmanAlphabet[i] = v
			p += n
		}
		nlen, n, ok := itf8.Decode(args[p:])
		if !ok {
			return nil, 0, errBadEncoding
		}
		p += n
		e.HuffmanBitLens = make([]int32, nlen)
		for i := range e.HuffmanBitLens {
			v, n, ok := itf8.Decode(args[p:])
			if !ok {
				return nil, 0, errBadEncoding
			}
			e.HuffmanBitLens[i] = v
			p += n
		}
	case ByteArrayLen:
		p := 0
		lenEnc, n, err := Parse(args[p:])
		if err != nil {
			return nil, 0, err
		}
		e.LenEncoding = lenEnc
		p += n
		valEnc, n, err := Parse(args[p:])
		if err != nil {
			return nil, 0, err
		}
		e.ValEncoding = valEnc
		p += n
	case Beta:
		p := 0
		v, n, ok := itf8.Decode(args[p:])
		if !ok {
			return nil, 0, errBadEncoding
		}
		e.BetaOffset = v
		p += n
		w, _, ok := itf8.Decode(args[p:])
		if !ok {
			return nil, 0, errBadEncoding
		}
		e.BetaWidth = uint(w)
	case Subexp:
		p := 0
		v, n, ok := itf8.Decode(args[p:])
		if !ok {
			return nil, 0, errBadEncoding
		}
		e.SubexpOffset = v
		p += n
		k, _, ok := itf8.Decode(args[p:])
		if !ok {
			return nil, 0, errBadEncoding
		}
		e.SubexpK = uint(k)
	case Gamma:
		v, _, ok := itf8.Decode(args)
		if !ok {
			return nil, 0, errBadEncoding
		}
		e.GolombOffset = v
	default:
		return nil, 0, fmt.Errorf("encoding: unrecognised encoding kind %d", id)
	}
	return e, off, nil
}

// Source supplies the bit and byte streams a decode needs: the
// shared core-block bit reader, consumed MSB-first by Huffman, Beta,
// Gamma and Subexp series, and the per-content-id external byte
// cursors, consumed in slice declaration order by External,
// ByteArrayLen and ByteArrayStop series.
type Source struct {
	Core      *varint.BitReader
	Externals map[int32]io.ByteReader
}

// externalReader returns the byte cursor for id, or an error if no
// external block was registered for it.
func (s *Source) externalReader(id int32) (io.ByteReader, error) {
	r, ok := s.Externals[id]
	if !ok {
		return nil, fmt.Errorf("encoding: no external block for content id %d", id)
	}
	return r, nil
}

func readExternalITF8(r io.ByteReader) (int32, error) {
	var buf [5]byte
	b, err := r.ReadByte()
	if err != nil {
		return 0, err
	}
	buf[0] = b
	_, n, ok := itf8.Decode(buf[:1])
	if !ok {
		return 0, errBadEncoding
	}
	for i := 1; i < n; i++ {
		b, err := r.ReadByte()
		if err != nil {
			return 0, err
		}
		buf[i] = b
	}
	v, _, ok := itf8.Decode(buf[:n])
	if !ok {
		return 0, errBadEncoding
	}
	return v, nil
}

// DecodeInt decodes one integer-valued data series item using e and
// src.
func (e *Encoding) DecodeInt(src *Source) (int32, error) {
	switch e.Kind {
	case External:
		r, err := src.externalReader(e.ExternalID)
		if err != nil {
			return 0, err
		}
		return readExternalITF8(r)
	case Huffman:
		return decodeHuffman(e, src.Core)
	case Beta:
		v, err := src.Core.ReadBits(e.BetaWidth)
		if err != nil {
			return 0, err
		}
		return int32(v) + e.BetaOffset, nil
	case Gamma:
		v, err := decodeGamma(src.Core)
		if err != nil {
			return 0, err
		}
		return v + e.GolombOffset, nil
	case Subexp:
		v, err := decodeSubexp(src.Core, e.SubexpK)
		if err != nil {
			return 0, err
		}
		return v + e.SubexpOffset, nil
	case Golomb, GolombRice:
		v, err := decodeGolomb(src.Core, e.GolombM)
		if err != nil {
			return 0, err
		}
		return v + e.GolombOffset, nil
	case Null:
		return 0, nil
	default:
		return 0, fmt.Errorf("encoding: %d is not an integer series encoding", e.Kind)
	}
}

// DecodeBytes decodes one byte-array-valued data series item using e
// and src.
func (e *Encoding) DecodeBytes(src *Source) ([]byte, error) {
	switch e.Kind {
	case ByteArrayLen:
		n, err := e.LenEncoding.DecodeInt(src)
		if err != nil {
			return nil, err
		}
		out := make([]byte, n)
		r, err := src.externalReader(e.ValEncoding.ExternalID)
		if err != nil {
			return nil, err
		}
		for i := range out {
			out[i], err = r.ReadByte()
			if err != nil {
				return nil, err
			}
		}
		return out, nil
	case ByteArrayStop:
		r, err := src.externalReader(e.ExternalID)
		if err != nil {
			return nil, err
		}
		var out []byte
		for {
			b, err := r.ReadByte()
			if err != nil {
				return nil, err
			}
			if b == e.StopByte {
				return out, nil
			}
			out = append(out, b)
		}
	default:
		return nil, fmt.Errorf("encoding: %d is not a byte array encoding", e.Kind)
	}
}

// decodeHuffman walks a canonical Huffman code bit by bit against the
// (alphabet, bit-lengths) table. A single-symbol table with bit
// length 0 is the degenerate "always this symbol" case CRAM uses for
// constant series.
func decodeHuffman(e *Encoding, core *varint.BitReader) (int32, error) {
	if len(e.HuffmanAlphabet) == 1 && e.HuffmanBitLens[0] == 0 {
		return e.HuffmanAlphabet[0], nil
	}
	codes := huffmanCodes(e.HuffmanBitLens)
	var code uint32
	var length uint
	for length < 32 {
		bit, err := core.ReadBit()
		if err != nil {
			return 0, err
		}
		code = code<<1 | bit
		length++
		for i, l := range e.HuffmanBitLens {
			if uint(l) == length && codes[i] == code {
				return e.HuffmanAlphabet[i], nil
			}
		}
	}
	return 0, errors.New("encoding: huffman code not found in table")
}

// huffmanCodes assigns canonical Huffman codes to a table of symbol
// bit lengths, following the standard canonical-code construction:
// symbols are ordered by (length, original index) and each code is
// one more than the previous, shifted left when length increases.
func huffmanCodes(lens []int32) []uint32 {
	order := make([]int, len(lens))
	for i := range order {
		order[i] = i
	}
	for i := 1; i < len(order); i++ {
		for j := i; j > 0 && lens[order[j-1]] > lens[order[j]]; j-- {
			order[j-1], order[j] = order[j], order[j-1]
		}
	}
	codes := make([]uint32, len(lens))
	var code uint32
	prevLen := int32(0)
	for _, i := range order {
		if lens[i] == 0 {
			continue
		}
		code <<= uint(lens[i] - prevLen)
		codes[i] = code
		code++
		prevLen = lens[i]
	}
	return codes
}

// decodeGamma reads an Elias gamma code: a unary run of zero bits
// giving the exponent, a stop bit, then that many mantissa bits.
func decodeGamma(core *varint.BitReader) (int32, error) {
	var n uint
	for {
		b, err := core.ReadBit()
		if err != nil {
			return 0, err
		}
		if b == 1 {
			break
		}
		n++
	}
	if n == 0 {
		return 1, nil
	}
	v, err := core.ReadBits(n)
	if err != nil {
		return 0, err
	}
	return int32(1<<n | v), nil
}

// decodeSubexp reads a subexponential code with parameter k: small
// values under 1<<k are stored as fixed-width k-bit fields, larger
// values as a unary length prefix followed by that many value bits.
func decodeSubexp(core *varint.BitReader, k uint) (int32, error) {
	var u uint
	for {
		b, err := core.ReadBit()
		if err != nil {
			return 0, err
		}
		if b == 0 {
			break
		}
		u++
	}
	if u == 0 {
		v, err := core.ReadBits(k)
		if err != nil {
			return 0, err
		}
		return int32(v), nil
	}
	b := k + u - 1
	v, err := core.ReadBits(b)
	if err != nil {
		return 0, err
	}
	return int32((1 << (k + u - 1)) + v), nil
}

// decodeGolomb reads a Golomb code with divisor m: a unary quotient
// followed by a truncated-binary remainder.
func decodeGolomb(core *varint.BitReader, m int32) (int32, error) {
	if m <= 0 {
		m = 1
	}
	var q int32
	for {
		b, err := core.ReadBit()
		if err != nil {
			return 0, err
		}
		if b == 0 {
			break
		}
		q++
	}
	b := uint(0)
	for 1<<b < m {
		b++
	}
	if b == 0 {
		return q * m, nil
	}
	cutoff := uint32(1)<<b - uint32(m)
	r, err := core.ReadBits(b - 1)
	if err != nil {
		return 0, err
	}
	if r >= cutoff {
		bit, err := core.ReadBit()
		if err != nil {
			return 0, err
		}
		r = (r<<1 | bit) - cutoff
	}
	return q*m + int32(r), nil
}
