// Copyright ©2017 The bíogo Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package rans

import (
	"bytes"

	"github.com/arand/hts/varint"
)

// rleScores scores each byte value by how often it repeats
// immediately after itself versus changes, over the whole input: +1
// for every position that repeats the byte before it, -1 otherwise.
// A positive score marks a symbol worth collapsing into run-length
// literal+count pairs; this is a global, not a per-run, decision, so
// a symbol that scores <=0 overall is left un-collapsed even where
// it happens to repeat locally.
func rleScores(data []byte) [256]int {
	var scores [256]int
	for i := 1; i < len(data); i++ {
		if data[i] == data[i-1] {
			scores[data[i]]++
		} else {
			scores[data[i]]--
		}
	}
	return scores
}

// rleEncode splits data into a literal stream and a side-channel
// header: a byte count of RLE-eligible symbols, the ascending list of
// those symbols, and then, for every literal that belongs to that
// set, a uint7 run length (count of additional repeats beyond the
// first) in the order the literals occur.
func rleEncode(data []byte) (meta, lits []byte) {
	scores := rleScores(data)
	var isMember [256]bool
	var m bytes.Buffer
	var n int
	for s := 0; s < 256; s++ {
		if scores[s] > 0 {
			n++
		}
	}
	m.WriteByte(byte(n))
	for s := 0; s < 256; s++ {
		if scores[s] > 0 {
			isMember[s] = true
			m.WriteByte(byte(s))
		}
	}

	var l bytes.Buffer
	for i := 0; i < len(data); {
		s := data[i]
		l.WriteByte(s)
		if isMember[s] {
			run := 0
			for i+run+1 < len(data) && data[i+run+1] == s {
				run++
			}
			writeUint7(&m, uint32(run))
			i += run
		}
		i++
	}
	return m.Bytes(), l.Bytes()
}

// rleDecode is the inverse of rleEncode, expanding lits back to
// outLen bytes using the alphabet and interleaved run lengths held in
// meta.
func rleDecode(meta, lits []byte, outLen int) ([]byte, error) {
	if len(meta) < 1 {
		return nil, errShortInput
	}
	n := int(meta[0])
	meta = meta[1:]
	if len(meta) < n {
		return nil, errShortInput
	}
	var isMember [256]bool
	for _, s := range meta[:n] {
		isMember[s] = true
	}
	meta = meta[n:]

	out := make([]byte, 0, outLen)
	for _, s := range lits {
		out = append(out, s)
		if isMember[s] {
			run, rn, ok := varint.DecodeUint7(meta)
			if !ok {
				return nil, errShortInput
			}
			meta = meta[rn:]
			for k := 0; k < int(run); k++ {
				out = append(out, s)
			}
		}
		if len(out) >= outLen {
			break
		}
	}
	if len(out) > outLen {
		out = out[:outLen]
	}
	return out, nil
}
