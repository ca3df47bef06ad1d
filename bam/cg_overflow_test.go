// Copyright ©2017 The bíogo Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package bam

import (
	"testing"

	"github.com/arand/hts/sam"
)

func TestExpandCGOverflowUntouched(t *testing.T) {
	rec := &sam.Record{
		Cigar: []sam.CigarOp{sam.NewCigarOp(sam.CigarMatch, 100)},
	}
	expandCGOverflow(rec, 1)
	if len(rec.Cigar) != 1 || rec.Cigar[0].Type() != sam.CigarMatch {
		t.Errorf("cigar was modified on a record with no overflow placeholder: %v", rec.Cigar)
	}
}

func TestExpandCGOverflowWrongShape(t *testing.T) {
	rec := &sam.Record{
		Cigar: []sam.CigarOp{
			sam.NewCigarOp(sam.CigarMatch, 10),
			sam.NewCigarOp(sam.CigarSkipped, 5),
		},
	}
	expandCGOverflow(rec, 2)
	if len(rec.Cigar) != 2 || rec.Cigar[0].Type() != sam.CigarMatch {
		t.Errorf("cigar was modified on a record whose two ops aren't the overflow placeholder: %v", rec.Cigar)
	}
}

func TestCollapseAndExpandCGOverflow(t *testing.T) {
	ops := make([]sam.CigarOp, 70000)
	for i := range ops {
		ops[i] = sam.NewCigarOp(sam.CigarMatch, 1)
	}

	collapsed, aux, err := collapseCGOverflow(ops, nil)
	if err != nil {
		t.Fatalf("collapseCGOverflow: %v", err)
	}
	if len(collapsed) != 2 {
		t.Fatalf("got %d placeholder ops, want 2", len(collapsed))
	}
	if collapsed[0].Type() != sam.CigarSoftClipped || collapsed[0].Len() != len(ops) {
		t.Errorf("soft clip placeholder = %v, want span %d", collapsed[0], len(ops))
	}
	if collapsed[1].Type() != sam.CigarSkipped || collapsed[1].Len() != len(ops) {
		t.Errorf("ref skip placeholder = %v, want span %d", collapsed[1], len(ops))
	}
	if len(aux) != 1 || aux[0].Tag() != cgTag {
		t.Fatalf("expected a single CG aux field, got %v", aux)
	}

	rec := &sam.Record{Cigar: collapsed, AuxFields: aux}
	expandCGOverflow(rec, uint16(len(collapsed)))
	if len(rec.Cigar) != len(ops) {
		t.Fatalf("got %d restored ops, want %d", len(rec.Cigar), len(ops))
	}
	for i, o := range rec.Cigar {
		if o != ops[i] {
			t.Fatalf("restored op %d = %v, want %v", i, o, ops[i])
		}
	}
	if len(rec.AuxFields) != 0 {
		t.Errorf("CG tag not stripped from restored record: %v", rec.AuxFields)
	}
}
