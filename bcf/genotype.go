// Copyright ©2012 The bíogo Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package bcf

import (
	"bytes"
	"fmt"
)

// GenotypeField is one FORMAT column decoded from a record's l_indiv
// block: the FORMAT key and, for each sample in header declaration
// order, that sample's value for the key.
type GenotypeField struct {
	Key     string
	Samples []*Value
}

// Genotypes lazily decodes the record's per-sample genotype block.
// The block is stored column-major: for each FORMAT key in turn, a
// single type/count descriptor followed by that many values for
// every sample in a row, so the whole column shares one descriptor.
func (r *Record) Genotypes() ([]GenotypeField, error) {
	br := bytes.NewReader(r.indiv)
	fields := make([]GenotypeField, 0, r.nFmt)
	for i := 0; i < r.nFmt; i++ {
		keyVal, err := readValue(br)
		if err != nil {
			return nil, err
		}
		if keyVal == nil || len(keyVal.Ints) == 0 {
			return nil, errTruncatedRecord
		}
		key, err := r.h.ResolveString(keyVal.Ints[0])
		if err != nil {
			return nil, err
		}
		if _, ok := r.h.Format(key); !ok {
			return nil, fmt.Errorf("bcf: missing header FORMAT record for %s", key)
		}

		typ, count, err := readTypeDescriptor(br)
		if err != nil {
			return nil, err
		}
		samples := make([]*Value, r.nSample)
		for s := 0; s < r.nSample; s++ {
			v, err := readFixedValue(br, typ, count)
			if err != nil {
				return nil, err
			}
			samples[s] = v
		}
		fields = append(fields, GenotypeField{Key: key, Samples: samples})
	}
	return fields, nil
}

// byKey returns the decoded FORMAT column for key, or nil if the
// record carries no such column.
func (fields genotypeFields) byKey(key string) *GenotypeField {
	for i := range fields {
		if fields[i].Key == key {
			return &fields[i]
		}
	}
	return nil
}

type genotypeFields []GenotypeField

// Genotype is a convenience wrapper that decodes Genotypes and
// returns the column for key.
func (r *Record) Genotype(key string) (*GenotypeField, error) {
	fields, err := r.Genotypes()
	if err != nil {
		return nil, err
	}
	return genotypeFields(fields).byKey(key), nil
}
