// Copyright ©2012 The bíogo Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package vcfheader implements parsing of VCF meta-information header
// text into the typed dictionaries a BCF record decoder needs: the
// string map and contig map that let records refer to header keys by
// small integer, and the INFO/FORMAT/FILTER declarations that give
// each key its expected type and arity.
package vcfheader

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	errBadHeader  = errors.New("vcfheader: malformed header line")
	errBadIDX     = errors.New("vcfheader: duplicate or malformed IDX")
	errDupID      = errors.New("vcfheader: duplicate ID")
	errUnknownRef = errors.New("vcfheader: unknown string map key")
)

// NumberKind describes the arity class of an INFO or FORMAT field, as
// given by the VCF Number attribute.
type NumberKind byte

const (
	// Fixed indicates an exact count, held in Number.Count.
	Fixed NumberKind = iota
	// PerAltAllele is the 'A' Number, one value per alternate allele.
	PerAltAllele
	// PerAllele is the 'R' Number, one value per allele including REF.
	PerAllele
	// PerGenotype is the 'G' Number, one value per possible genotype.
	PerGenotype
	// Variable is the '.' Number, an unspecified count.
	Variable
)

// Number is the parsed form of a VCF Number attribute.
type Number struct {
	Kind  NumberKind
	Count int // meaningful only when Kind == Fixed
}

func parseNumber(s string) (Number, error) {
	switch s {
	case "A":
		return Number{Kind: PerAltAllele}, nil
	case "R":
		return Number{Kind: PerAllele}, nil
	case "G":
		return Number{Kind: PerGenotype}, nil
	case ".":
		return Number{Kind: Variable}, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return Number{}, errBadHeader
	}
	return Number{Kind: Fixed, Count: n}, nil
}

// Type is a VCF INFO/FORMAT value type.
type Type byte

const (
	Integer Type = iota + 1
	Float
	Flag
	Character
	String
)

func parseType(s string) (Type, error) {
	switch s {
	case "Integer":
		return Integer, nil
	case "Float":
		return Float, nil
	case "Flag":
		return Flag, nil
	case "Character":
		return Character, nil
	case "String":
		return String, nil
	}
	return 0, errBadHeader
}

// Info is a parsed ##INFO meta-information line.
type Info struct {
	ID          string
	Number      Number
	Type        Type
	Description string
}

// Format is a parsed ##FORMAT meta-information line.
type Format struct {
	ID          string
	Number      Number
	Type        Type
	Description string
}

// Filter is a parsed ##FILTER meta-information line.
type Filter struct {
	ID          string
	Description string
}

// Contig is a parsed ##contig meta-information line.
type Contig struct {
	ID     string
	Length int
}

type set map[string]int32

// Header is a parsed VCF header: the structured meta-information
// lines plus the string map and contig map a BCF record decoder
// resolves its integer references against.
type Header struct {
	FileFormat string
	Contigs    []*Contig
	Infos      []*Info
	Formats    []*Format
	Filters    []*Filter
	Samples    []string
	Other      []string // unparsed or unrecognised meta-information lines

	infoByID   map[string]*Info
	formatByID map[string]*Format
	filterByID map[string]*Filter

	strings    []string // dictionary index -> key, in order of assignment
	stringIdx  set      // key -> dictionary index
	contigs    []string
	contigIdx  set
}

// NewHeader parses text, the VCF header block including the final
// "#CHROM ..." column line, and returns the resulting Header.
func NewHeader(text []byte) (*Header, error) {
	h := &Header{
		infoByID:   make(map[string]*Info),
		formatByID: make(map[string]*Format),
		filterByID: make(map[string]*Filter),
		stringIdx:  set{},
		contigIdx:  set{},
	}
	sc := bufio.NewScanner(bytes.NewReader(text))
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for sc.Scan() {
		line := sc.Text()
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "##") {
			if err := h.addMeta(line[2:]); err != nil {
				return nil, err
			}
			continue
		}
		if strings.HasPrefix(line, "#CHROM") {
			fields := strings.Split(line, "\t")
			const fixedCols = 9 // CHROM POS ID REF ALT QUAL FILTER INFO FORMAT
			if len(fields) > fixedCols {
				h.Samples = append(h.Samples, fields[fixedCols:]...)
			}
			continue
		}
		return nil, errBadHeader
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return h, nil
}

func (h *Header) addMeta(line string) error {
	eq := strings.IndexByte(line, '=')
	if eq < 0 {
		h.Other = append(h.Other, line)
		return nil
	}
	key, rest := line[:eq], line[eq+1:]
	switch key {
	case "fileformat":
		h.FileFormat = rest
	case "INFO", "FORMAT", "FILTER", "contig":
		if !strings.HasPrefix(rest, "<") || !strings.HasSuffix(rest, ">") {
			h.Other = append(h.Other, line)
			return nil
		}
		fields, err := parseStructured(rest[1 : len(rest)-1])
		if err != nil {
			return err
		}
		return h.addStructured(key, fields)
	default:
		h.Other = append(h.Other, line)
	}
	return nil
}

// parseStructured splits a "K1=V1,K2=\"quoted, value\",K3=V3" body
// into a map, honouring double-quoted values that may themselves
// contain commas.
func parseStructured(s string) (map[string]string, error) {
	fields := make(map[string]string)
	for len(s) > 0 {
		eq := strings.IndexByte(s, '=')
		if eq < 0 {
			return nil, errBadHeader
		}
		k := s[:eq]
		s = s[eq+1:]
		var v string
		if len(s) > 0 && s[0] == '"' {
			end := strings.IndexByte(s[1:], '"')
			if end < 0 {
				return nil, errBadHeader
			}
			v = s[1 : 1+end]
			s = s[1+end+1:]
		} else {
			next := strings.IndexByte(s, ',')
			if next < 0 {
				v = s
				s = ""
			} else {
				v = s[:next]
				s = s[next+1:]
			}
		}
		fields[k] = v
		if len(s) > 0 && s[0] == ',' {
			s = s[1:]
		}
	}
	return fields, nil
}

func (h *Header) addStructured(kind string, f map[string]string) error {
	id, ok := f["ID"]
	if !ok || id == "" {
		return errBadHeader
	}
	switch kind {
	case "contig":
		if _, dup := h.contigIdx[id]; dup {
			return nil // repeated contig declarations are tolerated
		}
		length, _ := strconv.Atoi(f["length"])
		c := &Contig{ID: id, Length: length}
		h.Contigs = append(h.Contigs, c)
		h.contigIdx[id] = int32(len(h.contigs))
		h.contigs = append(h.contigs, id)
		return nil
	case "FILTER":
		if _, dup := h.filterByID[id]; dup {
			return nil
		}
		filt := &Filter{ID: id, Description: f["Description"]}
		h.Filters = append(h.Filters, filt)
		h.filterByID[id] = filt
		h.internString(id)
		return nil
	case "INFO":
		if _, dup := h.infoByID[id]; dup {
			return nil
		}
		n, err := parseNumber(f["Number"])
		if err != nil {
			return err
		}
		t, err := parseType(f["Type"])
		if err != nil {
			return err
		}
		info := &Info{ID: id, Number: n, Type: t, Description: f["Description"]}
		h.Infos = append(h.Infos, info)
		h.infoByID[id] = info
		h.internString(id)
		return nil
	case "FORMAT":
		if _, dup := h.formatByID[id]; dup {
			return nil
		}
		n, err := parseNumber(f["Number"])
		if err != nil {
			return err
		}
		t, err := parseType(f["Type"])
		if err != nil {
			return err
		}
		format := &Format{ID: id, Number: n, Type: t, Description: f["Description"]}
		h.Formats = append(h.Formats, format)
		h.formatByID[id] = format
		h.internString(id)
		return nil
	}
	return fmt.Errorf("vcfheader: unhandled meta kind %q", kind)
}

// internString assigns key the next free string map index if it has
// not already been assigned one. FILTER, INFO and FORMAT IDs share a
// single dictionary, indexed in header declaration order, which is
// how BCF records refer back to them.
func (h *Header) internString(key string) int32 {
	if idx, ok := h.stringIdx[key]; ok {
		return idx
	}
	idx := int32(len(h.strings))
	h.stringIdx[key] = idx
	h.strings = append(h.strings, key)
	return idx
}

// StringIndex returns the string map index for key and whether it is
// present in the dictionary.
func (h *Header) StringIndex(key string) (int32, bool) {
	idx, ok := h.stringIdx[key]
	return idx, ok
}

// StringAt returns the dictionary key at index idx.
func (h *Header) StringAt(idx int32) (string, bool) {
	if idx < 0 || int(idx) >= len(h.strings) {
		return "", false
	}
	return h.strings[idx], true
}

// ContigIndex returns the contig map index for name.
func (h *Header) ContigIndex(name string) (int32, bool) {
	idx, ok := h.contigIdx[name]
	return idx, ok
}

// ContigAt returns the Contig declared at contig map index idx.
func (h *Header) ContigAt(idx int32) (*Contig, bool) {
	if idx < 0 || int(idx) >= len(h.Contigs) {
		return nil, false
	}
	return h.Contigs[idx], true
}

// Info returns the INFO declaration for id.
func (h *Header) Info(id string) (*Info, bool) {
	i, ok := h.infoByID[id]
	return i, ok
}

// Format returns the FORMAT declaration for id.
func (h *Header) Format(id string) (*Format, bool) {
	f, ok := h.formatByID[id]
	return f, ok
}

// Filter returns the FILTER declaration for id.
func (h *Header) Filter(id string) (*Filter, bool) {
	f, ok := h.filterByID[id]
	return f, ok
}

// ResolveString looks up the string map key at idx and reports
// errUnknownRef if idx is out of range.
func (h *Header) ResolveString(idx int32) (string, error) {
	s, ok := h.StringAt(idx)
	if !ok {
		return "", errUnknownRef
	}
	return s, nil
}
