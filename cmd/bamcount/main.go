// Copyright ©2017 The bíogo Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command bamcount counts the alignment records overlapping a genomic
// region in an indexed BAM file, using the BAI index to seek directly
// to the relevant chunks rather than scanning the whole file.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/arand/hts/bam"
	"github.com/arand/hts/sam"
)

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: bamcount -bam FILE -bai FILE chrom:start-end\n")
		flag.PrintDefaults()
	}
	bamPath := flag.String("bam", "", "path to the BAM file")
	baiPath := flag.String("bai", "", "path to the BAI index; defaults to <bam>.bai")
	flag.Parse()

	if *bamPath == "" || flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}
	if *baiPath == "" {
		*baiPath = *bamPath + ".bai"
	}
	ref, beg, end, err := parseRegion(flag.Arg(0))
	if err != nil {
		slog.Error("bamcount: bad region", "err", err)
		os.Exit(1)
	}

	bf, err := os.Open(*bamPath)
	if err != nil {
		slog.Error("bamcount: failed to open bam", "err", err)
		os.Exit(1)
	}
	defer bf.Close()
	br, err := bam.NewReader(bf, 0)
	if err != nil {
		slog.Error("bamcount: failed to read bam header", "err", err)
		os.Exit(1)
	}
	defer br.Close()

	idxFile, err := os.Open(*baiPath)
	if err != nil {
		slog.Error("bamcount: failed to open bai", "err", err)
		os.Exit(1)
	}
	defer idxFile.Close()
	idx, err := bam.ReadIndex(idxFile)
	if err != nil {
		slog.Error("bamcount: failed to read bai", "err", err)
		os.Exit(1)
	}

	r, ok := findReference(br, ref)
	if !ok {
		slog.Error("bamcount: reference not found in bam header", "reference", ref)
		os.Exit(1)
	}

	chunks, err := idx.Chunks(r, beg, end)
	if err != nil {
		slog.Error("bamcount: failed to resolve chunks", "err", err)
		os.Exit(1)
	}

	it, err := bam.NewIterator(br, chunks)
	if err != nil {
		slog.Error("bamcount: failed to seek to region", "err", err)
		os.Exit(1)
	}
	defer it.Close()

	var n int
	for it.Next() {
		rec := it.Record()
		if rec.Start() < end && rec.End() > beg {
			n++
		}
	}
	if err := it.Error(); err != nil {
		slog.Error("bamcount: error reading region", "err", err)
		os.Exit(1)
	}

	fmt.Println(n)
}

func findReference(br *bam.Reader, name string) (*sam.Reference, bool) {
	for _, r := range br.Header().Refs() {
		if r.Name() == name {
			return r, true
		}
	}
	return nil, false
}

// parseRegion parses a chrom:start-end region string into a 0-based
// half-open interval. start-end is taken to be 1-based inclusive, the
// usual samtools region convention, so it is converted down by one on
// the begin side.
func parseRegion(s string) (ref string, beg, end int, err error) {
	i := strings.LastIndexByte(s, ':')
	if i < 0 {
		return "", 0, 0, fmt.Errorf("missing ':' in region %q", s)
	}
	ref = s[:i]
	span := s[i+1:]
	j := strings.IndexByte(span, '-')
	if j < 0 {
		return "", 0, 0, fmt.Errorf("missing '-' in region %q", s)
	}
	beg1, err := strconv.Atoi(span[:j])
	if err != nil {
		return "", 0, 0, fmt.Errorf("bad start in region %q: %w", s, err)
	}
	end, err = strconv.Atoi(span[j+1:])
	if err != nil {
		return "", 0, 0, fmt.Errorf("bad end in region %q: %w", s, err)
	}
	return ref, beg1 - 1, end, nil
}
