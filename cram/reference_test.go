// Copyright ©2017 The bíogo Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cram

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/arand/hts/fai"
)

func writeFasta(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "ref.fa")
	const fasta = ">chr1 test chromosome\n" +
		"ACGTACGTAC\n" +
		"GTACGTACGT\n" +
		"ACGT\n"
	if err := os.WriteFile(path, []byte(fasta), 0o644); err != nil {
		t.Fatalf("write fasta: %v", err)
	}
	return path
}

func TestFastaReferenceSource(t *testing.T) {
	dir := t.TempDir()
	path := writeFasta(t, dir)

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open fasta: %v", err)
	}
	idx, err := fai.NewIndex(f)
	f.Close()
	if err != nil {
		t.Fatalf("fai.NewIndex: %v", err)
	}

	src, err := NewFastaReferenceSource(path, idx)
	if err != nil {
		t.Fatalf("NewFastaReferenceSource: %v", err)
	}
	defer src.Close()

	got, err := src.Sequence("chr1", 0, 24)
	if err != nil {
		t.Fatalf("Sequence: %v", err)
	}
	want := "ACGTACGTACGTACGTACGTACGT"
	if string(got) != want {
		t.Fatalf("got=%q want=%q", got, want)
	}

	got, err = src.Sequence("chr1", 8, 14)
	if err != nil {
		t.Fatalf("Sequence: %v", err)
	}
	if want := "ACGTAC"; string(got) != want {
		t.Fatalf("got=%q want=%q", got, want)
	}

	if _, err := src.Sequence("nope", 0, 1); err == nil {
		t.Fatalf("expected error for unknown sequence name")
	}
}

func TestFastaReferenceSourceBadRange(t *testing.T) {
	dir := t.TempDir()
	path := writeFasta(t, dir)
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open fasta: %v", err)
	}
	idx, err := fai.NewIndex(f)
	f.Close()
	if err != nil {
		t.Fatalf("fai.NewIndex: %v", err)
	}
	src, err := NewFastaReferenceSource(path, idx)
	if err != nil {
		t.Fatalf("NewFastaReferenceSource: %v", err)
	}
	defer src.Close()

	if _, err := src.Sequence("chr1", 5, 2); err == nil {
		t.Fatalf("expected error for end before start")
	}
}
