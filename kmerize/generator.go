// Copyright 2018 GRAIL, Inc.  All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

// Package kmerize turns fastq.Record sequences into a stream of
// (k-mer, read-id, offset, quality) tuples. It is grounded on
// fusion/kmer.go's kmerizer: a Reset/Scan/Get pull iterator over one
// sequence at a time, generalized from that file's fixed 2-bit-DNA rolling
// window to any kmer.Alphabet, and on fusion/kmer_index.go's
// asciiToKmerMap, generalized from a hardcoded switch into an
// Alphabet-driven 256-entry table built once per Alphabet.
package kmerize

import (
	"github.com/grailbio/kindex/circular"
	"github.com/grailbio/kindex/fastq"
	"github.com/grailbio/kindex/kmer"
	"github.com/grailbio/kindex/multimap"
)

const invalidCode = 0xff

// Stats accumulates counters a Generator updates as it scans. Invalid
// (not-in-alphabet) characters are expected at the margin of real input
// (adapter contamination, N-runs) and are counted rather than surfaced as
// errors, mirroring how biosimd.IsNonACGTPresent feeds a counter instead of
// failing the scan.
type Stats struct {
	InvalidCharacters uint64
	KmersEmitted      uint64
}

// asciiTable maps an Alphabet's representable characters to their packed
// code, with invalidCode for anything the Alphabet can't represent. One
// table is built per distinct Alphabet value and reused across Generators.
func asciiTable(alphabet kmer.Alphabet, asciiOf func(code byte) []byte) [256]byte {
	var t [256]byte
	for i := range t {
		t[i] = invalidCode
	}
	n := 1 << uint(alphabet.BitsPerChar)
	for code := 0; code < n; code++ {
		for _, ch := range asciiOf(byte(code)) {
			t[ch] = byte(code)
		}
	}
	return t
}

// DNA2ASCIITable is the ASCII lookup table for kmer.DNA2Alphabet: upper and
// lower case A/C/G/T map to codes 0-3, everything else is invalid.
func DNA2ASCIITable() [256]byte {
	return asciiTable(kmer.DNA2Alphabet(), func(code byte) []byte {
		switch code {
		case 0:
			return []byte{'A', 'a'}
		case 1:
			return []byte{'C', 'c'}
		case 2:
			return []byte{'G', 'g'}
		case 3:
			return []byte{'T', 't'}
		}
		return nil
	})
}

// dna4Letters mirrors biosimd.SeqASCIITable's nibble order so a
// kmer.DNA4Alphabet code lines up with biosimd's unpacked-sequence bytes.
var dna4Letters = []byte("=ACMGRSVTWYHKDBN")

// DNA4ASCIITable is the ASCII lookup table for kmer.DNA4Alphabet.
func DNA4ASCIITable() [256]byte {
	return asciiTable(kmer.DNA4Alphabet(), func(code byte) []byte {
		if int(code) >= len(dna4Letters) {
			return nil
		}
		upper := dna4Letters[code]
		lower := upper
		if upper >= 'A' && upper <= 'Z' {
			lower = upper - 'A' + 'a'
		}
		if lower == upper {
			return []byte{upper}
		}
		return []byte{upper, lower}
	})
}

// Generator is a pull iterator over one fastq.Record's k-mers. Reset starts
// a new record; Scan advances to the next valid k-mer window; Get returns
// the tuple at the current position.
type Generator struct {
	shape      kmer.Shape
	table      [256]byte
	fileID     uint32
	ordinal    uint64
	recOffset  int64
	seq, qual  []byte
	si         int
	win        *window
	cur        kmer.Kmer
	qualSum    float64
	qualWindow []byte // last K quality bytes, for subtract-on-evict
	qi         int
	stats      *Stats
}

// NewGenerator builds a Generator for the given shape and ASCII table. stats
// accumulates counters across every Reset/Scan call made on the returned
// Generator; pass the same *Stats to every Generator sharing one worker
// thread's counters.
func NewGenerator(shape kmer.Shape, table [256]byte, stats *Stats) *Generator {
	return &Generator{
		shape:      shape,
		table:      table,
		win:        newWindow(shape.K),
		cur:        kmer.New(shape),
		qualWindow: make([]byte, shape.K),
		stats:      stats,
	}
}

// Reset begins scanning rec's sequence from the start.
func (g *Generator) Reset(rec fastq.Record) {
	g.fileID = rec.ID.FileID
	g.ordinal = rec.ID.Ordinal
	g.recOffset = rec.ID.Offset
	g.seq = rec.Seq
	g.qual = rec.Qual
	g.si = 0
	g.win = newWindow(g.shape.K)
	g.cur = kmer.New(g.shape)
	g.qualSum = 0
	g.qi = 0
	for i := range g.qualWindow {
		g.qualWindow[i] = 0
	}
}

// Scan advances to the next position holding a full, valid k-mer, returning
// false once the sequence is exhausted. Between Reset and the first Scan
// returning true, or between two Scan calls, Get's result is undefined.
func (g *Generator) Scan() bool {
	for g.si < len(g.seq) {
		ch := g.seq[g.si]
		code := g.table[ch]
		valid := code != invalidCode
		if !valid {
			g.stats.InvalidCharacters++
		} else {
			g.cur.Append(code)
		}
		g.win.advance(circular.PosType(g.si), valid)

		var q byte
		if g.si < len(g.qual) {
			q = g.qual[g.si]
		}
		slot := g.si % len(g.qualWindow)
		g.qualSum -= sangerLogProbTable[g.qualWindow[slot]]
		g.qualWindow[slot] = q
		g.qualSum += sangerLogProbTable[q]

		full := g.win.full(circular.PosType(g.si))
		g.si++
		if full {
			g.stats.KmersEmitted++
			return true
		}
	}
	return false
}

// Get returns the tuple at the Generator's current position (the position
// most recently confirmed by a Scan call returning true).
func (g *Generator) Get() multimap.Entry {
	offset := int32(g.si - g.shape.K)
	return multimap.Entry{
		Kmer: g.cur.Clone(),
		ReadID: fastq.RecordID{
			FileID:  g.fileID,
			Ordinal: g.ordinal,
			Offset:  g.recOffset,
		},
		Offset:  offset,
		Quality: g.qualSum,
	}
}
