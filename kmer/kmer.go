// Copyright 2018 GRAIL, Inc.  All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

// Package kmer implements fixed-length, bit-packed sequence words over a
// caller-supplied Alphabet. A Kmer stores its groups MSW-first per word but
// group-0 (the first character appended to a freshly constructed Kmer) is
// always found at the lowest bit position of Words[0]; Append, Reverse, and
// ReverseComplement all preserve that invariant. DNA2Alphabet and
// DNA4Alphabet are ordered to match biosimd's ReverseComp2/ReverseComp4
// seq8 encodings exactly, so ReverseComplement hands those bit widths
// straight to biosimd's routines instead of reimplementing them; other
// Alphabets fall back to a generic per-group loop.
package kmer

import (
	"fmt"

	farm "github.com/dgryski/go-farm"
	"github.com/grailbio/kindex/biosimd"
)

// OverflowError is returned by NewShape when k*bitsPerChar cannot be
// represented within a Kmer's fixed maximum word count.
type OverflowError struct {
	K           int
	BitsPerChar int
}

func (e *OverflowError) Error() string {
	return fmt.Sprintf("kmer: k=%d at %d bits/char overflows a representable word count", e.K, e.BitsPerChar)
}

// maxWords bounds how many uint64 words a single Kmer may occupy. The spec's
// O(k/w) complexity invariants assume this stays small (k rarely exceeds a
// few hundred), so an unbounded k is rejected rather than silently
// allocating an enormous array.
const maxWords = 256

// Shape describes the fixed parameters shared by every Kmer built from it:
// word length k and the Alphabet's bits per character. Shape is immutable
// and safe for concurrent use, matching how the teacher's fasta.Index is
// built once and shared read-only across goroutines.
type Shape struct {
	K           int
	Alphabet    Alphabet
	nWords      int
	totalBits   int
	paddingBits int
}

// NewShape validates (k, alphabet) and precomputes the word count a Kmer of
// this shape requires.
func NewShape(k int, alphabet Alphabet) (Shape, error) {
	if k <= 0 {
		return Shape{}, fmt.Errorf("kmer: k must be positive, got %d", k)
	}
	totalBits := k * alphabet.BitsPerChar
	nWords := (totalBits + 63) / 64
	if nWords > maxWords {
		return Shape{}, &OverflowError{K: k, BitsPerChar: alphabet.BitsPerChar}
	}
	return Shape{
		K:           k,
		Alphabet:    alphabet,
		nWords:      nWords,
		totalBits:   totalBits,
		paddingBits: nWords*64 - totalBits,
	}, nil
}

// Kmer is a fixed-length, bit-packed sequence word. The zero Kmer is not
// valid; construct one with New.
type Kmer struct {
	Shape Shape
	Words []uint64
}

// New returns a zero-valued Kmer of the given shape, ready for k calls to
// Append.
func New(shape Shape) Kmer {
	return Kmer{Shape: shape, Words: make([]uint64, shape.nWords)}
}

// Clone returns an independent copy of k.
func (k Kmer) Clone() Kmer {
	words := make([]uint64, len(k.Words))
	copy(words, k.Words)
	return Kmer{Shape: k.Shape, Words: words}
}

// Append shifts the Kmer's whole word array right by one character width and
// writes code into the newly opened top slot at group index K-1. Calling
// Append K times on a fresh Kmer fills it left-to-right: the first code
// appended ends at group 0 (the lowest bits of Words[0]); the most recently
// appended code is always at group K-1. Calling Append more than K times
// implements a rolling window: the oldest character falls off the bottom.
func (k *Kmer) Append(code byte) {
	bits := uint(k.Shape.Alphabet.BitsPerChar)
	shiftRightBits(k.Words, bits)
	setGroup(k.Words, bits, k.Shape.K-1, uint64(code))
}

// Group returns the character code at logical group index idx (0 is the
// oldest/lowest-order character).
func (k Kmer) Group(idx int) byte {
	return byte(getGroup(k.Words, uint(k.Shape.Alphabet.BitsPerChar), idx))
}

// Reverse reverses the order of k's K character groups in place: group 0
// and group K-1 swap, group 1 and group K-2 swap, and so on.
//
// For byte-aligned group widths (2, 4, or 8 bits) this runs as: (i) reverse
// the word order, (ii) reverse byte order within each word -- (i) and (ii)
// together are exactly a full byte-array reversal -- (iii) permute the
// bit-groups within each byte back to front via a precomputed table, then
// (iv) shift the whole array right by the padding bit count to re-align
// group 0 back to bit 0. Other group widths fall back to a generic
// per-group swap.
func (k *Kmer) Reverse() {
	bits := k.Shape.Alphabet.BitsPerChar
	if !fastReversible(bits) {
		k.reverseGeneric()
		return
	}
	buf := wordsToBytes(k.Words)
	reverseBytesInPlace(buf)
	table := reverseGroupsInByteTable[bits]
	for i, b := range buf {
		buf[i] = table[b]
	}
	bytesToWords(buf, k.Words)
	shiftRightBits(k.Words, uint(k.Shape.paddingBits))
}

func (k *Kmer) reverseGeneric() {
	bits := uint(k.Shape.Alphabet.BitsPerChar)
	n := k.Shape.K
	out := make([]uint64, len(k.Words))
	for i := 0; i < n; i++ {
		v := getGroup(k.Words, bits, i)
		setGroup(out, bits, n-1-i, v)
	}
	copy(k.Words, out)
}

// ReverseComplement complements every character group in place (via the
// Kmer's Alphabet), then reverses the result. This is the standard
// reverse_complement of a DNA/IUPAC sequence: complementing first and
// reversing second is equivalent to reversing first and complementing
// second.
//
// When the Alphabet is biosimdCompatible (DNA2Alphabet or DNA4Alphabet),
// this unpacks the Kmer's groups into a one-code-per-byte buffer and hands
// it to biosimd.ReverseComp2Inplace/ReverseComp4Inplace, the same seq8
// reverse-complement routines the teacher's .bam pipeline uses, rather than
// walking the groups with a local complement loop. Other Alphabets use the
// generic per-group loop.
func (k *Kmer) ReverseComplement() {
	bits := k.Shape.Alphabet.BitsPerChar
	if biosimdCompatible(k.Shape.Alphabet) {
		k.reverseComplementSeq8(bits)
		return
	}
	for i := 0; i < k.Shape.K; i++ {
		v := getGroup(k.Words, uint(bits), i)
		setGroup(k.Words, uint(bits), i, uint64(k.Shape.Alphabet.Complement(byte(v))))
	}
	k.Reverse()
}

// reverseComplementSeq8 bridges this Kmer's packed groups to biosimd's seq8
// (one code per byte) representation, calls the matching biosimd
// reverse-complement routine, and repacks the result.
func (k *Kmer) reverseComplementSeq8(bits int) {
	n := k.Shape.K
	seq8 := make([]byte, n)
	for i := 0; i < n; i++ {
		seq8[i] = byte(getGroup(k.Words, uint(bits), i))
	}
	switch bits {
	case 2:
		biosimd.ReverseComp2Inplace(seq8)
	case 4:
		biosimd.ReverseComp4Inplace(seq8)
	}
	for i := 0; i < n; i++ {
		setGroup(k.Words, uint(bits), i, uint64(seq8[i]))
	}
}

// Compare returns -1, 0, or 1 according to unsigned lexicographic order,
// most-significant word first -- i.e., by the character at group K-1 down
// to group 0. a and b must share the same Shape.
func Compare(a, b Kmer) int {
	for i := len(a.Words) - 1; i >= 0; i-- {
		if a.Words[i] < b.Words[i] {
			return -1
		}
		if a.Words[i] > b.Words[i] {
			return 1
		}
	}
	return 0
}

// Equal reports whether a and b hold the same bits.
func Equal(a, b Kmer) bool {
	return Compare(a, b) == 0
}

// Hash returns a seeded, order-sensitive hash of k's packed bits, suitable
// for distributing k-mers across multimap shards. It is grounded on the
// teacher's use of github.com/dgryski/go-farm for partitioning hashes
// elsewhere in the corpus (encoding/bamprovider's concurrentmap).
func (k Kmer) Hash(seed uint64) uint64 {
	buf := wordsToBytes(k.Words)
	return farm.Hash64WithSeed(buf, seed)
}

// String renders k's groups as decimal codes, oldest (group 0) first. It
// exists for debugging/test failure messages, not for production logging.
func (k Kmer) String() string {
	s := make([]byte, 0, k.Shape.K*3)
	for i := 0; i < k.Shape.K; i++ {
		s = append(s, []byte(fmt.Sprintf("%d ", k.Group(i)))...)
	}
	return string(s)
}
