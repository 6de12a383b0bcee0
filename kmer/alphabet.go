// Copyright 2018 GRAIL, Inc.  All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package kmer

// Alphabet describes how many bits encode one character, and how a
// character code complements under reverse_complement. Alphabets are data,
// not hardcoded switch statements, matching the teacher's
// biosimd.cleanASCIISeqTable/asciiToSeq8Table 256-entry array style.
type Alphabet struct {
	BitsPerChar int
	// complement[code] is the complement of code, for code < 1<<BitsPerChar.
	// Entries beyond that range are unused.
	complement [256]byte
}

// NewAlphabet builds an Alphabet from an explicit complement function applied
// to every representable code.
func NewAlphabet(bitsPerChar int, complementOf func(code byte) byte) Alphabet {
	a := Alphabet{BitsPerChar: bitsPerChar}
	n := 1 << uint(bitsPerChar)
	for c := 0; c < n; c++ {
		a.complement[c] = complementOf(byte(c))
	}
	return a
}

// NewIdentityAlphabet builds an Alphabet whose reverse_complement is
// equivalent to reverse, for alphabets without a natural complement notion
// (protein sequences, and other odd bit widths the spec allows but doesn't
// assign biological meaning to).
func NewIdentityAlphabet(bitsPerChar int) Alphabet {
	return NewAlphabet(bitsPerChar, func(c byte) byte { return c })
}

// DNA2Alphabet is the standard 2-bit DNA code: A=0, C=1, G=2, T=3, with the
// Watson-Crick complement (A<->T, C<->G).
func DNA2Alphabet() Alphabet {
	return NewAlphabet(2, func(c byte) byte {
		switch c {
		case 0: // A
			return 3 // T
		case 1: // C
			return 2 // G
		case 2: // G
			return 1 // C
		case 3: // T
			return 0 // A
		}
		return c
	})
}

// DNA4Alphabet is a 4-bit IUPAC ambiguity code, ordered to match
// biosimd.SeqASCIITable's nibble layout ('=ACMGRSVTWYHKDBN'), so kmer.Append
// can consume ASCII-to-nibble codes produced by biosimd.ASCIIToSeq8-style
// tables without remapping. Complementation follows the standard IUPAC
// complement rule (each code's complement swaps A/T and C/G within the
// ambiguity set it represents).
func DNA4Alphabet() Alphabet {
	// Index:       0   1   2   3   4   5   6   7   8   9  10  11  12  13  14  15
	// Code:        =   A   C   M   G   R   S   V   T   W   Y   H   K   D   B   N
	// Complement:  =   T   G   K   C   Y   S   B   A   W   R   D   M   H   V   N
	complement := [16]byte{0, 8, 4, 12, 2, 10, 6, 14, 1, 9, 5, 13, 3, 11, 7, 15}
	return NewAlphabet(4, func(c byte) byte {
		if int(c) < len(complement) {
			return complement[c]
		}
		return c
	})
}

// Complement returns the complement of code under a.
func (a Alphabet) Complement(code byte) byte {
	return a.complement[code]
}
