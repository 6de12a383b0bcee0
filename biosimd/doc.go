// Copyright 2018 GRAIL, Inc.  All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

// Package biosimd provides byte-array primitives used by package kmer: ASCII/
// code conversion, 4-bit and 2-bit sequence packing and unpacking,
// table-driven cleanup, and reverse-complement. kmer.Kmer.ReverseComplement
// calls into ReverseComp2Inplace/ReverseComp4Inplace directly whenever the
// Kmer's Alphabet encodes its characters the way those routines expect
// (DNA2Alphabet and DNA4Alphabet both do, by construction). These are
// written as portable Go rather than as the assembly-backed kernels
// base/simd uses for the equivalent .bam operations, since no vectorized
// implementation was available to adapt for this package's alphabets.
package biosimd
