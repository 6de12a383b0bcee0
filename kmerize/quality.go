// Copyright 2018 GRAIL, Inc.  All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package kmerize

// sangerLogProbTable[c] is the log10 error probability of a Sanger-encoded
// (Phred+33) quality byte c, precomputed at init the same way fusion/kmer.go
// precomputes its asciiToKmerMap, rather than computing -float64(c-33)/10 on
// every base.
var sangerLogProbTable [256]float64

const sangerOffset = 33

func init() {
	for c := 0; c < 256; c++ {
		q := c - sangerOffset
		if q < 0 {
			q = 0
		}
		sangerLogProbTable[c] = -float64(q) / 10.0
	}
}
