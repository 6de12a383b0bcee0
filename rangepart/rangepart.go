// Copyright 2018 GRAIL, Inc.  All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

// Package rangepart splits a file's byte extent into sub-ranges aligned to
// rank and thread boundaries, and page-aligns them for memory mapping. It
// generalizes the half-open-interval comparison idiom of the teacher's
// interval/endpoint_index.go and the Start/End padding arithmetic of
// encoding/bam/shard.go's Shard type to a format-agnostic byte range.
package rangepart

import "fmt"

// Range is a half-open byte interval [Start, End) over a file, with an
// overlap hint (how far a consumer may need to read past End to find a
// record boundary) and a Step (the nominal stride used to produce it, for
// L2Block slicing).
type Range struct {
	Start, End int64
	Overlap    int64
	Step       int64
}

// Len returns End - Start.
func (r Range) Len() int64 {
	return r.End - r.Start
}

// Empty reports whether the range contains no bytes.
func (r Range) Empty() bool {
	return r.End <= r.Start
}

// Valid reports whether the range satisfies the Range invariants: Start <=
// End and Overlap >= 0.
func (r Range) Valid() bool {
	return r.Start <= r.End && r.Overlap >= 0
}

func (r Range) String() string {
	return fmt.Sprintf("[%d, %d) overlap=%d step=%d", r.Start, r.End, r.Overlap, r.Step)
}

// Partition splits [0, total) into the given number of parts as a block
// partition: each part gets total/parts bytes, and the last part absorbs the
// remainder. It panics if parts <= 0 or total < 0.
func Partition(total int64, parts int) []Range {
	if parts <= 0 {
		panic("rangepart.Partition requires parts > 0")
	}
	if total < 0 {
		panic("rangepart.Partition requires total >= 0")
	}
	step := total / int64(parts)
	out := make([]Range, parts)
	start := int64(0)
	for i := 0; i < parts; i++ {
		end := start + step
		if i == parts-1 {
			end = total
		}
		out[i] = Range{Start: start, End: end, Step: step}
		start = end
	}
	return out
}

// AlignToPage returns the largest multiple of page that is <= start. It is
// used to compute a page-aligned mmap base without moving the range's
// logical start; callers mmap from the aligned base and slice forward by
// (start - aligned) to recover the logical start.
func AlignToPage(start, page int64) int64 {
	if page <= 0 {
		panic("rangepart.AlignToPage requires page > 0")
	}
	return (start / page) * page
}

// Intersect returns the overlap of a and b. The result is empty (Start ==
// End == 0, by convention) iff a.End <= b.Start or b.End <= a.Start.
func Intersect(a, b Range) Range {
	if a.End <= b.Start || b.End <= a.Start {
		return Range{}
	}
	start := a.Start
	if b.Start > start {
		start = b.Start
	}
	end := a.End
	if b.End < end {
		end = b.End
	}
	return Range{Start: start, End: end}
}
