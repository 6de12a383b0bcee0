// Copyright 2018 GRAIL, Inc.  All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package kmerize

import "github.com/grailbio/kindex/circular"

// window tracks whether the last k positions scanned were all valid
// (alphabet) characters, using a circular.Bitmap sized to the next power of
// two above k rather than a bare counter. A plain counter would answer the
// same "is currently valid" question in O(1); the Bitmap is adopted anyway
// because it is the teacher's existing building block for exactly this
// circular-window bookkeeping (bio/circular), and it leaves room to later
// ask richer questions ("which of the last k positions were valid") without
// a new data structure.
type window struct {
	bm    circular.Bitmap
	nCirc circular.PosType
	k     circular.PosType
}

func newWindow(k int) *window {
	nCirc := circular.PosType(circular.NextExp2(k))
	return &window{
		bm:    circular.NewBitmap(nCirc, 1),
		nCirc: nCirc,
		k:     circular.PosType(k),
	}
}

// advance records the validity of the character at absolute position pos. An
// invalid character breaks the run, so the window is reset outright rather
// than patched bit-by-bit; invalid characters are expected to be the rare
// case, so this is amortized O(1) over a long valid run.
func (w *window) advance(pos circular.PosType, valid bool) {
	if !valid {
		w.bm = circular.NewBitmap(w.nCirc, 1)
		return
	}
	circPos := pos % w.nCirc
	if pos >= w.nCirc {
		w.bm.Clear(pos-w.nCirc, circPos, 0)
	}
	w.bm.Set(pos, circPos, 0)
}

// full reports whether the window ending at pos (inclusive) holds k
// consecutive valid characters.
func (w *window) full(pos circular.PosType) bool {
	fp := w.bm.FirstPos()
	return fp != circular.FirstPosEmpty && pos-fp+1 >= w.k
}
