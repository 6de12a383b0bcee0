// Copyright 2018 GRAIL, Inc.  All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

// Package comm buffers, coalesces, and flushes Entry insertions
// across a transport.Transport, asynchronously. It is grounded on
// encoding/pam/pamwriter.go's buffer-fills-then-flushes-async design
// (fieldWriteBuf / WriteBufPool), generalized from "accumulate PAM field
// bytes, flush to a file" to "accumulate wire-encoded entries, flush to a
// destination rank".
package comm

import (
	"encoding/binary"

	"github.com/grailbio/kindex/kmer"
)

// marshalEntry appends e's wire encoding to scratch and returns the result.
// The layout is fixed-width except for the k-mer's word count, which varies
// by Shape: a uint16 word count precedes the words themselves so
// unmarshalEntry can size its read without out-of-band shape information.
func marshalEntry(scratch []byte, e Entry) ([]byte, error) {
	buf := scratch
	var hdr [4 + 8 + 8 + 4 + 8 + 2]byte
	binary.LittleEndian.PutUint32(hdr[0:4], e.ReadID.FileID)
	binary.LittleEndian.PutUint64(hdr[4:12], e.ReadID.Ordinal)
	binary.LittleEndian.PutUint64(hdr[12:20], uint64(e.ReadID.Offset))
	binary.LittleEndian.PutUint32(hdr[20:24], uint32(e.Offset))
	binary.LittleEndian.PutUint64(hdr[24:32], uint64FromFloat(e.Quality))
	binary.LittleEndian.PutUint16(hdr[32:34], uint16(len(e.Kmer.Words)))
	buf = append(buf, hdr[:]...)
	for _, w := range e.Kmer.Words {
		var wb [8]byte
		binary.LittleEndian.PutUint64(wb[:], w)
		buf = append(buf, wb[:]...)
	}
	return buf, nil
}

// unmarshalEntry decodes one marshalEntry-encoded entry from buf, returning
// the entry and the number of bytes consumed. shape supplies the Alphabet
// the decoded Kmer should carry (the wire format itself is alphabet-free).
func unmarshalEntry(buf []byte, shape kmer.Shape) (Entry, int, error) {
	const hdrLen = 4 + 8 + 8 + 4 + 8 + 2
	if len(buf) < hdrLen {
		return Entry{}, 0, errShortBuffer
	}
	e := Entry{}
	e.ReadID.FileID = binary.LittleEndian.Uint32(buf[0:4])
	e.ReadID.Ordinal = binary.LittleEndian.Uint64(buf[4:12])
	e.ReadID.Offset = int64(binary.LittleEndian.Uint64(buf[12:20]))
	e.Offset = int32(binary.LittleEndian.Uint32(buf[20:24]))
	e.Quality = floatFromUint64(binary.LittleEndian.Uint64(buf[24:32]))
	nWords := int(binary.LittleEndian.Uint16(buf[32:34]))
	need := hdrLen + nWords*8
	if len(buf) < need {
		return Entry{}, 0, errShortBuffer
	}
	km := kmer.New(shape)
	for i := 0; i < nWords && i < len(km.Words); i++ {
		km.Words[i] = binary.LittleEndian.Uint64(buf[hdrLen+i*8:])
	}
	e.Kmer = km
	return e, need, nil
}
