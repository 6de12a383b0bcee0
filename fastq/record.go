// Copyright 2018 GRAIL, Inc.  All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

// Package fastq parses FASTQ (and, for resync purposes, FASTA) records
// directly out of byte slices borrowed from a memory-mapped file region,
// including resynchronizing to a record boundary at an arbitrary interior
// offset. It generalizes the teacher's bufio.Scanner-based
// encoding/fastq.Scanner to operate without a stream, since resync must run
// against an mmap window that starts mid-file.
package fastq

// RecordID identifies a read's position in the overall input: which file it
// came from, its ordinal among records yielded by that file, and the byte
// offset of its first header character.
type RecordID struct {
	FileID  uint32
	Ordinal uint64
	Offset  int64
}

// Record is a single FASTQ read. Seq and Qual are slices into the caller's
// backing buffer (typically an ioshard.L2Block's Data); callers that need to
// retain a Record past the buffer's lifetime must copy it.
type Record struct {
	ID   RecordID
	Seq  []byte
	Qual []byte
}
