// Copyright 2018 GRAIL, Inc.  All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package comm

import (
	"github.com/grailbio/kindex/fastq"
	"github.com/grailbio/kindex/kmer"
)

// Entry is one occurrence of a k-mer in the input: which read it came from,
// its offset within that read, and the k-mer window's derived quality. It
// lives in comm, not multimap, because comm's wire codec (marshalEntry /
// unmarshalEntry) must refer to it without multimap importing comm back --
// multimap re-exports it as multimap.Entry via a type alias.
type Entry struct {
	Kmer    kmer.Kmer
	ReadID  fastq.RecordID
	Offset  int32
	Quality float64
}
