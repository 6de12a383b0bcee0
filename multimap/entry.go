// Copyright 2018 GRAIL, Inc.  All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

// Package multimap implements a distributed, hash-partitioned multimap from
// k-mers to read metadata. Entries for the same k-mer are retained, not
// overwritten: a single k-mer may originate from many reads, at many
// offsets, and every occurrence is indexed.
package multimap

import "github.com/grailbio/kindex/comm"

// Entry is one occurrence of a k-mer in the input: which read it came from,
// its offset within that read, and the k-mer window's derived quality.
// Defined in comm (this is a type alias) so that comm's wire codec can refer
// to it without importing multimap, which itself imports comm for Sender
// and Receiver.
type Entry = comm.Entry
