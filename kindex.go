// Copyright 2018 GRAIL, Inc.  All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

// Package kindex wires the range partitioner, FASTQ/FASTA parser, k-mer
// generator, communication layer, and distributed multimap together into
// the build/query entry points a command-line driver (or another package)
// calls. It plays the role the teacher's encoding/pam.Writer/Reader pair
// plays for PAM files: a thin façade over several lower-level packages that
// do the real work, wired up once with sensible defaults.
package kindex

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync/atomic"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/traverse"
	"github.com/grailbio/kindex/fastq"
	"github.com/grailbio/kindex/ioshard"
	"github.com/grailbio/kindex/kmer"
	"github.com/grailbio/kindex/kmerize"
	"github.com/grailbio/kindex/multimap"
	"github.com/grailbio/kindex/transport"
)

// DefaultBufferCapacity is the per-destination comm buffer size used when
// Config.BufferCapacity is zero, per spec.md's own default.
const DefaultBufferCapacity = 64 << 10

// defaultQueueSize bounds how many out-of-order flush batches a Receiver
// tolerates before Recv must drain some; unrelated to BufferCapacity, so it
// is not part of Config.
const defaultQueueSize = 64

// Config parameterizes a single rank's participation in a Build.
type Config struct {
	WorldSize      int
	Rank           int
	ThreadCount    int
	ChunkSize      int64 // default: os page size
	BufferCapacity int   // default: DefaultBufferCapacity
	Alphabet       kmer.Alphabet
	K              int
	Transport      transport.Transport
}

func (cfg Config) withDefaults() Config {
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = int64(os.Getpagesize())
	}
	if cfg.BufferCapacity <= 0 {
		cfg.BufferCapacity = DefaultBufferCapacity
	}
	if cfg.ThreadCount <= 0 {
		cfg.ThreadCount = 1
	}
	return cfg
}

// Index is the live state of one rank's participation in a distributed
// k-mer index: its share of the local multimap, plus the resources (file
// loader, transport) that built it.
type Index struct {
	cfg   Config
	shape kmer.Shape
	mm    *multimap.Map
	stats kmerize.Stats
}

func asciiTableFor(alphabet kmer.Alphabet) [256]byte {
	switch alphabet.BitsPerChar {
	case 2:
		return kmerize.DNA2ASCIITable()
	case 4:
		return kmerize.DNA4ASCIITable()
	default:
		// Generic fallback: the raw byte value below 1<<BitsPerChar is its
		// own code, anything else is invalid. This covers the odd
		// (non-DNA) alphabets NewIdentityAlphabet builds for.
		var t [256]byte
		n := 1 << uint(alphabet.BitsPerChar)
		for i := range t {
			if i < n {
				t[i] = byte(i)
			} else {
				t[i] = 0xff
			}
		}
		return t
	}
}

func detectFormat(path string) ioshard.Format {
	p := strings.TrimSuffix(path, ".gz")
	if strings.HasSuffix(p, ".fa") || strings.HasSuffix(p, ".fasta") || strings.HasSuffix(p, ".fna") {
		return ioshard.FormatFASTA
	}
	return ioshard.FormatFASTQ
}

// Build indexes path's share assigned to cfg.Rank (of cfg.WorldSize ranks),
// inserting every observed k-mer into the distributed multimap reachable
// through cfg.Transport. It returns once this rank's share has been fully
// scanned, flushed, and -- because multimap.Map.Flush is itself a collective
// barrier -- every other rank has applied everything sent to it through this
// call: Query/Size on the returned Index already reflect every rank's
// contributions, with no additional external synchronization required.
// Build must be called by every rank, the same number of times, in the same
// order (the same collective-call discipline Flush and Size require).
func Build(ctx context.Context, path string, cfg Config) (*Index, error) {
	cfg = cfg.withDefaults()
	shape, err := kmer.NewShape(cfg.K, cfg.Alphabet)
	if err != nil {
		return nil, errors.E(err, "kindex.Build: shape")
	}

	loader, err := ioshard.Open(ctx, path, detectFormat(path), cfg.WorldSize, cfg.Rank, cfg.ThreadCount, cfg.ChunkSize)
	if err != nil {
		return nil, errors.E(err, "kindex.Build: open", path)
	}
	defer loader.Close()

	l1, err := loader.NextL1Block(ctx)
	if err != nil {
		return nil, errors.E(err, "kindex.Build: L1 block")
	}
	defer l1.Close()

	ix := &Index{
		cfg:   cfg,
		shape: shape,
		mm:    multimap.New(cfg.Transport, shape, cfg.BufferCapacity, defaultQueueSize),
	}
	table := asciiTableFor(cfg.Alphabet)
	var nextOrdinal uint64

	err = traverse.Each(cfg.ThreadCount, func(tid int) error {
		threadStats := &kmerize.Stats{}
		gen := kmerize.NewGenerator(shape, table, threadStats)
		for {
			l2, err := loader.NextL2Block(tid)
			if err != nil {
				return errors.E(err, "kindex.Build: L2 block")
			}
			if len(l2.Data) == 0 {
				break
			}
			scanner := fastq.NewScanner(l2.Data, 0, int64(len(l2.Data)), 0)
			var rec fastq.Record
			for scanner.Scan(&rec) {
				rec.ID.Ordinal = atomic.AddUint64(&nextOrdinal, 1) - 1
				rec.ID.Offset += l2.Range.Start
				gen.Reset(rec)
				for gen.Scan() {
					if err := ix.mm.Insert(ctx, gen.Get()); err != nil {
						return errors.E(err, "kindex.Build: insert")
					}
				}
			}
			if err := scanner.Err(); err != nil {
				return errors.E(err, "kindex.Build: scan")
			}
		}
		ix.stats.InvalidCharacters += threadStats.InvalidCharacters
		ix.stats.KmersEmitted += threadStats.KmersEmitted
		return nil
	})
	if err != nil {
		ix.mm.Close()
		return nil, err
	}

	if err := ix.mm.Flush(ctx); err != nil {
		ix.mm.Close()
		return nil, errors.E(err, "kindex.Build: flush")
	}
	return ix, nil
}

// Query returns every Entry recorded for k, if this rank owns k under the
// configured hash partition. If another rank owns k, Query returns an
// error naming that rank: a single Index is a view of its own rank's
// shard plus inbound writes, not a cluster-wide query router.
func (ix *Index) Query(k kmer.Kmer) ([]multimap.Entry, error) {
	owner := multimap.OwnerRank(k, ix.cfg.WorldSize)
	if owner != ix.cfg.Rank {
		return nil, errors.E(fmt.Sprintf("kindex.Query: k-mer is owned by rank %d; route the query there", owner))
	}
	return ix.mm.Lookup(k), nil
}

// Flush forces any buffered outbound inserts to cross the transport and
// blocks until every rank has applied everything sent to it through this
// call. It is a collective operation: every rank must call Flush the same
// number of times, in the same order.
func (ix *Index) Flush(ctx context.Context) error {
	return ix.mm.Flush(ctx)
}

// LocalSize returns the number of entries held by this rank's shard.
func (ix *Index) LocalSize() int64 {
	return int64(ix.mm.LocalSize())
}

// Size returns the number of entries held across every rank, via
// transport.SumAllReduce. Every rank must call Size concurrently (it is a
// collective operation), after each has Flushed and with no other Insert
// traffic in flight.
func (ix *Index) Size(ctx context.Context) (int64, error) {
	return transport.SumAllReduce(ctx, ix.cfg.Transport, ix.LocalSize())
}

// Close releases the Index's multimap resources. It does not close
// cfg.Transport, which callers may share across Indexes.
func (ix *Index) Close() error {
	return ix.mm.Close()
}

// Stats returns a snapshot of this rank's k-mer generation counters.
func (ix *Index) Stats() kmerize.Stats {
	return ix.stats
}
