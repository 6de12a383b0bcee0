// Copyright 2018 GRAIL, Inc.  All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

// Package ioshard memory-maps a file region per rank and hands it out to
// worker threads as non-overlapping byte slices, record-boundary aligned.
// It is grounded on golang.org/x/sys/unix.Mmap for the mapping itself (the
// approach fusion/kmer_index.go uses for its anonymous hash table, adapted
// here to a real file descriptor), and on encoding/bamprovider's
// pull-iterator style (Provider/Shard) for the nextL1Block/nextL2Block
// contract: callers pull, the loader never calls back into user code.
package ioshard

import (
	"context"
	"fmt"
	"io/ioutil"
	"os"
	"sync/atomic"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/log"
	"github.com/grailbio/kindex/fastq"
	"github.com/grailbio/kindex/rangepart"
	"github.com/klauspost/compress/gzip"
	"golang.org/x/sys/unix"
)

// Format identifies which record-resync algorithm governs L1/L2 boundary
// alignment.
type Format int

const (
	// FormatFASTQ aligns boundaries using fastq.Resync's four-line table.
	FormatFASTQ Format = iota
	// FormatFASTA aligns boundaries on lines beginning '>'.
	FormatFASTA
)

// defaultCushion bounds how far past a partition's nominal end the loader
// will mmap or buffer, in order to find a record boundary. It is generous
// enough for any realistic FASTQ/FASTA record.
const defaultCushion = 1 << 20 // 1 MiB

// L1Block is a contiguous byte region owned by exactly one rank for the
// duration of one indexing pass. Data is trimmed to the nearest enclosing
// record boundaries (unless it is the first/last block of the file).
type L1Block struct {
	Range rangepart.Range
	Data  []byte

	mapped []byte // raw mmap()'d region backing Data; nil if heap-backed (gzip path)
}

// Close releases the L1Block's backing memory. It is a no-op for gzip-backed
// (heap-buffered) blocks. Callers must not use Data, nor any L2Block sliced
// from it, after Close.
func (b *L1Block) Close() error {
	if b.mapped == nil {
		return nil
	}
	m := b.mapped
	b.mapped = nil
	b.Data = nil
	return unix.Munmap(m)
}

// L2Block is a sub-range of the owning L1Block, handed out one at a time to
// worker threads via an atomic cursor. Data is a sub-slice of the owning
// L1Block's Data and must not outlive it.
type L2Block struct {
	Range rangepart.Range
	Data  []byte
}

// Loader serves L1 and L2 blocks for one (path, world_size, rank) triple.
// It is not safe for concurrent use except for NextL2Block, which is
// explicitly safe for concurrent calls from thread_count goroutines.
type Loader struct {
	path        string
	format      Format
	worldSize   int
	rank        int
	threadCount int
	chunkSize   int64

	fd       *os.File
	fileSize int64
	gzip     bool

	l1     *L1Block
	cursor int64 // atomic, offset into l1.Data for the next L2Block
}

// Open partitions path's byte range across worldSize ranks, preparing to
// serve this rank's L1Block. Files ending in ".gz" use the streaming
// fallback described in the package's design notes: record-boundary resync
// against compressed bytes isn't meaningful, so the whole file is decoded
// once per rank and the rank's share of the decompressed bytes is buffered
// on the heap instead of mmap'd.
func Open(ctx context.Context, path string, format Format, worldSize, rank, threadCount int, chunkSize int64) (*Loader, error) {
	if rank < 0 || rank >= worldSize {
		return nil, errors.E(fmt.Sprintf("ioshard.Open: rank %d out of range for world size %d", rank, worldSize))
	}
	l := &Loader{
		path:        path,
		format:      format,
		worldSize:   worldSize,
		rank:        rank,
		threadCount: threadCount,
		chunkSize:   chunkSize,
		gzip:        isGzipPath(path),
	}
	if l.gzip {
		return l, nil
	}
	fd, err := os.Open(path)
	if err != nil {
		return nil, errors.E(err, "ioshard.Open")
	}
	fi, err := fd.Stat()
	if err != nil {
		fd.Close()
		return nil, errors.E(err, "ioshard.Open", "stat")
	}
	l.fd = fd
	l.fileSize = fi.Size()
	log.Debug.Printf("ioshard: rank %d/%d opened %s (%d bytes)", rank, worldSize, path, l.fileSize)
	return l, nil
}

func isGzipPath(path string) bool {
	n := len(path)
	return n > 3 && path[n-3:] == ".gz"
}

// NextL1Block returns this rank's (only) L1Block, record-boundary aligned,
// or an empty block on the second and subsequent calls. A partition that
// cannot locate a record boundary fails with an error wrapping the resync
// failure (mirroring spec's FormatError).
func (l *Loader) NextL1Block(ctx context.Context) (*L1Block, error) {
	if l.l1 != nil {
		return &L1Block{}, nil
	}
	var b *L1Block
	var err error
	if l.gzip {
		b, err = l.openGzipL1(ctx)
	} else {
		b, err = l.openMmapL1()
	}
	if err != nil {
		return nil, err
	}
	l.l1 = b
	atomic.StoreInt64(&l.cursor, 0)
	return b, nil
}

func (l *Loader) resync(data []byte, offset int64) (int64, error) {
	if l.format == FormatFASTA {
		return fastq.ResyncFASTA(data, offset)
	}
	return fastq.Resync(data, offset)
}

func (l *Loader) openMmapL1() (*L1Block, error) {
	const pageSize = 4096
	nominal := rangepart.Partition(l.fileSize, l.worldSize)[l.rank]
	pageStart := rangepart.AlignToPage(nominal.Start, pageSize)
	mmapEnd := nominal.End + defaultCushion
	if mmapEnd > l.fileSize {
		mmapEnd = l.fileSize
	}
	mmapLen := mmapEnd - pageStart
	if mmapLen <= 0 {
		return &L1Block{Range: rangepart.Range{Start: nominal.Start, End: nominal.Start}}, nil
	}
	data, err := unix.Mmap(int(l.fd.Fd()), pageStart, int(mmapLen), unix.PROT_READ, unix.MAP_SHARED)
	if err != nil {
		return nil, errors.E(err, "ioshard: mmap", l.path)
	}

	localStart := nominal.Start - pageStart
	if l.rank != 0 {
		adj, err := l.resync(data, localStart)
		if err != nil {
			unix.Munmap(data)
			return nil, errors.E(err, "ioshard: no record boundary for rank start")
		}
		localStart = adj
	}

	localEnd := nominal.End - pageStart
	if l.rank != l.worldSize-1 {
		adj, err := l.resync(data, localEnd)
		if err != nil {
			unix.Munmap(data)
			return nil, errors.E(err, "ioshard: no record boundary for rank end")
		}
		localEnd = adj
	} else {
		localEnd = int64(len(data))
	}

	return &L1Block{
		Range: rangepart.Range{Start: pageStart + localStart, End: pageStart + localEnd},
		Data:  data[localStart:localEnd],
		mapped: data,
	}, nil
}

func (l *Loader) openGzipL1(ctx context.Context) (*L1Block, error) {
	f, err := file.Open(ctx, l.path)
	if err != nil {
		return nil, errors.E(err, "ioshard: open gzip source")
	}
	defer f.Close(ctx)
	gr, err := gzip.NewReader(f.Reader(ctx))
	if err != nil {
		return nil, errors.E(err, "ioshard: gzip header")
	}
	defer gr.Close()
	decompressed, err := ioutil.ReadAll(gr)
	if err != nil {
		return nil, errors.E(err, "ioshard: gzip decode")
	}

	nominal := rangepart.Partition(int64(len(decompressed)), l.worldSize)[l.rank]
	start := nominal.Start
	if l.rank != 0 {
		adj, err := l.resync(decompressed, start)
		if err != nil {
			return nil, errors.E(err, "ioshard: no record boundary for rank start (gzip)")
		}
		start = adj
	}
	end := nominal.End
	if l.rank != l.worldSize-1 {
		adj, err := l.resync(decompressed, end)
		if err != nil {
			return nil, errors.E(err, "ioshard: no record boundary for rank end (gzip)")
		}
		end = adj
	} else {
		end = int64(len(decompressed))
	}
	return &L1Block{
		Range: rangepart.Range{Start: start, End: end},
		Data:  decompressed[start:end],
	}, nil
}

// NextL2Block returns the next chunk_size-sized, record-boundary-aligned
// slice of the current L1Block, or an empty block once the L1Block is
// exhausted. It is safe to call concurrently from multiple worker
// goroutines; the cursor is advanced with a compare-and-swap loop, not a
// single fetch-add: each caller resyncs its chunk's end, then swaps the
// cursor from start to end and retries if another goroutine moved it first.
func (l *Loader) NextL2Block(tid int) (*L2Block, error) {
	if l.l1 == nil {
		return &L2Block{}, nil
	}
	data := l.l1.Data
	total := int64(len(data))
	for {
		start := atomic.LoadInt64(&l.cursor)
		if start >= total {
			return &L2Block{}, nil
		}
		nominalEnd := start + l.chunkSize
		if nominalEnd >= total {
			if !atomic.CompareAndSwapInt64(&l.cursor, start, total) {
				continue
			}
			return &L2Block{
				Range: rangepart.Range{Start: l.l1.Range.Start + start, End: l.l1.Range.Start + total},
				Data:  data[start:total],
			}, nil
		}
		end, err := l.resync(data, nominalEnd)
		if err != nil {
			return nil, errors.E(err, "ioshard: no record boundary in L2 chunk")
		}
		if !atomic.CompareAndSwapInt64(&l.cursor, start, end) {
			continue
		}
		return &L2Block{
			Range: rangepart.Range{Start: l.l1.Range.Start + start, End: l.l1.Range.Start + end},
			Data:  data[start:end],
		}, nil
	}
}

// ResetL2Partitioner rewinds the L2 cursor so the current L1Block can be
// scanned again from the start.
func (l *Loader) ResetL2Partitioner() {
	atomic.StoreInt64(&l.cursor, 0)
}

// Close releases the loader's file handle and current L1Block, if any.
func (l *Loader) Close() error {
	var err error
	if l.l1 != nil {
		err = l.l1.Close()
		l.l1 = nil
	}
	if l.fd != nil {
		if cerr := l.fd.Close(); err == nil {
			err = cerr
		}
	}
	return err
}
