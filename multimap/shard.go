// Copyright 2018 GRAIL, Inc.  All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package multimap

import (
	"sync"

	"github.com/biogo/store/llrb"
	"github.com/grailbio/kindex/kmer"
)

// numShards is the number of mutex-guarded buckets a rank's local multimap
// state is split into, matching bamprovider/concurrentmap.go's
// numConcurrentMapShards sharding factor: the spec's "256 mutex-guarded
// buckets" per the GLOSSARY.
const numShards = 256

// entryNode orders Entry values by (ReadID, Offset) inside a single kmer's
// llrb.Tree, so Lookup returns occurrences in deterministic,
// offset-ascending order per read -- grounded on
// cmd/bio-bam-sort/sorter/sort.go's mergeLeaf.Compare /
// encoding/bampair/shard_info.go's byKey llrb.Tree idiom, generalized from
// "merge sorted shard files" / "order mate records" to "order a kmer's
// occurrences."
type entryNode Entry

func (e *entryNode) Compare(other llrb.Comparable) int {
	o := other.(*entryNode)
	if e.ReadID.FileID != o.ReadID.FileID {
		return int(e.ReadID.FileID) - int(o.ReadID.FileID)
	}
	if e.ReadID.Ordinal != o.ReadID.Ordinal {
		if e.ReadID.Ordinal < o.ReadID.Ordinal {
			return -1
		}
		return 1
	}
	if e.ReadID.Offset != o.ReadID.Offset {
		if e.ReadID.Offset < o.ReadID.Offset {
			return -1
		}
		return 1
	}
	return int(e.Offset) - int(o.Offset)
}

type shard struct {
	mu      sync.Mutex
	entries map[string]*llrb.Tree
}

// localShard is a sharded, thread-safe multimap from a k-mer's packed byte
// representation to an ordered tree of the Entry values observed for it on
// this rank, adapted from bamprovider.concurrentMap's shard-per-hash-range
// design (there keyed by seahash of a read name; here by farm.Hash64WithSeed
// of a Kmer's packed bytes, the kmer package's own seeded hash). The map key
// is the packed byte string rather than kmer.Kmer itself: Kmer holds its
// groups in a []uint64, and Go map keys must be comparable, so the
// equivalent fixed value -- its byte representation -- stands in for it.
type localShard struct {
	shards [numShards]shard
}

func newLocalShard() *localShard {
	m := &localShard{}
	for i := range m.shards {
		m.shards[i].entries = make(map[string]*llrb.Tree)
	}
	return m
}

const localHashSeed = 0x9e3779b97f4a7c15

func (m *localShard) bucket(h uint64) *shard {
	return &m.shards[h%numShards]
}

func kmerKey(km kmer.Kmer) string {
	buf := make([]byte, len(km.Words)*8)
	for i, w := range km.Words {
		for j := 0; j < 8; j++ {
			buf[i*8+j] = byte(w >> (8 * uint(j)))
		}
	}
	return string(buf)
}

// Insert records one occurrence of e.Kmer with metadata e.
func (m *localShard) Insert(e Entry) {
	h := e.Kmer.Hash(localHashSeed)
	s := m.bucket(h)
	key := kmerKey(e.Kmer)
	s.mu.Lock()
	tree := s.entries[key]
	if tree == nil {
		tree = &llrb.Tree{}
		s.entries[key] = tree
	}
	node := entryNode(e)
	tree.Insert(&node)
	s.mu.Unlock()
}

// Lookup returns every Entry recorded for km, ordered by (ReadID, Offset),
// or nil if none.
func (m *localShard) Lookup(km kmer.Kmer) []Entry {
	h := km.Hash(localHashSeed)
	s := m.bucket(h)
	key := kmerKey(km)
	s.mu.Lock()
	defer s.mu.Unlock()
	tree := s.entries[key]
	if tree == nil || tree.Len() == 0 {
		return nil
	}
	out := make([]Entry, 0, tree.Len())
	tree.Do(func(item llrb.Comparable) bool {
		out = append(out, Entry(*item.(*entryNode)))
		return false
	})
	return out
}

// Size returns the approximate number of entries currently held. Like
// concurrentMap.approxSize, it is only exact when called with no concurrent
// writers.
func (m *localShard) Size() int {
	n := 0
	for i := range m.shards {
		s := &m.shards[i]
		s.mu.Lock()
		for _, tree := range s.entries {
			n += tree.Len()
		}
		s.mu.Unlock()
	}
	return n
}

// OwnerRank returns which rank owns km under a worldSize-way hash partition,
// using farm.Hash64WithSeed (distinct from kmer.Kmer.Hash's default seed)
// so that inter-rank partitioning and intra-rank bucketing draw on
// independent hash values.
func OwnerRank(km kmer.Kmer, worldSize int) int {
	h := km.Hash(partitionHashSeed)
	return int(h % uint64(worldSize))
}

const partitionHashSeed = 0xc2b2ae3d27d4eb4f
