package multimap

import (
	"testing"

	"github.com/grailbio/kindex/fastq"
	"github.com/grailbio/kindex/kmer"
)

func makeKmer(t *testing.T, shape kmer.Shape, codes []byte) kmer.Kmer {
	t.Helper()
	km := kmer.New(shape)
	for _, c := range codes {
		km.Append(c)
	}
	return km
}

func TestLocalShardInsertLookup(t *testing.T) {
	shape, err := kmer.NewShape(4, kmer.DNA2Alphabet())
	if err != nil {
		t.Fatal(err)
	}
	m := newLocalShard()
	km1 := makeKmer(t, shape, []byte{0, 1, 2, 3})
	km2 := makeKmer(t, shape, []byte{3, 2, 1, 0})

	m.Insert(Entry{Kmer: km1, ReadID: fastq.RecordID{Ordinal: 1}, Offset: 0})
	m.Insert(Entry{Kmer: km1, ReadID: fastq.RecordID{Ordinal: 2}, Offset: 4})
	m.Insert(Entry{Kmer: km2, ReadID: fastq.RecordID{Ordinal: 3}, Offset: 0})

	got1 := m.Lookup(km1)
	if len(got1) != 2 {
		t.Fatalf("Lookup(km1) = %d entries, want 2", len(got1))
	}
	got2 := m.Lookup(km2)
	if len(got2) != 1 {
		t.Fatalf("Lookup(km2) = %d entries, want 1", len(got2))
	}
	if m.Size() != 3 {
		t.Fatalf("Size() = %d, want 3", m.Size())
	}
}

func TestOwnerRankDeterministic(t *testing.T) {
	shape, err := kmer.NewShape(4, kmer.DNA2Alphabet())
	if err != nil {
		t.Fatal(err)
	}
	km := makeKmer(t, shape, []byte{0, 1, 2, 3})
	r1 := OwnerRank(km, 8)
	r2 := OwnerRank(km, 8)
	if r1 != r2 {
		t.Fatalf("OwnerRank not deterministic: %d vs %d", r1, r2)
	}
	if r1 < 0 || r1 >= 8 {
		t.Fatalf("OwnerRank out of range: %d", r1)
	}
}
