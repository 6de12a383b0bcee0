package comm

import (
	"context"
	"testing"

	"github.com/grailbio/kindex/fastq"
	"github.com/grailbio/kindex/kmer"
	"github.com/grailbio/kindex/transport/local"
)

func TestSenderReceiverRoundTrip(t *testing.T) {
	shape, err := kmer.NewShape(4, kmer.DNA2Alphabet())
	if err != nil {
		t.Fatal(err)
	}
	world := local.NewWorld(2, 8)
	defer world.Close()

	sender := NewSender(world.Rank(0), 1) // tiny capacity: every Send auto-flushes
	receiver := NewReceiver(world.Rank(1), shape, 8)

	km := kmer.New(shape)
	for _, c := range []byte{0, 1, 2, 3} {
		km.Append(c)
	}
	want := Entry{
		Kmer:    km,
		ReadID:  fastq.RecordID{FileID: 1, Ordinal: 2, Offset: 3},
		Offset:  5,
		Quality: -1.5,
	}

	ctx := context.Background()
	if err := sender.Send(ctx, 1, want); err != nil {
		t.Fatal(err)
	}
	// Capacity 1 already auto-flushed the entry above; this explicit Flush
	// additionally sends a round-tagged final marker to every destination.
	if err := sender.Flush(ctx, 1); err != nil {
		t.Fatal(err)
	}

	if err := receiver.Pump(ctx); err != nil {
		t.Fatal(err)
	}
	entries, final, _, ok, err := receiver.Recv(0)
	if err != nil {
		t.Fatal(err)
	}
	if !ok || len(entries) != 1 {
		t.Fatalf("got %d entries, want 1", len(entries))
	}
	if final {
		t.Fatal("expected the auto-flushed data batch to not be tagged final")
	}
	got := entries[0]
	if got.ReadID != want.ReadID || got.Offset != want.Offset || got.Quality != want.Quality {
		t.Fatalf("got %+v, want %+v", got, want)
	}
	if !kmer.Equal(got.Kmer, want.Kmer) {
		t.Fatalf("kmer mismatch: got %v, want %v", got.Kmer, want.Kmer)
	}

	if err := receiver.Pump(ctx); err != nil {
		t.Fatal(err)
	}
	marker, final, round, ok, err := receiver.Recv(0)
	if err != nil {
		t.Fatal(err)
	}
	if !ok || len(marker) != 0 {
		t.Fatalf("got %d entries in the final marker batch, want 0", len(marker))
	}
	if !final || round != 1 {
		t.Fatalf("got final=%v round=%d, want final=true round=1", final, round)
	}
}
