package comm

import (
	"context"
	"encoding/binary"

	"github.com/golang/snappy"
	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/syncqueue"
	"github.com/grailbio/kindex/kmer"
	"github.com/grailbio/kindex/transport"
)

// Receiver decodes flush batches a Sender produces and yields their Entry
// contents back out in per-source send order, via one syncqueue.OrderedQueue
// per source rank -- the same ordered-delivery primitive
// encoding/bam/shardedbam.go uses to reassemble out-of-order shard writes
// back into sequential order, applied here to out-of-order batch arrivals
// from a single sender instead of out-of-order BAM shards.
type Receiver struct {
	t      transport.Transport
	shape  kmer.Shape
	queues []*syncqueue.OrderedQueue
}

// NewReceiver builds a Receiver for t's world size and the Shape entries'
// Kmer fields should be decoded with. queueSize bounds how far a source's
// batches may arrive out of order before Recv must drain some.
func NewReceiver(t transport.Transport, shape kmer.Shape, queueSize int) *Receiver {
	n := t.WorldSize()
	r := &Receiver{t: t, shape: shape, queues: make([]*syncqueue.OrderedQueue, n)}
	for i := range r.queues {
		r.queues[i] = syncqueue.NewOrderedQueue(queueSize)
	}
	return r
}

// batch is what Pump inserts into a source's ordered queue: a decoded
// flush's compressed payload plus the round-end metadata Sender.Flush
// tags its batches with.
type batch struct {
	final      bool
	round      uint64
	compressed []byte
}

// Pump reads one payload off the transport and inserts it into its source's
// ordered queue. Callers run Pump in a loop on a background goroutine per
// Receiver; Recv drains the queues independently of Pump's arrival order.
func (r *Receiver) Pump(ctx context.Context) error {
	src, payload, err := r.t.Recv(ctx)
	if err != nil {
		return err
	}
	const hdrLen = 8 + 8 + 1 + len(checksumKey)
	if len(payload) < hdrLen {
		return errors.E("comm.Receiver: payload too short for sequence/round/checksum header")
	}
	seq := binary.LittleEndian.Uint64(payload[0:8])
	round := binary.LittleEndian.Uint64(payload[8:16])
	final := payload[16] != 0
	var sum [len(checksumKey)]byte
	copy(sum[:], payload[17:hdrLen])
	compressed := payload[hdrLen:]
	if err := verifyChecksum(compressed, sum); err != nil {
		return errors.E(err, "comm.Receiver: pump")
	}
	return r.queues[src].Insert(int(seq), batch{final: final, round: round, compressed: compressed})
}

// Recv returns the next in-order batch of Entry values from src, blocking
// until Pump has delivered it, along with whether that batch was the final
// one Sender.Flush sent for round (and round itself; meaningless when final
// is false). ok is false once src's queue is closed with no more pending
// batches.
func (r *Receiver) Recv(src int) (entries []Entry, final bool, round uint64, ok bool, err error) {
	v, ok, err := r.queues[src].Next()
	if err != nil || !ok {
		return nil, false, 0, ok, err
	}
	b := v.(batch)
	framed, err := snappy.Decode(nil, b.compressed)
	if err != nil {
		return nil, false, 0, false, errors.E(err, "comm.Receiver: snappy decode")
	}
	raw, err := unframeBlock(framed)
	if err != nil {
		return nil, false, 0, false, err
	}
	for len(raw) > 0 {
		e, n, err := unmarshalEntry(raw, r.shape)
		if err != nil {
			return nil, false, 0, false, err
		}
		entries = append(entries, e)
		raw = raw[n:]
	}
	return entries, b.final, b.round, true, nil
}

// Close signals that no more batches will arrive from any source, waking
// any Recv calls blocked waiting on them.
func (r *Receiver) Close(err error) {
	for _, q := range r.queues {
		q.Close(err)
	}
}
