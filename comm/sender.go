package comm

import (
	"context"
	"encoding/binary"
	"fmt"
	"sync/atomic"

	"github.com/golang/snappy"
	"github.com/grailbio/base/errors"
	"github.com/grailbio/kindex/transport"
)

// Sender coalesces Entry writes per destination rank and flushes them,
// snappy-compressed and recordio-framed, across a transport.Transport once
// a destination's buffer passes bufferCapacity bytes or Flush is called
// explicitly. It is safe for concurrent Send calls to distinct or the same
// destination.
type Sender struct {
	t       transport.Transport
	buffers []*destBuffer
	seq     []uint64
}

// NewSender builds a Sender for t's world size, coalescing up to
// bufferCapacity bytes per destination before an automatic flush.
func NewSender(t transport.Transport, bufferCapacity int) *Sender {
	n := t.WorldSize()
	s := &Sender{
		t:       t,
		buffers: make([]*destBuffer, n),
		seq:     make([]uint64, n),
	}
	for i := range s.buffers {
		s.buffers[i] = newDestBuffer(bufferCapacity)
	}
	return s
}

// Send coalesces e for delivery to dst, flushing immediately if the
// destination's buffer has filled.
func (s *Sender) Send(ctx context.Context, dst int, e Entry) error {
	encoded, err := marshalEntry(nil, e)
	if err != nil {
		return errors.E(err, "comm.Sender.Send: marshal")
	}
	if s.buffers[dst].write(encoded) {
		return s.flush(ctx, dst, false, 0)
	}
	return nil
}

// Flush forces out any buffered entries for every destination, even below
// the automatic-flush threshold, tagging the batch sent to each destination
// as round's final one -- even when there is nothing buffered, an empty
// batch is still sent so the destination can tell it has now received
// everything this Sender will send for round. multimap.Map.Flush uses this
// to know when it may stop waiting for a source to finish applying.
func (s *Sender) Flush(ctx context.Context, round uint64) error {
	var firstErr error
	for dst := range s.buffers {
		if err := s.flush(ctx, dst, true, round); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (s *Sender) flush(ctx context.Context, dst int, final bool, round uint64) error {
	raw := s.buffers[dst].swap()
	if raw == nil {
		if !final {
			return nil
		}
		raw = []byte{}
	}
	framed, err := frameBlock(raw)
	if err != nil {
		return err
	}
	compressed := snappy.Encode(nil, framed)
	sum := checksum(compressed)

	seq := atomic.AddUint64(&s.seq[dst], 1) - 1
	var hdr [8 + 8 + 1]byte
	binary.LittleEndian.PutUint64(hdr[0:8], seq)
	binary.LittleEndian.PutUint64(hdr[8:16], round)
	if final {
		hdr[16] = 1
	}
	payload := append(hdr[:], sum[:]...)
	payload = append(payload, compressed...)

	if err := s.t.Send(ctx, dst, payload); err != nil {
		return errors.E(err, fmt.Sprintf("comm.Sender: flush to rank %d", dst))
	}
	return nil
}
