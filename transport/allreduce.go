package transport

import (
	"context"
	"encoding/binary"

	"github.com/grailbio/base/errors"
)

// SumAllReduce sums local across every rank and returns the total to all
// ranks, mirroring the MPI collective operation spec.md's size() describes.
// It is a simple gather-to-rank-0/broadcast built directly on Send/Recv
// (Transport intentionally exposes only point-to-point primitives, so
// collectives are implemented on top rather than growing the interface).
func SumAllReduce(ctx context.Context, t Transport, local int64) (int64, error) {
	rank, world := t.Rank(), t.WorldSize()
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], uint64(local))

	if rank != 0 {
		if err := t.Send(ctx, 0, buf[:]); err != nil {
			return 0, errors.E(err, "transport.SumAllReduce: send to rank 0")
		}
		return recvBroadcast(ctx, t)
	}

	total := local
	for i := 1; i < world; i++ {
		_, payload, err := t.Recv(ctx)
		if err != nil {
			return 0, errors.E(err, "transport.SumAllReduce: gather")
		}
		if len(payload) != 8 {
			return 0, errors.E("transport.SumAllReduce: malformed gather payload")
		}
		total += int64(binary.LittleEndian.Uint64(payload))
	}
	var out [8]byte
	binary.LittleEndian.PutUint64(out[:], uint64(total))
	for dst := 1; dst < world; dst++ {
		if err := t.Send(ctx, dst, out[:]); err != nil {
			return 0, errors.E(err, "transport.SumAllReduce: broadcast")
		}
	}
	return total, nil
}

func recvBroadcast(ctx context.Context, t Transport) (int64, error) {
	_, payload, err := t.Recv(ctx)
	if err != nil {
		return 0, errors.E(err, "transport.SumAllReduce: recv broadcast")
	}
	if len(payload) != 8 {
		return 0, errors.E("transport.SumAllReduce: malformed broadcast payload")
	}
	return int64(binary.LittleEndian.Uint64(payload)), nil
}
