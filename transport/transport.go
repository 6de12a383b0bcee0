// Copyright 2018 GRAIL, Inc.  All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

// Package transport abstracts the point-to-point messaging a distributed
// kindex build needs between ranks. It replaces the "global MPI handle"
// the original design assumed: rather than a package-level singleton wired
// to MPI_Send/MPI_Recv, callers hold a Transport value and pass it through,
// the same way the teacher threads a context.Context or a *sam.Header
// through its pipelines instead of reaching for global state.
package transport

import "context"

// Transport sends and receives length-framed byte payloads between ranks.
// Implementations need not preserve message ordering between distinct Send
// calls to the same destination; comm.Sender is responsible for ordering
// guarantees above this layer.
type Transport interface {
	// Rank returns this process's rank in [0, WorldSize()).
	Rank() int
	// WorldSize returns the total number of ranks.
	WorldSize() int
	// Send delivers payload to dst. It may block if the implementation's
	// internal queue to dst is full, but must not block indefinitely on a
	// slow or stalled receiver beyond what ctx allows.
	Send(ctx context.Context, dst int, payload []byte) error
	// Recv blocks until a payload arrives from any rank, or ctx is done.
	// It returns the sending rank alongside the payload.
	Recv(ctx context.Context) (src int, payload []byte, err error)
	// Barrier blocks until every rank in the world has called Barrier, then
	// releases all of them. It is the one collective primitive Transport
	// exposes directly (SumAllReduce and comm's flush/drain protocol build
	// everything else on top of Send/Recv); every rank must call Barrier
	// the same number of times, in the same order.
	Barrier(ctx context.Context) error
	// Close releases the transport's resources. Send/Recv after Close
	// return an error.
	Close() error
}
