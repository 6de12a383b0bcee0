// Copyright 2018 GRAIL, Inc.  All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

// Package local implements transport.Transport in-process, for tests and
// single-machine runs where every rank is a goroutine rather than a
// separate OS process. Each rank's inbox is a buffered channel; Send
// blocks once a destination's inbox fills, matching muscato_confirm.go's
// buffered-channel-as-semaphore idiom (a "limit" channel throttling
// in-flight work) repurposed here to throttle per-destination message
// backlog instead of worker concurrency.
package local

import (
	"context"
	"sync"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/kindex/transport"
)

type message struct {
	src     int
	payload []byte
}

// World is a set of in-process ranks that can transport.Send to each other.
// Create one with NewWorld, then call Rank(i) once per simulated rank.
type World struct {
	inboxes []chan message
	once    sync.Once
	closed  chan struct{}

	// barrierMu/barrierCond guard a generation-counted rendezvous, the same
	// mutex-plus-condition-variable shape encoding/pam/fieldio/writer.go
	// uses to let flushers wait for a shared counter to reach a target
	// (there: lastBlockFlushed; here: the count of ranks that have arrived
	// at the current barrier generation).
	barrierMu   sync.Mutex
	barrierCond *sync.Cond
	arrived     int
	generation  uint64
}

// NewWorld creates a World of the given size, with each rank's inbox
// buffered to hold inboxCapacity pending messages before Send blocks.
func NewWorld(worldSize, inboxCapacity int) *World {
	w := &World{
		inboxes: make([]chan message, worldSize),
		closed:  make(chan struct{}),
	}
	for i := range w.inboxes {
		w.inboxes[i] = make(chan message, inboxCapacity)
	}
	w.barrierCond = sync.NewCond(&w.barrierMu)
	return w
}

// Rank returns the transport.Transport view of the World for rank r.
func (w *World) Rank(r int) transport.Transport {
	return &localTransport{world: w, rank: r}
}

// Close tears down the World; every Rank's Send/Recv subsequently errors.
func (w *World) Close() {
	w.once.Do(func() {
		close(w.closed)
		w.barrierCond.Broadcast()
	})
}

type localTransport struct {
	world *World
	rank  int
}

func (t *localTransport) Rank() int      { return t.rank }
func (t *localTransport) WorldSize() int { return len(t.world.inboxes) }

func (t *localTransport) Send(ctx context.Context, dst int, payload []byte) error {
	if dst < 0 || dst >= len(t.world.inboxes) {
		return errors.E("transport/local: Send: destination rank out of range")
	}
	select {
	case t.world.inboxes[dst] <- message{src: t.rank, payload: payload}:
		return nil
	case <-t.world.closed:
		return errors.E("transport/local: Send: world closed")
	case <-ctx.Done():
		return errors.E(ctx.Err(), "transport/local: Send")
	}
}

func (t *localTransport) Recv(ctx context.Context) (int, []byte, error) {
	select {
	case m := <-t.world.inboxes[t.rank]:
		return m.src, m.payload, nil
	case <-t.world.closed:
		return 0, nil, errors.E("transport/local: Recv: world closed")
	case <-ctx.Done():
		return 0, nil, errors.E(ctx.Err(), "transport/local: Recv")
	}
}

// Barrier blocks until every rank in t's World has called Barrier for the
// current generation, then releases them all together and advances to the
// next generation.
func (t *localTransport) Barrier(ctx context.Context) error {
	w := t.world
	w.barrierMu.Lock()
	gen := w.generation
	w.arrived++
	if w.arrived == len(w.inboxes) {
		w.arrived = 0
		w.generation++
		w.barrierCond.Broadcast()
		w.barrierMu.Unlock()
		return nil
	}
	w.barrierMu.Unlock()

	// sync.Cond has no ctx-aware Wait, so the actual wait runs on its own
	// goroutine and this call selects over its completion, ctx, and world
	// close. If ctx fires first, the goroutine stays parked until the
	// generation actually advances (or the World closes); that is a bounded
	// leak given this transport only serves tests and single-machine runs.
	done := make(chan error, 1)
	go func() {
		w.barrierMu.Lock()
		for w.generation == gen {
			select {
			case <-w.closed:
				w.barrierMu.Unlock()
				done <- errors.E("transport/local: Barrier: world closed")
				return
			default:
			}
			w.barrierCond.Wait()
		}
		w.barrierMu.Unlock()
		done <- nil
	}()
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return errors.E(ctx.Err(), "transport/local: Barrier")
	}
}

func (t *localTransport) Close() error {
	return nil
}
