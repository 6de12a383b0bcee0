package multimap

import (
	"context"
	"sync"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/log"
	"github.com/grailbio/kindex/comm"
	"github.com/grailbio/kindex/kmer"
	"github.com/grailbio/kindex/transport"
	"v.io/x/lib/vlog"
)

// Map is a distributed, hash-partitioned multimap from k-mer to Entry. Every
// rank holds the shard of entries OwnerRank assigns to it; Insert routes a
// write to its owning rank (locally or over comm), and a background pump
// goroutine drains inbound writes from every other rank into this rank's
// localShard.
type Map struct {
	t      transport.Transport
	shape  kmer.Shape
	local  *localShard
	sender *comm.Sender
	recv   *comm.Receiver

	wg     sync.WaitGroup
	cancel context.CancelFunc

	// roundMu/roundCond guard the flush-quiescence rendezvous: Flush tags
	// its round-final batches with an increasing round number, and
	// applyLoop records the highest round it has actually applied (not
	// merely received) from each source in roundSeen. Flush waits until
	// every source's roundSeen reaches the round it just sent, which can
	// only be true once that source's applyLoop has drained everything
	// that preceded the final marker -- the same mu-plus-condition-variable
	// rendezvous shape as transport/local.World's Barrier.
	roundMu   sync.Mutex
	roundCond *sync.Cond
	roundSeen []uint64
	nextRound uint64
}

// New builds a Map over t, ready to Insert/Lookup entries of the given
// Shape. bufferCapacity and queueSize are forwarded to comm.NewSender and
// comm.NewReceiver respectively.
func New(t transport.Transport, shape kmer.Shape, bufferCapacity, queueSize int) *Map {
	if t.WorldSize() <= 0 {
		// Same "this should be structurally impossible" assertion style as
		// encoding/bam/shardedbam.go's vlog.Fatalf calls: a Transport that
		// can't name its own world size is a caller bug, not a runtime
		// condition Map can recover from.
		vlog.Fatalf("multimap.New: transport reports non-positive world size")
	}
	ctx, cancel := context.WithCancel(context.Background())
	m := &Map{
		t:         t,
		shape:     shape,
		local:     newLocalShard(),
		sender:    comm.NewSender(t, bufferCapacity),
		recv:      comm.NewReceiver(t, shape, queueSize),
		cancel:    cancel,
		roundSeen: make([]uint64, t.WorldSize()),
	}
	m.roundCond = sync.NewCond(&m.roundMu)
	m.wg.Add(1)
	go m.pumpLoop(ctx)
	for src := 0; src < t.WorldSize(); src++ {
		m.wg.Add(1)
		go m.applyLoop(src)
	}
	return m
}

// pumpLoop continuously reads raw payloads off the transport and hands them
// to their source's ordered queue, running until Close. It is kept on its
// own goroutine, separate from applyLoop, so that one source's queue
// stalling on a missing out-of-order batch never blocks payloads arriving
// from other sources.
func (m *Map) pumpLoop(ctx context.Context) {
	defer m.wg.Done()
	for {
		if err := m.recv.Pump(ctx); err != nil {
			log.Debug.Printf("multimap: pump stopped: %v", err)
			return
		}
	}
}

// applyLoop drains src's ordered queue into this rank's localShard, one
// goroutine per source so a gap in one source's sequence never delays
// applying another source's already-arrived batches.
func (m *Map) applyLoop(src int) {
	defer m.wg.Done()
	for {
		entries, final, round, ok, err := m.recv.Recv(src)
		if err != nil {
			log.Error.Printf("multimap: recv from rank %d: %v", src, err)
			return
		}
		if !ok {
			return
		}
		for _, e := range entries {
			m.local.Insert(e)
		}
		if final {
			m.markRoundApplied(src, round)
		}
	}
}

// markRoundApplied records that src's applyLoop has now applied everything
// up through round, waking any Flush call waiting on it.
func (m *Map) markRoundApplied(src int, round uint64) {
	m.roundMu.Lock()
	if round > m.roundSeen[src] {
		m.roundSeen[src] = round
	}
	m.roundCond.Broadcast()
	m.roundMu.Unlock()
}

// allRoundsAppliedLocked reports whether every source's roundSeen has
// reached round. Callers must hold m.roundMu.
func (m *Map) allRoundsAppliedLocked(round uint64) bool {
	for _, seen := range m.roundSeen {
		if seen < round {
			return false
		}
	}
	return true
}

// Insert routes e to the rank OwnerRank assigns to e.Kmer, inserting
// directly into localShard when that rank is this one.
func (m *Map) Insert(ctx context.Context, e Entry) error {
	owner := OwnerRank(e.Kmer, m.t.WorldSize())
	if owner == m.t.Rank() {
		m.local.Insert(e)
		return nil
	}
	if err := m.sender.Send(ctx, owner, e); err != nil {
		return errors.E(err, "multimap.Insert")
	}
	return nil
}

// Flush forces every buffered outbound Insert to cross the transport, then
// blocks until this rank has actually applied everything any rank has sent
// it through this call -- after every rank's Flush returns, local ==
// {k : hash(k) mod N == r} holds on every rank. Flush is a collective
// operation: every rank must call it the same number of times, in the same
// order, exactly like transport.SumAllReduce's Size.
func (m *Map) Flush(ctx context.Context) error {
	m.roundMu.Lock()
	m.nextRound++
	round := m.nextRound
	m.roundMu.Unlock()

	if err := m.sender.Flush(ctx, round); err != nil {
		return errors.E(err, "multimap.Flush: sender flush")
	}
	if err := m.t.Barrier(ctx); err != nil {
		return errors.E(err, "multimap.Flush: barrier")
	}

	m.roundMu.Lock()
	for !m.allRoundsAppliedLocked(round) {
		m.roundCond.Wait()
	}
	m.roundMu.Unlock()
	return nil
}

// Lookup returns every Entry recorded for km. It only returns results this
// rank actually owns (per OwnerRank); querying a k-mer owned by another
// rank is the caller's responsibility to route.
func (m *Map) Lookup(km kmer.Kmer) []Entry {
	return m.local.Lookup(km)
}

// LocalSize returns the approximate number of entries held by this rank's
// shard.
func (m *Map) LocalSize() int {
	return m.local.Size()
}

// Close stops the background pump and releases the receiver's queues. It
// does not close the underlying Transport, which callers may share with
// other components.
func (m *Map) Close() error {
	m.cancel()
	m.recv.Close(nil)
	m.wg.Wait()
	return nil
}
