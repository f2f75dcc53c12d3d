package requests

import (
	"context"
	"fmt"
	"sync"

	"github.com/containerd/errdefs"
)

// Delegator performs the remote half of Delegate: telling peer to add req to
// its own handling list. Implemented by internal/transport.Client. Kept as a
// narrow interface here so this package never imports transport.
type Delegator interface {
	InsertHandling(ctx context.Context, peer string, req Request) error
}

// Store is a node's {pending, handling, baseBusyness} container (spec §3,
// §4.2). All operations serialize through mu and run to completion before
// the next begins; none perform network I/O while holding it.
type Store struct {
	mu           sync.Mutex
	pending      []Request
	handling     []Request
	baseBusyness int64

	weights WeightLookup
	metrics Metrics
}

// WeightLookup resolves a request's busyness weight (nil => not locally
// resolvable or explicitly rejected). Implemented by internal/catalog +
// internal/config together; see priority.go/weight.go in this package.
type WeightLookup interface {
	BusynessWeight(r Request) (weight int64, ok bool)
}

// Metrics receives live gauge values whenever pending/handling/busyness
// change. Implemented by internal/telemetry.Instruments; a nil Metrics
// leaves Store fully functional with no reporting (see NewStore).
type Metrics interface {
	SetPending(n int64)
	SetHandling(n int64)
	SetBusyness(n int64)
}

// NewStore returns an empty Store. weights may be nil; Busyness then only
// reports baseBusyness plus a default weight of 100 per handling request.
// metrics may be nil to disable gauge reporting.
func NewStore(weights WeightLookup, metrics Metrics) *Store {
	return &Store{weights: weights, metrics: metrics}
}

// publishMetrics recomputes the current pending/handling/busyness gauges
// and reports them. No-op if Store was built without a Metrics recorder.
func (s *Store) publishMetrics() {
	if s.metrics == nil {
		return
	}
	s.mu.Lock()
	pending := len(s.pending)
	handling := len(s.handling)
	s.mu.Unlock()

	s.metrics.SetPending(int64(pending))
	s.metrics.SetHandling(int64(handling))
	s.metrics.SetBusyness(s.Busyness())
}

// Add inserts req into pending, replacing any existing entry with the same
// ID (idempotent enqueue, spec §3 invariant 2).
func (s *Store) Add(req Request) {
	s.mu.Lock()
	s.pending = removeByID(s.pending, req.ID)
	s.pending = append([]Request{req}, s.pending...)
	s.mu.Unlock()
	s.publishMetrics()
}

// Remove deletes id from both pending and handling. No-op if absent.
func (s *Store) Remove(id string) {
	s.mu.Lock()
	s.pending = removeByID(s.pending, id)
	s.handling = removeByID(s.handling, id)
	s.mu.Unlock()
	s.publishMetrics()
}

// Pick moves id from pending to handling. Fails with a NOT_FOUND-classified
// error if id is not currently pending (spec: "signals a lost race or
// unknown id" — raised, not silently ignored).
func (s *Store) Pick(id string) error {
	s.mu.Lock()

	req, ok := findByID(s.pending, id)
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("request %s is not pending: %w", id, errdefs.ErrNotFound)
	}
	s.pending = removeByID(s.pending, id)
	s.handling = removeByID(s.handling, id) // idempotent: drop a stale duplicate first
	s.handling = append([]Request{req}, s.handling...)
	s.mu.Unlock()

	s.publishMetrics()
	return nil
}

// Delegate pushes req onto peer's handling list via RPC, then — only on
// success — removes it from local pending and handling (spec §4.2.1: the
// remote mutation happens first; local state never changes ahead of it).
func (s *Store) Delegate(ctx context.Context, peer string, req Request, d Delegator) error {
	if err := d.InsertHandling(ctx, peer, req); err != nil {
		return fmt.Errorf("delegate %s to %s: %w", req.ID, peer, err)
	}

	s.mu.Lock()
	s.pending = removeByID(s.pending, req.ID)
	s.handling = removeByID(s.handling, req.ID)
	s.mu.Unlock()

	s.publishMetrics()
	return nil
}

// InsertHandling is the local-side target of a peer's Delegate RPC: add req
// directly to handling (idempotent replace-by-ID), skipping pending entirely.
func (s *Store) InsertHandling(req Request) {
	s.mu.Lock()
	s.handling = removeByID(s.handling, req.ID)
	s.handling = append([]Request{req}, s.handling...)
	s.mu.Unlock()
	s.publishMetrics()
}

// Get returns a read-only snapshot of both lists.
func (s *Store) Get() (pending, handling []Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Request(nil), s.pending...), append([]Request(nil), s.handling...)
}

// GetPending returns a read-only snapshot of pending.
func (s *Store) GetPending() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Request(nil), s.pending...)
}

// GetHandling returns a read-only snapshot of handling.
func (s *Store) GetHandling() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Request(nil), s.handling...)
}

// GetByID looks the request up in either list.
func (s *Store) GetByID(id string) (Request, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r, ok := findByID(s.pending, id); ok {
		return r, true
	}
	return findByID(s.handling, id)
}

// Busyness is baseBusyness + sum(weight(r)) for r in handling. Requests whose
// weight is nil (rejected or unresolvable) contribute 0 — they should not be
// in handling in the first place, but Busyness never panics over it.
func (s *Store) Busyness() int64 {
	s.mu.Lock()
	handling := append([]Request(nil), s.handling...)
	base := s.baseBusyness
	s.mu.Unlock()

	total := base
	for _, r := range handling {
		if s.weights == nil {
			total += defaultBusynessWeight
			continue
		}
		if w, ok := s.weights.BusynessWeight(r); ok {
			total += w
		}
	}
	return total
}

// BaseBusyness returns the current base busyness.
func (s *Store) BaseBusyness() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.baseBusyness
}

// BaseBusynessIncrease bumps base busyness by n (default 100 if n<=0).
func (s *Store) BaseBusynessIncrease(n int64) {
	if n <= 0 {
		n = defaultBusynessBump
	}
	s.mu.Lock()
	s.baseBusyness += n
	s.mu.Unlock()
	s.publishMetrics()
}

// BaseBusynessDecrease lowers base busyness by n (default 100 if n<=0).
func (s *Store) BaseBusynessDecrease(n int64) {
	if n <= 0 {
		n = defaultBusynessBump
	}
	s.mu.Lock()
	s.baseBusyness -= n
	s.mu.Unlock()
	s.publishMetrics()
}

const (
	defaultBusynessBump   = 100
	defaultBusynessWeight = 100
)

func findByID(list []Request, id string) (Request, bool) {
	for _, r := range list {
		if r.ID == id {
			return r, true
		}
	}
	return Request{}, false
}

func removeByID(list []Request, id string) []Request {
	out := list[:0:0]
	for _, r := range list {
		if r.ID != id {
			out = append(out, r)
		}
	}
	return out
}
