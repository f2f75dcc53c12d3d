// Package caller tracks in-flight makeItSo calls on the originating node and
// delivers their outcome at most once, in the shape of the response envelope
// in spec.md §6: a RESPONSE_TAG/ERROR_TAG tuple keyed by request id.
package caller

import "sync"

// Response is the outcome of a request, delivered at most once.
type Response struct {
	OK            bool
	ExecutingNode string
	Result        any
	ErrorInfo     string
}

// Registry is a per-node map[requestID]chan Response, modeled on the
// register/unsubscribe/best-effort-send shape of a pub-sub subscriber map.
type Registry struct {
	mu      sync.Mutex
	waiters map[string]chan Response
}

// New returns an empty Registry.
func New() *Registry {
	return &Registry{waiters: make(map[string]chan Response)}
}

// Register creates and returns a buffered channel for id, to be read by the
// makeItSo call site. Call Forget once the caller stops waiting (success,
// error, or timeout) to avoid leaking the entry.
func (r *Registry) Register(id string) <-chan Response {
	ch := make(chan Response, 1)
	r.mu.Lock()
	r.waiters[id] = ch
	r.mu.Unlock()
	return ch
}

// Forget removes id's waiter, whether or not it was ever delivered to.
func (r *Registry) Forget(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.waiters, id)
}

// Deliver pushes a response to id's waiter if one is still registered,
// recording which node executed the request. A caller that already timed
// out and was forgotten silently discards the delivery, matching spec §3's
// "Expired" lifecycle state. Satisfies internal/transport.Deliverer.
func (r *Registry) Deliver(id, executingNode string, ok bool, result any, errorInfo string) {
	r.mu.Lock()
	ch, found := r.waiters[id]
	if found {
		delete(r.waiters, id)
	}
	r.mu.Unlock()

	if !found {
		return
	}
	select {
	case ch <- Response{OK: ok, ExecutingNode: executingNode, Result: result, ErrorInfo: errorInfo}:
	default:
	}
}
