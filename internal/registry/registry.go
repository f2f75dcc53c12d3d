// Package registry holds the authoritative local view of mesh membership:
// {selfName, map[peerName]Metadata}. See spec.md §4.1.
package registry

import "sync"

// Metadata is an opaque key/value map advertised once per ping cycle.
type Metadata map[string]any

// Registry is a mutex-guarded {selfName, peers} container. Reads are
// linearizable relative to writes on the same node (spec §4.1); no writer
// ever blocks on network I/O while holding the lock — callers compute
// remote data first and commit it afterward.
type Registry struct {
	mu    sync.RWMutex
	self  string
	peers map[string]Metadata // includes selfName -> self metadata
}

// New returns a Registry seeded with selfName and empty self-metadata.
func New(selfName string) *Registry {
	return &Registry{
		self:  selfName,
		peers: map[string]Metadata{selfName: Metadata{}},
	}
}

// SelfName returns this node's identity.
func (r *Registry) SelfName() string {
	return r.self
}

// Get returns a snapshot copy of the full membership map.
func (r *Registry) Get() map[string]Metadata {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]Metadata, len(r.peers))
	for k, v := range r.peers {
		out[k] = v
	}
	return out
}

// GetPeer returns a single peer's metadata, or (nil, false) if unknown.
func (r *Registry) GetPeer(name string) (Metadata, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.peers[name]
	return m, ok
}

// SetSelfMetadata upserts this node's own advertised metadata.
func (r *Registry) SetSelfMetadata(m Metadata) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.peers[r.self] = m
}

// SetPeerMetadata upserts a peer's metadata.
func (r *Registry) SetPeerMetadata(name string, m Metadata) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.peers[name] = m
}

// Names returns the known node names, including self.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.peers))
	for k := range r.peers {
		out = append(out, k)
	}
	return out
}

// Replace atomically swaps the peer map for a freshly computed one. Used by
// PingTask (new reachable set) and SyncTask (merged membership). Self is
// always preserved with its current self-metadata.
func (r *Registry) Replace(peers map[string]Metadata) {
	r.mu.Lock()
	defer r.mu.Unlock()
	selfMeta := r.peers[r.self]
	next := make(map[string]Metadata, len(peers)+1)
	for k, v := range peers {
		next[k] = v
	}
	next[r.self] = selfMeta
	r.peers = next
}
