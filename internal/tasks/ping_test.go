package tasks

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"please/internal/persist"
	"please/internal/registry"
)

type fakePinger struct {
	unreachable map[string]bool
	metadata    map[string]map[string]any
	pushed      map[string]map[string]any
	mu          sync.Mutex // guards pushed: PingTask pushes from its own goroutines
}

func (f *fakePinger) Ping(_ context.Context, peer string) error {
	if f.unreachable[peer] {
		return errors.New("unreachable")
	}
	return nil
}

func (f *fakePinger) Metadata(_ context.Context, peer string) (map[string]any, error) {
	return f.metadata[peer], nil
}

func (f *fakePinger) PushMetadata(_ context.Context, peer, _ string, metadata map[string]any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.pushed == nil {
		f.pushed = make(map[string]map[string]any)
	}
	f.pushed[peer] = metadata
	return nil
}

func (f *fakePinger) pushedTo(peer string) map[string]any {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pushed[peer]
}

func TestPingCycleDropsUnreachablePeers(t *testing.T) {
	reg := registry.New("a@h")
	reg.SetPeerMetadata("b@h", registry.Metadata{})
	reg.SetPeerMetadata("c@h", registry.Metadata{})

	pinger := &fakePinger{unreachable: map[string]bool{"c@h": true}, metadata: map[string]map[string]any{}}
	task := NewPingTask("a@h", reg, pinger, nil, time.Second, t.TempDir()+"/persisted_nodes.dat")

	task.cycle(context.Background())

	if _, ok := reg.GetPeer("c@h"); ok {
		t.Error("unreachable peer c@h was not dropped from the registry")
	}
	if _, ok := reg.GetPeer("b@h"); !ok {
		t.Error("reachable peer b@h was dropped from the registry")
	}
}

func TestPingCyclePersistsChangedReachableSet(t *testing.T) {
	reg := registry.New("a@h")
	path := t.TempDir() + "/persisted_nodes.dat"

	pinger := &fakePinger{metadata: map[string]map[string]any{}}
	task := NewPingTask("a@h", reg, pinger, []string{"b@h"}, time.Second, path)

	task.cycle(context.Background())

	// The push is asynchronous, so give it a moment to land.
	deadline := time.Now().Add(time.Second)
	for pinger.pushedTo("b@h") == nil && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if pinger.pushedTo("b@h") == nil {
		t.Error("expected self-metadata to be pushed to reachable peer b@h")
	}

	persisted := persist.Load(path)
	if len(persisted) != 1 || persisted[0] != "b@h" {
		t.Errorf("persisted seed list = %v, want [b@h]", persisted)
	}
}
