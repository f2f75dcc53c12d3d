package tasks

import (
	"context"
	"testing"
	"time"

	"please/internal/registry"
)

type fakeRegistryFetcher struct {
	views map[string]map[string]map[string]any
}

func (f *fakeRegistryFetcher) RegistryGet(_ context.Context, peer string) (string, map[string]map[string]any, error) {
	return peer, f.views[peer], nil
}

func TestSyncCycleUnionsPeerViews(t *testing.T) {
	reg := registry.New("a@h")
	reg.SetPeerMetadata("b@h", registry.Metadata{})

	fetcher := &fakeRegistryFetcher{views: map[string]map[string]map[string]any{
		"b@h": {
			"b@h": {"role": "worker"},
			"c@h": {"role": "transitive"},
		},
	}}

	task := NewSyncTask("a@h", reg, fetcher, time.Second)
	task.cycle(context.Background())

	if _, ok := reg.GetPeer("c@h"); !ok {
		t.Error("expected c@h to be learned transitively from b@h's view")
	}
	if _, ok := reg.GetPeer("a@h"); !ok {
		t.Error("self must remain in the registry after merge")
	}
}
