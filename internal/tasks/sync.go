package tasks

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/hashicorp/go-multierror"

	"please/internal/registry"
)

// SyncTask is the periodic membership reconciler of spec.md §4.4: it unions
// every reachable peer's registry view by RPC, then replaces the local
// registry outright with that merged view plus self (not an additive
// union into the existing registry) — the merge happens across peer
// responses within one cycle, not across cycles. Unreachable peers are
// skipped here; they simply contribute nothing to this cycle's merged view,
// and dropping a peer from the registry for good is PingTask's job, not
// SyncTask's.
type SyncTask struct {
	SelfName string
	Registry *registry.Registry
	Client   RegistryFetcher
	Latency  time.Duration

	log *slog.Logger
}

// NewSyncTask builds a SyncTask ready for Run.
func NewSyncTask(selfName string, reg *registry.Registry, client RegistryFetcher, latency time.Duration) *SyncTask {
	return &SyncTask{SelfName: selfName, Registry: reg, Client: client, Latency: latency, log: slog.With("component", "sync_task")}
}

// Run ticks every t.Latency until ctx is canceled.
func (t *SyncTask) Run(ctx context.Context) error {
	ticker := time.NewTicker(t.Latency)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			t.cycle(ctx)
		}
	}
}

func (t *SyncTask) cycle(ctx context.Context) {
	peers := without(t.Registry.Names(), t.SelfName)

	var wg sync.WaitGroup
	var mu sync.Mutex
	merged := make(map[string]registry.Metadata)
	var errs error

	for _, peer := range peers {
		wg.Add(1)
		go func(peer string) {
			defer wg.Done()
			_, remote, err := t.Client.RegistryGet(ctx, peer)
			if err != nil {
				mu.Lock()
				errs = multierror.Append(errs, err)
				mu.Unlock()
				return
			}
			mu.Lock()
			for name, meta := range remote {
				merged[name] = registry.Metadata(meta)
			}
			mu.Unlock()
		}(peer)
	}
	wg.Wait()

	if errs != nil {
		t.log.Debug("some peers unreachable during sync", "error", errs)
	}
	t.Registry.Replace(merged)
}
