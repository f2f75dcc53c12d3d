package tasks

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/hashicorp/go-multierror"

	"please/internal/persist"
	"please/internal/registry"
)

// PingTask is the periodic liveness prober of spec.md §4.3: it rebuilds the
// registry's reachable peer set every cycle and keeps the on-disk seed list
// in sync with it.
type PingTask struct {
	SelfName    string
	Registry    *registry.Registry
	Client      Pinger
	Referrals   []string
	Latency     time.Duration
	PersistPath string

	log *slog.Logger
}

// NewPingTask builds a PingTask ready for Run.
func NewPingTask(selfName string, reg *registry.Registry, client Pinger, referrals []string, latency time.Duration, persistPath string) *PingTask {
	return &PingTask{
		SelfName:    selfName,
		Registry:    reg,
		Client:      client,
		Referrals:   referrals,
		Latency:     latency,
		PersistPath: persistPath,
		log:         slog.With("component", "ping_task"),
	}
}

// Run ticks every t.Latency until ctx is canceled.
func (t *PingTask) Run(ctx context.Context) error {
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

func (t *PingTask) cycle(ctx context.Context) {
	persisted := persist.Load(t.PersistPath)
	candidates := union(persisted, t.Registry.Names(), t.Referrals)
	candidates = without(candidates, t.SelfName)

	type probed struct {
		name string
		meta registry.Metadata
	}

	results := make(chan probed, len(candidates))
	var wg sync.WaitGroup
	var errs error
	var errsMu sync.Mutex

	for _, name := range candidates {
		wg.Add(1)
		go func(name string) {
			defer wg.Done()

			if err := t.Client.Ping(ctx, name); err != nil {
				errsMu.Lock()
				errs = multierror.Append(errs, err)
				errsMu.Unlock()
				return
			}

			meta, ok := t.Registry.GetPeer(name)
			if !ok {
				fetched, err := t.Client.Metadata(ctx, name)
				if err != nil {
					errsMu.Lock()
					errs = multierror.Append(errs, err)
					errsMu.Unlock()
					return
				}
				meta = registry.Metadata(fetched)
			}
			results <- probed{name: name, meta: meta}
		}(name)
	}
	wg.Wait()
	close(results)

	reachable := make([]string, 0, len(candidates))
	peers := make(map[string]registry.Metadata, len(candidates))
	for r := range results {
		reachable = append(reachable, r.name)
		peers[r.name] = r.meta
	}
	if errs != nil {
		t.log.Debug("some peers unreachable this cycle", "error", errs)
	}

	t.Registry.Replace(peers)

	selfMeta, _ := t.Registry.GetPeer(t.SelfName)
	for _, name := range reachable {
		go func(name string) {
			pushCtx, cancel := context.WithTimeout(context.Background(), t.Latency)
			defer cancel()
			if err := t.Client.PushMetadata(pushCtx, name, t.SelfName, map[string]any(selfMeta)); err != nil {
				t.log.Debug("push metadata failed", "peer", name, "error", err)
			}
		}(name)
	}

	if persist.Changed(persisted, reachable) {
		if err := persist.Save(t.PersistPath, reachable); err != nil {
			t.log.Warn("persist seed list failed", "error", err)
		}
	}
}

func union(lists ...[]string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, list := range lists {
		for _, v := range list {
			if _, ok := seen[v]; ok {
				continue
			}
			seen[v] = struct{}{}
			out = append(out, v)
		}
	}
	return out
}

func without(list []string, excl string) []string {
	out := make([]string, 0, len(list))
	for _, v := range list {
		if v != excl {
			out = append(out, v)
		}
	}
	return out
}
