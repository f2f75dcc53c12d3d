package tasks

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"please/internal/registry"
	"please/internal/requests"
)

// AssignTask is the originator-side scheduler of spec.md §4.5: for each
// pending request it polls every known node's acceptance priority, picks the
// maximum, and either picks locally or delegates to the winner.
type AssignTask struct {
	SelfName string
	Registry *registry.Registry
	Store    *requests.Store
	Client   Scorer
	Resolver requests.Resolver
	Offsets  requests.Offsets
	Latency  time.Duration
	Metrics  LifecycleMetrics

	log *slog.Logger
}

// NewAssignTask builds an AssignTask ready for Run. metrics may be nil.
func NewAssignTask(selfName string, reg *registry.Registry, store *requests.Store, client Scorer, resolver requests.Resolver, offsets requests.Offsets, latency time.Duration, metrics LifecycleMetrics) *AssignTask {
	return &AssignTask{
		SelfName: selfName,
		Registry: reg,
		Store:    store,
		Client:   client,
		Resolver: resolver,
		Offsets:  offsets,
		Latency:  latency,
		Metrics:  metrics,
		log:      slog.With("component", "assign_task"),
	}
}

// Run ticks every t.Latency until ctx is canceled.
func (t *AssignTask) Run(ctx context.Context) error {
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

type candidate struct {
	node     string
	priority int64
}

func (t *AssignTask) cycle(ctx context.Context) {
	pending := t.Store.GetPending()
	if len(pending) == 0 {
		return
	}

	nodes := t.Registry.Names()
	for _, req := range pending {
		winner, ok := t.bestCandidate(ctx, nodes, req)
		if !ok {
			continue // left in pending, retried next cycle
		}

		if winner == t.SelfName {
			if err := t.Store.Pick(req.ID); err != nil {
				t.log.Warn("pick failed", "request", req.ID, "error", err)
				continue
			}
			if t.Metrics != nil {
				t.Metrics.IncAssigned()
			}
			continue
		}

		if err := t.Store.Delegate(ctx, winner, req, t.Client); err != nil {
			t.log.Debug("delegate failed, retrying next cycle", "request", req.ID, "peer", winner, "error", err)
			continue
		}
		if t.Metrics != nil {
			t.Metrics.IncDelegated()
		}
	}
}

// bestCandidate queries every node's acceptancePriority for req (local call
// for self, RPC for peers) and returns the node with the maximum score; on a
// tie the lexically smallest node name wins. nil/errored responses are
// dropped, not distinguished (spec §4.5 step 2).
func (t *AssignTask) bestCandidate(ctx context.Context, nodes []string, req requests.Request) (string, bool) {
	results := make(chan candidate, len(nodes))
	var wg sync.WaitGroup

	for _, node := range nodes {
		wg.Add(1)
		go func(node string) {
			defer wg.Done()

			if node == t.SelfName {
				priority, ok := requests.AcceptancePriority(t.Resolver, t.Offsets, t.Store.BaseBusyness(), req)
				if ok {
					results <- candidate{node: node, priority: priority}
				}
				return
			}

			priority, ok, err := t.Client.AcceptancePriority(ctx, node, req)
			if err != nil || !ok {
				return
			}
			results <- candidate{node: node, priority: priority}
		}(node)
	}
	wg.Wait()
	close(results)

	best, found := candidate{}, false
	for c := range results {
		if !found || c.priority > best.priority || (c.priority == best.priority && c.node < best.node) {
			best, found = c, true
		}
	}
	if !found {
		return "", false
	}
	return best.node, true
}
