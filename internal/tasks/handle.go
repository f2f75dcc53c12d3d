package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"please/internal/caller"
	"please/internal/requests"
)

// Applier invokes a resolved module.function locally. Implemented by
// internal/catalog.
type Applier interface {
	Apply(module, function string, args []any) (any, error)
}

// HandleTask is the periodic executor of spec.md §4.6: for each locally
// handling request it spawns an independent worker that runs the function
// and ships the result back to the originator.
type HandleTask struct {
	SelfName string
	Store    *requests.Store
	Applier  Applier
	Client   ResultDeliverer
	Caller   *caller.Registry
	Latency  time.Duration
	Metrics  LifecycleMetrics

	log *slog.Logger
}

// NewHandleTask builds a HandleTask ready for Run. metrics may be nil.
func NewHandleTask(selfName string, store *requests.Store, applier Applier, client ResultDeliverer, callerRegistry *caller.Registry, latency time.Duration, metrics LifecycleMetrics) *HandleTask {
	return &HandleTask{
		SelfName: selfName,
		Store:    store,
		Applier:  applier,
		Client:   client,
		Caller:   callerRegistry,
		Latency:  latency,
		Metrics:  metrics,
		log:      slog.With("component", "handle_task"),
	}
}

// Run ticks every t.Latency until ctx is canceled.
func (t *HandleTask) Run(ctx context.Context) error {
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

func (t *HandleTask) cycle(ctx context.Context) {
	handling := t.Store.GetHandling()
	for _, req := range handling {
		go t.execute(req)
		t.Store.Remove(req.ID) // at-most-once local execution, per spec §4.6
	}
}

func (t *HandleTask) execute(req requests.Request) {
	result, err := t.Applier.Apply(req.Module, req.Function, req.Args)

	ok := err == nil
	errInfo := ""
	if err != nil {
		errInfo = fmt.Sprintf("%v", err)
	}

	if t.Metrics != nil {
		if ok {
			t.Metrics.IncCompleted()
		} else {
			t.Metrics.IncErrored()
		}
	}

	if req.OriginNode == t.SelfName {
		t.Caller.Deliver(req.ID, t.SelfName, ok, result, errInfo)
		t.Store.Remove(req.ID)
		return
	}

	deliverCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := t.Client.DeliverResult(deliverCtx, req.OriginNode, req.ID, t.SelfName, ok, result, errInfo); err != nil {
		t.log.Debug("deliver result failed; originator's caller will time out", "request", req.ID, "origin", req.OriginNode, "error", err)
		return
	}
	if err := t.Client.RemoveRequest(deliverCtx, req.OriginNode, req.ID); err != nil {
		t.log.Debug("remove request on origin failed", "request", req.ID, "origin", req.OriginNode, "error", err)
	}
}
