package tasks

import (
	"context"

	"please/internal/requests"
)

// Pinger is PingTask's view of the RPC client: liveness, metadata fetch, and
// metadata push against a named peer. *internal/transport.Client satisfies
// this; tests substitute a fake, mirroring the teacher's DialFunc override
// field on PingTracker.
type Pinger interface {
	Ping(ctx context.Context, peer string) error
	Metadata(ctx context.Context, peer string) (map[string]any, error)
	PushMetadata(ctx context.Context, peer, selfName string, metadata map[string]any) error
}

// RegistryFetcher is SyncTask's view of the RPC client.
type RegistryFetcher interface {
	RegistryGet(ctx context.Context, peer string) (self string, peers map[string]map[string]any, err error)
}

// Scorer is AssignTask's view of the RPC client, plus requests.Delegator so
// a Scorer can be passed directly to Store.Delegate.
type Scorer interface {
	requests.Delegator
	AcceptancePriority(ctx context.Context, peer string, r requests.Request) (priority int64, ok bool, err error)
}

// ResultDeliverer is HandleTask's view of the RPC client for cross-node
// completion.
type ResultDeliverer interface {
	DeliverResult(ctx context.Context, originNode, id, executingNode string, ok bool, result any, errInfo string) error
	RemoveRequest(ctx context.Context, peer, id string) error
}

// LifecycleMetrics counts requests as they move through assign/handle.
// Implemented by internal/telemetry.Instruments; nil disables reporting.
type LifecycleMetrics interface {
	IncAssigned()
	IncDelegated()
	IncCompleted()
	IncErrored()
}
