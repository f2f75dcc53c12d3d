// Package node is the composition root: it builds every long-lived
// component for one mesh participant and wires them under a supervisor.
// Grounded on cmd/ployz-runtime's engine.Run wiring shape: one function that
// constructs every collaborator and hands off to a blocking Run.
package node

import (
	"context"
	"fmt"
	"log/slog"
	"net"

	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"

	"please/internal/caller"
	"please/internal/catalog"
	"please/internal/check"
	"please/internal/config"
	"please/internal/persist"
	"please/internal/registry"
	"please/internal/requests"
	"please/internal/supervisor"
	"please/internal/tasks"
	"please/internal/telemetry"
	"please/internal/transport"
	"please/internal/transport/pb"
)

// Node is one mesh participant: the six long-lived components of spec.md §2
// plus their ambient stack (transport, persistence, telemetry).
type Node struct {
	SelfName string
	Addr     string

	Registry *registry.Registry
	Store    *requests.Store
	Catalog  *catalog.Catalog
	Caller   *caller.Registry

	client     *transport.Client
	grpcServer *grpc.Server
	supervisor *supervisor.Supervisor
	telemetry  *telemetry.Provider
}

// AddressBook resolves a peer name to a dialable address. In production
// this comes from the peer's advertised metadata (key "addr"); tests can
// supply a static map.
type AddressBook interface {
	Address(peer string) (string, error)
}

// New builds a Node listening on addr, registered as selfName, with peer
// addresses resolved through addresses.
func New(selfName, addr string, cfg config.Config, cat *catalog.Catalog, addresses AddressBook) (*Node, error) {
	check.Assert(selfName != "", "selfName must not be empty")
	check.Assert(cat != nil, "catalog must not be nil")

	reg := registry.New(selfName)
	selfMeta := make(registry.Metadata, len(cfg.Metadata)+1)
	for k, v := range cfg.Metadata {
		selfMeta[k] = v
	}
	selfMeta["addr"] = addr
	reg.SetSelfMetadata(selfMeta)

	telemetryProvider, err := telemetry.Setup("please." + selfName)
	if err != nil {
		return nil, fmt.Errorf("node %s: %w", selfName, err)
	}

	weightLookup := requests.NewWeightLookup(cat, cfg.BusynessWeights)
	store := requests.NewStore(weightLookup, telemetryProvider.Instruments)

	callerReg := caller.New()

	client := transport.NewClient(addresses.Address)

	n := &Node{
		SelfName:  selfName,
		Addr:      addr,
		Registry:  reg,
		Store:     store,
		Catalog:   cat,
		Caller:    callerReg,
		client:    client,
		telemetry: telemetryProvider,
	}

	srv := transport.NewServer(reg, store, cat, cfg.BusynessOffsets, callerRegistryDeliverer{callerReg})
	n.grpcServer = grpc.NewServer(
		grpc.ForceServerCodec(transport.Codec()),
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
	)
	pb.RegisterMeshServer(n.grpcServer, srv)

	n.supervisor = supervisor.New()
	n.supervisor.Add("ping", tasks.NewPingTask(selfName, reg, client, cfg.Referrals, cfg.PingLatency(), persist.Path).Run)
	n.supervisor.Add("sync", tasks.NewSyncTask(selfName, reg, client, cfg.SyncLatency()).Run)
	n.supervisor.Add("assign", tasks.NewAssignTask(selfName, reg, store, client, cat, cfg.BusynessOffsets, cfg.AssignLatency(), telemetryProvider.Instruments).Run)
	n.supervisor.Add("handle", tasks.NewHandleTask(selfName, store, cat, client, callerReg, cfg.HandleLatency(), telemetryProvider.Instruments).Run)

	return n, nil
}

// Run starts the gRPC listener and every task under the supervisor, blocking
// until ctx is canceled.
func (n *Node) Run(ctx context.Context) error {
	lis, err := net.Listen("tcp", n.Addr)
	if err != nil {
		return fmt.Errorf("node %s: listen %s: %w", n.SelfName, n.Addr, err)
	}

	serveErr := make(chan error, 1)
	go func() { serveErr <- n.grpcServer.Serve(lis) }()

	runErr := make(chan error, 1)
	go func() { runErr <- n.supervisor.Run(ctx) }()

	select {
	case <-ctx.Done():
		n.grpcServer.GracefulStop()
		<-runErr
		if err := n.telemetry.Shutdown(context.Background()); err != nil {
			slog.Warn("telemetry shutdown failed", "node", n.SelfName, "error", err)
		}
		return nil
	case err := <-serveErr:
		return fmt.Errorf("node %s: grpc server stopped: %w", n.SelfName, err)
	}
}

// Close releases client-side connections without stopping the server.
func (n *Node) Close() error {
	return n.client.Close()
}

// callerRegistryDeliverer adapts *caller.Registry to transport.Deliverer.
type callerRegistryDeliverer struct {
	reg *caller.Registry
}

func (d callerRegistryDeliverer) Deliver(id, executingNode string, ok bool, result any, errInfo string) {
	d.reg.Deliver(id, executingNode, ok, result, errInfo)
}
