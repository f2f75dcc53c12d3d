package transport

import (
	"context"
	"fmt"
	"sync"

	"github.com/containerd/errdefs"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"

	"please/internal/requests"
	"please/internal/transport/pb"
)

// classify turns a dial or RPC failure into the errdefs sentinel it
// represents at this boundary: a grpc status code on the wire translates
// back to the matching errdefs error, and anything that never reached the
// wire (dial/resolve failure) is unreachable by definition. PingTask and
// SyncTask treat any UNREACHABLE-classified peer the same way — skipped for
// the cycle, not surfaced as a hard failure. Mirrors the teacher's
// pkg/sdk/client.grpcErr status-to-sentinel mapping.
func classify(err error) error {
	if err == nil {
		return nil
	}
	st, ok := status.FromError(err)
	if !ok {
		return fmt.Errorf("%w: %w", errdefs.ErrUnavailable, err)
	}
	switch st.Code() {
	case codes.NotFound:
		return fmt.Errorf("%w: %s", errdefs.ErrNotFound, st.Message())
	case codes.Unavailable:
		return fmt.Errorf("%w: %s", errdefs.ErrUnavailable, st.Message())
	default:
		return err
	}
}

// AddressResolver turns a peer's advertised name into a dialable address
// (host:port). Implemented by internal/node from registry metadata, kept
// narrow here so transport never imports registry's Metadata value shape.
type AddressResolver func(peer string) (string, error)

// Client dials peers lazily and caches one connection per address. It is the
// node-to-node RPC surface described in SPEC_FULL.md §6.3, and it is the
// Delegator internal/requests.Store.Delegate calls into.
type Client struct {
	resolve AddressResolver

	mu    sync.Mutex
	conns map[string]*grpc.ClientConn
}

// NewClient builds a Client that resolves peer names via resolve.
func NewClient(resolve AddressResolver) *Client {
	return &Client{resolve: resolve, conns: make(map[string]*grpc.ClientConn)}
}

// Close tears down every cached connection.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	var firstErr error
	for addr, cc := range c.conns {
		if err := cc.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("close conn %s: %w", addr, err)
		}
	}
	c.conns = make(map[string]*grpc.ClientConn)
	return firstErr
}

func (c *Client) dial(peer string) (pb.MeshClient, error) {
	addr, err := c.resolve(peer)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w: %w", peer, errdefs.ErrUnavailable, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if cc, ok := c.conns[addr]; ok {
		return pb.NewMeshClient(cc), nil
	}

	cc, err := grpc.NewClient(addr,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(grpc.ForceCodec(jsonCodec{})),
		grpc.WithStatsHandler(otelgrpc.NewClientHandler()),
	)
	if err != nil {
		return nil, fmt.Errorf("dial %s (%s): %w: %w", peer, addr, errdefs.ErrUnavailable, err)
	}
	c.conns[addr] = cc
	return pb.NewMeshClient(cc), nil
}

// RegistryGet fetches peer's full membership view, used by SyncTask.
func (c *Client) RegistryGet(ctx context.Context, peer string) (self string, peers map[string]map[string]any, err error) {
	cli, err := c.dial(peer)
	if err != nil {
		return "", nil, err
	}
	reply, err := cli.RegistryGet(ctx, &pb.Empty{})
	if err != nil {
		return "", nil, fmt.Errorf("RegistryGet %s: %w", peer, classify(err))
	}
	return reply.Self, reply.Peers, nil
}

// Metadata fetches peer's self-advertised metadata, used by PingTask.
func (c *Client) Metadata(ctx context.Context, peer string) (map[string]any, error) {
	cli, err := c.dial(peer)
	if err != nil {
		return nil, err
	}
	reply, err := cli.Metadata(ctx, &pb.Empty{})
	if err != nil {
		return nil, fmt.Errorf("Metadata %s: %w", peer, classify(err))
	}
	return reply.Metadata, nil
}

// PushMetadata announces selfName's metadata to peer, used by PingTask.
func (c *Client) PushMetadata(ctx context.Context, peer, selfName string, metadata map[string]any) error {
	cli, err := c.dial(peer)
	if err != nil {
		return err
	}
	if _, err := cli.PushMetadata(ctx, &pb.PushMetadataRequest{Name: selfName, Metadata: metadata}); err != nil {
		return fmt.Errorf("PushMetadata %s: %w", peer, classify(err))
	}
	return nil
}

// Ping checks reachability, used by PingTask. A nil error means reachable.
func (c *Client) Ping(ctx context.Context, peer string) error {
	cli, err := c.dial(peer)
	if err != nil {
		return err
	}
	if _, err := cli.Ping(ctx, &pb.Empty{}); err != nil {
		return fmt.Errorf("Ping %s: %w", peer, classify(err))
	}
	return nil
}

// AcceptancePriority asks peer how eager it is to take r, used by AssignTask.
// ok is false when peer is unreachable OR peer reports itself ineligible.
func (c *Client) AcceptancePriority(ctx context.Context, peer string, r requests.Request) (priority int64, ok bool, err error) {
	cli, err := c.dial(peer)
	if err != nil {
		return 0, false, err
	}
	reply, err := cli.AcceptancePriority(ctx, &pb.AcceptanceRequest{Request: toWire(r)})
	if err != nil {
		return 0, false, fmt.Errorf("AcceptancePriority %s: %w", peer, classify(err))
	}
	return reply.Priority, reply.Eligible, nil
}

// InsertHandling satisfies internal/requests.Delegator: push req onto peer's
// handling list. Called only after the local Store already holds req.
func (c *Client) InsertHandling(ctx context.Context, peer string, r requests.Request) error {
	cli, err := c.dial(peer)
	if err != nil {
		return err
	}
	if _, err := cli.InsertHandling(ctx, &pb.InsertRequest{Request: toWire(r)}); err != nil {
		return fmt.Errorf("InsertHandling %s: %w", peer, classify(err))
	}
	return nil
}

// RemoveRequest tells peer to forget id from both its lists, used once a
// request's result has been delivered and it no longer needs tracking there.
func (c *Client) RemoveRequest(ctx context.Context, peer, id string) error {
	cli, err := c.dial(peer)
	if err != nil {
		return err
	}
	if _, err := cli.RemoveRequest(ctx, &pb.RemoveRequestMsg{ID: id}); err != nil {
		return fmt.Errorf("RemoveRequest %s: %w", peer, classify(err))
	}
	return nil
}

// DeliverResult reports a completed (or failed) execution back to the
// request's origin node, used by HandleTask once Catalog.Apply returns.
func (c *Client) DeliverResult(ctx context.Context, originNode, id, executingNode string, ok bool, result any, errInfo string) error {
	cli, err := c.dial(originNode)
	if err != nil {
		return err
	}
	if _, err := cli.DeliverResult(ctx, &pb.DeliverResultRequest{
		ID:            id,
		ExecutingNode: executingNode,
		OK:            ok,
		Result:        result,
		ErrorInfo:     errInfo,
	}); err != nil {
		return fmt.Errorf("DeliverResult %s: %w", originNode, classify(err))
	}
	return nil
}
