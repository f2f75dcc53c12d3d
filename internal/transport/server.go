package transport

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"please/internal/registry"
	"please/internal/requests"
	"please/internal/transport/pb"
)

// toGRPCStatus translates a handler's plain Go error into the grpc status
// code that is its wire representation, mirroring the teacher's
// toGRPCError: the error message is string-matched against known phrases,
// with codes.Internal as the fallback. No typed or sentinel check is made.
func toGRPCStatus(err error) error {
	if err == nil {
		return nil
	}
	msg := err.Error()
	switch {
	case strings.Contains(msg, "must not be empty"):
		return status.Error(codes.InvalidArgument, msg)
	case strings.Contains(msg, "no deliverer attached"):
		return status.Error(codes.Unavailable, msg)
	default:
		return status.Error(codes.Internal, msg)
	}
}

// Deliverer hands a completed request's outcome to whatever is waiting on it
// locally (pkg/please.MakeItSo's caller). Implemented by internal/caller;
// kept narrow here so transport never imports it.
type Deliverer interface {
	Deliver(id, executingNode string, ok bool, result any, errInfo string)
}

// Server bridges the hand-built pb.MeshServer surface to the node's local
// state: registry, request store, catalog-backed scoring, and the pending
// caller map. One Server is built per node in internal/node.
type Server struct {
	pb.UnimplementedMeshServer

	Registry  *registry.Registry
	Store     *requests.Store
	Resolver  requests.Resolver
	Offsets   requests.Offsets
	Deliverer Deliverer
}

// NewServer wires a Server from its collaborators. deliverer may be nil
// before internal/caller is attached; DeliverResult then errors.
func NewServer(reg *registry.Registry, store *requests.Store, resolver requests.Resolver, offsets requests.Offsets, deliverer Deliverer) *Server {
	return &Server{Registry: reg, Store: store, Resolver: resolver, Offsets: offsets, Deliverer: deliverer}
}

func (s *Server) RegistryGet(ctx context.Context, _ *pb.Empty) (*pb.RegistryGetReply, error) {
	peers := s.Registry.Get()
	out := make(map[string]map[string]any, len(peers))
	for name, meta := range peers {
		out[name] = map[string]any(meta)
	}
	return &pb.RegistryGetReply{Self: s.Registry.SelfName(), Peers: out}, nil
}

func (s *Server) Metadata(ctx context.Context, _ *pb.Empty) (*pb.MetadataReply, error) {
	meta, _ := s.Registry.GetPeer(s.Registry.SelfName())
	return &pb.MetadataReply{Metadata: map[string]any(meta)}, nil
}

func (s *Server) PushMetadata(ctx context.Context, in *pb.PushMetadataRequest) (*pb.Empty, error) {
	if in.Name == "" {
		return nil, toGRPCStatus(fmt.Errorf("PushMetadata: name must not be empty"))
	}
	s.Registry.SetPeerMetadata(in.Name, registry.Metadata(in.Metadata))
	return &pb.Empty{}, nil
}

func (s *Server) Ping(ctx context.Context, _ *pb.Empty) (*pb.Empty, error) {
	return &pb.Empty{}, nil
}

func (s *Server) AcceptancePriority(ctx context.Context, in *pb.AcceptanceRequest) (*pb.AcceptanceReply, error) {
	r := fromWire(in.Request)
	priority, ok := requests.AcceptancePriority(s.Resolver, s.Offsets, s.Store.BaseBusyness(), r)
	if !ok {
		return &pb.AcceptanceReply{Eligible: false}, nil
	}
	return &pb.AcceptanceReply{Priority: priority, Eligible: true}, nil
}

func (s *Server) InsertHandling(ctx context.Context, in *pb.InsertRequest) (*pb.Empty, error) {
	s.Store.InsertHandling(fromWire(in.Request))
	return &pb.Empty{}, nil
}

func (s *Server) RemoveRequest(ctx context.Context, in *pb.RemoveRequestMsg) (*pb.Empty, error) {
	s.Store.Remove(in.ID)
	return &pb.Empty{}, nil
}

func (s *Server) DeliverResult(ctx context.Context, in *pb.DeliverResultRequest) (*pb.Empty, error) {
	if s.Deliverer == nil {
		return nil, toGRPCStatus(fmt.Errorf("DeliverResult: no deliverer attached"))
	}
	s.Deliverer.Deliver(in.ID, in.ExecutingNode, in.OK, in.Result, in.ErrorInfo)
	return &pb.Empty{}, nil
}

func fromWire(w pb.WireRequest) requests.Request {
	return requests.Request{
		ID:           w.ID,
		OriginNode:   w.OriginNode,
		CallerHandle: w.CallerHandle,
		Module:       w.Module,
		Function:     w.Function,
		Args:         w.Args,
	}
}

func toWire(r requests.Request) pb.WireRequest {
	return pb.WireRequest{
		ID:           r.ID,
		OriginNode:   r.OriginNode,
		CallerHandle: r.CallerHandle,
		Module:       r.Module,
		Function:     r.Function,
		Args:         r.Args,
	}
}
