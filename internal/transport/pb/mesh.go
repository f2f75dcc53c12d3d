// Package pb defines the Mesh gRPC service by hand: a grpc.ServiceDesc plus
// plain JSON-tagged Go structs, in place of protoc-generated bindings. See
// DESIGN.md "internal/transport" for why — request args and metadata are
// schema-free map[string]any/[]any, which protobuf messages resist without a
// dynamic Struct/Any escape hatch, so a JSON wire codec (codec.go, in the
// parent package) is used instead of the protobuf codec.
package pb

import (
	"context"

	"google.golang.org/grpc"
)

// Empty is the argument/return type for RPCs that carry nothing.
type Empty struct{}

// WireRequest mirrors internal/requests.Request on the wire.
type WireRequest struct {
	ID           string `json:"id"`
	OriginNode   string `json:"origin_node"`
	CallerHandle string `json:"caller_handle"`
	Module       string `json:"module"`
	Function     string `json:"function"`
	Args         []any  `json:"args"`
}

// RegistryGetReply is NodeRegistry.Get() on the wire.
type RegistryGetReply struct {
	Self  string                    `json:"self"`
	Peers map[string]map[string]any `json:"peers"`
}

// MetadataReply is NodeRegistry self-metadata on the wire.
type MetadataReply struct {
	Metadata map[string]any `json:"metadata"`
}

// PushMetadataRequest is a peer announcing its own metadata.
type PushMetadataRequest struct {
	Name     string         `json:"name"`
	Metadata map[string]any `json:"metadata"`
}

// AcceptanceRequest carries a candidate request to score.
type AcceptanceRequest struct {
	Request WireRequest `json:"request"`
}

// AcceptanceReply carries the score, or Eligible=false for nil/ineligible.
type AcceptanceReply struct {
	Priority int64 `json:"priority"`
	Eligible bool  `json:"eligible"`
}

// InsertRequest is the delegate-target's InsertHandling call.
type InsertRequest struct {
	Request WireRequest `json:"request"`
}

// RemoveRequestMsg removes a request from both lists by ID.
type RemoveRequestMsg struct {
	ID string `json:"id"`
}

// DeliverResultRequest carries a worker's outcome back to the originator.
type DeliverResultRequest struct {
	ID            string `json:"id"`
	ExecutingNode string `json:"executing_node"`
	OK            bool   `json:"ok"`
	Result        any    `json:"result,omitempty"`
	ErrorInfo     string `json:"error_info,omitempty"`
}

// MeshServer is the RPC surface every node exposes to its peers (spec §6).
type MeshServer interface {
	RegistryGet(context.Context, *Empty) (*RegistryGetReply, error)
	Metadata(context.Context, *Empty) (*MetadataReply, error)
	PushMetadata(context.Context, *PushMetadataRequest) (*Empty, error)
	Ping(context.Context, *Empty) (*Empty, error)
	AcceptancePriority(context.Context, *AcceptanceRequest) (*AcceptanceReply, error)
	InsertHandling(context.Context, *InsertRequest) (*Empty, error)
	RemoveRequest(context.Context, *RemoveRequestMsg) (*Empty, error)
	DeliverResult(context.Context, *DeliverResultRequest) (*Empty, error)
}

// UnimplementedMeshServer can be embedded to satisfy MeshServer for tests
// that only need a subset of methods, matching the protoc-gen-go-grpc
// forward-compatibility idiom the teacher's generated servers use.
type UnimplementedMeshServer struct{}

func (UnimplementedMeshServer) RegistryGet(context.Context, *Empty) (*RegistryGetReply, error) {
	return nil, grpcUnimplemented("RegistryGet")
}
func (UnimplementedMeshServer) Metadata(context.Context, *Empty) (*MetadataReply, error) {
	return nil, grpcUnimplemented("Metadata")
}
func (UnimplementedMeshServer) PushMetadata(context.Context, *PushMetadataRequest) (*Empty, error) {
	return nil, grpcUnimplemented("PushMetadata")
}
func (UnimplementedMeshServer) Ping(context.Context, *Empty) (*Empty, error) {
	return nil, grpcUnimplemented("Ping")
}
func (UnimplementedMeshServer) AcceptancePriority(context.Context, *AcceptanceRequest) (*AcceptanceReply, error) {
	return nil, grpcUnimplemented("AcceptancePriority")
}
func (UnimplementedMeshServer) InsertHandling(context.Context, *InsertRequest) (*Empty, error) {
	return nil, grpcUnimplemented("InsertHandling")
}
func (UnimplementedMeshServer) RemoveRequest(context.Context, *RemoveRequestMsg) (*Empty, error) {
	return nil, grpcUnimplemented("RemoveRequest")
}
func (UnimplementedMeshServer) DeliverResult(context.Context, *DeliverResultRequest) (*Empty, error) {
	return nil, grpcUnimplemented("DeliverResult")
}

func grpcUnimplemented(method string) error {
	return errUnimplemented{method: method}
}

type errUnimplemented struct{ method string }

func (e errUnimplemented) Error() string { return "method " + e.method + " not implemented" }

// RegisterMeshServer attaches srv to s under the hand-built ServiceDesc.
func RegisterMeshServer(s grpc.ServiceRegistrar, srv MeshServer) {
	s.RegisterService(&MeshServiceDesc, srv)
}

// MeshServiceDesc is the hand-authored equivalent of a protoc-gen-go-grpc
// _ServiceDesc. Each MethodName/Handler pair below decodes its request with
// the active codec (codec.go installs a JSON one), then dispatches to srv.
var MeshServiceDesc = grpc.ServiceDesc{
	ServiceName: "please.Mesh",
	HandlerType: (*MeshServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "RegistryGet", Handler: meshRegistryGetHandler},
		{MethodName: "Metadata", Handler: meshMetadataHandler},
		{MethodName: "PushMetadata", Handler: meshPushMetadataHandler},
		{MethodName: "Ping", Handler: meshPingHandler},
		{MethodName: "AcceptancePriority", Handler: meshAcceptancePriorityHandler},
		{MethodName: "InsertHandling", Handler: meshInsertHandlingHandler},
		{MethodName: "RemoveRequest", Handler: meshRemoveRequestHandler},
		{MethodName: "DeliverResult", Handler: meshDeliverResultHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "mesh.proto",
}

func meshRegistryGetHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(MeshServer).RegistryGet(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/please.Mesh/RegistryGet"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(MeshServer).RegistryGet(ctx, req.(*Empty))
	}
	return interceptor(ctx, in, info, handler)
}

func meshMetadataHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(MeshServer).Metadata(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/please.Mesh/Metadata"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(MeshServer).Metadata(ctx, req.(*Empty))
	}
	return interceptor(ctx, in, info, handler)
}

func meshPushMetadataHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(PushMetadataRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(MeshServer).PushMetadata(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/please.Mesh/PushMetadata"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(MeshServer).PushMetadata(ctx, req.(*PushMetadataRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func meshPingHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(MeshServer).Ping(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/please.Mesh/Ping"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(MeshServer).Ping(ctx, req.(*Empty))
	}
	return interceptor(ctx, in, info, handler)
}

func meshAcceptancePriorityHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(AcceptanceRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(MeshServer).AcceptancePriority(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/please.Mesh/AcceptancePriority"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(MeshServer).AcceptancePriority(ctx, req.(*AcceptanceRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func meshInsertHandlingHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(InsertRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(MeshServer).InsertHandling(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/please.Mesh/InsertHandling"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(MeshServer).InsertHandling(ctx, req.(*InsertRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func meshRemoveRequestHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(RemoveRequestMsg)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(MeshServer).RemoveRequest(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/please.Mesh/RemoveRequest"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(MeshServer).RemoveRequest(ctx, req.(*RemoveRequestMsg))
	}
	return interceptor(ctx, in, info, handler)
}

func meshDeliverResultHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(DeliverResultRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(MeshServer).DeliverResult(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/please.Mesh/DeliverResult"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(MeshServer).DeliverResult(ctx, req.(*DeliverResultRequest))
	}
	return interceptor(ctx, in, info, handler)
}

// MeshClient is the typed client stub over MeshServiceDesc.
type MeshClient interface {
	RegistryGet(ctx context.Context, in *Empty, opts ...grpc.CallOption) (*RegistryGetReply, error)
	Metadata(ctx context.Context, in *Empty, opts ...grpc.CallOption) (*MetadataReply, error)
	PushMetadata(ctx context.Context, in *PushMetadataRequest, opts ...grpc.CallOption) (*Empty, error)
	Ping(ctx context.Context, in *Empty, opts ...grpc.CallOption) (*Empty, error)
	AcceptancePriority(ctx context.Context, in *AcceptanceRequest, opts ...grpc.CallOption) (*AcceptanceReply, error)
	InsertHandling(ctx context.Context, in *InsertRequest, opts ...grpc.CallOption) (*Empty, error)
	RemoveRequest(ctx context.Context, in *RemoveRequestMsg, opts ...grpc.CallOption) (*Empty, error)
	DeliverResult(ctx context.Context, in *DeliverResultRequest, opts ...grpc.CallOption) (*Empty, error)
}

type meshClient struct {
	cc grpc.ClientConnInterface
}

// NewMeshClient wraps a ClientConn with the typed Mesh RPC methods.
func NewMeshClient(cc grpc.ClientConnInterface) MeshClient {
	return &meshClient{cc: cc}
}

func (c *meshClient) RegistryGet(ctx context.Context, in *Empty, opts ...grpc.CallOption) (*RegistryGetReply, error) {
	out := new(RegistryGetReply)
	if err := c.cc.Invoke(ctx, "/please.Mesh/RegistryGet", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *meshClient) Metadata(ctx context.Context, in *Empty, opts ...grpc.CallOption) (*MetadataReply, error) {
	out := new(MetadataReply)
	if err := c.cc.Invoke(ctx, "/please.Mesh/Metadata", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *meshClient) PushMetadata(ctx context.Context, in *PushMetadataRequest, opts ...grpc.CallOption) (*Empty, error) {
	out := new(Empty)
	if err := c.cc.Invoke(ctx, "/please.Mesh/PushMetadata", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *meshClient) Ping(ctx context.Context, in *Empty, opts ...grpc.CallOption) (*Empty, error) {
	out := new(Empty)
	if err := c.cc.Invoke(ctx, "/please.Mesh/Ping", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *meshClient) AcceptancePriority(ctx context.Context, in *AcceptanceRequest, opts ...grpc.CallOption) (*AcceptanceReply, error) {
	out := new(AcceptanceReply)
	if err := c.cc.Invoke(ctx, "/please.Mesh/AcceptancePriority", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *meshClient) InsertHandling(ctx context.Context, in *InsertRequest, opts ...grpc.CallOption) (*Empty, error) {
	out := new(Empty)
	if err := c.cc.Invoke(ctx, "/please.Mesh/InsertHandling", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *meshClient) RemoveRequest(ctx context.Context, in *RemoveRequestMsg, opts ...grpc.CallOption) (*Empty, error) {
	out := new(Empty)
	if err := c.cc.Invoke(ctx, "/please.Mesh/RemoveRequest", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *meshClient) DeliverResult(ctx context.Context, in *DeliverResultRequest, opts ...grpc.CallOption) (*Empty, error) {
	out := new(Empty)
	if err := c.cc.Invoke(ctx, "/please.Mesh/DeliverResult", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
