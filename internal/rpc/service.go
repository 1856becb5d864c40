package rpc

import (
	"context"
	"errors"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/chuliyu/kvwal/internal/kv"
)

// KVServiceServer is the hand-written service interface corresponding to
// api/proto/v1/kv.proto's KVService.
type KVServiceServer interface {
	GetKey(context.Context, *GetKeyRequest) (*GetKeyResponse, error)
	SetKey(context.Context, *SetKeyRequest) (*SetKeyResponse, error)
	DeleteKey(context.Context, *DeleteKeyRequest) (*DeleteKeyResponse, error)
}

// Server implements KVServiceServer over the cache+WAL binding. GetKey
// returns an empty value on a cache miss rather than a NotFound status;
// the canonical not-found contract lives on the HTTP surface's 404.
// DeleteKey still reports NotFound, matching the .proto's documented
// behavior.
type Server struct {
	KV *kv.Store
}

func (s *Server) GetKey(ctx context.Context, req *GetKeyRequest) (*GetKeyResponse, error) {
	v, err := s.KV.Get(req.Key)
	if errors.Is(err, kv.ErrNotFound) {
		return &GetKeyResponse{Value: ""}, nil
	}
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return &GetKeyResponse{Value: string(v)}, nil
}

func (s *Server) SetKey(ctx context.Context, req *SetKeyRequest) (*SetKeyResponse, error) {
	if err := s.KV.Set(req.Key, []byte(req.Value)); err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return &SetKeyResponse{}, nil
}

func (s *Server) DeleteKey(ctx context.Context, req *DeleteKeyRequest) (*DeleteKeyResponse, error) {
	if err := s.KV.Delete(req.Key); err != nil {
		if errors.Is(err, kv.ErrNotFound) {
			return nil, status.Error(codes.NotFound, "key not found")
		}
		return nil, status.Error(codes.Internal, err.Error())
	}
	return &DeleteKeyResponse{}, nil
}

func _KVService_GetKey_Handler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(GetKeyRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(KVServiceServer).GetKey(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/kvwal.v1.KVService/GetKey"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(KVServiceServer).GetKey(ctx, req.(*GetKeyRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _KVService_SetKey_Handler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(SetKeyRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(KVServiceServer).SetKey(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/kvwal.v1.KVService/SetKey"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(KVServiceServer).SetKey(ctx, req.(*SetKeyRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _KVService_DeleteKey_Handler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(DeleteKeyRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(KVServiceServer).DeleteKey(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/kvwal.v1.KVService/DeleteKey"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(KVServiceServer).DeleteKey(ctx, req.(*DeleteKeyRequest))
	}
	return interceptor(ctx, in, info, handler)
}

// ServiceDesc mirrors what protoc-gen-go-grpc would emit for KVService.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: "kvwal.v1.KVService",
	HandlerType: (*KVServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "GetKey", Handler: _KVService_GetKey_Handler},
		{MethodName: "SetKey", Handler: _KVService_SetKey_Handler},
		{MethodName: "DeleteKey", Handler: _KVService_DeleteKey_Handler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "api/proto/v1/kv.proto",
}

// NewServer returns a *grpc.Server with KVService registered against
// kvStore, using this package's wire codec in place of the usual
// proto.Message-based one.
func NewServer(kvStore *kv.Store) *grpc.Server {
	srv := grpc.NewServer(grpc.ForceServerCodec(codec{}))
	srv.RegisterService(&ServiceDesc, &Server{KV: kvStore})
	return srv
}
