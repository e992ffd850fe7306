package admin

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "coffeechat.admin.v1.AdminService"

// AdminServer is the management API. Every method takes and returns a
// google.protobuf.Struct.
type AdminServer interface {
	GetStats(context.Context, *structpb.Struct) (*structpb.Struct, error)
	CreatePairings(context.Context, *structpb.Struct) (*structpb.Struct, error)
	SendPairingMessages(context.Context, *structpb.Struct) (*structpb.Struct, error)
	RunScheduledPairing(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListPairings(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetConfig(context.Context, *structpb.Struct) (*structpb.Struct, error)
	SetConfig(context.Context, *structpb.Struct) (*structpb.Struct, error)
	UpdatePreferences(context.Context, *structpb.Struct) (*structpb.Struct, error)
	SyncUsers(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

type call func(AdminServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func method(name string, fn call) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(structpb.Struct)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return fn(srv.(AdminServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: FullMethod(name)}
			handler := func(ctx context.Context, req any) (any, error) {
				return fn(srv.(AdminServer), ctx, req.(*structpb.Struct))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

// FullMethod returns the gRPC path of a method, e.g. "/coffeechat.admin.v1.AdminService/GetStats".
func FullMethod(name string) string {
	return "/" + ServiceName + "/" + name
}

// ServiceDesc describes AdminService for grpc.Server.RegisterService.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*AdminServer)(nil),
	Methods: []grpc.MethodDesc{
		method("GetStats", AdminServer.GetStats),
		method("CreatePairings", AdminServer.CreatePairings),
		method("SendPairingMessages", AdminServer.SendPairingMessages),
		method("RunScheduledPairing", AdminServer.RunScheduledPairing),
		method("ListPairings", AdminServer.ListPairings),
		method("GetConfig", AdminServer.GetConfig),
		method("SetConfig", AdminServer.SetConfig),
		method("UpdatePreferences", AdminServer.UpdatePreferences),
		method("SyncUsers", AdminServer.SyncUsers),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "coffeechat/admin/v1/admin.proto",
}

// Client calls AdminService over any connection.
type Client struct {
	cc grpc.ClientConnInterface
}

func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

// Call invokes method with in as the request body.
func (c *Client) Call(ctx context.Context, method string, in map[string]any, opts ...grpc.CallOption) (map[string]any, error) {
	req, err := structpb.NewStruct(in)
	if err != nil {
		return nil, err
	}
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, FullMethod(method), req, out, opts...); err != nil {
		return nil, err
	}
	return out.AsMap(), nil
}
