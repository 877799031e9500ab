package valuesvc

import (
	"context"

	"google.golang.org/grpc"

	"github.com/obsidianstack/singlestat/pkg/types"
)

const (
	ServiceName = "singlestat.v1.ValueService"
	PushMethod  = "/" + ServiceName + "/Push"
)

// ValueServiceServer is implemented by the server-side receiver.
type ValueServiceServer interface {
	Push(ctx context.Context, snap *types.Snapshot) (*types.PushResponse, error)
}

// RegisterValueServiceServer registers srv on s.
func RegisterValueServiceServer(s grpc.ServiceRegistrar, srv ValueServiceServer) {
	s.RegisterService(&serviceDesc, srv)
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*ValueServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Push", Handler: pushHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "singlestat/v1/values",
}

func pushHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(types.Snapshot)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ValueServiceServer).Push(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: PushMethod}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(ValueServiceServer).Push(ctx, req.(*types.Snapshot))
	}
	return interceptor(ctx, in, info, handler)
}

// Client calls ValueService over an established connection.
type Client struct {
	cc grpc.ClientConnInterface
}

// NewClient returns a Client using cc.
func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

// Push sends snap to the server.
func (c *Client) Push(ctx context.Context, snap *types.Snapshot, opts ...grpc.CallOption) (*types.PushResponse, error) {
	out := new(types.PushResponse)
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
	if err := c.cc.Invoke(ctx, PushMethod, snap, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
