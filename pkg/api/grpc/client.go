package grpcapi

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// Client is a thin client for the Executions service.
type Client struct {
	conn grpc.ClientConnInterface
}

// NewClient creates a client that issues calls on conn.
func NewClient(conn grpc.ClientConnInterface) *Client {
	return &Client{conn: conn}
}

func (c *Client) invoke(ctx context.Context, method string, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.conn.Invoke(ctx, "/"+ServiceName+"/"+method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// CreateExecution runs source with the given initial bindings.
func (c *Client) CreateExecution(ctx context.Context, source string, allowOutput bool, env map[string]interface{}, opts ...grpc.CallOption) (*structpb.Struct, error) {
	fields := map[string]interface{}{
		"source":      source,
		"allowOutput": allowOutput,
	}
	if len(env) > 0 {
		fields["environment"] = env
	}
	in, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, err
	}
	return c.invoke(ctx, "CreateExecution", in, opts...)
}

// GetExecution fetches one execution record by name.
func (c *Client) GetExecution(ctx context.Context, name string, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, "GetExecution", nameRequest(name), opts...)
}

// ListExecutions fetches all execution records, newest first.
func (c *Client) ListExecutions(ctx context.Context, opts ...grpc.CallOption) ([]*structpb.Struct, error) {
	out, err := c.invoke(ctx, "ListExecutions", &structpb.Struct{}, opts...)
	if err != nil {
		return nil, err
	}
	var items []*structpb.Struct
	for _, v := range out.GetFields()["executions"].GetListValue().GetValues() {
		items = append(items, v.GetStructValue())
	}
	return items, nil
}

// DeleteExecution removes an execution record.
func (c *Client) DeleteExecution(ctx context.Context, name string, opts ...grpc.CallOption) error {
	_, err := c.invoke(ctx, "DeleteExecution", nameRequest(name), opts...)
	return err
}

func nameRequest(name string) *structpb.Struct {
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		"name": structpb.NewStringValue(name),
	}}
}
