// Package grpcapi implements the Executions gRPC service. Messages are
// google.protobuf.Struct values shaped like the REST API's JSON bodies, so
// no generated code is needed on either side.
package grpcapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/lemonberrylabs/treewalk/pkg/executor"
	"github.com/lemonberrylabs/treewalk/pkg/parser"
	"github.com/lemonberrylabs/treewalk/pkg/store"
	"github.com/lemonberrylabs/treewalk/pkg/types"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "treewalk.v1.Executions"

// ExecutionsServer is the server API for the Executions service.
type ExecutionsServer interface {
	CreateExecution(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetExecution(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListExecutions(context.Context, *structpb.Struct) (*structpb.Struct, error)
	DeleteExecution(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

var executionsServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*ExecutionsServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "CreateExecution", Handler: unaryHandler("CreateExecution", ExecutionsServer.CreateExecution)},
		{MethodName: "GetExecution", Handler: unaryHandler("GetExecution", ExecutionsServer.GetExecution)},
		{MethodName: "ListExecutions", Handler: unaryHandler("ListExecutions", ExecutionsServer.ListExecutions)},
		{MethodName: "DeleteExecution", Handler: unaryHandler("DeleteExecution", ExecutionsServer.DeleteExecution)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "treewalk/v1/executions.proto",
}

// RegisterExecutionsServer registers srv on s.
func RegisterExecutionsServer(s grpc.ServiceRegistrar, srv ExecutionsServer) {
	s.RegisterService(&executionsServiceDesc, srv)
}

func unaryHandler(method string, call func(ExecutionsServer, context.Context, *structpb.Struct) (*structpb.Struct, error)) func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	return func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(ExecutionsServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{
			Server:     srv,
			FullMethod: "/" + ServiceName + "/" + method,
		}
		handler := func(ctx context.Context, req interface{}) (interface{}, error) {
			return call(srv.(ExecutionsServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// Server implements the Executions gRPC service.
type Server struct {
	exec *executor.Executor
	grpc *grpc.Server
}

// New creates a new gRPC server that runs programs through exec.
func New(exec *executor.Executor) *Server {
	srv := &Server{exec: exec}

	gs := grpc.NewServer()
	RegisterExecutionsServer(gs, srv)
	srv.grpc = gs

	return srv
}

// Serve starts listening on the given address and serves gRPC requests.
func (s *Server) Serve(addr string) error {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("grpc listen: %w", err)
	}
	return s.ServeListener(lis)
}

// ServeListener serves gRPC requests on an existing listener.
func (s *Server) ServeListener(lis net.Listener) error {
	return s.grpc.Serve(lis)
}

// GracefulStop gracefully stops the gRPC server.
func (s *Server) GracefulStop() {
	s.grpc.GracefulStop()
}

// CreateExecution runs the program in req and returns its record.
// Request fields: source (string), allowOutput (bool, default true),
// environment (struct of numbers and booleans).
func (s *Server) CreateExecution(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	fields := req.GetFields()

	source := fields["source"].GetStringValue()
	if source == "" {
		return nil, status.Error(codes.InvalidArgument, "source is required")
	}

	allowOutput := true
	if v, ok := fields["allowOutput"]; ok {
		b, isBool := v.GetKind().(*structpb.Value_BoolValue)
		if !isBool {
			return nil, status.Error(codes.InvalidArgument, "allowOutput must be a boolean")
		}
		allowOutput = b.BoolValue
	}

	env := map[string]types.Value{}
	for name, raw := range fields["environment"].GetStructValue().GetFields() {
		val, err := types.ValueFromJSON(raw.AsInterface())
		if err != nil {
			return nil, status.Errorf(codes.InvalidArgument, "environment.%s: %v", name, err)
		}
		env[name] = val
	}

	exec, err := s.exec.Run(ctx, executor.Request{
		Source:      source,
		AllowOutput: allowOutput,
		Environment: env,
	})
	if err != nil {
		var pe *parser.ParseError
		if errors.As(err, &pe) {
			return nil, status.Error(codes.InvalidArgument, err.Error())
		}
		return nil, status.Error(codes.Internal, err.Error())
	}

	log.Printf("Execution %s finished: %s", exec.Name, exec.State)
	return executionToStruct(exec)
}

// GetExecution returns the record named by req's name field.
func (s *Server) GetExecution(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	exec, err := s.exec.Store().GetExecution(req.GetFields()["name"].GetStringValue())
	if err != nil {
		return nil, status.Error(codes.NotFound, err.Error())
	}
	return executionToStruct(exec)
}

// ListExecutions returns all records, newest first, under "executions".
func (s *Server) ListExecutions(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	executions := s.exec.Store().ListExecutions()

	items := make([]interface{}, len(executions))
	for i, exec := range executions {
		m, err := executionToMap(exec)
		if err != nil {
			return nil, status.Error(codes.Internal, err.Error())
		}
		items[i] = m
	}

	out, err := structpb.NewStruct(map[string]interface{}{"executions": items})
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return out, nil
}

// DeleteExecution removes the record named by req's name field.
func (s *Server) DeleteExecution(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	if err := s.exec.Store().DeleteExecution(req.GetFields()["name"].GetStringValue()); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, status.Error(codes.NotFound, err.Error())
		}
		return nil, status.Error(codes.Internal, err.Error())
	}
	return &structpb.Struct{}, nil
}

// --- Internal helpers ---

// executionToMap uses the record's JSON encoding, matching the REST API.
func executionToMap(exec *store.Execution) (map[string]interface{}, error) {
	data, err := json.Marshal(exec)
	if err != nil {
		return nil, err
	}
	var m map[string]interface{}
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return m, nil
}

func executionToStruct(exec *store.Execution) (*structpb.Struct, error) {
	m, err := executionToMap(exec)
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	out, err := structpb.NewStruct(m)
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return out, nil
}
