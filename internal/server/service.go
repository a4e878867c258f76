package server

import (
	"context"
	_ "embed"
	"fmt"

	"github.com/jhump/protoreflect/desc"
	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/dynamicpb"

	"github.com/funvibe/expreval/internal/protoreg"
)

const (
	ServiceName = "expreval.v1.Evaluator"
	protoFile   = "expreval/v1/evaluator.proto"
)

//go:embed evaluator.proto
var serviceProto string

// loadService parses the embedded service definition.
func loadService() (*desc.ServiceDescriptor, error) {
	reg := protoreg.New()
	if err := reg.LoadSource(protoFile, serviceProto); err != nil {
		return nil, err
	}
	return reg.FindService(ServiceName)
}

// unaryHandler serves one method on a decoded request.
type unaryHandler func(s *Server, ctx context.Context, req *dynamicpb.Message, md *desc.MethodDescriptor) (*dynamicpb.Message, error)

var handlers = map[string]unaryHandler{
	"Evaluate":    (*Server).handleEvaluate,
	"Disassemble": (*Server).handleDisassemble,
}

// serviceDesc builds the grpc registration from the descriptor, since
// there is no generated code for the service.
func serviceDesc(sd *desc.ServiceDescriptor) (*grpc.ServiceDesc, error) {
	gd := &grpc.ServiceDesc{
		ServiceName: sd.GetFullyQualifiedName(),
		HandlerType: (*interface{})(nil),
		Methods:     []grpc.MethodDesc{},
		Streams:     []grpc.StreamDesc{},
		Metadata:    sd.GetFile().GetName(),
	}
	for _, method := range sd.GetMethods() {
		if method.IsClientStreaming() || method.IsServerStreaming() {
			return nil, fmt.Errorf("method %s: streaming is not supported", method.GetName())
		}
		h, ok := handlers[method.GetName()]
		if !ok {
			return nil, fmt.Errorf("method %s has no handler", method.GetName())
		}
		md := method
		fullMethod := "/" + gd.ServiceName + "/" + md.GetName()
		gd.Methods = append(gd.Methods, grpc.MethodDesc{
			MethodName: md.GetName(),
			Handler: func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
				in := dynamicpb.NewMessage(md.GetInputType().UnwrapMessage())
				if err := dec(in); err != nil {
					return nil, err
				}
				s := srv.(*Server)
				if interceptor == nil {
					return h(s, ctx, in, md)
				}
				info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
				return interceptor(ctx, in, info, func(ctx context.Context, req interface{}) (interface{}, error) {
					return h(s, ctx, req.(*dynamicpb.Message), md)
				})
			},
		})
	}
	return gd, nil
}
