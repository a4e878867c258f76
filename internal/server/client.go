package server

import (
	"context"
	"fmt"

	"github.com/jhump/protoreflect/desc"
	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/dynamicpb"
)

// Client calls an Evaluator service over conn.
type Client struct {
	conn    grpc.ClientConnInterface
	methods map[string]*desc.MethodDescriptor
}

func NewClient(conn grpc.ClientConnInterface) (*Client, error) {
	sd, err := loadService()
	if err != nil {
		return nil, fmt.Errorf("load service: %w", err)
	}
	c := &Client{conn: conn, methods: make(map[string]*desc.MethodDescriptor)}
	for _, md := range sd.GetMethods() {
		c.methods[md.GetName()] = md
	}
	return c, nil
}

func (c *Client) invoke(ctx context.Context, method string, in *dynamicpb.Message, opts []grpc.CallOption) (*dynamicpb.Message, error) {
	md := c.methods[method]
	out := dynamicpb.NewMessage(md.GetOutputType().UnwrapMessage())
	if err := c.conn.Invoke(ctx, "/"+ServiceName+"/"+method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) Evaluate(ctx context.Context, req *EvaluateRequest, opts ...grpc.CallOption) (*EvaluateResponse, error) {
	in, err := encodeEvaluateRequest(c.methods["Evaluate"].GetInputType().UnwrapMessage(), req)
	if err != nil {
		return nil, err
	}
	out, err := c.invoke(ctx, "Evaluate", in, opts)
	if err != nil {
		return nil, err
	}
	return decodeEvaluateResponse(out)
}

func (c *Client) Disassemble(ctx context.Context, req *DisassembleRequest, opts ...grpc.CallOption) (*DisassembleResponse, error) {
	in := encodeDisassembleRequest(c.methods["Disassemble"].GetInputType().UnwrapMessage(), req)
	out, err := c.invoke(ctx, "Disassemble", in, opts)
	if err != nil {
		return nil, err
	}
	return decodeDisassembleResponse(out), nil
}
