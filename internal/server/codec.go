package server

import (
	"fmt"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/types/dynamicpb"
	"google.golang.org/protobuf/types/known/structpb"
)

// Messages of the service are dynamic, so fields are read and written by
// name. The well-known Struct and Value fields are copied through their
// wire form: the parsed descriptors are not the ones structpb is built on.

func field(m protoreflect.Message, name string) protoreflect.FieldDescriptor {
	fd := m.Descriptor().Fields().ByName(protoreflect.Name(name))
	if fd == nil {
		panic(fmt.Sprintf("%s has no field %s", m.Descriptor().FullName(), name))
	}
	return fd
}

func getString(m protoreflect.Message, name string) string {
	return m.Get(field(m, name)).String()
}

func setString(m protoreflect.Message, name, v string) {
	if v != "" {
		m.Set(field(m, name), protoreflect.ValueOfString(v))
	}
}

func getStrings(m protoreflect.Message, name string) []string {
	l := m.Get(field(m, name)).List()
	out := make([]string, l.Len())
	for i := range out {
		out[i] = l.Get(i).String()
	}
	return out
}

func setStrings(m protoreflect.Message, name string, vs []string) {
	if len(vs) == 0 {
		return
	}
	l := m.Mutable(field(m, name)).List()
	for _, v := range vs {
		l.Append(protoreflect.ValueOfString(v))
	}
}

// getWellKnown copies a message field into dst. It reports false when the
// field is unset.
func getWellKnown(m protoreflect.Message, name string, dst proto.Message) (bool, error) {
	fd := field(m, name)
	if !m.Has(fd) {
		return false, nil
	}
	b, err := proto.Marshal(m.Get(fd).Message().Interface())
	if err != nil {
		return false, err
	}
	if err := proto.Unmarshal(b, dst); err != nil {
		return false, fmt.Errorf("field %s: %w", name, err)
	}
	return true, nil
}

func setWellKnown(m protoreflect.Message, name string, src proto.Message) error {
	b, err := proto.Marshal(src)
	if err != nil {
		return err
	}
	fd := field(m, name)
	dst := m.NewField(fd)
	if err := proto.Unmarshal(b, dst.Message().Interface()); err != nil {
		return fmt.Errorf("field %s: %w", name, err)
	}
	m.Set(fd, dst)
	return nil
}

// EvaluateRequest is the Go form of expreval.v1.EvaluateRequest.
type EvaluateRequest struct {
	Expression string
	Variables  *structpb.Struct
	Backend    string
}

// EvaluateResponse is the Go form of expreval.v1.EvaluateResponse. At most
// one of Result, ErrorCode, Unknowns and Diagnostics is set.
type EvaluateResponse struct {
	ID          string
	Result      *structpb.Value
	ErrorCode   string
	Error       string
	Unknowns    []string
	Diagnostics []string
}

type DisassembleRequest struct {
	Expression string
	Backend    string
}

type DisassembleResponse struct {
	ID          string
	Listing     string
	Diagnostics []string
}

func decodeEvaluateRequest(m *dynamicpb.Message) (*EvaluateRequest, error) {
	req := &EvaluateRequest{
		Expression: getString(m, "expression"),
		Backend:    getString(m, "backend"),
	}
	vars := &structpb.Struct{}
	ok, err := getWellKnown(m, "variables", vars)
	if err != nil {
		return nil, err
	}
	if ok {
		req.Variables = vars
	}
	return req, nil
}

func encodeEvaluateRequest(md protoreflect.MessageDescriptor, req *EvaluateRequest) (*dynamicpb.Message, error) {
	m := dynamicpb.NewMessage(md)
	setString(m, "expression", req.Expression)
	setString(m, "backend", req.Backend)
	if req.Variables != nil {
		if err := setWellKnown(m, "variables", req.Variables); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func decodeEvaluateResponse(m *dynamicpb.Message) (*EvaluateResponse, error) {
	resp := &EvaluateResponse{
		ID:          getString(m, "id"),
		ErrorCode:   getString(m, "error_code"),
		Error:       getString(m, "error"),
		Unknowns:    getStrings(m, "unknowns"),
		Diagnostics: getStrings(m, "diagnostics"),
	}
	result := &structpb.Value{}
	ok, err := getWellKnown(m, "result", result)
	if err != nil {
		return nil, err
	}
	if ok {
		resp.Result = result
	}
	return resp, nil
}

func encodeEvaluateResponse(md protoreflect.MessageDescriptor, resp *EvaluateResponse) (*dynamicpb.Message, error) {
	m := dynamicpb.NewMessage(md)
	setString(m, "id", resp.ID)
	setString(m, "error_code", resp.ErrorCode)
	setString(m, "error", resp.Error)
	setStrings(m, "unknowns", resp.Unknowns)
	setStrings(m, "diagnostics", resp.Diagnostics)
	if resp.Result != nil {
		if err := setWellKnown(m, "result", resp.Result); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func decodeDisassembleRequest(m *dynamicpb.Message) *DisassembleRequest {
	return &DisassembleRequest{
		Expression: getString(m, "expression"),
		Backend:    getString(m, "backend"),
	}
}

func encodeDisassembleRequest(md protoreflect.MessageDescriptor, req *DisassembleRequest) *dynamicpb.Message {
	m := dynamicpb.NewMessage(md)
	setString(m, "expression", req.Expression)
	setString(m, "backend", req.Backend)
	return m
}

func decodeDisassembleResponse(m *dynamicpb.Message) *DisassembleResponse {
	return &DisassembleResponse{
		ID:          getString(m, "id"),
		Listing:     getString(m, "listing"),
		Diagnostics: getStrings(m, "diagnostics"),
	}
}

func encodeDisassembleResponse(md protoreflect.MessageDescriptor, resp *DisassembleResponse) *dynamicpb.Message {
	m := dynamicpb.NewMessage(md)
	setString(m, "id", resp.ID)
	setString(m, "listing", resp.Listing)
	setStrings(m, "diagnostics", resp.Diagnostics)
	return m
}
