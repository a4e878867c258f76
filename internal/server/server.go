// Package server exposes expression evaluation as the gRPC service
// expreval.v1.Evaluator. The service is defined by an embedded .proto file
// and served with dynamic messages.
package server

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jhump/protoreflect/desc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/dynamicpb"

	"github.com/funvibe/expreval/internal/activation"
	"github.com/funvibe/expreval/internal/backend"
	"github.com/funvibe/expreval/internal/diagnostics"
	"github.com/funvibe/expreval/internal/eval"
	"github.com/funvibe/expreval/internal/lexer"
	"github.com/funvibe/expreval/internal/parser"
	"github.com/funvibe/expreval/internal/pipeline"
	"github.com/funvibe/expreval/internal/planner"
	"github.com/funvibe/expreval/internal/values"
)

// RequestIDHeader carries the id of a request in the response header.
const RequestIDHeader = "x-request-id"

// maxCachedPrograms bounds the program cache; it is emptied when full.
const maxCachedPrograms = 1024

// Options configures a Server.
type Options struct {
	// Backend is the default backend name. Empty means step.
	Backend string

	// Config is shared by the backends of all requests.
	Config backend.Config

	// Activation supplies variables to every request. Request variables
	// shadow it.
	Activation activation.Activation

	Logger *slog.Logger

	// GRPCOptions are passed to grpc.NewServer.
	GRPCOptions []grpc.ServerOption
}

// Server evaluates expressions for gRPC clients. Requests run
// concurrently, each on its own evaluation frame.
type Server struct {
	backends       map[string]backend.Backend
	defaultBackend string
	act            activation.Activation
	logger         *slog.Logger
	grpc           *grpc.Server

	mu       sync.Mutex
	programs map[string]*eval.Program
}

func New(opts Options) (*Server, error) {
	sd, err := loadService()
	if err != nil {
		return nil, fmt.Errorf("load service: %w", err)
	}
	gd, err := serviceDesc(sd)
	if err != nil {
		return nil, err
	}
	s := &Server{
		backends:       make(map[string]backend.Backend),
		defaultBackend: opts.Backend,
		act:            opts.Activation,
		logger:         opts.Logger,
		programs:       make(map[string]*eval.Program),
	}
	if s.defaultBackend == "" {
		s.defaultBackend = planner.StepMode.String()
	}
	if s.act == nil {
		s.act = activation.Empty()
	}
	if s.logger == nil {
		s.logger = slog.New(slog.DiscardHandler)
	}
	for _, name := range backend.Names() {
		b, err := backend.New(name, opts.Config)
		if err != nil {
			return nil, err
		}
		s.backends[name] = b
	}
	if _, ok := s.backends[s.defaultBackend]; !ok {
		return nil, fmt.Errorf("%q: %w", s.defaultBackend, planner.ErrUnknownMode)
	}
	s.grpc = grpc.NewServer(opts.GRPCOptions...)
	s.grpc.RegisterService(gd, s)
	return s, nil
}

// GRPC returns the underlying server, e.g. to register health checks.
func (s *Server) GRPC() *grpc.Server { return s.grpc }

// Serve accepts connections on lis until Stop is called.
func (s *Server) Serve(lis net.Listener) error {
	s.logger.Info("serving", slog.String("addr", lis.Addr().String()), slog.String("backend", s.defaultBackend))
	return s.grpc.Serve(lis)
}

// ListenAndServe listens on the TCP address addr and serves.
func (s *Server) ListenAndServe(addr string) error {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.Serve(lis)
}

// Stop waits for running requests and stops the server.
func (s *Server) Stop() { s.grpc.GracefulStop() }

func (s *Server) backend(name string) (backend.Backend, error) {
	if name == "" {
		name = s.defaultBackend
	}
	b, ok := s.backends[name]
	if !ok {
		return nil, status.Errorf(codes.InvalidArgument, "unknown backend %q", name)
	}
	return b, nil
}

// compile returns the cached program for expr, planning it on a miss.
// Diagnostics come back as strings with a nil program.
func (s *Server) compile(b backend.Backend, expr string) (*eval.Program, []string) {
	sum := sha256.Sum256([]byte(b.Name() + "\x00" + expr))
	key := hex.EncodeToString(sum[:])
	s.mu.Lock()
	prog, ok := s.programs[key]
	s.mu.Unlock()
	if ok {
		return prog, nil
	}

	pc := pipeline.New(&lexer.LexerProcessor{}, &parser.ParserProcessor{}, &planner.PlannerProcessor{Planner: b.Planner()}).
		Run(pipeline.NewPipelineContext(expr))
	if len(pc.Errors) > 0 {
		return nil, diagnosticStrings(pc.Errors)
	}

	s.mu.Lock()
	if len(s.programs) >= maxCachedPrograms {
		clear(s.programs)
	}
	s.programs[key] = pc.Program
	s.mu.Unlock()
	return pc.Program, nil
}

func diagnosticStrings(errs []*diagnostics.Error) []string {
	out := make([]string, len(errs))
	for i, e := range errs {
		out[i] = e.Error()
	}
	return out
}

// sendRequestID announces id in the response header. It fails when ctx
// is not a server stream, as for in-process calls; the id still reaches
// the caller in the response body.
func (s *Server) sendRequestID(ctx context.Context, id string) {
	if err := grpc.SetHeader(ctx, metadata.Pairs(RequestIDHeader, id)); err != nil {
		s.logger.LogAttrs(ctx, slog.LevelDebug, "request id header not sent", slog.String("id", id), slog.Any("error", err))
	}
}

// Evaluate compiles and runs req.Expression. Error and unknown results
// are part of the response; a non-nil error is a gRPC status.
func (s *Server) Evaluate(ctx context.Context, req *EvaluateRequest) (*EvaluateResponse, error) {
	id := uuid.NewString()
	s.sendRequestID(ctx, id)
	start := time.Now()
	resp, b, err := s.evaluate(ctx, id, req)
	attrs := []slog.Attr{
		slog.String("id", id),
		slog.Duration("duration", time.Since(start)),
	}
	if b != nil {
		attrs = append(attrs, slog.String("backend", b.Name()))
	}
	switch {
	case err != nil:
		s.logger.LogAttrs(ctx, slog.LevelWarn, "evaluate failed", append(attrs, slog.Any("error", err))...)
	case len(resp.Diagnostics) > 0:
		s.logger.LogAttrs(ctx, slog.LevelInfo, "evaluate rejected", append(attrs, slog.Int("diagnostics", len(resp.Diagnostics)))...)
	default:
		s.logger.LogAttrs(ctx, slog.LevelInfo, "evaluate", append(attrs, slog.String("result", resultKind(resp)))...)
	}
	return resp, err
}

func (s *Server) evaluate(ctx context.Context, id string, req *EvaluateRequest) (*EvaluateResponse, backend.Backend, error) {
	b, err := s.backend(req.Backend)
	if err != nil {
		return nil, nil, err
	}
	resp := &EvaluateResponse{ID: id}
	prog, diags := s.compile(b, req.Expression)
	if diags != nil {
		resp.Diagnostics = diags
		return resp, b, nil
	}

	act := s.act
	if fields := req.Variables.GetFields(); len(fields) > 0 {
		vars := make(activation.Map, len(fields))
		for name, v := range fields {
			vars[name] = values.FromStructpb(v)
		}
		act = activation.Hierarchical(act, vars)
	}
	pc := &pipeline.PipelineContext{SourceCode: req.Expression, Program: prog}
	v, err := b.Run(ctx, pc, act)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
			return nil, b, status.FromContextError(ctxErr).Err()
		}
		return nil, b, status.Errorf(codes.Internal, "%v", err)
	}

	switch x := v.(type) {
	case *values.Error:
		resp.ErrorCode = string(x.Code)
		resp.Error = x.Message
	case *values.Unknown:
		for _, a := range x.Attributes() {
			resp.Unknowns = append(resp.Unknowns, a.String())
		}
	default:
		resp.Result, err = values.ToStructpb(v)
		if err != nil {
			return nil, b, status.Errorf(codes.Internal, "encode result: %v", err)
		}
	}
	return resp, b, nil
}

func resultKind(resp *EvaluateResponse) string {
	switch {
	case resp.ErrorCode != "":
		return "error"
	case len(resp.Unknowns) > 0:
		return "unknown"
	}
	return "value"
}

// Disassemble compiles req.Expression and lists its steps.
func (s *Server) Disassemble(ctx context.Context, req *DisassembleRequest) (*DisassembleResponse, error) {
	id := uuid.NewString()
	s.sendRequestID(ctx, id)
	b, err := s.backend(req.Backend)
	if err != nil {
		return nil, err
	}
	resp := &DisassembleResponse{ID: id}
	prog, diags := s.compile(b, req.Expression)
	if diags != nil {
		resp.Diagnostics = diags
	} else {
		resp.Listing = eval.Disassemble(prog, "main")
	}
	s.logger.LogAttrs(ctx, slog.LevelInfo, "disassemble", slog.String("id", id), slog.String("backend", b.Name()))
	return resp, nil
}

func (s *Server) handleEvaluate(ctx context.Context, in *dynamicpb.Message, md *desc.MethodDescriptor) (*dynamicpb.Message, error) {
	req, err := decodeEvaluateRequest(in)
	if err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "%v", err)
	}
	resp, err := s.Evaluate(ctx, req)
	if err != nil {
		return nil, err
	}
	return encodeEvaluateResponse(md.GetOutputType().UnwrapMessage(), resp)
}

func (s *Server) handleDisassemble(ctx context.Context, in *dynamicpb.Message, md *desc.MethodDescriptor) (*dynamicpb.Message, error) {
	resp, err := s.Disassemble(ctx, decodeDisassembleRequest(in))
	if err != nil {
		return nil, err
	}
	return encodeDisassembleResponse(md.GetOutputType().UnwrapMessage(), resp), nil
}
