// Package expreval embeds the expression evaluator in Go programs.
//
//	env, err := expreval.NewEnv(expreval.WithBackend("hybrid"))
//	prog, err := env.Compile("items.filter(i, i.price > limit).map(i, i.name)")
//	v, err := prog.Eval(ctx, expreval.Vars(map[string]interface{}{...}))
//
// A compiled Program is immutable and may be evaluated concurrently.
package expreval

import (
	"context"
	"fmt"
	"reflect"
	"strings"

	"github.com/funvibe/expreval/internal/activation"
	"github.com/funvibe/expreval/internal/attribute"
	"github.com/funvibe/expreval/internal/backend"
	"github.com/funvibe/expreval/internal/config"
	"github.com/funvibe/expreval/internal/diagnostics"
	"github.com/funvibe/expreval/internal/eval"
	"github.com/funvibe/expreval/internal/functions"
	"github.com/funvibe/expreval/internal/lexer"
	"github.com/funvibe/expreval/internal/parser"
	"github.com/funvibe/expreval/internal/pipeline"
	"github.com/funvibe/expreval/internal/planner"
	"github.com/funvibe/expreval/internal/protoreg"
	"github.com/funvibe/expreval/internal/values"
)

// Value is the result of an evaluation. Error and unknown results are
// values too; see AsError and AsUnknown.
type Value = values.Value

// Activation supplies variables to an evaluation.
type Activation = activation.Activation

// Vars binds Go values by name.
func Vars(vars map[string]interface{}) Activation {
	m := NewMarshaller()
	act := make(activation.Map, len(vars))
	for name, v := range vars {
		act[name] = m.ToValue(v)
	}
	return act
}

// Env holds what compiled programs share: functions, message types,
// backend and evaluation options.
type Env struct {
	backendName string
	options     eval.Options
	functions   *functions.Registry
	types       *protoreg.Registry
	marshaller  *Marshaller
	backend     backend.Backend
}

// Option configures an Env.
type Option func(*Env) error

func NewEnv(opts ...Option) (*Env, error) {
	e := &Env{
		backendName: planner.StepMode.String(),
		options:     eval.DefaultOptions(),
		functions:   functions.Standard(),
		marshaller:  NewMarshaller(),
	}
	for _, opt := range opts {
		if err := opt(e); err != nil {
			return nil, err
		}
	}
	cfg := backend.Config{Functions: e.functions, Options: e.options}
	if e.types != nil {
		cfg.Types = e.types
	}
	b, err := backend.New(e.backendName, cfg)
	if err != nil {
		return nil, err
	}
	e.backend = b
	return e, nil
}

// WithBackend selects step, direct or hybrid execution.
func WithBackend(name string) Option {
	return func(e *Env) error {
		if _, err := planner.ParseMode(name); err != nil {
			return err
		}
		e.backendName = name
		return nil
	}
}

// WithUnknownPatterns makes matching attributes evaluate to unknowns.
func WithUnknownPatterns(patterns ...string) Option {
	return func(e *Env) error {
		ps, err := attribute.ParsePatterns(patterns)
		if err != nil {
			return err
		}
		e.options.EnableUnknowns = true
		e.options.UnknownPatterns = append(e.options.UnknownPatterns, ps...)
		return nil
	}
}

// WithMissingAttributePatterns makes matching attributes evaluate to
// missing_attribute errors.
func WithMissingAttributePatterns(patterns ...string) Option {
	return func(e *Env) error {
		ps, err := attribute.ParsePatterns(patterns)
		if err != nil {
			return err
		}
		e.options.EnableMissingAttributeErrors = true
		e.options.MissingAttributePatterns = append(e.options.MissingAttributePatterns, ps...)
		return nil
	}
}

// WithExhaustiveEvaluation evaluates both operands of && and || and every
// comprehension iteration.
func WithExhaustiveEvaluation() Option {
	return func(e *Env) error {
		e.options.ShortCircuiting = false
		return nil
	}
}

// WithMaxIterations bounds the comprehension iterations of one evaluation.
func WithMaxIterations(n int) Option {
	return func(e *Env) error {
		if n < 0 {
			return fmt.Errorf("max iterations must not be negative")
		}
		e.options.ComprehensionMaxIterations = n
		return nil
	}
}

func (e *Env) registry() *protoreg.Registry {
	if e.types == nil {
		e.types = protoreg.New()
	}
	return e.types
}

// WithProtoFiles makes the messages and enums of .proto files available.
func WithProtoFiles(importPaths []string, files ...string) Option {
	return func(e *Env) error {
		return e.registry().Load(importPaths, files...)
	}
}

// WithProtoSource is WithProtoFiles for a file held in memory.
func WithProtoSource(name, source string) Option {
	return func(e *Env) error {
		return e.registry().LoadSource(name, source)
	}
}

// WithConfigFile applies the backend, options and proto files of an
// expreval.yaml file.
func WithConfigFile(path string) Option {
	return func(e *Env) error {
		cfg, err := config.Load(path)
		if err != nil {
			return err
		}
		opts, err := cfg.EvalOptions()
		if err != nil {
			return err
		}
		reg, err := cfg.Registry()
		if err != nil {
			return err
		}
		e.backendName = cfg.Backend
		e.options = opts
		if reg != nil {
			e.types = reg
		}
		return nil
	}
}

// WithFunction binds a Go function as a global function. Its parameter
// types select the argument kinds it accepts; a trailing error result
// becomes an invalid_argument error value.
func WithFunction(name string, fn interface{}) Option {
	return func(e *Env) error {
		return e.bind(name, fn, false)
	}
}

// WithMethod binds a Go function as a receiver-style function: the first
// parameter is the receiver, as in recv.name(args).
func WithMethod(name string, fn interface{}) Option {
	return func(e *Env) error {
		return e.bind(name, fn, true)
	}
}

func (e *Env) bind(name string, fn interface{}, receiverStyle bool) error {
	fv := reflect.ValueOf(fn)
	if fv.Kind() != reflect.Func {
		return fmt.Errorf("bind %s: %T is not a function", name, fn)
	}
	ft := fv.Type()
	if ft.IsVariadic() {
		return fmt.Errorf("bind %s: variadic functions are not supported", name)
	}
	if receiverStyle && ft.NumIn() == 0 {
		return fmt.Errorf("bind %s: a method needs a receiver parameter", name)
	}
	switch {
	case ft.NumOut() == 1:
	case ft.NumOut() == 2 && ft.Out(1) == errorType:
	default:
		return fmt.Errorf("bind %s: want one result, optionally followed by an error", name)
	}
	kinds := make([]values.Kind, ft.NumIn())
	for i := range kinds {
		k, err := kindOf(ft.In(i))
		if err != nil {
			return fmt.Errorf("bind %s: parameter %d: %w", name, i, err)
		}
		kinds[i] = k
	}
	return e.functions.Register(&functions.Overload{
		ID:            fmt.Sprintf("%s_host_%d", name, len(kinds)),
		Name:          name,
		ReceiverStyle: receiverStyle,
		Args:          kinds,
		Strict:        true,
		Impl:          e.hostCall(name, fv),
	})
}

// hostCall converts arguments to the parameter types, calls fn and
// converts its result back.
func (e *Env) hostCall(name string, fn reflect.Value) functions.Impl {
	ft := fn.Type()
	return func(args ...values.Value) values.Value {
		goArgs := make([]reflect.Value, len(args))
		for i, arg := range args {
			v, err := e.marshaller.FromValue(arg, ft.In(i))
			if err != nil {
				return values.NewError(values.ErrTypeConversion, "%s: argument %d: %v", name, i, err)
			}
			goArgs[i] = v
		}
		results := fn.Call(goArgs)
		if len(results) == 2 && !results[1].IsNil() {
			return values.NewError(values.ErrInvalidArgument, "%s: %v", name, results[1].Interface())
		}
		return e.marshaller.ToValue(results[0].Interface())
	}
}

// Compile parses and plans expr. Parse and plan errors are returned
// together as one error.
func (e *Env) Compile(expr string) (*Program, error) {
	pc := pipeline.New(
		&lexer.LexerProcessor{},
		&parser.ParserProcessor{},
		&planner.PlannerProcessor{Planner: e.backend.Planner()},
	).Run(pipeline.NewPipelineContext(expr))
	if err := pc.Err(); err != nil {
		return nil, &CompileError{Source: expr, Diagnostics: pc.Errors}
	}
	return &Program{env: e, source: expr, program: pc.Program}, nil
}

// CompileError lists the diagnostics of a failed Compile.
type CompileError struct {
	Source      string
	Diagnostics []*diagnostics.Error
}

func (e *CompileError) Error() string {
	msgs := make([]string, len(e.Diagnostics))
	for i, d := range e.Diagnostics {
		msgs[i] = d.Error()
	}
	return "compile " + e.Source + ": " + strings.Join(msgs, "; ")
}

// Program is a compiled expression.
type Program struct {
	env     *Env
	source  string
	program *eval.Program
}

func (p *Program) Source() string { return p.source }

// Eval runs the program. Evaluation failures come back as error values;
// a non-nil error means ctx ended or the program is malformed.
func (p *Program) Eval(ctx context.Context, act Activation) (Value, error) {
	pc := &pipeline.PipelineContext{SourceCode: p.source, Program: p.program}
	return p.env.backend.Run(ctx, pc, act)
}

// EvalNative runs the program over Go variables and returns the result as
// Go data. Error and unknown results are returned as *EvalError and
// *UnknownError.
func (p *Program) EvalNative(ctx context.Context, vars map[string]interface{}) (interface{}, error) {
	v, err := p.Eval(ctx, Vars(vars))
	if err != nil {
		return nil, err
	}
	if e, ok := AsError(v); ok {
		return nil, e
	}
	if u, ok := AsUnknown(v); ok {
		return nil, u
	}
	return values.ToNative(v), nil
}

// Disassemble lists the steps of the program.
func (p *Program) Disassemble() string {
	return eval.Disassemble(p.program, "main")
}

// EvalError is an error value produced by an evaluation.
type EvalError struct {
	Code    string
	Message string
}

func (e *EvalError) Error() string { return e.Code + ": " + e.Message }

// UnknownError reports that the result depends on unknown attributes.
type UnknownError struct {
	Attributes []string
}

func (e *UnknownError) Error() string {
	return "result depends on unknown attributes: " + strings.Join(e.Attributes, ", ")
}

// AsError reports whether v is an error value.
func AsError(v Value) (*EvalError, bool) {
	e, ok := v.(*values.Error)
	if !ok {
		return nil, false
	}
	return &EvalError{Code: string(e.Code), Message: e.Message}, true
}

// AsUnknown reports whether v is an unknown value.
func AsUnknown(v Value) (*UnknownError, bool) {
	u, ok := v.(*values.Unknown)
	if !ok {
		return nil, false
	}
	attrs := u.Attributes()
	out := &UnknownError{Attributes: make([]string, len(attrs))}
	for i, a := range attrs {
		out.Attributes[i] = a.String()
	}
	return out, true
}
