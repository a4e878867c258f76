package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/structpb"
	"gopkg.in/yaml.v3"

	"github.com/funvibe/expreval/internal/activation"
	"github.com/funvibe/expreval/internal/backend"
	"github.com/funvibe/expreval/internal/lexer"
	"github.com/funvibe/expreval/internal/parser"
	"github.com/funvibe/expreval/internal/pipeline"
	"github.com/funvibe/expreval/internal/server"
	"github.com/funvibe/expreval/internal/values"
)

func newEvalCmd(c *Command) *cobra.Command {
	var (
		varsFile string
		remote   string
		timeout  time.Duration
	)
	cmd := &cobra.Command{
		Use:   "eval [flags] EXPR",
		Short: "evaluate an expression and print its value",
		Long: `eval evaluates one expression and prints the result.

Variables come from the configuration file, then from --vars, a YAML
mapping of names to values. With --remote the expression is sent to an
expreval server instead.

The exit status is 1 when the expression does not compile or evaluates
to an error value.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if timeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, timeout)
				defer cancel()
			}
			if remote != "" {
				return c.evalRemote(ctx, remote, args[0], varsFile)
			}
			return c.evalLocal(ctx, args[0], varsFile)
		},
	}
	cmd.Flags().StringVar(&varsFile, "vars", "", "YAML file of variables")
	cmd.Flags().StringVar(&remote, "remote", "", "address of an expreval server")
	cmd.Flags().DurationVar(&timeout, "timeout", 0, "evaluation deadline (0 means none)")
	return cmd
}

// evaluate runs src through the front end and b.
func evaluate(ctx context.Context, b backend.Backend, act activation.Activation, src string) *pipeline.PipelineContext {
	return pipeline.New(
		&lexer.LexerProcessor{},
		&parser.ParserProcessor{},
		&backend.ExecutionProcessor{Backend: b, Activation: act, Context: ctx},
	).Run(pipeline.NewPipelineContext(src))
}

func (c *Command) evalLocal(ctx context.Context, src, varsFile string) error {
	b, err := c.newBackend()
	if err != nil {
		return err
	}
	act, closeFn, err := c.activation(ctx, varsFile)
	if err != nil {
		return err
	}
	defer closeFn()

	start := time.Now()
	pc := evaluate(ctx, b, act, src)
	c.logger.Debug("evaluated",
		slog.String("backend", b.Name()),
		slog.Duration("duration", time.Since(start)),
		slog.Int("diagnostics", len(pc.Errors)))

	p := newPrinter(c.OutOrStdout())
	if len(pc.Errors) > 0 {
		newPrinter(c.ErrOrStderr()).diagnostics(pc.Errors)
		return errReported
	}
	p.value(pc.Result)
	if values.IsError(pc.Result) {
		return errReported
	}
	return nil
}

func (c *Command) evalRemote(ctx context.Context, addr, src, varsFile string) error {
	req := &server.EvaluateRequest{Expression: src, Backend: c.backend}
	if varsFile != "" {
		vars, err := readStruct(varsFile)
		if err != nil {
			return err
		}
		req.Variables = vars
	}

	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return err
	}
	defer conn.Close()
	client, err := server.NewClient(conn)
	if err != nil {
		return err
	}
	resp, err := client.Evaluate(ctx, req)
	if err != nil {
		return err
	}
	c.logger.Debug("remote evaluate", slog.String("addr", addr), slog.String("id", resp.ID))

	p := newPrinter(c.OutOrStdout())
	switch {
	case len(resp.Diagnostics) > 0:
		ep := newPrinter(c.ErrOrStderr())
		for _, d := range resp.Diagnostics {
			fmt.Fprintln(ep.w, ep.paint(colorRed, d))
		}
		return errReported
	case resp.ErrorCode != "":
		p.value(values.NewError(values.ErrorCode(resp.ErrorCode), "%s", resp.Error))
		return errReported
	case len(resp.Unknowns) > 0:
		fmt.Fprintln(p.w, p.paint(colorYellow, "unknown{"+strings.Join(resp.Unknowns, ", ")+"}"))
	default:
		p.value(values.FromStructpb(resp.Result))
	}
	return nil
}

// readStruct reads a YAML mapping as a google.protobuf.Struct.
func readStruct(path string) (*structpb.Struct, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading variables: %w", err)
	}
	var vars map[string]interface{}
	if err := yaml.Unmarshal(data, &vars); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	s, err := structpb.NewStruct(vars)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}
