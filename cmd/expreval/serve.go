package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"google.golang.org/grpc"

	"github.com/funvibe/expreval/internal/config"
	"github.com/funvibe/expreval/internal/server"
)

func newServeCmd(c *Command) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "serve the Evaluator gRPC service",
		Long: `serve answers expreval.v1.Evaluator requests on a TCP address.

Every request sees the configured variables; variables sent with a request
shadow them. The server stops gracefully on SIGINT or SIGTERM.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr == "" {
				addr = c.cfg.Server.Addr
			}
			lis, err := net.Listen("tcp", addr)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return c.serve(ctx, lis)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config, "+config.DefaultServerAddr+")")
	return cmd
}

// serve runs the service on lis until ctx is done.
func (c *Command) serve(ctx context.Context, lis net.Listener) error {
	bc, err := c.backendConfig()
	if err != nil {
		return err
	}
	act, closeFn, err := c.cfg.Activation(ctx)
	if err != nil {
		return err
	}
	defer closeFn()

	s, err := server.New(server.Options{
		Backend:    c.cfg.Backend,
		Config:     bc,
		Activation: act,
		Logger:     c.logger,
	})
	if err != nil {
		return err
	}

	done := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			c.logger.Info("shutting down", slog.String("reason", context.Cause(ctx).Error()))
			s.Stop()
		case <-done:
		}
	}()
	defer close(done)

	if err := s.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		return err
	}
	return nil
}
