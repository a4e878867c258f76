// Command expreval evaluates expressions from the command line, in an
// interactive loop, or as a gRPC service.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/funvibe/expreval/internal/activation"
	"github.com/funvibe/expreval/internal/backend"
	"github.com/funvibe/expreval/internal/config"
	"github.com/funvibe/expreval/internal/functions"
)

func main() {
	os.Exit(Main(context.Background(), os.Args[1:]))
}

// Main runs the command line and returns the process exit code.
func Main(ctx context.Context, args []string) int {
	cmd := newRootCmd()
	cmd.SetArgs(args)
	if err := cmd.ExecuteContext(ctx); err != nil {
		if err != errReported {
			fmt.Fprintln(cmd.ErrOrStderr(), "expreval:", err)
		}
		return 1
	}
	return 0
}

// errReported is returned once the failure has already been printed.
var errReported = errors.New("terminating because of errors")

// Command carries the global flags and the state derived from them.
type Command struct {
	*cobra.Command

	configPath string
	logLevel   string
	backend    string

	cfg    *config.Config
	logger *slog.Logger
}

func newRootCmd() *cobra.Command {
	c := &Command{}
	cmd := &cobra.Command{
		Use:   "expreval",
		Short: "expreval evaluates CEL-style expressions.",
		Long: `expreval evaluates CEL-style expressions against variables from YAML,
SQLite or the command line.

Settings are read from expreval.yaml, searched for in the current directory
and its parents, unless --config names a file.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			c.Command = cmd
			return c.setup()
		},
	}
	addGlobalFlags(cmd.PersistentFlags(), c)

	for _, sub := range []*cobra.Command{
		newEvalCmd(c),
		newReplCmd(c),
		newDisasmCmd(c),
		newServeCmd(c),
	} {
		cmd.AddCommand(sub)
	}
	return cmd
}

func addGlobalFlags(f *pflag.FlagSet, c *Command) {
	f.StringVar(&c.configPath, "config", "", "configuration file (default: nearest expreval.yaml)")
	f.StringVar(&c.logLevel, "log-level", "warn", "log level: debug, info, warn or error")
	f.StringVarP(&c.backend, "backend", "b", "", "execution backend: "+strings.Join(backend.Names(), ", "))
}

func (c *Command) setup() error {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.logLevel)); err != nil {
		return fmt.Errorf("--log-level: %w", err)
	}
	c.logger = slog.New(slog.NewTextHandler(c.ErrOrStderr(), &slog.HandlerOptions{Level: level}))

	path := c.configPath
	if path == "" {
		found, err := config.FindConfig(".")
		if err != nil {
			return err
		}
		path = found
	}
	if path == "" {
		c.cfg = config.Default()
	} else {
		cfg, err := config.Load(path)
		if err != nil {
			return err
		}
		c.cfg = cfg
		c.logger.Debug("loaded config", slog.String("path", path))
	}
	if c.backend != "" {
		c.cfg.Backend = c.backend
	}
	return nil
}

// backendConfig assembles what the backends need from the configuration.
func (c *Command) backendConfig() (backend.Config, error) {
	opts, err := c.cfg.EvalOptions()
	if err != nil {
		return backend.Config{}, err
	}
	bc := backend.Config{Functions: functions.Standard(), Options: opts}
	reg, err := c.cfg.Registry()
	if err != nil {
		return backend.Config{}, err
	}
	if reg != nil {
		bc.Types = reg
	}
	return bc, nil
}

func (c *Command) newBackend() (backend.Backend, error) {
	bc, err := c.backendConfig()
	if err != nil {
		return nil, err
	}
	return backend.New(c.cfg.Backend, bc)
}

// activation returns the configured variables overlaid with those of a
// --vars file.
func (c *Command) activation(ctx context.Context, varsFile string) (activation.Activation, func() error, error) {
	act, closeFn, err := c.cfg.Activation(ctx)
	if err != nil {
		return nil, nil, err
	}
	if varsFile == "" {
		return act, closeFn, nil
	}
	data, err := os.ReadFile(varsFile)
	if err != nil {
		closeFn()
		return nil, nil, fmt.Errorf("reading variables: %w", err)
	}
	vars, err := activation.FromYAML(data)
	if err != nil {
		closeFn()
		return nil, nil, fmt.Errorf("%s: %w", varsFile, err)
	}
	return activation.Hierarchical(act, vars), closeFn, nil
}
