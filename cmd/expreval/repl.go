package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/peterh/liner"
	"github.com/spf13/cobra"

	"github.com/funvibe/expreval/internal/activation"
	"github.com/funvibe/expreval/internal/backend"
	"github.com/funvibe/expreval/internal/eval"
	"github.com/funvibe/expreval/internal/lexer"
	"github.com/funvibe/expreval/internal/parser"
	"github.com/funvibe/expreval/internal/pipeline"
	"github.com/funvibe/expreval/internal/planner"
	"github.com/funvibe/expreval/internal/prettyprinter"
	"github.com/funvibe/expreval/internal/values"
)

const (
	historyFile = ".expreval_history"
	prompt      = "> "
	replHelp    = `:let NAME = EXPR   bind the value of EXPR to NAME
:vars              list names bound with :let
:parse EXPR        show EXPR as parsed, with macros expanded
:disasm EXPR       show the steps of EXPR
:backend [NAME]    show or switch the backend
:quit              leave`
)

func newReplCmd(c *Command) *cobra.Command {
	var varsFile string
	cmd := &cobra.Command{
		Use:   "repl",
		Short: "evaluate expressions interactively",
		Long: `repl reads one expression per line and prints its value.

Lines starting with ':' are commands:

` + replHelp,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			act, closeFn, err := c.activation(ctx, varsFile)
			if err != nil {
				return err
			}
			defer closeFn()
			r, err := c.newRepl(act)
			if err != nil {
				return err
			}

			ln := liner.NewLiner()
			defer ln.Close()
			ln.SetCtrlCAborts(true)
			histPath := ""
			if home, err := os.UserHomeDir(); err == nil {
				histPath = filepath.Join(home, historyFile)
				if f, err := os.Open(histPath); err == nil {
					_, _ = ln.ReadHistory(f)
					f.Close()
				}
			}
			defer func() {
				if histPath == "" {
					return
				}
				if f, err := os.Create(histPath); err == nil {
					_, _ = ln.WriteHistory(f)
					f.Close()
				}
			}()
			return r.run(ctx, &linerReader{ln})
		},
	}
	cmd.Flags().StringVar(&varsFile, "vars", "", "YAML file of variables")
	return cmd
}

// lineReader is the part of liner.State the loop uses.
type lineReader interface {
	Prompt(p string) (string, error)
	AppendHistory(item string)
}

type linerReader struct{ *liner.State }

// repl holds the session state: variables bound with :let shadow the
// configured activation.
type repl struct {
	config   backend.Config
	backends map[string]backend.Backend
	current  backend.Backend
	base     activation.Activation
	bound    activation.Map
	out      *printer
}

func (c *Command) newRepl(base activation.Activation) (*repl, error) {
	bc, err := c.backendConfig()
	if err != nil {
		return nil, err
	}
	if base == nil {
		base = activation.Empty()
	}
	r := &repl{
		config:   bc,
		backends: make(map[string]backend.Backend),
		base:     base,
		bound:    make(activation.Map),
		out:      newPrinter(c.OutOrStdout()),
	}
	if err := r.switchBackend(c.cfg.Backend); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *repl) switchBackend(name string) error {
	b, ok := r.backends[name]
	if !ok {
		var err error
		if b, err = backend.New(name, r.config); err != nil {
			return err
		}
		r.backends[name] = b
	}
	r.current = b
	return nil
}

func (r *repl) activation() activation.Activation {
	return activation.Hierarchical(r.base, r.bound)
}

func (r *repl) run(ctx context.Context, in lineReader) error {
	for {
		line, err := in.Prompt(prompt)
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, liner.ErrPromptAborted) {
				fmt.Fprintln(r.out.w)
				return nil
			}
			return err
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		in.AppendHistory(line)
		if line == ":quit" || line == ":q" {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		r.handle(ctx, line)
	}
}

func (r *repl) handle(ctx context.Context, line string) {
	if !strings.HasPrefix(line, ":") {
		if v, ok := r.eval(ctx, line); ok {
			r.out.value(v)
		}
		return
	}
	cmd, arg, _ := strings.Cut(line, " ")
	arg = strings.TrimSpace(arg)
	switch cmd {
	case ":let":
		r.let(ctx, arg)
	case ":vars":
		names := make([]string, 0, len(r.bound))
		for name := range r.bound {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			fmt.Fprintf(r.out.w, "%s = %s\n", name, r.bound[name].Inspect())
		}
	case ":parse":
		pc := pipeline.New(&lexer.LexerProcessor{}, &parser.ParserProcessor{}).Run(pipeline.NewPipelineContext(arg))
		if len(pc.Errors) > 0 {
			r.out.diagnostics(pc.Errors)
			return
		}
		fmt.Fprintln(r.out.w, prettyprinter.Print(pc.AstRoot))
	case ":disasm":
		pc := pipeline.New(
			&lexer.LexerProcessor{},
			&parser.ParserProcessor{},
			&planner.PlannerProcessor{Planner: r.current.Planner()},
		).Run(pipeline.NewPipelineContext(arg))
		if len(pc.Errors) > 0 {
			r.out.diagnostics(pc.Errors)
			return
		}
		r.out.listing(eval.Disassemble(pc.Program, "main"))
	case ":backend":
		if arg != "" {
			if err := r.switchBackend(arg); err != nil {
				fmt.Fprintln(r.out.w, r.out.paint(colorRed, err.Error()))
				return
			}
		}
		fmt.Fprintln(r.out.w, r.current.Name())
	case ":help":
		fmt.Fprintln(r.out.w, replHelp)
	default:
		fmt.Fprintf(r.out.w, "unknown command %s; :help lists commands\n", cmd)
	}
}

func (r *repl) eval(ctx context.Context, src string) (values.Value, bool) {
	pc := evaluate(ctx, r.current, r.activation(), src)
	if len(pc.Errors) > 0 {
		r.out.diagnostics(pc.Errors)
		return nil, false
	}
	return pc.Result, true
}

func (r *repl) let(ctx context.Context, arg string) {
	name, src, ok := strings.Cut(arg, "=")
	name = strings.TrimSpace(name)
	if !ok || !isIdent(name) {
		fmt.Fprintln(r.out.w, r.out.paint(colorRed, "usage: :let NAME = EXPR"))
		return
	}
	v, ok := r.eval(ctx, strings.TrimSpace(src))
	if !ok {
		return
	}
	if values.IsErrorOrUnknown(v) {
		r.out.value(v)
		return
	}
	r.bound[name] = v
	fmt.Fprintf(r.out.w, "%s = %s\n", name, v.Inspect())
}

func isIdent(s string) bool {
	if s == "" {
		return false
	}
	for i, ch := range s {
		switch {
		case ch == '_', 'a' <= ch && ch <= 'z', 'A' <= ch && ch <= 'Z':
		case i > 0 && '0' <= ch && ch <= '9':
		default:
			return false
		}
	}
	return true
}
