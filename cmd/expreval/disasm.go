package main

import (
	"github.com/spf13/cobra"

	"github.com/funvibe/expreval/internal/lexer"
	"github.com/funvibe/expreval/internal/parser"
	"github.com/funvibe/expreval/internal/pipeline"
	"github.com/funvibe/expreval/internal/planner"
)

func newDisasmCmd(c *Command) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "disasm EXPR",
		Short: "print the steps an expression compiles to",
		Long: `disasm plans an expression for the selected backend and prints the
resulting program. Direct subtrees of a hybrid program show as single
DIRECT steps.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := c.newBackend()
			if err != nil {
				return err
			}
			pc := pipeline.New(
				&lexer.LexerProcessor{},
				&parser.ParserProcessor{},
				&planner.PlannerProcessor{Planner: b.Planner()},
			).Run(pipeline.NewPipelineContext(args[0]))
			if len(pc.Errors) > 0 {
				newPrinter(c.ErrOrStderr()).diagnostics(pc.Errors)
				return errReported
			}
			listing, err := b.Disassemble(pc)
			if err != nil {
				return err
			}
			newPrinter(c.OutOrStdout()).listing(listing)
			return nil
		},
	}
	return cmd
}
