package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"

	"github.com/funvibe/expreval/internal/diagnostics"
	"github.com/funvibe/expreval/internal/values"
)

const (
	colorRed    = 31
	colorYellow = 33
	colorCyan   = 36
)

// printer writes results, coloured when w is a terminal.
type printer struct {
	w     io.Writer
	color bool
}

func newPrinter(w io.Writer) *printer {
	return &printer{w: w, color: colorEnabled(w)}
}

func colorEnabled(w io.Writer) bool {
	// NO_COLOR convention: https://no-color.org/
	if _, ok := os.LookupEnv("NO_COLOR"); ok {
		return false
	}
	if os.Getenv("TERM") == "dumb" {
		return false
	}
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

func (p *printer) paint(code int, s string) string {
	if !p.color {
		return s
	}
	return fmt.Sprintf("\033[%dm%s\033[39m", code, s)
}

// value prints v; errors in red, unknowns in yellow.
func (p *printer) value(v values.Value) {
	switch v.Kind() {
	case values.ErrorKind:
		fmt.Fprintln(p.w, p.paint(colorRed, v.Inspect()))
	case values.UnknownKind:
		fmt.Fprintln(p.w, p.paint(colorYellow, v.Inspect()))
	default:
		fmt.Fprintln(p.w, v.Inspect())
	}
}

func (p *printer) diagnostics(errs []*diagnostics.Error) {
	for _, e := range errs {
		fmt.Fprintln(p.w, p.paint(colorRed, e.Error()))
	}
}

func (p *printer) listing(s string) {
	if !p.color {
		fmt.Fprint(p.w, s)
		return
	}
	for _, line := range strings.SplitAfter(s, "\n") {
		if strings.HasPrefix(line, "==") {
			line = p.paint(colorCyan, strings.TrimSuffix(line, "\n")) + "\n"
		}
		fmt.Fprint(p.w, line)
	}
}
