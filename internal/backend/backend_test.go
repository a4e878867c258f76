package backend

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/go-quicktest/qt"
	"golang.org/x/tools/txtar"

	"github.com/funvibe/expreval/internal/activation"
	"github.com/funvibe/expreval/internal/attribute"
	"github.com/funvibe/expreval/internal/eval"
	"github.com/funvibe/expreval/internal/lexer"
	"github.com/funvibe/expreval/internal/parser"
	"github.com/funvibe/expreval/internal/pipeline"
	"github.com/funvibe/expreval/internal/values"
)

// corpusCase is one expression of a testdata archive. Its files share the
// directory prefix name/:
//
//	expr       the expression
//	want       the inspected result; error(code) matches any error with code
//	vars.yaml  variables
//	unknown    unknown patterns, one per line
//	missing    missing-attribute patterns, one per line
//	options    flags: exhaustive, max_iterations=N
type corpusCase struct {
	name  string
	files map[string]string
}

func (c *corpusCase) file(name string) string { return strings.TrimSpace(c.files[name]) }

func (c *corpusCase) lines(name string) []string {
	var out []string
	for _, l := range strings.Split(c.file(name), "\n") {
		if l = strings.TrimSpace(l); l != "" {
			out = append(out, l)
		}
	}
	return out
}

func (c *corpusCase) options(t *testing.T) eval.Options {
	t.Helper()
	opts := eval.DefaultOptions()
	var err error
	if unknown := c.lines("unknown"); len(unknown) > 0 {
		opts.EnableUnknowns = true
		opts.UnknownPatterns, err = attribute.ParsePatterns(unknown)
		qt.Assert(t, qt.IsNil(err))
	}
	if missing := c.lines("missing"); len(missing) > 0 {
		opts.EnableMissingAttributeErrors = true
		opts.MissingAttributePatterns, err = attribute.ParsePatterns(missing)
		qt.Assert(t, qt.IsNil(err))
	}
	for _, flag := range c.lines("options") {
		switch {
		case flag == "exhaustive":
			opts.ShortCircuiting = false
		case strings.HasPrefix(flag, "max_iterations="):
			opts.ComprehensionMaxIterations, err = strconv.Atoi(strings.TrimPrefix(flag, "max_iterations="))
			qt.Assert(t, qt.IsNil(err))
		default:
			t.Fatalf("unknown option %q", flag)
		}
	}
	return opts
}

func readCorpus(t *testing.T, path string) []*corpusCase {
	t.Helper()
	ar, err := txtar.ParseFile(path)
	qt.Assert(t, qt.IsNil(err))
	byName := map[string]*corpusCase{}
	var order []string
	for _, f := range ar.Files {
		name, part, ok := strings.Cut(f.Name, "/")
		qt.Assert(t, qt.IsTrue(ok), qt.Commentf("%s: file %s has no case prefix", path, f.Name))
		c, seen := byName[name]
		if !seen {
			c = &corpusCase{name: name, files: map[string]string{}}
			byName[name] = c
			order = append(order, name)
		}
		c.files[part] = string(f.Data)
	}
	out := make([]*corpusCase, len(order))
	for i, name := range order {
		out[i] = byName[name]
	}
	return out
}

func matches(got values.Value, want string) bool {
	if code, ok := strings.CutPrefix(want, "error("); ok && strings.HasSuffix(code, ")") {
		e, isErr := got.(*values.Error)
		return isErr && string(e.Code) == strings.TrimSuffix(code, ")")
	}
	return got.Inspect() == want
}

func runCase(t *testing.T, b Backend, c *corpusCase) values.Value {
	t.Helper()
	act := activation.Empty()
	if vars := c.file("vars.yaml"); vars != "" {
		m, err := activation.FromYAML([]byte(vars))
		qt.Assert(t, qt.IsNil(err))
		act = m
	}
	exec := NewExecutionProcessor(b, act)
	exec.Context = context.Background()
	pc := pipeline.New(&lexer.LexerProcessor{}, &parser.ParserProcessor{}, exec).
		Run(pipeline.NewPipelineContext(c.file("expr")))
	qt.Assert(t, qt.IsNil(pc.Err()), qt.Commentf("%s backend", b.Name()))
	return pc.Result
}

// TestCorpus runs every archive under testdata through all backends. Each
// backend must produce the recorded result.
func TestCorpus(t *testing.T) {
	paths, err := filepath.Glob(filepath.Join("testdata", "*.txtar"))
	qt.Assert(t, qt.IsNil(err))
	qt.Assert(t, qt.Not(qt.HasLen(paths, 0)))
	sort.Strings(paths)
	for _, path := range paths {
		for _, c := range readCorpus(t, path) {
			t.Run(strings.TrimSuffix(filepath.Base(path), ".txtar")+"/"+c.name, func(t *testing.T) {
				want := c.file("want")
				opts := c.options(t)
				for _, name := range Names() {
					b, err := New(name, Config{Options: opts})
					qt.Assert(t, qt.IsNil(err))
					got := runCase(t, b, c)
					qt.Check(t, qt.IsTrue(matches(got, want)),
						qt.Commentf("%s backend: %s = %s, want %s", name, c.file("expr"), got.Inspect(), want))
				}
			})
		}
	}
}

func TestNew(t *testing.T) {
	for _, name := range Names() {
		b, err := New(name, Config{})
		qt.Assert(t, qt.IsNil(err))
		qt.Check(t, qt.Equals(b.Name(), name))
		qt.Check(t, qt.Equals(b.Planner().Mode().String(), name))
	}
	_, err := New("vm", Config{})
	qt.Check(t, qt.ErrorMatches(err, `"vm": unknown backend mode`))
}

func TestPlanErrorsBecomeDiagnostics(t *testing.T) {
	exec := NewExecutionProcessor(NewStep(Config{}), nil)
	pc := pipeline.New(&lexer.LexerProcessor{}, &parser.ParserProcessor{}, exec).
		Run(pipeline.NewPipelineContext("nosuch(1)"))
	qt.Assert(t, qt.HasLen(pc.Errors, 1))
	qt.Check(t, qt.Equals(string(pc.Errors[0].Code), "C004"))
	qt.Check(t, qt.IsNil(pc.Result))
}

func TestCancelledContextIsDiagnostic(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	exec := NewExecutionProcessor(NewDirect(Config{Options: eval.DefaultOptions()}), nil)
	exec.Context = ctx
	pc := pipeline.New(&lexer.LexerProcessor{}, &parser.ParserProcessor{}, exec).
		Run(pipeline.NewPipelineContext("[1, 2, 3].map(x, x)"))
	qt.Assert(t, qt.HasLen(pc.Errors, 1))
	qt.Check(t, qt.Equals(string(pc.Errors[0].Code), "R001"))
}

// TestAccumulatorIsNotAddressable evaluates a map whose body names the
// reserved accumulator spelling a user could write. The body must see an
// undeclared variable, not the list being built, and must finish.
func TestAccumulatorIsNotAddressable(t *testing.T) {
	for _, name := range Names() {
		t.Run(name, func(t *testing.T) {
			b, err := New(name, Config{Options: eval.DefaultOptions()})
			qt.Assert(t, qt.IsNil(err))
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			exec := NewExecutionProcessor(b, nil)
			exec.Context = ctx

			done := make(chan *pipeline.PipelineContext, 1)
			go func() {
				done <- pipeline.New(&lexer.LexerProcessor{}, &parser.ParserProcessor{}, exec).
					Run(pipeline.NewPipelineContext("[1, 2, 3].map(x, __result__ + __result__)"))
			}()
			select {
			case pc := <-done:
				qt.Assert(t, qt.IsNil(pc.Err()))
				qt.Check(t, qt.IsTrue(matches(pc.Result, "error(not_found)")), qt.Commentf("got %s", pc.Result.Inspect()))
			case <-time.After(5 * time.Second):
				t.Fatal("evaluation did not finish")
			}
		})
	}
}

func TestDisassemble(t *testing.T) {
	pc := pipeline.New(&lexer.LexerProcessor{}, &parser.ParserProcessor{}).
		Run(pipeline.NewPipelineContext("a && b"))
	qt.Assert(t, qt.IsNil(pc.Err()))
	out, err := NewStep(Config{}).Disassemble(pc)
	qt.Assert(t, qt.IsNil(err))
	qt.Check(t, qt.StringContains(out, "== main =="))
	qt.Check(t, qt.StringContains(out, "AND_CHECK +2"))
	qt.Check(t, qt.IsNotNil(pc.Program))
}

func ExampleNew() {
	b, _ := New("hybrid", Config{Options: eval.DefaultOptions()})
	pc := pipeline.New(&lexer.LexerProcessor{}, &parser.ParserProcessor{}).
		Run(pipeline.NewPipelineContext("[1, 2, 3].map(x, x * n)"))
	v, err := b.Run(context.Background(), pc, activation.NewMap(map[string]interface{}{"n": 10}))
	fmt.Println(v.Inspect(), err)
	// Output: [10, 20, 30] <nil>
}
