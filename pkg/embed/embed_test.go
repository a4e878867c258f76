package expreval_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/go-quicktest/qt"

	expreval "github.com/funvibe/expreval/pkg/embed"
)

// User is a Go struct passed in as a variable.
type User struct {
	Name  string
	Score int
	Tags  []string
}

func TestEmbedAPI(t *testing.T) {
	env, err := expreval.NewEnv(
		expreval.WithFunction("twice", func(x int) int { return x * 2 }),
		expreval.WithMethod("greet", func(u map[string]interface{}, greeting string) string {
			return fmt.Sprintf("%s, %s", greeting, u["Name"])
		}),
	)
	qt.Assert(t, qt.IsNil(err))

	prog, err := env.Compile(`[twice(player.Score), player.Name, player.greet('Hello'), 'go' in player.Tags]`)
	qt.Assert(t, qt.IsNil(err))

	user := &User{Name: "Alice", Score: 21, Tags: []string{"go", "cel"}}
	res, err := prog.EvalNative(context.Background(), map[string]interface{}{"player": user})
	qt.Assert(t, qt.IsNil(err))
	qt.Check(t, qt.DeepEquals(res, interface{}([]interface{}{int64(42), "Alice", "Hello, Alice", true})))
}

func TestBackendsAgree(t *testing.T) {
	vars := map[string]interface{}{
		"items": []map[string]interface{}{
			{"name": "pen", "price": 2},
			{"name": "lamp", "price": 40},
		},
		"limit": 10,
	}
	for _, name := range []string{"step", "direct", "hybrid"} {
		env, err := expreval.NewEnv(expreval.WithBackend(name))
		qt.Assert(t, qt.IsNil(err))
		prog, err := env.Compile("cel.bind(cheap, items.filter(i, i.price <= limit), cheap.map(i, i.name))")
		qt.Assert(t, qt.IsNil(err))
		res, err := prog.EvalNative(context.Background(), vars)
		qt.Assert(t, qt.IsNil(err))
		qt.Check(t, qt.DeepEquals(res, interface{}([]interface{}{"pen"})), qt.Commentf("%s backend", name))
	}
}

func TestErrorAndUnknownResults(t *testing.T) {
	env, err := expreval.NewEnv(expreval.WithUnknownPatterns("request.auth"))
	qt.Assert(t, qt.IsNil(err))

	prog, err := env.Compile("1 / zero")
	qt.Assert(t, qt.IsNil(err))
	_, err = prog.EvalNative(context.Background(), map[string]interface{}{"zero": 0})
	var evalErr *expreval.EvalError
	qt.Assert(t, qt.IsTrue(errors.As(err, &evalErr)))
	qt.Check(t, qt.Equals(evalErr.Code, "division_by_zero"))

	prog, err = env.Compile("request.auth.user == 'ada'")
	qt.Assert(t, qt.IsNil(err))
	_, err = prog.EvalNative(context.Background(), map[string]interface{}{
		"request": map[string]interface{}{"auth": map[string]interface{}{"user": "ada"}},
	})
	var unknown *expreval.UnknownError
	qt.Assert(t, qt.IsTrue(errors.As(err, &unknown)))
	qt.Check(t, qt.DeepEquals(unknown.Attributes, []string{"request.auth"}))
}

func TestCompileErrors(t *testing.T) {
	env, err := expreval.NewEnv()
	qt.Assert(t, qt.IsNil(err))
	_, err = env.Compile("undefined_fn(1)")
	var compileErr *expreval.CompileError
	qt.Assert(t, qt.IsTrue(errors.As(err, &compileErr)))
	qt.Check(t, qt.HasLen(compileErr.Diagnostics, 1))
	qt.Check(t, qt.ErrorMatches(err, `compile undefined_fn\(1\): .*C004.*`))
}

func TestOptionErrors(t *testing.T) {
	tests := []struct {
		name string
		opt  expreval.Option
		want string
	}{
		{"backend", expreval.WithBackend("vm"), `"vm": unknown backend mode`},
		{"pattern", expreval.WithUnknownPatterns("a["), `pattern "a\[": .*`},
		{"not a func", expreval.WithFunction("f", 3), `bind f: int is not a function`},
		{"variadic", expreval.WithFunction("f", func(xs ...int) int { return 0 }), `bind f: variadic functions are not supported`},
		{"results", expreval.WithFunction("f", func() (int, int) { return 0, 0 }), `bind f: want one result, optionally followed by an error`},
		{"param", expreval.WithFunction("f", func(c chan int) int { return 0 }), `bind f: parameter 0: unsupported parameter type chan int`},
		{"iterations", expreval.WithMaxIterations(-1), `max iterations must not be negative`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := expreval.NewEnv(tt.opt)
			qt.Check(t, qt.ErrorMatches(err, tt.want))
		})
	}
}

func TestHostFunctionErrors(t *testing.T) {
	env, err := expreval.NewEnv(
		expreval.WithFunction("parseDuration", time.ParseDuration),
		expreval.WithFunction("sum", func(xs []int) int {
			total := 0
			for _, x := range xs {
				total += x
			}
			return total
		}),
	)
	qt.Assert(t, qt.IsNil(err))

	prog, err := env.Compile("parseDuration('90s') == duration('1m30s') && sum([1, 2, 3]) == 6")
	qt.Assert(t, qt.IsNil(err))
	v, err := prog.EvalNative(context.Background(), nil)
	qt.Assert(t, qt.IsNil(err))
	qt.Check(t, qt.Equals(v, interface{}(true)))

	prog, err = env.Compile("parseDuration('soon')")
	qt.Assert(t, qt.IsNil(err))
	_, err = prog.EvalNative(context.Background(), nil)
	qt.Check(t, qt.ErrorMatches(err, `invalid_argument: parseDuration: .*`))

	prog, err = env.Compile("sum([1, 'x'])")
	qt.Assert(t, qt.IsNil(err))
	_, err = prog.EvalNative(context.Background(), nil)
	qt.Check(t, qt.ErrorMatches(err, `type_conversion: sum: argument 0: element 1: .*`))
}

func TestProtoSource(t *testing.T) {
	env, err := expreval.NewEnv(expreval.WithProtoSource("shop.proto", `
syntax = "proto3";
package shop;
enum Size { SMALL = 0; LARGE = 1; }
message Item { string name = 1; Size size = 2; }
`))
	qt.Assert(t, qt.IsNil(err))
	prog, err := env.Compile("shop.Item{name: 'box', size: shop.Size.LARGE}.size == shop.Size.LARGE")
	qt.Assert(t, qt.IsNil(err))
	v, err := prog.EvalNative(context.Background(), nil)
	qt.Assert(t, qt.IsNil(err))
	qt.Check(t, qt.Equals(v, interface{}(true)))
}

func TestConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "expreval.yaml")
	data := "backend: direct\noptions:\n  comprehension_max_iterations: 2\n"
	qt.Assert(t, qt.IsNil(os.WriteFile(path, []byte(data), 0o644)))

	env, err := expreval.NewEnv(expreval.WithConfigFile(path))
	qt.Assert(t, qt.IsNil(err))
	prog, err := env.Compile("[1, 2, 3].map(x, x)")
	qt.Assert(t, qt.IsNil(err))
	_, err = prog.EvalNative(context.Background(), nil)
	qt.Check(t, qt.ErrorMatches(err, `iteration_limit: .*`))
}

func TestDisassemble(t *testing.T) {
	env, err := expreval.NewEnv()
	qt.Assert(t, qt.IsNil(err))
	prog, err := env.Compile("[1].exists(x, x > 0)")
	qt.Assert(t, qt.IsNil(err))
	out := prog.Disassemble()
	qt.Check(t, qt.IsTrue(strings.HasPrefix(out, "== main ==")))
	qt.Check(t, qt.Equals(prog.Source(), "[1].exists(x, x > 0)"))
}

func ExampleEnv_Compile() {
	env, _ := expreval.NewEnv()
	prog, _ := env.Compile("name.startsWith('a') ? size(name) : 0")
	v, _ := prog.Eval(context.Background(), expreval.Vars(map[string]interface{}{"name": "ada"}))
	fmt.Println(v.Inspect())
	// Output: 3
}
