package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-quicktest/qt"
	"github.com/google/go-cmp/cmp"
	"gopkg.in/yaml.v3"

	"github.com/funvibe/expreval/internal/activation/sqlactivation"
	"github.com/funvibe/expreval/internal/eval"
	"github.com/funvibe/expreval/internal/values"
)

func TestParse_Minimal(t *testing.T) {
	cfg, err := Parse([]byte("{}"), "expreval.yaml")
	qt.Assert(t, qt.IsNil(err))
	qt.Check(t, qt.Equals(cfg.Backend, DefaultBackend))
	qt.Check(t, qt.Equals(cfg.Server.Addr, DefaultServerAddr))

	opts, err := cfg.EvalOptions()
	qt.Assert(t, qt.IsNil(err))
	qt.Check(t, qt.IsTrue(opts.ShortCircuiting))
	qt.Check(t, qt.Equals(opts.MaxCallDepth, eval.DefaultMaxCallDepth))
	qt.Check(t, qt.HasLen(opts.UnknownPatterns, 0))
}

func TestParse_Full(t *testing.T) {
	data := `
backend: hybrid
options:
  short_circuiting: false
  enable_unknowns: true
  enable_missing_attribute_errors: true
  comprehension_max_iterations: 100
unknown_patterns:
  - request.auth.*
  - request.headers["x-id"]
missing_attribute_patterns:
  - request.path
variables:
  threshold: 10
sqlite:
  path: vars.db
server:
  addr: ":9000"
`
	cfg, err := Parse([]byte(data), "/etc/expreval/expreval.yaml")
	qt.Assert(t, qt.IsNil(err))
	qt.Check(t, qt.Equals(cfg.Backend, "hybrid"))
	qt.Check(t, qt.Equals(cfg.SQLite.Table, DefaultTable))
	qt.Check(t, qt.Equals(cfg.Resolve(cfg.SQLite.Path), "/etc/expreval/vars.db"))
	qt.Check(t, qt.Equals(cfg.Server.Addr, ":9000"))

	opts, err := cfg.EvalOptions()
	qt.Assert(t, qt.IsNil(err))
	qt.Check(t, qt.IsFalse(opts.ShortCircuiting))
	qt.Check(t, qt.Equals(opts.ComprehensionMaxIterations, 100))
	var unknown []string
	for _, p := range opts.UnknownPatterns {
		unknown = append(unknown, p.String())
	}
	qt.Check(t, qt.DeepEquals(unknown, []string{"request.auth.*", `request.headers["x-id"]`}))
	qt.Check(t, qt.HasLen(opts.MissingAttributePatterns, 1))
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name string
		data string
		want string
	}{
		{"bad yaml", "backend: [", `parsing test.yaml: .*`},
		{"backend", "backend: vm", `test.yaml: backend: "vm": unknown backend mode`},
		{"negative limit", "options: {comprehension_max_iterations: -1}", `.*must not be negative`},
		{"patterns without unknowns", "unknown_patterns: [a.b]", `.*options.enable_unknowns is off`},
		{"missing without flag", "missing_attribute_patterns: [a.b]", `.*enable_missing_attribute_errors is off`},
		{"bad pattern", "options: {enable_unknowns: true}\nunknown_patterns: ['a..b']", `test.yaml: unknown_patterns\[0\]: .*`},
		{"sqlite without path", "sqlite: {table: vars}", `.*sqlite.path is required`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.data), "test.yaml")
			qt.Check(t, qt.ErrorMatches(err, tt.want))
		})
	}
}

// TestRoundTrip encodes a parsed configuration and parses it again.
func TestRoundTrip(t *testing.T) {
	data := `
backend: direct
options:
  enable_unknowns: true
  max_call_depth: 8
unknown_patterns: [x.y]
proto:
  files: [a.proto]
  import_paths: [protos]
variables:
  name: ada
`
	first, err := Parse([]byte(data), "c.yaml")
	qt.Assert(t, qt.IsNil(err))
	out, err := yaml.Marshal(first)
	qt.Assert(t, qt.IsNil(err))
	second, err := Parse(out, "c.yaml")
	qt.Assert(t, qt.IsNil(err))
	qt.Check(t, qt.CmpEquals(second, first, cmp.AllowUnexported(Config{})))
}

func TestLoadAndFindConfig(t *testing.T) {
	root := t.TempDir()
	nested := filepath.Join(root, "a", "b")
	qt.Assert(t, qt.IsNil(os.MkdirAll(nested, 0o755)))

	path, err := FindConfig(nested)
	qt.Assert(t, qt.IsNil(err))
	qt.Check(t, qt.Equals(path, ""))

	file := filepath.Join(root, FileName)
	qt.Assert(t, qt.IsNil(os.WriteFile(file, []byte("backend: direct\n"), 0o644)))
	path, err = FindConfig(nested)
	qt.Assert(t, qt.IsNil(err))
	qt.Check(t, qt.Equals(path, file))

	cfg, err := Load(path)
	qt.Assert(t, qt.IsNil(err))
	qt.Check(t, qt.Equals(cfg.Backend, "direct"))

	_, err = Load(filepath.Join(root, "nope.yaml"))
	qt.Check(t, qt.ErrorMatches(err, `reading config .*nope.yaml: .*`))
}

func TestActivation(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()
	store, err := sqlactivation.Open(ctx, filepath.Join(dir, "vars.db"), "")
	qt.Assert(t, qt.IsNil(err))
	qt.Assert(t, qt.IsNil(store.Set(ctx, "limit", values.Int(5))))
	qt.Assert(t, qt.IsNil(store.Set(ctx, "name", values.String("stored"))))
	qt.Assert(t, qt.IsNil(store.Close()))

	data := "sqlite:\n  path: vars.db\nvariables:\n  name: configured\n"
	cfg, err := Parse([]byte(data), filepath.Join(dir, FileName))
	qt.Assert(t, qt.IsNil(err))
	act, closeFn, err := cfg.Activation(ctx)
	qt.Assert(t, qt.IsNil(err))
	defer closeFn()

	v, ok := act.FindVariable("name")
	qt.Assert(t, qt.IsTrue(ok))
	qt.Check(t, qt.Equals[values.Value](v, values.String("configured")))
	v, ok = act.FindVariable("limit")
	qt.Assert(t, qt.IsTrue(ok))
	qt.Check(t, qt.IsTrue(values.Equal(v, values.Int(5))))
	_, ok = act.FindVariable("other")
	qt.Check(t, qt.IsFalse(ok))
}

func TestRegistry(t *testing.T) {
	reg, err := Default().Registry()
	qt.Assert(t, qt.IsNil(err))
	qt.Check(t, qt.IsNil(reg))

	dir := t.TempDir()
	proto := "syntax = \"proto3\";\npackage cfg;\nmessage Item { string id = 1; }\n"
	qt.Assert(t, qt.IsNil(os.WriteFile(filepath.Join(dir, "item.proto"), []byte(proto), 0o644)))
	cfg, err := Parse([]byte("proto:\n  files: [item.proto]\n"), filepath.Join(dir, FileName))
	qt.Assert(t, qt.IsNil(err))
	reg, err = cfg.Registry()
	qt.Assert(t, qt.IsNil(err))
	_, ok := reg.FindMessageType("cfg.Item")
	qt.Check(t, qt.IsTrue(ok))
}
