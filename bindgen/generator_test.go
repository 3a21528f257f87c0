package bindgen

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/broady/crgen/bindgen/crystal"
	"github.com/broady/crgen/bindgen/ir"
	"github.com/broady/crgen/bindgen/sink"
	"github.com/broady/crgen/internal/validate"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
}

func TestApplyConfigDefaults(t *testing.T) {
	tests := []struct {
		name  string
		input *Config
		check func(*Config) bool
	}{
		{
			name:  "empty config gets defaults",
			input: &Config{},
			check: func(c *Config) bool {
				return c.Logger != nil && c.IndentSize == 2
			},
		},
		{
			name:  "explicit values preserved",
			input: &Config{IndentSize: 4, Logger: discardLogger()},
			check: func(c *Config) bool {
				return c.IndentSize == 4 && c.Logger != slog.Default()
			},
		},
		{
			name:  "preserves slices",
			input: &Config{Prefixes: []string{"mrb_"}},
			check: func(c *Config) bool {
				return len(c.Prefixes) == 1 && c.Prefixes[0] == "mrb_"
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			original := *tt.input
			result := applyConfigDefaults(tt.input)
			if !tt.check(result) {
				t.Errorf("applyConfigDefaults() = %+v", result)
			}
			if tt.input.Logger != original.Logger || tt.input.IndentSize != original.IndentSize {
				t.Errorf("applyConfigDefaults() mutated its input")
			}
		})
	}
}

func TestSplitCFlags(t *testing.T) {
	dirs, rest := splitCFlags([]string{"-I/usr/include", "-DX=1", "-I", "vendor/include", "-Wall", "-I"})
	if want := []string{"/usr/include", "vendor/include"}; !reflect.DeepEqual(dirs, want) {
		t.Errorf("include dirs = %v, want %v", dirs, want)
	}
	if want := []string{"-DX=1", "-Wall", "-I"}; !reflect.DeepEqual(rest, want) {
		t.Errorf("rest = %v, want %v", rest, want)
	}
}

func TestGenerate_ConfigErrors(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		name    string
		cfg     *Config
		wantErr error
		field   string
	}{
		{name: "nil config", cfg: nil},
		{name: "no input", cfg: &Config{Module: "LibFoo", Library: "foo"}, wantErr: ErrNoInput},
		{
			name:    "conflicting inputs",
			cfg:     &Config{Module: "LibFoo", Library: "foo", Headers: []string{"a.h"}, Document: "a.json"},
			wantErr: ErrConflictingInputs,
		},
		{
			name:  "missing module",
			cfg:   &Config{Library: "foo", Declarations: []ir.Declaration{}},
			field: "Module",
		},
		{
			name:  "lowercase module",
			cfg:   &Config{Module: "libfoo", Library: "foo", Declarations: []ir.Declaration{}},
			field: "Module",
		},
		{
			name:  "bad file name",
			cfg:   &Config{Module: "LibFoo", Library: "foo", FileName: "foo.txt", Declarations: []ir.Declaration{}},
			field: "FileName",
		},
		{
			name:  "indent too large",
			cfg:   &Config{Module: "LibFoo", Library: "foo", IndentSize: 12, Declarations: []ir.Declaration{}},
			field: "IndentSize",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.cfg != nil {
				tt.cfg.Logger = discardLogger()
			}
			_, err := Generate(ctx, tt.cfg, nil)
			if err == nil {
				t.Fatal("Generate() succeeded")
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("error = %v, want %v", err, tt.wantErr)
			}
			if tt.field != "" {
				var verr *validate.Error
				if !errors.As(err, &verr) {
					t.Fatalf("error = %v, want *validate.Error", err)
				}
				if _, ok := verr.Fields[tt.field]; !ok {
					t.Errorf("Fields = %v, want %s", verr.Fields, tt.field)
				}
			}
		})
	}
}

func TestFromDeclarations_Generate(t *testing.T) {
	point := &ir.RecordDecl{
		Key:  "struct:point",
		Name: ir.NewIdentifier("point"),
		Fields: []ir.Field{
			{Name: ir.NewIdentifier("x"), Type: ir.Builtin(ir.KindInt)},
		},
	}
	move := &ir.FunctionDecl{
		Key:    "function:pt_move",
		Name:   ir.Namer{Prefixes: []string{"pt_"}}.Identifier("pt_move"),
		Params: []ir.Param{{Name: ir.NewIdentifier("p"), Type: ir.PointerTo(ir.Elaborated(ir.RecordType("struct:point", "point")))}},
		Result: ir.Void(),
	}

	result, err := FromDeclarations(point, move, point).
		Module("LibPt").
		Library("pt").
		Logger(discardLogger()).
		Generate(context.Background())
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	if result.Declarations != 2 {
		t.Errorf("Declarations = %d, want 2 after deduplication", result.Declarations)
	}
	if len(result.Files) != 1 || result.Files[0].Path != "libpt.cr" {
		t.Fatalf("Files = %+v, want libpt.cr", result.Files)
	}
	want := `@[Link("pt")]
lib LibPt
  struct Point
    x : Int16
  end

  fun move = "pt_move"(p : Point*) : Void
end
`
	if got := string(result.Files[0].Content); got != want {
		t.Errorf("content =\n%s\nwant\n%s", got, want)
	}
}

func TestFromHeaders_ToDir(t *testing.T) {
	dir := t.TempDir()
	include := filepath.Join(dir, "include")
	if err := os.MkdirAll(include, 0o755); err != nil {
		t.Fatal(err)
	}
	header := `
/* Counter state. */
typedef struct ctr_counter {
  int value;
} ctr_counter;

#define CTR_MAX 100

ctr_counter *ctr_new(void);
void ctr_add(ctr_counter *c, int n);
`
	if err := os.WriteFile(filepath.Join(include, "counter.h"), []byte(header), 0o644); err != nil {
		t.Fatal(err)
	}

	out := filepath.Join(dir, "src")
	result, err := FromHeaders("counter.h").
		CFlags("-I"+include, "-DNDEBUG").
		Module("LibCounter").
		Library("counter").
		LibDir("/opt/counter/lib").
		Prefixes("ctr_", "CTR_").
		LinkFlags("-lm").
		WithMacros().
		WithComments().
		Logger(discardLogger()).
		ToDir(context.Background(), out)
	if err != nil {
		t.Fatalf("ToDir() error = %v", err)
	}

	content, err := os.ReadFile(filepath.Join(out, "libcounter.cr"))
	if err != nil {
		t.Fatalf("generated file not written: %v", err)
	}
	if !bytes.Equal(content, result.Files[0].Content) {
		t.Errorf("file on disk differs from result content")
	}

	for _, want := range []string{
		`@[Link(ldflags: "-L/opt/counter/lib -lcounter -lm")]`,
		"lib LibCounter\n",
		"  # Counter state.\n  struct Counter\n    value : Int16\n  end\n",
		`  fun new = "ctr_new"() : Counter*`,
		`  fun add = "ctr_add"(c : Counter*, n : Int16) : Void`,
		"  MAX = 100\n",
	} {
		if !strings.Contains(string(content), want) {
			t.Errorf("output missing %q:\n%s", want, content)
		}
	}
}

func TestFromDocument_Reader(t *testing.T) {
	doc := `{"declarations":[{"kind":"constant","name":"ANSWER","value":42}]}`
	mem := sink.NewMemorySink()
	_, err := FromDocument("-").
		Reader(strings.NewReader(doc)).
		Module("LibDoc").
		Library("doc").
		FileName("doc_bindings.cr").
		Logger(discardLogger()).
		ToSink(context.Background(), mem)
	if err != nil {
		t.Fatalf("ToSink() error = %v", err)
	}
	if got := string(mem.Get("doc_bindings.cr")); !strings.Contains(got, "  ANSWER = 42\n") {
		t.Errorf("output missing constant:\n%s", got)
	}
}

func TestGenerate_UnsupportedTypeWritesNothing(t *testing.T) {
	bad := &ir.FunctionDecl{
		Key:    "function:f",
		Name:   ir.NewIdentifier("f"),
		Result: ir.Builtin(ir.KindLongDouble),
	}
	mem := sink.NewMemorySink()
	_, err := FromDeclarations(bad).Module("LibBad").Library("bad").Logger(discardLogger()).ToSink(context.Background(), mem)
	if !errors.Is(err, crystal.ErrUnsupportedTypeKind) {
		t.Fatalf("error = %v, want ErrUnsupportedTypeKind", err)
	}
	if len(mem.Paths()) != 0 {
		t.Errorf("sink has files %v after a failed run", mem.Paths())
	}
}

func TestGenerate_LogsWarnings(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	opaque := &ir.RecordDecl{Key: "struct:handle", Name: ir.NewIdentifier("handle")}

	result, err := FromDeclarations(opaque).Module("LibH").Library("h").Logger(logger).Generate(context.Background())
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if len(result.Warnings) != 1 {
		t.Fatalf("Warnings = %+v, want 1", result.Warnings)
	}
	logs := buf.String()
	if !strings.Contains(logs, "code="+crystal.WarnOpaqueAlias) {
		t.Errorf("warning not logged:\n%s", logs)
	}
	if !strings.Contains(logs, `msg="generated bindings"`) || !strings.Contains(logs, "module=LibH") {
		t.Errorf("summary not logged:\n%s", logs)
	}
}

func TestGenerator_Config(t *testing.T) {
	g := FromHeaders("a.h", "b.h").
		Module("LibAB").
		Library("ab").
		CFlags("-Iinc").
		CFlags("-DX").
		Prefixes("ab_").
		IndentSize(4).
		Frontmatter("generated")

	cfg := g.Config()
	if !reflect.DeepEqual(cfg.Headers, []string{"a.h", "b.h"}) {
		t.Errorf("Headers = %v", cfg.Headers)
	}
	if !reflect.DeepEqual(cfg.CFlags, []string{"-Iinc", "-DX"}) {
		t.Errorf("CFlags = %v, want flags appended", cfg.CFlags)
	}
	if cfg.Module != "LibAB" || cfg.Library != "ab" || cfg.IndentSize != 4 || cfg.Frontmatter != "generated" {
		t.Errorf("Config() = %+v", cfg)
	}

	if got := FromConfig(cfg).Config(); !reflect.DeepEqual(got, cfg) {
		t.Errorf("FromConfig round trip = %+v", got)
	}
	if decls := FromDeclarations().Config().Declarations; decls == nil {
		t.Error("FromDeclarations() with no arguments has nil declarations")
	}
}

func TestFromHeaders_TypedefParameters(t *testing.T) {
	header := filepath.Join(t.TempDir(), "cb.h")
	src := `
typedef int vec4[4];
typedef void handler_fn(int);
void take_vec(vec4 v);
void set_handler(handler_fn h);
`
	if err := os.WriteFile(header, []byte(src), 0o644); err != nil {
		t.Fatal(err)
	}

	result, err := FromHeaders(header).Module("LibCb").Library("cb").Logger(discardLogger()).Generate(context.Background())
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	got := string(result.Files[0].Content)
	for _, want := range []string{
		`  fun take_vec = "take_vec"(v : Int16*) : Void`,
		`  fun set_handler = "set_handler"(h : Void*) : Void`,
	} {
		if !strings.Contains(got, want) {
			t.Errorf("output missing %q:\n%s", want, got)
		}
	}
}
