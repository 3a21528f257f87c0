package provider

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/broady/crgen/bindgen/ir"
)

func parseHeader(t *testing.T, src string, opts InputOptions) []ir.Declaration {
	t.Helper()
	decls, err := HeaderProvider{}.Parse(context.Background(), "test.h", []byte(src), opts)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	return decls
}

func findDecl[T ir.Declaration](t *testing.T, decls []ir.Declaration, raw string) T {
	t.Helper()
	for _, d := range decls {
		if typed, ok := d.(T); ok && d.Ident().Raw() == raw {
			return typed
		}
	}
	var zero T
	t.Fatalf("no %T named %q in %d declarations", zero, raw, len(decls))
	return zero
}

func TestHeaderProvider_Name(t *testing.T) {
	if got := (HeaderProvider{}).Name(); got != "headers" {
		t.Errorf("Name() = %q, want %q", got, "headers")
	}
}

func TestHeader_Functions(t *testing.T) {
	decls := parseHeader(t, `
int add(int a, int b);
void reset(void);
unsigned long count(const char *s);
void log_msg(const char *fmt, ...);
double *samples(int n);
static int hidden(int x);
`, InputOptions{})

	add := findDecl[*ir.FunctionDecl](t, decls, "add")
	if add.Key != "function:add" {
		t.Errorf("Key = %q, want function:add", add.Key)
	}
	if len(add.Params) != 2 || add.Params[0].Name.Raw() != "a" || add.Params[1].Name.Raw() != "b" {
		t.Errorf("add params = %+v", add.Params)
	}
	if add.Result.Kind() != ir.KindInt {
		t.Errorf("add result = %s, want Int", add.Result.Kind())
	}
	if add.Source.Line != 2 || add.Source.File != "test.h" {
		t.Errorf("add source = %+v, want test.h line 2", add.Source)
	}

	if reset := findDecl[*ir.FunctionDecl](t, decls, "reset"); len(reset.Params) != 0 {
		t.Errorf("reset(void) has %d params, want 0", len(reset.Params))
	}

	count := findDecl[*ir.FunctionDecl](t, decls, "count")
	if count.Result.Kind() != ir.KindULong {
		t.Errorf("count result = %s, want ULong", count.Result.Kind())
	}
	if p := count.Params[0].Type; p.Kind() != ir.KindPointer || p.Pointee().Kind() != ir.KindCharS {
		t.Errorf("count param = %s -> %v, want pointer to Char_S", p.Kind(), p.Pointee())
	}

	logMsg := findDecl[*ir.FunctionDecl](t, decls, "log_msg")
	if !logMsg.Variadic || len(logMsg.Params) != 1 {
		t.Errorf("log_msg variadic = %v with %d params, want variadic with 1", logMsg.Variadic, len(logMsg.Params))
	}

	samples := findDecl[*ir.FunctionDecl](t, decls, "samples")
	if samples.Result.Kind() != ir.KindPointer || samples.Result.Pointee().Kind() != ir.KindDouble {
		t.Errorf("samples result = %s, want pointer to Double", samples.Result.Kind())
	}

	for _, d := range decls {
		if d.Ident().Raw() == "hidden" {
			t.Errorf("static function hidden was extracted")
		}
	}
}

func TestHeader_FunctionPointerIsNotAFunction(t *testing.T) {
	decls := parseHeader(t, `
void (*handler)(int);
typedef int (*compare_fn)(const void *, const void *);
void sort(void *base, compare_fn cmp);
`, InputOptions{})

	for _, d := range decls {
		if d.Ident().Raw() == "handler" {
			t.Errorf("function pointer variable extracted as %s", d.DeclKind())
		}
	}

	sort := findDecl[*ir.FunctionDecl](t, decls, "sort")
	cmp := sort.Params[1].Type
	if cmp.Kind() != ir.KindTypedef {
		t.Fatalf("cmp kind = %s, want Typedef", cmp.Kind())
	}
	canon := cmp.Canonical()
	if canon.Kind() != ir.KindPointer || canon.Pointee().Kind() != ir.KindFunctionProto {
		t.Errorf("cmp canonical = %s, want pointer to function", canon.Kind())
	}
}

func TestHeader_Records(t *testing.T) {
	decls := parseHeader(t, `
struct node {
  int value;
  struct node *next;
  char name[16];
  int a, *b;
};

typedef struct {
  float x;
  float y;
} point_t;

union value {
  int i;
  double d;
};

struct opaque;
`, InputOptions{})

	node := findDecl[*ir.RecordDecl](t, decls, "node")
	if node.Key != "struct:node" || node.Union {
		t.Errorf("node Key = %q Union = %v", node.Key, node.Union)
	}
	wantFields := []string{"value", "next", "name", "a", "b"}
	if len(node.Fields) != len(wantFields) {
		t.Fatalf("node has %d fields, want %d", len(node.Fields), len(wantFields))
	}
	for i, want := range wantFields {
		if got := node.Fields[i].Name.Raw(); got != want {
			t.Errorf("field %d = %q, want %q", i, got, want)
		}
	}
	next := node.Fields[1].Type
	if next.Kind() != ir.KindPointer || next.Pointee().Canonical().Key() != "struct:node" {
		t.Errorf("next = %s, want pointer to struct:node", next.Kind())
	}
	name := node.Fields[2].Type
	if name.Kind() != ir.KindConstantArray || name.ArraySize() != 16 {
		t.Errorf("name = %s[%d], want ConstantArray[16]", name.Kind(), name.ArraySize())
	}
	if b := node.Fields[4].Type; b.Kind() != ir.KindPointer {
		t.Errorf("b = %s, want Pointer", b.Kind())
	}

	point := findDecl[*ir.RecordDecl](t, decls, "point_t")
	if len(point.Fields) != 2 {
		t.Errorf("point_t has %d fields, want 2", len(point.Fields))
	}

	value := findDecl[*ir.RecordDecl](t, decls, "value")
	if !value.Union || value.Key != "union:value" {
		t.Errorf("value Union = %v Key = %q", value.Union, value.Key)
	}

	opaque := findDecl[*ir.RecordDecl](t, decls, "opaque")
	if len(opaque.Fields) != 0 {
		t.Errorf("opaque has %d fields, want 0", len(opaque.Fields))
	}
}

func TestHeader_ForwardDeclarationReplacedByDefinition(t *testing.T) {
	decls := parseHeader(t, `
struct state;
int use(struct state *s);
struct state { int refs; };
`, InputOptions{})

	var states []*ir.RecordDecl
	for _, d := range decls {
		if r, ok := d.(*ir.RecordDecl); ok && r.Key == "struct:state" {
			states = append(states, r)
		}
	}
	if len(states) != 1 {
		t.Fatalf("found %d struct:state declarations, want 1", len(states))
	}
	if len(states[0].Fields) != 1 {
		t.Errorf("state has %d fields, want the definition's 1", len(states[0].Fields))
	}
	if decls[0] != ir.Declaration(states[0]) {
		t.Errorf("definition did not take the forward declaration's position")
	}
}

func TestHeader_Enums(t *testing.T) {
	decls := parseHeader(t, `
#define BASE 10
enum color { RED, GREEN = 5, BLUE, ALPHA = 'a' };
typedef enum { FLAG_A = 1 << 0, FLAG_B = 1 << 1, FLAG_AB = FLAG_A | FLAG_B, FLAG_NEG = -(BASE + 2) } flags_t;
enum weird { W1 = sizeof(int), W2 };
`, InputOptions{})

	tests := []struct {
		enum   string
		values map[string]int64
	}{
		{"color", map[string]int64{"RED": 0, "GREEN": 5, "BLUE": 6, "ALPHA": 'a'}},
		{"flags_t", map[string]int64{"FLAG_A": 1, "FLAG_B": 2, "FLAG_AB": 3, "FLAG_NEG": -12}},
		{"weird", map[string]int64{"W1": 0, "W2": 1}},
	}
	for _, tt := range tests {
		t.Run(tt.enum, func(t *testing.T) {
			e := findDecl[*ir.EnumDecl](t, decls, tt.enum)
			if len(e.Constants) != len(tt.values) {
				t.Fatalf("%d constants, want %d", len(e.Constants), len(tt.values))
			}
			for _, c := range e.Constants {
				want, ok := tt.values[c.Name.Raw()]
				if !ok {
					t.Errorf("unexpected constant %q", c.Name.Raw())
					continue
				}
				if c.Value != want {
					t.Errorf("%s = %d, want %d", c.Name.Raw(), c.Value, want)
				}
			}
		})
	}
}

func TestHeader_TypedefChains(t *testing.T) {
	decls := parseHeader(t, `
typedef unsigned int uint;
typedef uint count_t;
typedef struct buffer buffer_t;
typedef buffer_t *buffer_ref;
count_t length(buffer_ref b, size_t cap, uint8_t *data, my_handle h);
`, InputOptions{})

	length := findDecl[*ir.FunctionDecl](t, decls, "length")
	if got := length.Result.Canonical().Kind(); got != ir.KindUInt {
		t.Errorf("count_t canonical = %s, want UInt", got)
	}
	if length.Result.Kind() != ir.KindTypedef {
		t.Errorf("count_t kind = %s, want Typedef", length.Result.Kind())
	}

	b := length.Params[0].Type.Canonical()
	if b.Kind() != ir.KindPointer || b.Pointee().Canonical().Key() != "struct:buffer" {
		t.Errorf("buffer_ref canonical = %s, want pointer to struct:buffer", b.Kind())
	}
	if got := length.Params[1].Type.Canonical().Kind(); got != ir.KindULong {
		t.Errorf("size_t canonical = %s, want ULong", got)
	}
	data := length.Params[2].Type
	if data.Pointee().Canonical().Kind() != ir.KindUChar {
		t.Errorf("uint8_t canonical = %s, want UChar", data.Pointee().Canonical().Kind())
	}
	if got := length.Params[3].Type.Canonical().Kind(); got != ir.KindUnexposed {
		t.Errorf("unknown typedef canonical = %s, want Unexposed", got)
	}

	buffer := findDecl[*ir.RecordDecl](t, decls, "buffer")
	if len(buffer.Fields) != 0 {
		t.Errorf("buffer has %d fields, want forward declaration", len(buffer.Fields))
	}
}

func TestHeader_SizedTypes(t *testing.T) {
	tests := []struct {
		text string
		want ir.TypeKind
	}{
		{"unsigned", ir.KindUInt},
		{"signed", ir.KindInt},
		{"unsigned char", ir.KindUChar},
		{"signed char", ir.KindSChar},
		{"short", ir.KindShort},
		{"unsigned short int", ir.KindUShort},
		{"long", ir.KindLong},
		{"unsigned long", ir.KindULong},
		{"long long", ir.KindLongLong},
		{"unsigned long long int", ir.KindULongLong},
		{"long double", ir.KindLongDouble},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			if got := sizedType(tt.text).Kind(); got != tt.want {
				t.Errorf("sizedType(%q) = %s, want %s", tt.text, got, tt.want)
			}
		})
	}
}

func TestHeader_ArrayParametersDecay(t *testing.T) {
	decls := parseHeader(t, `void fill(int values[8], char names[][4]);`, InputOptions{})

	fill := findDecl[*ir.FunctionDecl](t, decls, "fill")
	for i, p := range fill.Params {
		if p.Type.Kind() != ir.KindPointer {
			t.Errorf("param %d kind = %s, want Pointer", i, p.Type.Kind())
		}
	}
	if elem := fill.Params[1].Type.Pointee(); elem.Kind() != ir.KindConstantArray || elem.ArraySize() != 4 {
		t.Errorf("names pointee = %s[%d], want ConstantArray[4]", elem.Kind(), elem.ArraySize())
	}
}

func TestHeader_TypedefParametersDecay(t *testing.T) {
	decls := parseHeader(t, `
typedef int vec4[4];
typedef void handler_fn(int);
void take_vec(vec4 v);
void set_handler(handler_fn h);
`, InputOptions{})

	vec := findDecl[*ir.FunctionDecl](t, decls, "take_vec").Params[0].Type
	if vec.Kind() != ir.KindPointer {
		t.Fatalf("take_vec param kind = %s, want Pointer", vec.Kind())
	}
	if k := vec.Pointee().Canonical().Kind(); k != ir.KindInt {
		t.Errorf("take_vec pointee = %s, want Int", k)
	}

	h := findDecl[*ir.FunctionDecl](t, decls, "set_handler").Params[0].Type
	if h.Kind() != ir.KindPointer {
		t.Fatalf("set_handler param kind = %s, want Pointer", h.Kind())
	}
	if k := h.Pointee().Canonical().Kind(); k != ir.KindFunctionProto {
		t.Errorf("set_handler pointee = %s, want FunctionProto", k)
	}
}

func TestHeader_Macros(t *testing.T) {
	src := `
#define MAX_SIZE 128
#define VERSION "1.2"
#define RATIO .5f
#define NEG (-1)
#define EMPTY
#define CALL(x) ((x) + 1)
#define EXPR (MAX_SIZE * 2)
`
	t.Run("off", func(t *testing.T) {
		for _, d := range parseHeader(t, src, InputOptions{}) {
			if d.DeclKind() == ir.DeclConstant {
				t.Errorf("constant %q extracted with macros off", d.Ident().Raw())
			}
		}
	})

	t.Run("on", func(t *testing.T) {
		decls := parseHeader(t, src, InputOptions{Macros: true})
		want := map[string]string{
			"MAX_SIZE": "128",
			"VERSION":  `"1.2"`,
			"RATIO":    "0.5",
			"NEG":      "-1",
		}
		got := map[string]string{}
		for _, d := range decls {
			if c, ok := d.(*ir.ConstantDecl); ok {
				got[c.Name.Raw()] = c.Value
				if c.Key != ir.TypeKey("macro:"+c.Name.Raw()) {
					t.Errorf("%s Key = %q", c.Name.Raw(), c.Key)
				}
			}
		}
		if len(got) != len(want) {
			t.Errorf("constants = %v, want %v", got, want)
		}
		for name, value := range want {
			if got[name] != value {
				t.Errorf("%s = %q, want %q", name, got[name], value)
			}
		}
	})
}

func TestHeader_Documentation(t *testing.T) {
	decls := parseHeader(t, `
int unrelated; /* trailing */
/**
 * Opens a handle.
 * Returns NULL on failure.
 */
void *open_handle(const char *path);

// A 2D point.
typedef struct {
  int x;
} point_t;

/* far away */

int undocumented(void);
`, InputOptions{})

	open := findDecl[*ir.FunctionDecl](t, decls, "open_handle")
	if want := "Opens a handle.\nReturns NULL on failure."; open.Documentation.Body != want {
		t.Errorf("open_handle doc = %q, want %q", open.Documentation.Body, want)
	}

	point := findDecl[*ir.RecordDecl](t, decls, "point_t")
	if point.Documentation.Body != "A 2D point." {
		t.Errorf("point_t doc = %q, want %q", point.Documentation.Body, "A 2D point.")
	}

	if doc := findDecl[*ir.FunctionDecl](t, decls, "undocumented").Documentation; !doc.IsZero() {
		t.Errorf("undocumented doc = %q, want empty", doc.Body)
	}
}

func TestHeader_Prefixes(t *testing.T) {
	decls := parseHeader(t, `int mrb_open(void);`, InputOptions{Namer: ir.Namer{Prefixes: []string{"mrb_"}}})

	open := findDecl[*ir.FunctionDecl](t, decls, "mrb_open")
	if parts := open.Name.Parts(); len(parts) != 1 || parts[0] != "open" {
		t.Errorf("Parts() = %v, want [open]", parts)
	}
	if open.LinkName() != "mrb_open" {
		t.Errorf("LinkName() = %q, want mrb_open", open.LinkName())
	}
}

func TestHeader_ConditionalsAndLinkage(t *testing.T) {
	decls := parseHeader(t, `
#ifndef LIB_H
#define LIB_H
extern "C" {
int inside(void);
}
#if defined(FEATURE)
int featured(void);
#else
int fallback(void);
#endif
#endif
`, InputOptions{})

	for _, name := range []string{"inside", "featured", "fallback"} {
		findDecl[*ir.FunctionDecl](t, decls, name)
	}
}

func TestHeaderProvider_Declarations(t *testing.T) {
	dir := t.TempDir()
	include := filepath.Join(dir, "include")
	if err := os.MkdirAll(include, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(include, "types.h"), []byte("typedef int handle_t;\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(include, "api.h"), []byte("handle_t open_it(void);\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	decls, err := HeaderProvider{}.Declarations(context.Background(), InputOptions{
		Headers:     []string{"types.h", "api.h"},
		IncludeDirs: []string{include},
	})
	if err != nil {
		t.Fatalf("Declarations() error = %v", err)
	}
	open := findDecl[*ir.FunctionDecl](t, decls, "open_it")
	if got := open.Result.Canonical().Kind(); got != ir.KindInt {
		t.Errorf("typedef from earlier header canonical = %s, want Int", got)
	}
	if open.Source.File != filepath.Join(include, "api.h") {
		t.Errorf("Source.File = %q", open.Source.File)
	}
}

func TestHeaderProvider_Errors(t *testing.T) {
	ctx := context.Background()

	if _, err := (HeaderProvider{}).Declarations(ctx, InputOptions{}); err == nil {
		t.Error("Declarations() with no headers succeeded")
	}

	_, err := HeaderProvider{}.Declarations(ctx, InputOptions{
		Headers:     []string{"missing.h"},
		IncludeDirs: []string{t.TempDir()},
	})
	if !errors.Is(err, ErrHeaderNotFound) {
		t.Errorf("error = %v, want ErrHeaderNotFound", err)
	}
}

func TestFindHeader(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "found.h")
	if err := os.WriteFile(path, nil, 0o644); err != nil {
		t.Fatal(err)
	}

	got, err := FindHeader("found.h", []string{t.TempDir(), dir})
	if err != nil || got != path {
		t.Errorf("FindHeader() = %q, %v; want %q", got, err, path)
	}
	if got, err := FindHeader(path, nil); err != nil || got != path {
		t.Errorf("FindHeader(abs) = %q, %v; want %q", got, err, path)
	}
	if _, err := FindHeader(filepath.Join(dir, "nope.h"), nil); !errors.Is(err, ErrHeaderNotFound) {
		t.Errorf("FindHeader(missing abs) error = %v", err)
	}
	if _, err := FindHeader(dir, nil); !errors.Is(err, ErrHeaderNotFound) {
		t.Errorf("FindHeader(directory) error = %v", err)
	}
}
