// Package profile loads binding profiles: small files that record how to
// generate one library's bindings.
//
//	# mruby
//	module   = "LibMRuby"
//	library  = "mruby"
//	libdir   = "/usr/local/lib"
//	headers  = ["mruby.h", "mruby/value.h"]
//	cflags   = ["-I/usr/local/include"]
//	prefixes = ["mrb_", "MRB_"]
//	macros   = true
//
// Values are quoted strings, integers, true/false, or bracketed lists of
// those. Relative paths are resolved against the profile's directory.
package profile

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
	"github.com/gorilla/schema"

	"github.com/broady/crgen/internal/validate"
)

// DefaultName is the profile file looked up when none is given.
const DefaultName = "crgen.profile"

// Profile is a decoded binding profile.
type Profile struct {
	Module      string   `schema:"module" validate:"required,crystal_const"`
	Library     string   `schema:"library" validate:"required,libname"`
	LibDir      string   `schema:"libdir"`
	Headers     []string `schema:"headers" validate:"required_without=Document"`
	Document    string   `schema:"document" validate:"excluded_with=Headers"`
	CFlags      []string `schema:"cflags"`
	Prefixes    []string `schema:"prefixes"`
	LinkFlags   []string `schema:"link_flags"`
	Macros      bool     `schema:"macros"`
	Comments    bool     `schema:"comments"`
	Output      string   `schema:"output"`
	File        string   `schema:"file" validate:"omitempty,endswith=.cr"`
	Frontmatter string   `schema:"frontmatter"`
	Indent      int      `schema:"indent" validate:"omitempty,min=1,max=8"`

	// Path is the file the profile was loaded from. Empty for Parse.
	Path string `schema:"-"`
}

var (
	profileLexer = lexer.MustSimple([]lexer.SimpleRule{
		{Name: "Comment", Pattern: `#[^\n]*`},
		{Name: "String", Pattern: `"(?:\\.|[^"\\])*"`},
		{Name: "Number", Pattern: `[-+]?\d+`},
		{Name: "Ident", Pattern: `[A-Za-z_][A-Za-z0-9_]*`},
		{Name: "Punct", Pattern: `[=\[\],]`},
		{Name: "Whitespace", Pattern: `\s+`},
	})

	profileParser = participle.MustBuild[file](
		participle.Lexer(profileLexer),
		participle.Unquote("String"),
		participle.Elide("Comment", "Whitespace"),
	)

	decoder = schema.NewDecoder()
)

type file struct {
	Entries []*entry `parser:"@@*"`
}

type entry struct {
	Pos   lexer.Position
	Key   string `parser:"@Ident '='"`
	Value *value `parser:"@@"`
}

type value struct {
	List   *list   `parser:"  @@"`
	Scalar *scalar `parser:"| @@"`
}

type list struct {
	Items []*scalar `parser:"'[' ( @@ ( ',' @@ )* )? ']'"`
}

type scalar struct {
	String *string  `parser:"  @String"`
	Number *string  `parser:"| @Number"`
	Bool   *boolean `parser:"| @('true' | 'false')"`
}

type boolean bool

func (b *boolean) Capture(values []string) error {
	*b = values[0] == "true"
	return nil
}

func (s *scalar) text() string {
	switch {
	case s.String != nil:
		return *s.String
	case s.Number != nil:
		return *s.Number
	case s.Bool != nil && bool(*s.Bool):
		return "true"
	default:
		return "false"
	}
}

// Load reads, decodes and validates the profile at path.
func Load(path string) (*Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read profile: %w", err)
	}
	p, err := Parse(path, data)
	if err != nil {
		return nil, err
	}
	p.Path = path
	p.resolve(filepath.Dir(path))
	return p, nil
}

// Parse decodes and validates profile source. filename is used in errors.
func Parse(filename string, data []byte) (*Profile, error) {
	ast, err := profileParser.ParseBytes(filename, data)
	if err != nil {
		return nil, fmt.Errorf("parse profile: %w", err)
	}

	values := url.Values{}
	for _, e := range ast.Entries {
		if _, dup := values[e.Key]; dup {
			return nil, fmt.Errorf("%s: duplicate key %q", e.Pos, e.Key)
		}
		if e.Value.List != nil {
			items := make([]string, len(e.Value.List.Items))
			for i, item := range e.Value.List.Items {
				items[i] = item.text()
			}
			values[e.Key] = items
			continue
		}
		values[e.Key] = []string{e.Value.Scalar.text()}
	}

	var p Profile
	if err := decoder.Decode(&p, values); err != nil {
		return nil, fmt.Errorf("%s: %w", filename, decodeError(err))
	}
	if err := validate.Struct(p); err != nil {
		return nil, fmt.Errorf("%s: %w", filename, err)
	}
	return &p, nil
}

// decodeError flattens schema's multi-error into one stable message.
func decodeError(err error) error {
	var multi schema.MultiError
	if !errors.As(err, &multi) {
		return err
	}
	keys := make([]string, 0, len(multi))
	for key := range multi {
		keys = append(keys, key)
	}
	slices.Sort(keys)

	msgs := make([]string, len(keys))
	for i, key := range keys {
		var unknown schema.UnknownKeyError
		if errors.As(multi[key], &unknown) {
			msgs[i] = fmt.Sprintf("unknown key %q", key)
			continue
		}
		msgs[i] = fmt.Sprintf("%s: %v", key, multi[key])
	}
	return errors.New(strings.Join(msgs, "; "))
}

// resolve makes relative paths relative to dir. Headers are only
// rewritten when they exist there, so names found through -I stay as
// written.
func (p *Profile) resolve(dir string) {
	join := func(path string) string {
		if path == "" || filepath.IsAbs(path) {
			return path
		}
		return filepath.Join(dir, path)
	}
	p.LibDir = join(p.LibDir)
	p.Document = join(p.Document)
	p.Output = join(p.Output)
	for i, h := range p.Headers {
		if joined := join(h); joined != h && fileExists(joined) {
			p.Headers[i] = joined
		}
	}
	for i, flag := range p.CFlags {
		if inc, ok := strings.CutPrefix(flag, "-I"); ok && inc != "" {
			p.CFlags[i] = "-I" + join(inc)
		}
	}
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
