package bindgen

import (
	"context"
	"io"
	"log/slog"

	"github.com/broady/crgen/bindgen/ir"
	"github.com/broady/crgen/bindgen/sink"
)

// Generator provides a fluent API for binding generation.
// Create with FromHeaders(), FromDocument() or FromDeclarations() and
// configure with method chaining.
//
// Example:
//
//	bindgen.FromHeaders("mruby.h").
//	    CFlags("-I/usr/local/include").
//	    Module("LibMRuby").
//	    Library("mruby").
//	    Prefixes("mrb_", "MRB_").
//	    ToDir(ctx, "./src")
type Generator struct {
	cfg Config
}

// FromHeaders creates a Generator that reads the given C headers.
func FromHeaders(headers ...string) *Generator {
	return &Generator{cfg: Config{Headers: headers}}
}

// FromDocument creates a Generator that reads a JSON declaration
// document. Pass "-" and set Reader to read from a stream.
func FromDocument(path string) *Generator {
	return &Generator{cfg: Config{Document: path}}
}

// FromDeclarations creates a Generator for declarations built by the
// caller.
func FromDeclarations(decls ...ir.Declaration) *Generator {
	if decls == nil {
		decls = []ir.Declaration{}
	}
	return &Generator{cfg: Config{Declarations: decls}}
}

// FromConfig creates a Generator from a complete Config.
func FromConfig(cfg Config) *Generator {
	return &Generator{cfg: cfg}
}

// Module sets the name of the generated `lib` block.
func (g *Generator) Module(name string) *Generator {
	g.cfg.Module = name
	return g
}

// Library sets the native library to link against.
func (g *Generator) Library(name string) *Generator {
	g.cfg.Library = name
	return g
}

// LibDir sets the linker search directory.
func (g *Generator) LibDir(dir string) *Generator {
	g.cfg.LibDir = dir
	return g
}

// CFlags adds C compiler flags. -I directories are searched for headers.
func (g *Generator) CFlags(flags ...string) *Generator {
	g.cfg.CFlags = append(g.cfg.CFlags, flags...)
	return g
}

// Prefixes adds name prefixes to strip from C identifiers.
func (g *Generator) Prefixes(prefixes ...string) *Generator {
	g.cfg.Prefixes = append(g.cfg.Prefixes, prefixes...)
	return g
}

// LinkFlags adds extra linker flags.
func (g *Generator) LinkFlags(flags ...string) *Generator {
	g.cfg.LinkFlags = append(g.cfg.LinkFlags, flags...)
	return g
}

// WithMacros turns object-like macros with literal values into constants.
func (g *Generator) WithMacros() *Generator {
	g.cfg.Macros = true
	return g
}

// WithComments writes C documentation comments into the binding.
func (g *Generator) WithComments() *Generator {
	g.cfg.Comments = true
	return g
}

// Frontmatter adds a comment to the top of the generated file.
func (g *Generator) Frontmatter(content string) *Generator {
	g.cfg.Frontmatter = content
	return g
}

// FileName overrides the generated file's name.
func (g *Generator) FileName(name string) *Generator {
	g.cfg.FileName = name
	return g
}

// IndentSize sets the number of spaces per indent level.
func (g *Generator) IndentSize(n int) *Generator {
	g.cfg.IndentSize = n
	return g
}

// Reader supplies the document for FromDocument("-").
func (g *Generator) Reader(r io.Reader) *Generator {
	g.cfg.DocumentReader = r
	return g
}

// Logger sets the logger for progress and diagnostics.
func (g *Generator) Logger(l *slog.Logger) *Generator {
	g.cfg.Logger = l
	return g
}

// Config returns a copy of the accumulated configuration.
func (g *Generator) Config() Config {
	return g.cfg
}

// ToDir generates files into dir.
// This is a terminal operation that writes files to disk.
func (g *Generator) ToDir(ctx context.Context, dir string) (*GenerateResult, error) {
	g.cfg.OutDir = dir
	return Generate(ctx, &g.cfg, sink.NewFilesystemSink(dir))
}

// ToSink generates files into out.
func (g *Generator) ToSink(ctx context.Context, out sink.OutputSink) (*GenerateResult, error) {
	return Generate(ctx, &g.cfg, out)
}

// Generate returns generated files in memory without writing to disk.
// Use ToDir() to write files to disk instead.
func (g *Generator) Generate(ctx context.Context) (*GenerateResult, error) {
	return Generate(ctx, &g.cfg, nil)
}
