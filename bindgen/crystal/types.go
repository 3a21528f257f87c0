package crystal

import (
	"context"

	"github.com/broady/crgen/bindgen/ir"
	"github.com/broady/crgen/bindgen/sink"
)

// Generator transforms a declaration registry into target language source.
type Generator interface {
	// Name returns the generator's identifier.
	Name() string

	// Generate renders reg and writes the result to opts.Sink.
	Generate(ctx context.Context, reg *ir.Registry, opts GenerateOptions) (*GenerateResult, error)
}

// GenerateOptions configures generation behavior.
type GenerateOptions struct {
	// Sink receives generated output files.
	Sink sink.OutputSink

	// Config contains the output settings.
	Config GeneratorConfig
}

// GenerateResult contains generation output metadata.
type GenerateResult struct {
	// Files lists all files that were written.
	Files []OutputFile

	// DeclarationsGenerated counts the declarations rendered.
	DeclarationsGenerated int

	// Warnings contains non-fatal issues encountered.
	Warnings []ir.Warning
}

// OutputFile describes a generated file.
type OutputFile struct {
	// Path is the relative path of the generated file.
	Path string

	// Size is the number of bytes written.
	Size int64
}

// GeneratorConfig holds the values the Crystal binding is rendered with.
type GeneratorConfig struct {
	// ModuleName names the `lib` block, e.g. "LibSQLite3". Required.
	ModuleName string

	// Library is the native library to link, without the "lib" prefix
	// or extension, e.g. "sqlite3". Required.
	Library string

	// LibDir is added as a -L search path when set.
	LibDir string

	// LinkFlags are appended verbatim to the linker flags, e.g. "-lm".
	LinkFlags []string

	// IndentSize is the number of spaces per indent level (default: 2).
	IndentSize int

	// CommentPrefix starts comment lines (default: "# ").
	CommentPrefix string

	// EmitComments writes C documentation comments above declarations.
	EmitComments bool

	// Frontmatter is written as comment lines at the top of the file.
	Frontmatter string

	// FileName overrides the output file name. The default is the
	// downcased module name with a ".cr" extension.
	FileName string
}
