// Package bindgen generates Crystal `lib` bindings for C libraries.
//
// Declarations come from C headers, from a JSON declaration document, or
// from a caller-built slice; they are deduplicated into a registry and
// rendered by the Crystal backend into a single source file.
package bindgen

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/broady/crgen/bindgen/crystal"
	"github.com/broady/crgen/bindgen/ir"
	"github.com/broady/crgen/bindgen/provider"
	"github.com/broady/crgen/bindgen/sink"
	"github.com/broady/crgen/internal/validate"
)

// Config holds the configuration for binding generation.
type Config struct {
	// Module names the generated `lib` block, e.g. "LibMRuby". Required.
	Module string `validate:"required,crystal_const"`

	// Library is the native library to link, e.g. "mruby". Required.
	Library string `validate:"required,libname"`

	// LibDir is passed to the linker as a -L search path.
	LibDir string

	// Headers are the C headers to read. Relative names are searched in
	// the working directory and then in the -I directories of CFlags.
	Headers []string

	// Document is a JSON declaration document to read instead of headers.
	// "-" reads DocumentReader.
	Document string

	// DocumentReader supplies the document when Document is "-".
	DocumentReader io.Reader `validate:"-"`

	// Declarations are used as-is instead of reading any input.
	Declarations []ir.Declaration `validate:"-"`

	// CFlags are C compiler flags. -I directories locate headers; other
	// flags are recorded and ignored.
	CFlags []string

	// Prefixes are stripped from C names before rendering, e.g. "mrb_".
	Prefixes []string

	// LinkFlags are appended to the linker flags, e.g. "-lm".
	LinkFlags []string

	// Macros turns object-like macros with literal values into constants.
	Macros bool

	// Comments writes C documentation comments above declarations.
	Comments bool

	// Frontmatter is written as a comment at the top of the file.
	Frontmatter string

	// FileName overrides the output file name (default: "<module>.cr").
	FileName string `validate:"omitempty,endswith=.cr"`

	// IndentSize is the number of spaces per indent level (default: 2).
	IndentSize int `validate:"omitempty,min=1,max=8"`

	// OutDir is the directory ToDir writes into.
	OutDir string

	// Logger receives progress and diagnostics. Nil means slog.Default().
	Logger *slog.Logger `validate:"-"`
}

// GenerateResult contains the outcome of a generation run.
type GenerateResult struct {
	// Files lists the generated files with their content.
	Files []GeneratedFile

	// Declarations counts the distinct declarations rendered.
	Declarations int

	// Warnings contains non-fatal issues encountered.
	Warnings []ir.Warning

	// Duration is the wall time of the run.
	Duration time.Duration
}

// GeneratedFile is one generated output file.
type GeneratedFile struct {
	// Path is relative to the output directory.
	Path string

	// Content is the file's content.
	Content []byte
}

// ErrNoInput is returned when neither headers, a document nor
// declarations are configured.
var ErrNoInput = errors.New("no input: set headers, a document or declarations")

// ErrConflictingInputs is returned when more than one input is configured.
var ErrConflictingInputs = errors.New("conflicting inputs: set only one of headers, document or declarations")

// Generate runs the provider, registry and Crystal backend for cfg and
// writes the result to out. A nil out keeps the output in memory only.
func Generate(ctx context.Context, cfg *Config, out sink.OutputSink) (*GenerateResult, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}
	cfg = applyConfigDefaults(cfg)
	if err := validateConfig(cfg); err != nil {
		return nil, err
	}
	log := cfg.Logger
	start := time.Now()

	decls, err := loadDeclarations(ctx, cfg)
	if err != nil {
		return nil, err
	}
	reg := ir.NewRegistry(decls)
	log.Debug("built registry", "declarations", len(decls), "distinct", reg.Len())

	mem := sink.NewMemorySink()
	gen := &crystal.CrystalGenerator{}
	res, err := gen.Generate(ctx, reg, crystal.GenerateOptions{
		Sink:   mem,
		Config: crystalConfig(cfg),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to generate Crystal: %w", err)
	}

	result := &GenerateResult{
		Declarations: res.DeclarationsGenerated,
		Warnings:     res.Warnings,
	}
	for _, f := range res.Files {
		content := mem.Get(f.Path)
		if out != nil {
			if err := out.WriteFile(ctx, f.Path, content); err != nil {
				return nil, fmt.Errorf("failed to write %s: %w", f.Path, err)
			}
		}
		result.Files = append(result.Files, GeneratedFile{Path: f.Path, Content: content})
	}
	result.Duration = time.Since(start)

	for _, w := range result.Warnings {
		attrs := []any{"code", w.Code, "declaration", w.Declaration}
		if w.Source != nil {
			attrs = append(attrs, "source", fmt.Sprintf("%s:%d", w.Source.File, w.Source.Line))
		}
		log.Warn(w.Message, attrs...)
	}
	log.Info("generated bindings",
		"module", cfg.Module,
		"declarations", result.Declarations,
		"warnings", len(result.Warnings),
		"duration", result.Duration)
	return result, nil
}

// applyConfigDefaults returns a copy of cfg with defaults filled in.
func applyConfigDefaults(cfg *Config) *Config {
	result := *cfg
	if result.Logger == nil {
		result.Logger = slog.Default()
	}
	if result.IndentSize == 0 {
		result.IndentSize = 2
	}
	return &result
}

func validateConfig(cfg *Config) error {
	inputs := 0
	if len(cfg.Headers) > 0 {
		inputs++
	}
	if cfg.Document != "" {
		inputs++
	}
	if cfg.Declarations != nil {
		inputs++
	}
	switch {
	case inputs == 0:
		return ErrNoInput
	case inputs > 1:
		return ErrConflictingInputs
	}
	return validate.Struct(cfg)
}

func loadDeclarations(ctx context.Context, cfg *Config) ([]ir.Declaration, error) {
	if cfg.Declarations != nil {
		return cfg.Declarations, nil
	}

	var p provider.Provider
	if cfg.Document != "" {
		p = &provider.DocumentProvider{Path: cfg.Document, Reader: cfg.DocumentReader}
	} else {
		p = provider.HeaderProvider{}
	}

	includeDirs, ignored := splitCFlags(cfg.CFlags)
	if len(ignored) > 0 {
		cfg.Logger.Debug("ignoring compiler flags", "flags", strings.Join(ignored, " "))
	}
	opts := provider.InputOptions{
		Headers:     cfg.Headers,
		IncludeDirs: includeDirs,
		Namer:       ir.Namer{Prefixes: cfg.Prefixes},
		Macros:      cfg.Macros,
		Logger:      cfg.Logger,
	}

	cfg.Logger.Debug("reading declarations", "provider", p.Name())
	decls, err := p.Declarations(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to read declarations: %w", err)
	}
	return decls, nil
}

// splitCFlags returns the -I directories of flags, in order, and the
// flags that were not include directories. Both "-Idir" and "-I dir" are
// accepted.
func splitCFlags(flags []string) (includeDirs, rest []string) {
	for i := 0; i < len(flags); i++ {
		flag := flags[i]
		switch {
		case flag == "-I" && i+1 < len(flags):
			i++
			includeDirs = append(includeDirs, flags[i])
		case strings.HasPrefix(flag, "-I") && len(flag) > 2:
			includeDirs = append(includeDirs, flag[2:])
		default:
			rest = append(rest, flag)
		}
	}
	return includeDirs, rest
}

func crystalConfig(cfg *Config) crystal.GeneratorConfig {
	return crystal.GeneratorConfig{
		ModuleName:   cfg.Module,
		Library:      cfg.Library,
		LibDir:       cfg.LibDir,
		LinkFlags:    cfg.LinkFlags,
		IndentSize:   cfg.IndentSize,
		EmitComments: cfg.Comments,
		Frontmatter:  cfg.Frontmatter,
		FileName:     cfg.FileName,
	}
}
