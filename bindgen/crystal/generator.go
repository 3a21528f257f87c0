package crystal

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/broady/crgen/bindgen/ir"
)

const (
	defaultIndentSize    = 2
	defaultCommentPrefix = "# "
	fileExtension        = ".cr"
)

// CrystalGenerator renders a registry as a Crystal `lib` binding.
type CrystalGenerator struct{}

var _ Generator = (*CrystalGenerator)(nil)

// Name returns "crystal".
func (g *CrystalGenerator) Name() string {
	return "crystal"
}

// Generate renders every declaration in reg into a single source file and
// writes it to opts.Sink. Nothing is written if any declaration fails.
func (g *CrystalGenerator) Generate(ctx context.Context, reg *ir.Registry, opts GenerateOptions) (*GenerateResult, error) {
	if reg == nil {
		return nil, errors.New("registry is nil")
	}
	if opts.Sink == nil {
		return nil, errors.New("sink is required")
	}
	cfg := opts.Config
	if cfg.ModuleName == "" {
		return nil, errors.New("module name is required")
	}
	if cfg.Library == "" {
		return nil, errors.New("library name is required")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	content, warnings, err := Render(reg, cfg)
	if err != nil {
		return nil, err
	}

	path := OutputPath(cfg)
	if err := opts.Sink.WriteFile(ctx, path, []byte(content)); err != nil {
		return nil, fmt.Errorf("failed to write %s: %w", path, err)
	}

	return &GenerateResult{
		Files:                 []OutputFile{{Path: path, Size: int64(len(content))}},
		DeclarationsGenerated: reg.Len(),
		Warnings:              warnings,
	}, nil
}

// OutputPath returns the file the binding for cfg is written to.
func OutputPath(cfg GeneratorConfig) string {
	if cfg.FileName != "" {
		return cfg.FileName
	}
	return strings.ToLower(cfg.ModuleName) + fileExtension
}

// Render returns the complete source unit for reg. It is deterministic:
// the same registry and config always produce identical text.
func Render(reg *ir.Registry, cfg GeneratorConfig) (string, []ir.Warning, error) {
	indentSize := cfg.IndentSize
	if indentSize <= 0 {
		indentSize = defaultIndentSize
	}
	commentPrefix := cfg.CommentPrefix
	if commentPrefix == "" {
		commentPrefix = defaultCommentPrefix
	}

	w := NewWriter(strings.Repeat(" ", indentSize), commentPrefix)
	resolver := NewResolver(reg)
	em := NewEmitter(resolver, w, cfg)

	if cfg.Frontmatter != "" {
		w.Comment(cfg.Frontmatter)
		w.Blank()
	}
	w.Puts(linkDirective(cfg))
	w.Puts("lib " + cfg.ModuleName)

	warnings := append([]ir.Warning(nil), resolver.Renamed()...)
	err := w.Indent(func() error {
		first := true
		for _, kind := range ir.DeclKinds {
			decls := reg.ByKind(kind)
			if len(decls) == 0 {
				continue
			}
			if !first {
				w.Blank()
			}
			first = false

			for i, d := range decls {
				if i > 0 && isBlockKind(kind) {
					w.Blank()
				}
				ws, err := em.EmitDeclaration(d)
				if err != nil {
					return err
				}
				warnings = append(warnings, ws...)
			}
		}
		return nil
	})
	if err != nil {
		return "", nil, err
	}
	w.Puts("end")

	return w.String(), warnings, nil
}

// isBlockKind reports whether declarations of kind span several lines and
// are separated by blank lines.
func isBlockKind(kind ir.DeclKind) bool {
	return kind == ir.DeclEnum || kind == ir.DeclRecord
}

// linkDirective returns the @[Link] annotation naming the native library.
func linkDirective(cfg GeneratorConfig) string {
	if cfg.LibDir == "" && len(cfg.LinkFlags) == 0 {
		return "@[Link(" + quoteString(cfg.Library) + ")]"
	}

	var flags []string
	if cfg.LibDir != "" {
		flags = append(flags, "-L"+cfg.LibDir)
	}
	flags = append(flags, "-l"+cfg.Library)
	flags = append(flags, cfg.LinkFlags...)
	return "@[Link(ldflags: " + quoteString(strings.Join(flags, " ")) + ")]"
}
