// Package input resolves the command line and an optional binding profile
// into a bindgen configuration.
package input

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/broady/crgen/bindgen"
	"github.com/broady/crgen/internal/profile"
)

// Env carries the process streams and logger into a command.
type Env struct {
	Stdin  io.Reader
	Stdout io.Writer
	Logger *slog.Logger

	// Dir is where the default profile is looked up. Empty means the
	// working directory.
	Dir string
}

// Options are the input flags shared by gen and check. Flags override the
// profile; list flags replace the profile's list.
type Options struct {
	Headers   []string `arg:"" optional:"" help:"C headers to read."`
	Profile   string   `help:"Binding profile to read (default: ./crgen.profile if present)." short:"p"`
	Document  string   `help:"JSON declaration document to read instead of headers (\"-\" for stdin)." short:"d"`
	Module    string   `help:"Name of the generated lib block, e.g. LibMRuby." short:"m"`
	Library   string   `help:"Native library to link against." short:"l"`
	LibDir    string   `help:"Linker search directory." name:"libdir"`
	CFlags    []string `help:"C compiler flags; -I directories locate headers." name:"cflag" sep:"none"`
	Prefixes  []string `help:"Prefixes to strip from C names." name:"prefix"`
	LinkFlags []string `help:"Extra linker flags." name:"link-flag" sep:"none"`
	Macros    bool     `help:"Turn object-like macros into constants."`
	Comments  bool     `help:"Copy C documentation comments into the binding."`
}

// Config builds the generation config. The returned Config's OutDir is the
// profile's output directory, if any.
func (o *Options) Config(env *Env) (bindgen.Config, error) {
	var cfg bindgen.Config

	path := o.Profile
	if path == "" && len(o.Headers) == 0 && o.Document == "" {
		if def := filepath.Join(env.Dir, profile.DefaultName); fileExists(def) {
			path = def
		}
	}
	if path != "" {
		p, err := profile.Load(path)
		if err != nil {
			return cfg, err
		}
		cfg = fromProfile(p)
		env.Logger.Debug("loaded profile", "path", path)
	}

	if len(o.Headers) > 0 {
		cfg.Headers = o.Headers
		cfg.Document = ""
	}
	if o.Document != "" {
		cfg.Document = o.Document
		cfg.Headers = nil
	}
	override(&cfg.Module, o.Module)
	override(&cfg.Library, o.Library)
	override(&cfg.LibDir, o.LibDir)
	if len(o.CFlags) > 0 {
		cfg.CFlags = o.CFlags
	}
	if len(o.Prefixes) > 0 {
		cfg.Prefixes = o.Prefixes
	}
	if len(o.LinkFlags) > 0 {
		cfg.LinkFlags = o.LinkFlags
	}
	cfg.Macros = cfg.Macros || o.Macros
	cfg.Comments = cfg.Comments || o.Comments

	if cfg.Document == "-" {
		cfg.DocumentReader = env.Stdin
	}
	cfg.Logger = env.Logger
	return cfg, nil
}

func fromProfile(p *profile.Profile) bindgen.Config {
	return bindgen.Config{
		Module:      p.Module,
		Library:     p.Library,
		LibDir:      p.LibDir,
		Headers:     p.Headers,
		Document:    p.Document,
		CFlags:      p.CFlags,
		Prefixes:    p.Prefixes,
		LinkFlags:   p.LinkFlags,
		Macros:      p.Macros,
		Comments:    p.Comments,
		Frontmatter: p.Frontmatter,
		FileName:    p.File,
		IndentSize:  p.Indent,
		OutDir:      p.Output,
	}
}

func override(dst *string, flag string) {
	if flag != "" {
		*dst = flag
	}
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
