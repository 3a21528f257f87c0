package gen

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/broady/crgen/bindgen"
	"github.com/broady/crgen/bindgen/sink"
	"github.com/broady/crgen/cmd/crgen/internal/input"
)

type Cmd struct {
	input.Options

	Out    string `help:"Output directory (default: the profile's output, or the current directory)." short:"o"`
	Stdout bool   `help:"Write the binding to stdout instead of a file."`
}

func (c *Cmd) Run(ctx context.Context, env *input.Env) error {
	cfg, err := c.Config(env)
	if err != nil {
		return err
	}

	if c.Stdout {
		_, err := bindgen.FromConfig(cfg).ToSink(ctx, sink.NewWriterSink(env.Stdout))
		return err
	}

	// Resolve output directory
	out := c.Out
	if out == "" {
		out = cfg.OutDir
	}
	if out == "" {
		out = "."
	}
	outDir, err := filepath.Abs(out)
	if err != nil {
		return fmt.Errorf("resolve output path: %w", err)
	}

	result, err := bindgen.FromConfig(cfg).ToDir(ctx, outDir)
	if err != nil {
		return err
	}
	for _, f := range result.Files {
		fmt.Fprintf(env.Stdout, "✓ Wrote %s (%d declarations, %d warnings)\n",
			filepath.Join(outDir, f.Path), result.Declarations, len(result.Warnings))
	}
	return nil
}
