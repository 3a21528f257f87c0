package check

import (
	"context"
	"fmt"

	"github.com/broady/crgen/bindgen"
	"github.com/broady/crgen/cmd/crgen/internal/input"
)

type Cmd struct {
	input.Options

	Strict bool `help:"Fail when warnings are reported."`
}

func (c *Cmd) Run(ctx context.Context, env *input.Env) error {
	cfg, err := c.Config(env)
	if err != nil {
		return err
	}

	// Run the whole pipeline without writing anything
	result, err := bindgen.FromConfig(cfg).Generate(ctx)
	if err != nil {
		return err
	}

	for _, f := range result.Files {
		fmt.Fprintf(env.Stdout, "✓ %s: %d bytes\n", f.Path, len(f.Content))
	}
	fmt.Fprintf(env.Stdout, "✓ %d declarations\n", result.Declarations)
	for _, w := range result.Warnings {
		fmt.Fprintf(env.Stdout, "! %s: %s\n", w.Code, w.Message)
	}

	if c.Strict && len(result.Warnings) > 0 {
		return fmt.Errorf("%d warnings", len(result.Warnings))
	}
	if len(result.Warnings) == 0 {
		fmt.Fprintln(env.Stdout, "✓ All types resolvable")
	}
	return nil
}
