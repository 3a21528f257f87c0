package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"

	"github.com/alecthomas/kong"

	"github.com/broady/crgen/cmd/crgen/internal/check"
	"github.com/broady/crgen/cmd/crgen/internal/gen"
	"github.com/broady/crgen/cmd/crgen/internal/input"
)

type CLI struct {
	LogLevel  string `help:"Log level." enum:"debug,info,warn,error" default:"warn" name:"log-level"`
	LogFormat string `help:"Log format." enum:"text,json" default:"text" name:"log-format"`

	Version VersionCmd `cmd:"" help:"Print version information."`
	Gen     gen.Cmd    `cmd:"" help:"Generate a Crystal lib binding from C headers or a declaration document."`
	Check   check.Cmd  `cmd:"" help:"Resolve every declaration without writing files."`
}

type VersionCmd struct{}

func (c *VersionCmd) Run(env *input.Env) error {
	fmt.Fprintln(env.Stdout, Version())
	return nil
}

// newLogger builds the CLI logger. Unknown levels fall back to info.
func newLogger(w io.Writer, level, format string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: lvl}
	if format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	cli := &CLI{}
	kctx := kong.Parse(cli,
		kong.Name("crgen"),
		kong.Description("Generate Crystal FFI bindings for C libraries."),
		kong.UsageOnError(),
		kong.BindTo(ctx, (*context.Context)(nil)),
	)

	env := &input.Env{
		Stdin:  os.Stdin,
		Stdout: os.Stdout,
		Logger: newLogger(os.Stderr, cli.LogLevel, cli.LogFormat),
	}
	err := kctx.Run(env)
	kctx.FatalIfErrorf(err)
}
