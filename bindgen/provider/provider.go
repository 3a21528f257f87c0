// Package provider implements input providers that read C declarations
// and convert them to the intermediate representation.
package provider

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/broady/crgen/bindgen/ir"
)

// Provider produces the declarations of one generation run.
type Provider interface {
	// Name returns the provider's identifier (e.g., "headers").
	Name() string

	// Declarations returns every declaration visible from the inputs in
	// source order. The result may contain duplicates; the registry
	// removes them.
	Declarations(ctx context.Context, opts InputOptions) ([]ir.Declaration, error)
}

// InputOptions configures declaration extraction.
type InputOptions struct {
	// Headers are the files to read. Relative names are looked up in the
	// working directory first and then in IncludeDirs.
	Headers []string

	// IncludeDirs are searched for headers, in order.
	IncludeDirs []string

	// Namer builds identifiers, stripping configured prefixes.
	Namer ir.Namer

	// Macros turns object-like macros with literal values into constants.
	Macros bool

	// Logger receives diagnostics. Nil means slog.Default().
	Logger *slog.Logger
}

func (o InputOptions) logger() *slog.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return slog.Default()
}

// ErrHeaderNotFound is returned when a header is in no search location.
var ErrHeaderNotFound = errors.New("header not found")

// ParseError reports input that could not be understood.
type ParseError struct {
	File   string
	Line   int
	Column int
	Msg    string
}

func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("%s:%d:%d: %s", e.File, e.Line, e.Column, e.Msg)
	}
	return fmt.Sprintf("%s: %s", e.File, e.Msg)
}

// FindHeader resolves header against the working directory and dirs.
func FindHeader(header string, dirs []string) (string, error) {
	if filepath.IsAbs(header) {
		if fileExists(header) {
			return header, nil
		}
		return "", fmt.Errorf("%w: %s", ErrHeaderNotFound, header)
	}
	if fileExists(header) {
		return header, nil
	}
	for _, dir := range dirs {
		candidate := filepath.Join(dir, header)
		if fileExists(candidate) {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("%w: %s (searched %d include directories)", ErrHeaderNotFound, header, len(dirs))
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
