// Package ir defines the intermediate representation of C declarations.
// These types are a language-agnostic description of what a C front end
// reports; generators translate them into target language source code.
package ir

// Documentation holds comments attached to a C declaration.
type Documentation struct {
	// Body is the comment text with comment markers removed.
	// May contain several lines.
	Body string
}

// IsZero returns true if the documentation is empty.
func (d Documentation) IsZero() bool {
	return d.Body == ""
}

// Source represents a location in a C header.
type Source struct {
	File   string
	Line   int
	Column int
}

// IsZero returns true if the source location is empty.
func (s Source) IsZero() bool {
	return s.File == "" && s.Line == 0 && s.Column == 0
}

// Warning represents a non-fatal issue encountered during generation.
type Warning struct {
	// Code is a machine-readable warning identifier.
	Code string

	// Message is a human-readable description.
	Message string

	// Source is the location that triggered the warning, if known.
	Source *Source

	// Declaration is the raw name of the declaration involved, if any.
	Declaration string
}
