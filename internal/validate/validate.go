// Package validate checks configuration structs with validator tags and
// turns failures into readable errors.
package validate

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

var (
	validate = validator.New()

	constantNameRe = regexp.MustCompile(`^[A-Z][A-Za-z0-9_]*$`)
	libraryNameRe  = regexp.MustCompile(`^[A-Za-z0-9_][A-Za-z0-9_.+\-]*$`)
)

func init() {
	// crystal_const: a Crystal constant or type name (LibFoo).
	_ = validate.RegisterValidation("crystal_const", func(fl validator.FieldLevel) bool {
		return constantNameRe.MatchString(fl.Field().String())
	})
	// libname: a name passed to the linker with -l.
	_ = validate.RegisterValidation("libname", func(fl validator.FieldLevel) bool {
		return libraryNameRe.MatchString(fl.Field().String())
	})
}

// Error lists the fields that failed validation.
type Error struct {
	// Fields maps each failing field's name to its message.
	Fields map[string]string

	messages []string
}

func (e *Error) Error() string {
	return "invalid configuration: " + strings.Join(e.messages, "; ")
}

// Struct validates v. Validation failures are returned as *Error; other
// errors (such as a non-struct argument) are returned unchanged.
func Struct(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}

	var valErrs validator.ValidationErrors
	if !errors.As(err, &valErrs) {
		return err
	}
	verr := &Error{Fields: make(map[string]string, len(valErrs))}
	for _, fe := range valErrs {
		msg := formatFieldError(fe)
		verr.Fields[fe.Field()] = msg
		verr.messages = append(verr.messages, fe.Field()+": "+msg)
	}
	return verr
}

// formatFieldError converts a validator.FieldError to a human-readable message.
func formatFieldError(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "required"
	case "required_without":
		return fmt.Sprintf("required when %s is not set", fe.Param())
	case "excluded_with":
		return fmt.Sprintf("cannot be combined with %s", fe.Param())
	case "crystal_const":
		return fmt.Sprintf("%q is not a Crystal constant name", fe.Value())
	case "libname":
		return fmt.Sprintf("%q is not a library name", fe.Value())
	case "min":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "oneof":
		return fmt.Sprintf("must be one of: %s", fe.Param())
	case "endswith":
		return fmt.Sprintf("must end with %q", fe.Param())
	case "dir":
		return fmt.Sprintf("%q is not a directory", fe.Value())
	default:
		if fe.Param() != "" {
			return fmt.Sprintf("failed %s=%s validation", fe.Tag(), fe.Param())
		}
		return fmt.Sprintf("failed %s validation", fe.Tag())
	}
}
