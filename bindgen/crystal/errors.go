package crystal

import (
	"errors"
	"fmt"

	"github.com/broady/crgen/bindgen/ir"
)

// ErrUnsupportedTypeKind matches every *UnsupportedTypeKindError via errors.Is.
var ErrUnsupportedTypeKind = errors.New("unsupported type kind")

// UnsupportedTypeKindError is returned when a C type kind has no Crystal
// translation. It aborts the whole generation run.
type UnsupportedTypeKindError struct {
	Kind ir.TypeKind
}

func (e *UnsupportedTypeKindError) Error() string {
	return fmt.Sprintf("cannot translate type kind %s", e.Kind)
}

// Is reports whether target is ErrUnsupportedTypeKind.
func (e *UnsupportedTypeKindError) Is(target error) bool {
	return target == ErrUnsupportedTypeKind
}

// DeclarationError attaches the failing declaration to an emission error.
type DeclarationError struct {
	Kind ir.DeclKind
	Name string
	Err  error
}

func (e *DeclarationError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Kind, e.Name, e.Err)
}

func (e *DeclarationError) Unwrap() error {
	return e.Err
}
