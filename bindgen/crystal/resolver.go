package crystal

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/broady/crgen/bindgen/ir"
)

// Names of the Crystal types the resolver falls back to.
const (
	OpaqueType    = "Void"
	OpaquePointer = OpaqueType + "*"

	// fallbackNamedType stands in for enums and records with no
	// registered declaration.
	fallbackNamedType = "Int32"
)

// simpleTypes maps fixed-width C scalars to Crystal primitives.
//
// The table is kept exactly as the generator it replaces defined it:
// int and unsigned int map to 16-bit types, long and unsigned long to
// 32-bit types, and plain char_u is absent. These are narrower than the
// common LP64 ABI; see DESIGN.md before changing them.
var simpleTypes = map[ir.TypeKind]string{
	ir.KindVoid:      "Void",
	ir.KindBool:      "Bool",
	ir.KindUChar:     "UInt8",
	ir.KindUShort:    "UInt16",
	ir.KindUInt:      "UInt16",
	ir.KindULong:     "UInt32",
	ir.KindULongLong: "UInt64",
	ir.KindCharS:     "UInt8",
	ir.KindSChar:     "UInt8",
	ir.KindShort:     "Int16",
	ir.KindInt:       "Int16",
	ir.KindLong:      "Int32",
	ir.KindLongLong:  "Int64",
	ir.KindFloat:     "Float32",
	ir.KindDouble:    "Float64",
}

// Resolver translates C type references into Crystal type expressions.
//
// Declaration names are rendered once, when the resolver is built; the
// resolver holds no other state and is safe for concurrent use.
type Resolver struct {
	registry *ir.Registry
	names    map[ir.TypeKey]string
	renamed  []ir.Warning
}

// NewResolver creates a resolver over reg and renders every declaration
// name: ClassName for enums and records, Downcase for functions and
// Constant for constants.
//
// Types and constants share one namespace and functions another. When two
// declarations render to the same name, the later one gets a numeric
// suffix and a WarnRenamedDuplicate warning.
func NewResolver(reg *ir.Registry) *Resolver {
	r := &Resolver{
		registry: reg,
		names:    make(map[ir.TypeKey]string, reg.Len()),
	}
	funcs, consts := newNameSet(), newNameSet()
	for _, d := range reg.Declarations() {
		rendered := renderDeclName(d)
		names := consts
		if d.DeclKind() == ir.DeclFunction {
			names = funcs
		}
		name := names.claim(rendered)
		if name != rendered {
			r.renamed = append(r.renamed, newWarning(d, WarnRenamedDuplicate,
				fmt.Sprintf("%s %s renders as %s, which is already taken; using %s",
					d.DeclKind(), d.Ident().Raw(), rendered, name)))
		}
		r.names[d.TypeKey()] = name
	}
	return r
}

// Renamed returns a warning for every declaration whose rendered name was
// suffixed to keep it unique.
func (r *Resolver) Renamed() []ir.Warning {
	return r.renamed
}

func renderDeclName(d ir.Declaration) string {
	switch d.DeclKind() {
	case ir.DeclFunction:
		return Downcase(d.Ident())
	case ir.DeclConstant:
		return Constant(d.Ident())
	default:
		return ClassName(d.Ident())
	}
}

// DeclName returns the Crystal name of a registered declaration.
func (r *Resolver) DeclName(d ir.Declaration) string {
	if name, ok := r.names[d.TypeKey()]; ok {
		return name
	}
	return renderDeclName(d)
}

// lookupName returns the Crystal name of the declaration registered under key.
func (r *Resolver) lookupName(key ir.TypeKey) (string, bool) {
	if key == "" {
		return "", false
	}
	if _, ok := r.registry.Lookup(key); !ok {
		return "", false
	}
	return r.names[key], true
}

// Resolve returns the Crystal type expression for t.
// It fails with *UnsupportedTypeKindError for kinds with no translation.
func (r *Resolver) Resolve(t ir.Type) (string, error) {
	ctype := t.Canonical()
	kind := ctype.Kind()
	if name, ok := simpleTypes[kind]; ok {
		return name, nil
	}

	switch kind {
	case ir.KindPointer:
		return r.resolvePointer(t, ctype.Pointee()), nil
	case ir.KindEnum, ir.KindRecord:
		if name, ok := r.lookupName(ctype.Key()); ok {
			return name, nil
		}
		return fallbackNamedType, nil
	case ir.KindConstantArray:
		elem, err := r.Resolve(ctype.Element())
		if err != nil {
			return "", err
		}
		return staticArray(elem, ctype.ArraySize()), nil
	default:
		return "", &UnsupportedTypeKindError{Kind: kind}
	}
}

// resolvePointer translates a pointer whose canonical pointee is pointee.
// t is the original, non-canonical reference.
func (r *Resolver) resolvePointer(t, pointee ir.Type) string {
	if name, ok := simpleTypes[pointee.Kind()]; ok {
		return name + "*"
	}

	switch pointee.Kind() {
	case ir.KindRecord:
		if name, ok := r.lookupName(pointee.Declaration().Key); ok {
			return name + "*"
		}
		return OpaquePointer
	case ir.KindFunctionProto:
		return OpaquePointer
	}

	target, depth := peelPointers(t)
	// The canonical type is a pointer, so the result always is one, even
	// when the spelled type is a named alias of the pointer itself.
	if depth == 0 {
		depth = 1
	}
	stars := strings.Repeat("*", depth)
	if name, ok := r.registeredName(target); ok {
		return name + stars
	}
	return OpaqueType + stars
}

// registeredName returns the name of the declaration behind t: its own
// declaration, or for typedefs the declaration of the type they name.
func (r *Resolver) registeredName(t ir.Type) (string, bool) {
	if name, ok := r.lookupName(t.Declaration().Key); ok {
		return name, true
	}
	return r.lookupName(t.Canonical().Key())
}

// peelPointers descends through pointer layers of the spelled type t until
// it reaches a type with a declaration name. It returns that bottom type
// and the number of pointer layers traversed.
//
// An unexposed type, or any other unnamed non-pointer kind, stops the walk
// where it is. Each iteration either stops or removes one pointer layer.
func peelPointers(t ir.Type) (ir.Type, int) {
	depth := 0
	current := t
	for {
		if current.Declaration().Spelling != "" {
			return current, depth
		}
		if current.Kind() != ir.KindPointer {
			return current, depth
		}
		depth++
		current = current.Pointee()
	}
}

// staticArray renders a fixed-size array of elem.
func staticArray(elem string, n int64) string {
	return "StaticArray(" + elem + ", " + strconv.FormatInt(n, 10) + ")"
}
