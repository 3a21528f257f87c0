package ir

import (
	"fmt"
	"reflect"
	"strings"
)

// Registry holds the declarations of one generation run, keyed by
// canonical type key. It is built once and read-only afterwards.
type Registry struct {
	order  []Declaration
	byKey  map[TypeKey]Declaration
	byKind map[DeclKind][]Declaration
}

// NewRegistry builds a registry from the declarations a provider reported.
//
// Nil entries are dropped. Entries whose key was already seen are dropped
// (first seen wins). Anonymous declarations are given a placeholder name
// "anonymous_<kind>_<n>", numbered per kind in first-seen order.
// Declarations without a key are keyed by kind and name. Input
// declarations are never modified; renamed or rekeyed entries are copies.
func NewRegistry(decls []Declaration) *Registry {
	r := &Registry{
		byKey:  make(map[TypeKey]Declaration, len(decls)),
		byKind: make(map[DeclKind][]Declaration),
	}
	anonymous := make(map[string]int)

	for i, d := range decls {
		if isNilDecl(d) {
			continue
		}
		key := d.TypeKey()
		if key == "" {
			key = fallbackKey(i, d)
		}
		if _, seen := r.byKey[key]; seen {
			continue
		}
		id := d.Ident()
		if id.IsZero() {
			label := placeholderLabel(d)
			anonymous[label]++
			id = NewIdentifier(fmt.Sprintf("anonymous_%s_%d", label, anonymous[label]))
		}
		if key != d.TypeKey() || id.Raw() != d.Ident().Raw() {
			d = d.withIdentity(key, id)
		}
		r.byKey[key] = d
		r.order = append(r.order, d)
		r.byKind[d.DeclKind()] = append(r.byKind[d.DeclKind()], d)
	}
	return r
}

// fallbackKey keys a declaration the provider left unkeyed. Anonymous
// entries are keyed by position so they never collapse into each other.
func fallbackKey(i int, d Declaration) TypeKey {
	kind := strings.ToLower(d.DeclKind().String())
	if d.Ident().IsZero() {
		return TypeKey(fmt.Sprintf("%s:#%d", kind, i))
	}
	return TypeKey(kind + ":" + d.Ident().Raw())
}

func placeholderLabel(d Declaration) string {
	switch d := d.(type) {
	case *RecordDecl:
		if d.Union {
			return "union"
		}
		return "struct"
	case *EnumDecl:
		return "enum"
	case *FunctionDecl:
		return "function"
	default:
		return "constant"
	}
}

// isNilDecl reports whether d is nil or a typed nil pointer.
func isNilDecl(d Declaration) bool {
	if d == nil {
		return true
	}
	v := reflect.ValueOf(d)
	return v.Kind() == reflect.Pointer && v.IsNil()
}

// Lookup returns the declaration registered under key.
func (r *Registry) Lookup(key TypeKey) (Declaration, bool) {
	d, ok := r.byKey[key]
	return d, ok
}

// Len returns the number of registered declarations.
func (r *Registry) Len() int {
	return len(r.order)
}

// Declarations returns all declarations in first-seen order.
func (r *Registry) Declarations() []Declaration {
	out := make([]Declaration, len(r.order))
	copy(out, r.order)
	return out
}

// ByKind returns the declarations of one kind in first-seen order.
func (r *Registry) ByKind(kind DeclKind) []Declaration {
	decls := r.byKind[kind]
	out := make([]Declaration, len(decls))
	copy(out, decls)
	return out
}

// Enums returns the enum declarations in first-seen order.
func (r *Registry) Enums() []*EnumDecl {
	return collect[*EnumDecl](r.byKind[DeclEnum])
}

// Records returns the struct and union declarations in first-seen order.
func (r *Registry) Records() []*RecordDecl {
	return collect[*RecordDecl](r.byKind[DeclRecord])
}

// Functions returns the function declarations in first-seen order.
func (r *Registry) Functions() []*FunctionDecl {
	return collect[*FunctionDecl](r.byKind[DeclFunction])
}

// Constants returns the constant declarations in first-seen order.
func (r *Registry) Constants() []*ConstantDecl {
	return collect[*ConstantDecl](r.byKind[DeclConstant])
}

func collect[T Declaration](decls []Declaration) []T {
	out := make([]T, 0, len(decls))
	for _, d := range decls {
		if t, ok := d.(T); ok {
			out = append(out, t)
		}
	}
	return out
}
