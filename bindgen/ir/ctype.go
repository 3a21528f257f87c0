package ir

import (
	"strconv"
	"strings"
)

// TypeKey is the canonical identity of a C type or declaration.
// Two references with the same key denote the same entity; the Registry is
// keyed by it. Providers choose the key scheme (USRs, "struct:name", ...).
type TypeKey string

// DeclRef is the declaring entity of a type reference: the declaration's
// spelling as written in C (possibly empty for anonymous entities) and the
// key of the type that declaration introduces.
type DeclRef struct {
	Spelling string
	Key      TypeKey
}

// IsZero returns true if the reference has no declaring entity.
func (r DeclRef) IsZero() bool {
	return r.Spelling == "" && r.Key == ""
}

// Type is a reference to a C type, as reported by the C front end.
//
// It is the capability set the translation core consumes: canonicalization,
// pointee and element access, array sizes and the type/declaration cross
// reference. Implementations must be immutable.
type Type interface {
	// Kind returns the kind of this (possibly non-canonical) reference.
	Kind() TypeKind

	// Canonical strips typedef and elaborated layers down to the underlying
	// representation.
	Canonical() Type

	// Pointee returns the pointed-to type. Nil unless Kind is KindPointer.
	Pointee() Type

	// Element returns the array element type. Nil unless Kind is an array kind.
	Element() Type

	// ArraySize returns the element count of a constant array, or -1.
	ArraySize() int64

	// Declaration returns the entity declaring this type, if any.
	Declaration() DeclRef

	// Key returns the identity of this type reference.
	Key() TypeKey
}

// builtinType is a scalar or otherwise leaf type with no declaration.
type builtinType struct {
	kind TypeKind
}

// Builtin returns a leaf type of the given kind.
// It is intended for scalar kinds but accepts any kind without components
// (e.g. KindVector or KindComplex) so front ends can report them faithfully.
func Builtin(kind TypeKind) Type {
	return builtinType{kind: kind}
}

// Void returns the C void type.
func Void() Type { return builtinType{kind: KindVoid} }

// Unexposed returns a type the front end could not expose.
func Unexposed() Type { return builtinType{kind: KindUnexposed} }

func (t builtinType) Kind() TypeKind       { return t.kind }
func (t builtinType) Canonical() Type      { return t }
func (t builtinType) Pointee() Type        { return nil }
func (t builtinType) Element() Type        { return nil }
func (t builtinType) ArraySize() int64     { return -1 }
func (t builtinType) Declaration() DeclRef { return DeclRef{} }
func (t builtinType) Key() TypeKey         { return TypeKey("builtin:" + t.kind.Tag()) }

type pointerType struct {
	pointee Type
}

// PointerTo returns a pointer to the given type.
func PointerTo(pointee Type) Type {
	return pointerType{pointee: pointee}
}

func (t pointerType) Kind() TypeKind       { return KindPointer }
func (t pointerType) Pointee() Type        { return t.pointee }
func (t pointerType) Element() Type        { return nil }
func (t pointerType) ArraySize() int64     { return -1 }
func (t pointerType) Declaration() DeclRef { return DeclRef{} }
func (t pointerType) Key() TypeKey         { return "*" + t.pointee.Canonical().Key() }

func (t pointerType) Canonical() Type {
	return pointerType{pointee: t.pointee.Canonical()}
}

type arrayType struct {
	element Type
	size    int64 // -1 for incomplete arrays
}

// ArrayOf returns a constant array of n elements.
func ArrayOf(element Type, n int64) Type {
	return arrayType{element: element, size: n}
}

// IncompleteArrayOf returns an array of unspecified size (T[]).
func IncompleteArrayOf(element Type) Type {
	return arrayType{element: element, size: -1}
}

func (t arrayType) Kind() TypeKind {
	if t.size < 0 {
		return KindIncompleteArray
	}
	return KindConstantArray
}

func (t arrayType) Canonical() Type {
	return arrayType{element: t.element.Canonical(), size: t.size}
}

func (t arrayType) Pointee() Type        { return nil }
func (t arrayType) Element() Type        { return t.element }
func (t arrayType) ArraySize() int64     { return t.size }
func (t arrayType) Declaration() DeclRef { return DeclRef{} }

func (t arrayType) Key() TypeKey {
	n := ""
	if t.size >= 0 {
		n = strconv.FormatInt(t.size, 10)
	}
	return t.element.Canonical().Key() + TypeKey("["+n+"]")
}

// namedType is a record or enum type introduced by a declaration.
type namedType struct {
	kind     TypeKind
	key      TypeKey
	spelling string
}

// RecordType returns the struct or union type declared under key.
// The spelling is the tag name; empty for anonymous records.
func RecordType(key TypeKey, spelling string) Type {
	return namedType{kind: KindRecord, key: key, spelling: spelling}
}

// EnumType returns the enum type declared under key.
func EnumType(key TypeKey, spelling string) Type {
	return namedType{kind: KindEnum, key: key, spelling: spelling}
}

func (t namedType) Kind() TypeKind   { return t.kind }
func (t namedType) Canonical() Type  { return t }
func (t namedType) Pointee() Type    { return nil }
func (t namedType) Element() Type    { return nil }
func (t namedType) ArraySize() int64 { return -1 }
func (t namedType) Key() TypeKey     { return t.key }

func (t namedType) Declaration() DeclRef {
	return DeclRef{Spelling: t.spelling, Key: t.key}
}

type typedefType struct {
	name       string
	underlying Type
}

// TypedefKey returns the key used for a typedef named name.
func TypedefKey(name string) TypeKey {
	return TypeKey("typedef:" + name)
}

// TypedefOf returns a reference through the typedef name to underlying.
func TypedefOf(name string, underlying Type) Type {
	return typedefType{name: name, underlying: underlying}
}

func (t typedefType) Kind() TypeKind   { return KindTypedef }
func (t typedefType) Canonical() Type  { return t.underlying.Canonical() }
func (t typedefType) Pointee() Type    { return nil }
func (t typedefType) Element() Type    { return nil }
func (t typedefType) ArraySize() int64 { return -1 }
func (t typedefType) Key() TypeKey     { return TypedefKey(t.name) }

func (t typedefType) Declaration() DeclRef {
	return DeclRef{Spelling: t.name, Key: TypedefKey(t.name)}
}

type elaboratedType struct {
	named Type
}

// Elaborated returns the elaborated form (`struct foo`, `enum bar`) of named.
func Elaborated(named Type) Type {
	return elaboratedType{named: named}
}

func (t elaboratedType) Kind() TypeKind       { return KindElaborated }
func (t elaboratedType) Canonical() Type      { return t.named.Canonical() }
func (t elaboratedType) Pointee() Type        { return nil }
func (t elaboratedType) Element() Type        { return nil }
func (t elaboratedType) ArraySize() int64     { return -1 }
func (t elaboratedType) Declaration() DeclRef { return t.named.Declaration() }
func (t elaboratedType) Key() TypeKey         { return t.named.Key() }

type functionType struct {
	result   Type
	params   []Type
	variadic bool
}

// FunctionProto returns a prototyped function type.
func FunctionProto(result Type, variadic bool, params ...Type) Type {
	return functionType{result: result, params: params, variadic: variadic}
}

func (t functionType) Kind() TypeKind       { return KindFunctionProto }
func (t functionType) Canonical() Type      { return t }
func (t functionType) Pointee() Type        { return nil }
func (t functionType) Element() Type        { return nil }
func (t functionType) ArraySize() int64     { return -1 }
func (t functionType) Declaration() DeclRef { return DeclRef{} }

func (t functionType) Key() TypeKey {
	var sb strings.Builder
	sb.WriteString("fn(")
	for i, p := range t.params {
		if i > 0 {
			sb.WriteString(",")
		}
		sb.WriteString(string(p.Canonical().Key()))
	}
	if t.variadic {
		sb.WriteString(",...")
	}
	sb.WriteString(")")
	sb.WriteString(string(t.result.Canonical().Key()))
	return TypeKey(sb.String())
}
