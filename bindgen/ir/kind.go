package ir

import "fmt"

// TypeKind identifies the category of a C type reference.
// The set mirrors the type kinds reported by C front ends such as libclang;
// canonical types only ever carry the scalar, pointer, record, enum, array,
// function and unexposed kinds, while Typedef and Elaborated appear on the
// spelled (non-canonical) form of a reference.
type TypeKind int

const (
	KindInvalid TypeKind = iota
	KindUnexposed

	// Builtin scalars
	KindVoid
	KindBool
	KindCharU // plain char on targets where char is unsigned
	KindUChar
	KindChar16
	KindChar32
	KindUShort
	KindUInt
	KindULong
	KindULongLong
	KindUInt128
	KindCharS // plain char on targets where char is signed
	KindSChar
	KindWChar
	KindShort
	KindInt
	KindLong
	KindLongLong
	KindInt128
	KindFloat
	KindDouble
	KindLongDouble

	// Compound and named kinds
	KindPointer
	KindRecord
	KindEnum
	KindTypedef
	KindElaborated
	KindFunctionProto
	KindFunctionNoProto
	KindConstantArray
	KindIncompleteArray
	KindVector
	KindComplex
)

type kindInfo struct {
	spelling string // front-end spelling, used as a last-resort name
	tag      string // snake_case tag used by serialized AST documents
}

var kindTable = [...]kindInfo{
	KindInvalid:         {"Invalid", "invalid"},
	KindUnexposed:       {"Unexposed", "unexposed"},
	KindVoid:            {"Void", "void"},
	KindBool:            {"Bool", "bool"},
	KindCharU:           {"Char_U", "char_u"},
	KindUChar:           {"UChar", "u_char"},
	KindChar16:          {"Char16", "char16"},
	KindChar32:          {"Char32", "char32"},
	KindUShort:          {"UShort", "u_short"},
	KindUInt:            {"UInt", "u_int"},
	KindULong:           {"ULong", "u_long"},
	KindULongLong:       {"ULongLong", "u_long_long"},
	KindUInt128:         {"UInt128", "u_int128"},
	KindCharS:           {"Char_S", "char_s"},
	KindSChar:           {"SChar", "s_char"},
	KindWChar:           {"WChar", "w_char"},
	KindShort:           {"Short", "short"},
	KindInt:             {"Int", "int"},
	KindLong:            {"Long", "long"},
	KindLongLong:        {"LongLong", "long_long"},
	KindInt128:          {"Int128", "int128"},
	KindFloat:           {"Float", "float"},
	KindDouble:          {"Double", "double"},
	KindLongDouble:      {"LongDouble", "long_double"},
	KindPointer:         {"Pointer", "pointer"},
	KindRecord:          {"Record", "record"},
	KindEnum:            {"Enum", "enum"},
	KindTypedef:         {"Typedef", "typedef"},
	KindElaborated:      {"Elaborated", "elaborated"},
	KindFunctionProto:   {"FunctionProto", "function_proto"},
	KindFunctionNoProto: {"FunctionNoProto", "function_no_proto"},
	KindConstantArray:   {"ConstantArray", "constant_array"},
	KindIncompleteArray: {"IncompleteArray", "incomplete_array"},
	KindVector:          {"Vector", "vector"},
	KindComplex:         {"Complex", "complex"},
}

var kindsByTag = func() map[string]TypeKind {
	m := make(map[string]TypeKind, len(kindTable))
	for k, info := range kindTable {
		m[info.tag] = TypeKind(k)
	}
	return m
}()

// String returns the front-end spelling of the kind (e.g. "Pointer", "UInt").
func (k TypeKind) String() string {
	if k < 0 || int(k) >= len(kindTable) {
		return "Unknown"
	}
	return kindTable[k].spelling
}

// Tag returns the snake_case tag of the kind (e.g. "pointer", "u_int").
func (k TypeKind) Tag() string {
	if k < 0 || int(k) >= len(kindTable) {
		return "unknown"
	}
	return kindTable[k].tag
}

// IsBuiltin reports whether the kind is a builtin scalar (void, bool,
// character, integer or floating point kinds).
func (k TypeKind) IsBuiltin() bool {
	return k >= KindVoid && k <= KindLongDouble
}

// ParseTypeKind returns the kind for a snake_case tag.
func ParseTypeKind(tag string) (TypeKind, error) {
	k, ok := kindsByTag[tag]
	if !ok {
		return KindInvalid, fmt.Errorf("unknown type kind %q", tag)
	}
	return k, nil
}
