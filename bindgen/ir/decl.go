package ir

// DeclKind identifies the category of a declaration.
// The order of the constants is the order in which generators emit kinds.
type DeclKind int

const (
	DeclEnum     DeclKind = iota // enum
	DeclRecord                   // struct or union
	DeclFunction                 // function or callback
	DeclConstant                 // named constant (object-like macro)
)

// DeclKinds lists every declaration kind in emission order.
var DeclKinds = []DeclKind{DeclEnum, DeclRecord, DeclFunction, DeclConstant}

// String returns the string representation of the declaration kind.
func (k DeclKind) String() string {
	switch k {
	case DeclEnum:
		return "Enum"
	case DeclRecord:
		return "StructOrUnion"
	case DeclFunction:
		return "FunctionOrCallback"
	case DeclConstant:
		return "Constant"
	default:
		return "Unknown"
	}
}

// Declaration is one re-declarable C entity.
//
// The set of implementations is closed: *EnumDecl, *RecordDecl,
// *FunctionDecl and *ConstantDecl. Generators switch over DeclKind.
type Declaration interface {
	// DeclKind returns the declaration kind for switching.
	DeclKind() DeclKind

	// TypeKey returns the canonical identity used for deduplication and lookup.
	TypeKey() TypeKey

	// Ident returns the C name. Zero for anonymous declarations.
	Ident() Identifier

	// Doc returns the attached documentation.
	Doc() Documentation

	// Src returns the declaration's location.
	Src() Source

	// withIdentity returns a copy carrying the given key and identifier.
	withIdentity(key TypeKey, id Identifier) Declaration
}

// EnumDecl represents a C enum.
type EnumDecl struct {
	Key           TypeKey
	Name          Identifier
	Constants     []EnumConstant
	Documentation Documentation
	Source        Source
}

// EnumConstant is one enumerator and its integer value.
type EnumConstant struct {
	Name  Identifier
	Value int64
}

func (d *EnumDecl) DeclKind() DeclKind { return DeclEnum }
func (d *EnumDecl) TypeKey() TypeKey   { return d.Key }
func (d *EnumDecl) Ident() Identifier  { return d.Name }
func (d *EnumDecl) Doc() Documentation { return d.Documentation }
func (d *EnumDecl) Src() Source        { return d.Source }

func (d *EnumDecl) withIdentity(key TypeKey, id Identifier) Declaration {
	c := *d
	c.Key = key
	c.Name = id
	return &c
}

// RecordDecl represents a C struct or union.
// A record without fields is a forward-declared (opaque) type.
type RecordDecl struct {
	Key           TypeKey
	Name          Identifier
	Union         bool
	Fields        []Field
	Documentation Documentation
	Source        Source
}

// Field is one struct or union member.
type Field struct {
	Name Identifier
	Type Type
}

func (d *RecordDecl) DeclKind() DeclKind { return DeclRecord }
func (d *RecordDecl) TypeKey() TypeKey   { return d.Key }
func (d *RecordDecl) Ident() Identifier  { return d.Name }
func (d *RecordDecl) Doc() Documentation { return d.Documentation }
func (d *RecordDecl) Src() Source        { return d.Source }

func (d *RecordDecl) withIdentity(key TypeKey, id Identifier) Declaration {
	c := *d
	c.Key = key
	c.Name = id
	return &c
}

// FunctionDecl represents a C function or callback.
type FunctionDecl struct {
	Key  TypeKey
	Name Identifier

	// Symbol is the raw linkage symbol. Empty means Name.Raw().
	Symbol string

	Params        []Param
	Result        Type
	Variadic      bool
	Documentation Documentation
	Source        Source
}

// Param is one function parameter. Name is zero when C omits it.
type Param struct {
	Name Identifier
	Type Type
}

// LinkName returns the symbol the function is linked against.
func (d *FunctionDecl) LinkName() string {
	if d.Symbol != "" {
		return d.Symbol
	}
	return d.Name.Raw()
}

func (d *FunctionDecl) DeclKind() DeclKind { return DeclFunction }
func (d *FunctionDecl) TypeKey() TypeKey   { return d.Key }
func (d *FunctionDecl) Ident() Identifier  { return d.Name }
func (d *FunctionDecl) Doc() Documentation { return d.Documentation }
func (d *FunctionDecl) Src() Source        { return d.Source }

func (d *FunctionDecl) withIdentity(key TypeKey, id Identifier) Declaration {
	c := *d
	c.Key = key
	c.Name = id
	return &c
}

// ConstantDecl represents a named constant.
type ConstantDecl struct {
	Key  TypeKey
	Name Identifier

	// Value is the literal text in the target language, already stringified.
	Value         string
	Documentation Documentation
	Source        Source
}

func (d *ConstantDecl) DeclKind() DeclKind { return DeclConstant }
func (d *ConstantDecl) TypeKey() TypeKey   { return d.Key }
func (d *ConstantDecl) Ident() Identifier  { return d.Name }
func (d *ConstantDecl) Doc() Documentation { return d.Documentation }
func (d *ConstantDecl) Src() Source        { return d.Source }

func (d *ConstantDecl) withIdentity(key TypeKey, id Identifier) Declaration {
	c := *d
	c.Key = key
	c.Name = id
	return &c
}
