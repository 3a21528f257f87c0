package ir

import "testing"

func TestNewRegistry_DedupFirstSeenWins(t *testing.T) {
	first := &RecordDecl{Key: "struct:point", Name: NewIdentifier("point")}
	second := &RecordDecl{Key: "struct:point", Name: NewIdentifier("point"), Fields: []Field{
		{Name: NewIdentifier("x"), Type: Builtin(KindInt)},
	}}

	reg := NewRegistry([]Declaration{first, nil, second})

	if reg.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", reg.Len())
	}
	got, ok := reg.Lookup("struct:point")
	if !ok {
		t.Fatal("Lookup(struct:point) not found")
	}
	if got != first {
		t.Error("Lookup returned the later duplicate, want first seen")
	}
}

func TestNewRegistry_DropsTypedNil(t *testing.T) {
	var enum *EnumDecl
	reg := NewRegistry([]Declaration{enum, (*FunctionDecl)(nil)})
	if reg.Len() != 0 {
		t.Errorf("Len() = %d, want 0", reg.Len())
	}
}

func TestNewRegistry_PartitionsByKindInOrder(t *testing.T) {
	decls := []Declaration{
		&FunctionDecl{Key: "function:b", Name: NewIdentifier("b"), Result: Void()},
		&EnumDecl{Key: "enum:color", Name: NewIdentifier("color")},
		&ConstantDecl{Key: "macro:MAX", Name: NewIdentifier("MAX"), Value: "1"},
		&FunctionDecl{Key: "function:a", Name: NewIdentifier("a"), Result: Void()},
		&RecordDecl{Key: "union:u", Name: NewIdentifier("u"), Union: true},
	}
	reg := NewRegistry(decls)

	fns := reg.Functions()
	if len(fns) != 2 || fns[0].Name.Raw() != "b" || fns[1].Name.Raw() != "a" {
		t.Errorf("Functions() order wrong: %+v", fns)
	}
	if len(reg.Enums()) != 1 {
		t.Errorf("Enums() = %d, want 1", len(reg.Enums()))
	}
	if len(reg.Records()) != 1 || !reg.Records()[0].Union {
		t.Errorf("Records() = %+v, want one union", reg.Records())
	}
	if len(reg.Constants()) != 1 {
		t.Errorf("Constants() = %d, want 1", len(reg.Constants()))
	}
	if got := len(reg.ByKind(DeclFunction)); got != 2 {
		t.Errorf("ByKind(DeclFunction) = %d, want 2", got)
	}
	all := reg.Declarations()
	if len(all) != 5 || all[0].Ident().Raw() != "b" {
		t.Errorf("Declarations() not in first-seen order")
	}
}

func TestNewRegistry_NamesAnonymousDeclarations(t *testing.T) {
	anonStruct := &RecordDecl{Key: "struct:@1"}
	anonUnion := &RecordDecl{Key: "union:@2", Union: true}
	anonStruct2 := &RecordDecl{Key: "struct:@3"}
	anonEnum := &EnumDecl{Key: "enum:@4"}

	reg := NewRegistry([]Declaration{anonStruct, anonUnion, anonStruct2, anonEnum})

	tests := []struct {
		key  TypeKey
		want string
	}{
		{"struct:@1", "anonymous_struct_1"},
		{"union:@2", "anonymous_union_1"},
		{"struct:@3", "anonymous_struct_2"},
		{"enum:@4", "anonymous_enum_1"},
	}
	for _, tt := range tests {
		d, ok := reg.Lookup(tt.key)
		if !ok {
			t.Fatalf("Lookup(%s) not found", tt.key)
		}
		if got := d.Ident().Raw(); got != tt.want {
			t.Errorf("name for %s = %q, want %q", tt.key, got, tt.want)
		}
	}

	if !anonStruct.Name.IsZero() {
		t.Error("NewRegistry mutated the provider's declaration")
	}
}

func TestNewRegistry_UnkeyedAnonymousDoNotCollapse(t *testing.T) {
	reg := NewRegistry([]Declaration{&RecordDecl{}, &RecordDecl{}})
	if reg.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", reg.Len())
	}
	for _, d := range reg.Declarations() {
		if d.TypeKey() == "" {
			t.Errorf("%s kept an empty key", d.Ident().Raw())
		}
		if got, ok := reg.Lookup(d.TypeKey()); !ok || got != d {
			t.Errorf("Lookup(%s) does not return the registered copy", d.TypeKey())
		}
	}
}

func TestNewRegistry_KeysUnkeyedByName(t *testing.T) {
	fn := &FunctionDecl{Name: NewIdentifier("foo"), Result: Void()}
	reg := NewRegistry([]Declaration{fn, &FunctionDecl{Name: NewIdentifier("foo"), Result: Void()}})
	if reg.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", reg.Len())
	}
	if _, ok := reg.Lookup("functionorcallback:foo"); !ok {
		t.Error("Lookup(functionorcallback:foo) not found")
	}
	if fn.Key != "" {
		t.Error("NewRegistry mutated the provider's declaration")
	}
}

func TestRegistry_LookupMissing(t *testing.T) {
	reg := NewRegistry(nil)
	if _, ok := reg.Lookup("struct:missing"); ok {
		t.Error("Lookup on empty registry should fail")
	}
}
