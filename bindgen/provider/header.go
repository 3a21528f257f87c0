package provider

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/c"

	"github.com/broady/crgen/bindgen/ir"
)

// HeaderProvider reads declarations from C headers with tree-sitter.
//
// Preprocessor conditionals are not evaluated: declarations in every
// branch are read. #include lines are not followed; list each header that
// contributes declarations.
type HeaderProvider struct{}

var _ Provider = HeaderProvider{}

func (HeaderProvider) Name() string { return "headers" }

// Declarations parses every header in opts.Headers. Typedefs and enum
// values seen in earlier headers are visible to later ones.
func (p HeaderProvider) Declarations(ctx context.Context, opts InputOptions) ([]ir.Declaration, error) {
	if len(opts.Headers) == 0 {
		return nil, fmt.Errorf("no headers given")
	}

	b := newHeaderBuilder(opts)
	for _, header := range opts.Headers {
		path, err := FindHeader(header, opts.IncludeDirs)
		if err != nil {
			return nil, err
		}
		src, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read header: %w", err)
		}
		if err := b.parse(ctx, path, src); err != nil {
			return nil, err
		}
	}
	return b.decls, nil
}

// Parse reads the declarations of one in-memory header named file.
func (p HeaderProvider) Parse(ctx context.Context, file string, src []byte, opts InputOptions) ([]ir.Declaration, error) {
	b := newHeaderBuilder(opts)
	if err := b.parse(ctx, file, src); err != nil {
		return nil, err
	}
	return b.decls, nil
}

type headerBuilder struct {
	opts   InputOptions
	log    *slog.Logger
	parser *sitter.Parser

	file string
	src  []byte

	decls []ir.Declaration

	// index maps record and enum keys to their position in decls so a
	// definition can replace an earlier forward declaration.
	index map[ir.TypeKey]int

	typedefs map[string]ir.Type
	values   map[string]int64
}

func newHeaderBuilder(opts InputOptions) *headerBuilder {
	parser := sitter.NewParser()
	parser.SetLanguage(c.GetLanguage())
	return &headerBuilder{
		opts:     opts,
		log:      opts.logger(),
		parser:   parser,
		index:    make(map[ir.TypeKey]int),
		typedefs: make(map[string]ir.Type),
		values:   make(map[string]int64),
	}
}

func (b *headerBuilder) parse(ctx context.Context, file string, src []byte) error {
	tree, err := b.parser.ParseCtx(ctx, nil, src)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return &ParseError{File: file, Msg: err.Error()}
	}
	defer tree.Close()

	b.file = file
	b.src = src
	b.log.Debug("parsing header", "file", file, "bytes", len(src))

	before := len(b.decls)
	b.walk(tree.RootNode())
	b.log.Debug("parsed header", "file", file, "declarations", len(b.decls)-before)
	return nil
}

// walk visits the top-level items below n.
func (b *headerBuilder) walk(n *sitter.Node) {
	for i := 0; i < int(n.NamedChildCount()); i++ {
		child := n.NamedChild(i)
		switch child.Type() {
		case "preproc_ifdef", "preproc_if", "preproc_else", "preproc_elif", "preproc_elifdef",
			"declaration_list":
			b.walk(child)
		case "linkage_specification":
			if body := child.ChildByFieldName("body"); body != nil {
				if body.Type() == "declaration_list" {
					b.walk(body)
				} else {
					b.item(body)
				}
			}
		default:
			b.item(child)
		}
	}
}

func (b *headerBuilder) item(n *sitter.Node) {
	switch n.Type() {
	case "type_definition":
		b.typeDefinition(n)
	case "declaration", "function_definition":
		b.declaration(n)
	case "struct_specifier", "union_specifier", "enum_specifier":
		b.specifierType(n, true)
	case "expression_statement":
		// `struct foo;` parses as an expression statement in some versions
		// of the grammar.
		if n.NamedChildCount() > 0 {
			b.item(n.NamedChild(0))
		}
	case "preproc_def":
		b.macro(n)
	case "ERROR":
		b.log.Warn("skipping unparsable input", "file", b.file, "line", row(n),
			"text", firstLine(n.Content(b.src)))
	}
}

// typeDefinition records a typedef. A plain typedef of an anonymous
// record or enum names it.
func (b *headerBuilder) typeDefinition(n *sitter.Node) {
	base := b.specifierType(n.ChildByFieldName("type"), true)
	for i := 0; i < int(n.ChildCount()); i++ {
		if n.FieldNameForChild(i) != "declarator" {
			continue
		}
		child := n.Child(i)
		d := b.declarator(base, child)
		if d.name == "" {
			continue
		}
		typ := d.typ
		if child.Type() == "type_identifier" {
			if named, ok := b.nameAnonymous(base, d.name, b.doc(n)); ok {
				typ = named
			}
		}
		b.typedefs[d.name] = ir.TypedefOf(d.name, typ)
	}
}

// nameAnonymous gives the anonymous record or enum behind t the typedef
// name. It reports the renamed type.
func (b *headerBuilder) nameAnonymous(t ir.Type, name string, doc ir.Documentation) (ir.Type, bool) {
	canon := t.Canonical()
	if canon.Kind() != ir.KindRecord && canon.Kind() != ir.KindEnum {
		return nil, false
	}
	ref := canon.Declaration()
	if ref.Spelling != "" {
		return nil, false
	}
	i, ok := b.index[ref.Key]
	if !ok {
		return nil, false
	}

	id := b.opts.Namer.Identifier(name)
	var named ir.Type
	switch d := b.decls[i].(type) {
	case *ir.RecordDecl:
		if !d.Name.IsZero() {
			return nil, false
		}
		d.Name = id
		if d.Documentation.IsZero() {
			d.Documentation = doc
		}
		named = ir.RecordType(ref.Key, name)
	case *ir.EnumDecl:
		if !d.Name.IsZero() {
			return nil, false
		}
		d.Name = id
		if d.Documentation.IsZero() {
			d.Documentation = doc
		}
		named = ir.EnumType(ref.Key, name)
	default:
		return nil, false
	}
	return ir.Elaborated(named), true
}

// declaration handles function prototypes and definitions. Variables are
// skipped; static and inline functions have no symbol to link against.
func (b *headerBuilder) declaration(n *sitter.Node) {
	if hasStorageClass(n, b.src, "static", "inline") {
		return
	}
	base := b.specifierType(n.ChildByFieldName("type"), true)
	for i := 0; i < int(n.ChildCount()); i++ {
		if n.FieldNameForChild(i) != "declarator" {
			continue
		}
		child := n.Child(i)
		d := b.declarator(base, child)
		if d.name == "" || !d.isFunction() {
			continue
		}
		b.add(&ir.FunctionDecl{
			Key:           ir.TypeKey("function:" + d.name),
			Name:          b.opts.Namer.Identifier(d.name),
			Params:        d.fn.params,
			Result:        d.fn.result,
			Variadic:      d.fn.variadic,
			Documentation: b.doc(n),
			Source:        b.source(child),
		})
	}
}

// specifierType returns the type named by a type specifier node. Record
// and enum specifiers with a body are registered as declarations; with
// declare set, so are bare named ones (`struct foo;`).
func (b *headerBuilder) specifierType(n *sitter.Node, declare bool) ir.Type {
	if n == nil {
		return ir.Builtin(ir.KindInt)
	}
	switch n.Type() {
	case "primitive_type":
		return primitiveType(n.Content(b.src))
	case "sized_type_specifier":
		return sizedType(n.Content(b.src))
	case "type_identifier":
		name := n.Content(b.src)
		if t, ok := b.typedefs[name]; ok {
			return t
		}
		if t, ok := systemTypedef(name); ok {
			return t
		}
		return ir.TypedefOf(name, ir.Unexposed())
	case "struct_specifier", "union_specifier":
		return b.recordSpecifier(n, declare)
	case "enum_specifier":
		return b.enumSpecifier(n, declare)
	case "macro_type_specifier":
		return ir.Unexposed()
	}
	b.log.Debug("unknown type specifier", "file", b.file, "line", row(n), "node", n.Type())
	return ir.Unexposed()
}

func (b *headerBuilder) recordSpecifier(n *sitter.Node, declare bool) ir.Type {
	kind := "struct"
	if n.Type() == "union_specifier" {
		kind = "union"
	}
	name := ""
	if nameNode := n.ChildByFieldName("name"); nameNode != nil {
		name = nameNode.Content(b.src)
	}
	key := b.tagKey(kind, name, n)
	typ := ir.Elaborated(ir.RecordType(key, name))

	body := n.ChildByFieldName("body")
	if body == nil {
		if declare && name != "" {
			b.declare(&ir.RecordDecl{
				Key:           key,
				Name:          b.opts.Namer.Identifier(name),
				Union:         kind == "union",
				Documentation: b.specifierDoc(n),
				Source:        b.source(n),
			})
		}
		return typ
	}

	// Register before reading fields so self references resolve.
	decl := &ir.RecordDecl{
		Key:           key,
		Name:          b.opts.Namer.Identifier(name),
		Union:         kind == "union",
		Documentation: b.specifierDoc(n),
		Source:        b.source(n),
	}
	b.define(decl)
	decl.Fields = b.fields(body)
	return typ
}

func (b *headerBuilder) fields(body *sitter.Node) []ir.Field {
	var fields []ir.Field
	for i := 0; i < int(body.NamedChildCount()); i++ {
		child := body.NamedChild(i)
		if child.Type() != "field_declaration" {
			continue
		}
		base := b.specifierType(child.ChildByFieldName("type"), true)
		seen := false
		for j := 0; j < int(child.ChildCount()); j++ {
			if child.FieldNameForChild(j) != "declarator" {
				continue
			}
			seen = true
			d := b.declarator(base, child.Child(j))
			fields = append(fields, ir.Field{Name: b.opts.Namer.Identifier(d.name), Type: d.typ})
		}
		if !seen {
			// Anonymous nested record or enum member.
			fields = append(fields, ir.Field{Type: base})
		}
	}
	return fields
}

func (b *headerBuilder) enumSpecifier(n *sitter.Node, declare bool) ir.Type {
	name := ""
	if nameNode := n.ChildByFieldName("name"); nameNode != nil {
		name = nameNode.Content(b.src)
	}
	key := b.tagKey("enum", name, n)
	typ := ir.Elaborated(ir.EnumType(key, name))

	body := n.ChildByFieldName("body")
	if body == nil {
		if declare && name != "" {
			b.declare(&ir.EnumDecl{
				Key:           key,
				Name:          b.opts.Namer.Identifier(name),
				Documentation: b.specifierDoc(n),
				Source:        b.source(n),
			})
		}
		return typ
	}

	decl := &ir.EnumDecl{
		Key:           key,
		Name:          b.opts.Namer.Identifier(name),
		Documentation: b.specifierDoc(n),
		Source:        b.source(n),
	}
	var next int64
	for i := 0; i < int(body.NamedChildCount()); i++ {
		child := body.NamedChild(i)
		if child.Type() != "enumerator" {
			continue
		}
		nameNode := child.ChildByFieldName("name")
		if nameNode == nil {
			continue
		}
		enumerator := nameNode.Content(b.src)
		value := next
		if expr := child.ChildByFieldName("value"); expr != nil {
			if v, ok := b.eval(expr); ok {
				value = v
			} else {
				b.log.Warn("enumerator value is not a constant, using implicit value",
					"file", b.file, "line", row(child), "enumerator", enumerator, "value", value)
			}
		}
		b.values[enumerator] = value
		decl.Constants = append(decl.Constants, ir.EnumConstant{
			Name:  b.opts.Namer.Identifier(enumerator),
			Value: value,
		})
		next = value + 1
	}
	b.define(decl)
	return typ
}

// tagKey returns the key of a tagged type. Anonymous types are keyed by
// their position.
func (b *headerBuilder) tagKey(kind, name string, n *sitter.Node) ir.TypeKey {
	if name != "" {
		return ir.TypeKey(kind + ":" + name)
	}
	p := n.StartPoint()
	return ir.TypeKey(fmt.Sprintf("%s:@%s:%d:%d", kind, b.file, p.Row+1, p.Column+1))
}

// declare adds a forward declaration unless the key is already known.
func (b *headerBuilder) declare(d ir.Declaration) {
	if _, ok := b.index[d.TypeKey()]; ok {
		return
	}
	b.add(d)
}

// define adds a definition, replacing a forward declaration in place.
func (b *headerBuilder) define(d ir.Declaration) {
	if i, ok := b.index[d.TypeKey()]; ok {
		if isForward(b.decls[i]) {
			b.decls[i] = d
			return
		}
	}
	b.add(d)
}

func (b *headerBuilder) add(d ir.Declaration) {
	if _, ok := b.index[d.TypeKey()]; !ok {
		b.index[d.TypeKey()] = len(b.decls)
	}
	b.decls = append(b.decls, d)
}

func isForward(d ir.Declaration) bool {
	switch d := d.(type) {
	case *ir.RecordDecl:
		return len(d.Fields) == 0
	case *ir.EnumDecl:
		return len(d.Constants) == 0
	}
	return false
}

// macro handles an object-like #define. Integer values are remembered
// for later constant expressions; literal values become constants when
// macros are enabled.
func (b *headerBuilder) macro(n *sitter.Node) {
	nameNode := n.ChildByFieldName("name")
	valueNode := n.ChildByFieldName("value")
	if nameNode == nil || valueNode == nil {
		return
	}
	name := nameNode.Content(b.src)
	text := valueNode.Content(b.src)

	if v, ok := macroInteger(text); ok {
		b.values[name] = v
	}
	if !b.opts.Macros {
		return
	}
	lit, ok := macroLiteral(text)
	if !ok {
		b.log.Debug("skipping macro without a literal value", "file", b.file, "line", row(n), "macro", name)
		return
	}
	b.add(&ir.ConstantDecl{
		Key:           ir.TypeKey("macro:" + name),
		Name:          b.opts.Namer.Identifier(name),
		Value:         lit,
		Documentation: b.doc(n),
		Source:        b.source(n),
	})
}

// doc returns the comments directly above n. A comment that trails code
// on its own line belongs to that code.
func (b *headerBuilder) doc(n *sitter.Node) ir.Documentation {
	var comments []string
	line := int(n.StartPoint().Row)
	for prev := n.PrevSibling(); prev != nil && prev.Type() == "comment"; prev = prev.PrevSibling() {
		if int(prev.EndPoint().Row)+1 < line {
			break
		}
		if before := prev.PrevSibling(); before != nil && before.EndPoint().Row == prev.StartPoint().Row {
			break
		}
		comments = append(comments, cleanComment(prev.Content(b.src)))
		line = int(prev.StartPoint().Row)
	}
	if len(comments) == 0 {
		return ir.Documentation{}
	}
	for i, j := 0, len(comments)-1; i < j; i, j = i+1, j-1 {
		comments[i], comments[j] = comments[j], comments[i]
	}
	return ir.Documentation{Body: strings.TrimSpace(strings.Join(comments, "\n"))}
}

// specifierDoc returns the documentation of a record or enum specifier,
// taken from the enclosing typedef or declaration when it has none.
func (b *headerBuilder) specifierDoc(n *sitter.Node) ir.Documentation {
	if doc := b.doc(n); !doc.IsZero() {
		return doc
	}
	parent := n.Parent()
	if parent == nil {
		return ir.Documentation{}
	}
	switch parent.Type() {
	case "type_definition", "declaration":
		return b.doc(parent)
	}
	return ir.Documentation{}
}

// cleanComment removes comment markers and leading asterisks.
func cleanComment(text string) string {
	if strings.HasPrefix(text, "//") {
		return strings.TrimSpace(strings.TrimLeft(text, "/!<"))
	}
	text = strings.TrimPrefix(text, "/*")
	text = strings.TrimSuffix(text, "*/")
	text = strings.TrimLeft(text, "*!<")

	lines := strings.Split(text, "\n")
	for i, line := range lines {
		line = strings.TrimSpace(line)
		line = strings.TrimPrefix(line, "*")
		lines[i] = strings.TrimSpace(line)
	}
	for len(lines) > 0 && lines[0] == "" {
		lines = lines[1:]
	}
	for len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return strings.Join(lines, "\n")
}

func (b *headerBuilder) source(n *sitter.Node) ir.Source {
	p := n.StartPoint()
	return ir.Source{File: b.file, Line: int(p.Row) + 1, Column: int(p.Column) + 1}
}

func hasStorageClass(n *sitter.Node, src []byte, classes ...string) bool {
	for i := 0; i < int(n.NamedChildCount()); i++ {
		child := n.NamedChild(i)
		if child.Type() != "storage_class_specifier" {
			continue
		}
		for _, class := range classes {
			if child.Content(src) == class {
				return true
			}
		}
	}
	return false
}

func row(n *sitter.Node) int { return int(n.StartPoint().Row) + 1 }

func firstLine(s string) string {
	line, _, _ := strings.Cut(s, "\n")
	return strings.TrimSpace(line)
}
