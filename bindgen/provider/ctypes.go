package provider

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/broady/crgen/bindgen/ir"
)

// primitiveKinds maps C keyword types to their kinds. Plain char is
// signed, as on the x86-64 and arm64 System V ABIs.
var primitiveKinds = map[string]ir.TypeKind{
	"void":   ir.KindVoid,
	"bool":   ir.KindBool,
	"_Bool":  ir.KindBool,
	"char":   ir.KindCharS,
	"int":    ir.KindInt,
	"float":  ir.KindFloat,
	"double": ir.KindDouble,
}

// systemTypedefs are typedefs from <stdint.h>, <stddef.h> and friends,
// with the kinds they have under LP64.
var systemTypedefs = map[string]ir.TypeKind{
	"int8_t":    ir.KindSChar,
	"uint8_t":   ir.KindUChar,
	"int16_t":   ir.KindShort,
	"uint16_t":  ir.KindUShort,
	"int32_t":   ir.KindInt,
	"uint32_t":  ir.KindUInt,
	"int64_t":   ir.KindLong,
	"uint64_t":  ir.KindULong,
	"intptr_t":  ir.KindLong,
	"uintptr_t": ir.KindULong,
	"intmax_t":  ir.KindLong,
	"uintmax_t": ir.KindULong,
	"size_t":    ir.KindULong,
	"ssize_t":   ir.KindLong,
	"ptrdiff_t": ir.KindLong,
	"off_t":     ir.KindLong,
	"wchar_t":   ir.KindWChar,
	"char16_t":  ir.KindChar16,
	"char32_t":  ir.KindChar32,
}

// systemTypedef returns the typedef for a well-known system type name.
func systemTypedef(name string) (ir.Type, bool) {
	kind, ok := systemTypedefs[name]
	if !ok {
		return nil, false
	}
	return ir.TypedefOf(name, ir.Builtin(kind)), true
}

// primitiveType returns the type of a primitive_type node's text.
func primitiveType(name string) ir.Type {
	if kind, ok := primitiveKinds[name]; ok {
		return ir.Builtin(kind)
	}
	if t, ok := systemTypedef(name); ok {
		return t
	}
	return ir.Unexposed()
}

// sizedType returns the type spelled by a combination of the signed,
// unsigned, short and long modifiers and an optional base type.
func sizedType(text string) ir.Type {
	var (
		unsigned bool
		short    bool
		longs    int
		base     = "int"
	)
	for _, word := range strings.Fields(text) {
		switch word {
		case "unsigned":
			unsigned = true
		case "short":
			short = true
		case "long":
			longs++
		case "char", "int", "double", "float":
			base = word
		}
	}

	switch {
	case base == "char" && unsigned:
		return ir.Builtin(ir.KindUChar)
	case base == "char":
		return ir.Builtin(ir.KindSChar)
	case base == "double" && longs > 0:
		return ir.Builtin(ir.KindLongDouble)
	case base == "double":
		return ir.Builtin(ir.KindDouble)
	case base == "float":
		return ir.Builtin(ir.KindFloat)
	case short && unsigned:
		return ir.Builtin(ir.KindUShort)
	case short:
		return ir.Builtin(ir.KindShort)
	case longs >= 2 && unsigned:
		return ir.Builtin(ir.KindULongLong)
	case longs >= 2:
		return ir.Builtin(ir.KindLongLong)
	case longs == 1 && unsigned:
		return ir.Builtin(ir.KindULong)
	case longs == 1:
		return ir.Builtin(ir.KindLong)
	case unsigned:
		return ir.Builtin(ir.KindUInt)
	default:
		return ir.Builtin(ir.KindInt)
	}
}

// declared is the result of applying a declarator to a base type.
type declared struct {
	name string
	typ  ir.Type

	// fn describes the function declarator closest to the name, if any.
	fn *funcShape
}

type funcShape struct {
	result   ir.Type
	params   []ir.Param
	variadic bool
}

// isFunction reports whether the declarator declares a function, as
// opposed to a pointer to one.
func (d declared) isFunction() bool {
	return d.fn != nil && d.typ.Kind() == ir.KindFunctionProto
}

// declarator applies the declarator n to t. C declarators read inside
// out: the outermost node is applied first and the name sits innermost.
func (b *headerBuilder) declarator(t ir.Type, n *sitter.Node) declared {
	var fn *funcShape
	for n != nil {
		switch n.Type() {
		case "identifier", "field_identifier", "type_identifier", "primitive_type":
			return declared{name: n.Content(b.src), typ: t, fn: fn}

		case "pointer_declarator", "abstract_pointer_declarator":
			t = ir.PointerTo(t)
			n = n.ChildByFieldName("declarator")

		case "array_declarator", "abstract_array_declarator":
			t = b.arrayOf(t, n.ChildByFieldName("size"))
			n = n.ChildByFieldName("declarator")

		case "function_declarator", "abstract_function_declarator":
			params, variadic := b.parameters(n.ChildByFieldName("parameters"))
			fn = &funcShape{result: t, params: params, variadic: variadic}
			types := make([]ir.Type, len(params))
			for i, p := range params {
				types[i] = p.Type
			}
			t = ir.FunctionProto(t, variadic, types...)
			n = n.ChildByFieldName("declarator")

		case "parenthesized_declarator", "abstract_parenthesized_declarator", "attributed_declarator":
			n = innerDeclarator(n)

		case "init_declarator":
			n = n.ChildByFieldName("declarator")

		default:
			return declared{typ: t, fn: fn}
		}
	}
	return declared{typ: t, fn: fn}
}

func (b *headerBuilder) arrayOf(elem ir.Type, size *sitter.Node) ir.Type {
	if size == nil {
		return ir.IncompleteArrayOf(elem)
	}
	n, ok := b.eval(size)
	if !ok || n < 0 {
		b.log.Warn("array size is not a constant",
			"file", b.file, "line", row(size), "size", size.Content(b.src))
		return ir.IncompleteArrayOf(elem)
	}
	return ir.ArrayOf(elem, n)
}

// innerDeclarator returns the declarator wrapped by a parenthesized or
// attributed declarator.
func innerDeclarator(n *sitter.Node) *sitter.Node {
	for i := 0; i < int(n.NamedChildCount()); i++ {
		child := n.NamedChild(i)
		switch child.Type() {
		case "attribute_specifier", "attribute_declaration", "ms_call_modifier", "type_qualifier", "comment":
			continue
		}
		return child
	}
	return nil
}

// parameters reads a parameter_list. A lone unnamed void parameter means
// the function takes no arguments.
func (b *headerBuilder) parameters(list *sitter.Node) ([]ir.Param, bool) {
	if list == nil {
		return nil, false
	}

	var (
		params   []ir.Param
		variadic bool
	)
	for i := 0; i < int(list.ChildCount()); i++ {
		child := list.Child(i)
		switch child.Type() {
		case "variadic_parameter", "...":
			variadic = true
		case "parameter_declaration":
			base := b.specifierType(child.ChildByFieldName("type"), false)
			d := b.declarator(base, child.ChildByFieldName("declarator"))
			params = append(params, ir.Param{
				Name: b.opts.Namer.Identifier(d.name),
				Type: decay(d.typ),
			})
		}
	}

	if len(params) == 1 && params[0].Name.IsZero() && params[0].Type.Kind() == ir.KindVoid {
		params = nil
	}
	return params, variadic
}

// decay applies the parameter adjustments of C: arrays and functions
// become pointers, including when they are named through a typedef.
func decay(t ir.Type) ir.Type {
	switch t.Canonical().Kind() {
	case ir.KindConstantArray, ir.KindIncompleteArray:
		if t.Kind() == ir.KindConstantArray || t.Kind() == ir.KindIncompleteArray {
			return ir.PointerTo(t.Element())
		}
		return ir.PointerTo(t.Canonical().Element())
	case ir.KindFunctionProto, ir.KindFunctionNoProto:
		return ir.PointerTo(t)
	}
	return t
}

// eval computes the value of an integer constant expression.
func (b *headerBuilder) eval(n *sitter.Node) (int64, bool) {
	if n == nil {
		return 0, false
	}
	switch n.Type() {
	case "number_literal":
		return parseInteger(n.Content(b.src))
	case "char_literal":
		return parseCharLiteral(n.Content(b.src))
	case "identifier":
		v, ok := b.values[n.Content(b.src)]
		return v, ok
	case "parenthesized_expression":
		if n.NamedChildCount() == 0 {
			return 0, false
		}
		return b.eval(n.NamedChild(0))
	case "cast_expression":
		return b.eval(n.ChildByFieldName("value"))
	case "unary_expression":
		v, ok := b.eval(n.ChildByFieldName("argument"))
		if !ok {
			return 0, false
		}
		switch operator(n, b.src) {
		case "-":
			return -v, true
		case "+":
			return v, true
		case "~":
			return ^v, true
		case "!":
			if v == 0 {
				return 1, true
			}
			return 0, true
		}
	case "binary_expression":
		l, lok := b.eval(n.ChildByFieldName("left"))
		r, rok := b.eval(n.ChildByFieldName("right"))
		if !lok || !rok {
			return 0, false
		}
		return binaryOp(operator(n, b.src), l, r)
	}
	return 0, false
}

func operator(n *sitter.Node, src []byte) string {
	if op := n.ChildByFieldName("operator"); op != nil {
		return op.Content(src)
	}
	return ""
}

func binaryOp(op string, l, r int64) (int64, bool) {
	switch op {
	case "+":
		return l + r, true
	case "-":
		return l - r, true
	case "*":
		return l * r, true
	case "/":
		if r == 0 {
			return 0, false
		}
		return l / r, true
	case "%":
		if r == 0 {
			return 0, false
		}
		return l % r, true
	case "<<":
		if r < 0 || r > 63 {
			return 0, false
		}
		return l << uint(r), true
	case ">>":
		if r < 0 || r > 63 {
			return 0, false
		}
		return l >> uint(r), true
	case "&":
		return l & r, true
	case "|":
		return l | r, true
	case "^":
		return l ^ r, true
	}
	return 0, false
}
