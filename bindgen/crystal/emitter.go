package crystal

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/broady/crgen/bindgen/ir"
)

// Warning codes reported while rendering.
const (
	WarnOpaqueAlias          = "opaque_alias"
	WarnSynthesizedParamName = "synthesized_param_name"
	WarnRenamedDuplicate     = "renamed_duplicate"
)

// Emitter renders declarations into a Writer.
type Emitter struct {
	resolver *Resolver
	config   GeneratorConfig
	w        *Writer
}

// NewEmitter returns an emitter writing to w.
func NewEmitter(resolver *Resolver, w *Writer, config GeneratorConfig) *Emitter {
	return &Emitter{resolver: resolver, config: config, w: w}
}

// EmitDeclaration renders one declaration at the writer's current level.
func (e *Emitter) EmitDeclaration(d ir.Declaration) ([]ir.Warning, error) {
	if e.config.EmitComments && !d.Doc().IsZero() {
		e.w.Comment(d.Doc().Body)
	}

	var (
		warnings []ir.Warning
		err      error
	)
	switch d.DeclKind() {
	case ir.DeclEnum:
		warnings = e.emitEnum(d.(*ir.EnumDecl))
	case ir.DeclRecord:
		warnings, err = e.emitRecord(d.(*ir.RecordDecl))
	case ir.DeclFunction:
		warnings, err = e.emitFunction(d.(*ir.FunctionDecl))
	case ir.DeclConstant:
		e.emitConstant(d.(*ir.ConstantDecl))
	default:
		err = fmt.Errorf("unknown declaration kind %d", d.DeclKind())
	}
	if err != nil {
		return nil, &DeclarationError{Kind: d.DeclKind(), Name: d.Ident().Raw(), Err: err}
	}
	return warnings, nil
}

// emitOpaqueAlias renders a declaration with no members as a pointer alias.
func (e *Emitter) emitOpaqueAlias(d ir.Declaration) ir.Warning {
	name := e.resolver.DeclName(d)
	e.w.Puts("alias " + name + " = " + OpaquePointer)
	return newWarning(d, WarnOpaqueAlias,
		fmt.Sprintf("%s %s has no members; emitted as %s", d.DeclKind(), name, OpaquePointer))
}

func (e *Emitter) emitEnum(d *ir.EnumDecl) []ir.Warning {
	if len(d.Constants) == 0 {
		return []ir.Warning{e.emitOpaqueAlias(d)}
	}

	e.w.Puts("enum " + e.resolver.DeclName(d))
	e.w.Block(func() {
		for _, c := range d.Constants {
			e.w.Puts(ClassName(c.Name) + " = " + strconv.FormatInt(c.Value, 10))
		}
	})
	e.w.Puts("end")
	return nil
}

func (e *Emitter) emitRecord(d *ir.RecordDecl) ([]ir.Warning, error) {
	if len(d.Fields) == 0 {
		return []ir.Warning{e.emitOpaqueAlias(d)}, nil
	}

	types := make([]string, len(d.Fields))
	for i, f := range d.Fields {
		typ, err := e.resolver.Resolve(f.Type)
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", f.Name.Raw(), err)
		}
		types[i] = typ
	}

	keyword := "struct"
	if d.Union {
		keyword = "union"
	}
	e.w.Puts(keyword + " " + e.resolver.DeclName(d))
	names := newNameSet()
	e.w.Block(func() {
		for i, f := range d.Fields {
			e.w.Puts(names.claim(Downcase(f.Name)) + " : " + types[i])
		}
	})
	e.w.Puts("end")
	return nil, nil
}

func (e *Emitter) emitFunction(d *ir.FunctionDecl) ([]ir.Warning, error) {
	var warnings []ir.Warning

	result, err := e.resolver.Resolve(d.Result)
	if err != nil {
		return nil, fmt.Errorf("result: %w", err)
	}

	names := newNameSet()
	params := make([]string, 0, len(d.Params)+1)
	for i, p := range d.Params {
		typ, err := e.resolver.Resolve(p.Type)
		if err != nil {
			return nil, fmt.Errorf("parameter %d: %w", i+1, err)
		}

		var name string
		if p.Name.IsZero() {
			name = names.claim(paramNameFromType(typ))
			warnings = append(warnings, newWarning(d, WarnSynthesizedParamName,
				fmt.Sprintf("parameter %d of %s has no name; using %q", i+1, d.Name.Raw(), name)))
		} else {
			name = names.claim(Downcase(p.Name))
		}
		params = append(params, name+" : "+typ)
	}
	if d.Variadic {
		params = append(params, "...")
	}

	e.w.Puts(fmt.Sprintf("fun %s = %s(%s) : %s",
		e.resolver.DeclName(d), quoteString(d.LinkName()), strings.Join(params, ", "), result))
	return warnings, nil
}

func (e *Emitter) emitConstant(d *ir.ConstantDecl) {
	e.w.Puts(e.resolver.DeclName(d) + " = " + d.Value)
}

// paramNameFromType derives a parameter name from its resolved type:
// lowercased with pointer markers removed.
func paramNameFromType(typ string) string {
	name := strings.ToLower(strings.ReplaceAll(typ, "*", ""))
	name = strings.Map(func(r rune) rune {
		if isIdentRune(r) {
			return r
		}
		return '_'
	}, name)
	name = strings.Trim(name, "_")
	if name == "" {
		name = "arg"
	}
	return sanitizeIdentifier(name, caseDowncase)
}

// nameSet hands out unique names within one parameter list or record.
type nameSet map[string]int

func newNameSet() nameSet {
	return make(nameSet)
}

// claim returns name, or name with a numeric suffix if it was claimed before.
func (s nameSet) claim(name string) string {
	if _, taken := s[name]; !taken {
		s[name] = 1
		return name
	}
	for n := s[name] + 1; ; n++ {
		candidate := name + "_" + strconv.Itoa(n)
		if _, taken := s[candidate]; !taken {
			s[name] = n
			s[candidate] = 1
			return candidate
		}
	}
}

func newWarning(d ir.Declaration, code, msg string) ir.Warning {
	w := ir.Warning{Code: code, Message: msg, Declaration: d.Ident().Raw()}
	if src := d.Src(); !src.IsZero() {
		w.Source = &src
	}
	return w
}

// quoteString renders s as a Crystal string literal.
func quoteString(s string) string {
	var b strings.Builder
	b.WriteByte('"')
	for i := 0; i < len(s); i++ {
		switch c := s[i]; c {
		case '"', '\\':
			b.WriteByte('\\')
			b.WriteByte(c)
		case '#':
			// "#{" starts an interpolation.
			if i+1 < len(s) && s[i+1] == '{' {
				b.WriteByte('\\')
			}
			b.WriteByte(c)
		case '\n':
			b.WriteString(`\n`)
		case '\t':
			b.WriteString(`\t`)
		default:
			b.WriteByte(c)
		}
	}
	b.WriteByte('"')
	return b.String()
}
