package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/broady/crgen/bindgen/ir"
)

// DocumentProvider reads declarations from a JSON document, the output
// of an external C front end.
//
//	{"declarations": [
//	  {"kind": "struct", "name": "point", "fields": [
//	    {"name": "x", "type": {"kind": "int"}}]},
//	  {"kind": "function", "name": "move", "result": {"kind": "void"},
//	   "params": [{"name": "p", "type": {"kind": "pointer",
//	     "pointee": {"kind": "record", "key": "struct:point", "name": "point"}}}]}
//	]}
//
// Type kinds use the snake_case tags of ir.TypeKind. Records and enums
// take "key" and "name"; typedefs take "name" and "underlying"; elaborated
// types take "named". Omitted declaration keys default to "<kind>:<name>";
// record references without a key default to "struct:<name>", so unions
// referenced by type need an explicit key. Constant values are numbers or
// strings holding a C literal (`"\"text\""`, `"0x10"`).
type DocumentProvider struct {
	// Path is the document to read. "-" reads Reader instead.
	Path string

	// Reader supplies the document when Path is "-" or empty.
	Reader io.Reader
}

var _ Provider = (*DocumentProvider)(nil)

func (p *DocumentProvider) Name() string { return "document" }

func (p *DocumentProvider) Declarations(ctx context.Context, opts InputOptions) ([]ir.Declaration, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var (
		data []byte
		err  error
		file = p.Path
	)
	switch {
	case p.Path != "" && p.Path != "-":
		data, err = os.ReadFile(p.Path)
	case p.Reader != nil:
		file = "<stdin>"
		data, err = io.ReadAll(p.Reader)
	default:
		return nil, errors.New("document provider: no path or reader")
	}
	if err != nil {
		return nil, fmt.Errorf("read document: %w", err)
	}
	return DecodeDocument(file, data, opts.Namer)
}

type jsonDocument struct {
	Declarations []jsonDecl `json:"declarations"`
}

type jsonDecl struct {
	Kind      string          `json:"kind"`
	Key       string          `json:"key"`
	Name      string          `json:"name"`
	Symbol    string          `json:"symbol"`
	Doc       string          `json:"doc"`
	Fields    []jsonMember    `json:"fields"`
	Constants []jsonEnumValue `json:"constants"`
	Params    []jsonMember    `json:"params"`
	Result    *jsonType       `json:"result"`
	Variadic  bool            `json:"variadic"`
	Value     json.RawMessage `json:"value"`
	Source    *ir.Source      `json:"source"`
}

type jsonMember struct {
	Name string    `json:"name"`
	Type *jsonType `json:"type"`
}

type jsonEnumValue struct {
	Name  string `json:"name"`
	Value int64  `json:"value"`
}

type jsonType struct {
	Kind       string      `json:"kind"`
	Pointee    *jsonType   `json:"pointee"`
	Element    *jsonType   `json:"element"`
	Size       *int64      `json:"size"`
	Key        string      `json:"key"`
	Name       string      `json:"name"`
	Underlying *jsonType   `json:"underlying"`
	Named      *jsonType   `json:"named"`
	Result     *jsonType   `json:"result"`
	Params     []*jsonType `json:"params"`
	Variadic   bool        `json:"variadic"`
}

// DecodeDocument parses a declaration document. file names the document
// in errors.
func DecodeDocument(file string, data []byte, namer ir.Namer) ([]ir.Declaration, error) {
	var doc jsonDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, &ParseError{File: file, Msg: err.Error()}
	}

	decls := make([]ir.Declaration, 0, len(doc.Declarations))
	for i, jd := range doc.Declarations {
		d, err := jd.decode(namer)
		if err != nil {
			return nil, &ParseError{File: file, Msg: fmt.Sprintf("declarations[%d] (%s %q): %v", i, jd.Kind, jd.Name, err)}
		}
		decls = append(decls, d)
	}
	return decls, nil
}

func (jd jsonDecl) decode(namer ir.Namer) (ir.Declaration, error) {
	doc := ir.Documentation{Body: jd.Doc}
	var src ir.Source
	if jd.Source != nil {
		src = *jd.Source
	}
	name := namer.Identifier(jd.Name)

	switch jd.Kind {
	case "struct", "union":
		fields := make([]ir.Field, len(jd.Fields))
		for i, f := range jd.Fields {
			typ, err := f.Type.decode()
			if err != nil {
				return nil, fmt.Errorf("field %d: %w", i, err)
			}
			fields[i] = ir.Field{Name: namer.Identifier(f.Name), Type: typ}
		}
		return &ir.RecordDecl{
			Key:           jd.key(jd.Kind),
			Name:          name,
			Union:         jd.Kind == "union",
			Fields:        fields,
			Documentation: doc,
			Source:        src,
		}, nil

	case "enum":
		constants := make([]ir.EnumConstant, len(jd.Constants))
		for i, c := range jd.Constants {
			constants[i] = ir.EnumConstant{Name: namer.Identifier(c.Name), Value: c.Value}
		}
		return &ir.EnumDecl{
			Key:           jd.key("enum"),
			Name:          name,
			Constants:     constants,
			Documentation: doc,
			Source:        src,
		}, nil

	case "function":
		result, err := jd.Result.decode()
		if err != nil {
			return nil, fmt.Errorf("result: %w", err)
		}
		params := make([]ir.Param, len(jd.Params))
		for i, p := range jd.Params {
			typ, err := p.Type.decode()
			if err != nil {
				return nil, fmt.Errorf("param %d: %w", i, err)
			}
			params[i] = ir.Param{Name: namer.Identifier(p.Name), Type: typ}
		}
		return &ir.FunctionDecl{
			Key:           jd.key("function"),
			Name:          name,
			Symbol:        jd.Symbol,
			Params:        params,
			Result:        result,
			Variadic:      jd.Variadic,
			Documentation: doc,
			Source:        src,
		}, nil

	case "constant":
		value, err := constantValue(jd.Value)
		if err != nil {
			return nil, err
		}
		return &ir.ConstantDecl{
			Key:           jd.key("macro"),
			Name:          name,
			Value:         value,
			Documentation: doc,
			Source:        src,
		}, nil
	}
	return nil, fmt.Errorf("unknown declaration kind %q", jd.Kind)
}

func (jd jsonDecl) key(kind string) ir.TypeKey {
	if jd.Key != "" {
		return ir.TypeKey(jd.Key)
	}
	if jd.Name == "" {
		return ""
	}
	return ir.TypeKey(kind + ":" + jd.Name)
}

// constantValue accepts a JSON number, or a string holding the literal's
// C spelling.
func constantValue(raw json.RawMessage) (string, error) {
	if len(raw) == 0 {
		return "", errors.New("constant has no value")
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if lit, ok := macroLiteral(s); ok {
			return lit, nil
		}
		return "", fmt.Errorf("constant value %q is not a literal", s)
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return "", fmt.Errorf("constant value must be a number or string: %w", err)
	}
	if lit, ok := macroLiteral(n.String()); ok {
		return lit, nil
	}
	return "", fmt.Errorf("constant value %s is not a literal", n)
}

func (jt *jsonType) decode() (ir.Type, error) {
	if jt == nil {
		return nil, errors.New("missing type")
	}
	kind, err := ir.ParseTypeKind(jt.Kind)
	if err != nil {
		return nil, err
	}

	switch kind {
	case ir.KindPointer:
		pointee, err := jt.Pointee.decode()
		if err != nil {
			return nil, fmt.Errorf("pointee: %w", err)
		}
		return ir.PointerTo(pointee), nil

	case ir.KindConstantArray, ir.KindIncompleteArray:
		elem, err := jt.Element.decode()
		if err != nil {
			return nil, fmt.Errorf("element: %w", err)
		}
		if kind == ir.KindIncompleteArray {
			return ir.IncompleteArrayOf(elem), nil
		}
		if jt.Size == nil || *jt.Size < 0 {
			return nil, errors.New("constant array needs a non-negative size")
		}
		return ir.ArrayOf(elem, *jt.Size), nil

	case ir.KindRecord:
		return ir.RecordType(jt.namedKey("struct"), jt.Name), nil

	case ir.KindEnum:
		return ir.EnumType(jt.namedKey("enum"), jt.Name), nil

	case ir.KindTypedef:
		if jt.Name == "" {
			return nil, errors.New("typedef needs a name")
		}
		underlying, err := jt.Underlying.decode()
		if err != nil {
			return nil, fmt.Errorf("typedef %s: %w", jt.Name, err)
		}
		return ir.TypedefOf(jt.Name, underlying), nil

	case ir.KindElaborated:
		named, err := jt.Named.decode()
		if err != nil {
			return nil, fmt.Errorf("elaborated: %w", err)
		}
		return ir.Elaborated(named), nil

	case ir.KindFunctionProto:
		result, err := jt.Result.decode()
		if err != nil {
			return nil, fmt.Errorf("result: %w", err)
		}
		params := make([]ir.Type, len(jt.Params))
		for i, p := range jt.Params {
			if params[i], err = p.decode(); err != nil {
				return nil, fmt.Errorf("param %d: %w", i, err)
			}
		}
		return ir.FunctionProto(result, jt.Variadic, params...), nil

	case ir.KindInvalid:
		return nil, errors.New("invalid type kind")
	}
	return ir.Builtin(kind), nil
}

func (jt *jsonType) namedKey(kind string) ir.TypeKey {
	if jt.Key != "" {
		return ir.TypeKey(jt.Key)
	}
	return ir.TypeKey(kind + ":" + jt.Name)
}
