package crystal

import (
	"strings"
	"unicode"

	"github.com/broady/crgen/bindgen/ir"
)

// reservedWords holds every word a rendered identifier must not equal:
// the Crystal keywords plus the historical blacklist of the generator
// this backend replaces (which included BEGIN and END).
var reservedWords = map[string]bool{
	"BEGIN":           true,
	"END":             true,
	"abstract":        true,
	"alias":           true,
	"and":             true,
	"annotation":      true,
	"as":              true,
	"asm":             true,
	"begin":           true,
	"break":           true,
	"case":            true,
	"class":           true,
	"def":             true,
	"defined":         true,
	"do":              true,
	"else":            true,
	"elsif":           true,
	"end":             true,
	"ensure":          true,
	"enum":            true,
	"extend":          true,
	"false":           true,
	"for":             true,
	"fun":             true,
	"if":              true,
	"in":              true,
	"include":         true,
	"instance_sizeof": true,
	"lib":             true,
	"macro":           true,
	"module":          true,
	"next":            true,
	"nil":             true,
	"not":             true,
	"of":              true,
	"offsetof":        true,
	"or":              true,
	"out":             true,
	"pointerof":       true,
	"private":         true,
	"protected":       true,
	"redo":            true,
	"require":         true,
	"rescue":          true,
	"retry":           true,
	"return":          true,
	"select":          true,
	"self":            true,
	"sizeof":          true,
	"struct":          true,
	"super":           true,
	"then":            true,
	"true":            true,
	"type":            true,
	"typeof":          true,
	"undef":           true,
	"uninitialized":   true,
	"union":           true,
	"unless":          true,
	"until":           true,
	"verbatim":        true,
	"when":            true,
	"while":           true,
	"with":            true,
	"yield":           true,
}

// caseMode selects one of the three renderings of an identifier.
type caseMode int

const (
	caseDowncase  caseMode = iota // lower_snake: fields, params, functions
	caseClassName                 // PascalCase: types, enum members
	caseConstant                  // UPPER_SNAKE: constants
)

// escapeReservedWord escapes a reserved word by appending an underscore.
func escapeReservedWord(name string) string {
	if reservedWords[name] {
		return name + "_"
	}
	return name
}

// Downcase renders id as a lower_snake identifier (fields, parameters,
// function names).
func Downcase(id ir.Identifier) string {
	return format(id, caseDowncase)
}

// ClassName renders id as a PascalCase identifier (types, enum members).
func ClassName(id ir.Identifier) string {
	return format(id, caseClassName)
}

// Constant renders id as an UPPER_SNAKE identifier.
func Constant(id ir.Identifier) string {
	return format(id, caseConstant)
}

func format(id ir.Identifier, mode caseMode) string {
	parts := id.Parts()
	for i, p := range parts {
		switch mode {
		case caseDowncase:
			parts[i] = strings.ToLower(p)
		case caseConstant:
			parts[i] = strings.ToUpper(p)
		case caseClassName:
			parts[i] = upperFirst(p)
		}
	}

	sep := "_"
	if mode == caseClassName {
		sep = ""
	}
	return sanitizeIdentifier(strings.Join(parts, sep), mode)
}

func upperFirst(s string) string {
	if s == "" {
		return s
	}
	r := []rune(s)
	r[0] = unicode.ToUpper(r[0])
	return string(r)
}

// sanitizeIdentifier makes a rendered name valid for Crystal.
// Invalid characters become underscores. A leading digit is prefixed with
// "_" for lowercase names and "N" for names that must start uppercase.
// An empty rendering becomes "unnamed" in the requested case.
func sanitizeIdentifier(name string, mode caseMode) string {
	if name == "" {
		switch mode {
		case caseClassName:
			return "Unnamed"
		case caseConstant:
			return "UNNAMED"
		default:
			return "unnamed"
		}
	}

	var result strings.Builder
	for i, r := range name {
		if i == 0 && unicode.IsDigit(r) {
			if mode == caseDowncase {
				result.WriteRune('_')
			} else {
				result.WriteRune('N')
			}
		}
		if isIdentRune(r) {
			result.WriteRune(r)
		} else {
			result.WriteRune('_')
		}
	}

	return escapeReservedWord(result.String())
}

func isIdentRune(r rune) bool {
	return r == '_' || (r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)))
}
