package ir

import (
	"sort"
	"strings"
)

// Identifier is a raw C identifier together with its word parts.
//
// Parts are split on underscores, before an uppercase letter that is
// followed by a lowercase letter ("ABCd" → "AB", "Cd"), and at
// lowercase→uppercase transitions ("fooBar" → "foo", "Bar").
// They are computed once, when the identifier is built, and never change.
type Identifier struct {
	raw   string
	parts []string
}

// NewIdentifier builds an identifier without prefix stripping.
func NewIdentifier(raw string) Identifier {
	return Namer{}.Identifier(raw)
}

// Raw returns the identifier exactly as written in C.
func (id Identifier) Raw() string { return id.raw }

// Parts returns a copy of the word parts.
func (id Identifier) Parts() []string {
	parts := make([]string, len(id.parts))
	copy(parts, id.parts)
	return parts
}

// IsZero returns true for the empty identifier (anonymous entities).
func (id Identifier) IsZero() bool { return id.raw == "" }

// String returns the raw identifier.
func (id Identifier) String() string { return id.raw }

// Namer builds identifiers for one generation run.
type Namer struct {
	// Prefixes are stripped from the start of raw names before splitting
	// (e.g. "mrb", "mrbc"). The longest matching prefix wins.
	Prefixes []string
}

// Identifier builds the identifier for raw.
// When stripping a prefix leaves no word parts (e.g. the name is the
// prefix itself), the unstripped raw name is split instead.
func (n Namer) Identifier(raw string) Identifier {
	if raw == "" {
		return Identifier{}
	}
	parts := splitWords(n.strip(raw))
	if len(parts) == 0 {
		parts = splitWords(raw)
	}
	return Identifier{raw: raw, parts: parts}
}

func (n Namer) strip(raw string) string {
	if len(n.Prefixes) == 0 {
		return raw
	}
	prefixes := make([]string, len(n.Prefixes))
	copy(prefixes, n.Prefixes)
	sort.SliceStable(prefixes, func(i, j int) bool {
		return len(prefixes[i]) > len(prefixes[j])
	})
	for _, p := range prefixes {
		if p != "" && strings.HasPrefix(raw, p) {
			return raw[len(p):]
		}
	}
	return raw
}

func isUpper(b byte) bool { return b >= 'A' && b <= 'Z' }
func isLower(b byte) bool { return b >= 'a' && b <= 'z' }

// splitWords segments s into word parts. Empty parts are dropped.
func splitWords(s string) []string {
	var parts []string
	start := 0
	flush := func(end int) {
		if end > start {
			parts = append(parts, s[start:end])
		}
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c == '_' {
			flush(i)
			start = i + 1
			continue
		}
		if !isUpper(c) || i == start {
			continue
		}
		upperThenLower := i+1 < len(s) && isLower(s[i+1])
		lowerThenUpper := isLower(s[i-1])
		if upperThenLower || lowerThenUpper {
			flush(i)
			start = i
		}
	}
	flush(len(s))
	return parts
}
