package provider

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	intLiteralRe   = regexp.MustCompile(`^(0[xX][0-9a-fA-F]+|0[bB][01]+|[0-9]+)[uUlL]*$`)
	floatLiteralRe = regexp.MustCompile(`^([0-9]*\.[0-9]*(?:[eE][+-]?[0-9]+)?|[0-9]+[eE][+-]?[0-9]+)[fFlL]?$`)
	stringLitRe    = regexp.MustCompile(`^"(?:[^"\\]|\\.)*"$`)
	charLitRe      = regexp.MustCompile(`^'(?:[^'\\]|\\.)'$`)
)

// macroLiteral converts the replacement text of an object-like macro to a
// Crystal literal. Only single literals, optionally negated and wrapped in
// parentheses, are accepted; anything else reports false.
func macroLiteral(text string) (string, bool) {
	sign, text := unwrapLiteral(text)
	if text == "" {
		return "", false
	}
	if lit, ok := numberLiteral(text); ok {
		return sign + lit, true
	}
	if sign != "" {
		return "", false
	}
	if stringLitRe.MatchString(text) || charLitRe.MatchString(text) {
		return escapeInterpolation(text), true
	}
	return "", false
}

// macroInteger returns the integer value of a macro's replacement text.
func macroInteger(text string) (int64, bool) {
	sign, text := unwrapLiteral(text)
	v, ok := parseInteger(text)
	if !ok {
		v, ok = parseCharLiteral(text)
	}
	if ok && sign == "-" {
		v = -v
	}
	return v, ok
}

// unwrapLiteral strips comments, enclosing parentheses and a leading sign.
// sign is "-" for negated text and empty otherwise.
func unwrapLiteral(text string) (sign, body string) {
	text = strings.TrimSpace(stripLineComment(text))
	for len(text) >= 2 && text[0] == '(' && text[len(text)-1] == ')' {
		text = strings.TrimSpace(text[1 : len(text)-1])
	}
	if text != "" && (text[0] == '-' || text[0] == '+') {
		if text[0] == '-' {
			sign = "-"
		}
		text = strings.TrimSpace(text[1:])
	}
	return sign, text
}

// numberLiteral rewrites a C integer or floating literal in Crystal syntax.
func numberLiteral(text string) (string, bool) {
	if m := intLiteralRe.FindStringSubmatch(text); m != nil {
		digits := m[1]
		// C octal literals have a bare leading zero.
		if len(digits) > 1 && digits[0] == '0' && digits[1] >= '0' && digits[1] <= '9' {
			if _, err := strconv.ParseInt(digits, 8, 64); err != nil {
				return "", false
			}
			digits = "0o" + digits[1:]
		}
		return digits, true
	}
	if m := floatLiteralRe.FindStringSubmatch(text); m != nil {
		lit := m[1]
		mant, exp, _ := strings.Cut(strings.ToLower(lit), "e")
		if !strings.Contains(mant, ".") {
			return mant + ".0e" + exp, true
		}
		if strings.HasPrefix(mant, ".") {
			mant = "0" + mant
		}
		if strings.HasSuffix(mant, ".") {
			mant += "0"
		}
		if mant == "0.0" && lit == "." {
			return "", false
		}
		if exp != "" {
			return mant + "e" + exp, true
		}
		return mant, true
	}
	return "", false
}

// parseInteger parses a C integer literal, ignoring suffixes.
func parseInteger(text string) (int64, bool) {
	m := intLiteralRe.FindStringSubmatch(strings.TrimSpace(text))
	if m == nil {
		return 0, false
	}
	digits := m[1]
	base := 10
	switch {
	case len(digits) > 2 && (digits[1] == 'x' || digits[1] == 'X'):
		base, digits = 16, digits[2:]
	case len(digits) > 2 && (digits[1] == 'b' || digits[1] == 'B'):
		base, digits = 2, digits[2:]
	case len(digits) > 1 && digits[0] == '0':
		base = 8
	}
	v, err := strconv.ParseUint(digits, base, 64)
	if err != nil {
		return 0, false
	}
	return int64(v), true
}

// parseCharLiteral returns the value of a simple C character literal.
func parseCharLiteral(text string) (int64, bool) {
	if !charLitRe.MatchString(text) {
		return 0, false
	}
	body := text[1 : len(text)-1]
	if body[0] != '\\' {
		return int64(body[0]), true
	}
	switch body[1] {
	case 'n':
		return '\n', true
	case 't':
		return '\t', true
	case 'r':
		return '\r', true
	case '0':
		return 0, true
	case '\\', '\'', '"':
		return int64(body[1]), true
	}
	return 0, false
}

func stripLineComment(text string) string {
	if i := strings.Index(text, "//"); i >= 0 && !strings.ContainsAny(text[:i], `"'`) {
		return text[:i]
	}
	if i := strings.Index(text, "/*"); i >= 0 && !strings.ContainsAny(text[:i], `"'`) {
		return text[:i]
	}
	return text
}

// escapeInterpolation keeps "#{" in C strings from starting a Crystal
// interpolation.
func escapeInterpolation(lit string) string {
	if lit[0] != '"' {
		return lit
	}
	return strings.ReplaceAll(lit, "#{", `\#{`)
}
