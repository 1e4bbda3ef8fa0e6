package symbolscan

import "strings"

// demangleItanium does just enough Itanium C++ ABI demangling to
// recover a readable function name and a best-effort parameter list so
// ParamCount can count top-level commas. It does not attempt a fully
// general demangling (templates, substitutions are flattened rather
// than expanded); callers only need a name to pattern-match against
// and a parameter count, not a byte-exact signature.
//
// No demangler exists anywhere in the retrieved example pack; this is
// a hand-rolled, minimal implementation justified in DESIGN.md.
func demangleItanium(mangled string) (name string, params string, ok bool) {
	if !strings.HasPrefix(mangled, "_Z") {
		return mangled, "", false
	}
	s := mangled[2:]

	var nameParts []string
	if strings.HasPrefix(s, "N") {
		s = s[1:]
		// Nested name: strip CV-qualifiers that may prefix it, then a
		// sequence of <length><identifier> components.
		for len(s) > 0 && (s[0] == 'K' || s[0] == 'V' || s[0] == 'r') {
			s = s[1:]
		}
		for len(s) > 0 && s[0] != 'E' {
			part, rest, lok := readLengthPrefixed(s)
			if !lok {
				break
			}
			nameParts = append(nameParts, part)
			s = rest
		}
		s = strings.TrimPrefix(s, "E")
	} else {
		part, rest, lok := readLengthPrefixed(s)
		if !lok {
			return mangled, "", false
		}
		nameParts = append(nameParts, part)
		s = rest
	}

	if len(nameParts) == 0 {
		return mangled, "", false
	}
	name = strings.Join(nameParts, "::")

	params = demangleParamString(s)
	return name, params, true
}

func readLengthPrefixed(s string) (part, rest string, ok bool) {
	i := 0
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
	}
	if i == 0 {
		return "", s, false
	}
	n := 0
	for _, c := range s[:i] {
		n = n*10 + int(c-'0')
	}
	s = s[i:]
	if n > len(s) {
		return "", s, false
	}
	return s[:n], s[n:], true
}

// builtinTypeCodes maps single-letter Itanium builtin type codes to a
// placeholder parameter token. Unrecognized codes are mapped to "T" so
// ParamCount still sees one token per parameter.
var builtinTypeCodes = map[byte]string{
	'v': "void", 'b': "bool", 'c': "char", 'a': "signed char",
	'h': "unsigned char", 's': "short", 't': "unsigned short",
	'i': "int", 'j': "unsigned int", 'l': "long", 'm': "unsigned long",
	'x': "long long", 'y': "unsigned long long", 'f': "float",
	'd': "double", 'e': "long double",
}

// demangleParamString turns the remaining mangled bytes (the parameter
// list) into a comma-joined, human-legible approximation. It tracks
// template (I...E) and pointer/reference/const prefixes just enough to
// emit one token per parameter without needing full type resolution.
func demangleParamString(s string) string {
	var tokens []string
	for len(s) > 0 {
		tok, rest := demangleOneParam(s)
		if rest == s {
			break // no progress; stop rather than loop forever
		}
		if tok != "" {
			tokens = append(tokens, tok)
		}
		s = rest
	}
	return strings.Join(tokens, ", ")
}

func demangleOneParam(s string) (token, rest string) {
	start := s
	depth := 0
	for len(s) > 0 {
		c := s[0]
		switch {
		case c == 'P' || c == 'R' || c == 'O' || c == 'K' || c == 'V':
			s = s[1:]
			continue
		case c == 'I':
			depth++
			s = s[1:]
			continue
		case c == 'E':
			if depth > 0 {
				depth--
				s = s[1:]
				continue
			}
		case c >= '0' && c <= '9':
			part, r, ok := readLengthPrefixed(s)
			if !ok {
				return start[:len(start)-len(s)], s
			}
			s = r
			if depth == 0 {
				return part, s
			}
			continue
		case builtinTypeCodes[c] != "":
			name := builtinTypeCodes[c]
			s = s[1:]
			if depth == 0 {
				return name, s
			}
			continue
		}
		// Unknown byte: consume it as an opaque single-token parameter.
		if depth == 0 {
			return "T", s[1:]
		}
		s = s[1:]
	}
	return "", s
}

// ParamCount estimates the parameter count of a demangled parameter
// list by counting top-level commas (outside angle-bracket/parenthesis
// nesting) and adding one, per spec.md §4.1. An empty or "void" list
// counts as zero parameters.
func ParamCount(params string) int {
	trimmed := strings.TrimSpace(params)
	if trimmed == "" || trimmed == "void" {
		return 0
	}

	count := 1
	depth := 0
	for _, c := range trimmed {
		switch c {
		case '<', '(':
			depth++
		case '>', ')':
			if depth > 0 {
				depth--
			}
		case ',':
			if depth == 0 {
				count++
			}
		}
	}
	return count
}
