package itempath

import "strings"

// MatchName reports whether name matches pattern. A pattern is a list of
// alternatives separated by "|"; surrounding whitespace is ignored and "*"
// matches any run of characters, including none.
func MatchName(pattern, name string) bool {
	for _, alt := range strings.Split(pattern, "|") {
		if globMatch(strings.TrimSpace(alt), name) {
			return true
		}
	}
	return false
}

// MatchAny reports whether name matches any of patterns. No patterns match
// every name.
func MatchAny(patterns []string, name string) bool {
	if len(patterns) == 0 {
		return true
	}
	for _, p := range patterns {
		if MatchName(p, name) {
			return true
		}
	}
	return false
}

func globMatch(pattern, name string) bool {
	// star/mark remember the last "*" so a mismatch can backtrack to it.
	p, n := 0, 0
	star, mark := -1, 0
	for n < len(name) {
		switch {
		case p < len(pattern) && pattern[p] == '*':
			star, mark = p, n
			p++
		case p < len(pattern) && pattern[p] == name[n]:
			p++
			n++
		case star >= 0:
			p = star + 1
			mark++
			n = mark
		default:
			return false
		}
	}
	for p < len(pattern) && pattern[p] == '*' {
		p++
	}
	return p == len(pattern)
}
