package typeexpr

import (
	"regexp"
	"strings"
)

// annotationPattern matches inline commentary such as "<0-20>"
var annotationPattern = regexp.MustCompile(`<[^>]*>`)

// StripAnnotations removes every angle-bracketed span and trims the result
func StripAnnotations(s string) string {
	return strings.TrimSpace(annotationPattern.ReplaceAllString(s, ""))
}

func isComma(c byte) bool { return c == ',' }

func isUnionMarker(c byte) bool { return c == '|' || c == '/' }

// Split splits s on commas that are not nested inside brackets or
// parentheses. Segments are trimmed and empty segments are dropped.
func Split(s string) []string {
	return splitTopLevel(StripAnnotations(s), isComma)
}

// SplitUnion splits s on top-level '|' and '/' markers.
func SplitUnion(s string) []string {
	return splitTopLevel(StripAnnotations(s), isUnionMarker)
}

func splitTopLevel(s string, isDelim func(byte) bool) []string {
	var out []string
	depth := 0
	last := 0
	for i := 0; i < len(s); i++ {
		switch c := s[i]; {
		case c == '[' || c == '(':
			depth++
		case c == ']' || c == ')':
			depth--
		case depth == 0 && isDelim(c):
			if seg := strings.TrimSpace(s[last:i]); seg != "" {
				out = append(out, seg)
			}
			last = i + 1
		}
	}
	if seg := strings.TrimSpace(s[last:]); seg != "" {
		out = append(out, seg)
	}
	return out
}

// hasTopLevel reports whether s contains a delimiter outside all nesting
func hasTopLevel(s string, isDelim func(byte) bool) bool {
	depth := 0
	for i := 0; i < len(s); i++ {
		switch c := s[i]; {
		case c == '[' || c == '(':
			depth++
		case c == ']' || c == ')':
			depth--
		case depth == 0 && isDelim(c):
			return true
		}
	}
	return false
}

// balanced reports whether every bracket and parenthesis in s is closed in
// order. Mixed pairs such as "[)" count as unbalanced.
func balanced(s string) bool {
	var stack []byte
	for i := 0; i < len(s); i++ {
		switch c := s[i]; c {
		case '[', '(':
			stack = append(stack, c)
		case ']', ')':
			if len(stack) == 0 {
				return false
			}
			open := stack[len(stack)-1]
			if (c == ']') != (open == '[') {
				return false
			}
			stack = stack[:len(stack)-1]
		}
	}
	return len(stack) == 0
}

// enclosedBy reports whether s opens with open and the matching close is
// the final byte, so "[a]" is enclosed but "[a] [b]" is not.
func enclosedBy(s string, open, close byte) bool {
	if len(s) < 2 || s[0] != open || s[len(s)-1] != close {
		return false
	}
	depth := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '[', '(':
			depth++
		case ']', ')':
			depth--
			if depth == 0 && i != len(s)-1 {
				return false
			}
		}
	}
	return depth == 0
}
