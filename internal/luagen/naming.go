package luagen

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Pascal converts snake_case to PascalCase ("get_caster" -> "GetCaster")
func Pascal(snake string) string {
	var b strings.Builder
	for _, part := range strings.Split(strings.ToLower(snake), "_") {
		r, size := utf8.DecodeRuneInString(part)
		if size == 0 {
			continue
		}
		b.WriteRune(unicode.ToUpper(r))
		b.WriteString(part[size:])
	}
	return b.String()
}

// Camel converts snake_case to camelCase ("get_caster" -> "getCaster")
func Camel(snake string) string {
	pascal := Pascal(snake)
	r, size := utf8.DecodeRuneInString(pascal)
	if size == 0 {
		return ""
	}
	return string(unicode.ToLower(r)) + pascal[size:]
}

// identifier turns free text into a snake_case identifier, or "" if
// nothing usable remains
func identifier(text string) string {
	var b strings.Builder
	pendingSep := false
	for _, r := range strings.ToLower(text) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			if pendingSep && b.Len() > 0 {
				b.WriteByte('_')
			}
			b.WriteRune(r)
			pendingSep = false
			continue
		}
		pendingSep = true
	}
	out := b.String()
	if out == "" || (out[0] >= '0' && out[0] <= '9') {
		return ""
	}
	return out
}
