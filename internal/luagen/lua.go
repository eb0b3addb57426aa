package luagen

import (
	"slices"
	"strings"
)

// Keywords are the reserved words of Lua 5.4
var Keywords = []string{
	"and", "break", "do", "else", "elseif", "end",
	"false", "for", "function", "goto", "if", "in",
	"local", "nil", "not", "or", "repeat", "return",
	"then", "true", "until", "while",
}

// IsKeyword reports whether s is a Lua reserved word
func IsKeyword(s string) bool {
	return slices.Contains(Keywords, s)
}

var quoteReplacer = strings.NewReplacer(
	`\`, `\\`,
	`"`, `\"`,
	"\n", `\n`,
	"\r", `\r`,
)

// Quote escapes s as a double-quoted Lua string literal
func Quote(s string) string {
	return `"` + quoteReplacer.Replace(s) + `"`
}
