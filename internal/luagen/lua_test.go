package luagen

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestQuote(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"plain", `"plain"`},
		{`say "hi"`, `"say \"hi\""`},
		{`back\slash`, `"back\\slash"`},
		{"two\nlines", `"two\nlines"`},
		{"cr\r", `"cr\r"`},
		{"Mind's Reflection", `"Mind's Reflection"`},
		{"", `""`},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, Quote(tt.input))
		})
	}
}

func TestIsKeyword(t *testing.T) {
	assert.True(t, IsKeyword("and"))
	assert.True(t, IsKeyword("function"))
	assert.True(t, IsKeyword("goto"))
	assert.False(t, IsKeyword("And"))
	assert.False(t, IsKeyword("entity"))
	assert.Len(t, Keywords, 22)
}

func TestPascalCamel(t *testing.T) {
	tests := []struct {
		snake  string
		pascal string
		camel  string
	}{
		{"get_caster", "GetCaster", "getCaster"},
		{"GET_CASTER", "GetCaster", "getCaster"},
		{"add", "Add", "add"},
		{"mote_trade_get", "MoteTradeGet", "moteTradeGet"},
		{"double__underscore", "DoubleUnderscore", "doubleUnderscore"},
		{"", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.snake, func(t *testing.T) {
			assert.Equal(t, tt.pascal, Pascal(tt.snake))
			assert.Equal(t, tt.camel, Camel(tt.snake))
		})
	}
}

func TestIdentifier(t *testing.T) {
	assert.Equal(t, "player_entity", identifier("player entity"))
	assert.Equal(t, "num", identifier("[num]"))
	assert.Equal(t, "mote_trade_get", identifier("mote/trade/get"))
	assert.Equal(t, "", identifier("[]"))
	assert.Equal(t, "", identifier("0-20"))
}
