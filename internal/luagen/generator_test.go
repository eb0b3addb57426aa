package luagen

import (
	"bytes"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/hexlua/internal/typeexpr"
	"github.com/dshills/hexlua/pkg/types"
)

func strPtr(s string) *string { return &s }

func testRegistry() *types.Registry {
	return &types.Registry{Patterns: map[string]types.Pattern{
		"hexcasting:get_caster": {
			ID:        "hexcasting:get_caster",
			Name:      "Mind's Reflection",
			Direction: types.DirNorthEast,
			Signature: "qaq",
			Operators: []types.Operator{{
				Description: "Adds me to the stack.",
				Outputs:     strPtr("entity"),
				BookURL:     "https://hexcasting.hexxy.media/#patterns/basics@hexcasting:get_caster",
				ModID:       "hexcasting",
			}},
		},
		"hexcasting:add": {
			ID:        "hexcasting:add",
			Name:      "Additive Distillation",
			Direction: types.DirNorthEast,
			Signature: "waaw",
			Operators: []types.Operator{
				{
					Description: "Adds two numbers.",
					Inputs:      strPtr("num, num"),
					Outputs:     strPtr("num"),
					ModID:       "hexcasting",
				},
				{
					Description: "Adds two vectors.",
					Inputs:      strPtr("vec, vec"),
					Outputs:     strPtr("vec"),
					ModID:       "hexcasting",
				},
			},
		},
		"hexcasting:and": {
			ID:        "hexcasting:and",
			Name:      "Conjunction Distillation",
			Direction: types.DirNorthEast,
			Signature: "wdw",
			Operators: []types.Operator{{
				Inputs:  strPtr("bool, bool"),
				Outputs: strPtr("bool"),
				ModID:   "hexcasting",
			}},
		},
		"moreiotas:add": {
			ID:        "moreiotas:add",
			Name:      "Addition, Again",
			Direction: types.DirEast,
			Signature: "waawa",
			Operators: []types.Operator{{
				Inputs:  strPtr("mystery_thing"),
				Outputs: strPtr("[complicated!]"),
				ModID:   "moreiotas",
			}},
		},
		"hexcasting:empty": {
			ID:        "hexcasting:empty",
			Name:      "No Operators",
			Direction: types.DirEast,
			Signature: "qq",
		},
	}}
}

func generate(t *testing.T) (string, *Stats, string) {
	t.Helper()
	var logs bytes.Buffer
	logger := log.New(&logs)
	resolver := typeexpr.New(typeexpr.DefaultTables(), typeexpr.NewTracker(logger))

	var out bytes.Buffer
	stats, err := NewGenerator(resolver, logger).Generate(&out, testRegistry())
	require.NoError(t, err)
	return out.String(), stats, logs.String()
}

func TestGenerate_Header(t *testing.T) {
	out, _, _ := generate(t)

	assert.True(t, strings.HasPrefix(out, "---@meta\n"))
	assert.Contains(t, out, "---@class Hex\nHex = {}\n")
}

func TestGenerate_Aliases(t *testing.T) {
	out, stats, _ := generate(t)

	assert.Contains(t, out, "---@alias HexEntity { uuid: string, name: string|nil }\n")
	assert.Contains(t, out, "---@alias HexItemT userdata\n")
	assert.NotContains(t, out, "---@alias number")
	assert.NotContains(t, out, "---@alias any")

	tables := typeexpr.DefaultTables()
	natives := 0
	for _, v := range tables.Canonical {
		if tables.IsNative(v) {
			natives++
		}
	}
	assert.Equal(t, len(tables.Canonical)-natives, stats.Aliases)
}

func TestGenerate_Functions(t *testing.T) {
	out, stats, _ := generate(t)

	assert.Contains(t, out, "---**Mind's Reflection** (`hexcasting:get_caster`)\n")
	assert.Contains(t, out, "---Adds me to the stack.\n")
	assert.Contains(t, out, "---[hexcasting](https://hexcasting.hexxy.media/#patterns/basics@hexcasting:get_caster)\n")
	assert.Contains(t, out, "---@return { uuid: string, name: string|nil }\nfunction Hex.getCaster() end\n")

	assert.Contains(t, out, "---@param num number\n---@param num2 number\n---@return number\n")
	assert.Contains(t, out,
		"---@overload fun(vec: { x: number, y: number, z: number }, vec2: { x: number, y: number, z: number }): { x: number, y: number, z: number }\n")
	assert.Contains(t, out, "function Hex.add(num, num2) end\n")

	// moreiotas:add collides with hexcasting:add and gets qualified
	assert.Contains(t, out, "function Hex.moreiotasAdd(mysteryThing) end\n")
	assert.Contains(t, out, "---@return [[HexItemT, number][], [HexItemT, number]]\n")

	// keyword names use index syntax
	assert.Contains(t, out, `Hex["and"] = function(bool, bool2) end`)

	assert.Equal(t, 4, stats.Patterns)
	assert.Equal(t, 5, stats.Operators)
}

func TestGenerate_PatternTable(t *testing.T) {
	out, _, _ := generate(t)

	assert.Contains(t, out, "Hex.patterns = {\n")
	assert.Contains(t, out,
		`["hexcasting:get_caster"] = { id = "hexcasting:get_caster", name = "Mind's Reflection", direction = "NORTH_EAST", signature = "qaq", isPerWorld = false },`)
	// patterns without operators still appear in the metadata table
	assert.Contains(t, out, `["hexcasting:empty"]`)
	assert.NotContains(t, out, "No Operators**")
}

func TestGenerate_Unresolved(t *testing.T) {
	out, stats, logs := generate(t)

	assert.Equal(t, []string{"mystery_thing"}, stats.UnresolvedTypes)
	assert.Contains(t, out, "---@param mysteryThing mystery_thing\n")
	assert.Equal(t, 1, strings.Count(logs, "unknown type"))
}

func TestGenerate_Namespace(t *testing.T) {
	resolver := typeexpr.New(nil, typeexpr.NewTracker(log.New(&bytes.Buffer{})))
	g := NewGenerator(resolver, log.New(&bytes.Buffer{})).WithNamespace("Spells")

	var out bytes.Buffer
	_, err := g.Generate(&out, testRegistry())
	require.NoError(t, err)

	assert.Contains(t, out.String(), "Spells = {}\n")
	assert.Contains(t, out.String(), "function Spells.getCaster() end\n")
	assert.Contains(t, out.String(), "Spells.patterns = {\n")
}

func TestNameSet(t *testing.T) {
	n := newNameSet()
	a := &types.Pattern{ID: "hexcasting:add"}
	b := &types.Pattern{ID: "hexal:add"}
	c := &types.Pattern{ID: "hexal:add"}

	assert.Equal(t, "add", n.function(a))
	assert.Equal(t, "hexalAdd", n.function(b))
	assert.Equal(t, "hexalAdd2", n.function(c))
}

func TestParams_UniqueNames(t *testing.T) {
	g := NewGenerator(typeexpr.New(nil, nil), log.New(&bytes.Buffer{}))

	names := func(inputs string) []string {
		var out []string
		for _, p := range g.params(types.Operator{Inputs: strPtr(inputs)}) {
			out = append(out, p.name)
		}
		return out
	}

	assert.Equal(t, []string{"entity", "entity2", "entity3"}, names("entity, entity, entity 2"))
	assert.Equal(t, []string{"num", "num2", "num3"}, names("num, num, num"))
	assert.Equal(t, []string{"_end", "arg2"}, names("end, ?"))
}

func TestGenerate_DescriptionAnnotationsEscaped(t *testing.T) {
	reg := &types.Registry{Patterns: map[string]types.Pattern{
		"hexcasting:mask": {
			ID:        "hexcasting:mask",
			Name:      "Bookkeeper's Gambit",
			Direction: types.DirEast,
			Signature: "a",
			Operators: []types.Operator{{
				Description: "Drops iotas.\n@param x number\n  @return nil",
				ModID:       "hexcasting",
			}},
		},
	}}

	var out bytes.Buffer
	_, err := NewGenerator(typeexpr.New(nil, nil), log.New(&bytes.Buffer{})).Generate(&out, reg)
	require.NoError(t, err)

	assert.Contains(t, out.String(), "---Drops iotas.\n---\\@param x number\n---\\@return nil\n")
	assert.NotContains(t, out.String(), "---@param x")
	assert.Equal(t, "plain", docLine("plain"))
}
