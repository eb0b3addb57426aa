package typeexpr

import (
	"sort"
	"strings"
)

const (
	// NativeSentinel marks a canonical type that renders as its own name
	NativeSentinel = "_nativeLua"

	// OpaqueRendering is the rendering of handle types with no exposed shape
	OpaqueRendering = "userdata"

	// CatchAll is the LuaLS type accepting any value
	CatchAll = "any"

	// Null is the LuaLS null sentinel used in nullable unions
	Null = "nil"
)

// Tables holds the symbol tables consulted during leaf resolution.
// A Tables value must not be modified once handed to a Resolver.
type Tables struct {
	// Canonical maps a case-sensitive canonical name to NativeSentinel,
	// OpaqueRendering, or a literal structural rendering.
	Canonical map[string]string

	// Aliases maps a lowercase informal token to a canonical name or to an
	// inline rendering.
	Aliases map[string]string

	// Specials maps an exact lowercase input to a fixed rendering.
	Specials map[string]string

	// CatchAll and Null override the package defaults when non-empty.
	CatchAll string
	Null     string
}

// IsNative reports whether s is the native sentinel
func (t *Tables) IsNative(s string) bool {
	return s == NativeSentinel
}

// IsOpaque reports whether s is the opaque handle rendering
func (t *Tables) IsOpaque(s string) bool {
	return s == OpaqueRendering
}

// Render returns the rendering of a canonical type name.
func (t *Tables) Render(name string) (string, bool) {
	value, ok := t.Canonical[name]
	if !ok {
		return "", false
	}
	if t.IsNative(value) {
		return name, true
	}
	return value, true
}

// Lookup resolves a single token against the alias table and then the
// canonical table. Aliases naming a canonical type return that type's
// rendering; any other alias value is an inline rendering.
func (t *Tables) Lookup(token string) (string, bool) {
	lower := strings.ToLower(token)
	if target, ok := t.Aliases[lower]; ok {
		if rendered, ok := t.Render(target); ok {
			return rendered, true
		}
		return target, true
	}
	if rendered, ok := t.Render(token); ok {
		return rendered, true
	}
	return t.Render(lower)
}

// CanonicalNames returns the canonical type names in sorted order
func (t *Tables) CanonicalNames() []string {
	names := make([]string, 0, len(t.Canonical))
	for name := range t.Canonical {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (t *Tables) catchAll() string {
	if t.CatchAll != "" {
		return t.CatchAll
	}
	return CatchAll
}

func (t *Tables) null() string {
	if t.Null != "" {
		return t.Null
	}
	return Null
}

// DefaultTables returns the Hex Casting symbol tables. Each call returns a
// fresh copy.
func DefaultTables() *Tables {
	return &Tables{
		Canonical: map[string]string{
			// Hex Casting
			"any":        NativeSentinel,
			"nil":        NativeSentinel,
			"number":     NativeSentinel,
			"boolean":    NativeSentinel,
			"string":     NativeSentinel,
			"HexGarbage": "{ garbage: true }",
			"HexVector":  "{ x: number, y: number, z: number }",
			"HexEntity":  "{ uuid: string, name: string|nil }",
			"HexPlayer":  "{ isPlayer: true, uuid: string, name: string }",
			"HexPattern": "{ startDir: string, angles: string }",

			// Addons
			"HexIotaT":   "{ iotaType: string }",
			"HexEntityT": "{ entityType: string }",
			"HexGate":    "{ gate: string }",
			"HexMote":    "{ moteUuid: string, itemID: string, nexusUuid: string|nil }",
			"HexMatrix":  "{ col: number, row: number, matrix: any[] }",

			// Only representable as iotas
			"HexComplex":    OpaqueRendering,
			"HexJump":       OpaqueRendering,
			"HexLong":       OpaqueRendering,
			"HexJson":       OpaqueRendering,
			"HexRoom":       OpaqueRendering,
			"HexMap":        OpaqueRendering,
			"HexText":       OpaqueRendering,
			"HexQuaternion": OpaqueRendering,
			"HexIdentifier": OpaqueRendering,
			"HexExpression": OpaqueRendering,
			"HexItem":       OpaqueRendering,
			"HexItemT":      OpaqueRendering,
			"HexMarker":     OpaqueRendering,
			"HexDye":        OpaqueRendering,
			"HexPigment":    OpaqueRendering,
		},
		Aliases: map[string]string{
			"entity":        "HexEntity",
			"entity entity": "HexEntity",
			"item entity":   "HexEntity",
			"speck entity":  "HexEntity",
			"item frame":    "HexEntity",
			"villager":      "HexEntity",
			"player entity": "HexPlayer",
			"player":        "HexPlayer",
			"vec":           "HexVector",
			"vec3":          "HexVector",
			"vector":        "HexVector",
			"pos":           "HexVector",
			"identifiable":  "HexVector",
			"num":           "number",
			"int":           "number",
			"int ≥ 0":       "number",
			"0-20":          "number",
			"0-24":          "number",
			"str":           "string",
			"bool":          "boolean",
			"null":          "nil",
			"iota":          "any",
			"any iota":      "any",
			"non-list":      "any",
			"list":          "any[]",
			"complex":       "HexComplex",
			"jump":          "HexJump",
			"long":          "HexLong",
			"room":          "HexRoom",
			"map":           "HexMap",
			"mat":           "HexMatrix",
			"matrix":        "HexMatrix",
			"mote":          "HexMote",
			"gate":          "HexGate",
			"text":          "HexText",
			"qtrn":          "HexQuaternion",
			"qrtn":          "HexQuaternion",
			"quat":          "HexQuaternion",
			"quaternion":    "HexQuaternion",
			"pattern":       "HexPattern",
			"identifier":    "HexIdentifier",
			"expression":    "HexExpression",
			"expr":          "HexExpression",
			"entitytype":    "HexEntityT",
			"itemtype":      "HexItemT",
			"iotatype":      "HexIotaT",
			"itemtypable":   "(HexEntity|HexVector)",
			"key":           "(HexEntity|HexVector)",
			"marker":        "HexMarker",
			"dye":           "HexDye",
			"pigment":       "HexPigment",
			"item stack":    "HexItem",
		},
		Specials: map[string]string{
			// hexal mote trading: https://hexal.hexxy.media/v/0.3.0/1.0/en_us/#patterns/spells/motes@hexal:mote/trade/get
			"[complicated!]": "[[HexItemT, number][], [HexItemT, number]]",
		},
	}
}
