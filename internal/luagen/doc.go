// Package luagen emits LuaLS definition files for a Hex Casting pattern
// registry.
//
// Each pattern becomes an annotated function stub on a global table (Hex by
// default). Parameter and return types come from the operator's informal
// inputs and outputs, resolved by package typeexpr; additional operators for
// the same pattern are emitted as ---@overload lines.
//
//	g := luagen.NewGenerator(typeexpr.New(nil, tracker), logger)
//	stats, err := g.Generate(out, reg)
//
// The package also carries the small Lua helpers the generator needs:
// reserved words, string quoting, and snake_case name conversion.
package luagen
