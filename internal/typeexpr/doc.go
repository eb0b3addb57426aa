// Package typeexpr resolves the informal type descriptions found in Hex
// Casting documentation into LuaLS type annotations.
//
// Descriptions such as "entity?", "[num]", "(entity, number)",
// "list of vec" or "player entity/number" are parsed by recursive descent.
// Compound forms are split on top-level delimiters and each part is resolved
// in turn; leaves are looked up in a pair of symbol tables.
//
// # Basic Usage
//
//	r := typeexpr.New(typeexpr.DefaultTables(), typeexpr.NewTracker(logger))
//	r.Resolve("entity?")      // "{ uuid: string, name: string|nil } | nil"
//	r.Resolve("[num]")        // "number[]"
//	r.Resolve("(entity, num)") // "[{ uuid: string, name: string|nil }, number]"
//
// # Grammar
//
// Forms are tried in a fixed order and the first match wins:
//   - a fixed special-case literal
//   - empty input, rendered as "any"
//   - unbalanced brackets, treated as a leaf
//   - trailing "?" (optional)
//   - top-level "|" or "/" (union; exact duplicate branches collapse)
//   - "[...]" (array, or tuple when it holds several elements)
//   - "(...)" (tuple when it holds a top-level comma, grouping otherwise)
//   - "list of X"
//   - "X or null"
//   - anything else is a leaf
//
// Angle-bracketed annotations such as "<0-20>" are removed before parsing.
//
// # Unknown Types
//
// Resolve never fails. A leaf that misses both tables, including its
// singular forms ("entities" -> "entity", "keys" -> "key"), is returned
// verbatim and reported once to the Tracker, which logs a warning.
// A Tracker is meant to be created per processing run.
package typeexpr
