// Package types provides shared type definitions for hexlua.
//
// This package defines the pattern registry model decoded from registry.json
// and the search results returned by the searcher and the MCP tools.
//
// # Core Types
//
// Pattern is a spell pattern together with the operators that implement it.
// Operators carry the informal "inputs" and "outputs" descriptions that
// package typeexpr turns into LuaLS types:
//
//	pattern := types.Pattern{
//	    ID:        "hexcasting:get_caster",
//	    Name:      "Mind's Reflection",
//	    Direction: types.DirNorthEast,
//	    Signature: "qaq",
//	    Operators: []types.Operator{{
//	        Outputs: &outputs, // "entity"
//	        ModID:   "hexcasting",
//	    }},
//	}
//
// # Validation
//
//	if err := pattern.Validate(); err != nil {
//	    log.Fatal(err)
//	}
//
// Directions must be one of the six hex directions and signatures may only
// use the stroke letters a, q, w, e and d.
//
// # Search Results
//
// SearchResult pairs a pattern with its relevance score and, when available,
// the resolved Lua signature of its first operator. Relevance scores are
// normalized to the [0, 1] range.
package types
