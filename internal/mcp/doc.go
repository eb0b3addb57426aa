// Package mcp implements the Model Context Protocol (MCP) server for hexlua.
//
// The server exposes six tools to AI coding assistants:
//   - index_registry: Index a Hex Casting registry.json for search
//   - search_patterns: Keyword search over indexed patterns
//   - resolve_type: Translate one informal type description into a LuaLS type
//   - get_pattern: Fetch a pattern with the Lua signature of each operator
//   - generate_lua: Produce a LuaLS definition file for a registry
//   - get_status: Check indexing status and statistics
//
// # Protocol Overview
//
// MCP is a JSON-RPC 2.0 protocol over stdio transport:
//
//	Client → Server: {"method": "tools/call", "params": {...}}
//	Server → Client: {"result": {...}}
//
// The server is started via the serve command:
//
//	hexlua serve
//
// # Tool: index_registry
//
//	Request:
//	{
//	  "name": "index_registry",
//	  "arguments": {
//	    "path": "/home/me/hex/registry.json",
//	    "force": false
//	  }
//	}
//
//	Response:
//	{
//	  "indexed": true,
//	  "patterns_indexed": 412,
//	  "operators_indexed": 437,
//	  "unresolved_types": ["wisp"],
//	  "duration_ms": 180
//	}
//
// An unchanged file is skipped unless force is set.
//
// # Tool: search_patterns
//
//	Request:
//	{
//	  "name": "search_patterns",
//	  "arguments": {
//	    "path": "/home/me/hex/registry.json",
//	    "query": "summon wisp",
//	    "limit": 5,
//	    "mod_id": "hexal"
//	  }
//	}
//
// Each result carries the pattern ID, name, drawing and the resolved
// params/returns of its first operator.
//
// # Tool: resolve_type
//
//	Request:  {"name": "resolve_type", "arguments": {"expression": "list of vec"}}
//	Response: {"input": "list of vec", "lua_type": "({ x: number, y: number, z: number })[]", "native": false, "unresolved": []}
//
// native is true when the result is a canonical type LuaLS already knows
// (number, string, boolean, nil, any).
//
// # Tool: get_pattern, generate_lua, get_status
//
// get_pattern takes {path, id}. generate_lua takes {path, namespace} and
// reads the registry file directly, so it does not need an index.
// get_status reports counts and health for an indexed registry, or
// {"indexed": false} when the registry has not been indexed yet.
//
// # MCP Client Configuration
//
//	{
//	  "mcpServers": {
//	    "hexlua": {
//	      "command": "/usr/local/bin/hexlua",
//	      "args": ["serve"],
//	      "env": {
//	        "HEXLUA_DB_PATH": "~/.hexlua/hexlua.db"
//	      }
//	    }
//	  }
//	}
//
// # Error Handling
//
// Handlers return *MCPError values:
//   - -32602: Invalid params (missing/invalid arguments)
//   - -32603: Internal error (database, filesystem, etc.)
//   - -32001: Registry missing or undecodable
//   - -32002: Indexing in progress
//   - -32003: Registry not indexed
//   - -32004: Empty query
//   - -32005: Pattern not found
//
// # Logging
//
// The server logs to stderr through charmbracelet/log; stdout is reserved
// for the protocol. Set the level with HEXLUA_LOG_LEVEL=debug.
package mcp
