package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
)

// pathProperty describes the registry path argument shared by most tools
func pathProperty(description string) map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"description": description,
	}
}

// indexRegistryTool returns the tool definition for index_registry
func indexRegistryTool() mcp.Tool {
	return mcp.Tool{
		Name:        "index_registry",
		Description: "Index a Hex Casting pattern registry (registry.json) to make it searchable",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"path": pathProperty("Absolute path to registry.json"),
				"force": map[string]interface{}{
					"type":        "boolean",
					"description": "If true, re-index even when the file is unchanged",
					"default":     false,
				},
			},
			Required: []string{"path"},
		},
	}
}

// searchPatternsTool returns the tool definition for search_patterns
func searchPatternsTool() mcp.Tool {
	return mcp.Tool{
		Name:        "search_patterns",
		Description: "Search indexed patterns by name, ID or description keywords",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"path": pathProperty("Absolute path to an indexed registry.json"),
				"query": map[string]interface{}{
					"type":        "string",
					"description": "Search keywords",
				},
				"limit": map[string]interface{}{
					"type":        "integer",
					"description": "Maximum number of results to return (1-100)",
					"default":     10,
					"minimum":     1,
					"maximum":     100,
				},
				"mod_id": map[string]interface{}{
					"type":        "string",
					"description": "Only return patterns with an operator from this mod (e.g., 'hexal')",
				},
				"namespace": map[string]interface{}{
					"type":        "string",
					"description": "Only return patterns whose ID has this namespace",
				},
			},
			Required: []string{"path", "query"},
		},
	}
}

// resolveTypeTool returns the tool definition for resolve_type
func resolveTypeTool() mcp.Tool {
	return mcp.Tool{
		Name:        "resolve_type",
		Description: "Translate an informal iota type description (e.g., 'list of vec or null') into a LuaLS type",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"expression": map[string]interface{}{
					"type":        "string",
					"description": "Type description as written in the registry",
				},
			},
			Required: []string{"expression"},
		},
	}
}

// getPatternTool returns the tool definition for get_pattern
func getPatternTool() mcp.Tool {
	return mcp.Tool{
		Name:        "get_pattern",
		Description: "Get an indexed pattern with the Lua signature of each operator",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"path": pathProperty("Absolute path to an indexed registry.json"),
				"id": map[string]interface{}{
					"type":        "string",
					"description": "Pattern ID (e.g., 'hexcasting:get_caster')",
				},
			},
			Required: []string{"path", "id"},
		},
	}
}

// generateLuaTool returns the tool definition for generate_lua
func generateLuaTool() mcp.Tool {
	return mcp.Tool{
		Name:        "generate_lua",
		Description: "Generate a LuaLS definition file for every pattern in a registry",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"path": pathProperty("Absolute path to registry.json"),
				"namespace": map[string]interface{}{
					"type":        "string",
					"description": "Global table holding the generated functions",
					"default":     "Hex",
				},
			},
			Required: []string{"path"},
		},
	}
}

// getStatusTool returns the tool definition for get_status
func getStatusTool() mcp.Tool {
	return mcp.Tool{
		Name:        "get_status",
		Description: "Get indexing status and statistics for a registry",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"path": pathProperty("Absolute path to registry.json"),
			},
			Required: []string{"path"},
		},
	}
}
