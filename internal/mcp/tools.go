package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/dshills/hexlua/internal/indexer"
	"github.com/dshills/hexlua/internal/luagen"
	"github.com/dshills/hexlua/internal/registry"
	"github.com/dshills/hexlua/internal/searcher"
	"github.com/dshills/hexlua/internal/storage"
	"github.com/dshills/hexlua/internal/typeexpr"
)

// MCP error codes
const (
	ErrorCodeInvalidParams      = -32602 // Invalid method parameters
	ErrorCodeInternalError      = -32603 // Internal JSON-RPC error
	ErrorCodeRegistryNotFound   = -32001 // Registry file missing or undecodable
	ErrorCodeIndexingInProgress = -32002 // Another indexing operation is already running
	ErrorCodeNotIndexed         = -32003 // Registry not indexed
	ErrorCodeEmptyQuery         = -32004 // Query parameter is empty
	ErrorCodePatternNotFound    = -32005 // No pattern with the requested ID
)

// handleIndexRegistry handles the index_registry tool invocation
func (s *Server) handleIndexRegistry(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	path, err := requirePath(args)
	if err != nil {
		return nil, err
	}

	config := s.indexCfg
	config.Force = getBoolDefault(args, "force", false)

	stats, err := s.indexer.IndexRegistry(ctx, path, &config)
	if err != nil {
		return nil, indexError(err)
	}

	if reg, err := s.storage.GetRegistry(ctx, path); err == nil {
		s.searcher.InvalidateCache(reg.ID)
	}

	response := map[string]interface{}{
		"indexed":           true,
		"patterns_indexed":  stats.PatternsIndexed,
		"patterns_skipped":  stats.PatternsSkipped,
		"patterns_failed":   stats.PatternsFailed,
		"patterns_removed":  stats.PatternsRemoved,
		"operators_indexed": stats.OperatorsIndexed,
		"unresolved_types":  stats.UnresolvedTypes,
		"duration_ms":       stats.Duration.Milliseconds(),
	}

	if len(stats.ErrorMessages) > 0 {
		// Include first few errors
		errorCount := len(stats.ErrorMessages)
		if errorCount > 5 {
			response["errors"] = stats.ErrorMessages[:5]
			response["error_count"] = errorCount
		} else {
			response["errors"] = stats.ErrorMessages
		}
	}

	return mcp.NewToolResultText(formatJSON(response)), nil
}

// indexError maps indexer failures to MCP errors
func indexError(err error) error {
	switch {
	case errors.Is(err, indexer.ErrIndexingInProgress):
		return newMCPError(ErrorCodeIndexingInProgress, "indexing already in progress", nil)
	case errors.Is(err, registry.ErrRegistryNotFound), errors.Is(err, registry.ErrInvalidRegistry):
		return newMCPError(ErrorCodeRegistryNotFound, "cannot load registry", map[string]interface{}{
			"error": err.Error(),
		})
	default:
		return newMCPError(ErrorCodeInternalError, "indexing failed", map[string]interface{}{
			"error": err.Error(),
		})
	}
}

// handleSearchPatterns handles the search_patterns tool invocation
func (s *Server) handleSearchPatterns(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	path, err := requirePath(args)
	if err != nil {
		return nil, err
	}

	query := strings.TrimSpace(getStringDefault(args, "query", ""))
	if query == "" {
		return nil, newMCPError(ErrorCodeEmptyQuery, "query parameter is required and cannot be empty", map[string]interface{}{
			"param":  "query",
			"reason": "missing or empty",
		})
	}

	limit := getIntDefault(args, "limit", searcher.DefaultLimit)
	if limit < 1 || limit > searcher.MaxLimit {
		return nil, newMCPError(ErrorCodeInvalidParams, "limit must be between 1 and 100", map[string]interface{}{
			"param": "limit",
			"value": limit,
		})
	}

	reg, err := s.indexedRegistry(ctx, path)
	if err != nil {
		return nil, err
	}

	filters := &storage.SearchFilters{}
	if modID := getStringDefault(args, "mod_id", ""); modID != "" {
		filters.ModIDs = []string{modID}
	}
	if ns := getStringDefault(args, "namespace", ""); ns != "" {
		filters.Namespaces = []string{ns}
	}

	resp, err := s.searcher.Search(ctx, searcher.SearchRequest{
		Query:      query,
		Limit:      limit,
		RegistryID: reg.ID,
		Filters:    filters,
		UseCache:   true,
	})
	if errors.Is(err, searcher.ErrEmptyQuery) || errors.Is(err, storage.ErrEmptyQuery) {
		return nil, newMCPError(ErrorCodeEmptyQuery, "query has no searchable terms", map[string]interface{}{
			"param": "query",
			"value": query,
		})
	}
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "search failed", map[string]interface{}{
			"error": err.Error(),
		})
	}

	results := make([]map[string]interface{}, 0, len(resp.Results))
	for _, r := range resp.Results {
		item := map[string]interface{}{
			"id":        r.PatternID,
			"rank":      r.Rank,
			"relevance": r.RelevanceScore,
		}
		if r.Pattern != nil {
			item["name"] = r.Pattern.Name
			item["signature"] = r.Pattern.Signature
			item["direction"] = r.Pattern.Direction
		}
		if r.Signature != nil {
			item["params"] = r.Signature.Params
			item["returns"] = r.Signature.Returns
		}
		results = append(results, item)
	}

	response := map[string]interface{}{
		"query":         query,
		"results":       results,
		"total_results": resp.TotalResults,
		"cache_hit":     resp.CacheHit,
		"duration_ms":   resp.Duration.Milliseconds(),
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleResolveType handles the resolve_type tool invocation
func (s *Server) handleResolveType(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	expression, ok := args["expression"].(string)
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "expression parameter is required", map[string]interface{}{
			"param":  "expression",
			"reason": "missing",
		})
	}

	// Fresh tracker per call so "unresolved" only lists this expression's tokens
	resolver := typeexpr.New(s.tables, typeexpr.NewTracker(s.logger))
	luaType := resolver.Resolve(expression)

	response := map[string]interface{}{
		"input":      expression,
		"lua_type":   luaType,
		"native":     s.isNativeType(luaType),
		"unresolved": resolver.Tracker().Reported(),
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// isNativeType reports whether luaType is a canonical type LuaLS knows
// natively, so no alias is needed for it
func (s *Server) isNativeType(luaType string) bool {
	value, ok := s.tables.Canonical[luaType]
	return ok && s.tables.IsNative(value)
}

// handleGetPattern handles the get_pattern tool invocation
func (s *Server) handleGetPattern(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	path, err := requirePath(args)
	if err != nil {
		return nil, err
	}

	id := getStringDefault(args, "id", "")
	if id == "" {
		return nil, newMCPError(ErrorCodeInvalidParams, "id parameter is required", map[string]interface{}{
			"param":  "id",
			"reason": "missing or empty",
		})
	}

	reg, err := s.indexedRegistry(ctx, path)
	if err != nil {
		return nil, err
	}

	pattern, err := s.storage.GetPattern(ctx, reg.ID, id)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, newMCPError(ErrorCodePatternNotFound, "pattern not found", map[string]interface{}{
			"id": id,
		})
	}
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "failed to get pattern", map[string]interface{}{
			"error": err.Error(),
		})
	}

	ops, err := s.storage.ListOperators(ctx, pattern.ID)
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "failed to list operators", map[string]interface{}{
			"error": err.Error(),
		})
	}

	operators := make([]map[string]interface{}, 0, len(ops))
	for _, op := range ops {
		operators = append(operators, map[string]interface{}{
			"mod_id":      op.ModID,
			"description": op.Description,
			"inputs":      op.Inputs,
			"outputs":     op.Outputs,
			"params":      op.LuaParams,
			"returns":     op.LuaReturns,
			"book_url":    op.BookURL,
		})
	}

	response := map[string]interface{}{
		"id":           pattern.ResourceID,
		"name":         pattern.Name,
		"namespace":    pattern.Namespace,
		"direction":    pattern.Direction,
		"signature":    pattern.Signature,
		"is_per_world": pattern.IsPerWorld,
		"operators":    operators,
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleGenerateLua handles the generate_lua tool invocation
func (s *Server) handleGenerateLua(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	path, err := requirePath(args)
	if err != nil {
		return nil, err
	}

	reg, err := registry.Load(path)
	if err != nil {
		return nil, newMCPError(ErrorCodeRegistryNotFound, "cannot load registry", map[string]interface{}{
			"error": err.Error(),
		})
	}

	resolver := typeexpr.New(s.tables, typeexpr.NewTracker(s.logger))
	gen := luagen.NewGenerator(resolver, s.logger).
		WithNamespace(getStringDefault(args, "namespace", s.namespace))

	var out strings.Builder
	if _, err := gen.Generate(&out, reg); err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "generation failed", map[string]interface{}{
			"error": err.Error(),
		})
	}

	return mcp.NewToolResultText(out.String()), nil
}

// handleGetStatus handles the get_status tool invocation
func (s *Server) handleGetStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	path, err := requirePath(args)
	if err != nil {
		return nil, err
	}

	reg, err := s.storage.GetRegistry(ctx, path)
	if errors.Is(err, storage.ErrNotFound) || (err == nil && reg.LastIndexedAt.IsZero()) {
		response := map[string]interface{}{
			"indexed":              false,
			"path":                 path,
			"indexing_in_progress": s.indexer.Lock().Held(),
			"message":              "Registry not indexed. Use index_registry tool to index it.",
		}
		return mcp.NewToolResultText(formatJSON(response)), nil
	}
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "failed to get registry status", map[string]interface{}{
			"error": err.Error(),
		})
	}

	status, err := s.storage.GetStatus(ctx, reg.ID)
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "failed to get status", map[string]interface{}{
			"error": err.Error(),
		})
	}

	response := map[string]interface{}{
		"indexed":              true,
		"indexing_in_progress": s.indexer.Lock().Held(),
		"registry": map[string]interface{}{
			"path":              reg.Path,
			"index_version":     reg.IndexVersion,
			"last_indexed_at":   status.LastIndexedAt.Format("2006-01-02T15:04:05Z07:00"),
			"index_duration_ms": status.IndexDuration.Milliseconds(),
		},
		"statistics": map[string]interface{}{
			"patterns_count":   status.PatternsCount,
			"operators_count":  status.OperatorsCount,
			"unresolved_count": status.UnresolvedCount,
			"index_size_mb":    fmt.Sprintf("%.2f", status.IndexSizeMB),
		},
		"health": map[string]interface{}{
			"database_accessible": status.Health.DatabaseAccessible,
			"fts_indexes_built":   status.Health.FTSIndexesBuilt,
		},
	}

	return mcp.NewToolResultText(formatJSON(response)), nil
}

// indexedRegistry returns the stored registry for path or a NotIndexed error
func (s *Server) indexedRegistry(ctx context.Context, path string) (*storage.Registry, error) {
	reg, err := s.storage.GetRegistry(ctx, path)
	if errors.Is(err, storage.ErrNotFound) || (err == nil && reg.LastIndexedAt.IsZero()) {
		return nil, newMCPError(ErrorCodeNotIndexed, "registry not indexed", map[string]interface{}{
			"path": path,
			"hint": "use index_registry first",
		})
	}
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "failed to get registry", map[string]interface{}{
			"error": err.Error(),
		})
	}
	return reg, nil
}

// Helper functions

// requirePath extracts and validates the path argument
func requirePath(args map[string]interface{}) (string, error) {
	path, ok := args["path"].(string)
	if !ok || path == "" {
		return "", newMCPError(ErrorCodeInvalidParams, "path parameter is required", map[string]interface{}{
			"param":  "path",
			"reason": "missing or empty",
		})
	}

	if err := validatePath(path); err != nil {
		return "", newMCPError(ErrorCodeInvalidParams, "invalid path", map[string]interface{}{
			"param":  "path",
			"reason": err.Error(),
		})
	}
	return filepath.Clean(path), nil
}

// newMCPError creates a properly formatted MCP error
func newMCPError(code int, message string, data interface{}) error {
	// MCP errors are returned as regular errors, the framework handles encoding
	return &MCPError{
		Code:    code,
		Message: message,
		Data:    data,
	}
}

// MCPError represents an MCP protocol error
type MCPError struct {
	Code    int
	Message string
	Data    interface{}
}

func (e *MCPError) Error() string {
	return fmt.Sprintf("MCP error %d: %s", e.Code, e.Message)
}

// validatePath checks that path names a readable registry file
func validatePath(path string) error {
	if path == "" {
		return ErrPathRequired
	}

	if !filepath.IsAbs(path) {
		return ErrPathNotAbsolute
	}

	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return ErrPathNotFound
	}
	if err != nil {
		return ErrPathNotReadable
	}

	if info.IsDir() {
		return ErrIsDirectory
	}

	if !strings.EqualFold(filepath.Ext(path), ".json") {
		return ErrNotJSON
	}

	f, err := os.Open(path)
	if err != nil {
		return ErrPathNotReadable
	}
	_ = f.Close()

	return nil
}

// formatJSON formats a map as indented JSON
func formatJSON(data map[string]interface{}) string {
	bytes, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", data)
	}
	return string(bytes)
}

// getBoolDefault extracts a boolean parameter with a default value
func getBoolDefault(args map[string]interface{}, key string, defaultValue bool) bool {
	if val, ok := args[key].(bool); ok {
		return val
	}
	return defaultValue
}

// getIntDefault extracts an integer parameter with a default value
func getIntDefault(args map[string]interface{}, key string, defaultValue int) int {
	if val, ok := args[key].(float64); ok {
		return int(val)
	}
	if val, ok := args[key].(int); ok {
		return val
	}
	return defaultValue
}

// getStringDefault extracts a string parameter with a default value
func getStringDefault(args map[string]interface{}, key string, defaultValue string) string {
	if val, ok := args[key].(string); ok && val != "" {
		return val
	}
	return defaultValue
}

// Validation helpers

var (
	ErrPathRequired    = errors.New("path is required")
	ErrPathNotAbsolute = errors.New("path must be absolute")
	ErrPathNotFound    = errors.New("path does not exist")
	ErrPathNotReadable = errors.New("path is not readable")
	ErrIsDirectory     = errors.New("path is a directory, expected registry.json")
	ErrNotJSON         = errors.New("registry must be a .json file")
)
