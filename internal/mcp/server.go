package mcp

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/mark3labs/mcp-go/server"

	"github.com/dshills/hexlua/internal/config"
	"github.com/dshills/hexlua/internal/indexer"
	"github.com/dshills/hexlua/internal/searcher"
	"github.com/dshills/hexlua/internal/storage"
	"github.com/dshills/hexlua/internal/typeexpr"
)

const (
	// ServerName is the MCP server name
	ServerName = "hexlua"
	// ServerVersion is the current server version
	ServerVersion = "1.0.0"
)

// Server wraps the MCP server with application dependencies
type Server struct {
	mcp       *server.MCPServer
	storage   storage.Storage
	indexer   *indexer.Indexer
	searcher  *searcher.Searcher
	tables    *typeexpr.Tables
	logger    *log.Logger
	indexCfg  indexer.Config
	namespace string
}

// NewServer creates a new MCP server instance backed by the database at
// cfg.DBPath. A nil cfg uses config.DefaultConfig.
func NewServer(cfg *config.Config, logger *log.Logger) (*Server, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if logger == nil {
		logger = log.Default()
	}

	dbPath, err := config.ExpandHome(cfg.DBPath)
	if err != nil {
		return nil, err
	}
	cfg.DBPath = dbPath
	if err := cfg.EnsureDBDir(); err != nil {
		return nil, err
	}

	store, err := storage.NewSQLiteStorage(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	// One table set is shared read-only by the indexer and every resolve_type call
	tables := typeexpr.DefaultTables()

	s := &Server{
		mcp:      server.NewMCPServer(ServerName, ServerVersion),
		storage:  store,
		indexer:  indexer.New(store, tables, logger),
		searcher: searcher.NewSearcher(store, searcher.DefaultCacheSize),
		tables:   tables,
		logger:   logger,
		indexCfg: indexer.Config{
			Workers:   cfg.Workers,
			BatchSize: cfg.BatchSize,
		},
		namespace: cfg.Namespace,
	}

	if err := s.registerTools(); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to register tools: %w", err)
	}

	logger.Debug("mcp server ready", "db", cfg.DBPath, "driver", storage.DriverName)
	return s, nil
}

// Serve starts the MCP server on stdio and blocks until shutdown
func (s *Server) Serve(ctx context.Context) error {
	defer func() { _ = s.Close() }()
	return server.ServeStdio(s.mcp)
}

// Close releases the underlying storage
func (s *Server) Close() error {
	return s.storage.Close()
}

// registerTools registers all MCP tools
func (s *Server) registerTools() error {
	s.mcp.AddTool(indexRegistryTool(), s.handleIndexRegistry)
	s.mcp.AddTool(searchPatternsTool(), s.handleSearchPatterns)
	s.mcp.AddTool(resolveTypeTool(), s.handleResolveType)
	s.mcp.AddTool(getPatternTool(), s.handleGetPattern)
	s.mcp.AddTool(generateLuaTool(), s.handleGenerateLua)
	s.mcp.AddTool(getStatusTool(), s.handleGetStatus)
	return nil
}
