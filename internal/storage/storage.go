package storage

import (
	"context"
	"strings"
	"time"

	"github.com/dshills/hexlua/pkg/types"
)

// Storage defines the interface for persisting and querying indexed registries
type Storage interface {
	// Registry operations
	CreateRegistry(ctx context.Context, registry *Registry) error
	GetRegistry(ctx context.Context, path string) (*Registry, error)
	UpdateRegistry(ctx context.Context, registry *Registry) error

	// Pattern operations
	UpsertPattern(ctx context.Context, pattern *Pattern) error
	GetPattern(ctx context.Context, registryID int64, resourceID string) (*Pattern, error)
	GetPatternByID(ctx context.Context, id int64) (*Pattern, error)
	ListPatterns(ctx context.Context, registryID int64) ([]*Pattern, error)
	DeletePattern(ctx context.Context, id int64) error

	// Operator operations
	UpsertOperator(ctx context.Context, op *Operator) error
	ListOperators(ctx context.Context, patternID int64) ([]*Operator, error)
	DeleteOperatorsByPattern(ctx context.Context, patternID int64) error

	// Search operations
	SearchText(ctx context.Context, registryID int64, query string, limit int, filters *SearchFilters) ([]TextResult, error)

	// Unresolved type operations
	RecordUnresolved(ctx context.Context, registryID int64, tokens []string) error
	ListUnresolved(ctx context.Context, registryID int64) ([]string, error)
	ClearUnresolved(ctx context.Context, registryID int64) error

	// Status operations
	GetStatus(ctx context.Context, registryID int64) (*RegistryStatus, error)

	// Database operations
	Close() error
	BeginTx(ctx context.Context) (Tx, error)
}

// Tx represents a database transaction
type Tx interface {
	Commit() error
	Rollback() error
	Storage // Embed Storage interface for transaction operations
}

// Registry represents an indexed registry.json file
type Registry struct {
	ID             int64
	Path           string
	ContentHash    [32]byte
	TotalPatterns  int
	TotalOperators int
	IndexVersion   string
	IndexDuration  time.Duration
	LastIndexedAt  time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Pattern represents a stored pattern row
type Pattern struct {
	ID          int64
	RegistryID  int64
	ResourceID  string // Namespaced ID (e.g., "hexcasting:get_caster")
	Namespace   string
	Name        string
	Direction   string
	Signature   string
	IsPerWorld  bool
	Description string // Operator descriptions, indexed for full-text search
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Operator represents one stored operator of a pattern along with its
// resolved Lua signature
type Operator struct {
	ID          int64
	PatternID   int64
	Position    int
	ModID       string
	Description string
	Inputs      *string // Nullable
	Outputs     *string // Nullable
	LuaParams   []string
	LuaReturns  []string
	BookURL     string
	CreatedAt   time.Time
}

// SearchFilters contains filters for narrowing search results
type SearchFilters struct {
	ModIDs       []string // Patterns with at least one operator from these mods
	Namespaces   []string // Namespace part of the pattern ID
	MinRelevance float64  // Minimum relevance score
}

// TextResult represents a result from full-text search
type TextResult struct {
	PatternID int64
	BM25Score float64
}

// RegistryStatus contains statistics about an indexed registry
type RegistryStatus struct {
	Registry        *Registry
	PatternsCount   int
	OperatorsCount  int
	UnresolvedCount int
	IndexSizeMB     float64
	LastIndexedAt   time.Time
	IndexDuration   time.Duration
	Health          HealthStatus
}

// HealthStatus represents the health of the index
type HealthStatus struct {
	DatabaseAccessible bool
	FTSIndexesBuilt    bool
}

// luaListSeparator joins resolved Lua types in a single column. Rendered
// types may contain commas but never newlines.
const luaListSeparator = "\n"

func joinLuaList(list []string) string {
	return strings.Join(list, luaListSeparator)
}

func splitLuaList(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, luaListSeparator)
}

// ToTypesPattern converts a stored pattern and its operators back to the
// registry model
func (p *Pattern) ToTypesPattern(ops []*Operator) types.Pattern {
	out := types.Pattern{
		ID:         p.ResourceID,
		Name:       p.Name,
		Direction:  types.Direction(p.Direction),
		Signature:  p.Signature,
		IsPerWorld: p.IsPerWorld,
		Operators:  make([]types.Operator, 0, len(ops)),
	}
	for _, op := range ops {
		out.Operators = append(out.Operators, types.Operator{
			Description: op.Description,
			Inputs:      op.Inputs,
			Outputs:     op.Outputs,
			BookURL:     op.BookURL,
			ModID:       op.ModID,
		})
	}
	return out
}

// FromTypesPattern converts a registry pattern to a storage row
func FromTypesPattern(p *types.Pattern, registryID int64) *Pattern {
	descriptions := make([]string, 0, len(p.Operators))
	for _, op := range p.Operators {
		if op.Description != "" {
			descriptions = append(descriptions, op.Description)
		}
	}
	return &Pattern{
		RegistryID:  registryID,
		ResourceID:  p.ID,
		Namespace:   p.Namespace(),
		Name:        p.Name,
		Direction:   string(p.Direction),
		Signature:   p.Signature,
		IsPerWorld:  p.IsPerWorld,
		Description: strings.Join(descriptions, "\n"),
	}
}

// FromTypesOperator converts a registry operator to a storage row
func FromTypesOperator(op *types.Operator, patternID int64, position int, params, returns []string) *Operator {
	return &Operator{
		PatternID:   patternID,
		Position:    position,
		ModID:       op.ModID,
		Description: op.Description,
		Inputs:      op.Inputs,
		Outputs:     op.Outputs,
		LuaParams:   params,
		LuaReturns:  returns,
		BookURL:     op.BookURL,
	}
}
