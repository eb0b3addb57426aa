// Package registry loads the Hex Casting pattern registry exported by the
// in-game dump tool.
package registry

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/dshills/hexlua/pkg/types"
)

// DefaultPath is where the registry is looked up when none is configured
const DefaultPath = "registry.json"

var (
	// ErrRegistryNotFound is returned when the registry file does not exist
	ErrRegistryNotFound = errors.New("registry not found")
	// ErrInvalidRegistry is returned when the registry cannot be decoded
	ErrInvalidRegistry = errors.New("invalid registry")
)

// Load reads and decodes the registry at path
func Load(path string) (*types.Registry, error) {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrRegistryNotFound, path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open registry: %w", err)
	}
	defer func() { _ = f.Close() }()

	return Decode(f)
}

// Decode decodes a registry from r. Pattern IDs missing from an entry are
// filled in from the map key.
func Decode(r io.Reader) (*types.Registry, error) {
	var reg types.Registry
	if err := json.NewDecoder(r).Decode(&reg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRegistry, err)
	}
	if reg.Patterns == nil {
		return nil, fmt.Errorf("%w: missing \"patterns\" object", ErrInvalidRegistry)
	}

	for key, p := range reg.Patterns {
		if p.ID == "" {
			p.ID = key
			reg.Patterns[key] = p
		}
	}
	return &reg, nil
}

// SortedIDs returns the registry's pattern keys in lexical order
func SortedIDs(reg *types.Registry) []string {
	ids := make([]string, 0, len(reg.Patterns))
	for id := range reg.Patterns {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Sorted returns the registry's patterns ordered by key
func Sorted(reg *types.Registry) []types.Pattern {
	ids := SortedIDs(reg)
	patterns := make([]types.Pattern, 0, len(ids))
	for _, id := range ids {
		patterns = append(patterns, reg.Patterns[id])
	}
	return patterns
}
